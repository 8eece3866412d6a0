package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenVerifier resolves an access token to an operator id.
type tokenVerifier interface {
	Verify(token string) (operatorID string, err error)
}

var (
	errTokenEmpty     = errors.New("token is required")
	errTokenNoSubject = errors.New("token has no subject")
)

// hmacTokenVerifier validates HS256 console session tokens issued by the
// operator tooling. The subject claim is the operator id.
type hmacTokenVerifier struct {
	secret []byte
	now    func() time.Time
}

func newTokenVerifier(secret string) *hmacTokenVerifier {
	return &hmacTokenVerifier{secret: []byte(secret), now: time.Now}
}

func (v *hmacTokenVerifier) Verify(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errTokenEmpty
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return "", fmt.Errorf("parse console token: %w", err)
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return "", errTokenNoSubject
	}
	return subject, nil
}
