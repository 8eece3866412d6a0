// Package consoletoken mints signed operator tokens for the console.
package consoletoken

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config holds configuration for console token generation.
type Config struct {
	Secret   string
	Operator string
	TTL      time.Duration
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{TTL: 12 * time.Hour}
	fs.StringVar(&cfg.Secret, "secret", cfg.Secret, "console token signing secret")
	fs.StringVar(&cfg.Operator, "operator", cfg.Operator, "operator id placed in the token subject")
	fs.DurationVar(&cfg.TTL, "ttl", cfg.TTL, "token lifetime (default: 12h)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run signs the token and writes it to out. The clock parameter exists for
// tests; a nil clock uses the wall clock.
func Run(cfg Config, out io.Writer, clock func() time.Time) error {
	if strings.TrimSpace(cfg.Secret) == "" {
		return errors.New("secret is required")
	}
	if strings.TrimSpace(cfg.Operator) == "" {
		return errors.New("operator is required")
	}
	if cfg.TTL <= 0 {
		return errors.New("ttl must be greater than zero")
	}
	if out == nil {
		return errors.New("output is required")
	}
	if clock == nil {
		clock = time.Now
	}

	now := clock()
	claims := jwt.RegisteredClaims{
		Subject:   strings.TrimSpace(cfg.Operator),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(strings.TrimSpace(cfg.Secret)))
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
