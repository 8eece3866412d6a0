package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/net/websocket"

	"github.com/stonegate/stonegate/internal/command"
)

// echoDispatcher records lines and answers each with one message.
type echoDispatcher struct {
	mu    sync.Mutex
	lines []string
	reply string
}

func (d *echoDispatcher) ExecuteLine(ctx context.Context, sender command.Sender, line string) command.Outcome {
	d.mu.Lock()
	d.lines = append(d.lines, line)
	d.mu.Unlock()
	if d.reply != "" {
		sender.SendMessage(d.reply)
	}
	return command.OutcomeSuccess
}

func (d *echoDispatcher) seen() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.lines...)
}

func dialWS(t *testing.T, handler http.Handler, cookie string) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	conn, err := dialWSURL(srv.URL, cookie)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func dialWSURL(httpURL, cookie string) (*websocket.Conn, error) {
	wsURL := "ws" + strings.TrimPrefix(httpURL, "http") + "/ws"
	if cookie == "" {
		return websocket.Dial(wsURL, "", httpURL)
	}
	cfg, err := websocket.NewConfig(wsURL, httpURL)
	if err != nil {
		return nil, err
	}
	cfg.Header = make(http.Header)
	cfg.Header.Set("Cookie", cookie)
	return websocket.DialConfig(cfg)
}

func TestHealthRoute(t *testing.T) {
	srv := httptest.NewServer(NewHandler(&echoDispatcher{}))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/up")
	if err != nil {
		t.Fatalf("get /up: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestWSRejectsNonGet(t *testing.T) {
	srv := httptest.NewServer(NewHandler(&echoDispatcher{}))
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/ws", "text/plain", nil)
	if err != nil {
		t.Fatalf("post /ws: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestWSLineDispatchRoundTrip(t *testing.T) {
	dispatcher := &echoDispatcher{reply: "pong"}
	conn := dialWS(t, NewHandler(dispatcher), "")

	if err := websocket.Message.Send(conn, "warp home  north"); err != nil {
		t.Fatalf("send line: %v", err)
	}

	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	var got string
	if err := websocket.Message.Receive(conn, &got); err != nil {
		t.Fatalf("receive reply: %v", err)
	}
	if got != "pong" {
		t.Fatalf("expected reply frame, got %q", got)
	}

	lines := dispatcher.seen()
	if len(lines) != 1 || lines[0] != "warp home  north" {
		t.Fatalf("expected raw line handed to dispatcher, got %v", lines)
	}
}

func TestWSSkipsBlankLines(t *testing.T) {
	dispatcher := &echoDispatcher{reply: "pong"}
	conn := dialWS(t, NewHandler(dispatcher), "")

	if err := websocket.Message.Send(conn, "   "); err != nil {
		t.Fatalf("send blank line: %v", err)
	}
	if err := websocket.Message.Send(conn, "help"); err != nil {
		t.Fatalf("send line: %v", err)
	}

	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	var got string
	if err := websocket.Message.Receive(conn, &got); err != nil {
		t.Fatalf("receive reply: %v", err)
	}

	lines := dispatcher.seen()
	if len(lines) != 1 || lines[0] != "help" {
		t.Fatalf("expected blank line skipped, got %v", lines)
	}
}

func signTestToken(t *testing.T, secret, subject string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestWSRequiresTokenWhenVerifierConfigured(t *testing.T) {
	handler := NewHandlerWithVerifier(&echoDispatcher{}, newTokenVerifier("test-secret"))
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/ws")
	if err != nil {
		t.Fatalf("get /ws: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

func TestWSAcceptsValidTokenCookie(t *testing.T) {
	dispatcher := &echoDispatcher{reply: "ok"}
	handler := NewHandlerWithVerifier(dispatcher, newTokenVerifier("test-secret"))
	token := signTestToken(t, "test-secret", "op-1", time.Now().Add(time.Hour))

	conn := dialWS(t, handler, tokenCookieName+"="+token)
	if err := websocket.Message.Send(conn, "help"); err != nil {
		t.Fatalf("send line: %v", err)
	}

	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	var got string
	if err := websocket.Message.Receive(conn, &got); err != nil {
		t.Fatalf("receive reply: %v", err)
	}
	if got != "ok" {
		t.Fatalf("expected reply, got %q", got)
	}
}

func TestTokenVerifierRejectsExpired(t *testing.T) {
	verifier := newTokenVerifier("test-secret")
	token := signTestToken(t, "test-secret", "op-1", time.Now().Add(-time.Hour))
	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("expected expired token rejected")
	}
}

func TestTokenVerifierRejectsWrongSecret(t *testing.T) {
	verifier := newTokenVerifier("test-secret")
	token := signTestToken(t, "other-secret", "op-1", time.Now().Add(time.Hour))
	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("expected token with wrong secret rejected")
	}
}

func TestTokenVerifierRequiresSubject(t *testing.T) {
	verifier := newTokenVerifier("test-secret")
	token := signTestToken(t, "test-secret", "", time.Now().Add(time.Hour))
	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("expected token without subject rejected")
	}
}

func TestNewServerValidatesInputs(t *testing.T) {
	if _, err := NewServer(Config{HTTPAddr: ":0"}, nil); err == nil {
		t.Fatal("expected error for nil dispatcher")
	}
	if _, err := NewServer(Config{}, &echoDispatcher{}); err == nil {
		t.Fatal("expected error for missing address")
	}
}
