package app

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/net/websocket"
)

const (
	tokenCookieName = "sg_token"
	tokenQueryParam = "access_token"

	maxLineBytes           = 4 * 1024
	maxDecodeErrorsPerConn = 3

	anonymousOperator = "operator"
)

// wsOperatorContextKey carries the authenticated operator id on the
// upgrade request context.
type wsOperatorContextKey struct{}

// NewHandler creates console routes for tests and offline paths.
// WebSocket auth is intentionally disabled in this constructor.
func NewHandler(dispatcher Dispatcher) http.Handler {
	return newHandler(dispatcher, nil)
}

// NewHandlerWithVerifier creates console routes with enforced websocket
// identity checks.
func NewHandlerWithVerifier(dispatcher Dispatcher, verifier tokenVerifier) http.Handler {
	return newHandler(dispatcher, verifier)
}

func newHandler(dispatcher Dispatcher, verifier tokenVerifier) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleConsoleConn(conn, dispatcher)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if verifier != nil {
			token := accessTokenFromRequest(r)
			if token == "" {
				log.Printf("console: websocket unauthorized: missing token host=%q remote=%s", r.Host, r.RemoteAddr)
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			operatorID, err := verifier.Verify(token)
			if err != nil || strings.TrimSpace(operatorID) == "" {
				if err != nil {
					log.Printf("console: websocket unauthorized: token rejected host=%q remote=%s err=%v", r.Host, r.RemoteAddr, err)
				} else {
					log.Printf("console: websocket unauthorized: empty operator id host=%q remote=%s", r.Host, r.RemoteAddr)
				}
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), wsOperatorContextKey{}, strings.TrimSpace(operatorID))
			r = r.WithContext(ctx)
		}

		wsHandler.ServeHTTP(w, r)
	})

	return mux
}

func accessTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if cookie, err := r.Cookie(tokenCookieName); err == nil {
		if token := strings.TrimSpace(cookie.Value); token != "" {
			return token
		}
	}
	return strings.TrimSpace(r.URL.Query().Get(tokenQueryParam))
}

// wsSender delivers command feedback as text frames. Send failures are
// logged and dropped; delivery is fire-and-forget for the dispatcher.
type wsSender struct {
	mu         sync.Mutex
	conn       *websocket.Conn
	operatorID string
}

func (s *wsSender) SendMessage(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := websocket.Message.Send(s.conn, text); err != nil {
		log.Printf("console: send message failed operator=%q: %v", s.operatorID, err)
	}
}

func handleConsoleConn(conn *websocket.Conn, dispatcher Dispatcher) {
	defer func() {
		_ = conn.Close()
	}()

	conn.MaxPayloadBytes = maxLineBytes

	ctx := context.Background()
	operatorID := anonymousOperator
	remote := "unknown"
	if request := conn.Request(); request != nil {
		ctx = request.Context()
		remote = request.RemoteAddr
		if resolved, ok := request.Context().Value(wsOperatorContextKey{}).(string); ok && resolved != "" {
			operatorID = resolved
		}
	}
	sender := &wsSender{conn: conn, operatorID: operatorID}

	log.Printf("console: session opened operator=%q remote=%s", operatorID, remote)
	decodeErrors := 0

	for {
		var line string
		if err := websocket.Message.Receive(conn, &line); err != nil {
			if errors.Is(err, io.EOF) {
				log.Printf("console: session closed operator=%q", operatorID)
				return
			}
			decodeErrors++
			if decodeErrors >= maxDecodeErrorsPerConn {
				log.Printf("console: dropping session after repeated receive errors operator=%q: %v", operatorID, err)
				return
			}
			continue
		}
		decodeErrors = 0

		if strings.TrimSpace(line) == "" {
			continue
		}
		dispatcher.ExecuteLine(ctx, sender, line)
	}
}
