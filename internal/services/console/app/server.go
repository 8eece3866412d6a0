// Package app hosts the operator console HTTP/WebSocket process.
//
// The console is a thin transport over the command dispatcher: every text
// frame a client sends is one raw command line, and every message a
// command owes the sender comes back as a text frame on the same
// connection. Registry and dispatch semantics are owned by the command
// package; this layer only authenticates connections and moves lines.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/stonegate/stonegate/internal/command"
	"github.com/stonegate/stonegate/internal/platform/timeouts"
)

// Config defines the inputs for the console transport boundary.
type Config struct {
	HTTPAddr          string
	TokenSecret       string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Dispatcher is the slice of the command manager the console needs.
type Dispatcher interface {
	ExecuteLine(ctx context.Context, sender command.Sender, line string) command.Outcome
}

// Server hosts the console HTTP/WebSocket process.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
}

// NewServer builds a console server around a dispatcher. When
// Config.TokenSecret is empty the websocket surface accepts anonymous
// connections; operators enable auth by configuring the secret.
func NewServer(config Config, dispatcher Dispatcher) (*Server, error) {
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	var handler http.Handler
	if secret := strings.TrimSpace(config.TokenSecret); secret != "" {
		handler = NewHandlerWithVerifier(dispatcher, newTokenVerifier(secret))
	} else {
		handler = NewHandler(dispatcher)
	}

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
	}, nil
}

// Run creates and serves a console server until the context ends.
func Run(ctx context.Context, config Config, dispatcher Dispatcher) error {
	server, err := NewServer(config, dispatcher)
	if err != nil {
		return fmt.Errorf("init console server: %w", err)
	}
	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve console: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("console server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("console: listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
