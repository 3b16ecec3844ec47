// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bureau-foundation/dnaledger/lib/ledger"
)

// defaultShutdownTimeout bounds how long Serve waits for in-flight
// requests once its context is cancelled.
const defaultShutdownTimeout = 10 * time.Second

// ServerConfig configures a Server.
type ServerConfig struct {
	// Address is the TCP listen address, for example
	// "127.0.0.1:8420" or "127.0.0.1:0". Required.
	Address string

	// Ledger answers the requests. Required.
	Ledger ledger.Client

	// ShutdownTimeout defaults to 10 seconds.
	ShutdownTimeout time.Duration

	// Logger receives lifecycle and access records. Required.
	Logger *slog.Logger
}

// Server exposes a ledger client with the ledger HTTP protocol. It is
// what "dnaledger serve" runs: every request is logged, handler panics
// become 500 responses, and Serve returns only after in-flight
// requests drain.
type Server struct {
	address         string
	handler         http.Handler
	logger          *slog.Logger
	shutdownTimeout time.Duration

	// ready is closed once the listener is bound; addr is valid
	// after that.
	ready chan struct{}
	addr  net.Addr
}

// NewServer validates config and builds the request pipeline.
func NewServer(config ServerConfig) (*Server, error) {
	switch {
	case config.Address == "":
		return nil, errors.New("service: server address is required")
	case config.Ledger == nil:
		return nil, errors.New("service: server ledger is required")
	case config.Logger == nil:
		return nil, errors.New("service: server logger is required")
	}
	timeout := config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(accessLog(config.Logger))
	router.Use(middleware.Recoverer)
	router.Mount("/", ledger.NewHandler(config.Ledger, config.Logger))

	return &Server{
		address:         config.Address,
		handler:         router,
		logger:          config.Logger,
		shutdownTimeout: timeout,
		ready:           make(chan struct{}),
	}, nil
}

// Handler returns the request pipeline without binding a listener.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Ready is closed once the server accepts connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address. Only valid after Ready is closed.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Serve listens and serves until ctx is cancelled, then stops
// accepting connections and waits up to the shutdown timeout for
// active requests.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	server := &http.Server{
		Handler: s.handler,

		// Entry bodies are capped by the ledger handler, so these
		// only guard against stalled peers.
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.logger.Info("ledger server listening", "address", s.addr.String())

	failed := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
		close(failed)
	}()

	select {
	case <-ctx.Done():
	case err := <-failed:
		return fmt.Errorf("serving ledger: %w", err)
	}

	s.logger.Info("ledger server draining", "timeout", s.shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("draining ledger server: %w", err)
	}
	s.logger.Info("ledger server stopped")
	return nil
}

// accessLog records one line per request. Health checks log at debug.
func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)

			level := slog.LevelInfo
			if r.URL.Path == "/health" {
				level = slog.LevelDebug
			}
			logger.Log(r.Context(), level, "ledger request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.Status(),
				"bytes", wrapped.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
