// Copyright 2026 The ChatDSJ Authors
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
)

// DefaultShutdownTimeout bounds the drain of in-flight requests when
// HTTPServerConfig.ShutdownTimeout is zero. A /slack/events request
// returns as soon as the event is queued, so only /test-completion
// is ever slow.
const DefaultShutdownTimeout = 10 * time.Second

// HTTPServer is the bot's public listener: the Slack Events API
// webhook, /healthz, /stats, and /test-completion. Routing and Slack
// signature checks live in the handler; HTTPServer owns the listener
// and the drain on shutdown.
type HTTPServer struct {
	address         string
	handler         http.Handler
	shutdownTimeout time.Duration
	logger          *slog.Logger

	// bound is closed once listenAddress is set.
	bound         chan struct{}
	listenAddress net.Addr
}

// HTTPServerConfig configures an HTTPServer.
type HTTPServerConfig struct {
	// Address is the TCP listen address from http.address, e.g.
	// ":3000". Port 0 picks a free port; see Addr. Required.
	Address string

	// Handler serves every route. Required.
	Handler http.Handler

	// ShutdownTimeout is http.shutdown_timeout. Zero uses
	// DefaultShutdownTimeout.
	ShutdownTimeout time.Duration

	// Logger is required.
	Logger *slog.Logger
}

// NewHTTPServer creates a server for config. Panics on a missing
// required field.
func NewHTTPServer(config HTTPServerConfig) *HTTPServer {
	switch {
	case config.Address == "":
		panic("service.HTTPServer: Address is required")
	case config.Handler == nil:
		panic("service.HTTPServer: Handler is required")
	case config.Logger == nil:
		panic("service.HTTPServer: Logger is required")
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &HTTPServer{
		address:         config.Address,
		handler:         config.Handler,
		shutdownTimeout: config.ShutdownTimeout,
		logger:          config.Logger,
		bound:           make(chan struct{}),
	}
}

// Ready is closed once the listener is bound. Slack retries deliveries
// that fail, so the bot logs readiness only after this point.
func (s *HTTPServer) Ready() <-chan struct{} {
	return s.bound
}

// Addr is the bound address, with the real port when Address used
// port 0. Valid once Ready is closed.
func (s *HTTPServer) Addr() net.Addr {
	return s.listenAddress
}

// Serve listens and serves until ctx is cancelled, then stops
// accepting and gives in-flight requests up to the shutdown timeout.
// It returns nil after a clean drain.
func (s *HTTPServer) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.address, err)
	}
	s.listenAddress = listener.Addr()
	close(s.bound)

	server := &http.Server{
		Handler: s.handler,
		// Slack event payloads are small. The write timeout covers
		// /test-completion, which waits on a full completion with
		// retries.
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	served := make(chan error, 1)
	go func() {
		served <- server.Serve(listener)
	}()
	s.logger.Info("http server listening", "address", s.listenAddress.String())

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("http server draining", "timeout", s.shutdownTimeout)
	drainCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		s.logger.Error("http server drain incomplete", "error", err)
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
