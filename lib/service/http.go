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
)

const (
	defaultShutdownTimeout = 10 * time.Second
	httpHeaderTimeout      = 10 * time.Second
	httpIdleTimeout        = 60 * time.Second
)

// HTTPServer runs the JSON surface of a service on TCP. It owns the
// listener and drains requests on shutdown; routing belongs to the
// handler.
type HTTPServer struct {
	address         string
	handler         http.Handler
	logger          *slog.Logger
	shutdownTimeout time.Duration

	ready chan struct{}
	addr  net.Addr
}

// HTTPServerConfig configures an HTTPServer. Address, Handler, and
// Logger are required.
type HTTPServerConfig struct {
	// Address is the TCP listen address, e.g. "127.0.0.1:8440".
	Address string

	Handler http.Handler

	// ShutdownTimeout bounds the drain after cancellation. Zero means
	// ten seconds.
	ShutdownTimeout time.Duration

	// MaxBodySize caps each request body. Zero means
	// DefaultMaxRequestSize, the same bound the socket applies to an
	// upload.
	MaxBodySize int64

	Logger *slog.Logger
}

// NewHTTPServer panics on a missing required field; those are wiring
// bugs, not runtime conditions.
func NewHTTPServer(config HTTPServerConfig) *HTTPServer {
	switch {
	case config.Address == "":
		panic("service.HTTPServer: Address is required")
	case config.Handler == nil:
		panic("service.HTTPServer: Handler is required")
	case config.Logger == nil:
		panic("service.HTTPServer: Logger is required")
	}

	shutdownTimeout := config.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = defaultShutdownTimeout
	}
	maxBody := config.MaxBodySize
	if maxBody == 0 {
		maxBody = DefaultMaxRequestSize
	}

	return &HTTPServer{
		address:         config.Address,
		handler:         http.MaxBytesHandler(config.Handler, maxBody),
		logger:          config.Logger,
		shutdownTimeout: shutdownTimeout,
		ready:           make(chan struct{}),
	}
}

// Ready is closed once the listener is bound.
func (s *HTTPServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr is the bound address, valid after Ready. Tests listen on port 0
// and read the real port here.
func (s *HTTPServer) Addr() net.Addr {
	return s.addr
}

// Serve blocks until ctx is cancelled or the listener fails. After
// cancellation it stops accepting and waits up to the shutdown timeout
// for in-flight requests.
func (s *HTTPServer) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: httpHeaderTimeout,
		// Uploads carry whole evidence files, so bodies get the
		// socket's longer budget.
		ReadTimeout:  readTimeout,
		WriteTimeout: readTimeout,
		IdleTimeout:  httpIdleTimeout,
	}
	s.logger.Info("http server listening", "address", s.addr.String())

	failed := make(chan error, 1)
	go func() {
		err := server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		failed <- err
	}()

	select {
	case err := <-failed:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server draining", "timeout", s.shutdownTimeout)
	drainCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		s.logger.Error("http server shutdown failed", "error", err)
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}
