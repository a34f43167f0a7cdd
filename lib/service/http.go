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

// HTTPServer serves HTTP on a TCP listener. digestd uses it for the
// Prometheus scrape endpoint. Like SocketServer, Serve blocks until
// its context is cancelled and in-flight requests drain.
type HTTPServer struct {
	address         string
	handler         http.Handler
	logger          *slog.Logger
	shutdownTimeout time.Duration

	// ready is closed once the listener is bound; addr is valid from
	// then on.
	ready chan struct{}
	addr  net.Addr
}

// HTTPServerConfig configures an HTTPServer.
type HTTPServerConfig struct {
	// Address is the TCP listen address, e.g. "127.0.0.1:9464".
	// Port 0 picks a free port. Required.
	Address string

	// Handler serves every request. Required.
	Handler http.Handler

	// ShutdownTimeout bounds graceful shutdown. Zero means 5 seconds.
	ShutdownTimeout time.Duration

	// Logger is required.
	Logger *slog.Logger
}

// NewHTTPServer creates a server for config. Call Serve to listen.
func NewHTTPServer(config HTTPServerConfig) *HTTPServer {
	if config.Address == "" {
		panic("service.HTTPServer: Address is required")
	}
	if config.Handler == nil {
		panic("service.HTTPServer: Handler is required")
	}
	if config.Logger == nil {
		panic("service.HTTPServer: Logger is required")
	}

	timeout := config.ShutdownTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HTTPServer{
		address:         config.Address,
		handler:         config.Handler,
		logger:          config.Logger,
		shutdownTimeout: timeout,
		ready:           make(chan struct{}),
	}
}

// MetricsMux routes /metrics to metrics and answers /healthz with 200.
func MetricsMux(metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics)
	mux.HandleFunc("GET /healthz", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
	return mux
}

// Ready returns a channel that is closed once the server is bound.
func (s *HTTPServer) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the resolved listen address. Only valid after Ready()
// is closed.
func (s *HTTPServer) Addr() net.Addr {
	return s.addr
}

// Serve listens and serves until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *HTTPServer) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.address, err)
	}
	s.addr = listener.Addr()
	close(s.ready)

	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("http server listening", "address", s.addr.String())

	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(listener)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveDone:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http on %s: %w", s.addr, err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("http server shutdown error", "error", err)
		return fmt.Errorf("http server shutdown: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}
