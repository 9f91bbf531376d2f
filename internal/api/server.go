// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rookery-social/rookery/internal/config"
	"github.com/rookery-social/rookery/internal/logging"
)

// Server runs the HTTP listener as a supervised service.
type Server struct {
	srv     *http.Server
	timeout time.Duration
}

// NewServer builds the HTTP server around the assembled router.
//
// Write timeout is intentionally absent: websocket connections on
// /api/v1/live/ws outlive any reasonable request deadline, and JSON
// handlers are bounded by the per-request context instead.
func NewServer(handler http.Handler, cfg config.ServerConfig) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		timeout: cfg.Timeout,
	}
}

// Serve listens until ctx is done, then drains in-flight requests.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.srv.Addr).Msg("http server listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("http shutdown incomplete, closing")
		_ = s.srv.Close()
	}
	<-errCh
	return ctx.Err()
}

// String names the service in supervisor logs.
func (s *Server) String() string { return "http-server" }
