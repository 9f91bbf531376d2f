// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

// Package api exposes the HTTP and websocket surface: feed pages,
// relationship resolution, view crediting, and live session control.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rookery-social/rookery/internal/config"
)

// NewRouter assembles the full route tree and middleware stack.
func NewRouter(handlers *Handlers, cfg config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(recoverer)
	r.Use(instrument)

	if len(cfg.Security.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Security.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", viewerHeader, requestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	ws := newWSGateway(handlers, cfg.Security.CORSOrigins)

	r.Route("/api/v1", func(r chi.Router) {
		if !cfg.Security.RateLimitDisabled {
			r.Use(httprate.LimitByIP(cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow))
		}

		r.Get("/feed", handlers.getFeed)
		r.Post("/relationships/status", handlers.relationshipStatus)
		r.Post("/views", handlers.recordView)

		r.Route("/live", func(r chi.Router) {
			r.Post("/sessions", handlers.createSession)
			r.Get("/sessions/{sessionID}", handlers.getSession)
			r.Post("/sessions/{sessionID}/end", handlers.endSession)
			r.Get("/ws", ws.serveWS)
		})
	})

	return r
}
