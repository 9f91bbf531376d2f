// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package api

import (
	"net/http"

	gorilla "github.com/gorilla/websocket"

	"github.com/rookery-social/rookery/internal/logging"
	"github.com/rookery-social/rookery/internal/websocket"
)

// wsGateway upgrades live engagement connections and hands them to the
// hub.
type wsGateway struct {
	handlers *Handlers
	upgrader gorilla.Upgrader
}

func newWSGateway(handlers *Handlers, allowedOrigins []string) *wsGateway {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return &wsGateway{
		handlers: handlers,
		upgrader: gorilla.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				origin := r.Header.Get("Origin")
				// Non-browser clients send no Origin; nothing to enforce.
				return origin == "" || allowed[origin]
			},
		},
	}
}

// serveWS handles GET /api/v1/live/ws?session_id=...&user_id=....
//
// The room handle is acquired before the upgrade so session errors
// (not found, ended, malformed IDs) still go out as JSON envelopes.
func (g *wsGateway) serveWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	userID := r.URL.Query().Get("user_id")

	conn, err := g.handlers.hub.Connect(r.Context(), sessionID, userID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		conn.Close()
		logging.Ctx(r.Context()).Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	websocket.NewClient(ws, conn, sessionID, userID).Run(r.Context())
}
