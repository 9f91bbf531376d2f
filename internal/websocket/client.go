// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

// Package websocket bridges gorilla websocket connections onto live
// room subscriptions. Each connection runs a read pump decoding client
// frames into room commands and a write pump streaming room broadcasts
// back out, with ping/pong keepalive.
package websocket

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rookery-social/rookery/internal/live"
	"github.com/rookery-social/rookery/internal/logging"
)

const (
	// writeWait bounds each outbound write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before the read
	// pump gives up on it.
	pongWait = 60 * time.Second

	// pingPeriod must be below pongWait so pings arrive in time.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound frames; chat text is capped far
	// lower by the room itself.
	maxMessageSize = 4096
)

// Inbound frame types accepted from clients.
const (
	frameJoin = "join"
	frameChat = "chat"
	frameLike = "like"
)

// inboundFrame is one client -> server frame.
type inboundFrame struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Client is one websocket connection bound to a live room subscription.
type Client struct {
	ws   *websocket.Conn
	conn *live.Conn
	log  zerolog.Logger
}

// NewClient wraps an upgraded connection and its room handle.
func NewClient(ws *websocket.Conn, conn *live.Conn, sessionID, userID string) *Client {
	return &Client{
		ws:   ws,
		conn: conn,
		log: logging.WithComponent("websocket").With().
			Str("session_id", sessionID).
			Str("user_id", userID).
			Logger(),
	}
}

// Run services the connection until the client disconnects, the room
// subscription closes, or ctx is done. It always detaches the room
// handle and closes the socket before returning.
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.conn.Close()
	defer c.ws.Close()

	go c.writePump(ctx, cancel)
	c.readPump(ctx)
}

// readPump decodes inbound frames and forwards them to the room. It
// exits on any read error, which covers client disconnects and missed
// pongs.
func (c *Client) readPump(ctx context.Context) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("unexpected close")
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.log.Debug().Err(err).Msg("unreadable frame")
			continue
		}

		if err := c.dispatch(ctx, frame); err != nil {
			// The room rejected the command because it stopped; the
			// write pump delivers the ended frame and shuts us down.
			return
		}
	}
}

func (c *Client) dispatch(ctx context.Context, frame inboundFrame) error {
	switch frame.Type {
	case frameJoin:
		return c.conn.Join(ctx)
	case frameChat:
		return c.conn.Chat(ctx, frame.Text)
	case frameLike:
		return c.conn.Like(ctx)
	default:
		c.log.Debug().Str("type", frame.Type).Msg("unknown frame type")
		return nil
	}
}

// writePump streams room frames to the client and keeps the connection
// alive with pings. When the subscription channel closes it sends a
// close frame and cancels the read pump.
func (c *Client) writePump(ctx context.Context, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-c.conn.Recv():
			if !ok {
				_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := c.writeJSON(msg); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.log.Debug().Err(err).Msg("write failed")
				}
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeJSON(msg live.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}
