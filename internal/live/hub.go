// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

// Package live runs real-time engagement rooms for live sessions.
//
// Each active session with attached viewers gets one room actor
// goroutine owning all of the session's real-time state transitions.
// Commands arrive on a channel and are applied strictly in arrival
// order, so two racing likes or a chat racing a session end resolve
// deterministically without locks. Counts broadcast to viewers are
// always re-derived from persisted edges, never incremented in memory.
package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rookery-social/rookery/internal/config"
	"github.com/rookery-social/rookery/internal/events"
	"github.com/rookery-social/rookery/internal/graph"
	"github.com/rookery-social/rookery/internal/logging"
	"github.com/rookery-social/rookery/internal/models"
	"github.com/rookery-social/rookery/internal/storage"
)

// ErrInvalidID indicates a malformed user or session identifier.
var ErrInvalidID = errors.New("live: invalid identifier")

// Snapshot is the read-model of one session: its record plus derived
// engagement counts.
type Snapshot struct {
	Session     models.LiveSession `json:"session"`
	ViewerCount int64              `json:"viewer_count"`
	LikeCount   int64              `json:"like_count"`
}

// Hub manages the room actors and is the single entry point for live
// session operations.
type Hub struct {
	store *storage.LiveStore
	bus   *events.Bus
	cfg   config.LiveConfig

	mu    sync.Mutex
	rooms map[string]*room

	// runCtx parents every room actor; canceled on shutdown.
	runCtx    context.Context
	runCancel context.CancelFunc
}

// NewHub creates a hub. Rooms spawned before Serve runs are parented to
// the background context.
func NewHub(store *storage.LiveStore, bus *events.Bus, cfg config.LiveConfig) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		store:     store,
		bus:       bus,
		cfg:       cfg,
		rooms:     make(map[string]*room),
		runCtx:    ctx,
		runCancel: cancel,
	}
}

// Serve runs the hub under the supervision tree until ctx is done, then
// stops every room.
func (h *Hub) Serve(ctx context.Context) error {
	<-ctx.Done()
	h.runCancel()
	return ctx.Err()
}

// String names the service in supervisor logs.
func (h *Hub) String() string { return "live-hub" }

// CreateSession starts a new live session for a streamer.
func (h *Hub) CreateSession(ctx context.Context, streamerID string) (*models.LiveSession, error) {
	if !graph.ValidID(streamerID) {
		return nil, fmt.Errorf("%w: streamer %q", ErrInvalidID, streamerID)
	}

	session := &models.LiveSession{
		ID:         uuid.NewString(),
		StreamerID: streamerID,
		Active:     true,
		StartedAt:  time.Now(),
	}
	if err := h.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	logging.Ctx(ctx).Info().
		Str("session_id", session.ID).
		Str("streamer_id", streamerID).
		Msg("live session created")
	return session, nil
}

// Snapshot returns a session with its current derived counts.
func (h *Hub) Snapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	if !graph.ValidID(sessionID) {
		return nil, fmt.Errorf("%w: session %q", ErrInvalidID, sessionID)
	}

	session, err := h.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	viewers, err := h.store.CountMembers(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	likes, err := h.store.CountLikes(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Session: *session, ViewerCount: viewers, LikeCount: likes}, nil
}

// EndSession performs the terminal active -> ended transition.
//
// When a room is running the end flows through its command channel so
// in-flight chat and likes ahead of it still apply and every subscriber
// sees the ended frame. Ending an already-ended session returns
// storage.ErrSessionEnded.
func (h *Hub) EndSession(ctx context.Context, sessionID string) error {
	if !graph.ValidID(sessionID) {
		return fmt.Errorf("%w: session %q", ErrInvalidID, sessionID)
	}

	h.mu.Lock()
	r := h.rooms[sessionID]
	h.mu.Unlock()

	if r != nil {
		err := r.sendWait(ctx, command{kind: cmdEnd})
		// A room that stopped between lookup and send reports ended;
		// fall through and settle against the store directly.
		if err == nil || !errors.Is(err, storage.ErrSessionEnded) {
			return err
		}
	}

	now := time.Now()
	if err := h.store.EndSession(ctx, sessionID, now); err != nil {
		return err
	}
	if h.bus != nil {
		session, err := h.store.GetSession(ctx, sessionID)
		hostID := ""
		if err == nil {
			hostID = session.StreamerID
		}
		h.bus.PublishLiveEnded(ctx, events.LiveEnded{SessionID: sessionID, HostID: hostID, At: now})
	}
	logging.Ctx(ctx).Info().Str("session_id", sessionID).Msg("live session ended")
	return nil
}

// Conn is one attached viewer's handle on a room.
type Conn struct {
	room *room
	sub  *Subscriber
}

// Connect attaches a viewer to a session's room, starting the room if
// none is running. Attaching to an ended session fails with
// storage.ErrSessionEnded; missing sessions with storage.ErrNotFound.
func (h *Hub) Connect(ctx context.Context, sessionID, userID string) (*Conn, error) {
	if !graph.ValidID(sessionID) || !graph.ValidID(userID) {
		return nil, fmt.Errorf("%w: session %q user %q", ErrInvalidID, sessionID, userID)
	}

	session, err := h.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Ended() {
		return nil, storage.ErrSessionEnded
	}

	sub := &Subscriber{
		UserID: userID,
		Out:    make(chan Message, h.cfg.ClientBuffer),
	}

	// The room may stop between acquiring it and enqueuing the
	// subscribe (last viewer left, session ended). One retry gets a
	// fresh room; a second failure means the session really ended.
	for attempt := 0; attempt < 2; attempt++ {
		r := h.roomFor(session)
		if err := r.send(ctx, command{kind: cmdSubscribe, sub: sub}); err != nil {
			if errors.Is(err, storage.ErrSessionEnded) && attempt == 0 {
				continue
			}
			return nil, err
		}
		return &Conn{room: r, sub: sub}, nil
	}
	return nil, storage.ErrSessionEnded
}

// roomFor returns the running room for a session, spawning one if
// needed.
func (h *Hub) roomFor(session *models.LiveSession) *room {
	h.mu.Lock()
	defer h.mu.Unlock()

	if r, ok := h.rooms[session.ID]; ok {
		select {
		case <-r.stopped:
			// Replaced below.
		default:
			return r
		}
	}

	r := newRoom(session, h.store, h.bus, h.cfg)
	h.rooms[session.ID] = r
	go r.run(h.runCtx, func() { h.removeRoom(session.ID, r) })
	return r
}

func (h *Hub) removeRoom(sessionID string, r *room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[sessionID] == r {
		delete(h.rooms, sessionID)
	}
}

// Recv returns the subscriber's frame channel. It closes on detach,
// session end, or when the subscriber falls behind.
func (c *Conn) Recv() <-chan Message { return c.sub.Out }

// Join records the viewer as a session member.
func (c *Conn) Join(ctx context.Context) error {
	return c.room.send(ctx, command{kind: cmdJoin, sub: c.sub})
}

// Chat submits a chat message.
func (c *Conn) Chat(ctx context.Context, text string) error {
	return c.room.send(ctx, command{kind: cmdChat, sub: c.sub, text: text})
}

// Like submits a like.
func (c *Conn) Like(ctx context.Context) error {
	return c.room.send(ctx, command{kind: cmdLike, sub: c.sub})
}

// Close detaches the viewer from the room.
func (c *Conn) Close() {
	// Best effort; a stopped room already closed the channel.
	_ = c.room.send(context.Background(), command{kind: cmdUnsubscribe, sub: c.sub})
}
