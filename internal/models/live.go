// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package models

import "time"

// LiveSession is one live broadcast. The only state transition is
// active -> ended; ended is terminal and EndedAt is set exactly once.
type LiveSession struct {
	ID         string     `json:"id"`
	StreamerID string     `json:"streamer_id"`
	Active     bool       `json:"active"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

// Ended reports whether the session has reached its terminal state.
func (s *LiveSession) Ended() bool {
	return !s.Active
}

// LiveMember records that a user joined a live session. Membership is
// persisted so the distinct viewer count survives reconnects; joining
// twice upserts the same record.
type LiveMember struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	JoinedAt  time.Time `json:"joined_at"`
}

// LiveLikeEdge records that a user liked a live session. At most one
// edge exists per (session, user); the like count is always derived by
// counting edges, never maintained as a separate mutable counter.
type LiveLikeEdge struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LiveChatMessage is one chat line in a live session. Messages are
// append-only and ordered by the time the hub accepted them, not by any
// client-supplied timestamp.
type LiveChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
