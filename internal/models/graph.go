// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package models

import "time"

// RelationshipStatus is the follow status from a viewer to a target.
type RelationshipStatus string

const (
	// RelationshipSelf means the target is the viewer. Takes precedence
	// over any stored edge.
	RelationshipSelf RelationshipStatus = "self"

	// RelationshipNone means no non-deleted edge exists.
	RelationshipNone RelationshipStatus = "none"

	RelationshipPending  RelationshipStatus = "pending"
	RelationshipAccepted RelationshipStatus = "accepted"
	RelationshipRejected RelationshipStatus = "rejected"
)

// EdgeStatus is the stored state of a follow edge.
type EdgeStatus string

const (
	EdgeStatusPending  EdgeStatus = "pending"
	EdgeStatusAccepted EdgeStatus = "accepted"
	EdgeStatusRejected EdgeStatus = "rejected"
)

// RelationshipEdge is a follow request/acceptance between two users.
// Invariant: at most one non-deleted edge per ordered (follower,
// followee) pair; unfollow soft-deletes the edge.
type RelationshipEdge struct {
	FollowerID string     `json:"follower_id"`
	FolloweeID string     `json:"followee_id"`
	Status     EdgeStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lifecycle
}

// RelationshipStatusOf maps a stored edge status to the resolver's
// status code. A nil edge resolves to none.
func RelationshipStatusOf(edge *RelationshipEdge) RelationshipStatus {
	if edge == nil || edge.IsDeleted() {
		return RelationshipNone
	}
	switch edge.Status {
	case EdgeStatusPending:
		return RelationshipPending
	case EdgeStatusAccepted:
		return RelationshipAccepted
	case EdgeStatusRejected:
		return RelationshipRejected
	default:
		return RelationshipNone
	}
}

// BlockEdge records that blocker has blocked blocked. A non-deleted edge
// in either direction excludes the pair's content from each other's feed.
type BlockEdge struct {
	BlockerID string    `json:"blocker_id"`
	BlockedID string    `json:"blocked_id"`
	CreatedAt time.Time `json:"created_at"`

	Lifecycle
}
