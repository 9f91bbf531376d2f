// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package models

import "time"

// Lifecycle carries the shared soft-delete state for persisted entities.
// Records are never physically removed; deletion sets Deleted and
// DeletedAt and all read paths filter on IsDeleted.
type Lifecycle struct {
	Deleted   bool       `json:"deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the entity has been soft-deleted.
func (l Lifecycle) IsDeleted() bool {
	return l.Deleted
}

// MarkDeleted soft-deletes the entity at the given time.
func (l *Lifecycle) MarkDeleted(at time.Time) {
	l.Deleted = true
	l.DeletedAt = &at
}

// SoftDeletable is implemented by every entity embedding Lifecycle.
// Store scan helpers use it to filter deleted records uniformly.
type SoftDeletable interface {
	IsDeleted() bool
}
