// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package models

import "time"

// ViewRecord tracks the last credited view of a content item by a
// viewer. Exactly one record exists per (viewer, content) pair; the
// timestamp advances on each credited view and is left untouched for
// views inside the cooldown window.
type ViewRecord struct {
	ViewerID     string    `json:"viewer_id"`
	ContentID    string    `json:"content_id"`
	LastViewedAt time.Time `json:"last_viewed_at"`
}

// WithinCooldown reports whether a view at 'now' falls inside the
// cooldown window following the last credited view.
func (v *ViewRecord) WithinCooldown(now time.Time, window time.Duration) bool {
	return now.Sub(v.LastViewedAt) < window
}
