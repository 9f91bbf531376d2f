// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package feed

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// cursor marks the position of the last item of a returned page. It is
// opaque to clients: base64-encoded JSON of the sort position.
//
// Engagement scores include a recency term that changes as content
// ages, so the cursor also pins the clock the walk's first page was
// scored against; later pages rescore with that anchor and land on the
// exact cursor position instead of drifting past or behind it.
type cursor struct {
	Score     float64 `json:"s"`
	CreatedAt int64   `json:"c"` // unix nanoseconds
	ID        string  `json:"i"`
	Sort      Sort    `json:"o"`
	Anchor    int64   `json:"a,omitempty"` // scoring clock, unix nanoseconds
}

// encodeCursor serializes a cursor to its opaque wire form.
func encodeCursor(c cursor) string {
	data, err := json.Marshal(c)
	if err != nil {
		// cursor contains only scalars; marshal cannot fail in practice
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// decodeCursor parses an opaque cursor. A cursor minted under a
// different sort mode is rejected: resuming an engagement-ordered walk
// with a chronological cursor would skip or repeat items.
func decodeCursor(raw string, sort Sort) (*cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor: %w", err)
	}
	var c cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("malformed cursor: %w", err)
	}
	if c.Sort != sort {
		return nil, fmt.Errorf("cursor sort mode %q does not match request %q", c.Sort, sort)
	}
	if c.Sort == SortEngagement && c.Anchor <= 0 {
		return nil, fmt.Errorf("cursor is missing its scoring anchor")
	}
	return &c, nil
}

// after reports whether an item position sorts strictly after the
// cursor position, i.e. belongs to a later page.
func (c *cursor) after(score float64, createdAt time.Time, id string) bool {
	if c.Sort == SortEngagement {
		if score != c.Score {
			return score < c.Score
		}
	}
	if createdAt.UnixNano() != c.CreatedAt {
		return createdAt.UnixNano() < c.CreatedAt
	}
	return id > c.ID
}
