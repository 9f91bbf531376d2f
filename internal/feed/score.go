// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package feed

import (
	"math"
	"time"

	"github.com/rookery-social/rookery/internal/models"
)

// Weights are the engagement score multipliers.
type Weights struct {
	Like    float64
	Comment float64
	Share   float64

	// Recency scales the elapsed-time term. Note the term GROWS with
	// elapsed time; the composite deliberately preserves the upstream
	// product behavior pending clarification, so "freshest first" is
	// served by the chronological sort mode instead.
	Recency float64
}

// DefaultWeights matches the canonical ranking contract: 2 likes and
// 1 comment on fresh content must outrank empty 10-minute-old content.
func DefaultWeights() Weights {
	return Weights{Like: 2, Comment: 3, Share: 1, Recency: 0.2}
}

// engagementScore computes the ranking score for an item at time now:
//
//	score = like·L + comment·C + share·S + recency·ln(1 + ageMinutes)
//
// The logarithm keeps the elapsed-time term monotonically increasing
// while growing slowly enough that engaged content dominates stale
// empty content at feed-relevant ages.
func engagementScore(item *models.ContentItem, now time.Time, w Weights) float64 {
	score := w.Like*float64(item.LikeCount) +
		w.Comment*float64(item.CommentCount) +
		w.Share*float64(item.ShareCount)

	ageMinutes := now.Sub(item.CreatedAt).Minutes()
	if ageMinutes < 0 {
		ageMinutes = 0
	}
	return score + w.Recency*math.Log1p(ageMinutes)
}
