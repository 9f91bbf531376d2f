// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package models

import "time"

// ContentKind enumerates the supported content types.
type ContentKind string

const (
	ContentKindImage    ContentKind = "image"
	ContentKindVideo    ContentKind = "video"
	ContentKindText     ContentKind = "text"
	ContentKindCarousel ContentKind = "carousel"
	ContentKindPoll     ContentKind = "poll"
	ContentKindQuiz     ContentKind = "quiz"
	ContentKindReel     ContentKind = "reel"
)

// ValidContentKind reports whether k is a known content kind.
func ValidContentKind(k ContentKind) bool {
	switch k {
	case ContentKindImage, ContentKindVideo, ContentKindText,
		ContentKindCarousel, ContentKindPoll, ContentKindQuiz, ContentKindReel:
		return true
	}
	return false
}

// Visibility controls who may see a content item in the personalized feed.
type Visibility string

const (
	// VisibilityPublic items are visible to any viewer not blocked by the author.
	VisibilityPublic Visibility = "public"

	// VisibilityFollowers items require an accepted follow edge from the viewer.
	VisibilityFollowers Visibility = "followers"
)

// ContentItem is a single piece of user content. Engagement counters are
// derived aggregates maintained by the interaction layer; the feed core
// reads them but never writes them.
type ContentItem struct {
	ID       string      `json:"id"`
	AuthorID string      `json:"author_id"`
	TribeID  string      `json:"tribe_id,omitempty"`
	Kind     ContentKind `json:"kind"`

	Visibility Visibility `json:"visibility"`

	// Hashtags are lowercase, without the leading '#'.
	Hashtags []string `json:"hashtags,omitempty"`

	LikeCount    int64 `json:"like_count"`
	CommentCount int64 `json:"comment_count"`
	ShareCount   int64 `json:"share_count"`

	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"active"`

	Lifecycle
}

// UserProfile holds the denormalizable identity fields for a user.
// Profile writes are owned by the surrounding application; the core only
// reads profiles to attach author summaries to feed items.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`

	Lifecycle
}

// AuthorSummary is the projection attached to feed items for presentation.
type AuthorSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Summary projects a profile into the feed presentation shape.
func (p *UserProfile) Summary() AuthorSummary {
	return AuthorSummary{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
	}
}

// FeedItem is a scored, presentation-ready content item returned by the
// feed aggregator.
type FeedItem struct {
	Content ContentItem   `json:"content"`
	Author  AuthorSummary `json:"author"`

	// Score is the engagement score used for ranking. Zero in
	// chronological mode.
	Score float64 `json:"score"`
}
