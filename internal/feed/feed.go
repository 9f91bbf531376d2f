// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

// Package feed builds ranked, paginated content feeds.
//
// Aggregation is a read-time pipeline: candidate selection, block and
// visibility filtering, scoring, deterministic ordering, cursor
// pagination, then author summary projection. Nothing is precomputed;
// every page reflects the store at request time.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rookery-social/rookery/internal/cache"
	"github.com/rookery-social/rookery/internal/config"
	"github.com/rookery-social/rookery/internal/graph"
	"github.com/rookery-social/rookery/internal/logging"
	"github.com/rookery-social/rookery/internal/models"
	"github.com/rookery-social/rookery/internal/storage"
)

// Filter selects the candidate universe for a feed request.
type Filter string

const (
	FilterGlobal       Filter = "global"
	FilterTribe        Filter = "tribe"
	FilterHashtag      Filter = "hashtag"
	FilterPersonalized Filter = "personalized"
)

// Sort selects the ordering applied to filtered candidates.
type Sort string

const (
	SortEngagement    Sort = "engagement"
	SortChronological Sort = "chronological"
)

// ErrBadQuery indicates a query that cannot be executed as stated:
// unknown filter or sort, a tribe filter without a tribe, a hashtag
// filter without a hashtag, or an unusable cursor.
var ErrBadQuery = errors.New("feed: invalid query")

// Query describes one feed page request.
type Query struct {
	Filter  Filter
	TribeID string
	Hashtag string
	Sort    Sort
	Limit   int
	Cursor  string
}

// Page is one feed page. NextCursor is empty when the walk is exhausted.
type Page struct {
	Items      []models.FeedItem `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// Aggregator builds feed pages from the content store, the relationship
// resolver, and the profile store.
type Aggregator struct {
	content  *storage.ContentStore
	profiles *storage.ProfileStore
	resolver *graph.Resolver

	authors *cache.LRU[models.AuthorSummary]
	weights Weights
	cfg     config.FeedConfig

	nowFunc func() time.Time
}

// NewAggregator creates a feed aggregator.
func NewAggregator(content *storage.ContentStore, profiles *storage.ProfileStore, resolver *graph.Resolver, cfg config.FeedConfig) *Aggregator {
	return &Aggregator{
		content:  content,
		profiles: profiles,
		resolver: resolver,
		authors:  cache.NewLRU[models.AuthorSummary](cfg.AuthorCacheSize, cfg.AuthorCacheTTL),
		weights: Weights{
			Like:    cfg.LikeWeight,
			Comment: cfg.CommentWeight,
			Share:   cfg.ShareWeight,
			Recency: cfg.RecencyWeight,
		},
		cfg:     cfg,
		nowFunc: time.Now,
	}
}

// GetFeed builds one feed page for the viewer.
//
// A viewer with a malformed or empty ID receives an empty page rather
// than an error; there is nothing to resolve relationships against, and
// without block filtering no content may be shown.
func (a *Aggregator) GetFeed(ctx context.Context, viewerID string, query Query) (*Page, error) {
	query, cur, err := a.normalize(query)
	if err != nil {
		return nil, err
	}

	if !graph.ValidID(viewerID) {
		logging.Ctx(ctx).Debug().Str("viewer_id", viewerID).Msg("feed request with unusable viewer id")
		return &Page{Items: []models.FeedItem{}}, nil
	}

	candidates, err := a.candidates(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("feed candidates (%s): %w", query.Filter, err)
	}

	candidates, err = a.filterBlocked(ctx, viewerID, candidates)
	if err != nil {
		return nil, err
	}

	if query.Filter == FilterPersonalized {
		candidates, err = a.filterVisibility(ctx, viewerID, candidates)
		if err != nil {
			return nil, err
		}
	}

	// A resumed walk scores against the clock of its first page (carried
	// in the cursor) so positions line up exactly across pages.
	anchor := a.nowFunc()
	if cur != nil && cur.Anchor > 0 {
		anchor = time.Unix(0, cur.Anchor)
	}

	scored := a.score(candidates, query.Sort, anchor)
	a.order(scored, query.Sort)
	page, last := paginate(scored, cur, query.Limit)

	items, err := a.project(ctx, page, query.Sort)
	if err != nil {
		return nil, err
	}

	result := &Page{Items: items}
	if last != nil && len(items) == query.Limit {
		result.NextCursor = encodeCursor(cursor{
			Score:     last.score,
			CreatedAt: last.item.CreatedAt.UnixNano(),
			ID:        last.item.ID,
			Sort:      query.Sort,
			Anchor:    anchor.UnixNano(),
		})
	}
	return result, nil
}

// normalize fills defaults, validates the query shape, and decodes the
// cursor. The returned query always has a usable Filter, Sort, and Limit.
func (a *Aggregator) normalize(query Query) (Query, *cursor, error) {
	if query.Filter == "" {
		query.Filter = FilterGlobal
	}
	if query.Sort == "" {
		query.Sort = SortEngagement
	}

	switch query.Filter {
	case FilterGlobal, FilterPersonalized:
	case FilterTribe:
		if query.TribeID == "" {
			return query, nil, fmt.Errorf("%w: tribe filter requires a tribe id", ErrBadQuery)
		}
	case FilterHashtag:
		if query.Hashtag == "" {
			return query, nil, fmt.Errorf("%w: hashtag filter requires a hashtag", ErrBadQuery)
		}
	default:
		return query, nil, fmt.Errorf("%w: unknown filter %q", ErrBadQuery, query.Filter)
	}

	switch query.Sort {
	case SortEngagement, SortChronological:
	default:
		return query, nil, fmt.Errorf("%w: unknown sort %q", ErrBadQuery, query.Sort)
	}

	if query.Limit <= 0 {
		query.Limit = a.cfg.DefaultPageSize
	}
	if query.Limit > a.cfg.MaxPageSize {
		query.Limit = a.cfg.MaxPageSize
	}

	var cur *cursor
	if query.Cursor != "" {
		var err error
		cur, err = decodeCursor(query.Cursor, query.Sort)
		if err != nil {
			return query, nil, fmt.Errorf("%w: %s", ErrBadQuery, err)
		}
	}
	return query, cur, nil
}

// candidates pulls the raw candidate set for the query's filter. The
// personalized filter draws from the global pool; visibility filtering
// narrows it afterwards.
func (a *Aggregator) candidates(ctx context.Context, query Query) ([]models.ContentItem, error) {
	limit := a.cfg.CandidateLimit
	switch query.Filter {
	case FilterTribe:
		return a.content.ListByTribe(ctx, query.TribeID, limit)
	case FilterHashtag:
		return a.content.ListByHashtag(ctx, query.Hashtag, limit)
	default:
		return a.content.ListGlobal(ctx, limit)
	}
}

// filterBlocked drops items whose author is blocked by, or blocks, the
// viewer. This runs before scoring and pagination so blocked authors
// never occupy page slots.
func (a *Aggregator) filterBlocked(ctx context.Context, viewerID string, items []models.ContentItem) ([]models.ContentItem, error) {
	blocked, err := a.resolver.BlockedSet(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if len(blocked) == 0 {
		return items, nil
	}

	kept := items[:0]
	for _, item := range items {
		if blocked[item.AuthorID] {
			continue
		}
		kept = append(kept, item)
	}
	return kept, nil
}

// filterVisibility keeps items the viewer may see in personalized mode:
// the viewer's own items, public items, and followers-only items from
// authors with an accepted follow edge.
func (a *Aggregator) filterVisibility(ctx context.Context, viewerID string, items []models.ContentItem) ([]models.ContentItem, error) {
	authorIDs := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !seen[item.AuthorID] {
			seen[item.AuthorID] = true
			authorIDs = append(authorIDs, item.AuthorID)
		}
	}

	statuses, err := a.resolver.Resolve(ctx, viewerID, authorIDs)
	if err != nil {
		return nil, err
	}

	kept := items[:0]
	for _, item := range items {
		status := statuses[item.AuthorID]
		if status == models.RelationshipSelf {
			kept = append(kept, item)
			continue
		}
		switch item.Visibility {
		case models.VisibilityPublic:
			kept = append(kept, item)
		case models.VisibilityFollowers:
			if status == models.RelationshipAccepted {
				kept = append(kept, item)
			}
		}
	}
	return kept, nil
}

// scoredItem pairs a candidate with its ranking score.
type scoredItem struct {
	item  models.ContentItem
	score float64
}

func (a *Aggregator) score(items []models.ContentItem, sortMode Sort, now time.Time) []scoredItem {
	scored := make([]scoredItem, len(items))
	for i := range items {
		scored[i].item = items[i]
		if sortMode == SortEngagement {
			scored[i].score = engagementScore(&items[i], now, a.weights)
		}
	}
	return scored
}

// order sorts candidates into the deterministic feed order: score
// descending in engagement mode, then createdAt descending, then ID
// ascending as the final tiebreak. The full ordering is total, which is
// what makes cursors stable between pages.
func (a *Aggregator) order(scored []scoredItem, sortMode Sort) {
	sort.SliceStable(scored, func(i, j int) bool {
		if sortMode == SortEngagement && scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		ti, tj := scored[i].item.CreatedAt, scored[j].item.CreatedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return scored[i].item.ID < scored[j].item.ID
	})
}

// paginate returns the page after the cursor position (or the first
// page when cur is nil) plus the last included element for minting the
// next cursor.
func paginate(scored []scoredItem, cur *cursor, limit int) ([]scoredItem, *scoredItem) {
	start := 0
	if cur != nil {
		for start < len(scored) {
			s := scored[start]
			if cur.after(s.score, s.item.CreatedAt, s.item.ID) {
				break
			}
			start++
		}
	}

	end := start + limit
	if end > len(scored) {
		end = len(scored)
	}
	page := scored[start:end]
	if len(page) == 0 {
		return page, nil
	}
	return page, &page[len(page)-1]
}

// project attaches author summaries to the page. Profiles are read
// through the LRU cache; cache misses are batch-fetched in one store
// round trip. Items whose author profile is missing or deleted get a
// placeholder summary instead of being dropped, so pagination stays
// consistent with the ordering pass.
func (a *Aggregator) project(ctx context.Context, page []scoredItem, sortMode Sort) ([]models.FeedItem, error) {
	missing := make([]string, 0, len(page))
	seen := make(map[string]bool, len(page))
	for _, s := range page {
		id := s.item.AuthorID
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := a.authors.Get(id); !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		profiles, err := a.profiles.GetBatch(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("feed author profiles: %w", err)
		}
		for id, profile := range profiles {
			a.authors.Add(id, profile.Summary())
		}
	}

	items := make([]models.FeedItem, 0, len(page))
	for _, s := range page {
		author, ok := a.authors.Get(s.item.AuthorID)
		if !ok {
			author = models.AuthorSummary{ID: s.item.AuthorID, DisplayName: "Unknown"}
		}
		fi := models.FeedItem{Content: s.item, Author: author}
		if sortMode == SortEngagement {
			fi.Score = s.score
		}
		items = append(items, fi)
	}
	return items, nil
}
