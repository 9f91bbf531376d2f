// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

// Package views credits content views with per-pair cooldown
// deduplication. A (viewer, content) pair is credited at most once per
// cooldown window regardless of how many submissions race in.
package views

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rookery-social/rookery/internal/config"
	"github.com/rookery-social/rookery/internal/events"
	"github.com/rookery-social/rookery/internal/graph"
	"github.com/rookery-social/rookery/internal/logging"
	"github.com/rookery-social/rookery/internal/metrics"
	"github.com/rookery-social/rookery/internal/storage"
)

// ErrInvalidID indicates a malformed viewer or content identifier.
var ErrInvalidID = errors.New("views: invalid identifier")

// Deduplicator applies the cooldown rule to view submissions.
type Deduplicator struct {
	views   *storage.ViewStore
	content *storage.ContentStore
	bus     *events.Bus

	window  time.Duration
	nowFunc func() time.Time
}

// NewDeduplicator creates a deduplicator. bus may be nil; crediting
// then skips event publication.
func NewDeduplicator(views *storage.ViewStore, content *storage.ContentStore, bus *events.Bus, cfg config.ViewsConfig) *Deduplicator {
	return &Deduplicator{
		views:   views,
		content: content,
		bus:     bus,
		window:  cfg.CooldownWindow,
		nowFunc: time.Now,
	}
}

// RecordView submits one view and reports whether it was credited.
//
// Outcomes:
//   - credited: no prior view, or the prior view is older than the
//     cooldown window
//   - not credited, nil error: a view inside the window already exists;
//     repeat submissions are an expected client behavior, not a fault
//   - storage.ErrNotFound: the content does not exist or is deleted
//   - ErrInvalidID: malformed identifiers
//
// Crediting is atomic against concurrent submissions for the same pair;
// exactly one of two racing submissions credits.
func (d *Deduplicator) RecordView(ctx context.Context, viewerID, contentID string) (bool, error) {
	if !graph.ValidID(viewerID) || !graph.ValidID(contentID) {
		metrics.ViewsRecordedTotal.WithLabelValues("rejected").Inc()
		return false, fmt.Errorf("%w: viewer %q content %q", ErrInvalidID, viewerID, contentID)
	}

	item, err := d.content.Get(ctx, contentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.ViewsRecordedTotal.WithLabelValues("rejected").Inc()
		}
		return false, fmt.Errorf("record view: %w", err)
	}
	if item.IsDeleted() {
		metrics.ViewsRecordedTotal.WithLabelValues("rejected").Inc()
		return false, fmt.Errorf("record view: %w", storage.ErrNotFound)
	}

	now := d.nowFunc()
	credited, err := d.views.UpsertIfDue(ctx, viewerID, contentID, now, d.window)
	if err != nil {
		return false, fmt.Errorf("record view: %w", err)
	}

	if !credited {
		metrics.ViewsRecordedTotal.WithLabelValues("deduplicated").Inc()
		return false, nil
	}

	metrics.ViewsRecordedTotal.WithLabelValues("credited").Inc()
	logging.Ctx(ctx).Debug().
		Str("viewer_id", viewerID).
		Str("content_id", contentID).
		Msg("view credited")

	if d.bus != nil {
		d.bus.PublishViewCredited(ctx, events.ViewCredited{
			ViewerID:  viewerID,
			ContentID: contentID,
			At:        now,
		})
	}
	return true, nil
}

// LastViewedAt reports when the pair was last credited, or
// storage.ErrNotFound when it never was.
func (d *Deduplicator) LastViewedAt(ctx context.Context, viewerID, contentID string) (time.Time, error) {
	record, err := d.views.Get(ctx, viewerID, contentID)
	if err != nil {
		return time.Time{}, err
	}
	return record.LastViewedAt, nil
}
