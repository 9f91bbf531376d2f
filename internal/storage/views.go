// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/rookery-social/rookery/internal/models"
)

// ViewStore persists last-viewed timestamps per (viewer, content) pair.
type ViewStore struct {
	db *DB
}

// NewViewStore creates a view store over the shared DB.
func NewViewStore(db *DB) *ViewStore {
	return &ViewStore{db: db}
}

// Get loads the view record for a pair, or ErrNotFound.
func (s *ViewStore) Get(ctx context.Context, viewerID, contentID string) (*models.ViewRecord, error) {
	var record models.ViewRecord
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, viewKey(viewerID, contentID), &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// UpsertIfDue advances the pair's timestamp to now if no record exists
// or the existing record is older than the cooldown window, reporting
// whether the view was credited.
//
// The read and conditional write share one serializable transaction, so
// two concurrent views for the same pair cannot both credit: the loser
// hits a write conflict, retries, observes the fresh timestamp, and
// reports not credited.
func (s *ViewStore) UpsertIfDue(ctx context.Context, viewerID, contentID string, now time.Time, window time.Duration) (bool, error) {
	credited := false
	err := s.db.update(ctx, func(txn *badger.Txn) error {
		credited = false

		var record models.ViewRecord
		err := getJSON(txn, viewKey(viewerID, contentID), &record)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			// First view from this pair.
		case err != nil:
			return err
		case record.WithinCooldown(now, window):
			return nil
		}

		record = models.ViewRecord{
			ViewerID:     viewerID,
			ContentID:    contentID,
			LastViewedAt: now,
		}
		if err := setJSON(txn, viewKey(viewerID, contentID), &record); err != nil {
			return err
		}
		credited = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return credited, nil
}
