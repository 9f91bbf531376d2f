// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package storage

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/rookery-social/rookery/internal/models"
)

// ProfileStore persists user profiles. Profile writes are owned by the
// surrounding application; the core reads them to project author
// summaries onto feed items.
type ProfileStore struct {
	db *DB
}

// NewProfileStore creates a profile store over the shared DB.
func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Put upserts a user profile.
func (s *ProfileStore) Put(ctx context.Context, profile *models.UserProfile) error {
	return s.db.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, profileKey(profile.ID), profile)
	})
}

// Get loads one profile. Soft-deleted profiles resolve to ErrNotFound.
func (s *ProfileStore) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, profileKey(userID), &profile)
	})
	if err != nil {
		return nil, err
	}
	if profile.IsDeleted() {
		return nil, ErrNotFound
	}
	return &profile, nil
}

// GetBatch loads the profiles for the given user IDs in one
// transaction. Missing or deleted profiles are simply absent from the
// result; the map never contains nil entries.
func (s *ProfileStore) GetBatch(ctx context.Context, userIDs []string) (map[string]*models.UserProfile, error) {
	result := make(map[string]*models.UserProfile, len(userIDs))
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		for _, id := range userIDs {
			var profile models.UserProfile
			if err := getJSON(txn, profileKey(id), &profile); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			if profile.IsDeleted() {
				continue
			}
			p := profile
			result[id] = &p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
