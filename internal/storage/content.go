// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/rookery-social/rookery/internal/models"
)

// ContentStore persists content items and the secondary indexes used
// for candidate selection.
type ContentStore struct {
	db *DB
}

// NewContentStore creates a content store over the shared DB.
func NewContentStore(db *DB) *ContentStore {
	return &ContentStore{db: db}
}

// Put upserts a content item and maintains its tribe/hashtag indexes.
func (s *ContentStore) Put(ctx context.Context, item *models.ContentItem) error {
	return s.db.update(ctx, func(txn *badger.Txn) error {
		if err := setJSON(txn, contentKey(item.ID), item); err != nil {
			return err
		}
		if item.TribeID != "" {
			if err := txn.Set(tribeIndexKey(item.TribeID, item.ID), nil); err != nil {
				return err
			}
		}
		for _, tag := range item.Hashtags {
			if err := txn.Set(hashtagIndexKey(strings.ToLower(tag), item.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get loads a content item by ID. Soft-deleted items are returned; the
// caller decides whether deletion matters for its operation.
func (s *ContentStore) Get(ctx context.Context, contentID string) (*models.ContentItem, error) {
	var item models.ContentItem
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, contentKey(contentID), &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SoftDelete marks a content item deleted. Missing content is ErrNotFound.
func (s *ContentStore) SoftDelete(ctx context.Context, contentID string) error {
	return s.db.update(ctx, func(txn *badger.Txn) error {
		var item models.ContentItem
		if err := getJSON(txn, contentKey(contentID), &item); err != nil {
			return err
		}
		if item.IsDeleted() {
			return nil
		}
		item.MarkDeleted(nowFunc())
		return setJSON(txn, contentKey(contentID), &item)
	})
}

// ListGlobal returns up to limit non-deleted, active content items.
func (s *ContentStore) ListGlobal(ctx context.Context, limit int) ([]models.ContentItem, error) {
	var items []models.ContentItem
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(contentKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(items) < limit; it.Next() {
			var item models.ContentItem
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &item)
			})
			if err != nil {
				return err
			}
			if item.IsDeleted() || !item.Active {
				continue
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ListByTribe returns up to limit non-deleted items in a tribe, via the
// tribe index.
func (s *ContentStore) ListByTribe(ctx context.Context, tribeID string, limit int) ([]models.ContentItem, error) {
	return s.listByIndex(ctx, tribeIndexPrefix+tribeID+":", limit)
}

// ListByHashtag returns up to limit non-deleted items carrying the
// hashtag (matched lowercase, without '#').
func (s *ContentStore) ListByHashtag(ctx context.Context, tag string, limit int) ([]models.ContentItem, error) {
	return s.listByIndex(ctx, hashtagIndexPrefix+strings.ToLower(tag)+":", limit)
}

// listByIndex resolves index entries to content documents, skipping
// deleted or inactive items and dangling index entries.
func (s *ContentStore) listByIndex(ctx context.Context, prefix string, limit int) ([]models.ContentItem, error) {
	var items []models.ContentItem
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p) && len(items) < limit; it.Next() {
			contentID := string(it.Item().Key()[len(p):])

			var item models.ContentItem
			if err := getJSON(txn, contentKey(contentID), &item); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			if item.IsDeleted() || !item.Active {
				continue
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
