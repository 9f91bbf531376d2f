// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package storage

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/rookery-social/rookery/internal/models"
)

// RelationshipStore persists follow edges, keyed by the ordered
// (follower, followee) pair, which is what enforces the at-most-one
// non-deleted edge invariant.
type RelationshipStore struct {
	db *DB
}

// NewRelationshipStore creates a relationship store over the shared DB.
func NewRelationshipStore(db *DB) *RelationshipStore {
	return &RelationshipStore{db: db}
}

// PutEdge upserts the edge for its (follower, followee) pair.
func (s *RelationshipStore) PutEdge(ctx context.Context, edge *models.RelationshipEdge) error {
	return s.db.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, relationshipKey(edge.FollowerID, edge.FolloweeID), edge)
	})
}

// GetEdge loads the edge from follower to followee, deleted or not.
func (s *RelationshipStore) GetEdge(ctx context.Context, followerID, followeeID string) (*models.RelationshipEdge, error) {
	var edge models.RelationshipEdge
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, relationshipKey(followerID, followeeID), &edge)
	})
	if err != nil {
		return nil, err
	}
	return &edge, nil
}

// GetEdgeBatch loads the edges from one follower to many followees in a
// single transaction. Pairs without a stored edge are absent from the
// result map.
func (s *RelationshipStore) GetEdgeBatch(ctx context.Context, followerID string, followeeIDs []string) (map[string]*models.RelationshipEdge, error) {
	result := make(map[string]*models.RelationshipEdge, len(followeeIDs))
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		for _, followeeID := range followeeIDs {
			var edge models.RelationshipEdge
			if err := getJSON(txn, relationshipKey(followerID, followeeID), &edge); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			e := edge
			result[followeeID] = &e
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SoftDeleteEdge marks the edge deleted (unfollow). Missing edges are a
// no-op, matching the idempotent contract of unfollow.
func (s *RelationshipStore) SoftDeleteEdge(ctx context.Context, followerID, followeeID string) error {
	err := s.db.update(ctx, func(txn *badger.Txn) error {
		var edge models.RelationshipEdge
		if err := getJSON(txn, relationshipKey(followerID, followeeID), &edge); err != nil {
			return err
		}
		if edge.IsDeleted() {
			return nil
		}
		edge.MarkDeleted(nowFunc())
		edge.UpdatedAt = nowFunc()
		return setJSON(txn, relationshipKey(followerID, followeeID), &edge)
	})
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// BlockStore persists block edges.
type BlockStore struct {
	db *DB
}

// NewBlockStore creates a block store over the shared DB.
func NewBlockStore(db *DB) *BlockStore {
	return &BlockStore{db: db}
}

// PutBlock upserts a block edge and its reverse index entry. The index
// lets BlockedSet find inbound blockers without scanning every edge.
func (s *BlockStore) PutBlock(ctx context.Context, edge *models.BlockEdge) error {
	return s.db.update(ctx, func(txn *badger.Txn) error {
		if err := setJSON(txn, blockKey(edge.BlockerID, edge.BlockedID), edge); err != nil {
			return err
		}
		return txn.Set(blockedByIndexKey(edge.BlockedID, edge.BlockerID), nil)
	})
}

// BlockedSet returns every user that userID blocks, plus every user
// that blocks userID, in one transaction. Only non-deleted edges count;
// inbound candidates from the reverse index are verified against the
// primary edge so a lifted block drops out without index maintenance.
func (s *BlockStore) BlockedSet(ctx context.Context, userID string) (map[string]bool, error) {
	blocked := make(map[string]bool)
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		// Outbound: block:<userID>:<other>
		outPrefix := []byte(blockKeyPrefix + userID + ":")
		if err := collectBlockEdges(txn, outPrefix, func(edge *models.BlockEdge) {
			blocked[edge.BlockedID] = true
		}); err != nil {
			return err
		}

		// Inbound: idx:blockedby:<userID>:<blocker>
		idxPrefix := []byte(blockedByIndexPrefix + userID + ":")
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(idxPrefix); it.ValidForPrefix(idxPrefix); it.Next() {
			blockerID := string(it.Item().Key()[len(idxPrefix):])
			var edge models.BlockEdge
			if err := getJSON(txn, blockKey(blockerID, userID), &edge); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			if edge.IsDeleted() {
				continue
			}
			blocked[blockerID] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blocked, nil
}

// IsBlockedPair reports whether a non-deleted block edge exists in
// either direction between the two users.
func (s *BlockStore) IsBlockedPair(ctx context.Context, a, b string) (bool, error) {
	var found bool
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		for _, key := range [][]byte{blockKey(a, b), blockKey(b, a)} {
			var edge models.BlockEdge
			if err := getJSON(txn, key, &edge); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			if !edge.IsDeleted() {
				found = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func collectBlockEdges(txn *badger.Txn, prefix []byte, fn func(*models.BlockEdge)) error {
	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var edge models.BlockEdge
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &edge)
		})
		if err != nil {
			return err
		}
		if edge.IsDeleted() {
			continue
		}
		fn(&edge)
	}
	return nil
}
