// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

// Package graph resolves follow and block relationships between users.
//
// The resolver never computes graph state; it classifies what the
// relationship store has persisted. Lookups are batched so resolving a
// whole candidate set costs one store round trip.
package graph

import (
	"context"
	"fmt"

	"github.com/rookery-social/rookery/internal/models"
	"github.com/rookery-social/rookery/internal/storage"
)

// Resolver computes relationship status codes for (viewer, target)
// pairs and block sets for feed filtering.
type Resolver struct {
	relationships *storage.RelationshipStore
	blocks        *storage.BlockStore
}

// NewResolver creates a resolver over the graph stores.
func NewResolver(relationships *storage.RelationshipStore, blocks *storage.BlockStore) *Resolver {
	return &Resolver{relationships: relationships, blocks: blocks}
}

// Resolve maps each target ID to a relationship status from the
// viewer's perspective. Guarantees:
//
//   - every requested target appears in the result exactly once
//   - the viewer itself resolves to self, regardless of stored edges
//   - unknown targets and malformed IDs resolve to none
//
// Store unavailability is returned to the caller rather than masked;
// silently reporting none during an outage would corrupt visibility
// decisions built on the result.
func (r *Resolver) Resolve(ctx context.Context, viewerID string, targetIDs []string) (map[string]models.RelationshipStatus, error) {
	result := make(map[string]models.RelationshipStatus, len(targetIDs))

	// Partition: self and malformed IDs are classified without touching
	// the store; everything else goes into one batched lookup.
	lookup := make([]string, 0, len(targetIDs))
	for _, targetID := range targetIDs {
		switch {
		case targetID == viewerID:
			result[targetID] = models.RelationshipSelf
		case !ValidID(targetID):
			result[targetID] = models.RelationshipNone
		default:
			result[targetID] = models.RelationshipNone
			lookup = append(lookup, targetID)
		}
	}

	if len(lookup) == 0 || !ValidID(viewerID) {
		return result, nil
	}

	edges, err := r.relationships.GetEdgeBatch(ctx, viewerID, lookup)
	if err != nil {
		return nil, fmt.Errorf("resolve relationships for %s: %w", viewerID, err)
	}

	for targetID, edge := range edges {
		result[targetID] = models.RelationshipStatusOf(edge)
	}
	return result, nil
}

// ResolveOne is the single-target convenience form of Resolve.
func (r *Resolver) ResolveOne(ctx context.Context, viewerID, targetID string) (models.RelationshipStatus, error) {
	statuses, err := r.Resolve(ctx, viewerID, []string{targetID})
	if err != nil {
		return models.RelationshipNone, err
	}
	return statuses[targetID], nil
}

// BlockedSet returns every user blocked by, or blocking, the viewer.
// The feed aggregator applies this before scoring so blocked authors
// never count toward pagination.
func (r *Resolver) BlockedSet(ctx context.Context, viewerID string) (map[string]bool, error) {
	if !ValidID(viewerID) {
		return map[string]bool{}, nil
	}
	blocked, err := r.blocks.BlockedSet(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("resolve block set for %s: %w", viewerID, err)
	}
	return blocked, nil
}

// Blocked reports whether a non-deleted block edge exists in either
// direction between the two users.
func (r *Resolver) Blocked(ctx context.Context, a, b string) (bool, error) {
	if !ValidID(a) || !ValidID(b) {
		return false, nil
	}
	return r.blocks.IsBlockedPair(ctx, a, b)
}

// ValidID reports whether an identifier is usable as a graph key.
// Unparsable identifiers classify as "no relation" rather than failing
// the whole resolution. The ':' exclusion protects composite store keys.
func ValidID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
