// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package graph

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rookery-social/rookery/internal/logging"
	"github.com/rookery-social/rookery/internal/models"
	"github.com/rookery-social/rookery/internal/storage"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func newTestResolver(t *testing.T) (*Resolver, *storage.RelationshipStore, *storage.BlockStore) {
	t.Helper()
	db, err := storage.Open(storage.Options{InMemory: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	relationships := storage.NewRelationshipStore(db)
	blocks := storage.NewBlockStore(db)
	return NewResolver(relationships, blocks), relationships, blocks
}

func putEdge(t *testing.T, store *storage.RelationshipStore, follower, followee string, status models.EdgeStatus) {
	t.Helper()
	now := time.Now()
	err := store.PutEdge(context.Background(), &models.RelationshipEdge{
		FollowerID: follower,
		FolloweeID: followee,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("put edge: %v", err)
	}
}

func TestResolveStatuses(t *testing.T) {
	resolver, relationships, _ := newTestResolver(t)
	ctx := context.Background()

	putEdge(t, relationships, "alice", "bob", models.EdgeStatusAccepted)
	putEdge(t, relationships, "alice", "carol", models.EdgeStatusPending)
	putEdge(t, relationships, "alice", "dave", models.EdgeStatusRejected)

	statuses, err := resolver.Resolve(ctx, "alice", []string{"bob", "carol", "dave", "eve"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	want := map[string]models.RelationshipStatus{
		"bob":   models.RelationshipAccepted,
		"carol": models.RelationshipPending,
		"dave":  models.RelationshipRejected,
		"eve":   models.RelationshipNone,
	}
	for target, expected := range want {
		if statuses[target] != expected {
			t.Errorf("status[%s] = %s, want %s", target, statuses[target], expected)
		}
	}
	if len(statuses) != len(want) {
		t.Errorf("got %d statuses, want %d", len(statuses), len(want))
	}
}

func TestResolveSelfPrecedence(t *testing.T) {
	resolver, relationships, _ := newTestResolver(t)

	// Even a stored self-edge must not override the self status.
	putEdge(t, relationships, "alice", "alice", models.EdgeStatusAccepted)

	statuses, err := resolver.Resolve(context.Background(), "alice", []string{"alice"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if statuses["alice"] != models.RelationshipSelf {
		t.Errorf("status = %s, want self", statuses["alice"])
	}
}

func TestResolveMalformedTargets(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	targets := []string{"has space", "has:colon", "", "ok-id"}
	statuses, err := resolver.Resolve(context.Background(), "alice", targets)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, target := range targets {
		if statuses[target] != models.RelationshipNone {
			t.Errorf("status[%q] = %s, want none", target, statuses[target])
		}
	}
}

func TestResolveDirectional(t *testing.T) {
	resolver, relationships, _ := newTestResolver(t)

	// bob follows alice; alice does not follow bob.
	putEdge(t, relationships, "bob", "alice", models.EdgeStatusAccepted)

	status, err := resolver.ResolveOne(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if status != models.RelationshipNone {
		t.Errorf("alice->bob = %s, want none; edges are directional", status)
	}

	status, err = resolver.ResolveOne(context.Background(), "bob", "alice")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if status != models.RelationshipAccepted {
		t.Errorf("bob->alice = %s, want accepted", status)
	}
}

func TestBlockedSetInvalidViewer(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	blocked, err := resolver.BlockedSet(context.Background(), "not a valid id")
	if err != nil {
		t.Fatalf("blocked set: %v", err)
	}
	if len(blocked) != 0 {
		t.Errorf("blocked set = %v, want empty", blocked)
	}
}

func TestValidID(t *testing.T) {
	valid := []string{"alice", "user_42", "a-b-c", "X"}
	for _, id := range valid {
		if !ValidID(id) {
			t.Errorf("ValidID(%q) = false, want true", id)
		}
	}

	invalid := []string{"", "has space", "has:colon", "ünïcode", string(make([]byte, 129))}
	for _, id := range invalid {
		if ValidID(id) {
			t.Errorf("ValidID(%q) = true, want false", id)
		}
	}
}
