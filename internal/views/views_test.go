// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package views

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rookery-social/rookery/internal/config"
	"github.com/rookery-social/rookery/internal/logging"
	"github.com/rookery-social/rookery/internal/models"
	"github.com/rookery-social/rookery/internal/storage"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func newTestDeduplicator(t *testing.T) (*Deduplicator, *storage.ContentStore) {
	t.Helper()
	db, err := storage.Open(storage.Options{InMemory: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	content := storage.NewContentStore(db)
	dedup := NewDeduplicator(
		storage.NewViewStore(db),
		content,
		nil,
		config.ViewsConfig{CooldownWindow: time.Hour},
	)
	return dedup, content
}

func putContent(t *testing.T, store *storage.ContentStore, id string) {
	t.Helper()
	err := store.Put(context.Background(), &models.ContentItem{
		ID:         id,
		AuthorID:   "author",
		Kind:       models.ContentKindText,
		Visibility: models.VisibilityPublic,
		CreatedAt:  time.Now(),
		Active:     true,
	})
	if err != nil {
		t.Fatalf("put content: %v", err)
	}
}

func TestRecordViewCooldown(t *testing.T) {
	dedup, content := newTestDeduplicator(t)
	putContent(t, content, "post-1")
	ctx := context.Background()

	base := time.Now()
	dedup.nowFunc = func() time.Time { return base }

	credited, err := dedup.RecordView(ctx, "alice", "post-1")
	if err != nil {
		t.Fatalf("first view: %v", err)
	}
	if !credited {
		t.Fatal("first view should credit")
	}

	// Same pair 30 minutes later: inside the window.
	dedup.nowFunc = func() time.Time { return base.Add(30 * time.Minute) }
	credited, err = dedup.RecordView(ctx, "alice", "post-1")
	if err != nil {
		t.Fatalf("repeat view: %v", err)
	}
	if credited {
		t.Error("repeat view inside window should not credit")
	}

	// Past the window: credits again.
	dedup.nowFunc = func() time.Time { return base.Add(61 * time.Minute) }
	credited, err = dedup.RecordView(ctx, "alice", "post-1")
	if err != nil {
		t.Fatalf("late view: %v", err)
	}
	if !credited {
		t.Error("view after the window should credit")
	}
}

func TestRecordViewDistinctViewers(t *testing.T) {
	dedup, content := newTestDeduplicator(t)
	putContent(t, content, "post-1")
	ctx := context.Background()

	for _, viewer := range []string{"alice", "bob"} {
		credited, err := dedup.RecordView(ctx, viewer, "post-1")
		if err != nil {
			t.Fatalf("%s: %v", viewer, err)
		}
		if !credited {
			t.Errorf("%s's first view should credit", viewer)
		}
	}
}

func TestRecordViewMissingContent(t *testing.T) {
	dedup, _ := newTestDeduplicator(t)

	_, err := dedup.RecordView(context.Background(), "alice", "ghost")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRecordViewDeletedContent(t *testing.T) {
	dedup, content := newTestDeduplicator(t)
	putContent(t, content, "post-1")
	ctx := context.Background()

	if err := content.SoftDelete(ctx, "post-1"); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	_, err := dedup.RecordView(ctx, "alice", "post-1")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for deleted content", err)
	}
}

func TestRecordViewInvalidIDs(t *testing.T) {
	dedup, _ := newTestDeduplicator(t)

	cases := [][2]string{
		{"", "post-1"},
		{"alice", ""},
		{"bad viewer", "post-1"},
		{"alice", "bad:content"},
	}
	for _, c := range cases {
		_, err := dedup.RecordView(context.Background(), c[0], c[1])
		if !errors.Is(err, ErrInvalidID) {
			t.Errorf("RecordView(%q, %q) err = %v, want ErrInvalidID", c[0], c[1], err)
		}
	}
}

func TestLastViewedAt(t *testing.T) {
	dedup, content := newTestDeduplicator(t)
	putContent(t, content, "post-1")
	ctx := context.Background()

	now := time.Now()
	dedup.nowFunc = func() time.Time { return now }
	if _, err := dedup.RecordView(ctx, "alice", "post-1"); err != nil {
		t.Fatalf("record: %v", err)
	}

	at, err := dedup.LastViewedAt(ctx, "alice", "post-1")
	if err != nil {
		t.Fatalf("last viewed: %v", err)
	}
	if !at.Equal(now) {
		t.Errorf("LastViewedAt = %v, want %v", at, now)
	}

	if _, err := dedup.LastViewedAt(ctx, "bob", "post-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("never-viewed pair err = %v, want ErrNotFound", err)
	}
}
