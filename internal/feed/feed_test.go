// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"testing"
	"time"

	"github.com/rookery-social/rookery/internal/config"
	"github.com/rookery-social/rookery/internal/graph"
	"github.com/rookery-social/rookery/internal/logging"
	"github.com/rookery-social/rookery/internal/models"
	"github.com/rookery-social/rookery/internal/storage"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

type fixture struct {
	aggregator    *Aggregator
	content       *storage.ContentStore
	profiles      *storage.ProfileStore
	relationships *storage.RelationshipStore
	blocks        *storage.BlockStore
	now           time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.Open(storage.Options{InMemory: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		content:       storage.NewContentStore(db),
		profiles:      storage.NewProfileStore(db),
		relationships: storage.NewRelationshipStore(db),
		blocks:        storage.NewBlockStore(db),
		now:           time.Now(),
	}

	cfg := config.FeedConfig{
		DefaultPageSize: 20,
		MaxPageSize:     100,
		CandidateLimit:  1000,
		LikeWeight:      2,
		CommentWeight:   3,
		ShareWeight:     1,
		RecencyWeight:   0.2,
		AuthorCacheSize: 100,
		AuthorCacheTTL:  time.Minute,
	}
	resolver := graph.NewResolver(f.relationships, f.blocks)
	f.aggregator = NewAggregator(f.content, f.profiles, resolver, cfg)
	f.aggregator.nowFunc = func() time.Time { return f.now }
	return f
}

func (f *fixture) putContent(t *testing.T, item models.ContentItem) {
	t.Helper()
	if item.Kind == "" {
		item.Kind = models.ContentKindText
	}
	if item.Visibility == "" {
		item.Visibility = models.VisibilityPublic
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = f.now
	}
	item.Active = true
	if err := f.content.Put(context.Background(), &item); err != nil {
		t.Fatalf("put content %s: %v", item.ID, err)
	}
}

func (f *fixture) putProfile(t *testing.T, id, name string) {
	t.Helper()
	err := f.profiles.Put(context.Background(), &models.UserProfile{ID: id, DisplayName: name})
	if err != nil {
		t.Fatalf("put profile %s: %v", id, err)
	}
}

func itemIDs(page *Page) []string {
	ids := make([]string, len(page.Items))
	for i, item := range page.Items {
		ids[i] = item.Content.ID
	}
	return ids
}

func TestEngagementScore(t *testing.T) {
	w := DefaultWeights()
	now := time.Now()

	// 2 likes + 1 comment, brand new: 2*2 + 3*1 = 7.
	engaged := &models.ContentItem{LikeCount: 2, CommentCount: 1, CreatedAt: now}
	if got := engagementScore(engaged, now, w); math.Abs(got-7) > 1e-9 {
		t.Errorf("engaged score = %v, want 7", got)
	}

	// No engagement, 10 minutes old: 0.2*ln(11) ~= 0.48.
	stale := &models.ContentItem{CreatedAt: now.Add(-10 * time.Minute)}
	got := engagementScore(stale, now, w)
	want := 0.2 * math.Log1p(10)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("stale score = %v, want %v", got, want)
	}

	if engagementScore(engaged, now, w) <= engagementScore(stale, now, w) {
		t.Error("engaged fresh content must outrank stale empty content")
	}
}

func TestGetFeedRanksByEngagement(t *testing.T) {
	f := newFixture(t)
	f.putProfile(t, "author", "Author")
	f.putContent(t, models.ContentItem{
		ID: "engaged", AuthorID: "author",
		LikeCount: 2, CommentCount: 1, CreatedAt: f.now,
	})
	f.putContent(t, models.ContentItem{
		ID: "stale", AuthorID: "author",
		CreatedAt: f.now.Add(-10 * time.Minute),
	})

	page, err := f.aggregator.GetFeed(context.Background(), "viewer", Query{})
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	got := itemIDs(page)
	if len(got) != 2 || got[0] != "engaged" || got[1] != "stale" {
		t.Errorf("order = %v, want [engaged stale]", got)
	}
	if page.Items[0].Score <= page.Items[1].Score {
		t.Errorf("scores not descending: %v then %v", page.Items[0].Score, page.Items[1].Score)
	}
}

func TestGetFeedChronological(t *testing.T) {
	f := newFixture(t)
	f.putProfile(t, "author", "Author")
	// Heavily engaged but old; empty but new.
	f.putContent(t, models.ContentItem{
		ID: "old", AuthorID: "author",
		LikeCount: 100, CreatedAt: f.now.Add(-time.Hour),
	})
	f.putContent(t, models.ContentItem{ID: "new", AuthorID: "author", CreatedAt: f.now})

	page, err := f.aggregator.GetFeed(context.Background(), "viewer", Query{Sort: SortChronological})
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	got := itemIDs(page)
	if len(got) != 2 || got[0] != "new" || got[1] != "old" {
		t.Errorf("order = %v, want [new old]", got)
	}
	if page.Items[0].Score != 0 {
		t.Errorf("chronological items should carry no score, got %v", page.Items[0].Score)
	}
}

func TestGetFeedExcludesBlockedAuthors(t *testing.T) {
	f := newFixture(t)
	f.putProfile(t, "friend", "Friend")
	f.putProfile(t, "enemy", "Enemy")
	f.putContent(t, models.ContentItem{ID: "ok", AuthorID: "friend"})
	f.putContent(t, models.ContentItem{ID: "hidden-out", AuthorID: "enemy"})
	f.putContent(t, models.ContentItem{ID: "hidden-in", AuthorID: "stalker"})

	ctx := context.Background()
	// viewer blocks enemy; stalker blocks viewer. Both directions hide.
	if err := f.blocks.PutBlock(ctx, &models.BlockEdge{BlockerID: "viewer", BlockedID: "enemy", CreatedAt: f.now}); err != nil {
		t.Fatalf("put block: %v", err)
	}
	if err := f.blocks.PutBlock(ctx, &models.BlockEdge{BlockerID: "stalker", BlockedID: "viewer", CreatedAt: f.now}); err != nil {
		t.Fatalf("put block: %v", err)
	}

	page, err := f.aggregator.GetFeed(ctx, "viewer", Query{})
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	got := itemIDs(page)
	if len(got) != 1 || got[0] != "ok" {
		t.Errorf("feed = %v, want only [ok]", got)
	}
}

func TestGetFeedPersonalizedVisibility(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"followed", "pending", "stranger", "viewer"} {
		f.putProfile(t, id, id)
	}
	f.putContent(t, models.ContentItem{ID: "followed-private", AuthorID: "followed", Visibility: models.VisibilityFollowers})
	f.putContent(t, models.ContentItem{ID: "pending-private", AuthorID: "pending", Visibility: models.VisibilityFollowers})
	f.putContent(t, models.ContentItem{ID: "stranger-public", AuthorID: "stranger", Visibility: models.VisibilityPublic})
	f.putContent(t, models.ContentItem{ID: "own-private", AuthorID: "viewer", Visibility: models.VisibilityFollowers})

	ctx := context.Background()
	now := time.Now()
	edges := []models.RelationshipEdge{
		{FollowerID: "viewer", FolloweeID: "followed", Status: models.EdgeStatusAccepted, CreatedAt: now, UpdatedAt: now},
		{FollowerID: "viewer", FolloweeID: "pending", Status: models.EdgeStatusPending, CreatedAt: now, UpdatedAt: now},
	}
	for i := range edges {
		if err := f.relationships.PutEdge(ctx, &edges[i]); err != nil {
			t.Fatalf("put edge: %v", err)
		}
	}

	page, err := f.aggregator.GetFeed(ctx, "viewer", Query{Filter: FilterPersonalized})
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}

	got := make(map[string]bool)
	for _, id := range itemIDs(page) {
		got[id] = true
	}
	for _, want := range []string{"followed-private", "stranger-public", "own-private"} {
		if !got[want] {
			t.Errorf("feed missing %s", want)
		}
	}
	if got["pending-private"] {
		t.Error("pending follow must not unlock followers-only content")
	}
}

func TestGetFeedMalformedViewerEmptyPage(t *testing.T) {
	f := newFixture(t)
	f.putProfile(t, "author", "Author")
	f.putContent(t, models.ContentItem{ID: "c1", AuthorID: "author"})

	for _, viewer := range []string{"", "has space", "has:colon"} {
		page, err := f.aggregator.GetFeed(context.Background(), viewer, Query{})
		if err != nil {
			t.Fatalf("viewer %q: %v", viewer, err)
		}
		if len(page.Items) != 0 || page.NextCursor != "" {
			t.Errorf("viewer %q got %d items, want empty page", viewer, len(page.Items))
		}
	}
}

func TestGetFeedPagination(t *testing.T) {
	f := newFixture(t)
	f.putProfile(t, "author", "Author")
	for i := 0; i < 5; i++ {
		f.putContent(t, models.ContentItem{
			ID:        fmt.Sprintf("c%d", i),
			AuthorID:  "author",
			LikeCount: int64(i),
			CreatedAt: f.now.Add(-time.Duration(i) * time.Minute),
		})
	}

	ctx := context.Background()
	seen := make(map[string]bool)
	cursor := ""
	pages := 0
	for {
		page, err := f.aggregator.GetFeed(ctx, "viewer", Query{Limit: 2, Cursor: cursor})
		if err != nil {
			t.Fatalf("page %d: %v", pages, err)
		}
		for _, id := range itemIDs(page) {
			if seen[id] {
				t.Errorf("item %s returned twice", id)
			}
			seen[id] = true
		}
		pages++
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
		if pages > 5 {
			t.Fatal("pagination did not terminate")
		}
	}

	if len(seen) != 5 {
		t.Errorf("walked %d distinct items, want 5", len(seen))
	}
}

func TestGetFeedPaginationStableAcrossTime(t *testing.T) {
	f := newFixture(t)
	f.putProfile(t, "author", "Author")
	for i := 0; i < 5; i++ {
		f.putContent(t, models.ContentItem{
			ID:        fmt.Sprintf("c%d", i),
			AuthorID:  "author",
			LikeCount: int64(i),
			CreatedAt: f.now.Add(-time.Duration(i) * time.Minute),
		})
	}

	// Content keeps aging between page requests. Engagement scores move
	// with age, so without the anchored scoring clock the resumed walk
	// would land beside the cursor position and skip or repeat items.
	ctx := context.Background()
	seen := make(map[string]bool)
	cursor := ""
	for pages := 0; ; pages++ {
		page, err := f.aggregator.GetFeed(ctx, "viewer", Query{Limit: 2, Cursor: cursor})
		if err != nil {
			t.Fatalf("page %d: %v", pages, err)
		}
		for _, id := range itemIDs(page) {
			if seen[id] {
				t.Errorf("item %s returned twice", id)
			}
			seen[id] = true
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
		f.now = f.now.Add(10 * time.Minute)
		if pages > 5 {
			t.Fatal("pagination did not terminate")
		}
	}

	if len(seen) != 5 {
		t.Errorf("walked %d distinct items, want 5", len(seen))
	}
}

func TestGetFeedTribeFilter(t *testing.T) {
	f := newFixture(t)
	f.putProfile(t, "author", "Author")
	f.putContent(t, models.ContentItem{ID: "in", AuthorID: "author", TribeID: "corvids"})
	f.putContent(t, models.ContentItem{ID: "out", AuthorID: "author", TribeID: "parrots"})

	page, err := f.aggregator.GetFeed(context.Background(), "viewer", Query{Filter: FilterTribe, TribeID: "corvids"})
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	got := itemIDs(page)
	if len(got) != 1 || got[0] != "in" {
		t.Errorf("feed = %v, want [in]", got)
	}

	// Tribe filter without a tribe is unanswerable.
	_, err = f.aggregator.GetFeed(context.Background(), "viewer", Query{Filter: FilterTribe})
	if !errors.Is(err, ErrBadQuery) {
		t.Errorf("missing tribe id: err = %v, want ErrBadQuery", err)
	}
}

func TestGetFeedMissingAuthorPlaceholder(t *testing.T) {
	f := newFixture(t)
	// No profile stored for the author.
	f.putContent(t, models.ContentItem{ID: "c1", AuthorID: "ghost"})

	page, err := f.aggregator.GetFeed(context.Background(), "viewer", Query{})
	if err != nil {
		t.Fatalf("get feed: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("got %d items, want 1", len(page.Items))
	}
	author := page.Items[0].Author
	if author.ID != "ghost" || author.DisplayName != "Unknown" {
		t.Errorf("author = %+v, want ghost placeholder", author)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	original := cursor{Score: 7.25, CreatedAt: time.Now().UnixNano(), ID: "c1", Sort: SortEngagement, Anchor: time.Now().UnixNano()}

	decoded, err := decodeCursor(encodeCursor(original), SortEngagement)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *decoded != original {
		t.Errorf("round trip = %+v, want %+v", decoded, original)
	}
}

func TestCursorRejectsSortMismatch(t *testing.T) {
	encoded := encodeCursor(cursor{ID: "c1", Sort: SortChronological})
	if _, err := decodeCursor(encoded, SortEngagement); err == nil {
		t.Error("cursor minted under a different sort mode must be rejected")
	}
}

func TestCursorRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"not base64 ???", "YWJjZGVm"} {
		if _, err := decodeCursor(raw, SortEngagement); err == nil {
			t.Errorf("decodeCursor(%q) succeeded, want error", raw)
		}
	}
}
