// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/rookery-social/rookery/internal/config"
	"github.com/rookery-social/rookery/internal/feed"
	"github.com/rookery-social/rookery/internal/graph"
	"github.com/rookery-social/rookery/internal/live"
	"github.com/rookery-social/rookery/internal/logging"
	"github.com/rookery-social/rookery/internal/models"
	"github.com/rookery-social/rookery/internal/storage"
	"github.com/rookery-social/rookery/internal/views"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

type testEnv struct {
	router  http.Handler
	content *storage.ContentStore
	hub     *live.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := storage.Open(storage.Options{InMemory: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{
		Server: config.ServerConfig{Port: 8480, Timeout: 5 * time.Second},
		Feed: config.FeedConfig{
			DefaultPageSize: 20, MaxPageSize: 100, CandidateLimit: 1000,
			LikeWeight: 2, CommentWeight: 3, ShareWeight: 1, RecencyWeight: 0.2,
			AuthorCacheSize: 100, AuthorCacheTTL: time.Minute,
		},
		Views: config.ViewsConfig{CooldownWindow: time.Hour},
		Live: config.LiveConfig{
			RoomBuffer: 32, ClientBuffer: 32, PersistTimeout: 2 * time.Second,
			ChatBacklog: 10, ChatRateLimit: 100, ChatRateBurst: 100, MaxChatLength: 500,
		},
		Security: config.SecurityConfig{RateLimitDisabled: true},
	}

	content := storage.NewContentStore(db)
	profiles := storage.NewProfileStore(db)
	resolver := graph.NewResolver(storage.NewRelationshipStore(db), storage.NewBlockStore(db))
	aggregator := feed.NewAggregator(content, profiles, resolver, cfg.Feed)
	dedup := views.NewDeduplicator(storage.NewViewStore(db), content, nil, cfg.Views)
	hub := live.NewHub(storage.NewLiveStore(db), nil, cfg.Live)

	handlers := NewHandlers(aggregator, resolver, dedup, hub)
	return &testEnv{
		router:  NewRouter(handlers, cfg),
		content: content,
		hub:     hub,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header map[string]string) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var envelope Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode envelope from %q: %v", rec.Body.String(), err)
	}
	return rec, envelope
}

func (e *testEnv) putContent(t *testing.T, id, author string) {
	t.Helper()
	err := e.content.Put(context.Background(), &models.ContentItem{
		ID: id, AuthorID: author,
		Kind: models.ContentKindText, Visibility: models.VisibilityPublic,
		CreatedAt: time.Now(), Active: true,
	})
	if err != nil {
		t.Fatalf("put content: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec, envelope := env.do(t, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK || !envelope.Success {
		t.Errorf("healthz = %d %+v", rec.Code, envelope)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("responses should carry a request id")
	}
}

func TestGetFeedEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.putContent(t, "c1", "author")

	rec, envelope := env.do(t, http.MethodGet, "/api/v1/feed", nil,
		map[string]string{viewerHeader: "alice"})
	if rec.Code != http.StatusOK || !envelope.Success {
		t.Fatalf("feed = %d %+v", rec.Code, envelope)
	}

	data, _ := json.Marshal(envelope.Data)
	var page feed.Page
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Content.ID != "c1" {
		t.Errorf("page = %+v", page)
	}
}

func TestGetFeedBadQuery(t *testing.T) {
	env := newTestEnv(t)

	rec, envelope := env.do(t, http.MethodGet, "/api/v1/feed?filter=tribe", nil,
		map[string]string{viewerHeader: "alice"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != CodeValidationFailure {
		t.Errorf("envelope = %+v, want VALIDATION_FAILURE", envelope)
	}
}

func TestRecordViewEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.putContent(t, "c1", "author")

	body := map[string]string{"viewer_id": "alice", "content_id": "c1"}

	rec, envelope := env.do(t, http.MethodPost, "/api/v1/views", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %+v", rec.Code, envelope)
	}
	data := envelope.Data.(map[string]any)
	if data["credited"] != true {
		t.Errorf("first view credited = %v, want true", data["credited"])
	}

	_, envelope = env.do(t, http.MethodPost, "/api/v1/views", body, nil)
	data = envelope.Data.(map[string]any)
	if data["credited"] != false {
		t.Errorf("repeat view credited = %v, want false", data["credited"])
	}
}

func TestRecordViewMissingContent(t *testing.T) {
	env := newTestEnv(t)

	rec, envelope := env.do(t, http.MethodPost, "/api/v1/views",
		map[string]string{"viewer_id": "alice", "content_id": "ghost"}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != CodeNotFound {
		t.Errorf("envelope = %+v, want NOT_FOUND", envelope)
	}
}

func TestRecordViewValidation(t *testing.T) {
	env := newTestEnv(t)

	rec, envelope := env.do(t, http.MethodPost, "/api/v1/views",
		map[string]string{"viewer_id": "bad viewer", "content_id": "c1"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != CodeValidationFailure {
		t.Errorf("envelope = %+v", envelope)
	}
}

func TestRelationshipStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec, envelope := env.do(t, http.MethodPost, "/api/v1/relationships/status",
		map[string]any{"viewer_id": "alice", "target_ids": []string{"alice", "bob"}}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %+v", rec.Code, envelope)
	}

	data := envelope.Data.(map[string]any)
	statuses := data["statuses"].(map[string]any)
	if statuses["alice"] != "self" {
		t.Errorf("alice = %v, want self", statuses["alice"])
	}
	if statuses["bob"] != "none" {
		t.Errorf("bob = %v, want none", statuses["bob"])
	}
}

func TestLiveSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec, envelope := env.do(t, http.MethodPost, "/api/v1/live/sessions",
		map[string]string{"streamer_id": "host"}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %+v", rec.Code, envelope)
	}
	data, _ := json.Marshal(envelope.Data)
	var session models.LiveSession
	if err := json.Unmarshal(data, &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if !session.Active || session.StreamerID != "host" {
		t.Fatalf("session = %+v", session)
	}

	rec, _ = env.do(t, http.MethodGet, "/api/v1/live/sessions/"+session.ID, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get = %d", rec.Code)
	}

	rec, _ = env.do(t, http.MethodPost, "/api/v1/live/sessions/"+session.ID+"/end", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("end = %d", rec.Code)
	}

	// Terminal: a second end conflicts.
	rec, envelope = env.do(t, http.MethodPost, "/api/v1/live/sessions/"+session.ID+"/end", nil, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second end = %d, want 409", rec.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != CodeSessionEnded {
		t.Errorf("envelope = %+v, want SESSION_ENDED", envelope)
	}
}

func TestLiveSessionNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec, envelope := env.do(t, http.MethodGet, "/api/v1/live/sessions/nope", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if envelope.Error == nil || envelope.Error.Code != CodeNotFound {
		t.Errorf("envelope = %+v", envelope)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{feed.ErrBadQuery, http.StatusBadRequest, CodeValidationFailure},
		{views.ErrInvalidID, http.StatusBadRequest, CodeValidationFailure},
		{live.ErrInvalidID, http.StatusBadRequest, CodeValidationFailure},
		{storage.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{storage.ErrSessionEnded, http.StatusConflict, CodeSessionEnded},
		{storage.ErrUnavailable, http.StatusServiceUnavailable, CodeUnavailable},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		status, code := classify(tc.err)
		if status != tc.status || code != tc.code {
			t.Errorf("classify(%v) = %d %s, want %d %s", tc.err, status, code, tc.status, tc.code)
		}
	}
}
