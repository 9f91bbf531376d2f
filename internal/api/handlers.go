// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rookery-social/rookery/internal/feed"
	"github.com/rookery-social/rookery/internal/graph"
	"github.com/rookery-social/rookery/internal/live"
	"github.com/rookery-social/rookery/internal/metrics"
	"github.com/rookery-social/rookery/internal/validation"
	"github.com/rookery-social/rookery/internal/views"
)

// viewerHeader identifies the requesting user. Authentication is owned
// by the surrounding application; by the time requests reach this
// service the gateway has verified the identity it forwards here.
const viewerHeader = "X-Viewer-ID"

// Handlers carries the domain services behind the HTTP surface.
type Handlers struct {
	feed     *feed.Aggregator
	resolver *graph.Resolver
	views    *views.Deduplicator
	hub      *live.Hub
}

// NewHandlers wires the HTTP surface to the domain services.
func NewHandlers(aggregator *feed.Aggregator, resolver *graph.Resolver, dedup *views.Deduplicator, hub *live.Hub) *Handlers {
	return &Handlers{feed: aggregator, resolver: resolver, views: dedup, hub: hub}
}

// getFeed serves GET /api/v1/feed.
func (h *Handlers) getFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := feed.Query{
		Filter:  feed.Filter(q.Get("filter")),
		TribeID: q.Get("tribe_id"),
		Hashtag: q.Get("hashtag"),
		Sort:    feed.Sort(q.Get("sort")),
		Cursor:  q.Get("cursor"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respondValidation(w, "limit must be an integer")
			return
		}
		query.Limit = limit
	}

	page, err := h.feed.GetFeed(r.Context(), r.Header.Get(viewerHeader), query)
	if err != nil {
		respondError(w, r, err)
		return
	}

	filter := string(query.Filter)
	if filter == "" {
		filter = string(feed.FilterGlobal)
	}
	sortMode := string(query.Sort)
	if sortMode == "" {
		sortMode = string(feed.SortEngagement)
	}
	metrics.FeedPagesTotal.WithLabelValues(filter, sortMode).Inc()

	respond(w, http.StatusOK, page)
}

// relationshipStatusRequest is the body of POST /api/v1/relationships/status.
type relationshipStatusRequest struct {
	ViewerID string `json:"viewer_id" validate:"required,entity_id"`

	// TargetIDs may contain malformed entries; those resolve to "none"
	// rather than failing the batch.
	TargetIDs []string `json:"target_ids" validate:"required,min=1,max=500"`
}

// relationshipStatus serves POST /api/v1/relationships/status.
func (h *Handlers) relationshipStatus(w http.ResponseWriter, r *http.Request) {
	var req relationshipStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondValidation(w, "malformed request body")
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondValidation(w, err.Error())
		return
	}

	statuses, err := h.resolver.Resolve(r.Context(), req.ViewerID, req.TargetIDs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"statuses": statuses})
}

// recordViewRequest is the body of POST /api/v1/views.
type recordViewRequest struct {
	ViewerID  string `json:"viewer_id" validate:"required,entity_id"`
	ContentID string `json:"content_id" validate:"required,entity_id"`
}

// recordView serves POST /api/v1/views.
func (h *Handlers) recordView(w http.ResponseWriter, r *http.Request) {
	var req recordViewRequest
	if err := decodeJSON(r, &req); err != nil {
		respondValidation(w, "malformed request body")
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondValidation(w, err.Error())
		return
	}

	credited, err := h.views.RecordView(r.Context(), req.ViewerID, req.ContentID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"credited": credited})
}

// createSessionRequest is the body of POST /api/v1/live/sessions.
type createSessionRequest struct {
	StreamerID string `json:"streamer_id" validate:"required,entity_id"`
}

// createSession serves POST /api/v1/live/sessions.
func (h *Handlers) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondValidation(w, "malformed request body")
		return
	}
	if err := validation.Struct(&req); err != nil {
		respondValidation(w, err.Error())
		return
	}

	session, err := h.hub.CreateSession(r.Context(), req.StreamerID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, session)
}

// endSession serves POST /api/v1/live/sessions/{sessionID}/end.
func (h *Handlers) endSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.hub.EndSession(r.Context(), sessionID); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]any{"ended": true})
}

// getSession serves GET /api/v1/live/sessions/{sessionID}.
func (h *Handlers) getSession(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.hub.Snapshot(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, snapshot)
}

// healthz serves the liveness probe.
func healthz(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}
