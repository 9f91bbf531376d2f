// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

// Package metrics defines the Prometheus instrumentation surface.
// Collectors are package-level and registered on the default registry
// via promauto; the API layer exposes them at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts API requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rookery",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests processed, partitioned by method, route, and status code.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes request latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rookery",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// FeedPagesTotal counts served feed pages by filter and sort mode.
	FeedPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rookery",
			Subsystem: "feed",
			Name:      "pages_total",
			Help:      "Feed pages served, partitioned by filter and sort.",
		},
		[]string{"filter", "sort"},
	)

	// FeedCandidates observes the candidate set size per aggregation
	// before filtering.
	FeedCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rookery",
			Subsystem: "feed",
			Name:      "candidates",
			Help:      "Candidate items considered per feed aggregation.",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500},
		},
	)

	// ViewsRecordedTotal counts view submissions by outcome: credited,
	// deduplicated, or rejected.
	ViewsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rookery",
			Subsystem: "views",
			Name:      "recorded_total",
			Help:      "View submissions processed, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	// LiveSessionsActive gauges currently running live rooms.
	LiveSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rookery",
			Subsystem: "live",
			Name:      "sessions_active",
			Help:      "Live session rooms currently running.",
		},
	)

	// LiveViewersActive gauges connected websocket clients across rooms.
	LiveViewersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rookery",
			Subsystem: "live",
			Name:      "viewers_active",
			Help:      "Websocket clients currently attached to live rooms.",
		},
	)

	// LiveEventsTotal counts room events by type: join, chat, like, end.
	LiveEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rookery",
			Subsystem: "live",
			Name:      "events_total",
			Help:      "Live room events processed, partitioned by type.",
		},
		[]string{"type"},
	)

	// LiveChatDroppedTotal counts chat messages rejected by rate
	// limiting or validation.
	LiveChatDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rookery",
			Subsystem: "live",
			Name:      "chat_dropped_total",
			Help:      "Chat messages dropped, partitioned by reason.",
		},
		[]string{"reason"},
	)

	// BusEventsTotal counts domain events published on the internal bus.
	BusEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rookery",
			Subsystem: "bus",
			Name:      "events_total",
			Help:      "Domain events published on the internal event bus.",
		},
		[]string{"topic"},
	)
)
