// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

// Package events is the in-process domain event bus.
//
// Producers publish facts after their state change commits: a credited
// view, a live like, a session ending. Consumers are decoupled from the
// producing request path; losing a consumer never fails the operation
// that produced the event.
package events

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/rookery-social/rookery/internal/logging"
	"github.com/rookery-social/rookery/internal/metrics"
)

// Topics carried by the bus.
const (
	TopicViewCredited = "view.credited"
	TopicLiveJoined   = "live.joined"
	TopicLiveLiked    = "live.liked"
	TopicLiveEnded    = "live.ended"
)

// ViewCredited is published when a view passes deduplication and is
// credited against the content's view count.
type ViewCredited struct {
	ViewerID  string    `json:"viewer_id"`
	ContentID string    `json:"content_id"`
	At        time.Time `json:"at"`
}

// LiveJoined is published when a viewer joins a live session for the
// first time.
type LiveJoined struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	At        time.Time `json:"at"`
}

// LiveLiked is published when a like edge is newly created for a live
// session. Duplicate likes do not publish.
type LiveLiked struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	At        time.Time `json:"at"`
}

// LiveEnded is published once when a session transitions to ended.
type LiveEnded struct {
	SessionID string    `json:"session_id"`
	HostID    string    `json:"host_id"`
	At        time.Time `json:"at"`
}

// Bus wraps an in-memory pub/sub channel with typed publish helpers.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// NewBus creates the bus. Buffered output channels keep slow consumers
// from stalling publishers on the request path.
func NewBus() *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 256},
			newLoggerAdapter(),
		),
	}
}

// Close shuts the bus down, closing all subscriber channels.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// Subscribe returns a channel of messages for a topic. The channel
// closes when the bus closes or ctx is done.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// PublishViewCredited publishes a credited-view event.
func (b *Bus) PublishViewCredited(ctx context.Context, ev ViewCredited) {
	b.publish(ctx, TopicViewCredited, ev)
}

// PublishLiveJoined publishes a first-join event.
func (b *Bus) PublishLiveJoined(ctx context.Context, ev LiveJoined) {
	b.publish(ctx, TopicLiveJoined, ev)
}

// PublishLiveLiked publishes a new-like event.
func (b *Bus) PublishLiveLiked(ctx context.Context, ev LiveLiked) {
	b.publish(ctx, TopicLiveLiked, ev)
}

// PublishLiveEnded publishes a session-ended event.
func (b *Bus) PublishLiveEnded(ctx context.Context, ev LiveEnded) {
	b.publish(ctx, TopicLiveEnded, ev)
}

// publish serializes and publishes one event. Publish failures are
// logged and swallowed: the state change already committed, and the bus
// is best-effort fan-out, not the system of record.
func (b *Bus) publish(ctx context.Context, topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("topic", topic).Msg("event marshal failed")
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)

	if err := b.pubsub.Publish(topic, msg); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("topic", topic).Msg("event publish failed")
		return
	}
	metrics.BusEventsTotal.WithLabelValues(topic).Inc()
}
