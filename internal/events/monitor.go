// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/rookery-social/rookery/internal/logging"
)

// Monitor is the supervised baseline consumer: it acknowledges every
// domain event and emits an audit log line. Additional consumers attach
// through Bus.Subscribe independently.
type Monitor struct {
	bus *Bus
}

// NewMonitor creates the monitor for a bus.
func NewMonitor(bus *Bus) *Monitor {
	return &Monitor{bus: bus}
}

// Serve consumes all topics until ctx is done.
func (m *Monitor) Serve(ctx context.Context) error {
	topics := []string{TopicViewCredited, TopicLiveJoined, TopicLiveLiked, TopicLiveEnded}

	for _, topic := range topics {
		ch, err := m.bus.Subscribe(ctx, topic)
		if err != nil {
			return err
		}
		go m.consume(topic, ch)
	}

	<-ctx.Done()
	return ctx.Err()
}

// String names the service in supervisor logs.
func (m *Monitor) String() string { return "event-monitor" }

func (m *Monitor) consume(topic string, ch <-chan *message.Message) {
	log := logging.WithComponent("events")
	for msg := range ch {
		log.Debug().
			Str("topic", topic).
			Str("message_id", msg.UUID).
			RawJSON("payload", msg.Payload).
			Msg("event")
		msg.Ack()
	}
}
