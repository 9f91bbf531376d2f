// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package live

import "github.com/rookery-social/rookery/internal/models"

// Message types pushed to room subscribers.
const (
	MessageViewerCount = "viewer_count"
	MessageChat        = "chat_message"
	MessageLikeCount   = "like_count"
	MessageEnded       = "session_ended"
	MessageError       = "error"
)

// Error codes carried on MessageError frames.
const (
	CodeSessionEnded   = "SESSION_ENDED"
	CodeRateLimited    = "RATE_LIMITED"
	CodeMessageTooLong = "MESSAGE_TOO_LONG"
	CodeInvalidInput   = "INVALID_INPUT"
)

// Message is one frame pushed to a room subscriber. Exactly the fields
// relevant to Type are set.
type Message struct {
	Type      string                  `json:"type"`
	SessionID string                  `json:"session_id"`
	Count     int64                   `json:"count,omitempty"`
	Chat      *models.LiveChatMessage `json:"chat,omitempty"`
	Code      string                  `json:"code,omitempty"`
	Detail    string                  `json:"detail,omitempty"`
}

// Subscriber is one attached client. Out carries room broadcasts; the
// room closes it when the subscriber detaches, the session ends, or the
// subscriber falls too far behind.
type Subscriber struct {
	UserID string
	Out    chan Message
}
