// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package storage

import "fmt"

// Key prefixes for the BadgerDB keyspace. Identifiers are validated at
// the API boundary to exclude ':' so composite keys cannot collide.
const (
	contentKeyPrefix = "content:"
	profileKeyPrefix = "profile:"

	relationshipKeyPrefix = "rel:"
	blockKeyPrefix        = "block:"

	viewKeyPrefix = "view:"

	liveSessionKeyPrefix = "live:session:"
	liveMemberKeyPrefix  = "live:member:"
	liveLikeKeyPrefix    = "live:like:"
	liveChatKeyPrefix    = "live:chat:"

	// Secondary indexes for content candidate selection.
	tribeIndexPrefix   = "idx:tribe:"
	hashtagIndexPrefix = "idx:tag:"

	// Reverse index over block edges: who blocks a given user.
	blockedByIndexPrefix = "idx:blockedby:"
)

func contentKey(contentID string) []byte {
	return []byte(contentKeyPrefix + contentID)
}

func profileKey(userID string) []byte {
	return []byte(profileKeyPrefix + userID)
}

func relationshipKey(followerID, followeeID string) []byte {
	return []byte(relationshipKeyPrefix + followerID + ":" + followeeID)
}

func blockKey(blockerID, blockedID string) []byte {
	return []byte(blockKeyPrefix + blockerID + ":" + blockedID)
}

func viewKey(viewerID, contentID string) []byte {
	return []byte(viewKeyPrefix + viewerID + ":" + contentID)
}

func liveSessionKey(sessionID string) []byte {
	return []byte(liveSessionKeyPrefix + sessionID)
}

func liveMemberKey(sessionID, userID string) []byte {
	return []byte(liveMemberKeyPrefix + sessionID + ":" + userID)
}

func liveLikeKey(sessionID, userID string) []byte {
	return []byte(liveLikeKeyPrefix + sessionID + ":" + userID)
}

// chatSeqDigits is the zero-padded width of the chat sequence suffix.
const chatSeqDigits = 20

// liveChatKey orders messages by hub-assigned sequence number within a
// session; the zero-padded sequence makes the prefix scan return
// messages in accept order.
func liveChatKey(sessionID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%0*d", liveChatKeyPrefix, sessionID, chatSeqDigits, seq))
}

func tribeIndexKey(tribeID, contentID string) []byte {
	return []byte(tribeIndexPrefix + tribeID + ":" + contentID)
}

func hashtagIndexKey(tag, contentID string) []byte {
	return []byte(hashtagIndexPrefix + tag + ":" + contentID)
}

func blockedByIndexKey(blockedID, blockerID string) []byte {
	return []byte(blockedByIndexPrefix + blockedID + ":" + blockerID)
}
