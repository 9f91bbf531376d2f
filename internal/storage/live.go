// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package storage

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/rookery-social/rookery/internal/models"
)

// ErrSessionEnded indicates a mutation was attempted against a session
// that has reached its terminal ended state.
var ErrSessionEnded = errors.New("storage: live session ended")

// LiveStore persists live sessions and their sub-entities (membership,
// like edges, chat). All mutations are conditional upserts inside
// serializable transactions, which is what keeps concurrent duplicate
// events from producing incorrect counts.
type LiveStore struct {
	db *DB

	// chatSeq orders chat keys. It is recovered lazily from the highest
	// persisted chat key so the sequence continues across restarts;
	// starting over at zero would write new messages on top of old ones.
	seqMu   sync.Mutex
	seqInit bool
	chatSeq uint64
}

// NewLiveStore creates a live store over the shared DB.
func NewLiveStore(db *DB) *LiveStore {
	return &LiveStore{db: db}
}

// nextChatSeq hands out the next chat sequence number, seeding the
// counter from the store on first use.
func (s *LiveStore) nextChatSeq(ctx context.Context) (uint64, error) {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	if !s.seqInit {
		max, err := s.maxPersistedChatSeq(ctx)
		if err != nil {
			return 0, err
		}
		s.chatSeq = max
		s.seqInit = true
	}
	s.chatSeq++
	return s.chatSeq, nil
}

// maxPersistedChatSeq scans chat keys and returns the highest sequence
// number in the store, zero when no chat exists yet.
func (s *LiveStore) maxPersistedChatSeq(ctx context.Context) (uint64, error) {
	var max uint64
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(liveChatKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			if len(key) < chatSeqDigits {
				continue
			}
			seq, err := strconv.ParseUint(string(key[len(key)-chatSeqDigits:]), 10, 64)
			if err != nil {
				continue
			}
			if seq > max {
				max = seq
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return max, nil
}

// CreateSession stores a new active session.
func (s *LiveStore) CreateSession(ctx context.Context, session *models.LiveSession) error {
	return s.db.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, liveSessionKey(session.ID), session)
	})
}

// GetSession loads a session by ID, or ErrNotFound.
func (s *LiveStore) GetSession(ctx context.Context, sessionID string) (*models.LiveSession, error) {
	var session models.LiveSession
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		return getJSON(txn, liveSessionKey(sessionID), &session)
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// EndSession transitions a session to ended. The transition is
// conditional and terminal: ending an already-ended session returns
// ErrSessionEnded and leaves the stored EndedAt untouched.
func (s *LiveStore) EndSession(ctx context.Context, sessionID string, at time.Time) error {
	return s.db.update(ctx, func(txn *badger.Txn) error {
		var session models.LiveSession
		if err := getJSON(txn, liveSessionKey(sessionID), &session); err != nil {
			return err
		}
		if session.Ended() {
			return ErrSessionEnded
		}
		session.Active = false
		session.EndedAt = &at
		return setJSON(txn, liveSessionKey(sessionID), &session)
	})
}

// UpsertMember records a viewer joining a session. Rejoining is a
// no-op; the distinct viewer count comes from counting member keys.
// Returns true when the member was newly added.
func (s *LiveStore) UpsertMember(ctx context.Context, sessionID, userID string, at time.Time) (bool, error) {
	added := false
	err := s.db.update(ctx, func(txn *badger.Txn) error {
		added = false
		key := liveMemberKey(sessionID, userID)

		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		member := models.LiveMember{SessionID: sessionID, UserID: userID, JoinedAt: at}
		if err := setJSON(txn, key, &member); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// CountMembers returns the distinct viewer count for a session.
func (s *LiveStore) CountMembers(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		count = countPrefix(txn, []byte(liveMemberKeyPrefix+sessionID+":"))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// UpsertLike creates the like edge for (session, user) if absent. A
// duplicate like is a no-op, not an error; the uniqueness invariant is
// resolved silently. Returns true when the edge was newly created.
func (s *LiveStore) UpsertLike(ctx context.Context, sessionID, userID string, at time.Time) (bool, error) {
	added := false
	err := s.db.update(ctx, func(txn *badger.Txn) error {
		added = false
		key := liveLikeKey(sessionID, userID)

		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		edge := models.LiveLikeEdge{SessionID: sessionID, UserID: userID, CreatedAt: at}
		if err := setJSON(txn, key, &edge); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// CountLikes returns the like count for a session by counting edges.
// The count is always derived fresh; no incrementally maintained
// counter exists to drift.
func (s *LiveStore) CountLikes(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		count = countPrefix(txn, []byte(liveLikeKeyPrefix+sessionID+":"))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// AppendChat stores a chat message under the next sequence number so a
// prefix scan returns messages in hub-accept order.
func (s *LiveStore) AppendChat(ctx context.Context, msg *models.LiveChatMessage) error {
	seq, err := s.nextChatSeq(ctx)
	if err != nil {
		return err
	}
	return s.db.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, liveChatKey(msg.SessionID, seq), msg)
	})
}

// RecentChat returns the most recent limit messages for a session in
// accept order (oldest of the returned window first).
func (s *LiveStore) RecentChat(ctx context.Context, sessionID string, limit int) ([]models.LiveChatMessage, error) {
	var messages []models.LiveChatMessage
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		// Reverse iteration from the end of the session's chat range
		// collects the newest messages first.
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(liveChatKeyPrefix + sessionID + ":")
		// Seek past the last possible key in the prefix range.
		seekKey := append(append([]byte{}, prefix...), 0xFF)

		for it.Seek(seekKey); it.ValidForPrefix(prefix) && len(messages) < limit; it.Next() {
			var msg models.LiveChatMessage
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &msg)
			})
			if err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
