// Rookery - Social Feed and Live Engagement Backend
// Copyright 2026 Rookery Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rookery-social/rookery

package live

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rookery-social/rookery/internal/config"
	"github.com/rookery-social/rookery/internal/events"
	"github.com/rookery-social/rookery/internal/logging"
	"github.com/rookery-social/rookery/internal/metrics"
	"github.com/rookery-social/rookery/internal/models"
	"github.com/rookery-social/rookery/internal/storage"
)

type cmdKind int

const (
	cmdSubscribe cmdKind = iota
	cmdUnsubscribe
	cmdJoin
	cmdChat
	cmdLike
	cmdEnd
)

// command is one unit of work for a room actor. All mutations of room
// state flow through the command channel; the actor goroutine is the
// only writer, which is what removes per-room locking.
type command struct {
	kind cmdKind
	sub  *Subscriber
	text string

	// reply, when non-nil, receives the command outcome exactly once.
	reply chan error
}

// room is the actor owning one live session. It serializes joins, chat,
// likes, and the end transition, persists each through the live store,
// and fans resulting frames out to subscribers.
type room struct {
	sessionID string
	hostID    string

	store *storage.LiveStore
	bus   *events.Bus
	cfg   config.LiveConfig

	cmds    chan command
	stopped chan struct{}

	// Actor-owned state; touched only from run.
	subs     map[*Subscriber]bool
	limiters map[string]*rate.Limiter
	ended    bool

	log zerolog.Logger
}

func newRoom(session *models.LiveSession, store *storage.LiveStore, bus *events.Bus, cfg config.LiveConfig) *room {
	return &room{
		sessionID: session.ID,
		hostID:    session.StreamerID,
		store:     store,
		bus:       bus,
		cfg:       cfg,
		cmds:      make(chan command, cfg.RoomBuffer),
		stopped:   make(chan struct{}),
		subs:      make(map[*Subscriber]bool),
		limiters:  make(map[string]*rate.Limiter),
		ended:     session.Ended(),
		log:       logging.WithComponent("live").With().Str("session_id", session.ID).Logger(),
	}
}

// send enqueues a command unless the room has stopped.
func (r *room) send(ctx context.Context, cmd command) error {
	select {
	case <-r.stopped:
		return storage.ErrSessionEnded
	default:
	}
	select {
	case r.cmds <- cmd:
		return nil
	case <-r.stopped:
		return storage.ErrSessionEnded
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sendWait enqueues a command and waits for its outcome.
func (r *room) sendWait(ctx context.Context, cmd command) error {
	cmd.reply = make(chan error, 1)
	if err := r.send(ctx, cmd); err != nil {
		return err
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the actor loop. It exits when the session ends, the last
// subscriber detaches, or ctx is canceled; onStop runs exactly once on
// the way out.
func (r *room) run(ctx context.Context, onStop func()) {
	metrics.LiveSessionsActive.Inc()
	r.log.Debug().Msg("room started")

	defer func() {
		close(r.stopped)
		for sub := range r.subs {
			close(sub.Out)
			metrics.LiveViewersActive.Dec()
		}
		r.subs = nil

		// Settle commands that were queued behind the stop: close the
		// channels of unprocessed subscribes and unblock waiters.
		for {
			select {
			case cmd := <-r.cmds:
				if cmd.kind == cmdSubscribe {
					close(cmd.sub.Out)
				}
				if cmd.reply != nil {
					cmd.reply <- storage.ErrSessionEnded
				}
			default:
				metrics.LiveSessionsActive.Dec()
				onStop()
				r.log.Debug().Msg("room stopped")
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-r.cmds:
			stop := r.handle(ctx, cmd)
			if stop {
				return
			}
			// Stop an empty room once all subscribers are gone; the
			// session itself stays active in the store and the room is
			// recreated on the next attach.
			if len(r.subs) == 0 && cmd.kind == cmdUnsubscribe {
				return
			}
		}
	}
}

func (r *room) handle(ctx context.Context, cmd command) (stop bool) {
	var err error
	switch cmd.kind {
	case cmdSubscribe:
		r.subscribe(ctx, cmd.sub)
	case cmdUnsubscribe:
		r.unsubscribe(cmd.sub)
	case cmdJoin:
		err = r.join(ctx, cmd.sub)
	case cmdChat:
		err = r.chat(ctx, cmd.sub, cmd.text)
	case cmdLike:
		err = r.like(ctx, cmd.sub)
	case cmdEnd:
		err = r.end(ctx)
		stop = err == nil
	}
	if cmd.reply != nil {
		cmd.reply <- err
	}
	return stop
}

// subscribe attaches a client and primes it with the chat backlog and
// current counts.
func (r *room) subscribe(ctx context.Context, sub *Subscriber) {
	if r.ended {
		r.deliver(sub, Message{Type: MessageEnded, SessionID: r.sessionID})
		close(sub.Out)
		return
	}

	r.subs[sub] = true
	metrics.LiveViewersActive.Inc()

	backlog, err := r.persistedChat(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("chat backlog load failed")
	}
	for i := range backlog {
		r.deliver(sub, Message{Type: MessageChat, SessionID: r.sessionID, Chat: &backlog[i]})
	}

	if viewers, err := r.count(ctx, r.store.CountMembers); err == nil {
		r.deliver(sub, Message{Type: MessageViewerCount, SessionID: r.sessionID, Count: viewers})
	}
	if likes, err := r.count(ctx, r.store.CountLikes); err == nil {
		r.deliver(sub, Message{Type: MessageLikeCount, SessionID: r.sessionID, Count: likes})
	}
}

func (r *room) unsubscribe(sub *Subscriber) {
	if !r.subs[sub] {
		return
	}
	delete(r.subs, sub)
	close(sub.Out)
	metrics.LiveViewersActive.Dec()
}

// join records session membership. Rejoins are silent no-ops; a first
// join broadcasts the fresh distinct viewer count to everyone.
func (r *room) join(ctx context.Context, sub *Subscriber) error {
	if r.ended {
		r.deliver(sub, Message{Type: MessageError, SessionID: r.sessionID, Code: CodeSessionEnded})
		return storage.ErrSessionEnded
	}

	now := time.Now()
	pctx, cancel := r.persistCtx(ctx)
	added, err := r.store.UpsertMember(pctx, r.sessionID, sub.UserID, now)
	cancel()
	if err != nil {
		r.log.Error().Err(err).Str("user_id", sub.UserID).Msg("member upsert failed")
		return err
	}
	metrics.LiveEventsTotal.WithLabelValues("join").Inc()
	if !added {
		return nil
	}

	if r.bus != nil {
		r.bus.PublishLiveJoined(ctx, events.LiveJoined{SessionID: r.sessionID, UserID: sub.UserID, At: now})
	}
	if viewers, err := r.count(ctx, r.store.CountMembers); err == nil {
		r.broadcast(Message{Type: MessageViewerCount, SessionID: r.sessionID, Count: viewers})
	}
	return nil
}

// chat validates, rate-limits, persists, and broadcasts one message.
// Rejections go back to the sender only.
func (r *room) chat(ctx context.Context, sub *Subscriber, text string) error {
	if r.ended {
		r.deliver(sub, Message{Type: MessageError, SessionID: r.sessionID, Code: CodeSessionEnded})
		return storage.ErrSessionEnded
	}

	text = strings.TrimSpace(text)
	if text == "" {
		metrics.LiveChatDroppedTotal.WithLabelValues("empty").Inc()
		r.deliver(sub, Message{Type: MessageError, SessionID: r.sessionID, Code: CodeInvalidInput, Detail: "empty message"})
		return nil
	}
	if utf8.RuneCountInString(text) > r.cfg.MaxChatLength {
		metrics.LiveChatDroppedTotal.WithLabelValues("too_long").Inc()
		r.deliver(sub, Message{Type: MessageError, SessionID: r.sessionID, Code: CodeMessageTooLong})
		return nil
	}
	if !r.limiter(sub.UserID).Allow() {
		metrics.LiveChatDroppedTotal.WithLabelValues("rate_limited").Inc()
		r.deliver(sub, Message{Type: MessageError, SessionID: r.sessionID, Code: CodeRateLimited})
		return nil
	}

	msg := models.LiveChatMessage{
		ID:        uuid.NewString(),
		SessionID: r.sessionID,
		UserID:    sub.UserID,
		Text:      text,
		CreatedAt: time.Now(),
	}

	pctx, cancel := r.persistCtx(ctx)
	err := r.store.AppendChat(pctx, &msg)
	cancel()
	if err != nil {
		r.log.Error().Err(err).Str("user_id", sub.UserID).Msg("chat persist failed")
		return err
	}

	metrics.LiveEventsTotal.WithLabelValues("chat").Inc()
	r.broadcast(Message{Type: MessageChat, SessionID: r.sessionID, Chat: &msg})
	return nil
}

// like upserts the (session, user) like edge. Duplicate likes neither
// error nor broadcast; a new edge broadcasts the fresh derived count.
func (r *room) like(ctx context.Context, sub *Subscriber) error {
	if r.ended {
		r.deliver(sub, Message{Type: MessageError, SessionID: r.sessionID, Code: CodeSessionEnded})
		return storage.ErrSessionEnded
	}

	now := time.Now()
	pctx, cancel := r.persistCtx(ctx)
	added, err := r.store.UpsertLike(pctx, r.sessionID, sub.UserID, now)
	cancel()
	if err != nil {
		r.log.Error().Err(err).Str("user_id", sub.UserID).Msg("like upsert failed")
		return err
	}
	metrics.LiveEventsTotal.WithLabelValues("like").Inc()
	if !added {
		return nil
	}

	if r.bus != nil {
		r.bus.PublishLiveLiked(ctx, events.LiveLiked{SessionID: r.sessionID, UserID: sub.UserID, At: now})
	}
	if likes, err := r.count(ctx, r.store.CountLikes); err == nil {
		r.broadcast(Message{Type: MessageLikeCount, SessionID: r.sessionID, Count: likes})
	}
	return nil
}

// end performs the terminal transition: persist, notify everyone, and
// signal the actor to stop. Ending twice surfaces ErrSessionEnded.
func (r *room) end(ctx context.Context) error {
	if r.ended {
		return storage.ErrSessionEnded
	}

	now := time.Now()
	pctx, cancel := r.persistCtx(ctx)
	err := r.store.EndSession(pctx, r.sessionID, now)
	cancel()
	if err != nil {
		if !errors.Is(err, storage.ErrSessionEnded) {
			r.log.Error().Err(err).Msg("end session failed")
		}
		return err
	}

	r.ended = true
	metrics.LiveEventsTotal.WithLabelValues("end").Inc()
	r.broadcast(Message{Type: MessageEnded, SessionID: r.sessionID})

	if r.bus != nil {
		r.bus.PublishLiveEnded(ctx, events.LiveEnded{SessionID: r.sessionID, HostID: r.hostID, At: now})
	}
	r.log.Info().Msg("session ended")
	return nil
}

// broadcast fans a frame out to every subscriber.
func (r *room) broadcast(msg Message) {
	for sub := range r.subs {
		r.deliver(sub, msg)
	}
}

// deliver sends one frame without blocking the actor. A subscriber
// whose buffer is full is too far behind to catch up; it is detached
// and its channel closed, which the transport treats as a disconnect.
func (r *room) deliver(sub *Subscriber, msg Message) {
	select {
	case sub.Out <- msg:
	default:
		if r.subs[sub] {
			delete(r.subs, sub)
			close(sub.Out)
			metrics.LiveViewersActive.Dec()
			r.log.Warn().Str("user_id", sub.UserID).Msg("dropped slow subscriber")
		}
	}
}

func (r *room) limiter(userID string) *rate.Limiter {
	lim, ok := r.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(r.cfg.ChatRateLimit), r.cfg.ChatRateBurst)
		r.limiters[userID] = lim
	}
	return lim
}

func (r *room) persistCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.cfg.PersistTimeout)
}

func (r *room) persistedChat(ctx context.Context) ([]models.LiveChatMessage, error) {
	pctx, cancel := r.persistCtx(ctx)
	defer cancel()
	return r.store.RecentChat(pctx, r.sessionID, r.cfg.ChatBacklog)
}

func (r *room) count(ctx context.Context, fn func(context.Context, string) (int64, error)) (int64, error) {
	pctx, cancel := r.persistCtx(ctx)
	defer cancel()
	n, err := fn(pctx, r.sessionID)
	if err != nil {
		r.log.Warn().Err(err).Msg("count query failed")
	}
	return n, err
}
