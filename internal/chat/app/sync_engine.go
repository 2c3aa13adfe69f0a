package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"
	"chat_sync_service/pkg/metrics"

	"go.uber.org/zap"
)

// DefaultWindowSize baseline pagination window
const DefaultWindowSize = 50

// State sync engine state
type State int

const (
	// StateIdle no room entered
	StateIdle State = iota
	// StateLoading initial bulk fetch in flight, or failed and waiting for re-enter
	StateLoading
	// StateLive history loaded, live messages merged as they arrive
	StateLive
	// StateLoadingMore wider bulk fetch in flight
	StateLoadingMore
	// StateRefreshing same-size bulk fetch in flight
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLive:
		return "live"
	case StateLoadingMore:
		return "loading_more"
	case StateRefreshing:
		return "refreshing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Snapshot message list of the entered room after a change
type Snapshot struct {
	RoomID      string
	State       State
	Messages    []domain.Message
	FullyLoaded bool
}

// ChangeListener observes the message list. Listeners run one at a time in
// event order with the engine lock released; they may read engine state but
// must not call Enter or Exit.
type ChangeListener func(Snapshot)

// ErrorListener receives failures that have no caller to return to (lost
// subscription, undecodable live record, failed notification). Same calling
// rules as ChangeListener.
type ErrorListener func(roomID string, err error)

// EngineOption configures a SyncEngine
type EngineOption func(*SyncEngine)

// WithWindowSize sets the pagination window, values < 1 are ignored
func WithWindowSize(n int) EngineOption {
	return func(e *SyncEngine) {
		if n > 0 {
			e.window = n
		}
	}
}

// WithChangeListener registers the message list observer
func WithChangeListener(f ChangeListener) EngineOption {
	return func(e *SyncEngine) { e.onChange = f }
}

// WithErrorListener registers the asynchronous error observer
func WithErrorListener(f ErrorListener) EngineOption {
	return func(e *SyncEngine) { e.onError = f }
}

type roomSession struct {
	roomID      string
	state       State
	limit       int
	ctx         context.Context
	cancelCtx   context.CancelFunc
	unsubscribe domain.CancelFunc
	pending     []domain.Message
	closed      bool
	dispatching sync.WaitGroup
}

// release detaches the subscription and waits out a listener call already
// running for this session
func (s *roomSession) release() {
	if s == nil {
		return
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.cancelCtx()
	s.dispatching.Wait()
}

// event one queued listener call; exactly one of snapshot, notify and err is set
type event struct {
	sess     *roomSession
	snapshot *Snapshot
	notify   *domain.Notification
	err      error
}

// SyncEngine keeps one room's messages in step with the remote store: an
// initial bulk fetch, a live append subscription and widening fetches for
// older history. One engine serves one room at a time.
type SyncEngine struct {
	remote   domain.RemoteStore
	gate     domain.NotificationGate
	store    *MessageStore
	window   int
	onChange ChangeListener
	onError  ErrorListener

	mu       sync.Mutex
	session  *roomSession
	outbox   []event
	draining bool
}

// NewSyncEngine create SyncEngine
func NewSyncEngine(remote domain.RemoteStore, gate domain.NotificationGate, opts ...EngineOption) *SyncEngine {
	e := &SyncEngine{
		remote: remote,
		gate:   gate,
		store:  NewMessageStore(),
		window: DefaultWindowSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type fetchResult struct {
	msgs []domain.Message
	err  error
}

// Enter leaves the current room, then loads roomID. The bulk fetch is started
// and the live subscription attached while it runs, so the store may see them
// in either order. Live messages that arrive before the fetch completes are
// held back and merged behind it, so anything the fetch already returned is
// dropped without a notification. On failure the engine stays Loading; call
// Enter again to retry.
func (e *SyncEngine) Enter(ctx context.Context, roomID string) error {
	e.mu.Lock()
	prev := e.detachLocked()
	sessCtx, cancel := context.WithCancel(context.Background())
	sess := &roomSession{
		roomID:    roomID,
		state:     StateLoading,
		limit:     e.window,
		ctx:       sessCtx,
		cancelCtx: cancel,
	}
	e.session = sess
	e.mu.Unlock()
	prev.release()

	metrics.RoomsEntered.Inc()
	logger.Log.Info("enter room", zap.String("room_id", roomID), zap.Int("limit", sess.limit))

	results := make(chan fetchResult, 1)
	go func() {
		msgs, err := e.fetch(ctx, roomID, sess.limit)
		results <- fetchResult{msgs: msgs, err: err}
	}()

	unsubscribe, subErr := e.remote.SubscribeAppends(sessCtx, domain.MessagesPath(roomID),
		func(rec domain.Record) { e.onAppend(sess, rec) },
		func(err error) { e.onSubscriptionError(sess, err) },
	)
	res := <-results

	e.mu.Lock()
	if e.session != sess {
		e.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
		return fmt.Errorf("enter room %s: %w", roomID, domain.ErrSessionClosed)
	}

	if res.err != nil || subErr != nil {
		sess.pending = nil
		e.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
		sess.cancelCtx()

		if res.err != nil {
			metrics.BulkFetches.WithLabelValues("enter", "error").Inc()
			return wrapKind(domain.ErrFetchFailed, "enter room", res.err, zap.String("room_id", roomID))
		}
		return wrapKind(domain.ErrSubscriptionLost, "subscribe room", subErr, zap.String("room_id", roomID))
	}
	defer e.flush()
	defer e.mu.Unlock()

	metrics.BulkFetches.WithLabelValues("enter", "ok").Inc()
	sess.unsubscribe = unsubscribe
	e.store.ReplaceFromBulkFetch(res.msgs)
	sess.state = StateLive

	pending := sess.pending
	sess.pending = nil
	for _, m := range pending {
		e.deliverLocked(sess, m, "buffered")
	}

	logger.Log.Info("room live",
		zap.String("room_id", roomID),
		zap.Int("fetched", len(res.msgs)),
		zap.Int("buffered", len(pending)),
		zap.Bool("fully_loaded", e.store.IsFullyLoaded(sess.limit)),
	)
	e.changedLocked(sess)
	return nil
}

// LoadMore widens the window by one page and refetches. It is a no-op when
// history is fully loaded or another fetch is in flight.
func (e *SyncEngine) LoadMore(ctx context.Context) error {
	e.mu.Lock()
	sess := e.session
	if sess == nil {
		e.mu.Unlock()
		return domain.ErrNoRoom
	}
	if sess.state != StateLive || e.store.IsFullyLoaded(sess.limit) {
		logger.Log.Debug("load more skipped", zap.String("room_id", sess.roomID), zap.String("state", sess.state.String()))
		e.mu.Unlock()
		return nil
	}
	prevLimit := sess.limit
	sess.limit += e.window
	sess.state = StateLoadingMore
	limit := sess.limit
	e.mu.Unlock()

	return e.refetch(ctx, sess, limit, prevLimit, "load_more")
}

// Refresh refetches the current window. Unlike LoadMore it also runs when
// history is fully loaded.
func (e *SyncEngine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	sess := e.session
	if sess == nil {
		e.mu.Unlock()
		return domain.ErrNoRoom
	}
	if sess.state != StateLive {
		e.mu.Unlock()
		return nil
	}
	sess.state = StateRefreshing
	limit := sess.limit
	e.mu.Unlock()

	return e.refetch(ctx, sess, limit, limit, "refresh")
}

func (e *SyncEngine) refetch(ctx context.Context, sess *roomSession, limit, prevLimit int, kind string) error {
	msgs, err := e.fetch(ctx, sess.roomID, limit)

	defer e.flush()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != sess {
		return fmt.Errorf("%s room %s: %w", kind, sess.roomID, domain.ErrSessionClosed)
	}
	sess.state = StateLive

	if err != nil {
		sess.limit = prevLimit
		metrics.BulkFetches.WithLabelValues(kind, "error").Inc()
		return wrapKind(domain.ErrFetchFailed, kind, err, zap.String("room_id", sess.roomID), zap.Int("limit", limit))
	}

	metrics.BulkFetches.WithLabelValues(kind, "ok").Inc()
	before := e.store.Len()
	e.store.ExtendFromBulkFetch(msgs)
	logger.Log.Debug("window refetched",
		zap.String("room_id", sess.roomID),
		zap.String("kind", kind),
		zap.Int("limit", limit),
		zap.Int("before", before),
		zap.Int("after", e.store.Len()),
	)
	e.changedLocked(sess)
	return nil
}

// Exit detaches the live subscription and drops the room's messages. It
// waits for a listener call already running for the room, so no merge or
// notification for the room happens after it returns. An empty roomID exits
// whatever room is entered; a roomID that is not entered is ignored.
func (e *SyncEngine) Exit(roomID string) {
	e.mu.Lock()
	if e.session == nil || (roomID != "" && e.session.roomID != roomID) {
		e.mu.Unlock()
		return
	}
	sess := e.detachLocked()
	e.mu.Unlock()

	sess.release()
	logger.Log.Info("exit room", zap.String("room_id", sess.roomID))
}

func (e *SyncEngine) detachLocked() *roomSession {
	sess := e.session
	if sess == nil {
		return nil
	}
	sess.closed = true
	sess.pending = nil
	e.session = nil
	e.store.reset()
	return sess
}

func (e *SyncEngine) onAppend(sess *roomSession, rec domain.Record) {
	m, decodeErr := domain.MessageFromRecord(rec)

	defer e.flush()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != sess || sess.closed {
		return
	}
	if decodeErr != nil {
		e.reportLocked(sess, fmt.Errorf("live record: %w", decodeErr))
		return
	}
	if sess.state == StateLoading {
		sess.pending = append(sess.pending, m)
		return
	}
	if e.deliverLocked(sess, m, "live") {
		e.changedLocked(sess)
	}
}

// onSubscriptionError handles both a dropped channel and a single live record
// the store could not decode; only the former ends the subscription.
func (e *SyncEngine) onSubscriptionError(sess *roomSession, err error) {
	defer e.flush()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != sess || sess.closed {
		return
	}
	if !errors.Is(err, domain.ErrSubscriptionLost) {
		e.reportLocked(sess, fmt.Errorf("live record: %w", wrapKindQuiet(domain.ErrStoreUnavailable, err)))
		return
	}
	metrics.SubscriptionsLost.Inc()
	logger.Log.Warn("live subscription lost", zap.String("room_id", sess.roomID), zap.Error(err))
	e.reportLocked(sess, wrapKindQuiet(domain.ErrSubscriptionLost, err))
}

// deliverLocked merges one live message and fires its notification
func (e *SyncEngine) deliverLocked(sess *roomSession, m domain.Message, stage string) bool {
	if !e.store.mergeIncoming(m) {
		metrics.DuplicatesDropped.WithLabelValues(stage).Inc()
		logger.Log.Debug("duplicate dropped", zap.String("room_id", sess.roomID), zap.String("message_id", m.ID), zap.String("stage", stage))
		return false
	}
	metrics.LiveMessagesMerged.Inc()

	if e.gate != nil {
		e.outbox = append(e.outbox, event{sess: sess, notify: &domain.Notification{
			Text:      m.Text,
			RoomID:    sess.roomID,
			MessageID: m.ID,
		}})
	}
	return true
}

func (e *SyncEngine) changedLocked(sess *roomSession) {
	if e.onChange == nil {
		return
	}
	e.outbox = append(e.outbox, event{sess: sess, snapshot: &Snapshot{
		RoomID:      sess.roomID,
		State:       sess.state,
		Messages:    e.store.Messages(),
		FullyLoaded: e.store.IsFullyLoaded(sess.limit),
	}})
}

func (e *SyncEngine) reportLocked(sess *roomSession, err error) {
	logger.Log.Error("sync engine error", zap.String("room_id", sess.roomID), zap.Error(err))
	if e.onError != nil {
		e.outbox = append(e.outbox, event{sess: sess, err: err})
	}
}

// flush runs queued listener calls in order with the lock released. If
// another goroutine is already flushing it picks up this caller's events.
// Events of a session that was exited meanwhile are dropped.
func (e *SyncEngine) flush() {
	e.mu.Lock()
	if e.draining {
		e.mu.Unlock()
		return
	}
	e.draining = true
	for len(e.outbox) > 0 {
		ev := e.outbox[0]
		e.outbox = e.outbox[1:]
		if ev.sess.closed {
			continue
		}
		ev.sess.dispatching.Add(1)
		e.mu.Unlock()
		e.dispatch(ev)
		ev.sess.dispatching.Done()
		e.mu.Lock()
	}
	e.outbox = nil
	e.draining = false
	e.mu.Unlock()
}

func (e *SyncEngine) dispatch(ev event) {
	switch {
	case ev.snapshot != nil:
		e.onChange(*ev.snapshot)
	case ev.err != nil:
		e.onError(ev.sess.roomID, ev.err)
	case ev.notify != nil:
		if err := e.gate.FireLocal(ev.sess.ctx, *ev.notify); err != nil {
			err = fmt.Errorf("notify message %s: %w", ev.notify.MessageID, err)
			logger.Log.Error("sync engine error", zap.String("room_id", ev.sess.roomID), zap.Error(err))
			if e.onError != nil {
				e.onError(ev.sess.roomID, err)
			}
			return
		}
		metrics.NotificationsFired.Inc()
	}
}

func (e *SyncEngine) fetch(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	recs, err := e.remote.ReadRange(ctx, domain.MessagesPath(roomID), domain.FieldDate, limit)
	if err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(recs))
	for _, r := range recs {
		m, err := domain.MessageFromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// State current engine state
func (e *SyncEngine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return StateIdle
	}
	return e.session.state
}

// RoomID entered room, empty when idle
func (e *SyncEngine) RoomID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ""
	}
	return e.session.roomID
}

// Limit current pagination window, 0 when idle
func (e *SyncEngine) Limit() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return 0
	}
	return e.session.limit
}

// IsFullyLoaded whether the entered room's whole history is known
func (e *SyncEngine) IsFullyLoaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return false
	}
	return e.store.IsFullyLoaded(e.session.limit)
}

// Messages entered room's messages in display order
func (e *SyncEngine) Messages() []domain.Message {
	return e.store.Messages()
}
