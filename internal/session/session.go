// ABOUTME: Session lifecycle tying the connection, history view, and inbox together
// ABOUTME: Serializes every merge; authentication failures from any source end the session

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/2389/chatsync/internal/chat"
	"github.com/2389/chatsync/internal/connection"
	"github.com/2389/chatsync/internal/conversation"
	"github.com/2389/chatsync/internal/dedupe"
	"github.com/2389/chatsync/internal/inbox"
	"github.com/2389/chatsync/internal/syncerr"
)

const (
	defaultDiscoveryTTL = 30 * time.Second
	discoveryCacheSize  = 1024
)

// Session errors
var (
	ErrAlreadyStarted = errors.New("session already started")
	ErrClosed         = errors.New("session closed")
	// ErrSuperseded is returned by OpenConversation when another conversation
	// was opened before its history arrived. The result was discarded.
	ErrSuperseded = errors.New("conversation load superseded")
)

// Backend is the request/response API the session consumes.
type Backend interface {
	Me(ctx context.Context) (*chat.Identity, error)
	Users(ctx context.Context) ([]chat.User, error)
	Conversations(ctx context.Context) ([]chat.Conversation, error)
	Messages(ctx context.Context, conversationID int64) ([]chat.Message, error)
	CreateConversation(ctx context.Context, peerID int64) (int64, error)
}

// Connection is the live connection the session owns.
type Connection interface {
	Open(ctx context.Context) (<-chan connection.Event, error)
	Send(ctx context.Context, payload []byte) error
	Status() connection.Status
	Close() error
}

// Options configures a Session.
type Options struct {
	Backend    Backend
	Connection Connection
	// DiscoveryTTL is the minimum interval between two discovery signals for
	// the same conversation.
	DiscoveryTTL time.Duration
	Logger       *slog.Logger
}

// Session is one signed-in chat session: exactly one connection, at most one
// open conversation, and the last inbox snapshot.
type Session struct {
	id         string
	backend    Backend
	conn       Connection
	logger     *slog.Logger
	signals    *broadcaster
	discovered *dedupe.Cache[int64]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	started    bool
	closed     bool
	identity   *chat.Identity
	view       *conversation.View
	generation uint64
	cancelLoad context.CancelFunc
	snapshot   *inbox.Inbox

	endOnce sync.Once
	endErr  error
	done    chan struct{}
}

// New creates a session. Nothing is opened until Start.
func New(opts Options) *Session {
	if opts.DiscoveryTTL <= 0 {
		opts.DiscoveryTTL = defaultDiscoveryTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New().String()
	logger = logger.With("component", "session", "session_id", id)

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:         id,
		backend:    opts.Backend,
		conn:       opts.Connection,
		logger:     logger,
		signals:    newBroadcaster(logger),
		discovered: dedupe.New[int64](opts.DiscoveryTTL, discoveryCacheSize),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// Start opens the connection and resolves the current identity in the
// background. A missing or rejected credential ends the session and is
// returned. Any other Open failure leaves the session unstarted, so Start
// may be retried. When ctx is done the session ends as if Close were called.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	events, err := s.conn.Open(s.ctx)
	if err != nil {
		if syncerr.EndsSession(err) {
			s.end(err)
		} else {
			s.mu.Lock()
			s.started = false
			s.mu.Unlock()
		}
		return fmt.Errorf("opening connection: %w", err)
	}

	context.AfterFunc(ctx, func() { _ = s.Close() })

	s.wg.Go(func() { s.pump(events) })
	s.wg.Go(func() {
		if _, err := s.resolveIdentity(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("identity unresolved", "error", err)
		}
	})

	s.logger.Info("session started")
	return nil
}

// Subscribe returns a channel of signals. It is closed when ctx is done or
// the session is closed. Slow subscribers miss signals rather than block.
func (s *Session) Subscribe(ctx context.Context) <-chan Signal {
	ch, _ := s.signals.subscribe(ctx)
	return ch
}

// Done is closed when the session has ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the session, or nil.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.endErr
	default:
		return nil
	}
}

// Status returns the connection status.
func (s *Session) Status() connection.Status {
	return s.conn.Status()
}

// Identity returns the current user, or nil while unresolved.
func (s *Session) Identity() *chat.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Close tears down the connection, cancels in-flight fetches, and closes
// every subscriber channel. It is safe to call multiple times.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	s.mu.Unlock()

	s.cancel()
	err := s.conn.Close()
	s.wg.Wait()

	s.end(nil)
	s.signals.close()
	s.discovered.Close()

	s.logger.Info("session closed")
	return err
}

// end records why the session ended. Only the first call has an effect.
func (s *Session) end(err error) {
	s.endOnce.Do(func() {
		s.endErr = err
		if err != nil {
			s.logger.Warn("session ended", "reason", syncerr.ReasonOf(err), "error", err)
		}
		s.signals.publish(Signal{Kind: SignalEnded, Err: err})
		close(s.done)
		s.cancel()
	})
}

// fail ends the session when err is an authentication failure and returns err.
func (s *Session) fail(err error) error {
	if syncerr.EndsSession(err) {
		s.end(err)
	}
	return err
}

// pump applies connection events in delivery order.
func (s *Session) pump(events <-chan connection.Event) {
	var last connection.State
	for ev := range events {
		switch ev.Kind {
		case connection.EventMessage:
			if ev.Message == nil {
				s.signals.publish(Signal{Kind: SignalRaw, Raw: ev.Raw, Err: ev.Err})
				continue
			}
			s.applyMessage(*ev.Message)

		default:
			status := s.conn.Status()
			last = status.State
			s.signals.publish(Signal{Kind: SignalStatus, Status: status, Err: ev.Err})
			if syncerr.EndsSession(ev.Err) {
				s.end(ev.Err)
			}
		}
	}

	// The stream ended without an event for the final state, as when the
	// session ends on a REST rejection.
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if status := s.conn.Status(); !closed && status.State != last {
		s.signals.publish(Signal{Kind: SignalStatus, Status: status})
	}
}

// applyMessage merges a live message into the open view and raises
// discovery for conversations the inbox does not know.
func (s *Session) applyMessage(msg chat.Message) {
	s.mu.Lock()
	var openID int64
	merged := false
	if s.view != nil {
		openID = s.view.ConversationID()
		merged = s.view.Merge(msg)
		msg = msg.WithOwner(s.identity)
	}
	known := s.snapshot != nil && s.snapshot.Knows(msg.ConversationID)
	s.mu.Unlock()

	if merged {
		s.signals.publish(Signal{Kind: SignalMessage, ConversationID: msg.ConversationID, Message: &msg})
		return
	}
	if msg.ConversationID == openID || known {
		return
	}
	if !s.discovered.CheckAndMark(msg.ConversationID) {
		s.logger.Debug("conversation discovered", "conversation_id", msg.ConversationID)
		s.signals.publish(Signal{Kind: SignalConversationDiscovered, ConversationID: msg.ConversationID})
	}
}

// resolveIdentity returns the current user, fetching it once.
func (s *Session) resolveIdentity(ctx context.Context) (*chat.Identity, error) {
	if id := s.Identity(); id != nil {
		return id, nil
	}

	me, err := s.backend.Me(ctx)
	if err != nil {
		return nil, s.fail(fmt.Errorf("fetching identity: %w", err))
	}

	s.mu.Lock()
	first := s.identity == nil
	if first {
		s.identity = me
		if s.view != nil {
			s.view.SetIdentity(me)
		}
	}
	identity := *s.identity
	s.mu.Unlock()

	if first {
		s.signals.publish(Signal{Kind: SignalIdentity, Identity: &identity})
	}
	return &identity, nil
}

// OpenConversation replaces the open conversation with conversationID and
// loads its history. A fetch still running for the previous conversation is
// cancelled, and a result arriving after a newer OpenConversation is
// discarded with ErrSuperseded. Live messages for the conversation that
// arrive while history loads are kept.
func (s *Session) OpenConversation(ctx context.Context, conversationID int64) error {
	if conversationID <= 0 {
		return fmt.Errorf("invalid conversation id %d", conversationID)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.cancelLoad != nil {
		s.cancelLoad()
	}
	s.generation++
	gen := s.generation
	view := conversation.NewView(conversationID)
	view.SetIdentity(s.identity)
	s.view = view
	loadCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	s.cancelLoad = cancel
	s.mu.Unlock()
	defer stop()
	defer cancel()

	history, err := s.backend.Messages(loadCtx, conversationID)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("discarding stale history", "conversation_id", conversationID)
		return ErrSuperseded
	}
	s.cancelLoad = nil
	if err != nil {
		s.view = nil
		s.mu.Unlock()
		return s.fail(fmt.Errorf("loading conversation %d: %w", conversationID, err))
	}
	// A fresh view cannot already be loaded.
	_ = view.Load(history)
	s.mu.Unlock()

	s.logger.Debug("history loaded", "conversation_id", conversationID, "messages", len(history))
	s.signals.publish(Signal{Kind: SignalHistoryLoaded, ConversationID: conversationID})
	return nil
}

// CloseConversation discards the open conversation.
func (s *Session) CloseConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelLoad != nil {
		s.cancelLoad()
		s.cancelLoad = nil
	}
	s.generation++
	s.view = nil
}

// ViewSnapshot is a copy of the open conversation.
type ViewSnapshot struct {
	ConversationID int64
	Title          string
	Loaded         bool
	Messages       []chat.Message
}

// View returns a copy of the open conversation, or false when none is open.
func (s *Session) View() (ViewSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return ViewSnapshot{}, false
	}
	return ViewSnapshot{
		ConversationID: s.view.ConversationID(),
		Title:          s.view.Title(),
		Loaded:         s.view.Loaded(),
		Messages:       s.view.Messages(),
	}, true
}

// RefreshInbox fetches users and conversations concurrently and aggregates
// them into a new snapshot.
func (s *Session) RefreshInbox(ctx context.Context) (inbox.Inbox, error) {
	var (
		users         []chat.User
		conversations []chat.Conversation
		identity      *chat.Identity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.backend.Users(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		conversations, err = s.backend.Conversations(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		identity, err = s.resolveIdentity(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return inbox.Inbox{}, s.fail(fmt.Errorf("refreshing inbox: %w", err))
	}

	snapshot := inbox.Aggregate(users, conversations, identity.ID)

	s.mu.Lock()
	s.snapshot = &snapshot
	s.mu.Unlock()

	// Known conversations no longer need debouncing. One that later drops
	// out of the inbox is announced again on its next message.
	for _, c := range conversations {
		if snapshot.Knows(c.ID) {
			s.discovered.Forget(c.ID)
		}
	}

	s.signals.publish(Signal{Kind: SignalInbox, Inbox: &snapshot})
	return snapshot, nil
}

// Inbox returns the last snapshot, or false before the first refresh.
func (s *Session) Inbox() (inbox.Inbox, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return inbox.Inbox{}, false
	}
	return *s.snapshot, true
}

// StartConversation returns the id of the conversation with peerID, creating
// it when the last snapshot has none.
func (s *Session) StartConversation(ctx context.Context, peerID int64) (int64, error) {
	s.mu.Lock()
	if s.snapshot != nil {
		if summary, ok := s.snapshot.ConversationWith(peerID); ok && summary.HasConversation() {
			s.mu.Unlock()
			return *summary.ConversationID, nil
		}
	}
	s.mu.Unlock()

	id, err := s.backend.CreateConversation(ctx, peerID)
	if err != nil {
		return 0, s.fail(fmt.Errorf("creating conversation with user %d: %w", peerID, err))
	}
	s.logger.Info("conversation created", "conversation_id", id, "peer_id", peerID)
	return id, nil
}
