// ABOUTME: Connection manager owning the single live websocket connection of a session
// ABOUTME: Maps transport lifecycle to a state machine and emits events on one channel

package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/2389/chatsync/internal/auth"
	"github.com/2389/chatsync/internal/metrics"
	"github.com/2389/chatsync/internal/syncerr"
)

const (
	defaultReadLimit        = 1 << 20
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 5 * time.Second
	// defaultEventBuffer matches the broadcaster's subscriber buffer.
	defaultEventBuffer = 64

	// Reasons surfaced when the backend gives none.
	defaultAuthReason     = "Invalid or missing token."
	connectionErrorReason = "An error occurred with the WebSocket connection."
)

// ErrAlreadyOpen is returned by Open while a connection is still owned.
var ErrAlreadyOpen = errors.New("connection already open")

// Options configures a Manager.
type Options struct {
	// URL is the websocket endpoint; the token is added as the "token" query parameter.
	URL    string
	Tokens auth.TokenSource

	ReadLimit        int64
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	EventBuffer      int
	Reconnect        ReconnectPolicy

	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *metrics.Collectors
	Now        func() time.Time
}

// Manager owns one live bidirectional connection and its state machine.
// It is safe for concurrent use, but events are delivered to one consumer.
type Manager struct {
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Collectors

	mu      sync.Mutex
	status  Status
	conn    *websocket.Conn
	cancel  context.CancelFunc
	done    chan struct{}
	closing bool
}

// NewManager creates a disconnected Manager.
func NewManager(opts Options) *Manager {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Tokens == nil {
		opts.Tokens = auth.StaticToken("")
	}
	opts.Reconnect = opts.Reconnect.withDefaults()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New(nil)
	}

	return &Manager{
		opts:    opts,
		logger:  logger.With("component", "connection"),
		metrics: m,
		status:  Status{State: StateDisconnected},
	}
}

// Status returns a snapshot of the current connection state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Open reads the current token and starts connecting. It returns the event
// channel, which is closed once the connection is torn down or gives up.
// ctx bounds the lifetime of the connection, including reconnects. Close must
// be called before the manager can be opened again.
//
// Without a token the manager moves to StateErrored and returns a
// CredentialMissing error without attempting a connection.
func (m *Manager) Open(ctx context.Context) (<-chan Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return nil, ErrAlreadyOpen
	}

	token, err := m.acquireToken()
	if err != nil {
		m.setStatusLocked(Status{State: StateErrored, Reason: syncerr.ReasonOf(err), Err: err})
		m.logger.Warn("not connecting", "reason", syncerr.ReasonOf(err))
		return nil, err
	}
	if _, err := m.dialURL(token); err != nil {
		m.setStatusLocked(Status{State: StateErrored, Reason: "invalid websocket url", Err: err})
		return nil, fmt.Errorf("invalid websocket url %q: %w", m.opts.URL, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	events := make(chan Event, m.opts.EventBuffer)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.closing = false
	m.setStatusLocked(Status{State: StateConnecting})

	go m.run(runCtx, token, events, m.done)

	return events, nil
}

// Close tears down the connection regardless of its state and waits for the
// event channel to close. It is safe to call multiple times.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.cancel == nil {
		m.mu.Unlock()
		return nil
	}
	m.closing = true
	conn := m.conn
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	if conn != nil {
		// The peer may already be gone; the transport is released either way.
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
	cancel()
	<-done

	m.mu.Lock()
	m.cancel = nil
	m.done = nil
	m.conn = nil
	m.closing = false
	m.setStatusLocked(Status{State: StateDisconnected})
	m.mu.Unlock()

	m.logger.Debug("connection torn down")
	return nil
}

// Send writes payload to the live connection if and only if the state is
// StateConnected. Otherwise it returns a SendRejected error, which is also
// logged and counted.
func (m *Manager) Send(ctx context.Context, payload []byte) error {
	m.mu.Lock()
	conn := m.conn
	state := m.status.State
	m.mu.Unlock()

	if state != StateConnected || conn == nil {
		m.metrics.SendRejected.Inc()
		m.logger.Warn("send rejected", "state", state.String(), "bytes", len(payload))
		return syncerr.SendRejected(state.String())
	}

	writeCtx, cancel := context.WithTimeout(ctx, m.opts.WriteTimeout)
	defer cancel()

	if err := conn.Write(writeCtx, websocket.MessageText, payload); err != nil {
		m.metrics.SendFailures.Inc()
		m.logger.Warn("send failed", "error", err)
		return syncerr.Transient("write failed", err)
	}

	m.metrics.MessagesSent.Inc()
	return nil
}

// acquireToken reads the token and rejects locally expired JWTs.
func (m *Manager) acquireToken() (string, error) {
	token := m.opts.Tokens.Token()
	if token == "" {
		return "", syncerr.CredentialMissing()
	}
	if err := auth.CheckExpiry(token, m.opts.Now()); err != nil {
		return "", syncerr.AuthenticationRejected(err.Error())
	}
	return token, nil
}

// run drives connect, read, and reconnect until teardown or a terminal failure.
func (m *Manager) run(ctx context.Context, token string, events chan<- Event, done chan<- struct{}) {
	defer close(done)
	defer close(events)
	defer m.released()

	bo := m.opts.Reconnect.newBackOff()
	attempt := 0

	for {
		opened, err := m.connectOnce(ctx, token, events)
		if m.tearingDown(ctx) {
			return
		}
		if err == nil || syncerr.EndsSession(err) || !m.opts.Reconnect.Enabled {
			return
		}

		if opened {
			bo.Reset()
			attempt = 0
		}

		delay := bo.NextBackOff()
		if delay < 0 {
			m.logger.Warn("giving up reconnecting", "attempts", attempt)
			giveUp := syncerr.Transient("reconnect attempts exhausted", err)
			m.setStatus(Status{State: StateErrored, Reason: syncerr.ReasonOf(err), Err: giveUp, Attempt: attempt})
			m.emit(ctx, events, Event{Kind: EventError, Reason: syncerr.ReasonOf(err), Err: giveUp})
			return
		}

		attempt++
		m.metrics.ReconnectAttempt.Inc()
		m.setStatus(Status{State: StateConnecting, Reason: syncerr.ReasonOf(err), Err: err, Attempt: attempt})
		m.logger.Info("reconnecting", "attempt", attempt, "delay", delay)
		m.emit(ctx, events, Event{Kind: EventReconnecting, Attempt: attempt, Delay: delay, Err: err})

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}

		// The token may have been refreshed (or removed) in the meantime.
		token, err = m.acquireToken()
		if err != nil {
			m.setStatus(Status{State: StateErrored, Reason: syncerr.ReasonOf(err), Err: err, Attempt: attempt})
			m.emit(ctx, events, Event{Kind: EventError, Reason: syncerr.ReasonOf(err), Err: err})
			return
		}
	}
}

// connectOnce dials and reads until the connection ends. opened reports
// whether the handshake succeeded. A nil error means the remote closed normally.
func (m *Manager) connectOnce(ctx context.Context, token string, events chan<- Event) (bool, error) {
	// Validated by Open.
	dialURL, _ := m.dialURL(token)

	dialCtx, cancelDial := context.WithTimeout(ctx, m.opts.HandshakeTimeout)
	conn, resp, err := websocket.Dial(dialCtx, dialURL, &websocket.DialOptions{HTTPClient: m.opts.HTTPClient})
	cancelDial()
	if err != nil {
		if m.tearingDown(ctx) {
			return false, ctx.Err()
		}
		return false, m.handshakeFailed(ctx, resp, err, events)
	}
	conn.SetReadLimit(m.opts.ReadLimit)

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		_ = conn.CloseNow()
		return false, context.Canceled
	}
	m.conn = conn
	m.setStatusLocked(Status{State: StateConnected})
	m.mu.Unlock()

	m.logger.Info("connected", "url", m.opts.URL)
	m.emit(ctx, events, Event{Kind: EventOpened})

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			m.mu.Lock()
			if m.conn == conn {
				m.conn = nil
			}
			m.mu.Unlock()
			_ = conn.CloseNow()

			if m.tearingDown(ctx) {
				return true, ctx.Err()
			}
			return true, m.readFailed(ctx, err, events)
		}

		m.metrics.FramesReceived.Inc()
		m.emit(ctx, events, m.frameEvent(typ, data))
	}
}

// handshakeFailed classifies a failed dial. 401/403 responses are
// authentication rejections; everything else is transient.
func (m *Manager) handshakeFailed(ctx context.Context, resp *http.Response, err error, events chan<- Event) error {
	if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		fail := syncerr.AuthenticationRejected(defaultAuthReason)
		m.metrics.ConnectionCloses.WithLabelValues(metrics.CloseAuth).Inc()
		m.setStatus(Status{State: StateErrored, Reason: defaultAuthReason, Err: fail})
		m.logger.Warn("handshake rejected", "status", resp.StatusCode)
		m.emit(ctx, events, Event{Kind: EventError, Reason: defaultAuthReason, Err: fail})
		return fail
	}

	fail := syncerr.Transient(connectionErrorReason, err)
	m.metrics.ConnectionCloses.WithLabelValues(metrics.CloseTransient).Inc()
	m.setStatus(Status{State: StateErrored, Reason: connectionErrorReason, Err: fail})
	m.logger.Warn("handshake failed", "error", err)
	m.emit(ctx, events, Event{Kind: EventError, Reason: connectionErrorReason, Err: fail})
	return fail
}

// readFailed classifies the end of an established connection.
func (m *Manager) readFailed(ctx context.Context, err error, events chan<- Event) error {
	code := websocket.CloseStatus(err)
	var reason string
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		reason = ce.Reason
	}

	switch {
	case code == websocket.StatusPolicyViolation:
		if reason == "" {
			reason = defaultAuthReason
		}
		fail := syncerr.AuthenticationRejected(reason)
		m.metrics.ConnectionCloses.WithLabelValues(metrics.CloseAuth).Inc()
		m.setStatus(Status{State: StateClosed, Code: int(code), Reason: reason, Err: fail})
		m.logger.Info("connection closed", "code", int(code), "reason", reason, "kind", metrics.CloseAuth)
		m.emit(ctx, events, Event{Kind: EventClosed, Code: int(code), Reason: reason, Err: fail})
		return fail

	case code == websocket.StatusNormalClosure:
		m.metrics.ConnectionCloses.WithLabelValues(metrics.CloseNormal).Inc()
		m.setStatus(Status{State: StateClosed, Code: int(code), Reason: reason})
		m.logger.Info("connection closed", "code", int(code), "reason", reason, "kind", metrics.CloseNormal)
		m.emit(ctx, events, Event{Kind: EventClosed, Code: int(code), Reason: reason})
		return nil

	case code != -1:
		fail := syncerr.Transient(fmt.Sprintf("connection closed with code %d", int(code)), err)
		m.metrics.ConnectionCloses.WithLabelValues(metrics.CloseTransient).Inc()
		m.setStatus(Status{State: StateClosed, Code: int(code), Reason: reason, Err: fail})
		m.logger.Info("connection closed", "code", int(code), "reason", reason, "kind", metrics.CloseTransient)
		m.emit(ctx, events, Event{Kind: EventClosed, Code: int(code), Reason: reason, Err: fail})
		return fail

	default:
		fail := syncerr.Transient(connectionErrorReason, err)
		m.metrics.ConnectionCloses.WithLabelValues(metrics.CloseTransient).Inc()
		m.setStatus(Status{State: StateErrored, Reason: connectionErrorReason, Err: fail})
		m.logger.Warn("connection error", "error", err)
		m.emit(ctx, events, Event{Kind: EventError, Reason: connectionErrorReason, Err: fail})
		return fail
	}
}

// frameEvent turns a frame into an EventMessage. Frames that are not chat
// messages are still delivered, with Message nil and a MalformedPayload error.
func (m *Manager) frameEvent(typ websocket.MessageType, data []byte) Event {
	ev := Event{Kind: EventMessage, Raw: data}

	msg, err := DecodeMessage(data)
	if err != nil {
		m.metrics.MalformedFrames.Inc()
		m.logger.Warn("malformed frame",
			"type", typ.String(),
			"error", err,
			"preview", preview(data),
		)
		ev.Err = syncerr.New(syncerr.KindMalformedPayload, err.Error(), err)
		return ev
	}

	ev.Message = msg
	return ev
}

// emit delivers an event in order, giving up only on teardown.
func (m *Manager) emit(ctx context.Context, events chan<- Event, ev Event) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

func (m *Manager) dialURL(token string) (string, error) {
	u, err := url.Parse(m.opts.URL)
	if err != nil {
		return "", err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (m *Manager) tearingDown(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closing
}

// released drops the transport once run exits. Close sets its own status;
// otherwise a live or pending connection becomes Disconnected, and terminal
// Closed or Errored states are kept.
func (m *Manager) released() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conn = nil
	if m.closing {
		return
	}
	if m.status.State == StateConnected || m.status.State == StateConnecting {
		m.setStatusLocked(Status{State: StateDisconnected, Attempt: m.status.Attempt})
	}
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setStatusLocked(s)
}

// setStatusLocked must be called with mu held.
func (m *Manager) setStatusLocked(s Status) {
	m.status = s
	m.metrics.ConnectionState.Set(float64(s.State))
}
