// Package connection keeps exactly one live WebSocket per room session.
package connection

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/domain"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/errors"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/protocol"
	"github.com/NguyenNhatquang522004/Nexus-Learn-sub001/internal/telemetry"
)

const (
	DefaultReconnectDelay       = 3 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultHeartbeatInterval    = 30 * time.Second
	DefaultHandshakeTimeout     = 10 * time.Second
	DefaultWriteTimeout         = 10 * time.Second
)

var errPongTimeout = stderrors.New("pong not received")

// Replayer provides the subscriptions to re-issue on every open.
type Replayer interface {
	Replay() protocol.Outbound
	Topics() []string
}

type Config struct {
	// Scheme is ws or wss.
	Scheme    string
	Host      string
	Namespace string
	// Token returns the bearer token. An empty token still connects; the server decides.
	Token func() string

	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	HeartbeatInterval    time.Duration
	// PongTimeout closes the socket when no pong follows a ping in time. Zero disables it.
	PongTimeout      time.Duration
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration

	Dialer Dialer
	Clock  Clock
	// Post runs f on the goroutine that owns the session. Every callback of the manager
	// (frames, closes, timers) goes through it.
	Post          func(f func()) bool
	Replayer      Replayer
	OnFrame       func(frame []byte)
	OnStateChange func(s domain.ConnectionState)
}

// Manager owns the socket, the reconnect timer and the heartbeat timer of one session.
// It is not safe for concurrent use: all methods must be called from the goroutine behind Post.
type Manager struct {
	scheme, host, namespace string
	token                   func() string

	delay             time.Duration
	maxAttempts       int
	heartbeatInterval time.Duration
	pongTimeout       time.Duration
	handshakeTimeout  time.Duration

	dialer        Dialer
	clock         Clock
	post          func(f func()) bool
	replayer      Replayer
	onFrame       func(frame []byte)
	onStateChange func(s domain.ConnectionState)

	conn     Conn
	gen      uint64
	attempts int
	err      error

	// dialGen tags the dial in flight. A result whose tag is no longer current is discarded.
	dialGen    uint64
	cancelDial context.CancelFunc

	reconnect *pending
	heartbeat *pending
	pongWait  *pending
}

func NewManager(c Config) *Manager {
	m := &Manager{
		scheme:            c.Scheme,
		host:              c.Host,
		namespace:         c.Namespace,
		token:             c.Token,
		delay:             c.ReconnectDelay,
		maxAttempts:       c.MaxReconnectAttempts,
		heartbeatInterval: c.HeartbeatInterval,
		pongTimeout:       c.PongTimeout,
		handshakeTimeout:  c.HandshakeTimeout,
		dialer:            c.Dialer,
		clock:             c.Clock,
		post:              c.Post,
		replayer:          c.Replayer,
		onFrame:           c.OnFrame,
		onStateChange:     c.OnStateChange,
	}

	if m.scheme == "" {
		m.scheme = "ws"
	}
	if m.token == nil {
		m.token = func() string { return "" }
	}
	if m.delay <= 0 {
		m.delay = DefaultReconnectDelay
	}
	if m.maxAttempts <= 0 {
		m.maxAttempts = DefaultMaxReconnectAttempts
	}
	if m.heartbeatInterval <= 0 {
		m.heartbeatInterval = DefaultHeartbeatInterval
	}
	if m.handshakeTimeout <= 0 {
		m.handshakeTimeout = DefaultHandshakeTimeout
	}
	if m.dialer == nil {
		wt := c.WriteTimeout
		if wt <= 0 {
			wt = DefaultWriteTimeout
		}
		m.dialer = NewWebsocketDialer(m.handshakeTimeout, wt)
	}
	if m.clock == nil {
		m.clock = realClock{}
	}
	if m.post == nil {
		m.post = func(f func()) bool { f(); return true }
	}
	if m.onFrame == nil {
		m.onFrame = func([]byte) {}
	}

	return m
}

// URL is ws|wss://<host>/ws/<namespace>?token=<bearer>.
func (m *Manager) URL() string {
	u := url.URL{Scheme: m.scheme, Host: m.host, Path: "/ws/" + m.namespace}
	if tok := m.token(); tok != "" {
		u.RawQuery = url.Values{"token": {tok}}.Encode()
	}
	return u.String()
}

// Connect starts opening the socket and returns without waiting for the handshake. It is a no-op
// while a socket is open or being dialed.
// After a terminal failure it starts a fresh series of reconnect attempts.
func (m *Manager) Connect() {
	if m.conn != nil || m.cancelDial != nil {
		return
	}

	m.reconnect.stop()
	m.reconnect = nil

	if m.err != nil {
		m.err = nil
		m.attempts = 0
	}

	m.dial()
}

// Disconnect closes the socket for good. The reconnect timer is cancelled before the socket is
// closed, so the close cannot schedule a new connection.
func (m *Manager) Disconnect() {
	m.reconnect.stop()
	m.reconnect = nil
	m.abortDial()

	m.teardown()
	m.attempts = 0
	m.err = nil

	slog.Info("connection: disconnected", "host", m.host, "namespace", m.namespace)
	m.notify()
}

// Send writes msg to the socket. Messages are never queued: while disconnected they are dropped
// with a warning and a CodeFailedPrecondition error.
func (m *Manager) Send(msg protocol.Outbound) error {
	if m.conn == nil {
		slog.Warn("connection: not connected, message dropped", "type", msg.Type())
		telemetry.MessagesDropped.WithLabelValues(msg.Type()).Inc()
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("connection: not connected, %s dropped", msg.Type()))
	}

	b, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	if err := m.conn.WriteMessage(b); err != nil {
		// The reader sees the broken socket as well and drives the reconnect.
		slog.Warn("connection: write failed", "type", msg.Type(), "error", err)
		return errors.New(errors.CodeUnavailable,
			errors.WithMessagef("connection: write %s", msg.Type()),
			errors.WithCause(err))
	}

	telemetry.MessagesSent.WithLabelValues(msg.Type()).Inc()
	return nil
}

// HandlePong cancels the pong deadline.
func (m *Manager) HandlePong() {
	m.pongWait.stop()
	m.pongWait = nil
}

func (m *Manager) IsConnected() bool {
	return m.conn != nil
}

// Err returns the terminal connection error, if reconnecting has been given up.
func (m *Manager) Err() error {
	return m.err
}

func (m *Manager) State() domain.ConnectionState {
	s := domain.ConnectionState{
		IsConnected:       m.conn != nil,
		ReconnectAttempts: m.attempts,
		SubscribedTopics:  []string{},
	}
	if m.replayer != nil {
		s.SubscribedTopics = m.replayer.Topics()
	}
	if m.err != nil {
		s.Error = errors.Convert(m.err).Message
	}
	return s
}

// dial runs the handshake on its own goroutine and hands the result back through post.
func (m *Manager) dial() {
	ctx, cancel := context.WithTimeout(context.Background(), m.handshakeTimeout)
	m.dialGen++
	m.cancelDial = cancel
	gen, url := m.dialGen, m.URL()

	go func() {
		defer cancel()

		conn, err := m.dialer.Dial(ctx, url)
		ok := m.post(func() { m.dialed(gen, conn, err) })
		if !ok && conn != nil {
			_ = conn.Close()
		}
	}()
}

func (m *Manager) dialed(gen uint64, conn Conn, err error) {
	if gen != m.dialGen {
		if conn != nil {
			slog.Debug("connection: discarding dial", "host", m.host, "namespace", m.namespace)
			_ = conn.Close()
		}
		return
	}
	m.cancelDial = nil

	if err != nil {
		slog.Warn("connection: dial failed", "host", m.host, "namespace", m.namespace, "error", err)
		m.lost(err)
		return
	}

	m.open(conn)
}

// abortDial detaches the dial in flight, if any.
func (m *Manager) abortDial() {
	if m.cancelDial == nil {
		return
	}
	m.dialGen++
	m.cancelDial()
	m.cancelDial = nil
}

func (m *Manager) open(conn Conn) {
	m.gen++
	gen := m.gen

	m.conn = conn
	m.attempts = 0
	m.err = nil
	telemetry.ConnectedSessions.Inc()

	go m.read(conn, gen)
	m.scheduleHeartbeat()

	slog.Info("connection: open", "host", m.host, "namespace", m.namespace)

	if m.replayer != nil {
		if msg := m.replayer.Replay(); msg != nil {
			_ = m.Send(msg)
		}
	}

	m.notify()
}

func (m *Manager) read(conn Conn, gen uint64) {
	for {
		frame, err := conn.ReadMessage()
		if err != nil {
			m.post(func() { m.closed(gen, err) })
			return
		}

		ok := m.post(func() {
			if gen == m.gen {
				m.onFrame(frame)
			}
		})
		if !ok {
			return
		}
	}
}

// closed handles the end of the reader. Closes of a detached socket are ignored.
func (m *Manager) closed(gen uint64, err error) {
	if gen != m.gen || m.conn == nil {
		return
	}

	slog.Warn("connection: closed unexpectedly", "host", m.host, "namespace", m.namespace, "error", err)
	m.teardown()
	m.lost(err)
}

// teardown stops the connection timers and closes the socket, detaching its reader.
func (m *Manager) teardown() {
	m.heartbeat.stop()
	m.heartbeat = nil
	m.pongWait.stop()
	m.pongWait = nil

	if m.conn == nil {
		return
	}

	m.gen++
	if err := m.conn.Close(); err != nil {
		slog.Debug("connection: close failed", "error", err)
	}
	m.conn = nil
	telemetry.ConnectedSessions.Dec()
}

// lost schedules the next reconnect attempt, or gives up once the attempts are exhausted.
func (m *Manager) lost(cause error) {
	if m.attempts >= m.maxAttempts {
		m.err = errors.New(errors.CodeUnavailable,
			errors.WithMessagef("connection lost: gave up after %d reconnect attempts", m.attempts),
			errors.WithCause(cause))
		telemetry.ConnectionsLost.Inc()
		slog.Error("connection: reconnect attempts exhausted",
			"host", m.host,
			"namespace", m.namespace,
			"attempts", m.attempts,
			"error", cause,
		)
		m.notify()
		return
	}

	m.attempts++
	telemetry.ReconnectAttempts.Inc()
	slog.Info("connection: reconnect scheduled", "attempt", m.attempts, "delay", m.delay)

	m.reconnect = m.after(m.delay, func() {
		m.reconnect = nil
		if m.conn != nil || m.cancelDial != nil {
			return
		}
		m.dial()
	})

	m.notify()
}

func (m *Manager) scheduleHeartbeat() {
	m.heartbeat = m.after(m.heartbeatInterval, func() {
		m.heartbeat = nil
		if m.conn == nil {
			return
		}

		if err := m.Send(protocol.Ping{}); err == nil && m.pongTimeout > 0 && m.pongWait == nil {
			m.pongWait = m.after(m.pongTimeout, func() {
				m.pongWait = nil
				if m.conn == nil {
					return
				}
				slog.Warn("connection: pong not received", "timeout", m.pongTimeout)
				m.teardown()
				m.lost(errPongTimeout)
			})
		}

		m.scheduleHeartbeat()
	})
}

func (m *Manager) notify() {
	if m.onStateChange != nil {
		m.onStateChange(m.State())
	}
}

// pending is a timer whose callback runs on the session goroutine. Once stopped, the callback
// never runs, even if the underlying timer already fired and its callback is queued.
type pending struct {
	t       Timer
	stopped bool
}

func (m *Manager) after(d time.Duration, f func()) *pending {
	p := &pending{}
	p.t = m.clock.AfterFunc(d, func() {
		m.post(func() {
			if p.stopped {
				return
			}
			p.stopped = true
			f()
		})
	})
	return p
}

func (p *pending) stop() {
	if p == nil {
		return
	}
	p.stopped = true
	p.t.Stop()
}
