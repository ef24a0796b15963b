package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Default transport settings.
const (
	DefaultDialTimeout      = 10 * time.Second
	DefaultWriteWait        = 10 * time.Second
	DefaultMaxMessageSize   = 16 * 1024 * 1024
	DefaultCloseGracePeriod = time.Second
	DefaultOutboundQueue    = 256
)

// CloseReason is sent with the normal closure frame on Disconnect.
const CloseReason = "bye"

const debugDumpLimit = 1000

// TransportConfig configures a Transport.
type TransportConfig struct {
	// URL is the realtime WebSocket endpoint.
	URL string

	// APIKey, when set, is sent as a bearer token together with the
	// OpenAI-Beta realtime header.
	APIKey string

	// Headers are added to the handshake request.
	Headers http.Header

	DialTimeout      time.Duration
	WriteWait        time.Duration
	MaxMessageSize   int64
	CloseGracePeriod time.Duration

	// OutboundQueue bounds the messages waiting to be written on one
	// connection. Send drops the newest message when it is full.
	OutboundQueue int

	Logger *slog.Logger
}

func (c *TransportConfig) withDefaults() TransportConfig {
	cfg := *c
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = DefaultWriteWait
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	if cfg.CloseGracePeriod <= 0 {
		cfg.CloseGracePeriod = DefaultCloseGracePeriod
	}
	if cfg.OutboundQueue <= 0 {
		cfg.OutboundQueue = DefaultOutboundQueue
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

func (c *TransportConfig) header() http.Header {
	h := http.Header{}
	for k, vs := range c.Headers {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	if c.APIKey != "" {
		h.Set("Authorization", "Bearer "+c.APIKey)
		h.Set("OpenAI-Beta", "realtime=v1")
	}
	return h
}

// Subscriber receives what a Transport reads and every state transition.
//
// HandleMessage is called once per inbound text message, in receipt order,
// from the connection's read goroutine. HandleStatus is called for every
// transition, in order. Neither may call Connect or Disconnect.
type Subscriber interface {
	HandleMessage(data []byte)
	HandleStatus(status ConnStatus)
}

// Transport is a full-duplex text message connection to a realtime
// endpoint. It holds at most one connection at a time and never reconnects
// on its own.
type Transport struct {
	cfg TransportConfig
	log *slog.Logger

	// notifyMu orders transitions and their delivery to the subscriber.
	notifyMu sync.Mutex

	mu     sync.Mutex
	status ConnStatus
	link   *link
	sub    Subscriber
	subGen uint64
}

// link is one established connection. Its queue never outlives it.
type link struct {
	id     string
	conn   *websocket.Conn
	outbox chan []byte

	quit      chan struct{}
	quitOnce  sync.Once
	closing   atomic.Bool
	broken    atomic.Bool
	readDone  chan struct{}
	writeDone chan struct{}
}

func (l *link) stop() {
	l.quitOnce.Do(func() { close(l.quit) })
}

// NewTransport creates a disconnected Transport.
func NewTransport(cfg *TransportConfig) *Transport {
	if cfg == nil {
		cfg = &TransportConfig{}
	}
	c := cfg.withDefaults()
	return &Transport{
		cfg: c,
		log: c.Logger,
	}
}

// Status returns the current connection status.
func (t *Transport) Status() ConnStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Subscribe registers the single subscriber. The returned cancel function
// unregisters it and is safe to call more than once.
func (t *Transport) Subscribe(s Subscriber) (cancel func(), err error) {
	if s == nil {
		return nil, errors.New("realtime: nil subscriber")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sub != nil {
		return nil, ErrAlreadySubscribed
	}
	t.sub = s
	t.subGen++
	gen := t.subGen
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.subGen == gen {
			t.sub = nil
		}
	}, nil
}

func (t *Transport) subscriber() Subscriber {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sub
}

// transition applies fn under the state lock and delivers the resulting
// status. fn returns false to leave the state untouched.
func (t *Transport) transition(fn func() bool) {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	if !fn() {
		t.mu.Unlock()
		return
	}
	st := t.status
	sub := t.sub
	t.mu.Unlock()

	t.log.Debug("realtime status", "state", st.State, "conn_id", st.ConnID, "error", st.Err)
	if sub != nil {
		sub.HandleStatus(st)
	}
}

// Connect dials the endpoint and blocks until the connection is open or has
// failed. The dial is bounded by ctx and the configured DialTimeout. On
// failure the transport is left in StateFailed and the *ConnError is
// returned.
func (t *Transport) Connect(ctx context.Context) error {
	id := uuid.NewString()
	var busy bool
	t.transition(func() bool {
		switch t.status.State {
		case StateConnecting, StateOpen:
			busy = true
			return false
		}
		t.status = ConnStatus{State: StateConnecting, ConnID: id}
		return true
	})
	if busy {
		return ErrAlreadyConnected
	}

	dialCtx, cancel := context.WithTimeout(ctx, t.cfg.DialTimeout)
	defer cancel()

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: t.cfg.DialTimeout,
	}
	t.log.Debug("realtime dial", "url", t.cfg.URL, "conn_id", id)
	conn, resp, err := dialer.DialContext(dialCtx, t.cfg.URL, t.cfg.header())
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		cerr := &ConnError{Op: "dial", Err: err}
		if resp != nil {
			cerr.HTTPStatus = resp.StatusCode
		}
		t.log.Error("realtime dial failed", "url", t.cfg.URL, "status", cerr.HTTPStatus, "error", err)
		t.transition(func() bool {
			if t.status.ConnID != id || t.status.State != StateConnecting {
				return false
			}
			t.status = ConnStatus{State: StateFailed, ConnID: id, Err: cerr}
			return true
		})
		return cerr
	}
	conn.SetReadLimit(t.cfg.MaxMessageSize)

	l := &link{
		id:        id,
		conn:      conn,
		outbox:    make(chan []byte, t.cfg.OutboundQueue),
		quit:      make(chan struct{}),
		readDone:  make(chan struct{}),
		writeDone: make(chan struct{}),
	}

	var superseded bool
	t.transition(func() bool {
		if t.status.ConnID != id || t.status.State != StateConnecting {
			superseded = true
			return false
		}
		t.link = l
		t.status = ConnStatus{State: StateOpen, ConnID: id}
		go t.writeLoop(l)
		go t.readLoop(l)
		return true
	})
	if superseded {
		// Disconnect was called while dialing.
		_ = conn.Close()
		return fmt.Errorf("realtime: connect %s: %w", id, ErrClosed)
	}
	t.log.Info("realtime connected", "url", t.cfg.URL, "conn_id", id)
	return nil
}

// Send queues one text message on the open connection without blocking.
// It returns ErrNotConnected when there is no open connection and
// ErrQueueFull when the connection's outbound queue is full. In both cases
// the message is dropped.
func (t *Transport) Send(data []byte) error {
	t.mu.Lock()
	l := t.link
	t.mu.Unlock()

	if l == nil || l.closing.Load() {
		return ErrNotConnected
	}
	select {
	case l.outbox <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

// Disconnect flushes what is already queued, performs a normal closure
// handshake and closes the socket. It waits for the connection goroutines to
// exit, so no message is delivered after it returns. Disconnecting an idle
// transport is a no-op.
func (t *Transport) Disconnect() error {
	t.mu.Lock()
	l := t.link
	t.link = nil
	idle := l == nil && t.status.State == StateDisconnected
	t.mu.Unlock()

	if idle {
		return nil
	}
	if l != nil {
		l.closing.Store(true)
		l.stop()
		<-l.writeDone
		select {
		case <-l.readDone:
		case <-time.After(t.cfg.CloseGracePeriod):
		}
		_ = l.conn.Close()
		<-l.readDone
		t.log.Info("realtime disconnected", "conn_id", l.id)
	}

	t.transition(func() bool {
		if t.status.State == StateDisconnected || t.link != nil {
			return false
		}
		t.status = ConnStatus{State: StateDisconnected}
		return true
	})
	return nil
}

// fail tears down a connection that broke on its own.
func (t *Transport) fail(l *link, err error) {
	if l.closing.Load() {
		return
	}
	t.transition(func() bool {
		if t.link != l {
			return false
		}
		t.link = nil
		t.status = ConnStatus{State: StateFailed, ConnID: l.id, Err: err}
		return true
	})
	l.broken.Store(true)
	l.stop()
	_ = l.conn.Close()
}

func (t *Transport) writeLoop(l *link) {
	defer close(l.writeDone)

	for {
		select {
		case data := <-l.outbox:
			if err := t.write(l, data); err != nil {
				t.log.Error("realtime write failed", "conn_id", l.id, "error", err)
				t.fail(l, &ConnError{Op: "write", Err: err})
				return
			}
		case <-l.quit:
			if l.broken.Load() {
				return
			}
			t.flush(l)
			_ = l.conn.SetWriteDeadline(time.Now().Add(t.cfg.CloseGracePeriod))
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, CloseReason)
			if err := l.conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
				t.log.Debug("realtime close frame", "conn_id", l.id, "error", err)
			}
			return
		}
	}
}

// flush writes whatever is still queued when a graceful close starts.
func (t *Transport) flush(l *link) {
	for {
		select {
		case data := <-l.outbox:
			if err := t.write(l, data); err != nil {
				t.log.Debug("realtime flush", "conn_id", l.id, "error", err)
				return
			}
		default:
			return
		}
	}
}

func (t *Transport) write(l *link, data []byte) error {
	if t.log.Enabled(context.Background(), slog.LevelDebug) {
		t.log.Debug("realtime send", "conn_id", l.id, "len", len(data), "content", truncate(data))
	}
	if err := l.conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteWait)); err != nil {
		return err
	}
	return l.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *Transport) readLoop(l *link) {
	defer close(l.readDone)

	for {
		typ, data, err := l.conn.ReadMessage()
		if err != nil {
			if l.closing.Load() {
				return
			}
			t.log.Warn("realtime read ended", "conn_id", l.id, "error", err)
			t.fail(l, &ConnError{Op: "read", Err: err})
			return
		}
		if l.closing.Load() {
			continue
		}
		if typ != websocket.TextMessage {
			t.log.Debug("realtime ignore binary message", "conn_id", l.id, "len", len(data))
			continue
		}
		if t.log.Enabled(context.Background(), slog.LevelDebug) {
			t.log.Debug("realtime receive", "conn_id", l.id, "len", len(data), "content", truncate(data))
		}
		if sub := t.subscriber(); sub != nil {
			sub.HandleMessage(data)
		}
	}
}

func truncate(data []byte) string {
	if len(data) > debugDumpLimit {
		return string(data[:debugDumpLimit]) + "..."
	}
	return string(data)
}
