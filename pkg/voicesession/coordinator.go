package voicesession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/princeofnothin/teste-languify/pkg/audio/chunker"
	"github.com/princeofnothin/teste-languify/pkg/realtime"
)

// AudioChunker is the audio side of a session.
type AudioChunker interface {
	StartCapture(h chunker.CaptureHandler) error
	StopCapture()
	PlayChunk(chunk chunker.EncodedChunk) error
	Release()
}

// Transport is the network side of a session.
type Transport interface {
	Connect(ctx context.Context) error
	Send(data []byte) error
	Subscribe(s realtime.Subscriber) (cancel func(), err error)
	Disconnect() error
	Status() realtime.ConnStatus
}

// ConnectFunc establishes the transport connection. It is where a retry
// policy plugs in.
type ConnectFunc func(ctx context.Context, t Transport) error

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// WithMetrics sets the metrics. Defaults to unregistered metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithAudioObserver registers fn to be told, for every played delta, how many
// PCM bytes it carried. fn runs on the transport read goroutine.
func WithAudioObserver(fn func(bytes int)) Option {
	return func(c *Coordinator) { c.onAudio = fn }
}

// WithConnect replaces the single Connect attempt made by Start.
func WithConnect(fn ConnectFunc) Option {
	return func(c *Coordinator) { c.connect = fn }
}

// Coordinator runs push-to-talk turns over a chunker and a transport it owns
// exclusively.
type Coordinator struct {
	chunker   AudioChunker
	transport Transport
	store     *Store
	log       *slog.Logger
	metrics   *Metrics
	onAudio   func(int)
	connect   ConnectFunc

	// opMu serializes Start, Press, Release and Stop.
	opMu        sync.Mutex
	unsubscribe func()
	stopped     bool

	// mu guards the turn. It is never held while waiting on the chunker.
	mu          sync.Mutex
	turn        TurnState
	captureGen  uint64
	releasedAt  time.Time
	awaitingAck bool
}

// New creates a Coordinator with its own Store.
func New(c AudioChunker, t Transport, opts ...Option) *Coordinator {
	co := &Coordinator{
		chunker:   c,
		transport: t,
		store:     NewStore(),
	}
	for _, opt := range opts {
		opt(co)
	}
	if co.log == nil {
		co.log = slog.Default()
	}
	if co.metrics == nil {
		co.metrics = NewMetrics(nil)
	}
	if co.connect == nil {
		co.connect = func(ctx context.Context, t Transport) error { return t.Connect(ctx) }
	}
	return co
}

// Store returns the observable session state.
func (c *Coordinator) Store() *Store {
	return c.store
}

// Turn returns the current turn state.
func (c *Coordinator) Turn() TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turn
}

// Start registers for inbound messages and connects the transport. Calling
// it again after a failed connection makes a fresh attempt.
func (c *Coordinator) Start(ctx context.Context) error {
	c.opMu.Lock()
	if c.stopped {
		c.opMu.Unlock()
		return &UsageError{Op: "start", Err: ErrStopped}
	}
	if c.unsubscribe == nil {
		cancel, err := c.transport.Subscribe(inbound{c})
		if err != nil {
			c.opMu.Unlock()
			return fmt.Errorf("voicesession: subscribe: %w", err)
		}
		c.unsubscribe = cancel
		c.store.setConnection(c.transport.Status())
	}
	c.opMu.Unlock()

	if err := c.connect(ctx, c.transport); err != nil {
		c.log.Error("session connect failed", "error", err)
		return fmt.Errorf("voicesession: connect: %w", err)
	}
	return nil
}

// Press starts a capture. It is accepted from Idle and from Thinking, and is
// a no-op while already capturing. A capture device failure leaves the turn
// Idle and is returned.
func (c *Coordinator) Press() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	if c.stopped {
		return &UsageError{Op: "press", Err: ErrStopped}
	}

	c.mu.Lock()
	if c.turn == TurnCapturing {
		c.mu.Unlock()
		return nil
	}
	c.captureGen++
	gen := c.captureGen
	c.turn = TurnCapturing
	c.store.setTurn(TurnCapturing)
	c.mu.Unlock()

	if err := c.chunker.StartCapture(&captureSink{c: c, gen: gen}); err != nil {
		c.mu.Lock()
		if c.captureGen == gen {
			c.turn = TurnIdle
			c.store.update(func(st *State) {
				st.Turn = TurnIdle
				st.LastError = err
			})
		}
		c.mu.Unlock()
		c.metrics.CaptureErrors.Inc()
		c.log.Error("start capture", "error", err)
		return err
	}

	c.metrics.Turns.Inc()
	c.log.Debug("turn capturing", "gen", gen)
	return nil
}

// Release ends the capture and asks for a response: capture stops, then the
// commit and response.create events are sent, in that order. Outside of a
// capture it returns a *UsageError wrapping ErrNotCapturing and sends
// nothing.
func (c *Coordinator) Release() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	if c.stopped {
		return &UsageError{Op: "release", Err: ErrStopped}
	}

	c.mu.Lock()
	if c.turn != TurnCapturing {
		turn := c.turn
		c.mu.Unlock()
		c.log.Debug("release ignored", "turn", turn)
		return &UsageError{Op: "release", Err: ErrNotCapturing}
	}
	c.mu.Unlock()

	c.chunker.StopCapture()

	// Drops are counted and logged by send; the turn still moves on so the
	// user is never stuck in Capturing.
	_ = c.send(realtime.AudioCommit())
	_ = c.send(realtime.ResponseCreate())

	c.mu.Lock()
	c.turn = TurnThinking
	c.releasedAt = time.Now()
	c.awaitingAck = true
	c.store.setTurn(TurnThinking)
	c.mu.Unlock()

	c.log.Debug("turn thinking")
	return nil
}

// Stop ends the session: it stops listening, releases the audio devices and
// disconnects. It is idempotent.
func (c *Coordinator) Stop() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	if c.stopped {
		return nil
	}
	c.stopped = true

	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.chunker.Release()
	err := c.transport.Disconnect()

	c.mu.Lock()
	c.turn = TurnIdle
	c.awaitingAck = false
	c.mu.Unlock()
	c.store.close()
	c.metrics.ConnectionState.Set(float64(realtime.StateDisconnected))

	if err != nil {
		return fmt.Errorf("voicesession: disconnect: %w", err)
	}
	return nil
}

// send encodes and queues one outbound event. Dropped events are counted
// with the reason.
func (c *Coordinator) send(ev realtime.Event) error {
	typ := ev.Kind.String()
	data, err := realtime.Encode(ev)
	if err != nil {
		c.metrics.EventsDropped.WithLabelValues(typ, "encode").Inc()
		return err
	}
	if err := c.transport.Send(data); err != nil {
		reason := "error"
		switch {
		case errors.Is(err, realtime.ErrNotConnected):
			reason = "not_connected"
		case errors.Is(err, realtime.ErrQueueFull):
			reason = "queue_full"
		}
		c.metrics.EventsDropped.WithLabelValues(typ, reason).Inc()
		c.log.Debug("event dropped", "type", typ, "reason", reason)
		return err
	}
	c.metrics.EventsSent.WithLabelValues(typ).Inc()
	return nil
}

// captureSink frames the chunks of one capture run.
type captureSink struct {
	c   *Coordinator
	gen uint64
}

func (s *captureSink) HandleChunk(chunk chunker.EncodedChunk) {
	_ = s.c.send(realtime.AudioAppend(string(chunk)))
}

func (s *captureSink) HandleCaptureError(err error) {
	c := s.c
	c.metrics.CaptureErrors.Inc()
	c.log.Error("capture failed", "error", err)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.captureGen != s.gen || c.turn != TurnCapturing {
		c.store.setError(err)
		return
	}
	c.turn = TurnIdle
	c.store.update(func(st *State) {
		st.Turn = TurnIdle
		st.LastError = err
	})
}

// inbound adapts the Coordinator to realtime.Subscriber without exporting the
// callbacks.
type inbound struct {
	c *Coordinator
}

func (in inbound) HandleStatus(st realtime.ConnStatus) {
	in.c.metrics.ConnectionState.Set(float64(st.State))
	in.c.store.setConnection(st)
}

func (in inbound) HandleMessage(data []byte) {
	in.c.dispatch(data)
}

const maxLoggedPayload = 200

func (c *Coordinator) dispatch(data []byte) {
	ev, err := realtime.Decode(data)
	if err != nil {
		c.metrics.MalformedEvents.Inc()
		preview := string(data)
		if len(preview) > maxLoggedPayload {
			preview = preview[:maxLoggedPayload] + "..."
		}
		c.log.Warn("drop malformed payload", "error", err, "payload", preview)
		return
	}
	c.metrics.InboundEvents.WithLabelValues(ev.Kind.String()).Inc()

	switch ev.Kind {
	case realtime.KindAudioDelta:
		c.store.setPayload(string(data))
		c.observeFirstAudio()
		chunk := chunker.EncodedChunk(ev.Delta)
		if err := c.chunker.PlayChunk(chunk); err != nil {
			kind := "device"
			if chunker.IsKind(err, chunker.KindMalformed) {
				kind = "malformed"
			} else if errors.Is(err, chunker.ErrReleased) {
				kind = "released"
			}
			c.metrics.PlaybackErrors.WithLabelValues(kind).Inc()
			c.store.setError(err)
			return
		}
		n := chunk.PCMBytes()
		c.metrics.PlaybackBytes.Add(float64(n))
		if c.onAudio != nil {
			c.onAudio(n)
		}

	case realtime.KindTranscriptDone:
		c.mu.Lock()
		if c.turn == TurnThinking {
			c.turn = TurnIdle
		}
		c.awaitingAck = false
		c.store.setTranscript(string(data), ev.Transcript, c.turn)
		c.mu.Unlock()
		c.log.Info("transcript", "text", ev.Transcript)

	default:
		c.store.setPayload(string(data))
	}
}

func (c *Coordinator) observeFirstAudio() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.awaitingAck {
		return
	}
	c.awaitingAck = false
	c.metrics.ResponseLatency.Observe(time.Since(c.releasedAt).Seconds())
}
