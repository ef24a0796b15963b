package voicesession

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/princeofnothin/teste-languify/pkg/audio/chunker"
	"github.com/princeofnothin/teste-languify/pkg/encoding"
	"github.com/princeofnothin/teste-languify/pkg/realtime"
)

type fakeChunker struct {
	mu        sync.Mutex
	handler   chunker.CaptureHandler
	starts    int
	stops     int
	released  int
	played    [][]byte
	startErr  error
	playErr   error
	capturing bool
}

func (f *fakeChunker) StartCapture(h chunker.CaptureHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	if f.capturing {
		return nil
	}
	f.starts++
	f.capturing = true
	f.handler = h
	return nil
}

func (f *fakeChunker) StopCapture() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.capturing = false
}

func (f *fakeChunker) PlayChunk(c chunker.EncodedChunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	b, err := encoding.DecodeStdBase64(string(c))
	if err != nil {
		return &chunker.Error{Kind: chunker.KindMalformed, Op: "decode", Err: err}
	}
	f.played = append(f.played, b)
	return nil
}

func (f *fakeChunker) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released++
	f.capturing = false
}

// emit simulates the capture loop delivering one chunk.
func (f *fakeChunker) emit(c chunker.EncodedChunk) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h.HandleChunk(c)
}

type fakeTransport struct {
	mu           sync.Mutex
	sub          realtime.Subscriber
	sent         []string
	status       realtime.ConnStatus
	connects     int
	disconnects  int
	connectErr   error
	sendErr      error
	subscribeErr error
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	f.connects++
	err := f.connectErr
	sub := f.sub
	if err == nil {
		f.status = realtime.ConnStatus{State: realtime.StateOpen, ConnID: "c1"}
	} else {
		f.status = realtime.ConnStatus{State: realtime.StateFailed, Err: err}
	}
	st := f.status
	f.mu.Unlock()
	if sub != nil {
		sub.HandleStatus(st)
	}
	return err
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, string(data))
	return nil
}

func (f *fakeTransport) Subscribe(s realtime.Subscriber) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	if f.sub != nil {
		return nil, realtime.ErrAlreadySubscribed
	}
	f.sub = s
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.sub = nil
	}, nil
}

func (f *fakeTransport) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	f.status = realtime.ConnStatus{}
	return nil
}

func (f *fakeTransport) Status() realtime.ConnStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeTransport) deliver(msg string) {
	f.mu.Lock()
	sub := f.sub
	f.mu.Unlock()
	if sub != nil {
		sub.HandleMessage([]byte(msg))
	}
}

func (f *fakeTransport) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStarted(t *testing.T, opts ...Option) (*Coordinator, *fakeChunker, *fakeTransport) {
	t.Helper()
	ch := &fakeChunker{}
	tr := &fakeTransport{}
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	c := New(ch, tr, opts...)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return c, ch, tr
}

func TestFullTurn(t *testing.T) {
	c, ch, tr := newStarted(t)
	defer c.Stop()

	if err := c.Press(); err != nil {
		t.Fatalf("Press: %v", err)
	}
	if got := c.Turn(); got != TurnCapturing {
		t.Fatalf("turn after press = %v", got)
	}
	for _, chunk := range []chunker.EncodedChunk{"AA==", "AQ==", "Ag=="} {
		ch.emit(chunk)
	}
	if err := c.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if got := c.Turn(); got != TurnThinking {
		t.Fatalf("turn after release = %v", got)
	}

	want := []string{
		`{"type":"input_audio_buffer.append","audio":"AA=="}`,
		`{"type":"input_audio_buffer.append","audio":"AQ=="}`,
		`{"type":"input_audio_buffer.append","audio":"Ag=="}`,
		`{"type":"input_audio_buffer.commit"}`,
		`{"type":"response.create"}`,
	}
	got := tr.sentMessages()
	if len(got) != len(want) {
		t.Fatalf("sent %d messages, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sent[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if ch.stops != 1 {
		t.Errorf("StopCapture called %d times, want 1", ch.stops)
	}

	tr.deliver(`{"type":"response.audio.delta","delta":"BA=="}`)
	tr.deliver(`{"type":"response.audio_transcript.done","transcript":"ok"}`)

	if len(ch.played) != 1 || !bytes.Equal(ch.played[0], []byte{0x04}) {
		t.Errorf("played = %v, want [[4]]", ch.played)
	}
	if got := c.Store().Transcript(); got != "ok" {
		t.Errorf("transcript = %q, want %q", got, "ok")
	}
	if got := c.Turn(); got != TurnIdle {
		t.Errorf("turn after transcript = %v, want idle", got)
	}
	if got := c.Store().Snapshot().Turn; got != TurnIdle {
		t.Errorf("store turn = %v, want idle", got)
	}
}

func TestAppendOrder(t *testing.T) {
	c, ch, tr := newStarted(t)
	defer c.Stop()

	_ = c.Press()
	var want []string
	for i := 0; i < 50; i++ {
		b := encoding.EncodeStdBase64([]byte{byte(i), byte(i >> 8)})
		ch.emit(chunker.EncodedChunk(b))
		want = append(want, `{"type":"input_audio_buffer.append","audio":"`+b+`"}`)
	}
	_ = c.Release()

	got := tr.sentMessages()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sent[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDispatch(t *testing.T) {
	var observed []int
	c, ch, tr := newStarted(t, WithAudioObserver(func(n int) { observed = append(observed, n) }))
	defer c.Stop()

	delta := `{"type":"response.audio.delta","delta":"AAEC"}`
	tr.deliver(delta)
	if len(ch.played) != 1 || !bytes.Equal(ch.played[0], []byte{0x00, 0x01, 0x02}) {
		t.Fatalf("played = %v, want [[0 1 2]]", ch.played)
	}
	if len(observed) != 1 || observed[0] != 3 {
		t.Errorf("observer got %v, want [3]", observed)
	}
	if got := c.Store().Snapshot().LastPayload; got != delta {
		t.Errorf("LastPayload = %s", got)
	}

	tr.deliver(`{"type":"response.audio_transcript.done","transcript":"hello"}`)
	if got := c.Store().Transcript(); got != "hello" {
		t.Errorf("transcript = %q, want %q", got, "hello")
	}

	unknown := `{"type":"response.done","response":{"id":"r1"}}`
	tr.deliver(unknown)
	st := c.Store().Snapshot()
	if st.LastPayload != unknown {
		t.Errorf("LastPayload = %s, want the unknown event", st.LastPayload)
	}
	if st.Transcript != "hello" {
		t.Errorf("unknown event changed transcript to %q", st.Transcript)
	}
	if len(ch.played) != 1 {
		t.Errorf("unknown event triggered playback")
	}
}

func TestMalformedPayloadLeavesStore(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, ch, tr := newStarted(t, WithMetrics(NewMetrics(reg)))
	defer c.Stop()

	tr.deliver(`{"type":"response.audio_transcript.done","transcript":"before"}`)
	before := c.Store().Snapshot()

	for _, msg := range []string{`not json`, `{"delta":"AA=="}`, `{"type":"response.audio.delta"}`, ``} {
		tr.deliver(msg)
	}
	after := c.Store().Snapshot()
	if after != before {
		t.Errorf("store changed:\n before %+v\n after  %+v", before, after)
	}
	if len(ch.played) != 0 {
		t.Errorf("malformed payload reached playback")
	}
	if got := testutil.ToFloat64(c.metrics.MalformedEvents); got != 4 {
		t.Errorf("malformed counter = %v, want 4", got)
	}
}

func TestBadAudioDeltaRecordsError(t *testing.T) {
	c, _, tr := newStarted(t)
	defer c.Stop()

	tr.deliver(`{"type":"response.audio.delta","delta":"not base64!"}`)
	st := c.Store().Snapshot()
	if !chunker.IsKind(st.LastError, chunker.KindMalformed) {
		t.Errorf("LastError = %v, want malformed", st.LastError)
	}
	if got := testutil.ToFloat64(c.metrics.PlaybackErrors.WithLabelValues("malformed")); got != 1 {
		t.Errorf("playback malformed counter = %v", got)
	}
}

func TestReleaseWithoutPress(t *testing.T) {
	c, _, tr := newStarted(t)
	defer c.Stop()

	err := c.Release()
	var uerr *UsageError
	if !errors.As(err, &uerr) || !errors.Is(err, ErrNotCapturing) {
		t.Fatalf("Release = %v, want UsageError(ErrNotCapturing)", err)
	}
	if len(tr.sentMessages()) != 0 {
		t.Errorf("Release without press sent %v", tr.sentMessages())
	}

	_ = c.Press()
	_ = c.Release()
	if err := c.Release(); !errors.Is(err, ErrNotCapturing) {
		t.Errorf("second Release = %v, want ErrNotCapturing", err)
	}
}

func TestPressIdempotentAndFromThinking(t *testing.T) {
	c, ch, _ := newStarted(t)
	defer c.Stop()

	_ = c.Press()
	_ = c.Press()
	if ch.starts != 1 {
		t.Errorf("StartCapture called %d times, want 1", ch.starts)
	}
	_ = c.Release()
	if err := c.Press(); err != nil {
		t.Fatalf("Press from thinking: %v", err)
	}
	if c.Turn() != TurnCapturing {
		t.Errorf("turn = %v, want capturing", c.Turn())
	}
	if ch.starts != 2 {
		t.Errorf("StartCapture called %d times, want 2", ch.starts)
	}
}

func TestTranscriptWhileCapturingKeepsTurn(t *testing.T) {
	c, _, tr := newStarted(t)
	defer c.Stop()

	_ = c.Press()
	_ = c.Release()
	_ = c.Press()
	tr.deliver(`{"type":"response.audio_transcript.done","transcript":"late"}`)
	if c.Turn() != TurnCapturing {
		t.Errorf("turn = %v, want capturing", c.Turn())
	}
	if c.Store().Transcript() != "late" {
		t.Errorf("transcript = %q", c.Store().Transcript())
	}
}

func TestPressDeviceError(t *testing.T) {
	c, ch, _ := newStarted(t)
	defer c.Stop()

	ch.startErr = &chunker.Error{Kind: chunker.KindDevice, Op: "open capture", Err: errors.New("busy")}
	if err := c.Press(); !chunker.IsKind(err, chunker.KindDevice) {
		t.Fatalf("Press = %v, want device error", err)
	}
	if c.Turn() != TurnIdle {
		t.Errorf("turn = %v, want idle", c.Turn())
	}
	st := c.Store().Snapshot()
	if st.Turn != TurnIdle || st.LastError == nil {
		t.Errorf("store = %+v", st)
	}
}

func TestCaptureErrorEndsTurn(t *testing.T) {
	c, ch, _ := newStarted(t)
	defer c.Stop()

	_ = c.Press()
	ch.handler.HandleCaptureError(errors.New("unplugged"))
	if c.Turn() != TurnIdle {
		t.Errorf("turn = %v, want idle", c.Turn())
	}
	if err := c.Release(); !errors.Is(err, ErrNotCapturing) {
		t.Errorf("Release after capture error = %v", err)
	}
}

func TestSendDropsAreCounted(t *testing.T) {
	c, ch, tr := newStarted(t)
	defer c.Stop()

	tr.sendErr = realtime.ErrNotConnected
	_ = c.Press()
	ch.emit("AA==")
	if err := c.Release(); err != nil {
		t.Fatalf("Release while disconnected = %v", err)
	}
	if c.Turn() != TurnThinking {
		t.Errorf("turn = %v, want thinking", c.Turn())
	}
	dropped := c.metrics.EventsDropped
	if got := testutil.ToFloat64(dropped.WithLabelValues("input_audio_buffer.append", "not_connected")); got != 1 {
		t.Errorf("append drops = %v", got)
	}
	if got := testutil.ToFloat64(dropped.WithLabelValues("input_audio_buffer.commit", "not_connected")); got != 1 {
		t.Errorf("commit drops = %v", got)
	}

	tr.sendErr = realtime.ErrQueueFull
	_ = c.Press()
	ch.emit("AA==")
	if got := testutil.ToFloat64(dropped.WithLabelValues("input_audio_buffer.append", "queue_full")); got != 1 {
		t.Errorf("queue_full drops = %v", got)
	}
}

func TestStartAndStatus(t *testing.T) {
	c, _, tr := newStarted(t)
	if tr.connects != 1 {
		t.Errorf("connects = %d", tr.connects)
	}
	if got := c.Store().Connection().State; got != realtime.StateOpen {
		t.Errorf("store connection = %v, want open", got)
	}
	if got := testutil.ToFloat64(c.metrics.ConnectionState); got != float64(realtime.StateOpen) {
		t.Errorf("connection gauge = %v", got)
	}
	// A second Start reconnects without subscribing again.
	if err := c.Start(context.Background()); err != nil {
		t.Errorf("second Start = %v", err)
	}
	_ = c.Stop()
}

func TestStartConnectFailure(t *testing.T) {
	ch := &fakeChunker{}
	tr := &fakeTransport{connectErr: &realtime.ConnError{Op: "dial", Err: errors.New("refused")}}
	c := New(ch, tr, WithLogger(quietLogger()))
	defer c.Stop()

	err := c.Start(context.Background())
	var cerr *realtime.ConnError
	if !errors.As(err, &cerr) {
		t.Fatalf("Start = %v, want ConnError", err)
	}
	st := c.Store().Snapshot()
	if st.Connection.State != realtime.StateFailed || st.LastError == nil {
		t.Errorf("store = %+v", st)
	}
}

func TestStartSubscribeFailure(t *testing.T) {
	tr := &fakeTransport{subscribeErr: realtime.ErrAlreadySubscribed}
	c := New(&fakeChunker{}, tr, WithLogger(quietLogger()))
	if err := c.Start(context.Background()); !errors.Is(err, realtime.ErrAlreadySubscribed) {
		t.Fatalf("Start = %v", err)
	}
	if tr.connects != 0 {
		t.Errorf("connected despite subscribe failure")
	}
}

func TestWithConnect(t *testing.T) {
	var calls int
	connect := func(ctx context.Context, tr Transport) error {
		calls++
		return realtime.ConnectWithRetry(ctx, tr, realtime.RetryPolicy{MaxAttempts: 2, InitialInterval: time.Millisecond}, quietLogger())
	}
	c, _, tr := newStarted(t, WithConnect(connect))
	defer c.Stop()
	if calls != 1 || tr.connects != 1 {
		t.Errorf("calls = %d, connects = %d", calls, tr.connects)
	}
}

func TestStop(t *testing.T) {
	c, ch, tr := newStarted(t)
	states, cancel := c.Store().Subscribe()
	defer cancel()

	_ = c.Press()
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := c.Stop(); err != nil {
		t.Errorf("second Stop = %v", err)
	}
	if ch.released != 1 || tr.disconnects != 1 {
		t.Errorf("released = %d, disconnects = %d", ch.released, tr.disconnects)
	}
	if tr.sub != nil {
		t.Error("still subscribed after Stop")
	}
	if c.Turn() != TurnIdle {
		t.Errorf("turn = %v after Stop", c.Turn())
	}

	var last State
	for st := range states {
		last = st
	}
	if last.Turn != TurnIdle || last.Transcript != "" || last.Connection.State != realtime.StateDisconnected {
		t.Errorf("final state = %+v", last)
	}

	for name, op := range map[string]func() error{
		"press":   c.Press,
		"release": c.Release,
		"start":   func() error { return c.Start(context.Background()) },
	} {
		if err := op(); !errors.Is(err, ErrStopped) {
			t.Errorf("%s after Stop = %v, want ErrStopped", name, err)
		}
	}
}
