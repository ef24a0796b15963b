// Package loopback is a local realtime server that answers every committed
// utterance by streaming the same audio back, followed by a transcript.
//
// It speaks the same event subset as the session engine, so the whole
// press, speak, release, listen cycle can run without a backend:
//
//	srv := loopback.New(&loopback.Config{})
//	http.Handle("/v1/realtime", srv)
package loopback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/princeofnothin/teste-languify/pkg/audio/pcm"
	"github.com/princeofnothin/teste-languify/pkg/encoding"
	"github.com/princeofnothin/teste-languify/pkg/realtime"
)

// Defaults.
const (
	DefaultPath          = "/v1/realtime"
	DefaultDeltaDuration = 100 * time.Millisecond
	DefaultMaxBuffer     = 15 * 1024 * 1024
)

// TranscriptFunc produces the transcript for a committed utterance.
type TranscriptFunc func(audio []byte) string

// Config configures a Server.
type Config struct {
	// DeltaDuration is the length of audio carried by each delta.
	DeltaDuration time.Duration

	// MaxBuffer caps uncommitted audio per session, in bytes. Appends past
	// it are rejected with an error event.
	MaxBuffer int

	// Transcript defaults to a description of the utterance length.
	Transcript TranscriptFunc

	Logger *slog.Logger
}

// Server is an http.Handler serving realtime sessions.
type Server struct {
	cfg      Config
	log      *slog.Logger
	upgrader websocket.Upgrader
	active   atomic.Int64

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
}

// New creates a Server.
func New(cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}
	c := *cfg
	if c.DeltaDuration <= 0 {
		c.DeltaDuration = DefaultDeltaDuration
	}
	if c.MaxBuffer <= 0 {
		c.MaxBuffer = DefaultMaxBuffer
	}
	if c.Transcript == nil {
		c.Transcript = DescribeAudio
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return &Server{
		cfg: c,
		log: c.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// DescribeAudio is the default TranscriptFunc.
func DescribeAudio(audio []byte) string {
	d := pcm.Wire.Duration(int64(len(audio)))
	return fmt.Sprintf("You said %.1f seconds of audio.", d.Seconds())
}

// Active returns the number of open sessions.
func (s *Server) Active() int {
	return int(s.active.Load())
}

// ServeHTTP upgrades the request and runs one session until the client
// leaves.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("loopback upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	if !s.track(conn) {
		closeGoingAway(conn)
		return
	}
	defer s.untrack(conn)

	s.active.Add(1)
	defer s.active.Add(-1)

	sess := &session{
		srv:  s,
		conn: conn,
		id:   "sess_" + uuid.NewString(),
	}
	sess.log = s.log.With("session", sess.id)
	sess.log.Info("loopback session started", "remote", r.RemoteAddr)
	sess.run()
	sess.log.Info("loopback session ended")
}

func (s *Server) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

// Close ends every open session with a going-away close frame and rejects
// later upgrades. ListenAndServe calls it on shutdown.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		closeGoingAway(c)
	}
	return nil
}

func closeGoingAway(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = conn.Close()
}

// ListenAndServe serves on addr until ctx is done. Open sessions are closed
// on the way out. If ready is non-nil it receives the bound address once
// the listener is up.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready chan<- net.Addr) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("loopback: listen %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle(DefaultPath, s)
	hs := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	if ready != nil {
		ready <- ln.Addr()
	}
	s.log.Info("loopback listening", "addr", ln.Addr().String(), "path", DefaultPath)

	errCh := make(chan error, 1)
	go func() { errCh <- hs.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdownCtx)
		return s.Close()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

type session struct {
	srv  *Server
	conn *websocket.Conn
	id   string
	log  *slog.Logger

	pending   []byte
	committed []byte
	itemID    string
}

func (s *session) run() {
	if err := s.sendJSON(map[string]any{
		"type":    realtime.EventTypeSessionCreated,
		"session": map[string]any{"id": s.id},
	}); err != nil {
		return
	}

	for {
		typ, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("loopback read", "error", err)
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		if err := s.handle(data); err != nil {
			s.log.Warn("loopback write failed", "error", err)
			return
		}
	}
}

func (s *session) handle(data []byte) error {
	ev, err := realtime.DecodeClient(data)
	if err != nil {
		return s.sendError("invalid_request_error", "invalid_event", err.Error())
	}

	switch ev.Kind {
	case realtime.KindAudioAppend:
		if ev.Audio == "" {
			return nil
		}
		audio, err := encoding.DecodeStdBase64(ev.Audio)
		if err != nil {
			return s.sendError("invalid_request_error", "invalid_audio", err.Error())
		}
		if len(s.pending)+len(audio) > s.srv.cfg.MaxBuffer {
			return s.sendError("invalid_request_error", "buffer_too_large", "input audio buffer is full")
		}
		s.pending = append(s.pending, audio...)
		return nil

	case realtime.KindAudioCommit:
		if len(s.pending) == 0 {
			return s.sendError("invalid_request_error", "input_audio_buffer_commit_empty", "buffer is empty")
		}
		s.committed = append(s.committed, s.pending...)
		s.pending = nil
		s.itemID = "item_" + uuid.NewString()[:12]
		return s.sendJSON(map[string]any{
			"type":    realtime.EventTypeInputAudioBufferCommitted,
			"item_id": s.itemID,
		})

	case realtime.KindResponseCreate:
		return s.respond()

	default:
		return s.sendError("invalid_request_error", "unsupported_event", "unsupported event type: "+ev.Type)
	}
}

// respond streams the committed audio back as deltas and closes the
// response with a transcript.
func (s *session) respond() error {
	respID := "resp_" + uuid.NewString()[:12]
	if err := s.sendJSON(map[string]any{
		"type":     realtime.EventTypeResponseCreated,
		"response": map[string]any{"id": respID, "status": "in_progress"},
	}); err != nil {
		return err
	}

	audio := s.committed
	s.committed = nil
	for _, chunk := range pcm.Wire.Split(audio, s.srv.cfg.DeltaDuration) {
		if err := s.sendEvent(realtime.AudioDelta(encoding.EncodeStdBase64(chunk))); err != nil {
			return err
		}
	}
	if err := s.sendJSON(map[string]any{"type": realtime.EventTypeResponseAudioDone, "response_id": respID}); err != nil {
		return err
	}
	if err := s.sendEvent(realtime.TranscriptDone(s.srv.cfg.Transcript(audio))); err != nil {
		return err
	}
	s.log.Debug("loopback response", "response_id", respID, "bytes", len(audio))
	return s.sendJSON(map[string]any{
		"type":     realtime.EventTypeResponseDone,
		"response": map[string]any{"id": respID, "status": "completed"},
	})
}

func (s *session) sendEvent(ev realtime.Event) error {
	b, err := realtime.EncodeServer(ev)
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, b)
}

func (s *session) sendJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, b)
}

func (s *session) sendError(typ, code, msg string) error {
	s.log.Debug("loopback error event", "code", code, "message", msg)
	return s.sendJSON(map[string]any{
		"type": realtime.EventTypeError,
		"error": map[string]any{
			"type":    typ,
			"code":    code,
			"message": msg,
		},
	})
}
