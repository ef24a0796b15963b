package cli

import (
	"bytes"
	"sync"

	"github.com/princeofnothin/teste-languify/pkg/buffer"
)

// LogWriter is an io.Writer that keeps the last lines written to it, for a
// log pane that redraws while a session runs. Partial lines are held until
// their newline arrives.
type LogWriter struct {
	lines   *buffer.RingBuffer[string]
	updates chan struct{}

	mu      sync.Mutex
	partial []byte
}

// NewLogWriter keeps up to maxLines lines.
func NewLogWriter(maxLines int) *LogWriter {
	return &LogWriter{
		lines:   buffer.RingN[string](max(maxLines, 1)),
		updates: make(chan struct{}, 1),
	}
}

// Write implements io.Writer. It never blocks on readers.
func (w *LogWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	data := append(w.partial, p...)
	added := false
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		w.lines.Add(string(bytes.TrimRight(data[:i], "\r")))
		data = data[i+1:]
		added = true
	}
	w.partial = append([]byte(nil), data...)
	w.mu.Unlock()

	if added {
		select {
		case w.updates <- struct{}{}:
		default:
		}
	}
	return len(p), nil
}

// Lines returns the retained lines, oldest first.
func (w *LogWriter) Lines() []string {
	return w.lines.Snapshot()
}

// Updates receives a value after writes that completed at least one line.
// Notifications coalesce, so a reader should re-read Lines on each.
func (w *LogWriter) Updates() <-chan struct{} {
	return w.updates
}
