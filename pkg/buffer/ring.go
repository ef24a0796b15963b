package buffer

import (
	"fmt"
	"io"
	"sync"
)

// RingBuffer keeps the last N elements added to it. Adding to a full ring
// evicts the oldest element.
type RingBuffer[T any] struct {
	mu         sync.Mutex
	buf        []T
	head, tail int64
	closed     bool
}

// RingN creates a RingBuffer retaining at most size elements.
func RingN[T any](size int) *RingBuffer[T] {
	if size <= 0 {
		size = 1
	}
	return &RingBuffer[T]{buf: make([]T, size)}
}

// Add appends t, evicting the oldest element when the ring is full.
func (rb *RingBuffer[T]) Add(t T) error {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.closed {
		return fmt.Errorf("buffer: write to closed buffer: %w", io.ErrClosedPipe)
	}
	rb.buf[rb.tail%int64(len(rb.buf))] = t
	rb.tail++
	if rb.tail-rb.head > int64(len(rb.buf)) {
		rb.head++
	}
	return nil
}

// Snapshot returns a copy of the retained elements, oldest first.
func (rb *RingBuffer[T]) Snapshot() []T {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	n := int(rb.tail - rb.head)
	out := make([]T, 0, n)
	size := int64(len(rb.buf))
	for i := rb.head; i < rb.tail; i++ {
		out = append(out, rb.buf[i%size])
	}
	return out
}

// Len returns the number of retained elements.
func (rb *RingBuffer[T]) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return int(rb.tail - rb.head)
}

// Close rejects further Adds. Snapshot keeps working.
func (rb *RingBuffer[T]) Close() error {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	return nil
}
