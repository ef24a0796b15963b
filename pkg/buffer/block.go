package buffer

import (
	"fmt"
	"io"
	"sync"
)

// BlockBuffer is a fixed-capacity FIFO of T. Write blocks while the buffer is
// full and Read blocks while it is empty.
type BlockBuffer[T any] struct {
	cond *sync.Cond

	mu         sync.Mutex
	buf        []T
	head, tail int64
	closeWrite bool
	closeErr   error
}

// BlockN creates a BlockBuffer holding at most size elements.
func BlockN[T any](size int) *BlockBuffer[T] {
	if size <= 0 {
		size = 1
	}
	bb := &BlockBuffer[T]{buf: make([]T, size)}
	bb.cond = sync.NewCond(&bb.mu)
	return bb
}

// Read copies up to len(p) buffered elements into p. It blocks until at least
// one element is available. After CloseWrite it returns io.EOF once the
// buffer is drained.
func (bb *BlockBuffer[T]) Read(p []T) (int, error) {
	bb.mu.Lock()
	defer bb.mu.Unlock()

	for bb.head == bb.tail {
		if bb.closeErr != nil {
			return 0, fmt.Errorf("buffer: read from closed buffer: %w", bb.closeErr)
		}
		if bb.closeWrite {
			return 0, io.EOF
		}
		bb.cond.Wait()
	}
	if bb.closeErr != nil {
		return 0, fmt.Errorf("buffer: read from closed buffer: %w", bb.closeErr)
	}

	first, second := bb.span(bb.head, int(bb.tail-bb.head))
	n := copy(p, first)
	n += copy(p[n:], second)

	bb.head += int64(n)
	bb.cond.Broadcast()
	return n, nil
}

// Write appends all of p, blocking whenever the buffer is full. It returns
// the number of elements accepted before the buffer was closed, if it was.
func (bb *BlockBuffer[T]) Write(p []T) (int, error) {
	bb.mu.Lock()
	defer bb.mu.Unlock()

	wn := 0
	size := int64(len(bb.buf))
	for len(p) > 0 {
		for {
			if bb.closeErr != nil {
				return wn, fmt.Errorf("buffer: write to closed buffer: %w", bb.closeErr)
			}
			if bb.closeWrite {
				return wn, fmt.Errorf("buffer: write to closed buffer: %w", io.ErrClosedPipe)
			}
			if bb.tail-bb.head < size {
				break
			}
			bb.cond.Wait()
		}

		first, second := bb.span(bb.tail, int(size-(bb.tail-bb.head)))
		n := copy(first, p)
		n += copy(second, p[n:])

		bb.tail += int64(n)
		p = p[n:]
		wn += n
		bb.cond.Broadcast()
	}
	return wn, nil
}

// span returns the up to two slices of the ring holding n elements from the
// absolute position pos.
func (bb *BlockBuffer[T]) span(pos int64, n int) (first, second []T) {
	start := int(pos % int64(len(bb.buf)))
	if end := start + n; end <= len(bb.buf) {
		return bb.buf[start:end], nil
	}
	return bb.buf[start:], bb.buf[:start+n-len(bb.buf)]
}

// Flush discards everything currently buffered and returns how many elements
// were dropped. Blocked writers are woken up.
func (bb *BlockBuffer[T]) Flush() int {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	n := int(bb.tail - bb.head)
	bb.head = bb.tail
	bb.cond.Broadcast()
	return n
}

// CloseWrite stops further writes. Readers keep draining buffered data and
// then observe io.EOF.
func (bb *BlockBuffer[T]) CloseWrite() error {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	if !bb.closeWrite {
		bb.closeWrite = true
		bb.cond.Broadcast()
	}
	return nil
}

// CloseWithError closes both sides. Pending and future calls fail with err,
// or io.ErrClosedPipe when err is nil. Only the first error sticks.
func (bb *BlockBuffer[T]) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	bb.mu.Lock()
	defer bb.mu.Unlock()
	if bb.closeErr == nil {
		bb.closeErr = err
		bb.closeWrite = true
		bb.cond.Broadcast()
	}
	return nil
}

// Close is CloseWithError(nil).
func (bb *BlockBuffer[T]) Close() error {
	return bb.CloseWithError(nil)
}

// Error returns the error the buffer was closed with, if any.
func (bb *BlockBuffer[T]) Error() error {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	return bb.closeErr
}

// Len returns the number of buffered elements.
func (bb *BlockBuffer[T]) Len() int {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	return int(bb.tail - bb.head)
}

// Cap returns the fixed capacity.
func (bb *BlockBuffer[T]) Cap() int {
	return len(bb.buf)
}
