package realtime

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by Send when the transport is not open.
	// The message is dropped, not queued for a later connection.
	ErrNotConnected = errors.New("realtime: not connected")

	// ErrQueueFull is returned by Send when the outbound queue of the
	// current connection is full. The message is dropped.
	ErrQueueFull = errors.New("realtime: outbound queue full")

	// ErrAlreadySubscribed is returned by Subscribe when a subscriber is
	// already registered.
	ErrAlreadySubscribed = errors.New("realtime: already subscribed")

	// ErrAlreadyConnected is returned by Connect while connecting or open.
	ErrAlreadyConnected = errors.New("realtime: already connected")

	// ErrNotOutbound is returned when encoding an event the sender may not
	// emit.
	ErrNotOutbound = errors.New("realtime: event not sendable")

	// ErrClosed marks a connection that was closed locally.
	ErrClosed = errors.New("realtime: connection closed")
)

const maxRawInError = 256

// ProtocolError reports a payload that does not follow the realtime wire
// format.
type ProtocolError struct {
	Reason string
	// Raw is the offending payload, truncated.
	Raw []byte
	Err error
}

func newProtocolError(reason string, raw []byte, err error) *ProtocolError {
	if len(raw) > maxRawInError {
		raw = raw[:maxRawInError]
	}
	return &ProtocolError{Reason: reason, Raw: append([]byte(nil), raw...), Err: err}
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("realtime: protocol: %s: %v", e.Reason, e.Err)
	}
	return "realtime: protocol: " + e.Reason
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ConnError reports a connection level failure: a rejected or failed dial,
// or a broken read or write.
type ConnError struct {
	// Op is "dial", "read" or "write".
	Op string
	// HTTPStatus is set when the server rejected the handshake.
	HTTPStatus int
	Err        error
}

func (e *ConnError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("realtime: %s: http %d: %v", e.Op, e.HTTPStatus, e.Err)
	}
	return fmt.Sprintf("realtime: %s: %v", e.Op, e.Err)
}

func (e *ConnError) Unwrap() error {
	return e.Err
}
