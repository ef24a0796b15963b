package chunker

import (
	"errors"
	"fmt"
)

// ErrReleased is returned by every operation after Release.
var ErrReleased = errors.New("chunker: released")

// Kind classifies chunker failures.
type Kind int

const (
	// KindDevice means a capture or playback device failed to open, read or
	// write.
	KindDevice Kind = iota + 1
	// KindMalformed means an encoded chunk could not be decoded. The chunk
	// is dropped.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindDevice:
		return "device"
	case KindMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a classified chunker failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("chunker: %s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a chunker *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
