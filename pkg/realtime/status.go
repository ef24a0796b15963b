package realtime

import (
	"encoding/json"
	"fmt"
)

// ConnState is the lifecycle state of a Transport.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateOpen
	StateFailed
)

// String returns the string representation of the state.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// MarshalJSON implements json.Marshaler.
func (s ConnState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *ConnState) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "connecting":
		*s = StateConnecting
	case "open":
		*s = StateOpen
	case "failed":
		*s = StateFailed
	default:
		*s = StateDisconnected
	}
	return nil
}

// ConnStatus is a snapshot of the transport state delivered to subscribers.
type ConnStatus struct {
	State ConnState
	// ConnID identifies the connection attempt. Empty while disconnected.
	ConnID string
	// Err is the failure reason when State is StateFailed.
	Err error
}

func (s ConnStatus) String() string {
	if s.Err != nil {
		return fmt.Sprintf("%s: %v", s.State, s.Err)
	}
	return s.State.String()
}
