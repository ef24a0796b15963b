package voicesession

import (
	"encoding/json"
	"fmt"

	"github.com/princeofnothin/teste-languify/pkg/realtime"
)

// TurnState is the push-to-talk state of a Coordinator.
type TurnState int

const (
	TurnIdle TurnState = iota
	TurnCapturing
	TurnThinking
)

// String returns the string representation of the state.
func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnCapturing:
		return "capturing"
	case TurnThinking:
		return "thinking"
	default:
		return fmt.Sprintf("TurnState(%d)", int(s))
	}
}

// MarshalJSON implements json.Marshaler.
func (s TurnState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *TurnState) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	switch name {
	case "capturing":
		*s = TurnCapturing
	case "thinking":
		*s = TurnThinking
	default:
		*s = TurnIdle
	}
	return nil
}

// State is what the UI sees of a session.
type State struct {
	Connection realtime.ConnStatus
	// LastPayload is the most recent well-formed inbound message.
	LastPayload string
	// Transcript is the latest completed response transcript.
	Transcript string
	// LastError is the most recent recoverable failure, if any.
	LastError error
	Turn      TurnState
	// Version increases with every write.
	Version uint64
}
