package realtime

import (
	"encoding/json"
	"fmt"
)

// Client event types (sent from client to server).
const (
	EventTypeInputAudioBufferAppend = "input_audio_buffer.append"
	EventTypeInputAudioBufferCommit = "input_audio_buffer.commit"
	EventTypeResponseCreate         = "response.create"
)

// Server event types (sent from server to client).
const (
	EventTypeResponseAudioDelta          = "response.audio.delta"
	EventTypeResponseAudioTranscriptDone = "response.audio_transcript.done"

	// The following are not interpreted by the session engine. The loopback
	// server emits them so clients see a realistic event sequence.
	EventTypeError                     = "error"
	EventTypeSessionCreated            = "session.created"
	EventTypeInputAudioBufferCommitted = "input_audio_buffer.committed"
	EventTypeResponseCreated           = "response.created"
	EventTypeResponseAudioDone         = "response.audio.done"
	EventTypeResponseDone              = "response.done"
)

// Kind tags the variant held by an Event.
type Kind int

const (
	KindUnknown Kind = iota
	KindAudioAppend
	KindAudioCommit
	KindResponseCreate
	KindAudioDelta
	KindTranscriptDone
)

// String returns the wire type for known kinds.
func (k Kind) String() string {
	switch k {
	case KindAudioAppend:
		return EventTypeInputAudioBufferAppend
	case KindAudioCommit:
		return EventTypeInputAudioBufferCommit
	case KindResponseCreate:
		return EventTypeResponseCreate
	case KindAudioDelta:
		return EventTypeResponseAudioDelta
	case KindTranscriptDone:
		return EventTypeResponseAudioTranscriptDone
	default:
		return "unknown"
	}
}

// Outbound reports whether the client may send events of this kind.
func (k Kind) Outbound() bool {
	return k == KindAudioAppend || k == KindAudioCommit || k == KindResponseCreate
}

// Event is one realtime protocol message.
//
// Only the field matching Kind is meaningful: Audio for KindAudioAppend,
// Delta for KindAudioDelta, Transcript for KindTranscriptDone. Decoded
// events keep the original payload in Raw, and Type holds the wire type even
// for KindUnknown.
type Event struct {
	Kind       Kind
	Type       string
	Audio      string
	Delta      string
	Transcript string
	Raw        []byte
}

// AudioAppend returns an input_audio_buffer.append event carrying a base64
// PCM chunk.
func AudioAppend(audio string) Event {
	return Event{Kind: KindAudioAppend, Type: EventTypeInputAudioBufferAppend, Audio: audio}
}

// AudioCommit returns an input_audio_buffer.commit event.
func AudioCommit() Event {
	return Event{Kind: KindAudioCommit, Type: EventTypeInputAudioBufferCommit}
}

// ResponseCreate returns a response.create event.
func ResponseCreate() Event {
	return Event{Kind: KindResponseCreate, Type: EventTypeResponseCreate}
}

// AudioDelta returns a response.audio.delta event. Only servers send it.
func AudioDelta(delta string) Event {
	return Event{Kind: KindAudioDelta, Type: EventTypeResponseAudioDelta, Delta: delta}
}

// TranscriptDone returns a response.audio_transcript.done event. Only
// servers send it.
func TranscriptDone(transcript string) Event {
	return Event{Kind: KindTranscriptDone, Type: EventTypeResponseAudioTranscriptDone, Transcript: transcript}
}

type typeOnly struct {
	Type string `json:"type"`
}

type appendWire struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

type deltaWire struct {
	Type  string `json:"type"`
	Delta string `json:"delta"`
}

type transcriptWire struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
}

// Encode serializes an outbound event. Encoding a server-only kind fails
// with ErrNotOutbound.
func Encode(e Event) ([]byte, error) {
	switch e.Kind {
	case KindAudioAppend:
		return json.Marshal(appendWire{Type: EventTypeInputAudioBufferAppend, Audio: e.Audio})
	case KindAudioCommit:
		return json.Marshal(typeOnly{Type: EventTypeInputAudioBufferCommit})
	case KindResponseCreate:
		return json.Marshal(typeOnly{Type: EventTypeResponseCreate})
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotOutbound, e.Kind)
	}
}

// EncodeServer serializes a server-to-client event. It is what a server,
// such as the loopback server, puts on the wire.
func EncodeServer(e Event) ([]byte, error) {
	switch e.Kind {
	case KindAudioDelta:
		return json.Marshal(deltaWire{Type: EventTypeResponseAudioDelta, Delta: e.Delta})
	case KindTranscriptDone:
		return json.Marshal(transcriptWire{Type: EventTypeResponseAudioTranscriptDone, Transcript: e.Transcript})
	case KindUnknown:
		if e.Type == "" {
			return nil, fmt.Errorf("%w: missing type", ErrNotOutbound)
		}
		if len(e.Raw) > 0 {
			return e.Raw, nil
		}
		return json.Marshal(typeOnly{Type: e.Type})
	default:
		return nil, fmt.Errorf("%w: %s is client-only", ErrNotOutbound, e.Kind)
	}
}

// Decode parses a server message. Known server types map to their kinds.
// Every other well-formed message, including client-only types echoed back
// by a server, becomes KindUnknown. Malformed JSON, a missing type or a
// known type without its payload field yields a *ProtocolError.
func Decode(data []byte) (Event, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Event{}, newProtocolError("invalid json", data, err)
	}
	if head.Type == nil || *head.Type == "" {
		return Event{}, newProtocolError("missing type", data, nil)
	}

	e := Event{Type: *head.Type, Raw: data}
	switch e.Type {
	case EventTypeResponseAudioDelta:
		var body struct {
			Delta *string `json:"delta"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return Event{}, newProtocolError("invalid delta", data, err)
		}
		if body.Delta == nil {
			return Event{}, newProtocolError("missing delta", data, nil)
		}
		e.Kind = KindAudioDelta
		e.Delta = *body.Delta
	case EventTypeResponseAudioTranscriptDone:
		var body struct {
			Transcript *string `json:"transcript"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return Event{}, newProtocolError("invalid transcript", data, err)
		}
		if body.Transcript == nil {
			return Event{}, newProtocolError("missing transcript", data, nil)
		}
		e.Kind = KindTranscriptDone
		e.Transcript = *body.Transcript
	default:
		e.Kind = KindUnknown
	}
	return e, nil
}

// DecodeClient parses a client message the way a server sees it. It is the
// counterpart of Encode: append, commit and response.create map to their
// kinds, anything else is KindUnknown.
func DecodeClient(data []byte) (Event, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Event{}, newProtocolError("invalid json", data, err)
	}
	if head.Type == nil || *head.Type == "" {
		return Event{}, newProtocolError("missing type", data, nil)
	}

	e := Event{Type: *head.Type, Raw: data}
	switch e.Type {
	case EventTypeInputAudioBufferAppend:
		var body struct {
			Audio *string `json:"audio"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return Event{}, newProtocolError("invalid audio", data, err)
		}
		if body.Audio == nil {
			return Event{}, newProtocolError("missing audio", data, nil)
		}
		e.Kind = KindAudioAppend
		e.Audio = *body.Audio
	case EventTypeInputAudioBufferCommit:
		e.Kind = KindAudioCommit
	case EventTypeResponseCreate:
		e.Kind = KindResponseCreate
	default:
		e.Kind = KindUnknown
	}
	return e, nil
}
