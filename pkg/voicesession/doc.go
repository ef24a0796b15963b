// Package voicesession ties an audio chunker and a realtime transport into a
// push-to-talk conversation.
//
// A Coordinator runs the turn state machine:
//
//	Idle --Press--> Capturing --Release--> Thinking --transcript--> Idle
//
// While capturing, every chunk read from the microphone is sent as an
// input_audio_buffer.append event. Release stops capture, then sends
// input_audio_buffer.commit and response.create. Audio deltas from the server
// are played back as they arrive and the final transcript ends the turn.
//
// The UI observes a Store, a single last-write-wins slot holding the
// connection status, the latest inbound payload, the transcript and the turn.
package voicesession
