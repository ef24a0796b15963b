// Package realtime implements the client side of a realtime conversational
// audio session: the JSON event codec and a WebSocket transport.
//
// # Events
//
// The client sends three events:
//
//	{"type":"input_audio_buffer.append","audio":"<base64 PCM>"}
//	{"type":"input_audio_buffer.commit"}
//	{"type":"response.create"}
//
// and interprets two:
//
//	{"type":"response.audio.delta","delta":"<base64 PCM>"}
//	{"type":"response.audio_transcript.done","transcript":"..."}
//
// Everything else decodes to KindUnknown with the raw payload preserved.
// Audio is 16-bit little-endian mono PCM at 24kHz.
//
// # Transport
//
// A Transport is constructed explicitly and owns at most one connection:
//
//	t := realtime.NewTransport(&realtime.TransportConfig{URL: url, APIKey: key})
//	cancel, err := t.Subscribe(sub)
//	if err != nil {
//	    return err
//	}
//	defer cancel()
//	if err := t.Connect(ctx); err != nil {
//	    return err
//	}
//	defer t.Disconnect()
//
// Send never blocks. It returns ErrNotConnected or ErrQueueFull when the
// message is dropped. A failed connection stays failed until Connect is
// called again; ConnectWithRetry wraps that in an exponential backoff.
package realtime
