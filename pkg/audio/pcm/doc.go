// Package pcm describes the raw audio formats of a voice session.
//
// The realtime service speaks 16-bit little-endian mono PCM at 24 kHz in
// both directions (Wire). Devices may run at 16 or 48 kHz; the Format
// arithmetic sizes device buffers and cuts audio into fixed-duration pieces.
//
//	// Bytes needed for 100ms of wire audio
//	n := pcm.Wire.BytesInDuration(100 * time.Millisecond)
//
//	// Split a buffer into 100ms pieces
//	for _, piece := range pcm.Wire.Split(audio, 100*time.Millisecond) {
//	    send(piece)
//	}
package pcm
