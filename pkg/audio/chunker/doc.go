// Package chunker turns a live microphone into a stream of base64 encoded
// PCM chunks and plays encoded chunks back through a speaker.
//
// A Chunker owns at most one capture device and one playback device. Capture
// runs in its own goroutine that reads a fixed-size buffer (3200 bytes, about
// 66ms of 24kHz mono L16) in a loop and hands every encoded read to a
// CaptureHandler. Playback goes through a bounded buffer drained by a second
// goroutine so that PlayChunk never waits on the speaker for longer than it
// takes the buffer to make room.
//
// Devices are abstracted behind DeviceOpener. The portaudio package provides
// the real implementation.
package chunker
