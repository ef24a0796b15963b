// Package audio groups the audio sub-packages of a voice session:
//
//   - pcm: raw 16-bit PCM formats and the realtime wire format
//   - resampler: sample rate and channel conversion between formats
//   - portaudio: microphone and speaker access through PortAudio
//   - chunker: turns device audio into base64 wire chunks and back
//
// Byte buffers used for playback live in the separate buffer package.
package audio
