// Package buffer provides the two bounded buffers the session engine relies
// on.
//
//   - BlockBuffer is a fixed-size FIFO that blocks writers when full and
//     readers when empty. The audio chunker feeds decoded playback audio
//     through one so that a slow speaker applies backpressure instead of
//     growing memory.
//
//   - RingBuffer keeps the most recent N elements and silently overwrites the
//     oldest. The CLI uses it to retain the tail of the log for the TUI.
//
// Both types are safe for concurrent use. CloseWrite lets readers drain what
// is left, CloseWithError unblocks everyone immediately.
package buffer
