// Package encoding provides the text-safe audio encodings used on the
// realtime wire.
package encoding

import (
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrEmptyPayload is returned when decoding an empty base64 payload.
var ErrEmptyPayload = errors.New("encoding: empty base64 payload")

// EncodeStdBase64 encodes b as standard base64 without line wrapping.
func EncodeStdBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeStdBase64 decodes a standard base64 payload. Unlike
// base64.StdEncoding.DecodeString it rejects embedded line breaks and
// non-zero padding bits, since the wire never wraps audio payloads.
func DecodeStdBase64(s string) ([]byte, error) {
	if s == "" {
		return nil, ErrEmptyPayload
	}
	b, err := base64.StdEncoding.Strict().DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("encoding: decode base64: %w", err)
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' || s[i] == '\r' {
			return nil, fmt.Errorf("encoding: decode base64: line break at offset %d", i)
		}
	}
	return b, nil
}
