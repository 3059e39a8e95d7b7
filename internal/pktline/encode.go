package pktline

import (
	"fmt"

	"churnmap/internal/errors"
)

// Encode appends payload to dst as a single data frame. The declared
// length covers the payload plus the 4-byte prefix.
func Encode(dst, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLen {
		return nil, errors.Newf(errors.InternalError,
			"payload of %d bytes exceeds maximum frame size", len(payload))
	}
	dst = append(dst, fmt.Sprintf("%04x", len(payload)+lenSize)...)
	return append(dst, payload...), nil
}

// EncodeString appends s to dst as a single data frame
func EncodeString(dst []byte, s string) ([]byte, error) {
	return Encode(dst, []byte(s))
}

// EncodeFlush appends a flush frame to dst
func EncodeFlush(dst []byte) []byte {
	return append(dst, flushToken...)
}
