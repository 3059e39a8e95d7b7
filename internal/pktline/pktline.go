// Package pktline implements the length-prefixed record framing used by
// the smart transfer protocol. A frame is either a flush marker ("0000"),
// a data record whose 4-digit hex length includes the length prefix
// itself, or the literal "PACK" tag after which the remainder of the
// stream is an opaque binary payload.
package pktline

import (
	"strconv"

	"churnmap/internal/errors"
)

const (
	// lenSize is the size of the hex length prefix of a data frame
	lenSize = 4

	// flushToken marks a logical boundary without carrying a payload
	flushToken = "0000"

	// packToken introduces the binary transfer payload; nothing after it
	// is frame-structured
	packToken = "PACK"

	// MaxPayloadLen is the largest payload a single data frame can carry
	MaxPayloadLen = 0xffff - lenSize
)

// FrameType discriminates the three kinds of protocol records
type FrameType int

const (
	// FrameFlush is a zero-payload boundary marker, structurally distinct
	// from an empty-payload data frame
	FrameFlush FrameType = iota
	// FrameData is an opaque byte payload with a declared length
	FrameData
	// FramePack carries the rest of the stream as one binary payload
	FramePack
)

// Frame is a single decoded protocol record
type Frame struct {
	Type    FrameType
	Payload []byte
}

// Scanner decodes frames from an immutable byte buffer, left to right.
// It is non-restartable: iteration stops at buffer exhaustion, at the
// first PACK frame, or at the first validation failure. Payloads alias
// the input buffer.
type Scanner struct {
	buf   []byte
	pos   int
	frame Frame
	err   error
	done  bool
}

// NewScanner creates a scanner over buf
func NewScanner(buf []byte) *Scanner {
	return &Scanner{buf: buf}
}

// Scan advances to the next frame. It returns false when the buffer is
// exhausted or a validation error occurred; check Err afterwards.
func (s *Scanner) Scan() bool {
	if s.done || s.err != nil || s.pos >= len(s.buf) {
		return false
	}

	if s.pos+lenSize > len(s.buf) {
		s.err = errors.Newf(errors.ProtocolViolation,
			"truncated frame length at offset %d", s.pos)
		return false
	}

	token := s.buf[s.pos : s.pos+lenSize]
	for _, b := range token {
		if b < 0x20 || b > 0x7e {
			s.err = errors.Newf(errors.ProtocolViolation,
				"non-ASCII byte 0x%02x in frame length at offset %d", b, s.pos)
			return false
		}
	}

	switch string(token) {
	case flushToken:
		s.frame = Frame{Type: FrameFlush}
		s.pos += lenSize
		return true
	case packToken:
		s.frame = Frame{Type: FramePack, Payload: s.buf[s.pos:]}
		s.pos = len(s.buf)
		s.done = true
		return true
	}

	length, err := strconv.ParseUint(string(token), 16, 32)
	if err != nil {
		s.err = errors.New(errors.ProtocolViolation,
			"invalid frame length "+strconv.Quote(string(token)), err)
		return false
	}
	if length < lenSize {
		s.err = errors.Newf(errors.ProtocolViolation,
			"frame length %d smaller than its own prefix", length)
		return false
	}
	end := s.pos + int(length)
	if end > len(s.buf) {
		s.err = errors.Newf(errors.ProtocolViolation,
			"frame length %d overruns buffer at offset %d", length, s.pos)
		return false
	}

	s.frame = Frame{Type: FrameData, Payload: s.buf[s.pos+lenSize : end]}
	s.pos = end
	return true
}

// Frame returns the frame produced by the last successful Scan
func (s *Scanner) Frame() Frame {
	return s.frame
}

// Err returns the validation error that stopped the scan, if any
func (s *Scanner) Err() error {
	return s.err
}

// Text decodes a data frame payload expected to be ASCII text, rejecting
// any byte outside the printable range (newline and NUL excepted: both
// appear as delimiters in protocol text lines).
func Text(f Frame) (string, error) {
	for _, b := range f.Payload {
		if b == '\n' || b == 0 {
			continue
		}
		if b < 0x20 || b > 0x7e {
			return "", errors.Newf(errors.ProtocolViolation,
				"non-ASCII byte 0x%02x in text payload", b)
		}
	}
	return string(f.Payload), nil
}
