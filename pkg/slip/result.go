// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package slip

import "errors"

// Result is the outcome of feeding one byte to the Decoder
type Result int

const (
	// Continue means the byte was consumed and no frame boundary was reached
	Continue Result = iota
	// MessageEmitted means an END byte completed a message
	MessageEmitted
	// InvalidPacket means a message was completed but rejected by the validator
	InvalidPacket
	// BufferOverflow means the message exceeded the frame capacity and was discarded
	BufferOverflow
	// UnknownEscapedByte means ESC was followed by something other than ESC_END or ESC_ESC
	UnknownEscapedByte
)

// Framing errors
var (
	ErrBufferOverflow     = errors.New("slip: frame buffer overflow")
	ErrUnknownEscapedByte = errors.New("slip: unknown escaped byte")
	ErrInvalidPacket      = errors.New("slip: invalid packet")
)

// String returns the result name
func (r Result) String() string {
	switch r {
	case Continue:
		return "CONTINUE"
	case MessageEmitted:
		return "MESSAGE_EMITTED"
	case InvalidPacket:
		return "INVALID_PACKET"
	case BufferOverflow:
		return "BUFFER_OVERFLOW"
	case UnknownEscapedByte:
		return "UNKNOWN_ESCAPED_BYTE"
	default:
		return "UNKNOWN"
	}
}

// Err returns the sentinel error for failure results, nil otherwise
func (r Result) Err() error {
	switch r {
	case BufferOverflow:
		return ErrBufferOverflow
	case UnknownEscapedByte:
		return ErrUnknownEscapedByte
	case InvalidPacket:
		return ErrInvalidPacket
	default:
		return nil
	}
}

// Frame is a non-Continue result produced while feeding a chunk
type Frame struct {
	Result  Result
	Message []byte // set for MessageEmitted and InvalidPacket
	Err     error  // validator error for InvalidPacket
}
