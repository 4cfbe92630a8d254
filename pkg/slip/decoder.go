// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package slip

import "fmt"

// Decoder implements the SLIP framing state machine.
// It is not safe for concurrent use; feed it from a single stream of calls.
type Decoder struct {
	state    int
	buffer   []byte
	maxSize  int
	validate func(msg []byte) error
	lastErr  error
}

// NewDecoder creates a new SLIP decoder with a frame capacity of maxSize bytes.
// Panics if maxSize is not positive.
func NewDecoder(maxSize int) *Decoder {
	if maxSize <= 0 {
		panic(fmt.Sprintf("slip: invalid frame capacity %d", maxSize))
	}
	return &Decoder{
		state:   stateNormal,
		buffer:  make([]byte, 0, maxSize),
		maxSize: maxSize,
	}
}

// SetValidator installs a message-complete hook. When it returns an error the
// END byte yields InvalidPacket instead of MessageEmitted. Pass nil to remove.
func (d *Decoder) SetValidator(fn func(msg []byte) error) {
	d.validate = fn
}

// MaxSize returns the frame capacity
func (d *Decoder) MaxSize() int {
	return d.maxSize
}

// Buffered returns the number of bytes accumulated for the current frame
func (d *Decoder) Buffered() int {
	return len(d.buffer)
}

// ValidationError returns the validator error behind the last InvalidPacket
func (d *Decoder) ValidationError() error {
	return d.lastErr
}

// Reset discards any partial frame and returns to the normal state
func (d *Decoder) Reset() {
	d.state = stateNormal
	d.buffer = d.buffer[:0]
}

// Feed processes a single byte through the decoder state machine.
// The returned message is an owned copy, set only for MessageEmitted and
// InvalidPacket.
func (d *Decoder) Feed(b byte) (Result, []byte) {
	if d.state == stateEscaped {
		d.state = stateNormal
		switch b {
		case EscEnd:
			return d.appendByte(End), nil
		case EscEsc:
			return d.appendByte(Esc), nil
		default:
			d.buffer = d.buffer[:0]
			return UnknownEscapedByte, nil
		}
	}

	switch b {
	case End:
		return d.complete()
	case Esc:
		d.state = stateEscaped
		return Continue, nil
	default:
		return d.appendByte(b), nil
	}
}

// FeedChunk feeds every byte of p in order and returns the non-Continue results
func (d *Decoder) FeedChunk(p []byte) []Frame {
	var frames []Frame
	for _, b := range p {
		result, msg := d.Feed(b)
		if result == Continue {
			continue
		}
		frame := Frame{Result: result, Message: msg}
		if result == InvalidPacket {
			frame.Err = d.lastErr
		}
		frames = append(frames, frame)
	}
	return frames
}

func (d *Decoder) appendByte(b byte) Result {
	if len(d.buffer) >= d.maxSize {
		d.buffer = d.buffer[:0]
		return BufferOverflow
	}
	d.buffer = append(d.buffer, b)
	return Continue
}

func (d *Decoder) complete() (Result, []byte) {
	// An empty frame is still a frame; the consumer rejects it
	msg := make([]byte, len(d.buffer))
	copy(msg, d.buffer)
	d.buffer = d.buffer[:0]

	if d.validate != nil {
		if err := d.validate(msg); err != nil {
			d.lastErr = err
			return InvalidPacket, msg
		}
	}
	d.lastErr = nil
	return MessageEmitted, msg
}
