// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package slip

import (
	"bytes"
	"errors"
	"testing"
)

// feedAll feeds data and collects every emitted message
func feedAll(d *Decoder, data []byte) [][]byte {
	var msgs [][]byte
	for _, f := range d.FeedChunk(data) {
		if f.Result == MessageEmitted {
			msgs = append(msgs, f.Message)
		}
	}
	return msgs
}

// ============================================================
// Construction Tests
// ============================================================

func TestNewDecoder_InvalidCapacityPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for zero capacity")
		}
	}()
	NewDecoder(0)
}

func TestNewDecoder_InitialState(t *testing.T) {
	d := NewDecoder(DefaultMaxSize)
	if d.Buffered() != 0 {
		t.Errorf("Expected empty buffer, got %d bytes", d.Buffered())
	}
	if d.MaxSize() != DefaultMaxSize {
		t.Errorf("Expected capacity %d, got %d", DefaultMaxSize, d.MaxSize())
	}
}

// ============================================================
// State Machine Tests
// ============================================================

func TestFeed_SimpleMessage(t *testing.T) {
	d := NewDecoder(DefaultMaxSize)
	for _, b := range []byte{0xFF, 0x01, 0x02} {
		if result, msg := d.Feed(b); result != Continue || msg != nil {
			t.Fatalf("Expected Continue for 0x%02X, got %s", b, result)
		}
	}
	result, msg := d.Feed(End)
	if result != MessageEmitted {
		t.Fatalf("Expected MessageEmitted, got %s", result)
	}
	if !bytes.Equal(msg, []byte{0xFF, 0x01, 0x02}) {
		t.Errorf("Unexpected message: % X", msg)
	}
	if d.Buffered() != 0 {
		t.Error("Buffer should be empty after emission")
	}
}

func TestFeed_EscapeSequences(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected []byte
	}{
		{"ESC_END", []byte{Esc, EscEnd, End}, []byte{End}},
		{"ESC_ESC", []byte{Esc, EscEsc, End}, []byte{Esc}},
		{"mixed", []byte{0x01, Esc, EscEnd, 0x02, Esc, EscEsc, 0x03, End}, []byte{0x01, End, 0x02, Esc, 0x03}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := feedAll(NewDecoder(DefaultMaxSize), tt.input)
			if len(msgs) != 1 {
				t.Fatalf("Expected 1 message, got %d", len(msgs))
			}
			if !bytes.Equal(msgs[0], tt.expected) {
				t.Errorf("Expected % X, got % X", tt.expected, msgs[0])
			}
		})
	}
}

func TestFeed_EscapeDoesNotMutateBuffer(t *testing.T) {
	d := NewDecoder(DefaultMaxSize)
	d.Feed(0x10)
	if result, _ := d.Feed(Esc); result != Continue {
		t.Fatalf("Expected Continue on ESC, got %s", result)
	}
	if d.Buffered() != 1 {
		t.Errorf("ESC must not be buffered, have %d bytes", d.Buffered())
	}
}

func TestFeed_UnknownEscapedByte(t *testing.T) {
	d := NewDecoder(DefaultMaxSize)
	d.Feed(0x01)
	d.Feed(0x02)
	d.Feed(Esc)
	result, msg := d.Feed(0x41)
	if result != UnknownEscapedByte {
		t.Fatalf("Expected UnknownEscapedByte, got %s", result)
	}
	if msg != nil {
		t.Error("No message expected on escape error")
	}
	if d.Buffered() != 0 {
		t.Error("Buffer should be cleared after escape error")
	}
	if !errors.Is(result.Err(), ErrUnknownEscapedByte) {
		t.Errorf("Expected ErrUnknownEscapedByte, got %v", result.Err())
	}

	// Decoder stays usable
	msgs := feedAll(d, []byte{0xAA, 0xBB, End})
	if len(msgs) != 1 || !bytes.Equal(msgs[0], []byte{0xAA, 0xBB}) {
		t.Errorf("Decoder did not recover: %v", msgs)
	}
}

func TestFeed_EscapedEndIsNotTerminator(t *testing.T) {
	// ESC followed by END is a malformed escape, not a frame boundary
	d := NewDecoder(DefaultMaxSize)
	d.Feed(0x01)
	d.Feed(Esc)
	if result, _ := d.Feed(End); result != UnknownEscapedByte {
		t.Errorf("Expected UnknownEscapedByte, got %s", result)
	}
}

func TestFeed_EmptyFrameEmitted(t *testing.T) {
	d := NewDecoder(DefaultMaxSize)
	result, msg := d.Feed(End)
	if result != MessageEmitted {
		t.Fatalf("Expected MessageEmitted for empty frame, got %s", result)
	}
	if msg == nil || len(msg) != 0 {
		t.Errorf("Expected empty non-nil message, got %v", msg)
	}

	msgs := feedAll(d, []byte{End, 0x05, End})
	if len(msgs) != 2 || len(msgs[0]) != 0 || !bytes.Equal(msgs[1], []byte{0x05}) {
		t.Errorf("Expected [] then [05], got %v", msgs)
	}
}

func TestFeed_EmptyFrameValidated(t *testing.T) {
	d := NewDecoder(DefaultMaxSize)
	rejectEmpty := errors.New("empty")
	d.SetValidator(func(msg []byte) error {
		if len(msg) == 0 {
			return rejectEmpty
		}
		return nil
	})
	if result, msg := d.Feed(End); result != InvalidPacket || len(msg) != 0 {
		t.Errorf("Expected InvalidPacket for empty frame, got %s (%v)", result, msg)
	}
}

func TestFeed_MessageIsOwnedCopy(t *testing.T) {
	d := NewDecoder(DefaultMaxSize)
	msgs := feedAll(d, []byte{0x01, 0x02, End})
	feedAll(d, []byte{0x09, 0x09, End})
	if !bytes.Equal(msgs[0], []byte{0x01, 0x02}) {
		t.Errorf("Emitted message was overwritten: % X", msgs[0])
	}
}

// ============================================================
// Overflow Tests
// ============================================================

func TestFeed_BufferOverflow(t *testing.T) {
	const capacity = 16
	d := NewDecoder(capacity)

	for i := 0; i < capacity; i++ {
		if result, _ := d.Feed(0x42); result != Continue {
			t.Fatalf("Byte %d: expected Continue, got %s", i, result)
		}
	}
	result, _ := d.Feed(0x42)
	if result != BufferOverflow {
		t.Fatalf("Expected BufferOverflow, got %s", result)
	}
	if d.Buffered() != 0 {
		t.Error("Buffer should be cleared after overflow")
	}
	if !errors.Is(result.Err(), ErrBufferOverflow) {
		t.Errorf("Expected ErrBufferOverflow, got %v", result.Err())
	}

	// The END closing the discarded frame emits what followed the overflow,
	// then the decoder is back in sync
	msgs := feedAll(d, []byte{End, 0x01, 0x02, 0x03, End})
	if len(msgs) != 2 || len(msgs[0]) != 0 || !bytes.Equal(msgs[1], []byte{0x01, 0x02, 0x03}) {
		t.Errorf("Decoder did not resynchronize: %v", msgs)
	}
}

func TestFeed_OverflowOnEscapedByte(t *testing.T) {
	d := NewDecoder(2)
	d.Feed(0x01)
	d.Feed(0x02)
	d.Feed(Esc)
	if result, _ := d.Feed(EscEnd); result != BufferOverflow {
		t.Errorf("Expected BufferOverflow, got %s", result)
	}
}

func TestFeed_ExactCapacityFits(t *testing.T) {
	d := NewDecoder(4)
	msgs := feedAll(d, []byte{1, 2, 3, 4, End})
	if len(msgs) != 1 || len(msgs[0]) != 4 {
		t.Errorf("Message at exact capacity should be emitted, got %v", msgs)
	}
}

// ============================================================
// Validator Hook Tests
// ============================================================

func TestValidator_RejectsMessage(t *testing.T) {
	d := NewDecoder(DefaultMaxSize)
	rejectErr := errors.New("bad opcode")
	d.SetValidator(func(msg []byte) error {
		if msg[0] != 0xFF {
			return rejectErr
		}
		return nil
	})

	frames := d.FeedChunk([]byte{0x99, 0x00, End, 0xFF, End})
	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(frames))
	}
	if frames[0].Result != InvalidPacket {
		t.Errorf("Expected InvalidPacket, got %s", frames[0].Result)
	}
	if !errors.Is(frames[0].Err, rejectErr) {
		t.Errorf("Expected validator error, got %v", frames[0].Err)
	}
	if frames[1].Result != MessageEmitted {
		t.Errorf("Expected MessageEmitted, got %s", frames[1].Result)
	}
	if d.ValidationError() != nil {
		t.Error("ValidationError should clear after a valid message")
	}
}

// ============================================================
// Encoder Tests
// ============================================================

func TestEncode_EscapesSpecialBytes(t *testing.T) {
	got := Encode([]byte{0x01, End, Esc, 0x02})
	expected := []byte{0x01, Esc, EscEnd, Esc, EscEsc, 0x02, End}
	if !bytes.Equal(got, expected) {
		t.Errorf("Expected % X, got % X", expected, got)
	}
}

func TestEncode_DecodeRoundTrip(t *testing.T) {
	msg := []byte{0xFD, End, Esc, EscEnd, EscEsc, 0x00, 0xFF}
	msgs := feedAll(NewDecoder(DefaultMaxSize), Encode(msg))
	if len(msgs) != 1 || !bytes.Equal(msgs[0], msg) {
		t.Errorf("Round trip failed: % X", msgs)
	}
}

func TestResultString(t *testing.T) {
	if MessageEmitted.String() != "MESSAGE_EMITTED" {
		t.Errorf("Unexpected name %q", MessageEmitted.String())
	}
	if Result(99).String() != "UNKNOWN" {
		t.Errorf("Unexpected name %q", Result(99).String())
	}
	if Continue.Err() != nil || MessageEmitted.Err() != nil {
		t.Error("Non-failure results must not carry errors")
	}
}
