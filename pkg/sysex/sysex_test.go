// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sysex

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestEncode_SingleByte(t *testing.T) {
	got := Encode([]byte{'E'})
	expected := []byte{0xF0, 0x00, 0x02, 0x61, 0x00, 0x00, 'E', 0xF7}
	if !bytes.Equal(got, expected) {
		t.Errorf("Expected % X, got % X", expected, got)
	}
}

func TestEncode_HighBits(t *testing.T) {
	got := Encode([]byte{0x80, 0x01, 0xFF})
	// bit 0 and bit 2 of the bitfield carry the high bits
	expected := []byte{0xF0, 0x00, 0x02, 0x61, 0x00, 0x05, 0x00, 0x01, 0x7F, 0xF7}
	if !bytes.Equal(got, expected) {
		t.Errorf("Expected % X, got % X", expected, got)
	}
}

func TestEncode_AllBytesSevenBit(t *testing.T) {
	payload := make([]byte, 256)
	for i := range payload {
		payload[i] = byte(i)
	}
	frame := Encode(payload)
	for i, b := range frame[1 : len(frame)-1] {
		if b&0x80 != 0 {
			t.Fatalf("Byte %d (0x%02X) inside the envelope has bit 7 set", i+1, b)
		}
	}
}

func TestEncodedLen(t *testing.T) {
	for _, n := range []int{0, 1, 6, 7, 8, 14, 15, 64} {
		if got := len(Encode(make([]byte, n))); got != EncodedLen(n) {
			t.Errorf("n=%d: encoded %d bytes, EncodedLen says %d", n, got, EncodedLen(n))
		}
	}
	if EncodedLen(7) != 5+1+7+1 {
		t.Errorf("Unexpected size for 7 bytes: %d", EncodedLen(7))
	}
	if EncodedLen(8) != 5+2+8+1 {
		t.Errorf("Unexpected size for 8 bytes: %d", EncodedLen(8))
	}
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for n := 1; n <= 64; n++ {
		for round := 0; round < 20; round++ {
			payload := make([]byte, n)
			rng.Read(payload)
			got, err := Decode(Encode(payload))
			if err != nil {
				t.Fatalf("n=%d: decode error: %v", n, err)
			}
			if !bytes.Equal(got, payload) {
				t.Fatalf("n=%d: round trip mismatch\n  in:  % X\n  out: % X", n, payload, got)
			}
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		frame []byte
		err   error
	}{
		{"empty", []byte{}, ErrNotSysEx},
		{"no terminator", []byte{0xF0, 0x00, 0x02, 0x61, 0x00, 0x00, 0x45}, ErrNotSysEx},
		{"not sysex", []byte{0x90, 0x00, 0x02, 0x61, 0x00, 0xF7}, ErrNotSysEx},
		{"foreign manufacturer", []byte{0xF0, 0x00, 0x20, 0x29, 0x00, 0x00, 0x45, 0xF7}, ErrWrongHeader},
		{"dangling bitfield", []byte{0xF0, 0x00, 0x02, 0x61, 0x00, 0x00, 0xF7}, ErrEmptyGroup},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.frame)
			if !errors.Is(err, tt.err) {
				t.Errorf("Expected %v, got %v", tt.err, err)
			}
		})
	}
}

func TestUnpack_HighBitInData(t *testing.T) {
	_, err := Unpack([]byte{0x00, 0x02, 0x61, 0x00, 0x00, 0x81})
	if !errors.Is(err, ErrHighBitInStream) {
		t.Errorf("Expected ErrHighBitInStream, got %v", err)
	}
}

func TestUnpack_EmptyPayload(t *testing.T) {
	got, err := Unpack([]byte{0x00, 0x02, 0x61, 0x00})
	if err != nil || len(got) != 0 {
		t.Errorf("Expected empty payload, got %v, %v", got, err)
	}
}
