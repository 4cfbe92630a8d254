// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package sysex packs 8-bit payloads into the vendor SysEx envelope used by
// the MIDI transport.
//
// Wire layout:
//
//	F0 00 02 61 00 | msb d0 d1 .. d6 | msb d7 .. | F7
//
// Payload bytes travel 7 bits at a time. Each group of up to seven bytes is
// preceded by a bitfield whose bit i holds the high bit of the group's byte i.
package sysex

import (
	"errors"
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

// Envelope bytes
const (
	Start      = 0xF0
	End        = 0xF7
	DeviceID   = 0x00
	headerSize = 5 // F0 + manufacturer (3) + device
	groupSize  = 7
)

// Manufacturer is the three byte SysEx manufacturer ID
var Manufacturer = [3]byte{0x00, 0x02, 0x61}

// Decode errors
var (
	ErrNotSysEx        = errors.New("sysex: not a sysex message")
	ErrWrongHeader     = errors.New("sysex: unexpected manufacturer or device")
	ErrEmptyGroup      = errors.New("sysex: bitfield without data")
	ErrHighBitInStream = errors.New("sysex: data byte has bit 7 set")
)

// EncodedLen returns the encoded size of an n byte payload
func EncodedLen(n int) int {
	return headerSize + (n+groupSize-1)/groupSize + n + 1
}

// Encode wraps payload in the SysEx envelope
func Encode(payload []byte) []byte {
	inner := make([]byte, 0, EncodedLen(len(payload))-2)
	inner = append(inner, Manufacturer[0], Manufacturer[1], Manufacturer[2], DeviceID)

	for start := 0; start < len(payload); start += groupSize {
		end := start + groupSize
		if end > len(payload) {
			end = len(payload)
		}
		group := payload[start:end]

		var msb byte
		for i, b := range group {
			msb |= (b >> 7) << i
		}
		inner = append(inner, msb)
		for _, b := range group {
			inner = append(inner, b&0x7F)
		}
	}

	return midi.SysEx(inner)
}

// Decode unpacks a complete SysEx frame produced by Encode
func Decode(frame []byte) ([]byte, error) {
	if len(frame) < headerSize+1 || frame[0] != Start || frame[len(frame)-1] != End {
		return nil, ErrNotSysEx
	}

	var inner []byte
	if !midi.Message(frame).GetSysEx(&inner) {
		return nil, ErrNotSysEx
	}
	return Unpack(inner)
}

// Unpack decodes the SysEx body with the F0/F7 bytes already stripped
func Unpack(inner []byte) ([]byte, error) {
	if len(inner) < headerSize-1 {
		return nil, ErrWrongHeader
	}
	if inner[0] != Manufacturer[0] || inner[1] != Manufacturer[1] ||
		inner[2] != Manufacturer[2] || inner[3] != DeviceID {
		return nil, fmt.Errorf("%w: % X", ErrWrongHeader, inner[:4])
	}

	body := inner[headerSize-1:]
	payload := make([]byte, 0, len(body))
	for pos := 0; pos < len(body); {
		msb := body[pos]
		pos++
		if msb&0x80 != 0 {
			return nil, ErrHighBitInStream
		}
		if pos >= len(body) {
			return nil, ErrEmptyGroup
		}

		for i := 0; i < groupSize && pos < len(body); i++ {
			b := body[pos]
			if b&0x80 != 0 {
				return nil, ErrHighBitInStream
			}
			payload = append(payload, b|((msb>>i)&1)<<7)
			pos++
		}
	}

	return payload, nil
}
