// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package display

// Decoder decodes display messages into commands.
//
// JoypadLength pins the JOYPAD_STATE message length to the targeted
// firmware: JoypadStateLength for current firmware, JoypadStateLegacyLen for
// older releases. Zero means JoypadStateLength.
type Decoder struct {
	JoypadLength int
}

var defaultDecoder = Decoder{JoypadLength: JoypadStateLength}

// Decode decodes a message using current firmware length rules
func Decode(msg []byte) (Command, error) {
	return defaultDecoder.Decode(msg)
}

// Decode validates msg against its opcode's length rule and decodes it.
// It never reads past msg and never panics.
func (d Decoder) Decode(msg []byte) (Command, error) {
	if len(msg) == 0 {
		return nil, &InvalidLengthError{Expected: 1, Actual: 0}
	}

	op := Opcode(msg[0])
	switch op {
	case OpDrawRectangle:
		if err := checkFixed(msg, DrawRectangleLength); err != nil {
			return nil, err
		}
		return DrawRectangle{
			X:      le16(msg[1:]),
			Y:      le16(msg[3:]),
			Width:  le16(msg[5:]),
			Height: le16(msg[7:]),
			Color:  Color{R: msg[9], G: msg[10], B: msg[11]},
		}, nil

	case OpDrawCharacter:
		if err := checkFixed(msg, DrawCharacterLength); err != nil {
			return nil, err
		}
		return DrawCharacter{
			Char:       msg[1],
			X:          le16(msg[2:]),
			Y:          le16(msg[4:]),
			Foreground: Color{R: msg[6], G: msg[7], B: msg[8]},
			Background: Color{R: msg[9], G: msg[10], B: msg[11]},
		}, nil

	case OpDrawOscilloscopeWaveform:
		if len(msg) < WaveformMinLength || len(msg) > WaveformMaxLength {
			return nil, &InvalidLengthError{
				Opcode:      uint8(op),
				Expected:    WaveformMinLength,
				ExpectedMax: WaveformMaxLength,
				Actual:      len(msg),
			}
		}
		samples := make([]byte, len(msg)-WaveformMinLength)
		copy(samples, msg[WaveformMinLength:])
		return DrawOscilloscopeWaveform{
			Color:   Color{R: msg[1], G: msg[2], B: msg[3]},
			Samples: samples,
		}, nil

	case OpJoypadState:
		if err := checkFixed(msg, d.joypadLength()); err != nil {
			return nil, err
		}
		payload := make([]byte, len(msg)-1)
		copy(payload, msg[1:])
		return JoypadState{Payload: payload}, nil

	case OpSystemInfo:
		if err := checkFixed(msg, SystemInfoLength); err != nil {
			return nil, err
		}
		return SystemInfo{
			Hardware:  HardwareType(msg[1]),
			Firmware:  FirmwareVersion{Major: msg[2], Minor: msg[3], Patch: msg[4]},
			ModelFlag: msg[5],
		}, nil

	default:
		return nil, &UnknownOpcodeError{Opcode: uint8(op)}
	}
}

// ExpectedLength returns the length rule for an opcode.
// maxLength is zero for fixed lengths; ok is false for unknown opcodes.
func (d Decoder) ExpectedLength(op Opcode) (length, maxLength int, ok bool) {
	switch op {
	case OpDrawRectangle:
		return DrawRectangleLength, 0, true
	case OpDrawCharacter:
		return DrawCharacterLength, 0, true
	case OpDrawOscilloscopeWaveform:
		return WaveformMinLength, WaveformMaxLength, true
	case OpJoypadState:
		return d.joypadLength(), 0, true
	case OpSystemInfo:
		return SystemInfoLength, 0, true
	default:
		return 0, 0, false
	}
}

// Validate checks a message without keeping the decoded command.
// Suitable as a slip.Decoder validator hook.
func (d Decoder) Validate(msg []byte) error {
	_, err := d.Decode(msg)
	return err
}

func (d Decoder) joypadLength() int {
	if d.JoypadLength > 0 {
		return d.JoypadLength
	}
	return JoypadStateLength
}

func checkFixed(msg []byte, expected int) error {
	if len(msg) != expected {
		return &InvalidLengthError{Opcode: msg[0], Expected: expected, Actual: len(msg)}
	}
	return nil
}

// le16 reads a little-endian uint16; callers guarantee two bytes
func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}
