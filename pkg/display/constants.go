// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package display decodes the remote display command stream.
//
// Each SLIP frame carries one command. The first byte is the opcode and the
// remaining bytes follow a fixed layout with little-endian 16-bit integers.
// Decode turns a frame into a typed Command without drawing anything; the
// caller dispatches the result to whatever renders it.
package display

// Opcode is the first byte of a display message
type Opcode uint8

// Display opcodes (device → client)
const (
	OpSystemInfo               Opcode = 0xFF
	OpDrawRectangle            Opcode = 0xFE
	OpDrawCharacter            Opcode = 0xFD
	OpDrawOscilloscopeWaveform Opcode = 0xFC
	OpJoypadState              Opcode = 0xFB
)

// Message lengths, opcode included
const (
	DrawRectangleLength  = 12
	DrawCharacterLength  = 12
	SystemInfoLength     = 6
	WaveformMinLength    = 4
	WaveformMaxLength    = 324
	MaxWaveformSamples   = WaveformMaxLength - WaveformMinLength
	JoypadStateLength    = 3
	JoypadStateLegacyLen = 2
)

// Screen geometry of the device
const (
	ScreenWidth  = 320
	ScreenHeight = 240
)

// Control message tags (client → device)
const (
	TagEnable     = 'E'
	TagReset      = 'R'
	TagDisconnect = 'D'
	TagController = 'C'
	TagKeyJazz    = 'K'
)

// Controller input bitmask for TagController messages
const (
	KeyEdit   uint8 = 1 << 0
	KeyOption uint8 = 1 << 1
	KeyRight  uint8 = 1 << 2
	KeyStart  uint8 = 1 << 3
	KeySelect uint8 = 1 << 4
	KeyDown   uint8 = 1 << 5
	KeyUp     uint8 = 1 << 6
	KeyLeft   uint8 = 1 << 7
)

// NoteOff is the key jazz note value that releases the playing note
const NoteOff = 0xFF

// HardwareType identifies the device model reported in SYSTEM_INFO
type HardwareType uint8

// Hardware type values
const (
	HardwareHeadless     HardwareType = 0x00
	HardwareBeta         HardwareType = 0x01
	HardwareProduction   HardwareType = 0x02
	HardwareProductionV2 HardwareType = 0x03
)

// String returns the hardware model name
func (h HardwareType) String() string {
	switch h {
	case HardwareHeadless:
		return "Headless"
	case HardwareBeta:
		return "Beta M8"
	case HardwareProduction:
		return "Production M8"
	case HardwareProductionV2:
		return "Production M8 Model:02"
	default:
		return "Unknown"
	}
}
