// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package display

import "fmt"

// Command is a decoded display command.
// The concrete type is one of DrawRectangle, DrawCharacter,
// DrawOscilloscopeWaveform, JoypadState or SystemInfo.
type Command interface {
	Opcode() Opcode
}

// Color is a 24-bit RGB color
type Color struct {
	R, G, B uint8
}

// Hex returns the color as #rrggbb
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// DrawRectangle fills a rectangle with a solid color
type DrawRectangle struct {
	X, Y          uint16
	Width, Height uint16
	Color         Color
}

// Opcode implements Command
func (DrawRectangle) Opcode() Opcode { return OpDrawRectangle }

// CoversScreen reports whether the rectangle paints the whole screen,
// which the device uses to clear it and set the background color.
func (r DrawRectangle) CoversScreen() bool {
	return r.X == 0 && r.Y == 0 && r.Width >= ScreenWidth && r.Height >= ScreenHeight
}

// DrawCharacter draws one glyph at a pixel position
type DrawCharacter struct {
	Char       byte
	X, Y       uint16
	Foreground Color
	Background Color
}

// Opcode implements Command
func (DrawCharacter) Opcode() Opcode { return OpDrawCharacter }

// DrawOscilloscopeWaveform draws the oscilloscope trace.
// Samples are raw device values; an empty slice clears the waveform.
type DrawOscilloscopeWaveform struct {
	Color   Color
	Samples []byte
}

// Opcode implements Command
func (DrawOscilloscopeWaveform) Opcode() Opcode { return OpDrawOscilloscopeWaveform }

// JoypadState is recognized but carries nothing the client uses
type JoypadState struct {
	Payload []byte
}

// Opcode implements Command
func (JoypadState) Opcode() Opcode { return OpJoypadState }

// FirmwareVersion is a major.minor.patch firmware version
type FirmwareVersion struct {
	Major, Minor, Patch uint8
}

// String returns the version as major.minor.patch
func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// SystemInfo reports the connected device model and firmware
type SystemInfo struct {
	Hardware  HardwareType
	Firmware  FirmwareVersion
	ModelFlag uint8
}

// Opcode implements Command
func (SystemInfo) Opcode() Opcode { return OpSystemInfo }

// LargeFont reports whether the device renders with the large font
func (s SystemInfo) LargeFont() bool {
	return s.ModelFlag != 0
}
