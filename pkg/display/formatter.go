// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package display

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FormatOpcode returns the human-readable name for an opcode
func FormatOpcode(op Opcode) string {
	switch op {
	case OpSystemInfo:
		return "SYSTEM_INFO"
	case OpDrawRectangle:
		return "DRAW_RECTANGLE"
	case OpDrawCharacter:
		return "DRAW_CHARACTER"
	case OpDrawOscilloscopeWaveform:
		return "DRAW_OSCILLOSCOPE_WAVEFORM"
	case OpJoypadState:
		return "JOYPAD_STATE"
	default:
		return "UNKNOWN"
	}
}

// FormatCommand formats a command into a single human-readable line
func FormatCommand(cmd Command) string {
	return FormatCommandAt(time.Now(), cmd)
}

// FormatCommandAt formats a command stamped with ts
func FormatCommandAt(ts time.Time, cmd Command) string {
	op := cmd.Opcode()
	result := fmt.Sprintf("[%s] %s (0x%02X)", ts.Format("15:04:05.000"), FormatOpcode(op), uint8(op))
	return result + " " + FormatFields(cmd) + "\n"
}

// FormatFields formats the decoded fields of a command
func FormatFields(cmd Command) string {
	switch c := cmd.(type) {
	case DrawRectangle:
		return fmt.Sprintf("x=%d y=%d w=%d h=%d color=%s", c.X, c.Y, c.Width, c.Height, c.Color.Hex())
	case DrawCharacter:
		return fmt.Sprintf("char=%s x=%d y=%d fg=%s bg=%s",
			formatChar(c.Char), c.X, c.Y, c.Foreground.Hex(), c.Background.Hex())
	case DrawOscilloscopeWaveform:
		if len(c.Samples) == 0 {
			return fmt.Sprintf("color=%s (clear)", c.Color.Hex())
		}
		return fmt.Sprintf("color=%s samples=%d", c.Color.Hex(), len(c.Samples))
	case JoypadState:
		return fmt.Sprintf("payload=% X", c.Payload)
	case SystemInfo:
		font := "small"
		if c.LargeFont() {
			font = "large"
		}
		return fmt.Sprintf("hardware=%s firmware=%s font=%s", c.Hardware, c.Firmware, font)
	default:
		return ""
	}
}

// FormatDecodeError returns a short description of a decode error
func FormatDecodeError(err error) string {
	var opErr *UnknownOpcodeError
	var lenErr *InvalidLengthError
	switch {
	case errors.As(err, &opErr):
		return fmt.Sprintf("UNKNOWN_OPCODE: 0x%02X", opErr.Opcode)
	case errors.As(err, &lenErr):
		return "INVALID_LENGTH: " + lenErr.Error()
	default:
		return err.Error()
	}
}

// FormatHexDump formats raw message bytes, 16 per line
func FormatHexDump(data []byte) string {
	var sb strings.Builder
	sb.WriteString("  Data: ")
	for i, b := range data {
		if i > 0 && i%16 == 0 {
			sb.WriteString("\n        ")
		}
		fmt.Fprintf(&sb, "%02X ", b)
	}
	sb.WriteString("\n")
	return sb.String()
}

func formatChar(c byte) string {
	if c >= 0x20 && c < 0x7F {
		return fmt.Sprintf("'%c'", c)
	}
	return fmt.Sprintf("0x%02X", c)
}
