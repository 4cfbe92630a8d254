// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package display

import "fmt"

// UnknownOpcodeError is returned when a message starts with an unrecognized opcode
type UnknownOpcodeError struct {
	Opcode uint8
}

// Error implements the error interface
func (e *UnknownOpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode 0x%02X", e.Opcode)
}

// InvalidLengthError is returned when a message length breaks its opcode's rule.
// ExpectedMax is zero for fixed-length commands.
type InvalidLengthError struct {
	Opcode      uint8
	Expected    int
	ExpectedMax int
	Actual      int
}

// Error implements the error interface
func (e *InvalidLengthError) Error() string {
	if e.ExpectedMax > 0 {
		return fmt.Sprintf("invalid length for %s (0x%02X): expected %d-%d bytes, got %d",
			FormatOpcode(Opcode(e.Opcode)), e.Opcode, e.Expected, e.ExpectedMax, e.Actual)
	}
	if e.Actual == 0 {
		return "empty message"
	}
	return fmt.Sprintf("invalid length for %s (0x%02X): expected %d bytes, got %d",
		FormatOpcode(Opcode(e.Opcode)), e.Opcode, e.Expected, e.Actual)
}
