// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package slip implements the SLIP framing used by the remote display link.
//
// The device sends every display message as a SLIP frame terminated by an
// END byte. The Decoder consumes the raw stream one byte at a time, in any
// chunking the transport happens to deliver, and hands back complete
// de-escaped messages.
package slip

// Framing bytes
const (
	End    = 0xC0
	Esc    = 0xDB
	EscEnd = 0xDC
	EscEsc = 0xDD
)

// DefaultMaxSize is the default frame buffer capacity. The largest display
// message is an oscilloscope waveform of 324 bytes.
const DefaultMaxSize = 1024

// Framing states
const (
	stateNormal = iota
	stateEscaped
)
