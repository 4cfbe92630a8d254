// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/lumen/pkg/display"
	"github.com/Thermoquad/lumen/pkg/remote"
	"github.com/Thermoquad/lumen/pkg/slip"
)

// scriptConn returns scripted chunks in order, then io.EOF
type scriptConn struct {
	chunks  [][]byte
	written bytes.Buffer
}

func (c *scriptConn) Read(b []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(b, c.chunks[0])
	if n < len(c.chunks[0]) {
		c.chunks[0] = c.chunks[0][n:]
	} else {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func (c *scriptConn) Write(b []byte) (int, error) { return c.written.Write(b) }
func (c *scriptConn) Close() error                { return nil }

func diagnoseWire() []byte {
	oversized := bytes.Repeat([]byte{0xFC}, slip.DefaultMaxSize+1)

	var wire []byte
	wire = append(wire, slip.Encode([]byte{0xFC, 1, 2, 3, 4})...)
	wire = append(wire, slip.Encode([]byte{0xFE, 1, 2})...)
	wire = append(wire, slip.Esc, 0x99)
	wire = append(wire, slip.End)
	wire = append(wire, slip.Encode(oversized)...)
	wire = append(wire, slip.Encode([]byte{0xEE})...)
	return wire
}

func TestDiagnoser_ErrorsOnly(t *testing.T) {
	var out bytes.Buffer
	d := &diagnoser{out: &out}
	client := remote.NewClient(&scriptConn{chunks: [][]byte{diagnoseWire()}}, d, remote.DefaultConfig(), zerolog.Nop())
	client.SetErrorHandler(d.handleError)

	for {
		if _, err := client.Poll(); err != nil {
			break
		}
	}

	text := out.String()
	for _, want := range []string{
		"DECODE ERROR:\033[0m INVALID_LENGTH",
		"unknown escape sequence",
		"buffer overflow",
		"UNKNOWN_OPCODE: 0xEE",
		"Data: EE",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "DRAW_OSCILLOSCOPE_WAVEFORM") {
		t.Errorf("Valid commands should be hidden without --show-all")
	}

	d.printStats(client.Stats())
	if !strings.Contains(out.String(), "Framing") {
		t.Errorf("Statistics summary missing:\n%s", out.String())
	}
}

func TestDiagnoser_ShowAll(t *testing.T) {
	var out bytes.Buffer
	d := &diagnoser{out: &out, showAll: true}
	d.HandleCommand(display.DrawOscilloscopeWaveform{Color: display.Color{G: 0xFF}, Samples: []byte{1}})
	if !strings.Contains(out.String(), "DRAW_OSCILLOSCOPE_WAVEFORM (0xFC) color=#00ff00 samples=1") {
		t.Errorf("Unexpected output %q", out.String())
	}
}

func TestDiagnosePollingEndsOnEOF(t *testing.T) {
	var out bytes.Buffer
	d := &diagnoser{out: &out}
	conn := &scriptConn{chunks: [][]byte{slip.Encode([]byte{0xFC, 0, 0, 0})}}
	client := remote.NewClient(conn, d, remote.DefaultConfig(), zerolog.Nop())

	err := diagnosePolling(client, d, 0)
	if err == nil || !strings.Contains(err.Error(), "EOF") {
		t.Fatalf("Expected the EOF to end polling, got %v", err)
	}
	if !bytes.HasPrefix(conn.written.Bytes(), display.EnableMessage()) {
		t.Errorf("Expected enable message, got % X", conn.written.Bytes())
	}
	if client.Stats().Snapshot().ValidCommands != 1 {
		t.Errorf("Expected the waveform to be decoded")
	}
}
