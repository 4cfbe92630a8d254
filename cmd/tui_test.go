// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/Thermoquad/lumen/pkg/display"
	"github.com/Thermoquad/lumen/pkg/remote"
	"github.com/Thermoquad/lumen/pkg/slip"
)

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 seconds"},
		{time.Second, "1 second"},
		{61 * time.Second, "1 minute and 1 second"},
		{2 * time.Hour, "2 hours"},
		{26*time.Hour + 3*time.Minute + 4*time.Second, "1 day, 2 hours, 3 minutes, and 4 seconds"},
	}
	for _, tt := range tests {
		if got := formatUptime(tt.in); got != tt.want {
			t.Errorf("formatUptime(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestControllerMask(t *testing.T) {
	keys := newMonitorKeyMap()
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want uint8
		ok   bool
	}{
		{"up", tea.KeyMsg{Type: tea.KeyUp}, display.KeyUp, true},
		{"left", tea.KeyMsg{Type: tea.KeyLeft}, display.KeyLeft, true},
		{"shift+down", tea.KeyMsg{Type: tea.KeyShiftDown}, display.KeyDown | display.KeySelect, true},
		{"alt+right", tea.KeyMsg{Type: tea.KeyRight, Alt: true}, display.KeyRight | display.KeyOption, true},
		{"edit", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}}, display.KeyEdit, true},
		{"option", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'z'}}, display.KeyOption, true},
		{"start", tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, display.KeyStart, true},
		{"select", tea.KeyMsg{Type: tea.KeyEnter}, display.KeySelect, true},
		{"unbound", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'w'}}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := keys.controllerMask(tt.msg)
			if got != tt.want || ok != tt.ok {
				t.Errorf("controllerMask(%q) = 0x%02X, %v; want 0x%02X, %v", tt.msg.String(), got, ok, tt.want, tt.ok)
			}
		})
	}
}

// newTestMonitor returns a model over an unstarted session fed by scripted reads
func newTestMonitor(t *testing.T, cfg remote.Config) (monitorModel, *pipeConn) {
	t.Helper()
	conn := newPipeConn()
	scr := newScreen()
	events := &eventBuffer{}
	client := remote.NewClient(conn, scr, cfg, zerolog.Nop())
	client.SetErrorHandler(events.handleError)
	t.Cleanup(func() { client.Stop() })
	return initialMonitorModel(client, "test", scr, events), conn
}

func TestMonitor_KeyPressAndRelease(t *testing.T) {
	m, conn := newTestMonitor(t, remote.DefaultConfig())

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(monitorModel)
	if cmd == nil {
		t.Fatal("Expected a release timer")
	}
	if m.pressed != display.KeyUp {
		t.Errorf("Expected up pressed, have 0x%02X", m.pressed)
	}

	// A stale release is ignored, the current one clears the mask
	next, _ = m.Update(keyReleaseMsg{seq: m.releaseSeq - 1})
	m = next.(monitorModel)
	next, _ = m.Update(keyReleaseMsg{seq: m.releaseSeq})
	m = next.(monitorModel)
	if m.pressed != 0 {
		t.Errorf("Expected release, have 0x%02X", m.pressed)
	}

	want := []byte{'C', display.KeyUp, 'C', 0}
	if got := conn.Written(); !bytes.Equal(got, want) {
		t.Errorf("Expected % X, got % X", want, got)
	}
}

func TestMonitor_ResetAndQuit(t *testing.T) {
	m, conn := newTestMonitor(t, remote.DefaultConfig())

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	m = next.(monitorModel)
	if got := conn.Written(); !bytes.Equal(got, display.ResetMessage()) {
		t.Errorf("Expected reset message, got % X", got)
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	m = next.(monitorModel)
	if !m.quitting || cmd == nil {
		t.Fatal("Expected quit")
	}
	if m.View() != "Shutting down...\n" {
		t.Errorf("Unexpected quitting view %q", m.View())
	}
}

func TestMonitor_DrainFeedsScreen(t *testing.T) {
	cfg := remote.DefaultConfig()
	m, conn := newTestMonitor(t, cfg)
	if err := m.client.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}

	var wire []byte
	wire = append(wire, slip.Encode([]byte{0xFF, 0x02, 3, 1, 0, 0})...)
	wire = append(wire, slip.Encode([]byte{0xFD, 'H', 0, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0, 0, 0})...)
	wire = append(wire, slip.Encode([]byte{0x42})...)
	go conn.w.Write(wire)

	deadline := time.Now().Add(2 * time.Second)
	for m.screen.commands < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for commands, have %d", m.screen.commands)
		}
		next, _ := m.Update(frameTickMsg(time.Now()))
		m = next.(monitorModel)
		time.Sleep(time.Millisecond)
	}

	if m.screen.info == nil || m.screen.info.Firmware.Major != 3 {
		t.Errorf("Expected system info, got %+v", m.screen.info)
	}
	if m.screen.text()[0][0] != 'H' {
		t.Errorf("Expected H drawn, got %q", m.screen.text()[0])
	}

	// The unknown opcode reaches the event log on a later tick
	for len(m.eventLog) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Decode error not logged")
		}
		next, _ := m.Update(frameTickMsg(time.Now()))
		m = next.(monitorModel)
		time.Sleep(time.Millisecond)
	}
	if !strings.Contains(m.eventLog[0].message, "UNKNOWN_OPCODE") {
		t.Errorf("Unexpected event %q", m.eventLog[0].message)
	}

	view := m.View()
	if !strings.Contains(view, "Production M8") || !strings.Contains(view, "UNKNOWN_OPCODE") {
		t.Errorf("View missing device or event log")
	}
}

func TestMonitor_IdleReenablesDisplay(t *testing.T) {
	cfg := remote.DefaultConfig()
	cfg.IdleCycles = 2
	m, conn := newTestMonitor(t, cfg)

	for i := 0; i < 3; i++ {
		next, _ := m.Update(frameTickMsg(time.Now()))
		m = next.(monitorModel)
	}
	if !m.idle {
		t.Fatal("Expected idle after quiet ticks")
	}
	want := append(display.EnableMessage(), display.ResetMessage()...)
	if got := conn.Written(); !bytes.Equal(got, want) {
		t.Errorf("Expected enable and reset once, got % X", got)
	}
}

func TestMonitor_ConnectionLostAndReconnected(t *testing.T) {
	m, conn := newTestMonitor(t, remote.DefaultConfig())

	next, _ := m.Update(connectionLostMsg{err: errors.New("cable pulled")})
	m = next.(monitorModel)
	if !m.connectionLost {
		t.Fatal("Expected connection lost")
	}

	// Keys are not sent while the connection is down
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(monitorModel)
	if len(conn.Written()) != 0 {
		t.Errorf("Unexpected write while disconnected: % X", conn.Written())
	}

	fresh := newPipeConn()
	client := remote.NewClient(fresh, m.screen, remote.DefaultConfig(), zerolog.Nop())
	defer client.Stop()
	next, _ = m.Update(reconnectedMsg{client: client, connInfo: "again"})
	m = next.(monitorModel)
	if m.connectionLost || m.client != client || m.connInfo != "again" {
		t.Fatal("Reconnected session not adopted")
	}
	if len(m.eventLog) != 2 || !m.eventLog[0].isError || m.eventLog[1].isError {
		t.Errorf("Unexpected event log %+v", m.eventLog)
	}
}

func TestEventBuffer_LogLines(t *testing.T) {
	events := &eventBuffer{}
	logger := redirectLogger(zerolog.New(nil), events)
	logger.Info().Msg("hello")
	logger.Warn().Msg("careful")

	entries := events.take()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].isError || !strings.Contains(entries[0].message, "hello") {
		t.Errorf("Unexpected info entry %+v", entries[0])
	}
	if !entries[1].isError || !strings.Contains(entries[1].message, "careful") {
		t.Errorf("Unexpected warn entry %+v", entries[1])
	}
	if len(events.take()) != 0 {
		t.Error("take should empty the buffer")
	}

	for i := 0; i < maxLogEntries+10; i++ {
		events.add("x", false)
	}
	if n := len(events.take()); n != maxLogEntries {
		t.Errorf("Expected buffer capped at %d, got %d", maxLogEntries, n)
	}
}
