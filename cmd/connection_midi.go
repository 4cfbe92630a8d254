// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/Thermoquad/lumen/pkg/sysex"
)

// midiBacklog is the number of unread SysEx payloads buffered before dropping
const midiBacklog = 256

// MIDIConnection carries the display stream inside vendor SysEx messages.
// Read returns the unpacked payload bytes, Write packs outgoing bytes.
type MIDIConnection struct {
	in   drivers.In
	out  drivers.Out
	send func(msg midi.Message) error
	stop func()

	data    chan []byte
	pending []byte

	closed    chan struct{}
	closeOnce sync.Once
}

// midiDriver is the MIDI backend, registered by the main package
var midiDriver drivers.Driver

// SetMIDIDriver registers the MIDI backend used for MIDI connections and port listing
func SetMIDIDriver(drv drivers.Driver) {
	midiDriver = drv
}

// ErrNoMIDIDriver is returned when MIDI is requested without a backend
var ErrNoMIDIDriver = errors.New("no MIDI driver available")

// findMIDIPort returns the first port whose name contains name
func findMIDIPort[P drivers.Port](ports []P, name string) (P, bool) {
	for _, p := range ports {
		if strings.Contains(p.String(), name) {
			return p, true
		}
	}
	var zero P
	return zero, false
}

// OpenMIDIConnection opens the first MIDI in/out ports whose name contains name
func OpenMIDIConnection(name string) (*MIDIConnection, error) {
	if midiDriver == nil {
		return nil, ErrNoMIDIDriver
	}

	ins, err := midiDriver.Ins()
	if err != nil {
		return nil, fmt.Errorf("failed to list MIDI inputs: %w", err)
	}
	outs, err := midiDriver.Outs()
	if err != nil {
		return nil, fmt.Errorf("failed to list MIDI outputs: %w", err)
	}

	in, ok := findMIDIPort(ins, name)
	if !ok {
		return nil, fmt.Errorf("MIDI input %q not found", name)
	}
	out, ok := findMIDIPort(outs, name)
	if !ok {
		return nil, fmt.Errorf("MIDI output %q not found", name)
	}

	if err := in.Open(); err != nil {
		return nil, fmt.Errorf("failed to open MIDI input %s: %w", in, err)
	}
	if err := out.Open(); err != nil {
		in.Close()
		return nil, fmt.Errorf("failed to open MIDI output %s: %w", out, err)
	}

	send, err := midi.SendTo(out)
	if err != nil {
		in.Close()
		out.Close()
		return nil, fmt.Errorf("failed to open MIDI output %s: %w", out, err)
	}

	c := &MIDIConnection{
		in:     in,
		out:    out,
		send:   send,
		data:   make(chan []byte, midiBacklog),
		closed: make(chan struct{}),
	}

	stop, err := midi.ListenTo(in, c.onMessage, midi.UseSysEx(), midi.HandleError(c.onListenError))
	if err != nil {
		in.Close()
		out.Close()
		return nil, fmt.Errorf("failed to listen on MIDI input %s: %w", in, err)
	}
	c.stop = stop

	return c, nil
}

// Name returns the input port name
func (c *MIDIConnection) Name() string {
	return c.in.String()
}

// onListenError runs when the listener fails, usually because the device
// was unplugged. Close must not run on the listener's goroutine.
func (c *MIDIConnection) onListenError(err error) {
	log.Warn().Err(err).Str("port", c.in.String()).Msg("MIDI listener error, device likely disconnected")
	go c.Close()
}

// onMessage runs on the MIDI driver's thread
func (c *MIDIConnection) onMessage(msg midi.Message, timestampms int32) {
	var inner []byte
	if !msg.GetSysEx(&inner) {
		return
	}

	payload, err := sysex.Unpack(inner)
	if err != nil {
		log.Debug().Err(err).Int("length", len(inner)).Msg("ignoring foreign sysex")
		return
	}

	select {
	case c.data <- payload:
	case <-c.closed:
	default:
		log.Warn().Int("length", len(payload)).Msg("MIDI backlog full, dropping sysex payload")
	}
}

func (c *MIDIConnection) Read(p []byte) (int, error) {
	if len(c.pending) == 0 {
		select {
		case data := <-c.data:
			c.pending = data
		case <-c.closed:
			return 0, ErrConnectionClosed
		}
	}

	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *MIDIConnection) Write(p []byte) (int, error) {
	select {
	case <-c.closed:
		return 0, ErrConnectionClosed
	default:
	}
	if err := c.send(midi.Message(sysex.Encode(p))); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *MIDIConnection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.stop != nil {
			c.stop()
		}
		close(c.closed)
		if inErr := c.in.Close(); inErr != nil {
			err = inErr
		}
		if outErr := c.out.Close(); outErr != nil && err == nil {
			err = outErr
		}
	})
	return err
}
