// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package remote

import (
	"github.com/Thermoquad/lumen/pkg/msgqueue"
	"github.com/Thermoquad/lumen/pkg/slip"
)

// Config holds session tuning parameters
type Config struct {
	MaxFrameSize   int  // SLIP frame capacity
	QueueCapacity  int  // message queue slots
	IdleCycles     int  // empty drains before Disconnected reports true, 0 disables
	LegacyJoypad   bool // accept 2 byte JOYPAD_STATE messages from older firmware
	ReadBufferSize int  // transport read size

	// ValidateFrames rejects malformed commands in the framer, before they
	// reach the queue. They are then counted as invalid packets rather than
	// decode errors.
	ValidateFrames bool
}

// DefaultConfig returns the default session configuration
func DefaultConfig() Config {
	return Config{
		MaxFrameSize:   slip.DefaultMaxSize,
		QueueCapacity:  msgqueue.DefaultCapacity,
		IdleCycles:     128,
		ReadBufferSize: 1024,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = d.MaxFrameSize
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = d.QueueCapacity
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.IdleCycles < 0 {
		c.IdleCycles = 0
	}
	return c
}
