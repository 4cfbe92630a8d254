// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package display

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Thermoquad/lumen/pkg/slip"
)

// Counters is a point-in-time copy of the link statistics
type Counters struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Decoded messages
	TotalMessages uint64
	ValidCommands uint64
	ByOpcode      map[Opcode]uint64

	// Framing errors (transport side)
	FramingErrors   uint64
	BufferOverflows uint64
	EscapeErrors    uint64
	InvalidPackets  uint64

	// Decode errors (consumer side)
	DecodeErrors   uint64
	UnknownOpcodes uint64
	InvalidLengths uint64

	// Queue drops
	DroppedMessages uint64

	// Rates (calculated)
	MessageRate float64 // messages/sec
	ErrorRate   float64 // errors/sec
}

// TotalErrors returns the sum of framing and decode errors
func (c Counters) TotalErrors() uint64 {
	return c.FramingErrors + c.DecodeErrors
}

// Statistics tracks message statistics and error rates.
// Safe for concurrent use: framing errors are recorded on the transport
// goroutine while decode results are recorded on the consumer.
type Statistics struct {
	mu sync.Mutex
	c  Counters
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	s := &Statistics{}
	s.Reset()
	return s
}

// Update records the outcome of decoding one message
func (s *Statistics) Update(cmd Command, decodeErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.c.TotalMessages++
	s.c.LastUpdateTime = time.Now()

	if decodeErr != nil {
		s.c.DecodeErrors++
		var opErr *UnknownOpcodeError
		var lenErr *InvalidLengthError
		switch {
		case errors.As(decodeErr, &opErr):
			s.c.UnknownOpcodes++
		case errors.As(decodeErr, &lenErr):
			s.c.InvalidLengths++
		}
		return
	}

	s.c.ValidCommands++
	if cmd != nil {
		s.c.ByOpcode[cmd.Opcode()]++
	}
}

// RecordFramingError records a framing failure reported by the SLIP decoder
func (s *Statistics) RecordFramingError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.c.FramingErrors++
	s.c.LastUpdateTime = time.Now()
	switch {
	case errors.Is(err, slip.ErrBufferOverflow):
		s.c.BufferOverflows++
	case errors.Is(err, slip.ErrUnknownEscapedByte):
		s.c.EscapeErrors++
	case errors.Is(err, slip.ErrInvalidPacket):
		s.c.InvalidPackets++
	}
}

// RecordDropped records a message dropped because the queue was full
func (s *Statistics) RecordDropped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.DroppedMessages++
}

// Snapshot returns a copy of the counters with rates calculated
func (s *Statistics) Snapshot() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.c
	c.ByOpcode = make(map[Opcode]uint64, len(s.c.ByOpcode))
	for op, n := range s.c.ByOpcode {
		c.ByOpcode[op] = n
	}

	elapsed := time.Since(c.StartTime).Seconds()
	if elapsed > 0 {
		c.MessageRate = float64(c.TotalMessages) / elapsed
		c.ErrorRate = float64(c.TotalErrors()) / elapsed
	}
	return c
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	c := s.Snapshot()

	var validPercent, decodeErrorPercent float64
	if c.TotalMessages > 0 {
		validPercent = float64(c.ValidCommands) * 100.0 / float64(c.TotalMessages)
		decodeErrorPercent = float64(c.DecodeErrors) * 100.0 / float64(c.TotalMessages)
	}

	elapsed := time.Since(c.StartTime)

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	fmt.Fprintf(&sb, "Total Messages:  %8d\n", c.TotalMessages)
	fmt.Fprintf(&sb, "Valid Commands:  %8d (%.1f%%)\n", c.ValidCommands, validPercent)

	ops := make([]Opcode, 0, len(c.ByOpcode))
	for op := range c.ByOpcode {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] > ops[j] })
	for _, op := range ops {
		fmt.Fprintf(&sb, "  %-26s %8d\n", FormatOpcode(op), c.ByOpcode[op])
	}

	if c.DecodeErrors > 0 {
		fmt.Fprintf(&sb, "Decode Errors:   %8d (%.1f%%)\n", c.DecodeErrors, decodeErrorPercent)
		if c.UnknownOpcodes > 0 {
			fmt.Fprintf(&sb, "  Unknown Opcode:   %5d\n", c.UnknownOpcodes)
		}
		if c.InvalidLengths > 0 {
			fmt.Fprintf(&sb, "  Invalid Length:   %5d\n", c.InvalidLengths)
		}
	}
	if c.FramingErrors > 0 {
		fmt.Fprintf(&sb, "Framing Errors:  %8d\n", c.FramingErrors)
		if c.BufferOverflows > 0 {
			fmt.Fprintf(&sb, "  Buffer Overflow:  %5d\n", c.BufferOverflows)
		}
		if c.EscapeErrors > 0 {
			fmt.Fprintf(&sb, "  Bad Escape:       %5d\n", c.EscapeErrors)
		}
		if c.InvalidPackets > 0 {
			fmt.Fprintf(&sb, "  Invalid Packet:   %5d\n", c.InvalidPackets)
		}
	}
	if c.DroppedMessages > 0 {
		fmt.Fprintf(&sb, "Queue Drops:     %8d\n", c.DroppedMessages)
	}

	fmt.Fprintf(&sb, "Message Rate:    %8.1f msgs/sec\n", c.MessageRate)
	fmt.Fprintf(&sb, "Error Rate:      %8.1f errors/sec\n", c.ErrorRate)
	sb.WriteString("================================\n")

	return sb.String()
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.c = Counters{
		StartTime:      now,
		LastUpdateTime: now,
		ByOpcode:       make(map[Opcode]uint64),
	}
}
