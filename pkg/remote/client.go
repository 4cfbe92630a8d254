// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package remote runs a remote display session over a byte transport.
//
// A Client owns the SLIP framer, the message queue, the command decoder and
// the sink commands are dispatched to. Two deployment shapes are supported:
//
//   - Threaded: Start launches a transport goroutine that reads, frames and
//     queues messages; the caller drains the queue with Drain on its own
//     goroutine (typically once per UI tick).
//   - Polling: Poll performs one read, then frames, decodes and dispatches
//     synchronously. Pair it with a transport read timeout.
//
// Commands reach the sink in exactly the order they were framed.
package remote

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/lumen/pkg/display"
	"github.com/Thermoquad/lumen/pkg/msgqueue"
	"github.com/Thermoquad/lumen/pkg/slip"
)

// ErrStopped is returned by operations on a stopped client
var ErrStopped = errors.New("remote: client stopped")

// Sink receives decoded commands, one at a time, in stream order
type Sink interface {
	HandleCommand(cmd display.Command)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(cmd display.Command)

// HandleCommand implements Sink
func (f SinkFunc) HandleCommand(cmd display.Command) {
	f(cmd)
}

// ErrorHandler observes messages rejected by the framer or the decoder.
// msg is nil when the framer discarded its buffer.
type ErrorHandler func(msg []byte, err error)

// Client is one remote display session
type Client struct {
	conn    io.ReadWriteCloser
	cfg     Config
	sink    Sink
	log     zerolog.Logger
	framer  *slip.Decoder
	decoder display.Decoder
	queue   *msgqueue.Queue
	stats   *display.Statistics
	onError ErrorHandler

	writeMu sync.Mutex
	stop    atomic.Bool
	started atomic.Bool
	done    chan struct{}
	errCh   chan error

	idleCycles        atomic.Int64
	consecutiveErrors atomic.Int64
	stopOnce          sync.Once
	stopErr           error
}

// NewClient creates a session over conn. sink may be nil to discard commands.
func NewClient(conn io.ReadWriteCloser, sink Sink, cfg Config, logger zerolog.Logger) *Client {
	cfg = cfg.withDefaults()
	if sink == nil {
		sink = SinkFunc(func(display.Command) {})
	}

	decoder := display.Decoder{JoypadLength: display.JoypadStateLength}
	if cfg.LegacyJoypad {
		decoder.JoypadLength = display.JoypadStateLegacyLen
	}

	framer := slip.NewDecoder(cfg.MaxFrameSize)
	if cfg.ValidateFrames {
		framer.SetValidator(decoder.Validate)
	}

	return &Client{
		conn:    conn,
		cfg:     cfg,
		sink:    sink,
		log:     logger.With().Str("component", "remote").Logger(),
		framer:  framer,
		decoder: decoder,
		queue:   msgqueue.New(cfg.QueueCapacity),
		stats:   display.NewStatistics(),
		done:    make(chan struct{}),
		errCh:   make(chan error, 1),
	}
}

// SetErrorHandler installs fn to observe rejected messages. Framing errors
// are reported from the transport goroutine in the threaded shape. Must be
// called before Start.
func (c *Client) SetErrorHandler(fn ErrorHandler) {
	c.onError = fn
}

// Stats returns the session statistics
func (c *Client) Stats() *display.Statistics {
	return c.stats
}

// Err delivers the transport error that ended the read loop
func (c *Client) Err() <-chan error {
	return c.errCh
}

// Done is closed when the transport goroutine exits
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Queued returns the number of messages waiting for Drain
func (c *Client) Queued() int {
	return c.queue.Len()
}

// ConsecutiveErrors returns the number of framing or decode failures since
// the last successfully decoded command
func (c *Client) ConsecutiveErrors() int {
	return int(c.consecutiveErrors.Load())
}

// IdleCycles returns the number of consecutive drains or polls that produced no message
func (c *Client) IdleCycles() int {
	return int(c.idleCycles.Load())
}

// Disconnected reports whether the link has been quiet for the configured
// number of cycles. Always false when IdleCycles is zero.
func (c *Client) Disconnected() bool {
	return c.cfg.IdleCycles > 0 && c.IdleCycles() >= c.cfg.IdleCycles
}

// Start launches the transport goroutine (threaded shape)
func (c *Client) Start() error {
	// Whoever flips started owns closing done, Start or Stop
	if !c.started.CompareAndSwap(false, true) {
		if c.stop.Load() {
			return ErrStopped
		}
		return fmt.Errorf("remote: client already started")
	}
	if c.stop.Load() {
		close(c.done)
		return ErrStopped
	}
	go c.readLoop()
	return nil
}

func (c *Client) readLoop() {
	defer close(c.done)

	buf := make([]byte, c.cfg.ReadBufferSize)
	for !c.stop.Load() {
		n, err := c.conn.Read(buf)
		if n > 0 {
			c.frame(buf[:n], func(msg []byte) {
				if !c.queue.Push(msg) {
					c.stats.RecordDropped()
					c.log.Warn().Int("capacity", c.queue.Cap()).Msg("message queue full, dropping message")
				}
			})
		}
		if err != nil {
			if c.stop.Load() {
				return
			}
			c.log.Error().Err(err).Msg("transport read failed")
			select {
			case c.errCh <- err:
			default:
			}
			return
		}
	}
}

// frame runs the SLIP decoder over p and hands each complete message to emit
func (c *Client) frame(p []byte, emit func(msg []byte)) {
	for _, f := range c.framer.FeedChunk(p) {
		switch f.Result {
		case slip.MessageEmitted:
			emit(f.Message)
		default:
			err := f.Result.Err()
			if f.Err != nil {
				err = fmt.Errorf("%w: %w", err, f.Err)
			}
			c.consecutiveErrors.Add(1)
			c.stats.RecordFramingError(err)
			c.log.Debug().Str("result", f.Result.String()).Err(f.Err).Msg("framing error")
			if c.onError != nil {
				c.onError(f.Message, err)
			}
		}
	}
}

// Drain decodes and dispatches every queued message, oldest first.
// Returns the number of messages processed.
func (c *Client) Drain() int {
	msgs := c.queue.PopAll()
	for _, msg := range msgs {
		c.dispatch(msg)
	}
	c.tick(len(msgs))
	return len(msgs)
}

// Poll reads once from the transport and dispatches whatever completed
// (polling shape). Must not be mixed with Start.
func (c *Client) Poll() (int, error) {
	if c.stop.Load() {
		return 0, ErrStopped
	}
	if c.started.Load() {
		return 0, fmt.Errorf("remote: Poll called on a started client")
	}

	buf := make([]byte, c.cfg.ReadBufferSize)
	n, err := c.conn.Read(buf)

	count := 0
	if n > 0 {
		c.frame(buf[:n], func(msg []byte) {
			c.dispatch(msg)
			count++
		})
	}
	c.tick(count)

	if err != nil {
		return count, fmt.Errorf("transport read failed: %w", err)
	}
	return count, nil
}

func (c *Client) dispatch(msg []byte) {
	cmd, err := c.decoder.Decode(msg)
	c.stats.Update(cmd, err)
	if err != nil {
		c.consecutiveErrors.Add(1)
		ev := c.log.Debug().Err(err).Int("length", len(msg))
		if len(msg) > 0 {
			ev = ev.Uint8("opcode", msg[0])
		}
		ev.Msg("dropping invalid message")
		if c.onError != nil {
			c.onError(msg, err)
		}
		return
	}
	c.consecutiveErrors.Store(0)
	c.sink.HandleCommand(cmd)
}

func (c *Client) tick(processed int) {
	if processed > 0 {
		c.idleCycles.Store(0)
		return
	}
	if c.idleCycles.Add(1) == int64(c.cfg.IdleCycles) && c.cfg.IdleCycles > 0 {
		c.log.Warn().Int("cycles", c.cfg.IdleCycles).Msg("no messages received, link looks disconnected")
	}
}

// ErrEmptyMessage is returned by Send for a zero-length message
var ErrEmptyMessage = errors.New("remote: empty control message")

// Send writes a raw control message to the transport
func (c *Client) Send(msg []byte) error {
	if c.stop.Load() {
		return ErrStopped
	}
	if len(msg) == 0 {
		return ErrEmptyMessage
	}
	return c.write(msg)
}

func (c *Client) write(msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(msg); err != nil {
		return fmt.Errorf("failed to send '%c' message: %w", msg[0], err)
	}
	return nil
}

// EnableDisplay asks the device to start streaming and redraw the screen
func (c *Client) EnableDisplay() error {
	if err := c.Send(display.EnableMessage()); err != nil {
		return err
	}
	return c.Send(display.ResetMessage())
}

// ResetDisplay asks the device to redraw the screen
func (c *Client) ResetDisplay() error {
	return c.Send(display.ResetMessage())
}

// SendController sends the pressed-key bitmask
func (c *Client) SendController(mask uint8) error {
	return c.Send(display.ControllerMessage(mask))
}

// SendKeyJazz plays or releases a note
func (c *Client) SendKeyJazz(note, velocity uint8) error {
	return c.Send(display.KeyJazzMessage(note, velocity))
}

// Stop ends the session: it raises the stop flag, tells the device it is
// disconnecting, closes the transport to cancel any in-flight read and waits
// for the transport goroutine. Safe to call more than once.
func (c *Client) Stop() error {
	c.stopOnce.Do(func() {
		c.stop.Store(true)

		if err := c.write(display.DisconnectMessage()); err != nil {
			c.log.Debug().Err(err).Msg("disconnect message not delivered")
		}
		if err := c.conn.Close(); err != nil {
			c.stopErr = fmt.Errorf("failed to close transport: %w", err)
		}
		if c.started.CompareAndSwap(false, true) {
			close(c.done)
		} else {
			<-c.done
		}
	})
	return c.stopErr
}
