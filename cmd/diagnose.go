// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/lumen/pkg/display"
	"github.com/Thermoquad/lumen/pkg/remote"
	"github.com/Thermoquad/lumen/pkg/slip"
)

var (
	showAll       bool
	statsInterval int
	usePoll       bool
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Detect and analyze framing and decode errors",
	Long: `Track stream errors with statistics.

This command checks every frame and reports:
  - Framing errors (buffer overflows, unknown escape sequences)
  - Unknown opcodes and length mismatches
  - Messages dropped because the queue was full
  - Statistics and trends (message rate, error rate, per-command counts)

By default, only errors are displayed. Use --show-all to display valid commands too.

Errors are highlighted as they happen, with periodic statistics summaries
displayed at configurable intervals. --poll runs the session on a single
thread (read, frame, decode and dispatch in one loop) instead of a
transport goroutine feeding a queue.`,
	RunE: runDiagnose,
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
	diagnoseCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all commands (not just errors)")
	diagnoseCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	diagnoseCmd.Flags().BoolVar(&usePoll, "poll", false, "Single-threaded polling mode")
}

// diagnoser prints rejected messages and, optionally, valid commands
type diagnoser struct {
	out     io.Writer
	showAll bool
	mu      sync.Mutex
}

// HandleCommand implements remote.Sink
func (d *diagnoser) HandleCommand(c display.Command) {
	if !d.showAll {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprint(d.out, display.FormatCommand(c))
}

// handleError is the session's error handler
func (d *diagnoser) handleError(msg []byte, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	timestamp := time.Now().Format("15:04:05.000")
	var opErr *display.UnknownOpcodeError
	var lenErr *display.InvalidLengthError

	switch {
	case errors.As(err, &opErr), errors.As(err, &lenErr):
		fmt.Fprintf(d.out, "[%s] \033[1;33mDECODE ERROR:\033[0m %s\n", timestamp, display.FormatDecodeError(err))
		fmt.Fprint(d.out, display.FormatHexDump(msg))
		fmt.Fprintf(d.out, "  >>> MESSAGE DROPPED <<<\n\n")

	case errors.Is(err, slip.ErrBufferOverflow):
		fmt.Fprintf(d.out, "[%s] \033[1;31mFRAMING ERROR:\033[0m buffer overflow, frame discarded\n\n", timestamp)

	case errors.Is(err, slip.ErrUnknownEscapedByte):
		fmt.Fprintf(d.out, "[%s] \033[1;31mFRAMING ERROR:\033[0m unknown escape sequence, frame discarded\n\n", timestamp)

	default:
		fmt.Fprintf(d.out, "[%s] \033[1;31mFRAMING ERROR:\033[0m %v\n", timestamp, err)
		if len(msg) > 0 {
			fmt.Fprint(d.out, display.FormatHexDump(msg))
		}
		fmt.Fprintln(d.out)
	}
}

// printStats prints the statistics summary
func (d *diagnoser) printStats(stats *display.Statistics) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.out)
	fmt.Fprint(d.out, stats.String())
	fmt.Fprintln(d.out)
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	d := &diagnoser{out: os.Stdout, showAll: showAll}

	client, connInfo, err := openSession(d)
	if err != nil {
		return err
	}
	defer client.Stop()
	client.SetErrorHandler(d.handleError)

	fmt.Printf("Lumen - Diagnose Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All commands\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	if usePoll {
		fmt.Printf("Session: polling\n")
	} else {
		fmt.Printf("Session: threaded\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	interval := time.Duration(statsInterval) * time.Second
	if usePoll {
		err = diagnosePolling(client, d, interval)
	} else {
		err = diagnoseThreaded(client, d, interval)
	}

	d.printStats(client.Stats())
	return err
}

// diagnoseThreaded drains the queue fed by the transport goroutine
func diagnoseThreaded(client *remote.Client, d *diagnoser, interval time.Duration) error {
	if err := client.Start(); err != nil {
		return err
	}
	if err := client.EnableDisplay(); err != nil {
		return err
	}

	ticker := time.NewTicker(drainInterval * time.Millisecond)
	defer ticker.Stop()
	statsTicker := time.NewTicker(interval)
	defer statsTicker.Stop()
	sig := interrupted()

	warned := false
	for {
		select {
		case <-ticker.C:
			client.Drain()
			warned = warnDisconnected(client, d, warned)

		case <-statsTicker.C:
			d.printStats(client.Stats())

		case err := <-client.Err():
			client.Drain()
			if isClosed(err) {
				return nil
			}
			return fmt.Errorf("read error: %w", err)

		case <-sig:
			client.Drain()
			return nil
		}
	}
}

// diagnosePolling reads, frames, decodes and dispatches on this goroutine
func diagnosePolling(client *remote.Client, d *diagnoser, interval time.Duration) error {
	if err := client.EnableDisplay(); err != nil {
		return err
	}

	// A signal stops the session, which closes the transport and unblocks Poll
	sig := interrupted()
	go func() {
		<-sig
		client.Stop()
	}()

	nextStats := time.Now().Add(interval)
	warned := false
	for {
		_, err := client.Poll()
		if errors.Is(err, remote.ErrStopped) {
			return nil
		}
		if err != nil {
			select {
			case <-client.Done():
				return nil
			default:
			}
			if isClosed(err) {
				return nil
			}
			return err
		}

		warned = warnDisconnected(client, d, warned)
		if time.Now().After(nextStats) {
			d.printStats(client.Stats())
			nextStats = time.Now().Add(interval)
		}
	}
}

// warnDisconnected prints once each time the link goes quiet
func warnDisconnected(client *remote.Client, d *diagnoser, warned bool) bool {
	if !client.Disconnected() {
		return false
	}
	if !warned {
		d.mu.Lock()
		fmt.Fprintf(d.out, "[%s] \033[1;33mLINK IDLE:\033[0m no messages for %d cycles\n\n",
			time.Now().Format("15:04:05.000"), client.IdleCycles())
		d.mu.Unlock()
	}
	return true
}
