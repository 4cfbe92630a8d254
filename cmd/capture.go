// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/lumen/pkg/capture"
	"github.com/Thermoquad/lumen/pkg/display"
	"github.com/Thermoquad/lumen/pkg/slip"
)

var (
	captureDuration int
	captureOutput   string
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record framed display messages to a capture file",
	Long: `Enable the remote display and record every complete SLIP frame to a file.

Frames are stored undecoded with their receive time, so a capture also
preserves messages this version cannot decode. Use the replay command to
decode a capture offline.

Recording stops after --duration seconds (0 records until Ctrl+C).`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.Flags().IntVar(&captureDuration, "duration", 10, "Recording time in seconds (0 for no limit)")
	captureCmd.Flags().StringVarP(&captureOutput, "output", "o", "capture.cbor", "Capture file")
}

func runCapture(cmd *cobra.Command, args []string) error {
	f, err := os.Create(captureOutput)
	if err != nil {
		return fmt.Errorf("failed to create capture file: %w", err)
	}
	defer f.Close()

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	fmt.Printf("Lumen - Capture\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Output: %s\n", captureOutput)
	if captureDuration > 0 {
		fmt.Printf("Duration: %d seconds\n", captureDuration)
	}
	fmt.Printf("Press Ctrl+C to stop\n\n")

	if _, err := conn.Write(display.EnableMessage()); err != nil {
		conn.Close()
		return fmt.Errorf("failed to enable display: %w", err)
	}
	if _, err := conn.Write(display.ResetMessage()); err != nil {
		conn.Close()
		return fmt.Errorf("failed to reset display: %w", err)
	}

	// Closing the connection ends the recording
	stop := make(chan struct{})
	go func() {
		var deadline <-chan time.Time
		if captureDuration > 0 {
			deadline = time.After(time.Duration(captureDuration) * time.Second)
		}
		select {
		case <-deadline:
		case <-interrupted():
		}
		close(stop)
		conn.Write(display.DisconnectMessage())
		conn.Close()
	}()

	w := capture.NewWriter(f)
	framingErrors, err := recordFrames(conn, w, slip.NewDecoder(cfg.MaxFrameSize), stop)

	fmt.Printf("\nRecorded %d frames (%d framing errors)\n", w.Count(), framingErrors)
	return err
}

// recordFrames frames everything read from r into w until r fails.
// A read error after stop is closed ends the recording cleanly.
func recordFrames(r io.Reader, w *capture.Writer, framer *slip.Decoder, stop <-chan struct{}) (int, error) {
	buf := make([]byte, 1024)
	framingErrors := 0

	for {
		n, err := r.Read(buf)
		now := time.Now()
		for _, frame := range framer.FeedChunk(buf[:n]) {
			if frame.Result != slip.MessageEmitted {
				framingErrors++
				log.Debug().Str("result", frame.Result.String()).Msg("framing error")
				continue
			}
			if werr := w.Write(capture.Record{Time: now, Data: frame.Message}); werr != nil {
				return framingErrors, werr
			}
		}

		if err != nil {
			select {
			case <-stop:
				return framingErrors, nil
			default:
			}
			if err == io.EOF || isClosed(err) {
				return framingErrors, nil
			}
			return framingErrors, fmt.Errorf("read error: %w", err)
		}
	}
}
