// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/lumen/pkg/capture"
	"github.com/Thermoquad/lumen/pkg/display"
)

var replayErrorsOnly bool

var replayCmd = &cobra.Command{
	Use:   "replay <capture file>",
	Short: "Decode a capture file offline",
	Long: `Decode the frames of a capture file and print them with their original
receive times, followed by a statistics summary.

No connection is opened. The --legacy-joypad setting applies.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayErrorsOnly, "errors-only", false, "Only print frames that fail to decode")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer f.Close()

	decoder := display.Decoder{JoypadLength: display.JoypadStateLength}
	if cfg.LegacyJoypad {
		decoder.JoypadLength = display.JoypadStateLegacyLen
	}

	stats, err := replayCapture(f, os.Stdout, decoder, !replayErrorsOnly)
	fmt.Println()
	fmt.Print(stats.String())
	return err
}

// replayCapture decodes every record of a capture stream, printing commands
// (when showValid is set) and decode errors to w
func replayCapture(r io.Reader, w io.Writer, decoder display.Decoder, showValid bool) (*display.Statistics, error) {
	stats := display.NewStatistics()
	reader := capture.NewReader(r)

	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}

		c, decErr := decoder.Decode(rec.Data)
		stats.Update(c, decErr)
		if decErr != nil {
			fmt.Fprintf(w, "[%s] ERROR %s\n", rec.Time.Format("15:04:05.000"), display.FormatDecodeError(decErr))
			fmt.Fprint(w, display.FormatHexDump(rec.Data))
			continue
		}
		if showValid {
			fmt.Fprint(w, display.FormatCommandAt(rec.Time, c))
		}
	}
}
