// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/lumen/pkg/display"
	"github.com/Thermoquad/lumen/pkg/remote"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display decoded display commands in human-readable format",
	Long: `Enable the remote display and print every decoded command as it arrives.

Each line shows a timestamp, the command name and opcode, and the decoded
fields (coordinates, colors, characters, sample counts, firmware version).
Framing and decode errors are logged at debug level (--log-level debug).

Supports serial, WebSocket and MIDI connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	sink := remote.SinkFunc(func(c display.Command) {
		fmt.Print(display.FormatCommand(c))
	})

	client, connInfo, err := openSession(sink)
	if err != nil {
		return err
	}
	defer client.Stop()

	fmt.Printf("Lumen - Raw Command Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	if err := client.Start(); err != nil {
		return err
	}
	if err := client.EnableDisplay(); err != nil {
		return err
	}

	ticker := time.NewTicker(drainInterval * time.Millisecond)
	defer ticker.Stop()
	sig := interrupted()

	for {
		select {
		case <-ticker.C:
			client.Drain()

		case err := <-client.Err():
			client.Drain()
			if isClosed(err) {
				log.Info().Msg("connection closed")
				return nil
			}
			return fmt.Errorf("read error: %w", err)

		case <-sig:
			client.Drain()
			return nil
		}
	}
}
