// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/lumen/pkg/display"
	"github.com/Thermoquad/lumen/pkg/remote"
)

var (
	linkTestTimeout int
)

var linkTestCmd = &cobra.Command{
	Use:   "link_test",
	Short: "Test connection by waiting for the device's system info",
	Long: `Enable the remote display and wait until the device reports SYSTEM_INFO.

The device answers the enable request with a SYSTEM_INFO message carrying its
hardware model and firmware version, followed by a full screen redraw. Any
bytes received before the first valid frame are ignored.

Exit codes:
  0 - System info received before timeout
  1 - Timeout reached without receiving system info
  2 - Connection error

Useful for testing connectivity before starting the monitor.`,
	RunE: runLinkTest,
}

func init() {
	rootCmd.AddCommand(linkTestCmd)
	linkTestCmd.Flags().IntVar(&linkTestTimeout, "timeout", 10, "Timeout in seconds to wait for system info")
}

func runLinkTest(cmd *cobra.Command, args []string) error {
	infoChan := make(chan display.SystemInfo, 1)
	commands := 0
	sink := remote.SinkFunc(func(c display.Command) {
		commands++
		if info, ok := c.(display.SystemInfo); ok {
			select {
			case infoChan <- info:
			default:
			}
		}
	})

	client, connInfo, err := openSession(sink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Lumen - Link Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", linkTestTimeout)
	fmt.Printf("Waiting for SYSTEM_INFO...\n\n")

	code, err := waitForSystemInfo(client, infoChan, time.Duration(linkTestTimeout)*time.Second)
	client.Stop()

	switch code {
	case 0:
		info := <-infoChan
		stats := client.Stats().Snapshot()
		fmt.Printf("SUCCESS: Received system info\n")
		fmt.Printf("  Hardware: %s\n", info.Hardware)
		fmt.Printf("  Firmware: %s\n", info.Firmware)
		fmt.Printf("  Large font: %v\n", info.LargeFont())
		if skipped := stats.TotalErrors(); skipped > 0 {
			fmt.Printf("(%d framing/decode errors before sync)\n", skipped)
		}
	case 1:
		fmt.Fprintf(os.Stderr, "TIMEOUT: No system info received within %d seconds (%d other commands)\n", linkTestTimeout, commands)
	default:
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
	}
	os.Exit(code)
	return nil
}

// waitForSystemInfo starts the session and drains it until info arrives.
// Returns the process exit code. On success the info is left in infoChan.
func waitForSystemInfo(client *remote.Client, infoChan chan display.SystemInfo, timeout time.Duration) (int, error) {
	if err := client.Start(); err != nil {
		return 2, err
	}
	if err := client.EnableDisplay(); err != nil {
		return 2, err
	}

	ticker := time.NewTicker(drainInterval * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(timeout)

	for {
		select {
		case <-ticker.C:
			client.Drain()
			if len(infoChan) > 0 {
				return 0, nil
			}
		case err := <-client.Err():
			client.Drain()
			if len(infoChan) > 0 {
				return 0, nil
			}
			return 2, err
		case <-deadline:
			return 1, nil
		}
	}
}
