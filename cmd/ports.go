// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial and MIDI ports",
	Long: `List the serial ports and MIDI ports available on this machine.

Serial ports with the device's USB identifiers (16C0:048A) are marked; the
first of them is used when --port is omitted. MIDI ports can be selected
with --midi using any part of their name.

Exit codes:
  0 - At least one device port found
  1 - No device port found`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	fmt.Printf("Lumen - Ports\n\n")

	serialPorts, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	found := printSerialPorts(os.Stdout, serialPorts)

	fmt.Println()
	if midiDriver == nil {
		fmt.Printf("MIDI: %v\n", ErrNoMIDIDriver)
	} else {
		ins, err := midiDriver.Ins()
		if err != nil {
			return fmt.Errorf("failed to list MIDI inputs: %w", err)
		}
		outs, err := midiDriver.Outs()
		if err != nil {
			return fmt.Errorf("failed to list MIDI outputs: %w", err)
		}
		fmt.Printf("MIDI inputs:\n")
		for _, in := range ins {
			fmt.Printf("  [%d] %s\n", in.Number(), in.String())
		}
		fmt.Printf("MIDI outputs:\n")
		for _, out := range outs {
			fmt.Printf("  [%d] %s\n", out.Number(), out.String())
		}
	}

	if found == 0 {
		fmt.Printf("\nNo device found on serial ports. Check the cable and device power.\n")
		os.Exit(1)
	}
	return nil
}

// printSerialPorts lists ports and returns how many belong to the device
func printSerialPorts(w io.Writer, ports []*enumerator.PortDetails) int {
	fmt.Fprintf(w, "Serial ports:\n")
	if len(ports) == 0 {
		fmt.Fprintf(w, "  (none)\n")
		return 0
	}

	found := 0
	for _, p := range ports {
		if !p.IsUSB {
			fmt.Fprintf(w, "  %s\n", p.Name)
			continue
		}

		marker := ""
		if isDevicePort(p) {
			marker = "  <- device"
			found++
		}
		fmt.Fprintf(w, "  %s  USB %s:%s", p.Name, p.VID, p.PID)
		if p.Product != "" {
			fmt.Fprintf(w, "  %s", p.Product)
		}
		if p.SerialNumber != "" {
			fmt.Fprintf(w, "  serial=%s", p.SerialNumber)
		}
		fmt.Fprintf(w, "%s\n", marker)
	}
	return found
}
