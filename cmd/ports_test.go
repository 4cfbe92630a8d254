// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"strings"
	"testing"

	"go.bug.st/serial/enumerator"
)

func TestIsDevicePort(t *testing.T) {
	tests := []struct {
		name string
		port enumerator.PortDetails
		want bool
	}{
		{"device", enumerator.PortDetails{Name: "/dev/ttyACM0", IsUSB: true, VID: "16C0", PID: "048A"}, true},
		{"lowercase ids", enumerator.PortDetails{Name: "COM3", IsUSB: true, VID: "16c0", PID: "048a"}, true},
		{"other usb", enumerator.PortDetails{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001"}, false},
		{"not usb", enumerator.PortDetails{Name: "/dev/ttyS0", VID: "16C0", PID: "048A"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDevicePort(&tt.port); got != tt.want {
				t.Errorf("isDevicePort = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrintSerialPorts(t *testing.T) {
	var out bytes.Buffer
	if n := printSerialPorts(&out, nil); n != 0 || !strings.Contains(out.String(), "(none)") {
		t.Errorf("Unexpected empty listing %q", out.String())
	}

	out.Reset()
	ports := []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "16C0", PID: "048A", Product: "M8", SerialNumber: "1234"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001"},
	}
	if n := printSerialPorts(&out, ports); n != 1 {
		t.Errorf("Expected 1 device port, got %d", n)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected header and 3 ports, got %q", out.String())
	}
	if !strings.Contains(lines[2], "USB 16C0:048A  M8  serial=1234  <- device") {
		t.Errorf("Unexpected device line %q", lines[2])
	}
	if strings.Contains(lines[3], "<- device") {
		t.Errorf("Other USB port marked as device: %q", lines[3])
	}
}
