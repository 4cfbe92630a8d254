// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// USB identifiers of the device's serial interface
const (
	deviceVID = "16C0"
	devicePID = "048A"
)

// Connection provides a common interface for reading/writing bytes from serial, WebSocket or MIDI
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// SerialConnection wraps a serial port
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// ErrConnectionClosed is returned when reading from a closed connection
var ErrConnectionClosed = fmt.Errorf("connection closed")

// OpenSerialConnection opens a serial port connection.
// Reads return after readTimeout with no data so the reader can check for shutdown.
func OpenSerialConnection(portName string, baudRate int, readTimeout time.Duration) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}

	return &SerialConnection{port: port}, nil
}

// isDevicePort reports whether a USB serial port belongs to the device
func isDevicePort(p *enumerator.PortDetails) bool {
	return p.IsUSB && strings.EqualFold(p.VID, deviceVID) && strings.EqualFold(p.PID, devicePID)
}

// FindDevicePort returns the first serial port with the device's USB IDs
func FindDevicePort() (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("failed to enumerate serial ports: %w", err)
	}
	for _, p := range ports {
		if isDevicePort(p) {
			return p.Name, nil
		}
	}
	return "", fmt.Errorf("no device found (USB %s:%s); use --port to select one", deviceVID, devicePID)
}

// OpenConnection opens a WebSocket, MIDI or serial connection based on settings.
// With no transport selected the serial port is auto-detected.
func OpenConnection() (Connection, string, error) {
	if cfg.URL != "" {
		password := ""
		if cfg.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		conn, err := OpenWebSocketConnection(ctx, cfg.URL, BridgeOptions{
			Username:      cfg.Username,
			Password:      password,
			SkipSSLVerify: cfg.NoSSLVerify,
		})
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", cfg.URL), nil
	}

	if cfg.MIDIPort != "" {
		conn, err := OpenMIDIConnection(cfg.MIDIPort)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("MIDI: %s", conn.Name()), nil
	}

	port := cfg.Port
	if port == "" {
		var err error
		port, err = FindDevicePort()
		if err != nil {
			return nil, "", err
		}
	}

	conn, err := OpenSerialConnection(port, cfg.Baud, cfg.ReadTimeout)
	if err != nil {
		return nil, "", err
	}
	return conn, fmt.Sprintf("Serial: %s @ %d baud", port, cfg.Baud), nil
}
