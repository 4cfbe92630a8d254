// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Config file and logging flags
	configPath   string
	logLevel     string
	legacyJoypad bool

	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// MIDI connection flags
	midiPort string

	// Loaded configuration (flags already applied)
	cfg Config
)

var rootCmd = &cobra.Command{
	Use:   "lumen",
	Short: "Remote display client for M8 music workstations",
	Long: `Lumen - A CLI tool for mirroring and diagnosing the remote display stream
of an M8 music workstation.

The device streams SLIP framed display commands (rectangles, characters,
oscilloscope waveforms, system info). Lumen decodes the stream, shows it in
the terminal, records it for offline analysis and reports framing and decode
errors.

Connection modes:
  Serial:    --port /dev/ttyACM0 (omit --port to auto-detect the device)
  WebSocket: --url ws://host/path [--username user]
  MIDI:      --midi "M8"

For WebSocket authentication, the password is read from the LUMEN_PASSWORD
environment variable, or prompted interactively if not set.

Defaults can be set in a TOML config file (--config, or
<user config dir>/lumen/config.toml). Command line flags take precedence.`,
	Version:           "0.4.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (TOML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&legacyJoypad, "legacy-joypad", false, "Accept 2 byte JOYPAD_STATE messages (older firmware)")

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// MIDI connection flags
	rootCmd.PersistentFlags().StringVar(&midiPort, "midi", "", "MIDI port name (substring match)")
}

// loadSettings loads the config file, applies flags over it and sets up logging
func loadSettings(cmd *cobra.Command, args []string) error {
	loaded, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	cfg = applyFlags(cmd, loaded)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if _, err := InitLogger(cfg.LogLevel); err != nil {
		return err
	}
	log.Debug().Str("config", cfg.Source).Msg("settings loaded")
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
