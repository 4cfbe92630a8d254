// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/lumen/pkg/remote"
)

// Config holds the resolved client settings
type Config struct {
	Port           string
	Baud           int
	URL            string
	Username       string
	NoSSLVerify    bool
	MIDIPort       string
	LogLevel       string
	MaxFrameSize   int
	QueueCapacity  int
	IdleCycles     int
	LegacyJoypad   bool
	ValidateFrames bool
	ReadTimeout    time.Duration

	// Source is the config file the settings came from, empty for defaults
	Source string
}

// fileConfig is the config.toml key mapping
type fileConfig struct {
	Port           string `toml:"port"`
	Baud           int    `toml:"baud"`
	URL            string `toml:"url"`
	Username       string `toml:"username"`
	NoSSLVerify    bool   `toml:"no_ssl_verify"`
	MIDIPort       string `toml:"midi_port"`
	LogLevel       string `toml:"log_level"`
	MaxFrameSize   int    `toml:"max_frame_size"`
	QueueCapacity  int    `toml:"queue_capacity"`
	IdleCycles     int    `toml:"idle_cycles"`
	LegacyJoypad   bool   `toml:"legacy_joypad"`
	ValidateFrames bool   `toml:"validate_frames"`
	ReadTimeoutMs  int    `toml:"read_timeout_ms"`
}

// DefaultConfig returns the built-in settings
func DefaultConfig() Config {
	session := remote.DefaultConfig()
	return Config{
		Baud:          115200,
		LogLevel:      "info",
		MaxFrameSize:  session.MaxFrameSize,
		QueueCapacity: session.QueueCapacity,
		IdleCycles:    session.IdleCycles,
		ReadTimeout:   50 * time.Millisecond,
	}
}

// DefaultConfigPath returns <user config dir>/lumen/config.toml
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lumen", "config.toml")
}

// LoadConfig loads settings from path over the defaults. An empty path
// tries DefaultConfigPath and silently falls back to defaults if it is missing.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
		if path == "" {
			return cfg, nil
		}
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("url") {
		cfg.URL = strings.TrimSpace(raw.URL)
	}
	if meta.IsDefined("username") {
		cfg.Username = strings.TrimSpace(raw.Username)
	}
	if meta.IsDefined("no_ssl_verify") {
		cfg.NoSSLVerify = raw.NoSSLVerify
	}
	if meta.IsDefined("midi_port") {
		cfg.MIDIPort = strings.TrimSpace(raw.MIDIPort)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("max_frame_size") {
		cfg.MaxFrameSize = raw.MaxFrameSize
	}
	if meta.IsDefined("queue_capacity") {
		cfg.QueueCapacity = raw.QueueCapacity
	}
	if meta.IsDefined("idle_cycles") {
		cfg.IdleCycles = raw.IdleCycles
	}
	if meta.IsDefined("legacy_joypad") {
		cfg.LegacyJoypad = raw.LegacyJoypad
	}
	if meta.IsDefined("validate_frames") {
		cfg.ValidateFrames = raw.ValidateFrames
	}
	if meta.IsDefined("read_timeout_ms") {
		cfg.ReadTimeout = time.Duration(raw.ReadTimeoutMs) * time.Millisecond
	}

	cfg.Source = path
	return cfg, nil
}

// Validate rejects settings the client cannot run with
func (c Config) Validate() error {
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Baud)
	}
	if c.MaxFrameSize <= 0 {
		return fmt.Errorf("max_frame_size must be positive, got %d", c.MaxFrameSize)
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue_capacity must be positive, got %d", c.QueueCapacity)
	}
	if c.IdleCycles < 0 {
		return fmt.Errorf("idle_cycles must not be negative, got %d", c.IdleCycles)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout_ms must be positive, got %v", c.ReadTimeout)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil || c.LogLevel == "" {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.URL != "" && c.MIDIPort != "" {
		return fmt.Errorf("url and midi_port are mutually exclusive")
	}
	return nil
}

// SessionConfig returns the remote session settings
func (c Config) SessionConfig() remote.Config {
	session := remote.DefaultConfig()
	session.MaxFrameSize = c.MaxFrameSize
	session.QueueCapacity = c.QueueCapacity
	session.IdleCycles = c.IdleCycles
	session.LegacyJoypad = c.LegacyJoypad
	session.ValidateFrames = c.ValidateFrames
	return session
}

// applyFlags overlays explicitly set command line flags on the loaded config
func applyFlags(cmd *cobra.Command, c Config) Config {
	flags := cmd.Flags()
	if flags.Changed("port") {
		c.Port = portName
	}
	if flags.Changed("baud") {
		c.Baud = baudRate
	}
	if flags.Changed("url") {
		c.URL = wsURL
	}
	if flags.Changed("username") {
		c.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		c.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("midi") {
		c.MIDIPort = midiPort
	}
	if flags.Changed("log-level") {
		c.LogLevel = logLevel
	}
	if flags.Changed("legacy-joypad") {
		c.LegacyJoypad = legacyJoypad
	}
	return c
}
