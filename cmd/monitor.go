// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/lumen/pkg/remote"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI mirroring the device display",
	Long: `Mirror the remote display in an interactive terminal UI.

Features:
  - Character grid mirror of the device screen, in device colors
  - Oscilloscope strip
  - Per-command and error statistics
  - Event log of framing and decode errors
  - Controller input: arrows, z (option), x (edit), space (start),
    enter (select); shift+arrow and alt+arrow combine select and option
  - Automatic display re-enable when the stream goes quiet
  - Automatic reconnection on connection loss

Log output is shown in the event log while the TUI is running.

Supports serial, WebSocket and MIDI connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// connectionManager handles session lifecycle and reconnection
type connectionManager struct {
	mu     sync.Mutex
	client *remote.Client
	screen *screen
	events *eventBuffer
	p      *tea.Program
	done   chan struct{}
}

func (cm *connectionManager) getClient() *remote.Client {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.client
}

func (cm *connectionManager) setClient(client *remote.Client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.client = client
}

// connect opens a transport and starts a session feeding the shared screen
func (cm *connectionManager) connect() (*remote.Client, string, error) {
	client, connInfo, err := openSession(cm.screen)
	if err != nil {
		return nil, "", err
	}
	client.SetErrorHandler(cm.events.handleError)
	if err := client.Start(); err != nil {
		client.Stop()
		return nil, "", err
	}
	if err := client.EnableDisplay(); err != nil {
		client.Stop()
		return nil, "", err
	}
	return client, connInfo, nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cm := &connectionManager{
		screen: newScreen(),
		events: &eventBuffer{},
		done:   make(chan struct{}),
	}

	// The TUI owns the terminal, so log lines go to the event log
	log.Logger = redirectLogger(log.Logger, cm.events)

	client, connInfo, err := cm.connect()
	if err != nil {
		return err
	}
	cm.setClient(client)

	m := initialMonitorModel(client, connInfo, cm.screen, cm.events)
	p := tea.NewProgram(m, tea.WithAltScreen())
	cm.p = p

	go cm.watch()

	_, err = p.Run()
	close(cm.done) // Signal goroutines to stop
	if c := cm.getClient(); c != nil {
		c.Stop()
	}
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// watch waits for the session to fail and replaces it
func (cm *connectionManager) watch() {
	for {
		client := cm.getClient()
		select {
		case <-cm.done:
			return
		case err := <-client.Err():
			cm.p.Send(connectionLostMsg{err: err})
			client.Stop()

			if !cm.reconnect() {
				return // Shutdown requested during reconnect
			}
		}
	}
}

// reconnect attempts to reconnect with exponential backoff.
// Returns false if shutdown was requested during reconnection.
func (cm *connectionManager) reconnect() bool {
	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.done:
			return false
		case <-time.After(backoff):
		}

		client, connInfo, err := cm.connect()
		if err == nil {
			cm.setClient(client)
			cm.p.Send(reconnectedMsg{client: client, connInfo: connInfo})
			return true
		}
		cm.events.add(fmt.Sprintf("Reconnect failed: %v", err), true)

		// Exponential backoff
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// redirectLogger returns logger writing plain console lines to events
func redirectLogger(logger zerolog.Logger, events *eventBuffer) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:          events,
		NoColor:      true,
		PartsExclude: []string{zerolog.TimestampFieldName},
	}
	return logger.Output(output)
}
