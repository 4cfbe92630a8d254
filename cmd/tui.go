// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/lumen/pkg/display"
	"github.com/Thermoquad/lumen/pkg/remote"
)

const (
	frameInterval  = 20 * time.Millisecond  // queue drain and redraw rate
	releaseDelay   = 120 * time.Millisecond // terminals report no key release
	maxLogEntries  = 100
	logPanelHeight = 6
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for notices
}

// eventBuffer collects log entries from goroutines other than the UI's
type eventBuffer struct {
	mu      sync.Mutex
	entries []eventLogEntry
}

func (b *eventBuffer) add(message string, isError bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) >= maxLogEntries {
		return
	}
	b.entries = append(b.entries, eventLogEntry{timestamp: time.Now(), message: message, isError: isError})
}

func (b *eventBuffer) take() []eventLogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.entries
	b.entries = nil
	return entries
}

// Write implements io.Writer for console log lines.
// Warnings and errors are flagged as errors.
func (b *eventBuffer) Write(p []byte) (int, error) {
	line := strings.TrimSpace(string(p))
	isError := strings.HasPrefix(line, "WRN") || strings.HasPrefix(line, "ERR")
	b.add(line, isError)
	return len(p), nil
}

// handleError is installed as the session's error handler
func (b *eventBuffer) handleError(msg []byte, err error) {
	b.add(display.FormatDecodeError(err), true)
}

// Key bindings
type monitorKeyMap struct {
	Up, Down, Left, Right key.Binding
	Edit, Option          key.Binding
	Start, Select         key.Binding
	Reset, Help, Quit     key.Binding
}

func newMonitorKeyMap() monitorKeyMap {
	return monitorKeyMap{
		Up:     key.NewBinding(key.WithKeys("up", "shift+up", "alt+up"), key.WithHelp("↑", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "shift+down", "alt+down"), key.WithHelp("↓", "down")),
		Left:   key.NewBinding(key.WithKeys("left", "shift+left", "alt+left"), key.WithHelp("←", "left")),
		Right:  key.NewBinding(key.WithKeys("right", "shift+right", "alt+right"), key.WithHelp("→", "right")),
		Edit:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "edit")),
		Option: key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "option")),
		Start:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "start")),
		Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Reset:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "redraw")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap
func (k monitorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Edit, k.Option, k.Start, k.Select, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k monitorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Edit, k.Option, k.Start, k.Select},
		{k.Reset, k.Help, k.Quit},
	}
}

// controllerMask returns the controller bits for a key press.
// shift adds select and alt adds option, as the device's key combos need them.
func (k monitorKeyMap) controllerMask(msg tea.KeyMsg) (uint8, bool) {
	var mask uint8
	switch {
	case key.Matches(msg, k.Up):
		mask = display.KeyUp
	case key.Matches(msg, k.Down):
		mask = display.KeyDown
	case key.Matches(msg, k.Left):
		mask = display.KeyLeft
	case key.Matches(msg, k.Right):
		mask = display.KeyRight
	case key.Matches(msg, k.Edit):
		return display.KeyEdit, true
	case key.Matches(msg, k.Option):
		return display.KeyOption, true
	case key.Matches(msg, k.Start):
		return display.KeyStart, true
	case key.Matches(msg, k.Select):
		return display.KeySelect, true
	default:
		return 0, false
	}

	name := msg.String()
	switch {
	case strings.HasPrefix(name, "shift+"):
		mask |= display.KeySelect
	case strings.HasPrefix(name, "alt+"):
		mask |= display.KeyOption
	}
	return mask, true
}

// TUI model
type monitorModel struct {
	client   *remote.Client
	connInfo string
	screen   *screen
	events   *eventBuffer
	keys     monitorKeyMap
	help     help.Model

	eventLog       []eventLogEntry
	started        time.Time
	width          int
	height         int
	quitting       bool
	connectionLost bool
	idle           bool
	pressed        uint8
	releaseSeq     int
}

// Messages
type frameTickMsg time.Time
type keyReleaseMsg struct {
	seq int
}
type connectionLostMsg struct {
	err error
}
type reconnectedMsg struct {
	client   *remote.Client
	connInfo string
}

// formatUptime formats a duration as a human-friendly string
func formatUptime(d time.Duration) string {
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	seconds %= 60
	minutes %= 60
	hours %= 24

	plural := func(n int64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	parts := []string{}
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	// Join with commas and "and" for last item
	if len(parts) == 1 {
		return parts[0]
	}
	if len(parts) == 2 {
		return parts[0] + " and " + parts[1]
	}
	last := parts[len(parts)-1]
	rest := strings.Join(parts[:len(parts)-1], ", ")
	return rest + ", and " + last
}

func initialMonitorModel(client *remote.Client, connInfo string, scr *screen, events *eventBuffer) monitorModel {
	return monitorModel{
		client:   client,
		connInfo: connInfo,
		screen:   scr,
		events:   events,
		keys:     newMonitorKeyMap(),
		help:     help.New(),
		eventLog: make([]eventLogEntry, 0),
		started:  time.Now(),
		width:    80,
		height:   24,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return frameTickCmd()
}

func frameTickCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameTickMsg(t)
	})
}

func releaseCmd(seq int) tea.Cmd {
	return tea.Tick(releaseDelay, func(time.Time) tea.Msg {
		return keyReleaseMsg{seq: seq}
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case frameTickMsg:
		m.drain()
		return m, frameTickCmd()

	case keyReleaseMsg:
		if msg.seq == m.releaseSeq && m.pressed != 0 {
			m.pressed = 0
			m.sendController(0)
		}

	case connectionLostMsg:
		m.connectionLost = true
		m.addLogEntry(fmt.Sprintf("Connection lost (%v) - reconnecting...", msg.err), true)

	case reconnectedMsg:
		m.client = msg.client
		m.connInfo = msg.connInfo
		m.connectionLost = false
		m.idle = false
		m.addLogEntry("Reconnected", false)
	}

	return m, nil
}

// drain dispatches queued commands to the screen and collects events
func (m *monitorModel) drain() {
	for _, e := range m.events.take() {
		m.appendEntry(e)
	}
	if m.connectionLost || m.client == nil {
		return
	}

	m.client.Drain()

	if m.client.Disconnected() {
		if !m.idle {
			m.idle = true
			m.addLogEntry("No display data - re-enabling display", true)
			if err := m.client.EnableDisplay(); err != nil {
				m.addLogEntry(fmt.Sprintf("Enable failed: %v", err), true)
			}
		}
	} else if m.idle {
		m.idle = false
		m.addLogEntry("Display data resumed", false)
	}
}

func (m monitorModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Reset):
		if m.client != nil && !m.connectionLost {
			if err := m.client.ResetDisplay(); err != nil {
				m.addLogEntry(fmt.Sprintf("Reset failed: %v", err), true)
			}
		}
		return m, nil
	}

	mask, ok := m.keys.controllerMask(msg)
	if !ok {
		return m, nil
	}
	m.pressed = mask
	m.releaseSeq++
	m.sendController(mask)
	return m, releaseCmd(m.releaseSeq)
}

func (m *monitorModel) sendController(mask uint8) {
	if m.client == nil || m.connectionLost {
		return
	}
	if err := m.client.SendController(mask); err != nil {
		m.addLogEntry(fmt.Sprintf("Key send failed: %v", err), true)
	}
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	m.appendEntry(eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
}

func (m *monitorModel) appendEntry(entry eventLogEntry) {
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-maxLogEntries:]
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240"))

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("LUMEN - REMOTE DISPLAY"))
	s.WriteString("\n")

	device := "waiting for system info"
	if info := m.screen.info; info != nil {
		device = fmt.Sprintf("%s, firmware %s", info.Hardware, info.Firmware)
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | %s | Session: %s",
		m.connInfo, device, formatUptime(time.Since(m.started)))))
	s.WriteString("\n")

	switch {
	case m.connectionLost:
		s.WriteString(errorStyle.Render("✗ Connection lost - reconnecting"))
	case m.idle:
		s.WriteString(warningStyle.Render("⏳ No display data"))
	default:
		s.WriteString(statsValueStyle.Render("✓ Streaming"))
	}
	s.WriteString("\n")

	// Screen mirror and oscilloscope
	cols, _ := m.screen.dims()
	waveStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.screen.waveform.Color.Hex()))
	mirror := m.screen.render() + "\n" + waveStyle.Render(m.screen.waveformStrip(cols))
	screenBox := boxStyle.Render(mirror)

	// Statistics
	var stats display.Counters
	if m.client != nil {
		stats = m.client.Stats().Snapshot()
	}
	statsContent := strings.Builder{}
	row := func(label, value string, style lipgloss.Style) {
		statsContent.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render(label), style.Render(value)))
	}
	row("Messages:", fmt.Sprintf("%d", stats.TotalMessages), statsValueStyle)
	row("Rate:", fmt.Sprintf("%.1f msg/s", stats.MessageRate), statsValueStyle)
	for _, op := range []display.Opcode{
		display.OpDrawRectangle,
		display.OpDrawCharacter,
		display.OpDrawOscilloscopeWaveform,
		display.OpSystemInfo,
		display.OpJoypadState,
	} {
		row(display.FormatOpcode(op)+":", fmt.Sprintf("%d", stats.ByOpcode[op]), headerStyle)
	}

	errStyle := statsValueStyle
	if stats.TotalErrors() > 0 {
		errStyle = errorStyle
	}
	row("Errors:", fmt.Sprintf("%d (%.1f err/s)", stats.TotalErrors(), stats.ErrorRate), errStyle)
	if stats.FramingErrors > 0 {
		row("  Framing:", fmt.Sprintf("%d (overflow %d, escape %d)",
			stats.FramingErrors, stats.BufferOverflows, stats.EscapeErrors), errorStyle)
	}
	if stats.DecodeErrors > 0 {
		row("  Decode:", fmt.Sprintf("%d (opcode %d, length %d)",
			stats.DecodeErrors, stats.UnknownOpcodes, stats.InvalidLengths), errorStyle)
	}
	if stats.DroppedMessages > 0 {
		row("  Dropped:", fmt.Sprintf("%d", stats.DroppedMessages), warningStyle)
	}
	if m.client != nil {
		row("Queued:", fmt.Sprintf("%d", m.client.Queued()), headerStyle)
	}
	if m.pressed != 0 {
		row("Keys:", fmt.Sprintf("0x%02X", m.pressed), warningStyle)
	}
	statsBox := boxStyle.Padding(0, 1).Render(strings.TrimRight(statsContent.String(), "\n"))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, screenBox, " ", statsBox))
	s.WriteString("\n")

	// Event log
	logContent := strings.Builder{}
	startIdx := max(len(m.eventLog)-logPanelHeight, 0)
	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}
	s.WriteString(boxStyle.Padding(0, 1).Width(max(m.width-4, 20)).Render(strings.TrimRight(logContent.String(), "\n")))
	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))

	return s.String()
}
