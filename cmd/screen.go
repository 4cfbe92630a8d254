// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/lumen/pkg/display"
)

// Glyph cell sizes in device pixels
const (
	smallCellWidth  = 8
	smallCellHeight = 10
	largeCellWidth  = 10
	largeCellHeight = 12
)

// Grid dimensions for the small font, the largest grid either font needs
const (
	gridCols = display.ScreenWidth / smallCellWidth
	gridRows = display.ScreenHeight / smallCellHeight
)

// waveLevels are the block glyphs used for the oscilloscope strip, low to high
var waveLevels = []rune("▁▂▃▄▅▆▇█")

// cell is one character position of the mirrored screen
type cell struct {
	ch byte
	fg display.Color
	bg display.Color
}

// screen mirrors the device display as a character grid.
// It is a remote.Sink and must only be used from the goroutine that drains the session.
type screen struct {
	cells      [gridRows][gridCols]cell
	background display.Color
	waveform   display.DrawOscilloscopeWaveform
	info       *display.SystemInfo
	commands   uint64
	clears     uint64
}

func newScreen() *screen {
	s := &screen{}
	s.clear(display.Color{})
	return s
}

// HandleCommand implements remote.Sink
func (s *screen) HandleCommand(c display.Command) {
	s.commands++

	switch c := c.(type) {
	case display.DrawRectangle:
		if c.CoversScreen() {
			s.clear(c.Color)
			return
		}
		s.fill(c)

	case display.DrawCharacter:
		col, row, ok := s.cellAt(int(c.X), int(c.Y))
		if !ok {
			return
		}
		s.cells[row][col] = cell{ch: c.Char, fg: c.Foreground, bg: c.Background}

	case display.DrawOscilloscopeWaveform:
		s.waveform = c

	case display.SystemInfo:
		info := c
		s.info = &info
		s.clear(s.background)
	}
}

// cellSize returns the glyph size for the reported font
func (s *screen) cellSize() (int, int) {
	if s.info != nil && s.info.LargeFont() {
		return largeCellWidth, largeCellHeight
	}
	return smallCellWidth, smallCellHeight
}

// dims returns the visible grid size for the reported font
func (s *screen) dims() (cols, rows int) {
	w, h := s.cellSize()
	return display.ScreenWidth / w, display.ScreenHeight / h
}

// cellAt maps a pixel position to a grid cell
func (s *screen) cellAt(x, y int) (col, row int, ok bool) {
	w, h := s.cellSize()
	cols, rows := s.dims()
	col, row = x/w, y/h
	if col >= cols || row >= rows {
		return 0, 0, false
	}
	return col, row, true
}

func (s *screen) clear(bg display.Color) {
	s.background = bg
	s.clears++
	for row := range s.cells {
		for col := range s.cells[row] {
			s.cells[row][col] = cell{ch: ' ', fg: bg, bg: bg}
		}
	}
}

// fill paints every cell whose center lies inside the rectangle
func (s *screen) fill(r display.DrawRectangle) {
	w, h := s.cellSize()
	cols, rows := s.dims()
	x0, y0 := int(r.X), int(r.Y)
	x1, y1 := x0+int(r.Width), y0+int(r.Height)

	for row := 0; row < rows; row++ {
		cy := row*h + h/2
		if cy < y0 || cy >= y1 {
			continue
		}
		for col := 0; col < cols; col++ {
			cx := col*w + w/2
			if cx < x0 || cx >= x1 {
				continue
			}
			s.cells[row][col] = cell{ch: ' ', fg: r.Color, bg: r.Color}
		}
	}
}

// text returns the grid as plain text, one line per row
func (s *screen) text() []string {
	cols, rows := s.dims()
	lines := make([]string, rows)
	for row := 0; row < rows; row++ {
		b := make([]byte, cols)
		for col := 0; col < cols; col++ {
			ch := s.cells[row][col].ch
			if ch < 0x20 || ch >= 0x7F {
				ch = ' '
			}
			b[col] = ch
		}
		lines[row] = string(b)
	}
	return lines
}

// render returns the grid with device colors, one styled run per color change
func (s *screen) render() string {
	cols, rows := s.dims()
	plain := s.text()

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		start := 0
		for col := 1; col <= cols; col++ {
			if col < cols && sameColors(s.cells[row][col], s.cells[row][start]) {
				continue
			}
			c := s.cells[row][start]
			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(c.fg.Hex())).
				Background(lipgloss.Color(c.bg.Hex()))
			sb.WriteString(style.Render(plain[row][start:col]))
			start = col
		}
		if row < rows-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func sameColors(a, b cell) bool {
	return a.fg == b.fg && a.bg == b.bg
}

// waveformStrip renders the last waveform as one line of width columns.
// Samples are screen rows, so smaller values are drawn higher.
func (s *screen) waveformStrip(width int) string {
	samples := s.waveform.Samples
	if width <= 0 {
		return ""
	}
	if len(samples) == 0 {
		return strings.Repeat(" ", width)
	}

	lo, hi := samples[0], samples[0]
	for _, v := range samples {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	top := len(waveLevels) - 1
	out := make([]rune, width)
	for i := range out {
		v := samples[i*len(samples)/width]
		level := top / 2
		if hi > lo {
			level = int(hi-v) * top / int(hi-lo)
		}
		out[i] = waveLevels[level]
	}
	return string(out)
}
