// Package display renders controller status for a small character LCD.
package display

import (
	"fmt"
	"strings"
	"sync"

	"github.com/calvinmclean/autotune"
)

const (
	DefaultCols = 16
	DefaultRows = 2
)

// LCD is a character display. *hd44780.Device satisfies it.
type LCD interface {
	SetCursor(x, y uint8)
	Write(b []byte) (int, error)
	Display() error
}

var stateLabels = map[autotune.State]string{
	autotune.StateIdle:            "Idle",
	autotune.StateCoarseSearching: "Coarse",
	autotune.StateFineSearching:   "Fine",
	autotune.StateVerifying:       "Verify",
	autotune.StateMatched:         "Match",
	autotune.StateBestEffort:      "Best",
	autotune.StateAborted:         "Abort",
}

// Render lays out s as rows lines of exactly cols characters:
//
//	L005 C003 LoZ Hi
//	Match  SWR 1.04
//
// A single row display only gets the second line.
func Render(s autotune.Status, cols, rows int) []string {
	if cols <= 0 || rows <= 0 {
		return nil
	}

	config := fmt.Sprintf("L%03d C%03d %s %s", s.Config.L, s.Config.C, s.Config.Topology, s.Gain)
	swr := fmt.Sprintf("%-6s SWR %s", stateLabels[s.State], s.Score)

	lines := []string{config, swr}
	if rows == 1 {
		lines = []string{swr}
	}

	result := make([]string, rows)
	for i := range result {
		line := ""
		if i < len(lines) {
			line = lines[i]
		}
		result[i] = fit(line, cols)
	}
	return result
}

func fit(s string, cols int) string {
	if len(s) > cols {
		return s[:cols]
	}
	return s + strings.Repeat(" ", cols-len(s))
}

// Panel is a StatusSink that writes to an LCD. Only lines that changed are rewritten.
type Panel struct {
	mu    sync.Mutex
	lcd   LCD
	cols  int
	rows  int
	shown []string
}

var _ autotune.StatusSink = &Panel{}

// NewPanel creates a Panel for a cols x rows display
func NewPanel(lcd LCD, cols, rows int) *Panel {
	return &Panel{lcd: lcd, cols: cols, rows: rows, shown: make([]string, rows)}
}

// Update renders s and refreshes the display
func (p *Panel) Update(s autotune.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	changed := false
	for i, line := range Render(s, p.cols, p.rows) {
		if p.shown[i] == line {
			continue
		}
		p.lcd.SetCursor(0, uint8(i))
		if _, err := p.lcd.Write([]byte(line)); err != nil {
			continue
		}
		p.shown[i] = line
		changed = true
	}

	if changed {
		_ = p.lcd.Display()
	}
}

// Lines returns what the panel is currently showing
func (p *Panel) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]string, len(p.shown))
	copy(result, p.shown)
	return result
}
