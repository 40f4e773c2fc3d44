package ui

import (
	"image/color"

	"github.com/calvinmclean/autotune"
)

var (
	lcdText       = color.RGBA{R: 210, G: 255, B: 210, A: 255}
	lcdBackground = color.RGBA{R: 20, G: 60, B: 20, A: 255}
	searching     = color.RGBA{R: 20, G: 40, B: 90, A: 255}
	bestEffort    = color.RGBA{R: 110, G: 80, B: 0, A: 255}
	aborted       = color.RGBA{R: 139, G: 0, B: 0, A: 255}
)

// stateColor is the LCD backlight for a state
func stateColor(s autotune.State) color.Color {
	switch {
	case s.InProgress():
		return searching
	case s == autotune.StateBestEffort:
		return bestEffort
	case s == autotune.StateAborted:
		return aborted
	default:
		return lcdBackground
	}
}
