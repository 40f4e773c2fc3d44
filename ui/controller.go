package ui

import (
	"io"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/input"
)

// Presser receives the front panel button presses
type Presser interface {
	Press(autotune.Event)
}

// QueuePresser feeds presses into an in-process controller
type QueuePresser struct {
	Queue *input.Queue
}

func (p QueuePresser) Press(e autotune.Event) {
	p.Queue.Push(e)
}

// SerialPresser sends presses to a tuner as console commands
type SerialPresser struct {
	Writer io.Writer
}

func (p SerialPresser) Press(e autotune.Event) {
	if cmd := command(e); cmd != "" {
		_, _ = io.WriteString(p.Writer, cmd)
	}
}

// command is the console command with the same effect as e
func command(e autotune.Event) string {
	long := e.Press == autotune.LongPress
	step := func(short, longCmd string) string {
		if long {
			return longCmd
		}
		return short
	}

	switch e.Button {
	case autotune.ButtonTune:
		if long {
			return "B"
		}
		return "T"
	case autotune.ButtonLUp:
		return step("L+", "l+")
	case autotune.ButtonLDown:
		return step("L-", "l-")
	case autotune.ButtonCUp:
		return step("C+", "c+")
	case autotune.ButtonCDown:
		return step("C-", "c-")
	case autotune.ButtonTopology:
		return "Z"
	default:
		return ""
	}
}
