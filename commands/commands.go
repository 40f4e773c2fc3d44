// Package commands reads single-byte console commands from a serial line and turns them into the
// same events the front panel buttons produce.
package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/calvinmclean/autotune"
)

type Command struct {
	Flag        byte
	InputSize   uint
	Run         func(Controller, []byte) error
	Description string
}

// Controller is what commands act on. *Source implements it.
type Controller interface {
	Press(autotune.Event)
	Status() autotune.Status
	Print(string)
}

// ByteReader returns an error when no byte is available. machine.Serial behaves this way.
type ByteReader interface {
	ReadByte() (byte, error)
}

var (
	TuneCommand = &Command{
		Flag:      'T',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			c.Press(autotune.Event{Button: autotune.ButtonTune})
			return nil
		},
		Description: "Start tuning, or cancel the running cycle.",
	}
	BypassCommand = &Command{
		Flag:      'B',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			c.Press(autotune.Event{Button: autotune.ButtonTune, Press: autotune.LongPress})
			return nil
		},
		Description: "Switch every relay off.",
	}
	StepLCommand = &Command{
		Flag:      'L',
		InputSize: 1,
		Run: func(c Controller, input []byte) error {
			return step(c, input[0], autotune.ButtonLUp, autotune.ButtonLDown, autotune.ShortPress)
		},
		Description: "Step the inductor bank. Input: '+' or '-'.",
	}
	LongStepLCommand = &Command{
		Flag:      'l',
		InputSize: 1,
		Run: func(c Controller, input []byte) error {
			return step(c, input[0], autotune.ButtonLUp, autotune.ButtonLDown, autotune.LongPress)
		},
		Description: "Step the inductor bank by a long press. Input: '+' or '-'.",
	}
	StepCCommand = &Command{
		Flag:      'C',
		InputSize: 1,
		Run: func(c Controller, input []byte) error {
			return step(c, input[0], autotune.ButtonCUp, autotune.ButtonCDown, autotune.ShortPress)
		},
		Description: "Step the capacitor bank. Input: '+' or '-'.",
	}
	LongStepCCommand = &Command{
		Flag:      'c',
		InputSize: 1,
		Run: func(c Controller, input []byte) error {
			return step(c, input[0], autotune.ButtonCUp, autotune.ButtonCDown, autotune.LongPress)
		},
		Description: "Step the capacitor bank by a long press. Input: '+' or '-'.",
	}
	TopologyCommand = &Command{
		Flag:      'Z',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			c.Press(autotune.Event{Button: autotune.ButtonTopology})
			return nil
		},
		Description: "Swap the capacitor between the low and high impedance side.",
	}
	DebugCommand = &Command{
		Flag:      'D',
		InputSize: 0,
		Run: func(c Controller, _ []byte) error {
			c.Print(FormatStatus(c.Status()))
			return nil
		},
		Description: "Print the current state.",
	}
	ArrowCommand = &Command{
		Flag:      0x1B,
		InputSize: 2,
		Run: func(c Controller, b []byte) error {
			if b[0] != '[' {
				return errors.New("invalid input")
			}
			switch b[1] {
			case 'A':
				c.Press(autotune.Event{Button: autotune.ButtonLUp})
			case 'B':
				c.Press(autotune.Event{Button: autotune.ButtonLDown})
			case 'C':
				c.Press(autotune.Event{Button: autotune.ButtonCUp})
			case 'D':
				c.Press(autotune.Event{Button: autotune.ButtonCDown})
			}
			return nil
		},
		Description: "Step with the arrow keys: up/down for L, right/left for C.",
	}
	HelpCommand = &Command{
		Flag:        'H',
		InputSize:   0,
		Description: "Show all available commands and their descriptions.",
		Run: func(c Controller, _ []byte) error {
			c.Print("Available Commands:")
			for _, cmd := range commands {
				c.Print(flagString(cmd.Flag) + ": " + cmd.Description)
			}
			return nil
		},
	}
)

var commands = []*Command{
	TuneCommand,
	BypassCommand,
	StepLCommand,
	LongStepLCommand,
	StepCCommand,
	LongStepCCommand,
	TopologyCommand,
	DebugCommand,
	ArrowCommand,
}

func step(c Controller, in byte, up, down autotune.Button, press autotune.Press) error {
	switch in {
	case '+':
		c.Press(autotune.Event{Button: up, Press: press})
	case '-':
		c.Press(autotune.Event{Button: down, Press: press})
	default:
		return errors.New("invalid input: " + string(in))
	}
	return nil
}

func flagString(flag byte) string {
	if flag >= 32 && flag <= 126 {
		return string(flag)
	}
	return "0x" + string("0123456789ABCDEF"[(flag>>4)&0xF]) + string("0123456789ABCDEF"[flag&0xF])
}

// FormatStatus is the single line printed by the D command
func FormatStatus(s autotune.Status) string {
	return fmt.Sprintf("state=%s config=%s swr=%s gain=%s forward=%d", s.State, s.Config, s.Score, s.Gain, s.Forward)
}

// Source is an input.Source fed by console commands. Poll never blocks: partially received
// commands are kept until the rest of their input arrives.
type Source struct {
	r      ByteReader
	w      io.Writer
	status func() autotune.Status

	cmdMap  map[byte]*Command
	pending *Command
	input   []byte
	events  []autotune.Event
}

var _ Controller = &Source{}

// NewSource reads commands from r and writes replies to w. status is called by the D command.
func NewSource(r ByteReader, w io.Writer, status func() autotune.Status) *Source {
	cmdMap := map[byte]*Command{
		HelpCommand.Flag: HelpCommand,
	}
	for _, cmd := range commands {
		cmdMap[cmd.Flag] = cmd
	}

	return &Source{r: r, w: w, status: status, cmdMap: cmdMap}
}

// Poll reads every available byte and returns the first event produced by a complete command
func (s *Source) Poll() (autotune.Event, bool) {
	for len(s.events) == 0 {
		b, err := s.r.ReadByte()
		if err != nil {
			return autotune.Event{}, false
		}
		s.receive(b)
	}

	e := s.events[0]
	s.events = s.events[1:]
	return e, true
}

func (s *Source) receive(b byte) {
	if s.pending == nil {
		cmd, ok := s.cmdMap[b]
		if !ok {
			return
		}
		s.pending = cmd
		s.input = s.input[:0]
	} else {
		s.input = append(s.input, b)
	}

	if len(s.input) < int(s.pending.InputSize) {
		return
	}

	cmd := s.pending
	s.pending = nil
	if err := cmd.Run(s, s.input); err != nil {
		s.Print("error: " + err.Error())
	}
}

// Press queues an event for Poll
func (s *Source) Press(e autotune.Event) {
	s.events = append(s.events, e)
}

// Status returns the controller status, or a zero Status when no function was provided
func (s *Source) Status() autotune.Status {
	if s.status == nil {
		return autotune.Status{}
	}
	return s.status()
}

// Print writes one line of output
func (s *Source) Print(line string) {
	if s.w == nil {
		return
	}
	_, _ = io.WriteString(s.w, line+"\r\n")
}
