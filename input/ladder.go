package input

import (
	"time"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/timeutil"
)

// AnalogPin reads the voltage of the resistor ladder
type AnalogPin interface {
	Read() uint16
}

// LadderConfig describes a chain of buttons sharing one analog pin. The pin is pulled up by R1;
// button i connects it to ground through i resistors of R2, so button 0 reads zero.
type LadderConfig struct {
	Buttons   []autotune.Button
	R1        float64
	R2        float64
	ADCMax    uint16
	Debounce  time.Duration
	LongPress time.Duration
}

// DefaultLadderConfig is four buttons on 10k/1.2k resistors read by a 10-bit ADC
func DefaultLadderConfig() LadderConfig {
	return LadderConfig{
		Buttons:   []autotune.Button{autotune.ButtonLUp, autotune.ButtonLDown, autotune.ButtonCUp, autotune.ButtonCDown},
		R1:        10,
		R2:        1.2,
		ADCMax:    1023,
		Debounce:  10 * time.Millisecond,
		LongPress: 800 * time.Millisecond,
	}
}

// Level is the expected reading while button i is held
func (c LadderConfig) Level(i int) uint16 {
	r := float64(i) * c.R2
	return uint16(float64(c.ADCMax)*r/(c.R1+r) + 0.5)
}

// Decode returns the index of the button held for a raw reading, or -1 when none is
func (c LadderConfig) Decode(raw uint16) int {
	n := len(c.Buttons)
	if n == 0 {
		return -1
	}
	if raw > (c.Level(n-1)/2 + c.ADCMax/2) {
		return -1
	}

	best, bestDiff := -1, int(^uint(0)>>1)
	for i := range n {
		diff := int(raw) - int(c.Level(i))
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	return best
}

// Ladder debounces a resistor-ladder button chain
type Ladder struct {
	pin   AnalogPin
	clock timeutil.Clock
	cfg   LadderConfig
	d     debouncer
}

// NewLadder creates a Ladder decoder
func NewLadder(pin AnalogPin, clock timeutil.Clock, cfg LadderConfig) *Ladder {
	return &Ladder{
		pin:   pin,
		clock: clock,
		cfg:   cfg,
		d:     debouncer{debounce: cfg.Debounce, longPress: cfg.LongPress},
	}
}

// Poll samples the ladder and reports a completed press
func (l *Ladder) Poll() (autotune.Event, bool) {
	id, press, ok := l.d.update(l.clock.Now(), l.cfg.Decode(l.pin.Read())+1)
	if !ok {
		return autotune.Event{}, false
	}
	return autotune.Event{Button: l.cfg.Buttons[id-1], Press: press}, true
}
