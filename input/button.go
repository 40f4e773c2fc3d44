package input

import (
	"time"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/timeutil"
)

// Pin is a digital input. A machine.Pin satisfies it.
type Pin interface {
	Get() bool
}

// ButtonConfig has the timing for a digital pushbutton
type ButtonConfig struct {
	Debounce  time.Duration
	LongPress time.Duration
	// ActiveLow is set for a button that pulls the pin to ground
	ActiveLow bool
}

// DefaultButtonConfig is an active-low button with 20ms debounce and an 800ms long press
func DefaultButtonConfig() ButtonConfig {
	return ButtonConfig{
		Debounce:  20 * time.Millisecond,
		LongPress: 800 * time.Millisecond,
		ActiveLow: true,
	}
}

// Button debounces one digital pushbutton
type Button struct {
	id    autotune.Button
	pin   Pin
	clock timeutil.Clock
	cfg   ButtonConfig
	d     debouncer
}

// NewButton creates a Button reporting events as id
func NewButton(id autotune.Button, pin Pin, clock timeutil.Clock, cfg ButtonConfig) *Button {
	return &Button{
		id:    id,
		pin:   pin,
		clock: clock,
		cfg:   cfg,
		d:     debouncer{debounce: cfg.Debounce, longPress: cfg.LongPress},
	}
}

// Poll samples the pin and reports a completed press
func (b *Button) Poll() (autotune.Event, bool) {
	raw := 0
	if b.pin.Get() != b.cfg.ActiveLow {
		raw = 1
	}
	_, press, ok := b.d.update(b.clock.Now(), raw)
	if !ok {
		return autotune.Event{}, false
	}
	return autotune.Event{Button: b.id, Press: press}, true
}
