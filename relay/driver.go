// Package relay drives the binary-weighted L and C relay banks through two shift-register chains.
package relay

import (
	"errors"
	"fmt"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/timeutil"
)

// ErrInvalidConfig is returned for a configuration outside the achievable index set. It is never actuated.
var ErrInvalidConfig = errors.New("invalid relay configuration")

// Chain identifies one of the two shift-register chains
type Chain int

const (
	ChainL Chain = iota
	ChainC
)

func (c Chain) String() string {
	if c == ChainC {
		return "C"
	}
	return "L"
}

// ShiftRegister shifts a bit pattern out to a chain and latches it. There is no readback.
type ShiftRegister interface {
	WriteBits(chain Chain, bits uint32)
}

// Changeover is the line driving the capacitor changeover relay. A machine.Pin satisfies it.
type Changeover interface {
	Set(bool)
}

// Driver owns the relay hardware. Apply does not return until the relays have settled, so a
// reading taken after Apply always reflects the applied configuration.
type Driver struct {
	sr         ShiftRegister
	changeover Changeover
	clock      timeutil.Clock
	cfg        Config
	l, c       Bank

	current   autotune.RelayConfig
	applied   bool
	actuation int
}

// Option configures a Driver
type Option func(*Driver)

// WithChangeover enables the high impedance topology by providing the changeover relay line
func WithChangeover(c Changeover) Option {
	return func(d *Driver) {
		d.changeover = c
	}
}

// WithClock replaces the clock used for the settle delay
func WithClock(c timeutil.Clock) Option {
	return func(d *Driver) {
		d.clock = c
	}
}

// NewDriver creates a Driver. It does not touch the hardware until the first Apply.
func NewDriver(sr ShiftRegister, cfg Config, opts ...Option) (*Driver, error) {
	if sr == nil {
		return nil, errors.New("shift register is required")
	}
	if cfg.LBits <= 0 || cfg.LBits > MaxBankBits || cfg.CBits <= 0 || cfg.CBits > MaxBankBits {
		return nil, fmt.Errorf("bank widths must be between 1 and %d bits", MaxBankBits)
	}
	if cfg.Settle < 0 {
		return nil, errors.New("settle delay must not be negative")
	}

	d := &Driver{
		sr:    sr,
		clock: timeutil.RealClock{},
		cfg:   cfg,
	}
	d.l, d.c = cfg.Banks()
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Banks returns the L and C banks
func (d *Driver) Banks() (Bank, Bank) {
	return d.l, d.c
}

// Validate checks that rc is achievable on this hardware
func (d *Driver) Validate(rc autotune.RelayConfig) error {
	if !d.l.Valid(rc.L) {
		return fmt.Errorf("%w: L=%d", ErrInvalidConfig, rc.L)
	}
	if !d.c.Valid(rc.C) {
		return fmt.Errorf("%w: C=%d", ErrInvalidConfig, rc.C)
	}
	if rc.Topology == autotune.TopologyHighZ && d.changeover == nil {
		return fmt.Errorf("%w: no changeover relay", ErrInvalidConfig)
	}
	return nil
}

// Apply latches rc onto both chains and the changeover relay, then blocks for the settle delay.
// Re-applying the configuration that is already latched is a no-op.
func (d *Driver) Apply(rc autotune.RelayConfig) error {
	if err := d.Validate(rc); err != nil {
		return err
	}
	if d.applied && rc == d.current {
		return nil
	}

	d.sr.WriteBits(ChainL, uint32(rc.L))
	d.sr.WriteBits(ChainC, uint32(rc.C))
	if d.changeover != nil {
		d.changeover.Set(rc.Topology == autotune.TopologyHighZ)
	}

	d.current = rc
	d.applied = true
	d.actuation++

	d.clock.Sleep(d.cfg.Settle)
	return nil
}

// Current is the last fully applied configuration
func (d *Driver) Current() autotune.RelayConfig {
	return d.current
}

// Applied reports whether anything has been latched yet
func (d *Driver) Applied() bool {
	return d.applied
}

// Actuations counts the relay writes performed, skipped re-applies excluded
func (d *Driver) Actuations() int {
	return d.actuation
}
