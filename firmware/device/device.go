//go:build tinygo

// Package device adapts the board's pins and the tinygo drivers to the tuner's hardware interfaces
package device

import (
	"errors"
	"machine"

	"tinygo.org/x/drivers/hd44780"
	"tinygo.org/x/drivers/shiftregister"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/relay"
	"github.com/calvinmclean/autotune/sampler"
)

// adcShift converts the 16-bit scaled machine.ADC reading to the 10-bit range used by the sampler
const adcShift = 6

// Relays drives the L and C shift register chains
type Relays struct {
	l, c *shiftregister.Device
}

var _ relay.ShiftRegister = &Relays{}

// NewRelays configures both chains and releases every relay
func NewRelays(p Pins) *Relays {
	l := shiftregister.New(shiftregister.SIXTEEN_BITS, p.LLatch, p.LClock, p.LData)
	l.Configure()
	c := shiftregister.New(shiftregister.SIXTEEN_BITS, p.CLatch, p.CClock, p.CData)
	c.Configure()

	r := &Relays{l: l, c: c}
	r.WriteBits(relay.ChainL, 0)
	r.WriteBits(relay.ChainC, 0)
	return r
}

// WriteBits shifts bits out to the chain and latches them
func (r *Relays) WriteBits(chain relay.Chain, bits uint32) {
	if chain == relay.ChainC {
		r.c.WriteMask(bits)
		return
	}
	r.l.WriteMask(bits)
}

// NewOutput configures p as a low output. A machine.Pin is a relay.Changeover.
func NewOutput(p machine.Pin) machine.Pin {
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Low()
	return p
}

// NewInput configures p as an input with a pull-up for an active low button
func NewInput(p machine.Pin) machine.Pin {
	p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return p
}

// Analog reads a pin with the ADC
type Analog struct {
	adc machine.ADC
}

// NewAnalog configures p for analog input. machine.InitADC must already have been called.
func NewAnalog(p machine.Pin) Analog {
	adc := machine.ADC{Pin: p}
	adc.Configure(machine.ADCConfig{})
	return Analog{adc: adc}
}

func (a Analog) Read() uint16 {
	return a.adc.Get() >> adcShift
}

// Bridge is the SWR bridge with its two detector outputs and switchable amplifier gain
type Bridge struct {
	forward, reverse Analog
	gain             machine.Pin
}

var (
	_ sampler.ADC         = &Bridge{}
	_ sampler.GainControl = &Bridge{}
)

// NewBridge initialises the ADC and starts at low gain
func NewBridge(p Pins) *Bridge {
	machine.InitADC()
	return &Bridge{
		forward: NewAnalog(p.Forward),
		reverse: NewAnalog(p.Reverse),
		gain:    NewOutput(p.Gain),
	}
}

func (b *Bridge) ReadRaw(ch sampler.Channel) uint16 {
	if ch == sampler.ChannelReverse {
		return b.reverse.Read()
	}
	return b.forward.Read()
}

func (b *Bridge) SetGain(g autotune.Gain) {
	b.gain.Set(g == autotune.GainHigh)
}

// NewLCD configures the character display in 4-bit mode. The R/W line is tied to ground.
func NewLCD(p Pins, cols, rows int) (*hd44780.Device, error) {
	lcd, err := hd44780.NewGPIO4Bit(p.LCDData[:], p.LCDEnable, p.LCDRegisterSelect, machine.NoPin)
	if err != nil {
		return nil, errors.New("error creating LCD: " + err.Error())
	}

	err = lcd.Configure(hd44780.Config{Width: int16(cols), Height: int16(rows)})
	if err != nil {
		return nil, errors.New("error configuring LCD: " + err.Error())
	}
	return &lcd, nil
}
