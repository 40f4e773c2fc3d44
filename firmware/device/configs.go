//go:build tinygo

package device

import "machine"

// Pins is the wiring of the tuner board
type Pins struct {
	// Each relay bank is a chain of two 74HC595 shift registers
	LLatch, LClock, LData machine.Pin
	CLatch, CClock, CData machine.Pin

	Changeover machine.Pin
	Gain       machine.Pin

	// Forward and Reverse are the SWR bridge outputs. Keys is the resistor ladder of the step buttons.
	Forward machine.Pin
	Reverse machine.Pin
	Keys    machine.Pin
	Tune    machine.Pin

	LCDData           [4]machine.Pin
	LCDEnable         machine.Pin
	LCDRegisterSelect machine.Pin
}

// DefaultPins is the Raspberry Pi Pico wiring
func DefaultPins() Pins {
	return Pins{
		LLatch: machine.GP2,
		LClock: machine.GP3,
		LData:  machine.GP4,
		CLatch: machine.GP5,
		CClock: machine.GP6,
		CData:  machine.GP7,

		Changeover: machine.GP8,
		Gain:       machine.GP9,
		Tune:       machine.GP10,

		Forward: machine.ADC0,
		Reverse: machine.ADC1,
		Keys:    machine.ADC2,

		LCDData:           [4]machine.Pin{machine.GP16, machine.GP17, machine.GP18, machine.GP19},
		LCDEnable:         machine.GP20,
		LCDRegisterSelect: machine.GP21,
	}
}
