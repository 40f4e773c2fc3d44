//go:build tinygo

package main

import (
	"context"
	"machine"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/commands"
	"github.com/calvinmclean/autotune/controller"
	"github.com/calvinmclean/autotune/display"
	"github.com/calvinmclean/autotune/firmware/device"
	"github.com/calvinmclean/autotune/input"
	"github.com/calvinmclean/autotune/timeutil"
	"github.com/calvinmclean/autotune/trace"
)

func main() {
	pins := device.DefaultPins()
	clock := timeutil.RealClock{}

	lcd, err := device.NewLCD(pins, display.DefaultCols, display.DefaultRows)
	if err != nil {
		panic(err)
	}
	panel := display.NewPanel(lcd, display.DefaultCols, display.DefaultRows)

	bridge := device.NewBridge(pins)
	hw := controller.Hardware{
		Relays:     device.NewRelays(pins),
		Changeover: device.NewOutput(pins.Changeover),
		ADC:        bridge,
		Gain:       bridge,
	}

	var c *controller.Controller
	console := commands.NewSource(machine.Serial, machine.Serial, func() autotune.Status {
		return c.Status()
	})

	events := input.Merge(
		input.NewButton(autotune.ButtonTune, device.NewInput(pins.Tune), clock, input.DefaultButtonConfig()),
		input.NewLadder(device.NewAnalog(pins.Keys), clock, input.DefaultLadderConfig()),
		console,
	)

	c, err = controller.New(hw, controller.DefaultConfig(),
		controller.WithClock(clock),
		controller.WithEvents(events),
		controller.WithStatusSink(panel),
		controller.WithTracer(trace.NewWriter(machine.Serial)),
	)
	if err != nil {
		panic(err)
	}

	err = c.Run(context.Background())
	if err != nil {
		println("error:", err.Error())
	}
}
