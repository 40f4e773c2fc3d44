package controller

import (
	"context"
	"fmt"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/trace"
)

// Run is the idle loop. It polls for button events, handles them, and starts a cycle on its own
// when AutoTune is enabled. It returns when ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("controller started", "auto_tune", c.cfg.AutoTune)
	c.autoArmed = true
	c.setState(autotune.StateIdle)

	for {
		if ctx.Err() != nil {
			c.logger.Info("controller stopped")
			return nil
		}

		if e, ok := c.events.Poll(); ok {
			if err := c.Handle(ctx, e); err != nil {
				c.logger.Debug("event not handled", "event", e.String(), "error", err)
			}
		} else if c.cfg.AutoTune {
			c.autoTune(ctx)
		}

		c.clock.Sleep(c.cfg.PollInterval)
	}
}

// Handle acts on one button event from Idle:
//   - Tune: short press starts a cycle, long press switches every relay off
//   - L and C: step the bank by one, or by ManualLongStep on a long press
//   - Topology: flip the capacitor changeover
func (c *Controller) Handle(ctx context.Context, e autotune.Event) error {
	c.logger.Debug("event", "event", e.String())

	current := c.driver.Current()
	l, cBank := c.driver.Banks()
	n := 1
	if e.Press == autotune.LongPress {
		n = c.cfg.ManualLongStep
	}

	switch e.Button {
	case autotune.ButtonTune:
		if e.Press == autotune.LongPress {
			return c.Set(autotune.Bypass)
		}
		_, err := c.Tune(ctx)
		return err
	case autotune.ButtonLUp:
		current.L = l.Next(current.L, n)
	case autotune.ButtonLDown:
		current.L = l.Prev(current.L, n)
	case autotune.ButtonCUp:
		current.C = cBank.Next(current.C, n)
	case autotune.ButtonCDown:
		current.C = cBank.Prev(current.C, n)
	case autotune.ButtonTopology:
		current.Topology = current.Topology.Other()
	default:
		return fmt.Errorf("unexpected button %s", e.Button)
	}

	return c.Set(current)
}

// Set applies rc outside of a tuning cycle and takes one sample for the status display
func (c *Controller) Set(rc autotune.RelayConfig) error {
	if c.State().InProgress() {
		return fmt.Errorf("cannot set relays while in state %s", c.State())
	}
	if err := c.driver.Apply(rc); err != nil {
		return err
	}
	c.logger.Info("relays set", "config", rc.String())

	sample := c.sampler.Sample()
	if sample.Forward < c.cfg.TXThreshold {
		sample.Score = autotune.MaxScore
	}
	c.setSample(rc, sample)
	c.tracer.Trace(trace.Record{Cycle: c.cycle, Step: c.step, State: c.State(), Config: rc, Score: sample.Score})
	return nil
}

// autoTune samples the current configuration every AutoTuneInterval and starts a cycle when RF
// is present and the match is worse than AutoTuneAbove. After a cycle that cannot get below the
// threshold it stays disarmed until the transmitter stops.
func (c *Controller) autoTune(ctx context.Context) {
	if !c.lastAutoCheck.IsZero() && c.clock.Since(c.lastAutoCheck) < c.cfg.AutoTuneInterval {
		return
	}
	c.lastAutoCheck = c.clock.Now()

	sample := c.sampler.Sample()
	if sample.Forward < c.cfg.TXThreshold {
		if !c.autoArmed {
			c.logger.Debug("RF stopped, auto tune armed")
		}
		c.autoArmed = true
		return
	}
	c.setSample(c.driver.Current(), sample)

	if !c.autoArmed || sample.Score <= c.cfg.AutoTuneAbove {
		return
	}

	c.logger.Info("SWR above threshold, tuning", "swr", sample.Score.String(), "threshold", c.cfg.AutoTuneAbove.String())
	result, err := c.Tune(ctx)
	if err == nil && result.Score > c.cfg.AutoTuneAbove {
		c.autoArmed = false
	}
}
