package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/search"
	"github.com/calvinmclean/autotune/trace"
)

// Tune runs one complete cycle: coarse search, fine search and verification. The relays are
// left on the best configuration found. When the cycle is aborted the error is ErrCancelled,
// ErrNoSignal or ErrTimeout and the relays stay on the last configuration fully applied.
func (c *Controller) Tune(ctx context.Context) (autotune.Result, error) {
	c.cycle++
	c.step = 0
	c.samples = 0
	c.started = c.clock.Now()
	c.last = search.Candidate{Config: c.driver.Current(), Score: autotune.MaxScore}

	c.logger.Info("tuning started", "cycle", c.cycle)
	c.setState(autotune.StateCoarseSearching)

	result, err := c.tune(ctx)
	if err != nil && !IsAbort(err) && ctx.Err() != nil {
		// the searches stop on a done context before asking for another measurement
		err = fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	if err != nil {
		current := c.driver.Current()
		score := autotune.MaxScore
		if c.last.Config == current {
			score = c.last.Score
		}
		result = autotune.Result{
			Outcome: autotune.OutcomeAborted,
			Config:  current,
			Score:   score,
			Samples: c.samples,
		}
		c.logger.Warn("tuning aborted", "cycle", c.cycle, "config", current.String(), "error", err)
	} else {
		c.logger.Info(
			"tuning finished",
			"cycle", c.cycle,
			"outcome", result.Outcome.String(),
			"config", result.Config.String(),
			"swr", result.Score.String(),
			"samples", result.Samples,
			"duration", c.clock.Since(c.started),
		)
	}

	c.mu.Lock()
	c.result = result
	c.status.Score = result.Score
	c.mu.Unlock()

	c.setState(result.Outcome.State())
	c.setState(autotune.StateIdle)

	return result, err
}

func (c *Controller) tune(ctx context.Context) (autotune.Result, error) {
	best, err := c.coarseSearch(ctx)
	if err != nil {
		return autotune.Result{}, err
	}
	c.logger.Debug("coarse search done", "config", best.Config.String(), "swr", best.Score.String())

	c.setState(autotune.StateFineSearching)
	best, err = c.fine.Refine(ctx, best.Config, c.cfg.Search.FinePasses)
	if err != nil {
		return autotune.Result{}, err
	}
	c.logger.Debug("fine search done", "config", best.Config.String(), "swr", best.Score.String())

	c.setState(autotune.StateVerifying)
	score, err := c.measure(ctx, best.Config)
	if err != nil {
		return autotune.Result{}, err
	}

	outcome := autotune.OutcomeBestEffort
	if score <= c.cfg.OKScore {
		outcome = autotune.OutcomeMatched
	}
	return autotune.Result{
		Outcome: outcome,
		Config:  best.Config,
		Score:   score,
		Samples: c.samples,
	}, nil
}

// coarseSearch starts from the bypass configuration of each topology in use and keeps the best
func (c *Controller) coarseSearch(ctx context.Context) (search.Candidate, error) {
	topologies := []autotune.Topology{autotune.TopologyLowZ}
	if c.cfg.Search.TryBothTopologies && c.driver.Validate(autotune.RelayConfig{Topology: autotune.TopologyHighZ}) == nil {
		topologies = append(topologies, autotune.TopologyHighZ)
	}

	var best search.Candidate
	for i, topology := range topologies {
		base := autotune.RelayConfig{Topology: topology}

		var sample autotune.Sample
		var err error
		if i == 0 {
			sample, err = c.selectGain(ctx, base)
		} else {
			sample, err = c.apply(ctx, base)
		}
		if err != nil {
			return best, err
		}

		candidate, err := c.coarse.Run(ctx, search.Candidate{Config: base, Score: sample.Score})
		if err != nil {
			return best, err
		}
		c.logger.Debug("coarse topology done", "topology", topology.String(), "config", candidate.Config.String(), "swr", candidate.Score.String())

		if i == 0 || candidate.Score < best.Score {
			best = candidate
		}
	}
	return best, nil
}

// selectGain applies the starting configuration and picks the bridge gain. Gain stays fixed for the
// rest of the cycle so all scores are comparable. The gain is chosen from a raw reading taken
// before the RF check, so a drive too weak to pass it at low gain still starts a cycle at high
// gain. That reading and the scored one after it are not part of the coarse search bound.
func (c *Controller) selectGain(ctx context.Context, rc autotune.RelayConfig) (autotune.Sample, error) {
	if err := c.checkAbort(ctx); err != nil {
		return autotune.Sample{}, err
	}
	if err := c.driver.Apply(rc); err != nil {
		return autotune.Sample{}, err
	}

	raw := c.sampler.Sample()
	c.samples++

	gain := c.sampler.Gain()
	switch {
	case gain == autotune.GainLow && raw.Forward < c.cfg.GainHighBelow:
		gain = autotune.GainHigh
	case gain == autotune.GainHigh && raw.Forward > c.cfg.GainLowAbove:
		gain = autotune.GainLow
	}
	if gain != c.sampler.Gain() {
		c.logger.Debug("switching gain", "gain", gain.String(), "forward", raw.Forward)
		c.sampler.SetGain(gain)
	}

	return c.sampleWithRetry(ctx, rc)
}

// measure is the search.Measurer used by both searches
func (c *Controller) measure(ctx context.Context, rc autotune.RelayConfig) (autotune.Score, error) {
	sample, err := c.apply(ctx, rc)
	if err != nil {
		return autotune.MaxScore, err
	}
	return sample.Score, nil
}

// apply checks for an abort, actuates rc and takes a sample once the relays have settled.
// Aborts are only checked before actuation so a configuration is never partially applied.
func (c *Controller) apply(ctx context.Context, rc autotune.RelayConfig) (autotune.Sample, error) {
	if err := c.checkAbort(ctx); err != nil {
		return autotune.Sample{}, err
	}
	if err := c.driver.Apply(rc); err != nil {
		return autotune.Sample{}, err
	}
	return c.sampleWithRetry(ctx, rc)
}

func (c *Controller) sampleWithRetry(ctx context.Context, rc autotune.RelayConfig) (autotune.Sample, error) {
	for attempt := 0; ; attempt++ {
		sample := c.sampler.Sample()
		c.samples++

		if sample.Forward >= c.cfg.TXThreshold {
			c.step++
			c.last = search.Candidate{Config: rc, Score: sample.Score}
			c.setSample(rc, sample)
			c.tracer.Trace(trace.Record{Cycle: c.cycle, Step: c.step, State: c.State(), Config: rc, Score: sample.Score})
			return sample, nil
		}

		if attempt >= c.cfg.NoSignalRetries {
			return sample, fmt.Errorf("%w: forward %d below %d after %d attempts", ErrNoSignal, sample.Forward, c.cfg.TXThreshold, attempt+1)
		}
		c.logger.Debug("no signal, retrying", "attempt", attempt+1, "forward", sample.Forward)
		c.clock.Sleep(c.cfg.NoSignalDelay)

		if err := c.checkAbort(ctx); err != nil {
			return sample, err
		}
	}
}

// checkAbort reports whether the cycle should stop: the context is done, a button was pressed
// or the watchdog expired
func (c *Controller) checkAbort(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	if e, ok := c.events.Poll(); ok {
		return fmt.Errorf("%w: %s pressed", ErrCancelled, e.String())
	}
	if c.cfg.Timeout > 0 && c.clock.Since(c.started) > c.cfg.Timeout {
		return fmt.Errorf("%w: after %s", ErrTimeout, c.cfg.Timeout)
	}
	return nil
}

// IsAbort reports whether err ended a cycle early rather than failing it
func IsAbort(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, ErrNoSignal) || errors.Is(err, ErrTimeout)
}
