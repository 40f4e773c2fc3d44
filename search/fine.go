package search

import (
	"context"
	"errors"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/relay"
)

// Fine measures every configuration of a window around the coarse result and keeps the lowest
// score. Ties go to the configuration closest to the center, then to the first one measured.
type Fine struct {
	m             Measurer
	l, c          relay.Bank
	width, height int
}

// NewFine creates a fine search with a width x height window
func NewFine(m Measurer, l, c relay.Bank, width, height int) *Fine {
	return &Fine{m: m, l: l, c: c, width: width, height: height}
}

// Window returns the window that Run would scan around center
func (s *Fine) Window(center autotune.RelayConfig) Window {
	return NewWindow(center, s.width, s.height, s.l, s.c)
}

// Run scans the window around center. On error the best candidate found so far is returned with it.
func (s *Fine) Run(ctx context.Context, center autotune.RelayConfig) (Candidate, error) {
	window := s.Window(center)

	var best Candidate
	found := false
	for _, rc := range window.Points() {
		if err := ctx.Err(); err != nil {
			return best, err
		}

		score, err := s.m.Measure(ctx, rc)
		if errors.Is(err, relay.ErrInvalidConfig) {
			continue
		}
		if err != nil {
			return best, err
		}

		candidate := Candidate{Config: rc, Score: score}
		if !found || better(candidate, best, center) {
			best = candidate
			found = true
		}
	}

	if !found {
		return Candidate{Config: center, Score: autotune.MaxScore}, errors.New("no configuration in window could be measured")
	}
	return best, nil
}

// Refine runs up to passes scans, re-centering the window on the previous best each time, and
// stops early once the best configuration is the center of its own window
func (s *Fine) Refine(ctx context.Context, center autotune.RelayConfig, passes int) (Candidate, error) {
	best, err := s.Run(ctx, center)
	for pass := 1; pass < passes && err == nil && best.Config != center; pass++ {
		center = best.Config
		var next Candidate
		if next, err = s.Run(ctx, center); err != nil {
			return best, err
		}
		best = next
	}
	return best, err
}

func better(a, b Candidate, center autotune.RelayConfig) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Config.Distance(center) < b.Config.Distance(center)
}
