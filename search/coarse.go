package search

import (
	"context"
	"errors"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/relay"
)

// Coarse is a successive-approximation search: from the most significant bit down, each relay is
// tentatively switched on and kept only if the score strictly improves. L and C bits are
// interleaved. It takes at most one measurement per wired bit.
type Coarse struct {
	m    Measurer
	l, c relay.Bank
}

// NewCoarse creates a coarse search over the given banks
func NewCoarse(m Measurer, l, c relay.Bank) *Coarse {
	return &Coarse{m: m, l: l, c: c}
}

// MaxSamples is the upper bound on measurements taken by Run
func (s *Coarse) MaxSamples() int {
	return len(s.l.Weights()) + len(s.c.Weights())
}

// Run descends from base, which must already be measured. On error the best candidate found
// so far is returned with it.
func (s *Coarse) Run(ctx context.Context, base Candidate) (Candidate, error) {
	best := base
	lw, cw := s.l.Weights(), s.c.Weights()

	for i := 0; i < max(len(lw), len(cw)); i++ {
		if i < len(lw) {
			next := best.Config
			next.L |= lw[i]
			var err error
			if best, err = s.try(ctx, best, next, s.l.Valid(next.L)); err != nil {
				return best, err
			}
		}
		if i < len(cw) {
			next := best.Config
			next.C |= cw[i]
			var err error
			if best, err = s.try(ctx, best, next, s.c.Valid(next.C)); err != nil {
				return best, err
			}
		}
	}

	return best, nil
}

func (s *Coarse) try(ctx context.Context, best Candidate, next autotune.RelayConfig, valid bool) (Candidate, error) {
	// already on, or not achievable: no improvement
	if next == best.Config || !valid {
		return best, nil
	}
	if err := ctx.Err(); err != nil {
		return best, err
	}

	score, err := s.m.Measure(ctx, next)
	if errors.Is(err, relay.ErrInvalidConfig) {
		return best, nil
	}
	if err != nil {
		return best, err
	}

	// equal score keeps the relay off
	if score < best.Score {
		return Candidate{Config: next, Score: score}, nil
	}
	return best, nil
}
