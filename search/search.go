// Package search finds the relay configuration with the lowest SWR: a greedy bit-by-bit coarse
// descent followed by an exhaustive scan of a small window around its result.
package search

import (
	"context"

	"github.com/calvinmclean/autotune"
)

// Measurer applies a configuration, waits for it to settle and returns its score
type Measurer interface {
	Measure(ctx context.Context, rc autotune.RelayConfig) (autotune.Score, error)
}

// MeasurerFunc adapts a function to Measurer
type MeasurerFunc func(ctx context.Context, rc autotune.RelayConfig) (autotune.Score, error)

func (f MeasurerFunc) Measure(ctx context.Context, rc autotune.RelayConfig) (autotune.Score, error) {
	return f(ctx, rc)
}

// Candidate is a measured configuration
type Candidate struct {
	Config autotune.RelayConfig
	Score  autotune.Score
}

// Config sizes the fine search window
type Config struct {
	WindowWidth  int
	WindowHeight int
	// FinePasses bounds how often the window re-centers on a best result found off center
	FinePasses int
	// TryBothTopologies runs the coarse search once per capacitor position
	TryBothTopologies bool
}

// DefaultConfig uses a single 5x5 fine window around the coarse result
func DefaultConfig() Config {
	return Config{
		WindowWidth:  5,
		WindowHeight: 5,
		FinePasses:   1,
	}
}
