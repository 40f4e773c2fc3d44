package controller

import (
	"errors"
	"fmt"
	"time"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/relay"
	"github.com/calvinmclean/autotune/sampler"
	"github.com/calvinmclean/autotune/search"
)

// Config has everything the controller needs to run a tuning cycle
type Config struct {
	Relay   relay.Config
	Sampler sampler.Config
	Search  search.Config

	// OKScore is the largest confirmation score reported as a match
	OKScore autotune.Score
	// TXThreshold is the minimum averaged forward reading that counts as RF drive
	TXThreshold uint16
	// NoSignalRetries bounds how often a sample without RF drive is retried before aborting
	NoSignalRetries int
	NoSignalDelay   time.Duration
	// Timeout aborts a cycle that runs longer than this. Zero disables the watchdog.
	Timeout time.Duration

	// GainHighBelow switches to high gain when the low gain forward reading is below it
	GainHighBelow uint16
	// GainLowAbove switches to low gain when the high gain forward reading is above it
	GainLowAbove uint16

	// AutoTune starts a cycle from Idle when RF is present and the score exceeds AutoTuneAbove
	AutoTune         bool
	AutoTuneAbove    autotune.Score
	AutoTuneInterval time.Duration

	// PollInterval is the idle loop period
	PollInterval time.Duration
	// ManualLongStep is how many achievable indices a long press on a step button moves
	ManualLongStep int
}

// DefaultConfig matches the tuner hardware: 9-bit banks, 20ms settle, 8 readings per sample,
// SWR 1.2 accepted as a match
func DefaultConfig() Config {
	return Config{
		Relay:            relay.DefaultConfig(),
		Sampler:          sampler.DefaultConfig(),
		Search:           search.DefaultConfig(),
		OKScore:          120000,
		TXThreshold:      20,
		NoSignalRetries:  10,
		NoSignalDelay:    100 * time.Millisecond,
		Timeout:          30 * time.Second,
		GainHighBelow:    250,
		GainLowAbove:     1000,
		AutoTune:         false,
		AutoTuneAbove:    200000,
		AutoTuneInterval: time.Second,
		PollInterval:     10 * time.Millisecond,
		ManualLongStep:   10,
	}
}

// Validate checks the config for values the controller cannot run with
func (c Config) Validate() error {
	var errs []error
	if c.Search.WindowWidth < 1 || c.Search.WindowWidth%2 == 0 {
		errs = append(errs, fmt.Errorf("window width must be a positive odd number, got %d", c.Search.WindowWidth))
	}
	if c.Search.WindowHeight < 1 || c.Search.WindowHeight%2 == 0 {
		errs = append(errs, fmt.Errorf("window height must be a positive odd number, got %d", c.Search.WindowHeight))
	}
	if c.Search.FinePasses < 1 {
		errs = append(errs, errors.New("fine passes must be at least 1"))
	}
	if c.OKScore < autotune.ScoreUnit {
		errs = append(errs, fmt.Errorf("OK score %d is below a perfect match", c.OKScore))
	}
	if c.NoSignalRetries < 0 {
		errs = append(errs, errors.New("no signal retries must not be negative"))
	}
	if c.NoSignalDelay < 0 || c.Timeout < 0 || c.PollInterval < 0 || c.AutoTuneInterval < 0 {
		errs = append(errs, errors.New("delays must not be negative"))
	}
	if c.Sampler.AverageCount < 1 {
		errs = append(errs, errors.New("average count must be at least 1"))
	}
	return errors.Join(errs...)
}
