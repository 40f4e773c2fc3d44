// Package calibrate measures how the fine window size trades tuning time against how close the
// result gets to the true optimum, over many simulated antennas with non-monotonic relays.
package calibrate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/controller"
	"github.com/calvinmclean/autotune/sim"
	"github.com/calvinmclean/autotune/timeutil"
)

// Config describes the study
type Config struct {
	// Windows are the square fine window sizes compared. Each must be odd.
	Windows []int
	// Surfaces is the number of random antennas every window size is tuned against
	Surfaces int
	Seed     int64
	// Roughness is the amplitude of per-configuration ripple added to each antenna
	Roughness float64
	Slope     float64

	Controller controller.Config
	Sim        sim.Config
}

// DefaultConfig compares the 3x3 to 11x11 windows on 50 antennas
func DefaultConfig() Config {
	return Config{
		Windows:    []int{3, 5, 7, 9, 11},
		Surfaces:   50,
		Seed:       1,
		Roughness:  0.03,
		Slope:      0.004,
		Controller: controller.DefaultConfig(),
		Sim:        sim.DefaultConfig(),
	}
}

// WindowResult summarises every run with one window size
type WindowResult struct {
	Size int

	Samples  []float64
	Distance []float64
	SWR      []float64
	Matched  int

	MeanSamples  float64
	StdSamples   float64
	MeanDistance float64
	P90Distance  float64
	MeanSWR      float64
}

// MatchedRatio is the fraction of runs that ended Matched
func (r WindowResult) MatchedRatio() float64 {
	if len(r.Samples) == 0 {
		return 0
	}
	return float64(r.Matched) / float64(len(r.Samples))
}

// Report is the outcome of the study
type Report struct {
	Config  Config
	Results []WindowResult
}

// Run tunes every antenna with every window size on simulated hardware and a fake clock
func Run(ctx context.Context, cfg Config) (Report, error) {
	if len(cfg.Windows) == 0 || cfg.Surfaces < 1 {
		return Report{}, errors.New("need at least one window size and one surface")
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	l, c := cfg.Controller.Relay.Banks()

	targets := make([]autotune.RelayConfig, cfg.Surfaces)
	for i := range targets {
		targets[i] = autotune.RelayConfig{
			L: uint16(rng.Intn(int(l.Max())/2 + 1)),
			C: uint16(rng.Intn(int(c.Max())/2 + 1)),
		}
	}

	report := Report{Config: cfg}
	for _, size := range cfg.Windows {
		result := WindowResult{Size: size}
		for i, target := range targets {
			if err := ctx.Err(); err != nil {
				return report, err
			}

			surface := sim.Rough(sim.Bowl(target, 0.02, cfg.Slope, 0.95), cfg.Roughness, uint64(cfg.Seed)+uint64(i))
			res, err := tuneOnce(ctx, cfg, size, surface)
			if err != nil {
				return report, fmt.Errorf("error tuning surface %d with window %d: %w", i, size, err)
			}

			result.Samples = append(result.Samples, float64(res.Samples))
			result.Distance = append(result.Distance, float64(res.Config.Distance(target)))
			result.SWR = append(result.SWR, res.Score.SWR())
			if res.Outcome == autotune.OutcomeMatched {
				result.Matched++
			}
		}

		result.summarise()
		report.Results = append(report.Results, result)
	}

	return report, nil
}

func tuneOnce(ctx context.Context, cfg Config, size int, surface sim.Surface) (autotune.Result, error) {
	clock := timeutil.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	network := sim.NewNetwork(surface, cfg.Sim, clock)

	ctrlCfg := cfg.Controller
	ctrlCfg.Search.WindowWidth = size
	ctrlCfg.Search.WindowHeight = size
	// the study measures search quality, not the watchdog
	ctrlCfg.Timeout = 0

	c, err := controller.New(controller.Hardware{
		Relays:     network,
		Changeover: network,
		ADC:        network,
		Gain:       network,
	}, ctrlCfg, controller.WithClock(clock))
	if err != nil {
		return autotune.Result{}, err
	}

	return c.Tune(ctx)
}

func (r *WindowResult) summarise() {
	r.MeanSamples, r.StdSamples = stat.MeanStdDev(r.Samples, nil)
	r.MeanDistance = stat.Mean(r.Distance, nil)
	r.MeanSWR = stat.Mean(r.SWR, nil)

	sorted := append([]float64(nil), r.Distance...)
	sort.Float64s(sorted)
	r.P90Distance = stat.Quantile(0.9, stat.Empirical, sorted, nil)
}
