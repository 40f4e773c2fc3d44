package controller

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/input"
	"github.com/calvinmclean/autotune/relay"
	"github.com/calvinmclean/autotune/sampler"
	"github.com/calvinmclean/autotune/sim"
	"github.com/calvinmclean/autotune/timeutil"
	"github.com/calvinmclean/autotune/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var target = autotune.RelayConfig{L: 5, C: 3}

type testHarness struct {
	c       *Controller
	network *sim.Network
	clock   *timeutil.FakeClock
	records []trace.Record
}

func newHarness(t *testing.T, surface sim.Surface, simCfg sim.Config, cfg Config, opts ...Option) *testHarness {
	t.Helper()

	h := &testHarness{clock: timeutil.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))}
	h.network = sim.NewNetwork(surface, simCfg, h.clock)

	opts = append([]Option{
		WithClock(h.clock),
		WithTracer(trace.TracerFunc(func(r trace.Record) {
			h.records = append(h.records, r)
		})),
	}, opts...)

	c, err := New(Hardware{
		Relays:     h.network,
		Changeover: h.network,
		ADC:        h.network,
		Gain:       h.network,
	}, cfg, opts...)
	require.NoError(t, err)
	h.c = c

	return h
}

// lastSample is the most recent trace record produced by a measurement
func (h *testHarness) lastSample(t *testing.T) trace.Record {
	t.Helper()
	for i := len(h.records) - 1; i >= 0; i-- {
		if h.records[i].State.InProgress() {
			return h.records[i]
		}
	}
	t.Fatal("no measurement traced")
	return trace.Record{}
}

// samplesIn counts the scored samples traced while in state
func (h *testHarness) samplesIn(state autotune.State) int {
	n, step := 0, 0
	for _, r := range h.records {
		if r.Step > step && r.State == state {
			n++
		}
		step = r.Step
	}
	return n
}

func (h *testHarness) states() []autotune.State {
	var states []autotune.State
	for _, r := range h.records {
		if len(states) == 0 || states[len(states)-1] != r.State {
			states = append(states, r.State)
		}
	}
	return states
}

func TestTuneReachesMinimum(t *testing.T) {
	cfg := DefaultConfig()
	// coarse stops at 8|4, the first window reaches 6|3 and the second one 5|3
	cfg.Search.FinePasses = 3
	h := newHarness(t, sim.DefaultBowl(target), sim.DefaultConfig(), cfg)

	result, err := h.c.Tune(context.Background())
	require.NoError(t, err)

	assert.Equal(t, autotune.OutcomeMatched, result.Outcome)
	assert.Equal(t, target, result.Config)
	assert.Equal(t, target, h.network.Latched())
	assert.Equal(t, target, h.c.Current())
	assert.LessOrEqual(t, result.Score, autotune.Score(120000))
	assert.Equal(t, result, h.c.LastResult())

	assert.Equal(t, autotune.StateIdle, h.c.State())
	assert.Equal(t, []autotune.State{
		autotune.StateCoarseSearching,
		autotune.StateFineSearching,
		autotune.StateVerifying,
		autotune.StateMatched,
		autotune.StateIdle,
	}, h.states())

	status := h.c.Status()
	assert.Equal(t, autotune.GainHigh, status.Gain)
	assert.Equal(t, target, status.Config)
	assert.Equal(t, result.Score, status.Score)
}

func TestTuneSingleFinePassByDefault(t *testing.T) {
	h := newHarness(t, sim.DefaultBowl(target), sim.DefaultConfig(), DefaultConfig())

	result, err := h.c.Tune(context.Background())
	require.NoError(t, err)

	assert.Equal(t, autotune.OutcomeMatched, result.Outcome)
	assert.Equal(t, autotune.RelayConfig{L: 6, C: 3}, result.Config)
	assert.Equal(t, 25, h.samplesIn(autotune.StateFineSearching))
	assert.Equal(t, 1, h.samplesIn(autotune.StateVerifying))
}

func TestTuneSampleBudget(t *testing.T) {
	cfg := DefaultConfig()
	h := newHarness(t, sim.DefaultBowl(target), sim.DefaultConfig(), cfg)

	result, err := h.c.Tune(context.Background())
	require.NoError(t, err)

	bound := cfg.Relay.LBits + cfg.Relay.CBits
	// the scored starting sample is traced, the gain selection reading before it is not
	assert.Equal(t, bound+1, h.samplesIn(autotune.StateCoarseSearching))
	assert.Equal(t, bound+2+25+1, result.Samples)
}

func TestTuneWeakSignalUsesHighGain(t *testing.T) {
	simCfg := sim.DefaultConfig()
	// 10 at low gain is below the RF threshold of 20, 40 at high gain is not
	simCfg.Drive = 10
	h := newHarness(t, sim.DefaultBowl(target), simCfg, DefaultConfig())

	result, err := h.c.Tune(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, autotune.OutcomeAborted, result.Outcome)
	assert.Equal(t, autotune.GainHigh, h.c.Status().Gain)
	for _, d := range h.clock.Sleeps() {
		assert.NotEqual(t, DefaultConfig().NoSignalDelay, d)
	}
}

func TestTuneNoSignal(t *testing.T) {
	simCfg := sim.DefaultConfig()
	simCfg.Drive = 0
	cfg := DefaultConfig()
	h := newHarness(t, sim.DefaultBowl(target), simCfg, cfg)

	result, err := h.c.Tune(context.Background())
	require.ErrorIs(t, err, ErrNoSignal)
	assert.True(t, IsAbort(err))

	assert.Equal(t, autotune.OutcomeAborted, result.Outcome)
	// one reading to pick the gain, then the scored sample and its retries
	assert.Equal(t, cfg.NoSignalRetries+2, result.Samples)
	assert.Equal(t, autotune.Bypass, result.Config)
	assert.Equal(t, autotune.MaxScore, result.Score)
	assert.Equal(t, autotune.StateIdle, h.c.State())

	retries := 0
	for _, d := range h.clock.Sleeps() {
		if d == cfg.NoSignalDelay {
			retries++
		}
	}
	assert.Equal(t, cfg.NoSignalRetries, retries)
}

// cancelDuringFine presses Tune after a number of polls made while the fine search runs
type cancelDuringFine struct {
	c     func() autotune.State
	after int
	polls int
}

func (s *cancelDuringFine) Poll() (autotune.Event, bool) {
	if s.c() != autotune.StateFineSearching {
		return autotune.Event{}, false
	}
	s.polls++
	if s.polls == s.after {
		return autotune.Event{Button: autotune.ButtonTune}, true
	}
	return autotune.Event{}, false
}

func TestTuneCancelledDuringFine(t *testing.T) {
	for _, after := range []int{1, 7, 20} {
		t.Run(fmt.Sprintf("After%d", after), func(t *testing.T) {
			source := &cancelDuringFine{after: after}
			h := newHarness(t, sim.DefaultBowl(target), sim.DefaultConfig(), DefaultConfig(), WithEvents(source))
			source.c = h.c.State

			result, err := h.c.Tune(context.Background())
			require.ErrorIs(t, err, ErrCancelled)

			last := h.lastSample(t)
			assert.Equal(t, autotune.StateFineSearching, last.State)
			assert.Equal(t, autotune.OutcomeAborted, result.Outcome)
			assert.Equal(t, last.Config, result.Config)
			assert.Equal(t, last.Score, result.Score)
			assert.Equal(t, last.Config, h.network.Latched())
			assert.Contains(t, h.states(), autotune.StateAborted)
		})
	}
}

func TestTuneContextCancelled(t *testing.T) {
	h := newHarness(t, sim.DefaultBowl(target), sim.DefaultConfig(), DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := h.c.Tune(ctx)
	require.ErrorIs(t, err, ErrCancelled)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, autotune.OutcomeAborted, result.Outcome)
	assert.Equal(t, 0, result.Samples)
}

func TestTuneTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 100 * time.Millisecond
	h := newHarness(t, sim.DefaultBowl(target), sim.DefaultConfig(), cfg)

	result, err := h.c.Tune(context.Background())
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, autotune.OutcomeAborted, result.Outcome)
	assert.Equal(t, h.network.Latched(), result.Config)
}

func TestTuneOutcomeThreshold(t *testing.T) {
	// forward 800 at high gain, reverse 80: (880 * 100000) / 720
	const score autotune.Score = 122222

	tests := []struct {
		name     string
		okScore  autotune.Score
		expected autotune.Outcome
	}{
		{"AtThreshold", score, autotune.OutcomeMatched},
		{"AboveThreshold", score - 1, autotune.OutcomeBestEffort},
		{"Default", DefaultConfig().OKScore, autotune.OutcomeBestEffort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.OKScore = tt.okScore
			h := newHarness(t, sim.Flat(0.1), sim.DefaultConfig(), cfg)

			result, err := h.c.Tune(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Outcome)
			assert.Equal(t, score, result.Score)
			// nothing beats bypass on a flat surface
			assert.Equal(t, autotune.Bypass, result.Config)
		})
	}
}

func TestTuneTriesBothTopologies(t *testing.T) {
	highZ := autotune.RelayConfig{L: 12, C: 6, Topology: autotune.TopologyHighZ}

	tests := []struct {
		name     string
		both     bool
		expected autotune.Topology
	}{
		{"LowZOnly", false, autotune.TopologyLowZ},
		{"Both", true, autotune.TopologyHighZ},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Search.TryBothTopologies = tt.both
			cfg.Search.FinePasses = 3
			h := newHarness(t, sim.DefaultBowl(highZ), sim.DefaultConfig(), cfg)

			result, err := h.c.Tune(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Config.Topology)
			if tt.both {
				assert.Equal(t, highZ, result.Config)
			}
		})
	}
}

// orderRecorder logs hardware operations so tests can check that every sample follows a settle
type orderRecorder struct {
	*sim.Network
	ops *[]string
}

func (o orderRecorder) WriteBits(chain relay.Chain, bits uint32) {
	*o.ops = append(*o.ops, "write")
	o.Network.WriteBits(chain, bits)
}

func (o orderRecorder) ReadRaw(ch sampler.Channel) uint16 {
	*o.ops = append(*o.ops, "read")
	return o.Network.ReadRaw(ch)
}

func TestSamplesOnlyAfterSettle(t *testing.T) {
	clock := timeutil.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	network := sim.NewNetwork(sim.DefaultBowl(target), sim.DefaultConfig(), clock)
	cfg := DefaultConfig()

	var ops []string
	clock.OnSleep(func(d time.Duration) {
		if d == cfg.Relay.Settle {
			ops = append(ops, "settle")
		}
	})
	rec := orderRecorder{Network: network, ops: &ops}

	c, err := New(Hardware{Relays: rec, ADC: rec, Gain: network}, cfg, WithClock(clock))
	require.NoError(t, err)

	_, err = c.Tune(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, ops)
	pending := false
	for i, op := range ops {
		switch op {
		case "write":
			pending = true
		case "settle":
			pending = false
		case "read":
			require.False(t, pending, "read at %d before relays settled", i)
		}
	}
}

func TestHandleManualStepping(t *testing.T) {
	short := func(b autotune.Button) autotune.Event { return autotune.Event{Button: b} }
	long := func(b autotune.Button) autotune.Event { return autotune.Event{Button: b, Press: autotune.LongPress} }

	tests := []struct {
		name     string
		events   []autotune.Event
		expected autotune.RelayConfig
	}{
		{"LUp", []autotune.Event{short(autotune.ButtonLUp)}, autotune.RelayConfig{L: 1}},
		{"LUpLong", []autotune.Event{long(autotune.ButtonLUp)}, autotune.RelayConfig{L: 10}},
		{"CUpThenDown", []autotune.Event{long(autotune.ButtonCUp), short(autotune.ButtonCDown)}, autotune.RelayConfig{C: 9}},
		{"DownSaturates", []autotune.Event{short(autotune.ButtonLDown), long(autotune.ButtonCDown)}, autotune.RelayConfig{}},
		{"Topology", []autotune.Event{short(autotune.ButtonTopology)}, autotune.RelayConfig{Topology: autotune.TopologyHighZ}},
		{"Bypass", []autotune.Event{long(autotune.ButtonLUp), short(autotune.ButtonTopology), long(autotune.ButtonTune)}, autotune.Bypass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, sim.DefaultBowl(target), sim.DefaultConfig(), DefaultConfig())

			for _, e := range tt.events {
				require.NoError(t, h.c.Handle(context.Background(), e))
			}
			assert.Equal(t, tt.expected, h.c.Current())
			assert.Equal(t, tt.expected, h.network.Latched())
			assert.Equal(t, tt.expected, h.c.Status().Config)
			assert.Equal(t, autotune.StateIdle, h.c.State())
		})
	}
}

func TestHandleTopologyWithoutChangeover(t *testing.T) {
	clock := timeutil.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	network := sim.NewNetwork(sim.DefaultBowl(target), sim.DefaultConfig(), clock)

	c, err := New(Hardware{Relays: network, ADC: network}, DefaultConfig(), WithClock(clock))
	require.NoError(t, err)

	err = c.Handle(context.Background(), autotune.Event{Button: autotune.ButtonTopology})
	require.ErrorIs(t, err, relay.ErrInvalidConfig)
	assert.Equal(t, autotune.Bypass, c.Current())
}

func TestRunTunesOnEvent(t *testing.T) {
	queue := input.NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarness(t, sim.DefaultBowl(target), sim.DefaultConfig(), DefaultConfig(),
		WithEvents(queue),
		WithTracer(trace.TracerFunc(func(r trace.Record) {
			if r.State == autotune.StateMatched {
				cancel()
			}
		})),
	)

	queue.Push(autotune.Event{Button: autotune.ButtonTune})
	require.NoError(t, h.c.Run(ctx))

	assert.Equal(t, autotune.OutcomeMatched, h.c.LastResult().Outcome)
	assert.Equal(t, h.c.LastResult().Config, h.c.Current())
	assert.LessOrEqual(t, h.c.Current().Distance(target), 1)
}

func TestRunAutoTune(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := DefaultConfig()
	cfg.AutoTune = true
	// bypass is saturated at SWR 19, coarse stops at 64|32 and the window reaches 62|30
	far := autotune.RelayConfig{L: 62, C: 30}

	cycles := 0
	h := newHarness(t, sim.DefaultBowl(far), sim.DefaultConfig(), cfg,
		WithTracer(trace.TracerFunc(func(r trace.Record) {
			if r.State == autotune.StateMatched || r.State == autotune.StateBestEffort {
				cycles++
			}
		})),
	)
	// keep running a while after the first cycle to show a matched antenna is left alone
	h.clock.OnSleep(func(time.Duration) {
		if cycles > 0 && h.c.State() == autotune.StateIdle && h.clock.Since(h.c.started) > 10*time.Second {
			cancel()
		}
	})

	require.NoError(t, h.c.Run(ctx))
	assert.Equal(t, 1, cycles)
	assert.Equal(t, autotune.OutcomeMatched, h.c.LastResult().Outcome)
	assert.Equal(t, far, h.c.Current())
}

func TestRunAutoTuneDisarmsAfterBestEffort(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := DefaultConfig()
	cfg.AutoTune = true

	cycles := 0
	rekeyed := false
	h := newHarness(t, sim.Flat(0.5), sim.DefaultConfig(), cfg,
		WithTracer(trace.TracerFunc(func(r trace.Record) {
			switch r.State {
			case autotune.StateBestEffort:
				cycles++
			case autotune.StateCoarseSearching:
				if cycles == 1 {
					assert.True(t, rekeyed, "retuned without the transmitter stopping")
				}
			}
		})),
	)
	h.clock.OnSleep(func(time.Duration) {
		if cycles == 0 || h.c.State() != autotune.StateIdle {
			return
		}
		since := h.clock.Since(h.c.started)
		switch {
		case cycles >= 2:
			cancel()
		case since > 12*time.Second:
			rekeyed = true
			h.network.SetDrive(sim.DefaultConfig().Drive)
		case since > 10*time.Second:
			h.network.SetDrive(0)
		}
	})

	require.NoError(t, h.c.Run(ctx))
	assert.Equal(t, 2, cycles)
	assert.True(t, rekeyed)
}

func TestNewValidatesConfig(t *testing.T) {
	network := sim.NewNetwork(sim.Flat(0), sim.DefaultConfig(), nil)

	tests := []struct {
		name   string
		modify func(*Config)
		hw     Hardware
	}{
		{"EvenWindow", func(c *Config) { c.Search.WindowWidth = 4 }, Hardware{Relays: network, ADC: network}},
		{"ZeroWindow", func(c *Config) { c.Search.WindowHeight = 0 }, Hardware{Relays: network, ADC: network}},
		{"PerfectOK", func(c *Config) { c.OKScore = 99999 }, Hardware{Relays: network, ADC: network}},
		{"NegativeRetries", func(c *Config) { c.NoSignalRetries = -1 }, Hardware{Relays: network, ADC: network}},
		{"NoPasses", func(c *Config) { c.Search.FinePasses = 0 }, Hardware{Relays: network, ADC: network}},
		{"NoADC", func(*Config) {}, Hardware{Relays: network}},
		{"NoRelays", func(*Config) {}, Hardware{ADC: network}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			_, err := New(tt.hw, cfg)
			assert.Error(t, err)
		})
	}
}
