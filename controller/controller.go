// Package controller runs the tuning state machine: coarse search, fine search, verification,
// and the idle loop that waits for a trigger.
package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/input"
	"github.com/calvinmclean/autotune/relay"
	"github.com/calvinmclean/autotune/sampler"
	"github.com/calvinmclean/autotune/search"
	"github.com/calvinmclean/autotune/timeutil"
	"github.com/calvinmclean/autotune/trace"
)

var (
	// ErrCancelled is returned when a button press or context cancellation stops a cycle
	ErrCancelled = errors.New("tuning cancelled")
	// ErrNoSignal is returned when RF drive stays below the threshold for every retry
	ErrNoSignal = errors.New("no RF drive")
	// ErrTimeout is returned when the watchdog expires
	ErrTimeout = errors.New("tuning timed out")
)

// Hardware is the set of collaborators owned by the controller for its whole lifetime
type Hardware struct {
	Relays relay.ShiftRegister
	// Changeover is optional. Without it only the low impedance topology is used.
	Changeover relay.Changeover
	ADC        sampler.ADC
	// Gain is optional for bridges with a fixed gain
	Gain sampler.GainControl
}

// Controller owns the relay driver and sampler and runs tuning cycles on them. It is driven
// from a single goroutine; State and Status may be read from others.
type Controller struct {
	cfg     Config
	driver  *relay.Driver
	sampler *sampler.Sampler
	coarse  *search.Coarse
	fine    *search.Fine

	clock  timeutil.Clock
	logger *slog.Logger
	events input.Source
	sink   autotune.StatusSink
	tracer trace.Tracer

	mu     sync.Mutex
	state  autotune.State
	status autotune.Status
	result autotune.Result

	// cycle bookkeeping, reset by Tune
	cycle   uint32
	step    int
	samples int
	started time.Time
	last    search.Candidate

	lastAutoCheck time.Time
	autoArmed     bool
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithClock replaces the clock used for settle delays, retries and the watchdog
func WithClock(clock timeutil.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithEvents sets the button event source used to trigger and cancel cycles
func WithEvents(s input.Source) Option {
	return func(c *Controller) {
		c.events = s
	}
}

// WithStatusSink sets where status records are pushed, usually the display
func WithStatusSink(s autotune.StatusSink) Option {
	return func(c *Controller) {
		c.sink = s
	}
}

// WithTracer sets the diagnostics tracer
func WithTracer(t trace.Tracer) Option {
	return func(c *Controller) {
		c.tracer = t
	}
}

// New creates a Controller that owns hw
func New(hw Hardware, cfg Config, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if hw.ADC == nil {
		return nil, errors.New("ADC is required")
	}

	c := &Controller{
		cfg:       cfg,
		clock:     timeutil.RealClock{},
		logger:    slog.New(slog.DiscardHandler),
		events:    input.Merge(),
		sink:      nopSink{},
		tracer:    trace.Nop{},
		autoArmed: true,
	}
	for _, opt := range opts {
		opt(c)
	}

	relayOpts := []relay.Option{relay.WithClock(c.clock)}
	if hw.Changeover != nil {
		relayOpts = append(relayOpts, relay.WithChangeover(hw.Changeover))
	}
	driver, err := relay.NewDriver(hw.Relays, cfg.Relay, relayOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating relay driver: %w", err)
	}
	c.driver = driver
	c.sampler = sampler.New(hw.ADC, hw.Gain, cfg.Sampler)

	l, cBank := driver.Banks()
	measurer := search.MeasurerFunc(c.measure)
	c.coarse = search.NewCoarse(measurer, l, cBank)
	c.fine = search.NewFine(measurer, l, cBank, cfg.Search.WindowWidth, cfg.Search.WindowHeight)

	return c, nil
}

// State returns the current state
func (c *Controller) State() autotune.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status returns the last status record
func (c *Controller) Status() autotune.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// LastResult returns the result of the most recent cycle
func (c *Controller) LastResult() autotune.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Current returns the configuration latched on the relays
func (c *Controller) Current() autotune.RelayConfig {
	return c.driver.Current()
}

func (c *Controller) setState(s autotune.State) {
	c.mu.Lock()
	c.state = s
	c.status.State = s
	c.status.Config = c.driver.Current()
	status := c.status
	c.mu.Unlock()

	c.tracer.Trace(trace.Record{Cycle: c.cycle, Step: c.step, State: s, Config: status.Config, Score: status.Score})
	c.sink.Update(status)
}

func (c *Controller) setSample(rc autotune.RelayConfig, s autotune.Sample) {
	c.mu.Lock()
	c.status.Config = rc
	c.status.Score = s.Score
	c.status.Forward = s.Forward
	c.status.Gain = c.sampler.Gain()
	status := c.status
	c.mu.Unlock()

	c.sink.Update(status)
}

type nopSink struct{}

func (nopSink) Update(autotune.Status) {}
