// Package sim simulates the tuner hardware: both relay chains, the changeover relay, the SWR
// bridge with its switchable gain, and an antenna whose mismatch depends on the relay setting.
package sim

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/relay"
	"github.com/calvinmclean/autotune/sampler"
	"github.com/calvinmclean/autotune/timeutil"
)

// Surface returns the magnitude of the reflection coefficient, 0 <= gamma < 1, for a configuration
type Surface func(rc autotune.RelayConfig) float64

// Config describes the simulated bridge
type Config struct {
	// Drive is the forward reading at low gain while transmitting. Zero means no RF.
	Drive uint16
	// HighGainFactor multiplies readings when the high gain is selected
	HighGainFactor float64
	// ADCMax is the largest raw reading
	ADCMax uint16
	// Noise is the peak amplitude of uniform noise added to every reading, in counts
	Noise float64
	Seed  int64
	// Settle is how long relays take to switch. Readings taken earlier see the old configuration.
	Settle time.Duration
}

// DefaultConfig is a 10-bit ADC driven at a comfortable level with 4x high gain
func DefaultConfig() Config {
	return Config{
		Drive:          200,
		HighGainFactor: 4,
		ADCMax:         1023,
		Settle:         20 * time.Millisecond,
	}
}

// Network is the simulated hardware. It implements relay.ShiftRegister, relay.Changeover,
// sampler.ADC and sampler.GainControl.
type Network struct {
	mu      sync.Mutex
	surface Surface
	cfg     Config
	clock   timeutil.Clock
	rng     *rand.Rand

	latched   autotune.RelayConfig
	effective autotune.RelayConfig
	lastWrite time.Time
	gain      autotune.Gain

	writes int
	reads  int
}

var (
	_ relay.ShiftRegister = (*Network)(nil)
	_ relay.Changeover    = (*Network)(nil)
	_ sampler.ADC         = (*Network)(nil)
	_ sampler.GainControl = (*Network)(nil)
)

// NewNetwork creates a Network that reads time from clock
func NewNetwork(surface Surface, cfg Config, clock timeutil.Clock) *Network {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Network{
		surface: surface,
		cfg:     cfg,
		clock:   clock,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}
}

// WriteBits latches a relay chain
func (n *Network) WriteBits(chain relay.Chain, bits uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.settle()
	switch chain {
	case relay.ChainL:
		n.latched.L = uint16(bits)
	case relay.ChainC:
		n.latched.C = uint16(bits)
	}
	n.lastWrite = n.clock.Now()
	n.writes++
}

// Set drives the changeover relay
func (n *Network) Set(highZ bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.settle()
	n.latched.Topology = autotune.TopologyLowZ
	if highZ {
		n.latched.Topology = autotune.TopologyHighZ
	}
	n.lastWrite = n.clock.Now()
}

// SetGain selects the bridge amplifier gain
func (n *Network) SetGain(g autotune.Gain) {
	n.mu.Lock()
	n.gain = g
	n.mu.Unlock()
}

// SetDrive changes the transmitter level. Zero stops transmitting.
func (n *Network) SetDrive(level uint16) {
	n.mu.Lock()
	n.cfg.Drive = level
	n.mu.Unlock()
}

// SetSurface replaces the antenna, as when changing band
func (n *Network) SetSurface(s Surface) {
	n.mu.Lock()
	n.surface = s
	n.mu.Unlock()
}

// ReadRaw returns one noisy bridge reading for the configuration the relays have settled on
func (n *Network) ReadRaw(ch sampler.Channel) uint16 {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.settle()
	n.reads++

	level := float64(n.cfg.Drive)
	if n.gain == autotune.GainHigh {
		level *= n.cfg.HighGainFactor
	}
	if ch == sampler.ChannelReverse {
		level *= n.gamma(n.effective)
	}
	if level > 0 && n.cfg.Noise > 0 {
		level += (n.rng.Float64()*2 - 1) * n.cfg.Noise
	}

	return clamp(level, n.cfg.ADCMax)
}

// Gamma returns the reflection coefficient of a configuration without touching the relays
func (n *Network) Gamma(rc autotune.RelayConfig) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.gamma(rc)
}

// Latched is the configuration currently written to the relays
func (n *Network) Latched() autotune.RelayConfig {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.latched
}

// Stats returns the number of chain writes and analog reads so far
func (n *Network) Stats() (writes, reads int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.writes, n.reads
}

func (n *Network) gamma(rc autotune.RelayConfig) float64 {
	g := n.surface(rc)
	return math.Max(0, math.Min(g, 0.999))
}

// settle promotes the latched configuration once the relays have had time to switch
func (n *Network) settle() {
	if n.effective == n.latched {
		return
	}
	if n.clock.Since(n.lastWrite) >= n.cfg.Settle {
		n.effective = n.latched
	}
}

func clamp(v float64, limit uint16) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= float64(limit) {
		return limit
	}
	return uint16(math.Round(v))
}
