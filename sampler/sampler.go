// Package sampler reduces averaged forward/reverse bridge readings to a single SWR score.
package sampler

import "github.com/calvinmclean/autotune"

// Channel is an analog input of the SWR bridge
type Channel int

const (
	ChannelForward Channel = iota
	ChannelReverse
)

func (c Channel) String() string {
	if c == ChannelReverse {
		return "Reverse"
	}
	return "Forward"
}

// ADC reads one raw analog sample
type ADC interface {
	ReadRaw(ch Channel) uint16
}

// GainControl switches the bridge amplifiers between the two gain levels
type GainControl interface {
	SetGain(autotune.Gain)
}

// Config controls averaging
type Config struct {
	// AverageCount is the number of readings averaged per channel
	AverageCount int
}

// DefaultConfig averages 8 readings per channel
func DefaultConfig() Config {
	return Config{AverageCount: 8}
}

// Sampler takes averaged SWR samples. It does not check for RF drive; callers decide whether a
// sample has enough forward power to be meaningful.
type Sampler struct {
	adc  ADC
	gain GainControl
	cfg  Config

	currentGain autotune.Gain
	samples     int
}

// New creates a Sampler. gain may be nil when the front end has a fixed gain.
func New(adc ADC, gain GainControl, cfg Config) *Sampler {
	if cfg.AverageCount < 1 {
		cfg.AverageCount = 1
	}
	return &Sampler{adc: adc, gain: gain, cfg: cfg}
}

// SetGain selects the amplifier gain used for following samples
func (s *Sampler) SetGain(g autotune.Gain) {
	s.currentGain = g
	if s.gain != nil {
		s.gain.SetGain(g)
	}
}

// Gain returns the currently selected gain
func (s *Sampler) Gain() autotune.Gain {
	return s.currentGain
}

// Count returns the number of samples taken so far
func (s *Sampler) Count() int {
	return s.samples
}

// Sample reads both channels AverageCount times, averages each one and scores the result
func (s *Sampler) Sample() autotune.Sample {
	var fwdSum, revSum uint32
	for range s.cfg.AverageCount {
		fwdSum += uint32(s.adc.ReadRaw(ChannelForward))
		revSum += uint32(s.adc.ReadRaw(ChannelReverse))
	}
	s.samples++

	n := uint32(s.cfg.AverageCount)
	fwd := uint16(fwdSum / n)
	rev := uint16(revSum / n)

	return autotune.Sample{
		Forward: fwd,
		Reverse: rev,
		Score:   Score(fwd, rev),
	}
}

// Score converts averaged readings to SWR scaled by autotune.ScoreUnit: (F+R)/(F-R).
// It is clamped to autotune.MaxScore when the forward reading is zero or not above the reverse one.
func Score(fwd, rev uint16) autotune.Score {
	if fwd == 0 || fwd <= rev {
		return autotune.MaxScore
	}
	score := (uint64(fwd) + uint64(rev)) * uint64(autotune.ScoreUnit) / (uint64(fwd) - uint64(rev))
	if score > uint64(autotune.MaxScore) {
		return autotune.MaxScore
	}
	return autotune.Score(score)
}
