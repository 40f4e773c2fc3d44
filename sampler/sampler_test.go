package sampler

import (
	"testing"

	"github.com/calvinmclean/autotune"
	"github.com/stretchr/testify/assert"
)

type fakeADC struct {
	fwd, rev []uint16
	reads    []Channel
}

func (f *fakeADC) ReadRaw(ch Channel) uint16 {
	f.reads = append(f.reads, ch)
	var src *[]uint16
	if ch == ChannelForward {
		src = &f.fwd
	} else {
		src = &f.rev
	}
	v := (*src)[0]
	if len(*src) > 1 {
		*src = (*src)[1:]
	}
	return v
}

type fakeGain struct {
	set []autotune.Gain
}

func (f *fakeGain) SetGain(g autotune.Gain) { f.set = append(f.set, g) }

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		fwd, rev uint16
		expected autotune.Score
	}{
		{"PerfectMatch", 500, 0, 100000},
		{"SWR1.5", 500, 100, 150000},
		{"SWR2", 300, 100, 200000},
		{"NoForward", 0, 0, autotune.MaxScore},
		{"ReverseEqualsForward", 200, 200, autotune.MaxScore},
		{"ReverseAboveForward", 100, 300, autotune.MaxScore},
		{"ClampedHigh", 1000, 999, autotune.MaxScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Score(tt.fwd, tt.rev))
		})
	}
}

func TestScoreMonotonicInReverse(t *testing.T) {
	prev := Score(800, 0)
	for rev := uint16(1); rev < 800; rev++ {
		s := Score(800, rev)
		assert.GreaterOrEqual(t, s, prev, "rev=%d", rev)
		prev = s
	}
}

func TestSampleAverages(t *testing.T) {
	adc := &fakeADC{
		fwd: []uint16{100, 300, 200, 200},
		rev: []uint16{0, 100, 50, 50},
	}
	s := New(adc, nil, Config{AverageCount: 4})

	sample := s.Sample()
	assert.Equal(t, uint16(200), sample.Forward)
	assert.Equal(t, uint16(50), sample.Reverse)
	assert.Equal(t, Score(200, 50), sample.Score)
	assert.Len(t, adc.reads, 8)
	assert.Equal(t, 1, s.Count())
}

func TestSampleInterleavesChannels(t *testing.T) {
	adc := &fakeADC{fwd: []uint16{10}, rev: []uint16{1}}
	New(adc, nil, Config{AverageCount: 2}).Sample()
	assert.Equal(t, []Channel{ChannelForward, ChannelReverse, ChannelForward, ChannelReverse}, adc.reads)
}

func TestSetGain(t *testing.T) {
	g := &fakeGain{}
	s := New(&fakeADC{fwd: []uint16{1}, rev: []uint16{0}}, g, DefaultConfig())

	s.SetGain(autotune.GainHigh)
	s.SetGain(autotune.GainLow)

	assert.Equal(t, []autotune.Gain{autotune.GainHigh, autotune.GainLow}, g.set)
	assert.Equal(t, autotune.GainLow, s.Gain())
}

func TestNewClampsAverageCount(t *testing.T) {
	adc := &fakeADC{fwd: []uint16{10}, rev: []uint16{0}}
	New(adc, nil, Config{}).Sample()
	assert.Len(t, adc.reads, 2)
}
