package calibrate

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Windows = []int{3, 7}
	cfg.Surfaces = 4
	return cfg
}

func TestRun(t *testing.T) {
	report, err := Run(context.Background(), smallConfig())
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	for _, res := range report.Results {
		assert.Len(t, res.Samples, 4)
		assert.Len(t, res.Distance, 4)
		assert.Len(t, res.SWR, 4)
		assert.GreaterOrEqual(t, res.P90Distance, 0.0)
		assert.GreaterOrEqual(t, res.MeanSWR, 1.0)
		assert.LessOrEqual(t, res.MatchedRatio(), 1.0)
	}

	// a 7x7 window costs 49 fine samples against 9 for 3x3
	assert.Greater(t, report.Results[1].MeanSamples, report.Results[0].MeanSamples)
}

func TestRunIsDeterministic(t *testing.T) {
	a, err := Run(context.Background(), smallConfig())
	require.NoError(t, err)
	b, err := Run(context.Background(), smallConfig())
	require.NoError(t, err)
	assert.Equal(t, a.Results, b.Results)
}

func TestRunErrors(t *testing.T) {
	t.Run("NoWindows", func(t *testing.T) {
		cfg := smallConfig()
		cfg.Windows = nil
		_, err := Run(context.Background(), cfg)
		assert.Error(t, err)
	})

	t.Run("EvenWindow", func(t *testing.T) {
		cfg := smallConfig()
		cfg.Windows = []int{4}
		_, err := Run(context.Background(), cfg)
		assert.Error(t, err)
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Run(ctx, smallConfig())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestWriteHTML(t *testing.T) {
	report, err := Run(context.Background(), smallConfig())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteHTML(&buf))

	html := buf.String()
	assert.Contains(t, html, "Samples per cycle")
	assert.Contains(t, html, "Distance from optimum")
	assert.Contains(t, html, "7x7")
}
