package trace

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/calvinmclean/autotune"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeParse(t *testing.T) {
	r := Record{
		Cycle:  3,
		Step:   17,
		State:  autotune.StateFineSearching,
		Config: autotune.RelayConfig{L: 300, C: 12, Topology: autotune.TopologyHighZ},
		Score:  123456,
	}

	line := Encode(r)
	assert.Equal(t, "T 3 17 Fine 300 12 HiZ 123456", line)

	parsed, err := Parse(line)
	require.NoError(t, err)
	assert.Equal(t, r, parsed)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"Short", "T 1 2 Fine"},
		{"BadCycle", "T x 2 Fine 1 1 LoZ 1"},
		{"BadState", "T 1 2 Sideways 1 1 LoZ 1"},
		{"BadL", "T 1 2 Fine 70000 1 LoZ 1"},
		{"BadTopology", "T 1 2 Fine 1 1 MidZ 1"},
		{"BadScore", "T 1 2 Fine 1 1 LoZ -4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.line)
			assert.Error(t, err)
			assert.NotErrorIs(t, err, ErrNotRecord)
		})
	}

	_, err := Parse("[-] Started...")
	assert.ErrorIs(t, err, ErrNotRecord)
	_, err = Parse("")
	assert.ErrorIs(t, err, ErrNotRecord)
}

func TestWriterAndMulti(t *testing.T) {
	var buf bytes.Buffer
	var seen []Record

	tr := Multi(NewWriter(&buf), nil, TracerFunc(func(r Record) { seen = append(seen, r) }), Nop{})
	tr.Trace(Record{Cycle: 1, State: autotune.StateCoarseSearching})
	tr.Trace(Record{Cycle: 1, Step: 1, State: autotune.StateMatched, Score: 100000})

	assert.Equal(t, "T 1 0 Coarse 0 0 LoZ 0\nT 1 1 Matched 0 0 LoZ 100000\n", buf.String())
	assert.Len(t, seen, 2)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewLogger(logger).Trace(Record{Cycle: 2, Step: 5, State: autotune.StateVerifying, Score: 112000})

	out := buf.String()
	assert.True(t, strings.Contains(out, "state=Verify"), out)
	assert.True(t, strings.Contains(out, "swr=1.12"), out)
}
