package monitor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// timeoutReader returns its chunks one per Read with empty reads in between, like a serial port
// with a read timeout
type timeoutReader struct {
	chunks []string
	empty  bool
	err    error
}

func (r *timeoutReader) Read(p []byte) (int, error) {
	r.empty = !r.empty
	if r.empty {
		return 0, nil
	}
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func TestFollow(t *testing.T) {
	r := &timeoutReader{chunks: []string{
		"Available Commands:\r\n",
		"T 1 0 Coarse 0 0 Lo",
		"Z 999999\r\nT 1 1 Coarse 0 0 LoZ 131000\r\n",
		"T 1 2 Nonsense 0 0 LoZ 1\n\n",
		"T 1 3 Fine 5 3 LoZ 104081",
	}}

	var records []trace.Record
	var lines []string
	err := Follow(context.Background(), r, func(rec trace.Record) {
		records = append(records, rec)
	}, func(line string) {
		lines = append(lines, line)
	})
	require.NoError(t, err)

	assert.Equal(t, []trace.Record{
		{Cycle: 1, State: autotune.StateCoarseSearching, Score: 999999},
		{Cycle: 1, Step: 1, State: autotune.StateCoarseSearching, Score: 131000},
		{Cycle: 1, Step: 3, State: autotune.StateFineSearching, Config: autotune.RelayConfig{L: 5, C: 3}, Score: 104081},
	}, records)

	require.Len(t, lines, 2)
	assert.Equal(t, "Available Commands:", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "T 1 2 Nonsense"))
}

func TestFollowSplitsEndlessLine(t *testing.T) {
	garbage := strings.Repeat("\xff", 600)
	r := &timeoutReader{chunks: []string{garbage[:200], garbage[200:400], garbage[400:], "\nT 1 1 Coarse 0 0 LoZ 131000\n"}}

	var records []trace.Record
	var lines []string
	err := Follow(context.Background(), r, func(rec trace.Record) {
		records = append(records, rec)
	}, func(line string) {
		lines = append(lines, line)
	})
	require.NoError(t, err)

	require.Len(t, lines, 3)
	assert.Len(t, lines[0], maxLineLength)
	assert.Len(t, lines[1], maxLineLength)
	assert.Len(t, lines[2], 600-2*maxLineLength)
	assert.Equal(t, []trace.Record{
		{Cycle: 1, Step: 1, State: autotune.StateCoarseSearching, Score: 131000},
	}, records)
}

func TestFollowReadError(t *testing.T) {
	r := &timeoutReader{err: errors.New("device unplugged")}
	err := Follow(context.Background(), r, func(trace.Record) {}, nil)
	assert.ErrorContains(t, err, "device unplugged")
}

func TestFollowStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var records []trace.Record
	r := &timeoutReader{chunks: []string{"T 1 1 Coarse 0 0 LoZ 131000\n", "T 1 2 Coarse 0 0 LoZ 131000\n"}}
	err := Follow(ctx, r, func(rec trace.Record) {
		records = append(records, rec)
		cancel()
	}, nil)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSend(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Send(&buf, "L+T"))
	assert.Equal(t, "L+T", buf.String())
}

func TestCollector(t *testing.T) {
	var cycles []Cycle
	c := NewCollector(func(cycle Cycle) {
		cycles = append(cycles, cycle)
	})

	records := []trace.Record{
		{Cycle: 1, Step: 0, State: autotune.StateCoarseSearching, Score: autotune.MaxScore},
		{Cycle: 1, Step: 1, State: autotune.StateCoarseSearching, Score: 131000},
		{Cycle: 1, Step: 2, State: autotune.StateCoarseSearching, Config: autotune.RelayConfig{L: 8}, Score: 120000},
		{Cycle: 1, Step: 2, State: autotune.StateFineSearching, Config: autotune.RelayConfig{L: 8}, Score: 120000},
		{Cycle: 1, Step: 3, State: autotune.StateFineSearching, Config: autotune.RelayConfig{L: 5, C: 3}, Score: 104081},
		{Cycle: 1, Step: 4, State: autotune.StateFineSearching, Config: autotune.RelayConfig{L: 6, C: 3}, Score: 108000},
		{Cycle: 1, Step: 4, State: autotune.StateVerifying, Config: autotune.RelayConfig{L: 6, C: 3}, Score: 108000},
		{Cycle: 1, Step: 5, State: autotune.StateVerifying, Config: autotune.RelayConfig{L: 5, C: 3}, Score: 104000},
		{Cycle: 1, Step: 5, State: autotune.StateMatched, Config: autotune.RelayConfig{L: 5, C: 3}, Score: 104000},
		{Cycle: 1, Step: 5, State: autotune.StateIdle, Config: autotune.RelayConfig{L: 5, C: 3}, Score: 104000},
		{Cycle: 2, Step: 0, State: autotune.StateCoarseSearching, Score: 104000},
	}
	for _, r := range records {
		c.Trace(r)
	}

	require.Len(t, cycles, 1)
	cycle := cycles[0]
	assert.Equal(t, uint32(1), cycle.Number)
	assert.Len(t, cycle.Records, 9)

	final, ok := cycle.Final()
	require.True(t, ok)
	assert.Equal(t, autotune.StateMatched, final.State)

	best, ok := cycle.Best()
	require.True(t, ok)
	assert.Equal(t, autotune.Score(104000), best.Score)
	assert.Equal(t, 5, best.Step)

	assert.Equal(t, map[autotune.State]int{
		autotune.StateCoarseSearching: 2,
		autotune.StateFineSearching:   2,
		autotune.StateVerifying:       1,
	}, cycle.Steps())
}
