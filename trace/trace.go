// Package trace carries the optional per-step diagnostics of a tuning cycle. Nothing in the
// tuner depends on a tracer for correctness.
package trace

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/calvinmclean/autotune"
)

// Prefix starts every encoded record so trace lines can share a console with other output
const Prefix = "T"

// ErrNotRecord is returned by Parse for lines that are not trace records
var ErrNotRecord = errors.New("not a trace record")

// Record is one step of a tuning cycle
type Record struct {
	Cycle  uint32
	Step   int
	State  autotune.State
	Config autotune.RelayConfig
	Score  autotune.Score
}

// Tracer receives trace records
type Tracer interface {
	Trace(Record)
}

// TracerFunc adapts a function to Tracer
type TracerFunc func(Record)

func (f TracerFunc) Trace(r Record) { f(r) }

// Nop discards records
type Nop struct{}

func (Nop) Trace(Record) {}

// Multi fans records out to several tracers
func Multi(tracers ...Tracer) Tracer {
	return multi(tracers)
}

type multi []Tracer

func (m multi) Trace(r Record) {
	for _, t := range m {
		if t != nil {
			t.Trace(r)
		}
	}
}

// Encode formats a record as a single line without the trailing newline:
//
//	T <cycle> <step> <state> <L> <C> <topology> <score>
func Encode(r Record) string {
	return strings.Join([]string{
		Prefix,
		strconv.FormatUint(uint64(r.Cycle), 10),
		strconv.Itoa(r.Step),
		r.State.String(),
		strconv.Itoa(int(r.Config.L)),
		strconv.Itoa(int(r.Config.C)),
		r.Config.Topology.String(),
		strconv.FormatUint(uint64(r.Score), 10),
	}, " ")
}

// Parse reads a line produced by Encode
func Parse(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != Prefix {
		return Record{}, ErrNotRecord
	}
	if len(fields) != 8 {
		return Record{}, fmt.Errorf("expected 8 fields, got %d", len(fields))
	}

	cycle, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return Record{}, fmt.Errorf("invalid cycle: %w", err)
	}
	step, err := strconv.Atoi(fields[2])
	if err != nil {
		return Record{}, fmt.Errorf("invalid step: %w", err)
	}
	state, ok := autotune.ParseState(fields[3])
	if !ok {
		return Record{}, fmt.Errorf("invalid state: %q", fields[3])
	}
	l, err := strconv.ParseUint(fields[4], 10, 16)
	if err != nil {
		return Record{}, fmt.Errorf("invalid L: %w", err)
	}
	c, err := strconv.ParseUint(fields[5], 10, 16)
	if err != nil {
		return Record{}, fmt.Errorf("invalid C: %w", err)
	}
	var topology autotune.Topology
	switch fields[6] {
	case autotune.TopologyLowZ.String():
		topology = autotune.TopologyLowZ
	case autotune.TopologyHighZ.String():
		topology = autotune.TopologyHighZ
	default:
		return Record{}, fmt.Errorf("invalid topology: %q", fields[6])
	}
	score, err := strconv.ParseUint(fields[7], 10, 32)
	if err != nil {
		return Record{}, fmt.Errorf("invalid score: %w", err)
	}

	return Record{
		Cycle:  uint32(cycle),
		Step:   step,
		State:  state,
		Config: autotune.RelayConfig{L: uint16(l), C: uint16(c), Topology: topology},
		Score:  autotune.Score(score),
	}, nil
}

// Writer writes encoded records, one per line
type Writer struct {
	w io.Writer
}

// NewWriter creates a Writer on w, typically the serial console
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Trace writes the record. Write errors are dropped since tracing is best effort.
func (w *Writer) Trace(r Record) {
	_, _ = io.WriteString(w.w, Encode(r)+"\n")
}
