package monitor

import (
	"sync"

	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/trace"
)

// Cycle is every record of one tuning cycle
type Cycle struct {
	Number  uint32
	Records []trace.Record
}

// Final is the terminal record of the cycle
func (c Cycle) Final() (trace.Record, bool) {
	for i := len(c.Records) - 1; i >= 0; i-- {
		switch c.Records[i].State {
		case autotune.StateMatched, autotune.StateBestEffort, autotune.StateAborted:
			return c.Records[i], true
		}
	}
	return trace.Record{}, false
}

// Best is the measurement with the lowest score
func (c Cycle) Best() (trace.Record, bool) {
	var best trace.Record
	found := false
	for _, r := range c.Records {
		if r.Step == 0 || !r.State.InProgress() {
			continue
		}
		if !found || r.Score < best.Score {
			best = r
			found = true
		}
	}
	return best, found
}

// Steps counts records per search state
func (c Cycle) Steps() map[autotune.State]int {
	steps := map[autotune.State]int{}
	last := 0
	for _, r := range c.Records {
		if r.Step > last {
			steps[r.State] += r.Step - last
			last = r.Step
		}
	}
	return steps
}

// Collector is a trace.Tracer that groups records into cycles and reports each one when it ends
type Collector struct {
	mu      sync.Mutex
	current *Cycle
	onDone  func(Cycle)
}

var _ trace.Tracer = &Collector{}

// NewCollector calls onDone with every completed cycle
func NewCollector(onDone func(Cycle)) *Collector {
	return &Collector{onDone: onDone}
}

// Trace adds r to its cycle. Idle records belong to no cycle and are dropped.
func (c *Collector) Trace(r trace.Record) {
	if r.State == autotune.StateIdle {
		return
	}

	c.mu.Lock()
	if c.current == nil || c.current.Number != r.Cycle {
		c.current = &Cycle{Number: r.Cycle}
	}
	c.current.Records = append(c.current.Records, r)

	var done *Cycle
	switch r.State {
	case autotune.StateMatched, autotune.StateBestEffort, autotune.StateAborted:
		done = c.current
		c.current = nil
	}
	c.mu.Unlock()

	if done != nil && c.onDone != nil {
		c.onDone(*done)
	}
}
