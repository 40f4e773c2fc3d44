// Package input turns raw button readings into debounced press events.
package input

import (
	"sync"
	"time"

	"github.com/calvinmclean/autotune"
)

// Source produces debounced events. Poll never blocks; it reports false when nothing happened.
type Source interface {
	Poll() (autotune.Event, bool)
}

// Merge polls several sources in order and returns the first event found
func Merge(sources ...Source) Source {
	return merged(sources)
}

type merged []Source

func (m merged) Poll() (autotune.Event, bool) {
	for _, s := range m {
		if s == nil {
			continue
		}
		if e, ok := s.Poll(); ok {
			return e, true
		}
	}
	return autotune.Event{}, false
}

// Queue is a Source fed by Push. It is safe to push from other goroutines, such as UI callbacks.
type Queue struct {
	mu     sync.Mutex
	events []autotune.Event
}

// NewQueue creates an empty Queue
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends an event
func (q *Queue) Push(e autotune.Event) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()
}

// Poll removes and returns the oldest event
func (q *Queue) Poll() (autotune.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return autotune.Event{}, false
	}
	e := q.events[0]
	q.events = q.events[1:]
	return e, true
}

// debouncer accepts a raw identity once it has been stable for the debounce time. Identity 0 is
// "nothing pressed". A long press fires once while held; releasing before that fires a short press.
type debouncer struct {
	debounce  time.Duration
	longPress time.Duration

	raw       int
	rawSince  time.Time
	stable    int
	pressedAt time.Time
	longSent  bool
}

func (d *debouncer) update(now time.Time, raw int) (int, autotune.Press, bool) {
	if raw != d.raw {
		d.raw = raw
		d.rawSince = now
		return 0, 0, false
	}

	if raw != d.stable {
		if now.Sub(d.rawSince) < d.debounce {
			return 0, 0, false
		}
		prev, wasLong := d.stable, d.longSent
		d.stable = raw
		d.pressedAt = now
		d.longSent = false
		if prev != 0 && !wasLong {
			return prev, autotune.ShortPress, true
		}
		return 0, 0, false
	}

	if d.stable != 0 && !d.longSent && now.Sub(d.pressedAt) >= d.longPress {
		d.longSent = true
		return d.stable, autotune.LongPress, true
	}
	return 0, 0, false
}
