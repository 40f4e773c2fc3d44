package search

import (
	"github.com/calvinmclean/autotune"
	"github.com/calvinmclean/autotune/relay"
)

// Window is a rectangle of achievable (L, C) indices around a center. At the edges of the index
// space it slides inward rather than shrinking, so it keeps its size whenever the banks have
// enough achievable values.
type Window struct {
	Center autotune.RelayConfig
	L      []uint16
	C      []uint16
}

// NewWindow builds a width x height window around center
func NewWindow(center autotune.RelayConfig, width, height int, l, c relay.Bank) Window {
	return Window{
		Center: center,
		L:      axis(l, center.L, width),
		C:      axis(c, center.C, height),
	}
}

// Size is the number of configurations in the window
func (w Window) Size() int {
	return len(w.L) * len(w.C)
}

// Points lists the window in serpentine order, so consecutive points differ by one relay step
func (w Window) Points() []autotune.RelayConfig {
	points := make([]autotune.RelayConfig, 0, w.Size())
	for i, l := range w.L {
		for j := range w.C {
			k := j
			if i%2 == 1 {
				k = len(w.C) - 1 - j
			}
			points = append(points, autotune.RelayConfig{L: l, C: w.C[k], Topology: w.Center.Topology})
		}
	}
	return points
}

func axis(b relay.Bank, center uint16, size int) []uint16 {
	if size < 1 {
		size = 1
	}
	if !b.Valid(center) {
		center = b.Prev(center, 1)
	}

	values := []uint16{b.Prev(center, size/2)}
	for len(values) < size {
		last := values[len(values)-1]
		next := b.Next(last, 1)
		if next == last {
			break
		}
		values = append(values, next)
	}

	// top edge: extend downward instead
	for len(values) < size {
		first := values[0]
		prev := b.Prev(first, 1)
		if prev == first {
			break
		}
		values = append([]uint16{prev}, values...)
	}

	return values
}
