package sim

import (
	"hash/fnv"
	"math"

	"github.com/calvinmclean/autotune"
)

// Bowl is a single global minimum at center: gamma grows linearly with the Euclidean distance
// from it and saturates at ceiling. The other topology is offset by mismatch.
func Bowl(center autotune.RelayConfig, floor, slope, ceiling float64) Surface {
	return func(rc autotune.RelayConfig) float64 {
		dl := float64(rc.L) - float64(center.L)
		dc := float64(rc.C) - float64(center.C)
		g := floor + slope*math.Hypot(dl, dc)
		if rc.Topology != center.Topology {
			g += 0.5
		}
		return math.Min(g, ceiling)
	}
}

// DefaultBowl is a well behaved antenna matched at center
func DefaultBowl(center autotune.RelayConfig) Surface {
	return Bowl(center, 0.02, 0.02, 0.9)
}

// Rough adds deterministic per-configuration ripple to a surface, modelling component
// tolerances and parasitic coupling that make relay contributions non-monotonic
func Rough(base Surface, amplitude float64, seed uint64) Surface {
	return func(rc autotune.RelayConfig) float64 {
		h := fnv.New64a()
		var buf [13]byte
		buf[0], buf[1] = byte(rc.L), byte(rc.L>>8)
		buf[2], buf[3] = byte(rc.C), byte(rc.C>>8)
		buf[4] = byte(rc.Topology)
		for i := range 8 {
			buf[5+i] = byte(seed >> (8 * i))
		}
		_, _ = h.Write(buf[:])
		ripple := float64(h.Sum64()%10000)/10000*2 - 1
		return math.Max(0, base(rc)+ripple*amplitude)
	}
}

// Flat is an antenna that no setting can match
func Flat(gamma float64) Surface {
	return func(autotune.RelayConfig) float64 { return gamma }
}
