package relay

// MaxBankBits is the widest relay bank a single chain can address
const MaxBankBits = 16

// Bank describes one binary-weighted relay bank. Bit i switches a component contributing 2^i
// units. Not every bit has to be wired: an index is achievable only when all of its set bits
// are wired.
type Bank struct {
	bits int
	mask uint16
}

// NewBank creates a bank of the given width. A zero wired mask means every bit is wired.
func NewBank(bits int, wired uint16) Bank {
	if bits < 0 {
		bits = 0
	}
	if bits > MaxBankBits {
		bits = MaxBankBits
	}
	full := uint16((uint32(1) << bits) - 1)
	if wired == 0 {
		wired = full
	}
	return Bank{bits: bits, mask: wired & full}
}

// Bits is the number of relay bits on the bank
func (b Bank) Bits() int {
	return b.bits
}

// Wired returns the mask of physically wired bits
func (b Bank) Wired() uint16 {
	return b.mask
}

// Steps is the size of the index space, 2^bits
func (b Bank) Steps() int {
	return 1 << b.bits
}

// Max is the largest achievable index
func (b Bank) Max() uint16 {
	return b.mask
}

// Valid reports whether idx can be produced by the wired relays
func (b Bank) Valid(idx uint16) bool {
	return int(idx) < b.Steps() && idx&^b.mask == 0
}

// Weights returns the wired bit weights from most to least significant
func (b Bank) Weights() []uint16 {
	weights := make([]uint16, 0, b.bits)
	for i := b.bits - 1; i >= 0; i-- {
		w := uint16(1) << i
		if b.mask&w != 0 {
			weights = append(weights, w)
		}
	}
	return weights
}

// Next returns the achievable index n steps above idx, stopping at Max
func (b Bank) Next(idx uint16, n int) uint16 {
	for ; n > 0; n-- {
		next, ok := b.above(idx)
		if !ok {
			break
		}
		idx = next
	}
	return idx
}

// Prev returns the achievable index n steps below idx, stopping at zero
func (b Bank) Prev(idx uint16, n int) uint16 {
	for ; n > 0; n-- {
		prev, ok := b.below(idx)
		if !ok {
			break
		}
		idx = prev
	}
	return idx
}

func (b Bank) above(idx uint16) (uint16, bool) {
	for i := int(idx) + 1; i < b.Steps(); i++ {
		if b.Valid(uint16(i)) {
			return uint16(i), true
		}
	}
	return idx, false
}

func (b Bank) below(idx uint16) (uint16, bool) {
	for i := int(idx) - 1; i >= 0; i-- {
		if b.Valid(uint16(i)) {
			return uint16(i), true
		}
	}
	return idx, false
}
