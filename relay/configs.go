package relay

import "time"

// Config describes the relay banks and their timing
type Config struct {
	LBits int
	CBits int
	// LWired and CWired are masks of the physically wired bits. Zero means all bits are wired.
	LWired uint16
	CWired uint16
	// Settle is how long the driver blocks after every actuation before a reading can be trusted
	Settle time.Duration
}

// DefaultConfig is a pair of fully wired 9-bit banks with a 20ms settle delay
func DefaultConfig() Config {
	return Config{
		LBits:  9,
		CBits:  9,
		Settle: 20 * time.Millisecond,
	}
}

// Banks returns the L and C banks described by the config
func (c Config) Banks() (Bank, Bank) {
	return NewBank(c.LBits, c.LWired), NewBank(c.CBits, c.CWired)
}
