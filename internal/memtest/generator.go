package memtest

// Mode selects how a generator advances.
type Mode int

const (
	// Increment walks values sequentially; useful when a failure dump
	// should be readable.
	Increment Mode = iota
	// PseudoRandom uses the linear congruential step.
	PseudoRandom
)

// nextData32 advances the 32-bit data generator one step.
func nextData32(s uint32, mode Mode) uint32 {
	if mode == PseudoRandom {
		return 1664525*s + 1013904223
	}
	return s + 1
}

// nextLFSR16 advances the 16-bit address generator. Taps 16, 14, 13, 11:
// the maximal-length polynomial x^16 + x^14 + x^13 + x^11 + 1, so the walk
// visits every nonzero 16-bit state exactly once per period.
func nextLFSR16(s uint16) uint16 {
	bit := (s ^ (s >> 2) ^ (s >> 3) ^ (s >> 5)) & 1
	return (s >> 1) | (bit << 15)
}

// lfsrSeed maps an arbitrary seed onto a valid LFSR state. Zero is the one
// degenerate state, so it is remapped to a fixed nonzero constant.
func lfsrSeed(seed uint32) uint16 {
	s := uint16(seed)
	if s == 0 {
		return 0xACE1
	}
	return s
}
