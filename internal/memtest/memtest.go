// Package memtest detects two independent classes of memory fault over a
// test region: corrupted data storage (data test, 32-bit LCG pattern) and
// corrupted address decoding (address test, 16-bit LFSR permutation). Both
// tests always complete their full scan; mismatches are counted, never
// fatal.
package memtest

import (
	"fmt"
	"io"
)

const (
	// DefaultDataSize is the data-test region length in bytes.
	DefaultDataSize = 16 << 20
	// AddrWindowSize is the address-test window length in bytes: one
	// 32-bit word per nonzero 16-bit LFSR state, plus the untouched word
	// zero.
	AddrWindowSize = 4 << 16

	addrIterations = 1<<16 - 1

	// progressStep is how many words pass between progress marks.
	progressStep = 512 * 1024
)

// Memory is the word-level access the tests need.
type Memory interface {
	ReadWord(addr uint32) uint32
	WriteWord(addr uint32, v uint32)
}

// CacheFlusher forces the next reads to come from the backing store instead
// of a cache. Plain simulated RAM uses NopFlusher.
type CacheFlusher interface {
	Flush()
}

// NopFlusher is a CacheFlusher for uncached memory.
type NopFlusher struct{}

// Flush implements CacheFlusher.
func (NopFlusher) Flush() {}

// Config describes a test region. The test region must be at least
// AddrWindowSize bytes and DataSize bytes long; the engine does not check,
// the backing Memory decides what out-of-range accesses do.
type Config struct {
	Mem      Memory
	Base     uint32
	DataSize uint32
	Flush    CacheFlusher
	Progress io.Writer
}

func (c Config) normalized() Config {
	if c.DataSize == 0 {
		c.DataSize = DefaultDataSize
	}
	if c.Flush == nil {
		c.Flush = NopFlusher{}
	}
	if c.Progress == nil {
		c.Progress = io.Discard
	}
	return c
}

// Report accumulates results across iterations.
type Report struct {
	Iterations int
	DataErrors int
	DataWords  uint32
	AddrErrors int
	AddrWords  uint32
}

// Passed reports whether no mismatch occurred in any iteration.
func (r Report) Passed() bool { return r.DataErrors == 0 && r.AddrErrors == 0 }

// DataTest fills the region with the pseudo-random word stream derived from
// seed, flushes, regenerates the same stream and compares word by word.
// Emits one '.' per large block written and one '*' per block verified.
// Returns the mismatch count and the number of words scanned.
func DataTest(cfg Config, seed uint32) (errors int, words uint32) {
	cfg = cfg.normalized()
	words = cfg.DataSize / 4

	s := seed
	for i := uint32(0); i < words; i++ {
		s = nextData32(s, PseudoRandom)
		cfg.Mem.WriteWord(cfg.Base+4*i, s)
		if i%progressStep == 0 {
			fmt.Fprint(cfg.Progress, ".")
		}
	}
	fmt.Fprint(cfg.Progress, "\n")

	cfg.Flush.Flush()

	s = seed
	for i := uint32(0); i < words; i++ {
		s = nextData32(s, PseudoRandom)
		if i%progressStep == 0 {
			fmt.Fprint(cfg.Progress, "*")
		}
		if cfg.Mem.ReadWord(cfg.Base+4*i) != s {
			errors++
		}
	}
	fmt.Fprint(cfg.Progress, "\n")

	return errors, words
}

// AddrTest walks the LFSR permutation of the address window, writing the
// iteration index at each permuted word, then regenerates the permutation
// and verifies. Every word is written exactly once at a pseudo-random
// offset with a value tied to iteration order, which separates decode
// faults from data faults.
func AddrTest(cfg Config, seed uint32) (errors int, words uint32) {
	cfg = cfg.normalized()
	words = addrIterations

	state := lfsrSeed(seed)
	for i := uint32(0); i < words; i++ {
		cfg.Mem.WriteWord(cfg.Base+4*uint32(state), i)
		state = nextLFSR16(state)
	}

	cfg.Flush.Flush()

	state = lfsrSeed(seed)
	for i := uint32(0); i < words; i++ {
		if cfg.Mem.ReadWord(cfg.Base+4*uint32(state)) != i {
			errors++
		}
		state = nextLFSR16(state)
	}

	return errors, words
}

// Run executes iterations of the data and address tests. The caller owns
// the seed counter: the data test of iteration k consumes seed+2k, the
// address test seed+2k+1, and the advanced counter comes back to the caller
// so successive invocations never repeat a pattern yet stay reproducible.
// Per-subtest failures are reported to cfg.Progress as they happen.
func Run(cfg Config, seed uint32, iterations int) (Report, uint32) {
	cfg = cfg.normalized()
	if iterations < 1 {
		iterations = 1
	}

	var r Report
	for i := 0; i < iterations; i++ {
		dataErrors, dataWords := DataTest(cfg, seed)
		seed++
		if dataErrors != 0 {
			fmt.Fprintf(cfg.Progress, "Memtest data failed: %d/%d errors\n", dataErrors, dataWords)
		}

		addrErrors, addrWords := AddrTest(cfg, seed)
		seed++
		if addrErrors != 0 {
			fmt.Fprintf(cfg.Progress, "Memtest addr failed: %d/%d errors\n", addrErrors, addrWords)
		}

		r.Iterations++
		r.DataErrors += dataErrors
		r.DataWords += dataWords
		r.AddrErrors += addrErrors
		r.AddrWords += addrWords
	}
	return r, seed
}
