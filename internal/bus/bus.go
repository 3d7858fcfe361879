// Package bus models the SoC's linear address space: RAM windows,
// memory-mapped peripherals, and the fault policy for accesses that hit
// no mapped window. Addresses are 32-bit and words are little-endian.
package bus

import (
	"fmt"
	"sort"
)

// AccessMode describes which accesses a region admits.
type AccessMode uint8

const (
	Read AccessMode = 1 << iota
	Write
	Execute
)

func (m AccessMode) String() string {
	buf := []byte("---")
	if m&Read != 0 {
		buf[0] = 'r'
	}
	if m&Write != 0 {
		buf[1] = 'w'
	}
	if m&Execute != 0 {
		buf[2] = 'x'
	}
	return string(buf)
}

// WriteStrategy distinguishes storage that accepts plain stores from storage
// that needs an erase/program cycle (NOR flash).
type WriteStrategy uint8

const (
	DirectStore WriteStrategy = iota
	ProgrammedWrite
)

// Memory is the hardware-abstraction surface the monitor borrows access
// through. Implementations decide what an out-of-range or read-only access
// does; the monitor itself performs no bounds checking.
type Memory interface {
	ReadByte(addr uint32) byte
	WriteByte(addr uint32, v byte)
	ReadWord(addr uint32) uint32
	WriteWord(addr uint32, v uint32)
}

// Region is a contiguous addressable window.
type Region struct {
	Name     string
	Base     uint32
	Size     uint32
	Mode     AccessMode
	Strategy WriteStrategy
}

// End returns the first address past the region.
func (r Region) End() uint32 { return r.Base + r.Size }

func (r Region) contains(addr uint32) bool {
	return addr >= r.Base && addr-r.Base < r.Size
}

type mapping struct {
	region  Region
	backend Memory
}

// Bus routes absolute addresses to region back-ends. Back-ends see
// window-relative offsets starting at zero.
//
// Accesses outside every mapped window follow the open-bus policy: reads
// return 0xFF in every byte, writes are dropped, and a fault counter
// increments. This is the "platform-defined effect" of an out-of-range
// operator command; it keeps the interpreter alive.
type Bus struct {
	mappings []mapping
	faults   uint64
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}

// Map attaches a back-end to a region. Regions must not overlap and must not
// wrap the end of the address space.
func (b *Bus) Map(region Region, backend Memory) error {
	if region.Size == 0 {
		return fmt.Errorf("bus: cannot map zero-size region %q", region.Name)
	}
	if backend == nil {
		return fmt.Errorf("bus: nil backend for region %q", region.Name)
	}
	if region.Base+region.Size < region.Base {
		return fmt.Errorf("bus: region %q wraps the address space", region.Name)
	}
	for _, m := range b.mappings {
		if region.Base < m.region.End() && m.region.Base < region.End() {
			return fmt.Errorf("bus: region %q [0x%08x, 0x%08x) overlaps %q [0x%08x, 0x%08x)",
				region.Name, region.Base, region.End(),
				m.region.Name, m.region.Base, m.region.End())
		}
	}
	b.mappings = append(b.mappings, mapping{region: region, backend: backend})
	sort.Slice(b.mappings, func(i, j int) bool {
		return b.mappings[i].region.Base < b.mappings[j].region.Base
	})
	return nil
}

// Regions returns the mapped regions in ascending base order.
func (b *Bus) Regions() []Region {
	out := make([]Region, len(b.mappings))
	for i, m := range b.mappings {
		out[i] = m.region
	}
	return out
}

// Faults reports how many accesses hit open bus since creation.
func (b *Bus) Faults() uint64 { return b.faults }

func (b *Bus) lookup(addr uint32) (mapping, bool) {
	for _, m := range b.mappings {
		if m.region.contains(addr) {
			return m, true
		}
	}
	return mapping{}, false
}

// ReadByte implements Memory.
func (b *Bus) ReadByte(addr uint32) byte {
	m, ok := b.lookup(addr)
	if !ok {
		b.faults++
		return 0xFF
	}
	return m.backend.ReadByte(addr - m.region.Base)
}

// WriteByte implements Memory.
func (b *Bus) WriteByte(addr uint32, v byte) {
	m, ok := b.lookup(addr)
	if !ok || m.region.Mode&Write == 0 {
		b.faults++
		return
	}
	m.backend.WriteByte(addr-m.region.Base, v)
}

// ReadWord implements Memory. A word access that straddles a region boundary
// falls back to four byte accesses.
func (b *Bus) ReadWord(addr uint32) uint32 {
	m, ok := b.lookup(addr)
	if !ok {
		b.faults++
		return 0xFFFFFFFF
	}
	if !m.region.contains(addr + 3) {
		var v uint32
		for i := uint32(0); i < 4; i++ {
			v |= uint32(b.ReadByte(addr+i)) << (8 * i)
		}
		return v
	}
	return m.backend.ReadWord(addr - m.region.Base)
}

// WriteWord implements Memory.
func (b *Bus) WriteWord(addr uint32, v uint32) {
	m, ok := b.lookup(addr)
	if !ok || m.region.Mode&Write == 0 {
		b.faults++
		return
	}
	if !m.region.contains(addr + 3) {
		for i := uint32(0); i < 4; i++ {
			b.WriteByte(addr+i, byte(v>>(8*i)))
		}
		return
	}
	m.backend.WriteWord(addr-m.region.Base, v)
}
