// Package flash models a SPI NOR array: reads are memory-mapped, writes go
// through erase/program cycles. Program can only clear bits; only an erase
// sets them. This is the programmed-write strategy behind the fw and fe
// commands and the flash boot medium.
package flash

import (
	"encoding/binary"
	"fmt"

	"github.com/tinysoc/bootmon/internal/devices/poll"
)

const (
	// SectorSize is the erase granule.
	SectorSize = 4096
	// PageSize is the largest single program operation.
	PageSize = 256
)

// Flash is a NOR array. The zero value is unusable; use New.
type Flash struct {
	data []byte

	// busyProbe, when set, replaces the real status check. Tests use it to
	// simulate a device that never returns to idle.
	busyProbe func() bool
	pollBound int

	busy bool
}

// New returns an erased (all-0xFF) array of the given size. Size must be a
// positive multiple of the sector size.
func New(size uint32) (*Flash, error) {
	if size == 0 || size%SectorSize != 0 {
		return nil, fmt.Errorf("flash: size %#x is not a positive multiple of %d", size, SectorSize)
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = 0xFF
	}
	return &Flash{data: data}, nil
}

// Size returns the array size in bytes.
func (f *Flash) Size() uint32 { return uint32(len(f.data)) }

// SetPollBound caps busy-wait iterations. Zero selects the default bound.
func (f *Flash) SetPollBound(bound int) { f.pollBound = bound }

// SetBusyProbe overrides the idle check; nil restores the real one.
func (f *Flash) SetBusyProbe(probe func() bool) { f.busyProbe = probe }

func (f *Flash) waitIdle() error {
	ready := func() bool { return !f.busy }
	if f.busyProbe != nil {
		ready = func() bool { return !f.busyProbe() }
	}
	if err := poll.Wait(f.pollBound, ready); err != nil {
		return fmt.Errorf("flash: %w", err)
	}
	return nil
}

// Program writes data at off, page by page, clearing bits only. Programming
// past the end of the array is an error; programming a 1 bit over a 0 bit is
// silently ineffective, exactly as on hardware.
func (f *Flash) Program(off uint32, data []byte) error {
	if uint64(off)+uint64(len(data)) > uint64(len(f.data)) {
		return fmt.Errorf("flash: program [%#x, %#x) past end of %#x array", off, off+uint32(len(data)), len(f.data))
	}
	for len(data) > 0 {
		if err := f.waitIdle(); err != nil {
			return err
		}
		n := PageSize - int(off%PageSize)
		if n > len(data) {
			n = len(data)
		}
		for i := 0; i < n; i++ {
			f.data[off+uint32(i)] &= data[i]
		}
		off += uint32(n)
		data = data[n:]
	}
	return nil
}

// EraseSector resets the sector containing off to 0xFF.
func (f *Flash) EraseSector(off uint32) error {
	if off >= uint32(len(f.data)) {
		return fmt.Errorf("flash: erase at %#x past end of %#x array", off, len(f.data))
	}
	if err := f.waitIdle(); err != nil {
		return err
	}
	base := off &^ (SectorSize - 1)
	for i := uint32(0); i < SectorSize; i++ {
		f.data[base+i] = 0xFF
	}
	return nil
}

// EraseAll resets the whole array.
func (f *Flash) EraseAll() error {
	for off := uint32(0); off < uint32(len(f.data)); off += SectorSize {
		if err := f.EraseSector(off); err != nil {
			return err
		}
	}
	return nil
}

// ReadByte implements bus.Memory for the memory-mapped read window.
func (f *Flash) ReadByte(addr uint32) byte {
	if addr >= uint32(len(f.data)) {
		return 0xFF
	}
	return f.data[addr]
}

// WriteByte implements bus.Memory. Direct stores do not reach NOR cells.
func (f *Flash) WriteByte(addr uint32, v byte) {}

// ReadWord implements bus.Memory.
func (f *Flash) ReadWord(addr uint32) uint32 {
	if addr+4 > uint32(len(f.data)) || addr+4 < addr {
		return 0xFFFFFFFF
	}
	return binary.LittleEndian.Uint32(f.data[addr:])
}

// WriteWord implements bus.Memory. Direct stores do not reach NOR cells.
func (f *Flash) WriteWord(addr uint32, v uint32) {}

// Programmer adapts the array to the bus.Memory shape with word writes
// routed through the program cycle, so the generic address-space operations
// can drive flash uniformly.
type Programmer struct {
	*Flash
	// Err records the first program failure; sticky until cleared.
	Err error
}

// NewProgrammer wraps f.
func NewProgrammer(f *Flash) *Programmer {
	return &Programmer{Flash: f}
}

// WriteWord programs one little-endian word at addr.
func (p *Programmer) WriteWord(addr uint32, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	if err := p.Program(addr, buf[:]); err != nil && p.Err == nil {
		p.Err = err
	}
}

// WriteByte programs one byte at addr.
func (p *Programmer) WriteByte(addr uint32, v byte) {
	if err := p.Program(addr, []byte{v}); err != nil && p.Err == nil {
		p.Err = err
	}
}
