// Package memspace implements the generic address-space operations: dump,
// fill, patch, copy, and checksum over any bus.Memory. The same operations
// drive RAM inspection, flash programming (through a programmed-write
// backend), and bus-addressed registers; none of them bounds-check the target
// range, the backing Memory decides what an out-of-range access does.
package memspace

import (
	"fmt"
	"hash/crc32"
	"io"
)

const bytesPerLine = 16

// Dump writes a hex+ASCII dump of count bytes starting at addr, sixteen
// bytes per line. Non-printable bytes render as '.'.
func Dump(w io.Writer, mem Memory, addr, count uint32) {
	fmt.Fprint(w, "Memory dump:")
	for count > 0 {
		line := count
		if line > bytesPerLine {
			line = bytesPerLine
		}
		fmt.Fprintf(w, "\n0x%08x  ", addr)
		var i uint32
		for i = 0; i < line; i++ {
			fmt.Fprintf(w, "%02x ", mem.ReadByte(addr+i))
		}
		for ; i < bytesPerLine; i++ {
			fmt.Fprint(w, "   ")
		}
		fmt.Fprint(w, " ")
		for i = 0; i < line; i++ {
			b := mem.ReadByte(addr + i)
			if b < 0x20 || b > 0x7e {
				fmt.Fprint(w, ".")
			} else {
				fmt.Fprintf(w, "%c", b)
			}
		}
		addr += line
		count -= line
	}
	fmt.Fprint(w, "\n")
}

// Memory is the minimal access surface the operations need. It matches
// bus.Memory so any bus, device, or write-strategy adapter fits.
type Memory interface {
	ReadByte(addr uint32) byte
	WriteByte(addr uint32, v byte)
	ReadWord(addr uint32) uint32
	WriteWord(addr uint32, v uint32)
}

// Fill stores value into count consecutive words starting at addr.
func Fill(mem Memory, addr, value, count uint32) {
	for i := uint32(0); i < count; i++ {
		mem.WriteWord(addr+4*i, value)
	}
}

// FillIncrementing stores value+i into word i.
func FillIncrementing(mem Memory, addr, value, count uint32) {
	for i := uint32(0); i < count; i++ {
		mem.WriteWord(addr+4*i, value+i)
	}
}

// FillAddress stores value plus the word's own byte address into each word.
// Seeds patterns where every word is tied to its location.
func FillAddress(mem Memory, addr, value, count uint32) {
	for i := uint32(0); i < count; i++ {
		a := addr + 4*i
		mem.WriteWord(a, value+a)
	}
}

// ModifyAddShift replaces each word with (old<<16)+value+i.
func ModifyAddShift(mem Memory, addr, value, count uint32) {
	for i := uint32(0); i < count; i++ {
		a := addr + 4*i
		mem.WriteWord(a, (mem.ReadWord(a)<<16)+value+i)
	}
}

// ModifyAdd adds value to each word in place.
func ModifyAdd(mem Memory, addr, value, count uint32) {
	for i := uint32(0); i < count; i++ {
		a := addr + 4*i
		mem.WriteWord(a, mem.ReadWord(a)+value)
	}
}

// Copy copies count words from src to dst. Overlapping ranges are the
// caller's problem, exactly as with the hardware monitor.
func Copy(mem Memory, dst, src, count uint32) {
	for i := uint32(0); i < count; i++ {
		mem.WriteWord(dst+4*i, mem.ReadWord(src+4*i))
	}
}

// Checksum computes the CRC-32 (IEEE polynomial, byte at a time) of length
// bytes starting at addr.
func Checksum(mem Memory, addr, length uint32) uint32 {
	var buf [256]byte
	crc := uint32(0)
	for length > 0 {
		n := uint32(len(buf))
		if n > length {
			n = length
		}
		for i := uint32(0); i < n; i++ {
			buf[i] = mem.ReadByte(addr + i)
		}
		crc = crc32.Update(crc, crc32.IEEETable, buf[:n])
		addr += n
		length -= n
	}
	return crc
}
