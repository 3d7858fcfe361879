package bus

import "encoding/binary"

// RAM is a direct-store byte array back-end.
type RAM struct {
	data []byte
}

// NewRAM allocates size bytes of zeroed storage.
func NewRAM(size uint32) *RAM {
	return &RAM{data: make([]byte, size)}
}

// NewRAMFrom wraps an existing byte slice without copying. The caller keeps
// visibility into later mutations, which is how the resident image region is
// shared with the integrity check.
func NewRAMFrom(data []byte) *RAM {
	return &RAM{data: data}
}

// Size returns the backing store length in bytes.
func (r *RAM) Size() uint32 { return uint32(len(r.data)) }

// Bytes exposes the backing store.
func (r *RAM) Bytes() []byte { return r.data }

// ReadByte implements Memory.
func (r *RAM) ReadByte(addr uint32) byte {
	if addr >= uint32(len(r.data)) {
		return 0xFF
	}
	return r.data[addr]
}

// WriteByte implements Memory.
func (r *RAM) WriteByte(addr uint32, v byte) {
	if addr >= uint32(len(r.data)) {
		return
	}
	r.data[addr] = v
}

// ReadWord implements Memory.
func (r *RAM) ReadWord(addr uint32) uint32 {
	if addr+4 > uint32(len(r.data)) || addr+4 < addr {
		return 0xFFFFFFFF
	}
	return binary.LittleEndian.Uint32(r.data[addr:])
}

// WriteWord implements Memory.
func (r *RAM) WriteWord(addr uint32, v uint32) {
	if addr+4 > uint32(len(r.data)) || addr+4 < addr {
		return
	}
	binary.LittleEndian.PutUint32(r.data[addr:], v)
}
