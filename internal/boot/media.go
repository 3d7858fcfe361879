package boot

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/tinysoc/bootmon/internal/devices/flash"
	"github.com/tinysoc/bootmon/internal/devices/poll"
)

// Serial flashing protocol framing. The monitor announces readiness with the
// request string; a loader on the far end answers with the acknowledgement
// before streaming the image.
const (
	serialMagicReq = "sL5DdSMmkekro\n"
	serialMagicAck = "z6IHG7cYDID6o\n"
)

// SerialPort is the byte I/O the serial medium needs from the UART.
type SerialPort interface {
	io.Writer
	TryReadByte() (byte, bool)
}

// Loader completes a serial transfer once the far end has acknowledged. It
// is the external line-protocol collaborator; the medium only handles the
// handshake window.
type Loader interface {
	Load(ctx context.Context) (Handoff, error)
}

// SerialMedium waits for a loader on the serial line.
type SerialMedium struct {
	Port   SerialPort
	Loader Loader
	// Window bounds the handshake poll; zero selects a default.
	Window int
}

// Name implements Medium.
func (s *SerialMedium) Name() string { return "serial" }

// Boot implements Medium. No acknowledgement within the window is the
// ErrNoTransfer outcome; the chain moves on.
func (s *SerialMedium) Boot(ctx context.Context) (Handoff, error) {
	if _, err := io.WriteString(s.Port, serialMagicReq); err != nil {
		return Handoff{}, fmt.Errorf("send magic: %w", err)
	}
	matched := 0
	err := poll.Wait(s.Window, func() bool {
		for {
			b, ok := s.Port.TryReadByte()
			if !ok {
				return false
			}
			if b == serialMagicAck[matched] {
				matched++
				if matched == len(serialMagicAck) {
					return true
				}
			} else {
				matched = 0
			}
		}
	})
	if err != nil {
		return Handoff{}, ErrNoTransfer
	}
	return s.Loader.Load(ctx)
}

// Memory is the copy target for media that load an image into RAM.
type Memory interface {
	ReadWord(addr uint32) uint32
	WriteByte(addr uint32, v byte)
}

// FlashMedium boots the image stored in flash: a length word and a CRC-32
// word at the boot offset, then the payload.
type FlashMedium struct {
	Flash    *flash.Flash
	Offset   uint32
	Dest     Memory
	LoadAddr uint32
}

// Name implements Medium.
func (f *FlashMedium) Name() string { return "flash" }

// Boot implements Medium.
func (f *FlashMedium) Boot(ctx context.Context) (Handoff, error) {
	length := f.Flash.ReadWord(f.Offset)
	if length == 0xFFFFFFFF || length == 0 {
		return Handoff{}, errors.New("no image in flash")
	}
	if uint64(f.Offset)+8+uint64(length) > uint64(f.Flash.Size()) {
		return Handoff{}, fmt.Errorf("image length %#x exceeds flash", length)
	}
	want := f.Flash.ReadWord(f.Offset + 4)

	payload := make([]byte, length)
	for i := uint32(0); i < length; i++ {
		payload[i] = f.Flash.ReadByte(f.Offset + 8 + i)
	}
	if got := crc32.ChecksumIEEE(payload); got != want {
		return Handoff{}, fmt.Errorf("image CRC mismatch (expected %08x, got %08x)", want, got)
	}
	for i, b := range payload {
		f.Dest.WriteByte(f.LoadAddr+uint32(i), b)
	}
	return Handoff{Addr: f.LoadAddr}, nil
}

// SealImage produces the flash image layout Boot expects.
func SealImage(payload []byte) []byte {
	out := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint32(out, uint32(len(payload)))
	binary.LittleEndian.PutUint32(out[4:], crc32.ChecksumIEEE(payload))
	copy(out[8:], payload)
	return out
}

// ROMMedium boots a resident image at a fixed address.
type ROMMedium struct {
	Mem  Memory
	Addr uint32
}

// Name implements Medium.
func (r *ROMMedium) Name() string { return "rom" }

// Boot implements Medium. An erased or zeroed first word means no image is
// resident.
func (r *ROMMedium) Boot(ctx context.Context) (Handoff, error) {
	if v := r.Mem.ReadWord(r.Addr); v == 0xFFFFFFFF || v == 0 {
		return Handoff{}, errors.New("no resident image")
	}
	return Handoff{Addr: r.Addr}, nil
}

// ImageFetcher is the opaque blocking network collaborator behind netboot.
type ImageFetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// NetMedium downloads an image over the network transport and loads it.
type NetMedium struct {
	Fetcher  ImageFetcher
	Dest     Memory
	LoadAddr uint32
}

// Name implements Medium.
func (n *NetMedium) Name() string { return "network" }

// Boot implements Medium.
func (n *NetMedium) Boot(ctx context.Context) (Handoff, error) {
	img, err := n.Fetcher.Fetch(ctx)
	if err != nil {
		return Handoff{}, fmt.Errorf("fetch image: %w", err)
	}
	if len(img) == 0 {
		return Handoff{}, errors.New("empty image")
	}
	for i, b := range img {
		n.Dest.WriteByte(n.LoadAddr+uint32(i), b)
	}
	return Handoff{Addr: n.LoadAddr}, nil
}
