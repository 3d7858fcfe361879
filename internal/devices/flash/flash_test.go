package flash

import (
	"errors"
	"testing"

	"github.com/tinysoc/bootmon/internal/devices/poll"
)

func TestNewRequiresSectorMultiple(t *testing.T) {
	if _, err := New(SectorSize + 1); err == nil {
		t.Fatalf("expected size error")
	}
	if _, err := New(0); err == nil {
		t.Fatalf("expected zero-size error")
	}
}

func TestProgramClearsBitsOnly(t *testing.T) {
	f, err := New(SectorSize)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := f.Program(0, []byte{0x0F}); err != nil {
		t.Fatalf("program: %v", err)
	}
	if got := f.ReadByte(0); got != 0x0F {
		t.Fatalf("byte = %#02x, want 0x0F", got)
	}
	// Reprogramming with set bits cannot raise cleared ones.
	if err := f.Program(0, []byte{0xF0}); err != nil {
		t.Fatalf("program: %v", err)
	}
	if got := f.ReadByte(0); got != 0x00 {
		t.Fatalf("byte = %#02x, want 0x00 after AND program", got)
	}
}

func TestEraseSectorRestoresFF(t *testing.T) {
	f, err := New(2 * SectorSize)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := f.Program(SectorSize+10, []byte{0x00}); err != nil {
		t.Fatalf("program: %v", err)
	}
	if err := f.EraseSector(SectorSize + 10); err != nil {
		t.Fatalf("erase: %v", err)
	}
	if got := f.ReadByte(SectorSize + 10); got != 0xFF {
		t.Fatalf("byte = %#02x, want 0xFF after erase", got)
	}
}

func TestDirectStoresDoNotReachCells(t *testing.T) {
	f, err := New(SectorSize)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	f.WriteWord(0, 0x12345678)
	if got := f.ReadWord(0); got != 0xFFFFFFFF {
		t.Fatalf("word = %#08x, want erased 0xFFFFFFFF", got)
	}
}

func TestProgrammerWordCycle(t *testing.T) {
	f, err := New(SectorSize)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	p := NewProgrammer(f)
	p.WriteWord(8, 0xcafef00d)
	if p.Err != nil {
		t.Fatalf("program: %v", p.Err)
	}
	if got := f.ReadWord(8); got != 0xcafef00d {
		t.Fatalf("word = %#08x, want 0xcafef00d", got)
	}
}

func TestProgramCrossesPageBoundary(t *testing.T) {
	f, err := New(SectorSize)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	data := make([]byte, PageSize+8)
	for i := range data {
		data[i] = byte(i)
	}
	if err := f.Program(PageSize-4, data); err != nil {
		t.Fatalf("program: %v", err)
	}
	for i := range data {
		if got := f.ReadByte(PageSize - 4 + uint32(i)); got != byte(i) {
			t.Fatalf("byte %d = %#02x, want %#02x", i, got, byte(i))
		}
	}
}

func TestStuckDeviceReportsTimeout(t *testing.T) {
	f, err := New(SectorSize)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	f.SetPollBound(16)
	f.SetBusyProbe(func() bool { return true })
	err = f.Program(0, []byte{0})
	if !errors.Is(err, poll.ErrDeviceTimeout) {
		t.Fatalf("program error = %v, want ErrDeviceTimeout", err)
	}
}
