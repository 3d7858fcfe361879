package bus

import "testing"

func TestRAMWordsAreLittleEndian(t *testing.T) {
	r := NewRAM(16)
	r.WriteWord(4, 0x11223344)
	if got := r.ReadByte(4); got != 0x44 {
		t.Fatalf("low byte = %#02x, want 0x44", got)
	}
	if got := r.ReadByte(7); got != 0x11 {
		t.Fatalf("high byte = %#02x, want 0x11", got)
	}
	if got := r.ReadWord(4); got != 0x11223344 {
		t.Fatalf("word = %#08x, want 0x11223344", got)
	}
}

func TestMapRejectsOverlap(t *testing.T) {
	b := New()
	if err := b.Map(Region{Name: "sram", Base: 0x1000, Size: 0x1000, Mode: Read | Write}, NewRAM(0x1000)); err != nil {
		t.Fatalf("map sram: %v", err)
	}
	err := b.Map(Region{Name: "rom", Base: 0x1800, Size: 0x1000, Mode: Read}, NewRAM(0x1000))
	if err == nil {
		t.Fatalf("expected overlap error, got nil")
	}
}

func TestMapRejectsWrapAndZeroSize(t *testing.T) {
	b := New()
	if err := b.Map(Region{Name: "wrap", Base: 0xFFFFF000, Size: 0x2000, Mode: Read}, NewRAM(0x2000)); err == nil {
		t.Fatalf("expected wrap error, got nil")
	}
	if err := b.Map(Region{Name: "empty", Base: 0, Size: 0, Mode: Read}, NewRAM(4)); err == nil {
		t.Fatalf("expected zero-size error, got nil")
	}
}

func TestBusRoutesToWindowRelativeOffsets(t *testing.T) {
	b := New()
	ram := NewRAM(0x100)
	if err := b.Map(Region{Name: "sram", Base: 0x40000000, Size: 0x100, Mode: Read | Write}, ram); err != nil {
		t.Fatalf("map: %v", err)
	}
	b.WriteWord(0x40000010, 0xdeadbeef)
	if got := ram.ReadWord(0x10); got != 0xdeadbeef {
		t.Fatalf("backend word = %#08x, want 0xdeadbeef", got)
	}
	if got := b.ReadWord(0x40000010); got != 0xdeadbeef {
		t.Fatalf("bus word = %#08x, want 0xdeadbeef", got)
	}
}

func TestOpenBusPolicy(t *testing.T) {
	b := New()
	if got := b.ReadWord(0x12345678); got != 0xFFFFFFFF {
		t.Fatalf("open-bus read = %#08x, want 0xFFFFFFFF", got)
	}
	b.WriteWord(0x12345678, 1)
	if got := b.Faults(); got != 2 {
		t.Fatalf("faults = %d, want 2", got)
	}
}

func TestReadOnlyRegionDropsWrites(t *testing.T) {
	b := New()
	rom := NewRAM(0x10)
	rom.WriteWord(0, 0x600df00d)
	if err := b.Map(Region{Name: "rom", Base: 0, Size: 0x10, Mode: Read | Execute}, rom); err != nil {
		t.Fatalf("map: %v", err)
	}
	b.WriteWord(0, 0)
	if got := b.ReadWord(0); got != 0x600df00d {
		t.Fatalf("rom word = %#08x, want unchanged 0x600df00d", got)
	}
	if b.Faults() != 1 {
		t.Fatalf("faults = %d, want 1", b.Faults())
	}
}

func TestAccessModeString(t *testing.T) {
	if got := (Read | Write).String(); got != "rw-" {
		t.Fatalf("mode string = %q, want \"rw-\"", got)
	}
	if got := (Read | Execute).String(); got != "r-x" {
		t.Fatalf("mode string = %q, want \"r-x\"", got)
	}
}
