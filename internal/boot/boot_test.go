package boot

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tinysoc/bootmon/internal/bus"
	"github.com/tinysoc/bootmon/internal/devices/flash"
)

// scriptedMedium records attempt order and plays back a fixed outcome.
type scriptedMedium struct {
	name  string
	h     Handoff
	err   error
	log   *[]string
	calls int
}

func (s *scriptedMedium) Name() string { return s.name }

func (s *scriptedMedium) Boot(ctx context.Context) (Handoff, error) {
	s.calls++
	*s.log = append(*s.log, s.name)
	return s.h, s.err
}

func TestFallbackOrderAndTerminalSuccess(t *testing.T) {
	var log []string
	serial := &scriptedMedium{name: "serial", err: ErrNoTransfer, log: &log}
	network := &scriptedMedium{name: "network", h: Handoff{Addr: 0x40000000, R1: 1}, log: &log}
	// flash and rom are absent from this configuration: not in the chain.

	var handed *Handoff
	o := NewOrchestrator(nil, func(h Handoff) { handed = &h }, serial, network)
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if strings.Join(log, ",") != "serial,network" {
		t.Fatalf("attempt order = %v, want serial then network", log)
	}
	if handed == nil || handed.Addr != 0x40000000 || handed.R1 != 1 {
		t.Fatalf("handoff = %+v, want addr 0x40000000 r1 1", handed)
	}
}

func TestNoMediumAfterFirstSuccess(t *testing.T) {
	var log []string
	first := &scriptedMedium{name: "serial", h: Handoff{Addr: 4}, log: &log}
	second := &scriptedMedium{name: "flash", log: &log}
	o := NewOrchestrator(nil, func(Handoff) {}, first, second)
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if second.calls != 0 {
		t.Fatalf("medium after success was attempted %d times", second.calls)
	}
}

func TestExhaustionReportsAndReturns(t *testing.T) {
	var log []string
	var out bytes.Buffer
	a := &scriptedMedium{name: "serial", err: ErrNoTransfer, log: &log}
	b := &scriptedMedium{name: "flash", err: errors.New("no image in flash"), log: &log}
	transferred := false
	o := NewOrchestrator(&out, func(Handoff) { transferred = true }, a, b)

	err := o.Run(context.Background())
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("run error = %v, want ErrExhausted", err)
	}
	if transferred {
		t.Fatalf("transfer called on exhaustion")
	}
	if !strings.Contains(out.String(), "No boot medium found") {
		t.Fatalf("output %q lacks exhaustion diagnostic", out.String())
	}
	if a.calls != 1 || b.calls != 1 {
		t.Fatalf("attempts = %d/%d, want exactly one each", a.calls, b.calls)
	}
}

// loopPort feeds scripted receive bytes to the serial medium.
type loopPort struct {
	rx  []byte
	tx  bytes.Buffer
	pos int
}

func (p *loopPort) Write(b []byte) (int, error) { return p.tx.Write(b) }

func (p *loopPort) TryReadByte() (byte, bool) {
	if p.pos >= len(p.rx) {
		return 0, false
	}
	b := p.rx[p.pos]
	p.pos++
	return b, true
}

type stubLoader struct {
	h   Handoff
	err error
}

func (s *stubLoader) Load(ctx context.Context) (Handoff, error) { return s.h, s.err }

func TestSerialMediumWindowExpires(t *testing.T) {
	port := &loopPort{}
	m := &SerialMedium{Port: port, Loader: &stubLoader{}, Window: 64}
	_, err := m.Boot(context.Background())
	if !errors.Is(err, ErrNoTransfer) {
		t.Fatalf("boot error = %v, want ErrNoTransfer", err)
	}
	if !strings.Contains(port.tx.String(), serialMagicReq) {
		t.Fatalf("medium never announced itself: %q", port.tx.String())
	}
}

func TestSerialMediumAcknowledgedHandshake(t *testing.T) {
	port := &loopPort{rx: []byte("garbage" + serialMagicAck)}
	want := Handoff{Addr: 0x40000000}
	m := &SerialMedium{Port: port, Loader: &stubLoader{h: want}, Window: 64}
	h, err := m.Boot(context.Background())
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	if h != want {
		t.Fatalf("handoff = %+v, want %+v", h, want)
	}
}

func TestFlashMediumBootsSealedImage(t *testing.T) {
	f, err := flash.New(2 * flash.SectorSize)
	if err != nil {
		t.Fatalf("new flash: %v", err)
	}
	payload := []byte("program text and data")
	if err := f.Program(flash.SectorSize, SealImage(payload)); err != nil {
		t.Fatalf("program: %v", err)
	}
	ram := bus.NewRAM(0x1000)
	m := &FlashMedium{Flash: f, Offset: flash.SectorSize, Dest: ram, LoadAddr: 0x100}

	h, err := m.Boot(context.Background())
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	if h.Addr != 0x100 {
		t.Fatalf("handoff addr = %#x, want 0x100", h.Addr)
	}
	if got := ram.Bytes()[0x100 : 0x100+len(payload)]; string(got) != string(payload) {
		t.Fatalf("loaded %q, want %q", got, payload)
	}
}

func TestFlashMediumErasedFlashFails(t *testing.T) {
	f, err := flash.New(flash.SectorSize)
	if err != nil {
		t.Fatalf("new flash: %v", err)
	}
	m := &FlashMedium{Flash: f, Dest: bus.NewRAM(16), LoadAddr: 0}
	if _, err := m.Boot(context.Background()); err == nil {
		t.Fatalf("expected failure on erased flash")
	}
}

func TestFlashMediumDetectsCorruptImage(t *testing.T) {
	f, err := flash.New(flash.SectorSize)
	if err != nil {
		t.Fatalf("new flash: %v", err)
	}
	img := SealImage([]byte("payload"))
	img[9] ^= 0xFF
	if err := f.Program(0, img); err != nil {
		t.Fatalf("program: %v", err)
	}
	m := &FlashMedium{Flash: f, Dest: bus.NewRAM(64), LoadAddr: 0}
	_, err = m.Boot(context.Background())
	if err == nil || !strings.Contains(err.Error(), "CRC mismatch") {
		t.Fatalf("boot error = %v, want CRC mismatch", err)
	}
}

func TestROMMediumNeedsResidentImage(t *testing.T) {
	ram := bus.NewRAM(16)
	m := &ROMMedium{Mem: ram, Addr: 0}
	if _, err := m.Boot(context.Background()); err == nil {
		t.Fatalf("expected failure on zeroed rom word")
	}
	ram.WriteWord(0, 0xFFFFFFFF)
	if _, err := m.Boot(context.Background()); err == nil {
		t.Fatalf("expected failure on erased rom word")
	}
	ram.WriteWord(0, 0x00000013)
	h, err := m.Boot(context.Background())
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	if h.Addr != 0 {
		t.Fatalf("handoff addr = %#x, want 0", h.Addr)
	}
}

type stubFetcher struct {
	img []byte
	err error
}

func (s *stubFetcher) Fetch(ctx context.Context) ([]byte, error) { return s.img, s.err }

func TestNetMediumLoadsFetchedImage(t *testing.T) {
	ram := bus.NewRAM(64)
	m := &NetMedium{Fetcher: &stubFetcher{img: []byte("net image")}, Dest: ram, LoadAddr: 8}
	h, err := m.Boot(context.Background())
	if err != nil {
		t.Fatalf("boot: %v", err)
	}
	if h.Addr != 8 {
		t.Fatalf("handoff addr = %#x, want 8", h.Addr)
	}
	if got := string(ram.Bytes()[8 : 8+9]); got != "net image" {
		t.Fatalf("loaded %q", got)
	}
}

func TestNetMediumPropagatesFetchFailure(t *testing.T) {
	m := &NetMedium{Fetcher: &stubFetcher{err: errors.New("tftp timeout")}, Dest: bus.NewRAM(16)}
	if _, err := m.Boot(context.Background()); err == nil {
		t.Fatalf("expected fetch failure")
	}
}
