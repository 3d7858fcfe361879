// Package monitor implements the interactive register-level shell: a line
// reader over the UART collaborator, a tokenizing dispatcher, and the
// command set operating over the system bus. The command registry is built
// once at startup from the detected hardware capabilities and is read-only
// afterwards.
package monitor

import (
	"context"
	"fmt"
	"io"

	"github.com/tinysoc/bootmon/internal/boot"
	"github.com/tinysoc/bootmon/internal/bus"
	"github.com/tinysoc/bootmon/internal/devices/flash"
	"github.com/tinysoc/bootmon/internal/devices/mdio"
	"github.com/tinysoc/bootmon/internal/memspace"
	"github.com/tinysoc/bootmon/internal/memtest"
)

// maxLine bounds operator input; further bytes on a line are dropped.
const maxLine = 64

// ByteReader is the receive side of the UART collaborator.
type ByteReader interface {
	ReadByte(ctx context.Context) (byte, error)
}

// Resetter is the processor-reset control register collaborator.
type Resetter interface {
	Reset()
}

// Capabilities describes which optional hardware is present. An absent
// capability makes its commands absent from the registry.
type Capabilities struct {
	Flash    bool
	MDIO     bool
	Ethernet bool
	SDRAM    bool
	Control  bool
	L2       bool

	FlashBoot bool
	ROMBoot   bool
}

// Options wires a Monitor to its collaborators. Input, Output and Mem are
// required; everything else follows the capability descriptor.
type Options struct {
	Input  ByteReader
	Output io.Writer
	Mem    memspace.Memory

	Caps Capabilities
	Info Info

	Flash *flash.Flash
	MDIO  *mdio.Bus
	Reset Resetter
	Flush memtest.CacheFlusher

	// Media is the boot fallback chain in priority order; Transfer is the
	// non-returning control handoff.
	Media    []boot.Medium
	Transfer boot.TransferFunc

	// SRAMTest configures smemtest; MainTest configures the full main
	// memory test behind the memtest command and the startup check.
	SRAMTest memtest.Config
	MainTest memtest.Config
	// TestSeed is the starting value of the pattern counter.
	TestSeed uint32

	// Image is the resident code image with its trailing checksum seal.
	Image []byte

	// Regions is the bus map, reported during startup.
	Regions []bus.Region
}

// Monitor is the interactive shell.
type Monitor struct {
	in  ByteReader
	out io.Writer
	mem memspace.Memory

	caps  Capabilities
	info  Info
	image []byte

	flash *flash.Flash
	mdio  *mdio.Bus
	reset Resetter
	flush memtest.CacheFlusher

	media    []boot.Medium
	transfer boot.TransferFunc

	sramTest memtest.Config
	mainTest memtest.Config
	testSeed uint32

	regions []bus.Region

	commands map[string]*Command
	ordered  []*Command

	// skip carries the line terminator to ignore if it arrives first on
	// the next line, so CRLF never produces a spurious empty command.
	skip byte

	ctx context.Context
}

// New builds the monitor and its command registry.
func New(opts Options) (*Monitor, error) {
	if opts.Input == nil || opts.Output == nil || opts.Mem == nil {
		return nil, fmt.Errorf("monitor: input, output and memory are required")
	}
	if opts.Flush == nil {
		opts.Flush = memtest.NopFlusher{}
	}
	m := &Monitor{
		in:       opts.Input,
		out:      opts.Output,
		mem:      opts.Mem,
		caps:     opts.Caps,
		info:     opts.Info,
		image:    opts.Image,
		flash:    opts.Flash,
		mdio:     opts.MDIO,
		reset:    opts.Reset,
		flush:    opts.Flush,
		media:    opts.Media,
		transfer: opts.Transfer,
		sramTest: opts.SRAMTest,
		mainTest: opts.MainTest,
		testSeed: opts.TestSeed,
		regions:  opts.Regions,
		ctx:      context.Background(),
	}
	ordered, index, err := buildRegistry(opts.Caps)
	if err != nil {
		return nil, err
	}
	m.ordered = ordered
	m.commands = index
	return m, nil
}

func (m *Monitor) printf(format string, args ...any) {
	fmt.Fprintf(m.out, format, args...)
}

// Execute tokenizes one input line and dispatches it. An empty line does
// nothing; an unknown command reports and returns.
func (m *Monitor) Execute(line string) {
	tz := tokenizer{rest: line}
	name := tz.next()
	if name == "" {
		return
	}
	cmd, ok := m.commands[name]
	if !ok {
		m.printf("Command not found\n")
		return
	}
	args := make([]string, cmd.Arity)
	for i := range args {
		args[i] = tz.next()
	}
	cmd.Run(m, args)
}

// Run is the console loop: prompt, read a line, dispatch, repeat until the
// context ends.
func (m *Monitor) Run(ctx context.Context) error {
	m.ctx = ctx
	prompt := promptStyle.Styled("bootmon") + "> "
	for {
		fmt.Fprint(m.out, prompt)
		line, err := m.readLine(ctx)
		if err != nil {
			return err
		}
		m.Execute(line)
	}
}

// Startup runs the power-on sequence: banner, self-check, SoC report,
// memory initialization, then the boot chain. It returns once the boot
// chain is exhausted (or skipped), leaving the operator at the console.
func (m *Monitor) Startup(ctx context.Context) {
	m.ctx = ctx
	m.printBanner()

	memOK := true
	if m.caps.SDRAM {
		m.printf("%s\n", sectionHeader("Initialization"))
		memOK = m.runMainMemtest()
		if !memOK {
			m.printf("Memory initialization failed\n")
		}
		m.printf("\n")
	}

	if memOK && len(m.media) > 0 {
		m.printf("%s\n", sectionHeader("Boot"))
		o := boot.NewOrchestrator(m.out, m.transfer, m.media...)
		_ = o.Run(ctx) // exhaustion falls through to the console
		m.printf("\n")
	}

	m.printf("%s\n", sectionHeader("Console"))
}

// runMainMemtest runs one iteration of both tests over main memory,
// advancing the pattern counter.
func (m *Monitor) runMainMemtest() bool {
	cfg := m.mainTest
	cfg.Progress = m.out
	if cfg.Flush == nil {
		cfg.Flush = m.flush
	}
	report, seed := memtest.Run(cfg, m.testSeed, 1)
	m.testSeed = seed
	if report.Passed() {
		m.printf("Memtest OK\n")
		return true
	}
	return false
}

// bootVia attempts a single medium by name, as the interactive boot
// commands do.
func (m *Monitor) bootVia(name string) {
	for _, med := range m.media {
		if med.Name() != name {
			continue
		}
		h, err := med.Boot(m.ctx)
		if err != nil {
			m.printf("%s boot failed: %v\n", name, err)
			return
		}
		m.transfer(h)
		return
	}
	m.printf("%s boot not configured\n", name)
}
