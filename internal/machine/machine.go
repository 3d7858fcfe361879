// Package machine assembles a configured SoC model: the bus and its memory
// windows, the console UART behind the interrupt controller, the optional
// peripherals, and a monitor wired to all of them.
package machine

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/tinysoc/bootmon/internal/boot"
	"github.com/tinysoc/bootmon/internal/bus"
	"github.com/tinysoc/bootmon/internal/devices/flash"
	"github.com/tinysoc/bootmon/internal/devices/irq"
	"github.com/tinysoc/bootmon/internal/devices/mdio"
	"github.com/tinysoc/bootmon/internal/devices/uart"
	"github.com/tinysoc/bootmon/internal/integrity"
	"github.com/tinysoc/bootmon/internal/memtest"
	"github.com/tinysoc/bootmon/internal/monitor"
)

// Machine is one assembled SoC.
type Machine struct {
	cfg Config

	bus  *bus.Bus
	irqc *irq.Controller
	uart *uart.UART

	rom  *bus.RAM
	sram *bus.RAM
	main *bus.RAM

	flash *flash.Flash
	mdio  *mdio.Bus

	image []byte

	serialLoader boot.Loader
	fetcher      boot.ImageFetcher

	resetOnce sync.Once
	resetCh   chan struct{}
}

// irqLine adapts one controller line to the device-facing Raise surface.
type irqLine struct {
	c    *irq.Controller
	line uint8
}

func (l irqLine) Raise() { l.c.Raise(l.line) }

// New assembles a machine from its description. Console output (the UART
// transmit side) goes to console.
func New(cfg Config, console io.Writer) (*Machine, error) {
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	m := &Machine{
		cfg:     cfg,
		bus:     bus.New(),
		irqc:    irq.NewController(),
		uart:    uart.New(console),
		resetCh: make(chan struct{}),
	}

	m.uart.AttachIRQ(irqLine{c: m.irqc, line: UARTIRQLine})
	if err := m.irqc.Register(UARTIRQLine, m.uart.ServiceRX); err != nil {
		return nil, err
	}

	m.rom = bus.NewRAM(cfg.Memory.ROMSize)
	if err := m.bus.Map(bus.Region{
		Name: "rom",
		Base: cfg.Memory.ROMBase,
		Size: cfg.Memory.ROMSize,
		Mode: bus.Read | bus.Execute,
	}, m.rom); err != nil {
		return nil, err
	}

	m.sram = bus.NewRAM(cfg.Memory.SRAMSize)
	if err := m.bus.Map(bus.Region{
		Name: "sram",
		Base: cfg.Memory.SRAMBase,
		Size: cfg.Memory.SRAMSize,
		Mode: bus.Read | bus.Write,
	}, m.sram); err != nil {
		return nil, err
	}

	if cfg.Memory.MainSize > 0 {
		m.main = bus.NewRAM(cfg.Memory.MainSize)
		if err := m.bus.Map(bus.Region{
			Name: "main_ram",
			Base: cfg.Memory.MainBase,
			Size: cfg.Memory.MainSize,
			Mode: bus.Read | bus.Write | bus.Execute,
		}, m.main); err != nil {
			return nil, err
		}
	}

	if cfg.Devices.Flash.Size > 0 {
		nor, err := flash.New(cfg.Devices.Flash.Size)
		if err != nil {
			return nil, err
		}
		m.flash = nor
		if err := m.bus.Map(bus.Region{
			Name:     "spiflash",
			Base:     cfg.Devices.Flash.Base,
			Size:     cfg.Devices.Flash.Size,
			Mode:     bus.Read,
			Strategy: bus.ProgrammedWrite,
		}, nor); err != nil {
			return nil, err
		}
	}

	if cfg.Devices.MDIO {
		m.mdio = mdio.New()
	}

	return m, nil
}

// Config returns the normalized machine description.
func (m *Machine) Config() Config { return m.cfg }

// Bus exposes the address space, mostly for tests and image staging.
func (m *Machine) Bus() *bus.Bus { return m.bus }

// Flash returns the NOR part, or nil when none is fitted.
func (m *Machine) Flash() *flash.Flash { return m.flash }

// Feed injects received console bytes, one interrupt per byte.
func (m *Machine) Feed(p []byte) {
	for _, b := range p {
		m.uart.Receive(b)
	}
}

// LoadROM places an image in ROM and records it for the startup integrity
// check. The image carries its checksum seal in the trailing word.
func (m *Machine) LoadROM(image []byte) error {
	if uint32(len(image)) > m.cfg.Memory.ROMSize {
		return fmt.Errorf("image %d bytes exceeds rom %d bytes", len(image), m.cfg.Memory.ROMSize)
	}
	copy(m.rom.Bytes(), image)
	m.image = image
	return nil
}

// SealedROM seals payload and loads it.
func (m *Machine) SealedROM(payload []byte) error {
	return m.LoadROM(integrity.Seal(payload))
}

// SetSerialLoader attaches the line-protocol collaborator behind serialboot.
func (m *Machine) SetSerialLoader(l boot.Loader) { m.serialLoader = l }

// SetFetcher attaches the network transport behind netboot.
func (m *Machine) SetFetcher(f boot.ImageFetcher) { m.fetcher = f }

// Reset implements the monitor's reset control register.
func (m *Machine) Reset() {
	m.resetOnce.Do(func() { close(m.resetCh) })
}

// ResetRequested is closed once the operator issues reboot.
func (m *Machine) ResetRequested() <-chan struct{} { return m.resetCh }

// noLoader reports the missing collaborator if a far end ever acknowledges.
type noLoader struct{}

func (noLoader) Load(ctx context.Context) (boot.Handoff, error) {
	return boot.Handoff{}, fmt.Errorf("no serial loader attached")
}

func (m *Machine) media() ([]boot.Medium, error) {
	var media []boot.Medium
	for _, name := range m.cfg.Boot.Order {
		switch name {
		case "serial":
			loader := m.serialLoader
			if loader == nil {
				loader = noLoader{}
			}
			media = append(media, &boot.SerialMedium{
				Port:   m.uart,
				Loader: loader,
				Window: m.cfg.Boot.SerialWindow,
			})
		case "flash":
			media = append(media, &boot.FlashMedium{
				Flash:    m.flash,
				Offset:   m.cfg.Boot.FlashOffset,
				Dest:     m.bus,
				LoadAddr: m.cfg.Boot.LoadAddr,
			})
		case "rom":
			media = append(media, &boot.ROMMedium{
				Mem:  m.bus,
				Addr: m.cfg.Memory.ROMBase,
			})
		case "network":
			if m.fetcher == nil {
				return nil, fmt.Errorf("boot order lists network but no fetcher is attached")
			}
			media = append(media, &boot.NetMedium{
				Fetcher:  m.fetcher,
				Dest:     m.bus,
				LoadAddr: m.cfg.Boot.LoadAddr,
			})
		default:
			return nil, fmt.Errorf("unknown boot medium %q", name)
		}
	}
	return media, nil
}

func (m *Machine) capabilities() monitor.Capabilities {
	caps := monitor.Capabilities{
		Flash:    m.flash != nil,
		MDIO:     m.mdio != nil,
		Ethernet: m.cfg.Devices.Ethernet,
		SDRAM:    m.main != nil,
		Control:  m.cfg.Devices.ResetCtrl,
		L2:       m.cfg.Memory.L2Size > 0,
	}
	for _, name := range m.cfg.Boot.Order {
		switch name {
		case "flash":
			caps.FlashBoot = true
		case "rom":
			caps.ROMBoot = true
		}
	}
	return caps
}

// Monitor builds the interactive shell over this machine. transfer receives
// control on a successful boot; nil installs a no-op.
func (m *Machine) Monitor(transfer boot.TransferFunc) (*monitor.Monitor, error) {
	media, err := m.media()
	if err != nil {
		return nil, err
	}
	if transfer == nil {
		transfer = func(boot.Handoff) {}
	}

	opts := monitor.Options{
		Input:  m.uart,
		Output: m.uart,
		Mem:    m.bus,

		Caps: m.capabilities(),
		Info: monitor.Info{
			Product:     m.cfg.Name,
			Version:     m.cfg.Version,
			BuildDate:   m.cfg.BuildDate,
			CPU:         m.cfg.CPU,
			ClockHz:     m.cfg.ClockHz,
			ROMSize:     m.cfg.Memory.ROMSize,
			SRAMSize:    m.cfg.Memory.SRAMSize,
			L2Size:      m.cfg.Memory.L2Size,
			MainRAMSize: m.cfg.Memory.MainSize,
		},

		Flash: m.flash,
		MDIO:  m.mdio,
		Reset: m,
		Flush: memtest.NopFlusher{},

		Media:    media,
		Transfer: transfer,

		SRAMTest: memtest.Config{
			Mem:      m.bus,
			Base:     m.cfg.Memory.SRAMBase,
			DataSize: m.cfg.Test.SRAMDataSize,
		},
		TestSeed: m.cfg.Test.Seed,

		Image:   m.image,
		Regions: m.bus.Regions(),
	}
	if m.main != nil {
		opts.MainTest = memtest.Config{
			Mem:      m.bus,
			Base:     m.cfg.Memory.MainBase,
			DataSize: m.cfg.Test.MainDataSize,
		}
	}
	return monitor.New(opts)
}
