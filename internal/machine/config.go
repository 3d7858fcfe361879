package machine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tinysoc/bootmon/internal/memtest"
)

// UARTIRQLine is the interrupt line the receive path of the console UART is
// wired to.
const UARTIRQLine = 0

// Config describes one machine: identity, memory map, optional devices and
// the boot order. Zero fields take the defaults of a small reference SoC.
type Config struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version,omitempty"`
	BuildDate string `yaml:"buildDate,omitempty"`

	CPU     string `yaml:"cpu,omitempty"`
	ClockHz uint32 `yaml:"clockHz,omitempty"`

	Memory  MemoryConfig `yaml:"memory"`
	Devices DeviceConfig `yaml:"devices"`
	Boot    BootConfig   `yaml:"boot"`
	Test    TestConfig   `yaml:"test"`
}

// MemoryConfig is the address map. A zero MainSize means no main memory is
// fitted, which drops the main memory test and the SDRAM capability.
type MemoryConfig struct {
	ROMBase uint32 `yaml:"romBase,omitempty"`
	ROMSize uint32 `yaml:"romSize,omitempty"`

	SRAMBase uint32 `yaml:"sramBase,omitempty"`
	SRAMSize uint32 `yaml:"sramSize,omitempty"`

	MainBase uint32 `yaml:"mainBase,omitempty"`
	MainSize uint32 `yaml:"mainSize,omitempty"`

	L2Size uint32 `yaml:"l2Size,omitempty"`
}

// DeviceConfig selects the optional peripherals.
type DeviceConfig struct {
	Flash     FlashConfig `yaml:"flash"`
	MDIO      bool        `yaml:"mdio,omitempty"`
	Ethernet  bool        `yaml:"ethernet,omitempty"`
	ResetCtrl bool        `yaml:"resetCtrl,omitempty"`
}

// FlashConfig describes the NOR flash part. A zero Size means no flash.
type FlashConfig struct {
	Base uint32 `yaml:"base,omitempty"`
	Size uint32 `yaml:"size,omitempty"`
}

// BootConfig is the fallback chain. Order lists media by name in priority
// order; unknown names are configuration errors.
type BootConfig struct {
	Order []string `yaml:"order,omitempty"`

	// FlashOffset locates the sealed image inside the flash part.
	FlashOffset uint32 `yaml:"flashOffset,omitempty"`
	// LoadAddr is where serial, flash and network images land.
	LoadAddr uint32 `yaml:"loadAddr,omitempty"`
	// SerialWindow bounds the serial handshake poll; zero is the default.
	SerialWindow int `yaml:"serialWindow,omitempty"`
}

// TestConfig parameterizes the power-on and interactive memory tests.
type TestConfig struct {
	Seed         uint32 `yaml:"seed,omitempty"`
	MainDataSize uint32 `yaml:"mainDataSize,omitempty"`
	SRAMDataSize uint32 `yaml:"sramDataSize,omitempty"`
}

func (c *Config) normalize() {
	if c.Name == "" {
		c.Name = "bootmon"
	}
	if c.CPU == "" {
		c.CPU = "vexriscv"
	}
	if c.ClockHz == 0 {
		c.ClockHz = 100_000_000
	}
	if c.Memory.ROMSize == 0 {
		c.Memory.ROMSize = 64 * 1024
	}
	if c.Memory.SRAMBase == 0 {
		c.Memory.SRAMBase = 0x1000_0000
	}
	if c.Memory.SRAMSize == 0 {
		c.Memory.SRAMSize = 256 * 1024
	}
	if c.Memory.MainSize > 0 && c.Memory.MainBase == 0 {
		c.Memory.MainBase = 0x4000_0000
	}
	if c.Devices.Flash.Size > 0 && c.Devices.Flash.Base == 0 {
		c.Devices.Flash.Base = 0x2000_0000
	}
	if len(c.Boot.Order) == 0 {
		c.Boot.Order = []string{"serial"}
	}
	if c.Boot.LoadAddr == 0 {
		if c.Memory.MainSize > 0 {
			c.Boot.LoadAddr = c.Memory.MainBase
		} else {
			c.Boot.LoadAddr = c.Memory.SRAMBase
		}
	}
	if c.Test.MainDataSize == 0 {
		c.Test.MainDataSize = c.Memory.MainSize
	}
	if c.Test.SRAMDataSize == 0 || c.Test.SRAMDataSize > c.Memory.SRAMSize {
		c.Test.SRAMDataSize = c.Memory.SRAMSize
	}
}

func (c *Config) validate() error {
	for _, name := range c.Boot.Order {
		switch name {
		case "serial", "rom":
		case "flash":
			if c.Devices.Flash.Size == 0 {
				return fmt.Errorf("boot order lists flash but no flash is configured")
			}
		case "network":
			if !c.Devices.Ethernet {
				return fmt.Errorf("boot order lists network but ethernet is not configured")
			}
		default:
			return fmt.Errorf("unknown boot medium %q", name)
		}
	}
	if c.Memory.MainSize > 0 && c.Test.MainDataSize > c.Memory.MainSize {
		return fmt.Errorf("main memory test size %#x exceeds main memory %#x", c.Test.MainDataSize, c.Memory.MainSize)
	}
	// The address test walks a fixed window, so testable regions cannot be
	// smaller than it.
	if c.Memory.SRAMSize < memtest.AddrWindowSize {
		return fmt.Errorf("sram must be at least %#x bytes", memtest.AddrWindowSize)
	}
	if c.Memory.MainSize > 0 && c.Memory.MainSize < memtest.AddrWindowSize {
		return fmt.Errorf("main memory must be at least %#x bytes", memtest.AddrWindowSize)
	}
	return nil
}

// Parse decodes a machine description, applies defaults and validates it.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse machine config: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("invalid machine config: %w", err)
	}
	return cfg, nil
}

// Load reads a machine description from disk.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data)
}

// Default is the configuration used when no file is given.
func Default() Config {
	var cfg Config
	cfg.normalize()
	return cfg
}
