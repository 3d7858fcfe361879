package monitor

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/tinysoc/bootmon/internal/integrity"
)

var (
	boldStyle   = ansi.Style{}.Bold()
	promptStyle = ansi.Style{}.Bold().ForegroundColor(ansi.BrightGreen)
)

// Info carries the build and machine identifiers the startup banner and the
// ident command report.
type Info struct {
	Product   string
	Version   string
	BuildDate string

	CPU     string
	ClockHz uint32

	ROMSize     uint32
	SRAMSize    uint32
	L2Size      uint32
	MainRAMSize uint32
}

// Name returns the product name, defaulted.
func (i Info) Name() string {
	if i.Product == "" {
		return "bootmon"
	}
	return i.Product
}

// Identifier is the one-line identity string behind the ident command.
func (i Info) Identifier() string {
	return fmt.Sprintf("%s %s %s (%s @ %dMHz)", i.Name(), i.Version, i.BuildDate, i.CPU, i.ClockHz/1000000)
}

var bannerArt = []string{
	`   __               __`,
	`  / /  ___  ___  / /_____ _  ___  ___`,
	` / _ \/ _ \/ _ \/ __/ __ '_\/ _ \/ _ \`,
	`/_.__/\___/\___/\__/_/ /_/_/\___/_//_/`,
}

// sectionHeader renders a startup phase divider with the phase name in bold.
func sectionHeader(name string) string {
	const width = 40
	pad := width - 2 - len(name)
	left := pad / 2
	right := pad - left
	return "--" + strings.Repeat("=", left) + " " + boldStyle.Styled(name) + " " + strings.Repeat("=", right) + "--"
}

func (m *Monitor) printBanner() {
	m.printf("\n")
	for _, line := range bannerArt {
		m.printf("%s\n", boldStyle.Styled(line))
	}
	m.printf("\n")
	m.printf(" %s built on %s (%s, %s/%s)\n", m.info.Name(), m.info.BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	if m.info.Version != "" {
		m.printf(" Version: %s\n", m.info.Version)
	}
	m.printImageCheck()
	m.printf("\n")

	m.printf("%s\n", sectionHeader("SoC"))
	m.printf("%s       %s @ %dMHz\n", boldStyle.Styled("CPU:"), m.info.CPU, m.info.ClockHz/1000000)
	if m.info.ROMSize > 0 {
		m.printf("%s       %dKB\n", boldStyle.Styled("ROM:"), m.info.ROMSize/1024)
	}
	if m.info.SRAMSize > 0 {
		m.printf("%s      %dKB\n", boldStyle.Styled("SRAM:"), m.info.SRAMSize/1024)
	}
	if m.caps.L2 && m.info.L2Size > 0 {
		m.printf("%s        %dKB\n", boldStyle.Styled("L2:"), m.info.L2Size/1024)
	}
	if m.info.MainRAMSize > 0 {
		m.printf("%s  %dKB\n", boldStyle.Styled("MAIN-RAM:"), m.info.MainRAMSize/1024)
	}
	m.printf("\n")

	if len(m.regions) > 0 {
		m.printf("%s\n", sectionHeader("Peripherals init"))
		for _, r := range m.regions {
			m.printf("%-10s 0x%08x-0x%08x %s\n", r.Name, r.Base, r.End(), r.Mode)
		}
		m.printf("\n")
	}
}

// printImageCheck verifies the resident image seal and reports either way;
// a mismatch never stops startup.
func (m *Monitor) printImageCheck() {
	if len(m.image) == 0 {
		return
	}
	r, err := integrity.Verify(m.image)
	if err != nil {
		m.printf(" Image check skipped: %v\n", err)
		return
	}
	if r.OK() {
		m.printf(" Image CRC passed (%08x)\n", r.Computed)
		return
	}
	m.printf(" Image CRC failed (expected %08x, got %08x)\n", r.Expected, r.Computed)
	m.printf(" The system will continue, but expect problems.\n")
}
