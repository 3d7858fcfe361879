package monitor

import (
	"github.com/tinysoc/bootmon/internal/devices/flash"
	"github.com/tinysoc/bootmon/internal/memspace"
	"github.com/tinysoc/bootmon/internal/memtest"
)

func (m *Monitor) parseArg(tok, what string) (uint32, bool) {
	v, err := memspace.ParseUint(tok)
	if err != nil {
		m.printf("incorrect %s\n", what)
		return 0, false
	}
	return v, true
}

// parseOptional returns def when the token is absent.
func (m *Monitor) parseOptional(tok, what string, def uint32) (uint32, bool) {
	if tok == "" {
		return def, true
	}
	return m.parseArg(tok, what)
}

func cmdMemRead(m *Monitor, args []string) {
	if args[0] == "" {
		m.printf("mr <address> [length]\n")
		return
	}
	addr, ok := m.parseArg(args[0], "address")
	if !ok {
		return
	}
	length, ok := m.parseOptional(args[1], "length", 4)
	if !ok {
		return
	}
	memspace.Dump(m.out, m.mem, addr, length)
}

// writeArgs parses the shared <address> <value> [count] argument shape.
func (m *Monitor) writeArgs(args []string, usage string) (addr, value, count uint32, ok bool) {
	if args[0] == "" || args[1] == "" {
		m.printf("%s\n", usage)
		return 0, 0, 0, false
	}
	if addr, ok = m.parseArg(args[0], "address"); !ok {
		return 0, 0, 0, false
	}
	if value, ok = m.parseArg(args[1], "value"); !ok {
		return 0, 0, 0, false
	}
	if count, ok = m.parseOptional(args[2], "count", 1); !ok {
		return 0, 0, 0, false
	}
	return addr, value, count, true
}

func cmdMemWrite(m *Monitor, args []string) {
	if addr, value, count, ok := m.writeArgs(args, "mw <address> <value> [count]"); ok {
		memspace.Fill(m.mem, addr, value, count)
	}
}

func cmdMemWriteInc(m *Monitor, args []string) {
	if addr, value, count, ok := m.writeArgs(args, "mwi <address> <value> [count]"); ok {
		memspace.FillIncrementing(m.mem, addr, value, count)
	}
}

func cmdMemWriteAddr(m *Monitor, args []string) {
	if addr, value, count, ok := m.writeArgs(args, "mwa <address> <value> [count]"); ok {
		memspace.FillAddress(m.mem, addr, value, count)
	}
}

func cmdMemModifyInc(m *Monitor, args []string) {
	if addr, value, count, ok := m.writeArgs(args, "mmi <address> <value> [count]"); ok {
		memspace.ModifyAddShift(m.mem, addr, value, count)
	}
}

func cmdMemModify(m *Monitor, args []string) {
	if addr, value, count, ok := m.writeArgs(args, "mm <address> <value> [count]"); ok {
		memspace.ModifyAdd(m.mem, addr, value, count)
	}
}

func cmdMemCopy(m *Monitor, args []string) {
	if args[0] == "" || args[1] == "" {
		m.printf("mc <dst> <src> [count]\n")
		return
	}
	dst, ok := m.parseArg(args[0], "destination address")
	if !ok {
		return
	}
	src, ok := m.parseArg(args[1], "source address")
	if !ok {
		return
	}
	count, ok := m.parseOptional(args[2], "count", 1)
	if !ok {
		return
	}
	memspace.Copy(m.mem, dst, src, count)
}

func cmdCRC(m *Monitor, args []string) {
	if args[0] == "" || args[1] == "" {
		m.printf("crc <address> <length>\n")
		return
	}
	addr, ok := m.parseArg(args[0], "address")
	if !ok {
		return
	}
	length, ok := m.parseArg(args[1], "length")
	if !ok {
		return
	}
	m.printf("CRC32: %08x\n", memspace.Checksum(m.mem, addr, length))
}

func cmdIdent(m *Monitor, args []string) {
	m.printf("Ident: %s\n", m.info.Identifier())
}

func cmdFlashWrite(m *Monitor, args []string) {
	if args[0] == "" || args[1] == "" {
		m.printf("fw <offset> <value> [count]\n")
		return
	}
	off, ok := m.parseArg(args[0], "offset")
	if !ok {
		return
	}
	value, ok := m.parseArg(args[1], "value")
	if !ok {
		return
	}
	count, ok := m.parseOptional(args[2], "count", 1)
	if !ok {
		return
	}
	prog := flash.NewProgrammer(m.flash)
	memspace.Fill(prog, off, value, count)
	if prog.Err != nil {
		m.printf("flash write failed: %v\n", prog.Err)
	}
}

func cmdFlashErase(m *Monitor, args []string) {
	if err := m.flash.EraseAll(); err != nil {
		m.printf("flash erase failed: %v\n", err)
		return
	}
	m.printf("flash erased\n")
}

func cmdMDIOWrite(m *Monitor, args []string) {
	if args[0] == "" || args[1] == "" || args[2] == "" {
		m.printf("mdiow <phyadr> <reg> <value>\n")
		return
	}
	phy, ok := m.parseArg(args[0], "phyadr")
	if !ok {
		return
	}
	reg, ok := m.parseArg(args[1], "reg")
	if !ok {
		return
	}
	val, ok := m.parseArg(args[2], "val")
	if !ok {
		return
	}
	m.mdio.Write(phy, reg, uint16(val))
}

func cmdMDIORead(m *Monitor, args []string) {
	if args[0] == "" || args[1] == "" {
		m.printf("mdior <phyadr> <reg>\n")
		return
	}
	phy, ok := m.parseArg(args[0], "phyadr")
	if !ok {
		return
	}
	reg, ok := m.parseArg(args[1], "reg")
	if !ok {
		return
	}
	m.printf("reg %d: 0x%04x\n", reg, m.mdio.Read(phy, reg))
}

func cmdMDIODump(m *Monitor, args []string) {
	if args[0] == "" || args[1] == "" {
		m.printf("mdiod <phyadr> <count>\n")
		return
	}
	phy, ok := m.parseArg(args[0], "phyadr")
	if !ok {
		return
	}
	count, ok := m.parseArg(args[1], "count")
	if !ok {
		return
	}
	m.printf("MDIO dump @0x%x:\n", phy)
	for reg := uint32(0); reg < count; reg++ {
		m.printf("reg %d: 0x%04x\n", reg, m.mdio.Read(phy, reg))
	}
}

func cmdSMemTest(m *Monitor, args []string) {
	iterations, ok := m.parseOptional(args[0], "iterations", 1)
	if !ok {
		return
	}
	cfg := m.sramTest
	cfg.Progress = m.out
	if cfg.Flush == nil {
		cfg.Flush = m.flush
	}
	report, seed := memtest.Run(cfg, m.testSeed, int(iterations))
	m.testSeed = seed
	if report.Passed() {
		m.printf("Memtest OK\n")
	}
}

func cmdMemTest(m *Monitor, args []string) {
	m.runMainMemtest()
}

func cmdFlushL2(m *Monitor, args []string) {
	m.flush.Flush()
}

func cmdReboot(m *Monitor, args []string) {
	m.reset.Reset()
}

func cmdSerialBoot(m *Monitor, args []string) { m.bootVia("serial") }
func cmdFlashBoot(m *Monitor, args []string)  { m.bootVia("flash") }
func cmdROMBoot(m *Monitor, args []string)    { m.bootVia("rom") }
func cmdNetBoot(m *Monitor, args []string)    { m.bootVia("network") }

func cmdHelp(m *Monitor, args []string) {
	m.printf("%s, available commands:\n", m.info.Name())
	group := 0
	for _, c := range m.ordered {
		if c.group != group {
			m.printf("\n")
			group = c.group
		}
		m.printf("%-10s - %s\n", c.Name, c.Help)
	}
}
