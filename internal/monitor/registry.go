package monitor

import "fmt"

// Command is one registry entry. Arity is the number of argument tokens the
// dispatcher hands the handler; missing tokens arrive as empty strings, and
// the handler decides which ones are required.
type Command struct {
	Name  string
	Usage string
	Help  string
	Arity int
	Run   func(m *Monitor, args []string)

	// group separates the help listing into blocks.
	group int
}

// buildRegistry assembles the command set for the detected capabilities.
// It runs once at startup; dispatch never mutates the result.
func buildRegistry(caps Capabilities) ([]*Command, map[string]*Command, error) {
	var cmds []*Command
	add := func(present bool, c *Command) {
		if present {
			cmds = append(cmds, c)
		}
	}

	add(true, &Command{Name: "mr", Usage: "mr <address> [length]", Help: "read address space", Arity: 2, Run: cmdMemRead})
	add(true, &Command{Name: "mw", Usage: "mw <address> <value> [count]", Help: "write address space", Arity: 3, Run: cmdMemWrite})
	add(true, &Command{Name: "mwi", Usage: "mwi <address> <value> [count]", Help: "write address space incrementing", Arity: 3, Run: cmdMemWriteInc})
	add(true, &Command{Name: "mwa", Usage: "mwa <address> <value> [count]", Help: "write address space with address", Arity: 3, Run: cmdMemWriteAddr})
	add(true, &Command{Name: "mmi", Usage: "mmi <address> <value> [count]", Help: "modify memory with add and increment", Arity: 3, Run: cmdMemModifyInc})
	add(true, &Command{Name: "mm", Usage: "mm <address> <value> [count]", Help: "modify memory with add", Arity: 3, Run: cmdMemModify})
	add(true, &Command{Name: "mc", Usage: "mc <dst> <src> [count]", Help: "copy address space", Arity: 3, Run: cmdMemCopy})
	add(true, &Command{Name: "smemtest", Usage: "smemtest [iterations]", Help: "test sram memory", Arity: 1, Run: cmdSMemTest})
	add(caps.Flash, &Command{Name: "fe", Usage: "fe", Help: "erase whole flash", Arity: 0, Run: cmdFlashErase})
	add(caps.Flash, &Command{Name: "fw", Usage: "fw <offset> <value> [count]", Help: "write to flash", Arity: 3, Run: cmdFlashWrite})
	add(caps.MDIO, &Command{Name: "mdiow", Usage: "mdiow <phyadr> <reg> <value>", Help: "write MDIO register", Arity: 3, Run: cmdMDIOWrite})
	add(caps.MDIO, &Command{Name: "mdior", Usage: "mdior <phyadr> <reg>", Help: "read MDIO register", Arity: 2, Run: cmdMDIORead})
	add(caps.MDIO, &Command{Name: "mdiod", Usage: "mdiod <phyadr> <count>", Help: "dump MDIO registers", Arity: 2, Run: cmdMDIODump})

	add(true, &Command{Name: "crc", Usage: "crc <address> <length>", Help: "compute CRC32 of a part of the address space", Arity: 2, Run: cmdCRC, group: 1})
	add(true, &Command{Name: "ident", Usage: "ident", Help: "display identifier", Arity: 0, Run: cmdIdent, group: 1})
	add(caps.L2, &Command{Name: "flushl2", Usage: "flushl2", Help: "flush L2 cache", Arity: 0, Run: cmdFlushL2, group: 1})

	add(caps.Control, &Command{Name: "reboot", Usage: "reboot", Help: "reset processor", Arity: 0, Run: cmdReboot, group: 2})
	add(caps.Ethernet, &Command{Name: "netboot", Usage: "netboot", Help: "boot via network", Arity: 0, Run: cmdNetBoot, group: 2})
	add(true, &Command{Name: "serialboot", Usage: "serialboot", Help: "boot via serial line", Arity: 0, Run: cmdSerialBoot, group: 2})
	add(caps.FlashBoot, &Command{Name: "flashboot", Usage: "flashboot", Help: "boot from flash", Arity: 0, Run: cmdFlashBoot, group: 2})
	add(caps.ROMBoot, &Command{Name: "romboot", Usage: "romboot", Help: "boot from embedded rom", Arity: 0, Run: cmdROMBoot, group: 2})

	add(caps.SDRAM, &Command{Name: "memtest", Usage: "memtest", Help: "run a full main memory test", Arity: 0, Run: cmdMemTest, group: 3})
	add(true, &Command{Name: "help", Usage: "help", Help: "print this help", Arity: 0, Run: cmdHelp, group: 3})

	index := make(map[string]*Command, len(cmds))
	for _, c := range cmds {
		if _, dup := index[c.Name]; dup {
			return nil, nil, fmt.Errorf("monitor: duplicate command %q", c.Name)
		}
		index[c.Name] = c
	}
	return cmds, index, nil
}
