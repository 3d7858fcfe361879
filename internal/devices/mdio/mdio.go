// Package mdio models the management bus toward Ethernet PHYs: 32 phy
// addresses, 32 16-bit registers each.
package mdio

const (
	// PhyCount is the number of addressable PHYs.
	PhyCount = 32
	// RegCount is the number of registers per PHY.
	RegCount = 32
)

// Bus is a management-bus register file.
type Bus struct {
	regs [PhyCount][RegCount]uint16
}

// New returns a bus with all registers zeroed.
func New() *Bus {
	return &Bus{}
}

// Read returns the register value. Out-of-range phy or reg addresses read as
// the bus idle pattern.
func (b *Bus) Read(phy, reg uint32) uint16 {
	if phy >= PhyCount || reg >= RegCount {
		return 0xFFFF
	}
	return b.regs[phy][reg]
}

// Write stores val. Out-of-range addresses are dropped.
func (b *Bus) Write(phy, reg uint32, val uint16) {
	if phy >= PhyCount || reg >= RegCount {
		return
	}
	b.regs[phy][reg] = val
}
