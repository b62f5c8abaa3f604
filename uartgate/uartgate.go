// Package uartgate is the console pass-through vdev, a trap-and-emulate
// gate in front of one physical UART, grounded on serial.Serial's
// In/Out/IRQInjector shape and adapted from a 16550 COM1 port to a
// PL011-shaped MMIO region per platform-device's pl011.c, following
// original_source's vdev_uart.c enable/disable-by-guest model.
package uartgate

import (
	"github.com/a15hv/armvisor/armregs"
	"github.com/a15hv/armvisor/status"
	"github.com/a15hv/armvisor/vmid"
)

const (
	base = 0x1C090000
	size = 0x1000

	// PL011 data register offset. Every register, this one included,
	// forwards verbatim to the backing UART with no translation.
	regDR = 0x000
)

// UART is the minimal backing device Gate forwards honored accesses to.
type UART interface {
	ReadReg(offset uint32, size int) uint32
	WriteReg(offset uint32, size int, val uint32)
}

// Gate wraps a backing UART and restricts console pass-through to
// whichever guest is currently honored, toggled via Execute the way
// original_source's vdev_uart.c enables/disables a guest's console on a
// hypercall.
type Gate struct {
	uart    UART
	current vmid.VMID
	honored [vmid.MaxVMs]bool
}

// New returns a Gate over backing UART u with no guest yet honored.
func New(u UART) *Gate {
	return &Gate{uart: u, current: vmid.InvalidVMID}
}

// SetCurrent tells the gate which guest is presently scheduled; Read
// and Write only pass through when this guest is honored.
func (g *Gate) SetCurrent(v vmid.VMID) {
	g.current = v
}

// Init enables no guest by default; a guest must be granted the console
// via Execute(typ=1) before its accesses pass through.
func (g *Gate) Init() status.Kind {
	g.honored = [vmid.MaxVMs]bool{}

	return status.Success
}

// Check matches the PL011 MMIO frame.
func (g *Gate) Check(faultAddr uint32) (tag int, found bool) {
	if faultAddr >= base && faultAddr < base+size {
		return 0, true
	}

	return 0, false
}

// Read forwards to the backing UART only if the current guest is
// honored; otherwise it returns BadAccess without touching hardware, so
// an un-honored guest can't read another guest's console traffic.
func (g *Gate) Read(faultAddr uint32, size int) (uint32, status.Kind) {
	if !g.isHonored() {
		return 0, status.BadAccess
	}

	return g.uart.ReadReg(faultAddr-base, size), status.Success
}

// Write is the write-side counterpart of Read.
func (g *Gate) Write(faultAddr uint32, size int, val uint32) status.Kind {
	if !g.isHonored() {
		return status.BadAccess
	}

	g.uart.WriteReg(faultAddr-base, size, val)

	return status.Success
}

func (g *Gate) isHonored() bool {
	return g.current != vmid.InvalidVMID && int(g.current) < len(g.honored) && g.honored[g.current]
}

// Post advances pc past the trapped access, matching vgic's convention.
func (g *Gate) Post(regs *armregs.ArchRegs) {
	if regs.CPSR&armregs.CPSRThumb != 0 {
		regs.PC += 2
	} else {
		regs.PC += 4
	}
}

// Execute grants (typ=1) or revokes (typ=0) console pass-through for
// the guest numbered by num.
func (g *Gate) Execute(level, num, typ int, arg uint32) status.Kind {
	v := vmid.VMID(num)
	if v < 0 || int(v) >= len(g.honored) {
		return status.BadAccess
	}

	g.honored[v] = typ == 1

	return status.Success
}
