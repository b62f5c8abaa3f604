// Package gic is the thin host-facing GICv2 driver: distributor and
// CPU-interface register access only, no virtualization logic. Offsets
// are ported from other_examples' tamago arm-gic.go constants (written
// against GICv3) down to the classic GICv2 0x1000/0x2000 distributor /
// CPU-interface split spec.md's Cortex-A15 target uses.
package gic

import "github.com/a15hv/armvisor/mmio"

// Distributor register offsets, relative to distBase.
const (
	gicdCTLR       = 0x000
	gicdISENABLERn = 0x100
	gicdICENABLERn = 0x180
	gicdICPENDRn   = 0x280
	gicdIPRIORITYRn = 0x400
	gicdITARGETSRn  = 0x800
	gicdICFGRn      = 0xC00
)

// CPU-interface register offsets, relative to cpuBase.
const (
	gicdCTLROffset = 0x000
	gicdPMR        = 0x004
	gicdBPR        = 0x008
	gicdIAR        = 0x00C
	gicdEOIR       = 0x010
	gicdDIR        = 0x1000
)

// Polarity selects interrupt trigger sense for Configure.
type Polarity int

const (
	LevelHigh Polarity = iota
	EdgeRising
)

// SpuriousIRQ is the sentinel Ack returns when no interrupt is pending,
// the GICv2 spurious interrupt ID.
const SpuriousIRQ = 0x3FF

// Driver is the host GICv2 driver bound to one distributor/CPU-interface
// pair.
type Driver struct {
	distBase uint32
	cpuBase  uint32
}

// Init binds the driver to a GICv2 instance and enables the distributor
// and this CPU's interface.
func Init(distBase, cpuBase uint32) *Driver {
	d := &Driver{distBase: distBase, cpuBase: cpuBase}
	mmio.Write32(d.distBase+gicdCTLR, 1)
	mmio.Write32(d.cpuBase+gicdCTLROffset, 1)
	mmio.Write32(d.cpuBase+gicdPMR, 0xFF)

	return d
}

// Enable unmasks irq at the distributor.
func (d *Driver) Enable(irq uint32) {
	reg := d.distBase + gicdISENABLERn + (irq/32)*4
	mmio.Set(reg, uint(irq%32))
}

// Disable masks irq at the distributor.
func (d *Driver) Disable(irq uint32) {
	reg := d.distBase + gicdICENABLERn + (irq/32)*4
	mmio.Set(reg, uint(irq%32))
}

// Ack reads GICC_IAR, acknowledging the highest priority pending
// interrupt and returning its ID (SpuriousIRQ if none pending).
func (d *Driver) Ack() uint32 {
	return mmio.Read32(d.cpuBase+gicdIAR) & 0x3FF
}

// End writes GICC_EOIR for irq, signaling priority drop.
func (d *Driver) End(irq uint32) {
	mmio.Write32(d.cpuBase+gicdEOIR, irq)
}

// Deactivate writes GICC_DIR for irq. Only meaningful in EOImode split
// configurations; always safe to call.
func (d *Driver) Deactivate(irq uint32) {
	mmio.Write32(d.cpuBase+gicdDIR, irq)
}

// Configure sets irq's trigger polarity, target CPU mask, and priority.
func (d *Driver) Configure(irq uint32, polarity Polarity, cpuMask uint8, priority uint8) {
	cfgReg := d.distBase + gicdICFGRn + (irq/16)*4
	cfgShift := (irq % 16) * 2
	if polarity == EdgeRising {
		mmio.Set(cfgReg, uint(cfgShift+1))
	} else {
		mmio.Clear(cfgReg, uint(cfgShift+1))
	}

	if irq >= 32 {
		tReg := d.distBase + gicdITARGETSRn + (irq/4)*4
		mmio.Put(tReg, (irq%4)*8, 0xFF, uint32(cpuMask))
	}

	pReg := d.distBase + gicdIPRIORITYRn + (irq/4)*4
	mmio.Put(pReg, (irq%4)*8, 0xFF, uint32(priority))
}

// ClearPending clears irq's pending bit at the distributor, used when
// discarding a stale level-triggered source.
func (d *Driver) ClearPending(irq uint32) {
	reg := d.distBase + gicdICPENDRn + (irq/32)*4
	mmio.Set(reg, uint(irq%32))
}
