// Package vgic implements the virtual GICv2 CPU interface presented to
// each guest, spec.md §4.4's replacement for the original
// vdev_cpu_interface.c execute(type, ...) multiplexer: named operations
// instead of one dispatch-by-int function, per spec.md §9.
package vgic

import (
	"github.com/a15hv/armvisor/armregs"
	"github.com/a15hv/armvisor/board"
	"github.com/a15hv/armvisor/status"
	"github.com/a15hv/armvisor/vmid"
)

// Shadow GICC register offsets within the CPU-interface frame,
// original_source's vdev_cpu_interface.c register map.
const (
	regCTLR   = 0x000
	regPMR    = 0x004
	regBPR    = 0x008
	regIAR    = 0x00C
	regEOIR   = 0x010
	regRPR    = 0x014
	regHPPIR  = 0x018
	regABPR   = 0x01C
	regAIAR   = 0x020
	regAEOIR  = 0x024
	regAHPPIR = 0x028
	regIIDR   = 0x0FC
	regDIR    = 0x1000
)

const spuriousIRQ = 0x3FF

// shadowRegs is one guest's emulated GICC register file.
type shadowRegs struct {
	ctlr, pmr, bpr, abpr uint32
	iidr                 uint32
}

// CPUInterface is the virtual GIC CPU interface, one instance per
// physical CPU shared by every guest that runs on it, indexed
// internally by vmid. current tracks whichever guest the scheduler has
// presently dispatched, the same SetCurrent/isHonored pattern
// uartgate.Gate uses, since exactly one guest's MMIO accesses to this
// address range can be live at a time.
type CPUInterface struct {
	regs       [vmid.MaxVMs]shadowRegs
	iarCurrent [vmid.MaxVMs]uint32
	pending    [vmid.MaxVMs]ring
	current    vmid.VMID
}

// New returns a CPUInterface with every guest's shadow state at its
// architectural reset default (IIDR left product-defined at zero, as
// original_source leaves it for an emulated implementation).
func New() *CPUInterface {
	c := &CPUInterface{current: vmid.InvalidVMID}
	for v := range c.regs {
		c.iarCurrent[v] = spuriousIRQ
	}

	return c
}

// SetCurrent tells the CPU interface which guest is presently
// dispatched; Read/Write/Check operate against this guest's shadow
// state. The scheduler calls this on every successful dispatch.
func (c *CPUInterface) SetCurrent(v vmid.VMID) {
	c.current = v
}

// Inject marks virq as the guest's current interrupt acknowledgeable
// via Ack (GICC_IAR read). If the guest already has an interrupt
// latched (it stays latched until its EOI), Inject pends virq instead
// of overwriting it,
// preserving spec.md §8's at-most-one-IAR invariant.
func (c *CPUInterface) Inject(v vmid.VMID, virq uint32) status.Kind {
	if c.iarCurrent[v] != spuriousIRQ {
		return c.PushPending(v, virq)
	}

	c.iarCurrent[v] = virq

	return status.Success
}

// EOI processes a guest's GICC_EOIR write for virq: it clears the
// latched IAR value if it matches, and reports whether virq was indeed
// the guest's active interrupt (the EOI-symmetry invariant, spec.md §8).
// On success it returns virq itself: EOI does no VIRQ-to-PIRQ
// translation and does not write the physical GIC's EOIR.
func (c *CPUInterface) EOI(v vmid.VMID, virq uint32) (acked uint32, ok bool) {
	if c.iarCurrent[v] != virq {
		return 0, false
	}

	c.iarCurrent[v] = spuriousIRQ

	if next, popped := c.pending[v].pop(); popped {
		c.iarCurrent[v] = next
	}

	return virq, true
}

// PushPending queues virq on the guest's pending FIFO. Returns
// status.Busy if the FIFO is full, per spec.md §4.5's explicit
// allowance to drop on pending-queue overflow (the one case this core
// drops rather than pends, since there is nowhere left to pend to).
func (c *CPUInterface) PushPending(v vmid.VMID, virq uint32) status.Kind {
	if !c.pending[v].push(virq) {
		return status.Busy
	}

	return status.Success
}

// PopPending dequeues the next pending virq for v, if any.
func (c *CPUInterface) PopPending(v vmid.VMID) (uint32, bool) {
	return c.pending[v].pop()
}

// HasPending reports whether v has any queued interrupt.
func (c *CPUInterface) HasPending(v vmid.VMID) bool {
	return c.pending[v].hasPending()
}

// Ready reports whether v has no interrupt currently in flight
// (iar_current == spurious), the precondition for an immediate inject
// rather than a pend, per spec.md §4.3 step 1.
func (c *CPUInterface) Ready(v vmid.VMID) bool {
	return c.iarCurrent[v] == spuriousIRQ
}

// Check reports whether faultAddr falls in the CPU-interface frame.
func (c *CPUInterface) Check(faultAddr uint32) (tag int, found bool) {
	if faultAddr >= board.GICCPUBase && faultAddr < board.GICCPUBase+0x2000 {
		return 0, true
	}

	return 0, false
}

// Init resets every guest's shadow CPU-interface state.
func (c *CPUInterface) Init() status.Kind {
	cur := c.current
	*c = *New()
	c.current = cur

	return status.Success
}

// Read emulates a GICC register read for whichever guest is current.
func (c *CPUInterface) Read(faultAddr uint32, size int) (uint32, status.Kind) {
	offset := faultAddr - board.GICCPUBase
	v := c.current
	r := &c.regs[v]

	switch offset {
	case regCTLR:
		return r.ctlr, status.Success
	case regPMR:
		return r.pmr, status.Success
	case regBPR, regABPR:
		return r.bpr, status.Success
	case regIAR, regAIAR:
		return c.iarCurrent[v], status.Success
	case regHPPIR, regAHPPIR:
		if c.HasPending(v) {
			return 1, status.Success
		}

		return spuriousIRQ, status.Success
	case regRPR:
		return 0, status.Success
	case regIIDR:
		return r.iidr, status.Success
	default:
		return 0, status.UnsupportedFeature
	}
}

// Write emulates a GICC register write for whichever guest is current.
func (c *CPUInterface) Write(faultAddr uint32, size int, val uint32) status.Kind {
	offset := faultAddr - board.GICCPUBase
	v := c.current
	r := &c.regs[v]

	switch offset {
	case regCTLR:
		r.ctlr = val
	case regPMR:
		r.pmr = val
	case regBPR, regABPR:
		r.bpr = val
	case regEOIR, regAEOIR:
		c.EOI(v, val)
	case regDIR:
		// Deactivate: nothing further to model without split
		// priority-drop/deactivate EOI mode, so this is a no-op ack.
	default:
		return status.UnsupportedFeature
	}

	return status.Success
}

// Post advances pc past the trapped instruction: 4 bytes in ARM state,
// 2 in Thumb state, per the CPSR Thumb bit.
func (c *CPUInterface) Post(regs *armregs.ArchRegs) {
	if regs.CPSR&armregs.CPSRThumb != 0 {
		regs.PC += 2
	} else {
		regs.PC += 4
	}
}

// Execute is vestigial interface satisfaction only: the CPU interface's
// former execute(type, ...) multiplexer is fully replaced by Inject,
// EOI, PushPending, PopPending, and HasPending.
func (c *CPUInterface) Execute(level, num, typ int, arg uint32) status.Kind {
	return status.Unknown
}
