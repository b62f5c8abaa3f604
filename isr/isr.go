// Package isr is the physical IRQ entry point: acknowledge, classify
// as guest or host, and either inject into the target guest's saved
// state or pend it, per spec.md §4.3. Grounded on original_source's
// interrupt_service_routine/changeGuestMode and kvm/irq.go's IRQLine
// handling, adapted from x86 IOAPIC routing to ARM GIC PIRQ/VIRQ
// classification.
package isr

import (
	"log"

	"github.com/a15hv/armvisor/armregs"
	"github.com/a15hv/armvisor/board"
	"github.com/a15hv/armvisor/context"
	"github.com/a15hv/armvisor/gic"
	"github.com/a15hv/armvisor/irqmap"
	"github.com/a15hv/armvisor/status"
	"github.com/a15hv/armvisor/vgic"
	"github.com/a15hv/armvisor/vmid"
)

// HostHandler services a PIRQ classified as belonging to the host
// itself rather than to any guest (e.g. the scheduler tick).
type HostHandler func(pirq uint32)

// Table owns everything one physical CPU's ISR needs: the host GIC
// driver, each guest's IRQ map, the shared vGIC CPU interface, the
// context manager for the guests this CPU owns, and the installed host
// handlers.
type Table struct {
	driver  *gic.Driver
	ctxMgr  *context.Manager
	iface   *vgic.CPUInterface
	maps    [vmid.MaxVMs]*irqmap.Map
	current vmid.VMID
	isPrimary bool

	ppiHandlers [board.MaxPPIIRQs]HostHandler
	spiHandlers map[uint32]HostHandler
}

// NewTable returns an ISR table bound to driver, ctxMgr, and iface, for
// a CPU that owns the guest IRQ maps in maps. isPrimary marks CPU 0,
// the only CPU on which IRQ 0 is real rather than spurious
// (spec.md §4.3 edge case).
func NewTable(driver *gic.Driver, ctxMgr *context.Manager, iface *vgic.CPUInterface, maps [vmid.MaxVMs]*irqmap.Map, isPrimary bool) *Table {
	return &Table{
		driver:      driver,
		ctxMgr:      ctxMgr,
		iface:       iface,
		maps:        maps,
		current:     vmid.InvalidVMID,
		isPrimary:   isPrimary,
		spiHandlers: make(map[uint32]HostHandler),
	}
}

// SetCurrent tells the table which guest is presently dispatched on
// this CPU, the same pinning the scheduler's PerCPU.Current tracks.
func (t *Table) SetCurrent(v vmid.VMID) {
	t.current = v
}

// InstallHostHandler registers h for a non-guest PIRQ. PPIs (pirq <
// board.MaxPPIIRQs) are looked up in a fixed array; SPIs in a map, per
// spec.md §4.3's "PPI table indexed by [cpu][irq], SPI table indexed by
// [irq]" (the [cpu] dimension collapses to one Table per CPU here).
func (t *Table) InstallHostHandler(pirq uint32, h HostHandler) {
	if pirq < board.MaxPPIIRQs {
		t.ppiHandlers[pirq] = h

		return
	}

	t.spiHandlers[pirq] = h
}

// classify reports which guest, if any, owns pirq: the guest whose map
// has a virq (mapped and enabled) for pirq.
func (t *Table) classify(pirq uint32) (v vmid.VMID, virq uint32, isGuest bool) {
	for i, m := range t.maps {
		if m == nil {
			continue
		}

		if vq, ok := m.ByPIRQ(pirq); ok && m.IsEnabled(pirq) {
			return vmid.VMID(i), vq, true
		}
	}

	return vmid.InvalidVMID, 0, false
}

// Handle is the ISR entry point, called with the acknowledged PIRQ and
// the trap-frame register view live. It implements spec.md §4.3 steps
// 1-2: classify, then inject-now or pend, and performs the physical
// EOI/deactivate bookkeeping for the non-injected paths itself.
func (t *Table) Handle(pirq uint32, live *armregs.ArchRegs) status.Kind {
	if pirq == 0 && !t.isPrimary {
		t.driver.End(pirq)

		return status.Ignored
	}

	v, virq, isGuest := t.classify(pirq)
	if !isGuest {
		t.dispatchHost(pirq)

		return status.Success
	}

	return t.injectOrPend(v, virq, pirq, live)
}

func (t *Table) dispatchHost(pirq uint32) {
	var h HostHandler
	if pirq < board.MaxPPIIRQs {
		h = t.ppiHandlers[pirq]
	} else {
		h = t.spiHandlers[pirq]
	}

	if h != nil {
		h(pirq)
	}

	t.driver.End(pirq)
}

// injectOrPend implements spec.md §4.3's injection algorithm. Step 1
// fires only when v is the CPU's current guest, the vGIC has no
// in-flight VIRQ for v, and the guest's live CPSR (the trap frame) does
// not mask IRQs;
// otherwise the VIRQ is pended, never dropped (the normative ISR
// policy, spec.md §9 Open Question resolved: pend, don't drop).
func (t *Table) injectOrPend(v vmid.VMID, virq, pirq uint32, live *armregs.ArchRegs) status.Kind {
	guestCtx := t.ctxMgr.Context(v)

	// v == t.current means v's registers are the ones actually live in
	// hardware right now (live), not whatever was last saved into its
	// context slot, so the masked-IRQs check reads live.CPSR rather than
	// the possibly-stale guestCtx.Arch.CPSR.
	canInjectNow := v == t.current &&
		t.iface.Ready(v) &&
		live.CPSR&armregs.CPSRIRQDis == 0

	if !canInjectNow {
		if kind := t.iface.PushPending(v, virq); kind != status.Success {
			log.Printf("isr: pending fifo overflow for vmid=%d virq=%d, irq lost", v, virq)
		}

		t.driver.End(pirq)

		return status.Ignored
	}

	t.iface.Inject(v, virq)
	t.ctxMgr.Save(v, live)
	enterIRQVector(guestCtx)
	t.ctxMgr.Restore(v)

	t.driver.End(pirq)

	return status.Success
}

// enterIRQVector rewrites c so that the guest it belongs to resumes at
// the IRQ high vector in IRQ mode with IRQs masked and the return
// address/SPSR set up to come back to whatever it was doing, the same
// entry sequence spec.md §4.3 describes for an injected interrupt.
func enterIRQVector(c *context.GuestContext) {
	c.Banked.SPSRIrq = c.Arch.CPSR
	c.Banked.LRIrq = c.Arch.PC + 4

	newCPSR := c.Arch.CPSR
	newCPSR &^= armregs.CPSRThumb
	newCPSR |= armregs.CPSRIRQDis
	newCPSR = (newCPSR &^ armregs.CPSRModeMask) | armregs.CPSRModeIRQ
	c.Arch.CPSR = newCPSR
	c.Arch.PC = board.GuestVectorHigh
}

// DrainPending is called whenever v becomes the dispatched guest on
// this CPU. If v has no interrupt presently in flight and has one
// queued in its pending FIFO, that VIRQ is injected now and the
// guest's context is redirected to the IRQ vector before it resumes,
// completing the S4 sequence (pended while not current, delivered on
// the next dispatch) per spec.md §4.3's edge case.
func (t *Table) DrainPending(v vmid.VMID) {
	if !t.iface.Ready(v) {
		return
	}

	virq, ok := t.iface.PopPending(v)
	if !ok {
		return
	}

	if kind := t.iface.Inject(v, virq); kind != status.Success {
		return
	}

	c := t.ctxMgr.Context(v)
	enterIRQVector(c)
	t.ctxMgr.Restore(v)
}
