// Package context owns the fixed per-guest CPU state table and
// performs context switches, the role gokvm's kvm.Regs/Sregs pair and
// machine/state.go's SaveCPUState/RestoreCPUState play for a KVM vCPU —
// here for one ARMv7-VE guest instead of one x86 vCPU.
package context

import (
	"fmt"

	"github.com/a15hv/armvisor/armregs"
	"github.com/a15hv/armvisor/vmid"
)

// BootToken is written into r0 on reset, a non-zero platform-defined
// value a guest's entry stub can check to confirm it was handed a fresh
// boot rather than, say, a spurious restart.
const BootToken = 0xB007B007

// GuestContext is one guest's full saved CPU state. Its lifetime is the
// process lifetime: it's allocated once, in Manager's fixed table, and
// never reallocated.
type GuestContext struct {
	VMID   vmid.VMID
	Arch   armregs.ArchRegs
	Banked armregs.BankedRegs
	Cop    armregs.CopRegs
}

// Manager owns the fixed array of guest contexts and performs
// save/restore/copy/reset against it. One Manager holds every guest's
// slot and is shared by all physical CPUs under spec.md §5's ownership
// model (each guest runs on at most one CPU at a time, so each CPU's
// sched.PerCPU only ever touches the slots for guests pinned to it).
type Manager struct {
	ctx [vmid.MaxVMs]GuestContext
}

// NewManager returns a Manager with every slot's VMID pre-assigned.
func NewManager() *Manager {
	m := &Manager{}
	for i := range m.ctx {
		m.ctx[i].VMID = vmid.VMID(i)
	}

	return m
}

func (m *Manager) mustValid(v vmid.VMID) {
	if v < 0 || int(v) >= vmid.MaxVMs {
		panic(fmt.Sprintf("context: invalid vmid %d", v))
	}
}

// Context returns a pointer to a guest's saved context without
// triggering a save/restore, for callers that inspect or rewrite saved
// state in place (e.g. the ISR redirecting a guest to its IRQ vector).
func (m *Manager) Context(v vmid.VMID) *GuestContext {
	m.mustValid(v)

	return &m.ctx[v]
}

// Save captures live into vmid v's context: the general-purpose
// registers come from the trap frame (live), banked and coprocessor
// registers are read from hardware one at a time.
func (m *Manager) Save(v vmid.VMID, live *armregs.ArchRegs) {
	m.mustValid(v)

	c := &m.ctx[v]
	c.Arch = *live
	armregs.SaveBanked(&c.Banked)
	armregs.ReadCopRegs(&c.Cop)
}

// Restore is the inverse of Save: banked registers are written back
// using the same mnemonics in reverse, the coprocessor write is
// followed by an ISB (inside armregs.WriteCopRegs), and the live
// arch-registers view to resume with is returned.
func (m *Manager) Restore(v vmid.VMID) *armregs.ArchRegs {
	m.mustValid(v)

	c := &m.ctx[v]
	armregs.RestoreBanked(&c.Banked)
	armregs.WriteCopRegs(&c.Cop)

	return &c.Arch
}

// Copy deep-copies src's context onto dst, element-wise. Used only by
// guest loaders (spec.md §4.1) to seed a guest's context from a
// template before its first dispatch.
func (m *Manager) Copy(dst, src vmid.VMID) {
	m.mustValid(dst)
	m.mustValid(src)

	dstVMID := m.ctx[dst].VMID
	m.ctx[dst] = m.ctx[src]
	m.ctx[dst].VMID = dstVMID
}

// Reset re-initializes vmid v's context to its architectural defaults,
// sets pc to entryPC, and plants BootToken in r0 for the guest's entry
// stub to observe.
func (m *Manager) Reset(v vmid.VMID, entryPC uint32) {
	m.mustValid(v)

	c := &m.ctx[v]
	vm := c.VMID
	*c = GuestContext{VMID: vm}
	c.Arch.PC = entryPC
	c.Arch.CPSR = armregs.CPSRModeSVC
	c.Arch.GPR[0] = BootToken
}
