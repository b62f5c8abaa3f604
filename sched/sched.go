// Package sched implements spec.md §4.2's round-robin scheduler, one
// instance per physical CPU, the same per-CPU "no process-wide globals"
// shape machine.RunInfiniteLoop/RunOnce gives a single vCPU's run loop.
package sched

import (
	"fmt"

	"github.com/a15hv/armvisor/armregs"
	"github.com/a15hv/armvisor/context"
	"github.com/a15hv/armvisor/status"
	"github.com/a15hv/armvisor/vmid"
)

// PerCPU holds one physical CPU's scheduler state: which guest range it
// owns, which guest is currently dispatched, and whether a switch is
// locked in for the next trap exit. No package-level globals — every
// physical CPU's goroutine owns its own *PerCPU.
type PerCPU struct {
	first, last vmid.VMID
	current     vmid.VMID
	manual      vmid.VMID
	switchLocked bool
}

// NewPerCPU returns scheduler state for a CPU owning the inclusive
// guest range [first, last].
func NewPerCPU(first, last vmid.VMID) *PerCPU {
	return &PerCPU{first: first, last: last, current: first, manual: vmid.InvalidVMID}
}

// Current reports the guest currently dispatched on this CPU.
func (p *PerCPU) Current() vmid.VMID {
	return p.current
}

// Range reports the inclusive guest range this CPU owns.
func (p *PerCPU) Range() (first, last vmid.VMID) {
	return p.first, p.last
}

// Start dispatches the first guest in this CPU's range and returns it.
func (p *PerCPU) Start(mgr *context.Manager) (vmid.VMID, error) {
	p.current = p.first
	live := mgr.Restore(p.current)
	if live == nil {
		return vmid.InvalidVMID, fmt.Errorf("sched: restore failed for vmid %d", p.current)
	}

	return p.current, nil
}

// OnTimerTick marks the scheduler's round-robin intent for the next
// trap exit without performing the switch itself: the actual context
// save/restore only happens at a trap boundary, per spec.md §4.2's
// "switch happens at trap exit, not mid-guest" rule.
func (p *PerCPU) OnTimerTick() {
	if p.switchLocked {
		return
	}

	p.switchLocked = true
}

// RequestSwitch records an explicit manual switch target (e.g. from a
// hypercall), optionally locking it in immediately. Returns
// status.Busy if a switch is already locked in, regardless of whether
// this call itself asks for a lock: once a target is locked in it is
// idempotent until the trap exit that services it, so a later
// lock=false call cannot silently overwrite it (spec.md §8 property 5).
func (p *PerCPU) RequestSwitch(v vmid.VMID, lock bool) status.Kind {
	if v < p.first || v > p.last {
		return status.BadAccess
	}

	if p.switchLocked {
		return status.Busy
	}

	p.manual = v
	if lock {
		p.switchLocked = true
	}

	return status.Success
}

// policyPickNext is the pure round-robin policy: manualOverride, if
// valid and in range, wins outright; otherwise current advances by one,
// wrapping from last back to first. Kept free of *PerCPU so it is
// directly property-testable (round-robin fairness, spec.md §8 property 4).
func policyPickNext(current, manualOverride, first, last vmid.VMID) vmid.VMID {
	if manualOverride != vmid.InvalidVMID && manualOverride >= first && manualOverride <= last {
		return manualOverride
	}

	next := current + 1
	if next > last {
		next = first
	}

	return next
}

// OnTrapExit performs the scheduler's sole state-mutating operation: if
// a switch is locked in, it saves the outgoing guest's context, picks
// the next guest via policyPickNext, restores it, and clears the lock.
// The lock only clears on a successful dispatch, never unconditionally,
// so a failed restore leaves the switch pending for the next trap exit
// rather than silently losing the request.
func (p *PerCPU) OnTrapExit(mgr *context.Manager, live *armregs.ArchRegs) (bool, error) {
	if !p.switchLocked {
		return false, nil
	}

	mgr.Save(p.current, live)

	next := policyPickNext(p.current, p.manual, p.first, p.last)
	restored := mgr.Restore(next)
	if restored == nil {
		return false, fmt.Errorf("sched: restore failed for vmid %d", next)
	}

	p.current = next
	p.manual = vmid.InvalidVMID
	p.switchLocked = false

	return true, nil
}
