// Package vdev is the trap-and-emulate MMIO device framework, spec.md
// §4.4's registry and dispatch mechanism generalized from machine.go's
// registerIOPortHandler / linear ioportHandlers dispatch to ARM's much
// larger MMIO address space.
package vdev

import (
	"log"

	"golang.org/x/arch/arm/armasm"

	"github.com/a15hv/armvisor/armregs"
	"github.com/a15hv/armvisor/status"
)

// Priority orders Registry.Dispatch's linear scan: High-priority
// modules are checked before Mid, Mid before Low.
type Priority int

const (
	High Priority = iota
	Mid
	Low
	numPriorities
)

// Module is one emulated MMIO device. Execute is retained only for the
// UART gate's simple enable/disable toggle; the vGIC CPU interface's own
// former execute(type, ...) multiplexer is fully replaced by its named
// Inject/EOI/PushPending/PopPending/HasPending methods (spec.md §9), so
// vgic.CPUInterface's Execute is vestigial interface satisfaction only
// and always returns status.Unknown.
type Module interface {
	Init() status.Kind
	Check(faultAddr uint32) (tag int, found bool)
	Read(offset uint32, size int) (uint32, status.Kind)
	Write(offset uint32, size int, val uint32) status.Kind
	Post(regs *armregs.ArchRegs)
	Execute(level, num, typ int, arg uint32) status.Kind
}

// InstructionReader fetches the raw bytes at a guest virtual address,
// typically backed by whichever guest image actually faulted.
// logUnmatchedFault uses it to decode the real faulting instruction
// instead of fabricating one. Returns ok=false if pc isn't resolvable
// (e.g. it falls outside every loaded segment).
type InstructionReader func(pc uint32) (word []byte, ok bool)

// Registry holds every registered Module, bucketed by Priority, and
// dispatches a trapped MMIO access to the first module whose Check
// matches, high priority first, mirroring machine.go's "walk the list,
// first match wins" dispatch.
type Registry struct {
	buckets [numPriorities][]Module
	instrAt InstructionReader
}

// SetInstructionReader installs fn as the byte source for
// logUnmatchedFault's diagnostic decode. Without one configured, an
// unmatched fault is logged by address alone, since vdev itself has no
// access to guest memory — only the caller wiring guest images knows
// where to find it.
func (r *Registry) SetInstructionReader(fn InstructionReader) {
	r.instrAt = fn
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds m under priority p.
func (r *Registry) Register(p Priority, m Module) {
	r.buckets[p] = append(r.buckets[p], m)
}

// Dispatch walks the registry high-to-low priority, offset-to-offset
// within each module via Check, and performs the read or write on the
// first match. On no match, it tries to decode the faulting
// instruction at regs.PC with armasm via the configured
// InstructionReader for a diagnostic log line, and returns
// status.BadAccess, the ARM analogue of gokvm's x86asm-based unexpected
// exit diagnostic.
func (r *Registry) Dispatch(faultAddr uint32, size int, write bool, val uint32, regs *armregs.ArchRegs) status.Kind {
	for p := High; p < numPriorities; p++ {
		for _, m := range r.buckets[p] {
			if _, found := m.Check(faultAddr); !found {
				continue
			}

			// Check confirmed the module owns faultAddr; each module
			// subtracts its own base when it implements Read/Write, so
			// the offset handed down here is the raw fault address.
			var kind status.Kind
			if write {
				kind = m.Write(faultAddr, size, val)
			} else {
				_, kind = m.Read(faultAddr, size)
			}

			m.Post(regs)

			return kind
		}
	}

	r.logUnmatchedFault(faultAddr, regs)

	return status.BadAccess
}

func (r *Registry) logUnmatchedFault(faultAddr uint32, regs *armregs.ArchRegs) {
	if r.instrAt == nil {
		log.Printf("vdev: unmatched mmio fault at %#x (pc=%#x, no instruction reader configured)", faultAddr, regs.PC)

		return
	}

	word, ok := r.instrAt(regs.PC)
	if !ok {
		log.Printf("vdev: unmatched mmio fault at %#x (pc=%#x, instruction bytes unavailable)", faultAddr, regs.PC)

		return
	}

	inst, err := armasm.Decode(word, armasm.ModeARM)
	if err != nil {
		log.Printf("vdev: unmatched mmio fault at %#x (pc=%#x, decode failed: %v)", faultAddr, regs.PC, err)

		return
	}

	log.Printf("vdev: unmatched mmio fault at %#x (pc=%#x, instruction=%s)", faultAddr, regs.PC, inst.String())
}
