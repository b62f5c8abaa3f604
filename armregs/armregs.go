// Package armregs is the one place the hypervisor core touches raw
// ARMv7-VE register mnemonics directly. Everything else in the core
// reaches the CPU's banked and coprocessor state only through this
// package's scoped accessors — spec.md's Design Notes call these out
// explicitly as "the irreducible architectural contract of ARMv7-VE...
// preserved as the lowest-level primitives but wrapped by safe scoped
// accessors," and that is exactly this package's job.
//
// The real `mrs`/`mcr` sequences live in armregs_arm.s, declared here
// as bodyless Go functions the same way tamago declares
// write_icc_sre_el3/read_icc_iar0 — a thin Go signature backed by a
// platform-specific assembly file. armregs_generic.go backs the same
// API with a plain in-memory shadow so the rest of the core (context,
// sched, isr) is unit-testable on any host architecture.
package armregs

// ArchRegs is the portion of guest state captured from the trap frame:
// program counter, processor status register, link register, and the
// general-purpose register file.
type ArchRegs struct {
	PC   uint32
	CPSR uint32
	LR   uint32
	GPR  [13]uint32 // r0-r12
}

// CPSR mode and flag bits used by the injection algorithm (spec.md §4.3).
const (
	CPSRModeMask = 0x1F
	CPSRModeIRQ  = 0x12
	CPSRModeSVC  = 0x13
	CPSRModeHyp  = 0x1A
	CPSRThumb    = 1 << 5
	CPSRIRQDis   = 1 << 7
)

// BankedRegs holds the per-mode shadow registers: stack pointers, link
// registers, and saved PSRs for the privilege modes, plus the FIQ
// banked general-purpose registers r8-r12. FIQ mode's stack pointer,
// the user-mode link register, and the hypervisor-mode link register
// are not held.
type BankedRegs struct {
	SPUsr uint32

	SPSvc   uint32
	LRSvc   uint32
	SPSRSvc uint32

	SPAbt   uint32
	LRAbt   uint32
	SPSRAbt uint32

	SPUnd   uint32
	LRUnd   uint32
	SPSRUnd uint32

	SPIrq   uint32
	LRIrq   uint32
	SPSRIrq uint32

	LRFiq   uint32
	SPSRFiq uint32
	R8Fiq   uint32
	R9Fiq   uint32
	R10Fiq  uint32
	R11Fiq  uint32
	R12Fiq  uint32

	SPHyp   uint32
	SPSRHyp uint32
}

// CopRegs holds the coprocessor (system control) registers the context
// manager snapshots: both translation table base registers, the
// translation table control register, the system control register, and
// the vector base address register.
type CopRegs struct {
	TTBR0 uint32
	TTBR1 uint32
	TTBCR uint32
	SCTLR uint32
	VBAR  uint32
}
