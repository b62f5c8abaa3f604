//go:build arm

package armregs

// saveBanked and restoreBanked are implemented in armregs_arm.s using
// the ARMv7-VE banked-register transfer instructions (MRS/MSR Rd,
// <banked_reg> — ARM DDI 0406C.d §B9.3.9), the only way to reach a mode's
// shadow registers without actually switching into that mode.
func saveBanked(out *BankedRegs)
func restoreBanked(in *BankedRegs)

// readCop and writeCop move the coprocessor registers via MRC/MCR on
// CP15. writeCop is always followed by an instruction synchronization
// barrier (ISB) per spec.md §4.1.
func readCop(out *CopRegs)
func writeCop(in *CopRegs)

// isb issues an instruction synchronization barrier.
func isb()

// SaveBanked captures the current hardware banked-register state.
func SaveBanked(out *BankedRegs) { saveBanked(out) }

// RestoreBanked writes a previously captured banked-register state back
// to hardware.
func RestoreBanked(in *BankedRegs) { restoreBanked(in) }

// ReadCopRegs captures the current coprocessor register state.
func ReadCopRegs(out *CopRegs) { readCop(out) }

// WriteCopRegs writes a coprocessor register state back to hardware,
// followed by the architecturally-required ISB.
func WriteCopRegs(in *CopRegs) {
	writeCop(in)
	isb()
}

// ISB issues a standalone instruction synchronization barrier, for
// callers that mutate coprocessor state a register at a time outside of
// WriteCopRegs.
func ISB() { isb() }
