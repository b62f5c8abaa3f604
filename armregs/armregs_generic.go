//go:build !arm

package armregs

import "sync"

// On anything but GOARCH=arm there is no banked-register hardware to
// read. shadow stands in for it: a single package-level "CPU" that
// SaveBanked/RestoreBanked and ReadCopRegs/WriteCopRegs read and write,
// so that context.Manager and everything built on it (sched, isr) is
// exercised and unit-tested on the development host. It is not a
// hardware accessor — the real one is armregs_arm.s.
var (
	shadowMu  sync.Mutex
	shadowBnk BankedRegs
	shadowCop CopRegs
)

// SaveBanked captures the (simulated) banked-register state.
func SaveBanked(out *BankedRegs) {
	shadowMu.Lock()
	defer shadowMu.Unlock()
	*out = shadowBnk
}

// RestoreBanked writes a banked-register state back to the (simulated) hardware.
func RestoreBanked(in *BankedRegs) {
	shadowMu.Lock()
	defer shadowMu.Unlock()
	shadowBnk = *in
}

// ReadCopRegs captures the (simulated) coprocessor register state.
func ReadCopRegs(out *CopRegs) {
	shadowMu.Lock()
	defer shadowMu.Unlock()
	*out = shadowCop
}

// WriteCopRegs writes a coprocessor register state back to the
// (simulated) hardware, followed by the architecturally-required ISB.
func WriteCopRegs(in *CopRegs) {
	shadowMu.Lock()
	shadowCop = *in
	shadowMu.Unlock()
	ISB()
}

// ISB is a no-op off-arm; there is no pipeline to flush.
func ISB() {}
