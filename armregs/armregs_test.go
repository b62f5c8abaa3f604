package armregs_test

import (
	"testing"

	"github.com/a15hv/armvisor/armregs"
)

func TestBankedRoundTrip(t *testing.T) {
	in := armregs.BankedRegs{SPSvc: 0x1000, LRIrq: 0x2000, SPSRIrq: 0x13}
	armregs.RestoreBanked(&in)

	var out armregs.BankedRegs
	armregs.SaveBanked(&out)

	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestCopRoundTrip(t *testing.T) {
	in := armregs.CopRegs{TTBR0: 0x4000, SCTLR: 0xC51838F}
	armregs.WriteCopRegs(&in)

	var out armregs.CopRegs
	armregs.ReadCopRegs(&out)

	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}
