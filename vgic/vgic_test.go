package vgic_test

import (
	"testing"

	"github.com/a15hv/armvisor/board"
	"github.com/a15hv/armvisor/status"
	"github.com/a15hv/armvisor/vgic"
	"github.com/a15hv/armvisor/vmid"
)

func TestInjectThenEOI(t *testing.T) {
	c := vgic.New()

	if got := c.Inject(0, 12); got != status.Success {
		t.Fatalf("inject = %v, want Success", got)
	}

	if acked, ok := c.EOI(0, 12); !ok || acked != 12 {
		t.Errorf("eoi = (%d, %v), want (12, true)", acked, ok)
	}
}

func TestEOIRejectsMismatchedVIRQ(t *testing.T) {
	c := vgic.New()
	c.Inject(0, 12)

	if _, ok := c.EOI(0, 99); ok {
		t.Error("expected EOI of an unlatched virq to fail")
	}
}

func TestInjectWhileLatchedPends(t *testing.T) {
	c := vgic.New()
	c.Inject(0, 12)

	if got := c.Inject(0, 13); got != status.Success {
		t.Fatalf("second inject = %v, want Success (pended)", got)
	}

	if !c.HasPending(0) {
		t.Error("expected second irq to be queued as pending")
	}

	// EOI of the first should promote the pended one to current.
	c.EOI(0, 12)
	if _, ok := c.EOI(0, 13); !ok {
		t.Error("expected pended virq to become acknowledgeable after first EOI")
	}
}

func TestPushPopPending(t *testing.T) {
	c := vgic.New()
	c.PushPending(1, 7)

	if v, ok := c.PopPending(1); !ok || v != 7 {
		t.Errorf("pop pending = (%d, %v), want (7, true)", v, ok)
	}
}

func TestCheckMatchesCPUInterfaceFrame(t *testing.T) {
	c := vgic.New()

	if _, found := c.Check(board.GICCPUBase + 0x10); !found {
		t.Error("expected Check to match within the CPU-interface frame")
	}

	if _, found := c.Check(board.GICCPUBase + 0x3000); found {
		t.Error("expected Check to miss outside the CPU-interface frame")
	}
}

func TestReadWritePMRForCurrentGuest(t *testing.T) {
	c := vgic.New()
	c.SetCurrent(0)

	c.Write(board.GICCPUBase+0x004, 4, 0xF0)
	got, kind := c.Read(board.GICCPUBase+0x004, 4)

	if kind != status.Success || got != 0xF0 {
		t.Errorf("pmr read back = (%#x, %v), want (0xF0, Success)", got, kind)
	}
}

func TestGuestViewsAreIndependentPerVMID(t *testing.T) {
	c := vgic.New()
	c.Inject(0, 12)
	c.Inject(1, 34)

	if _, ok := c.EOI(1, 12); ok {
		t.Error("expected guest 1's EOI of guest 0's virq to fail")
	}

	if _, ok := c.EOI(vmid.VMID(1), 34); !ok {
		t.Error("expected guest 1's own virq to EOI successfully")
	}
}
