package context_test

import (
	"testing"

	"github.com/a15hv/armvisor/armregs"
	"github.com/a15hv/armvisor/context"
	"github.com/a15hv/armvisor/vmid"
)

func TestSaveRestoreRoundTrip(t *testing.T) {
	m := context.NewManager()

	live := &armregs.ArchRegs{PC: 0x8000, CPSR: 0x10, LR: 0x7FFC}
	live.GPR[3] = 0xCAFE

	m.Save(0, live)

	got := m.Restore(0)
	if *got != *live {
		t.Errorf("restore mismatch: got %+v, want %+v", got, live)
	}
}

func TestResetSetsBootToken(t *testing.T) {
	m := context.NewManager()
	m.Reset(1, 0x4000_0000)

	c := m.Context(1)
	if c.Arch.PC != 0x4000_0000 {
		t.Errorf("pc = %#x, want %#x", c.Arch.PC, 0x4000_0000)
	}

	if c.Arch.GPR[0] != context.BootToken {
		t.Errorf("r0 = %#x, want boot token %#x", c.Arch.GPR[0], context.BootToken)
	}

	if c.VMID != vmid.VMID(1) {
		t.Errorf("vmid identity lost across reset: got %d", c.VMID)
	}
}

func TestCopyPreservesDestinationIdentity(t *testing.T) {
	m := context.NewManager()

	live := &armregs.ArchRegs{PC: 0x1234}
	m.Save(0, live)
	m.Copy(1, 0)

	if m.Context(1).VMID != vmid.VMID(1) {
		t.Errorf("copy clobbered destination vmid identity: got %d", m.Context(1).VMID)
	}

	if m.Context(1).Arch.PC != 0x1234 {
		t.Errorf("copy did not carry arch regs: got pc=%#x", m.Context(1).Arch.PC)
	}
}

func TestInvalidVMIDPanics(t *testing.T) {
	m := context.NewManager()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on invalid vmid")
		}
	}()

	m.Restore(vmid.VMID(99))
}
