package vdev_test

import (
	"testing"

	"github.com/a15hv/armvisor/armregs"
	"github.com/a15hv/armvisor/status"
	"github.com/a15hv/armvisor/vdev"
)

// fakeModule is a minimal vdev.Module used only to exercise Registry
// dispatch ordering and the read/write contract.
type fakeModule struct {
	base, size uint32
	mem        map[uint32]uint32
	posted     bool
}

func newFakeModule(base, size uint32) *fakeModule {
	return &fakeModule{base: base, size: size, mem: make(map[uint32]uint32)}
}

func (f *fakeModule) Init() status.Kind { return status.Success }

func (f *fakeModule) Check(faultAddr uint32) (int, bool) {
	if faultAddr >= f.base && faultAddr < f.base+f.size {
		return 0, true
	}

	return 0, false
}

func (f *fakeModule) Read(offset uint32, size int) (uint32, status.Kind) {
	return f.mem[offset], status.Success
}

func (f *fakeModule) Write(offset uint32, size int, val uint32) status.Kind {
	f.mem[offset] = val

	return status.Success
}

func (f *fakeModule) Post(regs *armregs.ArchRegs) { f.posted = true }

func (f *fakeModule) Execute(level, num, typ int, arg uint32) status.Kind {
	return status.Unknown
}

func TestDispatchFirstMatchHighPriorityWins(t *testing.T) {
	r := vdev.NewRegistry()
	low := newFakeModule(0x1000, 0x100)
	high := newFakeModule(0x1000, 0x100)

	r.Register(vdev.Low, low)
	r.Register(vdev.High, high)

	regs := &armregs.ArchRegs{}
	kind := r.Dispatch(0x1000, 4, true, 0xABCD, regs)

	if kind != status.Success {
		t.Fatalf("dispatch = %v, want Success", kind)
	}

	if !high.posted || low.posted {
		t.Error("expected the high-priority module to handle the fault, not low")
	}
}

func TestDispatchNoMatchReturnsBadAccess(t *testing.T) {
	r := vdev.NewRegistry()
	r.Register(vdev.Mid, newFakeModule(0x2000, 0x10))

	regs := &armregs.ArchRegs{PC: 0x8000}
	if kind := r.Dispatch(0x9999, 4, false, 0, regs); kind != status.BadAccess {
		t.Errorf("dispatch = %v, want BadAccess", kind)
	}
}

func TestDispatchNoMatchUsesConfiguredInstructionReader(t *testing.T) {
	r := vdev.NewRegistry()
	r.Register(vdev.Mid, newFakeModule(0x2000, 0x10))

	var gotPC uint32
	r.SetInstructionReader(func(pc uint32) ([]byte, bool) {
		gotPC = pc

		return []byte{0x00, 0x00, 0xA0, 0xE3}, true // MOV R0, #0 (ARM)
	})

	regs := &armregs.ArchRegs{PC: 0x8000}
	if kind := r.Dispatch(0x9999, 4, false, 0, regs); kind != status.BadAccess {
		t.Errorf("dispatch = %v, want BadAccess", kind)
	}

	if gotPC != 0x8000 {
		t.Errorf("instruction reader called with pc=%#x, want %#x", gotPC, 0x8000)
	}
}

func TestDispatchReadWriteRoundTrip(t *testing.T) {
	r := vdev.NewRegistry()
	m := newFakeModule(0x1000, 0x100)
	r.Register(vdev.Mid, m)

	regs := &armregs.ArchRegs{}
	r.Dispatch(0x1000, 4, true, 0x42, regs)

	if got, _ := m.Read(0x1000, 4); got != 0x42 {
		t.Errorf("read back = %#x, want 0x42", got)
	}
}
