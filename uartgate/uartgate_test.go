package uartgate_test

import (
	"testing"

	"github.com/a15hv/armvisor/status"
	"github.com/a15hv/armvisor/uartgate"
	"github.com/a15hv/armvisor/vmid"
)

type fakeUART struct {
	regs map[uint32]uint32
}

func newFakeUART() *fakeUART { return &fakeUART{regs: make(map[uint32]uint32)} }

func (f *fakeUART) ReadReg(offset uint32, size int) uint32 { return f.regs[offset] }

func (f *fakeUART) WriteReg(offset uint32, size int, val uint32) { f.regs[offset] = val }

func TestUnhonoredGuestBlocked(t *testing.T) {
	g := uartgate.New(newFakeUART())
	g.SetCurrent(0)

	if _, kind := g.Read(0x1C090000, 4); kind != status.BadAccess {
		t.Errorf("read from un-honored guest = %v, want BadAccess", kind)
	}
}

func TestHonoredGuestPassesThrough(t *testing.T) {
	uart := newFakeUART()
	g := uartgate.New(uart)
	g.SetCurrent(1)
	g.Execute(0, int(vmid.VMID(1)), 1, 0)

	if kind := g.Write(0x1C090000, 4, 'A'); kind != status.Success {
		t.Fatalf("write = %v, want Success", kind)
	}

	got, kind := g.Read(0x1C090000, 4)
	if kind != status.Success || got != 'A' {
		t.Errorf("read back = (%d, %v), want ('A', Success)", got, kind)
	}
}

func TestRevokeBlocksAgain(t *testing.T) {
	g := uartgate.New(newFakeUART())
	g.SetCurrent(1)
	g.Execute(0, 1, 1, 0)
	g.Execute(0, 1, 0, 0)

	if _, kind := g.Read(0x1C090000, 4); kind != status.BadAccess {
		t.Errorf("read after revoke = %v, want BadAccess", kind)
	}
}

func TestCheckMatchesFrame(t *testing.T) {
	g := uartgate.New(newFakeUART())

	if _, found := g.Check(0x1C090010); !found {
		t.Error("expected Check to match within the UART frame")
	}

	if _, found := g.Check(0x20000000); found {
		t.Error("expected Check to miss outside the UART frame")
	}
}
