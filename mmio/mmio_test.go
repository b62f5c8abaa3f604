package mmio_test

import (
	"testing"

	"github.com/a15hv/armvisor/mmio"
)

const testAddr = 0x2C001000

func TestWriteReadRoundTrip(t *testing.T) {
	mmio.ResetFake()
	mmio.Write32(testAddr, 0xDEADBEEF)

	if got := mmio.Read32(testAddr); got != 0xDEADBEEF {
		t.Errorf("read32 = %#x, want %#x", got, 0xDEADBEEF)
	}
}

func TestSetClear(t *testing.T) {
	mmio.ResetFake()
	mmio.Set(testAddr, 3)

	if got := mmio.Read32(testAddr); got != 1<<3 {
		t.Errorf("after set, read32 = %#x, want %#x", got, 1<<3)
	}

	mmio.Set(testAddr, 5)
	mmio.Clear(testAddr, 3)

	if got := mmio.Read32(testAddr); got != 1<<5 {
		t.Errorf("after clear, read32 = %#x, want %#x", got, 1<<5)
	}
}

func TestGetPut(t *testing.T) {
	mmio.ResetFake()
	mmio.Put(testAddr, 4, 0xF, 0xA)

	if got := mmio.Get(testAddr, 4, 0xF); got != 0xA {
		t.Errorf("get = %#x, want %#x", got, 0xA)
	}

	// Fields outside shift/mask must be left untouched.
	mmio.Put(testAddr, 0, 0xF, 0x3)
	if got := mmio.Get(testAddr, 4, 0xF); got != 0xA {
		t.Errorf("unrelated put clobbered field: got %#x, want %#x", got, 0xA)
	}
}
