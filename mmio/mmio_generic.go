//go:build !arm

package mmio

import "sync"

// fakeBackend is an in-memory register file standing in for hardware on
// any non-arm build, so gic/vgic/hosttimer and everything above them can
// be unit-tested on the development host without touching real
// addresses. Unmapped addresses read as zero, matching an unimplemented
// peripheral region.
type fakeBackend struct {
	mu   sync.Mutex
	regs map[uint32]uint32
}

func (b *fakeBackend) read32(addr uint32) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.regs[addr]
}

func (b *fakeBackend) write32(addr, val uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regs[addr] = val
}

var backend mmioBackend = &fakeBackend{regs: make(map[uint32]uint32)}

// ResetFake clears the fake register file. Test-only: real hardware has
// no equivalent operation.
func ResetFake() {
	fb := backend.(*fakeBackend)
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.regs = make(map[uint32]uint32)
}
