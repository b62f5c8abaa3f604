//go:build arm

package mmio

import "unsafe"

// hwBackend reads and writes real memory-mapped registers via
// unsafe.Pointer, the same access pattern other_examples' tamago
// internal/reg package uses for GICv2 and peripheral register access.
type hwBackend struct{}

func (hwBackend) read32(addr uint32) uint32 {
	return *(*uint32)(unsafe.Pointer(uintptr(addr)))
}

func (hwBackend) write32(addr, val uint32) {
	*(*uint32)(unsafe.Pointer(uintptr(addr))) = val
}

var backend mmioBackend = hwBackend{}
