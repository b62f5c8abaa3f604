// Package loader is the guest-image staging boundary spec.md §1 treats
// as an external collaborator, defined only through its contract:
// memory descriptors and stage-2 mapping setup are out of scope, but
// loading a guest's static ELF image is kept concrete, the same
// elf.NewFile branch machine.go's LoadLinux takes for a kernel image,
// since guest images on this platform are plain static ELF binaries per
// the platform's c_start.c entry convention.
package loader

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/a15hv/armvisor/vmid"
)

// MemoryDescriptor describes one stage-2 mapping a guest loader must
// establish before launch. Construction of the actual mapping is out of
// scope here; this type only records what setup code passes to
// MemoryInit.
type MemoryDescriptor struct {
	Label string
	IPA   uint64
	PA    uint64
	Size  uint64
	Attr  uint32
}

// segment is one PT_LOAD program header's bytes, kept resident so a
// guest's loaded image can still be read after the source file/reader
// that produced it goes away.
type segment struct {
	vaddr uint32
	data  []byte
}

// GuestImage is a loaded guest's entry point and backing data.
type GuestImage struct {
	VMID     vmid.VMID
	Entry    uint32
	Data     io.ReaderAt
	segments []segment
}

// ReadAt returns the size bytes of the guest's loaded image at virtual
// address vaddr, if vaddr falls inside one of its PT_LOAD segments.
// This is a flat-binary stand-in for a real stage-2 translation (§1
// places stage-2 page table construction out of scope); it resolves
// directly against the ELF's own program-header vaddrs instead.
func (g *GuestImage) ReadAt(vaddr uint32, size int) ([]byte, bool) {
	for _, s := range g.segments {
		if vaddr < s.vaddr {
			continue
		}

		end := uint64(vaddr) + uint64(size)
		if end > uint64(s.vaddr)+uint64(len(s.data)) {
			continue
		}

		off := vaddr - s.vaddr

		return s.data[off : off+uint32(size)], true
	}

	return nil, false
}

// MemoryInit builds stage-2 mappings for two CPUs' guest descriptor
// lists. This core treats stage-2 page table construction as entirely
// out of scope (spec.md §1); the signature is retained so setup code
// has a named seam to call into a platform-specific implementation.
func MemoryInit(md0, md1 []MemoryDescriptor) error {
	return fmt.Errorf("loader: MemoryInit is a platform-specific stage-2 mapping builder, not implemented by this core")
}

// LoadELF parses a static ARM ELF image from r and returns its entry
// point and backing reader, mirroring machine.go's elf.NewFile branch.
func LoadELF(v vmid.VMID, r io.ReaderAt) (*GuestImage, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("loader: not an ELF image: %w", err)
	}
	defer f.Close()

	if f.Machine != elf.EM_ARM {
		return nil, fmt.Errorf("loader: unsupported ELF machine %v, want EM_ARM", f.Machine)
	}

	img := &GuestImage{VMID: v, Entry: uint32(f.Entry), Data: r}

	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD || p.Filesz == 0 {
			continue
		}

		buf := make([]byte, p.Filesz)
		if _, err := io.ReadFull(io.NewSectionReader(r, int64(p.Off), int64(p.Filesz)), buf); err != nil {
			return nil, fmt.Errorf("loader: reading PT_LOAD segment at %#x: %w", p.Vaddr, err)
		}

		img.segments = append(img.segments, segment{vaddr: uint32(p.Vaddr), data: buf})
	}

	return img, nil
}
