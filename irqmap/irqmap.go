// Package irqmap holds each guest's physical-to-virtual IRQ translation
// table, the Go shape of kvm/irq.go's IRQLine bookkeeping generalized to
// the bidirectional PIRQ<->VIRQ lookup original_source's interrupt.c
// virqmap performs, per spec.md §3/§4.3.
package irqmap

import "github.com/a15hv/armvisor/board"

// Entry is one line of a guest's IRQ translation table.
type Entry struct {
	VIRQ    uint32
	PIRQ    uint32
	Mapped  bool
	Enabled bool
}

// Map is one guest's fixed PIRQ<->VIRQ translation table, indexed by
// PIRQ. Constructed once at setup and read-only thereafter (spec.md §5).
type Map struct {
	entries [board.MaxIRQs]Entry
}

// NewMap returns an empty translation table.
func NewMap() *Map {
	return &Map{}
}

// Bind records a PIRQ<->VIRQ pair, initially disabled.
func (m *Map) Bind(pirq, virq uint32) {
	m.entries[pirq] = Entry{PIRQ: pirq, VIRQ: virq, Mapped: true}
}

// ByPIRQ looks up the virtual IRQ bound to a physical IRQ.
func (m *Map) ByPIRQ(pirq uint32) (virq uint32, ok bool) {
	if int(pirq) >= len(m.entries) || !m.entries[pirq].Mapped {
		return 0, false
	}

	return m.entries[pirq].VIRQ, true
}

// ByVIRQ looks up the physical IRQ bound to a virtual IRQ by scanning
// the same backing array from the other side, per spec.md §3's "one
// table, looked up from either side."
func (m *Map) ByVIRQ(virq uint32) (pirq uint32, ok bool) {
	for _, e := range m.entries {
		if e.Mapped && e.VIRQ == virq {
			return e.PIRQ, true
		}
	}

	return 0, false
}

// Enable marks the binding for pirq as active.
func (m *Map) Enable(pirq uint32) {
	if int(pirq) < len(m.entries) {
		m.entries[pirq].Enabled = true
	}
}

// Disable marks the binding for pirq as inactive.
func (m *Map) Disable(pirq uint32) {
	if int(pirq) < len(m.entries) {
		m.entries[pirq].Enabled = false
	}
}

// IsEnabled reports whether pirq's binding is both mapped and enabled.
func (m *Map) IsEnabled(pirq uint32) bool {
	if int(pirq) >= len(m.entries) {
		return false
	}

	e := m.entries[pirq]

	return e.Mapped && e.Enabled
}
