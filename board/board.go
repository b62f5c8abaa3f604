// Package board carries the platform address and size constants for
// the reference target: a Cortex-A15x2-class board with a GICv2
// distributor/CPU-interface pair, the same role
// platform-device/cortex_a15x2_arndale/main.c plays in the original
// source and machine/constants.go plays in gokvm.
package board

import "time"

// Physical addresses of the GICv2 distributor and CPU interface.
const (
	GICDistBase uint32 = 0x2C001000
	GICCPUBase  uint32 = 0x2C002000
)

// UARTBase is the guest-visible PL011 UART MMIO base.
const UARTBase uint32 = 0x1C090000

// GenericTimerBase is the MMIO base of the ARM generic timer frame used
// to arm the periodic scheduler tick when the system timer is accessed
// as MMIO rather than through CP15.
const GenericTimerBase uint32 = 0x2A830000

// IRQ space sizing. MaxIRQs follows the GIC's architectural interrupt ID
// ceiling (1020 usable IDs before the special/reserved range);
// MaxPPIIRQs is the boundary between private (SGI+PPI) and shared (SPI)
// interrupts.
const (
	MaxIRQs    = 1020
	MaxPPIIRQs = 32
)

// GuestVectorHigh is the ARM high-vectors IRQ entry. Architectural
// constant, not configuration (spec.md Design Notes).
const GuestVectorHigh uint32 = 0xFFFF0018

// GuestSchedTick is the default scheduler quantum.
const GuestSchedTick = 10 * time.Millisecond

// NumCPUs is the number of physical CPUs this reference platform
// presents.
const NumCPUs = 2

// SerialIRQ, VirtioNetIRQ-equivalents don't apply to this platform; the
// one fixed PIRQ assignment the core cares about is the UART's.
const UARTIRQ uint32 = 37
