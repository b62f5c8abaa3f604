// Package hv is the top-level orchestrator: it owns every subsystem's
// instance and wires them together, the role vmm/vmm.go plays for
// gokvm's New/Init/Setup/Boot sequence, adapted to spec.md §5's "one
// thread per physical CPU" model instead of one OS thread per vCPU.
package hv

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/a15hv/armvisor/armregs"
	"github.com/a15hv/armvisor/board"
	"github.com/a15hv/armvisor/context"
	"github.com/a15hv/armvisor/gic"
	"github.com/a15hv/armvisor/hosttimer"
	"github.com/a15hv/armvisor/irqmap"
	"github.com/a15hv/armvisor/isr"
	"github.com/a15hv/armvisor/loader"
	"github.com/a15hv/armvisor/mmio"
	"github.com/a15hv/armvisor/sched"
	"github.com/a15hv/armvisor/status"
	"github.com/a15hv/armvisor/uartgate"
	"github.com/a15hv/armvisor/vdev"
	"github.com/a15hv/armvisor/vgic"
	"github.com/a15hv/armvisor/vmid"
)

// physicalUART adapts the PL011 MMIO region at board.UARTBase to
// uartgate.UART via the mmio package, the concrete backing device
// uartgate.Gate forwards an honored guest's accesses to.
type physicalUART struct{}

func (physicalUART) ReadReg(offset uint32, size int) uint32 {
	return mmio.Read32(board.UARTBase + offset)
}

func (physicalUART) WriteReg(offset uint32, size int, val uint32) {
	mmio.Write32(board.UARTBase+offset, val)
}

// Config is the fully resolved boot configuration, generalized from
// vmm.Config to this core's multi-guest, per-CPU-range model.
type Config struct {
	GuestImagePaths []string
	TickInterval    time.Duration
}

// cpuState is one physical CPU's private scheduler and ISR state; no
// field here is touched by any other goroutine, per spec.md §5.
type cpuState struct {
	id    int
	sched *sched.PerCPU
	isr   *isr.Table
	timer *hosttimer.Timer
}

// Hypervisor owns every guest's context, the shared interrupt
// translation tables, the virtual device registry, and one cpuState per
// physical CPU.
type Hypervisor struct {
	ctxMgr   *context.Manager
	maps     [vmid.MaxVMs]*irqmap.Map
	iface    *vgic.CPUInterface
	registry *vdev.Registry
	uart     *uartgate.Gate
	driver   *gic.Driver
	cpus     []*cpuState
	nGuests  int
	tick     time.Duration
}

// New loads every guest image, wires the vdev registry, and builds one
// cpuState per physical CPU, mirroring vmm.New + vmm.Init + vmm.Setup
// collapsed into a single constructor since this core has no
// asynchronous setup phase.
func New(cfg Config) (*Hypervisor, error) {
	if len(cfg.GuestImagePaths) == 0 {
		return nil, fmt.Errorf("hv: at least one guest image is required")
	}

	if len(cfg.GuestImagePaths) > vmid.MaxVMs {
		return nil, fmt.Errorf("hv: %d guests exceeds the maximum of %d", len(cfg.GuestImagePaths), vmid.MaxVMs)
	}

	ctxMgr := context.NewManager()

	var maps [vmid.MaxVMs]*irqmap.Map
	var images [vmid.MaxVMs]*loader.GuestImage

	for i := range maps {
		maps[i] = irqmap.NewMap()
	}

	for i, path := range cfg.GuestImagePaths {
		v := vmid.VMID(i)

		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("hv: opening guest image %s: %w", path, err)
		}

		img, err := loader.LoadELF(v, f)
		f.Close()

		if err != nil {
			return nil, fmt.Errorf("hv: loading guest image %s: %w", path, err)
		}

		images[i] = img
		ctxMgr.Reset(v, img.Entry)

		// Every configured guest is bound the platform UART IRQ as its
		// own VIRQ 1, enabled by default, so console output reaches it
		// once the UART gate grants that guest the console.
		maps[i].Bind(board.UARTIRQ, 1)
		maps[i].Enable(board.UARTIRQ)
	}

	iface := vgic.New()
	uart := uartgate.New(physicalUART{})
	registry := vdev.NewRegistry()
	registry.Register(vdev.High, iface)
	registry.Register(vdev.Mid, uart)
	registry.SetInstructionReader(func(pc uint32) ([]byte, bool) {
		for _, img := range images {
			if img == nil {
				continue
			}

			if word, ok := img.ReadAt(pc, 4); ok {
				return word, true
			}
		}

		return nil, false
	})

	for i := range cfg.GuestImagePaths {
		uart.Execute(0, i, 1, 0)
	}

	driver := gic.Init(board.GICDistBase, board.GICCPUBase)
	driver.Enable(board.UARTIRQ)
	driver.Configure(board.UARTIRQ, gic.LevelHigh, 0x01, 0xA0)

	h := &Hypervisor{
		ctxMgr:   ctxMgr,
		maps:     maps,
		iface:    iface,
		uart:     uart,
		registry: registry,
		driver:   driver,
		nGuests:  len(cfg.GuestImagePaths),
		tick:     cfg.TickInterval,
	}

	if h.tick == 0 {
		h.tick = board.GuestSchedTick
	}

	h.cpus = h.buildCPUs()

	return h, nil
}

// buildCPUs assigns guests to physical CPUs by simple contiguous range
// splitting across board.NumCPUs, the Go equivalent of the platform's
// fixed CPU-to-guest ownership mapping.
func (h *Hypervisor) buildCPUs() []*cpuState {
	nCPUs := board.NumCPUs
	if h.nGuests < nCPUs {
		nCPUs = h.nGuests
	}

	cpus := make([]*cpuState, nCPUs)
	perCPU := (h.nGuests + nCPUs - 1) / nCPUs

	for i := 0; i < nCPUs; i++ {
		first := vmid.VMID(i * perCPU)
		last := first + vmid.VMID(perCPU) - 1
		if int(last) >= h.nGuests {
			last = vmid.VMID(h.nGuests - 1)
		}

		cpus[i] = &cpuState{
			id:    i,
			sched: sched.NewPerCPU(first, last),
			isr:   isr.NewTable(h.driver, h.ctxMgr, h.iface, h.maps, i == 0),
			timer: hosttimer.New(),
		}
	}

	return cpus
}

// Boot spawns one goroutine per physical CPU, each dispatching its
// first owned guest and then driving that CPU's scheduler off a
// periodic timer tick, the Go stand-in for spec.md §5's "one thread per
// physical CPU" (gokvm pins a vCPU run loop per OS thread via
// runtime.LockOSThread in RunInfiniteLoop; here each goroutine owns its
// own scheduler and ISR state with no cross-goroutine locking).
func (h *Hypervisor) Boot() error {
	var wg sync.WaitGroup

	errs := make(chan error, len(h.cpus))

	for _, cpu := range h.cpus {
		wg.Add(1)

		go func(c *cpuState) {
			defer wg.Done()

			if err := h.runCPU(c); err != nil {
				errs <- fmt.Errorf("hv: cpu %d: %w", c.id, err)
			}
		}(cpu)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		return err
	}

	return nil
}

// runCPU dispatches c's first guest, then drives c's scheduler and ISR
// from the physical IRQ stream forever: each loop iteration polls the
// host GIC for the next physical interrupt (sleeping briefly when none
// is pending), lets the ISR classify/inject/pend it,
// and performs the scheduler's deferred switch at the trap-exit
// boundary that follows, the shape of machine.RunInfiniteLoop
// generalized from a vmexit loop to this core's IRQ-and-tick-driven
// round-robin.
func (h *Hypervisor) runCPU(c *cpuState) error {
	v, err := c.sched.Start(h.ctxMgr)
	if err != nil {
		return fmt.Errorf("starting first guest: %w", err)
	}

	h.iface.SetCurrent(v)
	h.uart.SetCurrent(v)
	c.isr.SetCurrent(v)
	c.isr.DrainPending(v)

	log.Printf("context: launching the first guest on cpu %d: vmid %x", c.id, v)

	// The timer goroutine only signals the tick; this loop applies it to
	// c.sched, so scheduler state stays confined to this goroutine.
	ticks := make(chan struct{}, 1)
	c.timer.Set(h.tick, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	})
	defer c.timer.Stop()

	live := &armregs.ArchRegs{}
	for {
		select {
		case <-ticks:
			c.sched.OnTimerTick()
		default:
		}

		kind := h.HandleIRQ(c.id, live)
		if kind == status.UnsupportedFeature {
			return fmt.Errorf("host gic reported an unsupported feature on cpu %d", c.id)
		}

		if kind == status.Ignored {
			time.Sleep(time.Microsecond)
		}

		switched, err := c.sched.OnTrapExit(h.ctxMgr, live)
		if err != nil {
			return fmt.Errorf("trap exit: %w", err)
		}

		if switched {
			v = c.sched.Current()
			h.iface.SetCurrent(v)
			h.uart.SetCurrent(v)
			c.isr.SetCurrent(v)
			c.isr.DrainPending(v)

			log.Printf("switching to vmid: %x", v)
		}
	}
}

// DispatchFault routes a trapped guest MMIO access through the vdev
// registry, whose modules act for the guest last passed to their
// SetCurrent, mirroring
// vdev_dispatch from spec.md §4.4.
func (h *Hypervisor) DispatchFault(faultAddr uint32, size int, write bool, val uint32, regs *armregs.ArchRegs) status.Kind {
	return h.registry.Dispatch(faultAddr, size, write, val, regs)
}

// HandleIRQ acknowledges the next pending physical interrupt from the
// host GIC and routes it through c's ISR table.
func (h *Hypervisor) HandleIRQ(c int, live *armregs.ArchRegs) status.Kind {
	cpu := h.cpus[c]
	pirq := h.driver.Ack()
	if pirq == gic.SpuriousIRQ {
		return status.Ignored
	}

	return cpu.isr.Handle(pirq, live)
}
