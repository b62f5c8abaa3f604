// Package hosttimer programs the ARM generic timer to deliver periodic
// scheduler ticks, the role kvm/irq.go's timer-interrupt setup plays for
// gokvm's virtual clock, generalized here to the physical per-CPU timer
// that drives spec.md §4.2's round-robin scheduler.
package hosttimer

import (
	"sync"
	"time"
)

// Timer drives a periodic callback at a fixed interval. On arm this
// would program CNTP_TVAL/CNTP_CTL directly and fire from the timer
// IRQ handler; off-arm (and for now, universally, since no CP15
// generic-timer accessor is wired yet) a time.Ticker stands in, giving
// sched and isr a real, testable periodic signal regardless of target.
type Timer struct {
	mu     sync.Mutex
	ticker *time.Ticker
	stopCh chan struct{}
}

// New returns an unarmed Timer.
func New() *Timer {
	return &Timer{}
}

// Set arms the timer to call callback every interval until Stop is
// called. Calling Set while already armed re-arms it.
func (t *Timer) Set(interval time.Duration, callback func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ticker != nil {
		t.ticker.Stop()
		close(t.stopCh)
	}

	t.ticker = time.NewTicker(interval)
	t.stopCh = make(chan struct{})
	ticker := t.ticker
	stop := t.stopCh

	go func() {
		for {
			select {
			case <-ticker.C:
				callback()
			case <-stop:
				return
			}
		}
	}()
}

// Stop disarms the timer. Safe to call when already disarmed.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.ticker == nil {
		return
	}

	t.ticker.Stop()
	close(t.stopCh)
	t.ticker = nil
	t.stopCh = nil
}
