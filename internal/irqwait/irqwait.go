// Package irqwait is the IRQ wait-queue (spec §4.3, C3): a per-IRQ FIFO of
// parked task handles, with the park/wake handoff between hard-irq context
// and task context. It is grounded on the teacher's interrupt-handler
// table (gic_qemu.go's interruptHandlers array plus
// registerInterruptHandler) generalized from "one callback per IRQ" to
// "one FIFO of waiters per IRQ", and on the single-hart "disable
// interrupts for the critical section" discipline spec §5 and §9 call for
// in place of a spinlock.
package irqwait

import (
	"rvkernel/internal/arch"
	"rvkernel/internal/klog"
	"rvkernel/internal/platform"
	"rvkernel/internal/sched"
)

// disabler is the arch.DisableInterrupts/EnableInterrupts pair, abstracted
// so tests can run on a host that has no sstatus CSR at all. Production
// code uses archDisabler; tests use a no-op (they already run single-
// threaded and synchronously, so there is nothing to race).
type disabler interface {
	Disable()
	Enable()
}

type archDisabler struct{}

func (archDisabler) Disable() { arch.DisableInterrupts() }
func (archDisabler) Enable()  { arch.EnableInterrupts() }

type noopDisabler struct{}

func (noopDisabler) Disable() {}
func (noopDisabler) Enable()  {}

// Table is the mapping from IrqID to an ordered FIFO of waiters (spec's
// IrqWaitTable). Queues are created once at driver init and never deleted.
type Table struct {
	sched    sched.Scheduler
	queues   map[platform.IrqID][]*sched.TaskHandle
	enqueued map[sched.TaskID]platform.IrqID // invariant (ii): a task is in at most one queue
	dis      disabler
}

// New builds an empty wait table bound to the given scheduler. Production
// callers get a disabler that actually toggles sstatus.SIE; NewForTest
// below is for host-side tests where there is no CSR to toggle.
func New(s sched.Scheduler) *Table {
	return newTable(s, archDisabler{})
}

// NewForTest builds a wait table that does not attempt to touch real
// interrupt-enable state — used throughout this repo's test suite, which
// runs on a host CPU with no sstatus CSR.
func NewForTest(s sched.Scheduler) *Table {
	return newTable(s, noopDisabler{})
}

func newTable(s sched.Scheduler, dis disabler) *Table {
	return &Table{
		sched:    s,
		queues:   make(map[platform.IrqID][]*sched.TaskHandle),
		enqueued: make(map[sched.TaskID]platform.IrqID),
		dis:      dis,
	}
}

// InitQueue idempotently ensures a FIFO exists for irq (spec's
// init_queue). Safe to call more than once.
func (t *Table) InitQueue(irq platform.IrqID) {
	if _, ok := t.queues[irq]; !ok {
		t.queues[irq] = nil
	}
}

// WaitAndYield takes the currently running task off the CPU, appends its
// handle to irq's FIFO, and hands control to the scheduler's RunNext.
// Callable only from task context with interrupts enabled (or about to be,
// via the context switch) — never from the kernel-trap path (spec §5).
func (t *Table) WaitAndYield(irq platform.IrqID) {
	t.dis.Disable()
	t.InitQueue(irq)
	t.sched.ParkCurrentOnQueue(func(h *sched.TaskHandle) {
		if prior, already := t.enqueued[h.ID]; already {
			klog.Panic("irqwait: task %d already parked on IRQ %d, cannot park on IRQ %d", h.ID, prior, irq)
		}
		t.queues[irq] = append(t.queues[irq], h)
		t.enqueued[h.ID] = irq
	})
	// The context switch inside ParkCurrentOnQueue does not return to this
	// task until it is woken and rescheduled. This function does not
	// re-enable interrupts, and neither does internal/trap: on riscv64,
	// sret restores sstatus.SIE on trap return, and the trampoline that
	// executes it is not part of this repository.
}

// WakeOneAndSchedule pops the front of irq's FIFO, if any, and hands it
// back to the scheduler as ready. Callable from trap context (interrupts
// disabled already).
func (t *Table) WakeOneAndSchedule(irq platform.IrqID) {
	q := t.queues[irq]
	if len(q) == 0 {
		return
	}
	h := q[0]
	t.queues[irq] = q[1:]
	delete(t.enqueued, h.ID)
	t.sched.MakeReady(h)
}

// Len reports how many tasks are parked on irq, for tests.
func (t *Table) Len(irq platform.IrqID) int { return len(t.queues[irq]) }
