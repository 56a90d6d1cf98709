// Package sched defines the scheduler contract the interrupt core consumes
// (spec §6, "Interfaces consumed from external collaborators") and provides
// one concrete single-hart cooperative scheduler implementing it, so the
// IRQ wait-queue, UART, and VirtIO block drivers have something real to
// park tasks on in tests. A production kernel may swap this out freely;
// C3–C6 depend only on the Scheduler interface below.
package sched

import "rvkernel/internal/trapframe"

// TaskID names a task. The wait-queue and scheduler both use it as the
// stable identity of a parked task; the TaskHandle carries the rest.
type TaskID uint64

// TaskHandle is the opaque, shared reference to a task control block the
// wait-queue holds while a task is parked (spec §3, "Task handle"). It
// carries just enough to re-enqueue on the scheduler's ready queue.
type TaskHandle struct {
	ID    TaskID
	trap  *trapframe.Context
	token uintptr // opaque user address-space token (user_satp equivalent)
}

// NewTaskHandle is exported for test harnesses and sched's own task table;
// production code obtains handles from the scheduler, never constructs
// them directly.
func NewTaskHandle(id TaskID, tc *trapframe.Context, token uintptr) *TaskHandle {
	return &TaskHandle{ID: id, trap: tc, token: token}
}

func (h *TaskHandle) TrapContext() *trapframe.Context { return h.trap }
func (h *TaskHandle) UserToken() uintptr              { return h.token }

// Scheduler is the contract the interrupt core requires (spec §6). Nothing
// in internal/irqwait, internal/uart, internal/virtioblk, or internal/trap
// depends on anything beyond this interface.
type Scheduler interface {
	// RunNext switches the hart to the next ready task, never returning to
	// the caller along the normal path (the caller's task is not runnable
	// again until something makes it ready and the scheduler picks it).
	RunNext()

	// ParkCurrentOnQueue takes the currently running task off the CPU and
	// hands its handle to sink, then calls RunNext. sink is the IRQ
	// wait-queue's enqueue function for the IRQ the task is blocking on.
	ParkCurrentOnQueue(sink func(*TaskHandle))

	// MakeReady appends handle to the ready queue. Safe to call from trap
	// context (interrupts disabled).
	MakeReady(handle *TaskHandle)

	// ExitCurrent terminates the running task with the given exit code and
	// switches to the next ready task.
	ExitCurrent(code int32)

	// CurrentTrapContext returns the trap context of the task currently
	// running on this hart. Must be re-queried after any syscall that may
	// have replaced the address space (spec §4.6.1, B3) — it is not safe
	// to cache across such a call.
	CurrentTrapContext() *trapframe.Context

	// CurrentUserToken returns the page-table token of the task currently
	// running on this hart.
	CurrentUserToken() uintptr
}
