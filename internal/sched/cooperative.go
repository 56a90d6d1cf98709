package sched

import "rvkernel/internal/trapframe"

// Cooperative is a single-hart, round-robin Scheduler. It keeps the
// contract's bookkeeping but performs no stack switch: RunNext and
// ParkCurrentOnQueue update the ready queue and the current-task slot and
// then return to their caller. It exists so the rest of this repo (the IRQ
// wait-queue, the device drivers, the trap dispatcher) has something real
// to run against; production kernels are expected to replace it wholesale
// (spec: "Process/task control block internals, scheduler implementation
// ... are out of scope — the core only requires the scheduler's contract").
//
// It is not reentrant and assumes the single-hart, interrupts-disabled
// discipline the rest of the core already assumes (spec §5): callers
// synchronize with DisableInterrupts/EnableInterrupts around mutations, not
// with a mutex.
type Cooperative struct {
	ready   []*TaskHandle
	current *TaskHandle
	nextID  TaskID
	exited  map[TaskID]int32
}

// NewCooperative returns an empty scheduler with no ready tasks.
func NewCooperative() *Cooperative {
	return &Cooperative{exited: make(map[TaskID]int32)}
}

// Spawn creates a new ready task and returns its handle. Test harnesses
// use this; it has no counterpart in the Scheduler
// interface because process creation is explicitly out of this core's
// scope.
func (s *Cooperative) Spawn(tc *trapframe.Context, userToken uintptr) *TaskHandle {
	s.nextID++
	h := NewTaskHandle(s.nextID, tc, userToken)
	s.ready = append(s.ready, h)
	return h
}

// RunNext pops the next ready task and makes it current. If none are
// ready, current becomes nil (the idle state); callers that need a task to
// always be running should spawn an idle task.
func (s *Cooperative) RunNext() {
	if len(s.ready) == 0 {
		s.current = nil
		return
	}
	s.current = s.ready[0]
	s.ready = s.ready[1:]
}

// ParkCurrentOnQueue hands the running task's handle to sink (the IRQ
// wait-queue's enqueue function) and switches to the next ready task.
func (s *Cooperative) ParkCurrentOnQueue(sink func(*TaskHandle)) {
	if s.current == nil {
		return
	}
	parked := s.current
	s.current = nil
	sink(parked)
	s.RunNext()
}

// MakeReady appends handle to the tail of the ready queue, preserving FIFO
// order across repeated park/wake cycles (spec P4).
func (s *Cooperative) MakeReady(handle *TaskHandle) {
	s.ready = append(s.ready, handle)
}

// ExitCurrent records the exit code and switches away from the current
// task; it never becomes ready again.
func (s *Cooperative) ExitCurrent(code int32) {
	if s.current != nil {
		s.exited[s.current.ID] = code
		s.current = nil
	}
	s.RunNext()
}

// CurrentTrapContext returns the running task's trap context, or nil if
// the hart is idle.
func (s *Cooperative) CurrentTrapContext() *trapframe.Context {
	if s.current == nil {
		return nil
	}
	return s.current.TrapContext()
}

// CurrentUserToken returns the running task's page-table token.
func (s *Cooperative) CurrentUserToken() uintptr {
	if s.current == nil {
		return 0
	}
	return s.current.UserToken()
}

// Current exposes the running task's handle for callers (e.g. tests) that
// need the identity, not just the trap context.
func (s *Cooperative) Current() *TaskHandle { return s.current }

// ExitCode reports the exit code recorded for a task that has exited, and
// whether it has exited at all.
func (s *Cooperative) ExitCode(id TaskID) (int32, bool) {
	code, ok := s.exited[id]
	return code, ok
}

// ReadyLen reports how many tasks are currently ready, for tests.
func (s *Cooperative) ReadyLen() int { return len(s.ready) }
