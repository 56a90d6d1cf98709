// Package trapframe defines TrapContext: the saved register file and CSR
// snapshot every user task owns (spec §3). It is a leaf package — just
// data — so both internal/sched (which hands contexts around as part of a
// TaskHandle) and internal/trap (which mutates them across syscalls and
// traps) can depend on it without a cycle.
package trapframe

// Context is the per-task saved register file and CSR snapshot: spec §3's
// TrapContext. The dispatcher mutates it in place across syscalls. A
// syscall like exec may replace the running task's trap context, so the
// dispatcher does not hold a *Context across a syscall: it re-fetches the
// current one from the scheduler afterwards (spec B3).
type Context struct {
	// General-purpose registers x0..x31, as saved by the trampoline.
	X [32]uint64

	// Supervisor CSR snapshot.
	Sstatus uint64
	Sepc    uint64

	// Addresses needed to pivot between user and kernel execution.
	KernelSatp       uintptr // kernel page-table token
	KernelSP         uintptr // kernel stack pointer for this task
	TrapHandlerEntry uintptr // address of trap_handler in kernel space

	// UserSatp is the token for this task's own page table (spec's
	// "current_user_token").
	UserSatp uintptr
}

// A7 returns the syscall number register (spec §4.6.1: dispatch on a7).
func (c *Context) A7() uint64 { return c.X[17] }

// Arg returns syscall argument n (a0, a1, a2 map to n=0,1,2).
func (c *Context) Arg(n int) uint64 { return c.X[10+n] }

// SetReturn writes a syscall's result into a0.
func (c *Context) SetReturn(v uint64) { c.X[10] = v }

// AdvancePastEcall advances sepc past the 4-byte ecall instruction so
// returning to user mode does not re-execute it (spec §4.6.1).
func (c *Context) AdvancePastEcall() { c.Sepc += 4 }
