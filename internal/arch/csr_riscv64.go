//go:build riscv64

package arch

// EnableSupervisorExternal sets sstatus.SIE and sie.SEIE so the PLIC can
// deliver external interrupts to this hart (spec §4.2, PLIC init()).
//
//go:noescape
func EnableSupervisorExternal()

// DisableInterrupts clears sstatus.SIE. The IRQ wait-queue's park/enqueue
// critical section runs with interrupts disabled this way for the whole of
// a single-hart implementation (spec §5, §9): there is no spinlock here
// because there is no second hart to race with.
//
//go:noescape
func DisableInterrupts()

// EnableInterrupts sets sstatus.SIE, re-arming interrupt delivery.
// cmd/kernel calls this once at boot; internal/trap does not call it.
//
//go:noescape
func EnableInterrupts()

// FenceI flushes the instruction cache. internal/trap does not call it:
// this repository has no trampoline return path, and the dispatcher's
// UserTrap/KernelTrap simply return to their caller.
//
//go:noescape
func FenceI()

// WaitForInterrupt issues WFI, halting the hart until the next interrupt.
// cmd/kernel's idle loop uses this instead of a busy spin.
//
//go:noescape
func WaitForInterrupt()
