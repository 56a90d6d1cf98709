//go:build riscv64

// Command kernel boots the interrupt and I/O coordination core this repo
// builds: it constructs the PLIC, UART, VirtIO block, and timer drivers
// over the real hardware bus, wires them into a trap dispatcher, and
// enters the idle loop. Process creation, the page-table/address-space
// layer, and the syscall table itself are out of this core's scope (spec
// §1) — main here boots exactly far enough to start taking traps.
package main

import (
	"rvkernel/internal/arch"
	"rvkernel/internal/frame"
	"rvkernel/internal/irqwait"
	"rvkernel/internal/klog"
	"rvkernel/internal/plic"
	"rvkernel/internal/sched"
	"rvkernel/internal/timer"
	"rvkernel/internal/trap"
	"rvkernel/internal/uart"
	"rvkernel/internal/virtioblk"
)

// noSyscalls is the placeholder syscall table: a real kernel built on this
// core supplies its own (spec §1's explicit non-goal), but the dispatcher
// still needs something to call through.
type noSyscalls struct{}

func (noSyscalls) Call(num uint64, args [3]uint64) uint64 { return 0 }

// timerInterval is the tick spacing the timer wheel rearms at; arbitrary
// until a real scheduler quantum is decided outside this core's scope.
const timerInterval = 10_000_000

func main() {
	bus := arch.NewHardwareBus()

	p := plic.New(bus)
	p.Init()

	s := sched.NewCooperative()
	wait := irqwait.New(s)

	u := uart.New(bus, p, wait)
	u.Init()
	klog.SetOutput(u.AsWriter())

	dma := frame.NewPool(frame.PhysPageNum(0x8800_0000>>12), 4096)
	block := virtioblk.New(bus, dma, p, wait)

	clock := arch.HardwareClock{}
	wheel := timer.New(clock, clock, timerInterval)

	_ = trap.New(s, p, u, block, wheel, noSyscalls{})

	arch.EnableSupervisorExternal()
	arch.EnableInterrupts()
	wheel.SetNextTrigger()

	idle()
}

// idle spins taking interrupts; the trampoline this core's trap entry
// points at (spec §4.6.1) is itself out of scope — UserTrap/KernelTrap are
// Go functions a real trampoline's assembly calls into once it has saved
// and restored the TrapContext.
func idle() {
	for {
		arch.WaitForInterrupt()
	}
}
