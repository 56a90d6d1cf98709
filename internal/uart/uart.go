// Package uart drives a 16550-compatible UART: line control, FIFO and
// receive-interrupt setup, polling transmit, and an IRQ-driven receive path
// that parks readers on the IRQ wait-queue (spec §4.4, C4). It is grounded
// on the teacher's uart_qemu.go — same ring-buffer-for-RX-under-IRQ shape —
// adapted from the teacher's PL011 registers to the 16550 layout spec §6
// specifies, and from its interrupt-driven *transmit* ring buffer (which
// this device's Put does not need, since spec treats TX as fire-and-forget
// polling) to an interrupt-driven *receive* FIFO instead.
package uart

import (
	"rvkernel/internal/irqwait"
	"rvkernel/internal/klog"
	"rvkernel/internal/mmio"
	"rvkernel/internal/plic"
	"rvkernel/internal/platform"
)

// Writer adapts a Driver to io.Writer so klog.SetOutput can target the
// console once it is up (spec §6's ambient logging surface), without
// internal/klog importing internal/uart back (uart already imports klog
// for its own panics).
type Writer struct{ d *Driver }

// AsWriter wraps d for use with klog.SetOutput or any other io.Writer
// consumer. Writes are polling Put calls, one byte at a time; never
// returns an error, matching the teacher's fire-and-forget console output.
func (d *Driver) AsWriter() Writer { return Writer{d: d} }

func (w Writer) Write(p []byte) (int, error) {
	for _, b := range p {
		w.d.Put(b)
	}
	return len(p), nil
}

const (
	lcrWordLength8 = 0b11
	fcrFIFOEnable  = 1 << 0
	ierRXAvailable = 1 << 0
	lcrDLAB        = 1 << 7
	lsrDataReady   = 1 << 0
)

// Driver is the 16550 UART: a register window, a software receive FIFO
// filled from hardware on interrupt, and the IRQ wait-queue readers block
// on (spec's UartState).
type Driver struct {
	regs *mmio.Region
	plic *plic.Plic
	wait *irqwait.Table

	rx []byte // software receive FIFO (spec: unbounded, overflow unspecified — §9 open question 1)
}

// New binds a UART driver to its MMIO window, the PLIC it acknowledges
// through, and the IRQ wait-queue it parks readers on.
func New(bus mmio.Bus, p *plic.Plic, wait *irqwait.Table) *Driver {
	d := &Driver{
		regs: mmio.NewRegion(platform.UART0Base, bus),
		plic: p,
		wait: wait,
	}
	wait.InitQueue(platform.IrqUART)
	return d
}

// Init programs 8-bit words, enables the FIFO and receive-data-available
// interrupt, and sets the divisor latch for the kept 115200-ish baud rate
// (spec §4.4, §6).
func (d *Driver) Init() {
	d.regs.Set8(platform.UartOffsetLCR, lcrWordLength8)
	d.regs.Set8(platform.UartOffsetFCR, fcrFIFOEnable)
	d.regs.Set8(platform.UartOffsetIER, ierRXAvailable)

	d.regs.Set8(platform.UartOffsetLCR, lcrWordLength8|lcrDLAB)
	d.regs.Set8(platform.UartOffsetData, byte(platform.UartDivisor&0xFF))
	d.regs.Set8(platform.UartOffsetIER, byte(platform.UartDivisor>>8))
	d.regs.Set8(platform.UartOffsetLCR, lcrWordLength8)
}

// Put writes one byte to the transmit holding register, polling-style; no
// blocking, TX is assumed to drain fast enough for console traffic (spec
// §4.4).
func (d *Driver) Put(b byte) {
	d.regs.Set8(platform.UartOffsetData, b)
}

// LineStatus exposes the raw LSR byte (supplemented introspection, spec
// §4 addendum), bit 0 of which is DataReady().
func (d *Driver) LineStatus() byte { return d.regs.Get8(platform.UartOffsetLSR) }

// DataReady reports the hardware data-ready bit.
func (d *Driver) DataReady() bool { return d.LineStatus()&lsrDataReady != 0 }

// Get returns the next received byte, parking the caller on the UART IRQ
// if the software FIFO is empty (spec §4.4's three-step Get).
func (d *Driver) Get() (byte, bool) {
	if b, ok := d.popRx(); ok {
		return b, true
	}
	d.wait.WaitAndYield(platform.IrqUART)
	// Resumed: re-check the software FIFO rather than hardware, since
	// OnInterrupt already drained whatever arrived into it. The wake may
	// have been spurious, or another reader may have already taken the
	// byte that woke us — both are normal, not errors (spec §4.4
	// observable contract, S6).
	return d.popRx()
}

// OnInterrupt is called from trap context when the PLIC claims the UART
// IRQ: drain the hardware receive register into the software FIFO while
// data is ready, then wake one parked reader. PLIC completion happens here
// explicitly, inside the driver (spec §4.4, §4.6.2).
func (d *Driver) OnInterrupt() {
	for d.DataReady() {
		d.rx = append(d.rx, d.drainOneFromHardware())
	}
	d.wait.WakeOneAndSchedule(platform.IrqUART)
	d.plic.Complete(platform.IrqUART)
}

// Append is the kernel-trap-path equivalent of OnInterrupt (spec §4.6.2:
// "invoke UART's append path ... PLIC complete is performed inside the
// driver"). Kept as a distinct name because the kernel-trap path never
// expects to wake a task (spec §5: no suspension from the kernel-trap
// path) — waking is still safe here (MakeReady does not yield), so Append
// delegates to the same logic rather than duplicating it.
func (d *Driver) Append() { d.OnInterrupt() }

func (d *Driver) popRx() (byte, bool) {
	if len(d.rx) == 0 {
		return 0, false
	}
	b := d.rx[0]
	d.rx = d.rx[1:]
	return b, true
}

func (d *Driver) drainOneFromHardware() byte {
	if !d.DataReady() {
		klog.Panic("uart: drainOneFromHardware called with LSR.DataReady clear")
	}
	return d.regs.Get8(platform.UartOffsetData)
}
