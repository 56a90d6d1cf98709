// Package platform holds the fixed physical layout of the QEMU RISC-V
// "virt" machine this kernel targets: MMIO base addresses, the static IRQ
// set, and the UART divisor. None of this is discovered at runtime — the
// teacher kernel hardcodes its Raspberry Pi / QEMU-virt addresses the same
// way (PERIPHERAL_BASE, QEMU_UART_BASE, the GIC IRQ IDs).
package platform

// IrqID identifies one of the kernel's statically known external
// interrupt sources.
type IrqID uint32

// The closed set of IRQs this kernel ever claims from the PLIC.
const (
	IrqKeyboard IrqID = 5
	IrqMouse    IrqID = 6
	IrqBlock    IrqID = 8
	IrqUART     IrqID = 10
)

// KnownIRQs lists every IRQ the PLIC is configured to route, in the order
// init() enables and prioritizes them.
var KnownIRQs = [...]IrqID{IrqKeyboard, IrqMouse, IrqBlock, IrqUART}

// MMIO physical bases, QEMU RISC-V "virt" machine layout.
const (
	UART0Base   uintptr = 0x1000_0000
	VirtIOBase  uintptr = 0x1000_8000
	PlicBase    uintptr = 0x0C00_0000
	PlicPriorityBase uintptr = PlicBase
	PlicEnableBase   uintptr = 0x0C00_2080 // hart 0, S-mode
	PlicThreshold    uintptr = 0x0C20_1000 // hart 0, S-mode
	PlicClaim        uintptr = 0x0C20_1004 // hart 0, S-mode
)

// UART 16550 register byte offsets from UART0Base.
const (
	UartOffsetData = 0 // RBR/THR, or DLL when LCR.DLAB=1
	UartOffsetIER  = 1 // interrupt enable, or DLM when LCR.DLAB=1
	UartOffsetFCR  = 2 // FIFO control
	UartOffsetLCR  = 3 // line control, bit 7 = DLAB
	UartOffsetLSR  = 5 // line status, bit 0 = data ready
)

// UartDivisor is the repo's kept 115200-ish baud divisor; see spec §4.4.
const UartDivisor = 592

// VirtIOOffsetNotify is a simplified queue-notify register: the driver
// writes the physical base of a just-submitted request header here. Real
// virtio-mmio devices have a much larger discovery/feature-negotiation
// register set; this core only needs the notify path, so the rest is
// deliberately not modeled.
const VirtIOOffsetNotify = 0x50

// PLIC fixed single-hart-context parameters.
const (
	PlicThresholdValue = 0
	PlicPriorityValue  = 1
	PlicContext        = 0
)

// Page size for frame-pool and DMA accounting.
const PageSize = 4096
