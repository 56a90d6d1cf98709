// Package arch contains the only assembly in this kernel: single-instruction
// volatile MMIO access and the handful of CSR/fence operations the trap
// dispatcher needs. Every device driver reaches hardware exclusively through
// HardwareBus, which implements mmio.Bus — the same choke-point discipline
// as the teacher's asm.MmioRead/MmioWrite pair.
package arch

// HardwareBus is the real-silicon mmio.Bus, backed by riscv64 assembly
// (see mmio_riscv64.s). It has no fields: every physical address is already
// absolute, so there is nothing to hold onto beyond the functions below.
type HardwareBus struct{}

// NewHardwareBus returns the bus device drivers bind their mmio.Region to
// when running on real (or QEMU-emulated) riscv64 hardware.
func NewHardwareBus() *HardwareBus { return &HardwareBus{} }
