//go:build riscv64

package arch

// load8/store8/... are implemented in mmio_riscv64.s as single-instruction
// volatile accesses. They must never be reordered or elided by the
// compiler, which is exactly what routing them through hand-written
// assembly (rather than *(*T)(unsafe.Pointer(addr))) guarantees.

//go:noescape
func load8(addr uintptr) uint8

//go:noescape
func store8(addr uintptr, v uint8)

//go:noescape
func load16(addr uintptr) uint16

//go:noescape
func store16(addr uintptr, v uint16)

//go:noescape
func load32(addr uintptr) uint32

//go:noescape
func store32(addr uintptr, v uint32)

func (HardwareBus) Load8(addr uintptr) uint8      { return load8(addr) }
func (HardwareBus) Store8(addr uintptr, v uint8)  { store8(addr, v) }
func (HardwareBus) Load16(addr uintptr) uint16    { return load16(addr) }
func (HardwareBus) Store16(addr uintptr, v uint16) { store16(addr, v) }
func (HardwareBus) Load32(addr uintptr) uint32    { return load32(addr) }
func (HardwareBus) Store32(addr uintptr, v uint32) { store32(addr, v) }
