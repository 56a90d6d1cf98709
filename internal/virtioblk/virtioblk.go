// Package virtioblk drives a VirtIO block device (spec §4.5, C5): sector
// read/write over DMA-contiguous buffers, completion signaled by the BLOCK
// IRQ. It is grounded on the teacher's virtqueue.go (descriptor/free-list
// bookkeeping, kmalloc-backed DMA buffers, notify-then-poll-the-used-ring
// shape), simplified from a full split-queue ring to a single outstanding
// request slot — justified by spec §4.6.2's own description of the
// kernel-trap path as "a kernel-visible IRQ pending flag that the
// synchronous driver polls", which only makes sense for one request in
// flight at a time, and by §9 open question 3 asking for exactly this
// unification.
package virtioblk

import (
	"fmt"

	"rvkernel/internal/frame"
	"rvkernel/internal/irqwait"
	"rvkernel/internal/klog"
	"rvkernel/internal/mmio"
	"rvkernel/internal/plic"
	"rvkernel/internal/platform"
)

// SectorSize is the fixed block size this driver moves per operation.
const SectorSize = 512

// BlockStatus is the VirtIO block status byte, widened into a Go type so
// device errors become typed values instead of the reference's fatal abort
// (spec §7 item 3, §9 design note "panic-on-error in device paths").
type BlockStatus byte

const (
	StatusOK BlockStatus = iota
	StatusIOErr
	StatusUnsupp
	statusPending // internal: request submitted, device has not completed it
)

// BlockError reports a non-OK completion status from the device.
type BlockError struct {
	Status BlockStatus
}

func (e *BlockError) Error() string {
	switch e.Status {
	case StatusIOErr:
		return "virtioblk: device reported I/O error"
	case StatusUnsupp:
		return "virtioblk: device reported unsupported request"
	default:
		return fmt.Sprintf("virtioblk: device reported status %d", e.Status)
	}
}

// Header layout within a DMA-allocated page: request type (4 bytes),
// sector number as two little-endian 32-bit halves (8 bytes), one sector
// of payload, then a one-byte status the device writes on completion. This
// is a simplified single-page VirtIO blk request, not the full descriptor
// chain a real driver would build across separate header/data/status
// buffers — acceptable here because the spec's contract is behavioral
// (submit, wait, resume with buffer filled or error), not wire-exact.
const (
	offType   = 0
	offSector = 4
	offData   = 16
	offStatus = 16 + SectorSize

	reqTypeRead  = 0
	reqTypeWrite = 1
)

// request is one in-flight sector operation.
type request struct {
	write   bool
	blockID uint64
	buf     []byte // caller's buffer; filled in place on a completed read
	phys    frame.PhysPageNum
	region  *mmio.Region
}

// Driver is the VirtIO block device: its MMIO window, the frame allocator
// backing its DMA buffers, the PLIC it acknowledges through, and the IRQ
// wait-queue its blocking calls park on.
type Driver struct {
	regs *mmio.Region
	bus  mmio.Bus
	dma  frame.Allocator
	plic *plic.Plic
	wait *irqwait.Table

	busy    bool
	current *request
}

// New binds a block driver to its MMIO window, the frame pool its DMA
// buffers are carved from, the PLIC, and the IRQ wait-queue.
func New(bus mmio.Bus, dma frame.Allocator, p *plic.Plic, wait *irqwait.Table) *Driver {
	d := &Driver{
		regs: mmio.NewRegion(platform.VirtIOBase, bus),
		bus:  bus,
		dma:  dma,
		plic: p,
		wait: wait,
	}
	wait.InitQueue(platform.IrqBlock)
	return d
}

// ReadBlock issues a read for blockID and fills buf with the sector once
// the device completes it (spec §4.5).
func (d *Driver) ReadBlock(blockID uint64, buf []byte) error {
	return d.doBlock(blockID, buf, false)
}

// WriteBlock issues a write of buf to blockID (spec §4.5, symmetric to
// ReadBlock).
func (d *Driver) WriteBlock(blockID uint64, buf []byte) error {
	return d.doBlock(blockID, buf, true)
}

func (d *Driver) doBlock(blockID uint64, buf []byte, write bool) error {
	if len(buf) != SectorSize {
		klog.Panic("virtioblk: buffer must be exactly %d bytes, got %d", SectorSize, len(buf))
	}
	for d.busy {
		d.wait.WaitAndYield(platform.IrqBlock)
	}
	req := d.submit(blockID, buf, write)

	// Busy-wait-with-yield at the call site (spec §4.6.2's description of
	// the reference's actual behavior): poll the device-written status
	// byte directly rather than trusting a software flag toggled only by
	// OnInterrupt, since wake_one_and_schedule on a single shared BLOCK_IRQ
	// FIFO may wake this task for a notification that belongs to a
	// different request were there ever more than one in flight.
	for d.statusOf(req) == statusPending {
		d.wait.WaitAndYield(platform.IrqBlock)
	}
	return d.finish(req)
}

func (d *Driver) submit(blockID uint64, buf []byte, write bool) *request {
	base, ok := d.dma.Alloc(1)
	if !ok {
		klog.Panic("virtioblk: DMA frame pool exhausted allocating 1 page")
	}
	region := mmio.NewRegion(uintptr(base)*platform.PageSize, d.bus)

	reqType := uint32(reqTypeRead)
	if write {
		reqType = reqTypeWrite
	}
	region.Set32(offType, reqType)
	region.Set32(offSector, uint32(blockID))
	region.Set32(offSector+4, uint32(blockID>>32))
	region.Set8(offStatus, byte(statusPending))

	if write {
		for i, b := range buf {
			region.Set8(uintptr(offData+i), b)
		}
	}

	req := &request{write: write, blockID: blockID, buf: buf, phys: base, region: region}
	d.busy = true
	d.current = req

	d.regs.Set32(platform.VirtIOOffsetNotify, uint32(region.Base()))
	return req
}

func (d *Driver) statusOf(req *request) BlockStatus {
	return BlockStatus(req.region.Get8(offStatus))
}

func (d *Driver) finish(req *request) error {
	status := d.statusOf(req)
	if status == StatusOK && !req.write {
		for i := range req.buf {
			req.buf[i] = req.region.Get8(uintptr(offData + i))
		}
	}
	d.dma.Free(req.phys, 1)
	d.busy = false
	d.current = nil

	if status != StatusOK {
		return &BlockError{Status: status}
	}
	return nil
}

// OnInterrupt is called from trap context when the PLIC claims the BLOCK
// IRQ: wake one parked waiter so it re-polls, then complete the IRQ (spec
// §4.5). It does not itself inspect device state — the waiter's own
// busy-wait loop in doBlock does that, per the design note above.
func (d *Driver) OnInterrupt() {
	d.wait.WakeOneAndSchedule(platform.IrqBlock)
	d.plic.Complete(platform.IrqBlock)
}
