// Package plic drives the SiFive/QEMU-virt Platform-Level Interrupt
// Controller: enable/prioritize each known IRQ, then claim and complete
// them one at a time (spec §4.2). It is grounded on the teacher's GIC
// driver (gic_qemu.go) — same shape (disable, mask/priority sweep,
// enable), same claim/acknowledge/EOI triple — adapted from GICv2's
// distributor+CPU-interface split to the PLIC's flatter claim/complete
// register pair, and from core_engine/devices.PICDevice's GetInterruptVector
// + EOI pairing, which is the same claim/complete protocol on an 8259A.
package plic

import (
	"rvkernel/internal/klog"
	"rvkernel/internal/mmio"
	"rvkernel/internal/platform"
)

// Plic is the claim/complete interrupt router. It keeps no software state
// beyond the last claimed IRQ, used to enforce the one-claim-per-complete
// invariant (spec P1); everything else lives in hardware registers.
type Plic struct {
	priority  *mmio.Region
	enable    *mmio.Region
	threshold *mmio.Region
	claim     *mmio.Region

	pendingClaim platform.IrqID
	hasPending   bool
}

// New binds a Plic to its four MMIO windows. Production callers pass
// arch.NewHardwareBus(); tests pass an mmio.Bus fake that models the
// claim/complete register pair (see plic_test.go).
func New(bus mmio.Bus) *Plic {
	return &Plic{
		priority:  mmio.NewRegion(platform.PlicPriorityBase, bus),
		enable:    mmio.NewRegion(platform.PlicEnableBase, bus),
		threshold: mmio.NewRegion(platform.PlicThreshold, bus),
		claim:     mmio.NewRegion(platform.PlicClaim, bus),
	}
}

// Init sets the hart-0 S-mode threshold to 0, enables and prioritizes
// every IRQ in platform.KnownIRQs, matching spec §4.2's init().
func (p *Plic) Init() {
	p.threshold.Set32(0, platform.PlicThresholdValue)
	var enableBits uint32
	for _, irq := range platform.KnownIRQs {
		p.priority.Set32(uintptr(irq)*4, platform.PlicPriorityValue)
		enableBits |= 1 << uint(irq)
	}
	p.enable.Set32(0, enableBits)
}

// Next claims the highest-priority pending IRQ. A zero result means no IRQ
// is pending and is reported as (0, false) rather than as IrqID 0, because
// IrqID 0 is not a valid member of platform.KnownIRQs and the claim
// register reserves 0 for "nothing pending" (spec §4.2).
//
// Next has a side effect — it claims the IRQ in hardware — so a caller
// that drops a non-zero result without eventually calling Complete leaves
// that IRQ line permanently masked from future claims. Next panics if
// called again before the previous claim was completed, which would
// otherwise silently violate P1.
func (p *Plic) Next() (platform.IrqID, bool) {
	if p.hasPending {
		klog.Panic("plic: Next() called with unpaired outstanding claim on IRQ %d", p.pendingClaim)
	}
	v := p.claim.Get32(0)
	if v == 0 {
		return 0, false
	}
	irq := platform.IrqID(v)
	p.pendingClaim = irq
	p.hasPending = true
	return irq, true
}

// Complete re-arms irq, writing it back to the claim register. It panics
// if irq does not match the outstanding claim — a second complete, a
// complete with no matching claim, or completing the wrong IRQ are all
// programmer errors (spec P1).
func (p *Plic) Complete(irq platform.IrqID) {
	if !p.hasPending || p.pendingClaim != irq {
		klog.Panic("plic: Complete(%d) with no matching claim (hasPending=%v, pending=%d)", irq, p.hasPending, p.pendingClaim)
	}
	p.claim.Set32(0, uint32(irq))
	p.hasPending = false
}

// Priority reads back the configured priority for irq (supplemented
// introspection beyond spec's bare init/next/complete, used by tests).
func (p *Plic) Priority(irq platform.IrqID) uint32 {
	return p.priority.Get32(uintptr(irq) * 4)
}

// Threshold reads back the configured claim threshold.
func (p *Plic) Threshold() uint32 {
	return p.threshold.Get32(0)
}
