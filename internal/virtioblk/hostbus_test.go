package virtioblk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"rvkernel/internal/frame"
	"rvkernel/internal/irqwait"
	"rvkernel/internal/mmio"
	"rvkernel/internal/plic"
	"rvkernel/internal/sched"
)

type memDisk struct {
	sectors map[uint64][]byte
	failID  uint64
	fail    bool
}

func newMemDisk() *memDisk { return &memDisk{sectors: make(map[uint64][]byte)} }

func (m *memDisk) ReadSector(id uint64, buf []byte) error {
	if m.fail && id == m.failID {
		return errors.New("simulated read failure")
	}
	if s, ok := m.sectors[id]; ok {
		copy(buf, s)
	} else {
		for i := range buf {
			buf[i] = 0
		}
	}
	return nil
}

func (m *memDisk) WriteSector(id uint64, buf []byte) error {
	if m.fail && id == m.failID {
		return errors.New("simulated write failure")
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	m.sectors[id] = cp
	return nil
}

func TestSimBusRoundTripsThroughBackingDisk(t *testing.T) {
	disk := newMemDisk()
	bus := NewSimBus(mmio.NewSimBus(), disk)
	p := plic.New(bus)
	s := sched.NewCooperative()
	wait := irqwait.NewForTest(s)
	pool := frame.NewPool(frame.PhysPageNum(2000), 16)
	d := New(bus, pool, p, wait)

	in := make([]byte, SectorSize)
	for i := range in {
		in[i] = byte(i)
	}
	require.NoError(t, d.WriteBlock(7, in))

	out := make([]byte, SectorSize)
	require.NoError(t, d.ReadBlock(7, out))
	require.Equal(t, in, out)
	require.Equal(t, in, disk.sectors[7], "SimBus must have actually persisted to the BackingDisk")
}

func TestSimBusSurfacesDiskErrorAsBlockError(t *testing.T) {
	disk := newMemDisk()
	disk.fail = true
	disk.failID = 3
	bus := NewSimBus(mmio.NewSimBus(), disk)
	p := plic.New(bus)
	s := sched.NewCooperative()
	wait := irqwait.NewForTest(s)
	pool := frame.NewPool(frame.PhysPageNum(2000), 16)
	d := New(bus, pool, p, wait)

	out := make([]byte, SectorSize)
	err := d.ReadBlock(3, out)
	var berr *BlockError
	require.ErrorAs(t, err, &berr)
	require.Equal(t, StatusIOErr, berr.Status)
}
