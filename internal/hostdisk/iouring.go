//go:build linux

package hostdisk

import (
	"fmt"
	"os"

	iouring "github.com/behrlich/go-iouring"
)

// IOUringDisk is an alternate completion engine for sector I/O: each
// ReadSector/WriteSector submits one io_uring SQE against a plain file and
// blocks on SubmitAndWait for the matching CQE, instead of completing in
// the calling goroutine the way MappedFile's slice copy does. It exists to
// exercise virtioblk.SimBus's notify-triggers-completion path with a real
// asynchronous completion source on a host that has no VirtIO silicon to
// raise one.
type IOUringDisk struct {
	f    *os.File
	ring *iouring.Ring
	tag  uint64
}

// OpenIOUring opens (creating if needed) a disk image of sectors
// SectorSize-byte sectors and an io_uring instance to drive I/O against it.
func OpenIOUring(path string, sectors int) (*IOUringDisk, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("hostdisk: open %s: %w", path, err)
	}
	if err := f.Truncate(int64(sectors) * SectorSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("hostdisk: truncate %s: %w", path, err)
	}
	ring, err := iouring.New(8)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("hostdisk: new ring: %w", err)
	}
	return &IOUringDisk{f: f, ring: ring}, nil
}

func (d *IOUringDisk) ReadSector(id uint64, buf []byte) error {
	return d.submitAndWait(func(tag uint64) error {
		return d.ring.PrepRead(int(d.f.Fd()), buf, id*SectorSize, tag)
	})
}

func (d *IOUringDisk) WriteSector(id uint64, buf []byte) error {
	return d.submitAndWait(func(tag uint64) error {
		return d.ring.PrepWrite(int(d.f.Fd()), buf, id*SectorSize, tag)
	})
}

func (d *IOUringDisk) submitAndWait(prep func(tag uint64) error) error {
	d.tag++
	tag := d.tag
	if err := prep(tag); err != nil {
		return fmt.Errorf("hostdisk: prep sqe: %w", err)
	}
	if _, err := d.ring.SubmitAndWait(1); err != nil {
		return fmt.Errorf("hostdisk: submit: %w", err)
	}
	userData, res, _, ok := d.ring.PeekCQE()
	if !ok {
		return fmt.Errorf("hostdisk: no cqe after SubmitAndWait")
	}
	d.ring.SeenCQE()
	if userData != tag {
		return fmt.Errorf("hostdisk: unexpected completion tag %d, want %d", userData, tag)
	}
	if res < 0 {
		return fmt.Errorf("hostdisk: io_uring op failed: errno %d", -res)
	}
	return nil
}

// Close tears down the ring and closes the backing file.
func (d *IOUringDisk) Close() error {
	if err := d.ring.Close(); err != nil {
		d.f.Close()
		return err
	}
	return d.f.Close()
}
