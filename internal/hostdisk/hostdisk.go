//go:build linux

// Package hostdisk provides host-side backing stores for
// internal/virtioblk's SimBus device model: a memory-mapped file, grounded
// on core_engine/vcpu.go's unix.Mmap of the KVM run page (here mapping a
// plain regular file instead of a vcpu fd), plus a raw pread/pwrite
// fallback for disks too large to map whole. internal/hostdisk/iouring.go
// adds a third, io_uring-based path. None of this runs on the target
// riscv64 build; it exists so the block driver can be exercised against
// real persistent storage from a host-run test or tool.
package hostdisk

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// SectorSize mirrors internal/virtioblk.SectorSize. Kept as an independent
// constant rather than an import so this package never has to depend on
// virtioblk (virtioblk already depends on the BackingDisk shape this
// package's types satisfy, not the reverse).
const SectorSize = 512

// MappedFile is a disk image held open as a memory-mapped regular file:
// ReadSector/WriteSector are plain slice copies against the mapping, with
// the kernel handling writeback.
type MappedFile struct {
	f    *os.File
	data []byte
}

// OpenMapped opens (creating if needed) a disk image of exactly sectors
// SectorSize-byte sectors and maps it in full.
func OpenMapped(path string, sectors int) (*MappedFile, error) {
	size := sectors * SectorSize
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("hostdisk: open %s: %w", path, err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("hostdisk: truncate %s: %w", path, err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("hostdisk: mmap %s: %w", path, err)
	}
	return &MappedFile{f: f, data: data}, nil
}

func (m *MappedFile) bounds(id uint64, n int) (int, error) {
	off := int(id) * SectorSize
	if off < 0 || off+n > len(m.data) {
		return 0, fmt.Errorf("hostdisk: sector %d out of range (disk has %d sectors)", id, len(m.data)/SectorSize)
	}
	return off, nil
}

// ReadSector copies one sector into buf.
func (m *MappedFile) ReadSector(id uint64, buf []byte) error {
	off, err := m.bounds(id, len(buf))
	if err != nil {
		return err
	}
	copy(buf, m.data[off:off+len(buf)])
	return nil
}

// WriteSector copies buf into the mapping at the given sector.
func (m *MappedFile) WriteSector(id uint64, buf []byte) error {
	off, err := m.bounds(id, len(buf))
	if err != nil {
		return err
	}
	copy(m.data[off:off+len(buf)], buf)
	return nil
}

// Close unmaps and closes the backing file.
func (m *MappedFile) Close() error {
	if err := unix.Munmap(m.data); err != nil {
		return err
	}
	return m.f.Close()
}

// PreadSector and PwriteSector are the raw-syscall fallback for disks not
// worth mapping whole — go-ublk's NBD server drives its backing file the
// same way, one pread/pwrite per request, rather than mmap'ing a
// potentially huge image.
func PreadSector(f *os.File, id uint64, buf []byte) error {
	n, err := unix.Pread(int(f.Fd()), buf, int64(id)*SectorSize)
	if err != nil {
		return fmt.Errorf("hostdisk: pread sector %d: %w", id, err)
	}
	if n != len(buf) {
		return fmt.Errorf("hostdisk: short pread on sector %d: got %d of %d bytes", id, n, len(buf))
	}
	return nil
}

func PwriteSector(f *os.File, id uint64, buf []byte) error {
	n, err := unix.Pwrite(int(f.Fd()), buf, int64(id)*SectorSize)
	if err != nil {
		return fmt.Errorf("hostdisk: pwrite sector %d: %w", id, err)
	}
	if n != len(buf) {
		return fmt.Errorf("hostdisk: short pwrite on sector %d: wrote %d of %d bytes", id, n, len(buf))
	}
	return nil
}
