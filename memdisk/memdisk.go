package memdisk

import (
	"fmt"
	"io"
	"sync"

	"github.com/arourr/diskfat"
	"github.com/xaionaro-go/bytesextra"
)

// MemDisk is an in-memory disko.Disk backed by a fixed-size byte buffer.
// It's the library's stand-in for a real block device: small images used
// in tests and CLI dry-runs don't need a file on disk at all.
type MemDisk struct {
	mu          sync.Mutex
	stream      io.ReadWriteSeeker
	size        int64
	sectorSize  disko.SectorSize
	permissions disko.Permissions
}

// New creates a MemDisk of exactly size bytes, all zeroed, admitting the
// given SectorSize and Permissions.
func New(size int64, sectorSize disko.SectorSize, permissions disko.Permissions) *MemDisk {
	buf := make([]byte, size)
	return &MemDisk{
		stream:      bytesextra.NewReadWriteSeeker(buf),
		size:        size,
		sectorSize:  sectorSize,
		permissions: permissions,
	}
}

// NewFromBytes wraps an existing byte slice as a MemDisk without copying
// it. Writes to the MemDisk are writes to data.
func NewFromBytes(data []byte, sectorSize disko.SectorSize, permissions disko.Permissions) *MemDisk {
	return &MemDisk{
		stream:      bytesextra.NewReadWriteSeeker(data),
		size:        int64(len(data)),
		sectorSize:  sectorSize,
		permissions: permissions,
	}
}

func (d *MemDisk) checkRequest(sectorIndex int64, bufLen int) disko.DriverError {
	if !d.sectorSize.IsSupported(bufLen, d.size) {
		return disko.ErrInvalidSectorSize.WithMessage(
			fmt.Sprintf("sector size %d not supported by this disk", bufLen))
	}
	start := sectorIndex * int64(bufLen)
	if sectorIndex < 0 || start+int64(bufLen) > d.size {
		max := d.size / int64(bufLen)
		return disko.ErrInvalidSectorIndex.WithMessage(
			fmt.Sprintf("sector index %d out of range, max=%d", sectorIndex, max))
	}
	return nil
}

// ReadSector implements disko.Disk.
func (d *MemDisk) ReadSector(sectorIndex int64, buf []byte) disko.DriverError {
	if !d.permissions.Read {
		return disko.ErrInvalidPermission.WithMessage("disk is not readable")
	}
	if err := d.checkRequest(sectorIndex, len(buf)); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.stream.Seek(sectorIndex*int64(len(buf)), io.SeekStart); err != nil {
		return disko.ErrIOFailed.Wrap(err)
	}
	if _, err := io.ReadFull(d.stream, buf); err != nil {
		return disko.ErrIOFailed.Wrap(err)
	}
	return nil
}

// WriteSector implements disko.Disk.
func (d *MemDisk) WriteSector(sectorIndex int64, buf []byte) disko.DriverError {
	if !d.permissions.Write {
		return disko.ErrInvalidPermission.WithMessage("disk is not writable")
	}
	if err := d.checkRequest(sectorIndex, len(buf)); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.stream.Seek(sectorIndex*int64(len(buf)), io.SeekStart); err != nil {
		return disko.ErrIOFailed.Wrap(err)
	}
	if _, err := d.stream.Write(buf); err != nil {
		return disko.ErrIOFailed.Wrap(err)
	}
	return nil
}

// DiskInfos implements disko.Disk.
func (d *MemDisk) DiskInfos() disko.DiskInfos {
	return disko.DiskInfos{
		SectorSize:  d.sectorSize,
		DiskSize:    d.size,
		Permissions: d.permissions,
	}
}
