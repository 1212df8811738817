package memdisk

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/arourr/diskfat"
)

// FileDisk is a disko.Disk backed by an *os.File. On Linux it takes an
// advisory flock matching the requested Permissions for the lifetime of the
// FileDisk, giving the single-process borrow registry's aliasing guarantee
// a best-effort cross-process analogue; on other platforms locking is a
// no-op (see filedisk_linux.go / filedisk_other.go).
type FileDisk struct {
	mu          sync.Mutex
	file        *os.File
	size        int64
	sectorSize  disko.SectorSize
	permissions disko.Permissions
	unlock      func() error
}

// OpenFileDisk opens path as a FileDisk of exactly size bytes (the file is
// truncated or extended to match), admitting sectorSize and permissions.
func OpenFileDisk(
	path string, size int64, sectorSize disko.SectorSize, permissions disko.Permissions,
) (*FileDisk, error) {
	flag := os.O_RDONLY
	switch {
	case permissions.Read && permissions.Write:
		flag = os.O_RDWR
	case permissions.Write:
		flag = os.O_WRONLY
	}

	f, err := os.OpenFile(path, flag|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening disk image %q: %w", path, err)
	}
	if info, statErr := f.Stat(); statErr != nil || info.Size() != size {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("sizing disk image %q to %d bytes: %w", path, size, err)
		}
	}

	unlock, err := lockFile(f, permissions)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("locking disk image %q: %w", path, err)
	}

	return &FileDisk{
		file:        f,
		size:        size,
		sectorSize:  sectorSize,
		permissions: permissions,
		unlock:      unlock,
	}, nil
}

// Close releases the advisory lock and closes the underlying file.
func (d *FileDisk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.unlock != nil {
		_ = d.unlock()
	}
	return d.file.Close()
}

func (d *FileDisk) checkRequest(sectorIndex int64, bufLen int) disko.DriverError {
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
func (d *FileDisk) ReadSector(sectorIndex int64, buf []byte) disko.DriverError {
	if !d.permissions.Read {
		return disko.ErrInvalidPermission.WithMessage("disk is not readable")
	}
	if err := d.checkRequest(sectorIndex, len(buf)); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.file.ReadAt(buf, sectorIndex*int64(len(buf))); err != nil && err != io.EOF {
		return disko.ErrIOFailed.Wrap(err)
	}
	return nil
}

// WriteSector implements disko.Disk.
func (d *FileDisk) WriteSector(sectorIndex int64, buf []byte) disko.DriverError {
	if !d.permissions.Write {
		return disko.ErrInvalidPermission.WithMessage("disk is not writable")
	}
	if err := d.checkRequest(sectorIndex, len(buf)); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.file.WriteAt(buf, sectorIndex*int64(len(buf))); err != nil {
		return disko.ErrIOFailed.Wrap(err)
	}
	return nil
}

// DiskInfos implements disko.Disk.
func (d *FileDisk) DiskInfos() disko.DiskInfos {
	return disko.DiskInfos{
		SectorSize:  d.sectorSize,
		DiskSize:    d.size,
		Permissions: d.permissions,
	}
}
