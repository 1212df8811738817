package borrow

import (
	"fmt"

	"github.com/arourr/diskfat"
)

// FragmentedSubDisk is a sector-addressable view built from an ordered list
// of disjoint parent byte ranges, presented as one continuous sector space.
type FragmentedSubDisk struct {
	registry   *Registry
	parts      []byteRange
	totalSize  int64
	sectorSize disko.SectorSize
	perm       disko.Permissions
	closed     bool
}

func (f *FragmentedSubDisk) checkDirection(wantRead bool) disko.DriverError {
	if wantRead && !f.perm.Read {
		return disko.ErrInvalidPermission.WithMessage("fragmented subdisk has no read permission")
	}
	if !wantRead && !f.perm.Write {
		return disko.ErrInvalidPermission.WithMessage("fragmented subdisk has no write permission")
	}
	return nil
}

// locate validates the request and returns the absolute parent sector index
// that sector (in the fragmented subdisk's own sector space) and buffer
// length bufLen translate to.
func (f *FragmentedSubDisk) locate(sector int64, bufLen int64) (int64, disko.DriverError) {
	if len(f.parts) == 0 {
		return 0, disko.ErrInvalidSectorIndex.WithMessage("sector index out of range, max=0")
	}
	if bufLen <= 0 {
		return 0, disko.ErrInvalidSectorSize.WithMessage("buffer length must be positive")
	}

	totalSectors := int64(0)
	fragmentSectors := make([]int64, len(f.parts))
	for i, part := range f.parts {
		size := part.End - part.Start
		if part.Start%bufLen != 0 || size%bufLen != 0 {
			return 0, disko.ErrInvalidSectorSize.WithMessage(
				fmt.Sprintf("fragment %d is not a multiple of buffer length %d", i, bufLen))
		}
		fragmentSectors[i] = size / bufLen
		totalSectors += fragmentSectors[i]
	}

	if sector < 0 || sector >= totalSectors {
		return 0, disko.ErrInvalidSectorIndex.WithMessage(
			fmt.Sprintf("sector index %d out of range, max=%d", sector, totalSectors))
	}

	remaining := sector
	for i, part := range f.parts {
		if remaining < fragmentSectors[i] {
			offset := part.Start + remaining*bufLen
			return offset / bufLen, nil
		}
		remaining -= fragmentSectors[i]
	}
	// Unreachable: the bounds check above guarantees sector falls in some
	// fragment.
	return 0, disko.ErrInvalidSectorIndex.WithMessage("sector index out of range")
}

// ReadSector implements disko.Disk.
func (f *FragmentedSubDisk) ReadSector(sector int64, buf []byte) disko.DriverError {
	if f.closed {
		return disko.ErrUnreachableDisk.WithMessage("fragmented subdisk has been closed")
	}
	if err := f.checkDirection(true); err != nil {
		return err
	}
	parentSector, err := f.locate(sector, int64(len(buf)))
	if err != nil {
		return err
	}
	disk, err := f.registry.diskIfAlive()
	if err != nil {
		return err
	}
	return disk.ReadSector(parentSector, buf)
}

// WriteSector implements disko.Disk.
func (f *FragmentedSubDisk) WriteSector(sector int64, buf []byte) disko.DriverError {
	if f.closed {
		return disko.ErrUnreachableDisk.WithMessage("fragmented subdisk has been closed")
	}
	if err := f.checkDirection(false); err != nil {
		return err
	}
	parentSector, err := f.locate(sector, int64(len(buf)))
	if err != nil {
		return err
	}
	disk, err := f.registry.diskIfAlive()
	if err != nil {
		return err
	}
	return disk.WriteSector(parentSector, buf)
}

// DiskInfos implements disko.Disk.
func (f *FragmentedSubDisk) DiskInfos() disko.DiskInfos {
	return disko.DiskInfos{
		SectorSize:  f.sectorSize,
		DiskSize:    f.totalSize,
		Permissions: f.perm,
	}
}

// Close releases every fragment's loans back to the registry. Safe to call
// more than once.
func (f *FragmentedSubDisk) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	for _, rng := range f.parts {
		if f.perm.Read {
			f.registry.releaseOne(rng, false)
		}
		if f.perm.Write {
			f.registry.releaseOne(rng, true)
		}
	}
	return nil
}
