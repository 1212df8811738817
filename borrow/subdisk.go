package borrow

import (
	"fmt"

	"github.com/arourr/diskfat"
)

// SubDisk is a sector-addressable view of a contiguous half-open byte
// range [Start, End) of a Registry's backing disk.
type SubDisk struct {
	registry   *Registry
	start      int64
	end        int64
	sectorSize disko.SectorSize
	perm       disko.Permissions
	closed     bool
}

func (s *SubDisk) checkDirection(wantRead bool) disko.DriverError {
	if wantRead && !s.perm.Read {
		return disko.ErrInvalidPermission.WithMessage("subdisk has no read permission")
	}
	if !wantRead && !s.perm.Write {
		return disko.ErrInvalidPermission.WithMessage("subdisk has no write permission")
	}
	return nil
}

// translate validates a (sector, buffer) request against the SubDisk's own
// declared range and SectorSize, and returns the absolute parent sector
// index to forward to: the buffer length must be one the SubDisk's
// SectorSize admits, the SubDisk's start must be a multiple of that
// length (so the math below divides evenly), and the whole sector at the
// translated offset must end at or before End.
func (s *SubDisk) translate(sector int64, buf []byte) (int64, disko.DriverError) {
	bufLen := int64(len(buf))
	size := s.end - s.start
	if bufLen <= 0 || !s.sectorSize.IsSupported(len(buf), size) || s.start%bufLen != 0 {
		return 0, disko.ErrInvalidSectorSize.WithMessage(
			fmt.Sprintf("buffer length %d is not a supported sector size for this subdisk", bufLen))
	}

	offset := s.start + bufLen*sector
	if sector < 0 || offset+bufLen > s.end {
		max := (s.end - s.start) / bufLen
		return 0, disko.ErrInvalidSectorIndex.WithMessage(
			fmt.Sprintf("sector index %d out of range, max=%d", sector, max))
	}
	return offset / bufLen, nil
}

// ReadSector implements disko.Disk.
func (s *SubDisk) ReadSector(sector int64, buf []byte) disko.DriverError {
	if s.closed {
		return disko.ErrUnreachableDisk.WithMessage("subdisk has been closed")
	}
	if err := s.checkDirection(true); err != nil {
		return err
	}
	parentSector, err := s.translate(sector, buf)
	if err != nil {
		return err
	}
	disk, err := s.registry.diskIfAlive()
	if err != nil {
		return err
	}
	return disk.ReadSector(parentSector, buf)
}

// WriteSector implements disko.Disk.
func (s *SubDisk) WriteSector(sector int64, buf []byte) disko.DriverError {
	if s.closed {
		return disko.ErrUnreachableDisk.WithMessage("subdisk has been closed")
	}
	if err := s.checkDirection(false); err != nil {
		return err
	}
	parentSector, err := s.translate(sector, buf)
	if err != nil {
		return err
	}
	disk, err := s.registry.diskIfAlive()
	if err != nil {
		return err
	}
	return disk.WriteSector(parentSector, buf)
}

// DiskInfos implements disko.Disk.
func (s *SubDisk) DiskInfos() disko.DiskInfos {
	return disko.DiskInfos{
		SectorSize:  s.sectorSize,
		DiskSize:    s.end - s.start,
		Permissions: s.perm,
	}
}

// Close releases this view's loans back to the registry. It is safe to
// call more than once; only the first call has an effect.
func (s *SubDisk) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	rng := byteRange{s.start, s.end}
	if s.perm.Read {
		s.registry.releaseOne(rng, false)
	}
	if s.perm.Write {
		s.registry.releaseOne(rng, true)
	}
	return nil
}
