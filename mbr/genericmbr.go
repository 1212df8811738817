package mbr

import (
	"github.com/arourr/diskfat"
	"github.com/arourr/diskfat/borrow"
	multierror "github.com/hashicorp/go-multierror"
)

// PartitionInfo is the human-friendly view of a single partition table
// entry's geometry, in the units GenericMbr addresses partitions with.
type PartitionInfo struct {
	LbaStart      uint32
	SizeInSectors uint32
	SectorSize    int
	PartitionType byte
}

// GenericMbr is a decoded Master Boot Record partition table bound to a
// backing disk through a borrow.Registry. All I/O against the disk
// goes through short-lived SubDisk loans so a GenericMbr never itself
// holds the disk busy between calls.
type GenericMbr struct {
	table      *RawMbr
	registry   *borrow.Registry
	sectorSize int64
}

func chooseSectorSize(disk disko.Disk, requested int) (int64, disko.DriverError) {
	if requested > 0 {
		return int64(requested), nil
	}
	size, ok := disk.DiskInfos().SectorSize.MinimalGE(RawMbrSize)
	if !ok {
		return 0, disko.ErrUnsupportedDiskSectorSize.WithMessage(
			"disk admits no sector size >= 512 bytes")
	}
	return int64(size), nil
}

// New creates a fresh, empty GenericMbr (zeroed bootstrap, no partitions,
// signature 0xAA55) bound to disk. requestedSectorSize may be 0 to let the
// disk's own SectorSize pick the smallest admissible size >= 512.
func New(disk disko.Disk, requestedSectorSize int) (*GenericMbr, disko.DriverError) {
	sectorSize, err := chooseSectorSize(disk, requestedSectorSize)
	if err != nil {
		return nil, err
	}

	table := &RawMbr{Signature: bootSignatureValue}
	return &GenericMbr{
		table:      table,
		registry:   borrow.NewRegistry(disk),
		sectorSize: sectorSize,
	}, nil
}

// ReadFromDisk reads sector 0 of disk and decodes it as a RawMbr. It
// returns ok=false (with no error) when the signature isn't 0xAA55 - that
// is not a malformed read, just "this disk has no MBR".
func ReadFromDisk(disk disko.Disk, requestedSectorSize int) (*GenericMbr, bool, disko.DriverError) {
	sectorSize, err := chooseSectorSize(disk, requestedSectorSize)
	if err != nil {
		return nil, false, err
	}

	registry := borrow.NewRegistry(disk)
	sub, subErr := registry.Subdisk(0, sectorSize, disko.ReadOnly)
	if subErr != nil {
		return nil, false, subErr
	}
	defer sub.Close()

	buf := make([]byte, sectorSize)
	if ioErr := sub.ReadSector(0, buf); ioErr != nil {
		return nil, false, diskErrFromIO(ioErr)
	}

	raw, parseErr := RawMbrFromBytes(buf)
	if parseErr != nil {
		return nil, false, disko.ErrIOFailed.Wrap(parseErr)
	}
	if !raw.HasValidSignature() {
		return nil, false, nil
	}

	return &GenericMbr{table: raw, registry: registry, sectorSize: sectorSize}, true, nil
}

// Write serializes the partition table to sector 0 of the backing disk.
// Any bytes of the sector buffer beyond the 512-byte RawMbr (when
// sectorSize > 512) are preserved from what's currently on disk.
func (m *GenericMbr) Write() disko.DriverError {
	sub, err := m.registry.Subdisk(0, m.sectorSize, disko.ReadWrite)
	if err != nil {
		return err
	}
	defer sub.Close()

	buf := make([]byte, m.sectorSize)
	if m.sectorSize > RawMbrSize {
		if ioErr := sub.ReadSector(0, buf); ioErr != nil {
			return diskErrFromIO(ioErr)
		}
	}
	copy(buf, m.table.ToBytes())

	if ioErr := sub.WriteSector(0, buf); ioErr != nil {
		return diskErrFromIO(ioErr)
	}
	return nil
}

func (m *GenericMbr) entryOverlaps(exceptIndex int, start, end uint64) bool {
	for i, entry := range m.table.Partitions {
		if i == exceptIndex || entry.IsEmpty() {
			continue
		}
		existingStart := uint64(entry.LbaFirst)
		existingEnd := existingStart + uint64(entry.SectorCount)
		if start < existingEnd && existingStart < end {
			return true
		}
	}
	return false
}

// CreatePartition overwrites partition table entry index with a new
// partition spanning [startSector, startSector+sizeInSectors).
func (m *GenericMbr) CreatePartition(
	index int, startSector, sizeInSectors uint64, partitionType byte,
) disko.DriverError {
	if index < 0 || index >= partitionCount {
		return disko.ErrInvalidPartitionIndex.WithMessage("index must be in [0,4)")
	}

	var verrs multierror.Error
	if startSector == 0 {
		verrs.Errors = append(verrs.Errors, disko.ErrOutOfRangeValue.WithMessage("start sector 0 is reserved for the MBR itself"))
	}
	endSector := startSector + sizeInSectors
	if startSector > 0xFFFFFFFF || sizeInSectors > 0xFFFFFFFF {
		verrs.Errors = append(verrs.Errors, disko.ErrOutOfRangeValue.WithMessage("start/size must fit in 32 bits"))
	}
	totalSectors := uint64(m.registry.DiskInfos().DiskSize) / uint64(m.sectorSize)
	if endSector > totalSectors {
		verrs.Errors = append(verrs.Errors, disko.ErrInvalidDiskSize.WithMessage("partition extends past the end of the disk"))
	}
	if m.entryOverlaps(index, startSector, endSector) {
		verrs.Errors = append(verrs.Errors, disko.ErrSpaceAlreadyInUse.WithMessage("partition overlaps an existing one"))
	}
	if verrs.Len() > 0 {
		return disko.ErrOutOfRangeValue.Wrap(verrs.ErrorOrNil())
	}

	m.table.Partitions[index] = MbrEntry{
		Status:        0x80,
		ChsFirst:      [3]byte{},
		PartitionType: partitionType,
		ChsLast:       [3]byte{},
		LbaFirst:      uint32(startSector),
		SectorCount:   uint32(sizeInSectors),
	}
	return nil
}

// GetPartition issues a SubDisk covering the byte range of partition
// table entry index.
func (m *GenericMbr) GetPartition(index int, perm disko.Permissions) (*borrow.SubDisk, disko.DriverError) {
	if index < 0 || index >= partitionCount {
		return nil, disko.ErrInvalidPartitionIndex.WithMessage("index must be in [0,4)")
	}
	entry := m.table.Partitions[index]
	start := int64(entry.LbaFirst) * m.sectorSize
	end := start + int64(entry.SectorCount)*m.sectorSize
	return m.registry.Subdisk(start, end, perm)
}

// PartitionInfos returns the decoded geometry of partition table entry
// index, or ok=false if index isn't in [0,4).
func (m *GenericMbr) PartitionInfos(index int) (PartitionInfo, bool) {
	if index < 0 || index >= partitionCount {
		return PartitionInfo{}, false
	}
	entry := m.table.Partitions[index]
	return PartitionInfo{
		LbaStart:      entry.LbaFirst,
		SizeInSectors: entry.SectorCount,
		SectorSize:    int(m.sectorSize),
		PartitionType: entry.PartitionType,
	}, true
}

// PartitionSize returns the size, in sectors, of partition table entry
// index, or ok=false if index isn't in [0,4).
func (m *GenericMbr) PartitionSize(index int) (uint32, bool) {
	info, ok := m.PartitionInfos(index)
	return info.SizeInSectors, ok
}

// PartitionStart returns the starting LBA of partition table entry index,
// or ok=false if index isn't in [0,4).
func (m *GenericMbr) PartitionStart(index int) (uint32, bool) {
	info, ok := m.PartitionInfos(index)
	return info.LbaStart, ok
}

// PartitionType returns the partition type byte of partition table entry
// index, or ok=false if index isn't in [0,4).
func (m *GenericMbr) PartitionType(index int) (byte, bool) {
	info, ok := m.PartitionInfos(index)
	return info.PartitionType, ok
}

// SetBootCode overwrites the 446-byte bootstrap region.
func (m *GenericMbr) SetBootCode(code [bootstrapSize]byte) {
	m.table.Bootstrap = code
}

// BootCode returns the current 446-byte bootstrap region.
func (m *GenericMbr) BootCode() [bootstrapSize]byte {
	return m.table.Bootstrap
}
