package fat

import (
	"github.com/arourr/diskfat"
	"github.com/arourr/diskfat/borrow"
)

// Fat16 is a FAT16 volume bound to a backing disk.
type Fat16 struct {
	fatFs
}

// Fat16ReadFromDisk reads and decodes an existing FAT16 volume's boot
// sector. See Fat12ReadFromDisk for the sector-size probing rule.
func Fat16ReadFromDisk(disk disko.Disk, requestedSectorSize int) (*Fat16, bool, disko.DriverError) {
	registry := borrow.NewRegistry(disk)

	sectorSize := requestedSectorSize
	if sectorSize == 0 {
		sectorSize = pickSectorSize(disk.DiskInfos())
	}
	if sectorSize < 512 || !isPowerOfTwo(sectorSize) || sectorSize > 4096 {
		return nil, false, disko.ErrUnsupportedDiskSectorSize
	}

	sub, err := registry.Subdisk(0, int64(sectorSize), disko.ReadOnly)
	if err != nil {
		return nil, false, err
	}
	defer sub.Close()

	firstSector := make([]byte, sectorSize)
	if ioErr := sub.ReadSector(0, firstSector); ioErr != nil {
		return nil, false, ioErr
	}

	bpb, decErr := BpbFromBytes(firstSector[:BpbSize])
	if decErr != nil {
		return nil, false, disko.ErrIOFailed.Wrap(decErr)
	}
	if !bpb.IsValid() || int(bpb.BytesPerSector) != sectorSize {
		return nil, false, nil
	}

	return &Fat16{fatFs{bpb: *bpb, registry: registry, sectorSize: sectorSize, variant: Variant16}}, true, nil
}

// Fat16New formats disk as a fresh FAT16 volume. See Fat12New for
// parameter semantics.
func Fat16New(
	disk disko.Disk, rootDirEntries, numberOfFats, hiddenSectors, sectorSize, sectorsPerCluster int,
) (*Fat16, disko.DriverError) {
	registry := borrow.NewRegistry(disk)
	infos := disk.DiskInfos()

	chosenSectorSize := sectorSize
	if chosenSectorSize == 0 {
		chosenSectorSize = pickSectorSize(infos)
	}

	bpb, err := computeBpbLayout(bpbLayoutParams{
		DiskSize:          infos.DiskSize,
		RootDirEntries:    rootDirEntries,
		NumberOfFats:      numberOfFats,
		HiddenSectors:     int64(hiddenSectors),
		SectorSize:        chosenSectorSize,
		SectorsPerCluster: sectorsPerCluster,
		Variant:           Variant16,
	})
	if err != nil {
		return nil, err
	}

	if ioErr := formatVolume(registry, bpb, chosenSectorSize); ioErr != nil {
		return nil, ioErr
	}

	return &Fat16{fatFs{bpb: *bpb, registry: registry, sectorSize: chosenSectorSize, variant: Variant16}}, nil
}
