package fat

import (
	"github.com/arourr/diskfat"
	"github.com/arourr/diskfat/borrow"
)

// candidateSectorSizes is the fixed preference order layout synthesis
// uses when the caller doesn't pin a sector size.
var candidateSectorSizes = [...]int{512, 1024, 2048, 4096}

func pickSectorSize(infos disko.DiskInfos) int {
	for _, size := range candidateSectorSizes {
		if infos.SectorSize.IsSupported(size, infos.DiskSize) {
			return size
		}
	}
	return 0
}

// Fat12 is a FAT12 volume bound to a backing disk.
type Fat12 struct {
	fatFs
}

// Fat12ReadFromDisk reads and decodes an existing FAT12 volume's boot sector.
// requestedSectorSize may be 0 to probe the disk's own SectorSize for the
// smallest of {512,1024,2048,4096} it admits. Returns ok=false (no error)
// when the boot sector fails the BPB structural checks or records a
// bytes-per-sector other than that sector size. The FAT variant itself
// (fs_type, cluster count) is not checked.
func Fat12ReadFromDisk(disk disko.Disk, requestedSectorSize int) (*Fat12, bool, disko.DriverError) {
	registry := borrow.NewRegistry(disk)

	sectorSize := requestedSectorSize
	if sectorSize == 0 {
		sectorSize = pickSectorSize(disk.DiskInfos())
	}
	if sectorSize < 512 || !isPowerOfTwo(sectorSize) {
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

	return &Fat12{fatFs{bpb: *bpb, registry: registry, sectorSize: sectorSize, variant: Variant12}}, true, nil
}

// Fat12New formats disk as a fresh FAT12 volume and returns a
// handle to it. sectorSize and sectorsPerCluster may be 0 to let the
// layout synthesis choose them automatically.
func Fat12New(
	disk disko.Disk, rootDirEntries, numberOfFats, hiddenSectors, sectorSize, sectorsPerCluster int,
) (*Fat12, disko.DriverError) {
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
		Variant:           Variant12,
	})
	if err != nil {
		return nil, err
	}

	if ioErr := formatVolume(registry, bpb, chosenSectorSize); ioErr != nil {
		return nil, ioErr
	}

	return &Fat12{fatFs{bpb: *bpb, registry: registry, sectorSize: chosenSectorSize, variant: Variant12}}, nil
}
