package fat

import (
	"github.com/arourr/diskfat"
	"github.com/arourr/diskfat/borrow"
)

// formatVolume zeroes every reserved, FAT, and root-directory sector,
// then writes the boot sector itself.
func formatVolume(registry *borrow.Registry, bpb *BiosParameterBlock, sectorSize int) disko.DriverError {
	metadataSectors := int(bpb.ReservedSectorCount) + int(bpb.NumberOfFats)*int(bpb.FatSize) + bpb.RootDirSectors()

	view, err := registry.Subdisk(0, int64(metadataSectors)*int64(sectorSize), disko.ReadWrite)
	if err != nil {
		return err
	}
	defer view.Close()

	zero := make([]byte, sectorSize)
	for i := 0; i < metadataSectors; i++ {
		if err := view.WriteSector(int64(i), zero); err != nil {
			return err
		}
	}

	bootSector := make([]byte, sectorSize)
	copy(bootSector, bpb.ToBytes())
	return view.WriteSector(0, bootSector)
}
