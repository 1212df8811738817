package fat

import (
	"github.com/arourr/diskfat"
	"github.com/arourr/diskfat/borrow"
	"github.com/boljen/go-bitmap"
	"golang.org/x/exp/slices"
)

// sectorView is the common capability every view fatFs reads through -
// SubDisk and FragmentedSubDisk both satisfy it.
type sectorView interface {
	disko.Disk
	Close() error
}

// fatFs is the core shared by Fat12 and Fat16. Both wrapper types embed
// one and add only their constructors; variant-specific addressing and
// entry encoding are selected here by the variant field.
type fatFs struct {
	bpb        BiosParameterBlock
	registry   *borrow.Registry
	sectorSize int
	variant    Variant
}

// SectorSize returns the bytes-per-sector chosen at open/format time.
func (fs *fatFs) SectorSize() int {
	return fs.sectorSize
}

// BiosParameterBlock returns the volume's decoded boot sector.
func (fs *fatFs) BiosParameterBlock() BiosParameterBlock {
	return fs.bpb
}

// fatAddressing computes the sector number and within-sector byte offset
// of clusterIndex's entry in FAT copy fatCopyIndex.
func (fs *fatFs) fatAddressing(clusterIndex, fatCopyIndex int) (sectorNumber, offsetInSector int) {
	var fatOffset int
	if fs.variant == Variant12 {
		fatOffset = fat12EntryOffset(clusterIndex)
	} else {
		fatOffset = clusterIndex * 2
	}
	sectorNumber = int(fs.bpb.ReservedSectorCount) + fatOffset/fs.sectorSize + fatCopyIndex*int(fs.bpb.FatSize)
	offsetInSector = fatOffset % fs.sectorSize
	return
}

// totalFatEntries is the number of addressable FAT slots, including the
// two reserved entries at index 0 and 1.
func (fs *fatFs) totalFatEntries() int {
	return fs.bpb.CountOfClusters() + 2
}

func (fs *fatFs) checkFatIndices(clusterIndex, fatCopyIndex int) error {
	if clusterIndex < 0 || clusterIndex >= fs.totalFatEntries() || fatCopyIndex < 0 || fatCopyIndex >= int(fs.bpb.NumberOfFats) {
		return ErrIndexOutOfRange
	}
	return nil
}

// GetFatEntry decodes the FAT slot for clusterIndex in FAT copy
// fatCopyIndex.
func (fs *fatFs) GetFatEntry(clusterIndex, fatCopyIndex int) (FatEntry, error) {
	if err := fs.checkFatIndices(clusterIndex, fatCopyIndex); err != nil {
		return FatEntry{}, err
	}

	sectorNumber, offset := fs.fatAddressing(clusterIndex, fatCopyIndex)
	straddles := fs.variant == Variant12 && offset == fs.sectorSize-1

	sector := make([]byte, fs.sectorSize)
	if err := fs.registry.ReadSector(int64(sectorNumber), sector); err != nil {
		return FatEntry{}, err
	}

	var twoBytes [2]byte
	if straddles {
		twoBytes[0] = sector[offset]
		next := make([]byte, fs.sectorSize)
		if err := fs.registry.ReadSector(int64(sectorNumber+1), next); err != nil {
			return FatEntry{}, err
		}
		twoBytes[1] = next[0]
	} else {
		copy(twoBytes[:], sector[offset:offset+2])
	}

	if fs.variant == Variant12 {
		return decodeFat12Entry(twoBytes[:], clusterIndex)
	}
	return decodeFat16Entry(twoBytes[:])
}

// SetFatEntry writes value into the FAT slot for clusterIndex in FAT
// copy fatCopyIndex, preserving every bit belonging to a neighboring
// entry.
func (fs *fatFs) SetFatEntry(clusterIndex, fatCopyIndex int, value FatEntry) error {
	if err := fs.checkFatIndices(clusterIndex, fatCopyIndex); err != nil {
		return err
	}

	sectorNumber, offset := fs.fatAddressing(clusterIndex, fatCopyIndex)
	straddles := fs.variant == Variant12 && offset == fs.sectorSize-1

	sector := make([]byte, fs.sectorSize)
	if err := fs.registry.ReadSector(int64(sectorNumber), sector); err != nil {
		return err
	}

	var next []byte
	var twoBytes [2]byte
	if straddles {
		next = make([]byte, fs.sectorSize)
		if err := fs.registry.ReadSector(int64(sectorNumber+1), next); err != nil {
			return err
		}
		twoBytes[0] = sector[offset]
		twoBytes[1] = next[0]
	} else {
		copy(twoBytes[:], sector[offset:offset+2])
	}

	var encodeErr error
	if fs.variant == Variant12 {
		encodeErr = encodeFat12Entry(twoBytes[:], clusterIndex, value)
	} else {
		encodeErr = encodeFat16Entry(twoBytes[:], value)
	}
	if encodeErr != nil {
		return encodeErr
	}

	if straddles {
		sector[offset] = twoBytes[0]
		next[0] = twoBytes[1]
		if err := fs.registry.WriteSector(int64(sectorNumber), sector); err != nil {
			return err
		}
		return fs.registry.WriteSector(int64(sectorNumber+1), next)
	}

	sector[offset] = twoBytes[0]
	sector[offset+1] = twoBytes[1]
	return fs.registry.WriteSector(int64(sectorNumber), sector)
}

// clusterSectorRange returns the first and last-plus-one sector of
// clusterIndex's data: data_start_sector + (index-2)*spc.
func (fs *fatFs) clusterSectorRange(clusterIndex int) (first, end int) {
	first = fs.bpb.DataStartSector() + (clusterIndex-2)*int(fs.bpb.SectorsPerCluster)
	end = first + int(fs.bpb.SectorsPerCluster)
	return
}

// GetCluster returns a SubDisk spanning exactly one cluster's worth of
// sectors.
func (fs *fatFs) GetCluster(clusterIndex int, permissions disko.Permissions) (*borrow.SubDisk, error) {
	if clusterIndex < 2 || clusterIndex >= fs.totalFatEntries() {
		return nil, ErrIndexOutOfRange
	}
	first, end := fs.clusterSectorRange(clusterIndex)
	return fs.registry.Subdisk(int64(first)*int64(fs.sectorSize), int64(end)*int64(fs.sectorSize), permissions)
}

// GetRootDir returns a SubDisk spanning the root directory region.
func (fs *fatFs) GetRootDir(permissions disko.Permissions) (*borrow.SubDisk, error) {
	rootDirStart := (int(fs.bpb.ReservedSectorCount) + int(fs.bpb.NumberOfFats)*int(fs.bpb.FatSize)) * fs.sectorSize
	rootDirEnd := rootDirStart + ceilDiv(int(fs.bpb.RootEntriesCount)*32, fs.sectorSize)*fs.sectorSize
	return fs.registry.Subdisk(int64(rootDirStart), int64(rootDirEnd), permissions)
}

// CreateFragmentedSubdisk translates a list of cluster indices into their
// sector ranges and issues one FragmentedSubDisk covering all of them, in
// order.
func (fs *fatFs) CreateFragmentedSubdisk(clusters []int, permissions disko.Permissions) (*borrow.FragmentedSubDisk, error) {
	seen := bitmap.NewSlice(fs.totalFatEntries())
	parts := make([][2]int64, 0, len(clusters))

	for _, c := range clusters {
		if c < 2 || c >= fs.totalFatEntries() {
			return nil, ErrIndexOutOfRange
		}
		if seen.Get(c) {
			return nil, ErrInfiniteLoop
		}
		seen.Set(c, true)

		first, end := fs.clusterSectorRange(c)
		parts = append(parts, [2]int64{int64(first) * int64(fs.sectorSize), int64(end) * int64(fs.sectorSize)})
	}

	return fs.registry.FragmentedSubdisk(parts, permissions)
}

// GetClusterChain walks the FAT starting at firstCluster and returns a
// FragmentedSubDisk spanning every cluster in the chain, in order.
// A Free or Bad entry encountered before EOF is a hard error, never a
// silent stop (Open Question resolution, SPEC_FULL.md).
func (fs *fatFs) GetClusterChain(firstCluster int, permissions disko.Permissions) (*borrow.FragmentedSubDisk, error) {
	clusters := []int{firstCluster}
	seen := bitmap.NewSlice(fs.totalFatEntries())
	seen.Set(firstCluster, true)

	current, err := fs.GetFatEntry(firstCluster, 0)
	if err != nil {
		return nil, err
	}

	for !current.IsEOF() {
		if current.Kind != Allocated {
			return nil, ErrReservedValue
		}
		next := current.Next
		if next < 0 || next >= fs.totalFatEntries() {
			return nil, ErrIndexOutOfRange
		}
		if seen.Get(next) {
			return nil, ErrInfiniteLoop
		}
		seen.Set(next, true)
		clusters = append(clusters, next)

		current, err = fs.GetFatEntry(next, 0)
		if err != nil {
			return nil, err
		}
	}

	return fs.CreateFragmentedSubdisk(clusters, permissions)
}

// resolveDirectory walks dir's reverse path from the root directory,
// opening each level's cluster chain in turn, and returns a view onto
// the target directory's contents (Open Question: walk root to target,
// not target to root).
func (fs *fatFs) resolveDirectory(dir Directory) (sectorView, error) {
	current, err := fs.GetRootDir(disko.ReadOnly)
	if err != nil {
		return nil, err
	}
	var view sectorView = current

	path := dir.RevPath()
	for i := len(path) - 1; i >= 0; i-- {
		index := path[i]
		raw, err := fs.readDirSlot(view, index)
		if err != nil {
			view.Close()
			return nil, err
		}
		if !raw.IsValidShortNameEntry() {
			view.Close()
			return nil, ErrInvalidDirEntry
		}

		next, err := fs.GetClusterChain(raw.FirstCluster(), disko.ReadOnly)
		view.Close()
		if err != nil {
			return nil, err
		}
		view = next
	}

	return view, nil
}

func (fs *fatFs) readDirSlot(view sectorView, slotIndex int) (DirEntryRaw, error) {
	offset := slotIndex * dirEntrySize
	sectorIndex := offset / fs.sectorSize
	offsetInSector := offset % fs.sectorSize

	sector := make([]byte, fs.sectorSize)
	if err := view.ReadSector(int64(sectorIndex), sector); err != nil {
		return DirEntryRaw{}, err
	}
	return DirEntryRawFromBytes(sector[offsetInSector : offsetInSector+dirEntrySize]), nil
}

// LsDir resolves directory and returns the list of valid, non-long-name
// entries it contains, sorted by name. Each entry's ParentIndex keeps its
// on-disk slot index.
func (fs *fatFs) LsDir(directory Directory) ([]*DirEntry, error) {
	view, err := fs.resolveDirectory(directory)
	if err != nil {
		return nil, err
	}
	defer view.Close()

	infos := view.DiskInfos()
	slotsPerSector := fs.sectorSize / dirEntrySize
	totalSectors := infos.DiskSize / int64(fs.sectorSize)

	var entries []*DirEntry
	sector := make([]byte, fs.sectorSize)

scan:
	for s := int64(0); s < totalSectors; s++ {
		if err := view.ReadSector(s, sector); err != nil {
			return nil, err
		}
		for slot := 0; slot < slotsPerSector; slot++ {
			raw := DirEntryRawFromBytes(sector[slot*dirEntrySize : (slot+1)*dirEntrySize])
			if raw.IsEndOfDirectory() {
				break scan
			}
			if raw.IsFree() || raw.IsLongNameEntry() {
				continue
			}
			if !raw.IsValidShortNameEntry() {
				return nil, ErrInvalidDirEntry
			}

			index := int(s)*slotsPerSector + slot
			entries = append(entries, &DirEntry{
				Raw:         raw,
				Parent:      directory,
				ParentIndex: index,
				Name:        raw.ShortNameString(),
			})
		}
	}

	slices.SortFunc(entries, func(a, b *DirEntry) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})
	return entries, nil
}
