package fat

import (
	"encoding/binary"

	"github.com/arourr/diskfat"
	"github.com/noxer/bytewriter"
)

// BpbSize is the fixed on-disk size of a FAT12/16 boot sector.
const BpbSize = 512

const (
	bpbFsTypeFat12    = "FAT12   "
	bpbFsTypeFat16    = "FAT16   "
	bpbVolumeLabel    = "NO NAME    "
	bpbSignatureValue = 0xAA55
	bpbMediaFixed     = 0xF8
	bpbBootSignature  = 0x29
)

var bpbJmpBoot = [3]byte{0xEB, 0xFE, 0x90}

// BiosParameterBlock is the FAT12/16 boot sector layout.
type BiosParameterBlock struct {
	JmpBoot             [3]byte
	OemName             [8]byte
	BytesPerSector      uint16
	SectorsPerCluster   uint8
	ReservedSectorCount uint16
	NumberOfFats        uint8
	RootEntriesCount    uint16
	TotalSectors16      uint16
	Media               uint8
	FatSize             uint16
	SectorsPerTrack     uint16
	NumberOfHeads       uint16
	HiddenSectors       uint32
	TotalSectors32      uint32
	DriveNumber         uint8
	Reserved0           uint8
	BootSignature       uint8
	VolumeID            uint32
	VolumeLabel         [11]byte
	FsType              [8]byte
	BootCode            [448]byte
	Signature           uint16
}

// BpbFromBytes decodes a 512-byte boot sector. buf must be exactly
// BpbSize bytes.
func BpbFromBytes(buf []byte) (*BiosParameterBlock, error) {
	if len(buf) != BpbSize {
		return nil, disko.ErrIOFailed.WithMessage("boot sector must be exactly 512 bytes")
	}

	var b BiosParameterBlock
	copy(b.JmpBoot[:], buf[0:3])
	copy(b.OemName[:], buf[3:11])
	b.BytesPerSector = binary.LittleEndian.Uint16(buf[11:13])
	b.SectorsPerCluster = buf[13]
	b.ReservedSectorCount = binary.LittleEndian.Uint16(buf[14:16])
	b.NumberOfFats = buf[16]
	b.RootEntriesCount = binary.LittleEndian.Uint16(buf[17:19])
	b.TotalSectors16 = binary.LittleEndian.Uint16(buf[19:21])
	b.Media = buf[21]
	b.FatSize = binary.LittleEndian.Uint16(buf[22:24])
	b.SectorsPerTrack = binary.LittleEndian.Uint16(buf[24:26])
	b.NumberOfHeads = binary.LittleEndian.Uint16(buf[26:28])
	b.HiddenSectors = binary.LittleEndian.Uint32(buf[28:32])
	b.TotalSectors32 = binary.LittleEndian.Uint32(buf[32:36])
	b.DriveNumber = buf[36]
	b.Reserved0 = buf[37]
	b.BootSignature = buf[38]
	b.VolumeID = binary.LittleEndian.Uint32(buf[39:43])
	copy(b.VolumeLabel[:], buf[43:54])
	copy(b.FsType[:], buf[54:62])
	copy(b.BootCode[:], buf[62:510])
	b.Signature = binary.LittleEndian.Uint16(buf[510:512])
	return &b, nil
}

// ToBytes serializes b into the canonical 512-byte boot sector.
func (b *BiosParameterBlock) ToBytes() []byte {
	buf := make([]byte, BpbSize)
	w := bytewriter.New(buf)

	_, _ = w.Write(b.JmpBoot[:])
	_, _ = w.Write(b.OemName[:])
	_ = binary.Write(w, binary.LittleEndian, b.BytesPerSector)
	_, _ = w.Write([]byte{b.SectorsPerCluster})
	_ = binary.Write(w, binary.LittleEndian, b.ReservedSectorCount)
	_, _ = w.Write([]byte{b.NumberOfFats})
	_ = binary.Write(w, binary.LittleEndian, b.RootEntriesCount)
	_ = binary.Write(w, binary.LittleEndian, b.TotalSectors16)
	_, _ = w.Write([]byte{b.Media})
	_ = binary.Write(w, binary.LittleEndian, b.FatSize)
	_ = binary.Write(w, binary.LittleEndian, b.SectorsPerTrack)
	_ = binary.Write(w, binary.LittleEndian, b.NumberOfHeads)
	_ = binary.Write(w, binary.LittleEndian, b.HiddenSectors)
	_ = binary.Write(w, binary.LittleEndian, b.TotalSectors32)
	_, _ = w.Write([]byte{b.DriveNumber})
	_, _ = w.Write([]byte{b.Reserved0})
	_, _ = w.Write([]byte{b.BootSignature})
	_ = binary.Write(w, binary.LittleEndian, b.VolumeID)
	_, _ = w.Write(b.VolumeLabel[:])
	_, _ = w.Write(b.FsType[:])
	_, _ = w.Write(b.BootCode[:])
	_ = binary.Write(w, binary.LittleEndian, b.Signature)

	return buf
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// Validate checks the boot sector's structural invariants and returns
// every violation found, rather than only the first.
func (b *BiosParameterBlock) Validate() disko.DriverError {
	var verrs disko.ValidationErrors

	if b.BytesPerSector < 512 || !isPowerOfTwo(int(b.BytesPerSector)) {
		verrs.Append(disko.ErrOutOfRangeValue.WithMessage("bytes_per_sector must be a power of two >= 512"))
	}
	if b.SectorsPerCluster == 0 || !isPowerOfTwo(int(b.SectorsPerCluster)) || b.SectorsPerCluster > 128 {
		verrs.Append(disko.ErrOutOfRangeValue.WithMessage("sectors_per_cluster must be a power of two <= 128"))
	}
	if b.BytesPerSector != 0 && int(b.RootEntriesCount)*32%int(b.BytesPerSector) != 0 {
		verrs.Append(disko.ErrOutOfRangeValue.WithMessage("root_entries_count * 32 must be a multiple of bytes_per_sector"))
	}
	if b.TotalSectors16 == 0 && b.TotalSectors32 == 0 {
		verrs.Append(disko.ErrOutOfRangeValue.WithMessage("either total_sectors_16 or total_sectors_32 must be nonzero"))
	}
	if b.Signature != bpbSignatureValue {
		verrs.Append(disko.ErrOutOfRangeValue.WithMessage("boot signature must be 0xAA55"))
	}

	return verrs.AsError()
}

// IsValid reports whether b satisfies every structural invariant
// Validate checks.
func (b *BiosParameterBlock) IsValid() bool {
	return b.Validate() == nil
}

// TotalSectors returns whichever of TotalSectors16/TotalSectors32 is in
// use.
func (b *BiosParameterBlock) TotalSectors() int {
	if b.TotalSectors16 != 0 {
		return int(b.TotalSectors16)
	}
	return int(b.TotalSectors32)
}

// RootDirSectors returns the number of sectors occupied by the root
// directory region.
func (b *BiosParameterBlock) RootDirSectors() int {
	return int(b.RootEntriesCount) * 32 / int(b.BytesPerSector)
}

// DataStartSector returns the first sector of the data region, where
// cluster numbering begins at 2.
func (b *BiosParameterBlock) DataStartSector() int {
	return int(b.ReservedSectorCount) +
		int(b.NumberOfFats)*int(b.FatSize) +
		b.RootDirSectors()
}

// CountOfClusters returns the number of addressable data clusters.
func (b *BiosParameterBlock) CountOfClusters() int {
	dataSectors := b.TotalSectors() - b.DataStartSector()
	if int(b.SectorsPerCluster) == 0 {
		return 0
	}
	return dataSectors / int(b.SectorsPerCluster)
}

// bpbLayoutParams is the input to computeBpbLayout.
type bpbLayoutParams struct {
	DiskSize          int64
	RootDirEntries    int
	NumberOfFats      int
	HiddenSectors     int64
	SectorSize        int
	SectorsPerCluster int
	Variant           Variant
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// minClusterCountTarget returns the divisor T, the creation-time target cluster
// count used to pick sectors_per_cluster when the caller didn't supply
// one.
func minClusterCountTarget(v Variant) int {
	if v == Variant12 {
		return 4085
	}
	return 65525
}

// computeBpbLayout synthesizes a BPB for a freshly formatted FAT12/16
// volume.
func computeBpbLayout(p bpbLayoutParams) (*BiosParameterBlock, disko.DriverError) {
	var verrs disko.ValidationErrors

	if p.SectorSize < 512 || !isPowerOfTwo(p.SectorSize) || p.SectorSize > 0xFFFF {
		verrs.Append(disko.ErrOutOfRangeValue.WithMessage("sector_size must be a power of two in [512, 0xFFFF]"))
	}
	if p.SectorSize > 0 && (p.RootDirEntries*32)%p.SectorSize != 0 {
		verrs.Append(disko.ErrOutOfRangeValue.WithMessage("root_dir_entries * 32 must be a multiple of sector_size"))
	}
	if p.NumberOfFats > 0xFF {
		verrs.Append(disko.ErrOutOfRangeValue.WithMessage("number_of_fats must fit in a byte"))
	}
	if p.RootDirEntries > 0xFFFF {
		verrs.Append(disko.ErrOutOfRangeValue.WithMessage("root_dir_entries must fit in 16 bits"))
	}
	if p.HiddenSectors > 0xFFFFFFFF {
		verrs.Append(disko.ErrOutOfRangeValue.WithMessage("hidden_sectors must fit in 32 bits"))
	}
	if err := verrs.AsError(); err != nil {
		return nil, err
	}

	rootDirSectors := p.RootDirEntries * 32 / p.SectorSize
	totalSectors := int(p.DiskSize) / p.SectorSize

	sectorsPerCluster := p.SectorsPerCluster
	if sectorsPerCluster == 0 {
		target := ceilDiv(totalSectors-rootDirSectors-1, minClusterCountTarget(p.Variant))
		sectorsPerCluster = nextPowerOfTwo(target)
	}

	if !isPowerOfTwo(sectorsPerCluster) || sectorsPerCluster > 0xFF || totalSectors > 0xFFFFFFFF {
		return nil, disko.ErrOutOfRangeValue.WithMessage(
			"sectors_per_cluster must be a power of two <= 0xFF and total_sectors must fit in 32 bits")
	}

	countOfClusters := (totalSectors - rootDirSectors - 1) / sectorsPerCluster

	var fatSize int
	if p.Variant == Variant12 {
		fatSize = ceilDiv(countOfClusters+countOfClusters/2, p.SectorSize)
	} else {
		fatSize = ceilDiv(countOfClusters*2, p.SectorSize)
	}

	countOfClusters = (totalSectors - rootDirSectors - fatSize*p.NumberOfFats - 1) / sectorsPerCluster
	reservedSectors := totalSectors - countOfClusters*sectorsPerCluster - fatSize*p.NumberOfFats - rootDirSectors

	if p.Variant == Variant12 {
		if countOfClusters > 4084 {
			return nil, disko.ErrOutOfRangeValue.WithMessage("FAT12 volume has too many clusters (> 4084)")
		}
	} else {
		if countOfClusters < 4085 || countOfClusters > 65524 {
			return nil, disko.ErrOutOfRangeValue.WithMessage("FAT16 cluster count must be in [4085, 65524]")
		}
	}

	var totalSectors16 uint16
	var totalSectors32 uint32
	if totalSectors < 0x10000 {
		totalSectors16 = uint16(totalSectors)
	} else {
		totalSectors32 = uint32(totalSectors)
	}

	fsType := bpbFsTypeFat16
	if p.Variant == Variant12 {
		fsType = bpbFsTypeFat12
	}

	var b BiosParameterBlock
	b.JmpBoot = bpbJmpBoot
	b.BytesPerSector = uint16(p.SectorSize)
	b.SectorsPerCluster = uint8(sectorsPerCluster)
	b.ReservedSectorCount = uint16(reservedSectors)
	b.NumberOfFats = uint8(p.NumberOfFats)
	b.RootEntriesCount = uint16(p.RootDirEntries)
	b.TotalSectors16 = totalSectors16
	b.Media = bpbMediaFixed
	b.FatSize = uint16(fatSize)
	b.TotalSectors32 = totalSectors32
	b.HiddenSectors = uint32(p.HiddenSectors)
	b.DriveNumber = 0x80
	b.BootSignature = bpbBootSignature
	copy(b.VolumeLabel[:], bpbVolumeLabel)
	copy(b.FsType[:], fsType)
	b.Signature = bpbSignatureValue

	if err := b.Validate(); err != nil {
		return nil, err
	}

	return &b, nil
}
