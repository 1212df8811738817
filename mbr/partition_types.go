package mbr

// Well-known MBR partition type byte values. Recovered from the original
// source's partition_types table (see DESIGN.md / SPEC_FULL.md) - the
// distilled spec dropped the human-readable labels but kept the raw byte
// values in its on-disk layout, so surfacing them back is pure convenience
// for tooling, not a behavior change.
const (
	PartitionTypeEmpty       = 0x00
	PartitionTypeFat12       = 0x01
	PartitionTypeFat16Small  = 0x04
	PartitionTypeExtendedCHS = 0x05
	PartitionTypeFat16       = 0x06
	PartitionTypeNTFS        = 0x07
	PartitionTypeFat32CHS    = 0x0B
	PartitionTypeFat32LBA    = 0x0C
	PartitionTypeFat16LBA    = 0x0E
	PartitionTypeExtendedLBA = 0x0F
	PartitionTypeLinuxSwap   = 0x82
	PartitionTypeLinux       = 0x83
	PartitionTypeLinuxLVM    = 0x8E
	PartitionTypeGPTProtect  = 0xEE
)

var partitionTypeNames = map[byte]string{
	PartitionTypeEmpty:       "Empty",
	PartitionTypeFat12:       "FAT12",
	PartitionTypeFat16Small:  "FAT16 (< 32 MiB)",
	PartitionTypeExtendedCHS: "Extended (CHS)",
	PartitionTypeFat16:       "FAT16",
	PartitionTypeNTFS:        "NTFS / exFAT",
	PartitionTypeFat32CHS:    "FAT32 (CHS)",
	PartitionTypeFat32LBA:    "FAT32 (LBA)",
	PartitionTypeFat16LBA:    "FAT16 (LBA)",
	PartitionTypeExtendedLBA: "Extended (LBA)",
	PartitionTypeLinuxSwap:   "Linux swap",
	PartitionTypeLinux:       "Linux",
	PartitionTypeLinuxLVM:    "Linux LVM",
	PartitionTypeGPTProtect:  "GPT protective",
}

// PartitionTypeName returns a human-readable label for a partition type
// byte, or "Unknown" if it's not one of the well-known values above.
func PartitionTypeName(partitionType byte) string {
	if name, ok := partitionTypeNames[partitionType]; ok {
		return name
	}
	return "Unknown"
}
