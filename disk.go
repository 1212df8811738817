package disko

// DiskInfos is a static description of a Disk: what sector sizes it
// accepts, how big it is, and what it may be used for.
type DiskInfos struct {
	SectorSize  SectorSize
	DiskSize    int64
	Permissions Permissions
}

// Disk is the sector-addressable storage contract every backing store and
// every view (SubDisk, FragmentedSubDisk, DiskWrapper) implements.
//
// ReadSector fills buf with the bytes starting at sectorIndex * len(buf);
// WriteSector is the write counterpart. The length of buf implicitly
// selects the sector size used for that call - implementations must reject
// lengths their SectorSize doesn't admit.
type Disk interface {
	// ReadSector reads len(buf) bytes starting at sectorIndex * len(buf)
	// into buf.
	ReadSector(sectorIndex int64, buf []byte) DriverError
	// WriteSector writes buf to the disk starting at
	// sectorIndex * len(buf).
	WriteSector(sectorIndex int64, buf []byte) DriverError
	// DiskInfos returns a snapshot of this disk's static properties.
	DiskInfos() DiskInfos
}
