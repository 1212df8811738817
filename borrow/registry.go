package borrow

import (
	"sync"

	"github.com/arourr/diskfat"
	"github.com/boljen/go-bitmap"
)

// byteRange is a half-open [Start, End) byte interval.
type byteRange struct {
	Start int64
	End   int64
}

func (r byteRange) overlaps(other byteRange) bool {
	return r.Start < other.End && other.Start < r.End
}

// bitmapBuckets bounds the number of bits the registry's fast pre-check
// bitmaps use, regardless of disk size - the bitmap is never the source of
// truth, only a cheap way to rule out "definitely no overlap" before paying
// for the authoritative linear scan over the loan lists.
const bitmapBuckets = 1 << 16

// Registry is the borrow registry (DiskWrapper): it owns a backing
// disko.Disk exclusively and tracks every outstanding read and write loan
// issued against it as a pair of interval multisets. All higher layers
// (MBR, FAT) consume only SubDisk/FragmentedSubDisk views issued here.
//
// A Registry is safe for concurrent use; the loan multisets and the
// backing disk are protected by a single mutex.
type Registry struct {
	mu     sync.Mutex
	disk   disko.Disk
	closed bool

	readLoans  []byteRange
	writeLoans []byteRange

	readBitmap  bitmap.Bitmap
	writeBitmap bitmap.Bitmap
	granule     int64
}

// NewRegistry wraps disk in a new Registry that exclusively owns it. Views
// issued by the registry hold a pointer back to it; once the registry is
// closed (see Close), those views become inert and report ErrUnreachableDisk
// on every call - the Go stand-in for the weak-handle upgrade failure the
// spec describes, since this toolchain has no stable public weak pointer.
func NewRegistry(disk disko.Disk) *Registry {
	diskSize := disk.DiskInfos().DiskSize
	granule := diskSize / bitmapBuckets
	if granule < 1 {
		granule = 1
	}
	bits := int(diskSize/granule) + 1
	return &Registry{
		disk:        disk,
		readBitmap:  bitmap.NewSlice(bits),
		writeBitmap: bitmap.NewSlice(bits),
		granule:     granule,
	}
}

// Close marks the registry destroyed. Outstanding views upgrade against a
// closed registry and fail with ErrUnreachableDisk from then on.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *Registry) bucketRange(rng byteRange) (int, int) {
	lo := int(rng.Start / r.granule)
	hi := int((rng.End - 1) / r.granule)
	return lo, hi
}

func (r *Registry) markBitmap(bm bitmap.Bitmap, rng byteRange) {
	lo, hi := r.bucketRange(rng)
	for i := lo; i <= hi; i++ {
		bm.Set(i, true)
	}
}

// mightOverlap is the fast pre-check: if no bit is set anywhere in rng's
// bucket span, rng definitely doesn't overlap anything registered in bm.
// A "true" result is not conclusive (bucketing can produce false positives
// for ranges that share a bucket without truly overlapping) and must be
// followed by the authoritative interval scan.
func (r *Registry) mightOverlap(bm bitmap.Bitmap, rng byteRange) bool {
	lo, hi := r.bucketRange(rng)
	for i := lo; i <= hi; i++ {
		if bm.Get(i) {
			return true
		}
	}
	return false
}

func anyOverlaps(loans []byteRange, rng byteRange) bool {
	for _, loan := range loans {
		if loan.overlaps(rng) {
			return true
		}
	}
	return false
}

func (r *Registry) overlapsReadLoans(rng byteRange) bool {
	return r.mightOverlap(r.readBitmap, rng) && anyOverlaps(r.readLoans, rng)
}

func (r *Registry) overlapsWriteLoans(rng byteRange) bool {
	return r.mightOverlap(r.writeBitmap, rng) && anyOverlaps(r.writeLoans, rng)
}

// IsRBorrowed reports whether any registered read loan overlaps [start,end).
func (r *Registry) IsRBorrowed(start, end int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overlapsReadLoans(byteRange{start, end})
}

// IsWBorrowed reports whether any registered write loan overlaps [start,end).
func (r *Registry) IsWBorrowed(start, end int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overlapsWriteLoans(byteRange{start, end})
}

func (r *Registry) checkAlive() disko.DriverError {
	if r.closed {
		return disko.ErrUnreachableDisk.WithMessage("registry has been closed")
	}
	return nil
}

// diskIfAlive returns the backing disk, locking and checking closed the
// same way Close sets it, so a view can never race a concurrent Close
// between deciding the registry is alive and using the disk it returns.
func (r *Registry) diskIfAlive() (disko.Disk, disko.DriverError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkAlive(); err != nil {
		return nil, err
	}
	return r.disk, nil
}

// wouldBeBusy applies the aliasing rule: a write loan conflicts with any
// overlapping loan (read or write); a read loan conflicts only with an
// overlapping write loan.
func (r *Registry) wouldBeBusy(rng byteRange, perm disko.Permissions) bool {
	if perm.Write && (r.overlapsReadLoans(rng) || r.overlapsWriteLoans(rng)) {
		return true
	}
	if perm.Read && r.overlapsWriteLoans(rng) {
		return true
	}
	return false
}

func (r *Registry) register(rng byteRange, perm disko.Permissions) {
	if perm.Read {
		r.readLoans = append(r.readLoans, rng)
		r.markBitmap(r.readBitmap, rng)
	}
	if perm.Write {
		r.writeLoans = append(r.writeLoans, rng)
		r.markBitmap(r.writeBitmap, rng)
	}
}

// releaseOne removes exactly one occurrence of rng from the loan set
// selected by isWrite, by exact-equality match. It is a no-op if no such
// occurrence exists. Closing the registry does not clear the loan lists,
// so views closed afterwards still release their ranges here.
func (r *Registry) releaseOne(rng byteRange, isWrite bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	loans := &r.readLoans
	if isWrite {
		loans = &r.writeLoans
	}
	for i, loan := range *loans {
		if loan == rng {
			*loans = append((*loans)[:i], (*loans)[i+1:]...)
			return
		}
	}
}

// Subdisk issues a SubDisk covering the contiguous parent byte range
// [start,end) with the given permissions. It fails with ErrBusy if
// granting the loan would violate the aliasing rule, or
// ErrInvalidDiskSize if end exceeds the backing disk's size.
func (r *Registry) Subdisk(start, end int64, perm disko.Permissions) (*SubDisk, disko.DriverError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkAlive(); err != nil {
		return nil, err
	}
	diskSize := r.disk.DiskInfos().DiskSize
	if end < start || end > diskSize {
		return nil, disko.ErrInvalidDiskSize.WithMessage("subdisk range exceeds backing disk")
	}

	rng := byteRange{start, end}
	if r.wouldBeBusy(rng, perm) {
		return nil, disko.ErrBusy.WithMessage("requested range overlaps an existing loan")
	}

	r.register(rng, perm)
	return &SubDisk{
		registry:   r,
		start:      start,
		end:        end,
		sectorSize: r.disk.DiskInfos().SectorSize,
		perm:       perm,
	}, nil
}

// FragmentedSubdisk issues a FragmentedSubDisk formed by concatenating the
// given disjoint parent byte ranges, in order. Every part is validated
// individually and all are committed atomically: nothing is registered
// unless every part passes.
func (r *Registry) FragmentedSubdisk(
	parts [][2]int64, perm disko.Permissions,
) (*FragmentedSubDisk, disko.DriverError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkAlive(); err != nil {
		return nil, err
	}
	diskSize := r.disk.DiskInfos().DiskSize

	ranges := make([]byteRange, 0, len(parts))
	var totalSize int64
	for _, p := range parts {
		start, end := p[0], p[1]
		if end < start || end > diskSize {
			return nil, disko.ErrInvalidDiskSize.WithMessage("fragment exceeds backing disk")
		}
		rng := byteRange{start, end}
		if r.wouldBeBusy(rng, perm) {
			return nil, disko.ErrSpaceAlreadyInUse.WithMessage("fragment overlaps an existing loan")
		}
		for _, already := range ranges {
			if already.overlaps(rng) {
				return nil, disko.ErrSpaceAlreadyInUse.WithMessage("fragments overlap each other")
			}
		}
		ranges = append(ranges, rng)
		totalSize += end - start
	}

	for _, rng := range ranges {
		r.register(rng, perm)
	}

	return &FragmentedSubDisk{
		registry:   r,
		parts:      ranges,
		totalSize:  totalSize,
		sectorSize: r.disk.DiskInfos().SectorSize,
		perm:       perm,
	}, nil
}

// ReadSector implements disko.Disk by forwarding to the backing disk,
// refusing with ErrBusy if the affected range overlaps an outstanding
// write loan.
func (r *Registry) ReadSector(sectorIndex int64, buf []byte) disko.DriverError {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkAlive(); err != nil {
		return err
	}
	start := sectorIndex * int64(len(buf))
	rng := byteRange{start, start + int64(len(buf))}
	if r.overlapsWriteLoans(rng) {
		return disko.ErrBusy.WithMessage("read overlaps an outstanding write loan")
	}
	return r.disk.ReadSector(sectorIndex, buf)
}

// WriteSector implements disko.Disk by forwarding to the backing disk,
// refusing with ErrBusy if the affected range overlaps any outstanding
// loan.
func (r *Registry) WriteSector(sectorIndex int64, buf []byte) disko.DriverError {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkAlive(); err != nil {
		return err
	}
	start := sectorIndex * int64(len(buf))
	rng := byteRange{start, start + int64(len(buf))}
	if r.overlapsReadLoans(rng) || r.overlapsWriteLoans(rng) {
		return disko.ErrBusy.WithMessage("write overlaps an outstanding loan")
	}
	return r.disk.WriteSector(sectorIndex, buf)
}

// DiskInfos implements disko.Disk by forwarding to the backing disk.
func (r *Registry) DiskInfos() disko.DiskInfos {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disk.DiskInfos()
}
