package borrow_test

import (
	"testing"

	"github.com/arourr/diskfat"
	"github.com/arourr/diskfat/borrow"
	"github.com/arourr/diskfat/memdisk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *borrow.Registry {
	t.Helper()
	disk := memdisk.New(1<<20, disko.AllOfSizes(512), disko.ReadWrite)
	return borrow.NewRegistry(disk)
}

// S5 — aliasing across views.
func TestAliasingAcrossViews(t *testing.T) {
	r := newTestRegistry(t)

	s1, err := r.Subdisk(0, 4096, disko.ReadOnly)
	require.NoError(t, err)
	s2, err := r.Subdisk(2048, 6144, disko.ReadOnly)
	require.NoError(t, err)

	_, err = r.Subdisk(1024, 3072, disko.WriteOnly)
	assert.ErrorIs(t, err, disko.ErrBusy)

	require.NoError(t, s1.Close())
	require.NoError(t, s2.Close())

	s3, err := r.Subdisk(1024, 3072, disko.WriteOnly)
	assert.NoError(t, err)
	assert.NotNil(t, s3)
}

// S2 — overlap rejection, generalized to the registry's own aliasing rule
// rather than the MBR-table-level rule (see mbr package for that version).
func TestWriteLoanBlocksOverlappingRequests(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Subdisk(100, 300, disko.ReadWrite)
	require.NoError(t, err)

	_, err = r.Subdisk(150, 250, disko.ReadOnly)
	assert.ErrorIs(t, err, disko.ErrBusy)

	s, err := r.Subdisk(300, 350, disko.ReadWrite)
	assert.NoError(t, err)
	assert.NotNil(t, s)
}

func TestReadSharingAllowsMultipleReaders(t *testing.T) {
	r := newTestRegistry(t)

	s1, err := r.Subdisk(0, 1024, disko.ReadOnly)
	require.NoError(t, err)
	s2, err := r.Subdisk(512, 1536, disko.ReadOnly)
	require.NoError(t, err)

	assert.True(t, r.IsRBorrowed(0, 1024))
	assert.False(t, r.IsWBorrowed(0, 1024))

	require.NoError(t, s1.Close())
	require.NoError(t, s2.Close())
}

func TestSubdiskRejectsRangeBeyondDiskSize(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Subdisk(0, 1<<21, disko.ReadOnly)
	assert.ErrorIs(t, err, disko.ErrInvalidDiskSize)
}

// S6 — borrow cleanup.
func TestBorrowCleanupAfterArbitrarySequence(t *testing.T) {
	r := newTestRegistry(t)

	var views []interface{ Close() error }
	for i := 0; i < 8; i++ {
		start := int64(i * 512)
		v, err := r.Subdisk(start, start+512, disko.ReadWrite)
		require.NoError(t, err)
		views = append(views, v)
	}
	for _, v := range views {
		require.NoError(t, v.Close())
	}

	assert.False(t, r.IsRBorrowed(0, 1<<20))
	assert.False(t, r.IsWBorrowed(0, 1<<20))

	// Loan sets being empty means a full-disk write loan can now be issued.
	full, err := r.Subdisk(0, 1<<20, disko.ReadWrite)
	assert.NoError(t, err)
	require.NoError(t, full.Close())
}

func TestSubdiskReadWriteRoundTrip(t *testing.T) {
	r := newTestRegistry(t)
	s, err := r.Subdisk(4096, 8192, disko.ReadWrite)
	require.NoError(t, err)
	defer s.Close()

	buf := []byte("0123456789abcdef")
	padded := make([]byte, 512)
	copy(padded, buf)

	require.NoError(t, s.WriteSector(0, padded))

	readBack := make([]byte, 512)
	require.NoError(t, s.ReadSector(0, readBack))
	assert.Equal(t, padded, readBack)

	// Writing past the subdisk's own bound must fail.
	err = s.WriteSector(8, padded) // sector 8 * 512 = 4096, beyond the 4096-byte view
	assert.ErrorIs(t, err, disko.ErrInvalidSectorIndex)
}

func TestFragmentedSubdiskAtomicCommit(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Subdisk(1024, 1536, disko.WriteOnly)
	require.NoError(t, err)

	// Second part overlaps the existing write loan; nothing should commit.
	_, err = r.FragmentedSubdisk([][2]int64{{0, 512}, {1024, 1536}}, disko.ReadOnly)
	assert.ErrorIs(t, err, disko.ErrSpaceAlreadyInUse)

	// Confirm the first part did not get registered either.
	assert.False(t, r.IsRBorrowed(0, 512))
}

func TestFragmentedSubdiskEmptyPartsRejected(t *testing.T) {
	r := newTestRegistry(t)
	f, err := r.FragmentedSubdisk(nil, disko.ReadOnly)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 512)
	err = f.ReadSector(0, buf)
	assert.ErrorIs(t, err, disko.ErrInvalidSectorIndex)
}

func TestFragmentedSubdiskConcatenatesInOrder(t *testing.T) {
	r := newTestRegistry(t)

	f, err := r.FragmentedSubdisk([][2]int64{{0, 512}, {4096, 4608}, {8192, 8704}}, disko.ReadWrite)
	require.NoError(t, err)
	defer f.Close()

	assert.EqualValues(t, 1536, f.DiskInfos().DiskSize)

	for i, want := range []int64{0, 4096, 8192} {
		buf := make([]byte, 512)
		for j := range buf {
			buf[j] = byte(i + 1)
		}
		require.NoError(t, f.WriteSector(int64(i), buf))
		_ = want
	}

	readBack := make([]byte, 512)
	require.NoError(t, f.ReadSector(1, readBack))
	assert.Equal(t, byte(2), readBack[0])
}
