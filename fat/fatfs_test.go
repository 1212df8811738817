package fat_test

import (
	"testing"

	"github.com/arourr/diskfat"
	"github.com/arourr/diskfat/fat"
	"github.com/arourr/diskfat/memdisk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFat12Disk(t *testing.T, sectors int) disko.Disk {
	t.Helper()
	return memdisk.New(int64(sectors)*512, disko.AllOfSizes(512), disko.ReadWrite)
}

// FAT12 entry codec round trip, including the straddle case where a
// cluster's 12-bit entry spans two sectors.
func TestFat12EntryRoundTripAtStraddleBoundary(t *testing.T) {
	disk := newFat12Disk(t, 600)
	fs, err := fat.Fat12New(disk, 16, 1, 0, 512, 1)
	require.NoError(t, err)

	// fat12EntryOffset(341) = 341 + 170 = 511, the last byte of sector 0
	// of the FAT - its entry straddles into sector 1.
	before340, err := fs.GetFatEntry(340, 0)
	require.NoError(t, err)
	assert.Equal(t, fat.Free, before340.Kind)

	require.NoError(t, fs.SetFatEntry(341, 0, fat.AllocatedEntry(0x123)))
	require.NoError(t, fs.SetFatEntry(342, 0, fat.AllocatedEntry(0x456)))

	got341, err := fs.GetFatEntry(341, 0)
	require.NoError(t, err)
	assert.Equal(t, fat.AllocatedEntry(0x123), got341)

	got342, err := fs.GetFatEntry(342, 0)
	require.NoError(t, err)
	assert.Equal(t, fat.AllocatedEntry(0x456), got342)

	// Neighboring entries must be untouched by either write.
	after340, err := fs.GetFatEntry(340, 0)
	require.NoError(t, err)
	assert.Equal(t, fat.Free, after340.Kind)

	entry343, err := fs.GetFatEntry(343, 0)
	require.NoError(t, err)
	assert.Equal(t, fat.Free, entry343.Kind)
}

func TestFat12EntryCodecAllKinds(t *testing.T) {
	disk := newFat12Disk(t, 600)
	fs, err := fat.Fat12New(disk, 16, 1, 0, 512, 1)
	require.NoError(t, err)

	cases := []fat.FatEntry{
		fat.FreeEntry(),
		fat.AllocatedEntry(100),
		fat.BadEntry(),
		fat.EOFEntry(),
	}
	for i, want := range cases {
		cluster := 10 + i
		require.NoError(t, fs.SetFatEntry(cluster, 0, want))
		got, err := fs.GetFatEntry(cluster, 0)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

// S4 — chain traversal.
func TestGetClusterChainTraversal(t *testing.T) {
	disk := newFat12Disk(t, 4096)
	fs, err := fat.Fat12New(disk, 16, 2, 0, 512, 0)
	require.NoError(t, err)

	spc := int(fs.BiosParameterBlock().SectorsPerCluster)

	require.NoError(t, fs.SetFatEntry(2, 0, fat.AllocatedEntry(3)))
	require.NoError(t, fs.SetFatEntry(3, 0, fat.AllocatedEntry(5)))
	require.NoError(t, fs.SetFatEntry(5, 0, fat.EOFEntry()))

	for i, cluster := range []int{2, 3, 5} {
		sub, err := fs.GetCluster(cluster, disko.ReadWrite)
		require.NoError(t, err)
		buf := make([]byte, 512)
		for j := range buf {
			buf[j] = byte(i + 1)
		}
		for s := 0; s < spc; s++ {
			require.NoError(t, sub.WriteSector(int64(s), buf))
		}
		require.NoError(t, sub.Close())
	}

	chain, err := fs.GetClusterChain(2, disko.ReadOnly)
	require.NoError(t, err)
	defer chain.Close()

	assert.EqualValues(t, 3*spc*512, chain.DiskInfos().DiskSize)

	for i := 0; i < 3; i++ {
		for s := 0; s < spc; s++ {
			buf := make([]byte, 512)
			require.NoError(t, chain.ReadSector(int64(i*spc+s), buf))
			for _, b := range buf {
				assert.Equal(t, byte(i+1), b)
			}
		}
	}
}

func TestGetClusterChainRejectsFreeMidChain(t *testing.T) {
	disk := newFat12Disk(t, 600)
	fs, err := fat.Fat12New(disk, 16, 1, 0, 512, 1)
	require.NoError(t, err)

	require.NoError(t, fs.SetFatEntry(2, 0, fat.AllocatedEntry(3)))
	// cluster 3 left Free - a Free entry mid-chain must be a hard error.

	_, err = fs.GetClusterChain(2, disko.ReadOnly)
	assert.ErrorIs(t, err, fat.ErrReservedValue)
}

func TestGetClusterChainRejectsCycle(t *testing.T) {
	disk := newFat12Disk(t, 600)
	fs, err := fat.Fat12New(disk, 16, 1, 0, 512, 1)
	require.NoError(t, err)

	require.NoError(t, fs.SetFatEntry(2, 0, fat.AllocatedEntry(3)))
	require.NoError(t, fs.SetFatEntry(3, 0, fat.AllocatedEntry(2)))

	_, err = fs.GetClusterChain(2, disko.ReadOnly)
	assert.ErrorIs(t, err, fat.ErrInfiniteLoop)
}

// No-panic property: adversarial indices return errors rather than panicking.
func TestNoPanicOnAdversarialIndices(t *testing.T) {
	disk := newFat12Disk(t, 600)
	fs, err := fat.Fat12New(disk, 16, 1, 0, 512, 1)
	require.NoError(t, err)

	_, err = fs.GetFatEntry(1<<30, 0)
	assert.ErrorIs(t, err, fat.ErrIndexOutOfRange)

	_, err = fs.GetCluster(1, disko.ReadOnly)
	assert.ErrorIs(t, err, fat.ErrIndexOutOfRange)

	_, err = fs.GetCluster(1<<30, disko.ReadOnly)
	assert.ErrorIs(t, err, fat.ErrIndexOutOfRange)

	_, err = fs.CreateFragmentedSubdisk(nil, disko.ReadOnly)
	assert.NoError(t, err)

	_, err = fs.CreateFragmentedSubdisk([]int{5, 5}, disko.ReadOnly)
	assert.ErrorIs(t, err, fat.ErrInfiniteLoop)
}

func TestLsDirRootLevel(t *testing.T) {
	disk := newFat12Disk(t, 600)
	fs, err := fat.Fat12New(disk, 16, 1, 0, 512, 1)
	require.NoError(t, err)

	require.NoError(t, fs.SetFatEntry(2, 0, fat.EOFEntry()))

	raw := fat.DirEntryRaw{
		ShortName:       [11]byte{'R', 'E', 'A', 'D', 'M', 'E', 'T', 'X', 'T', 'A', 'B'},
		Attributes:      fat.AttrArchive,
		FirstClusterLow: 2,
		FileSize:        100,
	}

	root, err := fs.GetRootDir(disko.ReadWrite)
	require.NoError(t, err)
	buf := make([]byte, 512)
	copy(buf[0:32], raw.ToBytes())
	require.NoError(t, root.WriteSector(0, buf))
	require.NoError(t, root.Close())

	entries, err := fs.LsDir(fat.RootDirectory())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].FirstCluster())
	assert.Equal(t, 100, entries[0].FileSize())
	assert.Equal(t, "READMETX.TAB", entries[0].Name)
}

func TestLsDirNestedDirectory(t *testing.T) {
	disk := newFat12Disk(t, 600)
	fs, err := fat.Fat12New(disk, 16, 1, 0, 512, 1)
	require.NoError(t, err)

	// cluster 2 holds the subdirectory's contents; cluster 3 is a file
	// referenced from within it.
	require.NoError(t, fs.SetFatEntry(2, 0, fat.EOFEntry()))
	require.NoError(t, fs.SetFatEntry(3, 0, fat.EOFEntry()))

	subdirEntry := fat.DirEntryRaw{
		ShortName:       [11]byte{'S', 'U', 'B', 'D', 'I', 'R', 'A', 'B', 'C', 'D', 'E'},
		Attributes:      fat.AttrDirectory,
		FirstClusterLow: 2,
	}
	root, err := fs.GetRootDir(disko.ReadWrite)
	require.NoError(t, err)
	rootBuf := make([]byte, 512)
	copy(rootBuf[0:32], subdirEntry.ToBytes())
	require.NoError(t, root.WriteSector(0, rootBuf))
	require.NoError(t, root.Close())

	childEntry := fat.DirEntryRaw{
		ShortName:       [11]byte{'C', 'H', 'I', 'L', 'D', 'A', 'B', 'C', 'D', 'E', 'F'},
		Attributes:      fat.AttrArchive,
		FirstClusterLow: 3,
		FileSize:        42,
	}
	subdir, err := fs.GetCluster(2, disko.ReadWrite)
	require.NoError(t, err)
	subBuf := make([]byte, 512)
	copy(subBuf[0:32], childEntry.ToBytes())
	require.NoError(t, subdir.WriteSector(0, subBuf))
	require.NoError(t, subdir.Close())

	target := fat.OtherDirectory(&fat.DirEntry{Parent: fat.RootDirectory(), ParentIndex: 0})
	entries, err := fs.LsDir(target)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].FirstCluster())
	assert.Equal(t, 42, entries[0].FileSize())
}
