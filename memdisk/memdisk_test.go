package memdisk_test

import (
	"testing"

	"github.com/arourr/diskfat"
	"github.com/arourr/diskfat/memdisk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemDiskReadWriteRoundTrip(t *testing.T) {
	disk := memdisk.New(64*1024, disko.AllOfSizes(512), disko.ReadWrite)

	written := make([]byte, 512)
	for i := range written {
		written[i] = byte(i)
	}
	require.NoError(t, disk.WriteSector(3, written))

	readBack := make([]byte, 512)
	require.NoError(t, disk.ReadSector(3, readBack))
	assert.Equal(t, written, readBack)
}

func TestMemDiskRejectsUnsupportedSectorSize(t *testing.T) {
	disk := memdisk.New(64*1024, disko.AllOfSizes(512), disko.ReadWrite)
	buf := make([]byte, 128)
	err := disk.ReadSector(0, buf)
	assert.ErrorIs(t, err, disko.ErrInvalidSectorSize)
}

func TestMemDiskRejectsOutOfRangeSector(t *testing.T) {
	disk := memdisk.New(4096, disko.AllOfSizes(512), disko.ReadWrite)
	buf := make([]byte, 512)
	err := disk.ReadSector(8, buf)
	assert.ErrorIs(t, err, disko.ErrInvalidSectorIndex)
}

func TestMemDiskEnforcesPermissions(t *testing.T) {
	disk := memdisk.New(4096, disko.AllOfSizes(512), disko.ReadOnly)
	buf := make([]byte, 512)
	assert.ErrorIs(t, disk.WriteSector(0, buf), disko.ErrInvalidPermission)
	assert.NoError(t, disk.ReadSector(0, buf))
}
