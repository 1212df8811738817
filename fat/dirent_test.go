package fat_test

import (
	"testing"

	"github.com/arourr/diskfat/fat"
	"github.com/stretchr/testify/assert"
)

func TestDirEntryRawCodecRoundTrip(t *testing.T) {
	raw := fat.DirEntryRaw{
		ShortName:        [11]byte{'F', 'O', 'O', 'B', 'A', 'R', 'X', 'Y', 'T', 'X', 'T'},
		Attributes:       fat.AttrArchive | fat.AttrReadOnly,
		FirstClusterHigh: 0,
		FirstClusterLow:  7,
		FileSize:         1234,
	}
	decoded := fat.DirEntryRawFromBytes(raw.ToBytes())
	assert.Equal(t, raw, decoded)
	assert.Equal(t, 7, decoded.FirstCluster())
}

func TestDirEntryRawIsFreeAndEndOfDirectory(t *testing.T) {
	free := fat.DirEntryRaw{ShortName: [11]byte{0xE5}}
	assert.True(t, free.IsFree())
	assert.False(t, free.IsEndOfDirectory())

	end := fat.DirEntryRaw{ShortName: [11]byte{0x00}}
	assert.True(t, end.IsFree())
	assert.True(t, end.IsEndOfDirectory())
}

func TestDirEntryRawIsLongNameEntry(t *testing.T) {
	entry := fat.DirEntryRaw{Attributes: 0x0F}
	assert.True(t, entry.IsLongNameEntry())

	entry2 := fat.DirEntryRaw{Attributes: fat.AttrArchive}
	assert.False(t, entry2.IsLongNameEntry())
}

func TestDirEntryRawIsValidShortNameEntry(t *testing.T) {
	valid := fat.DirEntryRaw{
		ShortName:  [11]byte{'F', 'O', 'O', 'B', 'A', 'R', 'X', 'Y', 'T', 'X', 'T'},
		Attributes: fat.AttrArchive,
	}
	assert.True(t, valid.IsValidShortNameEntry())

	// A leading space is never valid, per the literal short-name rule.
	spacePrefixed := valid
	spacePrefixed.ShortName[0] = 0x20
	assert.False(t, spacePrefixed.IsValidShortNameEntry())

	lowercase := valid
	lowercase.ShortName[1] = 'o'
	assert.False(t, lowercase.IsValidShortNameEntry())

	// The long-name attribute value 0x0F sets none of the 0xC0 bits, so it
	// does not by itself disqualify an otherwise valid short name; long-name
	// slots are told apart by IsLongNameEntry.
	longNameAttrs := valid
	longNameAttrs.Attributes = 0x0F
	assert.True(t, longNameAttrs.IsValidShortNameEntry())
	assert.True(t, longNameAttrs.IsLongNameEntry())

	reservedAttrs := valid
	reservedAttrs.Attributes = 0x40
	assert.False(t, reservedAttrs.IsValidShortNameEntry())
}

func TestDirEntryRawAttributePredicates(t *testing.T) {
	e := fat.DirEntryRaw{Attributes: fat.AttrReadOnly | fat.AttrDirectory}
	assert.True(t, e.IsReadOnly())
	assert.True(t, e.IsDirectory())
	assert.False(t, e.IsHidden())
	assert.False(t, e.IsSystem())
	assert.False(t, e.IsVolumeID())
	assert.False(t, e.IsArchive())
}

func TestShortNameStringTrimsPaddingAndOmitsBlankExtension(t *testing.T) {
	noExt := fat.DirEntryRaw{ShortName: [11]byte{'F', 'O', 'O', ' ', ' ', ' ', ' ', ' ', ' ', ' ', ' '}}
	assert.Equal(t, "FOO", noExt.ShortNameString())

	withExt := fat.DirEntryRaw{ShortName: [11]byte{'F', 'O', 'O', ' ', ' ', ' ', ' ', ' ', 'T', 'X', 'T'}}
	assert.Equal(t, "FOO.TXT", withExt.ShortNameString())
}

func TestDirectoryRevPath(t *testing.T) {
	root := fat.RootDirectory()
	assert.Nil(t, root.RevPath())

	child := fat.OtherDirectory(&fat.DirEntry{Parent: root, ParentIndex: 3})
	assert.Equal(t, []int{3}, child.RevPath())

	grandchild := fat.OtherDirectory(&fat.DirEntry{Parent: child, ParentIndex: 9})
	assert.Equal(t, []int{9, 3}, grandchild.RevPath())
}
