package fat

import (
	"encoding/binary"
	"strings"
)

// Attribute bit meanings for DirEntryRaw.Attributes.
const (
	AttrReadOnly = 0x01
	AttrHidden   = 0x02
	AttrSystem   = 0x04
	AttrVolumeID = 0x08
	AttrDirectory = 0x10
	AttrArchive  = 0x20
)

const dirEntrySize = 32

// validShortNameExtras are the punctuation characters, beyond letters and
// digits, a valid short-name byte may hold.
const validShortNameExtras = "$%'-_@~`!(){}^#&"

// DirEntryRaw is the exact 32-byte on-disk directory entry layout.
type DirEntryRaw struct {
	ShortName         [11]byte
	Attributes        byte
	Reserved          byte
	CreationTimeCents byte
	CreationTime      uint16
	CreationDate      uint16
	LastAccessDate    uint16
	FirstClusterHigh  uint16
	WriteTime         uint16
	WriteDate         uint16
	FirstClusterLow   uint16
	FileSize          uint32
}

// DirEntryRawFromBytes decodes a 32-byte directory slot.
func DirEntryRawFromBytes(buf []byte) DirEntryRaw {
	var e DirEntryRaw
	copy(e.ShortName[:], buf[0:11])
	e.Attributes = buf[11]
	e.Reserved = buf[12]
	e.CreationTimeCents = buf[13]
	e.CreationTime = binary.LittleEndian.Uint16(buf[14:16])
	e.CreationDate = binary.LittleEndian.Uint16(buf[16:18])
	e.LastAccessDate = binary.LittleEndian.Uint16(buf[18:20])
	e.FirstClusterHigh = binary.LittleEndian.Uint16(buf[20:22])
	e.WriteTime = binary.LittleEndian.Uint16(buf[22:24])
	e.WriteDate = binary.LittleEndian.Uint16(buf[24:26])
	e.FirstClusterLow = binary.LittleEndian.Uint16(buf[26:28])
	e.FileSize = binary.LittleEndian.Uint32(buf[28:32])
	return e
}

// ToBytes encodes e into its canonical 32-byte on-disk form.
func (e DirEntryRaw) ToBytes() []byte {
	buf := make([]byte, dirEntrySize)
	copy(buf[0:11], e.ShortName[:])
	buf[11] = e.Attributes
	buf[12] = e.Reserved
	buf[13] = e.CreationTimeCents
	binary.LittleEndian.PutUint16(buf[14:16], e.CreationTime)
	binary.LittleEndian.PutUint16(buf[16:18], e.CreationDate)
	binary.LittleEndian.PutUint16(buf[18:20], e.LastAccessDate)
	binary.LittleEndian.PutUint16(buf[20:22], e.FirstClusterHigh)
	binary.LittleEndian.PutUint16(buf[22:24], e.WriteTime)
	binary.LittleEndian.PutUint16(buf[24:26], e.WriteDate)
	binary.LittleEndian.PutUint16(buf[26:28], e.FirstClusterLow)
	binary.LittleEndian.PutUint32(buf[28:32], e.FileSize)
	return buf
}

// FirstCluster returns the entry's starting cluster number.
func (e DirEntryRaw) FirstCluster() int {
	return int(e.FirstClusterHigh)<<16 | int(e.FirstClusterLow)
}

// IsFree reports whether this slot holds no entry.
func (e DirEntryRaw) IsFree() bool {
	return e.ShortName[0] == 0x00 || e.ShortName[0] == 0xE5
}

// IsEndOfDirectory reports whether this slot, and every slot after it in
// the directory, is free.
func (e DirEntryRaw) IsEndOfDirectory() bool {
	return e.ShortName[0] == 0x00
}

// IsLongNameEntry reports whether this slot is part of a long file name,
// which this library does not interpret.
func (e DirEntryRaw) IsLongNameEntry() bool {
	return e.Attributes&0x0F == 0x0F
}

// IsValidShortNameEntry reports whether this slot holds a structurally
// valid short-name entry.
func (e DirEntryRaw) IsValidShortNameEntry() bool {
	if e.ShortName[0] == 0x20 {
		return false
	}
	if e.Attributes&0xC0 != 0 {
		return false
	}
	for _, c := range e.ShortName {
		if c < 0x20 {
			return false
		}
		isUpper := c >= 'A' && c <= 'Z'
		isDigit := c >= '0' && c <= '9'
		isExtra := strings.IndexByte(validShortNameExtras, c) >= 0
		if !isUpper && !isDigit && !isExtra {
			return false
		}
	}
	return true
}

func (e DirEntryRaw) IsReadOnly() bool  { return e.Attributes&AttrReadOnly != 0 }
func (e DirEntryRaw) IsHidden() bool    { return e.Attributes&AttrHidden != 0 }
func (e DirEntryRaw) IsSystem() bool    { return e.Attributes&AttrSystem != 0 }
func (e DirEntryRaw) IsVolumeID() bool  { return e.Attributes&AttrVolumeID != 0 }
func (e DirEntryRaw) IsDirectory() bool { return e.Attributes&AttrDirectory != 0 }
func (e DirEntryRaw) IsArchive() bool   { return e.Attributes&AttrArchive != 0 }

// ShortNameString returns the entry's 8.3 name as "STEM.EXT" (or just
// "STEM" when the extension is blank), trimming trailing padding.
func (e DirEntryRaw) ShortNameString() string {
	stem := strings.TrimRight(string(e.ShortName[:8]), " ")
	ext := strings.TrimRight(string(e.ShortName[8:11]), " ")
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}

// Directory is a tagged variant identifying a directory within a FAT
// volume: either the unique root directory, or some other directory
// reached through its DirEntry.
type Directory struct {
	IsRoot bool
	Entry  *DirEntry
}

// RootDirectory returns the Directory variant for the volume root.
func RootDirectory() Directory {
	return Directory{IsRoot: true}
}

// OtherDirectory returns the Directory variant for a subdirectory
// reached through entry.
func OtherDirectory(entry *DirEntry) Directory {
	return Directory{Entry: entry}
}

// RevPath returns the chain of 32-byte-slot indices from this directory
// back up to (but not including) the root, in child-to-parent order.
func (d Directory) RevPath() []int {
	if d.IsRoot {
		return nil
	}
	path := []int{d.Entry.ParentIndex}
	current := d.Entry.Parent
	for !current.IsRoot {
		path = append(path, current.Entry.ParentIndex)
		current = current.Entry.Parent
	}
	return path
}

// DirEntry is the logical view of one directory slot: its decoded
// contents, the directory it lives in, its slot index within that
// directory, and its resolved display name.
type DirEntry struct {
	Raw         DirEntryRaw
	Parent      Directory
	ParentIndex int
	Name        string
}

// FirstCluster returns the entry's starting cluster number.
func (d *DirEntry) FirstCluster() int { return d.Raw.FirstCluster() }

// FileSize returns the entry's size in bytes, as recorded in the
// directory slot.
func (d *DirEntry) FileSize() int { return int(d.Raw.FileSize) }
