package mbr

import (
	"encoding/binary"
	"fmt"

	"github.com/arourr/diskfat"
	"github.com/noxer/bytewriter"
)

// RawMbrSize is the fixed, on-disk size of a Master Boot Record.
const RawMbrSize = 512

const (
	bootstrapSize      = 446
	partitionEntrySize = 16
	partitionCount     = 4
	signatureOffset    = 510
	bootSignatureValue = 0xAA55
)

// MbrEntry is one 16-byte partition table entry.
type MbrEntry struct {
	Status        byte
	ChsFirst      [3]byte
	PartitionType byte
	ChsLast       [3]byte
	LbaFirst      uint32
	SectorCount   uint32
}

// IsEmpty reports whether the entry describes no partition at all (every
// field zero).
func (e MbrEntry) IsEmpty() bool {
	return e == MbrEntry{}
}

func (e MbrEntry) writeTo(w *bytewriter.Writer) error {
	if _, err := w.Write([]byte{e.Status}); err != nil {
		return err
	}
	if _, err := w.Write(e.ChsFirst[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{e.PartitionType}); err != nil {
		return err
	}
	if _, err := w.Write(e.ChsLast[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.LbaFirst); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, e.SectorCount)
}

func mbrEntryFromBytes(raw []byte) MbrEntry {
	var e MbrEntry
	e.Status = raw[0]
	copy(e.ChsFirst[:], raw[1:4])
	e.PartitionType = raw[4]
	copy(e.ChsLast[:], raw[5:8])
	e.LbaFirst = binary.LittleEndian.Uint32(raw[8:12])
	e.SectorCount = binary.LittleEndian.Uint32(raw[12:16])
	return e
}

// RawMbr is the exact 512-byte on-disk Master Boot Record layout:
// 446 bytes of bootstrap code, four 16-byte partition entries, and a
// trailing 0xAA55 boot signature.
type RawMbr struct {
	Bootstrap  [bootstrapSize]byte
	Partitions [partitionCount]MbrEntry
	Signature  uint16
}

// RawMbrFromBytes parses buf (which must be at least RawMbrSize bytes) into
// a RawMbr. It does not reject an unexpected signature - the caller (see
// ReadFromDisk) decides what an invalid signature means.
func RawMbrFromBytes(buf []byte) (*RawMbr, error) {
	if len(buf) < RawMbrSize {
		return nil, fmt.Errorf("mbr: need at least %d bytes, got %d", RawMbrSize, len(buf))
	}

	var m RawMbr
	copy(m.Bootstrap[:], buf[:bootstrapSize])
	for i := 0; i < partitionCount; i++ {
		offset := bootstrapSize + i*partitionEntrySize
		m.Partitions[i] = mbrEntryFromBytes(buf[offset : offset+partitionEntrySize])
	}
	m.Signature = binary.LittleEndian.Uint16(buf[signatureOffset:RawMbrSize])
	return &m, nil
}

// ToBytes serializes m into the canonical 512-byte on-disk representation.
func (m *RawMbr) ToBytes() []byte {
	buf := make([]byte, RawMbrSize)
	w := bytewriter.New(buf)

	_, _ = w.Write(m.Bootstrap[:])
	for _, entry := range m.Partitions {
		_ = entry.writeTo(w)
	}
	_ = binary.Write(w, binary.LittleEndian, m.Signature)

	return buf
}

// HasValidSignature reports whether m's trailing signature is the expected
// 0xAA55 boot signature.
func (m *RawMbr) HasValidSignature() bool {
	return m.Signature == bootSignatureValue
}

// diskErrFromIO wraps a plain error from a borrow view as an I/O DiskErr.
func diskErrFromIO(err error) disko.DriverError {
	if err == nil {
		return nil
	}
	if de, ok := err.(disko.DriverError); ok {
		return de
	}
	return disko.ErrIOFailed.Wrap(err)
}
