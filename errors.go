package disko

import (
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
)

// DiskErr is a sentinel error identifying one of the failure kinds a Disk,
// DiskWrapper, or partition/filesystem codec can report. Comparing an error
// against one of these with errors.Is tells you *what kind* of failure
// happened; the message carried alongside it (see [DiskErr.WithMessage])
// gives the specifics.
type DiskErr string

// Error implements the error interface.
func (e DiskErr) Error() string {
	return string(e)
}

// DriverError decorates a DiskErr with a human-readable message and,
// optionally, the error that caused it. It unwraps to both the original
// DiskErr sentinel and, if set, the wrapped cause, so errors.Is against
// either one succeeds.
type DriverError interface {
	error
	// WithMessage returns a new DriverError carrying this sentinel plus an
	// explanatory message.
	WithMessage(message string) DriverError
	// Wrap returns a new DriverError carrying this sentinel plus an
	// underlying error that caused it.
	Wrap(err error) DriverError
}

type driverError struct {
	sentinel DiskErr
	message  string
	cause    error
}

func (e driverError) Error() string {
	if e.message == "" {
		return e.sentinel.Error()
	}
	return fmt.Sprintf("%s: %s", e.sentinel.Error(), e.message)
}

func (e driverError) Is(target error) bool {
	if sentinel, ok := target.(DiskErr); ok {
		return sentinel == e.sentinel
	}
	return false
}

func (e driverError) Unwrap() error {
	return e.cause
}

func (e driverError) WithMessage(message string) DriverError {
	return driverError{sentinel: e.sentinel, message: message, cause: e.cause}
}

func (e driverError) Wrap(err error) DriverError {
	return driverError{sentinel: e.sentinel, message: err.Error(), cause: err}
}

// WithMessage returns a DriverError carrying this sentinel plus an
// explanatory message.
func (e DiskErr) WithMessage(message string) DriverError {
	return driverError{sentinel: e, message: message}
}

// Wrap returns a DriverError carrying this sentinel plus an underlying
// error that caused it.
func (e DiskErr) Wrap(err error) DriverError {
	return driverError{sentinel: e, message: err.Error(), cause: err}
}

// The DiskErr taxonomy. Every I/O-layer failure reported by this module is
// one of these.
const (
	// ErrInvalidSectorSize means a caller passed a buffer whose length isn't
	// one the disk's SectorSize admits.
	ErrInvalidSectorSize = DiskErr("invalid sector size")
	// ErrInvalidSectorIndex means a sector index fell outside a disk's or
	// view's addressable range.
	ErrInvalidSectorIndex = DiskErr("invalid sector index")
	// ErrInvalidPermission means an operation was attempted in a direction
	// (read or write) the disk, subdisk, or loan doesn't allow.
	ErrInvalidPermission = DiskErr("invalid permission")
	// ErrUnreachableDisk means the parent disk behind a SubDisk or
	// FragmentedSubDisk no longer exists.
	ErrUnreachableDisk = DiskErr("unreachable disk")
	// ErrInvalidDiskSize means a requested byte range doesn't fit within the
	// backing disk.
	ErrInvalidDiskSize = DiskErr("invalid disk size")
	// ErrBusy means the requested loan would violate the aliasing rule
	// against an existing loan.
	ErrBusy = DiskErr("disk range busy")
	// ErrIOFailed wraps a failure from the underlying storage medium itself.
	ErrIOFailed = DiskErr("I/O error")
	// ErrUnsupportedDiskSectorSize means no sector size admissible by a
	// disk's SectorSize could be used for a required operation.
	ErrUnsupportedDiskSectorSize = DiskErr("unsupported disk sector size")
	// ErrInvalidPartitionIndex means a partition table index was out of the
	// valid range for the table (MBR: not in [0,4)).
	ErrInvalidPartitionIndex = DiskErr("invalid partition index")
	// ErrSpaceAlreadyInUse means one fragment of a requested fragmented loan
	// overlaps an existing loan or another fragment in the same request.
	ErrSpaceAlreadyInUse = DiskErr("space already in use")
	// ErrIndexOutOfRange is a general-purpose "this integer index is out of
	// the valid range" error used outside the sector-addressing context
	// (cluster indices, FAT copy indices, directory slot indices).
	ErrIndexOutOfRange = DiskErr("index out of range")
	// ErrOutOfRangeValue means a value computed or supplied during
	// construction (partition geometry, BPB field, ...) doesn't fit the
	// on-disk representation available for it.
	ErrOutOfRangeValue = DiskErr("value out of representable range")
)

// ValidationErrors aggregates every invariant violated by an on-disk
// structure that failed validation, rather than reporting only the first
// one found. Codecs that check several independent invariants (BPB
// validation and layout synthesis) build one of these with Append and
// return it as a DriverError wrapping ErrOutOfRangeValue when non-empty.
type ValidationErrors struct {
	errs *multierror.Error
}

// Append records a violated invariant. A nil err is ignored.
func (v *ValidationErrors) Append(err error) {
	if err == nil {
		return
	}
	v.errs = multierror.Append(v.errs, err)
}

// HasErrors reports whether any invariant was recorded as violated.
func (v *ValidationErrors) HasErrors() bool {
	return v.errs != nil && v.errs.Len() > 0
}

// AsError returns the aggregated errors as a DriverError wrapping
// ErrOutOfRangeValue, or nil if nothing was recorded.
func (v *ValidationErrors) AsError() DriverError {
	if !v.HasErrors() {
		return nil
	}
	return ErrOutOfRangeValue.Wrap(v.errs.ErrorOrNil())
}
