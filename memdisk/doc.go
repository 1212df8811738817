// Package memdisk provides concrete, byte-backed disko.Disk implementations:
// an in-memory image (MemDisk) and a file-backed image (FileDisk). The spec
// this module implements treats concrete backing stores as external
// collaborators specified only by the Disk contract; this package supplies
// the two the rest of the module's tests and CLI exercise.
package memdisk
