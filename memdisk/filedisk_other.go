//go:build !linux

package memdisk

import (
	"os"

	"github.com/arourr/diskfat"
)

// lockFile is a no-op on platforms without unix.Flock; FileDisk falls back
// to relying on the in-process borrow registry alone.
func lockFile(_ *os.File, _ disko.Permissions) (func() error, error) {
	return func() error { return nil }, nil
}
