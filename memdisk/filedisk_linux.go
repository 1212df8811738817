//go:build linux

package memdisk

import (
	"os"

	"github.com/arourr/diskfat"
	"golang.org/x/sys/unix"
)

// lockFile takes an advisory flock on f matching permissions: exclusive if
// write access was requested, shared otherwise. The returned func releases
// it.
func lockFile(f *os.File, permissions disko.Permissions) (func() error, error) {
	how := unix.LOCK_SH
	if permissions.Write {
		how = unix.LOCK_EX
	}
	if err := unix.Flock(int(f.Fd()), how); err != nil {
		return nil, err
	}
	return func() error {
		return unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}, nil
}
