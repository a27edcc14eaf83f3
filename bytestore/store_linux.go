//go:build linux

package bytestore

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// openAnonymous uses O_TMPFILE so the file never has a name. Filesystems
// without O_TMPFILE support fall back to create and unlink.
func openAnonymous(dir string) (*os.File, error) {
	fd, err := unix.Open(dir, unix.O_TMPFILE|unix.O_RDWR|unix.O_CLOEXEC, 0o600)
	if err != nil {
		return openUnlinked(dir)
	}
	return os.NewFile(uintptr(fd), filepath.Join(dir, filePrefix)), nil
}
