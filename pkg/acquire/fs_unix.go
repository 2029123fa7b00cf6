//go:build unix

package acquire

import (
	"errors"
	"os"
	"syscall"
)

// openExclusive opens path read-only and takes a non-blocking exclusive
// advisory lock, failing if another process holds a lock on it.
func openExclusive(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fd := int(f.Fd())
	if err := syscall.Flock(fd, syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		return err
	}
	return syscall.Flock(fd, syscall.LOCK_UN)
}

func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
