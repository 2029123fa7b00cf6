//go:build windows

package acquire

import (
	"errors"
	"syscall"
)

// openExclusive opens path with share mode 0, which fails while any other
// handle (such as the browser's writer) is still open.
func openExclusive(path string) error {
	p, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	h, err := syscall.CreateFile(p, syscall.GENERIC_READ, 0, nil,
		syscall.OPEN_EXISTING, syscall.FILE_ATTRIBUTE_NORMAL, 0)
	if err != nil {
		return err
	}
	return syscall.CloseHandle(h)
}

// errorNotSameDevice is ERROR_NOT_SAME_DEVICE, returned by MoveFileEx and
// CreateHardLink across volumes.
const errorNotSameDevice syscall.Errno = 17

func isCrossDevice(err error) bool {
	return errors.Is(err, errorNotSameDevice)
}
