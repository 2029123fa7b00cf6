//go:build !unix && !windows

package acquire

import "os"

func openExclusive(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

func isCrossDevice(err error) bool { return false }
