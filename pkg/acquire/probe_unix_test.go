//go:build unix

package acquire

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func TestProberLockedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "EST31100_locked.xlsx")
	if err := os.WriteFile(path, []byte("finished"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		t.Fatalf("flock: %v", err)
	}

	p := &Prober{Interval: 20 * time.Millisecond}
	if p.Stable(context.Background(), path) {
		t.Error("expected file locked by another holder to be unstable")
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_UN); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if !p.Stable(context.Background(), path) {
		t.Error("expected file to be stable once the lock is released")
	}
}
