package acquire

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Relocator defaults.
const (
	DefaultExt           = ".xlsx"
	DefaultMaxCollisions = 9999
	DefaultFolderLabel   = "Inventario"
)

// Relocator moves acquired files into a destination directory under a name
// derived from the unit, never overwriting an existing file.
type Relocator struct {
	// Ext is appended to the logical name. Default: ".xlsx".
	Ext string

	// MaxCollisions caps the numeric suffix search. Default: 9999.
	MaxCollisions int

	Logger zerolog.Logger
}

// Place moves src into destDir as "<logicalName><Ext>", or
// "<logicalName>_<n><Ext>" for the first free n when that name is taken, and
// returns the final file name.
//
// Within one volume the move is atomic and cannot overwrite: the target is
// reserved with a hard link before the source is removed. Across volumes the
// file is copied into an exclusively created target and the source removed
// afterwards, which is not atomic. On any failure the source is left in place
// and a *RelocationError is returned.
func (r *Relocator) Place(src, destDir, logicalName string) (string, error) {
	if _, err := os.Stat(src); err != nil {
		return "", &RelocationError{Source: src, Err: err}
	}

	base := SanitizeName(logicalName)
	if base == "" {
		return "", &RelocationError{Source: src, Err: fmt.Errorf("empty logical name %q", logicalName)}
	}
	ext := r.Ext
	if ext == "" {
		ext = DefaultExt
	}
	limit := r.MaxCollisions
	if limit <= 0 {
		limit = DefaultMaxCollisions
	}

	for n := 0; n <= limit; n++ {
		name := base + ext
		if n > 0 {
			name = fmt.Sprintf("%s_%d%s", base, n, ext)
		}
		dest := filepath.Join(destDir, name)

		err := move(src, dest)
		if err == nil {
			r.Logger.Debug().Str("source", src).Str("dest", dest).Msg("file placed")
			return name, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return "", &RelocationError{Source: src, Dest: dest, Err: err}
	}

	return "", &RelocationError{Source: src, Err: fmt.Errorf("%w: %s%s in %s", ErrTooManyCollisions, base, ext, destDir)}
}

// move relocates src to dest, failing with fs.ErrExist if dest is taken.
func move(src, dest string) error {
	err := os.Link(src, dest)
	switch {
	case err == nil:
		if err := os.Remove(src); err != nil {
			os.Remove(dest)
			return err
		}
		return nil
	case errors.Is(err, fs.ErrExist):
		return err
	case isCrossDevice(err):
		return copyExclusive(src, dest)
	}

	// Hard links are not supported here; check, then rename.
	if _, err := os.Lstat(dest); err == nil {
		return fs.ErrExist
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Rename(src, dest); err != nil {
		if isCrossDevice(err) {
			return copyExclusive(src, dest)
		}
		return err
	}
	return nil
}

// copyExclusive copies src into a newly created dest, then removes src.
func copyExclusive(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("copy: %w", err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("sync: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("close: %w", err)
	}
	_ = os.Chtimes(dest, info.ModTime(), info.ModTime())

	in.Close()
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

// SanitizeName turns a logical name into a safe file base name. Path
// separators and characters Windows rejects become underscores.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r < 0x20:
			b.WriteRune('_')
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimRight(strings.TrimSpace(b.String()), ". ")
}

// NewRunFolder creates the destination folder for one run under root, named
// "<label> <dd-mm-yyyy>" for day. If that folder already exists a sibling
// "<label> <dd-mm-yyyy> Generado a las <HH-MM_dd-mm-yyyy>" stamped with now
// is created instead, so earlier runs are never mixed with this one.
func NewRunFolder(root, label string, day, now time.Time) (string, error) {
	if label == "" {
		label = DefaultFolderLabel
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("create destination root: %w", err)
	}

	name := fmt.Sprintf("%s %s", label, day.Format("02-01-2006"))
	path := filepath.Join(root, name)
	err := os.Mkdir(path, 0o755)
	if err == nil {
		return path, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("create run folder: %w", err)
	}

	path = filepath.Join(root, fmt.Sprintf("%s Generado a las %s", name, now.Format("15-04_02-01-2006")))
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("create run folder: %w", err)
	}
	return path, nil
}
