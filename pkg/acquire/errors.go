package acquire

import (
	"errors"
	"fmt"
	"time"
)

// ErrTooManyCollisions is wrapped by RelocationError when every suffix up to
// Relocator.MaxCollisions is already taken in the destination directory.
var ErrTooManyCollisions = errors.New("acquire: too many name collisions")

// InvalidDirectoryError is returned when the watched directory is missing or
// cannot be listed.
type InvalidDirectoryError struct {
	Dir string
	Err error
}

func (e *InvalidDirectoryError) Error() string {
	return fmt.Sprintf("invalid watch directory %q: %v", e.Dir, e.Err)
}

func (e *InvalidDirectoryError) Unwrap() error { return e.Err }

// NotFoundError is returned by Poller.Await when no candidate appeared before
// the deadline and the fallback scan found nothing usable.
type NotFoundError struct {
	Dir     string
	Timeout time.Duration
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no file appeared in %s within %s", e.Dir, e.Timeout)
}

// UnstableFileError is returned by Poller.Await when a candidate appeared but
// never passed the stability probe before the deadline.
type UnstableFileError struct {
	Path    string
	Timeout time.Duration
}

func (e *UnstableFileError) Error() string {
	return fmt.Sprintf("file %s did not stabilize within %s", e.Path, e.Timeout)
}

// RelocationError is returned when an acquired file could not be moved into
// the destination. The source is left where it was.
type RelocationError struct {
	Source string
	Dest   string
	Err    error
}

func (e *RelocationError) Error() string {
	if e.Dest == "" {
		return fmt.Sprintf("relocate %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("relocate %s -> %s: %v", e.Source, e.Dest, e.Err)
}

func (e *RelocationError) Unwrap() error { return e.Err }

// TriggerError wraps a failure of the external action that was supposed to
// produce the unit's file.
type TriggerError struct {
	Unit string
	Err  error
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("trigger for %s: %v", e.Unit, e.Err)
}

func (e *TriggerError) Unwrap() error { return e.Err }

// IsNoFile reports whether err means "no file was produced": either nothing
// appeared or what appeared never stabilized. Callers treat both alike.
func IsNoFile(err error) bool {
	var nf *NotFoundError
	var uf *UnstableFileError
	return errors.As(err, &nf) || errors.As(err, &uf)
}
