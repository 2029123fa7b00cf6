package acquire

import (
	"context"
	"os"
	"time"
)

// DefaultProbeInterval is the pause between the two size samples.
const DefaultProbeInterval = 800 * time.Millisecond

// Prober decides whether a file has finished being written.
//
// The check is a heuristic: the size is sampled twice, Interval apart, and
// the file must then be openable for exclusive read. A writer that pauses for
// longer than Interval between appends is reported as stable. That false
// positive is accepted; raise Interval (or Poller.RequiredStableReads) for
// slow producers.
type Prober struct {
	// Interval between the two size samples. Default: 800ms.
	Interval time.Duration

	// MinSize is the smallest size accepted as complete. Zero means any
	// non-empty file.
	MinSize int64
}

// Stable reports whether path exists, kept the same non-zero size across one
// sampling interval and is not held open for writing.
// It returns false if ctx is cancelled while sampling.
func (p *Prober) Stable(ctx context.Context, path string) bool {
	first, err := os.Stat(path)
	if err != nil || !first.Mode().IsRegular() {
		return false
	}

	interval := p.Interval
	if interval <= 0 {
		interval = DefaultProbeInterval
	}

	timer := time.NewTimer(interval)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C:
	}

	second, err := os.Stat(path)
	if err != nil {
		return false
	}
	if first.Size() != second.Size() || second.Size() == 0 {
		return false
	}
	if p.MinSize > 0 && second.Size() < p.MinSize {
		return false
	}

	return openExclusive(path) == nil
}
