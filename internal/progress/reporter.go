package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ligustah/acquire/pkg/acquire"
)

// Options configures the progress reporter.
type Options struct {
	// TotalUnits is the number of units in the batch.
	TotalUnits int

	// Output is where to write progress output.
	// Default: os.Stdout
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration

	// WatchDir and DestDir are shown in the header.
	WatchDir string
	DestDir  string
}

// Reporter outputs human-readable progress information. It implements
// acquire.Reporter, and Tick can be used as a Poller.OnTick observer.
type Reporter struct {
	opts Options

	mu            sync.Mutex
	acquiredBytes atomic.Int64
	doneUnits     atomic.Int32
	acquiredUnits atomic.Int32
	failedUnits   atomic.Int32
	ticks         atomic.Int32
	pollState     acquire.State
	candidate     string
	startTime     time.Time
	stopCh        chan struct{}
	doneCh        chan struct{}
	started       bool
	stopped       bool
	finalPrinted  bool
	summary       *acquire.RunSummary
}

var _ acquire.Reporter = (*Reporter)(nil)

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start prints the header and begins the periodic status line.
func (r *Reporter) Start() {
	r.mu.Lock()
	r.startTime = time.Now()
	r.started = true
	fmt.Fprintf(r.opts.Output, "[acquire] Watching: %s\n", r.opts.WatchDir)
	fmt.Fprintf(r.opts.Output, "[acquire] Destination: %s | Units: %d\n", r.opts.DestDir, r.opts.TotalUnits)
	r.mu.Unlock()

	go r.updateLoop()
}

// Stop stops the progress reporter and waits for the final status.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	started := r.started
	r.mu.Unlock()

	close(r.stopCh)
	if started {
		<-r.doneCh
	}
}

// Tick records the poller's latest observation.
func (r *Reporter) Tick(tick int, state acquire.State, candidate string) {
	r.ticks.Add(1)
	r.mu.Lock()
	r.pollState = state
	r.candidate = candidate
	r.mu.Unlock()
}

// UnitDone prints one line for the finished unit and updates the counters.
func (r *Reporter) UnitDone(res acquire.UnitResult) {
	r.doneUnits.Add(1)
	if res.Acquired() {
		r.acquiredUnits.Add(1)
		r.acquiredBytes.Add(res.Size)
	} else {
		r.failedUnits.Add(1)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidate = ""
	r.pollState = acquire.StateWaiting

	if res.Acquired() {
		fmt.Fprintf(r.opts.Output, "\r[acquire] %s: %s -> %s (%s, %s)    \n",
			res.Unit.ID,
			res.Unit.LogicalName(),
			filepath.Base(res.Path),
			formatBytes(res.Size),
			formatDuration(res.Duration),
		)
		return
	}
	fmt.Fprintf(r.opts.Output, "\r[acquire] %s: %s %s (%s): %v    \n",
		res.Unit.ID,
		res.Unit.LogicalName(),
		res.State,
		acquire.Classify(res.Err),
		res.Err,
	)
}

// RunDone records the summary and stops the reporter, which prints it.
func (r *Reporter) RunDone(s acquire.RunSummary) {
	r.mu.Lock()
	r.summary = &s
	r.mu.Unlock()
	r.Stop()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.finalPrinted {
		r.printFinalStatusLocked()
	}
}

// updateLoop periodically updates the progress display.
func (r *Reporter) updateLoop() {
	defer close(r.doneCh)
	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.mu.Lock()
			r.printFinalStatusLocked()
			r.mu.Unlock()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

// printProgress outputs the current progress.
func (r *Reporter) printProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()

	done := int(r.doneUnits.Load())
	elapsed := time.Since(r.startTime)

	eta := "calculating..."
	if done > 0 && r.opts.TotalUnits > 0 {
		perUnit := elapsed / time.Duration(done)
		eta = formatDuration(perUnit * time.Duration(r.opts.TotalUnits-done))
	}

	current := r.candidate
	if current == "" {
		current = "-"
	} else {
		current = filepath.Base(current)
	}

	fmt.Fprintf(r.opts.Output, "\r[acquire] Progress: %d/%d units | %d acquired | %d failed | %s | Poller: %s %s | ETA: %s    ",
		done,
		r.opts.TotalUnits,
		r.acquiredUnits.Load(),
		r.failedUnits.Load(),
		formatBytes(r.acquiredBytes.Load()),
		r.pollState,
		current,
		eta,
	)
}

// printFinalStatusLocked outputs the final status. r.mu must be held.
func (r *Reporter) printFinalStatusLocked() {
	if r.finalPrinted {
		return
	}
	r.finalPrinted = true

	duration := time.Since(r.startTime)
	if r.startTime.IsZero() {
		duration = 0
	}
	if r.summary != nil {
		duration = r.summary.FinishedAt.Sub(r.summary.StartedAt)
	}

	fmt.Fprintf(r.opts.Output, "\r[acquire] Units: %d/%d | %d acquired | %d failed | %s    \n",
		r.doneUnits.Load(),
		r.opts.TotalUnits,
		r.acquiredUnits.Load(),
		r.failedUnits.Load(),
		formatBytes(r.acquiredBytes.Load()),
	)
	if r.summary != nil {
		status := "complete"
		if r.summary.Cancelled {
			status = "cancelled"
		}
		fmt.Fprintf(r.opts.Output, "[acquire] Run %s %s\n", r.summary.RunID, status)
	}
	fmt.Fprintf(r.opts.Output, "[acquire] Total time: %s\n", formatDuration(duration))
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}

// ParseBytes parses a human-readable byte string (e.g., "256MB").
func ParseBytes(s string) (int64, error) {
	var multiplier int64 = 1
	s = strings.ToUpper(strings.TrimSpace(s))

	switch {
	case strings.HasSuffix(s, "TB"):
		multiplier = 1024 * 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		s = s[:len(s)-2]
	case strings.HasSuffix(s, "B"):
		s = s[:len(s)-1]
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid byte string: %s", s)
	}

	return int64(value * float64(multiplier)), nil
}
