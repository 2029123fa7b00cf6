package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// UnitRequest is one logical request expected to yield exactly one file.
type UnitRequest struct {
	// ID identifies the unit to the trigger (for example a clinic code).
	ID string `yaml:"id" json:"id"`

	// Name is the logical destination name. Defaults to ID.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`
}

// LogicalName returns the name the destination file is derived from.
func (u UnitRequest) LogicalName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}

// UnitState is the lifecycle state of an acquisition unit.
type UnitState string

const (
	UnitPending  UnitState = "pending"
	UnitProbing  UnitState = "probing"
	UnitAcquired UnitState = "acquired"
	UnitTimedOut UnitState = "timed_out"
	// UnitFailed covers trigger, directory and relocation failures.
	UnitFailed UnitState = "failed"
)

// UnitResult records the outcome of one unit.
type UnitResult struct {
	Index int
	Unit  UnitRequest
	State UnitState

	// Path is the final location in the destination directory. Empty unless
	// State is UnitAcquired.
	Path string
	Size int64
	Err  error

	StartedAt time.Time
	Duration  time.Duration
}

// Acquired reports whether the unit produced a placed file.
func (r UnitResult) Acquired() bool { return r.State == UnitAcquired }

// RunSummary is the aggregate result of a batch. It is built while the batch
// runs and not modified after Run returns.
type RunSummary struct {
	RunID    string
	WatchDir string
	DestDir  string

	Attempted int
	Acquired  int
	Failed    int

	// Cancelled is set when the context ended before every unit finished.
	Cancelled bool

	Results    []UnitResult
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failures returns the results of units that did not acquire a file.
func (s RunSummary) Failures() []UnitResult {
	var out []UnitResult
	for _, r := range s.Results {
		if !r.Acquired() {
			out = append(out, r)
		}
	}
	return out
}

func (s RunSummary) String() string {
	return fmt.Sprintf("run %s: %d attempted, %d acquired, %d failed", s.RunID, s.Attempted, s.Acquired, s.Failed)
}

// Trigger performs the external action expected to make a new file appear in
// the watched directory.
type Trigger interface {
	Fire(ctx context.Context, unit UnitRequest) error
}

// TriggerFunc adapts a function to Trigger.
type TriggerFunc func(ctx context.Context, unit UnitRequest) error

// Fire calls f.
func (f TriggerFunc) Fire(ctx context.Context, unit UnitRequest) error { return f(ctx, unit) }

// Resetter is implemented by triggers that need to restore the external
// session between units, such as reloading a page.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Reporter receives progress. UnitDone is called after every unit and RunDone
// once at the end, both from the goroutine running the batch. RunDone gets its
// own copy of the results.
type Reporter interface {
	UnitDone(UnitResult)
	RunDone(RunSummary)
}

// Reporters fans out to several reporters in order. Nil entries, including
// nil pointers stored in the interface, are dropped.
func Reporters(rs ...Reporter) Reporter {
	m := make(multiReporter, 0, len(rs))
	for _, r := range rs {
		if isNilReporter(r) {
			continue
		}
		m = append(m, r)
	}
	return m
}

func isNilReporter(r Reporter) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

type multiReporter []Reporter

func (m multiReporter) UnitDone(r UnitResult) {
	for _, rep := range m {
		rep.UnitDone(r)
	}
}

func (m multiReporter) RunDone(s RunSummary) {
	for _, rep := range m {
		rep.RunDone(s)
	}
}

// Session holds everything one batch needs. It is owned by the caller and
// passed to NewOrchestrator; nothing is kept in package state.
type Session struct {
	WatchDir string
	DestDir  string

	// Trigger is fired before each unit is polled. Nil means the file is
	// produced by some other means (manual download).
	Trigger Trigger

	Poller    *Poller
	Relocator *Relocator
	Reporter  Reporter

	// Settle is a pause between firing the trigger and polling.
	Settle time.Duration

	Logger zerolog.Logger
}

// Orchestrator runs acquisition units one after another.
//
// Units never run concurrently: they share one watched directory and one
// external session, and interleaving them would make it impossible to tell
// which file belongs to which unit.
type Orchestrator struct {
	s Session
}

// NewOrchestrator returns an Orchestrator for the session.
func NewOrchestrator(s Session) *Orchestrator {
	if s.Poller == nil {
		s.Poller = &Poller{}
	}
	if s.Relocator == nil {
		s.Relocator = &Relocator{}
	}
	return &Orchestrator{s: s}
}

// Run processes units in order and always returns a summary. A failed unit
// never stops the batch. Cancelling ctx stops the batch before the next unit
// and marks the summary as cancelled.
func (o *Orchestrator) Run(ctx context.Context, units []UnitRequest) RunSummary {
	summary := RunSummary{
		RunID:     uuid.NewString(),
		WatchDir:  o.s.WatchDir,
		DestDir:   o.s.DestDir,
		Results:   make([]UnitResult, 0, len(units)),
		StartedAt: time.Now(),
	}
	log := o.s.Logger.With().Str("run", summary.RunID).Logger()
	log.Info().Int("units", len(units)).Str("watch", o.s.WatchDir).Str("dest", o.s.DestDir).Msg("batch started")

	for i, u := range units {
		if ctx.Err() != nil {
			summary.Cancelled = true
			log.Warn().Int("remaining", len(units)-i).Msg("batch cancelled")
			break
		}

		if i > 0 {
			if r, ok := o.s.Trigger.(Resetter); ok {
				if err := r.Reset(ctx); err != nil {
					log.Warn().Err(err).Msg("reset between units failed")
				}
			}
		}

		res := o.runUnit(ctx, log, i, u)
		summary.Attempted++
		if res.Acquired() {
			summary.Acquired++
		} else {
			summary.Failed++
		}
		summary.Results = append(summary.Results, res)

		if o.s.Reporter != nil {
			o.s.Reporter.UnitDone(res)
		}

		if ctx.Err() != nil && !res.Acquired() {
			summary.Cancelled = true
			if i < len(units)-1 {
				log.Warn().Int("remaining", len(units)-i-1).Msg("batch cancelled")
			}
			break
		}
	}

	summary.FinishedAt = time.Now()
	log.Info().
		Int("attempted", summary.Attempted).
		Int("acquired", summary.Acquired).
		Int("failed", summary.Failed).
		Bool("cancelled", summary.Cancelled).
		Dur("elapsed", summary.FinishedAt.Sub(summary.StartedAt)).
		Msg("batch finished")

	if o.s.Reporter != nil {
		reported := summary
		reported.Results = append([]UnitResult(nil), summary.Results...)
		o.s.Reporter.RunDone(reported)
	}
	return summary
}

// Start runs the batch on its own goroutine and delivers the summary on the
// returned channel, which is closed afterwards.
func (o *Orchestrator) Start(ctx context.Context, units []UnitRequest) <-chan RunSummary {
	own := append([]UnitRequest(nil), units...)
	ch := make(chan RunSummary, 1)
	go func() {
		defer close(ch)
		ch <- o.Run(ctx, own)
	}()
	return ch
}

func (o *Orchestrator) runUnit(ctx context.Context, log zerolog.Logger, i int, u UnitRequest) UnitResult {
	res := UnitResult{Index: i, Unit: u, State: UnitPending, StartedAt: time.Now()}
	log = log.With().Str("unit", u.ID).Logger()

	fail := func(state UnitState, err error) UnitResult {
		res.State = state
		res.Err = err
		res.Duration = time.Since(res.StartedAt)
		log.Error().Err(err).Str("state", string(state)).Msg("unit failed")
		return res
	}

	if o.s.Trigger != nil {
		if err := o.s.Trigger.Fire(ctx, u); err != nil {
			return fail(UnitFailed, &TriggerError{Unit: u.ID, Err: err})
		}
	}

	if o.s.Settle > 0 {
		t := time.NewTimer(o.s.Settle)
		select {
		case <-ctx.Done():
			t.Stop()
			return fail(UnitFailed, ctx.Err())
		case <-t.C:
		}
	}

	res.State = UnitProbing
	path, err := o.s.Poller.Await(ctx, o.s.WatchDir)
	if err != nil {
		if IsNoFile(err) {
			return fail(UnitTimedOut, err)
		}
		return fail(UnitFailed, err)
	}

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	name, err := o.s.Relocator.Place(path, o.s.DestDir, u.LogicalName())
	if err != nil {
		return fail(UnitFailed, err)
	}

	res.State = UnitAcquired
	res.Path = filepath.Join(o.s.DestDir, name)
	res.Size = size
	res.Duration = time.Since(res.StartedAt)
	log.Info().Str("file", name).Int64("size", size).Dur("elapsed", res.Duration).Msg("unit acquired")
	return res
}

// Classify names the failure class of a unit error for reports and storage.
func Classify(err error) string {
	var (
		nf  *NotFoundError
		uf  *UnstableFileError
		re  *RelocationError
		ide *InvalidDirectoryError
		te  *TriggerError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &te):
		return "trigger"
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &uf):
		return "unstable"
	case errors.As(err, &re):
		return "relocation"
	case errors.As(err, &ide):
		return "invalid_directory"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "unknown"
	}
}
