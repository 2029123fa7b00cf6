package acquire

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Poller defaults.
const (
	DefaultTimeout      = 5 * time.Second
	DefaultPollInterval = 800 * time.Millisecond
)

// State is the poller's position in its wait cycle.
type State int

const (
	// StateWaiting means no stable candidate has been confirmed yet.
	StateWaiting State = iota
	// StateDone means a stable candidate was returned.
	StateDone
	// StateTimedOut means the deadline passed; the fallback scan runs next.
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateDone:
		return "done"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Poller waits for an external process to finish producing a file in a
// directory, without any completion signal from that process.
type Poller struct {
	Selector *Selector
	Prober   *Prober

	// Timeout bounds the whole wait. Default: 5s.
	Timeout time.Duration

	// PollInterval is the pause between ticks. Default: 800ms.
	PollInterval time.Duration

	// RequiredStableReads is how many consecutive stable verdicts the same
	// candidate needs. Default: 1.
	RequiredStableReads int

	// FallbackPatterns drive the single last-chance scan after the deadline.
	// Empty means DefaultFallbackPatterns.
	FallbackPatterns []string

	// OnTick, if set, is called after every tick with the candidate path seen
	// on that tick ("" for none).
	OnTick func(tick int, state State, candidate string)

	Logger zerolog.Logger
}

// Await blocks until a stable matching file exists in dir and returns its
// path. It returns *NotFoundError or *UnstableFileError when the deadline
// passes without one, *InvalidDirectoryError when dir cannot be read, and the
// context error if ctx is cancelled; the context is checked on every tick.
func (p *Poller) Await(ctx context.Context, dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", &InvalidDirectoryError{Dir: dir, Err: err}
	}
	if !info.IsDir() {
		return "", &InvalidDirectoryError{Dir: dir, Err: os.ErrInvalid}
	}

	sel := p.Selector
	if sel == nil {
		sel = &Selector{}
	}
	prober := p.Prober
	if prober == nil {
		prober = &Prober{}
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	interval := p.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	required := p.RequiredStableReads
	if required <= 0 {
		required = 1
	}

	log := p.Logger.With().Str("dir", dir).Logger()
	log.Debug().Dur("timeout", timeout).Dur("interval", interval).Msg("waiting for file")

	deadline := time.Now().Add(timeout)
	var (
		last        string
		stableReads int
	)

	for tick := 1; ; tick++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		c, ok, err := sel.Select(dir)
		if err != nil {
			return "", err
		}

		var seen string
		if ok {
			seen = c.Path
			if c.Path != last {
				last = c.Path
				stableReads = 0
			}
			if prober.Stable(ctx, c.Path) {
				stableReads++
			} else {
				stableReads = 0
			}
			if stableReads >= required {
				p.notify(tick, StateDone, seen)
				log.Debug().Str("file", c.Path).Int("tick", tick).Msg("file acquired")
				return c.Path, nil
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			p.notify(tick, StateTimedOut, seen)
			break
		}
		p.notify(tick, StateWaiting, seen)

		wait := interval
		if remaining < wait {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	// The OS sometimes lists a finished download late; give the strictest
	// pattern one more look.
	fallback := p.FallbackPatterns
	if len(fallback) == 0 {
		fallback = DefaultFallbackPatterns
	}
	if c, ok, err := sel.selectWith(dir, fallback); err == nil && ok {
		if prober.Stable(ctx, c.Path) {
			log.Warn().Str("file", c.Path).Msg("using fallback file after timeout")
			return c.Path, nil
		}
	}

	if last != "" {
		return "", &UnstableFileError{Path: last, Timeout: timeout}
	}
	return "", &NotFoundError{Dir: dir, Timeout: timeout}
}

func (p *Poller) notify(tick int, state State, candidate string) {
	if p.OnTick != nil {
		p.OnTick(tick, state, candidate)
	}
}
