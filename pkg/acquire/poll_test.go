package acquire

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func fastPoller(timeout time.Duration) *Poller {
	return &Poller{
		Selector:     &Selector{},
		Prober:       &Prober{Interval: 30 * time.Millisecond},
		Timeout:      timeout,
		PollInterval: 20 * time.Millisecond,
	}
}

func TestAwaitEmptyDirectoryTimesOut(t *testing.T) {
	dir := t.TempDir()
	p := fastPoller(300 * time.Millisecond)

	start := time.Now()
	path, err := p.Await(context.Background(), dir)
	elapsed := time.Since(start)

	if path != "" {
		t.Errorf("expected no path, got %s", path)
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if !IsNoFile(err) {
		t.Error("expected IsNoFile to be true")
	}
	if elapsed < 300*time.Millisecond {
		t.Errorf("returned before timeout: %v", elapsed)
	}
	if elapsed > 300*time.Millisecond+p.PollInterval+200*time.Millisecond {
		t.Errorf("returned too long after timeout: %v", elapsed)
	}
}

// A report written a second into the wait is picked up before the deadline.
func TestAwaitFileCreatedMidPoll(t *testing.T) {
	dir := t.TempDir()
	want := filepath.Join(dir, "EST31100_report.xlsx")

	go func() {
		time.Sleep(time.Second)
		os.WriteFile(want, []byte("fixed content"), 0644)
	}()

	p := &Poller{Timeout: 5 * time.Second, PollInterval: 500 * time.Millisecond}
	path, err := p.Await(context.Background(), dir)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if path != want {
		t.Errorf("expected %s, got %s", want, path)
	}
}

// A download that never leaves its temp name is not acquired, not even by
// the fallback scan.
func TestAwaitPartialDownloadOnly(t *testing.T) {
	dir := t.TempDir()
	writeFileAt(t, dir, "report.crdownload", "partial", time.Now())

	p := fastPoller(300 * time.Millisecond)
	p.Selector.Patterns = []string{"*"}
	p.FallbackPatterns = []string{"report*"}

	path, err := p.Await(context.Background(), dir)
	if path != "" {
		t.Errorf("expected no path, got %s", path)
	}
	if !IsNoFile(err) {
		t.Errorf("expected no-file error, got %v", err)
	}
}

func TestAwaitFallbackAfterDeadline(t *testing.T) {
	dir := t.TempDir()
	want := writeFileAt(t, dir, "EST31100.dat", "report", time.Now().Add(-time.Minute))

	p := fastPoller(200 * time.Millisecond)
	p.Selector.Patterns = []string{"*.xlsx"}
	p.FallbackPatterns = []string{"EST31100*"}

	start := time.Now()
	path, err := p.Await(context.Background(), dir)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if path != want {
		t.Errorf("expected fallback file %s, got %s", want, path)
	}
	if time.Since(start) < 200*time.Millisecond {
		t.Error("expected fallback scan only after the deadline")
	}
}

func TestAwaitGrowingFileNeverStable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "EST31100_growing.xlsx")
	stop := startGrowing(t, path, 5*time.Millisecond)
	defer stop()

	p := fastPoller(400 * time.Millisecond)
	got, err := p.Await(context.Background(), dir)
	if got != "" {
		t.Errorf("expected no path for growing file, got %s", got)
	}

	var uf *UnstableFileError
	if !errors.As(err, &uf) {
		t.Fatalf("expected UnstableFileError, got %v", err)
	}
	if uf.Path != path {
		t.Errorf("expected unstable path %s, got %s", path, uf.Path)
	}
}

func TestAwaitFileFinishesWriting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "EST31100_slow.xlsx")
	stop := startGrowing(t, path, 5*time.Millisecond)
	go func() {
		time.Sleep(200 * time.Millisecond)
		stop()
	}()

	p := fastPoller(3 * time.Second)
	got, err := p.Await(context.Background(), dir)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if got != path {
		t.Errorf("expected %s, got %s", path, got)
	}
}

func TestAwaitRequiredStableReads(t *testing.T) {
	dir := t.TempDir()
	want := writeFileAt(t, dir, "EST31100_ready.xlsx", "done", time.Now())

	var mu sync.Mutex
	var states []State
	p := fastPoller(2 * time.Second)
	p.RequiredStableReads = 3
	p.OnTick = func(tick int, state State, candidate string) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, state)
	}

	got, err := p.Await(context.Background(), dir)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 3 {
		t.Fatalf("expected 3 ticks, got %d (%v)", len(states), states)
	}
	if states[0] != StateWaiting || states[2] != StateDone {
		t.Errorf("unexpected state sequence %v", states)
	}
}

func TestAwaitInvalidDirectory(t *testing.T) {
	p := fastPoller(time.Second)

	_, err := p.Await(context.Background(), filepath.Join(t.TempDir(), "missing"))
	var ide *InvalidDirectoryError
	if !errors.As(err, &ide) {
		t.Fatalf("expected InvalidDirectoryError, got %v", err)
	}
	if IsNoFile(err) {
		t.Error("invalid directory must not be reported as no file")
	}

	file := writeFileAt(t, t.TempDir(), "plain.txt", "x", time.Now())
	_, err = p.Await(context.Background(), file)
	if !errors.As(err, &ide) {
		t.Fatalf("expected InvalidDirectoryError for a file path, got %v", err)
	}
}

func TestAwaitContextCancelled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	p := fastPoller(10 * time.Second)
	start := time.Now()
	_, err := p.Await(ctx, dir)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("cancellation was not observed promptly")
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateWaiting, "waiting"},
		{StateDone, "done"},
		{StateTimedOut, "timed_out"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
