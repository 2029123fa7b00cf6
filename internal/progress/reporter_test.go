package progress

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ligustah/acquire/pkg/acquire"
)

// syncBuffer guards a bytes.Buffer shared with the update loop.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1024 * 1024, "1.00 MB"},
		{256 * 1024 * 1024, "256.00 MB"},
		{1024 * 1024 * 1024, "1.00 GB"},
		{1024 * 1024 * 1024 * 1024, "1.00 TB"},
	}

	for _, tt := range tests {
		result := FormatBytes(tt.input)
		if result != tt.expected {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestParseBytes(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
	}{
		{"100", 100},
		{"100B", 100},
		{"1KB", 1024},
		{"1.5KB", 1536},
		{"1kb", 1024},
		{" 2 KB ", 2048},
		{"256MB", 256 * 1024 * 1024},
		{"1GB", 1024 * 1024 * 1024},
		{"1TB", 1024 * 1024 * 1024 * 1024},
	}

	for _, tt := range tests {
		result, err := ParseBytes(tt.input)
		if err != nil {
			t.Errorf("ParseBytes(%q): %v", tt.input, err)
			continue
		}
		if result != tt.expected {
			t.Errorf("ParseBytes(%q) = %d, want %d", tt.input, result, tt.expected)
		}
	}
}

func TestParseBytesInvalid(t *testing.T) {
	for _, in := range []string{"invalid", "", "-1KB", "MB"} {
		if _, err := ParseBytes(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestReporterUnitTracking(t *testing.T) {
	var out bytes.Buffer
	reporter := NewReporter(Options{TotalUnits: 3, Output: &out})

	reporter.UnitDone(acquire.UnitResult{
		Unit:     acquire.UnitRequest{ID: "0001", Name: "HEALTHY MATRIZ"},
		State:    acquire.UnitAcquired,
		Path:     "/out/HEALTHY MATRIZ.xlsx",
		Size:     2048,
		Duration: time.Second,
	})
	reporter.UnitDone(acquire.UnitResult{
		Unit:  acquire.UnitRequest{ID: "0011"},
		State: acquire.UnitTimedOut,
		Err:   &acquire.NotFoundError{Dir: "/in", Timeout: time.Second},
	})

	if reporter.doneUnits.Load() != 2 {
		t.Errorf("expected 2 done units, got %d", reporter.doneUnits.Load())
	}
	if reporter.acquiredUnits.Load() != 1 {
		t.Errorf("expected 1 acquired unit, got %d", reporter.acquiredUnits.Load())
	}
	if reporter.failedUnits.Load() != 1 {
		t.Errorf("expected 1 failed unit, got %d", reporter.failedUnits.Load())
	}
	if reporter.acquiredBytes.Load() != 2048 {
		t.Errorf("expected 2048 bytes, got %d", reporter.acquiredBytes.Load())
	}

	got := out.String()
	if !strings.Contains(got, "0001: HEALTHY MATRIZ -> HEALTHY MATRIZ.xlsx (2.00 KB, 1s)") {
		t.Errorf("expected acquired line, got %q", got)
	}
	if !strings.Contains(got, "0011: 0011 timed_out (not_found)") {
		t.Errorf("expected timed out line, got %q", got)
	}
}

func TestReporterTick(t *testing.T) {
	reporter := NewReporter(Options{TotalUnits: 1, Output: &bytes.Buffer{}})

	reporter.Tick(1, acquire.StateWaiting, "/in/EST31100.xlsx")
	reporter.Tick(2, acquire.StateDone, "/in/EST31100.xlsx")

	if reporter.ticks.Load() != 2 {
		t.Errorf("expected 2 ticks, got %d", reporter.ticks.Load())
	}
	if reporter.pollState != acquire.StateDone {
		t.Errorf("expected state done, got %v", reporter.pollState)
	}
	if reporter.candidate != "/in/EST31100.xlsx" {
		t.Errorf("expected candidate recorded, got %q", reporter.candidate)
	}
}

func TestReporterStartStop(t *testing.T) {
	out := &syncBuffer{}
	reporter := NewReporter(Options{
		TotalUnits:     2,
		Output:         out,
		UpdateInterval: 10 * time.Millisecond,
		WatchDir:       "/in",
		DestDir:        "/out",
	})

	reporter.Start()
	reporter.Tick(1, acquire.StateWaiting, "/in/report.xlsx")
	time.Sleep(50 * time.Millisecond)
	reporter.UnitDone(acquire.UnitResult{
		Unit:  acquire.UnitRequest{ID: "a"},
		State: acquire.UnitAcquired,
		Path:  "/out/a.xlsx",
		Size:  10,
	})
	reporter.UnitDone(acquire.UnitResult{
		Unit:  acquire.UnitRequest{ID: "b"},
		State: acquire.UnitFailed,
		Err:   errors.New("boom"),
	})
	reporter.Stop()
	reporter.Stop()

	got := out.String()
	for _, want := range []string{
		"[acquire] Watching: /in",
		"[acquire] Destination: /out | Units: 2",
		"[acquire] Progress: 0/2 units",
		"Poller: waiting report.xlsx",
		"[acquire] Units: 2/2 | 1 acquired | 1 failed",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected output to contain %q, got %q", want, got)
		}
	}
}

func TestReporterRunDone(t *testing.T) {
	out := &syncBuffer{}
	reporter := NewReporter(Options{TotalUnits: 1, Output: out, UpdateInterval: time.Hour})
	reporter.Start()

	start := time.Now()
	reporter.RunDone(acquire.RunSummary{
		RunID:      "run-1",
		Attempted:  1,
		Cancelled:  true,
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
	})

	got := out.String()
	if !strings.Contains(got, "[acquire] Run run-1 cancelled") {
		t.Errorf("expected cancelled run line, got %q", got)
	}
	if !strings.Contains(got, "[acquire] Total time: 1m 30s") {
		t.Errorf("expected total time from summary, got %q", got)
	}
	if strings.Count(got, "Total time") != 1 {
		t.Errorf("expected final status printed once, got %q", got)
	}
}

func TestReporterRunDoneWithoutStart(t *testing.T) {
	var out bytes.Buffer
	reporter := NewReporter(Options{TotalUnits: 0, Output: &out})
	reporter.RunDone(acquire.RunSummary{RunID: "run-2"})

	if !strings.Contains(out.String(), "[acquire] Run run-2 complete") {
		t.Errorf("expected summary line, got %q", out.String())
	}
}
