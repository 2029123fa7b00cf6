package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/ligustah/acquire/pkg/acquire"
)

func TestRunUsage(t *testing.T) {
	tests := []struct {
		args []string
		want int
	}{
		{nil, ExitInvalidArgs},
		{[]string{"help"}, ExitSuccess},
		{[]string{"--help"}, ExitSuccess},
		{[]string{"frobnicate"}, ExitInvalidArgs},
		{[]string{"place"}, ExitInvalidArgs},
		{[]string{"validate", "-bucket", "mem://"}, ExitInvalidArgs},
		{[]string{"delete", "-run", "x"}, ExitInvalidArgs},
		{[]string{"restore", "-bucket", "mem://", "-run", "x"}, ExitInvalidArgs},
		{[]string{"list"}, ExitInvalidArgs},
	}

	for _, tt := range tests {
		if got := run(tt.args); got != tt.want {
			t.Errorf("run(%v): expected exit %d, got %d", tt.args, tt.want, got)
		}
	}
}

func TestPlaceCommand(t *testing.T) {
	src := filepath.Join(t.TempDir(), "EST31100_0001.xls")
	if err := os.WriteFile(src, []byte("report"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	dest := t.TempDir()
	if err := os.WriteFile(filepath.Join(dest, "HEALTHY MATRIZ.xlsx"), []byte("old"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	code := run([]string{"place", "-src", src, "-dest", dest, "-name", "HEALTHY MATRIZ"})
	if code != ExitSuccess {
		t.Fatalf("expected exit 0, got %d", code)
	}

	data, err := os.ReadFile(filepath.Join(dest, "HEALTHY MATRIZ_1.xlsx"))
	if err != nil {
		t.Fatalf("expected suffixed file: %v", err)
	}
	if string(data) != "report" {
		t.Errorf("expected moved content, got %q", data)
	}
	old, _ := os.ReadFile(filepath.Join(dest, "HEALTHY MATRIZ.xlsx"))
	if string(old) != "old" {
		t.Errorf("expected existing file untouched, got %q", old)
	}
}

func TestPlaceMissingSource(t *testing.T) {
	code := run([]string{"place", "-src", filepath.Join(t.TempDir(), "nope.xlsx"), "-dest", t.TempDir()})
	if code != ExitGeneralError {
		t.Errorf("expected exit %d, got %d", ExitGeneralError, code)
	}
}

func TestPurgeCommand(t *testing.T) {
	dir := t.TempDir()
	names := []string{"EST31100.xlsx", "EST31100 (1).xlsx.crdownload", "notes.txt", "Presupuesto familiar 2025.xlsx"}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if code := run([]string{"purge", "-dir", dir}); code != ExitSuccess {
		t.Fatalf("expected exit 0, got %d", code)
	}

	entries, _ := os.ReadDir(dir)
	var left []string
	for _, e := range entries {
		left = append(left, e.Name())
	}
	sort.Strings(left)
	if len(left) != 2 || left[0] != "Presupuesto familiar 2025.xlsx" || left[1] != "notes.txt" {
		t.Errorf("expected unrelated files to survive, got %v", left)
	}
}

func TestAwaitCommand(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "report.xlsx"), []byte("ready"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if code := run([]string{"await", "-dir", dir, "-timeout", "3s", "-poll", "50ms"}); code != ExitSuccess {
		t.Errorf("expected exit 0, got %d", code)
	}
}

func TestAwaitCommandNoFile(t *testing.T) {
	if code := run([]string{"await", "-dir", t.TempDir(), "-timeout", "100ms", "-poll", "20ms"}); code != ExitNoFile {
		t.Errorf("expected exit %d, got %d", ExitNoFile, code)
	}
}

func TestAwaitCommandInvalidDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	if code := run([]string{"await", "-dir", missing, "-timeout", "100ms"}); code != ExitWatchDirInvalid {
		t.Errorf("expected exit %d, got %d", ExitWatchDirInvalid, code)
	}
}

// writeCommandConfig writes a config whose trigger drops a report for each
// unit into the watch directory.
func writeCommandConfig(t *testing.T, watch, dest string) string {
	t.Helper()
	script := `printf 'inventory {{.ID}}' > "$0/EST31100_{{.ID}}.xlsx"`
	cfg := fmt.Sprintf(`
watch:
  dir: %q
  timeout: 5s
  poll_interval: 50ms
probe:
  interval: 50ms
dest:
  root: %q
  label: Inventario
trigger:
  kind: command
  command: ["sh", "-c", %q, %q]
units:
  - id: "0001"
    name: HEALTHY MATRIZ
  - id: "0011"
    name: PLANTA IBAGUE
log:
  level: warn
`, watch, dest, script, watch)

	p := filepath.Join(t.TempDir(), "acquire.yaml")
	if err := os.WriteFile(p, []byte(cfg), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestRunBatchCommandTrigger(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	watch := t.TempDir()
	dest := t.TempDir()
	archiveRoot := t.TempDir()

	cfgPath := writeCommandConfig(t, watch, dest)
	code := run([]string{"run", "-config", cfgPath, "-archive-bucket", "file://" + filepath.ToSlash(archiveRoot), "-archive-prefix", "runs"})
	if code != ExitSuccess {
		t.Fatalf("expected exit 0, got %d", code)
	}

	folders, err := os.ReadDir(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if len(folders) != 1 || !strings.HasPrefix(folders[0].Name(), "Inventario ") {
		t.Fatalf("expected one run folder, got %v", folders)
	}
	runDir := filepath.Join(dest, folders[0].Name())

	for id, name := range map[string]string{"0001": "HEALTHY MATRIZ", "0011": "PLANTA IBAGUE"} {
		data, err := os.ReadFile(filepath.Join(runDir, name+".xlsx"))
		if err != nil {
			t.Errorf("expected %s.xlsx: %v", name, err)
			continue
		}
		if string(data) != "inventory "+id {
			t.Errorf("expected content for %s, got %q", id, data)
		}
	}

	left, _ := os.ReadDir(watch)
	if len(left) != 0 {
		t.Errorf("expected watch dir emptied, got %d entries", len(left))
	}

	manifests, _ := filepath.Glob(filepath.Join(archiveRoot, "runs", "*.manifest.json"))
	if len(manifests) != 1 {
		t.Errorf("expected one archived manifest, got %v", manifests)
	}
}

func TestRunBatchNoFiles(t *testing.T) {
	watch := t.TempDir()
	dest := t.TempDir()

	code := run([]string{"run",
		"-watch", watch,
		"-dest", dest,
		"-flat",
		"-units", "0001,0011",
		"-timeout", "100ms",
		"-poll", "20ms",
		"-log-level", "error",
	})
	if code != ExitNoFile {
		t.Errorf("expected exit %d, got %d", ExitNoFile, code)
	}
}

func TestRunBatchRequiresUnits(t *testing.T) {
	code := run([]string{"run", "-watch", t.TempDir(), "-dest", t.TempDir()})
	if code != ExitInvalidArgs {
		t.Errorf("expected exit %d, got %d", ExitInvalidArgs, code)
	}
}

func TestRunBatchInvalidWatchDir(t *testing.T) {
	code := run([]string{"run", "-watch", filepath.Join(t.TempDir(), "gone"), "-dest", t.TempDir(), "-units", "1"})
	if code != ExitWatchDirInvalid {
		t.Errorf("expected exit %d, got %d", ExitWatchDirInvalid, code)
	}
}

func TestParseUnits(t *testing.T) {
	units, err := parseUnits("0001=HEALTHY MATRIZ, 0011 ,,0003=ASOCAÑA CALI")
	if err != nil {
		t.Fatalf("parseUnits: %v", err)
	}
	want := []acquire.UnitRequest{
		{ID: "0001", Name: "HEALTHY MATRIZ"},
		{ID: "0011"},
		{ID: "0003", Name: "ASOCAÑA CALI"},
	}
	if len(units) != len(want) {
		t.Fatalf("expected %d units, got %v", len(want), units)
	}
	for i := range want {
		if units[i] != want[i] {
			t.Errorf("unit %d: expected %+v, got %+v", i, want[i], units[i])
		}
	}

	if _, err := parseUnits("=name"); err == nil {
		t.Error("expected error for unit without id")
	}
}

func TestExitCodeFor(t *testing.T) {
	notFound := &acquire.NotFoundError{Dir: "/in", Timeout: time.Second}
	tests := []struct {
		name    string
		summary acquire.RunSummary
		want    int
	}{
		{"all acquired", acquire.RunSummary{Attempted: 2, Acquired: 2}, ExitSuccess},
		{"cancelled", acquire.RunSummary{Cancelled: true}, ExitCancelled},
		{
			"nothing produced",
			acquire.RunSummary{Attempted: 1, Failed: 1, Results: []acquire.UnitResult{{Err: notFound}}},
			ExitNoFile,
		},
		{
			"mixed",
			acquire.RunSummary{Attempted: 2, Acquired: 1, Failed: 1, Results: []acquire.UnitResult{{}, {Err: notFound}}},
			ExitUnitsFailed,
		},
		{
			"trigger failure",
			acquire.RunSummary{Attempted: 1, Failed: 1, Results: []acquire.UnitResult{{Err: &acquire.TriggerError{Unit: "1"}}}},
			ExitUnitsFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.summary); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
