package acquire

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFileAt(t *testing.T, dir, name, content string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
	return path
}

func TestSelectMostRecent(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)

	writeFileAt(t, dir, "EST31100_old.xlsx", "old", base)
	newest := writeFileAt(t, dir, "EST31100_new.xlsx", "new", base.Add(2*time.Minute))
	writeFileAt(t, dir, "EST31100_mid.xlsx", "mid", base.Add(time.Minute))
	writeFileAt(t, dir, "notes.txt", "ignored", base.Add(time.Hour))

	sel := &Selector{}
	c, ok, err := sel.Select(dir)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !ok {
		t.Fatal("expected a candidate")
	}
	if c.Path != newest {
		t.Errorf("expected %s, got %s", newest, c.Path)
	}
	if c.Size != 3 {
		t.Errorf("expected size 3, got %d", c.Size)
	}
}

func TestSelectCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	path := writeFileAt(t, dir, "est31100_Report.XLSX", "data", time.Now())

	sel := &Selector{Patterns: []string{"EST31100*"}}
	c, ok, err := sel.Select(dir)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !ok || c.Path != path {
		t.Errorf("expected %s, got %+v (ok=%v)", path, c, ok)
	}
}

func TestSelectNoMatch(t *testing.T) {
	dir := t.TempDir()
	writeFileAt(t, dir, "readme.md", "x", time.Now())
	if err := os.Mkdir(filepath.Join(dir, "EST31100_dir.xlsx"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	sel := &Selector{}
	_, ok, err := sel.Select(dir)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if ok {
		t.Error("expected no candidate")
	}
}

func TestSelectTempSuffix(t *testing.T) {
	t.Run("partial only is skipped", func(t *testing.T) {
		dir := t.TempDir()
		writeFileAt(t, dir, "EST31100_a.xlsx.crdownload", "partial", time.Now())

		sel := &Selector{}
		_, ok, err := sel.Select(dir)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if ok {
			t.Error("expected in-progress download to be excluded")
		}
	})

	t.Run("partial resolves to finished counterpart", func(t *testing.T) {
		dir := t.TempDir()
		now := time.Now()
		final := writeFileAt(t, dir, "EST31100_a.xlsx", "done", now.Add(-time.Minute))
		writeFileAt(t, dir, "EST31100_a.xlsx.part", "leftover", now)

		sel := &Selector{}
		c, ok, err := sel.Select(dir)
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if !ok || c.Path != final {
			t.Errorf("expected %s, got %+v (ok=%v)", final, c, ok)
		}
	})
}

func TestSelectInvalidDirectory(t *testing.T) {
	sel := &Selector{}
	_, _, err := sel.Select(filepath.Join(t.TempDir(), "missing"))

	var ide *InvalidDirectoryError
	if !errors.As(err, &ide) {
		t.Fatalf("expected InvalidDirectoryError, got %v", err)
	}
}

func TestPurge(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeFileAt(t, dir, "EST31100_1.xlsx", "a", now)
	writeFileAt(t, dir, "EST31100_2.xls", "b", now)
	writeFileAt(t, dir, "EST31100_3.xlsx.crdownload", "c", now)
	writeFileAt(t, dir, "Inventario_Clinica_Norte.xlsx", "d", now)
	keep := map[string]bool{
		"holiday.jpg":                    true,
		"Presupuesto familiar 2025.xlsx": true,
		"nomina.xls":                     true,
	}
	for name := range keep {
		writeFileAt(t, dir, name, "keep", now)
	}

	// Selection patterns must not widen the purge.
	sel := &Selector{Patterns: []string{"*.xlsx", "*.xls"}}
	n, err := sel.Purge(dir)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 removed, got %d", n)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != len(keep) {
		t.Errorf("expected %d files to remain, got %v", len(keep), entries)
	}
	for _, e := range entries {
		if !keep[e.Name()] {
			t.Errorf("expected %s to be purged", e.Name())
		}
	}
}

func TestPurgeCustomPatterns(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeFileAt(t, dir, "export_1.csv", "a", now)
	writeFileAt(t, dir, "EST31100_1.xlsx", "b", now)

	sel := &Selector{PurgePatterns: []string{"export_*"}}
	n, err := sel.Purge(dir)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 removed, got %d", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "EST31100_1.xlsx")); err != nil {
		t.Errorf("expected EST31100_1.xlsx to remain: %v", err)
	}
}

func TestMatchAny(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		want     bool
	}{
		{"EST31100_x.xlsx", []string{"EST31100*"}, true},
		{"est31100.csv", []string{"EST31100*"}, true},
		{"report.XLS", []string{"*.xls"}, true},
		{"report.xlsx", []string{"*.xls"}, false},
		{"report.xlsx", []string{"[invalid"}, false},
		{"report.xlsx", nil, false},
	}

	for _, tt := range tests {
		if got := matchAny(tt.patterns, tt.name); got != tt.want {
			t.Errorf("matchAny(%v, %q) = %v, want %v", tt.patterns, tt.name, got, tt.want)
		}
	}
}
