package acquire

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Two acquisitions with the same logical name get distinct files.
func TestPlaceCollisionSuffix(t *testing.T) {
	watch := t.TempDir()
	dest := t.TempDir()
	r := &Relocator{}

	first := writeFileAt(t, watch, "EST31100_1.xlsx", "first", time.Now())
	name, err := r.Place(first, dest, "Clinica A")
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if name != "Clinica A.xlsx" {
		t.Errorf("expected Clinica A.xlsx, got %s", name)
	}

	second := writeFileAt(t, watch, "EST31100_2.xlsx", "second", time.Now())
	name, err = r.Place(second, dest, "Clinica A")
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if name != "Clinica A_1.xlsx" {
		t.Errorf("expected Clinica A_1.xlsx, got %s", name)
	}

	for file, want := range map[string]string{"Clinica A.xlsx": "first", "Clinica A_1.xlsx": "second"} {
		got, err := os.ReadFile(filepath.Join(dest, file))
		if err != nil {
			t.Fatalf("read %s: %v", file, err)
		}
		if string(got) != want {
			t.Errorf("%s: expected %q, got %q", file, want, got)
		}
	}

	for _, src := range []string{first, second} {
		if _, err := os.Stat(src); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("expected source %s to be moved, stat err = %v", src, err)
		}
	}
}

func TestPlaceSkipsTakenSuffixes(t *testing.T) {
	dest := t.TempDir()
	for _, name := range []string{"Clinica B.xlsx", "Clinica B_1.xlsx", "Clinica B_2.xlsx"} {
		writeFileAt(t, dest, name, "existing", time.Now())
	}

	src := writeFileAt(t, t.TempDir(), "EST31100.xlsx", "new", time.Now())
	r := &Relocator{}
	name, err := r.Place(src, dest, "Clinica B")
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if name != "Clinica B_3.xlsx" {
		t.Errorf("expected Clinica B_3.xlsx, got %s", name)
	}

	got, _ := os.ReadFile(filepath.Join(dest, "Clinica B.xlsx"))
	if string(got) != "existing" {
		t.Error("existing destination file was overwritten")
	}
}

func TestPlaceTooManyCollisions(t *testing.T) {
	dest := t.TempDir()
	writeFileAt(t, dest, "X.xlsx", "0", time.Now())
	writeFileAt(t, dest, "X_1.xlsx", "1", time.Now())
	writeFileAt(t, dest, "X_2.xlsx", "2", time.Now())

	src := writeFileAt(t, t.TempDir(), "EST31100.xlsx", "new", time.Now())
	r := &Relocator{MaxCollisions: 2}
	_, err := r.Place(src, dest, "X")

	var re *RelocationError
	if !errors.As(err, &re) {
		t.Fatalf("expected RelocationError, got %v", err)
	}
	if !errors.Is(err, ErrTooManyCollisions) {
		t.Errorf("expected ErrTooManyCollisions, got %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source should be left in place: %v", err)
	}
}

func TestPlaceMissingSource(t *testing.T) {
	r := &Relocator{}
	_, err := r.Place(filepath.Join(t.TempDir(), "gone.xlsx"), t.TempDir(), "Clinica C")

	var re *RelocationError
	if !errors.As(err, &re) {
		t.Fatalf("expected RelocationError, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected wrapped ErrNotExist, got %v", err)
	}
}

func TestPlaceMissingDestination(t *testing.T) {
	src := writeFileAt(t, t.TempDir(), "EST31100.xlsx", "data", time.Now())
	r := &Relocator{}
	_, err := r.Place(src, filepath.Join(t.TempDir(), "missing"), "Clinica D")

	var re *RelocationError
	if !errors.As(err, &re) {
		t.Fatalf("expected RelocationError, got %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source should be left in place: %v", err)
	}
}

func TestPlaceCustomExtension(t *testing.T) {
	dest := t.TempDir()
	src := writeFileAt(t, t.TempDir(), "export.csv", "a,b", time.Now())

	r := &Relocator{Ext: ".csv"}
	name, err := r.Place(src, dest, "Ventas")
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if name != "Ventas.csv" {
		t.Errorf("expected Ventas.csv, got %s", name)
	}
}

func TestCopyExclusive(t *testing.T) {
	src := writeFileAt(t, t.TempDir(), "a.xlsx", "payload", time.Now().Add(-time.Hour))
	dest := filepath.Join(t.TempDir(), "b.xlsx")

	if err := copyExclusive(src, dest); err != nil {
		t.Fatalf("copyExclusive: %v", err)
	}
	got, err := os.ReadFile(dest)
	if err != nil || string(got) != "payload" {
		t.Errorf("unexpected dest content %q (%v)", got, err)
	}
	if _, err := os.Stat(src); !errors.Is(err, fs.ErrNotExist) {
		t.Error("expected source removed after copy")
	}

	other := writeFileAt(t, t.TempDir(), "c.xlsx", "other", time.Now())
	if err := copyExclusive(other, dest); !errors.Is(err, fs.ErrExist) {
		t.Errorf("expected ErrExist for taken target, got %v", err)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Clinica A", "Clinica A"},
		{"  ASOCAÑA CALI  ", "ASOCAÑA CALI"},
		{"a/b\\c", "a_b_c"},
		{`what?<is>:"this"|*`, "what__is___this___"},
		{"trailing dot.", "trailing dot"},
		{"tab\there", "tab_here"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SanitizeName(tt.input); got != tt.expected {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNewRunFolder(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Desktop")
	day := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 10, 17, 9, 5, 0, 0, time.UTC)

	first, err := NewRunFolder(root, "", day, now)
	if err != nil {
		t.Fatalf("NewRunFolder: %v", err)
	}
	if filepath.Base(first) != "Inventario 17-10-2026" {
		t.Errorf("unexpected folder name %q", filepath.Base(first))
	}

	second, err := NewRunFolder(root, "", day, now)
	if err != nil {
		t.Fatalf("NewRunFolder: %v", err)
	}
	if filepath.Base(second) != "Inventario 17-10-2026 Generado a las 09-05_17-10-2026" {
		t.Errorf("unexpected duplicate folder name %q", filepath.Base(second))
	}
	if info, err := os.Stat(second); err != nil || !info.IsDir() {
		t.Errorf("expected %s to be a directory", second)
	}
}
