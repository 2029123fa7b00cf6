package acquire

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Default name patterns, matched case-insensitively against file names.
var (
	DefaultPatterns         = []string{"EST31100*", "*.xlsx", "*.xls"}
	DefaultFallbackPatterns = []string{"EST31100*"}
	DefaultTempSuffixes     = []string{".crdownload", ".part", ".tmp"}

	// DefaultPurgePatterns name exported reports only. Other spreadsheets in
	// the watched directory are left alone.
	DefaultPurgePatterns = []string{"EST31100*", "*Inventario_Clinica_*"}
)

// Candidate is a file considered for acquisition that has not yet been
// confirmed complete.
type Candidate struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// Selector picks the most recently modified matching file in a directory.
type Selector struct {
	// Patterns are glob patterns (filepath.Match syntax) matched
	// case-insensitively against base names. Empty means DefaultPatterns.
	Patterns []string

	// TempSuffixes mark in-progress downloads. Empty means DefaultTempSuffixes.
	TempSuffixes []string

	// PurgePatterns select the files Purge deletes, independently of
	// Patterns. Empty means DefaultPurgePatterns.
	PurgePatterns []string

	Logger zerolog.Logger
}

func (s *Selector) patterns() []string {
	if len(s.Patterns) == 0 {
		return DefaultPatterns
	}
	return s.Patterns
}

func (s *Selector) purgePatterns() []string {
	if len(s.PurgePatterns) == 0 {
		return DefaultPurgePatterns
	}
	return s.PurgePatterns
}

func (s *Selector) tempSuffixes() []string {
	if len(s.TempSuffixes) == 0 {
		return DefaultTempSuffixes
	}
	return s.TempSuffixes
}

// Select returns the most recently modified matching file in dir.
//
// An entry carrying a temp suffix stands for its finished counterpart: if the
// counterpart exists it is considered instead, otherwise the entry is skipped.
// When several candidates share a modification time the last one enumerated
// wins; callers must not depend on that order.
func (s *Selector) Select(dir string) (Candidate, bool, error) {
	return s.selectWith(dir, s.patterns())
}

func (s *Selector) selectWith(dir string, patterns []string) (Candidate, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Candidate{}, false, &InvalidDirectoryError{Dir: dir, Err: err}
	}

	var best Candidate
	found := false
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()

		target := name
		if base, ok := trimTempSuffix(name, s.tempSuffixes()); ok {
			if !matchAny(patterns, name) && !matchAny(patterns, base) {
				continue
			}
			// Still downloading unless the final file is already there.
			target = base
		} else if !matchAny(patterns, name) {
			continue
		}

		path := filepath.Join(dir, target)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		if !found || !info.ModTime().Before(best.ModTime) {
			best = Candidate{Path: path, ModTime: info.ModTime(), Size: info.Size()}
			found = true
		}
	}

	return best, found, nil
}

// Purge deletes stale reports matching PurgePatterns, including unfinished
// temp files, from dir. Files that cannot be removed are logged and skipped. It returns the
// number of files removed.
func (s *Selector) Purge(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, &InvalidDirectoryError{Dir: dir, Err: err}
	}

	patterns := s.purgePatterns()
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		base, _ := trimTempSuffix(name, s.tempSuffixes())
		if !matchAny(patterns, name) && !matchAny(patterns, base) {
			continue
		}

		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			s.Logger.Warn().Err(err).Str("file", name).Msg("could not remove stale file")
			continue
		}
		s.Logger.Debug().Str("file", name).Msg("removed stale file")
		removed++
	}

	return removed, nil
}

func trimTempSuffix(name string, suffixes []string) (string, bool) {
	lower := strings.ToLower(name)
	for _, suf := range suffixes {
		if suf != "" && strings.HasSuffix(lower, strings.ToLower(suf)) {
			return name[:len(name)-len(suf)], true
		}
	}
	return name, false
}

func matchAny(patterns []string, name string) bool {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if ok, err := filepath.Match(strings.ToLower(p), lower); err == nil && ok {
			return true
		}
	}
	return false
}
