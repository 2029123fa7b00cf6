package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DownloadDirNames are the directory names probed under the home directory
// when no watch directory is configured or cached.
var DownloadDirNames = []string{"Downloads", "Descargas"}

type watchCache struct {
	WatchDir string `json:"watch_dir"`
}

// DefaultCachePath returns the location of the watch directory cache.
func DefaultCachePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "acquire", "watchdir.json"), nil
}

// ResolveWatchDir returns configured if non-empty. Otherwise it consults the
// JSON cache at cachePath, then the well-known download folders under home.
// A directory found by discovery is written back to the cache.
func ResolveWatchDir(configured, cachePath, home string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	if cachePath != "" {
		if dir, ok := readWatchCache(cachePath); ok {
			return dir, nil
		}
	}

	for _, name := range DownloadDirNames {
		dir := filepath.Join(home, name)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		if cachePath != "" {
			// cache write failures only cost a rediscovery next time
			_ = writeWatchCache(cachePath, dir)
		}
		return dir, nil
	}

	return "", errors.New("config: no watch directory configured and none found")
}

func readWatchCache(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	var c watchCache
	if err := json.Unmarshal(data, &c); err != nil || c.WatchDir == "" {
		return "", false
	}
	info, err := os.Stat(c.WatchDir)
	if err != nil || !info.IsDir() {
		return "", false
	}
	return c.WatchDir, true
}

func writeWatchCache(path, dir string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(watchCache{WatchDir: dir}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
