package main

import (
	"flag"
	"fmt"
	"os"
)

// runPurge deletes stale matching files, including partial downloads, from
// a watch directory.
func runPurge(args []string) int {
	fs := flag.NewFlagSet("purge", flag.ExitOnError)

	configPath := fs.String("config", "", "YAML configuration file")
	dir := fs.String("dir", "", "Directory to clean (default: configured, cached, or ~/Downloads)")
	patterns := fs.String("patterns", "", "Comma-separated patterns of files to delete (default: watch.purge_patterns)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: acquire purge [options]

Delete exported reports matching the purge patterns, and their partial
downloads, so the next run cannot pick up a stale report. Other files in the
directory are left alone.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return ExitInvalidArgs
	}
	if *dir != "" {
		cfg.Watch.Dir = *dir
	}
	if p := splitPatterns(*patterns); len(p) > 0 {
		cfg.Watch.PurgePatterns = p
	}

	cfg.Watch.Dir, err = resolveWatchDir(cfg.Watch.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitWatchDirInvalid
	}

	logger, err := newLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	n, err := newPoller(cfg, logger).Selector.Purge(cfg.Watch.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitWatchDirInvalid
	}

	fmt.Printf("Purged %d file(s) from %s\n", n, cfg.Watch.Dir)
	return ExitSuccess
}
