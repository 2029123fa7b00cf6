package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/ligustah/acquire/pkg/acquire"
)

// runAwait waits for one stable file in a directory and prints its path.
func runAwait(args []string) int {
	fs := flag.NewFlagSet("await", flag.ExitOnError)

	configPath := fs.String("config", "", "YAML configuration file")
	dir := fs.String("dir", "", "Directory to watch (default: configured, cached, or ~/Downloads)")
	patterns := fs.String("patterns", "", "Comma-separated file name patterns")
	timeout := fs.Duration("timeout", 0, "How long to wait")
	poll := fs.Duration("poll", 0, "Pause between directory scans")
	logLevel := fs.String("log-level", "", "Log level")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: acquire await [options]

Wait until the most recent file matching the patterns stops changing and can
be opened exclusively, then print its path.

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
		cfg.Watch.Patterns = p
	}
	if *timeout > 0 {
		cfg.Watch.Timeout = *timeout
	}
	if *poll > 0 {
		cfg.Watch.PollInterval = *poll
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
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

	ctx, cancel := signalContext()
	defer cancel()

	path, err := newPoller(cfg, logger).Await(ctx, cfg.Watch.Dir)
	if err != nil {
		var ide *acquire.InvalidDirectoryError
		switch {
		case acquire.IsNoFile(err):
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitNoFile
		case errors.As(err, &ide):
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitWatchDirInvalid
		case ctx.Err() != nil:
			return ExitCancelled
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitGeneralError
		}
	}

	fmt.Println(path)
	return ExitSuccess
}
