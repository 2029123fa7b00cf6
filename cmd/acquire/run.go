package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ligustah/acquire/internal/config"
	acqhttp "github.com/ligustah/acquire/internal/http"
	"github.com/ligustah/acquire/internal/ledger"
	"github.com/ligustah/acquire/internal/logging"
	"github.com/ligustah/acquire/internal/progress"
	"github.com/ligustah/acquire/internal/trigger"
	"github.com/ligustah/acquire/pkg/acquire"
	"github.com/ligustah/acquire/pkg/archive"
)

// runBatch fires the trigger for every unit, waits for each file and moves
// it into a fresh run folder, then optionally archives and records the run.
func runBatch(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)

	configPath := fs.String("config", "", "YAML configuration file")
	watch := fs.String("watch", "", "Directory the files appear in (default: configured, cached, or ~/Downloads)")
	dest := fs.String("dest", "", "Root directory for run folders")
	label := fs.String("label", "", "Run folder label")
	flat := fs.Bool("flat", false, "Place files directly in -dest instead of a dated run folder")
	units := fs.String("units", "", "Comma-separated units, each ID or ID=Name")
	patterns := fs.String("patterns", "", "Comma-separated file name patterns")
	timeout := fs.Duration("timeout", 0, "How long to wait for each file")
	poll := fs.Duration("poll", 0, "Pause between directory scans")
	settle := fs.Duration("settle", 0, "Pause between triggering and polling")
	stableReads := fs.Int("stable-reads", 0, "Consecutive stable checks required")
	purge := fs.Bool("purge", false, "Delete stale matching files before the first unit")
	triggerKind := fs.String("trigger", "", "Trigger kind: none, command, http, browser")
	triggerURL := fs.String("url", "", "URL template for http and browser triggers")
	showProgress := fs.Bool("progress", false, "Show progress output")
	archiveBucket := fs.String("archive-bucket", "", "Bucket URL to archive the run to")
	archivePrefix := fs.String("archive-prefix", "", "Key prefix inside the archive bucket")
	ledgerDSN := fs.String("ledger-dsn", "", "Postgres DSN to record the run in")
	logLevel := fs.String("log-level", "", "Log level")
	logFormat := fs.String("log-format", "", "Log format: console or json")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: acquire run [options]

Trigger each unit in turn, wait for its file to appear and stabilise in the
watch directory, and move it into a dated run folder under -dest. A unit that
fails never stops the batch.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	base, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return ExitInvalidArgs
	}

	override := config.Config{
		Watch: config.WatchConfig{
			Dir:          *watch,
			Patterns:     splitPatterns(*patterns),
			Timeout:      *timeout,
			PollInterval: *poll,
			StableReads:  *stableReads,
			Purge:        *purge,
		},
		Dest: config.DestConfig{
			Root:  *dest,
			Label: *label,
			Flat:  *flat,
		},
		Settle: *settle,
		Trigger: config.TriggerConfig{
			Kind: *triggerKind,
			URL:  *triggerURL,
		},
		Archive:  config.ArchiveConfig{Bucket: *archiveBucket, Prefix: *archivePrefix},
		Ledger:   config.LedgerConfig{DSN: *ledgerDSN},
		Log:      config.LogConfig{Level: *logLevel},
		Progress: *showProgress,
	}
	if *units != "" {
		override.Units, err = parseUnits(*units)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitInvalidArgs
		}
	}
	cfg := base.Merge(override)
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}

	cfg.Watch.Dir, err = resolveWatchDir(cfg.Watch.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitWatchDirInvalid
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}
	if len(cfg.Units) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no units configured; use -units or the units section")
		return ExitInvalidArgs
	}

	logger, err := newLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	if info, err := os.Stat(cfg.Watch.Dir); err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "Error: watch directory %s is not accessible\n", cfg.Watch.Dir)
		return ExitWatchDirInvalid
	}

	destDir, err := prepareDest(cfg.Dest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error preparing destination: %v\n", err)
		return ExitGeneralError
	}

	poller := newPoller(cfg, logger)
	if cfg.Watch.Purge {
		n, err := poller.Selector.Purge(cfg.Watch.Dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error purging watch directory: %v\n", err)
			return ExitWatchDirInvalid
		}
		fmt.Fprintf(os.Stderr, "[acquire] Purged %d stale file(s) from %s\n", n, cfg.Watch.Dir)
	}

	trig, closeTrigger, err := buildTrigger(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up trigger: %v\n", err)
		return ExitInvalidArgs
	}
	defer closeTrigger()

	var reporter *progress.Reporter
	if cfg.Progress {
		reporter = progress.NewReporter(progress.Options{
			TotalUnits:     len(cfg.Units),
			UpdateInterval: time.Second,
			WatchDir:       cfg.Watch.Dir,
			DestDir:        destDir,
		})
		poller.OnTick = reporter.Tick
		reporter.Start()
		defer reporter.Stop()
	}

	session := acquire.Session{
		WatchDir:  cfg.Watch.Dir,
		DestDir:   destDir,
		Trigger:   trig,
		Poller:    poller,
		Relocator: newRelocator(cfg, logger),
		Reporter:  acquire.Reporters(reporter),
		Settle:    cfg.Settle,
		Logger:    logging.Component(logger, "orchestrator"),
	}

	summary := acquire.NewOrchestrator(session).Run(ctx, cfg.Units)
	printSummary(summary)

	// Archive and ledger get their own context so an interrupt during the
	// batch still leaves a record of what was acquired.
	postCtx, postCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer postCancel()

	code := exitCodeFor(summary)
	if cfg.Archive.Bucket != "" {
		if err := archiveRun(postCtx, cfg.Archive, summary); err != nil {
			fmt.Fprintf(os.Stderr, "Error archiving run: %v\n", err)
			code = ExitStorageError
		}
	}
	if cfg.Ledger.DSN != "" {
		if err := recordRun(postCtx, cfg.Ledger.DSN, summary, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error recording run: %v\n", err)
			if code == ExitSuccess {
				code = ExitLedgerError
			}
		}
	}
	return code
}

func resolveWatchDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	cachePath, _ := config.DefaultCachePath()
	return config.ResolveWatchDir("", cachePath, home)
}

// prepareDest creates the directory files are placed into.
func prepareDest(d config.DestConfig) (string, error) {
	if err := os.MkdirAll(d.Root, 0755); err != nil {
		return "", err
	}
	if d.Flat {
		return d.Root, nil
	}
	now := time.Now()
	return acquire.NewRunFolder(d.Root, d.Label, now, now)
}

// buildTrigger returns the configured trigger and a function releasing its
// resources.
func buildTrigger(ctx context.Context, cfg config.Config, logger zerolog.Logger) (acquire.Trigger, func(), error) {
	noop := func() {}
	log := logging.Component(logger, "trigger")

	switch cfg.Trigger.Kind {
	case config.TriggerNone, "":
		return trigger.None{}, noop, nil

	case config.TriggerCommand:
		c, err := trigger.NewCommand(cfg.Trigger.Command)
		if err != nil {
			return nil, noop, err
		}
		c.Stdout = os.Stderr
		c.Stderr = os.Stderr
		c.Logger = log
		return c, noop, nil

	case config.TriggerHTTP:
		opts := acqhttp.DefaultOptions()
		opts.Timeout = cfg.Trigger.Timeout
		h, err := trigger.NewHTTP(trigger.HTTPOptions{
			URL:        cfg.Trigger.URL,
			FileName:   cfg.Trigger.FileName,
			WatchDir:   cfg.Watch.Dir,
			DefaultExt: cfg.Dest.Ext,
			Client:     acqhttp.NewClient(opts),
			Logger:     log,
		})
		if err != nil {
			return nil, noop, err
		}
		return h, noop, nil

	case config.TriggerBrowser:
		b, err := trigger.NewBrowser(ctx, trigger.BrowserOptions{
			URL:      cfg.Trigger.URL,
			Selector: cfg.Trigger.Selector,
			WatchDir: cfg.Watch.Dir,
			Headless: cfg.Trigger.Headless,
			Bin:      cfg.Trigger.BrowserBin,
			Timeout:  cfg.Trigger.Timeout,
			Logger:   log,
		})
		if err != nil {
			return nil, noop, err
		}
		return b, func() {
			if err := b.Close(); err != nil {
				log.Warn().Err(err).Msg("close browser")
			}
		}, nil

	default:
		return nil, noop, fmt.Errorf("unknown trigger kind %q", cfg.Trigger.Kind)
	}
}

func archiveRun(ctx context.Context, a config.ArchiveConfig, summary acquire.RunSummary) error {
	bkt, err := openBucket(ctx, a.Bucket)
	if err != nil {
		return err
	}
	defer bkt.Close()

	host, _ := os.Hostname()
	m, err := archive.Store(ctx, bkt, a.Prefix, summary,
		archive.WithChecksum(!a.NoChecksum),
		archive.WithMetadata(map[string]string{"host": host}),
	)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "[acquire] Archived %d file(s): %s/%s\n", len(m.Files), a.Bucket, archive.ManifestKey(a.Prefix, m.RunID))
	return nil
}

func recordRun(ctx context.Context, dsn string, summary acquire.RunSummary, logger zerolog.Logger) error {
	l, err := ledger.Open(ctx, dsn, logging.Component(logger, "ledger"))
	if err != nil {
		return err
	}
	defer l.Close()

	if err := l.Migrate(ctx); err != nil {
		return err
	}
	return l.RecordRun(ctx, summary)
}

func printSummary(s acquire.RunSummary) {
	fmt.Printf("Run: %s\n", s.RunID)
	fmt.Printf("Destination: %s\n", s.DestDir)
	fmt.Printf("Attempted: %d | Acquired: %d | Failed: %d\n", s.Attempted, s.Acquired, s.Failed)
	if s.Cancelled {
		fmt.Println("Status: CANCELLED")
	}

	failures := s.Failures()
	if len(failures) == 0 {
		return
	}
	fmt.Println("\nFailures:")
	for _, r := range failures {
		fmt.Printf("  - %s (%s): %s: %v\n", r.Unit.ID, r.Unit.LogicalName(), acquire.Classify(r.Err), r.Err)
	}
}

func exitCodeFor(s acquire.RunSummary) int {
	switch {
	case s.Cancelled:
		return ExitCancelled
	case s.Failed == 0:
		return ExitSuccess
	case s.Acquired == 0 && allNoFile(s):
		return ExitNoFile
	default:
		return ExitUnitsFailed
	}
}

func allNoFile(s acquire.RunSummary) bool {
	for _, r := range s.Results {
		if !acquire.IsNoFile(r.Err) {
			return false
		}
	}
	return true
}
