package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ligustah/acquire/internal/ledger"
	"github.com/ligustah/acquire/pkg/acquire"
)

// runHistory prints recent runs from the ledger, or the units of one run.
func runHistory(args []string) int {
	fs := flag.NewFlagSet("history", flag.ExitOnError)

	configPath := fs.String("config", "", "YAML configuration file")
	dsn := fs.String("dsn", "", "Postgres DSN (default: ledger.dsn or ACQUIRE_LEDGER_DSN)")
	limit := fs.Int("limit", 20, "Number of runs to show")
	runID := fs.String("run", "", "Show the units of this run")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: acquire history [options]

Show runs recorded in the ledger, newest first.

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
	if *dsn != "" {
		cfg.Ledger.DSN = *dsn
	}
	if cfg.Ledger.DSN == "" {
		fmt.Fprintln(os.Stderr, "Error: -dsn is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	logger, err := newLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	l, err := ledger.Open(ctx, cfg.Ledger.DSN, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitLedgerError
	}
	defer l.Close()

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if *runID != "" {
		units, err := l.Units(ctx, *runID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitLedgerError
		}
		fmt.Fprintln(tw, "#\tUNIT\tNAME\tSTATE\tSIZE\tDURATION\tDETAIL")
		for _, u := range units {
			detail := u.Path
			if u.State != acquire.UnitAcquired && u.Err != nil {
				detail = u.Err.Error()
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
				u.Index, u.Unit.ID, u.Unit.LogicalName(), u.State, u.Size, u.Duration.Round(time.Millisecond), detail)
		}
		return ExitSuccess
	}

	runs, err := l.Recent(ctx, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitLedgerError
	}
	fmt.Fprintln(tw, "RUN\tSTARTED\tATTEMPTED\tACQUIRED\tFAILED\tDEST")
	for _, r := range runs {
		started := r.StartedAt.Local().Format("2006-01-02 15:04")
		if r.Cancelled {
			started += " (cancelled)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", r.RunID, started, r.Attempted, r.Acquired, r.Failed, r.DestDir)
	}
	return ExitSuccess
}
