package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ligustah/acquire/pkg/archive"
)

// runDelete removes an archived run from storage.
func runDelete(args []string) int {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)

	bucket := fs.String("bucket", "", "Bucket URL (required)")
	prefix := fs.String("prefix", "", "Key prefix of the archive")
	runID := fs.String("run", "", "Run ID (required)")
	partial := fs.Bool("partial", false, "Remove everything under the run even without a manifest")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: acquire delete [options]

Remove an archived run and its manifest. Use -partial to clean up after an
archive upload that failed before the manifest was written.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	if *bucket == "" || *runID == "" {
		fmt.Fprintln(os.Stderr, "Error: -bucket and -run are required")
		fs.Usage()
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	bkt, err := openBucket(ctx, *bucket)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening bucket: %v\n", err)
		return ExitStorageError
	}
	defer bkt.Close()

	if *partial {
		n, err := archive.DeletePartial(ctx, bkt, *prefix, *runID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitStorageError
		}
		fmt.Fprintf(os.Stderr, "[acquire] Deleted %d object(s) of run %s\n", n, *runID)
		return ExitSuccess
	}

	if err := archive.Delete(ctx, bkt, *prefix, *runID); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitStorageError
	}
	fmt.Fprintf(os.Stderr, "[acquire] Deleted run %s\n", *runID)
	return ExitSuccess
}
