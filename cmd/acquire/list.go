package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ligustah/acquire/pkg/archive"
)

// runList prints the archived runs in a bucket.
func runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)

	bucket := fs.String("bucket", "", "Bucket URL (required)")
	prefix := fs.String("prefix", "", "Key prefix of the archive")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: acquire list [options]

List the IDs of archived runs that have a manifest.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	if *bucket == "" {
		fmt.Fprintln(os.Stderr, "Error: -bucket is required")
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

	ids, err := archive.List(ctx, bkt, *prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitStorageError
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return ExitSuccess
}
