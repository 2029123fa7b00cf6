package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/ligustah/acquire/pkg/archive"
)

// runRestore downloads the files of an archived run into a directory.
func runRestore(args []string) int {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)

	bucket := fs.String("bucket", "", "Bucket URL (required)")
	prefix := fs.String("prefix", "", "Key prefix of the archive")
	runID := fs.String("run", "", "Run ID (required)")
	dest := fs.String("dest", "", "Directory to restore into (required)")
	verify := fs.Bool("verify-checksum", true, "Compare each file against its stored SHA256")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: acquire restore [options]

Download every file of an archived run into -dest. Existing files are never
overwritten.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	if *bucket == "" || *runID == "" || *dest == "" {
		fmt.Fprintln(os.Stderr, "Error: -bucket, -run and -dest are required")
		fs.Usage()
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := os.MkdirAll(*dest, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	bkt, err := openBucket(ctx, *bucket)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening bucket: %v\n", err)
		return ExitStorageError
	}
	defer bkt.Close()

	paths, err := archive.Restore(ctx, bkt, *prefix, *runID, *dest, archive.WithVerifyChecksum(*verify))
	for _, p := range paths {
		fmt.Println(p)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, archive.ErrChecksumMismatch) {
			return ExitValidationFailed
		}
		return ExitStorageError
	}
	return ExitSuccess
}
