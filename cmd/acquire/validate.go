package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ligustah/acquire/pkg/archive"
)

// runValidate checks an archived run against its manifest.
func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)

	bucket := fs.String("bucket", "", "Bucket URL (required)")
	prefix := fs.String("prefix", "", "Key prefix of the archive")
	runID := fs.String("run", "", "Run ID (required)")
	verify := fs.Bool("verify-checksum", false, "Read every file and compare its SHA256")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: acquire validate [options]

Verify that every file of an archived run exists with the size recorded in
its manifest. With -verify-checksum the file contents are read and hashed.

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

	result, err := archive.Validate(ctx, bkt, *prefix, *runID, archive.WithVerifyChecksum(*verify))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitStorageError
	}

	fmt.Printf("Run: %s\n", result.RunID)
	fmt.Printf("Files: %d\n", result.FileCount)
	fmt.Printf("Total size: %d bytes\n", result.TotalSize)

	if result.Valid {
		fmt.Println("Status: VALID")
		return ExitSuccess
	}

	fmt.Println("Status: INVALID")
	fmt.Printf("Missing files: %d\n", result.MissingFiles)
	fmt.Printf("Size mismatches: %d\n", result.SizeMismatches)
	fmt.Printf("Checksum mismatches: %d\n", result.ChecksumMismatches)

	if len(result.Errors) > 0 {
		fmt.Println("\nErrors:")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	return ExitValidationFailed
}
