package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ligustah/acquire/pkg/acquire"
)

// runPlace moves a file into a directory under a logical name, adding a
// numeric suffix instead of overwriting.
func runPlace(args []string) int {
	fs := flag.NewFlagSet("place", flag.ExitOnError)

	src := fs.String("src", "", "File to move (required)")
	dest := fs.String("dest", "", "Destination directory (required)")
	name := fs.String("name", "", "Logical name (default: source name without extension)")
	ext := fs.String("ext", acquire.DefaultExt, "Extension of the placed file")
	maxCollisions := fs.Int("max-collisions", acquire.DefaultMaxCollisions, "Highest numeric suffix tried")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: acquire place [options]

Move a file into a directory as <name><ext>, or <name>_<n><ext> when that is
taken. Existing files are never overwritten.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	if *src == "" || *dest == "" {
		fmt.Fprintln(os.Stderr, "Error: -src and -dest are required")
		fs.Usage()
		return ExitInvalidArgs
	}

	logical := *name
	if logical == "" {
		base := filepath.Base(*src)
		logical = base[:len(base)-len(filepath.Ext(base))]
	}

	r := &acquire.Relocator{Ext: *ext, MaxCollisions: *maxCollisions}
	final, err := r.Place(*src, *dest, logical)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	fmt.Println(filepath.Join(*dest, final))
	return ExitSuccess
}
