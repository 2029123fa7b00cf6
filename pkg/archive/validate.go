package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"gocloud.dev/blob"
)

// ValidationResult contains the results of validating an archived run.
type ValidationResult struct {
	Valid              bool     // true if all files exist and match the manifest
	RunID              string   // run ID from the manifest
	FileCount          int      // number of files in the manifest
	TotalSize          int64    // sum of file sizes in the manifest
	MissingFiles       int      // number of files that don't exist
	SizeMismatches     int      // number of files with wrong size
	ChecksumMismatches int      // number of files whose content changed
	Errors             []string // detailed error messages
}

// Validate checks that every file listed in a run's manifest exists with
// the recorded size. With WithVerifyChecksum it also reads each object and
// compares its SHA256.
//
// Missing files and mismatches are reported in the result with
// Valid=false, not as errors. An error is returned when the manifest
// cannot be read or parsed, or the bucket cannot be queried.
func Validate(ctx context.Context, bucket *blob.Bucket, prefix, runID string, options ...Option) (*ValidationResult, error) {
	opts := applyOptions(options)
	m, err := ReadManifest(ctx, bucket, prefix, runID)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{
		Valid:     true,
		RunID:     m.RunID,
		FileCount: len(m.Files),
		Errors:    make([]string, 0),
	}

	for i, f := range m.Files {
		result.TotalSize += f.Size
		key := m.FilesPrefix + f.Object

		attrs, err := bucket.Attributes(ctx, key)
		if err != nil {
			if isNotExist(err) {
				result.Valid = false
				result.MissingFiles++
				result.Errors = append(result.Errors,
					fmt.Sprintf("file %d missing: %s", i, key))
				continue
			}
			return nil, fmt.Errorf("archive: check file %d: %w", i, err)
		}

		if attrs.Size != f.Size {
			result.Valid = false
			result.SizeMismatches++
			result.Errors = append(result.Errors,
				fmt.Sprintf("file %d size mismatch: expected %d, got %d", i, f.Size, attrs.Size))
			continue
		}

		if opts.VerifyChecksum && f.Checksum != "" {
			sum, err := objectChecksum(ctx, bucket, key)
			if err != nil {
				return nil, fmt.Errorf("archive: read file %d: %w", i, err)
			}
			if sum != f.Checksum {
				result.Valid = false
				result.ChecksumMismatches++
				result.Errors = append(result.Errors,
					fmt.Sprintf("file %d checksum mismatch: %s", i, key))
			}
		}
	}

	return result, nil
}

func objectChecksum(ctx context.Context, bucket *blob.Bucket, key string) (string, error) {
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return "", err
	}
	defer r.Close()

	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
