package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/ligustah/acquire/pkg/acquire"
)

// ErrNoRunID is returned when a summary without a run ID is stored.
var ErrNoRunID = errors.New("archive: summary has no run id")

// ErrChecksumMismatch is returned by Restore when stored data does not
// match the manifest.
var ErrChecksumMismatch = errors.New("archive: checksum mismatch")

// Manifest describes one archived run. It is written after every file has
// been uploaded, so its presence marks the run as complete.
type Manifest struct {
	RunID       string            `json:"run_id"`
	WatchDir    string            `json:"watch_dir,omitempty"`
	DestDir     string            `json:"dest_dir,omitempty"`
	Attempted   int               `json:"attempted"`
	Acquired    int               `json:"acquired"`
	Failed      int               `json:"failed"`
	Cancelled   bool              `json:"cancelled,omitempty"`
	FilesPrefix string            `json:"files_prefix"`
	Files       []FileInfo        `json:"files"`
	Failures    []FailureInfo     `json:"failures,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
	ArchivedAt  time.Time         `json:"archived_at"`
}

// FileInfo describes one archived file.
type FileInfo struct {
	Unit     string `json:"unit"`
	Object   string `json:"object"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum,omitempty"`
}

// FailureInfo records a unit that produced no file.
type FailureInfo struct {
	Unit  string `json:"unit"`
	State string `json:"state"`
	Class string `json:"class,omitempty"`
	Error string `json:"error,omitempty"`
}

// Options configures archive operations.
type Options struct {
	Metadata        map[string]string
	ComputeChecksum bool // Compute checksums during uploads (default: true)
	VerifyChecksum  bool // Verify checksums when validating or restoring
}

// Option is a functional option for configuring archive operations.
type Option func(*Options)

// WithMetadata sets caller-defined metadata stored in the manifest.
func WithMetadata(metadata map[string]string) Option {
	return func(o *Options) {
		o.Metadata = metadata
	}
}

// WithChecksum enables or disables SHA256 checksum computation on upload.
// Default is true.
func WithChecksum(compute bool) Option {
	return func(o *Options) {
		o.ComputeChecksum = compute
	}
}

// WithVerifyChecksum makes Validate and Restore read every object and
// compare it against the stored checksum. Files without a checksum are
// skipped.
func WithVerifyChecksum(verify bool) Option {
	return func(o *Options) {
		o.VerifyChecksum = verify
	}
}

func applyOptions(options []Option) Options {
	opts := Options{ComputeChecksum: true}
	for _, opt := range options {
		opt(&opts)
	}
	return opts
}

// ManifestKey returns the object key of a run's manifest.
func ManifestKey(prefix, runID string) string {
	return joinKey(prefix, runID+".manifest.json")
}

// FilesPrefix returns the key prefix under which a run's files are stored.
func FilesPrefix(prefix, runID string) string {
	return joinKey(prefix, runID) + "/"
}

func joinKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// Store uploads every acquired file of summary to
// {prefix}/{runID}/{name} and then writes {prefix}/{runID}.manifest.json.
// Failed units are recorded in the manifest without an object.
//
// Returns an error if a file cannot be read or uploaded, or if the
// manifest cannot be written. Objects uploaded before the failure are left
// in place; DeletePartial removes them.
func Store(ctx context.Context, bucket *blob.Bucket, prefix string, summary acquire.RunSummary, options ...Option) (*Manifest, error) {
	if summary.RunID == "" {
		return nil, ErrNoRunID
	}
	opts := applyOptions(options)

	m := &Manifest{
		RunID:       summary.RunID,
		WatchDir:    summary.WatchDir,
		DestDir:     summary.DestDir,
		Attempted:   summary.Attempted,
		Acquired:    summary.Acquired,
		Failed:      summary.Failed,
		Cancelled:   summary.Cancelled,
		FilesPrefix: FilesPrefix(prefix, summary.RunID),
		Files:       make([]FileInfo, 0, summary.Acquired),
		Metadata:    opts.Metadata,
		StartedAt:   summary.StartedAt,
		FinishedAt:  summary.FinishedAt,
	}

	for _, r := range summary.Results {
		if !r.Acquired() {
			f := FailureInfo{Unit: r.Unit.ID, State: string(r.State), Class: acquire.Classify(r.Err)}
			if r.Err != nil {
				f.Error = r.Err.Error()
			}
			m.Failures = append(m.Failures, f)
			continue
		}

		info, err := upload(ctx, bucket, m.FilesPrefix, r.Path, opts.ComputeChecksum)
		if err != nil {
			return nil, fmt.Errorf("archive: upload %s: %w", r.Unit.ID, err)
		}
		info.Unit = r.Unit.ID
		m.Files = append(m.Files, info)
	}

	m.ArchivedAt = time.Now()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("archive: marshal manifest: %w", err)
	}
	if err := bucket.WriteAll(ctx, ManifestKey(prefix, summary.RunID), data, &blob.WriterOptions{
		ContentType: "application/json",
	}); err != nil {
		return nil, fmt.Errorf("archive: write manifest: %w", err)
	}

	return m, nil
}

func upload(ctx context.Context, bucket *blob.Bucket, filesPrefix, localPath string, checksum bool) (FileInfo, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return FileInfo{}, err
	}
	defer src.Close()

	object := filepath.Base(localPath)
	w, err := bucket.NewWriter(ctx, filesPrefix+object, nil)
	if err != nil {
		return FileInfo{}, err
	}

	var h hash.Hash
	dst := io.Writer(w)
	if checksum {
		h = sha256.New()
		dst = io.MultiWriter(w, h)
	}

	n, err := io.Copy(dst, src)
	if err != nil {
		w.Close()
		return FileInfo{}, err
	}
	if err := w.Close(); err != nil {
		return FileInfo{}, fmt.Errorf("close writer: %w", err)
	}

	info := FileInfo{Object: object, Size: n}
	if h != nil {
		info.Checksum = hex.EncodeToString(h.Sum(nil))
	}
	return info, nil
}

// ReadManifest loads the manifest of a run.
func ReadManifest(ctx context.Context, bucket *blob.Bucket, prefix, runID string) (*Manifest, error) {
	data, err := bucket.ReadAll(ctx, ManifestKey(prefix, runID))
	if err != nil {
		return nil, fmt.Errorf("archive: read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("archive: unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Restore downloads every file of a run into dir, keeping object names.
// Existing files in dir are never overwritten.
func Restore(ctx context.Context, bucket *blob.Bucket, prefix, runID, dir string, options ...Option) ([]string, error) {
	opts := applyOptions(options)
	m, err := ReadManifest(ctx, bucket, prefix, runID)
	if err != nil {
		return nil, err
	}

	var restored []string
	for _, f := range m.Files {
		dest := filepath.Join(dir, path.Base(f.Object))
		if err := restoreFile(ctx, bucket, m.FilesPrefix+f.Object, dest, f.Checksum, opts.VerifyChecksum); err != nil {
			return restored, fmt.Errorf("archive: restore %s: %w", f.Object, err)
		}
		restored = append(restored, dest)
	}
	return restored, nil
}

func restoreFile(ctx context.Context, bucket *blob.Bucket, key, dest, checksum string, verify bool) error {
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return err
	}
	defer r.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	h := sha256.New()
	_, err = io.Copy(io.MultiWriter(out, h), r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && verify && checksum != "" && hex.EncodeToString(h.Sum(nil)) != checksum {
		err = ErrChecksumMismatch
	}
	if err != nil {
		os.Remove(dest)
		return err
	}
	return nil
}

// isNotExist returns true if the error indicates the object doesn't exist.
func isNotExist(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}
