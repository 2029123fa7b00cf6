package archive

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"gocloud.dev/blob"
)

// Delete removes an archived run: every file listed in its manifest, then
// the manifest itself.
//
// Returns an error if the manifest doesn't exist (the error wraps
// gcerrors.NotFound) or is malformed, or if an object cannot be deleted.
func Delete(ctx context.Context, bucket *blob.Bucket, prefix, runID string) error {
	m, err := ReadManifest(ctx, bucket, prefix, runID)
	if err != nil {
		return err
	}

	for _, f := range m.Files {
		key := m.FilesPrefix + f.Object
		if err := bucket.Delete(ctx, key); err != nil && !isNotExist(err) {
			return fmt.Errorf("archive: delete file %s: %w", key, err)
		}
	}

	if err := bucket.Delete(ctx, ManifestKey(prefix, runID)); err != nil {
		return fmt.Errorf("archive: delete manifest: %w", err)
	}
	return nil
}

// DeletePartial removes every object under a run's files prefix whether or
// not a manifest was written, and the manifest if present. It cleans up
// after a Store that failed part way.
func DeletePartial(ctx context.Context, bucket *blob.Bucket, prefix, runID string) (int, error) {
	deleted := 0
	iter := bucket.List(&blob.ListOptions{Prefix: FilesPrefix(prefix, runID)})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return deleted, fmt.Errorf("archive: list files: %w", err)
		}
		if obj.IsDir {
			continue
		}
		if err := bucket.Delete(ctx, obj.Key); err != nil && !isNotExist(err) {
			return deleted, fmt.Errorf("archive: delete file %s: %w", obj.Key, err)
		}
		deleted++
	}

	if err := bucket.Delete(ctx, ManifestKey(prefix, runID)); err != nil && !isNotExist(err) {
		return deleted, fmt.Errorf("archive: delete manifest: %w", err)
	}
	return deleted, nil
}

// List returns the IDs of runs under prefix that have a manifest, sorted.
func List(ctx context.Context, bucket *blob.Bucket, prefix string) ([]string, error) {
	listPrefix := strings.Trim(prefix, "/")
	if listPrefix != "" {
		listPrefix += "/"
	}

	var ids []string
	iter := bucket.List(&blob.ListOptions{Prefix: listPrefix, Delimiter: "/"})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("archive: list: %w", err)
		}
		if obj.IsDir {
			continue
		}
		name := strings.TrimPrefix(obj.Key, listPrefix)
		if id, ok := strings.CutSuffix(name, ".manifest.json"); ok && id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
