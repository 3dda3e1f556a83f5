package archive

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/franz/audiobook-trumper/internal/util"
)

// Discover walks root for sidecars and returns their records, newest first.
// An empty externalID returns every archive. Unreadable sidecars are logged
// and skipped, and folders without a sidecar are ignored, so an archive
// interrupted between move and sidecar write never fails the scan.
func Discover(root, externalID string) ([]*Record, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("archive root %s: %w", root, util.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat archive root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("archive root %s is not a directory: %w", root, util.ErrNotFound)
	}

	var records []*Record
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			util.WarnLog("Skipping %s: %v", path, err)
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || d.Name() != SidecarName {
			return nil
		}

		rec, err := ReadRecord(filepath.Dir(path))
		if err != nil {
			util.WarnLog("Skipping unreadable archive %s: %v", filepath.Dir(path), err)
			return nil
		}

		if externalID == "" || rec.ExternalID() == externalID {
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan archive root: %w", err)
	}

	sortRecords(records)
	return records, nil
}

// sortRecords orders by archived_at descending, then by path
func sortRecords(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.ArchivedAt.Equal(b.ArchivedAt.Time) {
			return a.ArchivedAt.After(b.ArchivedAt.Time)
		}
		return a.Path < b.Path
	})
}
