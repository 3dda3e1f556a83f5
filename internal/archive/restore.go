package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/franz/audiobook-trumper/internal/report"
	"github.com/franz/audiobook-trumper/internal/util"
)

// Restorer moves archived folders back into the library
type Restorer struct {
	dryRun bool
	logger *report.EventLogger
	retry  *util.RetryConfig
}

// RestoreConfig holds restorer configuration
type RestoreConfig struct {
	DryRun      bool
	Logger      *report.EventLogger
	RetryConfig *util.RetryConfig
}

// NewRestorer creates a new Restorer
func NewRestorer(cfg *RestoreConfig) *Restorer {
	retry := cfg.RetryConfig
	if retry == nil {
		retry = util.DefaultRetryConfig()
	}
	return &Restorer{
		dryRun: cfg.DryRun,
		logger: cfg.Logger,
		retry:  retry,
	}
}

// Restore moves the archived folder at archivePath back into libraryRoot and
// removes its sidecar. The recorded original_path is used when it still lies
// inside libraryRoot; otherwise the folder lands at
// libraryRoot/<original folder name>. In dry-run mode it returns "".
func (r *Restorer) Restore(archivePath, libraryRoot string) (string, error) {
	source, err := filepath.Abs(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", archivePath, err)
	}

	rec, err := ReadRecord(source)
	if err != nil {
		r.logger.LogRestore("", source, "", r.dryRun, err)
		return "", err
	}

	destination, err := ResolveRestorePath(rec, libraryRoot)
	if err != nil {
		r.logger.LogRestore(rec.ExternalID(), source, "", r.dryRun, err)
		return "", err
	}

	logResult := func(err error) {
		r.logger.LogRestore(rec.ExternalID(), source, destination, r.dryRun, err)
	}

	if _, err := os.Lstat(destination); err == nil {
		err = fmt.Errorf("%s: %w", destination, ErrDestinationExists)
		logResult(err)
		return "", err
	}

	if r.dryRun {
		util.InfoLog("[dry-run] Would restore %s -> %s", source, destination)
		util.DebugLog("[dry-run] Would remove %s", filepath.Join(destination, SidecarName))
		logResult(nil)
		return "", nil
	}

	parent := filepath.Dir(destination)
	if err := util.RetryableMkdirAll(parent, 0755, r.retry); err != nil {
		err = fmt.Errorf("failed to create %s: %w", parent, err)
		logResult(err)
		return "", err
	}

	if err := renameFolder(source, destination, r.retry); err != nil {
		logResult(err)
		return "", err
	}

	if err := util.RetryableRemove(filepath.Join(destination, SidecarName), r.retry); err != nil && !errors.Is(err, os.ErrNotExist) {
		err = fmt.Errorf("restored %s but failed to remove sidecar: %w", destination, err)
		logResult(err)
		return destination, err
	}

	pruneArchiveDirs(source, rec.ExternalID())

	util.InfoLog("Restored %s -> %s", source, destination)
	logResult(nil)
	return destination, nil
}

// ResolveRestorePath returns where rec would be restored under libraryRoot
func ResolveRestorePath(rec *Record, libraryRoot string) (string, error) {
	if strings.TrimSpace(libraryRoot) == "" {
		return "", fmt.Errorf("library root not set: %w", util.ErrInvalidConfig)
	}
	root, err := filepath.Abs(libraryRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve library root: %w", err)
	}

	if rec.OriginalPath != "" {
		original := filepath.Clean(rec.OriginalPath)
		if filepath.IsAbs(original) && isWithin(root, original) {
			return original, nil
		}
	}

	name := filepath.Base(rec.OriginalFolderName)
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("sidecar in %s has no usable folder name: %w", rec.Path, ErrInvalidArchive)
	}
	return filepath.Join(root, name), nil
}

// isWithin reports whether path lies strictly below parent
func isWithin(parent, path string) bool {
	rel, err := filepath.Rel(parent, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// pruneArchiveDirs removes the timestamp and external-ID directories above
// a restored folder once they are empty. Directories that do not look like
// part of the archive layout are left alone.
func pruneArchiveDirs(archivedFolder, externalID string) {
	stampDir := filepath.Dir(archivedFolder)
	if _, err := time.Parse(TimestampLayout, filepath.Base(stampDir)); err != nil {
		return
	}
	if os.Remove(stampDir) != nil {
		return
	}

	idDir := filepath.Dir(stampDir)
	if externalID == "" || filepath.Base(idDir) != externalID {
		return
	}
	if err := os.Remove(idDir); err == nil {
		util.DebugLog("Pruned empty archive directory %s", idDir)
	}
}
