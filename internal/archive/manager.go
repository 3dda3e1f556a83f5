package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/franz/audiobook-trumper/internal/meta"
	"github.com/franz/audiobook-trumper/internal/report"
	"github.com/franz/audiobook-trumper/internal/trump"
	"github.com/franz/audiobook-trumper/internal/util"
)

// Manager moves losing folders into the archive tree
type Manager struct {
	prefs  *trump.Preferences
	dryRun bool
	logger *report.EventLogger
	retry  *util.RetryConfig
	now    func() time.Time
}

// Config holds archive manager configuration
type Config struct {
	Preferences *trump.Preferences
	DryRun      bool
	Logger      *report.EventLogger
	RetryConfig *util.RetryConfig

	// Now overrides the clock, for tests
	Now func() time.Time
}

// New creates a new Manager
func New(cfg *Config) *Manager {
	prefs := cfg.Preferences
	if prefs == nil {
		prefs = trump.DefaultPreferences()
	}
	retry := cfg.RetryConfig
	if retry == nil {
		retry = util.DefaultRetryConfig()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Manager{
		prefs:  prefs,
		dryRun: cfg.DryRun,
		logger: cfg.Logger,
		retry:  retry,
		now:    now,
	}
}

// Request describes one folder to archive and the verdict behind it
type Request struct {
	ExistingPath string
	Existing     meta.Quality
	Incoming     meta.Quality
	Verdict      trump.Verdict
}

// Plan is the resolved destination and sidecar for a request
type Plan struct {
	Source      string
	Destination string
	Record      *Record
}

// Archive moves req.ExistingPath to
// <archive_root>/[YYYY/]<external_id>/<timestamp>/<folder name> and writes
// the sidecar inside it. In dry-run mode it returns "" after resolving and
// logging the move.
//
// If the sidecar cannot be written after the move, the destination is
// returned together with the error: the folder is archived but lacks
// provenance.
func (m *Manager) Archive(req Request) (string, error) {
	plan, err := m.Plan(req)
	if err != nil {
		m.logger.LogArchive(req.Existing.ExternalID, req.ExistingPath, "",
			string(req.Verdict.Decision), req.Verdict.Reason, m.dryRun, err)
		return "", err
	}

	logPlan := func(err error) {
		m.logger.LogArchive(plan.Record.ExternalID(), plan.Source, plan.Destination,
			string(plan.Record.Decision), plan.Record.Reason, m.dryRun, err)
	}

	if m.dryRun {
		util.InfoLog("[dry-run] Would archive %s -> %s", plan.Source, plan.Destination)
		util.DebugLog("[dry-run] Would write %s", filepath.Join(plan.Destination, SidecarName))
		logPlan(nil)
		return "", nil
	}

	if err := m.move(plan); err != nil {
		logPlan(err)
		return "", err
	}

	if err := WriteRecord(plan.Destination, plan.Record); err != nil {
		err = fmt.Errorf("archived %s but sidecar write failed: %w", plan.Destination, err)
		logPlan(err)
		return plan.Destination, err
	}

	util.InfoLog("Archived %s -> %s", plan.Source, plan.Destination)
	logPlan(nil)
	return plan.Destination, nil
}

// Plan resolves the destination and builds the sidecar without mutating
// anything. Archive runs it for real and dry runs alike.
func (m *Manager) Plan(req Request) (*Plan, error) {
	root := strings.TrimSpace(m.prefs.ArchiveRoot)
	if root == "" {
		return nil, ErrMissingArchiveRoot
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve archive root: %w", err)
	}

	externalID := req.Existing.ExternalID
	if externalID == "" {
		externalID = req.Incoming.ExternalID
	}
	if err := validateExternalID(externalID); err != nil {
		return nil, err
	}

	source, err := filepath.Abs(req.ExistingPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", req.ExistingPath, err)
	}
	info, err := util.RetryableStat(source, m.retry)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", source, ErrSourceMissing)
	}
	if source == root || isWithin(source, root) {
		return nil, fmt.Errorf("archive root %s lies inside %s: %w", root, source, util.ErrInvalidConfig)
	}

	// One clock reading feeds both the directory names and archived_at
	archivedAt := m.now().Truncate(time.Second)

	parent := root
	if m.prefs.ArchiveByYear {
		parent = filepath.Join(parent, archivedAt.Format("2006"))
	}
	parent = filepath.Join(parent, externalID, archivedAt.Format(TimestampLayout))

	folderName := filepath.Base(source)
	destination := filepath.Join(parent, folderName)

	if _, err := os.Lstat(destination); err == nil {
		return nil, fmt.Errorf("%s: %w", destination, ErrDestinationExists)
	}

	same, err := util.IsSameFilesystem(source, root)
	if err != nil {
		util.WarnLog("Could not compare filesystems of %s and %s: %v", source, root, err)
	} else if !same {
		return nil, fmt.Errorf("%s -> %s: %w", source, root, ErrCrossDevice)
	}

	return &Plan{
		Source:      source,
		Destination: destination,
		Record: &Record{
			SchemaVersion:      SchemaVersion,
			ArchivedAt:         Timestamp{archivedAt},
			Decision:           req.Verdict.Decision,
			Reason:             req.Verdict.Reason,
			OriginalFolderName: folderName,
			OriginalPath:       source,
			ExistingMeta:       req.Existing,
			IncomingMeta:       req.Incoming,
			PolicySnapshot:     m.prefs.Snapshot(),
			Path:               destination,
		},
	}, nil
}

func (m *Manager) move(plan *Plan) error {
	parent := filepath.Dir(plan.Destination)
	if err := util.RetryableMkdirAll(parent, 0755, m.retry); err != nil {
		return fmt.Errorf("failed to create %s: %w", parent, err)
	}

	return renameFolder(plan.Source, plan.Destination, m.retry)
}

// renameFolder moves a folder with a single rename, refusing to overwrite
func renameFolder(source, destination string, retry *util.RetryConfig) error {
	// rename(2) silently replaces an empty directory
	if _, err := os.Lstat(destination); err == nil {
		return fmt.Errorf("%s: %w", destination, ErrDestinationExists)
	}

	if err := util.RetryableRename(source, destination, retry); err != nil {
		switch {
		case errors.Is(err, syscall.EXDEV):
			return fmt.Errorf("%s -> %s: %w", source, destination, ErrCrossDevice)
		case errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("%s: %w", source, ErrSourceMissing)
		case errors.Is(err, os.ErrExist) || errors.Is(err, syscall.ENOTEMPTY):
			return fmt.Errorf("%s: %w", destination, ErrDestinationExists)
		}
		return fmt.Errorf("failed to move %s to %s: %w", source, destination, err)
	}
	return nil
}

// validateExternalID rejects identifiers that cannot be a single path element
func validateExternalID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("external id %q is not usable as a folder name: %w", id, util.ErrInvalidConfig)
	}
	return nil
}
