package trump

import (
	"context"
	"fmt"
	"os"

	"github.com/franz/audiobook-trumper/internal/meta"
	"github.com/franz/audiobook-trumper/internal/report"
	"github.com/franz/audiobook-trumper/internal/util"
)

// QualityExtractor measures the representative audio file of a folder
type QualityExtractor interface {
	Extract(ctx context.Context, folder, externalID string) meta.Quality
}

// Comparer runs the guard, extraction and decision chain for one folder pair
type Comparer struct {
	extractor QualityExtractor
	prefs     *Preferences
	logger    *report.EventLogger
}

// ComparerConfig holds comparer configuration
type ComparerConfig struct {
	Extractor   QualityExtractor
	Preferences *Preferences
	Logger      *report.EventLogger
}

// NewComparer creates a new Comparer
func NewComparer(cfg *ComparerConfig) *Comparer {
	prefs := cfg.Preferences
	if prefs == nil {
		prefs = DefaultPreferences()
	}
	return &Comparer{
		extractor: cfg.Extractor,
		prefs:     prefs,
		logger:    cfg.Logger,
	}
}

// Comparison is the outcome of comparing two folders
type Comparison struct {
	ExternalID   string
	ExistingPath string
	IncomingPath string
	Existing     meta.Quality
	Incoming     meta.Quality

	// Raw is the engine's verdict before the aggressiveness policy
	Raw     Verdict
	Verdict Verdict
}

// Compare compares two folders of the same work. The incoming folder's own
// name is used for own-tag matching.
func (c *Comparer) Compare(ctx context.Context, existingDir, incomingDir, externalID string) (*Comparison, error) {
	return c.CompareNamed(ctx, existingDir, incomingDir, incomingDir, externalID)
}

// CompareNamed is Compare with an explicit folder name for own-tag matching,
// for callers that stage downloads under a different directory name.
func (c *Comparer) CompareNamed(ctx context.Context, existingDir, incomingDir, incomingName, externalID string) (*Comparison, error) {
	for _, dir := range []string{existingDir, incomingDir} {
		if err := requireDir(dir); err != nil {
			return nil, err
		}
	}

	result := &Comparison{
		ExternalID:   externalID,
		ExistingPath: existingDir,
		IncomingPath: incomingDir,
	}

	if meta.IsMultiFile(existingDir) || meta.IsMultiFile(incomingDir) {
		result.Existing = meta.Quality{ExternalID: externalID, SourcePath: existingDir}
		result.Incoming = meta.Quality{ExternalID: externalID, SourcePath: incomingDir}
		result.Raw = Verdict{
			Decision: KeepBoth,
			Reason:   "multi-file layout, not compared",
			Stage:    StageMultiFile,
		}
		result.Verdict = result.Raw
		c.logDecision(result)
		return result, nil
	}

	result.Existing = c.extractor.Extract(ctx, existingDir, externalID)
	result.Incoming = c.extractor.Extract(ctx, incomingDir, externalID)

	// A cancelled run leaves degraded records; deciding on them could
	// skip the truncation guard
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("comparison interrupted: %w", err)
	}

	result.Raw = Decide(result.Existing, result.Incoming, incomingName, c.prefs)
	result.Verdict = Adjust(result.Raw, c.prefs)

	if result.Verdict != result.Raw {
		util.DebugLog("Verdict adjusted by %s policy: %s -> %s",
			c.prefs.Aggressiveness, result.Raw.Decision, result.Verdict.Decision)
	}
	c.logDecision(result)
	return result, nil
}

func (c *Comparer) logDecision(r *Comparison) {
	c.logger.LogDecision(r.ExternalID, r.ExistingPath, r.IncomingPath,
		string(r.Verdict.Decision), string(r.Verdict.Stage), r.Verdict.Reason)
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("folder %s: %w", path, util.ErrNotFound)
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory: %w", path, util.ErrNotFound)
	}
	return nil
}
