package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/franz/audiobook-trumper/internal/archive"
	"github.com/franz/audiobook-trumper/internal/meta"
	"github.com/franz/audiobook-trumper/internal/report"
	"github.com/franz/audiobook-trumper/internal/store"
	"github.com/franz/audiobook-trumper/internal/trump"
	"github.com/franz/audiobook-trumper/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var compareCmd = &cobra.Command{
	Use:   "compare <existing-folder> <incoming-folder>",
	Short: "Decide whether an incoming copy of a book replaces the existing one",
	Long: `Compare two folders holding the same work and print the decision.

Both folders must contain exactly one audio file; multi-file layouts are
never compared and always yield keep_both. The decision is recorded in the
ledger and the event log.

With --archive and a replace_with_new decision, the existing folder is moved
into the archive root with a provenance sidecar so it can be restored later.
Combine with --dry-run to see where it would go.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().String("id", "", "external identifier of the work (required)")
	compareCmd.Flags().Bool("archive", false, "archive the existing folder when the incoming copy wins")
	compareCmd.Flags().String("incoming-name", "", "folder name used for own-tag matching (default: incoming folder)")
	compareCmd.MarkFlagRequired("id")
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	externalID, _ := cmd.Flags().GetString("id")
	doArchive, _ := cmd.Flags().GetBool("archive")
	incomingName, _ := cmd.Flags().GetString("incoming-name")
	dryRun := viper.GetBool("dry-run")

	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return fmt.Errorf("--id must not be empty: %w", util.ErrInvalidConfig)
	}

	prefs, err := loadPreferences()
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}

	existingDir, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}
	incomingDir, err := filepath.Abs(args[1])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[1], err)
	}
	if incomingName == "" {
		incomingName = incomingDir
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	runID := store.NewRunID()
	logger := openEventLogger(runID)
	defer logger.Close()

	extractor := meta.New(&meta.Config{
		Binary:  viper.GetString("probe.binary"),
		Timeout: viper.GetDuration("probe.timeout"),
		Logger:  logger,
	})
	comparer := trump.NewComparer(&trump.ComparerConfig{
		Extractor:   extractor,
		Preferences: prefs,
		Logger:      logger,
	})

	result, err := comparer.CompareNamed(ctx, existingDir, incomingDir, incomingName, externalID)
	if err != nil {
		logger.LogError(report.EventDecision, existingDir, err)
		return err
	}

	if _, err := db.InsertDecision(&store.DecisionRecord{
		RunID:        runID,
		ExternalID:   externalID,
		ExistingPath: existingDir,
		IncomingPath: incomingDir,
		Decision:     string(result.Verdict.Decision),
		Stage:        string(result.Verdict.Stage),
		Reason:       result.Verdict.Reason,
	}); err != nil {
		util.WarnLog("Failed to record decision in ledger: %v", err)
	}

	printComparison(result)

	if !doArchive {
		return nil
	}
	if result.Verdict.Decision != trump.ReplaceWithNew {
		util.InfoLog("Nothing to archive: %s", result.Verdict.Decision)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("not archiving, interrupted: %w", err)
	}

	return archiveExisting(db, runID, prefs, dryRun, result, logger)
}

func archiveExisting(db *store.Store, runID string, prefs *trump.Preferences, dryRun bool, result *trump.Comparison, logger *report.EventLogger) error {
	if strings.TrimSpace(prefs.ArchiveRoot) == "" {
		return archive.ErrMissingArchiveRoot
	}

	if !dryRun {
		unlock, err := lockArchiveRoot(prefs.ArchiveRoot)
		if err != nil {
			return err
		}
		defer unlock()
	}

	manager := archive.New(&archive.Config{
		Preferences: prefs,
		DryRun:      dryRun,
		Logger:      logger,
	})

	dest, err := manager.Archive(archive.Request{
		ExistingPath: result.ExistingPath,
		Existing:     result.Existing,
		Incoming:     result.Incoming,
		Verdict:      result.Verdict,
	})

	recordAction(db, &store.ArchiveAction{
		RunID:      runID,
		ExternalID: result.ExternalID,
		Action:     store.ActionArchive,
		SourcePath: result.ExistingPath,
		DestPath:   dest,
		DryRun:     dryRun,
	}, err)

	if err != nil {
		if errors.Is(err, archive.ErrCrossDevice) {
			util.ErrorLog("Archive root must be on the same filesystem as the library")
		}
		return fmt.Errorf("failed to archive %s: %w", result.ExistingPath, err)
	}
	if dest != "" {
		util.SuccessLog("Archived to %s", dest)
	}
	return nil
}

func printComparison(r *trump.Comparison) {
	fmt.Printf("%s\n", r.Verdict.Decision)
	fmt.Printf("  reason:   %s\n", r.Verdict.Reason)
	fmt.Printf("  stage:    %s\n", r.Verdict.Stage)
	if r.Raw != r.Verdict {
		fmt.Printf("  adjusted: %s (%s)\n", r.Raw.Decision, r.Raw.Stage)
	}
	fmt.Printf("  existing: %s\n", describeQuality(r.Existing))
	fmt.Printf("  incoming: %s\n", describeQuality(r.Incoming))
}

func describeQuality(q meta.Quality) string {
	if q.ContainerFormat == "" {
		return "not measured"
	}

	parts := []string{q.ContainerFormat}
	if q.BitrateKbps > 0 {
		parts = append(parts, fmt.Sprintf("%d kbps", q.BitrateKbps))
	}
	if q.SampleRateHz > 0 {
		parts = append(parts, fmt.Sprintf("%d Hz", q.SampleRateHz))
	}
	if q.DurationSec > 0 {
		parts = append(parts, formatDuration(q.DurationSec))
	}
	if q.HasChapterMarkers {
		parts = append(parts, "chapters")
	}
	if q.IsStereo {
		parts = append(parts, "stereo")
	}
	if q.LanguageCode != "" {
		parts = append(parts, q.LanguageCode)
	}
	return strings.Join(parts, ", ")
}

func formatDuration(sec int) string {
	return fmt.Sprintf("%d:%02d:%02d", sec/3600, (sec/60)%60, sec%60)
}
