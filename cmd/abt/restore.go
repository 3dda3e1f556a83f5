package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/franz/audiobook-trumper/internal/archive"
	"github.com/franz/audiobook-trumper/internal/store"
	"github.com/franz/audiobook-trumper/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <archived-folder>",
	Short: "Move an archived folder back into the library",
	Long: `Restore an archived folder listed by 'abt archives'.

The folder returns to its recorded original path when that still lies inside
the library root, otherwise to <library>/<original folder name>. Restore
refuses to overwrite anything, and removes the sidecar and any archive
directories left empty.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().String("library", "", "library root to restore into (default: library_root from config)")
	viper.BindPFlag("library_root", restoreCmd.Flags().Lookup("library"))
}

func runRestore(cmd *cobra.Command, args []string) error {
	dryRun := viper.GetBool("dry-run")

	libraryRoot := strings.TrimSpace(viper.GetString("library_root"))
	if libraryRoot == "" {
		return fmt.Errorf("no library root: set --library or library_root: %w", util.ErrInvalidConfig)
	}

	prefs, err := loadPreferences()
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}

	archivePath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", args[0], err)
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	runID := store.NewRunID()
	logger := openEventLogger(runID)
	defer logger.Close()

	if !dryRun && strings.TrimSpace(prefs.ArchiveRoot) != "" {
		unlock, err := lockArchiveRoot(prefs.ArchiveRoot)
		if err != nil {
			return err
		}
		defer unlock()
	}

	// Read ahead of the move so the ledger row carries the identity
	externalID := ""
	if rec, err := archive.ReadRecord(archivePath); err == nil {
		externalID = rec.ExternalID()
	}

	restorer := archive.NewRestorer(&archive.RestoreConfig{
		DryRun: dryRun,
		Logger: logger,
	})
	dest, err := restorer.Restore(archivePath, libraryRoot)

	recordAction(db, &store.ArchiveAction{
		RunID:      runID,
		ExternalID: externalID,
		Action:     store.ActionRestore,
		SourcePath: archivePath,
		DestPath:   dest,
		DryRun:     dryRun,
	}, err)

	if err != nil {
		return fmt.Errorf("failed to restore %s: %w", archivePath, err)
	}
	if dest != "" {
		util.SuccessLog("Restored to %s", dest)
	}
	return nil
}
