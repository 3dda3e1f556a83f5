package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/franz/audiobook-trumper/internal/report"
	"github.com/franz/audiobook-trumper/internal/store"
	"github.com/franz/audiobook-trumper/internal/trump"
	"github.com/franz/audiobook-trumper/internal/util"
	"github.com/gofrs/flock"
	"github.com/spf13/viper"
)

// lockFileName is held inside the archive root while folders move
const lockFileName = ".abt.lock"

// setDefaults registers the default policy so config files only carry overrides
func setDefaults(v *viper.Viper) {
	d := trump.DefaultPreferences()
	v.SetDefault("trump.aggressiveness", string(d.Aggressiveness))
	v.SetDefault("trump.min_bitrate_increase_kbps", d.MinBitrateIncreaseKbps)
	v.SetDefault("trump.prefer_chapters", d.PreferChapters)
	v.SetDefault("trump.prefer_stereo", d.PreferStereo)
	v.SetDefault("trump.min_duration_ratio", d.MinDurationRatio)
	v.SetDefault("trump.max_duration_ratio", d.MaxDurationRatio)
	v.SetDefault("trump.archive_by_year", d.ArchiveByYear)
	v.SetDefault("probe.timeout", 30*time.Second)
}

// preferencesFrom reads and validates the trump.* section
func preferencesFrom(v *viper.Viper) (*trump.Preferences, error) {
	aggr, err := trump.ParseAggressiveness(v.GetString("trump.aggressiveness"))
	if err != nil {
		return nil, err
	}

	prefs := &trump.Preferences{
		Aggressiveness:         aggr,
		MinBitrateIncreaseKbps: v.GetInt("trump.min_bitrate_increase_kbps"),
		PreferChapters:         v.GetBool("trump.prefer_chapters"),
		PreferStereo:           v.GetBool("trump.prefer_stereo"),
		MinDurationRatio:       v.GetFloat64("trump.min_duration_ratio"),
		MaxDurationRatio:       v.GetFloat64("trump.max_duration_ratio"),
		ArchiveRoot:            v.GetString("trump.archive_root"),
		ArchiveByYear:          v.GetBool("trump.archive_by_year"),
		AutoReplaceTags:        v.GetStringSlice("trump.auto_replace_tags"),
		CanonicalEdition:       v.GetString("trump.canonical_edition"),
	}

	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	if prefs.CanonicalEdition != "" {
		util.DebugLog("canonical_edition %q is recorded but does not affect decisions", prefs.CanonicalEdition)
	}
	return prefs, nil
}

func loadPreferences() (*trump.Preferences, error) {
	return preferencesFrom(viper.GetViper())
}

// eventLevel maps console verbosity to the audit log level
func eventLevel() report.EventLevel {
	switch {
	case viper.GetBool("quiet"):
		return report.LevelWarning
	case viper.GetBool("verbose"):
		return report.LevelDebug
	}
	return report.LevelInfo
}

// openEventLogger never fails the command: a broken audit log degrades to a no-op
func openEventLogger(runID string) *report.EventLogger {
	logger, err := report.NewEventLogger(viper.GetString("events-dir"), runID, eventLevel())
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger()
	}
	if logger.Path() != "" {
		util.DebugLog("Event log: %s", logger.Path())
	}
	return logger
}

func openStore() (*store.Store, error) {
	dbPath := viper.GetString("db")
	util.DebugLog("Opening ledger: %s", dbPath)

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// lockArchiveRoot takes the inter-process lock on root. The returned
// function releases it.
func lockArchiveRoot(root string) (func(), error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive root: %w", err)
	}

	lock := flock.New(filepath.Join(root, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", root, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", root, util.ErrLocked)
	}

	return func() {
		if err := lock.Unlock(); err != nil {
			util.WarnLog("Failed to release lock on %s: %v", root, err)
		}
	}, nil
}

// recordAction writes an archive or restore row; ledger failures only warn
func recordAction(db *store.Store, action *store.ArchiveAction, err error) {
	if err != nil {
		action.Error = err.Error()
	}
	if _, insertErr := db.InsertArchiveAction(action); insertErr != nil {
		util.WarnLog("Failed to record %s in ledger: %v", action.Action, insertErr)
	}
}
