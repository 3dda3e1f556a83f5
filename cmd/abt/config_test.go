package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/franz/audiobook-trumper/internal/meta"
	"github.com/franz/audiobook-trumper/internal/store"
	"github.com/franz/audiobook-trumper/internal/trump"
	"github.com/franz/audiobook-trumper/internal/util"
	"github.com/spf13/viper"
)

func newTestViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()

	v := viper.New()
	setDefaults(v)
	if yaml == "" {
		return v
	}

	path := filepath.Join(t.TempDir(), "abt.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	return v
}

func TestPreferencesFromDefaults(t *testing.T) {
	prefs, err := preferencesFrom(newTestViper(t, ""))
	if err != nil {
		t.Fatalf("preferencesFrom failed: %v", err)
	}

	want := trump.DefaultPreferences()
	if prefs.Aggressiveness != want.Aggressiveness ||
		prefs.MinBitrateIncreaseKbps != want.MinBitrateIncreaseKbps ||
		prefs.PreferChapters != want.PreferChapters ||
		prefs.PreferStereo != want.PreferStereo ||
		prefs.MinDurationRatio != want.MinDurationRatio ||
		prefs.MaxDurationRatio != want.MaxDurationRatio {
		t.Errorf("defaults differ: got %+v, want %+v", prefs, want)
	}
	if prefs.ArchiveRoot != "" {
		t.Errorf("expected no archive root by default, got %q", prefs.ArchiveRoot)
	}
}

func TestPreferencesFromFile(t *testing.T) {
	v := newTestViper(t, `
trump:
  aggressiveness: Conservative
  min_bitrate_increase_kbps: 32
  prefer_stereo: false
  archive_root: /srv/archive
  archive_by_year: true
  auto_replace_tags: ["Remastered", "Unabridged"]
  canonical_edition: audible
`)

	prefs, err := preferencesFrom(v)
	if err != nil {
		t.Fatalf("preferencesFrom failed: %v", err)
	}

	if prefs.Aggressiveness != trump.Conservative {
		t.Errorf("Aggressiveness = %q", prefs.Aggressiveness)
	}
	if prefs.MinBitrateIncreaseKbps != 32 {
		t.Errorf("MinBitrateIncreaseKbps = %d", prefs.MinBitrateIncreaseKbps)
	}
	if prefs.PreferStereo {
		t.Error("PreferStereo should be overridden to false")
	}
	if !prefs.PreferChapters {
		t.Error("PreferChapters should keep its default")
	}
	if prefs.ArchiveRoot != "/srv/archive" || !prefs.ArchiveByYear {
		t.Errorf("archive settings = %q / %v", prefs.ArchiveRoot, prefs.ArchiveByYear)
	}
	if len(prefs.AutoReplaceTags) != 2 || prefs.AutoReplaceTags[0] != "Remastered" {
		t.Errorf("AutoReplaceTags = %v", prefs.AutoReplaceTags)
	}
	if prefs.CanonicalEdition != "audible" {
		t.Errorf("CanonicalEdition = %q", prefs.CanonicalEdition)
	}
}

func TestPreferencesFromInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown aggressiveness", "trump:\n  aggressiveness: reckless\n"},
		{"inverted duration window", "trump:\n  min_duration_ratio: 1.5\n  max_duration_ratio: 1.1\n"},
		{"negative bitrate threshold", "trump:\n  min_bitrate_increase_kbps: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := preferencesFrom(newTestViper(t, tt.yaml))
			if !errors.Is(err, util.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLockArchiveRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "archive")

	unlock, err := lockArchiveRoot(root)
	if err != nil {
		t.Fatalf("lockArchiveRoot failed: %v", err)
	}

	if _, err := lockArchiveRoot(root); !errors.Is(err, util.ErrLocked) {
		t.Errorf("expected ErrLocked while held, got %v", err)
	}

	unlock()

	unlock, err = lockArchiveRoot(root)
	if err != nil {
		t.Fatalf("expected lock to be free after release: %v", err)
	}
	unlock()
}

func TestDescribeQuality(t *testing.T) {
	tests := []struct {
		name string
		q    meta.Quality
		want string
	}{
		{"unmeasured", meta.Quality{ExternalID: "B001"}, "not measured"},
		{"format only", meta.Quality{ContainerFormat: "mp3"}, "mp3"},
		{
			"full",
			meta.Quality{ContainerFormat: "m4b", BitrateKbps: 128, SampleRateHz: 44100, DurationSec: 3725, HasChapterMarkers: true, IsStereo: true, LanguageCode: "en"},
			"m4b, 128 kbps, 44100 Hz, 1:02:05, chapters, stereo, en",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := describeQuality(tt.q); got != tt.want {
				t.Errorf("describeQuality() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFitWidth(t *testing.T) {
	long := "/srv/archive/2024/B001/2024-03-15T10-30-45/Some Very Long Book Title (Unabridged)"

	if got := fitWidth(long, 200); got != long {
		t.Errorf("short enough string changed: %q", got)
	}
	got := fitWidth(long, 41)
	if len(got) > 41 {
		t.Errorf("fitWidth exceeded width: %d", len(got))
	}
	if got[:5] != long[:5] || got[len(got)-5:] != long[len(long)-5:] {
		t.Errorf("fitWidth should keep both ends, got %q", got)
	}

	title := strings.Repeat("Größenwahn – Érzsébet ", 4)
	got = fitWidth(title, 30)
	if !utf8.ValidString(got) {
		t.Errorf("fitWidth split a rune: %q", got)
	}
	if n := utf8.RuneCountInString(got); n > 30 {
		t.Errorf("fitWidth exceeded width in runes: %d", n)
	}
}

func TestFilterDecisions(t *testing.T) {
	rows := []*store.DecisionRecord{
		{ExternalID: "A", Decision: "replace_with_new"},
		{ExternalID: "B", Decision: "keep_existing"},
		{ExternalID: "C", Decision: "replace_with_new"},
	}

	if got := filterDecisions(rows, ""); len(got) != 3 {
		t.Errorf("empty filter should keep all rows, got %d", len(got))
	}
	got := filterDecisions(rows, trump.ReplaceWithNew)
	if len(got) != 2 || got[0].ExternalID != "A" || got[1].ExternalID != "C" {
		t.Errorf("unexpected filtered rows: %+v", got)
	}
	if got := filterDecisions(rows, trump.RejectNew); len(got) != 0 {
		t.Errorf("expected no rows, got %d", len(got))
	}
}

func TestFolderSize(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "book.m4b"), make([]byte, 1000), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "extras"), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "extras", "cover.jpg"), make([]byte, 24), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if got := folderSize(dir); got != 1024 {
		t.Errorf("folderSize = %d, want 1024", got)
	}
	if got := folderSize(filepath.Join(dir, "missing")); got != 0 {
		t.Errorf("folderSize of missing folder = %d, want 0", got)
	}
}
