package trump

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/franz/audiobook-trumper/internal/meta"
	"github.com/franz/audiobook-trumper/internal/util"
)

// fakeExtractor returns canned quality records keyed by folder. Like the
// real extractor, a cancelled context degrades the record to its format.
type fakeExtractor struct {
	byFolder map[string]meta.Quality
	calls    int
}

func (f *fakeExtractor) Extract(ctx context.Context, folder, externalID string) meta.Quality {
	f.calls++
	q := f.byFolder[folder]
	if ctx.Err() != nil {
		q = meta.Quality{ContainerFormat: q.ContainerFormat}
	}
	q.ExternalID = externalID
	q.SourcePath = folder
	return q
}

func makeBookDir(t *testing.T, root, name string, files ...string) string {
	t.Helper()

	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create %s: %v", dir, err)
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(f), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", f, err)
		}
	}
	return dir
}

func TestCompareReplace(t *testing.T) {
	root := t.TempDir()
	existing := makeBookDir(t, root, "Dune", "Dune.mp3")
	incoming := makeBookDir(t, root, "Dune (new)", "Dune.m4b")

	extractor := &fakeExtractor{byFolder: map[string]meta.Quality{
		existing: {ContainerFormat: "mp3", BitrateKbps: 128},
		incoming: {ContainerFormat: "m4b", BitrateKbps: 128},
	}}

	c := NewComparer(&ComparerConfig{Extractor: extractor})
	result, err := c.Compare(context.Background(), existing, incoming, "B000TEST")
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	if result.Verdict.Decision != ReplaceWithNew {
		t.Errorf("Expected replace, got %s", result.Verdict)
	}
	if result.Existing.ExternalID != "B000TEST" || result.Incoming.SourcePath != incoming {
		t.Errorf("Unexpected extracted records: %+v / %+v", result.Existing, result.Incoming)
	}
	if extractor.calls != 2 {
		t.Errorf("Expected two extractions, got %d", extractor.calls)
	}
}

func TestCompareMultiFileSkipsExtraction(t *testing.T) {
	root := t.TempDir()
	existing := makeBookDir(t, root, "Dune", "Dune.m4b")
	incoming := makeBookDir(t, root, "Dune CD", "Disc 1.mp3", "Disc 2.mp3")

	extractor := &fakeExtractor{}
	c := NewComparer(&ComparerConfig{Extractor: extractor})

	for _, pair := range [][2]string{{existing, incoming}, {incoming, existing}} {
		result, err := c.Compare(context.Background(), pair[0], pair[1], "B000TEST")
		if err != nil {
			t.Fatalf("Compare failed: %v", err)
		}
		if result.Verdict.Decision != KeepBoth || result.Verdict.Stage != StageMultiFile {
			t.Errorf("Expected multi-file keep both, got %s", result.Verdict)
		}
	}

	if extractor.calls != 0 {
		t.Errorf("Expected no extraction for multi-file layouts, got %d calls", extractor.calls)
	}
}

func TestCompareAppliesPolicy(t *testing.T) {
	root := t.TempDir()
	existing := makeBookDir(t, root, "a", "a.mp3")
	incoming := makeBookDir(t, root, "b", "b.mp3")

	extractor := &fakeExtractor{byFolder: map[string]meta.Quality{
		existing: {ContainerFormat: "mp3", BitrateKbps: 64},
		incoming: {ContainerFormat: "mp3", BitrateKbps: 320},
	}}

	prefs := DefaultPreferences()
	prefs.Aggressiveness = Conservative

	result, err := NewComparer(&ComparerConfig{Extractor: extractor, Preferences: prefs}).
		Compare(context.Background(), existing, incoming, "X")
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	if result.Raw.Decision != ReplaceWithNew {
		t.Errorf("Expected raw verdict replace, got %s", result.Raw)
	}
	if result.Verdict.Decision != KeepExisting {
		t.Errorf("Expected adjusted verdict keep, got %s", result.Verdict)
	}
}

func TestCompareNamedUsesName(t *testing.T) {
	root := t.TempDir()
	existing := makeBookDir(t, root, "a", "a.m4b")
	incoming := makeBookDir(t, root, "staging-123", "b.mp3")

	extractor := &fakeExtractor{byFolder: map[string]meta.Quality{
		existing: {ContainerFormat: "m4b"},
		incoming: {ContainerFormat: "mp3"},
	}}

	prefs := DefaultPreferences()
	prefs.AutoReplaceTags = []string{"mine"}
	c := NewComparer(&ComparerConfig{Extractor: extractor, Preferences: prefs})

	plain, err := c.Compare(context.Background(), existing, incoming, "X")
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if plain.Verdict.Decision != RejectNew {
		t.Errorf("Expected downgrade rejection without tag, got %s", plain.Verdict)
	}

	named, err := c.CompareNamed(context.Background(), existing, incoming, "Book [mine]", "X")
	if err != nil {
		t.Fatalf("CompareNamed failed: %v", err)
	}
	if named.Verdict.Decision != ReplaceWithNew || named.Verdict.Stage != StageOwnTag {
		t.Errorf("Expected own-tag replace, got %s", named.Verdict)
	}
}

func TestCompareMissingFolder(t *testing.T) {
	root := t.TempDir()
	existing := makeBookDir(t, root, "a", "a.m4b")
	file := filepath.Join(existing, "a.m4b")

	c := NewComparer(&ComparerConfig{Extractor: &fakeExtractor{}})

	for _, incoming := range []string{filepath.Join(root, "missing"), file} {
		if _, err := c.Compare(context.Background(), existing, incoming, "X"); !errors.Is(err, util.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for %s, got %v", incoming, err)
		}
	}
}

func TestCompareCancelledContext(t *testing.T) {
	root := t.TempDir()
	existing := makeBookDir(t, root, "Dune", "Dune.mp3")
	incoming := makeBookDir(t, root, "Dune (new)", "Dune.m4b")

	extractor := &fakeExtractor{byFolder: map[string]meta.Quality{
		existing: {ContainerFormat: "mp3", DurationSec: 36000},
		incoming: {ContainerFormat: "m4b", DurationSec: 3600},
	}}
	c := NewComparer(&ComparerConfig{Extractor: extractor})

	result, err := c.Compare(context.Background(), existing, incoming, "B000TEST")
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if result.Verdict.Decision != RejectNew {
		t.Fatalf("Expected truncated incoming to be rejected, got %s", result.Verdict)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err = c.Compare(ctx, existing, incoming, "B000TEST")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if result != nil {
		t.Errorf("Expected no verdict from an interrupted comparison, got %s", result.Verdict)
	}
}
