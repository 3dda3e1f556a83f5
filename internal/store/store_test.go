package store

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreOpenAndMigrate(t *testing.T) {
	store := openTestStore(t)

	version, err := store.getSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	for _, table := range []string{"decisions", "archive_actions", "schema_version"} {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}

	if err := store.CheckIntegrity(); err != nil {
		t.Errorf("integrity check failed: %v", err)
	}
}

func TestStoreReopenKeepsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if _, err := s.InsertDecision(&DecisionRecord{RunID: "r", ExternalID: "A", ExistingPath: "/a", IncomingPath: "/b", Decision: "keep_both"}); err != nil {
		t.Fatalf("InsertDecision failed: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	decisions, err := s.ListDecisions("", 0)
	if err != nil {
		t.Fatalf("ListDecisions failed: %v", err)
	}
	if len(decisions) != 1 {
		t.Errorf("expected data to survive reopen, got %d rows", len(decisions))
	}
}

func TestDecisionInsertAndList(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := []*DecisionRecord{
		{RunID: "run-1", ExternalID: "A", ExistingPath: "/lib/a", IncomingPath: "/in/a", Decision: "replace_with_new", Stage: "format", Reason: "format upgrade: mp3 -> m4b", DecidedAt: base},
		{RunID: "run-2", ExternalID: "B", ExistingPath: "/lib/b", IncomingPath: "/in/b", Decision: "keep_existing", Stage: "default", DecidedAt: base.Add(time.Minute)},
		{RunID: "run-3", ExternalID: "A", ExistingPath: "/lib/a", IncomingPath: "/in/a2", Decision: "reject_new", Stage: "duration", DecidedAt: base.Add(2 * time.Minute)},
	}
	for _, r := range rows {
		id, err := store.InsertDecision(r)
		if err != nil {
			t.Fatalf("InsertDecision failed: %v", err)
		}
		if id == 0 || r.ID != id {
			t.Errorf("expected ID to be set, got %d / %d", id, r.ID)
		}
	}

	all, err := store.ListDecisions("", 0)
	if err != nil {
		t.Fatalf("ListDecisions failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 decisions, got %d", len(all))
	}
	if all[0].RunID != "run-3" || all[2].RunID != "run-1" {
		t.Errorf("expected newest first, got %s..%s", all[0].RunID, all[2].RunID)
	}
	if !all[2].DecidedAt.Equal(base) {
		t.Errorf("expected decided_at %v, got %v", base, all[2].DecidedAt)
	}
	if all[2].Reason != "format upgrade: mp3 -> m4b" {
		t.Errorf("unexpected reason %q", all[2].Reason)
	}

	onlyA, err := store.ListDecisions("A", 1)
	if err != nil {
		t.Fatalf("ListDecisions failed: %v", err)
	}
	if len(onlyA) != 1 || onlyA[0].RunID != "run-3" {
		t.Errorf("expected newest decision for A only, got %+v", onlyA)
	}

	counts, err := store.CountDecisionsByOutcome()
	if err != nil {
		t.Fatalf("CountDecisionsByOutcome failed: %v", err)
	}
	if counts["replace_with_new"] != 1 || counts["keep_existing"] != 1 || counts["reject_new"] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
}

func TestArchiveActionInsertAndList(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.InsertArchiveAction(&ArchiveAction{
		RunID: "run-1", ExternalID: "A", Action: ActionArchive,
		SourcePath: "/lib/a", DestPath: "/arc/A/ts/a", DryRun: true,
	}); err != nil {
		t.Fatalf("InsertArchiveAction failed: %v", err)
	}
	if _, err := store.InsertArchiveAction(&ArchiveAction{
		RunID: "run-2", ExternalID: "A", Action: ActionRestore,
		SourcePath: "/arc/A/ts/a", Error: "destination already exists",
		CreatedAt: time.Now().Add(time.Second),
	}); err != nil {
		t.Fatalf("InsertArchiveAction failed: %v", err)
	}

	actions, err := store.ListArchiveActions("A", 0)
	if err != nil {
		t.Fatalf("ListArchiveActions failed: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}

	restore, archive := actions[0], actions[1]
	if restore.Action != ActionRestore || restore.Error != "destination already exists" || restore.DestPath != "" {
		t.Errorf("unexpected restore row %+v", restore)
	}
	if archive.Action != ActionArchive || !archive.DryRun || archive.Error != "" {
		t.Errorf("unexpected archive row %+v", archive)
	}

	none, err := store.ListArchiveActions("B", 0)
	if err != nil {
		t.Fatalf("ListArchiveActions failed: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no rows for B, got %d", len(none))
	}
}

func TestNewRunIDUnique(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if a == "" || a == b {
		t.Errorf("expected distinct run IDs, got %q and %q", a, b)
	}
}

func TestSQLiteVersion(t *testing.T) {
	if SQLiteVersion() == "" {
		t.Error("expected a SQLite version string")
	}
}
