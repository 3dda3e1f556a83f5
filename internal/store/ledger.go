package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Action names for archive_actions rows
const (
	ActionArchive = "archive"
	ActionRestore = "restore"
)

// DecisionRecord is one comparison outcome
type DecisionRecord struct {
	ID           int64
	RunID        string
	ExternalID   string
	ExistingPath string
	IncomingPath string
	Decision     string
	Stage        string
	Reason       string
	DecidedAt    time.Time
}

// ArchiveAction is one archive or restore attempt
type ArchiveAction struct {
	ID         int64
	RunID      string
	ExternalID string
	Action     string
	SourcePath string
	DestPath   string
	DryRun     bool
	Error      string
	CreatedAt  time.Time
}

// InsertDecision records a comparison outcome
func (s *Store) InsertDecision(d *DecisionRecord) (int64, error) {
	if d.DecidedAt.IsZero() {
		d.DecidedAt = time.Now()
	}

	result, err := s.db.Exec(`
		INSERT INTO decisions
		(run_id, external_id, existing_path, incoming_path, decision, stage, reason, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, d.RunID, d.ExternalID, d.ExistingPath, d.IncomingPath, d.Decision, d.Stage, d.Reason, d.DecidedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert decision: %w", err)
	}

	d.ID, err = result.LastInsertId()
	return d.ID, err
}

// ListDecisions returns the newest decisions first. An empty externalID
// lists every identity; limit <= 0 means no limit.
func (s *Store) ListDecisions(externalID string, limit int) ([]*DecisionRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, external_id, existing_path, incoming_path, decision,
		       COALESCE(stage, ''), COALESCE(reason, ''), decided_at
		FROM decisions
		WHERE (? = '' OR external_id = ?)
		ORDER BY decided_at DESC, id DESC
		LIMIT ?
	`, externalID, externalID, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*DecisionRecord
	for rows.Next() {
		var d DecisionRecord
		if err := rows.Scan(&d.ID, &d.RunID, &d.ExternalID, &d.ExistingPath, &d.IncomingPath,
			&d.Decision, &d.Stage, &d.Reason, &d.DecidedAt); err != nil {
			return nil, err
		}
		decisions = append(decisions, &d)
	}

	return decisions, rows.Err()
}

// InsertArchiveAction records an archive or restore attempt
func (s *Store) InsertArchiveAction(a *ArchiveAction) (int64, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	dryRun := 0
	if a.DryRun {
		dryRun = 1
	}

	result, err := s.db.Exec(`
		INSERT INTO archive_actions
		(run_id, external_id, action, source_path, dest_path, dry_run, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.RunID, a.ExternalID, a.Action, a.SourcePath, a.DestPath, dryRun, nullString(a.Error), a.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert archive action: %w", err)
	}

	a.ID, err = result.LastInsertId()
	return a.ID, err
}

// ListArchiveActions returns the newest actions first, filtered like ListDecisions
func (s *Store) ListArchiveActions(externalID string, limit int) ([]*ArchiveAction, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, external_id, action, source_path, COALESCE(dest_path, ''),
		       dry_run, COALESCE(error, ''), created_at
		FROM archive_actions
		WHERE (? = '' OR external_id = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, externalID, externalID, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query archive actions: %w", err)
	}
	defer rows.Close()

	var actions []*ArchiveAction
	for rows.Next() {
		var a ArchiveAction
		var dryRun int
		if err := rows.Scan(&a.ID, &a.RunID, &a.ExternalID, &a.Action, &a.SourcePath, &a.DestPath,
			&dryRun, &a.Error, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.DryRun = dryRun == 1
		actions = append(actions, &a)
	}

	return actions, rows.Err()
}

// CountDecisionsByOutcome returns how often each decision was reached
func (s *Store) CountDecisionsByOutcome() (map[string]int, error) {
	rows, err := s.db.Query(`SELECT decision, COUNT(*) FROM decisions GROUP BY decision`)
	if err != nil {
		return nil, fmt.Errorf("failed to count decisions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var decision string
		var n int
		if err := rows.Scan(&decision, &n); err != nil {
			return nil, err
		}
		counts[decision] = n
	}
	return counts, rows.Err()
}

// sqlLimit maps "no limit" to SQLite's -1
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
