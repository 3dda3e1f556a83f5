package store

// Schema v1 - decision ledger
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One row per comparison
CREATE TABLE IF NOT EXISTS decisions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  external_id TEXT NOT NULL,
  existing_path TEXT NOT NULL,
  incoming_path TEXT NOT NULL,
  decision TEXT NOT NULL,
  stage TEXT,
  reason TEXT,
  decided_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_external_id ON decisions(external_id);
CREATE INDEX IF NOT EXISTS idx_decisions_run_id ON decisions(run_id);
`

// Schema v2 - archive and restore actions
const schemaV2 = `
CREATE TABLE IF NOT EXISTS archive_actions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  external_id TEXT NOT NULL,
  action TEXT NOT NULL,
  source_path TEXT NOT NULL,
  dest_path TEXT,
  dry_run INTEGER DEFAULT 0,
  error TEXT,
  created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_archive_actions_external_id ON archive_actions(external_id);
CREATE INDEX IF NOT EXISTS idx_archive_actions_action ON archive_actions(action);
`
