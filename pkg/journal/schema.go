package journal

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the run journal tables. Timestamps and durations are
// stored as integer nanoseconds so both SQLite drivers agree on them.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    definition TEXT NOT NULL,
    condition TEXT NOT NULL,
    mode TEXT,
    started_at INTEGER NOT NULL,
    duration_ns INTEGER NOT NULL,
    result TEXT NOT NULL,
    value INTEGER NOT NULL,
    error TEXT,
    events TEXT
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_definition ON runs(definition);
CREATE INDEX IF NOT EXISTS idx_runs_result ON runs(result);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion reads the newest schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const runColumns = `id, definition, condition, mode, started_at, duration_ns, result, value, error, events`
