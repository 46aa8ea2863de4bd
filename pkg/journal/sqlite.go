package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open and NewSQLiteStore.
const (
	DriverMattn   = "sqlite3"
	DriverModernc = "sqlite"
	DriverMemory  = "memory"
)

// SQLiteConfig contains configuration for the SQLite store.
type SQLiteConfig struct {
	// Driver is "sqlite3" (mattn/go-sqlite3, cgo) or "sqlite" (modernc.org/sqlite).
	// Default: "sqlite3"
	Driver string

	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// WALMode enables write-ahead logging.
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Driver:       DriverMattn,
		Path:         "data/journal.db",
		MaxOpenConns: 10,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens the database, applies pragmas and creates the schema.
func NewSQLiteStore(cfg *SQLiteConfig) (*SQLiteStore, error) {
	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverMattn
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	logger := slog.Default().With("component", "journal.sqlite", "driver", cfg.Driver)

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, NewStorageError(cfg.Driver, "open", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	s := &SQLiteStore{db: db, config: cfg, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("journal store initialized",
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return s.fail("enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return s.fail("set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return s.fail("create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return s.fail("insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return s.fail("get_schema_version", err)
	}
	if version != SchemaVersion {
		return s.fail("schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Save inserts or replaces a run.
func (s *SQLiteStore) Save(ctx context.Context, run *Run) error {
	events, err := json.Marshal(run.Events)
	if err != nil {
		return s.fail("marshal_events", err)
	}

	var errorVal any
	if run.Error != "" {
		errorVal = run.Error
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Definition, run.Condition, run.Mode,
		run.StartedAt.UnixNano(), int64(run.Duration),
		string(run.Result), boolToInt(run.Value), errorVal, string(events),
	)
	if err != nil {
		return s.fail("save", err)
	}
	return nil
}

// Get returns the run with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, s.fail("get", err)
	}
	return run, nil
}

// Query returns matching runs, newest first.
func (s *SQLiteStore) Query(ctx context.Context, filter Filter) ([]*Run, error) {
	where, args := buildWhereClause(filter)

	query := `SELECT ` + runColumns + ` FROM runs`
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY started_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT %d", filter.limit())
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail("query", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, s.fail("scan", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("query", err)
	}
	return runs, nil
}

// Count returns the number of matching runs.
func (s *SQLiteStore) Count(ctx context.Context, filter Filter) (int64, error) {
	where, args := buildWhereClause(filter)

	query := "SELECT COUNT(*) FROM runs"
	if where != "" {
		query += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, s.fail("count", err)
	}
	return count, nil
}

// DeleteBefore deletes runs started before cutoff.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, s.fail("delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, s.fail("delete", err)
	}
	return count, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return s.fail("close", err)
	}
	s.logger.Info("journal store closed")
	return nil
}

func (s *SQLiteStore) fail(operation string, err error) error {
	return NewStorageError(s.config.Driver, operation, err)
}

// buildWhereClause returns the WHERE clause (without the keyword) and its arguments.
func buildWhereClause(filter Filter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Definition != "" {
		conditions = append(conditions, "definition = ?")
		args = append(args, filter.Definition)
	}
	if filter.Since != nil {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, filter.Since.UnixNano())
	}
	if filter.Until != nil {
		conditions = append(conditions, "started_at <= ?")
		args = append(args, filter.Until.UnixNano())
	}
	if filter.OnlyFailed {
		conditions = append(conditions, "result IN (?, ?)")
		args = append(args, string(ResultFailed), string(ResultTimeout))
	}

	return strings.Join(conditions, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run       Run
		mode      sql.NullString
		startedAt int64
		duration  int64
		result    string
		value     int64
		errorVal  sql.NullString
		events    sql.NullString
	)

	err := row.Scan(&run.ID, &run.Definition, &run.Condition, &mode, &startedAt, &duration, &result, &value, &errorVal, &events)
	if err != nil {
		return nil, err
	}

	run.Mode = mode.String
	run.StartedAt = time.Unix(0, startedAt)
	run.Duration = time.Duration(duration)
	run.Result = Result(result)
	run.Value = value != 0
	run.Error = errorVal.String

	if events.Valid && events.String != "" && events.String != "null" {
		if err := json.Unmarshal([]byte(events.String), &run.Events); err != nil {
			return nil, fmt.Errorf("decode events: %w", err)
		}
	}
	return &run, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
