package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/clipsearch/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driven"
)

// DatabaseFile is the database file name inside the data directory.
const DatabaseFile = "metadata.db"

// Store is a SQLite database that provides the catalog index and the run
// history through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens or creates the database in dataDir.
// If dataDir is empty, defaults to ~/.clipsearch/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".clipsearch", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// WAL lets the search server read while a pipeline run writes.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CatalogIndex returns a CatalogIndex backed by this store.
func (s *Store) CatalogIndex() driven.CatalogIndex {
	return &catalogIndex{store: s}
}

// RunStore returns a RunStore backed by this store.
func (s *Store) RunStore() driven.RunStore {
	return &runStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Catalog Index ====================

// catalogIndex implements driven.CatalogIndex.
type catalogIndex struct {
	store *Store
}

var _ driven.CatalogIndex = (*catalogIndex)(nil)

// Upsert inserts or replaces records in a single transaction.
func (c *catalogIndex) Upsert(ctx context.Context, records []domain.ImageRecord) error {
	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO image_records (local_id, source_url, columns, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(local_id) DO UPDATE SET
			source_url = excluded.source_url,
			columns = excluded.columns,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, rec := range records {
		if rec.LocalID == "" {
			return fmt.Errorf("record without local id: %w", domain.ErrInvalidInput)
		}
		columnsJSON, err := json.Marshal(rec.Columns)
		if err != nil {
			return fmt.Errorf("marshalling columns: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, rec.LocalID, rec.SourceURL, string(columnsJSON), now); err != nil {
			return fmt.Errorf("upserting %s: %w", rec.LocalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing catalog index: %w", err)
	}
	return nil
}

// Get retrieves a record by local ID.
func (c *catalogIndex) Get(ctx context.Context, localID string) (*domain.ImageRecord, error) {
	row := c.store.db.QueryRowContext(ctx, `
		SELECT local_id, source_url, columns FROM image_records WHERE local_id = ?
	`, localID)

	var rec domain.ImageRecord
	var columnsJSON sql.NullString
	if err := row.Scan(&rec.LocalID, &rec.SourceURL, &columnsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning image record: %w", err)
	}
	if columnsJSON.Valid && columnsJSON.String != "" && columnsJSON.String != "null" {
		if err := json.Unmarshal([]byte(columnsJSON.String), &rec.Columns); err != nil {
			return nil, fmt.Errorf("unmarshalling columns: %w", err)
		}
	}
	return &rec, nil
}

// Count returns the number of indexed records.
func (c *catalogIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM image_records").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting image records: %w", err)
	}
	return n, nil
}

// ==================== Run Store ====================

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// Record persists a run summary, replacing any earlier record with its ID.
func (r *runStore) Record(ctx context.Context, run domain.RunSummary) error {
	if run.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, started_at, finished_at, total, processed, skipped, failed, dropped, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			total = excluded.total,
			processed = excluded.processed,
			skipped = excluded.skipped,
			failed = excluded.failed,
			dropped = excluded.dropped,
			error = excluded.error
	`, run.ID, string(run.Kind), formatTime(run.StartedAt), formatNullableTime(run.FinishedAt),
		run.Total, run.Processed, run.Skipped, run.Failed, run.Dropped, nullString(run.Error))

	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// List returns recent runs, most recent first.
func (r *runStore) List(ctx context.Context, kind domain.RunKind, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, kind, started_at, finished_at, total, processed, skipped, failed, dropped, error
		FROM runs
		WHERE ? = '' OR kind = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, string(kind), string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunSummary //nolint:prealloc // size unknown from query
	for rows.Next() {
		var run domain.RunSummary
		var kindStr, startedAt string
		var finishedAt, errMsg sql.NullString
		if err := rows.Scan(&run.ID, &kindStr, &startedAt, &finishedAt,
			&run.Total, &run.Processed, &run.Skipped, &run.Failed, &run.Dropped, &errMsg); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.Kind = domain.RunKind(kindStr)
		run.StartedAt = parseNullableTime(sql.NullString{String: startedAt, Valid: true})
		run.FinishedAt = parseNullableTime(finishedAt)
		run.Error = errMsg.String
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// ==================== Helper Functions ====================

// timeLayout sorts lexically in the same order as the times it encodes.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// formatNullableTime formats a time, or returns nil for the zero time.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

// parseNullableTime parses a nullable timestamp.
// Returns zero time if the string is empty or invalid.
func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
