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
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/shelf/internal/adapters/driven/storage"
	"github.com/custodia-labs/shelf/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/shelf/internal/core/domain"
	"github.com/custodia-labs/shelf/internal/core/ports/driven"
	"github.com/custodia-labs/shelf/internal/logger"
)

// DBFile is the database file name inside the data directory.
const DBFile = "shelf.db"

// Store is a SQLite-backed book store and record log.
type Store struct {
	db      *sql.DB
	path    string
	timeout time.Duration
	dropped atomic.Int64
}

// NewStore opens (creating if needed) <dataDir>/shelf.db and applies
// pending migrations. timeout bounds each operation whose context has no
// deadline; zero disables it.
func NewStore(dataDir string, timeout time.Duration) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DBFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:      db,
		path:    dbPath,
		timeout: timeout,
	}

	// Run migrations
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

// BookStore returns the store as a driven.BookStore.
func (s *Store) BookStore() driven.BookStore {
	return &bookStore{store: s}
}

// RecordLog returns the store as a driven.RecordLog.
func (s *Store) RecordLog() driven.RecordLog {
	return &recordLog{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
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
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("starting migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Book Store ====================

// bookStore implements driven.BookStore.
type bookStore struct {
	store *Store
}

var _ driven.BookStore = (*bookStore)(nil)

// Save inserts a book, or replaces it when opts.Overwrite is set.
func (s *bookStore) Save(ctx context.Context, book *domain.Book, opts domain.SaveOptions) error {
	if book == nil || !domain.ValidBookID(book.ID) {
		return fmt.Errorf("%w: invalid book id", domain.ErrStorage)
	}

	ctx, cancel := storage.WithTimeout(ctx, s.store.timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return storage.Fail("saving book", err)
	}

	sectionsJSON, err := json.Marshal(book.Sections)
	if err != nil {
		return storage.Fail("marshalling sections", err)
	}
	metadataJSON, err := json.Marshal(book.Metadata)
	if err != nil {
		return storage.Fail("marshalling metadata", err)
	}

	conflict := "DO NOTHING"
	if opts.Overwrite {
		conflict = `DO UPDATE SET
			source_id = excluded.source_id,
			title = excluded.title,
			sections = excluded.sections,
			section_count = excluded.section_count,
			metadata = excluded.metadata,
			ingested_at = excluded.ingested_at`
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO books (id, source_id, title, sections, section_count, metadata, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) `+conflict,
		book.ID, book.SourceID, book.Title, string(sectionsJSON), len(book.Sections),
		string(metadataJSON), formatTime(book.IngestedAt))
	if err != nil {
		return storage.Fail("saving book", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storage.Fail("saving book", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, book.ID)
	}
	return nil
}

// Load retrieves a book by ID.
func (s *bookStore) Load(ctx context.Context, id string) (*domain.Book, error) {
	ctx, cancel := storage.WithTimeout(ctx, s.store.timeout)
	defer cancel()

	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, source_id, title, sections, metadata, ingested_at
		FROM books WHERE id = ?
	`, id)

	var book domain.Book
	var sectionsJSON, metadataJSON, ingestedAt string
	if err := row.Scan(&book.ID, &book.SourceID, &book.Title, &sectionsJSON, &metadataJSON, &ingestedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storage.Fail("scanning book", err)
	}

	if err := json.Unmarshal([]byte(sectionsJSON), &book.Sections); err != nil {
		return nil, storage.Fail("unmarshalling sections", err)
	}
	if err := json.Unmarshal([]byte(metadataJSON), &book.Metadata); err != nil {
		return nil, storage.Fail("unmarshalling metadata", err)
	}
	t, err := parseTime(ingestedAt)
	if err != nil {
		return nil, storage.Fail("parsing ingested_at", err)
	}
	book.IngestedAt = t

	return &book, nil
}

// List returns summaries of all books ordered by ID.
func (s *bookStore) List(ctx context.Context) ([]domain.BookSummary, error) {
	ctx, cancel := storage.WithTimeout(ctx, s.store.timeout)
	defer cancel()

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, source_id, title, section_count, ingested_at
		FROM books ORDER BY id
	`)
	if err != nil {
		return nil, storage.Fail("querying books", err)
	}
	defer rows.Close()

	summaries := []domain.BookSummary{}
	for rows.Next() {
		var sum domain.BookSummary
		var ingestedAt string
		if err := rows.Scan(&sum.ID, &sum.SourceID, &sum.Title, &sum.Sections, &ingestedAt); err != nil {
			return nil, storage.Fail("scanning book", err)
		}
		if sum.IngestedAt, err = parseTime(ingestedAt); err != nil {
			return nil, storage.Fail("parsing ingested_at", err)
		}
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, storage.Fail("iterating books", err)
	}
	return summaries, nil
}

// Delete removes a book.
func (s *bookStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := storage.WithTimeout(ctx, s.store.timeout)
	defer cancel()

	res, err := s.store.db.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return storage.Fail("deleting book", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Fail("deleting book", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Record Log ====================

// recordLog implements driven.RecordLog.
type recordLog struct {
	store *Store
}

var _ driven.RecordLog = (*recordLog)(nil)

// Append inserts one record. Failures are counted and logged.
func (l *recordLog) Append(ctx context.Context, rec domain.IngestionRecord) {
	ctx, cancel := storage.WithTimeout(ctx, l.store.timeout)
	defer cancel()

	_, err := l.store.db.ExecContext(ctx, `
		INSERT INTO ingestion_records (id, source_id, book_id, outcome, timestamp, message, diagnostics, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.SourceID, rec.BookID, string(rec.Outcome), formatTime(rec.Timestamp),
		rec.Message, rec.Diagnostics, int64(rec.Duration))
	if err != nil {
		l.store.dropped.Add(1)
		logger.Warn("dropped ingestion record %s for %s: %v", rec.ID, rec.SourceID, err)
	}
}

// Recent returns up to limit records, newest first.
func (l *recordLog) Recent(ctx context.Context, limit int) ([]domain.IngestionRecord, error) {
	ctx, cancel := storage.WithTimeout(ctx, l.store.timeout)
	defer cancel()

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := l.store.db.QueryContext(ctx, `
		SELECT id, source_id, book_id, outcome, timestamp, message, diagnostics, duration_ns
		FROM ingestion_records ORDER BY seq DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, storage.Fail("querying records", err)
	}
	defer rows.Close()

	records := []domain.IngestionRecord{}
	for rows.Next() {
		var rec domain.IngestionRecord
		var outcome, ts string
		var durationNS int64
		if err := rows.Scan(&rec.ID, &rec.SourceID, &rec.BookID, &outcome, &ts,
			&rec.Message, &rec.Diagnostics, &durationNS); err != nil {
			return nil, storage.Fail("scanning record", err)
		}
		rec.Outcome = domain.Outcome(outcome)
		rec.Duration = time.Duration(durationNS)
		if rec.Timestamp, err = parseTime(ts); err != nil {
			return nil, storage.Fail("parsing timestamp", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, storage.Fail("iterating records", err)
	}
	return records, nil
}

// Dropped returns the number of records that could not be written.
func (l *recordLog) Dropped() int64 {
	return l.store.dropped.Load()
}

// Times are stored as RFC 3339 text so they round-trip exactly.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
