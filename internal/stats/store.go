// Package stats persists per-extension throughput history and derives
// processing-time estimates from it.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"scribe/internal/config"
)

// Record is one finished pipeline run used for future estimation.
type Record struct {
	Extension            string
	MediaDuration        float64
	ConversionSeconds    float64
	TranscriptionSeconds float64
	Success              bool
	CreatedAt            time.Time
}

// Store persists throughput records in SQLite.
type Store struct {
	db *sql.DB
}

// Open initializes or connects to the stats database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.WorkDir, "stats.db"))
}

// OpenPath opens a stats database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) applyMigrations(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS throughput_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    extension TEXT NOT NULL,
    media_duration REAL NOT NULL,
    conversion_seconds REAL NOT NULL,
    transcription_seconds REAL NOT NULL,
    success INTEGER NOT NULL,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_throughput_extension
    ON throughput_records (extension, success);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Append stores one throughput record.
func (s *Store) Append(ctx context.Context, record Record) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO throughput_records (
            extension, media_duration, conversion_seconds,
            transcription_seconds, success, created_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		normalizeExtension(record.Extension),
		record.MediaDuration,
		record.ConversionSeconds,
		record.TranscriptionSeconds,
		boolToInt(record.Success),
		record.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert throughput record: %w", err)
	}
	return nil
}

// History returns all successful records, oldest first. Ratios are derived
// only from successful runs.
func (s *Store) History(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT extension, media_duration, conversion_seconds,
                transcription_seconds, success, created_at
         FROM throughput_records
         WHERE success = 1
         ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query throughput records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate throughput records: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		record    Record
		success   int
		createdAt string
	)
	if err := rows.Scan(
		&record.Extension,
		&record.MediaDuration,
		&record.ConversionSeconds,
		&record.TranscriptionSeconds,
		&success,
		&createdAt,
	); err != nil {
		return Record{}, fmt.Errorf("scan throughput record: %w", err)
	}
	record.Success = success != 0
	if parsed, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		record.CreatedAt = parsed
	}
	return record, nil
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
