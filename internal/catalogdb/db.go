// Package catalogdb is the SQLite system of record behind `snapcatalog serve`.
package catalogdb

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

var (
	// ErrDuplicateKey is returned when an entry with the same key exists.
	ErrDuplicateKey = errors.New("duplicate catalog key")
	// ErrDuplicateID is returned when a caller-supplied ID is already taken.
	ErrDuplicateID = errors.New("duplicate catalog id")
	// ErrSchemaMismatch indicates the database was created by another version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

const (
	sqliteBusyCode             = 5
	sqliteConstraintUniqueCode = 2067
	busyRetryAttempts          = 5
	busyRetryInitialBackoff    = 10 * time.Millisecond
	busyRetryMaxBackoff        = 200 * time.Millisecond
)

// DB stores catalog entries in insertion order.
type DB struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
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

	store := &DB{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) initSchema(ctx context.Context) error {
	var tableExists int
	err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return d.createSchema(ctx)
	}

	var version int
	if err := d.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (d *DB) createSchema(ctx context.Context) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// ListImages returns every entry in insertion order.
func (d *DB) ListImages(ctx context.Context) ([]models.CatalogEntry, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT id, key, labels_json FROM images ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	entries := []models.CatalogEntry{}
	for rows.Next() {
		var (
			entry      models.CatalogEntry
			labelsJSON string
		)
		if err := rows.Scan(&entry.ID, &entry.Key, &labelsJSON); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		if err := json.Unmarshal([]byte(labelsJSON), &entry.Labels); err != nil {
			return nil, fmt.Errorf("decode labels for %s: %w", entry.Key, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}
	return entries, nil
}

// CreateImage stores entry, assigning a new ID unless one is provided.
func (d *DB) CreateImage(ctx context.Context, entry models.CatalogEntry) (models.CatalogEntry, error) {
	if strings.TrimSpace(entry.Key) == "" {
		return models.CatalogEntry{}, errors.New("entry key is required")
	}
	if len(entry.Labels) == 0 {
		return models.CatalogEntry{}, errors.New("entry labels are required")
	}

	entry = entry.Clone()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	labelsJSON, err := json.Marshal(entry.Labels)
	if err != nil {
		return models.CatalogEntry{}, fmt.Errorf("encode labels: %w", err)
	}

	err = retryOnBusy(ctx, func() error {
		_, execErr := d.db.ExecContext(ctx,
			"INSERT INTO images (id, key, labels_json, created_at) VALUES (?, ?, ?, ?)",
			entry.ID, entry.Key, string(labelsJSON), time.Now().UTC().Format(time.RFC3339Nano),
		)
		return execErr
	})
	if err != nil {
		if isUniqueViolation(err) {
			if uniqueColumn(err) == "images.id" {
				return models.CatalogEntry{}, fmt.Errorf("%w: %s", ErrDuplicateID, entry.ID)
			}
			return models.CatalogEntry{}, fmt.Errorf("%w: %s", ErrDuplicateKey, entry.Key)
		}
		return models.CatalogEntry{}, fmt.Errorf("insert image: %w", err)
	}
	return entry, nil
}

// Count returns the number of stored entries.
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM images").Scan(&n); err != nil {
		return 0, fmt.Errorf("count images: %w", err)
	}
	return n, nil
}

func sqliteCode(err error) int {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		return coder.Code()
	}
	return 0
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if sqliteCode(err) == sqliteConstraintUniqueCode {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// uniqueColumn returns the "table.column" named in a UNIQUE constraint
// failure, or "" when the message does not name one.
func uniqueColumn(err error) string {
	const marker = "UNIQUE constraint failed: "
	msg := err.Error()
	idx := strings.Index(msg, marker)
	if idx < 0 {
		return ""
	}
	rest := msg[idx+len(marker):]
	if end := strings.IndexAny(rest, " ,)"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	if sqliteCode(err) == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
