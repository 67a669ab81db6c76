package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"labcash/internal/store"

	_ "modernc.org/sqlite"
)

const upsertBlob = `
	INSERT INTO blobs (key, data, version, updated_at) VALUES (?, ?, 1, ?)
	ON CONFLICT(key) DO UPDATE SET
		data = excluded.data,
		version = blobs.version + 1,
		updated_at = excluded.updated_at`

// SQLiteRepository stores record blobs in a local SQLite file. Each blob is
// one row of the key/value blobs table; nothing is normalized.
type SQLiteRepository struct {
	db *sql.DB
}

// ExportRecord is the last time a month was written to the spreadsheet.
type ExportRecord struct {
	Month      string
	ExportedAt time.Time
	Revenue    string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite would return SQLITE_BUSY otherwise.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping implements the readiness check.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Get implements store.BlobStore
func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", key, err)
	}
	return data, nil
}

// Put implements store.BlobStore
func (r *SQLiteRepository) Put(ctx context.Context, key string, data []byte) error {
	_, err := r.db.ExecContext(ctx, upsertBlob, key, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("put blob %s: %w", key, err)
	}
	return nil
}

// PutBatch writes every blob in one transaction: either all keys change or
// none do.
func (r *SQLiteRepository) PutBatch(ctx context.Context, writes []store.BlobWrite) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin blob batch: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, w := range writes {
		if _, err := tx.ExecContext(ctx, upsertBlob, w.Key, w.Data, now); err != nil {
			return fmt.Errorf("put blob %s: %w", w.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit blob batch: %w", err)
	}
	return nil
}

// Version returns how many times key has been written, 0 if never.
func (r *SQLiteRepository) Version(ctx context.Context, key string) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM blobs WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get blob version %s: %w", key, err)
	}
	return v, nil
}

// MarkExported records a successful spreadsheet export of month.
func (r *SQLiteRepository) MarkExported(ctx context.Context, month, revenue string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exports (month, exported_at, revenue) VALUES (?, ?, ?)
		ON CONFLICT(month) DO UPDATE SET
			exported_at = excluded.exported_at,
			revenue = excluded.revenue`,
		month, time.Now().UTC(), revenue)
	if err != nil {
		return fmt.Errorf("mark export %s: %w", month, err)
	}
	return nil
}

// LastExport returns the latest export of month, or false if there is none.
func (r *SQLiteRepository) LastExport(ctx context.Context, month string) (ExportRecord, bool, error) {
	rec := ExportRecord{Month: month}
	err := r.db.QueryRowContext(ctx,
		`SELECT exported_at, revenue FROM exports WHERE month = ?`, month).
		Scan(&rec.ExportedAt, &rec.Revenue)
	if errors.Is(err, sql.ErrNoRows) {
		return ExportRecord{}, false, nil
	}
	if err != nil {
		return ExportRecord{}, false, fmt.Errorf("get export %s: %w", month, err)
	}
	return rec, true, nil
}
