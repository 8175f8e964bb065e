package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/adiwp/lotno/internal/types"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db           *sql.DB
	numberPrefix string // Document number prefix (e.g. "FR/QA")
}

// New creates a new SQLite storage backend
func New(path, numberPrefix string) (*SQLiteStorage, error) {
	// Ensure directory exists
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("%w: failed to ping database: %v", types.ErrUnavailable, err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{
		db:           db,
		numberPrefix: numberPrefix,
	}, nil
}

// CreateCategory creates a new category
func (s *SQLiteStorage) CreateCategory(ctx context.Context, category *types.Category, actor string) error {
	if err := category.Validate(); err != nil {
		return err
	}

	category.Name = strings.TrimSpace(category.Name)
	category.CreatedAt = time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO categories (name, created_at) VALUES (?, ?)
	`, category.Name, category.CreatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: category %q already exists", types.ErrConflict, category.Name)
		}
		return storeErr("failed to insert category", err)
	}

	category.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get category id: %w", err)
	}

	if err := recordAudit(ctx, tx, "category", category.ID, types.EventCreated, actor, category.Name); err != nil {
		return err
	}

	return tx.Commit()
}

// GetCategory retrieves a category by ID
func (s *SQLiteStorage) GetCategory(ctx context.Context, id int64) (*types.Category, error) {
	var category types.Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at FROM categories WHERE id = ?
	`, id).Scan(&category.ID, &category.Name, &category.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: category %d", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, storeErr("failed to get category", err)
	}

	return &category, nil
}

// GetCategoryByName retrieves a category by name, case-insensitively
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*types.Category, error) {
	var category types.Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at FROM categories WHERE LOWER(name) = ?
	`, types.NormalizeCategoryName(name)).Scan(&category.ID, &category.Name, &category.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: category %q", types.ErrNotFound, name)
	}
	if err != nil {
		return nil, storeErr("failed to get category by name", err)
	}

	return &category, nil
}

// ListCategories returns all categories ordered by name
func (s *SQLiteStorage) ListCategories(ctx context.Context) ([]*types.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at FROM categories ORDER BY name ASC
	`)
	if err != nil {
		return nil, storeErr("failed to list categories", err)
	}
	defer rows.Close()

	var categories []*types.Category
	for rows.Next() {
		var category types.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &category)
	}

	return categories, rows.Err()
}

// DeleteCategory deletes a category that has no documents
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, id int64, actor string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Categories are immutable once referenced
	var referenced int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM documents WHERE category_id = ?
	`, id).Scan(&referenced); err != nil {
		return storeErr("failed to check category references", err)
	}
	if referenced > 0 {
		return fmt.Errorf("%w: category %d is referenced by %d documents", types.ErrConflict, id, referenced)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return storeErr("failed to delete category", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: category %d", types.ErrNotFound, id)
	}

	if err := recordAudit(ctx, tx, "category", id, types.EventDeleted, actor, ""); err != nil {
		return err
	}

	return tx.Commit()
}

// GetStatistics returns row counts for the status surface
func (s *SQLiteStorage) GetStatistics(ctx context.Context) (*types.Statistics, error) {
	var stats types.Statistics
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM categories),
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM batches),
			(SELECT COUNT(*) FROM batches WHERE is_verified = 1),
			(SELECT COUNT(*) FROM scan_records),
			(SELECT COUNT(*) FROM scan_records WHERE batch_id IS NOT NULL)
	`).Scan(
		&stats.Categories, &stats.Documents, &stats.Batches,
		&stats.VerifiedBatches, &stats.ScanRecords, &stats.MatchedScanRecords,
	)
	if err != nil {
		return nil, storeErr("failed to get statistics", err)
	}
	return &stats, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// recordAudit appends an audit trail entry inside the caller's transaction
func recordAudit(ctx context.Context, tx *sql.Tx, entityType string, entityID int64, eventType types.EventType, actor, detail string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO audit_events (entity_type, entity_id, event_type, actor, detail)
		VALUES (?, ?, ?, ?, ?)
	`, entityType, entityID, eventType, actor, detail)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// isUniqueConstraintError checks if an error is a unique constraint violation
func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// storeErr wraps a backend error, surfacing deadline expiry and busy
// database states as the retryable error kinds callers test for.
func storeErr(msg string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", msg, types.ErrTimeout)
	case isBusyError(err):
		return fmt.Errorf("%s: %w", msg, types.ErrUnavailable)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

func isBusyError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}
