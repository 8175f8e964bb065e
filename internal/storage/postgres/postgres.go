// Package postgres implements the storage interface on PostgreSQL. Unlike
// the SQLite backend it can serve several process instances at once, so all
// serialization uses row guards and per-category advisory locks rather than
// the database-wide write lock.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adiwp/lotno/internal/types"
)

// PostgresStorage implements the Storage interface using PostgreSQL
type PostgresStorage struct {
	pool         *pgxpool.Pool
	numberPrefix string
}

// Config holds PostgreSQL connection configuration
type Config struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	NumberPrefix    string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	HealthCheck     time.Duration
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            5432,
		Database:        "lotno",
		User:            "lotno",
		SSLMode:         "prefer",
		NumberPrefix:    "FR/QA",
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 1 * time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
		HealthCheck:     1 * time.Minute,
	}
}

// ConnString builds the connection URL for this config.
func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// MigrateURL builds the connection URL for the migration tooling, which
// registers the pgx/v5 driver under the pgx5 scheme.
func (c *Config) MigrateURL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// New creates a new PostgreSQL storage backend with connection pooling
func New(ctx context.Context, cfg *Config) (*PostgresStorage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = "FR/QA"
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheck

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %v", types.ErrUnavailable, err)
	}

	return &PostgresStorage{
		pool:         pool,
		numberPrefix: cfg.NumberPrefix,
	}, nil
}

// Close closes the connection pool and releases all resources
func (s *PostgresStorage) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// CreateCategory creates a new category
func (s *PostgresStorage) CreateCategory(ctx context.Context, category *types.Category, actor string) error {
	if err := category.Validate(); err != nil {
		return err
	}

	category.Name = strings.TrimSpace(category.Name)
	category.CreatedAt = time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storeErr("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO categories (name, created_at) VALUES ($1, $2) RETURNING id
	`, category.Name, category.CreatedAt).Scan(&category.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: category %q already exists", types.ErrConflict, category.Name)
		}
		return storeErr("failed to insert category", err)
	}

	if err := recordAudit(ctx, tx, "category", category.ID, types.EventCreated, actor, category.Name); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetCategory retrieves a category by ID
func (s *PostgresStorage) GetCategory(ctx context.Context, id int64) (*types.Category, error) {
	var category types.Category
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, created_at FROM categories WHERE id = $1
	`, id).Scan(&category.ID, &category.Name, &category.CreatedAt)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: category %d", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, storeErr("failed to get category", err)
	}

	return &category, nil
}

// GetCategoryByName retrieves a category by name, case-insensitively
func (s *PostgresStorage) GetCategoryByName(ctx context.Context, name string) (*types.Category, error) {
	var category types.Category
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, created_at FROM categories WHERE LOWER(name) = $1
	`, types.NormalizeCategoryName(name)).Scan(&category.ID, &category.Name, &category.CreatedAt)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: category %q", types.ErrNotFound, name)
	}
	if err != nil {
		return nil, storeErr("failed to get category by name", err)
	}

	return &category, nil
}

// ListCategories returns all categories ordered by name
func (s *PostgresStorage) ListCategories(ctx context.Context) ([]*types.Category, error) {
	rows, err := s.pool.Query(ctx, `
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
func (s *PostgresStorage) DeleteCategory(ctx context.Context, id int64, actor string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storeErr("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var referenced int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM documents WHERE category_id = $1
	`, id).Scan(&referenced); err != nil {
		return storeErr("failed to check category references", err)
	}
	if referenced > 0 {
		return fmt.Errorf("%w: category %d is referenced by %d documents", types.ErrConflict, id, referenced)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return storeErr("failed to delete category", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: category %d", types.ErrNotFound, id)
	}

	if err := recordAudit(ctx, tx, "category", id, types.EventDeleted, actor, ""); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetStatistics returns row counts for the status surface
func (s *PostgresStorage) GetStatistics(ctx context.Context) (*types.Statistics, error) {
	var stats types.Statistics
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM categories),
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM batches),
			(SELECT COUNT(*) FROM batches WHERE is_verified),
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

// recordAudit appends an audit trail entry inside the caller's transaction
func recordAudit(ctx context.Context, tx pgx.Tx, entityType string, entityID int64, eventType types.EventType, actor, detail string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO audit_events (entity_type, entity_id, event_type, actor, detail)
		VALUES ($1, $2, $3, $4, $5)
	`, entityType, entityID, eventType, actor, detail)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}
	return nil
}

// isUniqueViolation checks if an error is a unique constraint violation
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// storeErr wraps a backend error, surfacing deadline expiry and connection
// failures as the retryable error kinds callers test for.
func storeErr(msg string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", msg, types.ErrTimeout)
	case isConnectionError(err):
		return fmt.Errorf("%s: %w", msg, types.ErrUnavailable)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

func isConnectionError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 - connection exceptions
		return strings.HasPrefix(pgErr.Code, "08")
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}
