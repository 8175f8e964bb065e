package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/adiwp/lotno/internal/storage/sqlite"
	"github.com/adiwp/lotno/internal/types"
	"github.com/adiwp/lotno/internal/week"
)

// Storage defines the interface for batch-record storage backends.
//
// All serialization happens at this boundary: AllocateDocument holds a
// category-scoped lock while computing the next sequence number, and
// ClaimBatch re-checks the verified flag inside its transaction so a batch
// is claimed at most once even across process instances.
type Storage interface {
	// Categories
	CreateCategory(ctx context.Context, category *types.Category, actor string) error
	GetCategory(ctx context.Context, id int64) (*types.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*types.Category, error)
	ListCategories(ctx context.Context) ([]*types.Category, error)
	DeleteCategory(ctx context.Context, id int64, actor string) error

	// Documents
	GetDocument(ctx context.Context, id int64) (*types.Document, error)
	ListDocuments(ctx context.Context, categoryID int64) ([]*types.Document, error)

	// AllocateDocument finds or creates the document for (categoryID,
	// issuedDate). On create it assigns the next sequential number for the
	// category under a lock that serializes allocation per category.
	AllocateDocument(ctx context.Context, categoryID int64, issuedDate time.Time, actor string) (*types.Document, error)

	// Batches
	CreateBatch(ctx context.Context, batch *types.Batch, actor string) error
	GetBatch(ctx context.Context, id int64) (*types.Batch, error)
	ListBatches(ctx context.Context, documentID int64) ([]*types.Batch, error)

	// FindCandidates returns unverified batches whose parent document was
	// issued inside the window and belongs to the named category
	// (case-insensitive), ordered by parent issued date then batch id.
	FindCandidates(ctx context.Context, categoryName string, window week.Window) ([]types.Candidate, error)

	// ClaimBatch marks the batch verified and cross-links it with the scan
	// record in one transaction. Returns types.ErrConflict if another
	// reconciler claimed the batch (or the scan record) first.
	ClaimBatch(ctx context.Context, batchID, scanRecordID int64, actor string) error

	// Scan records
	CreateScanRecord(ctx context.Context, record *types.ScanRecord) error
	GetScanRecord(ctx context.Context, id int64) (*types.ScanRecord, error)
	ListScanRecords(ctx context.Context, limit int) ([]*types.ScanRecord, error)

	// Audit trail
	GetAuditEvents(ctx context.Context, entityType string, entityID int64, limit int) ([]*types.AuditEvent, error)

	// Statistics
	GetStatistics(ctx context.Context) (*types.Statistics, error)

	// Lifecycle
	Close() error
}

// Config holds storage configuration
type Config struct {
	// Backend selects the storage implementation: "sqlite" or "postgres".
	Backend string

	// Path is the SQLite database file path.
	// Special value ":memory:" creates an in-memory database (useful for tests)
	Path string

	// NumberPrefix is the document number prefix, e.g. "FR/QA".
	NumberPrefix string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend:      "sqlite",
		Path:         "lotno.db",
		NumberPrefix: "FR/QA",
	}
}

// NewStorage creates a storage backend from config. The postgres backend is
// constructed directly via postgres.New because it carries its own
// connection pool configuration.
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Path == "" {
		cfg.Path = "lotno.db"
	}
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = "FR/QA"
	}

	switch cfg.Backend {
	case "", "sqlite":
		return sqlite.New(cfg.Path, cfg.NumberPrefix)
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}
