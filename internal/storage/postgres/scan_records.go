package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/adiwp/lotno/internal/types"
)

// CreateScanRecord creates a new scan record. The batch link starts unset;
// only reconciliation fills it in.
func (s *PostgresStorage) CreateScanRecord(ctx context.Context, record *types.ScanRecord) error {
	if record.Status == "" {
		record.Status = types.ScanStatusPending
	}
	if err := record.Validate(); err != nil {
		return err
	}

	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return storeErr("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO scan_records (actor, top_text, bottom_text, status, photo_path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, record.Actor, record.TopText, record.BottomText, record.Status, record.PhotoPath,
		record.CreatedAt, record.UpdatedAt).Scan(&record.ID)
	if err != nil {
		return storeErr("failed to insert scan record", err)
	}

	if err := recordAudit(ctx, tx, "scan_record", record.ID, types.EventCreated, record.Actor, ""); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return storeErr("failed to commit transaction", err)
	}
	return nil
}

// GetScanRecord retrieves a scan record by ID
func (s *PostgresStorage) GetScanRecord(ctx context.Context, id int64) (*types.ScanRecord, error) {
	record, err := scanScanRecord(s.pool.QueryRow(ctx, `
		SELECT id, actor, top_text, bottom_text, status, photo_path, batch_id, created_at, updated_at
		FROM scan_records
		WHERE id = $1
	`, id))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: scan record %d", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, storeErr("failed to get scan record", err)
	}
	return record, nil
}

// ListScanRecords returns the most recent scan records, newest first
func (s *PostgresStorage) ListScanRecords(ctx context.Context, limit int) ([]*types.ScanRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, actor, top_text, bottom_text, status, photo_path, batch_id, created_at, updated_at
		FROM scan_records
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, storeErr("failed to list scan records", err)
	}
	defer rows.Close()

	var records []*types.ScanRecord
	for rows.Next() {
		record, err := scanScanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scan record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// GetAuditEvents returns audit trail entries for an entity, newest first
func (s *PostgresStorage) GetAuditEvents(ctx context.Context, entityType string, entityID int64, limit int) ([]*types.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, entity_type, entity_id, event_type, actor, COALESCE(detail, ''), created_at
		FROM audit_events
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY id DESC
		LIMIT $3
	`, entityType, entityID, limit)
	if err != nil {
		return nil, storeErr("failed to list audit events", err)
	}
	defer rows.Close()

	var events []*types.AuditEvent
	for rows.Next() {
		var ev types.AuditEvent
		err := rows.Scan(&ev.ID, &ev.EntityType, &ev.EntityID, &ev.EventType, &ev.Actor, &ev.Detail, &ev.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, &ev)
	}

	return events, rows.Err()
}

func scanScanRecord(row pgx.Row) (*types.ScanRecord, error) {
	var record types.ScanRecord
	var batchID *int64

	err := row.Scan(
		&record.ID, &record.Actor, &record.TopText, &record.BottomText,
		&record.Status, &record.PhotoPath, &batchID, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.BatchID = batchID
	return &record, nil
}
