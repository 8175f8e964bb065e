package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/adiwp/lotno/internal/types"
)

// CreateScanRecord creates a new scan record. The batch link starts unset;
// only reconciliation fills it in.
func (s *SQLiteStorage) CreateScanRecord(ctx context.Context, record *types.ScanRecord) error {
	if record.Status == "" {
		record.Status = types.ScanStatusPending
	}
	if err := record.Validate(); err != nil {
		return err
	}

	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO scan_records (actor, top_text, bottom_text, status, photo_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, record.Actor, record.TopText, record.BottomText, record.Status, record.PhotoPath,
		record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return storeErr("failed to insert scan record", err)
	}
	record.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get scan record id: %w", err)
	}

	if err := recordAudit(ctx, tx, "scan_record", record.ID, types.EventCreated, record.Actor, ""); err != nil {
		return err
	}

	return tx.Commit()
}

// GetScanRecord retrieves a scan record by ID
func (s *SQLiteStorage) GetScanRecord(ctx context.Context, id int64) (*types.ScanRecord, error) {
	record, err := scanScanRecord(s.db.QueryRowContext(ctx, `
		SELECT id, actor, top_text, bottom_text, status, photo_path, batch_id, created_at, updated_at
		FROM scan_records
		WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: scan record %d", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, storeErr("failed to get scan record", err)
	}
	return record, nil
}

// ListScanRecords returns the most recent scan records, newest first
func (s *SQLiteStorage) ListScanRecords(ctx context.Context, limit int) ([]*types.ScanRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor, top_text, bottom_text, status, photo_path, batch_id, created_at, updated_at
		FROM scan_records
		ORDER BY id DESC
		LIMIT ?
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
func (s *SQLiteStorage) GetAuditEvents(ctx context.Context, entityType string, entityID int64, limit int) ([]*types.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, event_type, actor, COALESCE(detail, ''), created_at
		FROM audit_events
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY id DESC
		LIMIT ?
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

func scanScanRecord(row rowScanner) (*types.ScanRecord, error) {
	var record types.ScanRecord
	var batchID sql.NullInt64

	err := row.Scan(
		&record.ID, &record.Actor, &record.TopText, &record.BottomText,
		&record.Status, &record.PhotoPath, &batchID, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if batchID.Valid {
		record.BatchID = &batchID.Int64
	}
	return &record, nil
}
