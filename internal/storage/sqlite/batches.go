package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/adiwp/lotno/internal/types"
	"github.com/adiwp/lotno/internal/week"
)

// CreateBatch creates a new, unverified batch under an existing document
func (s *SQLiteStorage) CreateBatch(ctx context.Context, batch *types.Batch, actor string) error {
	now := time.Now()
	batch.CreatedAt = now
	batch.UpdatedAt = now
	batch.IsVerified = false

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Parent document must exist
	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE id = ?`, batch.DocumentID).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: document %d", types.ErrNotFound, batch.DocumentID)
	}
	if err != nil {
		return storeErr("failed to check document", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO batches (document_id, top_text, bottom_text, is_verified, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
	`, batch.DocumentID, batch.TopText, batch.BottomText, batch.CreatedAt, batch.UpdatedAt)
	if err != nil {
		return storeErr("failed to insert batch", err)
	}
	batch.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get batch id: %w", err)
	}

	if err := recordAudit(ctx, tx, "batch", batch.ID, types.EventCreated, actor, ""); err != nil {
		return err
	}

	return tx.Commit()
}

// GetBatch retrieves a batch by ID
func (s *SQLiteStorage) GetBatch(ctx context.Context, id int64) (*types.Batch, error) {
	batch, err := scanBatch(s.db.QueryRowContext(ctx, `
		SELECT id, document_id, top_text, bottom_text, is_verified, scan_record_id, created_at, updated_at
		FROM batches
		WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: batch %d", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, storeErr("failed to get batch", err)
	}
	return batch, nil
}

// ListBatches returns batches, newest first. A documentID of zero lists all.
func (s *SQLiteStorage) ListBatches(ctx context.Context, documentID int64) ([]*types.Batch, error) {
	query := `
		SELECT id, document_id, top_text, bottom_text, is_verified, scan_record_id, created_at, updated_at
		FROM batches
	`
	args := []interface{}{}
	if documentID > 0 {
		query += " WHERE document_id = ?"
		args = append(args, documentID)
	}
	query += " ORDER BY id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("failed to list batches", err)
	}
	defer rows.Close()

	var batches []*types.Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, batch)
	}

	return batches, rows.Err()
}

// FindCandidates returns unverified batches whose parent document was issued
// inside the window and belongs to the named category. NULL is_verified
// counts as unverified (legacy rows). Ordering is issued date then batch id
// so the first textual match is always the earliest-dated candidate.
func (s *SQLiteStorage) FindCandidates(ctx context.Context, categoryName string, w week.Window) ([]types.Candidate, error) {
	// Window boundaries are local midnights; calendar-date comparison on
	// the stored YYYY-MM-DD value keeps start inclusive and end exclusive.
	startDate := w.Start.Format(types.DateLayout)
	endDate := w.End.Format(types.DateLayout)

	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.document_id, b.top_text, b.bottom_text, b.is_verified, b.scan_record_id,
		       b.created_at, b.updated_at,
		       d.id, d.category_id, d.document_number, d.issued_date, d.created_at, c.name
		FROM batches b
		JOIN documents d ON b.document_id = d.id
		JOIN categories c ON d.category_id = c.id
		WHERE (b.is_verified = 0 OR b.is_verified IS NULL)
		  AND d.issued_date >= ? AND d.issued_date < ?
		  AND LOWER(c.name) = ?
		ORDER BY d.issued_date ASC, b.id ASC
	`, startDate, endDate, types.NormalizeCategoryName(categoryName))
	if err != nil {
		return nil, storeErr("failed to query candidates", err)
	}
	defer rows.Close()

	var candidates []types.Candidate
	for rows.Next() {
		var cand types.Candidate
		var verified sql.NullBool
		var scanRecordID sql.NullInt64

		err := rows.Scan(
			&cand.Batch.ID, &cand.Batch.DocumentID, &cand.Batch.TopText, &cand.Batch.BottomText,
			&verified, &scanRecordID, &cand.Batch.CreatedAt, &cand.Batch.UpdatedAt,
			&cand.Document.ID, &cand.Document.CategoryID, &cand.Document.Number,
			&cand.Document.IssuedDate, &cand.Document.CreatedAt, &cand.Document.CategoryName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}

		cand.Batch.IsVerified = verified.Valid && verified.Bool
		if scanRecordID.Valid {
			cand.Batch.ScanRecordID = &scanRecordID.Int64
		}
		candidates = append(candidates, cand)
	}

	return candidates, rows.Err()
}

// ClaimBatch marks the batch verified and cross-links it with the scan
// record in one transaction.
//
// The batch was selected outside any lock, so the UPDATE re-checks the
// verified flag; zero rows affected means another reconciler claimed it
// first and the caller gets types.ErrConflict. The scan record side carries
// the same guard so a scan's batch link is never reassigned.
func (s *SQLiteStorage) ClaimBatch(ctx context.Context, batchID, scanRecordID int64, actor string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()

	res, err := tx.ExecContext(ctx, `
		UPDATE batches
		SET is_verified = 1, scan_record_id = ?, updated_at = ?
		WHERE id = ?
		  AND (is_verified = 0 OR is_verified IS NULL)
		  AND scan_record_id IS NULL
	`, scanRecordID, now, batchID)
	if err != nil {
		return storeErr("failed to claim batch", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Either the batch doesn't exist or another reconciler won the race
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM batches WHERE id = ?`, batchID).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: batch %d", types.ErrNotFound, batchID)
		}
		if err != nil {
			return storeErr("failed to verify batch", err)
		}
		return fmt.Errorf("%w: batch %d already verified", types.ErrConflict, batchID)
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE scan_records
		SET batch_id = ?, status = ?, updated_at = ?
		WHERE id = ? AND batch_id IS NULL
	`, batchID, types.ScanStatusMatched, now, scanRecordID)
	if err != nil {
		return storeErr("failed to link scan record", err)
	}
	rows, err = res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM scan_records WHERE id = ?`, scanRecordID).Scan(&exists)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: scan record %d", types.ErrNotFound, scanRecordID)
		}
		if err != nil {
			return storeErr("failed to verify scan record", err)
		}
		return fmt.Errorf("%w: scan record %d already linked", types.ErrConflict, scanRecordID)
	}

	detail := fmt.Sprintf("verified against scan record %d", scanRecordID)
	if err := recordAudit(ctx, tx, "batch", batchID, types.EventVerified, actor, detail); err != nil {
		return err
	}

	return tx.Commit()
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBatch(row rowScanner) (*types.Batch, error) {
	var batch types.Batch
	var verified sql.NullBool
	var scanRecordID sql.NullInt64

	err := row.Scan(
		&batch.ID, &batch.DocumentID, &batch.TopText, &batch.BottomText,
		&verified, &scanRecordID, &batch.CreatedAt, &batch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	batch.IsVerified = verified.Valid && verified.Bool
	if scanRecordID.Valid {
		batch.ScanRecordID = &scanRecordID.Int64
	}
	return &batch, nil
}
