package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/adiwp/lotno/internal/docnum"
	"github.com/adiwp/lotno/internal/types"
)

// Advisory lock key space for document allocation. The second key is the
// category id, so allocations only contend within one category.
const allocLockClass = 7401

// GetDocument retrieves a document by ID with its category name
func (s *PostgresStorage) GetDocument(ctx context.Context, id int64) (*types.Document, error) {
	var doc types.Document
	err := s.pool.QueryRow(ctx, `
		SELECT d.id, d.category_id, d.document_number, d.issued_date, d.created_at, c.name
		FROM documents d
		JOIN categories c ON d.category_id = c.id
		WHERE d.id = $1
	`, id).Scan(&doc.ID, &doc.CategoryID, &doc.Number, &doc.IssuedDate, &doc.CreatedAt, &doc.CategoryName)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: document %d", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, storeErr("failed to get document", err)
	}

	return &doc, nil
}

// ListDocuments returns documents, newest issue date first. A categoryID of
// zero lists all categories.
func (s *PostgresStorage) ListDocuments(ctx context.Context, categoryID int64) ([]*types.Document, error) {
	query := `
		SELECT d.id, d.category_id, d.document_number, d.issued_date, d.created_at, c.name
		FROM documents d
		JOIN categories c ON d.category_id = c.id
	`
	args := []interface{}{}
	if categoryID > 0 {
		query += " WHERE d.category_id = $1"
		args = append(args, categoryID)
	}
	query += " ORDER BY d.issued_date DESC, d.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("failed to list documents", err)
	}
	defer rows.Close()

	var docs []*types.Document
	for rows.Next() {
		var doc types.Document
		if err := rows.Scan(&doc.ID, &doc.CategoryID, &doc.Number, &doc.IssuedDate, &doc.CreatedAt, &doc.CategoryName); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}

	return docs, rows.Err()
}

// AllocateDocument finds or creates the document for (categoryID, issuedDate),
// assigning the next sequential number for the category on create.
//
// pg_advisory_xact_lock serializes allocations per category across every
// process instance sharing the database; the lock releases on commit or
// rollback. The UNIQUE(category_id, issued_date) constraint is the backstop.
func (s *PostgresStorage) AllocateDocument(ctx context.Context, categoryID int64, issuedDate time.Time, actor string) (*types.Document, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, storeErr("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, allocLockClass, int32(categoryID)); err != nil {
		return nil, storeErr("failed to acquire allocation lock", err)
	}

	var categoryName string
	err = tx.QueryRow(ctx, `SELECT name FROM categories WHERE id = $1`, categoryID).Scan(&categoryName)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("%w: category %d", types.ErrNotFound, categoryID)
	}
	if err != nil {
		return nil, storeErr("failed to check category", err)
	}

	dateStr := issuedDate.Format(types.DateLayout)

	// Reuse the existing document for this (category, date) pair
	var doc types.Document
	err = tx.QueryRow(ctx, `
		SELECT id, category_id, document_number, issued_date, created_at
		FROM documents
		WHERE category_id = $1 AND issued_date = $2::date
	`, categoryID, dateStr).Scan(&doc.ID, &doc.CategoryID, &doc.Number, &doc.IssuedDate, &doc.CreatedAt)
	if err == nil {
		if err := tx.Commit(ctx); err != nil {
			return nil, storeErr("failed to commit transaction", err)
		}
		doc.CategoryName = categoryName
		return &doc, nil
	}
	if err != pgx.ErrNoRows {
		return nil, storeErr("failed to look up document", err)
	}

	// No document yet: next number = 1 + highest issued suffix
	rows, err := tx.Query(ctx, `SELECT document_number FROM documents WHERE category_id = $1`, categoryID)
	if err != nil {
		return nil, storeErr("failed to read issued numbers", err)
	}
	var existing []string
	for rows.Next() {
		var number string
		if err := rows.Scan(&number); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan document number: %w", err)
		}
		existing = append(existing, number)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, storeErr("failed to read issued numbers", err)
	}
	rows.Close()

	doc = types.Document{
		CategoryID:   categoryID,
		CategoryName: categoryName,
		Number:       docnum.Format(s.numberPrefix, docnum.Next(existing)),
		IssuedDate:   issuedDate,
		CreatedAt:    time.Now(),
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO documents (category_id, document_number, issued_date, created_at)
		VALUES ($1, $2, $3::date, $4)
		RETURNING id
	`, doc.CategoryID, doc.Number, dateStr, doc.CreatedAt).Scan(&doc.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: document for category %d on %s", types.ErrConflict, categoryID, dateStr)
		}
		return nil, storeErr("failed to insert document", err)
	}

	if err := recordAudit(ctx, tx, "document", doc.ID, types.EventAllocated, actor, doc.Number); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr("failed to commit transaction", err)
	}

	return &doc, nil
}
