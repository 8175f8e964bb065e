package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/adiwp/lotno/internal/docnum"
	"github.com/adiwp/lotno/internal/types"
)

// GetDocument retrieves a document by ID with its category name
func (s *SQLiteStorage) GetDocument(ctx context.Context, id int64) (*types.Document, error) {
	var doc types.Document
	err := s.db.QueryRowContext(ctx, `
		SELECT d.id, d.category_id, d.document_number, d.issued_date, d.created_at, c.name
		FROM documents d
		JOIN categories c ON d.category_id = c.id
		WHERE d.id = ?
	`, id).Scan(&doc.ID, &doc.CategoryID, &doc.Number, &doc.IssuedDate, &doc.CreatedAt, &doc.CategoryName)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: document %d", types.ErrNotFound, id)
	}
	if err != nil {
		return nil, storeErr("failed to get document", err)
	}

	return &doc, nil
}

// ListDocuments returns documents, newest issue date first. A categoryID of
// zero lists all categories.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, categoryID int64) ([]*types.Document, error) {
	query := `
		SELECT d.id, d.category_id, d.document_number, d.issued_date, d.created_at, c.name
		FROM documents d
		JOIN categories c ON d.category_id = c.id
	`
	args := []interface{}{}
	if categoryID > 0 {
		query += " WHERE d.category_id = ?"
		args = append(args, categoryID)
	}
	query += " ORDER BY d.issued_date DESC, d.id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
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
// The whole find-or-create runs inside a single IMMEDIATE transaction on a
// dedicated connection. IMMEDIATE acquires SQLite's write lock up front, so
// two concurrent allocations for the same category cannot both read the same
// maximum and compute identical numbers.
func (s *SQLiteStorage) AllocateDocument(ctx context.Context, categoryID int64, issuedDate time.Time, actor string) (*types.Document, error) {
	// Acquire a dedicated connection for the transaction. We need raw
	// "BEGIN IMMEDIATE"/"COMMIT" on one connection, and database/sql's pool
	// would otherwise route statements to different connections.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, storeErr("failed to acquire connection", err)
	}
	defer conn.Close()

	// database/sql's BeginTx cannot express transaction modes; the sqlite3
	// driver always begins DEFERRED, which would defeat the serialization.
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return nil, storeErr("failed to begin immediate transaction", err)
	}

	// Use context.Background() for ROLLBACK so cleanup happens even if ctx
	// is canceled mid-operation.
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	// Category must exist
	var categoryName string
	err = conn.QueryRowContext(ctx, `SELECT name FROM categories WHERE id = ?`, categoryID).Scan(&categoryName)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: category %d", types.ErrNotFound, categoryID)
	}
	if err != nil {
		return nil, storeErr("failed to check category", err)
	}

	dateStr := issuedDate.Format(types.DateLayout)

	// Reuse the existing document for this (category, date) pair
	var doc types.Document
	err = conn.QueryRowContext(ctx, `
		SELECT id, category_id, document_number, issued_date, created_at
		FROM documents
		WHERE category_id = ? AND issued_date = ?
	`, categoryID, dateStr).Scan(&doc.ID, &doc.CategoryID, &doc.Number, &doc.IssuedDate, &doc.CreatedAt)
	if err == nil {
		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			return nil, storeErr("failed to commit transaction", err)
		}
		committed = true
		doc.CategoryName = categoryName
		return &doc, nil
	}
	if err != sql.ErrNoRows {
		return nil, storeErr("failed to look up document", err)
	}

	// No document yet: compute next number from the highest issued suffix.
	// Numbers are parsed in Go because the suffix sits after the last '/'
	// and unparseable legacy numbers must be skipped, not counted.
	rows, err := conn.QueryContext(ctx, `
		SELECT document_number FROM documents WHERE category_id = ?
	`, categoryID)
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

	res, err := conn.ExecContext(ctx, `
		INSERT INTO documents (category_id, document_number, issued_date, created_at)
		VALUES (?, ?, ?, ?)
	`, doc.CategoryID, doc.Number, dateStr, doc.CreatedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			// Another writer slipped in despite the lock; the caller may retry
			return nil, fmt.Errorf("%w: document for category %d on %s", types.ErrConflict, categoryID, dateStr)
		}
		return nil, storeErr("failed to insert document", err)
	}
	doc.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get document id: %w", err)
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO audit_events (entity_type, entity_id, event_type, actor, detail)
		VALUES ('document', ?, ?, ?, ?)
	`, doc.ID, types.EventAllocated, actor, doc.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to record audit event: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return nil, storeErr("failed to commit transaction", err)
	}
	committed = true

	return &doc, nil
}
