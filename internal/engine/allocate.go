package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/adiwp/lotno/internal/types"
)

// AllocateResult reports the outcome of a batch registration.
type AllocateResult struct {
	BatchID        int64     `json:"batch_id"`
	DocumentID     int64     `json:"document_id"`
	DocumentNumber string    `json:"document_number"`
	IssuedDate     time.Time `json:"issued_date"`
}

// Allocate registers a production batch under the document for the given
// category and issue date. The document is found or created by the store,
// which assigns the next sequential number for the category on create, so
// two batches registered for the same category and date always land under
// the same document number.
func (e *Engine) Allocate(ctx context.Context, in types.AllocateInput, actor string) (*AllocateResult, error) {
	issuedDate, err := in.Validate()
	if err != nil {
		return nil, err
	}

	doc, err := e.store.AllocateDocument(ctx, in.CategoryID, issuedDate, actor)
	if err != nil {
		return nil, err
	}

	batch := &types.Batch{
		DocumentID: doc.ID,
		TopText:    in.TopText,
		BottomText: in.BottomText,
	}
	if err := e.store.CreateBatch(ctx, batch, actor); err != nil {
		return nil, err
	}

	e.log.Info("batch allocated",
		zap.Int64("batch_id", batch.ID),
		zap.Int64("document_id", doc.ID),
		zap.String("document_number", doc.Number),
		zap.String("issued_date", issuedDate.Format(types.DateLayout)))

	return &AllocateResult{
		BatchID:        batch.ID,
		DocumentID:     doc.ID,
		DocumentNumber: doc.Number,
		IssuedDate:     doc.IssuedDate,
	}, nil
}
