package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/adiwp/lotno/internal/types"
	"github.com/adiwp/lotno/internal/week"
)

// ReconcileResult reports a successful match.
type ReconcileResult struct {
	ScanRecordID      int64       `json:"scan_record_id"`
	BatchID           int64       `json:"batch_id"`
	DocumentID        int64       `json:"document_id"`
	DocumentNumber    string      `json:"document_number"`
	CandidatesChecked int         `json:"candidates_checked"`
	Window            week.Window `json:"window"`
}

// Reconcile matches a scan record's text pair against the unverified batches
// of the current week window and claims the first exact match.
//
// The candidate list is read without a lock; the claim itself re-checks the
// verified flag inside the store transaction, so a lost race surfaces as
// types.ErrConflict. When several candidates carry identical text the loser
// of a race falls through to the next one instead of failing.
func (e *Engine) Reconcile(ctx context.Context, in types.ReconcileInput) (*ReconcileResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	scan, err := e.store.GetScanRecord(ctx, in.ScanRecordID)
	if err != nil {
		return nil, err
	}
	if scan.BatchID != nil {
		return nil, fmt.Errorf("%w: scan record %d already matched to batch %d",
			types.ErrConflict, scan.ID, *scan.BatchID)
	}

	window := week.Current(e.clock.Now(), e.loc)

	candidates, err := e.store.FindCandidates(ctx, in.CategoryName, window)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: category %q, week of %s",
			ErrNoCandidates, in.CategoryName, window.Start.Format(types.DateLayout))
	}

	target := types.TextPair{Top: scan.TopText, Bottom: scan.BottomText}

	checked := 0
	for len(candidates) > 0 {
		cand, n := match(target, candidates)
		checked += n
		if cand == nil {
			break
		}

		err := e.store.ClaimBatch(ctx, cand.Batch.ID, scan.ID, scan.Actor)
		if errors.Is(err, types.ErrConflict) {
			// The conflict is either the batch (claimed by another
			// reconciler between the read and the claim) or the scan record
			// itself (linked by a concurrent request). Only the former is
			// worth retrying.
			current, getErr := e.store.GetScanRecord(ctx, scan.ID)
			if getErr != nil {
				return nil, getErr
			}
			if current.BatchID != nil {
				return nil, err
			}
			e.log.Debug("batch claimed concurrently, trying next candidate",
				zap.Int64("batch_id", cand.Batch.ID),
				zap.Int64("scan_record_id", scan.ID))
			candidates = candidates[n:]
			continue
		}
		if err != nil {
			return nil, err
		}

		e.log.Info("scan reconciled",
			zap.Int64("scan_record_id", scan.ID),
			zap.Int64("batch_id", cand.Batch.ID),
			zap.String("document_number", cand.Document.Number),
			zap.Int("candidates_checked", checked))

		return &ReconcileResult{
			ScanRecordID:      scan.ID,
			BatchID:           cand.Batch.ID,
			DocumentID:        cand.Document.ID,
			DocumentNumber:    cand.Document.Number,
			CandidatesChecked: checked,
			Window:            window,
		}, nil
	}

	return nil, &NoMatchError{
		Checked:    checked,
		TopText:    scan.TopText,
		BottomText: scan.BottomText,
	}
}
