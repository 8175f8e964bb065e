package engine

import (
	"github.com/adiwp/lotno/internal/types"
)

// match scans candidates in order and returns the first whose text pair
// equals the target exactly, plus the number of candidates compared. The
// scan short-circuits at the first hit, so checked counts only the
// candidates actually compared.
func match(target types.TextPair, candidates []types.Candidate) (*types.Candidate, int) {
	for i := range candidates {
		if target.Equal(candidates[i].Batch.TopText, candidates[i].Batch.BottomText) {
			return &candidates[i], i + 1
		}
	}
	return nil, len(candidates)
}
