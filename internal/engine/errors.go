package engine

import (
	"errors"
	"fmt"
)

// ErrNoCandidates indicates the week window held no unverified batches for
// the requested category, so there was nothing to match against.
var ErrNoCandidates = errors.New("no candidates: no unverified batches in the current week window")

// NoMatchError indicates candidates existed but none carried the scanned
// text pair. It keeps the comparison inputs so callers can surface a
// useful diagnostic.
type NoMatchError struct {
	Checked    int
	TopText    string
	BottomText string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no match: %d candidate(s) checked against top=%q bottom=%q",
		e.Checked, e.TopText, e.BottomText)
}
