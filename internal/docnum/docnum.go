// Package docnum formats and parses human-readable document numbers of the
// form PREFIX/NNN, zero-padded to three digits.
package docnum

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPrefix is the document number prefix used when none is configured.
const DefaultPrefix = "FR/QA"

// Format renders a sequence number under a prefix, e.g. ("FR/QA", 7) →
// "FR/QA/007". Numbers of 1000 and above simply widen.
func Format(prefix string, seq int) string {
	return fmt.Sprintf("%s/%03d", prefix, seq)
}

// ParseSeq extracts the trailing numeric suffix of a document number, the
// part after the last '/'. The second return is false when the number does
// not end in an integer.
func ParseSeq(number string) (int, bool) {
	idx := strings.LastIndexByte(number, '/')
	if idx < 0 || idx == len(number)-1 {
		return 0, false
	}
	seq, err := strconv.Atoi(number[idx+1:])
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

// Next computes the next sequence number given the numbers already issued
// for a category: 1 + the highest existing suffix, or 1 when none parse.
// Gaps are tolerated; duplicates are what the caller's locking prevents.
func Next(existing []string) int {
	max := 0
	for _, number := range existing {
		if seq, ok := ParseSeq(number); ok && seq > max {
			max = seq
		}
	}
	return max + 1
}
