package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidInput is returned when a request fails validation before any
// store access happens. Callers should not retry without fixing the input.
var ErrInvalidInput = errors.New("invalid input")

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// Category groups documents under a human-assigned name such as "cap" or
// "label". Names are compared case-insensitively and a category is immutable
// once documents reference it.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks if the category has valid field values
func (c *Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	if len(name) > 100 {
		return fmt.Errorf("%w: category name must be 100 characters or less (got %d)", ErrInvalidInput, len(name))
	}
	return nil
}

// Document is the per-category, per-date administrative record that batches
// are grouped under. At most one document exists per (category, issued date)
// pair, and its number is the next sequential number for the category.
type Document struct {
	ID         int64     `json:"id"`
	CategoryID int64     `json:"category_id"`
	Number     string    `json:"document_number"`
	IssuedDate time.Time `json:"issued_date"`
	CreatedAt  time.Time `json:"created_at"`

	// CategoryName is populated on reads that join the category row.
	CategoryName string `json:"category_name,omitempty"`
}

// Batch is one unit of product output awaiting or having received
// verification against a scanned label pair. is_verified transitions
// false to true at most once.
type Batch struct {
	ID           int64     `json:"id"`
	DocumentID   int64     `json:"document_id"`
	TopText      string    `json:"top_text"`
	BottomText   string    `json:"bottom_text"`
	IsVerified   bool      `json:"is_verified"`
	ScanRecordID *int64    `json:"scan_record_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ScanRecord is one submitted label scan: the text pair produced by the
// external recognizer plus the stored photo reference. The batch link is the
// only field mutated after creation, and only by reconciliation.
type ScanRecord struct {
	ID         int64      `json:"id"`
	Actor      string     `json:"actor"`
	TopText    string     `json:"top_text"`
	BottomText string     `json:"bottom_text"`
	Status     ScanStatus `json:"status"`
	PhotoPath  string     `json:"photo_path,omitempty"`
	BatchID    *int64     `json:"batch_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Validate checks if the scan record has valid field values
func (s *ScanRecord) Validate() error {
	if strings.TrimSpace(s.Actor) == "" {
		return fmt.Errorf("%w: actor is required", ErrInvalidInput)
	}
	if !s.Status.IsValid() {
		return fmt.Errorf("%w: invalid scan status: %s", ErrInvalidInput, s.Status)
	}
	return nil
}

// ScanStatus is the category tag the recognizer attached to a scan.
type ScanStatus string

const (
	ScanStatusPending  ScanStatus = "pending"
	ScanStatusMatched  ScanStatus = "matched"
	ScanStatusRejected ScanStatus = "rejected"
)

// IsValid checks if the scan status value is valid
func (s ScanStatus) IsValid() bool {
	switch s {
	case ScanStatusPending, ScanStatusMatched, ScanStatusRejected:
		return true
	}
	return false
}

// Candidate pairs an unverified batch with its parent document for matching.
// Candidate lists are ordered by parent issued date, then batch id.
type Candidate struct {
	Batch    Batch
	Document Document
}

// TextPair is the target of a match: the two strings the recognizer
// extracted from the top and bottom of a label. Comparison is byte-for-byte,
// no trimming or case folding.
type TextPair struct {
	Top    string `json:"top_text"`
	Bottom string `json:"bottom_text"`
}

// Equal reports whether both fields match exactly.
func (p TextPair) Equal(top, bottom string) bool {
	return p.Top == top && p.Bottom == bottom
}

// AllocateInput is a batch-registration request.
type AllocateInput struct {
	CategoryID int64  `json:"category_id"`
	IssuedDate string `json:"issued_date"`
	TopText    string `json:"top_text"`
	BottomText string `json:"bottom_text"`
}

// Validate checks required fields and parses the issued date, returning the
// normalized calendar date (midnight, no time component).
func (in *AllocateInput) Validate() (time.Time, error) {
	if in.CategoryID <= 0 {
		return time.Time{}, fmt.Errorf("%w: category_id is required", ErrInvalidInput)
	}
	return ParseDate(in.IssuedDate)
}

// ReconcileInput identifies the scan to reconcile and the category to search.
type ReconcileInput struct {
	ScanRecordID int64  `json:"scan_record_id"`
	CategoryName string `json:"category_name"`
}

// Validate checks required fields.
func (in *ReconcileInput) Validate() error {
	if in.ScanRecordID <= 0 {
		return fmt.Errorf("%w: scan_record_id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.CategoryName) == "" {
		return fmt.Errorf("%w: category_name is required", ErrInvalidInput)
	}
	return nil
}

// ParseDate parses a calendar date in YYYY-MM-DD form and normalizes it to
// midnight UTC so equality checks ignore any time component.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed issued_date %q (want YYYY-MM-DD)", ErrInvalidInput, s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// NormalizeCategoryName lowercases a category name for lookups; the store
// applies the same normalization on its side of the comparison.
func NormalizeCategoryName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
