package types

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"valid", "2024-09-28", time.Date(2024, 9, 28, 0, 0, 0, 0, time.UTC), false},
		{"valid with whitespace", " 2024-09-28 ", time.Date(2024, 9, 28, 0, 0, 0, 0, time.UTC), false},
		{"empty", "", time.Time{}, true},
		{"wrong order", "28-09-2024", time.Time{}, true},
		{"with time component", "2024-09-28T10:00:00Z", time.Time{}, true},
		{"garbage", "not-a-date", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDate(%q) expected error, got %v", tt.input, got)
				}
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("ParseDate(%q) error = %v, want ErrInvalidInput", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) unexpected error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAllocateInputValidate(t *testing.T) {
	valid := AllocateInput{CategoryID: 1, IssuedDate: "2024-09-28", TopText: "28.09.24 K2", BottomText: "04:22"}
	date, err := valid.Validate()
	if err != nil {
		t.Fatalf("Validate failed for valid input: %v", err)
	}
	if date.Hour() != 0 || date.Minute() != 0 || date.Second() != 0 {
		t.Errorf("Validate returned a date with a time component: %v", date)
	}

	missing := AllocateInput{IssuedDate: "2024-09-28"}
	if _, err := missing.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing category_id, got %v", err)
	}

	badDate := AllocateInput{CategoryID: 1, IssuedDate: "28/09/2024"}
	if _, err := badDate.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for malformed date, got %v", err)
	}
}

func TestReconcileInputValidate(t *testing.T) {
	valid := ReconcileInput{ScanRecordID: 7, CategoryName: "cap"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate failed for valid input: %v", err)
	}

	if err := (&ReconcileInput{CategoryName: "cap"}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing scan_record_id, got %v", err)
	}
	if err := (&ReconcileInput{ScanRecordID: 7, CategoryName: "  "}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank category_name, got %v", err)
	}
}

func TestTextPairEqual(t *testing.T) {
	p := TextPair{Top: "28.09.24 K2", Bottom: "04:22"}

	if !p.Equal("28.09.24 K2", "04:22") {
		t.Error("expected exact pair to match")
	}
	// Comparison is byte-for-byte: no trimming, no case folding
	if p.Equal("28.09.24 k2", "04:22") {
		t.Error("case-folded top text must not match")
	}
	if p.Equal("28.09.24 K2 ", "04:22") {
		t.Error("trailing whitespace must not match")
	}
	if p.Equal("28.09.24 K2", "") {
		t.Error("partial match must not match")
	}
}

func TestScanStatusIsValid(t *testing.T) {
	for _, s := range []ScanStatus{ScanStatusPending, ScanStatusMatched, ScanStatusRejected} {
		if !s.IsValid() {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if ScanStatus("verified").IsValid() {
		t.Error("unknown status should be invalid")
	}
}

func TestNormalizeCategoryName(t *testing.T) {
	if got := NormalizeCategoryName("  Cap "); got != "cap" {
		t.Errorf("NormalizeCategoryName = %q, want %q", got, "cap")
	}
}
