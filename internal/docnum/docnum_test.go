package docnum

import "testing"

func TestFormat(t *testing.T) {
	tests := []struct {
		seq  int
		want string
	}{
		{1, "FR/QA/001"},
		{42, "FR/QA/042"},
		{999, "FR/QA/999"},
		{1000, "FR/QA/1000"}, // widens, no truncation
		{12345, "FR/QA/12345"},
	}
	for _, tt := range tests {
		if got := Format(DefaultPrefix, tt.seq); got != tt.want {
			t.Errorf("Format(%q, %d) = %q, want %q", DefaultPrefix, tt.seq, got, tt.want)
		}
	}
}

func TestParseSeq(t *testing.T) {
	tests := []struct {
		number string
		want   int
		ok     bool
	}{
		{"FR/QA/001", 1, true},
		{"FR/QA/042", 42, true},
		{"FR/QA/1000", 1000, true},
		{"FR/QA/", 0, false},
		{"FR/QA/abc", 0, false},
		{"no-slash", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseSeq(tt.number)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSeq(%q) = (%d, %v), want (%d, %v)", tt.number, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNext(t *testing.T) {
	if got := Next(nil); got != 1 {
		t.Errorf("Next(nil) = %d, want 1 for empty category", got)
	}
	if got := Next([]string{"FR/QA/001", "FR/QA/003"}); got != 4 {
		t.Errorf("Next with gap = %d, want 4 (gaps tolerated, next = max+1)", got)
	}
	if got := Next([]string{"FR/QA/007", "FR/QA/garbage"}); got != 8 {
		t.Errorf("Next with unparseable entry = %d, want 8", got)
	}
	if got := Next([]string{"FR/QA/999"}); got != 1000 {
		t.Errorf("Next at padding boundary = %d, want 1000", got)
	}
}
