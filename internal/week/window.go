// Package week computes the ISO week window used to scope candidate
// selection: Monday 00:00 through the following Monday 00:00 in a fixed
// reference timezone.
package week

import "time"

// Window is a half-open instant range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window. Start is inclusive,
// End is exclusive: a document issued exactly at the next Monday 00:00
// belongs to the following week.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Current returns the ISO week containing ref, evaluated in loc. The result
// is fully determined by its inputs.
func Current(ref time.Time, loc *time.Location) Window {
	t := ref.In(loc)

	// Days since the most recent Monday; time.Weekday puts Sunday at 0.
	offset := (int(t.Weekday()) + 6) % 7

	start := time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, loc)
	return Window{
		Start: start,
		End:   start.AddDate(0, 0, 7),
	}
}
