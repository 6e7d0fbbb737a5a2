package schedule

import (
	"fmt"
	"time"
)

// Window is one full period of a cadence. StartDate is inclusive and
// FinishDate is the last day of the period; consumers compare by date.
type Window struct {
	ID         string    `json:"id,omitempty"`
	StartDate  time.Time `json:"startDate"`
	FinishDate time.Time `json:"finishDate"`
}

// Contains reports whether t's UTC date lies within the window.
func (w Window) Contains(t time.Time) bool {
	day := truncateDay(t)
	return !day.Before(truncateDay(w.StartDate)) && !day.After(truncateDay(w.FinishDate))
}

// Order selects the direction of MultipleWindows.
type Order int

const (
	OldestFirst Order = iota
	NewestFirst
)

// WindowFor returns the window containing the interval's cursor. The cursor
// is not moved.
func WindowFor(i *Interval) Window {
	return windowStartingAt(i, i.Current())
}

// MaxWindows bounds MultipleWindows; ten years of a weekly cadence.
const MaxWindows = 520

// MultipleWindows returns count contiguous windows, the last of which
// contains the interval's cursor. The cursor is restored before returning.
func MultipleWindows(i *Interval, count int, order Order) ([]Window, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: window count %d is negative", ErrInvalidArgument, count)
	}
	if count > MaxWindows {
		return nil, fmt.Errorf("%w: window count %d exceeds %d", ErrInvalidArgument, count, MaxWindows)
	}
	windows := make([]Window, 0, count)
	if count == 0 {
		return windows, nil
	}

	mark := i.Cursor()
	defer i.Reset(mark)

	i.Reset(i.Current())
	for n := 1; n < count; n++ {
		i.Previous()
	}
	for n := 0; n < count; n++ {
		windows = append(windows, windowStartingAt(i, i.Cursor()))
		i.Next()
	}

	if order == NewestFirst {
		for l, r := 0, len(windows)-1; l < r; l, r = l+1, r-1 {
			windows[l], windows[r] = windows[r], windows[l]
		}
	}
	return windows, nil
}

// windowStartingAt closes the window one day before the following
// occurrence. Sub-daily cadences close one minute before it instead.
func windowStartingAt(i *Interval, start time.Time) Window {
	next := i.nextAfter(start)
	finish := next.AddDate(0, 0, -1)
	if next.Sub(start) < 24*time.Hour {
		finish = next.Add(-time.Minute)
	}
	return Window{StartDate: start, FinishDate: finish}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole UTC calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(truncateDay(b).Sub(truncateDay(a)).Hours() / 24)
}
