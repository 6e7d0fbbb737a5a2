package schedule

import (
	"fmt"
	"sort"
	"time"
)

// Record is the minimal view of a stored answer the reconstructor needs.
type Record struct {
	ID        string
	Timestamp time.Time
	Value     *string
}

// HistoryEntry is one slot of a reconstructed series. Placeholders have a nil
// ID and Value and carry the window's start as Timestamp.
type HistoryEntry struct {
	ID        *string   `json:"id"`
	Value     *string   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
	Window    Window    `json:"window"`
}

// MatchFunc reports whether a record belongs to a window.
type MatchFunc func(w Window, r Record) bool

// WithinWindow matches a record when its normalized timestamp falls inside
// the window. Records whose timestamp cannot be normalized never match.
func WithinWindow(n Normalizer, cadence string) MatchFunc {
	return func(w Window, r Record) bool {
		at, err := n.Normalize(r.Timestamp, cadence)
		if err != nil {
			return false
		}
		return w.Contains(at)
	}
}

// Reconstruct aligns records to windows, one entry per window in the given
// order. When several records match a window the chronologically earliest
// wins; equal timestamps fall back to the smaller ID.
func Reconstruct(windows []Window, records []Record, match MatchFunc) ([]HistoryEntry, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: no windows to reconstruct", ErrInvalidArgument)
	}
	if match == nil {
		return nil, fmt.Errorf("%w: nil match function", ErrInvalidArgument)
	}

	ordered := make([]Record, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(a, b int) bool {
		if !ordered[a].Timestamp.Equal(ordered[b].Timestamp) {
			return ordered[a].Timestamp.Before(ordered[b].Timestamp)
		}
		return ordered[a].ID < ordered[b].ID
	})

	entries := make([]HistoryEntry, 0, len(windows))
	for _, w := range windows {
		entry := HistoryEntry{Timestamp: w.StartDate, Window: w}
		for _, r := range ordered {
			if !match(w, r) {
				continue
			}
			id := r.ID
			entry.ID = &id
			entry.Value = r.Value
			entry.Timestamp = r.Timestamp
			entry.Window.ID = r.ID
			break
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
