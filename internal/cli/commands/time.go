package commands

import (
	"fmt"
	"time"
)

// parseAt reads an RFC 3339 timestamp or a bare date. Empty means now.
func parseAt(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: want RFC 3339 or YYYY-MM-DD", raw)
	}
	return t, nil
}
