// Package schedule turns routine cadences (standard 5-field cron expressions)
// into concrete calendar windows. All arithmetic happens in UTC so every
// service computing a window for the same cadence and instant gets the same
// boundaries.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	cadenceFields = 5
	// searchYears bounds the backward search, matching the forward limit used by cron.SpecSchedule.
	searchYears = 5
	starBit     = 1 << 63
)

var cadenceParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Interval is a cursor over the occurrences of one cadence. It is not safe
// for concurrent use; every computation builds its own.
type Interval struct {
	cadence  string
	schedule *cron.SpecSchedule
	cursor   time.Time
}

// Parser builds intervals anchored at the current instant of its clock.
type Parser struct {
	clock Clock
}

func NewParser(clock Clock) *Parser {
	return &Parser{clock: clock}
}

// Parse anchors the cadence at now.
func (p *Parser) Parse(cadence string) (*Interval, error) {
	return ParseCadence(cadence, p.clock.Now())
}

// ParseCadence validates a 5-field cron expression and returns an interval
// whose cursor sits at reference.
func ParseCadence(cadence string, reference time.Time) (*Interval, error) {
	fields := strings.Fields(cadence)
	if len(fields) != cadenceFields {
		return nil, fmt.Errorf("%w: %q has %d fields, want %d", ErrInvalidCadence, cadence, len(fields), cadenceFields)
	}

	parsed, err := cadenceParser.Parse(strings.Join(fields, " "))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidCadence, cadence, err)
	}
	spec, ok := parsed.(*cron.SpecSchedule)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a calendar expression", ErrInvalidCadence, cadence)
	}
	spec.Location = time.UTC

	interval := &Interval{
		cadence:  strings.Join(fields, " "),
		schedule: spec,
		cursor:   reference.UTC(),
	}
	if interval.occurrenceBefore(interval.cursor).IsZero() && spec.Next(interval.cursor).IsZero() {
		return nil, fmt.Errorf("%w: %q never fires", ErrInvalidCadence, cadence)
	}
	return interval, nil
}

// Cadence returns the normalized expression the interval was built from.
func (i *Interval) Cadence() string {
	return i.cadence
}

// Cursor returns the instant the interval currently points at.
func (i *Interval) Cursor() time.Time {
	return i.cursor
}

// Reset moves the cursor to t.
func (i *Interval) Reset(t time.Time) {
	i.cursor = t.UTC()
}

// Previous moves the cursor to the latest occurrence strictly before it and
// returns that occurrence. A zero time means nothing was found within the
// search horizon; the cursor is then left in place.
func (i *Interval) Previous() time.Time {
	prev := i.occurrenceBefore(i.cursor)
	if !prev.IsZero() {
		i.cursor = prev
	}
	return prev
}

// Next moves the cursor to the earliest occurrence strictly after it.
func (i *Interval) Next() time.Time {
	next := i.schedule.Next(i.cursor)
	if !next.IsZero() {
		i.cursor = next.UTC()
	}
	return next.UTC()
}

// Current returns the latest occurrence at or before the cursor without
// moving it.
func (i *Interval) Current() time.Time {
	return i.occurrenceBefore(i.cursor.Add(time.Nanosecond))
}

func (i *Interval) nextAfter(t time.Time) time.Time {
	return i.schedule.Next(t).UTC()
}

// occurrenceBefore walks backwards minute by minute, skipping whole months,
// days and hours that cannot match.
func (i *Interval) occurrenceBefore(t time.Time) time.Time {
	s := i.schedule
	t = t.UTC()
	c := t.Truncate(time.Minute)
	if !c.Before(t) {
		c = c.Add(-time.Minute)
	}

	limit := c.Year() - searchYears
	for c.Year() >= limit {
		switch {
		case 1<<uint(c.Month())&s.Month == 0:
			c = time.Date(c.Year(), c.Month(), 1, 0, 0, 0, 0, time.UTC).Add(-time.Minute)
		case !dayMatches(s, c):
			c = time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, time.UTC).Add(-time.Minute)
		case 1<<uint(c.Hour())&s.Hour == 0:
			c = c.Truncate(time.Hour).Add(-time.Minute)
		case 1<<uint(c.Minute())&s.Minute == 0:
			c = c.Add(-time.Minute)
		default:
			return c
		}
	}
	return time.Time{}
}

// dayMatches applies cron's day rule: when either day field is a wildcard
// both must match, otherwise either may.
func dayMatches(s *cron.SpecSchedule, t time.Time) bool {
	domMatch := 1<<uint(t.Day())&s.Dom > 0
	dowMatch := 1<<uint(t.Weekday())&s.Dow > 0
	if s.Dom&starBit > 0 || s.Dow&starBit > 0 {
		return domMatch && dowMatch
	}
	return domMatch || dowMatch
}

// WeeklyFromDate builds a weekly midnight cadence running on date's weekday.
func WeeklyFromDate(date time.Time) string {
	return fmt.Sprintf("0 0 * * %d", int(date.UTC().Weekday()))
}

// AddDaysToCadence shifts the day-of-week field of a cadence by days,
// wrapping around the week. A wildcard day-of-week is returned unchanged.
// Only a single numeric day-of-week can be shifted.
func AddDaysToCadence(cadence string, days int) (string, error) {
	fields := strings.Fields(cadence)
	if len(fields) != cadenceFields {
		return "", fmt.Errorf("%w: %q has %d fields, want %d", ErrInvalidCadence, cadence, len(fields), cadenceFields)
	}

	dow := fields[cadenceFields-1]
	if dow == "*" || dow == "?" {
		return strings.Join(fields, " "), nil
	}

	day, err := strconv.Atoi(dow)
	if err != nil || day < 0 || day > 6 {
		return "", fmt.Errorf("%w: day-of-week %q cannot be shifted", ErrInvalidCadence, dow)
	}
	fields[cadenceFields-1] = strconv.Itoa(((day+days)%7 + 7) % 7)
	return strings.Join(fields, " "), nil
}
