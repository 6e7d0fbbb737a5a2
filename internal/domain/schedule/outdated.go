package schedule

import "time"

// WeeklyPeriodDays is the length of the weekly routine's answer span.
const WeeklyPeriodDays = 7

// DaysOutdated returns 0 when the cadence's latest occurrence falls on now's
// UTC date. Otherwise it returns the number of days from now until the next
// occurrence. "Not yet due" and "overdue" share this one non-negative figure
// because pending-routine consumers sort on it. The cursor is left untouched.
func DaysOutdated(i *Interval, now time.Time) int {
	previous := i.Current()
	if truncateDay(previous).Equal(truncateDay(now)) {
		return 0
	}

	next := i.nextAfter(previous)
	days := daysBetween(now, next)
	if days < 0 {
		return 0
	}
	return days
}

// Evaluator answers outdatedness questions against an injected clock.
type Evaluator struct {
	clock      Clock
	periodDays int
}

func NewEvaluator(clock Clock, periodDays int) *Evaluator {
	return &Evaluator{clock: clock, periodDays: periodDays}
}

// Now exposes the evaluator's clock reading.
func (e *Evaluator) Now() time.Time {
	return e.clock.Now()
}

// DaysOutdated evaluates the interval against the evaluator's clock.
func (e *Evaluator) DaysOutdated(i *Interval) int {
	return DaysOutdated(i, e.clock.Now())
}

// AnsweredWithinTimeSpan reports whether answeredAt is no more than the
// period length away from now, in either direction.
func (e *Evaluator) AnsweredWithinTimeSpan(answeredAt time.Time) bool {
	diff := daysBetween(answeredAt, e.clock.Now())
	if diff < 0 {
		diff = -diff
	}
	return diff <= e.periodDays
}
