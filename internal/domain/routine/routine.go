package routine

import "routine_notification_bot/internal/domain/schedule"

// Cadence names how often a routine repeats.
type Cadence string

const CadenceWeekly Cadence = "WEEKLY"

// Routine describes the questionnaire users are asked to fill in.
type Routine struct {
	Name    string  `json:"name"`
	Cadence Cadence `json:"cadence"`
}

// Default is the weekly retrospective every company runs.
func Default() Routine {
	return Routine{Name: "Retrospectiva", Cadence: CadenceWeekly}
}

// PeriodDays is how long an answer keeps counting as current. Weekly is the
// only cadence routines run on.
func (r Routine) PeriodDays() int {
	return schedule.WeeklyPeriodDays
}
