package schedule

import (
	"fmt"
	"time"
)

// Normalizer maps a recorded timestamp to the canonical start of the period
// it belongs to.
type Normalizer interface {
	Name() string
	Normalize(t time.Time, cadence string) (time.Time, error)
}

const (
	StrategyCadence = "cadence"
	StrategyISOWeek = "iso-week"
)

// CadenceAnchored snaps a timestamp back to the latest cadence occurrence at
// or before it.
type CadenceAnchored struct{}

func (CadenceAnchored) Name() string { return StrategyCadence }

func (CadenceAnchored) Normalize(t time.Time, cadence string) (time.Time, error) {
	interval, err := ParseCadence(cadence, t)
	if err != nil {
		return time.Time{}, err
	}
	return interval.Current(), nil
}

// ISOWeekAnchored maps a timestamp to midnight UTC on the Monday of its ISO
// week, ignoring the cadence. Records bucketed this way do not line up with
// cadence-anchored buckets unless the cadence runs on Mondays.
type ISOWeekAnchored struct{}

func (ISOWeekAnchored) Name() string { return StrategyISOWeek }

func (ISOWeekAnchored) Normalize(t time.Time, _ string) (time.Time, error) {
	year, week := t.UTC().ISOWeek()
	return ISOWeekStart(year, week), nil
}

// ISOWeekStart returns midnight UTC on the Monday of the given ISO week.
func ISOWeekStart(year, week int) time.Time {
	// January 4th is always in week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	return jan4.AddDate(0, 0, -offset+(week-1)*7)
}

// NormalizerByName resolves a configured strategy name.
func NormalizerByName(name string) (Normalizer, error) {
	switch name {
	case StrategyCadence, "":
		return CadenceAnchored{}, nil
	case StrategyISOWeek:
		return ISOWeekAnchored{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown normalization strategy %q", ErrInvalidArgument, name)
	}
}
