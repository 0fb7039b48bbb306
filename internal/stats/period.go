package stats

import (
	"errors"
	"fmt"
	"time"
)

type PeriodKind string

const (
	PeriodDay   PeriodKind = "day"
	PeriodWeek  PeriodKind = "week"
	PeriodMonth PeriodKind = "month"
)

var ErrUnknownPeriod = errors.New("stats: unknown period kind")

// ParsePeriodKind validates a period string from the query surface.
func ParsePeriodKind(s string) (PeriodKind, error) {
	switch PeriodKind(s) {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return PeriodKind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
	}
}

// Window is the half-open interval [Start, End) a period covers, with a
// stable key for grouping and display.
type Window struct {
	Kind  PeriodKind
	Start time.Time
	End   time.Time
	Key   string
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// WindowAt returns the period window of the given kind containing at,
// computed in loc. Weeks start on Monday.
func WindowAt(kind PeriodKind, at time.Time, loc *time.Location) (Window, error) {
	at = at.In(loc)
	switch kind {
	case PeriodDay:
		return DayWindow(at, loc), nil
	case PeriodWeek:
		return WeekWindow(at, loc), nil
	case PeriodMonth:
		return MonthWindow(at, loc), nil
	default:
		return Window{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, kind)
	}
}

func DayWindow(at time.Time, loc *time.Location) Window {
	at = at.In(loc)
	start := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, loc)
	return Window{
		Kind:  PeriodDay,
		Start: start,
		End:   start.AddDate(0, 0, 1),
		Key:   start.Format("2006-01-02"),
	}
}

func WeekWindow(at time.Time, loc *time.Location) Window {
	at = at.In(loc)
	day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, loc)
	// Monday start; Go's Sunday is 0
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	year, week := start.ISOWeek()
	return Window{
		Kind:  PeriodWeek,
		Start: start,
		End:   start.AddDate(0, 0, 7),
		Key:   fmt.Sprintf("%04d-W%02d", year, week),
	}
}

func MonthWindow(at time.Time, loc *time.Location) Window {
	at = at.In(loc)
	start := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, loc)
	return Window{
		Kind:  PeriodMonth,
		Start: start,
		End:   start.AddDate(0, 1, 0),
		Key:   start.Format("2006-01"),
	}
}
