package analytics

import (
	"fmt"
	"time"

	"github.com/retailpos/backoffice/internal/domain/shared"
)

// RangeKind is a symbolic date filter selected in the UI.
type RangeKind string

const (
	RangeAll          RangeKind = "all"
	RangeToday        RangeKind = "today"
	RangeCurrentWeek  RangeKind = "current_week"
	RangeLastWeek     RangeKind = "last_week"
	RangeCurrentMonth RangeKind = "current_month"
	RangeLastMonth    RangeKind = "last_month"
	RangeCustom       RangeKind = "custom"
)

// WeekStart is the first day of the business week.
const WeekStart = time.Saturday

// epochFloor is the beginning of operational history, used as the lower
// bound for the "all" range.
var epochFloor = time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)

// DateRange is the symbolic filter plus optional custom bounds. Custom
// requires both bounds; every other kind derives its bounds from "now".
type DateRange struct {
	Kind  RangeKind
	Start *time.Time
	End   *time.Time
}

// Valid reports whether the kind is one of the known range kinds.
func (r DateRange) Valid() bool {
	switch r.Kind {
	case RangeAll, RangeToday, RangeCurrentWeek, RangeLastWeek,
		RangeCurrentMonth, RangeLastMonth, RangeCustom:
		return true
	}
	return false
}

// Key returns the deterministic cache-key fragment for the range. Custom
// ranges serialize their day bounds; symbolic kinds serialize as-is.
func (r DateRange) Key() string {
	if r.Kind == RangeCustom && r.Start != nil && r.End != nil {
		return fmt.Sprintf("custom:%s:%s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}
	return string(r.Kind)
}

// Window is a resolved [Start, End] instant range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Duration is the length of the window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Previous returns the equal-duration window immediately preceding this
// one, ending one millisecond before Start. Used for trend comparison.
func (w Window) Previous() Window {
	end := w.Start.Add(-time.Millisecond)
	return Window{Start: end.Add(-w.Duration()), End: end}
}

// Resolve converts a symbolic date range into concrete instants in the
// business timezone. Resolution depends only on the filter and now; it
// holds no hidden state.
func Resolve(r DateRange, now time.Time, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	switch r.Kind {
	case RangeToday:
		start := dayStart(now)
		return Window{Start: start, End: dayEnd(now)}, nil

	case RangeCurrentWeek:
		return Window{Start: weekStart(now), End: now}, nil

	case RangeLastWeek:
		cur := weekStart(now)
		return Window{Start: cur.AddDate(0, 0, -7), End: cur.Add(-time.Millisecond)}, nil

	case RangeCurrentMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return Window{Start: start, End: now}, nil

	case RangeLastMonth:
		thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		return Window{Start: thisMonth.AddDate(0, -1, 0), End: thisMonth.Add(-time.Millisecond)}, nil

	case RangeCustom:
		if r.Start == nil || r.End == nil {
			return Window{}, shared.ErrCustomRangeBounds
		}
		start := dayStart(r.Start.In(loc))
		end := dayEnd(r.End.In(loc))
		if end.Before(start) {
			return Window{}, shared.ErrCustomRangeBounds
		}
		return Window{Start: start, End: end}, nil

	case RangeAll:
		return Window{Start: epochFloor.In(loc), End: now}, nil

	default:
		return Window{}, shared.NewDomainError("INVALID_RANGE", fmt.Sprintf("unknown range kind %q", r.Kind))
	}
}

// dayStart is local midnight of t's date.
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// dayEnd is 23:59:59.999 of t's date.
func dayEnd(t time.Time) time.Time {
	return dayStart(t).Add(24*time.Hour - time.Millisecond)
}

// weekStart is midnight of the most recent WeekStart day at or before t.
func weekStart(t time.Time) time.Time {
	days := (int(t.Weekday()) - int(WeekStart) + 7) % 7
	return dayStart(t).AddDate(0, 0, -days)
}
