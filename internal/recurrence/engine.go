package recurrence

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Shift is a weekly planned slot. It recurs every week on Weekday at the
// clock time of Start.
type Shift struct {
	ID       string
	UserID   string
	Weekday  time.Weekday
	Start    time.Time
	Duration time.Duration
}

// Occurrence is one dated instance of a Shift.
type Occurrence struct {
	ShiftID string
	UserID  string
	Start   time.Time
	End     time.Time
}

// Engine expands weekly shifts into occurrences.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that reads shift clock times and produces
// results in loc. If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// ErrInvalidWindow indicates the expansion window is empty or inverted.
var ErrInvalidWindow = errors.New("recurrence: window end must be after its start")

// ErrInvalidDuration indicates a shift with a non-positive duration.
var ErrInvalidDuration = errors.New("recurrence: shift duration must be positive")

// ErrInvalidWeekday indicates a weekday outside Sunday..Saturday.
var ErrInvalidWeekday = errors.New("recurrence: weekday must be between 0 and 6")

// Expand produces the occurrences of shifts that start within [from, to).
//
// Occurrences are ordered by start time, then by shift id. Clock times are
// taken in the engine's location, so a shift keeps its wall-clock start
// across DST changes.
func (e *Engine) Expand(shifts []Shift, from, to time.Time) ([]Occurrence, error) {
	loc := e.location
	if loc == nil {
		loc = time.UTC
	}

	from = from.In(loc)
	to = to.In(loc)
	if !to.After(from) {
		return nil, ErrInvalidWindow
	}

	occurrences := make([]Occurrence, 0)
	for _, shift := range shifts {
		if shift.Duration <= 0 {
			return nil, fmt.Errorf("%w: shift %s", ErrInvalidDuration, shift.ID)
		}
		if shift.Weekday < time.Sunday || shift.Weekday > time.Saturday {
			return nil, fmt.Errorf("%w: shift %s", ErrInvalidWeekday, shift.ID)
		}

		for current := firstCandidate(from, shift.Weekday, shift.Start, loc); current.Before(to); current = current.AddDate(0, 0, 7) {
			occurrences = append(occurrences, Occurrence{
				ShiftID: shift.ID,
				UserID:  shift.UserID,
				Start:   current,
				End:     current.Add(shift.Duration),
			})
		}
	}

	slices.SortFunc(occurrences, func(a, b Occurrence) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		switch {
		case a.ShiftID < b.ShiftID:
			return -1
		case a.ShiftID > b.ShiftID:
			return 1
		}
		return 0
	})
	return occurrences, nil
}

// firstCandidate returns the earliest instant at or after from that falls on
// day at the clock time of template.
func firstCandidate(from time.Time, day time.Weekday, template time.Time, loc *time.Location) time.Time {
	candidate := combineDateTime(from, template, loc)
	offset := (int(day) - int(candidate.Weekday()) + 7) % 7
	candidate = candidate.AddDate(0, 0, offset)
	if candidate.Before(from) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

func combineDateTime(dateSource, template time.Time, loc *time.Location) time.Time {
	y, m, d := dateSource.In(loc).Date()
	clock := template.In(loc)
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), loc)
}
