package domain

import (
	"fmt"
	"time"

	apperrors "github.com/lorrc/helpdesk-backend/internal/core/errors"
)

// Window is a daily working interval, in minutes from midnight.
type Window struct {
	Start int
	End   int
}

// ParseClock parses an "HH:MM" time of day into minutes from midnight.
func ParseClock(s string) (int, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, apperrors.ErrInvalidClockTime
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, apperrors.ErrInvalidClockTime
	}
	return hour*60 + minute, nil
}

// FormatClock renders minutes from midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// BusinessWindow is the stored per-weekday working interval. Weekday
// indexing follows the stored data: 0 = Monday .. 6 = Sunday.
type BusinessWindow struct {
	Weekday int
	Start   string
	End     string
	Active  bool
}

// Validate checks weekday range and that the interval is well formed.
func (w BusinessWindow) Validate() error {
	if w.Weekday < 0 || w.Weekday > 6 {
		return apperrors.ErrInvalidWeekday
	}
	start, err := ParseClock(w.Start)
	if err != nil {
		return err
	}
	end, err := ParseClock(w.End)
	if err != nil {
		return err
	}
	if end <= start {
		return apperrors.ErrInvalidBusinessWindow
	}
	return nil
}

// WeekdayFromMonday0 converts the stored 0=Monday index to time.Weekday.
func WeekdayFromMonday0(i int) time.Weekday {
	return time.Weekday((i + 1) % 7)
}

// Monday0FromWeekday converts a time.Weekday to the stored 0=Monday index.
func Monday0FromWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// WeekSchedule maps weekdays to their working window. Days without an
// entry contribute no business time.
type WeekSchedule map[time.Weekday]Window

// DefaultWeekSchedule is Monday through Friday, 08:00-18:00.
func DefaultWeekSchedule() WeekSchedule {
	window := Window{Start: 8 * 60, End: 18 * 60}
	return WeekSchedule{
		time.Monday:    window,
		time.Tuesday:   window,
		time.Wednesday: window,
		time.Thursday:  window,
		time.Friday:    window,
	}
}

// IsBusinessDay reports whether the schedule has a window on t's weekday.
func (ws WeekSchedule) IsBusinessDay(t time.Time) bool {
	_, ok := ws[t.Weekday()]
	return ok
}

// ElapsedBusinessHours returns the working time between start and end in
// hours. The walk visits each calendar day once, clips the interval to
// that day's window and skips days without one. A reversed or empty
// interval yields 0.
func (ws WeekSchedule) ElapsedBusinessHours(start, end time.Time) float64 {
	if !end.After(start) {
		return 0
	}

	end = end.In(start.Location())

	totalMinutes := 0
	current := start
	for current.Before(end) {
		year, month, day := current.Date()
		nextDay := time.Date(year, month, day, 0, 0, 0, 0, current.Location()).AddDate(0, 0, 1)

		window, ok := ws[current.Weekday()]
		if !ok {
			current = nextDay
			continue
		}

		dayStart := time.Date(year, month, day, window.Start/60, window.Start%60, 0, 0, current.Location())
		dayEnd := time.Date(year, month, day, window.End/60, window.End%60, 0, 0, current.Location())

		periodStart := current
		if dayStart.After(periodStart) {
			periodStart = dayStart
		}
		periodEnd := end
		if dayEnd.Before(periodEnd) {
			periodEnd = dayEnd
		}
		if nextDay.Before(periodEnd) {
			periodEnd = nextDay
		}

		if periodEnd.After(periodStart) {
			totalMinutes += int(periodEnd.Sub(periodStart).Minutes())
		}

		current = nextDay
	}

	return float64(totalMinutes) / 60.0
}
