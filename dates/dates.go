// Package dates resolves instants into the "local day" they belong to once a
// habit's day-boundary offset and the user's timezone are applied.
package dates

import (
	"fmt"
	"time"
)

// DayFormat is the canonical local-day layout (YYYY-MM-DD).
const DayFormat = "2006-01-02"

// ToLocalDay shifts the instant by offsetMinutes, converts it to wall-clock
// time in the given IANA timezone and returns the calendar date. A negative
// offset folds late-night activity into the previous day ("my day ends at 3am").
func ToLocalDay(instant time.Time, timezone string, offsetMinutes int) (string, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return "", fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	shifted := instant.Add(time.Duration(offsetMinutes) * time.Minute)
	return shifted.In(loc).Format(DayFormat), nil
}

// ParseLocalDay parses a YYYY-MM-DD string as UTC midnight.
func ParseLocalDay(localDay string) (time.Time, error) {
	t, err := time.ParseInLocation(DayFormat, localDay, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid local day %q: %w", localDay, err)
	}
	return t, nil
}

// AddDays returns the local day n calendar days after (or before, for
// negative n) the given one.
func AddDays(localDay string, n int) (string, error) {
	t, err := ParseLocalDay(localDay)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DayFormat), nil
}

// WeekdayCode returns the three-letter lowercase weekday (mon..sun) of the
// instant in the given location.
func WeekdayCode(t time.Time, loc *time.Location) string {
	switch t.In(loc).Weekday() {
	case time.Monday:
		return "mon"
	case time.Tuesday:
		return "tue"
	case time.Wednesday:
		return "wed"
	case time.Thursday:
		return "thu"
	case time.Friday:
		return "fri"
	case time.Saturday:
		return "sat"
	default:
		return "sun"
	}
}

// PeriodBounds returns the first and last local day of the period the given
// day falls into. Daily (and custom) schedules collapse to the day itself.
func PeriodBounds(schedule, localDay, weekStart string) (string, string, error) {
	day, err := ParseLocalDay(localDay)
	if err != nil {
		return "", "", err
	}

	switch schedule {
	case "weekly":
		offset := int(day.Weekday()-time.Monday+7) % 7
		if weekStart == "sun" {
			offset = int(day.Weekday()-time.Sunday+7) % 7
		}
		start := day.AddDate(0, 0, -offset)
		end := start.AddDate(0, 0, 6)
		return start.Format(DayFormat), end.Format(DayFormat), nil
	case "monthly":
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, -1)
		return start.Format(DayFormat), end.Format(DayFormat), nil
	default:
		return localDay, localDay, nil
	}
}
