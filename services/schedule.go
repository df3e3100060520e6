package services

import (
	"time"

	"github.com/yersultanov/HabitStreakBackend/dates"
	"github.com/yersultanov/HabitStreakBackend/models"
)

// StreakLookbackDays is the window streak recomputation scans over.
const StreakLookbackDays = 120

// TargetFor resolves the per-day completion target: 1 for binary habits,
// otherwise the configured count target, defaulting to 1.
func TargetFor(habit models.Habit) int {
	if habit.TrackType == models.TrackBinary {
		return 1
	}
	if habit.CountTarget != nil && *habit.CountTarget > 0 {
		return *habit.CountTarget
	}
	return 1
}

// ComputeCompletions aggregates one local day's non-skip records into a
// completion quantity. Binary habits complete once any record exists; sum
// track types add up quantities with a missing quantity counting as zero.
// Unknown track types fall back to the target so they read as complete.
func ComputeCompletions(trackType string, dayCheckins []models.Checkin, countTarget *int) float64 {
	switch trackType {
	case models.TrackBinary:
		for _, rec := range dayCheckins {
			if !rec.IsSkip {
				return 1
			}
		}
		return 0
	case models.TrackCount, models.TrackDuration, models.TrackTimer:
		total := 0.0
		for _, rec := range dayCheckins {
			if rec.IsSkip {
				continue
			}
			if rec.Quantity != nil {
				total += *rec.Quantity
			}
		}
		return total
	default:
		if countTarget != nil {
			return float64(*countTarget)
		}
		return 1
	}
}

// BuildExpectedDays produces the ascending sequence of local days on which
// the habit is due within [windowStart, windowEnd]. Monthly schedules expect
// every day (period totals are evaluated elsewhere); other schedules expect a
// day when allowedDays is empty or contains the day's weekday in the habit's
// timezone. Days outside the sequence are invisible to the streak.
func BuildExpectedDays(scheduleType string, allowedDays models.Weekdays, timezone string, offsetMinutes int, windowStart, windowEnd string) ([]string, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, err
	}

	start, err := dates.ParseLocalDay(windowStart)
	if err != nil {
		return nil, err
	}
	end, err := dates.ParseLocalDay(windowEnd)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(allowedDays))
	for _, code := range allowedDays {
		allowed[code] = true
	}

	var days []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		local, err := dates.ToLocalDay(d, timezone, offsetMinutes)
		if err != nil {
			return nil, err
		}
		if len(days) > 0 && days[len(days)-1] == local {
			continue
		}

		if scheduleType == models.ScheduleMonthly || len(allowed) == 0 {
			days = append(days, local)
			continue
		}

		if allowed[dates.WeekdayCode(d, loc)] {
			days = append(days, local)
		}
	}

	return days, nil
}
