package services

import (
	"github.com/yersultanov/HabitStreakBackend/dates"
	"github.com/yersultanov/HabitStreakBackend/db"
	"github.com/yersultanov/HabitStreakBackend/models"
	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

type dayOutcome struct {
	checkins []models.Checkin
	hasSkip  bool
}

// RecomputeStreaks rebuilds the habit's streak snapshot from the last 120
// days of records and freeze coverage, ending at referenceDay. The snapshot
// is replaced in place; history is never appended.
func RecomputeStreaks(user models.User, habit models.Habit, referenceDay string) error {
	lookbackStart, err := dates.AddDays(referenceDay, -StreakLookbackDays)
	if err != nil {
		return err
	}

	var records []models.Checkin
	if err := db.DB.Where(
		"habit_id = ? AND user_id = ? AND local_day >= ? AND local_day <= ?",
		habit.ID, user.ID, lookbackStart, referenceDay,
	).Order("local_day ASC").Find(&records).Error; err != nil {
		return err
	}

	outcomes := make(map[string]*dayOutcome)
	for _, rec := range records {
		entry, ok := outcomes[rec.LocalDay]
		if !ok {
			entry = &dayOutcome{}
			outcomes[rec.LocalDay] = entry
		}
		if rec.IsSkip {
			entry.hasSkip = true
		} else {
			entry.checkins = append(entry.checkins, rec)
		}
	}

	// Only tokens explicitly covering this habit count toward its streak.
	var freezeRows []models.FreezeToken
	if err := db.DB.Where(
		"user_id = ? AND status = ? AND covered_habit_id = ? AND covered_local_day >= ? AND covered_local_day <= ?",
		user.ID, models.FreezeUsed, habit.ID, lookbackStart, referenceDay,
	).Find(&freezeRows).Error; err != nil {
		return err
	}
	frozen := make(map[string]bool, len(freezeRows))
	for _, token := range freezeRows {
		if token.CoveredLocalDay != nil {
			frozen[*token.CoveredLocalDay] = true
		}
	}

	timezone := user.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	expected, err := BuildExpectedDays(
		habit.ScheduleType,
		habit.AllowedDays,
		timezone,
		habit.DayBoundaryOffsetMinutes,
		lookbackStart,
		referenceDay,
	)
	if err != nil {
		return err
	}

	target := float64(TargetFor(habit))
	met := func(day string) bool {
		// Precedence: explicit skip, then enough completions, then freeze cover.
		if entry, ok := outcomes[day]; ok {
			if entry.hasSkip {
				return true
			}
			if ComputeCompletions(habit.TrackType, entry.checkins, habit.CountTarget) >= target {
				return true
			}
		}
		return frozen[day]
	}

	longestStreak := 0
	chain := 0
	for _, day := range expected {
		if met(day) {
			chain++
			if chain > longestStreak {
				longestStreak = chain
			}
		} else {
			chain = 0
		}
	}

	currentStreak := 0
	for i := len(expected) - 1; i >= 0; i-- {
		if !met(expected[i]) {
			break
		}
		currentStreak++
	}

	var lastSuccess *string
	if currentStreak > 0 && len(expected) > 0 {
		day := expected[len(expected)-1]
		lastSuccess = &day
	}

	snapshot := models.StreakSnapshot{
		HabitID:             habit.ID,
		UserID:              user.ID,
		CurrentStreak:       currentStreak,
		LongestStreak:       longestStreak,
		LastSuccessLocalDay: lastSuccess,
	}

	if err := db.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "habit_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "current_streak", "longest_streak", "last_success_local_day", "updated_at",
		}),
	}).Create(&snapshot).Error; err != nil {
		return err
	}

	logger().Info("streak_recomputed",
		zap.String("habit_id", habit.ID),
		zap.Int("current_streak", currentStreak),
		zap.Int("longest_streak", longestStreak),
	)

	return nil
}

// GetStreakSnapshot reads the habit's derived streak row.
func GetStreakSnapshot(habitID string) (models.StreakSnapshot, error) {
	var snapshot models.StreakSnapshot
	err := db.DB.Where("habit_id = ?", habitID).First(&snapshot).Error
	return snapshot, err
}
