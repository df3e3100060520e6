package services

import (
	"errors"
	"math"

	"github.com/yersultanov/HabitStreakBackend/dates"
	"github.com/yersultanov/HabitStreakBackend/db"
	"github.com/yersultanov/HabitStreakBackend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EwmaAlpha weighs today's completion rate against yesterday's stored
// strength score.
const EwmaAlpha = 0.2

// UpsertDailyAnalytics recomputes one day's completion rate and strength
// score. The score is a forward-chaining recurrence over the previous day's
// stored value, so backfilled records do not ripple into later days unless
// those days are re-triggered.
func UpsertDailyAnalytics(user models.User, habit models.Habit, localDay string) error {
	var dayCheckins []models.Checkin
	if err := db.DB.Where(
		"habit_id = ? AND user_id = ? AND local_day = ? AND is_skip = ?",
		habit.ID, user.ID, localDay, false,
	).Find(&dayCheckins).Error; err != nil {
		return err
	}

	completions := ComputeCompletions(habit.TrackType, dayCheckins, habit.CountTarget)
	target := TargetFor(habit)

	completionRate := 0.0
	if target > 0 {
		completionRate = math.Min(1, completions/float64(target))
	}

	prevDay, err := dates.AddDays(localDay, -1)
	if err != nil {
		return err
	}

	prevStrength := 0.0
	var previous models.DailyAnalytics
	err = db.DB.Where("habit_id = ? AND date = ?", habit.ID, prevDay).First(&previous).Error
	if err == nil {
		prevStrength = previous.StrengthScore
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	strengthScore := round2(EwmaAlpha*(completionRate*100) + (1-EwmaAlpha)*prevStrength)

	row := models.DailyAnalytics{
		HabitID:        habit.ID,
		Date:           localDay,
		UserID:         user.ID,
		Completions:    int(math.Round(completions)),
		Target:         target,
		CompletionRate: completionRate,
		StrengthScore:  strengthScore,
	}

	return db.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "habit_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "completions", "target", "completion_rate", "strength_score", "updated_at",
		}),
	}).Create(&row).Error
}

// GetAnalyticsRange returns the habit's daily analytics rows between two
// local days, ascending.
func GetAnalyticsRange(habitID string, userID uint, start, end string) ([]models.DailyAnalytics, error) {
	var rows []models.DailyAnalytics
	err := db.DB.Where(
		"habit_id = ? AND user_id = ? AND date >= ? AND date <= ?",
		habitID, userID, start, end,
	).Order("date ASC").Find(&rows).Error
	return rows, err
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
