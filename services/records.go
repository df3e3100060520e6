package services

import (
	"errors"
	"time"

	"github.com/yersultanov/HabitStreakBackend/dates"
	"github.com/yersultanov/HabitStreakBackend/db"
	"github.com/yersultanov/HabitStreakBackend/models"
	"github.com/yersultanov/HabitStreakBackend/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateCheckin records a completion for the habit. For binary habits a
// second check-in on the same local day returns the existing record
// unchanged instead of erroring, which absorbs double submissions; the
// binary_day mirror index enforces at-most-one such row per (habit, day),
// so a writer losing a concurrent race re-fetches the winner instead of
// inserting a second record. The derived streak and analytics rows are
// recomputed before returning so the caller observes consistent state.
func CreateCheckin(user models.User, habit models.Habit, occurredAt time.Time, quantity *float64, note, source string) (models.Checkin, error) {
	localDay, err := dates.ToLocalDay(occurredAt, user.Timezone, habit.DayBoundaryOffsetMinutes)
	if err != nil {
		return models.Checkin{}, err
	}

	if source == "" {
		source = "manual"
	}

	if habit.TrackType == models.TrackBinary {
		var existing models.Checkin
		err := db.DB.Where(
			"habit_id = ? AND user_id = ? AND local_day = ? AND is_skip = ?",
			habit.ID, user.ID, localDay, false,
		).First(&existing).Error
		if err == nil {
			utils.CheckinCount.WithLabelValues("duplicate").Inc()
			return existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Checkin{}, err
		}
	}

	record := models.Checkin{
		HabitID:    habit.ID,
		UserID:     user.ID,
		OccurredAt: occurredAt,
		LocalDay:   localDay,
		Quantity:   quantity,
		Note:       note,
		Source:     source,
		IsSkip:     false,
	}
	if habit.TrackType == models.TrackBinary {
		record.BinaryDay = &localDay
	}

	if err := db.DB.Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race: first writer wins, return its row.
			var winner models.Checkin
			if ferr := db.DB.Where(
				"habit_id = ? AND user_id = ? AND local_day = ? AND is_skip = ?",
				habit.ID, user.ID, localDay, false,
			).First(&winner).Error; ferr == nil {
				utils.CheckinCount.WithLabelValues("duplicate").Inc()
				return winner, nil
			}
		}
		return models.Checkin{}, err
	}

	utils.CheckinCount.WithLabelValues("checkin").Inc()
	LogEvent(user.ID, "checkin_created", map[string]interface{}{
		"habit_id":  habit.ID,
		"local_day": localDay,
	})

	logger().Info("checkin_created",
		zap.String("habit_id", habit.ID),
		zap.Uint("user_id", user.ID),
		zap.String("local_day", localDay),
	)

	if err := RecomputeStreaksAndAnalytics(user, habit, localDay); err != nil {
		return record, err
	}

	return record, nil
}

// CreateSkip marks a local day as intentionally skipped. At most one skip
// exists per (habit, day): a pre-check returns the existing row, and a
// concurrent insert losing the unique-index race re-fetches the winner
// instead of failing.
func CreateSkip(user models.User, habit models.Habit, localDay, note string) (models.Checkin, error) {
	var existing models.Checkin
	err := db.DB.Where(
		"habit_id = ? AND user_id = ? AND local_day = ? AND is_skip = ?",
		habit.ID, user.ID, localDay, true,
	).First(&existing).Error
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Checkin{}, err
	}

	record := models.Checkin{
		HabitID:    habit.ID,
		UserID:     user.ID,
		OccurredAt: time.Now().UTC(),
		LocalDay:   localDay,
		Note:       note,
		Source:     "manual",
		IsSkip:     true,
		SkipDay:    &localDay,
	}

	if err := db.DB.Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race: first writer wins, return its row.
			var winner models.Checkin
			if ferr := db.DB.Where(
				"habit_id = ? AND user_id = ? AND local_day = ? AND is_skip = ?",
				habit.ID, user.ID, localDay, true,
			).First(&winner).Error; ferr == nil {
				return winner, nil
			}
		}
		return models.Checkin{}, err
	}

	utils.CheckinCount.WithLabelValues("skip").Inc()
	LogEvent(user.ID, "skip_created", map[string]interface{}{
		"habit_id":  habit.ID,
		"local_day": localDay,
	})

	logger().Info("skip_created",
		zap.String("habit_id", habit.ID),
		zap.Uint("user_id", user.ID),
		zap.String("local_day", localDay),
	)

	if err := RecomputeStreaksAndAnalytics(user, habit, localDay); err != nil {
		return record, err
	}

	return record, nil
}

// ListCheckins returns the habit's records, newest first, optionally limited
// to a local-day range.
func ListCheckins(habitID string, userID uint, start, end string) ([]models.Checkin, error) {
	query := db.DB.Where("habit_id = ? AND user_id = ?", habitID, userID)
	if start != "" {
		query = query.Where("local_day >= ?", start)
	}
	if end != "" {
		query = query.Where("local_day <= ?", end)
	}

	var records []models.Checkin
	if err := query.Order("local_day DESC, occurred_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
