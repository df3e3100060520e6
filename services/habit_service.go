package services

import (
	"errors"
	"sync"
	"time"

	"github.com/yersultanov/HabitStreakBackend/cache"
	"github.com/yersultanov/HabitStreakBackend/dates"
	"github.com/yersultanov/HabitStreakBackend/db"
	"github.com/yersultanov/HabitStreakBackend/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type HabitStats struct {
	HabitID           string  `json:"habit_id"`
	Title             string  `json:"title"`
	CurrentStreak     int     `json:"current_streak"`
	LongestStreak     int     `json:"longest_streak"`
	StrengthScore     float64 `json:"strength_score"`
	PeriodCompletions int     `json:"period_completions"`
	PeriodTarget      int     `json:"period_target"`
	Error             error   `json:"-"`
}

type UserHabitStats struct {
	UserID          uint          `json:"user_id"`
	TotalHabits     int           `json:"total_habits"`
	ActiveHabits    int           `json:"active_habits"`
	AverageStrength float64       `json:"average_strength"`
	HabitStats      []HabitStats  `json:"habit_stats"`
	ProcessingTime  time.Duration `json:"processing_time_ms"`
}

// CalculateUserHabitStats fans out one goroutine per habit. Each habit's
// summary is independent (separate snapshot and analytics rows), so the DB
// reads overlap instead of running back to back.
func CalculateUserHabitStats(user models.User, localDay string, log *zap.Logger) (*UserHabitStats, error) {
	startTime := time.Now()

	cacheKey := cache.KeyUserStats(user.ID)
	if cache.Client != nil {
		var cached UserHabitStats
		if err := cache.Get(cacheKey, &cached); err == nil {
			log.Info("stats_cache_hit", zap.Uint("user_id", user.ID))
			return &cached, nil
		}
	}

	var habits []models.Habit
	if err := db.DB.Where("user_id = ?", user.ID).Find(&habits).Error; err != nil {
		return nil, err
	}

	if len(habits) == 0 {
		return &UserHabitStats{UserID: user.ID}, nil
	}

	statsChan := make(chan HabitStats, len(habits))
	var wg sync.WaitGroup

	for _, habit := range habits {
		wg.Add(1)
		go func(h models.Habit) {
			defer wg.Done()
			statsChan <- calculateSingleHabitStats(h, user, localDay)
		}(habit)
	}

	go func() {
		wg.Wait()
		close(statsChan)
	}()

	var habitStats []HabitStats
	var totalStrength float64

	for stat := range statsChan {
		if stat.Error != nil {
			log.Warn("habit_stats_error",
				zap.String("habit_id", stat.HabitID),
				zap.Error(stat.Error),
			)
			continue
		}
		habitStats = append(habitStats, stat)
		totalStrength += stat.StrengthScore
	}

	activeCount := 0
	for _, h := range habits {
		if !h.IsArchived {
			activeCount++
		}
	}

	averageStrength := 0.0
	if len(habitStats) > 0 {
		averageStrength = round2(totalStrength / float64(len(habitStats)))
	}

	result := &UserHabitStats{
		UserID:          user.ID,
		TotalHabits:     len(habits),
		ActiveHabits:    activeCount,
		AverageStrength: averageStrength,
		HabitStats:      habitStats,
		ProcessingTime:  time.Since(startTime),
	}

	if cache.Client != nil {
		cache.Set(cacheKey, result, 5*time.Minute)
	}

	log.Info("stats_calculated",
		zap.Uint("user_id", user.ID),
		zap.Int("habits_count", len(habits)),
		zap.Duration("duration", result.ProcessingTime),
	)

	return result, nil
}

func calculateSingleHabitStats(habit models.Habit, user models.User, localDay string) HabitStats {
	stats := HabitStats{HabitID: habit.ID, Title: habit.Title}

	var snapshot models.StreakSnapshot
	err := db.DB.Where("habit_id = ?", habit.ID).First(&snapshot).Error
	if err == nil {
		stats.CurrentStreak = snapshot.CurrentStreak
		stats.LongestStreak = snapshot.LongestStreak
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		stats.Error = err
		return stats
	}

	var latest models.DailyAnalytics
	err = db.DB.Where("habit_id = ? AND date <= ?", habit.ID, localDay).
		Order("date DESC").First(&latest).Error
	if err == nil {
		stats.StrengthScore = latest.StrengthScore
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		stats.Error = err
		return stats
	}

	// Period progress: completions accumulated over the current week/month
	// against the configured target.
	periodStart, periodEnd, err := dates.PeriodBounds(habit.ScheduleType, localDay, user.WeekStart)
	if err != nil {
		stats.Error = err
		return stats
	}

	var rows []models.DailyAnalytics
	if err := db.DB.Where(
		"habit_id = ? AND date >= ? AND date <= ?",
		habit.ID, periodStart, periodEnd,
	).Find(&rows).Error; err != nil {
		stats.Error = err
		return stats
	}
	for _, row := range rows {
		stats.PeriodCompletions += row.Completions
	}
	stats.PeriodTarget = TargetFor(habit)

	return stats
}
