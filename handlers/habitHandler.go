package handlers

import (
	"net/http"
	"time"

	"github.com/yersultanov/HabitStreakBackend/cache"
	"github.com/yersultanov/HabitStreakBackend/db"
	"github.com/yersultanov/HabitStreakBackend/middleware"
	"github.com/yersultanov/HabitStreakBackend/models"
	"github.com/yersultanov/HabitStreakBackend/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var validWeekdays = map[string]bool{
	"mon": true, "tue": true, "wed": true, "thu": true,
	"fri": true, "sat": true, "sun": true,
}

type habitInput struct {
	Title                    string   `json:"title" binding:"required,max=120"`
	Description              string   `json:"description" binding:"max=1024"`
	TrackType                string   `json:"track_type" binding:"required,oneof=binary count duration timer"`
	ScheduleType             string   `json:"schedule_type" binding:"required,oneof=daily weekly monthly custom"`
	CountTarget              *int     `json:"count_target"`
	PerPeriod                *string  `json:"per_period"`
	AllowedDays              []string `json:"allowed_days"`
	DayBoundaryOffsetMinutes int      `json:"day_boundary_offset_minutes"`
	FreezeEnabled            *bool    `json:"freeze_enabled"`
}

func validateHabitInput(input habitInput) string {
	if input.ScheduleType == models.ScheduleWeekly || input.ScheduleType == models.ScheduleMonthly {
		if input.CountTarget == nil || *input.CountTarget <= 0 {
			return "count_target must be provided for weekly and monthly schedules"
		}
	}
	if input.CountTarget != nil && *input.CountTarget <= 0 {
		return "count_target must be positive"
	}
	if input.DayBoundaryOffsetMinutes < -720 || input.DayBoundaryOffsetMinutes > 720 {
		return "day_boundary_offset_minutes must be between -720 and 720"
	}
	seen := map[string]bool{}
	for _, day := range input.AllowedDays {
		if !validWeekdays[day] {
			return "allowed_days contains an invalid weekday code"
		}
		if seen[day] {
			return "allowed_days cannot contain duplicates"
		}
		seen[day] = true
	}
	return ""
}

// getOwnedHabit loads the habit by path param and confirms the acting user
// owns it.
func getOwnedHabit(c *gin.Context) (models.Habit, models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return models.Habit{}, models.User{}, false
	}

	var habit models.Habit
	if err := db.DB.Where("id = ? AND user_id = ?", c.Param("id"), user.ID).First(&habit).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})
		return models.Habit{}, models.User{}, false
	}
	return habit, user, true
}

func CreateHabit(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var input habitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if msg := validateHabitInput(input); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	freezeEnabled := true
	if input.FreezeEnabled != nil {
		freezeEnabled = *input.FreezeEnabled
	}

	habit := models.Habit{
		UserID:                   user.ID,
		Title:                    input.Title,
		Description:              input.Description,
		TrackType:                input.TrackType,
		ScheduleType:             input.ScheduleType,
		CountTarget:              input.CountTarget,
		PerPeriod:                input.PerPeriod,
		AllowedDays:              models.Weekdays(input.AllowedDays),
		DayBoundaryOffsetMinutes: input.DayBoundaryOffsetMinutes,
		FreezeEnabled:            freezeEnabled,
	}

	if err := db.DB.Create(&habit).Error; err != nil {
		utils.Logger.Error("habit_create_failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create habit"})
		return
	}

	// Every habit starts with an empty streak snapshot so reads never miss.
	snapshot := models.StreakSnapshot{HabitID: habit.ID, UserID: user.ID}
	if err := db.DB.Create(&snapshot).Error; err != nil {
		utils.Logger.Error("streak_snapshot_create_failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create habit"})
		return
	}

	middleware.InvalidateHabitCache(user.ID, habit.ID)
	utils.Logger.Info("habit_created", zap.String("habit_id", habit.ID), zap.Uint("user_id", user.ID))
	c.JSON(http.StatusCreated, habit)
}

func GetHabits(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	// Plain listings are cached per user; habit mutations and recomputations
	// drop the key.
	useCache := cache.Client != nil && user.Role != models.RoleAdmin
	cacheKey := cache.KeyUserHabits(user.ID)
	if useCache {
		var cached []models.Habit
		if err := cache.Get(cacheKey, &cached); err == nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	query := db.DB.Preload("Streak")
	if user.Role != models.RoleAdmin {
		query = query.Where("user_id = ?", user.ID)
	} else if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	} else {
		query = query.Where("user_id = ?", user.ID)
	}

	var habits []models.Habit
	if err := query.Find(&habits).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load habits"})
		return
	}

	if useCache {
		if err := cache.Set(cacheKey, habits, 5*time.Minute); err != nil {
			utils.Logger.Warn("habits_cache_set_failed", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, habits)
}

func GetHabit(c *gin.Context) {
	habit, user, ok := getOwnedHabit(c)
	if !ok {
		return
	}

	if err := db.DB.Preload("Streak").Where("id = ? AND user_id = ?", habit.ID, user.ID).First(&habit).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "habit not found"})
		return
	}

	c.JSON(http.StatusOK, habit)
}

func UpdateHabit(c *gin.Context) {
	habit, user, ok := getOwnedHabit(c)
	if !ok {
		return
	}

	var input struct {
		Title                    *string  `json:"title"`
		Description              *string  `json:"description"`
		CountTarget              *int     `json:"count_target"`
		AllowedDays              []string `json:"allowed_days"`
		DayBoundaryOffsetMinutes *int     `json:"day_boundary_offset_minutes"`
		FreezeEnabled            *bool    `json:"freeze_enabled"`
		IsArchived               *bool    `json:"is_archived"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if input.DayBoundaryOffsetMinutes != nil {
		v := *input.DayBoundaryOffsetMinutes
		if v < -720 || v > 720 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "day_boundary_offset_minutes must be between -720 and 720"})
			return
		}
		habit.DayBoundaryOffsetMinutes = v
	}
	if input.AllowedDays != nil {
		seen := map[string]bool{}
		for _, day := range input.AllowedDays {
			if !validWeekdays[day] || seen[day] {
				c.JSON(http.StatusBadRequest, gin.H{"error": "allowed_days is invalid"})
				return
			}
			seen[day] = true
		}
		habit.AllowedDays = models.Weekdays(input.AllowedDays)
	}
	if input.Title != nil {
		habit.Title = *input.Title
	}
	if input.Description != nil {
		habit.Description = *input.Description
	}
	if input.CountTarget != nil {
		if *input.CountTarget <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count_target must be positive"})
			return
		}
		habit.CountTarget = input.CountTarget
	}
	if input.FreezeEnabled != nil {
		habit.FreezeEnabled = *input.FreezeEnabled
	}
	if input.IsArchived != nil {
		habit.IsArchived = *input.IsArchived
	}

	if err := db.DB.Save(&habit).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update habit"})
		return
	}

	// Schedule changes take effect from the next recomputation forward;
	// past snapshots stay as they were until a mutating event re-triggers.
	middleware.InvalidateHabitCache(user.ID, habit.ID)
	c.JSON(http.StatusOK, habit)
}

func DeleteHabit(c *gin.Context) {
	habit, user, ok := getOwnedHabit(c)
	if !ok {
		return
	}

	// Deleting a habit cascades its records and derived rows.
	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("habit_id = ?", habit.ID).Delete(&models.Checkin{}).Error; err != nil {
			return err
		}
		if err := tx.Where("habit_id = ?", habit.ID).Delete(&models.DailyAnalytics{}).Error; err != nil {
			return err
		}
		if err := tx.Where("habit_id = ?", habit.ID).Delete(&models.StreakSnapshot{}).Error; err != nil {
			return err
		}
		return tx.Delete(&habit).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete habit"})
		return
	}

	middleware.InvalidateHabitCache(user.ID, habit.ID)
	utils.Logger.Info("habit_deleted", zap.String("habit_id", habit.ID), zap.Uint("user_id", user.ID))
	c.JSON(http.StatusOK, gin.H{"message": "habit deleted"})
}
