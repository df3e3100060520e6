package handlers

import (
	"errors"
	"net/http"

	"github.com/yersultanov/HabitStreakBackend/db"
	"github.com/yersultanov/HabitStreakBackend/middleware"
	"github.com/yersultanov/HabitStreakBackend/models"
	"github.com/yersultanov/HabitStreakBackend/services"
	"github.com/yersultanov/HabitStreakBackend/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GrantFreezes runs the lazy weekly grant and returns the user's counters.
// Safe to call on every app open; within the same week it is a no-op.
func GrantFreezes(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	counters, err := services.GrantFreezeTokensIfEligible(user)
	if err != nil {
		utils.Logger.Error("freeze_grant_failed", zap.Uint("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to grant freeze tokens"})
		return
	}

	c.JSON(http.StatusOK, counters)
}

// ActivateFreeze consumes a token to cover a missed day, then recomputes the
// covered habit's streak so the coverage is visible immediately.
func ActivateFreeze(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var input struct {
		HabitID         *string `json:"habit_id"`
		CoveredLocalDay string  `json:"covered_local_day" binding:"required,localday"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "covered_local_day must be YYYY-MM-DD"})
		return
	}

	token, err := services.ActivateFreezeToken(user, input.HabitID, input.CoveredLocalDay)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoFreezeTokens):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrFreezeWindowExpired):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrHabitNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			utils.Logger.Error("freeze_activate_failed", zap.Uint("user_id", user.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to activate freeze token"})
		}
		return
	}

	// Activation itself does not recompute; do it here so the newly covered
	// day shows up in the streak the caller reads back.
	if input.HabitID != nil {
		var habit models.Habit
		if err := db.DB.Where("id = ? AND user_id = ?", *input.HabitID, user.ID).First(&habit).Error; err == nil {
			if err := services.RecomputeStreaksAndAnalytics(user, habit, input.CoveredLocalDay); err != nil {
				utils.Logger.Error("freeze_recompute_failed", zap.String("habit_id", habit.ID), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to recompute streak"})
				return
			}
		}
	}

	c.JSON(http.StatusOK, token)
}

// GetUserCounters returns freeze token availability for the acting user.
func GetUserCounters(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	counters, err := services.EnsureUserCounters(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load counters"})
		return
	}

	c.JSON(http.StatusOK, counters)
}
