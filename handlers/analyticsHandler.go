package handlers

import (
	"net/http"
	"time"

	"github.com/yersultanov/HabitStreakBackend/dates"
	"github.com/yersultanov/HabitStreakBackend/middleware"
	"github.com/yersultanov/HabitStreakBackend/services"
	"github.com/yersultanov/HabitStreakBackend/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetDailyAnalytics returns the habit's per-day analytics rows for a range.
func GetDailyAnalytics(c *gin.Context) {
	habit, user, ok := getOwnedHabit(c)
	if !ok {
		return
	}

	start := c.Query("start")
	end := c.Query("end")
	if !localDayRe.MatchString(start) || !localDayRe.MatchString(end) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end must be YYYY-MM-DD"})
		return
	}

	rows, err := services.GetAnalyticsRange(habit.ID, user.ID, start, end)
	if err != nil {
		utils.Logger.Error("analytics_range_failed", zap.String("habit_id", habit.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load analytics"})
		return
	}

	c.JSON(http.StatusOK, rows)
}

// GetUserStats returns the concurrent per-habit summary for the acting user.
func GetUserStats(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	today, err := dates.ToLocalDay(time.Now().UTC(), user.Timezone, 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user timezone"})
		return
	}

	stats, err := services.CalculateUserHabitStats(user, today, utils.Logger)
	if err != nil {
		utils.Logger.Error("user_stats_failed", zap.Uint("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to calculate stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
