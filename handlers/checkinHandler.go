package handlers

import (
	"net/http"
	"regexp"
	"time"

	"github.com/yersultanov/HabitStreakBackend/services"
	"github.com/yersultanov/HabitStreakBackend/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var localDayRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// CreateCheckin validates the payload and hands off to the record ledger.
// Duplicate binary submissions come back 200 with the original record.
func CreateCheckin(c *gin.Context) {
	habit, user, ok := getOwnedHabit(c)
	if !ok {
		return
	}

	var input struct {
		OccurredAt *time.Time `json:"occurred_at"`
		Quantity   *float64   `json:"quantity"`
		Note       string     `json:"note" binding:"max=512"`
		Source     string     `json:"source" binding:"omitempty,oneof=manual timer"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if input.Quantity != nil && *input.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be non-negative"})
		return
	}

	occurredAt := time.Now().UTC()
	if input.OccurredAt != nil {
		occurredAt = input.OccurredAt.UTC()
	}

	record, err := services.CreateCheckin(user, habit, occurredAt, input.Quantity, input.Note, input.Source)
	if err != nil {
		utils.Logger.Error("checkin_failed", zap.String("habit_id", habit.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record check-in"})
		return
	}

	c.JSON(http.StatusCreated, record)
}

// CreateSkip marks a day as skipped. Concurrent submissions converge on one
// stored row.
func CreateSkip(c *gin.Context) {
	habit, user, ok := getOwnedHabit(c)
	if !ok {
		return
	}

	var input struct {
		LocalDay string `json:"local_day" binding:"required,localday"`
		Note     string `json:"note" binding:"max=512"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "local_day must be YYYY-MM-DD"})
		return
	}

	record, err := services.CreateSkip(user, habit, input.LocalDay, input.Note)
	if err != nil {
		utils.Logger.Error("skip_failed", zap.String("habit_id", habit.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record skip"})
		return
	}

	c.JSON(http.StatusCreated, record)
}

func ListCheckins(c *gin.Context) {
	habit, user, ok := getOwnedHabit(c)
	if !ok {
		return
	}

	start := c.Query("start")
	end := c.Query("end")
	if (start != "" && !localDayRe.MatchString(start)) || (end != "" && !localDayRe.MatchString(end)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end must be YYYY-MM-DD"})
		return
	}

	records, err := services.ListCheckins(habit.ID, user.ID, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load check-ins"})
		return
	}

	c.JSON(http.StatusOK, records)
}
