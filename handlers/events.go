package handlers

import (
	"net/http"

	"github.com/yersultanov/HabitStreakBackend/db"
	"github.com/yersultanov/HabitStreakBackend/middleware"
	"github.com/yersultanov/HabitStreakBackend/models"
	"github.com/gin-gonic/gin"
)

// ListEvents returns the audit trail of mutating engine calls. Regular users
// see their own events; admins can filter by user_id.
func ListEvents(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	query := db.DB.Order("occurred_at DESC").Limit(200)
	if user.Role != models.RoleAdmin {
		query = query.Where("user_id = ?", user.ID)
	} else if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	if eventType := c.Query("type"); eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}

	var events []models.EventLog
	if err := query.Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load events"})
		return
	}

	c.JSON(http.StatusOK, events)
}
