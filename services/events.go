package services

import (
	"encoding/json"

	"github.com/yersultanov/HabitStreakBackend/db"
	"github.com/yersultanov/HabitStreakBackend/models"
	"github.com/yersultanov/HabitStreakBackend/utils"
	"go.uber.org/zap"
)

// logger falls back to a no-op logger so engine functions stay usable from
// tests that never call utils.InitLogger.
func logger() *zap.Logger {
	if utils.Logger != nil {
		return utils.Logger
	}
	return zap.NewNop()
}

// LogEvent appends one row to the audit trail. Best effort: a failed audit
// write is logged but never fails the mutation it describes.
func LogEvent(userID uint, eventType string, payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger().Warn("event_payload_marshal_failed", zap.Error(err))
		return
	}

	event := models.EventLog{
		UserID:    userID,
		EventType: eventType,
		Payload:   string(data),
	}
	if err := db.DB.Create(&event).Error; err != nil {
		logger().Warn("event_log_failed",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
