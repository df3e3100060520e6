package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/yersultanov/HabitStreakBackend/db"
	"github.com/yersultanov/HabitStreakBackend/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB points the global connection at a fresh in-memory database.
// Tests share the global, so they run sequentially.
func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// A single connection serializes the recompute goroutines; sqlite rejects
	// concurrent writers from separate connections.
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(
		&models.User{},
		&models.Habit{},
		&models.Checkin{},
		&models.StreakSnapshot{},
		&models.DailyAnalytics{},
		&models.FreezeToken{},
		&models.UserCounters{},
		&models.EventLog{},
	))

	db.DB = gdb
}

func createTestUser(t *testing.T, timezone string) models.User {
	t.Helper()

	user := models.User{
		Username:     uuid.NewString()[:8],
		PasswordHash: "x",
		Timezone:     timezone,
		WeekStart:    "mon",
		Role:         models.RoleUser,
	}
	require.NoError(t, db.DB.Create(&user).Error)
	return user
}

func createTestHabit(t *testing.T, user models.User, trackType, scheduleType string) models.Habit {
	t.Helper()

	habit := models.Habit{
		UserID:       user.ID,
		Title:        "test habit",
		TrackType:    trackType,
		ScheduleType: scheduleType,
	}
	require.NoError(t, db.DB.Create(&habit).Error)
	return habit
}

func insertCheckin(t *testing.T, user models.User, habit models.Habit, localDay string, quantity *float64) models.Checkin {
	t.Helper()

	occurred, err := time.Parse("2006-01-02", localDay)
	require.NoError(t, err)

	record := models.Checkin{
		HabitID:    habit.ID,
		UserID:     user.ID,
		OccurredAt: occurred.Add(12 * time.Hour),
		LocalDay:   localDay,
		Quantity:   quantity,
		Source:     "manual",
	}
	require.NoError(t, db.DB.Create(&record).Error)
	return record
}

func insertSkip(t *testing.T, user models.User, habit models.Habit, localDay string) models.Checkin {
	t.Helper()

	record := models.Checkin{
		HabitID:    habit.ID,
		UserID:     user.ID,
		OccurredAt: time.Now().UTC(),
		LocalDay:   localDay,
		IsSkip:     true,
		SkipDay:    &localDay,
		Source:     "manual",
	}
	require.NoError(t, db.DB.Create(&record).Error)
	return record
}

func insertFreezeCover(t *testing.T, user models.User, habit models.Habit, localDay string) {
	t.Helper()

	now := time.Now().UTC()
	token := models.FreezeToken{
		UserID:          user.ID,
		Status:          models.FreezeUsed,
		CoveredHabitID:  &habit.ID,
		CoveredLocalDay: &localDay,
		UsedAt:          &now,
	}
	require.NoError(t, db.DB.Create(&token).Error)
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
