package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yersultanov/HabitStreakBackend/dates"
	"github.com/yersultanov/HabitStreakBackend/db"
	"github.com/yersultanov/HabitStreakBackend/models"
)

func getAnalytics(t *testing.T, habitID, day string) models.DailyAnalytics {
	t.Helper()
	var row models.DailyAnalytics
	require.NoError(t, db.DB.Where("habit_id = ? AND date = ?", habitID, day).First(&row).Error)
	return row
}

func TestUpsertDailyAnalyticsFirstDay(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "UTC")
	habit := createTestHabit(t, user, models.TrackBinary, models.ScheduleDaily)

	insertCheckin(t, user, habit, "2026-01-05", nil)
	require.NoError(t, UpsertDailyAnalytics(user, habit, "2026-01-05"))

	row := getAnalytics(t, habit.ID, "2026-01-05")
	assert.Equal(t, 1, row.Completions)
	assert.Equal(t, 1, row.Target)
	assert.Equal(t, 1.0, row.CompletionRate)
	// 0.2*100 + 0.8*0
	assert.Equal(t, 20.0, row.StrengthScore)
}

func TestUpsertDailyAnalyticsChainsOnPreviousDay(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "UTC")
	habit := createTestHabit(t, user, models.TrackBinary, models.ScheduleDaily)

	insertCheckin(t, user, habit, "2026-01-05", nil)
	insertCheckin(t, user, habit, "2026-01-06", nil)
	insertCheckin(t, user, habit, "2026-01-07", nil)

	require.NoError(t, UpsertDailyAnalytics(user, habit, "2026-01-05"))
	require.NoError(t, UpsertDailyAnalytics(user, habit, "2026-01-06"))
	require.NoError(t, UpsertDailyAnalytics(user, habit, "2026-01-07"))

	assert.Equal(t, 20.0, getAnalytics(t, habit.ID, "2026-01-05").StrengthScore)
	assert.Equal(t, 36.0, getAnalytics(t, habit.ID, "2026-01-06").StrengthScore)
	assert.Equal(t, 48.8, getAnalytics(t, habit.ID, "2026-01-07").StrengthScore)
}

func TestUpsertDailyAnalyticsPartialCompletion(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "UTC")
	habit := createTestHabit(t, user, models.TrackCount, models.ScheduleDaily)
	habit.CountTarget = intPtr(4)
	require.NoError(t, db.DB.Save(&habit).Error)

	insertCheckin(t, user, habit, "2026-01-05", floatPtr(2))
	require.NoError(t, UpsertDailyAnalytics(user, habit, "2026-01-05"))

	row := getAnalytics(t, habit.ID, "2026-01-05")
	assert.Equal(t, 2, row.Completions)
	assert.Equal(t, 4, row.Target)
	assert.Equal(t, 0.5, row.CompletionRate)
	assert.Equal(t, 10.0, row.StrengthScore)
}

func TestUpsertDailyAnalyticsRateIsCapped(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "UTC")
	habit := createTestHabit(t, user, models.TrackCount, models.ScheduleDaily)
	habit.CountTarget = intPtr(2)
	require.NoError(t, db.DB.Save(&habit).Error)

	insertCheckin(t, user, habit, "2026-01-05", floatPtr(10))
	require.NoError(t, UpsertDailyAnalytics(user, habit, "2026-01-05"))

	row := getAnalytics(t, habit.ID, "2026-01-05")
	assert.Equal(t, 1.0, row.CompletionRate)
}

func TestUpsertDailyAnalyticsIsUpsert(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "UTC")
	habit := createTestHabit(t, user, models.TrackBinary, models.ScheduleDaily)

	require.NoError(t, UpsertDailyAnalytics(user, habit, "2026-01-05"))
	insertCheckin(t, user, habit, "2026-01-05", nil)
	require.NoError(t, UpsertDailyAnalytics(user, habit, "2026-01-05"))

	var count int64
	require.NoError(t, db.DB.Model(&models.DailyAnalytics{}).
		Where("habit_id = ?", habit.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, 1, getAnalytics(t, habit.ID, "2026-01-05").Completions)
}

func TestStrengthScoreConvergesAndStaysBounded(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "UTC")
	habit := createTestHabit(t, user, models.TrackBinary, models.ScheduleDaily)

	day := "2026-01-01"
	var err error
	prev := 0.0
	for i := 0; i < 40; i++ {
		insertCheckin(t, user, habit, day, nil)
		require.NoError(t, UpsertDailyAnalytics(user, habit, day))

		score := getAnalytics(t, habit.ID, day).StrengthScore
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
		// Rounding to 2dp plateaus just under 100, so non-strict here.
		assert.GreaterOrEqual(t, score, prev, fmt.Sprintf("score should not fall on day %d", i+1))
		prev = score

		day, err = addDay(day)
		require.NoError(t, err)
	}

	// Repeating the same rate converges toward 100 * completionRate.
	assert.InDelta(t, 100.0, prev, 1.0)
}

func addDay(day string) (string, error) {
	return dates.AddDays(day, 1)
}
