package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yersultanov/HabitStreakBackend/db"
	"github.com/yersultanov/HabitStreakBackend/models"
)

func TestCreateCheckinBinaryIsIdempotent(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "UTC")
	habit := createTestHabit(t, user, models.TrackBinary, models.ScheduleDaily)

	occurredAt := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)

	first, err := CreateCheckin(user, habit, occurredAt, nil, "", "")
	require.NoError(t, err)

	// A double-click later the same local day returns the original record.
	second, err := CreateCheckin(user, habit, occurredAt.Add(2*time.Hour), nil, "again", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.DB.Model(&models.Checkin{}).
		Where("habit_id = ? AND local_day = ? AND is_skip = ?", habit.ID, "2026-01-05", false).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateCheckinBinaryLosingRaceReturnsWinner(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "UTC")
	habit := createTestHabit(t, user, models.TrackBinary, models.ScheduleDaily)

	day := "2026-01-05"
	winner := models.Checkin{
		HabitID:    habit.ID,
		UserID:     user.ID,
		OccurredAt: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC),
		LocalDay:   day,
		BinaryDay:  &day,
		Source:     "manual",
	}
	require.NoError(t, db.DB.Create(&winner).Error)

	// A writer that passed the idempotency check before the winner committed
	// hits the unique index instead of inserting a second row.
	loser := models.Checkin{
		HabitID:    habit.ID,
		UserID:     user.ID,
		OccurredAt: time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC),
		LocalDay:   day,
		BinaryDay:  &day,
		Source:     "manual",
	}
	require.Error(t, db.DB.Create(&loser).Error)

	got, err := CreateCheckin(user, habit, time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC), nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, got.ID)

	var count int64
	require.NoError(t, db.DB.Model(&models.Checkin{}).
		Where("habit_id = ? AND local_day = ? AND is_skip = ?", habit.ID, day, false).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateCheckinBinaryNewDayCreatesNewRecord(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "UTC")
	habit := createTestHabit(t, user, models.TrackBinary, models.ScheduleDaily)

	first, err := CreateCheckin(user, habit, time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC), nil, "", "")
	require.NoError(t, err)

	second, err := CreateCheckin(user, habit, time.Date(2026, 1, 6, 10, 0, 0, 0, time.UTC), nil, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateCheckinCountAllowsMultiplePerDay(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "UTC")
	habit := createTestHabit(t, user, models.TrackCount, models.ScheduleDaily)

	occurredAt := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	_, err := CreateCheckin(user, habit, occurredAt, floatPtr(2), "", "")
	require.NoError(t, err)
	_, err = CreateCheckin(user, habit, occurredAt.Add(time.Hour), floatPtr(3), "", "")
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.DB.Model(&models.Checkin{}).
		Where("habit_id = ? AND local_day = ?", habit.ID, "2026-01-05").
		Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestCreateCheckinRespectsDayBoundaryOffset(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "UTC")
	habit := createTestHabit(t, user, models.TrackBinary, models.ScheduleDaily)
	habit.DayBoundaryOffsetMinutes = -180 // day ends at 3am
	require.NoError(t, db.DB.Save(&habit).Error)

	record, err := CreateCheckin(user, habit, time.Date(2026, 1, 6, 2, 0, 0, 0, time.UTC), nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-05", record.LocalDay)
}

func TestCreateCheckinTriggersRecompute(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "UTC")
	habit := createTestHabit(t, user, models.TrackBinary, models.ScheduleDaily)

	_, err := CreateCheckin(user, habit, time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC), nil, "", "")
	require.NoError(t, err)

	// Derived state is visible before the call returns.
	snapshot, err := GetStreakSnapshot(habit.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.CurrentStreak)

	var analytics models.DailyAnalytics
	require.NoError(t, db.DB.Where("habit_id = ? AND date = ?", habit.ID, "2026-01-05").First(&analytics).Error)
	assert.Equal(t, 1, analytics.Completions)
	assert.Equal(t, 1.0, analytics.CompletionRate)
}

func TestCreateSkipIsIdempotent(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "UTC")
	habit := createTestHabit(t, user, models.TrackBinary, models.ScheduleDaily)

	first, err := CreateSkip(user, habit, "2026-01-05", "resting")
	require.NoError(t, err)

	second, err := CreateSkip(user, habit, "2026-01-05", "resting again")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.DB.Model(&models.Checkin{}).
		Where("habit_id = ? AND local_day = ? AND is_skip = ?", habit.ID, "2026-01-05", true).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateSkipLosingRaceReturnsWinner(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "UTC")
	habit := createTestHabit(t, user, models.TrackBinary, models.ScheduleDaily)

	// Simulate another request winning the insert between our pre-check and
	// create: the row already exists, so the unique index rejects ours and
	// the winner is returned.
	winner := insertSkip(t, user, habit, "2026-01-05")

	day := "2026-01-05"
	loser := models.Checkin{
		HabitID:  habit.ID,
		UserID:   user.ID,
		LocalDay: day,
		IsSkip:   true,
		SkipDay:  &day,
	}
	err := db.DB.Create(&loser).Error
	require.Error(t, err)

	got, err := CreateSkip(user, habit, day, "")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, got.ID)
}

func TestCreateSkipCountsTowardStreak(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "UTC")
	habit := createTestHabit(t, user, models.TrackCount, models.ScheduleDaily)
	habit.CountTarget = intPtr(5)
	require.NoError(t, db.DB.Save(&habit).Error)

	_, err := CreateSkip(user, habit, "2026-01-05", "")
	require.NoError(t, err)

	require.NoError(t, RecomputeStreaks(user, habit, "2026-01-05"))
	snapshot, err := GetStreakSnapshot(habit.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.CurrentStreak)
}

func TestListCheckinsRange(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "UTC")
	habit := createTestHabit(t, user, models.TrackCount, models.ScheduleDaily)

	insertCheckin(t, user, habit, "2026-01-01", floatPtr(1))
	insertCheckin(t, user, habit, "2026-01-03", floatPtr(1))
	insertCheckin(t, user, habit, "2026-01-05", floatPtr(1))

	records, err := ListCheckins(habit.ID, user.ID, "2026-01-02", "2026-01-04")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2026-01-03", records[0].LocalDay)

	all, err := ListCheckins(habit.ID, user.ID, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "2026-01-05", all[0].LocalDay)
}
