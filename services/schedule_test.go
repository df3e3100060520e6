package services

import (
	"testing"

	"github.com/yersultanov/HabitStreakBackend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildExpectedDaysEveryDay(t *testing.T) {
	days, err := BuildExpectedDays(models.ScheduleDaily, nil, "UTC", 0, "2026-03-01", "2026-03-05")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-04", "2026-03-05"}, days)
}

func TestBuildExpectedDaysAllowedWeekdays(t *testing.T) {
	// 2026-03-09 is a Monday
	days, err := BuildExpectedDays(models.ScheduleCustom, models.Weekdays{"mon", "wed"}, "UTC", 0, "2026-03-09", "2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-09", "2026-03-11"}, days)
}

func TestBuildExpectedDaysMonthlyIgnoresAllowedDays(t *testing.T) {
	days, err := BuildExpectedDays(models.ScheduleMonthly, models.Weekdays{"mon"}, "UTC", 0, "2026-03-09", "2026-03-12")
	require.NoError(t, err)
	assert.Len(t, days, 4)
}

func TestBuildExpectedDaysAscendingNoDuplicates(t *testing.T) {
	days, err := BuildExpectedDays(models.ScheduleDaily, nil, "Asia/Almaty", -180, "2026-02-25", "2026-03-05")
	require.NoError(t, err)
	require.NotEmpty(t, days)
	for i := 1; i < len(days); i++ {
		assert.Greater(t, days[i], days[i-1])
	}
}

func TestBuildExpectedDaysInvalidTimezone(t *testing.T) {
	_, err := BuildExpectedDays(models.ScheduleDaily, nil, "Nope/Nope", 0, "2026-03-01", "2026-03-02")
	require.Error(t, err)
}

func TestTargetFor(t *testing.T) {
	binary := models.Habit{TrackType: models.TrackBinary, CountTarget: intPtr(10)}
	assert.Equal(t, 1, TargetFor(binary))

	count := models.Habit{TrackType: models.TrackCount, CountTarget: intPtr(3)}
	assert.Equal(t, 3, TargetFor(count))

	missing := models.Habit{TrackType: models.TrackCount}
	assert.Equal(t, 1, TargetFor(missing))
}

func TestComputeCompletions(t *testing.T) {
	tests := []struct {
		name      string
		trackType string
		checkins  []models.Checkin
		target    *int
		want      float64
	}{
		{
			name:      "binary with record",
			trackType: models.TrackBinary,
			checkins:  []models.Checkin{{}},
			want:      1,
		},
		{
			name:      "binary empty",
			trackType: models.TrackBinary,
			want:      0,
		},
		{
			name:      "count sums quantities",
			trackType: models.TrackCount,
			checkins: []models.Checkin{
				{Quantity: floatPtr(2)},
				{Quantity: floatPtr(3)},
			},
			want: 5,
		},
		{
			name:      "missing quantity counts as zero",
			trackType: models.TrackDuration,
			checkins:  []models.Checkin{{Quantity: nil}, {Quantity: floatPtr(10)}},
			want:      10,
		},
		{
			name:      "skips are filtered out",
			trackType: models.TrackCount,
			checkins:  []models.Checkin{{IsSkip: true, Quantity: floatPtr(4)}},
			want:      0,
		},
		{
			name:      "unknown track falls back to target",
			trackType: "mystery",
			target:    intPtr(7),
			want:      7,
		},
		{
			name:      "unknown track without target falls back to one",
			trackType: "mystery",
			want:      1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeCompletions(tt.trackType, tt.checkins, tt.target)
			assert.Equal(t, tt.want, got)
		})
	}
}
