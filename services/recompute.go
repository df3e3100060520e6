package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/yersultanov/HabitStreakBackend/cache"
	"github.com/yersultanov/HabitStreakBackend/models"
	"github.com/yersultanov/HabitStreakBackend/utils"
	"go.uber.org/zap"
)

// Recomputations for the same habit must not interleave: both passes are
// read-then-upsert, and an older in-flight computation finishing last would
// overwrite a newer snapshot. A per-habit mutex serializes them.
var habitLocks sync.Map

func habitLock(habitID string) *sync.Mutex {
	mu, _ := habitLocks.LoadOrStore(habitID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// RecomputeStreaksAndAnalytics runs the daily analytics pass and the streak
// pass for the affected habit/day. The two passes touch independent derived
// rows, so they run as parallel goroutines joined before returning.
func RecomputeStreaksAndAnalytics(user models.User, habit models.Habit, localDay string) error {
	start := time.Now()

	mu := habitLock(habit.ID)
	mu.Lock()
	defer mu.Unlock()

	errChan := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		errChan <- UpsertDailyAnalytics(user, habit, localDay)
	}()
	go func() {
		defer wg.Done()
		errChan <- RecomputeStreaks(user, habit, localDay)
	}()

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			logger().Error("recompute_failed",
				zap.String("habit_id", habit.ID),
				zap.String("local_day", localDay),
				zap.Error(err),
			)
			return err
		}
	}

	utils.RecomputeDuration.Observe(time.Since(start).Seconds())
	invalidateDerivedCaches(user.ID, habit.ID)

	return nil
}

// invalidateDerivedCaches drops cached reads made stale by a recomputation.
// Redis may be absent in tests; skip silently then.
func invalidateDerivedCaches(userID uint, habitID string) {
	if cache.Client == nil {
		return
	}

	for _, key := range []string{cache.KeyUserStats(userID), cache.KeyUserHabits(userID)} {
		if err := cache.Delete(key); err != nil {
			logger().Warn("cache_invalidate_failed",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}

	patterns := []string{
		fmt.Sprintf("cache:%d:*", userID),
		cache.KeyHabitAnalytics(habitID),
	}
	for _, pattern := range patterns {
		if err := cache.DeletePattern(pattern); err != nil {
			logger().Warn("cache_invalidate_failed",
				zap.String("pattern", pattern),
				zap.Error(err),
			)
		}
	}
}
