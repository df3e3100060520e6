package services

import (
	"errors"
	"time"

	"github.com/yersultanov/HabitStreakBackend/dates"
	"github.com/yersultanov/HabitStreakBackend/db"
	"github.com/yersultanov/HabitStreakBackend/models"
	"github.com/yersultanov/HabitStreakBackend/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FreezeTokenCap is the maximum number of available tokens a user can hold.
const FreezeTokenCap = 5

// freezeCoverageWeeks bounds how far back a token can cover. The check is
// strict: activation fails once 8 whole weeks have elapsed since the covered
// day.
const freezeCoverageWeeks = 8

// EnsureUserCounters returns the user's summary row, creating it on first use.
func EnsureUserCounters(userID uint) (models.UserCounters, error) {
	var counters models.UserCounters
	err := db.DB.Where(models.UserCounters{UserID: userID}).FirstOrCreate(&counters).Error
	return counters, err
}

// GrantFreezeTokensIfEligible lazily grants one token per whole week elapsed
// since the last grant, capped at FreezeTokenCap. Calling it repeatedly
// within the same week grants nothing; calling it after a long absence
// grants the backlog up to the cap in one shot.
func GrantFreezeTokensIfEligible(user models.User) (models.UserCounters, error) {
	counters, err := EnsureUserCounters(user.ID)
	if err != nil {
		return models.UserCounters{}, err
	}

	if counters.FreezeTokensAvailable >= FreezeTokenCap {
		return counters, nil
	}

	now := time.Now().UTC()
	weeksToGrant := 1
	if counters.LastFreezeGrantAt != nil {
		weeksElapsed := int(now.Sub(*counters.LastFreezeGrantAt).Hours() / (24 * 7))
		if weeksElapsed < 1 {
			return counters, nil
		}
		weeksToGrant = weeksElapsed
	}

	available := counters.FreezeTokensAvailable + weeksToGrant
	if available > FreezeTokenCap {
		available = FreezeTokenCap
	}
	granted := available - counters.FreezeTokensAvailable

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		counters.FreezeTokensAvailable = available
		counters.LastFreezeGrantAt = &now
		if err := tx.Save(&counters).Error; err != nil {
			return err
		}

		for i := 0; i < granted; i++ {
			token := models.FreezeToken{
				UserID: user.ID,
				Status: models.FreezeAvailable,
			}
			if err := tx.Create(&token).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.UserCounters{}, err
	}

	if granted > 0 {
		utils.FreezeOps.WithLabelValues("grant").Add(float64(granted))
		logger().Info("freeze_tokens_granted",
			zap.Uint("user_id", user.ID),
			zap.Int("granted", granted),
			zap.Int("available", available),
		)
	}

	return counters, nil
}

// ActivateFreezeToken consumes one available token to retroactively mark
// coveredLocalDay as successful for streak purposes. It does not trigger
// recomputation; the caller invokes the orchestrator afterward. Only tokens
// bound to a habit are seen by streak recomputation: a nil habitID still
// consumes the token and records the covered day, but influences no streak.
func ActivateFreezeToken(user models.User, habitID *string, coveredLocalDay string) (models.FreezeToken, error) {
	counters, err := EnsureUserCounters(user.ID)
	if err != nil {
		return models.FreezeToken{}, err
	}

	if counters.FreezeTokensAvailable <= 0 {
		utils.FreezeOps.WithLabelValues("rejected").Inc()
		return models.FreezeToken{}, ErrNoFreezeTokens
	}

	if habitID != nil {
		var habit models.Habit
		err := db.DB.Where("id = ? AND user_id = ?", *habitID, user.ID).First(&habit).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.FreezeToken{}, ErrHabitNotFound
		}
		if err != nil {
			return models.FreezeToken{}, err
		}
	}

	coveredDate, err := dates.ParseLocalDay(coveredLocalDay)
	if err != nil {
		return models.FreezeToken{}, err
	}
	weeksElapsed := int(time.Now().UTC().Sub(coveredDate).Hours() / (24 * 7))
	if weeksElapsed >= freezeCoverageWeeks {
		utils.FreezeOps.WithLabelValues("rejected").Inc()
		return models.FreezeToken{}, ErrFreezeWindowExpired
	}

	now := time.Now().UTC()
	var token models.FreezeToken

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		// Consume the oldest available token; fall back to inserting a used
		// row if the counter and token rows have drifted apart.
		ferr := tx.Where("user_id = ? AND status = ?", user.ID, models.FreezeAvailable).
			Order("granted_at ASC").First(&token).Error
		if ferr != nil && !errors.Is(ferr, gorm.ErrRecordNotFound) {
			return ferr
		}

		token.UserID = user.ID
		token.Status = models.FreezeUsed
		token.CoveredHabitID = habitID
		token.CoveredLocalDay = &coveredLocalDay
		token.UsedAt = &now
		if err := tx.Save(&token).Error; err != nil {
			return err
		}

		counters.FreezeTokensAvailable--
		return tx.Save(&counters).Error
	})
	if err != nil {
		return models.FreezeToken{}, err
	}

	utils.FreezeOps.WithLabelValues("activate").Inc()
	LogEvent(user.ID, "freeze_activated", map[string]interface{}{
		"covered_local_day": coveredLocalDay,
		"covered_habit_id":  habitID,
	})

	logger().Info("freeze_token_activated",
		zap.Uint("user_id", user.ID),
		zap.String("covered_local_day", coveredLocalDay),
	)

	return token, nil
}
