package services

import "errors"

// Domain errors raised by the engine. Handlers translate these to 4xx
// responses; they never leave state half-updated.
var (
	ErrNoFreezeTokens      = errors.New("no freeze tokens available")
	ErrFreezeWindowExpired = errors.New("freeze tokens can only cover the last 8 weeks")
	ErrHabitNotFound       = errors.New("habit not found")
)
