package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Track types
const (
	TrackBinary   = "binary"
	TrackCount    = "count"
	TrackDuration = "duration"
	TrackTimer    = "timer"
)

// Schedule types
const (
	ScheduleDaily   = "daily"
	ScheduleWeekly  = "weekly"
	ScheduleMonthly = "monthly"
	ScheduleCustom  = "custom"
)

// Freeze token statuses
const (
	FreezeAvailable = "available"
	FreezeUsed      = "used"
	FreezeExpired   = "expired"
)

// Weekdays is a set of weekday codes (mon..sun) stored as a JSON array.
// Empty means every day is allowed.
type Weekdays []string

func (w Weekdays) Value() (driver.Value, error) {
	if w == nil {
		return "[]", nil
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (w *Weekdays) Scan(value interface{}) error {
	if value == nil {
		*w = Weekdays{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, w)
	case string:
		return json.Unmarshal([]byte(v), w)
	default:
		return fmt.Errorf("unsupported type for Weekdays: %T", value)
	}
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique" json:"username"`
	PasswordHash string    `json:"-"`
	Timezone     string    `gorm:"default:UTC" json:"timezone"`
	WeekStart    string    `gorm:"default:mon" json:"week_start"`
	Role         string    `gorm:"default:user" json:"role"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	Habits       []Habit   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

type Habit struct {
	ID                       string          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                   uint            `gorm:"index" json:"user_id"`
	Title                    string          `json:"title"`
	Description              string          `json:"description"`
	TrackType                string          `json:"track_type"`
	ScheduleType             string          `json:"schedule_type"`
	CountTarget              *int            `json:"count_target"`
	PerPeriod                *string         `json:"per_period"`
	AllowedDays              Weekdays        `gorm:"type:text" json:"allowed_days"`
	DayBoundaryOffsetMinutes int             `gorm:"default:0" json:"day_boundary_offset_minutes"`
	FreezeEnabled            bool            `gorm:"default:true" json:"freeze_enabled"`
	IsArchived               bool            `gorm:"default:false" json:"is_archived"`
	CreatedAt                time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	Checkins                 []Checkin       `gorm:"foreignKey:HabitID;constraint:OnDelete:CASCADE" json:"-"`
	Streak                   *StreakSnapshot `gorm:"foreignKey:HabitID" json:"streak,omitempty"`
}

func (h *Habit) BeforeCreate(tx *gorm.DB) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	return nil
}

// Checkin is one check-in or skip record. LocalDay is fixed at insert time
// and never rewritten. SkipDay mirrors LocalDay on skip rows and BinaryDay
// mirrors it on binary check-ins, so each composite unique index allows at
// most one such row per (habit, day) while leaving count/duration records
// unconstrained (NULLs never collide).
type Checkin struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	HabitID    string    `gorm:"type:uuid;index:idx_checkins_habit_day;index:idx_checkins_skip_unique,unique;index:idx_checkins_binary_unique,unique" json:"habit_id"`
	UserID     uint      `gorm:"index" json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
	LocalDay   string    `gorm:"size:10;index:idx_checkins_habit_day" json:"local_day"`
	Quantity   *float64  `json:"quantity"`
	Source     string    `gorm:"default:manual" json:"source"`
	Note       string    `json:"note"`
	IsSkip     bool      `gorm:"default:false" json:"is_skip"`
	SkipDay    *string   `gorm:"size:10;index:idx_checkins_skip_unique,unique" json:"-"`
	BinaryDay  *string   `gorm:"size:10;index:idx_checkins_binary_unique,unique" json:"-"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (c *Checkin) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// StreakSnapshot is fully derived from checkins + freeze tokens and is
// overwritten on every recomputation. Never hand-edited.
type StreakSnapshot struct {
	HabitID             string    `gorm:"type:uuid;primaryKey" json:"habit_id"`
	UserID              uint      `gorm:"index" json:"user_id"`
	CurrentStreak       int       `gorm:"default:0" json:"current_streak"`
	LongestStreak       int       `gorm:"default:0" json:"longest_streak"`
	LastSuccessLocalDay *string   `gorm:"size:10" json:"last_success_local_day"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type DailyAnalytics struct {
	HabitID        string    `gorm:"type:uuid;primaryKey" json:"habit_id"`
	Date           string    `gorm:"size:10;primaryKey" json:"date"`
	UserID         uint      `gorm:"index" json:"user_id"`
	Completions    int       `gorm:"default:0" json:"completions"`
	Target         int       `json:"target"`
	CompletionRate float64   `json:"completion_rate"`
	StrengthScore  float64   `json:"strength_score"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type FreezeToken struct {
	ID              string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uint       `gorm:"index" json:"user_id"`
	Status          string     `gorm:"default:available;index" json:"status"`
	CoveredHabitID  *string    `gorm:"type:uuid" json:"covered_habit_id"`
	CoveredLocalDay *string    `gorm:"size:10" json:"covered_local_day"`
	GrantedAt       time.Time  `gorm:"autoCreateTime" json:"granted_at"`
	UsedAt          *time.Time `json:"used_at"`
	ExpiresAt       *time.Time `json:"expires_at"`
}

func (f *FreezeToken) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}

// UserCounters is a single per-user summary row, upserted in place.
type UserCounters struct {
	UserID                uint       `gorm:"primaryKey" json:"user_id"`
	FreezeTokensAvailable int        `gorm:"default:0" json:"freeze_tokens_available"`
	LastFreezeGrantAt     *time.Time `json:"last_freeze_grant_at"`
	UpdatedAt             time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// EventLog is an append-only audit trail of mutating engine calls.
type EventLog struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uint      `gorm:"index" json:"user_id"`
	EventType  string    `gorm:"index" json:"event_type"`
	Payload    string    `json:"payload"`
	OccurredAt time.Time `gorm:"autoCreateTime" json:"occurred_at"`
}

func (e *EventLog) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
