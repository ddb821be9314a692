package models

import (
	"time"

	"gorm.io/gorm"
)

// UserProfile tracks gamified progression for each user (denormalized for performance).
// Rows are mirrored from the account service by the profile sync worker and
// mutated only by the quest/challenge/payment services.
type UserProfile struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to account service
	Username       string `gorm:"index" json:"username"`
	Email          string `json:"email,omitempty"`

	// Canonical timezone for all calendar-day arithmetic (streaks, daily
	// assignment). IANA name, synced from the account service, never taken
	// from the client on a per-request basis.
	Timezone string `gorm:"default:'UTC'" json:"timezone"`

	// Core progression
	TotalXP              int64 `json:"total_xp" gorm:"default:0"`
	Level                int   `json:"level" gorm:"default:1"`
	TotalQuestsCompleted int64 `json:"total_quests_completed" gorm:"default:0"`

	// Streak state. LastQuestDate is the local calendar day (YYYY-MM-DD) of
	// the most recent completion. When a streak is lost, the old count and
	// loss time are snapshotted so the recovery window can restore it.
	Streak          int        `json:"streak" gorm:"default:0"`
	LongestStreak   int        `json:"longest_streak" gorm:"default:0"`
	LastQuestDate   *string    `json:"last_quest_date,omitempty"`
	LastStreakCount *int       `json:"last_streak_count,omitempty"`
	StreakLostAt    *time.Time `json:"streak_lost_at,omitempty"`

	// Premium + power-up flags
	PremiumStatus        bool       `json:"premium_status" gorm:"default:false"`
	PremiumExpiresAt     *time.Time `json:"premium_expires_at,omitempty"`
	XPBoosterActive      bool       `json:"xp_booster_active" gorm:"default:false"`
	XPBoosterExpiresAt   *time.Time `json:"xp_booster_expires_at,omitempty"`
	StreakFreezeActive   bool       `json:"streak_freeze_active" gorm:"default:false"`
	StreakFreezeExpires  *time.Time `json:"streak_freeze_expires_at,omitempty" gorm:"column:streak_freeze_expires_at"`
	GoldenQuestPending   bool       `json:"golden_quest_pending" gorm:"default:false"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BoosterLive reports whether the 2× XP booster applies at the given instant.
func (p *UserProfile) BoosterLive(now time.Time) bool {
	return p.XPBoosterActive && p.XPBoosterExpiresAt != nil && !now.After(*p.XPBoosterExpiresAt)
}

// FreezeLive reports whether the one-time streak freeze can absorb a gap.
func (p *UserProfile) FreezeLive(now time.Time) bool {
	return p.StreakFreezeActive && p.StreakFreezeExpires != nil && !now.After(*p.StreakFreezeExpires)
}

// Location resolves the profile timezone, falling back to UTC on bad data.
func (p *UserProfile) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}
