package models

import (
	"time"
)

// BadgeType: static config (seeded from BadgeTriggers at boot)
type BadgeType struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Code        string `gorm:"uniqueIndex;not null"` // e.g., "FIRST_QUEST", "STREAK_30"
	Name        string `gorm:"not null"`             // "First Steps", "Monthly Flame"
	Description string
	IconURL     string           `gorm:"type:text"`
	Rarity      string           `gorm:"type:varchar(16);default:'common'"` // common, rare, epic, legendary
	PremiumOnly bool             `gorm:"default:false"`                     // granted on premium activation, not by threshold
	Threshold   map[string]int64 `gorm:"type:jsonb;serializer:json"`        // e.g., {"total_quests": 10}, {"streak": 30}
	CreatedAt   time.Time        `gorm:"autoCreateTime"`
}

// UserBadge: awarded instance. The unique index makes grants idempotent:
// a duplicate award is skipped, never an error.
type UserBadge struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	ExternalUserID string    `gorm:"not null;uniqueIndex:idx_user_badge"`
	BadgeTypeID    string    `gorm:"not null;uniqueIndex:idx_user_badge"`
	AwardedAt      time.Time `gorm:"autoCreateTime"`
	Metadata       string    `gorm:"type:jsonb"` // e.g., {"challenge_id": "..."}
}

// Predefined badge triggers
var BadgeTriggers = []BadgeType{
	{
		Code:        "WELCOME",
		Name:        "Welcome Aboard!",
		Description: "Joined the platform",
		Rarity:      "common",
		Threshold:   map[string]int64{"event": 1}, // awarded on first progress check
	},
	{
		Code:        "FIRST_QUEST",
		Name:        "First Steps",
		Description: "Completed your first quest",
		Rarity:      "common",
		Threshold:   map[string]int64{"total_quests": 1},
	},
	{
		Code:        "QUEST_100",
		Name:        "Centurion",
		Description: "Completed 100 quests",
		Rarity:      "rare",
		Threshold:   map[string]int64{"total_quests": 100},
	},
	{
		Code:        "STREAK_7",
		Name:        "Weekly Flame",
		Description: "Held a 7-day streak",
		Rarity:      "common",
		Threshold:   map[string]int64{"streak": 7},
	},
	{
		Code:        "STREAK_30",
		Name:        "Monthly Flame",
		Description: "Reached a 30-day streak at least once",
		Rarity:      "epic",
		Threshold:   map[string]int64{"longest_streak": 30},
	},
	{
		Code:        "LEVEL_10",
		Name:        "Double Digits",
		Description: "Reached Level 10",
		Rarity:      "rare",
		Threshold:   map[string]int64{"level": 10},
	},
	{
		Code:        "PREMIUM_MEMBER",
		Name:        "Inner Circle",
		Description: "Activated a premium subscription",
		Rarity:      "epic",
		PremiumOnly: true,
	},
	{
		Code:        "PREMIUM_FOUNDER",
		Name:        "Founding Supporter",
		Description: "Backed the project with a premium plan",
		Rarity:      "legendary",
		PremiumOnly: true,
	},
}
