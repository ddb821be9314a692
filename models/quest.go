package models

import (
	"time"
)

// Quest is a static catalog entry. Daily assignment picks from active quests.
type Quest struct {
	ID          string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"type:varchar(32);default:'general'" json:"category"`
	BaseXP      int64  `json:"base_xp" gorm:"default:50"`
	Active      bool   `json:"active" gorm:"default:true"`

	Timestamps
}

// QuestLogEntry is one assigned quest instance per user per local day.
// CompletedAt and XPAwarded are set together, exactly once: the completion
// service guards the update with a completed_at IS NULL condition so two
// concurrent completions yield exactly one winner.
type QuestLogEntry struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	QuestID        string `gorm:"not null;index;uniqueIndex:idx_quest_log_day" json:"quest_id"`
	ExternalUserID string `gorm:"not null;index;uniqueIndex:idx_quest_log_day" json:"external_user_id"`
	LocalDate      string `gorm:"not null;uniqueIndex:idx_quest_log_day" json:"local_date"` // YYYY-MM-DD in the user's timezone

	AssignedAt     time.Time  `json:"assigned_at" gorm:"autoCreateTime"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ReflectionText *string    `json:"reflection_text,omitempty" gorm:"type:text"`
	XPAwarded      *int64     `json:"xp_awarded,omitempty"`

	// Golden marks a 3× multiplier armed by the lottery at assignment time.
	Golden bool `json:"golden" gorm:"default:false"`

	Quest Quest `json:"quest,omitempty" gorm:"foreignKey:QuestID"`
}
