package models

import (
	"time"

	"gorm.io/gorm"
)

// ChallengeType distinguishes solo, duo and open team challenges
type ChallengeType string

const (
	ChallengeTypeSolo ChallengeType = "solo"
	ChallengeTypeDuo  ChallengeType = "duo"
	ChallengeTypeTeam ChallengeType = "team"
)

// TargetType selects which live counter a challenge measures
type TargetType string

const (
	TargetQuests TargetType = "quests"
	TargetXP     TargetType = "xp"
	TargetStreak TargetType = "streak"
)

// Challenge is a goal tracked as baseline-vs-live-counter delta against a target.
type Challenge struct {
	ID              string        `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Title           string        `gorm:"not null" json:"title"`
	Slug            string        `gorm:"uniqueIndex;not null" json:"slug"` // shareable code, derived from title
	Description     string        `gorm:"type:text" json:"description"`
	ChallengeType   ChallengeType `gorm:"type:varchar(8);not null;default:'solo'" json:"challenge_type"`
	TargetType      TargetType    `gorm:"type:varchar(8);not null" json:"target_type"`
	TargetValue     int64         `gorm:"not null" json:"target_value"`
	RewardXP        int64         `json:"reward_xp" gorm:"default:0"`
	RewardBadgeCode string        `json:"reward_badge_code,omitempty"`
	StartsAt        time.Time     `json:"starts_at"`
	EndsAt          *time.Time    `json:"ends_at,omitempty"`
	Active          bool          `json:"active" gorm:"default:true"`

	Timestamps

	// Calculated fields (not stored in DB)
	ParticipantCount int64 `json:"participant_count,omitempty" gorm:"-"`
}

// ChallengeTeam groups participants of duo/team challenges. Team progress is
// the sum of member deltas against each member's own join-time baseline, not
// of absolute counters.
type ChallengeTeam struct {
	ID          string        `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ChallengeID string        `gorm:"not null;index" json:"challenge_id"`
	Name        string        `json:"name"`
	TeamType    ChallengeType `gorm:"type:varchar(8);not null;default:'team'" json:"team_type"`
	MaxMembers  int           `json:"max_members" gorm:"default:10"`
	Completed   bool          `json:"completed" gorm:"default:false"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`

	Timestamps
}

// BeforeCreate clamps duo teams to two members regardless of what the caller
// sent. The constraint holds for direct inserts, not just the service path.
func (t *ChallengeTeam) BeforeCreate(tx *gorm.DB) error {
	if t.TeamType == ChallengeTypeDuo && (t.MaxMembers < 2 || t.MaxMembers > 2) {
		t.MaxMembers = 2
	}
	if t.MaxMembers < 1 {
		t.MaxMembers = 1
	}
	return nil
}

// ChallengeParticipant snapshots the user's live counters at join time.
// CurrentProgress is always recomputed as live − baseline until Completed
// flips, after which the row is frozen.
type ChallengeParticipant struct {
	ID             string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ChallengeID    string  `gorm:"not null;uniqueIndex:idx_challenge_participant" json:"challenge_id"`
	ExternalUserID string  `gorm:"not null;uniqueIndex:idx_challenge_participant;index" json:"external_user_id"`
	TeamID         *string `gorm:"index" json:"team_id,omitempty"`

	BaselineQuests int64 `json:"baseline_quests"`
	BaselineXP     int64 `json:"baseline_xp"`
	BaselineStreak int64 `json:"baseline_streak"`

	CurrentProgress int64      `json:"current_progress" gorm:"default:0"`
	Completed       bool       `json:"completed" gorm:"default:false"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`

	JoinedAt time.Time `json:"joined_at" gorm:"autoCreateTime"`

	Challenge Challenge `json:"challenge,omitempty" gorm:"foreignKey:ChallengeID"`
}

// InviteStatus tracks the duo invite handshake
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "pending"
	InviteStatusAccepted InviteStatus = "accepted"
	InviteStatusDeclined InviteStatus = "declined"
)

// ChallengeInvite is the handshake row for duo challenges. The compound join
// (two participant rows + team) only happens once the invitee accepted.
type ChallengeInvite struct {
	ID          string       `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ChallengeID string       `gorm:"not null;index" json:"challenge_id"`
	InviterID   string       `gorm:"not null;index" json:"inviter_id"`
	InviteeID   string       `gorm:"not null;index" json:"invitee_id"`
	Status      InviteStatus `gorm:"type:varchar(8);default:'pending'" json:"status"`
	RespondedAt *time.Time   `json:"responded_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at" gorm:"autoCreateTime"`
}

// ChallengeReward is the reward audit row. The unique index on
// (challenge_id, subject_id) is the idempotency guard: insert-or-skip, and a
// conflict means "already rewarded", never an error. SubjectID is the user for
// solo/duo rewards and the team for team-level rewards.
type ChallengeReward struct {
	ID          string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ChallengeID string    `gorm:"not null;uniqueIndex:idx_challenge_reward" json:"challenge_id"`
	SubjectID   string    `gorm:"not null;uniqueIndex:idx_challenge_reward" json:"subject_id"`
	XPGranted   int64     `json:"xp_granted"`
	BadgeCode   string    `json:"badge_code,omitempty"`
	IssuedAt    time.Time `json:"issued_at" gorm:"autoCreateTime"`
}
