package services

import (
	"fmt"
	"log"
	"math"
	"time"

	"habit-quest-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// XPWeights define relative values (tunable via config/env later)
type XPWeights struct {
	QuestXP           int64 // base reward per completed quest
	GoldenMultiplier  int64 // golden quest: 3x base
	BoosterMultiplier int64 // active XP booster: 2x, combines with golden multiplicatively
}

var DefaultXPWeights = XPWeights{
	QuestXP:           50,
	GoldenMultiplier:  3,
	BoosterMultiplier: 2,
}

// LevelConfig: XP needed for *next* level (e.g., level 1 → 2 needs BaseXPPerLevel * 1^1.2)
const BaseXPPerLevel = 100

// xpForNextLevel returns XP required to reach level+1 from current level
func xpForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	// L_n = floor(BaseXPPerLevel * n^1.2)
	return int64(float64(BaseXPPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// LevelForXP derives the level a given XP total corresponds to. The curve is
// cumulative: each level costs xpForNextLevel(level) on top of what came before.
func LevelForXP(totalXP int64) int64 {
	level := int64(1)
	var spent int64
	for spent+xpForNextLevel(int(level)) <= totalXP {
		spent += xpForNextLevel(int(level))
		level++
	}
	return level
}

type ProgressionService struct {
	DB *gorm.DB
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db}
}

// EnsureProfile ensures a UserProfile row exists (idempotent). Profiles are
// normally created by the account sync worker; this covers requests that race
// ahead of the first sync.
func (s *ProgressionService) EnsureProfile(externalUserID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&profile).Error
	if err == gorm.ErrRecordNotFound {
		profile = models.UserProfile{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			Timezone:       "UTC",
			Level:          1,
		}
		if err := s.DB.Create(&profile).Error; err != nil {
			return nil, err
		}
		return &profile, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GrantXP adds XP to a profile and recomputes the level. The admin override
// path and the challenge reward path both land here. XP only ever goes up.
func (s *ProgressionService) GrantXP(externalUserID string, xp int64, reason string) (*models.UserProfile, error) {
	if xp < 0 {
		return nil, fmt.Errorf("xp grant must be non-negative, got %d", xp)
	}
	var updated *models.UserProfile
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var profile models.UserProfile
		if err := tx.Where("external_user_id = ?", externalUserID).First(&profile).Error; err != nil {
			return fmt.Errorf("profile not found for %s: %w", externalUserID, ErrNotFound)
		}

		profile.TotalXP += xp
		applyLevelUps(&profile, time.Now())

		if err := tx.Save(&profile).Error; err != nil {
			return err
		}

		updated = &models.UserProfile{}
		*updated = profile

		log.Printf("🎮 XP granted: %s → XP=%d, Lvl=%d (reason: %s)",
			externalUserID, profile.TotalXP, profile.Level, reason)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Auto-award badges (fire-and-forget)
	badgeSvc := NewBadgeService(s.DB)
	_ = badgeSvc.AutoAwardBadges(externalUserID)

	return updated, nil
}

// applyLevelUps walks the curve until the accumulated XP no longer covers the
// next level, stamping the milestone when at least one level was gained.
func applyLevelUps(profile *models.UserProfile, now time.Time) {
	leveled := false
	for int64(profile.Level) < LevelForXP(profile.TotalXP) {
		profile.Level++
		leveled = true
	}
	if leveled {
		profile.LastLevelUpAt = &now
	}
}
