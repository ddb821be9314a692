package services

import (
	"log"

	"habit-quest-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// SeedBadgeTypes inserts the static trigger catalog (insert-if-absent, run at boot).
func (s *BadgeService) SeedBadgeTypes() error {
	for _, trigger := range models.BadgeTriggers {
		badge := trigger
		badge.ID = uuid.NewString()
		if err := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&badge).Error; err != nil {
			return err
		}
	}
	return nil
}

// AutoAwardBadges checks all threshold triggers for a user after a progress update
func (s *BadgeService) AutoAwardBadges(externalUserID string) error {
	var profile models.UserProfile
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&profile).Error; err != nil {
		return err
	}

	var triggers []models.BadgeType
	if err := s.DB.Where("premium_only = ?", false).Find(&triggers).Error; err != nil {
		return err
	}

	var awarded []string
	for _, trigger := range triggers {
		if !s.meetsThreshold(&profile, trigger.Threshold) {
			continue
		}
		res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.UserBadge{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			BadgeTypeID:    trigger.ID,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			awarded = append(awarded, trigger.Name)
			log.Printf("🎖️ Badge awarded: %s → %s", trigger.Name, externalUserID)
		}
	}

	if len(awarded) > 0 {
		// Notification dispatch is the caller's concern.
	}
	return nil
}

// GrantPremiumBadges awards every premium-only badge the user doesn't own
// yet. Duplicates are skipped, so the payment fan-out can retry freely.
func (s *BadgeService) GrantPremiumBadges(externalUserID string) error {
	var premium []models.BadgeType
	if err := s.DB.Where("premium_only = ?", true).Find(&premium).Error; err != nil {
		return err
	}
	for _, badge := range premium {
		res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.UserBadge{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			BadgeTypeID:    badge.ID,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			log.Printf("🎖️ Premium badge granted: %s → %s", badge.Name, externalUserID)
		}
	}
	return nil
}

// UserBadges lists awarded badges joined with their static config.
func (s *BadgeService) UserBadges(externalUserID string) ([]map[string]interface{}, error) {
	var rows []struct {
		models.UserBadge
		Code        string
		Name        string
		Description string
		IconURL     string
		Rarity      string
	}
	if err := s.DB.Table("user_badges").
		Select("user_badges.*, badge_types.code, badge_types.name, badge_types.description, badge_types.icon_url, badge_types.rarity").
		Joins("JOIN badge_types ON badge_types.id = user_badges.badge_type_id").
		Where("user_badges.external_user_id = ?", externalUserID).
		Order("user_badges.awarded_at DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]map[string]interface{}, 0, len(rows))
	for _, r := range rows {
		out = append(out, map[string]interface{}{
			"id":          r.UserBadge.ID,
			"code":        r.Code,
			"name":        r.Name,
			"description": r.Description,
			"icon_url":    r.IconURL,
			"rarity":      r.Rarity,
			"awarded_at":  r.AwardedAt,
			"metadata":    r.Metadata,
		})
	}
	return out, nil
}

func (s *BadgeService) meetsThreshold(profile *models.UserProfile, req map[string]int64) bool {
	if len(req) == 0 {
		return false
	}
	for key, required := range req {
		switch key {
		case "total_quests":
			if profile.TotalQuestsCompleted < required {
				return false
			}
		case "streak":
			if int64(profile.Streak) < required {
				return false
			}
		case "longest_streak":
			if int64(profile.LongestStreak) < required {
				return false
			}
		case "level":
			if int64(profile.Level) < required {
				return false
			}
		case "total_xp":
			if profile.TotalXP < required {
				return false
			}
		case "event": // special: always true (e.g., first sighting)
			return true
		}
	}
	return true
}
