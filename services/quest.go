package services

import (
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"habit-quest-system/models"

	"gorm.io/gorm"
)

const (
	reflectionMinLen = 15
	reflectionMaxLen = 500
)

type QuestService struct {
	DB *gorm.DB
}

func NewQuestService(db *gorm.DB) *QuestService {
	return &QuestService{DB: db}
}

// CompletionResult carries the deltas back to the caller. Notification and
// analytics dispatch happen there, not here.
type CompletionResult struct {
	LogID     string `json:"log_id"`
	XPAwarded int64  `json:"xp_awarded"`
	Streak    int    `json:"streak"`
	Level     int    `json:"level"`
	Golden    bool   `json:"golden"`
}

// CompleteQuest finalizes a pending quest log entry for the user.
func (s *QuestService) CompleteQuest(logID, externalUserID, reflectionText string) (*CompletionResult, error) {
	return s.CompleteQuestAt(logID, externalUserID, reflectionText, time.Now())
}

// CompleteQuestAt is CompleteQuest with an injected clock.
//
// The whole mutation runs in one transaction; the conditional UPDATE on
// completed_at IS NULL is the single-writer guard, so two concurrent
// completions of the same log yield exactly one success and one
// ErrAlreadyCompleted. Any failure leaves the log pending and the profile
// untouched: a processor error never costs the user their streak.
func (s *QuestService) CompleteQuestAt(logID, externalUserID, reflectionText string, now time.Time) (*CompletionResult, error) {
	if err := ValidateReflection(reflectionText); err != nil {
		return nil, err
	}

	var result *CompletionResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var entry models.QuestLogEntry
		if err := tx.Preload("Quest").
			Where("id = ? AND external_user_id = ?", logID, externalUserID).
			First(&entry).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrNotFound
			}
			return err
		}
		if entry.CompletedAt != nil {
			return ErrAlreadyCompleted
		}
		if !entry.Quest.Active {
			return ErrQuestInactive
		}

		var profile models.UserProfile
		if err := tx.Where("external_user_id = ?", externalUserID).First(&profile).Error; err != nil {
			return fmt.Errorf("profile missing for %s: %w", externalUserID, ErrNotFound)
		}

		// Golden (×3) and booster (×2) combine multiplicatively, never additively.
		xp := entry.Quest.BaseXP
		if xp <= 0 {
			xp = DefaultXPWeights.QuestXP
		}
		if entry.Golden {
			xp *= DefaultXPWeights.GoldenMultiplier
		}
		if profile.BoosterLive(now) {
			xp *= DefaultXPWeights.BoosterMultiplier
		}

		completionDate := LocalDay(now, profile.Location())
		AdvanceStreak(&profile, completionDate, now)

		// Single-writer guard: only the first caller sees RowsAffected == 1.
		res := tx.Model(&models.QuestLogEntry{}).
			Where("id = ? AND completed_at IS NULL", logID).
			Updates(map[string]interface{}{
				"completed_at":    now,
				"xp_awarded":      xp,
				"reflection_text": reflectionText,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyCompleted
		}

		profile.TotalXP += xp
		profile.TotalQuestsCompleted++
		applyLevelUps(&profile, now)

		if err := tx.Save(&profile).Error; err != nil {
			return err
		}

		result = &CompletionResult{
			LogID:     entry.ID,
			XPAwarded: xp,
			Streak:    profile.Streak,
			Level:     profile.Level,
			Golden:    entry.Golden,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Auto-award badges (fire-and-forget)
	badgeSvc := NewBadgeService(s.DB)
	_ = badgeSvc.AutoAwardBadges(externalUserID)

	log.Printf("🗡️ Quest completed: %s log=%s xp=%d streak=%d", externalUserID, logID, result.XPAwarded, result.Streak)
	return result, nil
}

// TodayEntries returns the user's quest log for their current local day.
func (s *QuestService) TodayEntries(externalUserID string, now time.Time) ([]models.QuestLogEntry, error) {
	var profile models.UserProfile
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&profile).Error; err != nil {
		return nil, ErrNotFound
	}
	day := LocalDay(now, profile.Location())

	var entries []models.QuestLogEntry
	err := s.DB.Preload("Quest").
		Where("external_user_id = ? AND local_date = ?", externalUserID, day).
		Order("assigned_at ASC").
		Find(&entries).Error
	return entries, err
}

// ValidateReflection enforces the reflection contract: length in
// [15, 500] runes and not obvious filler. Short texts dominated by a single
// rune (>85%) and keyboard mash (three or fewer distinct runes) are rejected.
func ValidateReflection(text string) error {
	n := utf8.RuneCountInString(text)
	if n < reflectionMinLen {
		return fmt.Errorf("%w: too short (%d < %d)", ErrInvalidReflection, n, reflectionMinLen)
	}
	if n > reflectionMaxLen {
		return fmt.Errorf("%w: too long (%d > %d)", ErrInvalidReflection, n, reflectionMaxLen)
	}

	freq := map[rune]int{}
	max := 0
	for _, r := range text {
		freq[r]++
		if freq[r] > max {
			max = freq[r]
		}
	}
	if n < 30 && float64(max)/float64(n) > 0.85 {
		return fmt.Errorf("%w: repeated characters", ErrInvalidReflection)
	}
	if n >= 10 && len(freq) <= 3 {
		return fmt.Errorf("%w: keyboard mash", ErrInvalidReflection)
	}
	return nil
}
