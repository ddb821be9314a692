package services

import (
	"log"
	"time"

	"habit-quest-system/models"

	"gorm.io/gorm"
)

// DateLayout is the canonical local-day format stored on profiles and logs.
const DateLayout = "2006-01-02"

// RecoveryWindow bounds how long a lost streak stays restorable.
const RecoveryWindow = 48 * time.Hour

// LocalDay renders an instant as a calendar day in the given location. All
// streak arithmetic goes through the profile's timezone, never the client's.
func LocalDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// NextDay returns the calendar day after d (d in DateLayout, interpreted in loc).
func NextDay(d string, loc *time.Location) string {
	t, err := time.ParseInLocation(DateLayout, d, loc)
	if err != nil {
		return d
	}
	return t.AddDate(0, 0, 1).Format(DateLayout)
}

// AdvanceStreak applies one registered completion on completionDate (a local
// calendar day) to the profile's streak fields. It mutates the profile only;
// persisting is the caller's job, inside the same transaction as the rest of
// the completion.
//
//   - same day as last completion: no-op (the one-time completion guard
//     upstream prevents this from ever carrying XP twice)
//   - exactly the next day: streak += 1
//   - wider gap with a live freeze: counted as contiguous, freeze consumed
//   - wider gap otherwise: old count snapshotted for the recovery window,
//     streak restarts at 1
func AdvanceStreak(profile *models.UserProfile, completionDate string, now time.Time) {
	loc := profile.Location()

	if profile.LastQuestDate == nil || *profile.LastQuestDate == "" {
		profile.Streak = 1
		profile.LastQuestDate = &completionDate
		bumpLongest(profile)
		return
	}

	last := *profile.LastQuestDate
	switch {
	case completionDate == last:
		return
	case completionDate == NextDay(last, loc):
		profile.Streak++
	case completionDate > last:
		if profile.FreezeLive(now) {
			profile.Streak++
			profile.StreakFreezeActive = false
			profile.StreakFreezeExpires = nil
		} else {
			lost := profile.Streak
			lostAt := now
			profile.LastStreakCount = &lost
			profile.StreakLostAt = &lostAt
			profile.Streak = 1
		}
	default:
		// Backdated completion: counts toward totals upstream but never
		// rewinds the ledger.
		return
	}

	profile.LastQuestDate = &completionDate
	bumpLongest(profile)
}

func bumpLongest(profile *models.UserProfile) {
	if profile.Streak > profile.LongestStreak {
		profile.LongestStreak = profile.Streak
	}
}

type StreakService struct {
	DB *gorm.DB
}

func NewStreakService(db *gorm.DB) *StreakService {
	return &StreakService{DB: db}
}

// RestoreStreak spends one streak shield to recover a freshly lost streak.
// The snapshot taken at loss time is added back on top of the current run,
// then cleared so the restore cannot be replayed.
func (s *StreakService) RestoreStreak(externalUserID string, now time.Time) (*models.UserProfile, error) {
	var updated *models.UserProfile
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var profile models.UserProfile
		if err := tx.Where("external_user_id = ?", externalUserID).First(&profile).Error; err != nil {
			return ErrNotFound
		}
		if profile.StreakLostAt == nil || profile.LastStreakCount == nil {
			return ErrRecoveryExpired
		}
		if now.Sub(*profile.StreakLostAt) > RecoveryWindow {
			return ErrRecoveryExpired
		}

		var shield models.PowerUpType
		if err := tx.Where("code = ?", "shield").First(&shield).Error; err != nil {
			return err
		}

		// Single-writer decrement: only succeeds while a unit remains.
		res := tx.Model(&models.UserPowerUp{}).
			Where("external_user_id = ? AND power_up_type_id = ? AND quantity > 0", externalUserID, shield.ID).
			UpdateColumn("quantity", gorm.Expr("quantity - 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNoPowerUp
		}

		profile.Streak += *profile.LastStreakCount
		profile.LastStreakCount = nil
		profile.StreakLostAt = nil
		bumpLongest(&profile)

		if err := tx.Save(&profile).Error; err != nil {
			return err
		}

		updated = &models.UserProfile{}
		*updated = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🛟 Streak restored: %s → streak=%d", externalUserID, updated.Streak)
	return updated, nil
}
