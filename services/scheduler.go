package services

import (
	"log"
	"time"

	"habit-quest-system/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GoldenLotterySize is how many profiles get a golden quest armed per draw.
const GoldenLotterySize = 25

// StartDailyCycle runs the recurring jobs: daily quest assignment, the
// golden quest lottery and the power-up expiry sweep.
func (s *QuestService) StartDailyCycle() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every 30 minutes: assign daily quests to profiles whose local day has
	// rolled over. Frequent enough that no timezone waits more than half an
	// hour past midnight.
	_, _ = sched.NewJob(
		gocron.DurationJob(30*time.Minute),
		gocron.NewTask(func() {
			if err := s.AssignDailyQuests(time.Now()); err != nil {
				log.Printf("[Scheduler] Daily assignment error: %v", err)
			}
		}),
	)

	// Every 6 hours: golden quest lottery.
	_, _ = sched.NewJob(
		gocron.DurationJob(6*time.Hour),
		gocron.NewTask(func() {
			if err := s.RunGoldenLottery(GoldenLotterySize); err != nil {
				log.Printf("[Scheduler] Golden lottery error: %v", err)
			}
		}),
	)

	// Every minute: expire lapsed boosters, freezes and premium flags.
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if err := s.SweepExpirations(time.Now()); err != nil {
				log.Printf("[Scheduler] Expiry sweep error: %v", err)
			}
		}),
	)
}

// AssignDailyQuests creates one pending quest log entry per profile for the
// profile's current local day. Re-runs are harmless: a profile that already
// has an entry for the day is skipped. A pending golden flag is consumed by
// the assignment it lands on.
func (s *QuestService) AssignDailyQuests(now time.Time) error {
	var quests []models.Quest
	if err := s.DB.Where("active = ?", true).Find(&quests).Error; err != nil {
		return err
	}
	if len(quests) == 0 {
		log.Printf("[Scheduler] No active quests to assign")
		return nil
	}

	var profiles []models.UserProfile
	if err := s.DB.Find(&profiles).Error; err != nil {
		return err
	}

	assigned := 0
	for i := range profiles {
		profile := &profiles[i]
		day := LocalDay(now, profile.Location())

		var existing int64
		if err := s.DB.Model(&models.QuestLogEntry{}).
			Where("external_user_id = ? AND local_date = ?", profile.ExternalUserID, day).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			continue
		}

		quest := quests[pickIndex(profile.ExternalUserID+day, len(quests))]
		entry := models.QuestLogEntry{
			ID:             uuid.NewString(),
			QuestID:        quest.ID,
			ExternalUserID: profile.ExternalUserID,
			LocalDate:      day,
			Golden:         profile.GoldenQuestPending,
		}

		err := s.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
			if profile.GoldenQuestPending {
				return tx.Model(&models.UserProfile{}).
					Where("id = ?", profile.ID).
					Update("golden_quest_pending", false).Error
			}
			return nil
		})
		if err != nil {
			log.Printf("[Scheduler] Failed to assign quest to %s: %v", profile.ExternalUserID, err)
			continue
		}
		assigned++
	}

	if assigned > 0 {
		log.Printf("✨ Assigned %d daily quest(s)", assigned)
	}
	return nil
}

// RunGoldenLottery arms golden_quest_pending on a random subset of profiles.
// The flag is consumed by the next daily assignment.
func (s *QuestService) RunGoldenLottery(count int) error {
	var ids []string
	if err := s.DB.Model(&models.UserProfile{}).
		Where("golden_quest_pending = ?", false).
		Order("RANDOM()").
		Limit(count).
		Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.DB.Model(&models.UserProfile{}).
		Where("id IN ?", ids).
		Update("golden_quest_pending", true).Error; err != nil {
		return err
	}
	log.Printf("🌟 Golden quest armed for %d user(s)", len(ids))
	return nil
}

// SweepExpirations clears lapsed boosters, freezes and premium flags.
func (s *QuestService) SweepExpirations(now time.Time) error {
	if err := s.DB.Model(&models.UserProfile{}).
		Where("xp_booster_active = ? AND xp_booster_expires_at < ?", true, now).
		Updates(map[string]interface{}{"xp_booster_active": false, "xp_booster_expires_at": nil}).Error; err != nil {
		return err
	}
	if err := s.DB.Model(&models.UserProfile{}).
		Where("streak_freeze_active = ? AND streak_freeze_expires_at < ?", true, now).
		Updates(map[string]interface{}{"streak_freeze_active": false, "streak_freeze_expires_at": nil}).Error; err != nil {
		return err
	}
	return s.DB.Model(&models.UserProfile{}).
		Where("premium_status = ? AND premium_expires_at < ?", true, now).
		Update("premium_status", false).Error
}

// pickIndex is a cheap deterministic spread so the same user+day always maps
// to the same quest even across scheduler restarts.
func pickIndex(seed string, n int) int {
	var h uint32 = 2166136261
	for i := 0; i < len(seed); i++ {
		h ^= uint32(seed[i])
		h *= 16777619
	}
	return int(h % uint32(n))
}
