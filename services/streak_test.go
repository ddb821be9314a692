package services

import (
	"testing"
	"time"

	"habit-quest-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestLocalDay(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 20:00 UTC is already the next calendar day in IST (+05:30).
	instant := time.Date(2024, 1, 10, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-10", LocalDay(instant, time.UTC))
	assert.Equal(t, "2024-01-11", LocalDay(instant, kolkata))
}

func TestNextDay(t *testing.T) {
	assert.Equal(t, "2024-01-11", NextDay("2024-01-10", time.UTC))
	assert.Equal(t, "2024-02-01", NextDay("2024-01-31", time.UTC))
	assert.Equal(t, "2024-02-29", NextDay("2024-02-28", time.UTC)) // leap year
	assert.Equal(t, "bogus", NextDay("bogus", time.UTC))
}

func TestAdvanceStreak(t *testing.T) {
	now := time.Date(2024, 1, 14, 12, 0, 0, 0, time.UTC)

	t.Run("first completion starts the streak", func(t *testing.T) {
		profile := &models.UserProfile{Timezone: "UTC"}
		AdvanceStreak(profile, "2024-01-14", now)
		assert.Equal(t, 1, profile.Streak)
		assert.Equal(t, 1, profile.LongestStreak)
		require.NotNil(t, profile.LastQuestDate)
		assert.Equal(t, "2024-01-14", *profile.LastQuestDate)
	})

	t.Run("same day is a no-op", func(t *testing.T) {
		profile := &models.UserProfile{Timezone: "UTC", Streak: 4, LongestStreak: 4, LastQuestDate: strptr("2024-01-14")}
		AdvanceStreak(profile, "2024-01-14", now)
		assert.Equal(t, 4, profile.Streak)
		assert.Nil(t, profile.LastStreakCount)
	})

	t.Run("next day increments", func(t *testing.T) {
		profile := &models.UserProfile{Timezone: "UTC", Streak: 4, LongestStreak: 4, LastQuestDate: strptr("2024-01-13")}
		AdvanceStreak(profile, "2024-01-14", now)
		assert.Equal(t, 5, profile.Streak)
		assert.Equal(t, 5, profile.LongestStreak)
		assert.Equal(t, "2024-01-14", *profile.LastQuestDate)
	})

	t.Run("gap without freeze snapshots and resets", func(t *testing.T) {
		profile := &models.UserProfile{Timezone: "UTC", Streak: 9, LongestStreak: 9, LastQuestDate: strptr("2024-01-10")}
		AdvanceStreak(profile, "2024-01-14", now)
		assert.Equal(t, 1, profile.Streak)
		assert.Equal(t, 9, profile.LongestStreak)
		require.NotNil(t, profile.LastStreakCount)
		assert.Equal(t, 9, *profile.LastStreakCount)
		require.NotNil(t, profile.StreakLostAt)
		assert.Equal(t, now, *profile.StreakLostAt)
	})

	t.Run("gap with live freeze counts as contiguous and consumes it", func(t *testing.T) {
		profile := &models.UserProfile{
			Timezone:            "UTC",
			Streak:              9,
			LongestStreak:       9,
			LastQuestDate:       strptr("2024-01-12"),
			StreakFreezeActive:  true,
			StreakFreezeExpires: timeptr(now.Add(time.Hour)),
		}
		AdvanceStreak(profile, "2024-01-14", now)
		assert.Equal(t, 10, profile.Streak)
		assert.False(t, profile.StreakFreezeActive)
		assert.Nil(t, profile.StreakFreezeExpires)
		assert.Nil(t, profile.LastStreakCount)
	})

	t.Run("expired freeze does not absorb the gap", func(t *testing.T) {
		profile := &models.UserProfile{
			Timezone:            "UTC",
			Streak:              9,
			LongestStreak:       9,
			LastQuestDate:       strptr("2024-01-12"),
			StreakFreezeActive:  true,
			StreakFreezeExpires: timeptr(now.Add(-time.Hour)),
		}
		AdvanceStreak(profile, "2024-01-14", now)
		assert.Equal(t, 1, profile.Streak)
		require.NotNil(t, profile.LastStreakCount)
		assert.Equal(t, 9, *profile.LastStreakCount)
	})

	t.Run("backdated completion never rewinds the ledger", func(t *testing.T) {
		profile := &models.UserProfile{Timezone: "UTC", Streak: 4, LongestStreak: 4, LastQuestDate: strptr("2024-01-14")}
		AdvanceStreak(profile, "2024-01-12", now)
		assert.Equal(t, 4, profile.Streak)
		assert.Equal(t, "2024-01-14", *profile.LastQuestDate)
	})
}

func grantShields(t *testing.T, db *gorm.DB, externalUserID string, quantity int) {
	t.Helper()
	var shield models.PowerUpType
	require.NoError(t, db.Where("code = ?", "shield").First(&shield).Error)
	require.NoError(t, db.Create(&models.UserPowerUp{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		PowerUpTypeID:  shield.ID,
		Quantity:       quantity,
	}).Error)
}

func TestRestoreStreak(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("spends a shield and adds the snapshot back", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewStreakService(db)
		profile := createTestProfile(t, db, "user-restore")
		require.NoError(t, db.Model(profile).Updates(map[string]interface{}{
			"streak":            1,
			"longest_streak":    6,
			"last_streak_count": 6,
			"streak_lost_at":    now.Add(-2 * time.Hour),
		}).Error)
		grantShields(t, db, "user-restore", 1)

		restored, err := svc.RestoreStreak("user-restore", now)
		require.NoError(t, err)
		assert.Equal(t, 7, restored.Streak)
		assert.Equal(t, 7, restored.LongestStreak)
		assert.Nil(t, restored.LastStreakCount)
		assert.Nil(t, restored.StreakLostAt)

		var inv models.UserPowerUp
		require.NoError(t, db.Where("external_user_id = ?", "user-restore").First(&inv).Error)
		assert.Equal(t, 0, inv.Quantity)

		// Snapshot cleared, so a replay has nothing to restore.
		_, err = svc.RestoreStreak("user-restore", now)
		assert.ErrorIs(t, err, ErrRecoveryExpired)
	})

	t.Run("fails without a shield in inventory", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewStreakService(db)
		profile := createTestProfile(t, db, "user-no-shield")
		require.NoError(t, db.Model(profile).Updates(map[string]interface{}{
			"streak":            1,
			"last_streak_count": 4,
			"streak_lost_at":    now.Add(-time.Hour),
		}).Error)

		_, err := svc.RestoreStreak("user-no-shield", now)
		assert.ErrorIs(t, err, ErrNoPowerUp)

		updated := reloadProfile(t, db, "user-no-shield")
		assert.Equal(t, 1, updated.Streak)
		assert.NotNil(t, updated.LastStreakCount)
	})

	t.Run("fails outside the recovery window", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewStreakService(db)
		profile := createTestProfile(t, db, "user-late")
		require.NoError(t, db.Model(profile).Updates(map[string]interface{}{
			"streak":            1,
			"last_streak_count": 12,
			"streak_lost_at":    now.Add(-RecoveryWindow - time.Minute),
		}).Error)
		grantShields(t, db, "user-late", 1)

		_, err := svc.RestoreStreak("user-late", now)
		assert.ErrorIs(t, err, ErrRecoveryExpired)

		var inv models.UserPowerUp
		require.NoError(t, db.Where("external_user_id = ?", "user-late").First(&inv).Error)
		assert.Equal(t, 1, inv.Quantity, "shield must not be spent on a failed restore")
	})
}
