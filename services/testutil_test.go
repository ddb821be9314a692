package services

import (
	"testing"
	"time"

	"habit-quest-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A fresh connection would see a fresh :memory: database, so pin the pool
	// to a single connection for the lifetime of the test.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.UserProfile{},
		&models.Quest{},
		&models.QuestLogEntry{},
		&models.Challenge{},
		&models.ChallengeTeam{},
		&models.ChallengeParticipant{},
		&models.ChallengeInvite{},
		&models.ChallengeReward{},
		&models.PaymentTransaction{},
		&models.PaymentProof{},
		&models.Subscription{},
		&models.PowerUpType{},
		&models.UserPowerUp{},
		&models.BadgeType{},
		&models.UserBadge{},
		&models.AuditLog{},
	))
	require.NoError(t, SeedCatalog(db))
	return db
}

func createTestProfile(t *testing.T, db *gorm.DB, externalUserID string) *models.UserProfile {
	t.Helper()
	profile := &models.UserProfile{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Username:       externalUserID,
		Timezone:       "UTC",
		Level:          1,
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

func createTestQuest(t *testing.T, db *gorm.DB, baseXP int64) *models.Quest {
	t.Helper()
	quest := &models.Quest{
		ID:     uuid.NewString(),
		Title:  "test quest",
		BaseXP: baseXP,
		Active: true,
	}
	require.NoError(t, db.Create(quest).Error)
	return quest
}

func createTestLog(t *testing.T, db *gorm.DB, questID, externalUserID, localDate string, golden bool) *models.QuestLogEntry {
	t.Helper()
	entry := &models.QuestLogEntry{
		ID:             uuid.NewString(),
		QuestID:        questID,
		ExternalUserID: externalUserID,
		LocalDate:      localDate,
		Golden:         golden,
	}
	require.NoError(t, db.Create(entry).Error)
	return entry
}

func reloadProfile(t *testing.T, db *gorm.DB, externalUserID string) *models.UserProfile {
	t.Helper()
	var profile models.UserProfile
	require.NoError(t, db.Where("external_user_id = ?", externalUserID).First(&profile).Error)
	return &profile
}

func strptr(s string) *string { return &s }

func timeptr(tm time.Time) *time.Time { return &tm }
