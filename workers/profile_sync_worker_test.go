package workers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"habit-quest-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newWorkerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.UserProfile{}))
	return db
}

func accountServer(t *testing.T, users []RemoteAccount, wantToken string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantToken, r.Header.Get("X-Service-Token"))
		assert.NotEmpty(t, r.URL.Query().Get("since"))
		_ = json.NewEncoder(w).Encode(GetAccountChangesResponse{Users: users})
	}))
}

func TestSyncBatch_CreatesAndUpdatesProfiles(t *testing.T) {
	db := newWorkerTestDB(t)
	now := time.Now()

	server := accountServer(t, []RemoteAccount{
		{ExternalID: "acct-1", Username: "ravi", Email: "ravi@example.com", Timezone: "Asia/Kolkata", UpdatedAt: now},
		{ExternalID: "acct-2", Username: "mira", Email: "mira@example.com", UpdatedAt: now},
	}, "token-123")
	defer server.Close()

	w := NewProfileSyncWorker(db, server.URL, "/api/v1/public/profiles", "token-123")
	require.NoError(t, w.syncBatch(context.Background(), time.Time{}))

	var ravi models.UserProfile
	require.NoError(t, db.Where("external_user_id = ?", "acct-1").First(&ravi).Error)
	assert.Equal(t, "ravi", ravi.Username)
	assert.Equal(t, "Asia/Kolkata", ravi.Timezone)
	assert.Equal(t, 1, ravi.Level)

	var mira models.UserProfile
	require.NoError(t, db.Where("external_user_id = ?", "acct-2").First(&mira).Error)
	assert.Equal(t, "UTC", mira.Timezone, "missing timezone falls back to UTC")

	// Second poll with a rename: identity columns update in place.
	renamed := accountServer(t, []RemoteAccount{
		{ExternalID: "acct-1", Username: "ravi-k", Email: "ravi@example.com", Timezone: "Asia/Kolkata", UpdatedAt: now},
	}, "token-123")
	defer renamed.Close()
	w2 := NewProfileSyncWorker(db, renamed.URL, "/api/v1/public/profiles", "token-123")
	require.NoError(t, w2.syncBatch(context.Background(), now))

	var count int64
	require.NoError(t, db.Model(&models.UserProfile{}).Where("external_user_id = ?", "acct-1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, db.Where("external_user_id = ?", "acct-1").First(&ravi).Error)
	assert.Equal(t, "ravi-k", ravi.Username)
}

func TestSyncBatch_NeverTouchesProgression(t *testing.T) {
	db := newWorkerTestDB(t)
	now := time.Now()

	require.NoError(t, db.Create(&models.UserProfile{
		ID:             uuid.NewString(),
		ExternalUserID: "acct-3",
		Username:       "asha",
		Timezone:       "UTC",
		TotalXP:        900,
		Level:          4,
		Streak:         12,
		LongestStreak:  12,
	}).Error)

	server := accountServer(t, []RemoteAccount{
		{ExternalID: "acct-3", Username: "asha-new", Timezone: "Europe/Berlin", UpdatedAt: now},
	}, "tok")
	defer server.Close()

	w := NewProfileSyncWorker(db, server.URL, "/api/v1/public/profiles", "tok")
	require.NoError(t, w.syncBatch(context.Background(), time.Time{}))

	var profile models.UserProfile
	require.NoError(t, db.Where("external_user_id = ?", "acct-3").First(&profile).Error)
	assert.Equal(t, "asha-new", profile.Username)
	assert.Equal(t, "Europe/Berlin", profile.Timezone)
	assert.Equal(t, int64(900), profile.TotalXP, "sync must never clobber XP")
	assert.Equal(t, 4, profile.Level)
	assert.Equal(t, 12, profile.Streak)
}

func TestSyncBatch_Non200IsAnError(t *testing.T) {
	db := newWorkerTestDB(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	w := NewProfileSyncWorker(db, server.URL, "/api/v1/public/profiles", "tok")
	assert.Error(t, w.syncBatch(context.Background(), time.Time{}))
}
