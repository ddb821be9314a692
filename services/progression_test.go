package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelForXP(t *testing.T) {
	// Curve: level n -> n+1 costs floor(100 * n^1.2).
	// 1->2 = 100, 2->3 = 229, 3->4 = 373.
	tests := []struct {
		totalXP int64
		level   int64
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{328, 2},
		{329, 3},
		{701, 3},
		{702, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, LevelForXP(tt.totalXP), "totalXP=%d", tt.totalXP)
	}
}

func TestEnsureProfile_Idempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db)

	first, err := svc.EnsureProfile("fresh-user")
	require.NoError(t, err)
	assert.Equal(t, "UTC", first.Timezone)
	assert.Equal(t, 1, first.Level)

	second, err := svc.EnsureProfile("fresh-user")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestGrantXP(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db)
	createTestProfile(t, db, "grantee")

	updated, err := svc.GrantXP("grantee", 100, "test grant")
	require.NoError(t, err)
	assert.Equal(t, int64(100), updated.TotalXP)
	assert.Equal(t, 2, updated.Level)
	assert.NotNil(t, updated.LastLevelUpAt)

	// Another grant stacks on the same curve.
	updated, err = svc.GrantXP("grantee", 229, "test grant")
	require.NoError(t, err)
	assert.Equal(t, int64(329), updated.TotalXP)
	assert.Equal(t, 3, updated.Level)
}

func TestGrantXP_RejectsNegative(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db)
	createTestProfile(t, db, "victim")

	_, err := svc.GrantXP("victim", -50, "clawback")
	assert.Error(t, err)
	assert.Equal(t, int64(0), reloadProfile(t, db, "victim").TotalXP)
}

func TestGrantXP_UnknownProfile(t *testing.T) {
	db := newTestDB(t)
	svc := NewProgressionService(db)

	_, err := svc.GrantXP("ghost", 10, "nobody home")
	assert.ErrorIs(t, err, ErrNotFound)
}
