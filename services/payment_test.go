package services

import (
	"testing"
	"time"

	"habit-quest-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func submitPendingProof(t *testing.T, svc *PaymentService, userID string, item models.PaymentItemType) *models.PaymentProof {
	t.Helper()
	txn, err := svc.SubmitTransaction(userID, item, 99.0, "upi-ref-123")
	require.NoError(t, err)
	proof, err := svc.SubmitProof(txn.ID, userID, "https://cdn.example.com/proof.png")
	require.NoError(t, err)
	return proof
}

func userBadgeCount(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.UserBadge{}).Where("external_user_id = ?", userID).Count(&n).Error)
	return n
}

func TestSubmitTransaction_RejectsUnknownItem(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db)

	_, err := svc.SubmitTransaction("buyer", "jetpack", 99.0, "")
	assert.Error(t, err)
}

func TestSubmitProof_RequiresPendingTransaction(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db)
	createTestProfile(t, db, "prover")

	_, err := svc.SubmitProof("no-such-txn", "prover", "https://cdn.example.com/x.png")
	assert.ErrorIs(t, err, ErrNotFound)

	proof := submitPendingProof(t, svc, "prover", models.PaymentItemBooster)
	_, err = svc.ReviewProofAt(proof.ID, "admin-1", DecisionApprove, "", 0, time.Now())
	require.NoError(t, err)

	var txn models.PaymentTransaction
	require.NoError(t, db.First(&txn, "id = ?", proof.TransactionID).Error)
	_, err = svc.SubmitProof(txn.ID, "prover", "https://cdn.example.com/y.png")
	assert.ErrorIs(t, err, ErrAlreadyReviewed, "settled transactions take no more proofs")
}

func TestReviewProof_PremiumApproval(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	createTestProfile(t, db, "premium-buyer")
	proof := submitPendingProof(t, svc, "premium-buyer", models.PaymentItemPremium)

	result, err := svc.ReviewProofAt(proof.ID, "admin-1", DecisionApprove, "looks legit", 0, now)
	require.NoError(t, err)
	assert.Equal(t, string(models.ProofStatusApproved), result.Status)
	require.Len(t, result.ActivatedFeatures, 1)
	assert.Contains(t, result.ActivatedFeatures[0], "30 days")

	var txn models.PaymentTransaction
	require.NoError(t, db.First(&txn, "id = ?", proof.TransactionID).Error)
	assert.Equal(t, models.PaymentStatusCompleted, txn.Status)

	var sub models.Subscription
	require.NoError(t, db.Where("external_user_id = ?", "premium-buyer").First(&sub).Error)
	assert.WithinDuration(t, now.AddDate(0, 0, DefaultSubscriptionDays), sub.ExpiresAt, time.Second)

	profile := reloadProfile(t, db, "premium-buyer")
	assert.True(t, profile.PremiumStatus)
	require.NotNil(t, profile.PremiumExpiresAt)

	// Both premium-only badges land with the activation.
	assert.Equal(t, int64(2), userBadgeCount(t, db, "premium-buyer"))

	var audits int64
	require.NoError(t, db.Model(&models.AuditLog{}).
		Where("action = ? AND subject_id = ?", "payment.review", proof.ID).Count(&audits).Error)
	assert.Equal(t, int64(1), audits)
}

func TestReviewProof_ReapprovalIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	createTestProfile(t, db, "repeat-buyer")
	proof := submitPendingProof(t, svc, "repeat-buyer", models.PaymentItemPremium)

	_, err := svc.ReviewProofAt(proof.ID, "admin-1", DecisionApprove, "", 0, now)
	require.NoError(t, err)

	// Replayed approval: success, but nothing new activates.
	result, err := svc.ReviewProofAt(proof.ID, "admin-2", DecisionApprove, "", 0, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, string(models.ProofStatusApproved), result.Status)
	assert.Empty(t, result.ActivatedFeatures)

	var subs int64
	require.NoError(t, db.Model(&models.Subscription{}).
		Where("external_user_id = ?", "repeat-buyer").Count(&subs).Error)
	assert.Equal(t, int64(1), subs, "subscription row stays singular")
	assert.Equal(t, int64(2), userBadgeCount(t, db, "repeat-buyer"), "no duplicate badges")
}

func TestReviewProof_Reject(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db)
	now := time.Now()

	createTestProfile(t, db, "rejected-buyer")
	proof := submitPendingProof(t, svc, "rejected-buyer", models.PaymentItemPremium)

	result, err := svc.ReviewProofAt(proof.ID, "admin-1", DecisionReject, "screenshot mismatch", 0, now)
	require.NoError(t, err)
	assert.Equal(t, string(models.ProofStatusRejected), result.Status)
	assert.Empty(t, result.ActivatedFeatures)

	var txn models.PaymentTransaction
	require.NoError(t, db.First(&txn, "id = ?", proof.TransactionID).Error)
	assert.Equal(t, models.PaymentStatusRejected, txn.Status)

	assert.False(t, reloadProfile(t, db, "rejected-buyer").PremiumStatus)
	var subs int64
	require.NoError(t, db.Model(&models.Subscription{}).
		Where("external_user_id = ?", "rejected-buyer").Count(&subs).Error)
	assert.Equal(t, int64(0), subs)

	// A rejected proof is terminal, approval cannot resurrect it.
	_, err = svc.ReviewProofAt(proof.ID, "admin-2", DecisionApprove, "", 0, now)
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
}

func TestReviewProof_PowerUpApprovalsStackInventory(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db)
	now := time.Now()

	createTestProfile(t, db, "collector")

	for i := 0; i < 2; i++ {
		proof := submitPendingProof(t, svc, "collector", models.PaymentItemBooster)
		result, err := svc.ReviewProofAt(proof.ID, "admin-1", DecisionApprove, "", 0, now)
		require.NoError(t, err)
		require.Len(t, result.ActivatedFeatures, 1)
		assert.Contains(t, result.ActivatedFeatures[0], "Booster")
	}

	var booster models.PowerUpType
	require.NoError(t, db.Where("code = ?", "booster").First(&booster).Error)
	var inv models.UserPowerUp
	require.NoError(t, db.Where("external_user_id = ? AND power_up_type_id = ?", "collector", booster.ID).
		First(&inv).Error)
	assert.Equal(t, 2, inv.Quantity, "separate purchases stack on one inventory row")
}

func TestReviewProof_UnknownDecision(t *testing.T) {
	db := newTestDB(t)
	svc := NewPaymentService(db)

	_, err := svc.ReviewProofAt("any", "admin-1", "shrug", "", 0, time.Now())
	assert.Error(t, err)
}
