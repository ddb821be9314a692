package services

import (
	"fmt"
	"log"
	"time"

	"habit-quest-system/models"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultSubscriptionDays is applied when the reviewer doesn't supply a duration.
const DefaultSubscriptionDays = 30

type PaymentService struct {
	DB *gorm.DB
}

func NewPaymentService(db *gorm.DB) *PaymentService {
	return &PaymentService{DB: db}
}

// ReviewDecision is the reviewer's verdict on a proof
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

// ReviewResult lists the human-readable features activated by an approval.
// Notification dispatch is the caller's job.
type ReviewResult struct {
	ProofID           string   `json:"proof_id"`
	Status            string   `json:"status"`
	ActivatedFeatures []string `json:"activated_features"`
}

var featureTitler = cases.Title(language.English)

// SubmitTransaction records a UPI payment intent (user path).
func (s *PaymentService) SubmitTransaction(externalUserID string, itemType models.PaymentItemType, amount float64, upiReference string) (*models.PaymentTransaction, error) {
	switch itemType {
	case models.PaymentItemPremium, models.PaymentItemBooster, models.PaymentItemShield:
	default:
		return nil, fmt.Errorf("unknown item type %q", itemType)
	}
	txn := &models.PaymentTransaction{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		ItemType:       itemType,
		Amount:         amount,
		UPIReference:   upiReference,
		Currency:       "INR",
		Status:         models.PaymentStatusPending,
	}
	if err := s.DB.Create(txn).Error; err != nil {
		return nil, err
	}
	return txn, nil
}

// SubmitProof attaches user evidence to a pending transaction.
func (s *PaymentService) SubmitProof(transactionID, externalUserID, screenshotURL string) (*models.PaymentProof, error) {
	var txn models.PaymentTransaction
	if err := s.DB.Where("id = ? AND external_user_id = ?", transactionID, externalUserID).First(&txn).Error; err != nil {
		return nil, ErrNotFound
	}
	if txn.Status != models.PaymentStatusPending {
		return nil, ErrAlreadyReviewed
	}
	proof := &models.PaymentProof{
		ID:             uuid.NewString(),
		TransactionID:  transactionID,
		ExternalUserID: externalUserID,
		ScreenshotURL:  screenshotURL,
		Status:         models.ProofStatusPending,
	}
	if err := s.DB.Create(proof).Error; err != nil {
		return nil, err
	}
	return proof, nil
}

// PendingProofs lists proofs awaiting review (admin path).
func (s *PaymentService) PendingProofs() ([]models.PaymentProof, error) {
	var proofs []models.PaymentProof
	err := s.DB.Preload("Transaction").
		Where("status = ?", models.ProofStatusPending).
		Order("created_at ASC").
		Find(&proofs).Error
	return proofs, err
}

// ReviewProof turns an admin verdict into idempotent feature activation.
func (s *PaymentService) ReviewProof(proofID, reviewerID string, decision ReviewDecision, adminNote string, durationDays int) (*ReviewResult, error) {
	return s.ReviewProofAt(proofID, reviewerID, decision, adminNote, durationDays, time.Now())
}

// ReviewProofAt is ReviewProof with an injected clock.
//
// Approval runs proof + transaction + subscription/power-up + premium flag in
// ONE transaction, so core activation is all-or-nothing. Re-approving an
// already-approved proof is a success with no activated features, not an
// error. The premium badge fan-out runs after commit: if it fails the core
// activation stands and the caller gets ErrPartialActivation so operators can
// reconcile instead of a silent full-success. The audit row is best-effort:
// its failure is logged and swallowed.
func (s *PaymentService) ReviewProofAt(proofID, reviewerID string, decision ReviewDecision, adminNote string, durationDays int, now time.Time) (*ReviewResult, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, fmt.Errorf("unknown decision %q", decision)
	}
	if durationDays <= 0 {
		durationDays = DefaultSubscriptionDays
	}

	result := &ReviewResult{ProofID: proofID, ActivatedFeatures: []string{}}
	var userID string
	var premiumActivated bool

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var proof models.PaymentProof
		if err := tx.Preload("Transaction").Where("id = ?", proofID).First(&proof).Error; err != nil {
			return ErrNotFound
		}
		userID = proof.ExternalUserID

		switch proof.Status {
		case models.ProofStatusApproved:
			// Idempotent no-op: the prior approval already activated everything.
			result.Status = string(models.ProofStatusApproved)
			return nil
		case models.ProofStatusRejected:
			return ErrAlreadyReviewed
		}

		// Single-writer guard on the proof row itself.
		newStatus := models.ProofStatusApproved
		if decision == DecisionReject {
			newStatus = models.ProofStatusRejected
		}
		res := tx.Model(&models.PaymentProof{}).
			Where("id = ? AND status = ?", proofID, models.ProofStatusPending).
			Updates(map[string]interface{}{
				"status":      newStatus,
				"reviewed_by": reviewerID,
				"reviewed_at": now,
				"admin_note":  adminNote,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyReviewed
		}
		result.Status = string(newStatus)

		if decision == DecisionReject {
			return tx.Model(&models.PaymentTransaction{}).
				Where("id = ?", proof.TransactionID).
				Update("status", models.PaymentStatusRejected).Error
		}

		if err := tx.Model(&models.PaymentTransaction{}).
			Where("id = ?", proof.TransactionID).
			Update("status", models.PaymentStatusCompleted).Error; err != nil {
			return err
		}

		switch proof.Transaction.ItemType {
		case models.PaymentItemPremium:
			if err := s.activatePremium(tx, userID, durationDays, now); err != nil {
				return err
			}
			premiumActivated = true
			result.ActivatedFeatures = append(result.ActivatedFeatures,
				fmt.Sprintf("%s (%d days)", featureTitler.String("premium subscription"), durationDays))
		default:
			name, err := s.grantPowerUp(tx, userID, string(proof.Transaction.ItemType))
			if err != nil {
				return err
			}
			result.ActivatedFeatures = append(result.ActivatedFeatures, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Post-commit fan-out. Premium badges are idempotent upserts; a failure
	// here leaves the paid activation in place and surfaces distinctly.
	if premiumActivated {
		if err := NewBadgeService(s.DB).GrantPremiumBadges(userID); err != nil {
			log.Printf("❌ Premium badge fan-out failed for %s: %v", userID, err)
			return result, fmt.Errorf("%w: premium badges for %s: %v", ErrPartialActivation, userID, err)
		}
	}

	s.auditReview(proofID, reviewerID, result.Status, adminNote)
	return result, nil
}

// activatePremium upserts the one-per-user subscription (replacing, never
// stacking, the expiry) and flips the profile's premium flag.
func (s *PaymentService) activatePremium(tx *gorm.DB, externalUserID string, durationDays int, now time.Time) error {
	expiresAt := now.AddDate(0, 0, durationDays)
	sub := models.Subscription{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Plan:           "premium",
		ExpiresAt:      expiresAt,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"plan", "expires_at", "updated_at"}),
	}).Create(&sub).Error; err != nil {
		return err
	}

	return tx.Model(&models.UserProfile{}).
		Where("external_user_id = ?", externalUserID).
		Updates(map[string]interface{}{
			"premium_status":     true,
			"premium_expires_at": expiresAt,
		}).Error
}

// grantPowerUp adds one unit of the named power-up to the user's inventory
// and returns its display name.
func (s *PaymentService) grantPowerUp(tx *gorm.DB, externalUserID, code string) (string, error) {
	var put models.PowerUpType
	if err := tx.Where("code = ?", code).First(&put).Error; err != nil {
		return "", fmt.Errorf("unknown power-up %q: %w", code, err)
	}

	inv := models.UserPowerUp{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		PowerUpTypeID:  put.ID,
		Quantity:       1,
	}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}, {Name: "power_up_type_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"quantity": gorm.Expr("quantity + 1")}),
	}).Create(&inv).Error; err != nil {
		return "", err
	}
	return featureTitler.String(put.Name), nil
}

func (s *PaymentService) auditReview(proofID, reviewerID, status, note string) {
	entry := models.AuditLog{
		ID:        uuid.NewString(),
		ActorID:   reviewerID,
		Action:    "payment.review",
		SubjectID: proofID,
		Detail:    fmt.Sprintf(`{"status":%q,"note":%q}`, status, note),
	}
	if err := s.DB.Create(&entry).Error; err != nil {
		// Best-effort by contract: never let audit failure undo a review.
		log.Printf("⚠️ Audit log write failed for proof %s: %v", proofID, err)
	}
}
