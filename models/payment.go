package models

import (
	"time"
)

// PaymentItemType is what the user paid for
type PaymentItemType string

const (
	PaymentItemPremium PaymentItemType = "premium"
	PaymentItemBooster PaymentItemType = "booster"
	PaymentItemShield  PaymentItemType = "shield"
)

// PaymentStatus for the transaction row
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRejected  PaymentStatus = "rejected"
)

// ProofStatus for the manually reviewed proof row
type ProofStatus string

const (
	ProofStatusPending  ProofStatus = "pending"
	ProofStatusApproved ProofStatus = "approved"
	ProofStatusRejected ProofStatus = "rejected"
)

// PaymentTransaction records an out-of-band UPI payment intent. It reaches a
// terminal state exactly once, driven by the proof review.
type PaymentTransaction struct {
	ID             string          `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string          `gorm:"not null;index" json:"external_user_id"`
	ItemType       PaymentItemType `gorm:"type:varchar(16);not null" json:"item_type"`
	Amount         float64         `json:"amount"`
	Currency       string          `gorm:"type:varchar(8);default:'INR'" json:"currency"`
	UPIReference   string          `gorm:"column:upi_reference" json:"upi_reference,omitempty"`
	Status         PaymentStatus   `gorm:"type:varchar(12);default:'pending';index" json:"status"`

	Timestamps
}

// PaymentProof is user-submitted evidence for a transaction, subject to admin
// review. ScreenshotURL is an opaque reference; storage/signing lives in
// another service.
type PaymentProof struct {
	ID             string      `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	TransactionID  string      `gorm:"not null;index" json:"transaction_id"`
	ExternalUserID string      `gorm:"not null;index" json:"external_user_id"`
	ScreenshotURL  string      `gorm:"type:text" json:"screenshot_url"`
	Status         ProofStatus `gorm:"type:varchar(12);default:'pending';index" json:"status"`
	ReviewedBy     *string     `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time  `json:"reviewed_at,omitempty"`
	AdminNote      string      `gorm:"type:text" json:"admin_note,omitempty"`

	Timestamps

	Transaction PaymentTransaction `json:"transaction,omitempty" gorm:"foreignKey:TransactionID"`
}

// Subscription is the premium entitlement. One row per user: approval
// upserts on external_user_id and replaces the expiry, it never stacks.
type Subscription struct {
	ID             string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string    `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Plan           string    `gorm:"type:varchar(32);default:'premium'" json:"plan"`
	ExpiresAt      time.Time `json:"expires_at"`

	Timestamps
}

// PowerUpType: static catalog (seeded at boot)
type PowerUpType struct {
	ID           string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Code         string `gorm:"uniqueIndex;not null" json:"code"` // "booster", "shield"
	Name         string `gorm:"not null" json:"name"`
	Description  string `json:"description"`
	DurationDays int    `json:"duration_days" gorm:"default:1"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// UserPowerUp is per-user inventory, one row per power-up type.
type UserPowerUp struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"not null;uniqueIndex:idx_user_powerup" json:"external_user_id"`
	PowerUpTypeID  string `gorm:"not null;uniqueIndex:idx_user_powerup" json:"power_up_type_id"`
	Quantity       int    `json:"quantity" gorm:"default:0"`

	Timestamps

	PowerUpType PowerUpType `json:"power_up_type,omitempty" gorm:"foreignKey:PowerUpTypeID"`
}

// DefaultPowerUps seeds the catalog (insert-if-absent at boot)
var DefaultPowerUps = []PowerUpType{
	{
		Code:         "booster",
		Name:         "XP Booster",
		Description:  "Doubles XP from completions while active",
		DurationDays: 1,
	},
	{
		Code:         "shield",
		Name:         "Streak Shield",
		Description:  "Absorbs one missed day, or restores a freshly lost streak",
		DurationDays: 2,
	},
}
