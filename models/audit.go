package models

import (
	"time"
)

// AuditLog records admin-side actions (payment reviews, manual XP grants).
// Writes are best-effort after the primary transaction commits: a failed
// audit write is logged and swallowed, it never rolls back the action.
type AuditLog struct {
	ID        string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ActorID   string    `gorm:"index" json:"actor_id"`
	Action    string    `gorm:"type:varchar(64);not null;index" json:"action"` // e.g., "payment.approve"
	SubjectID string    `gorm:"index" json:"subject_id"`
	Detail    string    `gorm:"type:jsonb" json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
