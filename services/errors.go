package services

import "errors"

// Sentinel errors surfaced to handlers. Idempotent re-runs (re-approving an
// approved proof, re-syncing a rewarded challenge) are NOT errors, they
// return the prior result.
var (
	ErrNotFound          = errors.New("record not found")
	ErrAlreadyCompleted  = errors.New("quest log already completed")
	ErrInvalidReflection = errors.New("reflection text rejected")
	ErrQuestInactive     = errors.New("quest is not active")
	ErrAlreadyJoined     = errors.New("already participating in challenge")
	ErrInviteNotAccepted = errors.New("duo invite has not been accepted")
	ErrTeamFull          = errors.New("team is full")
	ErrAlreadyReviewed   = errors.New("proof already reached a terminal state")
	ErrPartialActivation = errors.New("payment approved but feature fan-out incomplete")
	ErrRecoveryExpired   = errors.New("streak recovery window has expired")
	ErrNoPowerUp         = errors.New("no units of this power-up in inventory")
)
