package services

import (
	"fmt"
	"log"
	"time"

	"habit-quest-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChallengeService struct {
	DB *gorm.DB
}

func NewChallengeService(db *gorm.DB) *ChallengeService {
	return &ChallengeService{DB: db}
}

// ProgressUpdate is one reconciled participation, returned from SyncProgress.
type ProgressUpdate struct {
	ChallengeID string `json:"challenge_id"`
	Progress    int64  `json:"progress"`
	Target      int64  `json:"target"`
	Completed   bool   `json:"completed"`
	RewardXP    int64  `json:"reward_xp,omitempty"`
	RewardBadge string `json:"reward_badge,omitempty"`
}

// CreateChallenge registers a new challenge with a shareable slug derived
// from the title (admin path).
func (s *ChallengeService) CreateChallenge(c *models.Challenge) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Slug == "" {
		c.Slug = slug.Make(c.Title)
	}
	if c.TargetValue <= 0 {
		return fmt.Errorf("target_value must be positive")
	}
	return s.DB.Create(c).Error
}

// JoinChallenge snapshots the caller's live counters as the participation
// baseline. Progress is measured from here, never from absolute counters.
func (s *ChallengeService) JoinChallenge(challengeID, externalUserID string) (*models.ChallengeParticipant, error) {
	var challenge models.Challenge
	if err := s.DB.Where("id = ? AND active = ?", challengeID, true).First(&challenge).Error; err != nil {
		return nil, ErrNotFound
	}
	if challenge.ChallengeType == models.ChallengeTypeDuo {
		return nil, fmt.Errorf("duo challenges are joined through invites: %w", ErrInviteNotAccepted)
	}

	var profile models.UserProfile
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&profile).Error; err != nil {
		return nil, ErrNotFound
	}

	participant := newParticipant(challengeID, &profile, nil)
	res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(participant)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAlreadyJoined
	}
	return participant, nil
}

// JoinTeam adds the caller to an existing team of a team challenge, with
// their own baseline snapshot taken at join time.
func (s *ChallengeService) JoinTeam(teamID, externalUserID string) (*models.ChallengeParticipant, error) {
	var participant *models.ChallengeParticipant
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var team models.ChallengeTeam
		if err := tx.Where("id = ?", teamID).First(&team).Error; err != nil {
			return ErrNotFound
		}

		var members int64
		if err := tx.Model(&models.ChallengeParticipant{}).
			Where("team_id = ?", teamID).Count(&members).Error; err != nil {
			return err
		}
		if members >= int64(team.MaxMembers) {
			return ErrTeamFull
		}

		var profile models.UserProfile
		if err := tx.Where("external_user_id = ?", externalUserID).First(&profile).Error; err != nil {
			return ErrNotFound
		}

		participant = newParticipant(team.ChallengeID, &profile, &team.ID)
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(participant)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyJoined
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return participant, nil
}

// CreateTeam opens a team for a team challenge. Duo teams are clamped to two
// members by the model hook no matter what max_members was requested.
func (s *ChallengeService) CreateTeam(challengeID, name string, maxMembers int) (*models.ChallengeTeam, error) {
	var challenge models.Challenge
	if err := s.DB.Where("id = ? AND active = ?", challengeID, true).First(&challenge).Error; err != nil {
		return nil, ErrNotFound
	}
	team := &models.ChallengeTeam{
		ID:          uuid.NewString(),
		ChallengeID: challengeID,
		Name:        name,
		TeamType:    challenge.ChallengeType,
		MaxMembers:  maxMembers,
	}
	if err := s.DB.Create(team).Error; err != nil {
		return nil, err
	}
	return team, nil
}

// InviteDuo opens the duo handshake. The pair only becomes participants once
// the invitee accepts.
func (s *ChallengeService) InviteDuo(challengeID, inviterID, inviteeID string) (*models.ChallengeInvite, error) {
	var challenge models.Challenge
	if err := s.DB.Where("id = ? AND active = ?", challengeID, true).First(&challenge).Error; err != nil {
		return nil, ErrNotFound
	}
	if challenge.ChallengeType != models.ChallengeTypeDuo {
		return nil, fmt.Errorf("challenge %s is not a duo challenge", challengeID)
	}
	if inviterID == inviteeID {
		return nil, fmt.Errorf("cannot invite yourself")
	}

	invite := &models.ChallengeInvite{
		ID:          uuid.NewString(),
		ChallengeID: challengeID,
		InviterID:   inviterID,
		InviteeID:   inviteeID,
	}
	if err := s.DB.Create(invite).Error; err != nil {
		return nil, err
	}
	return invite, nil
}

// AcceptDuoInvite is the compound duo join: the invite flips to accepted and
// BOTH participant rows are created atomically, each with its own baseline
// snapshot. If anything fails, neither partner is joined.
func (s *ChallengeService) AcceptDuoInvite(inviteID, inviteeID string, now time.Time) (*models.ChallengeTeam, error) {
	var team *models.ChallengeTeam
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var invite models.ChallengeInvite
		if err := tx.Where("id = ? AND invitee_id = ?", inviteID, inviteeID).First(&invite).Error; err != nil {
			return ErrNotFound
		}
		if invite.Status != models.InviteStatusPending {
			return ErrInviteNotAccepted
		}

		invite.Status = models.InviteStatusAccepted
		invite.RespondedAt = &now
		if err := tx.Save(&invite).Error; err != nil {
			return err
		}

		team = &models.ChallengeTeam{
			ID:          uuid.NewString(),
			ChallengeID: invite.ChallengeID,
			Name:        "duo",
			TeamType:    models.ChallengeTypeDuo,
			MaxMembers:  2,
		}
		if err := tx.Create(team).Error; err != nil {
			return err
		}

		for _, userID := range []string{invite.InviterID, invite.InviteeID} {
			var profile models.UserProfile
			if err := tx.Where("external_user_id = ?", userID).First(&profile).Error; err != nil {
				return fmt.Errorf("profile missing for %s: %w", userID, ErrNotFound)
			}
			participant := newParticipant(invite.ChallengeID, &profile, &team.ID)
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(participant)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrAlreadyJoined
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// SyncProgress reconciles every active participation of the user against the
// live counters.
//
// Progress is max(0, live − baseline). Crossing the target marks the
// participation completed and issues the reward exactly once: the reward
// audit row's unique index is the guard, and hitting it is treated as
// "already rewarded", not an error. Completed participations are frozen.
//
// Duo semantics: both partners must individually reach the target; the sync
// that observes the second partner crossing rewards both. Team semantics:
// member deltas are aggregated, one reward per team.
func (s *ChallengeService) SyncProgress(externalUserID string, now time.Time) ([]ProgressUpdate, error) {
	var profile models.UserProfile
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&profile).Error; err != nil {
		return nil, ErrNotFound
	}

	var participations []models.ChallengeParticipant
	if err := s.DB.Preload("Challenge").
		Where("external_user_id = ? AND completed = ?", externalUserID, false).
		Find(&participations).Error; err != nil {
		return nil, err
	}

	updates := make([]ProgressUpdate, 0, len(participations))
	for i := range participations {
		p := &participations[i]
		update, err := s.reconcileOne(p, &profile, now)
		if err != nil {
			log.Printf("⚠️ Challenge sync failed for %s/%s: %v", p.ChallengeID, externalUserID, err)
			continue
		}
		updates = append(updates, *update)
	}
	return updates, nil
}

func (s *ChallengeService) reconcileOne(p *models.ChallengeParticipant, profile *models.UserProfile, now time.Time) (*ProgressUpdate, error) {
	challenge := p.Challenge
	progress := liveDelta(p, profile, challenge.TargetType)

	update := &ProgressUpdate{
		ChallengeID: challenge.ID,
		Progress:    progress,
		Target:      challenge.TargetValue,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		p.CurrentProgress = progress
		if err := tx.Model(p).Update("current_progress", progress).Error; err != nil {
			return err
		}

		// Team progress is the sum of member deltas, so a member below the
		// target can still tip the team over. Evaluate the aggregate on every
		// sync instead of gating on the individual delta.
		if challenge.ChallengeType == models.ChallengeTypeTeam && p.TeamID != nil {
			return s.settleTeam(tx, &challenge, p, update, now)
		}

		if progress < challenge.TargetValue {
			return nil
		}

		p.Completed = true
		p.CompletedAt = &now
		if err := tx.Model(p).Updates(map[string]interface{}{
			"current_progress": progress,
			"completed":        true,
			"completed_at":     now,
		}).Error; err != nil {
			return err
		}
		update.Completed = true

		switch challenge.ChallengeType {
		case models.ChallengeTypeDuo:
			return s.settleDuo(tx, &challenge, p, update, now)
		case models.ChallengeTypeTeam:
			return s.settleTeam(tx, &challenge, p, update, now)
		default:
			return s.issueReward(tx, &challenge, p.ExternalUserID, []string{p.ExternalUserID}, update, now)
		}
	})
	if err != nil {
		return nil, err
	}
	return update, nil
}

// settleDuo rewards both partners once each has individually crossed the
// target. Each partner's reward is keyed by their own user id, so retries
// and partner-side syncs stay idempotent.
func (s *ChallengeService) settleDuo(tx *gorm.DB, challenge *models.Challenge, p *models.ChallengeParticipant, update *ProgressUpdate, now time.Time) error {
	if p.TeamID == nil {
		return s.issueReward(tx, challenge, p.ExternalUserID, []string{p.ExternalUserID}, update, now)
	}

	var partners []models.ChallengeParticipant
	if err := tx.Where("team_id = ?", *p.TeamID).Find(&partners).Error; err != nil {
		return err
	}
	for _, partner := range partners {
		if !partner.Completed && partner.ExternalUserID != p.ExternalUserID {
			return nil // waiting on the other half
		}
	}

	for _, partner := range partners {
		if err := s.issueReward(tx, challenge, partner.ExternalUserID, []string{partner.ExternalUserID}, update, now); err != nil {
			return err
		}
	}
	return nil
}

// settleTeam aggregates member deltas against their join-time baselines and,
// once the sum crosses the target, completes every member and issues one
// team-keyed reward paying out to all members.
func (s *ChallengeService) settleTeam(tx *gorm.DB, challenge *models.Challenge, p *models.ChallengeParticipant, update *ProgressUpdate, now time.Time) error {
	if p.TeamID == nil {
		return s.issueReward(tx, challenge, p.ExternalUserID, []string{p.ExternalUserID}, update, now)
	}

	var members []models.ChallengeParticipant
	if err := tx.Where("team_id = ?", *p.TeamID).Find(&members).Error; err != nil {
		return err
	}

	var teamProgress int64
	recipients := make([]string, 0, len(members))
	for _, m := range members {
		var mp models.UserProfile
		if err := tx.Where("external_user_id = ?", m.ExternalUserID).First(&mp).Error; err != nil {
			return err
		}
		teamProgress += liveDelta(&m, &mp, challenge.TargetType)
		recipients = append(recipients, m.ExternalUserID)
	}
	update.Progress = teamProgress
	if teamProgress < challenge.TargetValue {
		return nil
	}
	update.Completed = true

	if err := tx.Model(&models.ChallengeTeam{}).
		Where("id = ? AND completed = ?", *p.TeamID, false).
		Updates(map[string]interface{}{"completed": true, "completed_at": now}).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.ChallengeParticipant{}).
		Where("team_id = ? AND completed = ?", *p.TeamID, false).
		Updates(map[string]interface{}{"completed": true, "completed_at": now}).Error; err != nil {
		return err
	}
	return s.issueReward(tx, challenge, *p.TeamID, recipients, update, now)
}

// issueReward grants the challenge reward exactly once per subject. The
// insert-or-skip on the reward audit row is the only guard needed: a conflict
// means some earlier sync already paid out.
func (s *ChallengeService) issueReward(tx *gorm.DB, challenge *models.Challenge, subjectID string, recipients []string, update *ProgressUpdate, now time.Time) error {
	reward := models.ChallengeReward{
		ID:          uuid.NewString(),
		ChallengeID: challenge.ID,
		SubjectID:   subjectID,
		XPGranted:   challenge.RewardXP,
		BadgeCode:   challenge.RewardBadgeCode,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reward)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil // already rewarded
	}

	for _, userID := range recipients {
		if challenge.RewardXP > 0 {
			if err := grantXPTx(tx, userID, challenge.RewardXP, now); err != nil {
				return err
			}
		}
		if challenge.RewardBadgeCode != "" {
			if err := grantBadgeByCodeTx(tx, userID, challenge.RewardBadgeCode, fmt.Sprintf(`{"challenge_id":%q}`, challenge.ID)); err != nil {
				return err
			}
		}
	}

	update.RewardXP = challenge.RewardXP
	update.RewardBadge = challenge.RewardBadgeCode
	log.Printf("🏆 Challenge reward issued: challenge=%s subject=%s xp=%d", challenge.ID, subjectID, challenge.RewardXP)
	return nil
}

// UserChallenges lists all participations (active and completed) for display.
func (s *ChallengeService) UserChallenges(externalUserID string) ([]models.ChallengeParticipant, error) {
	var participations []models.ChallengeParticipant
	err := s.DB.Preload("Challenge").
		Where("external_user_id = ?", externalUserID).
		Order("joined_at DESC").
		Find(&participations).Error
	return participations, err
}

// ActiveChallenges lists joinable challenges with participant counts.
func (s *ChallengeService) ActiveChallenges(now time.Time) ([]models.Challenge, error) {
	var challenges []models.Challenge
	if err := s.DB.
		Where("active = ? AND starts_at <= ? AND (ends_at IS NULL OR ends_at >= ?)", true, now, now).
		Order("starts_at DESC").
		Find(&challenges).Error; err != nil {
		return nil, err
	}
	for i := range challenges {
		s.DB.Model(&models.ChallengeParticipant{}).
			Where("challenge_id = ?", challenges[i].ID).
			Count(&challenges[i].ParticipantCount)
	}
	return challenges, nil
}

func newParticipant(challengeID string, profile *models.UserProfile, teamID *string) *models.ChallengeParticipant {
	return &models.ChallengeParticipant{
		ID:             uuid.NewString(),
		ChallengeID:    challengeID,
		ExternalUserID: profile.ExternalUserID,
		TeamID:         teamID,
		BaselineQuests: profile.TotalQuestsCompleted,
		BaselineXP:     profile.TotalXP,
		BaselineStreak: int64(profile.Streak),
	}
}

// liveDelta is the clamped baseline-vs-live delta for one participant.
func liveDelta(p *models.ChallengeParticipant, profile *models.UserProfile, target models.TargetType) int64 {
	var live, baseline int64
	switch target {
	case models.TargetXP:
		live, baseline = profile.TotalXP, p.BaselineXP
	case models.TargetStreak:
		live, baseline = int64(profile.Streak), p.BaselineStreak
	default:
		live, baseline = profile.TotalQuestsCompleted, p.BaselineQuests
	}
	if delta := live - baseline; delta > 0 {
		return delta
	}
	return 0
}

// grantXPTx adds XP and relevels inside an existing transaction.
func grantXPTx(tx *gorm.DB, externalUserID string, xp int64, now time.Time) error {
	var profile models.UserProfile
	if err := tx.Where("external_user_id = ?", externalUserID).First(&profile).Error; err != nil {
		return err
	}
	profile.TotalXP += xp
	applyLevelUps(&profile, now)
	return tx.Save(&profile).Error
}

// grantBadgeByCodeTx awards a badge by code inside an existing transaction,
// skipping unknown codes and duplicates.
func grantBadgeByCodeTx(tx *gorm.DB, externalUserID, code, metadata string) error {
	var badge models.BadgeType
	if err := tx.Where("code = ?", code).First(&badge).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			log.Printf("⚠️ Unknown reward badge code %q, skipping", code)
			return nil
		}
		return err
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.UserBadge{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		BadgeTypeID:    badge.ID,
		Metadata:       metadata,
	})
	return res.Error
}
