package handlers

import (
	"errors"
	"time"

	"habit-quest-system/middleware"
	"habit-quest-system/models"
	"habit-quest-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupChallengeRoutes(app *fiber.App, challengeService *services.ChallengeService) {
	app.Get("/challenges", func(c *fiber.Ctx) error {
		challenges, err := challengeService.ActiveChallenges(time.Now())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list challenges",
				"cause": err.Error(),
			})
		}
		return c.JSON(challenges)
	})

	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	securedGroup.Get("/user/challenges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		participations, err := challengeService.UserChallenges(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list participations",
				"cause": err.Error(),
			})
		}
		return c.JSON(participations)
	})

	securedGroup.Post("/user/challenges/:id/join", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		participant, err := challengeService.JoinChallenge(c.Params("id"), userID)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrAlreadyJoined):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already joined this challenge"})
			case errors.Is(err, services.ErrNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "challenge not found"})
			case errors.Is(err, services.ErrInviteNotAccepted):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "duo challenges are joined through invites"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "join failed",
					"cause": err.Error(),
				})
			}
		}
		return c.Status(fiber.StatusCreated).JSON(participant)
	})

	securedGroup.Post("/user/challenges/:id/invite", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req struct {
			InviteeID string `json:"invitee_id" validate:"required"`
		}
		if err := c.BodyParser(&req); err != nil || req.InviteeID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invitee_id is required"})
		}
		invite, err := challengeService.InviteDuo(c.Params("id"), userID, req.InviteeID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "challenge not found"})
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invite failed",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(invite)
	})

	securedGroup.Post("/user/challenges/invites/:id/accept", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		team, err := challengeService.AcceptDuoInvite(c.Params("id"), userID, time.Now())
		if err != nil {
			switch {
			case errors.Is(err, services.ErrNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "invite not found"})
			case errors.Is(err, services.ErrInviteNotAccepted):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "invite is no longer pending"})
			case errors.Is(err, services.ErrAlreadyJoined):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "one of the partners already joined"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "accept failed",
					"cause": err.Error(),
				})
			}
		}
		return c.Status(fiber.StatusCreated).JSON(team)
	})

	securedGroup.Post("/user/challenges/:id/teams", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req struct {
			Name       string `json:"name" validate:"required"`
			MaxMembers int    `json:"max_members"`
		}
		if err := c.BodyParser(&req); err != nil || req.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
		}
		if req.MaxMembers <= 0 {
			req.MaxMembers = 10
		}

		team, err := challengeService.CreateTeam(c.Params("id"), req.Name, req.MaxMembers)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "challenge not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create team",
				"cause": err.Error(),
			})
		}

		// The creator joins their own team right away.
		if _, err := challengeService.JoinTeam(team.ID, userID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "team created but join failed",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(team)
	})

	securedGroup.Post("/user/challenges/teams/:teamId/join", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		participant, err := challengeService.JoinTeam(c.Params("teamId"), userID)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrTeamFull):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "team is full"})
			case errors.Is(err, services.ErrAlreadyJoined):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "already joined this challenge"})
			case errors.Is(err, services.ErrNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "team not found"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "join failed",
					"cause": err.Error(),
				})
			}
		}
		return c.Status(fiber.StatusCreated).JSON(participant)
	})

	securedGroup.Post("/user/challenges/sync", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		updates, err := challengeService.SyncProgress(userID, time.Now())
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "profile not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "sync failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(updates)
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	adminGroup.Post("/challenges", func(c *fiber.Ctx) error {
		var req struct {
			Title           string               `json:"title" validate:"required"`
			Description     string               `json:"description"`
			ChallengeType   models.ChallengeType `json:"challenge_type"`
			TargetType      models.TargetType    `json:"target_type" validate:"required,oneof=quests xp streak"`
			TargetValue     int64                `json:"target_value" validate:"required,min=1"`
			RewardXP        int64                `json:"reward_xp"`
			RewardBadgeCode string               `json:"reward_badge_code"`
			StartsAt        *time.Time           `json:"starts_at"`
			EndsAt          *time.Time           `json:"ends_at"`
		}
		if err := c.BodyParser(&req); err != nil || req.Title == "" || req.TargetValue <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.ChallengeType == "" {
			req.ChallengeType = models.ChallengeTypeSolo
		}
		startsAt := time.Now()
		if req.StartsAt != nil {
			startsAt = *req.StartsAt
		}

		challenge := models.Challenge{
			Title:           req.Title,
			Description:     req.Description,
			ChallengeType:   req.ChallengeType,
			TargetType:      req.TargetType,
			TargetValue:     req.TargetValue,
			RewardXP:        req.RewardXP,
			RewardBadgeCode: req.RewardBadgeCode,
			StartsAt:        startsAt,
			EndsAt:          req.EndsAt,
			Active:          true,
		}
		if err := challengeService.CreateChallenge(&challenge); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create challenge",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(challenge)
	})
}
