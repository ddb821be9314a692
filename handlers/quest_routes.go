package handlers

import (
	"errors"
	"time"

	"habit-quest-system/middleware"
	"habit-quest-system/models"
	"habit-quest-system/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func SetupQuestRoutes(app *fiber.App, questService *services.QuestService, streakService *services.StreakService, progressionService *services.ProgressionService, badgeService *services.BadgeService) {
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	securedGroup.Get("/user/profile", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		profile, err := progressionService.EnsureProfile(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load profile",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"id":                     profile.ID,
			"xp":                     profile.TotalXP,
			"level":                  profile.Level,
			"streak":                 profile.Streak,
			"longest_streak":         profile.LongestStreak,
			"total_quests_completed": profile.TotalQuestsCompleted,
			"last_quest_date":        profile.LastQuestDate,
			"streak_lost_at":         profile.StreakLostAt,
			"last_streak_count":      profile.LastStreakCount,
			"premium_status":         profile.PremiumStatus,
			"premium_expires_at":     profile.PremiumExpiresAt,
			"xp_booster_active":      profile.XPBoosterActive,
			"streak_freeze_active":   profile.StreakFreezeActive,
			"last_level_up_at":       profile.LastLevelUpAt,
		})
	})

	securedGroup.Get("/user/quests/today", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		entries, err := questService.TodayEntries(userID, time.Now())
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "profile not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch today's quests",
				"cause": err.Error(),
			})
		}
		return c.JSON(entries)
	})

	securedGroup.Post("/user/quests/:logId/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		logID := c.Params("logId")

		var req struct {
			ReflectionText string `json:"reflection_text"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		result, err := questService.CompleteQuest(logID, userID, req.ReflectionText)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrInvalidReflection):
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
					"error": "reflection rejected",
					"cause": err.Error(),
				})
			case errors.Is(err, services.ErrAlreadyCompleted):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "quest already completed"})
			case errors.Is(err, services.ErrNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "quest log not found"})
			case errors.Is(err, services.ErrQuestInactive):
				return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "quest is no longer active"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "completion failed",
					"cause": err.Error(),
				})
			}
		}
		return c.JSON(result)
	})

	securedGroup.Post("/user/streak/restore", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		profile, err := streakService.RestoreStreak(userID, time.Now())
		if err != nil {
			switch {
			case errors.Is(err, services.ErrRecoveryExpired):
				return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": "recovery window has expired"})
			case errors.Is(err, services.ErrNoPowerUp):
				return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{"error": "no streak shield available"})
			case errors.Is(err, services.ErrNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "profile not found"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "restore failed",
					"cause": err.Error(),
				})
			}
		}
		return c.JSON(fiber.Map{
			"message": "streak restored",
			"streak":  profile.Streak,
		})
	})

	securedGroup.Get("/user/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		badges, err := badgeService.UserBadges(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get badges",
				"cause": err.Error(),
			})
		}
		return c.JSON(badges)
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id" validate:"required,uuid"`
			XP     int64  `json:"xp" validate:"required,min=1"`
			Reason string `json:"reason" validate:"max=255"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		if _, err := progressionService.GrantXP(req.UserID, req.XP, req.Reason); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "XP grant failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message": "XP granted successfully",
			"user_id": req.UserID,
			"xp":      req.XP,
		})
	})

	adminGroup.Post("/quests", func(c *fiber.Ctx) error {
		var req struct {
			Title       string `json:"title" validate:"required"`
			Description string `json:"description"`
			Category    string `json:"category"`
			BaseXP      int64  `json:"base_xp"`
		}
		if err := c.BodyParser(&req); err != nil || req.Title == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if req.BaseXP <= 0 {
			req.BaseXP = services.DefaultXPWeights.QuestXP
		}
		quest := models.Quest{
			ID:          uuid.NewString(),
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
			BaseXP:      req.BaseXP,
			Active:      true,
		}
		if err := questService.DB.Create(&quest).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create quest",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(quest)
	})
}
