package handlers

import (
	"errors"

	"habit-quest-system/middleware"
	"habit-quest-system/models"
	"habit-quest-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPaymentRoutes(app *fiber.App, paymentService *services.PaymentService) {
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	securedGroup.Post("/user/payments", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req struct {
			ItemType     models.PaymentItemType `json:"item_type" validate:"required,oneof=premium booster shield"`
			Amount       float64                `json:"amount" validate:"required,min=1"`
			UPIReference string                 `json:"upi_reference"`
		}
		if err := c.BodyParser(&req); err != nil || req.Amount <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		txn, err := paymentService.SubmitTransaction(userID, req.ItemType, req.Amount, req.UPIReference)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "failed to record payment",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(txn)
	})

	securedGroup.Post("/user/payments/:id/proof", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req struct {
			ScreenshotURL string `json:"screenshot_url" validate:"required,url"`
		}
		if err := c.BodyParser(&req); err != nil || req.ScreenshotURL == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "screenshot_url is required"})
		}

		proof, err := paymentService.SubmitProof(c.Params("id"), userID, req.ScreenshotURL)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "transaction not found"})
			case errors.Is(err, services.ErrAlreadyReviewed):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "transaction already settled"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to submit proof",
					"cause": err.Error(),
				})
			}
		}
		return c.Status(fiber.StatusCreated).JSON(proof)
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	adminGroup.Get("/payments/pending", func(c *fiber.Ctx) error {
		proofs, err := paymentService.PendingProofs()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list pending proofs",
				"cause": err.Error(),
			})
		}
		return c.JSON(proofs)
	})

	adminGroup.Post("/payments/:proofId/review", func(c *fiber.Ctx) error {
		reviewerID := c.Locals("user_id").(string)
		var req struct {
			Decision     services.ReviewDecision `json:"decision" validate:"required,oneof=approve reject"`
			AdminNote    string                  `json:"admin_note" validate:"max=500"`
			DurationDays int                     `json:"duration_days"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		result, err := paymentService.ReviewProof(c.Params("proofId"), reviewerID, req.Decision, req.AdminNote, req.DurationDays)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrNotFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "proof not found"})
			case errors.Is(err, services.ErrAlreadyReviewed):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "proof already reviewed"})
			case errors.Is(err, services.ErrPartialActivation):
				// Core activation committed; operators must reconcile the rest.
				return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
					"error":  "approval committed but feature fan-out incomplete",
					"cause":  err.Error(),
					"result": result,
				})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "review failed",
					"cause": err.Error(),
				})
			}
		}
		return c.JSON(result)
	})
}
