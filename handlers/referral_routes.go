// handlers/referral_routes.go
package handlers

import (
	"strings"

	"loyalty-points-system/middleware"
	"loyalty-points-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupReferralRoutes(app *fiber.App, referralService *services.ReferralService) {
	// 🌍 Public — landing pages ping this when a referral link is opened
	app.Post("/referrals/:code/click", func(c *fiber.Ctx) error {
		code := strings.ToUpper(c.Params("code"))
		found, err := referralService.TrackClick(code)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to record click",
				"cause": err.Error(),
			})
		}
		if !found {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown referral code"})
		}
		return c.JSON(fiber.Map{"tracked": true})
	})

	// 🔐 Secured routes
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/user/referral/code", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		referral, err := referralService.GetOrCreateCode(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get referral code",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"code":        referral.Code,
			"status":      referral.Status,
			"click_count": referral.ClickCount,
		})
	})

	secured.Get("/user/referral/stats", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		stats, referrals, err := referralService.GetStats(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load referral stats",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"stats": stats, "referrals": referrals})
	})

	// Referral lifecycle events from other services: REGISTERED / PURCHASE /
	// CANCELLED. Invalid transitions come back success=false, never an error.
	secured.Post("/referrals/events", func(c *fiber.Ctx) error {
		var body struct {
			Code             string `json:"code"`
			Stage            string `json:"stage"`
			RefereeAccountID string `json:"referee_account_id"`
			AmountCents      int64  `json:"amount_cents"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if body.Stage == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "stage is required"})
		}

		result, err := referralService.ProcessEvent(
			strings.ToUpper(body.Code),
			strings.ToUpper(body.Stage),
			body.RefereeAccountID,
			body.AmountCents,
		)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to process referral event",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	// 👮 Admin routes
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	admin.Post("/referrals/:code/cancel", func(c *fiber.Ctx) error {
		code := strings.ToUpper(c.Params("code"))
		result, err := referralService.Cancel(code)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to cancel referral",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})
}
