// handlers/loyalty_routes.go
package handlers

import (
	"errors"
	"strconv"
	"time"

	"loyalty-points-system/middleware"
	"loyalty-points-system/models"
	"loyalty-points-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLoyaltyRoutes(app *fiber.App, ledger *services.LedgerService, orderEvents *services.OrderEventService) {
	// 🌍 Public routes — no user context required
	app.Get("/tiers", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"tiers": services.TierLadder})
	})

	// 🔐 Secured routes — require user context (userID, roles)
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/user/loyalty", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit, _ := strconv.Atoi(c.Query("recent", "10"))

		summary, err := ledger.GetSummary(userID, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load loyalty summary",
				"cause": err.Error(),
			})
		}
		return c.JSON(summary)
	})

	secured.Get("/user/loyalty/transactions", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))

		txns, total, err := ledger.GetTransactions(userID, page, size)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load transactions",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"transactions": txns,
			"total":        total,
			"page":         page,
			"size":         size,
		})
	})

	// Earning entry point — called by internal services through the Gateway
	// (order pipeline, review moderation) and by admins for manual grants.
	secured.Post("/points/award", func(c *fiber.Ctx) error {
		var body struct {
			AccountID   string            `json:"account_id"`
			Points      int64             `json:"points"`
			Action      string            `json:"action"`
			RefType     string            `json:"reference_type"`
			RefID       string            `json:"reference_id"`
			Description string            `json:"description"`
			Metadata    map[string]string `json:"metadata"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if body.AccountID == "" {
			body.AccountID, _ = c.Locals("user_id").(string)
		}
		if body.AccountID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "account_id is required"})
		}
		action := models.PointsAction(body.Action)
		if action == "" {
			action = models.ActionPurchase
		}

		result, err := ledger.Award(body.AccountID, body.Points, action, body.RefType, body.RefID, body.Description, body.Metadata)
		if err != nil {
			if errors.Is(err, services.ErrNonPositiveAmount) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "points must be positive"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to award points",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	secured.Post("/points/redeem", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var body struct {
			Points      int64  `json:"points"`
			RewardCode  string `json:"reward_code"`
			ReferenceID string `json:"reference_id"`
			Description string `json:"description"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		var result *services.RedeemResult
		var err error
		if body.RewardCode != "" {
			result, err = ledger.RedeemForReward(userID, body.RewardCode)
		} else {
			result, err = ledger.Redeem(userID, body.Points, "REDEMPTION", body.ReferenceID, body.Description)
		}
		if err != nil {
			switch {
			case errors.Is(err, services.ErrInsufficientPoints):
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "insufficient points"})
			case errors.Is(err, services.ErrRewardUnavailable):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "reward is not available"})
			case errors.Is(err, services.ErrUnknownAccount):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no loyalty ledger for this account"})
			case errors.Is(err, services.ErrNonPositiveAmount):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "points must be positive"})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "redemption failed",
					"cause": err.Error(),
				})
			}
		}
		return c.JSON(result)
	})

	// 📦 Event ingestion — the Gateway forwards commerce events here
	secured.Post("/events/order-completed", func(c *fiber.Ctx) error {
		var body struct {
			AccountID   string `json:"account_id"`
			OrderID     string `json:"order_id"`
			TotalCents  int64  `json:"total_cents"`
			CompletedAt string `json:"completed_at"` // RFC3339, defaults to now
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if body.AccountID == "" {
			body.AccountID, _ = c.Locals("user_id").(string)
		}
		if body.AccountID == "" || body.OrderID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "account_id and order_id are required"})
		}

		completedAt := time.Now().UTC()
		if body.CompletedAt != "" {
			parsed, err := time.Parse(time.RFC3339, body.CompletedAt)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "completed_at must be RFC3339"})
			}
			completedAt = parsed
		}

		result, err := orderEvents.ProcessOrderCompleted(body.AccountID, body.OrderID, body.TotalCents, completedAt)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to process order event",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	secured.Post("/events/review-approved", func(c *fiber.Ctx) error {
		var body struct {
			AccountID string `json:"account_id"`
			ReviewID  string `json:"review_id"`
			WithPhoto bool   `json:"with_photo"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if body.AccountID == "" {
			body.AccountID, _ = c.Locals("user_id").(string)
		}
		if body.AccountID == "" || body.ReviewID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "account_id and review_id are required"})
		}

		result, err := orderEvents.ProcessReviewApproved(body.AccountID, body.ReviewID, body.WithPhoto)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to process review event",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})

	// 👮 Admin routes
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	admin.Post("/points/adjust", func(c *fiber.Ctx) error {
		var body struct {
			AccountID string `json:"account_id"`
			Delta     int64  `json:"delta"`
			Reason    string `json:"reason"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
		if body.AccountID == "" || body.Delta == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "account_id and a non-zero delta are required"})
		}

		txn, err := ledger.AdjustPoints(body.AccountID, body.Delta, body.Reason)
		if err != nil {
			if errors.Is(err, services.ErrInsufficientPoints) {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "adjustment would drive balance negative"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to adjust points",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"transaction": txn})
	})

	admin.Get("/accounts/:id/verify", func(c *fiber.Ctx) error {
		accountID := c.Params("id")
		if err := ledger.VerifyAccount(accountID); err != nil {
			if errors.Is(err, services.ErrUnknownAccount) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no loyalty ledger for this account"})
			}
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "ledger verification failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"account_id": accountID, "verified": true})
	})
}
