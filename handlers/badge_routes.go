// handlers/badge_routes.go
package handlers

import (
	"log"
	"strconv"
	"strings"

	"loyalty-points-system/middleware"
	"loyalty-points-system/models"
	"loyalty-points-system/services"
	"loyalty-points-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
)

func SetupBadgeRoutes(app *fiber.App, badgeService *services.BadgeService) {
	// 🌍 Public catalog — secret badges stay hidden until earned
	app.Get("/badges", func(c *fiber.Ctx) error {
		badges, err := badgeService.ListAvailable(false)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load badge catalog",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"badges": badges})
	})

	// 🔐 Secured routes
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/user/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		badges, err := badgeService.ListAccountBadges(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load earned badges",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"badges": badges, "count": len(badges)})
	})

	secured.Post("/badges/:code/check", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		code := strings.ToUpper(c.Params("code"))

		awarded, err := badgeService.CheckAndAward(userID, code)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "badge check failed",
				"cause": err.Error(),
			})
		}
		if awarded == nil {
			// not qualified, or already held — either way nothing changed
			return c.JSON(fiber.Map{"awarded": false})
		}
		return c.JSON(fiber.Map{"awarded": true, "badge": awarded})
	})

	// 👮 Admin routes
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	admin.Post("/badges/seed", func(c *fiber.Ctx) error {
		if err := badgeService.SeedDefaultBadges(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to seed badge catalog",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"seeded": true})
	})

	// Create a badge from a multipart form; optional icon file goes to R2.
	admin.Post("/badges", func(c *fiber.Ctx) error {
		badge := models.Badge{
			Name:            c.FormValue("name"),
			Description:     c.FormValue("description"),
			Icon:            c.FormValue("icon"),
			Color:           c.FormValue("color"),
			Rarity:          c.FormValue("rarity"),
			RequirementType: models.BadgeRequirement(c.FormValue("requirement_type")),
			IsSecret:        c.FormValue("is_secret") == "true",
			IsActive:        true,
		}
		if v, err := strconv.ParseInt(c.FormValue("requirement_value", "0"), 10, 64); err == nil {
			badge.RequirementValue = v
		}
		if v, err := strconv.ParseInt(c.FormValue("points_reward", "0"), 10, 64); err == nil {
			badge.PointsReward = v
		}
		if badge.Name == "" || badge.RequirementType == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name and requirement_type are required"})
		}

		badge.Code = strings.ToUpper(strings.ReplaceAll(slug.Make(badge.Name), "-", "_"))
		if custom := c.FormValue("code"); custom != "" {
			badge.Code = strings.ToUpper(custom)
		}

		if fileHeader, err := c.FormFile("icon_file"); err == nil {
			url, upErr := utils.UploadBadgeIcon(fileHeader, badge.Code)
			if upErr != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to upload badge icon",
					"cause": upErr.Error(),
				})
			}
			badge.IconURL = url
		}

		if err := badgeService.CreateBadge(&badge); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create badge",
				"cause": err.Error(),
			})
		}
		log.Printf("🏅 [BADGE] Created badge %s (%s)", badge.Code, badge.Name)
		return c.Status(fiber.StatusCreated).JSON(badge)
	})
}
