// handlers/progression_routes.go
package handlers

import (
	"strconv"

	"gamification-system/middleware"
	"gamification-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(app *fiber.App, progression *services.ProgressionService) {
	// 🔓 public
	app.Get("/levels/:points", func(c *fiber.Ctx) error {
		points, err := strconv.ParseInt(c.Params("points"), 10, 64)
		if err != nil {
			return badRequest(c, "points must be an integer")
		}
		return c.JSON(progression.Ledger.LevelForPoints(points))
	})

	// 🔐 user context from the gateway
	user := app.Group("/user", middleware.UserContextMiddleware())

	user.Get("/progress", func(c *fiber.Ctx) error {
		state, err := progression.State(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, "failed to load progress", err)
		}
		return c.JSON(state)
	})

	user.Get("/progress/history", func(c *fiber.Ctx) error {
		page, ok := queryInt(c, "page", 1)
		if !ok {
			return badRequest(c, "page must be an integer")
		}
		size, ok := queryInt(c, "size", 20)
		if !ok {
			return badRequest(c, "size must be an integer")
		}
		history, err := progression.Ledger.History(c.UserContext(), middleware.UserID(c), page, size)
		if err != nil {
			return writeError(c, "failed to load history", err)
		}
		return c.JSON(history)
	})

	user.Post("/badges/evaluate", func(c *fiber.Ctx) error {
		badges, err := progression.Badges.Evaluate(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return writeError(c, "failed to evaluate badges", err)
		}
		return c.JSON(fiber.Map{"badges": badges})
	})

	user.Post("/badges/:type/claim", func(c *fiber.Ctx) error {
		badge, err := progression.Badges.Acknowledge(c.UserContext(), middleware.UserID(c), c.Params("type"))
		if err != nil {
			return writeError(c, "failed to claim badge", err)
		}
		return c.JSON(badge)
	})
}
