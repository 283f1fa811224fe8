package handlers

import (
	"gamification-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLeaderboardRoutes(app *fiber.App, boards *services.LeaderboardService) {
	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		take, ok := queryInt(c, "take", 10)
		if !ok {
			return badRequest(c, "take must be an integer")
		}
		window := services.Window(c.Query("window", string(services.WindowWeekly)))
		entries, err := boards.GetLeaderboard(c.UserContext(), window, take)
		if err != nil {
			return writeError(c, "failed to load leaderboard", err)
		}
		return c.JSON(fiber.Map{
			"window":  window,
			"entries": entries,
		})
	})
}
