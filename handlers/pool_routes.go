package handlers

import (
	"gamification-system/middleware"
	"gamification-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupPoolRoutes(app *fiber.App, claims *services.ClaimService) {
	pools := app.Group("/pools", middleware.UserContextMiddleware())

	pools.Get("/:id", func(c *fiber.Ctx) error {
		summary, err := claims.Pool(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, "failed to load pool", err)
		}
		return c.JSON(summary)
	})

	pools.Post("/:id/claim", func(c *fiber.Ctx) error {
		result, err := claims.Claim(c.UserContext(), c.Params("id"), middleware.UserID(c))
		if err != nil {
			return writeError(c, "failed to claim", err)
		}
		if err := result.Err(); err != nil {
			return c.Status(statusFor(err)).JSON(fiber.Map{
				"error":   "claim rejected",
				"outcome": result.Outcome,
			})
		}
		return c.Status(fiber.StatusCreated).JSON(result)
	})
}
