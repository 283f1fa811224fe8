package handlers

import (
	"gamification-system/middleware"
	"gamification-system/services"

	"github.com/gofiber/fiber/v2"
)

type contentRequest struct {
	Title string `json:"title"`
}

type commentRequest struct {
	Body string `json:"body"`
}

func SetupActivityRoutes(app *fiber.App, activity *services.ActivityService) {
	content := app.Group("/content", middleware.UserContextMiddleware())

	content.Post("/", func(c *fiber.Ctx) error {
		var req contentRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		entity, err := activity.Post(c.UserContext(), middleware.UserID(c), req.Title)
		if err != nil {
			return writeError(c, "failed to create post", err)
		}
		return c.Status(fiber.StatusCreated).JSON(entity)
	})

	content.Post("/submissions", func(c *fiber.Ctx) error {
		var req contentRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		entity, err := activity.Submit(c.UserContext(), middleware.UserID(c), req.Title)
		if err != nil {
			return writeError(c, "failed to submit content", err)
		}
		return c.Status(fiber.StatusCreated).JSON(entity)
	})

	content.Post("/:id/vote", func(c *fiber.Ctx) error {
		in, err := activity.Vote(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return writeError(c, "failed to vote", err)
		}
		return c.Status(fiber.StatusCreated).JSON(in)
	})

	content.Delete("/:id/vote", func(c *fiber.Ctx) error {
		if err := activity.Unvote(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
			return writeError(c, "failed to remove vote", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	content.Post("/:id/comments", func(c *fiber.Ctx) error {
		var req commentRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		in, err := activity.Comment(c.UserContext(), middleware.UserID(c), c.Params("id"), req.Body)
		if err != nil {
			return writeError(c, "failed to comment", err)
		}
		return c.Status(fiber.StatusCreated).JSON(in)
	})

	content.Post("/:id/follow", func(c *fiber.Ctx) error {
		in, err := activity.Follow(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return writeError(c, "failed to follow", err)
		}
		return c.Status(fiber.StatusCreated).JSON(in)
	})

	content.Delete("/:id/follow", func(c *fiber.Ctx) error {
		if err := activity.Unfollow(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
			return writeError(c, "failed to unfollow", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	content.Post("/:id/view", func(c *fiber.Ctx) error {
		if err := activity.View(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
			return writeError(c, "failed to record view", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
