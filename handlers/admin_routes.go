package handlers

import (
	"time"

	"gamification-system/middleware"
	"gamification-system/models"
	"gamification-system/services"

	"github.com/gofiber/fiber/v2"
)

type AdminDeps struct {
	Ledger   *services.LedgerService
	Claims   *services.ClaimService
	Activity *services.ActivityService
	Members  *services.MemberService
}

type awardRequest struct {
	UserID      string  `json:"user_id"`
	Action      string  `json:"action"`
	Amount      int64   `json:"amount"`
	ReferenceID *string `json:"reference_id,omitempty"`
}

type poolRequest struct {
	Name      string     `json:"name"`
	Quota     int        `json:"quota"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type memberRequest struct {
	ExternalUserID string `json:"external_user_id"`
	Username       string `json:"username"`
}

// SetupAdminRoutes mounts operator endpoints under /s/admin.
func SetupAdminRoutes(app *fiber.App, deps AdminDeps) {
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	admin.Post("/points/award", func(c *fiber.Ctx) error {
		var req awardRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		entry, err := deps.Ledger.AwardPoints(c.UserContext(), req.UserID, models.PointAction(req.Action), req.Amount, req.ReferenceID)
		if err != nil {
			return writeError(c, "failed to award points", err)
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	})

	admin.Post("/points/:id/revert", func(c *fiber.Ctx) error {
		entry, err := deps.Ledger.RevertPoints(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, "failed to revert entry", err)
		}
		return c.JSON(entry)
	})

	admin.Post("/points/reconcile", func(c *fiber.Ctx) error {
		checked, repaired, err := deps.Ledger.Reconcile(c.UserContext())
		if err != nil {
			return writeError(c, "reconcile failed", err)
		}
		return c.JSON(fiber.Map{"checked": checked, "repaired": repaired})
	})

	admin.Post("/pools", func(c *fiber.Ctx) error {
		var req poolRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		pool, err := deps.Claims.CreatePool(c.UserContext(), req.Name, req.Quota, req.ExpiresAt)
		if err != nil {
			return writeError(c, "failed to create pool", err)
		}
		return c.Status(fiber.StatusCreated).JSON(pool)
	})

	admin.Post("/content/:id/publish", func(c *fiber.Ctx) error {
		entity, err := deps.Activity.Publish(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, "failed to publish content", err)
		}
		return c.JSON(entity)
	})

	admin.Get("/members", func(c *fiber.Ctx) error {
		limit, ok := queryInt(c, "limit", 50)
		if !ok {
			return badRequest(c, "limit must be an integer")
		}
		members, err := deps.Members.Search(c.UserContext(), c.Query("q"), limit)
		if err != nil {
			return writeError(c, "search failed", err)
		}
		return c.JSON(members)
	})

	admin.Post("/members", func(c *fiber.Ctx) error {
		var req memberRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
		member, err := deps.Members.EnsureMember(c.UserContext(), req.ExternalUserID, req.Username)
		if err != nil {
			return writeError(c, "failed to upsert member", err)
		}
		return c.JSON(member)
	})
}
