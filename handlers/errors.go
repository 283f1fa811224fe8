package handlers

import (
	"errors"
	"log"
	"strconv"

	"gamification-system/services"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps service sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrConflict), errors.Is(err, services.ErrQuotaExceeded):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrExpired):
		return fiber.StatusGone
	}
	return fiber.StatusInternalServerError
}

func writeError(c *fiber.Ctx, msg string, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("❌ [HTTP] %s %s: %s: %v", c.Method(), c.Path(), msg, err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// queryInt reads a non-required integer query param.
func queryInt(c *fiber.Ctx, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
