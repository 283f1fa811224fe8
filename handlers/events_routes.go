package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gamification-system/middleware"
	"gamification-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupEventRoutes streams the caller's gamification events as SSE.
func SetupEventRoutes(app *fiber.App, hub *services.Hub) {
	app.Get("/user/events", middleware.UserContextMiddleware(), func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)

		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no") // nginx

		events, cancel := hub.Subscribe(userID)
		done := c.Context().Done()

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer cancel()
			keepalive := time.NewTicker(15 * time.Second)
			defer keepalive.Stop()

			w.WriteString(":\n\n")
			if err := w.Flush(); err != nil {
				return
			}

			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return
					}
					payload, err := json.Marshal(ev)
					if err != nil {
						log.Printf("SSE encode error for user %s: %v", userID, err)
						continue
					}
					fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
					if err := w.Flush(); err != nil {
						// client disconnected
						return
					}
				case <-keepalive.C:
					w.WriteString(":\n\n")
					if err := w.Flush(); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		})
		return nil
	})
}
