package handlers

import (
	"github.com/mwangi254/farm_connect/websocket"
	"github.com/gofiber/fiber/v2"
)

// GetUserPresence reads the presence mirror for one user. The mirror is
// best-effort; a missing record reads as offline.
func GetUserPresence(c *fiber.Ctx) error {
	uid := c.Params("userId")
	if uid == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "userId required"})
	}
	return c.JSON(websocket.Presence.Lookup(c.Context(), uid))
}
