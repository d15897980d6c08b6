package routes

import (
	"github.com/mwangi254/farm_connect/handlers"
	"github.com/mwangi254/farm_connect/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func ChatRoutes(app *fiber.App) {
	api := app.Group("/api/chat", middleware.Protected())
	api.Get("/conversations", handlers.GetUserConversations)
	api.Post("/conversations/start", handlers.StartConversation)
	api.Get("/conversations/:conversationId/messages", handlers.GetConversationMessages)
	api.Post("/conversations/:conversationId/messages", handlers.PostConversationMessage)
	api.Get("/presence/:userId", handlers.GetUserPresence)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	app.Get("/ws", websocket.New(handlers.ServeWs))
}
