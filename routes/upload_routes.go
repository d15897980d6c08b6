package routes

import (
	"github.com/mwangi254/farm_connect/handlers"
	"github.com/mwangi254/farm_connect/middleware"
	"github.com/gofiber/fiber/v2"
)

func UploadRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	uploads := api.Group("/uploads", middleware.Protected())
	uploads.Post("/signature", handlers.GenerateUploadSignature)
}
