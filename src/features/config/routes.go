package config

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the config feature.
func RegisterRoutes(app *fiber.App, manager *Manager, path string) {
	handler := NewHandler(manager, path)

	app.Get("/config", handler.GetConfig)
	app.Put("/config/import", handler.UpdateImport)
}
