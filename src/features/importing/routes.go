package importing

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the importing feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	app.Post("/import", handler.StartImport)
	app.Post("/import/:id/resume", handler.ResumeImport)
	app.Get("/import/manifests", handler.ListManifests)
	app.Get("/import/manifests/:id", handler.GetManifest)
	app.Delete("/import/manifests/:id", handler.DeleteManifest)
	app.Post("/import/watcher", handler.ToggleWatcher)
}
