package locations

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the routes for the locations feature.
func RegisterRoutes(app *fiber.App, service *Service) {
	handler := NewHandler(service)

	app.Get("/locations", handler.ListLocations)
	app.Post("/locations", handler.CreateLocation)
	app.Get("/locations/stats", handler.GetStats)
	app.Get("/locations/:id", handler.GetLocation)
	app.Get("/locations/:id/media", handler.GetLocationMedia)
}
