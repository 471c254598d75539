package locations

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/nvall/sitevault/src/places"
)

// Handler is the handler for the locations feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the locations feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ListLocations returns all cataloged locations.
func (h *Handler) ListLocations(c *fiber.Ctx) error {
	locations, err := h.service.GetLocations(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"locations": locations, "count": len(locations)})
}

// GetLocation returns a single location.
func (h *Handler) GetLocation(c *fiber.Ctx) error {
	location, err := h.service.GetLocation(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, places.ErrLocationNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "location not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(location)
}

// CreateLocation creates a new location.
func (h *Handler) CreateLocation(c *fiber.Ctx) error {
	type LocationRequest struct {
		Name      string   `json:"name"`
		ShortName string   `json:"shortName"`
		Region    string   `json:"region"`
		Type      string   `json:"type"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Address   string   `json:"address"`
		Notes     string   `json:"notes"`
	}
	var req LocationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse request body"})
	}

	location := &places.Location{
		Name:      req.Name,
		ShortName: req.ShortName,
		Region:    req.Region,
		Type:      req.Type,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Address:   req.Address,
		Notes:     req.Notes,
	}
	if err := h.service.CreateLocation(c.Context(), location); err != nil {
		slog.Error("Error creating location", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(location)
}

// GetLocationMedia returns the media archived for a location.
func (h *Handler) GetLocationMedia(c *fiber.Ctx) error {
	media, err := h.service.GetMediaForLocation(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, places.ErrLocationNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "location not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"media": media, "count": len(media)})
}

// GetStats returns catalog counts.
func (h *Handler) GetStats(c *fiber.Ctx) error {
	stats, err := h.service.GetStats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(stats)
}
