package config

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the configuration over the API.
type Handler struct {
	manager *Manager
	path    string
}

// NewHandler creates a new config handler.
func NewHandler(manager *Manager, path string) *Handler {
	return &Handler{manager: manager, path: path}
}

// GetConfig returns the current (redacted) configuration.
func (h *Handler) GetConfig(c *fiber.Ctx) error {
	c.Set("Content-Type", "application/json")
	return c.SendString(h.manager.GetJSON())
}

// UpdateImport updates the import section of the configuration and persists it.
func (h *Handler) UpdateImport(c *fiber.Ctx) error {
	var section Import
	if err := c.BodyParser(&section); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cannot parse request body",
		})
	}

	cfg := *h.manager.Get()
	cfg.Import = section
	applyDefaults(&cfg)
	h.manager.Update(&cfg)

	if err := h.manager.Save(h.path); err != nil {
		slog.Error("Failed to persist configuration", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "configuration updated but not persisted",
		})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
