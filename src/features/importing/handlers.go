package importing

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// Handler is the handler for the importing feature.
type Handler struct {
	service *Service
}

// NewHandler creates a new handler for the importing feature.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// StartImport is the handler for starting an import batch.
func (h *Handler) StartImport(c *fiber.Ctx) error {
	type ImportRequest struct {
		LocationID      string   `json:"locationId"`
		Paths           []string `json:"paths"`
		DeleteOriginals bool     `json:"deleteOriginals"`
	}
	var req ImportRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "cannot parse request body",
		})
	}
	jobID, err := h.service.StartImport(c.Context(), req.LocationID, req.Paths, Options{
		DeleteOriginals: req.DeleteOriginals,
	})
	if err != nil {
		slog.Error("Error starting import", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	slog.Info("StartImport: import started", "jobID", jobID, "location", req.LocationID, "files", len(req.Paths))
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"jobId": jobID})
}

// ResumeImport resumes a persisted import run.
func (h *Handler) ResumeImport(c *fiber.Ctx) error {
	importID := c.Params("id")
	jobID, err := h.service.ResumeImport(c.Context(), importID)
	if err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, ErrManifestNotFound) {
			status = fiber.StatusNotFound
		}
		slog.Error("Error resuming import", "error", err, "importID", importID)
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"jobId": jobID})
}

// ListManifests lists all persisted import manifests.
func (h *Handler) ListManifests(c *fiber.Ctx) error {
	manifests, err := h.service.ListManifests()
	if err != nil {
		slog.Error("Error listing manifests", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(manifests)
}

// GetManifest returns one import manifest by id.
func (h *Handler) GetManifest(c *fiber.Ctx) error {
	manifest, err := h.service.GetManifest(c.Params("id"))
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, ErrManifestNotFound) {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(manifest)
}

// DeleteManifest removes a retired manifest.
func (h *Handler) DeleteManifest(c *fiber.Ctx) error {
	if err := h.service.DeleteManifest(c.Params("id")); err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, ErrManifestNotFound) {
			status = fiber.StatusNotFound
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

// ToggleWatcher toggles the inbox watcher on/off.
func (h *Handler) ToggleWatcher(c *fiber.Ctx) error {
	action := c.FormValue("action")
	switch action {
	case "start":
		// The watcher outlives this request, so it must not inherit the
		// request context.
		if err := h.service.StartWatcher(context.Background()); err != nil {
			slog.Error("Failed to start watcher", "error", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"watcher": "running"})
	case "stop":
		h.service.StopWatcher()
		return c.JSON(fiber.Map{"watcher": "stopped"})
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "action parameter must be start or stop",
		})
	}
}
