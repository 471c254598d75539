package jobs

import (
	"log/slog"
	"os"
	"sort"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes job management over the API.
type Handler struct {
	service *Service
}

// NewHandler creates a new jobs handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type jobView struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Name      string         `json:"name"`
	Status    JobStatus      `json:"status"`
	Progress  int            `json:"progress"`
	Message   string         `json:"message"`
	CreatedAt string         `json:"createdAt"`
	UpdatedAt string         `json:"updatedAt"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func toView(job *Job) jobView {
	return jobView{
		ID:        job.ID,
		Type:      job.Type,
		Name:      job.Name,
		Status:    job.Status,
		Progress:  job.Progress,
		Message:   job.Message,
		CreatedAt: job.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt: job.UpdatedAt.Format("2006-01-02 15:04:05"),
		Metadata:  job.Metadata,
	}
}

// ListJobs returns all known jobs, newest first.
func (h *Handler) ListJobs(c *fiber.Ctx) error {
	jobs := h.service.GetJobs()
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, toView(job))
	}
	return c.JSON(views)
}

// GetJob returns a single job by id.
func (h *Handler) GetJob(c *fiber.Ctx) error {
	job, ok := h.service.GetJob(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
	}
	return c.JSON(toView(job))
}

// CancelJob cancels a running job.
func (h *Handler) CancelJob(c *fiber.Ctx) error {
	if err := h.service.CancelJob(c.Params("id")); err != nil {
		slog.Error("Failed to cancel job", "error", err, "jobID", c.Params("id"))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "cancelled"})
}

// GetJobLog returns the job's log file contents.
func (h *Handler) GetJobLog(c *fiber.Ctx) error {
	job, ok := h.service.GetJob(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job not found"})
	}
	if job.LogPath == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job has no log"})
	}
	data, err := os.ReadFile(job.LogPath)
	if err != nil {
		slog.Error("Failed to read job log", "error", err, "path", job.LogPath)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot read log"})
	}
	c.Set("Content-Type", "text/plain")
	return c.Send(data)
}
