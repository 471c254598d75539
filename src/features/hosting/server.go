package hosting

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/nvall/sitevault/src/features/config"
	"github.com/nvall/sitevault/src/features/importing"
	"github.com/nvall/sitevault/src/features/jobs"
	"github.com/nvall/sitevault/src/features/locations"
	"github.com/nvall/sitevault/src/features/metrics"
)

// Server is the HTTP server for the application.
type Server struct {
	app  *fiber.App
	port uint32
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Manager, configPath string, importingService *importing.Service, locationsService *locations.Service, jobService *jobs.Service) *Server {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("Internal Server Error", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
		AppName:               "Sitevault",
		DisableStartupMessage: true,
		EnablePrintRoutes:     cfg.Get().Server.PrintRoutes,
	})

	app.Use(LogAllRequestsMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	importing.RegisterRoutes(app, importingService)
	locations.RegisterRoutes(app, locationsService)
	config.RegisterRoutes(app, cfg, configPath)
	jobs.RegisterRoutes(app, jobService)
	metrics.RegisterRoutes(app)

	return &Server{app: app, port: cfg.Get().Server.Port}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.app.Listen(":" + fmt.Sprint(s.port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
