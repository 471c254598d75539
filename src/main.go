package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/nvall/sitevault/src/features/config"
	"github.com/nvall/sitevault/src/features/hosting"
	"github.com/nvall/sitevault/src/features/importing"
	"github.com/nvall/sitevault/src/features/jobs"
	"github.com/nvall/sitevault/src/features/locations"
	"github.com/nvall/sitevault/src/features/logging"
	"github.com/nvall/sitevault/src/features/metrics"
	"github.com/nvall/sitevault/src/infra/database"
	"github.com/nvall/sitevault/src/infra/extract"
	"github.com/nvall/sitevault/src/infra/files"
	"github.com/nvall/sitevault/src/infra/hashing"
	"github.com/nvall/sitevault/src/infra/manifest"
	"github.com/nvall/sitevault/src/infra/thumbs"
	"github.com/nvall/sitevault/src/infra/watcher"
	"github.com/nvall/sitevault/src/places"
)

func main() {
	// Load configuration
	configPath := "config.yaml"
	cfgManager, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Setup default logger with slog
	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	if err := cfgManager.EnsureDirectories(); err != nil {
		log.Fatalf("failed to create data directories: %v", err)
	}

	// Create the database catalog
	catalog, err := database.NewSqliteCatalog(cfgManager.Get().Database.Path)
	if err != nil {
		log.Fatalf("failed to create catalog: %v", err)
	}
	defer catalog.Close()

	// Create the job service
	jobService := jobs.NewService(&cfgManager.Get().Jobs)

	// Manifest store lives inside the archive so crash recovery survives
	// anything short of losing the archive itself.
	manifestStore, err := manifest.NewFileStore(filepath.Join(cfgManager.Get().ArchivePath, "manifests"))
	if err != nil {
		log.Fatalf("failed to create manifest store: %v", err)
	}

	// Wire the import pipeline
	hasher := hashing.NewSHA256Hasher()
	planner := files.NewArchivePlanner()
	copier := files.NewVerifyingCopier(hasher)
	thumbnailer := thumbs.NewService(cfgManager)
	recorder := metrics.NewRecorder()

	exiftoolExtractor := extract.NewExiftoolExtractor(cfgManager)
	if err := exiftoolExtractor.Start(); err != nil {
		slog.Warn("exiftool unavailable, images import without metadata", "error", err)
	} else {
		defer exiftoolExtractor.Stop()
	}
	extractors := importing.ExtractorSet{
		places.MediaImage: exiftoolExtractor,
		places.MediaVideo: extract.NewFfprobeExtractor(cfgManager),
		places.MediaAudio: extract.NewAudioExtractor(),
	}

	orchestrator := importing.NewOrchestrator(catalog, manifestStore, hasher, extractors, planner, copier, thumbnailer, recorder, cfgManager)
	importingService := importing.NewService(orchestrator, manifestStore, jobService, cfgManager)

	importTask := importing.NewImportTask(importingService)
	jobService.RegisterHandler(importing.JobTypeImport, jobs.NewBaseTaskHandler(importTask))

	// Create the locations service
	locationsService := locations.NewService(catalog)

	// Inbox watcher
	inboxWatcher := watcher.NewInboxWatcher(importingService.HandleInboxEvent)
	importingService.SetWatcher(inboxWatcher)
	if cfgManager.Get().Import.AutoStartWatcher {
		if err := importingService.StartWatcher(context.Background()); err != nil {
			slog.Error("Failed to start inbox watcher", "error", err)
		}
	}
	defer importingService.StopWatcher()

	// Create and start the Telegram bot if enabled
	var telegramBot *hosting.TelegramBot
	if cfgManager.Get().Telegram.Enabled {
		telegramBot, err = hosting.NewTelegramBot(cfgManager, locationsService, importingService, jobService)
		if err != nil {
			slog.Error("Failed to initialize Telegram bot", "error", err)
		} else {
			jobService.RegisterNotifier(telegramBot)
			go telegramBot.Start()
			slog.Info("Telegram bot started")
		}
	}

	// Create and start the HTTP server
	server := hosting.NewServer(cfgManager, configPath, importingService, locationsService, jobService)
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()
	slog.Info("Server started. Press Ctrl+C to shut down.", "port", cfgManager.Get().Server.Port)

	// Wait for a shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	slog.Info("Shutting down server...")

	if telegramBot != nil {
		telegramBot.Stop()
		slog.Info("Telegram bot stopped")
	}

	if err := server.Shutdown(); err != nil {
		log.Fatalf("failed to shutdown server: %v", err)
	}
	slog.Info("Server gracefully shut down.")
}
