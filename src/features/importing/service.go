package importing

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nvall/sitevault/src/features/config"
	"github.com/nvall/sitevault/src/features/jobs"
)

// Service is the domain service for the importing feature. Imports run as
// jobs so callers never block on a batch; the job service also serializes
// batches, keeping the archive root under one orchestrator at a time.
type Service struct {
	orchestrator *Orchestrator
	store        ManifestStore
	jobService   jobs.JobService
	config       *config.Manager
	watcher      Watcher
}

// NewService creates a new importing service.
func NewService(orchestrator *Orchestrator, store ManifestStore, jobService jobs.JobService, cfg *config.Manager) *Service {
	return &Service{
		orchestrator: orchestrator,
		store:        store,
		jobService:   jobService,
		config:       cfg,
	}
}

// StartImport starts a job that imports the given source files into the
// archive for one location.
func (s *Service) StartImport(ctx context.Context, locationID string, sourcePaths []string, opts Options) (string, error) {
	slog.Debug("StartImport service called", "location", locationID, "files", len(sourcePaths))
	if locationID == "" {
		return "", fmt.Errorf("location id is required")
	}
	if len(sourcePaths) == 0 {
		return "", fmt.Errorf("at least one source path is required")
	}
	jobID, err := s.jobService.StartJob(JobTypeImport, "Media Import", map[string]any{
		"mode":             modeRun,
		"location_id":      locationID,
		"paths":            sourcePaths,
		"delete_originals": opts.DeleteOriginals,
	})
	if err != nil {
		slog.Error("Service.StartImport: failed to start job", "error", err)
		return "", fmt.Errorf("failed to start import job: %w", err)
	}
	return jobID, nil
}

// ResumeImport starts a job that resumes a persisted import run at its
// recorded phase.
func (s *Service) ResumeImport(ctx context.Context, importID string) (string, error) {
	slog.Debug("ResumeImport service called", "importID", importID)
	if _, err := s.store.Load(importID); err != nil {
		return "", fmt.Errorf("cannot resume import %s: %w", importID, err)
	}
	jobID, err := s.jobService.StartJob(JobTypeImport, "Media Import (resume)", map[string]any{
		"mode":      modeResume,
		"import_id": importID,
	})
	if err != nil {
		slog.Error("Service.ResumeImport: failed to start job", "error", err)
		return "", fmt.Errorf("failed to start resume job: %w", err)
	}
	return jobID, nil
}

// ListManifests returns all persisted manifests, newest first.
func (s *Service) ListManifests() ([]*ImportManifest, error) {
	manifests, err := s.store.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}
	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].CreatedAt.After(manifests[j].CreatedAt)
	})
	return manifests, nil
}

// GetManifest returns one manifest by import id.
func (s *Service) GetManifest(importID string) (*ImportManifest, error) {
	return s.store.Load(importID)
}

// DeleteManifest removes a retired manifest record.
func (s *Service) DeleteManifest(importID string) error {
	manifest, err := s.store.Load(importID)
	if err != nil {
		return err
	}
	if manifest.Phase != PhaseComplete && manifest.Phase != PhaseFailed {
		return fmt.Errorf("manifest %s is still %s, refusing to delete", importID, manifest.Phase)
	}
	return s.store.Delete(importID)
}

// SetWatcher attaches the inbox watcher implementation.
func (s *Service) SetWatcher(w Watcher) {
	s.watcher = w
}

// StartWatcher begins watching the inbox path; new files there are imported
// into the configured watch location with originals deleted after commit.
func (s *Service) StartWatcher(ctx context.Context) error {
	if s.watcher == nil {
		return fmt.Errorf("no watcher configured")
	}
	inbox := s.config.Get().InboxPath
	if inbox == "" {
		return fmt.Errorf("inbox path is not configured")
	}
	if s.config.Get().Import.WatchLocationID == "" {
		return fmt.Errorf("import.watch_location_id is not configured")
	}
	return s.watcher.Start(ctx, inbox)
}

// StopWatcher stops the inbox watcher.
func (s *Service) StopWatcher() {
	if s.watcher != nil {
		s.watcher.Stop()
	}
}

// HandleInboxEvent imports everything currently sitting in the inbox. Called
// by the watcher after its debounce period.
func (s *Service) HandleInboxEvent(ctx context.Context) {
	inbox := s.config.Get().InboxPath
	locationID := s.config.Get().Import.WatchLocationID

	var paths []string
	err := filepath.WalkDir(inbox, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		slog.Error("Service.HandleInboxEvent: failed to scan inbox", "error", err)
		return
	}
	if len(paths) == 0 {
		return
	}

	jobID, err := s.StartImport(ctx, locationID, paths, Options{DeleteOriginals: true})
	if err != nil {
		slog.Error("Service.HandleInboxEvent: failed to start inbox import", "error", err)
		return
	}
	slog.Info("Service.HandleInboxEvent: inbox import started", "jobID", jobID, "files", len(paths))
}
