package importing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/nvall/sitevault/src/features/config"
	"github.com/nvall/sitevault/src/places"
)

// BatchError is a batch-fatal failure: the whole run aborted at the recorded
// phase and the manifest was left resumable.
type BatchError struct {
	Phase Phase
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("import failed at %s: %v", e.Phase, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Orchestrator sequences one import batch through the four-phase state
// machine: intake, serialize, copy, commit. It owns the manifest for the
// duration of a run; concurrent batches against the same archive root must be
// serialized by the caller.
type Orchestrator struct {
	catalog    places.Catalog
	store      ManifestStore
	hasher     Hasher
	extractors ExtractorSet
	planner    PathPlanner
	copier     CopyEngine
	thumbs     Thumbnailer // may be nil
	recorder   Recorder    // may be nil
	config     *config.Manager
}

// NewOrchestrator creates a new import orchestrator.
func NewOrchestrator(catalog places.Catalog, store ManifestStore, hasher Hasher, extractors ExtractorSet, planner PathPlanner, copier CopyEngine, thumbs Thumbnailer, recorder Recorder, cfg *config.Manager) *Orchestrator {
	return &Orchestrator{
		catalog:    catalog,
		store:      store,
		hasher:     hasher,
		extractors: extractors,
		planner:    planner,
		copier:     copier,
		thumbs:     thumbs,
		recorder:   recorder,
		config:     cfg,
	}
}

// Run imports a batch of source files for one location. The location snapshot
// is fetched exactly once here; unreadable source paths become per-file
// errors, not batch failures.
func (o *Orchestrator) Run(ctx context.Context, locationID string, sourcePaths []string, opts Options, progress ProgressFunc, logger *slog.Logger) (*ImportSummary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(sourcePaths) == 0 {
		return nil, &BatchError{Phase: PhaseIntake, Err: fmt.Errorf("no source paths given")}
	}

	location, err := o.catalog.FindLocation(ctx, locationID)
	if err != nil {
		return nil, &BatchError{Phase: PhaseIntake, Err: fmt.Errorf("resolve location %s: %w", locationID, err)}
	}

	manifest := &ImportManifest{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		Location:  location.Snapshot(),
		Options:   opts,
		Phase:     PhaseIntake,
		Files:     buildEntries(sourcePaths),
	}
	logger.Info("Orchestrator.Run: intake complete", "importID", manifest.ID, "location", location.Name, "files", len(manifest.Files))

	if err := o.store.Save(manifest); err != nil {
		return nil, &BatchError{Phase: PhaseIntake, Err: fmt.Errorf("persist manifest: %w", err)}
	}

	return o.runFrom(ctx, manifest, PhaseSerialize, progress, logger)
}

// buildEntries stats each source path and creates one fresh FileEntry per
// path. After this the manifest is the sole source of truth; the original
// call's source list is never re-read.
func buildEntries(sourcePaths []string) []*FileEntry {
	entries := make([]*FileEntry, 0, len(sourcePaths))
	for _, path := range sourcePaths {
		entry := &FileEntry{
			OriginalPath: path,
			DisplayName:  filepath.Base(path),
			Status:       EntryPending,
		}
		if info, err := os.Stat(path); err != nil {
			entry.Fail(fmt.Errorf("source not readable: %w", err))
		} else if info.IsDir() {
			entry.Fail(fmt.Errorf("source is a directory"))
		} else {
			entry.SizeBytes = info.Size()
		}
		entries = append(entries, entry)
	}
	return entries
}

// Resume re-enters a persisted import run at its recorded phase. A manifest
// that fails validation for its declared phase restarts from intake over the
// same file list.
func (o *Orchestrator) Resume(ctx context.Context, importID string, progress ProgressFunc, logger *slog.Logger) (*ImportSummary, error) {
	if logger == nil {
		logger = slog.Default()
	}

	manifest, err := o.store.Load(importID)
	if err != nil {
		return nil, fmt.Errorf("load manifest %s: %w", importID, err)
	}

	if err := manifest.Validate(); err != nil {
		logger.Warn("Orchestrator.Resume: manifest invalid for its phase, restarting from intake", "importID", importID, "error", err)
		return o.restartFromIntake(ctx, manifest, progress, logger)
	}

	// Cancelled entries retry on resume. Their hashes, if recorded, stay.
	resumed := 0
	for _, entry := range manifest.Files {
		if entry.Status == EntryCancelled {
			entry.Status = EntryPending
			entry.Error = ""
			resumed++
		}
	}

	var start Phase
	switch manifest.Phase {
	case PhaseComplete:
		if resumed == 0 {
			return manifest.Summary, nil
		}
		manifest.Summary = nil
		start = PhaseSerialize
	case PhaseFailed:
		start = manifest.FailedPhase
	case PhaseIntake:
		return o.restartFromIntake(ctx, manifest, progress, logger)
	default:
		start = manifest.Phase
	}

	logger.Info("Orchestrator.Resume: resuming import", "importID", importID, "phase", start, "retriedCancelled", resumed)
	return o.runFrom(ctx, manifest, start, progress, logger)
}

// restartFromIntake rebuilds a manifest's entries from their recorded source
// paths and runs the batch from the beginning. The entry membership is kept;
// the location snapshot is fetched anew.
func (o *Orchestrator) restartFromIntake(ctx context.Context, manifest *ImportManifest, progress ProgressFunc, logger *slog.Logger) (*ImportSummary, error) {
	paths := make([]string, 0, len(manifest.Files))
	for _, entry := range manifest.Files {
		paths = append(paths, entry.OriginalPath)
	}
	if len(paths) == 0 {
		return nil, &BatchError{Phase: PhaseIntake, Err: fmt.Errorf("manifest %s has no recoverable file list", manifest.ID)}
	}

	location, err := o.catalog.FindLocation(ctx, manifest.Location.ID)
	if err != nil {
		return nil, &BatchError{Phase: PhaseIntake, Err: fmt.Errorf("resolve location %s: %w", manifest.Location.ID, err)}
	}

	manifest.Location = location.Snapshot()
	manifest.Phase = PhaseIntake
	manifest.FailedPhase = ""
	manifest.Error = ""
	manifest.Summary = nil
	manifest.SessionRecorded = false
	manifest.Files = buildEntries(paths)

	if err := o.store.Save(manifest); err != nil {
		return nil, &BatchError{Phase: PhaseIntake, Err: fmt.Errorf("persist manifest: %w", err)}
	}
	return o.runFrom(ctx, manifest, PhaseSerialize, progress, logger)
}

var phaseOrder = []Phase{PhaseSerialize, PhaseCopy, PhaseCommit}

// runFrom executes the remaining phases in order, persisting the manifest
// before each phase starts so a crash mid-phase resumes at the start of that
// phase.
func (o *Orchestrator) runFrom(ctx context.Context, manifest *ImportManifest, start Phase, progress ProgressFunc, logger *slog.Logger) (*ImportSummary, error) {
	began := time.Now()

	idx := 0
	for i, phase := range phaseOrder {
		if phase == start {
			idx = i
		}
	}

	cancelled := false
	for _, phase := range phaseOrder[idx:] {
		if err := o.transition(manifest, phase); err != nil {
			return nil, err
		}
		switch phase {
		case PhaseSerialize:
			cancelled = o.runSerialize(ctx, manifest, progress, logger) || cancelled
		case PhaseCopy:
			cancelled = o.runCopy(ctx, manifest, progress, logger) || cancelled
		case PhaseCommit:
			if err := o.runCommit(ctx, manifest, cancelled, progress, logger); err != nil {
				return nil, o.failBatch(manifest, PhaseCommit, err, logger)
			}
		}
	}

	o.deleteOriginals(manifest, logger)

	manifest.Summary = manifest.BuildSummary()
	if err := o.transition(manifest, PhaseComplete); err != nil {
		return nil, err
	}

	if o.recorder != nil {
		o.recorder.ImportFinished(time.Since(began).Seconds())
	}
	logger.Info("Orchestrator: import finished",
		"importID", manifest.ID,
		"total", manifest.Summary.TotalFiles,
		"imported", manifest.Summary.Imported,
		"duplicates", manifest.Summary.Duplicates,
		"errored", manifest.Summary.Errored,
		"cancelled", cancelled,
	)
	return manifest.Summary, nil
}

// transition advances the manifest to the given phase and persists it. A
// manifest write failure is batch-fatal.
func (o *Orchestrator) transition(manifest *ImportManifest, phase Phase) error {
	manifest.Phase = phase
	manifest.FailedPhase = ""
	manifest.Error = ""
	if err := o.store.Save(manifest); err != nil {
		return &BatchError{Phase: phase, Err: fmt.Errorf("persist manifest: %w", err)}
	}
	return nil
}

// failBatch marks the manifest failed at the given phase, keeping it
// resumable, and returns the typed batch error.
func (o *Orchestrator) failBatch(manifest *ImportManifest, phase Phase, err error, logger *slog.Logger) error {
	batchErr := &BatchError{Phase: phase, Err: err}
	manifest.Phase = PhaseFailed
	manifest.FailedPhase = phase
	manifest.Error = err.Error()
	if saveErr := o.store.Save(manifest); saveErr != nil {
		logger.Error("Orchestrator: failed to persist failed manifest", "importID", manifest.ID, "error", saveErr)
	}
	logger.Error("Orchestrator: batch failed", "importID", manifest.ID, "phase", phase, "error", err)
	return batchErr
}

// deleteOriginals removes committed files' originals when requested.
// Best-effort and outside any transaction: the archive copy is already
// authoritative, so a deletion failure is logged, not retried.
func (o *Orchestrator) deleteOriginals(manifest *ImportManifest, logger *slog.Logger) {
	if !manifest.Options.DeleteOriginals {
		return
	}
	for _, entry := range manifest.Files {
		if entry.Status != EntryImported || entry.OriginalDeleted {
			continue
		}
		if err := o.copier.Delete(entry.OriginalPath); err != nil {
			logger.Warn("Orchestrator: failed to delete original after commit", "path", entry.OriginalPath, "error", err)
			continue
		}
		entry.OriginalDeleted = true
	}
}

func (o *Orchestrator) workers(opts Options) int {
	if opts.Workers > 0 {
		return opts.Workers
	}
	if w := o.config.Get().Import.Workers; w > 0 {
		return w
	}
	return 1
}
