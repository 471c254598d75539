package importing

import (
	"context"
	"errors"
	"fmt"

	"github.com/nvall/sitevault/src/features/jobs"
)

// JobTypeImport is the job type for import and resume runs. Both share one
// type so the job service serializes them: the archive root tolerates only
// one orchestrator at a time.
const JobTypeImport = "media_import"

const (
	modeRun    = "run"
	modeResume = "resume"
)

// ImportTask implements jobs.Task for media import batches.
type ImportTask struct {
	service *Service
}

// NewImportTask creates a new ImportTask.
func NewImportTask(service *Service) *ImportTask {
	return &ImportTask{service: service}
}

// MetadataKeys returns the required metadata keys for an import job.
func (t *ImportTask) MetadataKeys() []string {
	return []string{"mode"}
}

// progressBase maps each phase onto a slice of the job's 0-100 progress bar.
var progressBase = map[Phase]int{
	PhaseSerialize: 0,
	PhaseCopy:      40,
	PhaseCommit:    80,
}

// Execute runs one import batch (or resume) to completion.
func (t *ImportTask) Execute(ctx context.Context, job *jobs.Job, progressUpdater func(int, string)) (map[string]any, error) {
	progress := func(ev ProgressEvent) {
		base, ok := progressBase[ev.Phase]
		if !ok || ev.Total == 0 {
			return
		}
		percent := base + (ev.Processed*20)/ev.Total
		if ev.Phase == PhaseSerialize {
			percent = base + (ev.Processed*40)/ev.Total
		}
		progressUpdater(percent, fmt.Sprintf("%s: %s", ev.Phase, ev.CurrentFile))
	}

	var summary *ImportSummary
	var importID string
	var err error

	switch job.Metadata["mode"] {
	case modeRun:
		locationID, _ := job.Metadata["location_id"].(string)
		paths, pathsErr := metadataPaths(job.Metadata["paths"])
		if pathsErr != nil {
			return nil, pathsErr
		}
		deleteOriginals, _ := job.Metadata["delete_originals"].(bool)
		opts := Options{DeleteOriginals: deleteOriginals}
		summary, err = t.service.orchestrator.Run(ctx, locationID, paths, opts, progress, job.Logger)
	case modeResume:
		importID, _ = job.Metadata["import_id"].(string)
		summary, err = t.service.orchestrator.Resume(ctx, importID, progress, job.Logger)
	default:
		return nil, fmt.Errorf("unknown import mode %v", job.Metadata["mode"])
	}

	if err != nil {
		var batchErr *BatchError
		if errors.As(err, &batchErr) {
			job.Logger.Error("Import batch failed", "phase", batchErr.Phase, "error", batchErr.Err)
			return map[string]any{
				"msg": fmt.Sprintf("Import failed at %s; resume it to retry from that phase.", batchErr.Phase),
			}, err
		}
		return nil, err
	}

	finalMessage := fmt.Sprintf("Import finished. %d files (%d imported, %d duplicates, %d errors).",
		summary.TotalFiles, summary.Imported, summary.Duplicates, summary.Errored)
	job.Logger.Info(finalMessage)

	result := map[string]any{"summary": summary, "msg": finalMessage}
	if importID != "" {
		result["import_id"] = importID
	}

	// Never report success when nothing imported and something failed.
	if summary.Imported == 0 && summary.Errored > 0 && summary.Duplicates == 0 {
		return result, errors.New("no files were imported")
	}
	if summary.Errored > 0 {
		return result, fmt.Errorf("%w: %d of %d files failed", jobs.ErrPartialSuccess, summary.Errored, summary.TotalFiles)
	}
	return result, nil
}

// Cleanup does nothing for import jobs; the manifest keeps its own state.
func (t *ImportTask) Cleanup(job *jobs.Job) error {
	return nil
}

// metadataPaths normalizes the job metadata path list, which arrives either
// as []string (service calls) or []any (decoded JSON).
func metadataPaths(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		paths := make([]string, 0, len(v))
		for _, item := range v {
			path, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("invalid path entry %v", item)
			}
			paths = append(paths, path)
		}
		return paths, nil
	default:
		return nil, fmt.Errorf("missing paths in job metadata")
	}
}
