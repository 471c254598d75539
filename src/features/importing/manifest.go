package importing

import (
	"fmt"
	"time"

	"github.com/nvall/sitevault/src/places"
)

// Phase is one stage of the import state machine. A manifest's phase advances
// monotonically through intake, serialize, copy, commit, complete, or diverts
// to failed.
type Phase string

const (
	PhaseIntake    Phase = "intake"
	PhaseSerialize Phase = "serialize"
	PhaseCopy      Phase = "copy"
	PhaseCommit    Phase = "commit"
	PhaseComplete  Phase = "complete"
	PhaseFailed    Phase = "failed"
)

// EntryStatus is the terminal (or pending) state of one file within a batch.
type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryImported  EntryStatus = "imported"
	EntryDuplicate EntryStatus = "duplicate"
	EntryFailed    EntryStatus = "failed"
	EntryCancelled EntryStatus = "cancelled"
)

// GPSSeverity grades how far an entry's embedded coordinates sit from the
// location's stored coordinates. Advisory only; never blocks a file.
type GPSSeverity string

const (
	GPSSeverityNone  GPSSeverity = "none"
	GPSSeverityMinor GPSSeverity = "minor"
	GPSSeverityMajor GPSSeverity = "major"
)

// GPSWarning records a distance check between media GPS and location GPS.
type GPSWarning struct {
	DistanceKm float64     `json:"distanceKm"`
	Severity   GPSSeverity `json:"severity"`
}

// Options is the caller's option snapshot, captured at intake.
type Options struct {
	DeleteOriginals bool `json:"deleteOriginals"`
	Workers         int  `json:"workers,omitempty"`
}

// FileEntry tracks one source file's journey through the pipeline.
// The hash, once set, is immutable across resumes.
type FileEntry struct {
	OriginalPath    string                `json:"originalPath"`
	DisplayName     string                `json:"displayName"`
	SizeBytes       int64                 `json:"sizeBytes"`
	Hash            string                `json:"hash,omitempty"`
	Type            places.MediaType      `json:"type,omitempty"`
	Metadata        *places.MediaMetadata `json:"metadata,omitempty"`
	Duplicate       bool                  `json:"duplicate"`
	GPSWarning      *GPSWarning           `json:"gpsWarning,omitempty"`
	Warnings        []string              `json:"warnings,omitempty"`
	DestinationPath string                `json:"destinationPath,omitempty"` // archive-relative
	Verified        bool                  `json:"verified"`
	MediaID         string                `json:"mediaId,omitempty"`
	OriginalDeleted bool                  `json:"originalDeleted"`
	Error           string                `json:"error,omitempty"`
	Status          EntryStatus           `json:"status"`
}

// Terminal reports whether the entry can take no further work this run.
func (e *FileEntry) Terminal() bool {
	return e.Status == EntryFailed || e.Status == EntryCancelled ||
		e.Status == EntryDuplicate || e.Status == EntryImported
}

// Fail marks the entry terminally failed with the given per-file error.
func (e *FileEntry) Fail(err error) {
	e.Status = EntryFailed
	e.Error = err.Error()
}

// Warn attaches a non-fatal advisory to the entry.
func (e *FileEntry) Warn(msg string) {
	e.Warnings = append(e.Warnings, msg)
}

// ImportManifest is the durable, resumable record of one import run. It is
// persisted after every phase transition and is the sole source of truth once
// intake completes; the entry list's membership is fixed after intake.
type ImportManifest struct {
	ID          string                  `json:"id"`
	CreatedAt   time.Time               `json:"createdAt"`
	Location    places.LocationSnapshot `json:"location"`
	Options     Options                 `json:"options"`
	Phase       Phase                   `json:"phase"`
	FailedPhase Phase                   `json:"failedPhase,omitempty"` // phase to re-enter on resume
	Error       string                  `json:"error,omitempty"`
	Files       []*FileEntry            `json:"files"`
	Summary     *ImportSummary          `json:"summary,omitempty"`

	// SessionRecorded is set once the import-session row has been committed,
	// so a resumed commit never inserts it twice.
	SessionRecorded bool `json:"sessionRecorded"`
}

// Validate checks that the manifest carries the fields its declared phase
// requires. A manifest that fails validation is corrupt and forces a restart
// from intake.
func (m *ImportManifest) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("manifest has no id")
	}
	if m.Location.ID == "" {
		return fmt.Errorf("manifest %s has no location snapshot", m.ID)
	}
	if len(m.Files) == 0 {
		return fmt.Errorf("manifest %s has no file entries", m.ID)
	}
	for i, entry := range m.Files {
		if entry.OriginalPath == "" {
			return fmt.Errorf("manifest %s entry %d has no original path", m.ID, i)
		}
	}

	phase := m.Phase
	if phase == PhaseFailed {
		if m.FailedPhase == "" {
			return fmt.Errorf("manifest %s is failed without a recorded phase", m.ID)
		}
		phase = m.FailedPhase
	}

	switch phase {
	case PhaseIntake, PhaseSerialize:
		// Entries only need intake fields.
	case PhaseCopy:
		if err := m.validateSerialized(); err != nil {
			return err
		}
	case PhaseCommit:
		if err := m.validateSerialized(); err != nil {
			return err
		}
		if err := m.validateCopied(); err != nil {
			return err
		}
	case PhaseComplete:
		if m.Summary == nil {
			return fmt.Errorf("manifest %s is complete without a summary", m.ID)
		}
	default:
		return fmt.Errorf("manifest %s has unknown phase %q", m.ID, m.Phase)
	}
	return nil
}

func (m *ImportManifest) validateSerialized() error {
	for _, entry := range m.Files {
		if entry.Status == EntryFailed || entry.Status == EntryCancelled {
			continue
		}
		if entry.Hash == "" {
			return fmt.Errorf("manifest %s entry %s reached %s without a hash", m.ID, entry.DisplayName, m.Phase)
		}
		if entry.Type == "" {
			return fmt.Errorf("manifest %s entry %s reached %s without a type", m.ID, entry.DisplayName, m.Phase)
		}
	}
	return nil
}

func (m *ImportManifest) validateCopied() error {
	for _, entry := range m.Files {
		if entry.Terminal() && entry.Status != EntryImported {
			continue
		}
		if entry.Duplicate {
			continue
		}
		if !entry.Verified || entry.DestinationPath == "" {
			return fmt.Errorf("manifest %s entry %s reached %s without a verified copy", m.ID, entry.DisplayName, m.Phase)
		}
	}
	return nil
}

// FileResult is the per-file line of an ImportSummary.
type FileResult struct {
	Name        string           `json:"name"`
	Status      EntryStatus      `json:"status"`
	Type        places.MediaType `json:"type,omitempty"`
	Destination string           `json:"destination,omitempty"`
	Error       string           `json:"error,omitempty"`
	Warnings    []string         `json:"warnings,omitempty"`
}

// ImportSummary totals one batch. Cancelled files count as errored.
// Invariant: Imported + Duplicates + Errored == TotalFiles.
type ImportSummary struct {
	TotalFiles int          `json:"totalFiles"`
	Imported   int          `json:"imported"`
	Duplicates int          `json:"duplicates"`
	Errored    int          `json:"errored"`
	Files      []FileResult `json:"files"`
}

// BuildSummary derives the summary from the current entry states. It is used
// both at the end of phase 4 and to synthesize a summary on cancellation.
func (m *ImportManifest) BuildSummary() *ImportSummary {
	summary := &ImportSummary{TotalFiles: len(m.Files)}
	for _, entry := range m.Files {
		switch entry.Status {
		case EntryImported:
			summary.Imported++
		case EntryDuplicate:
			summary.Duplicates++
		default:
			summary.Errored++
		}
		summary.Files = append(summary.Files, FileResult{
			Name:        entry.DisplayName,
			Status:      entry.Status,
			Type:        entry.Type,
			Destination: entry.DestinationPath,
			Error:       entry.Error,
			Warnings:    entry.Warnings,
		})
	}
	return summary
}
