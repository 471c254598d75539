package importing

import "errors"

// ErrManifestNotFound is returned when no manifest exists for an import id.
var ErrManifestNotFound = errors.New("manifest not found")

// ErrManifestCorrupt is returned when a manifest file cannot be decoded or
// fails validation for its declared phase. A corrupt manifest forces a
// restart from intake.
var ErrManifestCorrupt = errors.New("manifest is corrupt")

// ManifestStore persists manifests durably, one record per import run.
// A manifest is exclusively owned by one orchestrator run at a time.
type ManifestStore interface {
	Save(manifest *ImportManifest) error
	Load(importID string) (*ImportManifest, error)
	List() ([]*ImportManifest, error)
	Delete(importID string) error
}
