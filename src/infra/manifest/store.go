package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvall/sitevault/src/features/importing"
)

// FileStore persists import manifests as one JSON document per import run
// under a manifests directory inside the archive. Writes are atomic
// (temp file + rename) so a crash mid-write never leaves a torn manifest.
type FileStore struct {
	dir string
}

// NewFileStore creates a manifest store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create manifests directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes the manifest durably, replacing any previous version.
func (s *FileStore) Save(m *importing.ImportManifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	final := s.path(m.ID)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}

// Load reads the manifest for an import id.
func (s *FileStore) Load(importID string) (*importing.ImportManifest, error) {
	data, err := os.ReadFile(s.path(importID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, importing.ErrManifestNotFound
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m importing.ImportManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", importing.ErrManifestCorrupt, err)
	}
	return &m, nil
}

// List returns every stored manifest. Undecodable files are skipped rather
// than failing the listing.
func (s *FileStore) List() ([]*importing.ImportManifest, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifests directory: %w", err)
	}

	manifests := make([]*importing.ImportManifest, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		m, err := s.Load(id)
		if err != nil {
			continue
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}

// Delete removes a manifest record.
func (s *FileStore) Delete(importID string) error {
	if err := os.Remove(s.path(importID)); err != nil {
		if os.IsNotExist(err) {
			return importing.ErrManifestNotFound
		}
		return fmt.Errorf("failed to delete manifest: %w", err)
	}
	return nil
}

func (s *FileStore) path(importID string) string {
	return filepath.Join(s.dir, importID+".json")
}
