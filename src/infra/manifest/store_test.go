package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nvall/sitevault/src/features/importing"
	"github.com/nvall/sitevault/src/places"
)

func newStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "manifests")
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	return store, dir
}

func sampleManifest(id string) *importing.ImportManifest {
	return &importing.ImportManifest{
		ID:        id,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Location:  places.LocationSnapshot{ID: "loc-1", Name: "Old Mill"},
		Phase:     importing.PhaseSerialize,
		Files: []*importing.FileEntry{
			{OriginalPath: "/inbox/a.jpg", DisplayName: "a.jpg", Status: importing.EntryPending},
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	store, _ := newStore(t)
	m := sampleManifest("run-1")
	if err := store.Save(m); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := store.Load("run-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ID != m.ID || loaded.Phase != m.Phase || loaded.Location.ID != m.Location.ID {
		t.Errorf("loaded manifest differs: %+v", loaded)
	}
	if len(loaded.Files) != 1 || loaded.Files[0].OriginalPath != "/inbox/a.jpg" {
		t.Errorf("file entries not round-tripped: %+v", loaded.Files)
	}
}

func TestSave_ReplacesPreviousVersion(t *testing.T) {
	store, _ := newStore(t)
	m := sampleManifest("run-1")
	if err := store.Save(m); err != nil {
		t.Fatal(err)
	}
	m.Phase = importing.PhaseCopy
	if err := store.Save(m); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load("run-1")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Phase != importing.PhaseCopy {
		t.Errorf("expected updated phase, got %s", loaded.Phase)
	}
}

func TestLoad_Missing(t *testing.T) {
	store, _ := newStore(t)
	_, err := store.Load("nope")
	if !errors.Is(err, importing.ErrManifestNotFound) {
		t.Errorf("expected ErrManifestNotFound, got %v", err)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	store, dir := newStore(t)
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{torn write"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := store.Load("bad")
	if !errors.Is(err, importing.ErrManifestCorrupt) {
		t.Errorf("expected ErrManifestCorrupt, got %v", err)
	}
}

func TestList_SkipsUndecodableFiles(t *testing.T) {
	store, dir := newStore(t)
	if err := store.Save(sampleManifest("run-1")); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(sampleManifest("run-2")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0644); err != nil {
		t.Fatal(err)
	}

	manifests, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(manifests) != 2 {
		t.Errorf("expected 2 manifests, got %d", len(manifests))
	}
}

func TestDelete(t *testing.T) {
	store, _ := newStore(t)
	if err := store.Save(sampleManifest("run-1")); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("run-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load("run-1"); !errors.Is(err, importing.ErrManifestNotFound) {
		t.Error("manifest still loadable after delete")
	}
	if err := store.Delete("run-1"); !errors.Is(err, importing.ErrManifestNotFound) {
		t.Errorf("expected ErrManifestNotFound on double delete, got %v", err)
	}
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	store, dir := newStore(t)
	if err := store.Save(sampleManifest("run-1")); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}
