package importing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvall/sitevault/src/features/config"
	"github.com/nvall/sitevault/src/places"
)

// MockCatalog is a mock implementation of places.Catalog
type MockCatalog struct {
	places.Catalog
	location      *places.Location
	knownHashes   map[string]bool
	media         []*places.MediaItem
	sessions      []*places.ImportSession
	updates       []places.LocationUpdate
	failTx        bool
	failDupeCheck bool
}

func NewMockCatalog(location *places.Location) *MockCatalog {
	return &MockCatalog{
		location:    location,
		knownHashes: make(map[string]bool),
	}
}

func (m *MockCatalog) FindLocation(ctx context.Context, id string) (*places.Location, error) {
	if m.location != nil && m.location.ID == id {
		return m.location, nil
	}
	return nil, places.ErrLocationNotFound
}

func (m *MockCatalog) CheckDuplicate(ctx context.Context, hash string, mediaType places.MediaType) (bool, error) {
	if m.failDupeCheck {
		return false, errors.New("catalog unavailable")
	}
	return m.knownHashes[hash], nil
}

func (m *MockCatalog) RunTransaction(ctx context.Context, fn func(tx places.CatalogTx) error) error {
	if m.failTx {
		return errors.New("disk I/O error")
	}
	staged := &mockTx{}
	if err := fn(staged); err != nil {
		return err
	}
	// Mirror the UNIQUE(hash, type) constraint on the media table.
	stagedHashes := make(map[string]bool)
	for _, item := range staged.media {
		key := item.Hash + "|" + string(item.Type)
		if m.knownHashes[item.Hash] || stagedHashes[key] {
			return fmt.Errorf("UNIQUE constraint failed: media.hash, media.type")
		}
		stagedHashes[key] = true
	}
	m.media = append(m.media, staged.media...)
	m.updates = append(m.updates, staged.updates...)
	for _, item := range staged.media {
		m.knownHashes[item.Hash] = true
	}
	// Sessions use INSERT OR REPLACE keyed by id.
	for _, session := range staged.sessions {
		replaced := false
		for i, existing := range m.sessions {
			if existing.ID == session.ID {
				m.sessions[i] = session
				replaced = true
				break
			}
		}
		if !replaced {
			m.sessions = append(m.sessions, session)
		}
	}
	return nil
}

type mockTx struct {
	media    []*places.MediaItem
	sessions []*places.ImportSession
	updates  []places.LocationUpdate
}

func (t *mockTx) InsertMedia(item *places.MediaItem) error {
	t.media = append(t.media, item)
	return nil
}

func (t *mockTx) InsertImportSession(session *places.ImportSession) error {
	t.sessions = append(t.sessions, session)
	return nil
}

func (t *mockTx) UpdateLocationFields(locationID string, update places.LocationUpdate) error {
	t.updates = append(t.updates, update)
	return nil
}

// MemoryStore is an in-memory ManifestStore.
type MemoryStore struct {
	manifests map[string][]byte
	saves     int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{manifests: make(map[string][]byte)}
}

func (s *MemoryStore) Save(m *ImportManifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	s.manifests[m.ID] = data
	s.saves++
	return nil
}

func (s *MemoryStore) Load(importID string) (*ImportManifest, error) {
	data, ok := s.manifests[importID]
	if !ok {
		return nil, ErrManifestNotFound
	}
	var m ImportManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *MemoryStore) List() ([]*ImportManifest, error) {
	var out []*ImportManifest
	for id := range s.manifests {
		m, err := s.Load(id)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *MemoryStore) Delete(importID string) error {
	if _, ok := s.manifests[importID]; !ok {
		return ErrManifestNotFound
	}
	delete(s.manifests, importID)
	return nil
}

// FakeHasher hashes by base name so tests control collisions.
type FakeHasher struct {
	calls int
}

func (h *FakeHasher) Hash(ctx context.Context, filePath string) (string, error) {
	h.calls++
	return testHash(filepath.Base(filePath)), nil
}

// testHash derives a deterministic 64-char hex-looking digest from a name.
func testHash(name string) string {
	out := make([]byte, 64)
	for i := range out {
		out[i] = "0123456789abcdef"[int(name[i%len(name)])%16]
	}
	return string(out)
}

type StubExtractor struct {
	metadata *places.MediaMetadata
	err      error
}

func (e *StubExtractor) Extract(ctx context.Context, filePath string) (*places.MediaMetadata, error) {
	return e.metadata, e.err
}

type StubPlanner struct{}

func (p *StubPlanner) PlanPath(snapshot places.LocationSnapshot, mediaType places.MediaType, hash, ext string) string {
	return filepath.Join("locations", snapshot.ID, string(mediaType), hash+ext)
}

// FakeCopier records copies without touching the archive side of disk.
type FakeCopier struct {
	copied  map[string]string // dst -> src
	deleted []string
	failSrc map[string]bool
}

func NewFakeCopier() *FakeCopier {
	return &FakeCopier{copied: make(map[string]string), failSrc: make(map[string]bool)}
}

func (c *FakeCopier) Copy(ctx context.Context, src, dst, wantHash string) (CopyOutcome, error) {
	if c.failSrc[src] {
		return "", fmt.Errorf("%w: %s", ErrHashMismatch, filepath.Base(src))
	}
	if _, ok := c.copied[dst]; ok {
		return CopySkipped, nil
	}
	c.copied[dst] = src
	return CopyDone, nil
}

func (c *FakeCopier) Delete(path string) error {
	c.deleted = append(c.deleted, path)
	return nil
}

func testConfig(t *testing.T) *config.Manager {
	t.Helper()
	return config.NewManager(&config.Config{
		ArchivePath: t.TempDir(),
		Import: config.Import{
			Workers: 2,
			GPS:     config.GPSPolicy{MinorKm: 1, MajorKm: 10},
			Extensions: config.Extensions{
				Image:    []string{".jpg", ".png"},
				Video:    []string{".mp4"},
				Audio:    []string{".mp3"},
				Map:      []string{".gpx"},
				Document: []string{".pdf"},
			},
		},
	})
}

func testLocation() *places.Location {
	lat, lon := 40.7128, -74.0060
	return &places.Location{
		ID:        "loc-1",
		Name:      "Old Mill",
		ShortName: "mill",
		Region:    "hudson-valley",
		Type:      "industrial",
		Latitude:  &lat,
		Longitude: &lon,
	}
}

func writeTestFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("content of "+name), 0644); err != nil {
		t.Fatalf("write test file: %v", err)
	}
	return path
}

type testEnv struct {
	catalog *MockCatalog
	store   *MemoryStore
	hasher  *FakeHasher
	copier  *FakeCopier
	orch    *Orchestrator
}

func newTestEnv(t *testing.T, extractors ExtractorSet) *testEnv {
	t.Helper()
	catalog := NewMockCatalog(testLocation())
	store := NewMemoryStore()
	hasher := &FakeHasher{}
	copier := NewFakeCopier()
	orch := NewOrchestrator(catalog, store, hasher, extractors, &StubPlanner{}, copier, nil, nil, testConfig(t))
	return &testEnv{catalog: catalog, store: store, hasher: hasher, copier: copier, orch: orch}
}

func TestRun_MixedBatch(t *testing.T) {
	dir := t.TempDir()
	// Media GPS ~40m from the location, well inside the minor tier.
	gps := &places.GPSPoint{Latitude: 40.7131, Longitude: -74.0060}
	env := newTestEnv(t, ExtractorSet{
		places.MediaImage: &StubExtractor{metadata: &places.MediaMetadata{
			Image: &places.ImageMeta{Width: 4000, Height: 3000, GPS: gps},
		}},
	})

	good := writeTestFile(t, dir, "facade.jpg")
	dupe := writeTestFile(t, dir, "known.jpg")
	env.catalog.knownHashes[testHash("known.jpg")] = true
	missing := filepath.Join(dir, "never-created.jpg")

	summary, err := env.orch.Run(context.Background(), "loc-1", []string{good, dupe, missing}, Options{}, nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if summary.TotalFiles != 3 || summary.Imported != 1 || summary.Duplicates != 1 || summary.Errored != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Imported+summary.Duplicates+summary.Errored != summary.TotalFiles {
		t.Errorf("summary counts do not add up: %+v", summary)
	}

	if len(env.catalog.media) != 1 {
		t.Fatalf("expected 1 media row, got %d", len(env.catalog.media))
	}
	item := env.catalog.media[0]
	if item.Hash != testHash("facade.jpg") {
		t.Errorf("wrong hash committed: %s", item.Hash)
	}
	if item.Type != places.MediaImage {
		t.Errorf("wrong type committed: %s", item.Type)
	}

	if len(env.catalog.sessions) != 1 {
		t.Fatalf("expected 1 import session, got %d", len(env.catalog.sessions))
	}
	session := env.catalog.sessions[0]
	if session.Total != 3 || session.Imported != 1 || session.Duplicates != 1 || session.Errored != 1 {
		t.Errorf("unexpected session totals: %+v", session)
	}

	// GPS only ~40m off: warning recorded but severity none, no advisory.
	var goodEntry *FileEntry
	manifest, _ := env.store.Load(session.ID)
	for _, entry := range manifest.Files {
		if entry.DisplayName == "facade.jpg" {
			goodEntry = entry
		}
	}
	if goodEntry == nil {
		t.Fatal("good entry missing from manifest")
	}
	if goodEntry.GPSWarning == nil || goodEntry.GPSWarning.Severity != GPSSeverityNone {
		t.Errorf("expected none-severity gps check, got %+v", goodEntry.GPSWarning)
	}
	if len(goodEntry.Warnings) != 0 {
		t.Errorf("expected no advisories, got %v", goodEntry.Warnings)
	}
	if manifest.Phase != PhaseComplete {
		t.Errorf("expected complete phase, got %s", manifest.Phase)
	}
}

func TestRun_UnknownExtensionFallsBackToDocument(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, ExtractorSet{})

	odd := writeTestFile(t, dir, "survey.xyz")
	summary, err := env.orch.Run(context.Background(), "loc-1", []string{odd}, Options{}, nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summary.Imported != 1 {
		t.Fatalf("expected file to import, got %+v", summary)
	}
	if env.catalog.media[0].Type != places.MediaDocument {
		t.Errorf("expected document fallback, got %s", env.catalog.media[0].Type)
	}
	if len(summary.Files[0].Warnings) == 0 {
		t.Error("expected an advisory about the unrecognized extension")
	}
}

func TestRun_ExtractionFailureIsAdvisory(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, ExtractorSet{
		places.MediaImage: &StubExtractor{err: errors.New("exiftool timed out")},
	})

	path := writeTestFile(t, dir, "broken-exif.jpg")
	summary, err := env.orch.Run(context.Background(), "loc-1", []string{path}, Options{}, nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summary.Imported != 1 {
		t.Fatalf("file should import despite failed extraction: %+v", summary)
	}
	if env.catalog.media[0].Metadata != nil {
		t.Error("expected no metadata on the committed item")
	}
	if len(summary.Files[0].Warnings) == 0 {
		t.Error("expected an extraction advisory")
	}
}

func TestRun_CommitFailureLeavesResumableManifest(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, ExtractorSet{})
	env.catalog.failTx = true

	path := writeTestFile(t, dir, "report.pdf")
	_, err := env.orch.Run(context.Background(), "loc-1", []string{path}, Options{}, nil, nil)
	if err == nil {
		t.Fatal("expected batch error")
	}
	var batchErr *BatchError
	if !errors.As(err, &batchErr) || batchErr.Phase != PhaseCommit {
		t.Fatalf("expected commit-phase batch error, got %v", err)
	}
	if len(env.catalog.media) != 0 {
		t.Fatalf("no media rows should exist after rollback, got %d", len(env.catalog.media))
	}

	manifests, _ := env.store.List()
	if len(manifests) != 1 {
		t.Fatalf("expected 1 manifest, got %d", len(manifests))
	}
	manifest := manifests[0]
	if manifest.Phase != PhaseFailed || manifest.FailedPhase != PhaseCommit {
		t.Fatalf("expected failed-at-commit, got phase=%s failedPhase=%s", manifest.Phase, manifest.FailedPhase)
	}

	// Recover the catalog and resume: only the commit phase should rerun.
	env.catalog.failTx = false
	hashCallsBefore := env.hasher.calls
	copiesBefore := len(env.copier.copied)

	summary, err := env.orch.Resume(context.Background(), manifest.ID, nil, nil)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if summary.Imported != 1 {
		t.Fatalf("expected 1 imported after resume, got %+v", summary)
	}
	if env.hasher.calls != hashCallsBefore {
		t.Errorf("resume re-ran hashing: %d extra calls", env.hasher.calls-hashCallsBefore)
	}
	if len(env.copier.copied) != copiesBefore {
		t.Error("resume re-ran the copy phase")
	}
	if len(env.catalog.media) != 1 || len(env.catalog.sessions) != 1 {
		t.Errorf("expected 1 media row and 1 session, got %d/%d", len(env.catalog.media), len(env.catalog.sessions))
	}
}

func TestResume_CompleteManifestReturnsStoredSummary(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, ExtractorSet{})

	path := writeTestFile(t, dir, "notes.pdf")
	first, err := env.orch.Run(context.Background(), "loc-1", []string{path}, Options{}, nil, nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	manifests, _ := env.store.List()
	hashCallsBefore := env.hasher.calls

	again, err := env.orch.Resume(context.Background(), manifests[0].ID, nil, nil)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if again.Imported != first.Imported || again.TotalFiles != first.TotalFiles {
		t.Errorf("stored summary differs: %+v vs %+v", again, first)
	}
	if env.hasher.calls != hashCallsBefore {
		t.Error("resuming a complete import should do no work")
	}
	if len(env.catalog.media) != 1 {
		t.Errorf("resume duplicated media rows: %d", len(env.catalog.media))
	}
}

func TestRun_CancelledBeforeDispatchMarksEntriesCancelled(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, ExtractorSet{})

	paths := []string{
		writeTestFile(t, dir, "one.pdf"),
		writeTestFile(t, dir, "two.pdf"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := env.orch.Run(ctx, "loc-1", paths, Options{}, nil, nil)
	if err != nil {
		t.Fatalf("cancelled batch should still complete: %v", err)
	}
	if summary.Errored != 2 || summary.Imported != 0 {
		t.Fatalf("expected all entries errored, got %+v", summary)
	}
	if len(env.catalog.media) != 0 {
		t.Error("no media should commit for a fully cancelled batch")
	}
	if len(env.catalog.sessions) != 0 {
		t.Error("no session row should commit for a fully cancelled batch")
	}

	manifests, _ := env.store.List()
	manifest := manifests[0]
	if manifest.Phase != PhaseComplete {
		t.Fatalf("cancelled batch should end complete, got %s", manifest.Phase)
	}
	for _, entry := range manifest.Files {
		if entry.Status != EntryCancelled {
			t.Errorf("entry %s: expected cancelled, got %s", entry.DisplayName, entry.Status)
		}
	}

	// Resume retries the cancelled entries from serialize.
	resumed, err := env.orch.Resume(context.Background(), manifest.ID, nil, nil)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if resumed.Imported != 2 || resumed.Errored != 0 {
		t.Fatalf("expected both files imported on resume, got %+v", resumed)
	}
	if len(env.catalog.media) != 2 {
		t.Errorf("expected 2 media rows, got %d", len(env.catalog.media))
	}
}

func TestRun_DuplicateWithinArchiveAcrossBatches(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, ExtractorSet{})

	first := writeTestFile(t, dir, "shared.pdf")
	if _, err := env.orch.Run(context.Background(), "loc-1", []string{first}, Options{}, nil, nil); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// Same base name hashes identically, simulating identical content under
	// a different path.
	otherDir := t.TempDir()
	second := writeTestFile(t, otherDir, "shared.pdf")
	summary, err := env.orch.Run(context.Background(), "loc-1", []string{second}, Options{}, nil, nil)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if summary.Duplicates != 1 || summary.Imported != 0 {
		t.Fatalf("expected duplicate skip, got %+v", summary)
	}
	if len(env.catalog.media) != 1 {
		t.Errorf("duplicate must not add a media row, got %d", len(env.catalog.media))
	}
}

func TestRun_DuplicateWithinBatch(t *testing.T) {
	env := newTestEnv(t, ExtractorSet{})

	// Identical content under two different paths in the same batch. The
	// catalog knows neither hash yet, so only the in-batch claim can catch
	// the collision before commit hits the unique constraint.
	first := writeTestFile(t, t.TempDir(), "twin.pdf")
	second := writeTestFile(t, t.TempDir(), "twin.pdf")

	summary, err := env.orch.Run(context.Background(), "loc-1", []string{first, second}, Options{}, nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summary.Imported != 1 || summary.Duplicates != 1 {
		t.Fatalf("expected one import and one duplicate, got %+v", summary)
	}
	if len(env.catalog.media) != 1 {
		t.Fatalf("expected 1 media row, got %d", len(env.catalog.media))
	}
	if len(env.copier.copied) != 1 {
		t.Errorf("only one copy should reach the archive, got %d", len(env.copier.copied))
	}

	manifests, _ := env.store.List()
	if manifests[0].Phase != PhaseComplete {
		t.Errorf("expected complete phase, got %s", manifests[0].Phase)
	}
}

func TestResume_ReplaysCommitWithoutReinserting(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, ExtractorSet{})

	path := writeTestFile(t, dir, "ledger.pdf")
	if _, err := env.orch.Run(context.Background(), "loc-1", []string{path}, Options{}, nil, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// Simulate a crash between the commit transaction and the manifest save:
	// the catalog holds the rows, the manifest still says commit is pending.
	manifests, _ := env.store.List()
	manifest := manifests[0]
	manifest.Phase = PhaseCommit
	manifest.FailedPhase = ""
	manifest.Summary = nil
	manifest.SessionRecorded = false
	for _, entry := range manifest.Files {
		entry.Status = EntryPending
	}
	if err := env.store.Save(manifest); err != nil {
		t.Fatalf("save manifest: %v", err)
	}

	summary, err := env.orch.Resume(context.Background(), manifest.ID, nil, nil)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if summary.Imported != 1 {
		t.Fatalf("expected 1 imported, got %+v", summary)
	}
	if len(env.catalog.media) != 1 {
		t.Errorf("replayed commit duplicated media rows: %d", len(env.catalog.media))
	}
	if len(env.catalog.sessions) != 1 {
		t.Errorf("replayed commit duplicated session rows: %d", len(env.catalog.sessions))
	}

	final, _ := env.store.Load(manifest.ID)
	if final.Phase != PhaseComplete {
		t.Errorf("expected complete phase after replay, got %s", final.Phase)
	}
}

func TestRun_DeleteOriginalsAfterCommit(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, ExtractorSet{})

	good := writeTestFile(t, dir, "keepsake.jpg")
	dupe := writeTestFile(t, dir, "known.jpg")
	env.catalog.knownHashes[testHash("known.jpg")] = true

	_, err := env.orch.Run(context.Background(), "loc-1", []string{good, dupe}, Options{DeleteOriginals: true}, nil, nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(env.copier.deleted) != 1 || env.copier.deleted[0] != good {
		t.Errorf("only the imported original should be deleted, got %v", env.copier.deleted)
	}
}

func TestRun_ProgressEventsAreOrdered(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnv(t, ExtractorSet{})

	var paths []string
	for i := 0; i < 6; i++ {
		paths = append(paths, writeTestFile(t, dir, fmt.Sprintf("file-%d.pdf", i)))
	}

	var events []ProgressEvent
	_, err := env.orch.Run(context.Background(), "loc-1", paths, Options{Workers: 4}, func(ev ProgressEvent) {
		events = append(events, ev)
	}, nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	byPhase := make(map[Phase][]ProgressEvent)
	for _, ev := range events {
		byPhase[ev.Phase] = append(byPhase[ev.Phase], ev)
	}
	for phase, phaseEvents := range byPhase {
		for i, ev := range phaseEvents {
			if ev.Processed != i+1 {
				t.Errorf("%s: event %d has processed=%d", phase, i, ev.Processed)
			}
			if ev.Total != len(paths) {
				t.Errorf("%s: event total=%d, want %d", phase, ev.Total, len(paths))
			}
		}
	}
	if len(byPhase[PhaseSerialize]) != len(paths) {
		t.Errorf("expected %d serialize events, got %d", len(paths), len(byPhase[PhaseSerialize]))
	}
}

func TestRun_LocationBackfillFromMediaGPS(t *testing.T) {
	dir := t.TempDir()
	location := testLocation()
	location.Latitude = nil
	location.Longitude = nil

	gps := &places.GPSPoint{Latitude: 41.2, Longitude: -73.9}
	catalog := NewMockCatalog(location)
	store := NewMemoryStore()
	orch := NewOrchestrator(catalog, store, &FakeHasher{}, ExtractorSet{
		places.MediaImage: &StubExtractor{metadata: &places.MediaMetadata{
			Image: &places.ImageMeta{GPS: gps},
		}},
	}, &StubPlanner{}, NewFakeCopier(), nil, nil, testConfig(t))

	path := writeTestFile(t, dir, "geo.jpg")
	if _, err := orch.Run(context.Background(), "loc-1", []string{path}, Options{}, nil, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(catalog.updates) != 1 {
		t.Fatalf("expected 1 location back-fill, got %d", len(catalog.updates))
	}
	update := catalog.updates[0]
	if update.Latitude == nil || *update.Latitude != gps.Latitude {
		t.Errorf("unexpected back-fill: %+v", update)
	}
}

func TestRun_UnknownLocationFailsAtIntake(t *testing.T) {
	env := newTestEnv(t, ExtractorSet{})
	_, err := env.orch.Run(context.Background(), "nope", []string{"/tmp/whatever.jpg"}, Options{}, nil, nil)
	var batchErr *BatchError
	if !errors.As(err, &batchErr) || batchErr.Phase != PhaseIntake {
		t.Fatalf("expected intake batch error, got %v", err)
	}
	if !errors.Is(err, places.ErrLocationNotFound) {
		t.Errorf("expected wrapped ErrLocationNotFound, got %v", err)
	}
}
