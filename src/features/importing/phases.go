package importing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nvall/sitevault/src/places"
)

// forEachEntry dispatches per-file work across a bounded worker pool. The
// cancellation signal is polled between files, never mid-file: entries not
// yet dispatched when the context ends are marked cancelled, in-flight ones
// finish. Progress events are emitted in file-list order regardless of worker
// completion order.
func (o *Orchestrator) forEachEntry(ctx context.Context, manifest *ImportManifest, phase Phase, progress ProgressFunc, work func(entry *FileEntry)) bool {
	total := len(manifest.Files)
	done := make([]chan struct{}, total)
	for i := range done {
		done[i] = make(chan struct{})
	}

	sem := make(chan struct{}, o.workers(manifest.Options))
	go func() {
		for i, entry := range manifest.Files {
			if ctx.Err() != nil {
				if !entry.Terminal() {
					entry.Status = EntryCancelled
					entry.Error = fmt.Sprintf("cancelled before %s", phase)
					if o.recorder != nil {
						o.recorder.FileErrored()
					}
				}
				close(done[i])
				continue
			}
			sem <- struct{}{}
			go func(i int, entry *FileEntry) {
				defer func() {
					<-sem
					close(done[i])
				}()
				work(entry)
			}(i, entry)
		}
	}()

	for i, entry := range manifest.Files {
		<-done[i]
		progress.emit(ProgressEvent{
			Phase:       phase,
			Processed:   i + 1,
			Total:       total,
			CurrentFile: entry.DisplayName,
		})
	}
	return ctx.Err() != nil
}

// runSerialize hashes every unresolved entry, classifies its type, checks the
// catalog for duplicates and extracts metadata. All failures here are
// per-file; extraction failures are advisory and the file still proceeds.
func (o *Orchestrator) runSerialize(ctx context.Context, manifest *ImportManifest, progress ProgressFunc, logger *slog.Logger) bool {
	classifier := NewClassifier(o.config.Get().Import.Extensions)
	gpsPolicy := o.config.Get().Import.GPS

	// The catalog only knows about committed batches, so identical files
	// within this batch must be caught here: the first entry to claim a
	// (hash, type) pair proceeds, the rest become duplicates.
	var claimMu sync.Mutex
	claimed := make(map[string]bool)

	return o.forEachEntry(ctx, manifest, PhaseSerialize, progress, func(entry *FileEntry) {
		if entry.Terminal() {
			return
		}

		if entry.Hash == "" {
			hash, err := o.hasher.Hash(ctx, entry.OriginalPath)
			if err != nil {
				entry.Fail(fmt.Errorf("hash source: %w", err))
				if o.recorder != nil {
					o.recorder.FileErrored()
				}
				logger.Warn("Orchestrator.runSerialize: could not hash source", "path", entry.OriginalPath, "error", err)
				return
			}
			entry.Hash = hash
		}

		if entry.Type == "" {
			mediaType, known := classifier.Classify(entry.OriginalPath)
			entry.Type = mediaType
			if !known {
				entry.Warn("unrecognized extension, classified as document")
			}
		}

		duplicate, err := o.catalog.CheckDuplicate(ctx, entry.Hash, entry.Type)
		if err != nil {
			entry.Fail(fmt.Errorf("duplicate check: %w", err))
			if o.recorder != nil {
				o.recorder.FileErrored()
			}
			return
		}
		if duplicate {
			entry.Duplicate = true
			entry.Status = EntryDuplicate
			if o.recorder != nil {
				o.recorder.FileDuplicate()
			}
			logger.Info("Orchestrator.runSerialize: duplicate content, skipping", "file", entry.DisplayName, "hash", entry.Hash)
			return
		}

		key := entry.Hash + "|" + string(entry.Type)
		claimMu.Lock()
		repeat := claimed[key]
		claimed[key] = true
		claimMu.Unlock()
		if repeat {
			entry.Duplicate = true
			entry.Status = EntryDuplicate
			if o.recorder != nil {
				o.recorder.FileDuplicate()
			}
			logger.Info("Orchestrator.runSerialize: duplicate within batch, skipping", "file", entry.DisplayName, "hash", entry.Hash)
			return
		}

		if entry.Metadata == nil {
			if extractor, ok := o.extractors[entry.Type]; ok {
				metadata, err := extractor.Extract(ctx, entry.OriginalPath)
				if err != nil {
					entry.Warn("metadata extraction failed: " + err.Error())
					if o.recorder != nil {
						o.recorder.ExtractionFailure(string(entry.Type))
					}
					logger.Warn("Orchestrator.runSerialize: metadata extraction failed", "file", entry.DisplayName, "type", entry.Type, "error", err)
				} else {
					entry.Metadata = metadata
				}
			}
		}

		if entry.GPSWarning == nil {
			if warning := CheckGPS(manifest.Location, entry.Metadata.GPS(), gpsPolicy); warning != nil {
				entry.GPSWarning = warning
				if warning.Severity != GPSSeverityNone {
					entry.Warn(fmt.Sprintf("gps is %.1f km from location coordinates (%s)", warning.DistanceKm, warning.Severity))
				}
			}
		}
	})
}

// runCopy plans each verified entry's destination, copies the bytes and
// re-hashes the copy. A hash mismatch fails the entry, not the batch. An
// existing destination with a matching hash is skipped, which makes the phase
// safely re-runnable after a crash.
func (o *Orchestrator) runCopy(ctx context.Context, manifest *ImportManifest, progress ProgressFunc, logger *slog.Logger) bool {
	archiveRoot := o.config.Get().ArchivePath

	return o.forEachEntry(ctx, manifest, PhaseCopy, progress, func(entry *FileEntry) {
		if entry.Terminal() {
			return
		}
		if entry.Hash == "" || entry.Type == "" {
			entry.Fail(fmt.Errorf("entry reached copy phase without hash"))
			if o.recorder != nil {
				o.recorder.FileErrored()
			}
			return
		}

		ext := strings.ToLower(filepath.Ext(entry.OriginalPath))
		entry.DestinationPath = o.planner.PlanPath(manifest.Location, entry.Type, entry.Hash, ext)
		destination := filepath.Join(archiveRoot, entry.DestinationPath)

		outcome, err := o.copier.Copy(ctx, entry.OriginalPath, destination, entry.Hash)
		if err != nil {
			entry.Verified = false
			entry.Fail(fmt.Errorf("copy to archive: %w", err))
			if o.recorder != nil {
				o.recorder.FileErrored()
			}
			logger.Warn("Orchestrator.runCopy: copy failed", "file", entry.DisplayName, "destination", entry.DestinationPath, "error", err)
			return
		}
		entry.Verified = true
		if outcome == CopyDone && o.recorder != nil {
			o.recorder.BytesCopied(entry.SizeBytes)
		}

		if entry.Type == places.MediaImage && o.thumbs != nil {
			if _, err := o.thumbs.Generate(ctx, destination); err != nil {
				entry.Warn("thumbnail generation failed: " + err.Error())
				logger.Warn("Orchestrator.runCopy: thumbnail generation failed", "file", entry.DisplayName, "error", err)
			}
		}
	})
}

// runCommit writes every verified, non-duplicate, non-errored entry to the
// catalog in exactly one transaction, together with the import-session record
// and any location back-fill. An error rolls the whole transaction back and
// is fatal to the batch. Strictly single-threaded.
func (o *Orchestrator) runCommit(ctx context.Context, manifest *ImportManifest, cancelled bool, progress ProgressFunc, logger *slog.Logger) error {
	// A cancellation that arrived during earlier phases must not abort the
	// commit of files verified before it.
	ctx = context.WithoutCancel(ctx)

	var eligible []*FileEntry
	for _, entry := range manifest.Files {
		if entry.Status == EntryPending && entry.Verified && !entry.Duplicate {
			eligible = append(eligible, entry)
		}
	}

	// A cancelled batch with nothing verified has nothing to commit; its
	// summary is synthesized from manifest state instead.
	if len(eligible) == 0 && cancelled {
		return nil
	}

	// Rows from a commit that finished just before a crash are already in
	// the catalog; replaying the phase must converge on them, not re-insert
	// and trip the unique constraint.
	var toInsert []*FileEntry
	for _, entry := range eligible {
		exists, err := o.catalog.CheckDuplicate(ctx, entry.Hash, entry.Type)
		if err != nil {
			return fmt.Errorf("pre-commit duplicate check for %s: %w", entry.DisplayName, err)
		}
		if exists {
			logger.Info("Orchestrator.runCommit: row already committed, skipping insert", "file", entry.DisplayName)
			continue
		}
		if entry.MediaID == "" {
			entry.MediaID = uuid.New().String()
		}
		toInsert = append(toInsert, entry)
	}

	backfill := o.locationBackfill(manifest, eligible)
	now := time.Now()

	imported, duplicates, errored := 0, 0, 0
	for _, entry := range manifest.Files {
		switch {
		case entry.Status == EntryImported:
			imported++
		case entry.Status == EntryDuplicate:
			duplicates++
		case entry.Status != EntryPending:
			errored++
		}
	}
	for _, entry := range manifest.Files {
		if entry.Status == EntryPending && !contains(eligible, entry) {
			errored++
		}
	}

	err := o.catalog.RunTransaction(ctx, func(tx places.CatalogTx) error {
		for _, entry := range toInsert {
			item := &places.MediaItem{
				ID:           entry.MediaID,
				LocationID:   manifest.Location.ID,
				Hash:         entry.Hash,
				Type:         entry.Type,
				OriginalName: entry.DisplayName,
				OriginalPath: entry.OriginalPath,
				ArchivePath:  entry.DestinationPath,
				SizeBytes:    entry.SizeBytes,
				Metadata:     entry.Metadata,
				ImportID:     manifest.ID,
				AddedDate:    now,
			}
			if err := item.Validate(); err != nil {
				return fmt.Errorf("media record for %s: %w", entry.DisplayName, err)
			}
			if err := tx.InsertMedia(item); err != nil {
				return fmt.Errorf("insert media for %s: %w", entry.DisplayName, err)
			}
		}
		if !manifest.SessionRecorded {
			session := &places.ImportSession{
				ID:         manifest.ID,
				LocationID: manifest.Location.ID,
				StartedAt:  manifest.CreatedAt,
				FinishedAt: now,
				Total:      len(manifest.Files),
				Imported:   imported + len(eligible),
				Duplicates: duplicates,
				Errored:    errored,
			}
			if err := tx.InsertImportSession(session); err != nil {
				return fmt.Errorf("insert import session: %w", err)
			}
		}
		if backfill != nil {
			if err := tx.UpdateLocationFields(manifest.Location.ID, *backfill); err != nil {
				return fmt.Errorf("back-fill location fields: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, entry := range eligible {
		entry.Status = EntryImported
	}
	if o.recorder != nil {
		for _, entry := range toInsert {
			o.recorder.FileImported(string(entry.Type))
		}
	}
	manifest.SessionRecorded = true

	total := len(manifest.Files)
	for i, entry := range manifest.Files {
		progress.emit(ProgressEvent{
			Phase:       PhaseCommit,
			Processed:   i + 1,
			Total:       total,
			CurrentFile: entry.DisplayName,
		})
	}
	logger.Info("Orchestrator.runCommit: transaction committed", "importID", manifest.ID, "records", len(toInsert), "replayed", len(eligible)-len(toInsert))
	return nil
}

// locationBackfill infers coordinates for a location that has none from the
// first committed entry that carries GPS metadata, queued in the same
// transaction as the media rows.
func (o *Orchestrator) locationBackfill(manifest *ImportManifest, eligible []*FileEntry) *places.LocationUpdate {
	if manifest.Location.HasCoordinates() {
		return nil
	}
	for _, entry := range eligible {
		if gps := entry.Metadata.GPS(); gps != nil {
			return &places.LocationUpdate{Latitude: &gps.Latitude, Longitude: &gps.Longitude}
		}
	}
	return nil
}

func contains(entries []*FileEntry, target *FileEntry) bool {
	for _, entry := range entries {
		if entry == target {
			return true
		}
	}
	return false
}
