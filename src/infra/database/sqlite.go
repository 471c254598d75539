package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/nvall/sitevault/src/places"
)

// SqliteCatalog is a SQLite implementation of the places.Catalog interface.
type SqliteCatalog struct {
	db *sql.DB
}

// NewSqliteCatalog creates a new SqliteCatalog.
func NewSqliteCatalog(path string) (*SqliteCatalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// The catalog is embedded and single-process; one connection sidesteps
	// SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &SqliteCatalog{db: db}, nil
}

// Close closes the underlying database handle.
func (d *SqliteCatalog) Close() error {
	return d.db.Close()
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS locations (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			short_name TEXT,
			region TEXT NOT NULL,
			type TEXT NOT NULL,
			latitude REAL,
			longitude REAL,
			address TEXT,
			notes TEXT,
			added_date TEXT,
			modified_date TEXT
		);

		CREATE TABLE IF NOT EXISTS media (
			id TEXT PRIMARY KEY,
			location_id TEXT NOT NULL,
			hash TEXT NOT NULL,
			type TEXT NOT NULL,
			original_name TEXT,
			original_path TEXT,
			archive_path TEXT NOT NULL,
			size_bytes INTEGER,
			metadata TEXT,
			import_id TEXT,
			added_date TEXT,
			UNIQUE(hash, type),
			FOREIGN KEY (location_id) REFERENCES locations(id)
		);

		CREATE TABLE IF NOT EXISTS import_sessions (
			id TEXT PRIMARY KEY,
			location_id TEXT NOT NULL,
			started_at TEXT,
			finished_at TEXT,
			total INTEGER,
			imported INTEGER,
			duplicates INTEGER,
			errored INTEGER,
			FOREIGN KEY (location_id) REFERENCES locations(id)
		);

		CREATE INDEX IF NOT EXISTS idx_media_location ON media(location_id);
		CREATE INDEX IF NOT EXISTS idx_media_hash ON media(hash);
		CREATE INDEX IF NOT EXISTS idx_sessions_location ON import_sessions(location_id);
	`)
	return err
}

// AddLocation adds a location to the catalog.
func (d *SqliteCatalog) AddLocation(ctx context.Context, location *places.Location) error {
	if err := location.Validate(); err != nil {
		slog.Error("AddLocation: validation failed", "error", err, "name", location.Name)
		return err
	}
	if location.ID == "" {
		location.ID = uuid.New().String()
	}
	now := time.Now()
	if location.AddedDate.IsZero() {
		location.AddedDate = now
	}
	location.ModifiedDate = now

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO locations (id, name, short_name, region, type, latitude, longitude, address, notes, added_date, modified_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, location.ID, location.Name, location.ShortName, location.Region, location.Type,
		location.Latitude, location.Longitude, location.Address, location.Notes,
		location.AddedDate.Format(time.RFC3339), location.ModifiedDate.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert location: %w", err)
	}
	return nil
}

// FindLocation returns a location by id.
func (d *SqliteCatalog) FindLocation(ctx context.Context, id string) (*places.Location, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, name, short_name, region, type, latitude, longitude, address, notes, added_date, modified_date
		FROM locations WHERE id = ?
	`, id)

	location, err := scanLocation(row)
	if err == sql.ErrNoRows {
		return nil, places.ErrLocationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query location: %w", err)
	}
	return location, nil
}

// GetLocations returns all cataloged locations ordered by name.
func (d *SqliteCatalog) GetLocations(ctx context.Context) ([]*places.Location, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, short_name, region, type, latitude, longitude, address, notes, added_date, modified_date
		FROM locations ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locations []*places.Location
	for rows.Next() {
		location, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, location)
	}
	return locations, rows.Err()
}

// GetLocationsCount returns the number of cataloged locations.
func (d *SqliteCatalog) GetLocationsCount(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM locations`).Scan(&count)
	return count, err
}

// CheckDuplicate reports whether media with the given hash and type already
// exists anywhere in the archive.
func (d *SqliteCatalog) CheckDuplicate(ctx context.Context, hash string, mediaType places.MediaType) (bool, error) {
	var count int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media WHERE hash = ? AND type = ?`, hash, string(mediaType)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate: %w", err)
	}
	return count > 0, nil
}

// GetMediaForLocation returns all media rows for a location, newest first.
func (d *SqliteCatalog) GetMediaForLocation(ctx context.Context, locationID string) ([]*places.MediaItem, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, location_id, hash, type, original_name, original_path, archive_path, size_bytes, metadata, import_id, added_date
		FROM media WHERE location_id = ? ORDER BY added_date DESC
	`, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query media: %w", err)
	}
	defer rows.Close()

	var items []*places.MediaItem
	for rows.Next() {
		item, err := scanMediaItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetMediaCount returns the number of media rows in the catalog.
func (d *SqliteCatalog) GetMediaCount(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media`).Scan(&count)
	return count, err
}

// RunTransaction runs fn inside a single SQLite transaction.
func (d *SqliteCatalog) RunTransaction(ctx context.Context, fn func(tx places.CatalogTx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{ctx: ctx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// sqliteTx is the write surface handed to RunTransaction callbacks.
type sqliteTx struct {
	ctx context.Context
	tx  *sql.Tx
}

// InsertMedia inserts one media row.
func (t *sqliteTx) InsertMedia(item *places.MediaItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.AddedDate.IsZero() {
		item.AddedDate = time.Now()
	}

	var metadata any
	if item.Metadata != nil {
		data, err := json.Marshal(item.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode media metadata: %w", err)
		}
		metadata = string(data)
	}

	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO media (id, location_id, hash, type, original_name, original_path, archive_path, size_bytes, metadata, import_id, added_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, item.LocationID, item.Hash, string(item.Type), item.OriginalName, item.OriginalPath,
		item.ArchivePath, item.SizeBytes, metadata, item.ImportID, item.AddedDate.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert media: %w", err)
	}
	return nil
}

// InsertImportSession inserts the per-batch session row. The id is the import
// id, so a commit replayed after a crash overwrites its own row instead of
// violating the primary key.
func (t *sqliteTx) InsertImportSession(session *places.ImportSession) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT OR REPLACE INTO import_sessions (id, location_id, started_at, finished_at, total, imported, duplicates, errored)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, session.ID, session.LocationID,
		session.StartedAt.Format(time.RFC3339), session.FinishedAt.Format(time.RFC3339),
		session.Total, session.Imported, session.Duplicates, session.Errored)
	if err != nil {
		return fmt.Errorf("failed to insert import session: %w", err)
	}
	return nil
}

// UpdateLocationFields applies a partial update to a location.
func (t *sqliteTx) UpdateLocationFields(locationID string, update places.LocationUpdate) error {
	if update.Empty() {
		return nil
	}

	query := `UPDATE locations SET modified_date = ?`
	args := []any{time.Now().Format(time.RFC3339)}
	if update.Latitude != nil {
		query += `, latitude = ?`
		args = append(args, *update.Latitude)
	}
	if update.Longitude != nil {
		query += `, longitude = ?`
		args = append(args, *update.Longitude)
	}
	if update.Address != nil {
		query += `, address = ?`
		args = append(args, *update.Address)
	}
	query += ` WHERE id = ?`
	args = append(args, locationID)

	result, err := t.tx.ExecContext(t.ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update location: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return places.ErrLocationNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(row rowScanner) (*places.Location, error) {
	var location places.Location
	var latitude, longitude sql.NullFloat64
	var addedDate, modifiedDate string
	err := row.Scan(&location.ID, &location.Name, &location.ShortName, &location.Region, &location.Type,
		&latitude, &longitude, &location.Address, &location.Notes, &addedDate, &modifiedDate)
	if err != nil {
		return nil, err
	}
	if latitude.Valid && longitude.Valid {
		location.Latitude = &latitude.Float64
		location.Longitude = &longitude.Float64
	}
	location.AddedDate, _ = time.Parse(time.RFC3339, addedDate)
	location.ModifiedDate, _ = time.Parse(time.RFC3339, modifiedDate)
	return &location, nil
}

func scanMediaItem(row rowScanner) (*places.MediaItem, error) {
	var item places.MediaItem
	var mediaType string
	var metadata sql.NullString
	var addedDate string
	err := row.Scan(&item.ID, &item.LocationID, &item.Hash, &mediaType, &item.OriginalName,
		&item.OriginalPath, &item.ArchivePath, &item.SizeBytes, &metadata, &item.ImportID, &addedDate)
	if err != nil {
		return nil, err
	}
	item.Type = places.MediaType(mediaType)
	if metadata.Valid && metadata.String != "" {
		var m places.MediaMetadata
		if err := json.Unmarshal([]byte(metadata.String), &m); err == nil {
			item.Metadata = &m
		}
	}
	item.AddedDate, _ = time.Parse(time.RFC3339, addedDate)
	return &item, nil
}
