package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/poonnyworld/phantom-melody/internal/modules/radio/application/ports"
	"github.com/poonnyworld/phantom-melody/internal/modules/radio/domain"
)

// searchResultLimit caps how many rows a catalog search returns.
const searchResultLimit = 25

const catalogSchema = `
CREATE TABLE IF NOT EXISTS tracks (
	id                 TEXT PRIMARY KEY,
	title              TEXT NOT NULL,
	artist             TEXT NOT NULL DEFAULT '',
	duration_seconds   INTEGER NOT NULL DEFAULT 0,
	source_kind        TEXT NOT NULL,
	source_ref         TEXT NOT NULL,
	category           TEXT NOT NULL DEFAULT '',
	play_count         INTEGER NOT NULL DEFAULT 0,
	monthly_play_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_tracks_category ON tracks (category);
`

// SQLiteCatalog is a TrackCatalog backed by a SQLite database file.
type SQLiteCatalog struct {
	db *sql.DB
}

// NewSQLiteCatalog opens (or creates) the database at path and ensures
// the schema exists.
func NewSQLiteCatalog(path string) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(catalogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}

	return &SQLiteCatalog{db: db}, nil
}

// Close closes the underlying database.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

// FetchTrackByID returns the track for the given ID.
func (c *SQLiteCatalog) FetchTrackByID(ctx context.Context, id domain.TrackID) (*domain.Track, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, title, artist, duration_seconds, source_kind, source_ref, category
		 FROM tracks WHERE id = ?`, string(id))

	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch track: %w", err)
	}
	return track, nil
}

// SearchTracks returns tracks whose title or artist contains the query.
func (c *SQLiteCatalog) SearchTracks(ctx context.Context, query string) ([]*domain.Track, error) {
	pattern := "%" + query + "%"
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, title, artist, duration_seconds, source_kind, source_ref, category
		 FROM tracks
		 WHERE title LIKE ? OR artist LIKE ?
		 ORDER BY title
		 LIMIT ?`, pattern, pattern, searchResultLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search tracks: %w", err)
	}
	defer rows.Close()

	return collectTracks(rows)
}

// ListTracks returns tracks in the given category, or all tracks when
// category is empty.
func (c *SQLiteCatalog) ListTracks(ctx context.Context, category string) ([]*domain.Track, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if category == "" {
		rows, err = c.db.QueryContext(ctx,
			`SELECT id, title, artist, duration_seconds, source_kind, source_ref, category
			 FROM tracks ORDER BY category, title`)
	} else {
		rows, err = c.db.QueryContext(ctx,
			`SELECT id, title, artist, duration_seconds, source_kind, source_ref, category
			 FROM tracks WHERE category = ? ORDER BY title`, category)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	defer rows.Close()

	return collectTracks(rows)
}

// IncrementPlayCount bumps both play counters for the track.
func (c *SQLiteCatalog) IncrementPlayCount(ctx context.Context, id domain.TrackID) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE tracks
		 SET play_count = play_count + 1, monthly_play_count = monthly_play_count + 1
		 WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to increment play count: %w", err)
	}
	return nil
}

// AddTrack inserts a new catalog row.
func (c *SQLiteCatalog) AddTrack(ctx context.Context, track *domain.Track) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO tracks (id, title, artist, duration_seconds, source_kind, source_ref, category)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(track.ID),
		track.Title,
		track.Artist,
		int(track.Duration.Seconds()),
		string(track.Source.Kind),
		track.Source.Ref,
		track.Category,
	)
	if err != nil {
		return fmt.Errorf("failed to add track: %w", err)
	}
	return nil
}

// RemoveTrack deletes the catalog row.
func (c *SQLiteCatalog) RemoveTrack(ctx context.Context, id domain.TrackID) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("failed to remove track: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to remove track: %w", err)
	}
	if affected == 0 {
		return ports.ErrTrackNotFound
	}
	return nil
}

// ResetMonthlyCounters zeroes the monthly play counters for all tracks.
func (c *SQLiteCatalog) ResetMonthlyCounters(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `UPDATE tracks SET monthly_play_count = 0`)
	if err != nil {
		return fmt.Errorf("failed to reset monthly counters: %w", err)
	}
	return nil
}

// PlayCounts returns the total and monthly play counters for a track.
func (c *SQLiteCatalog) PlayCounts(ctx context.Context, id domain.TrackID) (total, monthly int64, err error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT play_count, monthly_play_count FROM tracks WHERE id = ?`, string(id))

	if err := row.Scan(&total, &monthly); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, ports.ErrTrackNotFound
		}
		return 0, 0, fmt.Errorf("failed to fetch play counts: %w", err)
	}
	return total, monthly, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (*domain.Track, error) {
	var (
		id, title, artist, kind, ref, category string
		durationSeconds                        int64
	)
	if err := row.Scan(&id, &title, &artist, &durationSeconds, &kind, &ref, &category); err != nil {
		return nil, err
	}

	return &domain.Track{
		ID:       domain.TrackID(id),
		Title:    title,
		Artist:   artist,
		Duration: time.Duration(durationSeconds) * time.Second,
		Source: domain.AudioSource{
			Kind: domain.ParseSourceKind(kind),
			Ref:  ref,
		},
		Category: category,
	}, nil
}

func collectTracks(rows *sql.Rows) ([]*domain.Track, error) {
	var tracks []*domain.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tracks: %w", err)
	}
	return tracks, nil
}

// Ensure SQLiteCatalog implements the catalog port.
var _ ports.TrackCatalog = (*SQLiteCatalog)(nil)
