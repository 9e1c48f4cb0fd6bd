package ports

import (
	"context"
	"errors"

	"github.com/poonnyworld/phantom-melody/internal/modules/radio/domain"
)

// ErrTrackNotFound is returned when a track ID has no catalog row.
var ErrTrackNotFound = errors.New("track not found")

// TrackCatalog is the boundary to the durable track store. The playback
// core only reads metadata and bumps play counters; catalog writes are
// administrative operations invoked from the command layer.
type TrackCatalog interface {
	// FetchTrackByID returns the track for the given ID, or
	// ErrTrackNotFound.
	FetchTrackByID(ctx context.Context, id domain.TrackID) (*domain.Track, error)

	// SearchTracks returns tracks whose title or artist matches the
	// query, capped at a reasonable display limit.
	SearchTracks(ctx context.Context, query string) ([]*domain.Track, error)

	// ListTracks returns tracks in the given category; an empty
	// category lists everything.
	ListTracks(ctx context.Context, category string) ([]*domain.Track, error)

	// IncrementPlayCount bumps the track's total and monthly play
	// counters. Best effort: callers fire and forget.
	IncrementPlayCount(ctx context.Context, id domain.TrackID) error

	// PlayCounts returns the track's total and monthly play counters,
	// or ErrTrackNotFound.
	PlayCounts(ctx context.Context, id domain.TrackID) (total, monthly int64, err error)

	// AddTrack inserts a new catalog row.
	AddTrack(ctx context.Context, track *domain.Track) error

	// RemoveTrack deletes the catalog row. Returns ErrTrackNotFound if
	// no row matched.
	RemoveTrack(ctx context.Context, id domain.TrackID) error

	// ResetMonthlyCounters zeroes the monthly play counters.
	ResetMonthlyCounters(ctx context.Context) error
}
