package domain

import (
	"strconv"
	"time"
)

// TrackID is a unique identifier for a track in the catalog.
type TrackID string

// SourceKind discriminates the two ways a track's audio can be obtained.
type SourceKind string

const (
	// SourceLocalFile is a path relative to the configured music directory.
	SourceLocalFile SourceKind = "local"
	// SourceStreamURL is a streamable URL (YouTube or similar).
	SourceStreamURL SourceKind = "stream"
)

// ParseSourceKind converts a stored kind string to a SourceKind.
// Unknown values fall back to SourceStreamURL.
func ParseSourceKind(s string) SourceKind {
	if s == string(SourceLocalFile) {
		return SourceLocalFile
	}
	return SourceStreamURL
}

// AudioSource describes where a track's audio comes from. The playback
// core never interprets Ref; the transport layer resolves it.
type AudioSource struct {
	Kind SourceKind
	Ref  string
}

// IsZero reports whether the source carries no reference at all.
func (s AudioSource) IsZero() bool {
	return s.Ref == ""
}

// Track is catalog metadata for a playable track. The playback core
// treats it as immutable read-only data.
type Track struct {
	ID       TrackID
	Title    string
	Artist   string
	Duration time.Duration
	Source   AudioSource
	Category string
}

// FormattedDuration returns the duration as mm:ss or hh:mm:ss.
func (t *Track) FormattedDuration() string {
	totalSeconds := int(t.Duration.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
