package models

import "time"

// StorageBackend identifies which backend holds a track's audio payload.
type StorageBackend string

const (
	StorageBackendB2    StorageBackend = "b2"
	StorageBackendLocal StorageBackend = "local"
)

// Track represents a stored mix in the database
type Track struct {
	ID          int64          `json:"id" db:"id"`
	Title       string         `json:"title" db:"title"`
	Artist      string         `json:"artist,omitempty" db:"artist"`
	Description string         `json:"description,omitempty" db:"description"`
	Filename    string         `json:"filename" db:"filename"`
	ContentType string         `json:"contentType" db:"content_type"`
	SizeBytes   int64          `json:"size" db:"size_bytes"`
	Storage     StorageBackend `json:"storage" db:"storage"`
	Location    string         `json:"location" db:"location"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
}

// TrackSummary is the list-endpoint projection of a Track. It excludes the
// backing location so storage paths are not exposed on the public listing.
type TrackSummary struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Artist      string         `json:"artist,omitempty"`
	Description string         `json:"description,omitempty"`
	Filename    string         `json:"filename"`
	SizeBytes   int64          `json:"size"`
	Storage     StorageBackend `json:"storage"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Summary returns the listing projection of the track.
func (t *Track) Summary() TrackSummary {
	return TrackSummary{
		ID:          t.ID,
		Title:       t.Title,
		Artist:      t.Artist,
		Description: t.Description,
		Filename:    t.Filename,
		SizeBytes:   t.SizeBytes,
		Storage:     t.Storage,
		CreatedAt:   t.CreatedAt,
	}
}
