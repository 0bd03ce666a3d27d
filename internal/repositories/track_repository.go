package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mixwave/media-service/internal/models"
)

// ErrNotFound is returned when a queried row does not exist.
var ErrNotFound = errors.New("record not found")

// trackRepository implements track repository operations
type trackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new track repository
func NewTrackRepository(db *sql.DB) *trackRepository {
	return &trackRepository{
		db: db,
	}
}

// Create inserts a new track record and sets its generated ID
func (r *trackRepository) Create(ctx context.Context, track *models.Track) error {
	query := `
		INSERT INTO tracks (title, artist, description, filename, content_type, size_bytes, storage, location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		track.Title,
		track.Artist,
		track.Description,
		track.Filename,
		track.ContentType,
		track.SizeBytes,
		track.Storage,
		track.Location,
	)
	if err != nil {
		return fmt.Errorf("failed to create track: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted track id: %w", err)
	}
	track.ID = id

	return nil
}

// GetByID retrieves a track by ID
func (r *trackRepository) GetByID(ctx context.Context, id int64) (*models.Track, error) {
	query := `
		SELECT id, title, artist, description, filename, content_type, size_bytes, storage, location, created_at
		FROM tracks
		WHERE id = ?
		LIMIT 1
	`

	track := &models.Track{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&track.ID,
		&track.Title,
		&track.Artist,
		&track.Description,
		&track.Filename,
		&track.ContentType,
		&track.SizeBytes,
		&track.Storage,
		&track.Location,
		&track.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get track by id: %w", err)
	}

	return track, nil
}

// List retrieves tracks ordered newest first with pagination
func (r *trackRepository) List(ctx context.Context, skip, limit int) ([]models.Track, error) {
	query := `
		SELECT id, title, artist, description, filename, content_type, size_bytes, storage, location, created_at
		FROM tracks
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.Track
	for rows.Next() {
		var track models.Track
		if err := rows.Scan(
			&track.ID,
			&track.Title,
			&track.Artist,
			&track.Description,
			&track.Filename,
			&track.ContentType,
			&track.SizeBytes,
			&track.Storage,
			&track.Location,
			&track.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tracks: %w", err)
	}

	return tracks, nil
}

// DeleteByID deletes a track by ID
func (r *trackRepository) DeleteByID(ctx context.Context, id int64) error {
	query := `DELETE FROM tracks WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
