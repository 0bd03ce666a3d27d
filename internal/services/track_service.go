package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/mixwave/media-service/internal/models"
	"github.com/mixwave/media-service/internal/repositories"
)

// ErrTrackNotFound is returned when no track exists with the requested id.
var ErrTrackNotFound = errors.New("track not found")

// TrackRepository defines the interface for track data access
type TrackRepository interface {
	Create(ctx context.Context, track *models.Track) error
	GetByID(ctx context.Context, id int64) (*models.Track, error)
	List(ctx context.Context, skip, limit int) ([]models.Track, error)
	DeleteByID(ctx context.Context, id int64) error
}

// StreamSource tells the handler how to serve a track's audio: either a
// redirect to a public URL (remote objects) or a local file handle.
type StreamSource struct {
	RedirectURL string
	File        *os.File
	ContentType string
}

// TrackService handles track metadata and payload retrieval. The ingestion
// core stays free of persistence; this service owns the track rows that
// reference stored locations.
type TrackService struct {
	repo   TrackRepository
	remote ObjectStore
	local  LocalStore
	logger *zap.Logger
}

// NewTrackService creates a new track service. remote may be nil when B2 is
// not configured.
func NewTrackService(repo TrackRepository, remote ObjectStore, local LocalStore, logger *zap.Logger) *TrackService {
	return &TrackService{
		repo:   repo,
		remote: remote,
		local:  local,
		logger: logger,
	}
}

// CreateFromUpload persists the track row for a completed ingestion. If the
// row cannot be written the stored object is removed so no orphan payload is
// left behind.
func (s *TrackService) CreateFromUpload(ctx context.Context, req *UploadRequest, res *UploadResult) (*models.Track, error) {
	track := &models.Track{
		Title:       req.Title,
		Artist:      req.Artist,
		Description: req.Description,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		Storage:     res.StorageUsed,
		Location:    res.Location,
	}

	if err := s.repo.Create(ctx, track); err != nil {
		s.removeStored(ctx, res)
		return nil, fmt.Errorf("failed to create track record: %w", err)
	}
	return track, nil
}

// GetTrack retrieves a track by id.
func (s *TrackService) GetTrack(ctx context.Context, id int64) (*models.Track, error) {
	track, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTrackNotFound
		}
		return nil, err
	}
	return track, nil
}

// ListTracks returns track summaries, newest first.
func (s *TrackService) ListTracks(ctx context.Context, skip, limit int) ([]models.TrackSummary, error) {
	tracks, err := s.repo.List(ctx, skip, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.TrackSummary, 0, len(tracks))
	for i := range tracks {
		summaries = append(summaries, tracks[i].Summary())
	}
	return summaries, nil
}

// OpenStream resolves how a track's audio should be served. Remote objects
// are served by redirect to their public URL; local files are opened for
// range-capable serving. The caller must close the returned file.
func (s *TrackService) OpenStream(ctx context.Context, id int64) (*StreamSource, error) {
	track, err := s.GetTrack(ctx, id)
	if err != nil {
		return nil, err
	}

	if track.Storage == models.StorageBackendB2 || isURL(track.Location) {
		return &StreamSource{RedirectURL: track.Location, ContentType: track.ContentType}, nil
	}

	file, err := s.local.Open(track.Location)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTrackNotFound
		}
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	return &StreamSource{File: file, ContentType: track.ContentType}, nil
}

// DeleteTrack removes the backing object and the track row. Already-missing
// objects are tolerated so a half-deleted track can be cleaned up by
// retrying.
func (s *TrackService) DeleteTrack(ctx context.Context, id int64) error {
	track, err := s.GetTrack(ctx, id)
	if err != nil {
		return err
	}

	switch track.Storage {
	case models.StorageBackendB2:
		if s.remote == nil {
			s.logger.Warn("cannot delete remote object, B2 not configured",
				zap.Int64("track_id", id), zap.String("location", track.Location))
			break
		}
		key, ok := s.remote.KeyFromLocation(track.Location)
		if !ok {
			s.logger.Warn("stored location does not belong to the configured bucket",
				zap.Int64("track_id", id), zap.String("location", track.Location))
			break
		}
		if err := s.remote.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete remote object: %w", err)
		}
	case models.StorageBackendLocal:
		if err := s.local.Delete(track.Location); err != nil {
			return fmt.Errorf("failed to delete local file: %w", err)
		}
	}

	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrTrackNotFound
		}
		return fmt.Errorf("failed to delete track record: %w", err)
	}
	return nil
}

// removeStored best-effort deletes an object that was persisted during an
// ingestion whose track row could not be written.
func (s *TrackService) removeStored(ctx context.Context, res *UploadResult) {
	var err error
	switch res.StorageUsed {
	case models.StorageBackendB2:
		if s.remote == nil {
			return
		}
		if key, ok := s.remote.KeyFromLocation(res.Location); ok {
			err = s.remote.Delete(ctx, key)
		}
	case models.StorageBackendLocal:
		err = s.local.Delete(res.Location)
	}
	if err != nil {
		s.logger.Warn("failed to clean up stored object after record failure",
			zap.String("correlation_id", res.CorrelationID),
			zap.String("location", res.Location),
			zap.Error(err),
		)
	}
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}
