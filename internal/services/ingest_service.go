package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mixwave/media-service/internal/models"
	"github.com/mixwave/media-service/internal/storage"
)

// ObjectStore is the remote (primary) storage backend. Implemented by
// storage.B2Store.
type ObjectStore interface {
	// PutBytes streams body to the backend at key and returns the public
	// location of the stored object.
	PutBytes(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	// Delete removes an object. Missing objects are not an error.
	Delete(ctx context.Context, key string) error
	// CheckHealth probes the backend.
	CheckHealth(ctx context.Context) error
	// KeyFromLocation extracts the object key from a stored location.
	KeyFromLocation(location string) (string, bool)
}

// LocalStore is the fallback storage backend. Implemented by
// storage.LocalStore.
type LocalStore interface {
	Write(ctx context.Context, name string, body io.Reader) (string, error)
	Open(location string) (*os.File, error)
	Delete(location string) error
}

// ErrValidation marks a malformed upload request. No storage attempt is made
// for these.
var ErrValidation = errors.New("invalid upload request")

// UploadRequest is one incoming file-plus-metadata submission. Payload must
// be seekable so the fallback attempt can re-read it after a failed remote
// attempt; multipart form files satisfy this without buffering.
type UploadRequest struct {
	Payload     io.ReadSeeker
	Filename    string
	ContentType string
	Title       string
	Artist      string
	Description string
	SizeBytes   int64
}

// StorageOutcome is the result of a single storage attempt.
type StorageOutcome struct {
	Backend  models.StorageBackend
	Location string
	Code     storage.ErrorCode
	Err      error
}

// Success reports whether the attempt persisted the payload.
func (o StorageOutcome) Success() bool {
	return o.Err == nil
}

// UploadResult is the externally visible result of one ingestion attempt.
// FallbackOccurred is true iff the remote attempt failed and the local
// attempt succeeded, which implies StorageUsed is the local backend.
type UploadResult struct {
	StorageUsed      models.StorageBackend
	Location         string
	FallbackOccurred bool
	FallbackReason   storage.ErrorCode
	CorrelationID    string
}

// StorageUnavailableError is the terminal failure: both the remote and the
// local attempt failed. It carries both causes.
type StorageUnavailableError struct {
	CorrelationID string
	RemoteCode    storage.ErrorCode
	RemoteErr     error
	LocalCode     storage.ErrorCode
	LocalErr      error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable: remote failed (%s): %v; local failed (%s): %v",
		e.RemoteCode, e.RemoteErr, e.LocalCode, e.LocalErr)
}

// IngestService persists one upload to exactly one storage backend, trying
// the remote store before the local one. When remote is nil the service runs
// in local-only mode (B2 not configured); that is not a fallback and is not
// flagged as one.
type IngestService struct {
	remote    ObjectStore
	local     LocalStore
	logger    *zap.Logger
	keyPrefix string
}

// NewIngestService creates an ingest service. remote may be nil for
// local-only operation.
func NewIngestService(remote ObjectStore, local LocalStore, logger *zap.Logger, keyPrefix string) *IngestService {
	return &IngestService{
		remote:    remote,
		local:     local,
		logger:    logger,
		keyPrefix: keyPrefix,
	}
}

// RemoteConfigured reports whether a remote backend is wired in.
func (s *IngestService) RemoteConfigured() bool {
	return s.remote != nil
}

// Ingest persists req.Payload to exactly one backend and returns which one
// was used. The remote store gets a full chance to succeed or fail before
// the local store is attempted; the payload is never written to both. The
// only error cases are a malformed request (ErrValidation) and both
// backends failing (*StorageUnavailableError).
func (s *IngestService) Ingest(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	correlationID := uuid.New().String()
	start := time.Now()

	if s.remote != nil {
		remote := s.attemptRemote(ctx, req)
		if remote.Success() {
			s.logIngested(correlationID, start, remote, nil)
			return &UploadResult{
				StorageUsed:   models.StorageBackendB2,
				Location:      remote.Location,
				CorrelationID: correlationID,
			}, nil
		}

		s.logger.Warn("remote storage attempt failed, falling back to local",
			zap.String("correlation_id", correlationID),
			zap.String("error_code", string(remote.Code)),
			zap.Error(remote.Err),
		)

		local := s.attemptLocal(ctx, req)
		if !local.Success() {
			s.logFailed(correlationID, start, remote, local)
			return nil, &StorageUnavailableError{
				CorrelationID: correlationID,
				RemoteCode:    remote.Code,
				RemoteErr:     remote.Err,
				LocalCode:     local.Code,
				LocalErr:      local.Err,
			}
		}

		s.logIngested(correlationID, start, local, &remote.Code)
		return &UploadResult{
			StorageUsed:      models.StorageBackendLocal,
			Location:         local.Location,
			FallbackOccurred: true,
			FallbackReason:   remote.Code,
			CorrelationID:    correlationID,
		}, nil
	}

	// Local-only mode: local is the primary here, so a local failure is
	// terminal even though no remote attempt was made.
	local := s.attemptLocal(ctx, req)
	if !local.Success() {
		s.logFailed(correlationID, start, StorageOutcome{}, local)
		return nil, &StorageUnavailableError{
			CorrelationID: correlationID,
			LocalCode:     local.Code,
			LocalErr:      local.Err,
		}
	}

	s.logIngested(correlationID, start, local, nil)
	return &UploadResult{
		StorageUsed:   models.StorageBackendLocal,
		Location:      local.Location,
		CorrelationID: correlationID,
	}, nil
}

// StorageHealth reports the state of the remote backend for the health
// endpoint.
func (s *IngestService) StorageHealth(ctx context.Context) StorageHealth {
	if s.remote == nil {
		return StorageHealth{Configured: false}
	}
	if err := s.remote.CheckHealth(ctx); err != nil {
		return StorageHealth{
			Configured: true,
			Detail:     err.Error(),
			Code:       storage.CodeOf(err),
		}
	}
	return StorageHealth{Configured: true, OK: true}
}

// StorageHealth describes the remote backend's availability.
type StorageHealth struct {
	Configured bool              `json:"configured"`
	OK         bool              `json:"ok"`
	Code       storage.ErrorCode `json:"error_code,omitempty"`
	Detail     string            `json:"detail,omitempty"`
}

func (s *IngestService) attemptRemote(ctx context.Context, req *UploadRequest) StorageOutcome {
	if err := rewind(req.Payload); err != nil {
		return StorageOutcome{
			Backend: models.StorageBackendB2,
			Code:    storage.ErrCodeNetwork,
			Err:     err,
		}
	}

	key := storage.NewObjectKey(s.keyPrefix, req.Filename)
	location, err := s.remote.PutBytes(ctx, key, req.Payload, req.SizeBytes, req.ContentType)
	if err != nil {
		return StorageOutcome{
			Backend: models.StorageBackendB2,
			Code:    storage.CodeOf(err),
			Err:     err,
		}
	}
	return StorageOutcome{Backend: models.StorageBackendB2, Location: location}
}

func (s *IngestService) attemptLocal(ctx context.Context, req *UploadRequest) StorageOutcome {
	if err := rewind(req.Payload); err != nil {
		return StorageOutcome{
			Backend: models.StorageBackendLocal,
			Code:    storage.ErrCodeLocalWrite,
			Err:     err,
		}
	}

	location, err := s.local.Write(ctx, storage.NewLocalName(req.Filename), req.Payload)
	if err != nil {
		code := storage.ErrCodeLocalWrite
		var se *storage.StorageError
		if errors.As(err, &se) {
			code = se.Code
		}
		return StorageOutcome{
			Backend: models.StorageBackendLocal,
			Code:    code,
			Err:     err,
		}
	}
	return StorageOutcome{Backend: models.StorageBackendLocal, Location: location}
}

// logIngested emits the single summary record for a successful call.
func (s *IngestService) logIngested(correlationID string, start time.Time, used StorageOutcome, fallbackReason *storage.ErrorCode) {
	fields := []zap.Field{
		zap.String("correlation_id", correlationID),
		zap.Duration("duration", time.Since(start)),
		zap.String("backend", string(used.Backend)),
		zap.String("location", used.Location),
	}
	if fallbackReason != nil {
		fields = append(fields, zap.String("fallback_reason", string(*fallbackReason)))
	}
	s.logger.Info("upload ingested", fields...)
}

// logFailed emits the single summary record for a terminal failure.
func (s *IngestService) logFailed(correlationID string, start time.Time, remote, local StorageOutcome) {
	s.logger.Error("upload failed on all storage backends",
		zap.String("correlation_id", correlationID),
		zap.Duration("duration", time.Since(start)),
		zap.String("remote_error_code", string(remote.Code)),
		zap.NamedError("remote_error", remote.Err),
		zap.String("local_error_code", string(local.Code)),
		zap.NamedError("local_error", local.Err),
	)
}

func validateRequest(req *UploadRequest) error {
	switch {
	case req == nil || req.Payload == nil:
		return fmt.Errorf("%w: missing file payload", ErrValidation)
	case req.Filename == "":
		return fmt.Errorf("%w: missing filename", ErrValidation)
	case req.Title == "":
		return fmt.Errorf("%w: missing title", ErrValidation)
	}
	return nil
}

func rewind(r io.ReadSeeker) error {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind payload: %w", err)
	}
	return nil
}
