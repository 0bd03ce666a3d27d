package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mixwave/media-service/internal/models"
	"github.com/mixwave/media-service/internal/services"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	// multipart form parse threshold; larger files spill to temp files
	// which still satisfy io.ReadSeeker
	multipartMemory = 32 << 20
)

// Ingestor runs the upload ingestion flow.
type Ingestor interface {
	Ingest(ctx context.Context, req *services.UploadRequest) (*services.UploadResult, error)
	StorageHealth(ctx context.Context) services.StorageHealth
}

// TrackService defines the track operations the handler needs.
type TrackService interface {
	CreateFromUpload(ctx context.Context, req *services.UploadRequest, res *services.UploadResult) (*models.Track, error)
	GetTrack(ctx context.Context, id int64) (*models.Track, error)
	ListTracks(ctx context.Context, skip, limit int) ([]models.TrackSummary, error)
	OpenStream(ctx context.Context, id int64) (*services.StreamSource, error)
	DeleteTrack(ctx context.Context, id int64) error
}

// UploadResponse is the 201 body for POST /mixes.
type UploadResponse struct {
	Storage        models.StorageBackend `json:"storage"`
	Location       string                `json:"location"`
	FallbackFromB2 bool                  `json:"fallback_from_b2,omitempty"`
	Track          *models.Track         `json:"track"`
}

// MixHandler handles mix-related HTTP requests
type MixHandler struct {
	BaseHandler
	ingestor Ingestor
	tracks   TrackService
}

// NewMixHandler creates a new mix handler
func NewMixHandler(ingestor Ingestor, tracks TrackService, logger *zap.Logger) *MixHandler {
	return &MixHandler{
		BaseHandler: BaseHandler{Logger: logger},
		ingestor:    ingestor,
		tracks:      tracks,
	}
}

// RegisterRoutes registers all mix handler routes
func (h *MixHandler) RegisterRoutes(r chi.Router) {
	r.Route("/mixes", func(r chi.Router) {
		r.Post("/", h.Upload)
		r.Get("/", h.List)
		r.Get("/{id}", h.Stream)
		r.Get("/{id}/meta", h.GetMeta)
		r.Delete("/{id}", h.Delete)
	})
	r.Get("/storage/health", h.StorageHealth)
}

// Upload handles POST /mixes
// @Summary Upload a mix
// @Description Upload an audio file with metadata. The payload is stored in B2 when available, falling back to local disk.
// @Tags mixes
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Audio file"
// @Param title formData string true "Mix title"
// @Param artist formData string false "Artist name"
// @Param description formData string false "Description"
// @Success 201 {object} UploadResponse
// @Failure 400 {object} ErrorEnvelope "Validation error"
// @Failure 503 {object} ErrorEnvelope "All storage backends failed"
// @Router /mixes [post]
func (h *MixHandler) Upload(w http.ResponseWriter, r *http.Request) {
	req, env := h.parseUploadForm(r)
	if env != nil {
		h.RespondErrorEnvelope(w, http.StatusBadRequest, *env)
		return
	}
	if closer, ok := req.Payload.(io.Closer); ok {
		defer closer.Close()
	}

	result, err := h.ingestor.Ingest(r.Context(), req)
	if err != nil {
		h.respondIngestError(w, err)
		return
	}

	track, err := h.tracks.CreateFromUpload(r.Context(), req, result)
	if err != nil {
		h.Logger.Error("failed to create track record",
			zap.String("correlation_id", result.CorrelationID), zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to save track metadata")
		return
	}

	h.RespondJSON(w, http.StatusCreated, UploadResponse{
		Storage:        result.StorageUsed,
		Location:       result.Location,
		FallbackFromB2: result.FallbackOccurred,
		Track:          track,
	})
}

// List handles GET /mixes
// @Summary List mixes
// @Description Retrieve track summaries ordered newest first
// @Tags mixes
// @Produce json
// @Param skip query int false "Offset"
// @Param limit query int false "Page size"
// @Success 200 {array} models.TrackSummary
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /mixes [get]
func (h *MixHandler) List(w http.ResponseWriter, r *http.Request) {
	skip := parseQueryInt(r, "skip", 0)
	limit := parseQueryInt(r, "limit", defaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if skip < 0 {
		skip = 0
	}

	summaries, err := h.tracks.ListTracks(r.Context(), skip, limit)
	if err != nil {
		h.Logger.Error("failed to list tracks", zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to list tracks")
		return
	}
	if summaries == nil {
		summaries = []models.TrackSummary{}
	}

	h.RespondJSON(w, http.StatusOK, summaries)
}

// Stream handles GET /mixes/{id}
// @Summary Stream mix audio
// @Description Stream the raw audio payload. B2-backed tracks redirect to the public object URL; local tracks support range requests.
// @Tags mixes
// @Produce application/octet-stream
// @Param id path int true "Track ID"
// @Param Range header string false "Range"
// @Success 200 "Audio content"
// @Success 206 "Partial audio content"
// @Success 307 "Redirect to remote object"
// @Failure 404 {object} map[string]string "Track not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /mixes/{id} [get]
func (h *MixHandler) Stream(w http.ResponseWriter, r *http.Request) {
	id, ok := h.trackID(w, r)
	if !ok {
		return
	}

	source, err := h.tracks.OpenStream(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrTrackNotFound) {
			h.RespondError(w, http.StatusNotFound, "track not found")
			return
		}
		h.Logger.Error("failed to open stream", zap.Int64("track_id", id), zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to open audio stream")
		return
	}

	if source.RedirectURL != "" {
		http.Redirect(w, r, source.RedirectURL, http.StatusTemporaryRedirect)
		return
	}

	defer source.File.Close()

	info, err := source.File.Stat()
	if err != nil {
		h.Logger.Error("failed to stat audio file", zap.Int64("track_id", id), zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to read audio file")
		return
	}

	if source.ContentType != "" {
		w.Header().Set("Content-Type", source.ContentType)
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), source.File)
}

// GetMeta handles GET /mixes/{id}/meta
// @Summary Get mix metadata
// @Tags mixes
// @Produce json
// @Param id path int true "Track ID"
// @Success 200 {object} models.Track
// @Failure 404 {object} map[string]string "Track not found"
// @Router /mixes/{id}/meta [get]
func (h *MixHandler) GetMeta(w http.ResponseWriter, r *http.Request) {
	id, ok := h.trackID(w, r)
	if !ok {
		return
	}

	track, err := h.tracks.GetTrack(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrTrackNotFound) {
			h.RespondError(w, http.StatusNotFound, "track not found")
			return
		}
		h.Logger.Error("failed to get track", zap.Int64("track_id", id), zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to get track")
		return
	}

	h.RespondJSON(w, http.StatusOK, track)
}

// Delete handles DELETE /mixes/{id}
// @Summary Delete a mix
// @Description Delete a mix's audio payload and metadata
// @Tags mixes
// @Param id path int true "Track ID"
// @Success 204 "Deleted"
// @Failure 404 {object} map[string]string "Track not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /mixes/{id} [delete]
func (h *MixHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.trackID(w, r)
	if !ok {
		return
	}

	if err := h.tracks.DeleteTrack(r.Context(), id); err != nil {
		if errors.Is(err, services.ErrTrackNotFound) {
			h.RespondError(w, http.StatusNotFound, "track not found")
			return
		}
		h.Logger.Error("failed to delete track", zap.Int64("track_id", id), zap.Error(err))
		h.RespondError(w, http.StatusInternalServerError, "failed to delete track")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// StorageHealth handles GET /storage/health
// @Summary Storage health
// @Description Report remote storage availability: ok, degraded or disabled
// @Tags storage
// @Produce json
// @Success 200 {object} map[string]any
// @Router /storage/health [get]
func (h *MixHandler) StorageHealth(w http.ResponseWriter, r *http.Request) {
	health := h.ingestor.StorageHealth(r.Context())

	status := "disabled"
	if health.Configured {
		status = "degraded"
		if health.OK {
			status = "ok"
		}
	}

	h.RespondJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"b2":     health,
	})
}

// parseUploadForm validates the multipart form and builds the upload
// request. A non-nil envelope means the request is malformed and no storage
// attempt must be made.
func (h *MixHandler) parseUploadForm(r *http.Request) (*services.UploadRequest, *ErrorEnvelope) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, &ErrorEnvelope{
			ErrorCode: "validation_error",
			Error:     "invalid multipart form",
			Detail:    err.Error(),
		}
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		return nil, &ErrorEnvelope{
			ErrorCode: "validation_error",
			Error:     "file is required",
		}
	}

	title := r.FormValue("title")
	if title == "" {
		file.Close()
		return nil, &ErrorEnvelope{
			ErrorCode: "validation_error",
			Error:     "title is required",
		}
	}

	return &services.UploadRequest{
		Payload:     file,
		Filename:    fileHeader.Filename,
		ContentType: uploadContentType(r, fileHeader),
		Title:       title,
		Artist:      r.FormValue("artist"),
		Description: r.FormValue("description"),
		SizeBytes:   fileHeader.Size,
	}, nil
}

func (h *MixHandler) respondIngestError(w http.ResponseWriter, err error) {
	var unavailable *services.StorageUnavailableError
	if errors.As(err, &unavailable) {
		h.RespondErrorEnvelope(w, http.StatusServiceUnavailable, ErrorEnvelope{
			ErrorCode: "storage_unavailable",
			Error:     "all storage backends failed",
			Detail:    unavailable.Error(),
			Hints: []string{
				"check B2 credentials and endpoint configuration",
				"check that the local uploads directory exists and is writable",
			},
		})
		return
	}

	if errors.Is(err, services.ErrValidation) {
		h.RespondErrorEnvelope(w, http.StatusBadRequest, ErrorEnvelope{
			ErrorCode: "validation_error",
			Error:     "invalid upload request",
			Detail:    err.Error(),
		})
		return
	}

	h.Logger.Error("unexpected ingest failure", zap.Error(err))
	h.RespondError(w, http.StatusInternalServerError, "failed to store upload")
}

func (h *MixHandler) trackID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.RespondError(w, http.StatusNotFound, "track not found")
		return 0, false
	}
	return id, true
}

func parseQueryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// uploadContentType resolves the content type of the uploaded file,
// preferring the part header and falling back to the file extension.
func uploadContentType(r *http.Request, fileHeader *multipart.FileHeader) string {
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}

	switch filepath.Ext(fileHeader.Filename) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".m4a", ".aac":
		return "audio/aac"
	}
	return "application/octet-stream"
}
