package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mixwave/media-service/internal/models"
	"github.com/mixwave/media-service/internal/services"
	"github.com/mixwave/media-service/internal/storage"
)

// mockIngestor is a mock implementation of Ingestor
type mockIngestor struct {
	result  *services.UploadResult
	err     error
	health  services.StorageHealth
	lastReq *services.UploadRequest
}

func (m *mockIngestor) Ingest(ctx context.Context, req *services.UploadRequest) (*services.UploadResult, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockIngestor) StorageHealth(ctx context.Context) services.StorageHealth {
	return m.health
}

// mockTrackService is a mock implementation of TrackService
type mockTrackService struct {
	track     *models.Track
	summaries []models.TrackSummary
	source    *services.StreamSource
	createErr error
	getErr    error
	listErr   error
	streamErr error
	deleteErr error
}

func (m *mockTrackService) CreateFromUpload(ctx context.Context, req *services.UploadRequest, res *services.UploadResult) (*models.Track, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.track, nil
}

func (m *mockTrackService) GetTrack(ctx context.Context, id int64) (*models.Track, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.track, nil
}

func (m *mockTrackService) ListTracks(ctx context.Context, skip, limit int) ([]models.TrackSummary, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.summaries, nil
}

func (m *mockTrackService) OpenStream(ctx context.Context, id int64) (*services.StreamSource, error) {
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	return m.source, nil
}

func (m *mockTrackService) DeleteTrack(ctx context.Context, id int64) error {
	return m.deleteErr
}

func newTestRouter(ingestor Ingestor, tracks TrackService) *chi.Mux {
	h := NewMixHandler(ingestor, tracks, zap.NewNop())
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		h.RegisterRoutes(r)
	})
	return r
}

// multipartBody builds a multipart form with optional file and fields.
func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func TestMixHandler_Upload(t *testing.T) {
	t.Run("remote success", func(t *testing.T) {
		ingestor := &mockIngestor{result: &services.UploadResult{
			StorageUsed:   models.StorageBackendB2,
			Location:      "https://s3.us-west-002.backblazeb2.com/mixwave-audio/audio/2024/mix42.mp3",
			CorrelationID: "corr-1",
		}}
		tracks := &mockTrackService{track: &models.Track{ID: 7, Title: "Mix 42"}}
		router := newTestRouter(ingestor, tracks)

		body, contentType := multipartBody(t, "mix42.mp3", []byte("audio"), map[string]string{
			"title":  "Mix 42",
			"artist": "DJ Test",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/mixes", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "b2", resp["storage"])
		assert.Equal(t, ingestor.result.Location, resp["location"])
		_, hasFallback := resp["fallback_from_b2"]
		assert.False(t, hasFallback)
		require.NotNil(t, resp["track"])

		// The form fields reached the ingestion request
		require.NotNil(t, ingestor.lastReq)
		assert.Equal(t, "Mix 42", ingestor.lastReq.Title)
		assert.Equal(t, "DJ Test", ingestor.lastReq.Artist)
		assert.Equal(t, "mix42.mp3", ingestor.lastReq.Filename)
		assert.Equal(t, int64(5), ingestor.lastReq.SizeBytes)
	})

	t.Run("fallback flagged", func(t *testing.T) {
		ingestor := &mockIngestor{result: &services.UploadResult{
			StorageUsed:      models.StorageBackendLocal,
			Location:         "uploads/abc-mix42.mp3",
			FallbackOccurred: true,
			FallbackReason:   storage.ErrCodeNetwork,
			CorrelationID:    "corr-2",
		}}
		tracks := &mockTrackService{track: &models.Track{ID: 8, Title: "Mix 42"}}
		router := newTestRouter(ingestor, tracks)

		body, contentType := multipartBody(t, "mix42.mp3", []byte("audio"), map[string]string{"title": "Mix 42"})
		req := httptest.NewRequest(http.MethodPost, "/api/mixes", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "local", resp["storage"])
		assert.Equal(t, "uploads/abc-mix42.mp3", resp["location"])
		assert.Equal(t, true, resp["fallback_from_b2"])
	})

	t.Run("missing file is a validation error without storage attempt", func(t *testing.T) {
		ingestor := &mockIngestor{}
		router := newTestRouter(ingestor, &mockTrackService{})

		body, contentType := multipartBody(t, "", nil, map[string]string{"title": "Mix 42"})
		req := httptest.NewRequest(http.MethodPost, "/api/mixes", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "validation_error", resp.ErrorCode)
		assert.Nil(t, ingestor.lastReq)
	})

	t.Run("missing title is a validation error", func(t *testing.T) {
		router := newTestRouter(&mockIngestor{}, &mockTrackService{})

		body, contentType := multipartBody(t, "mix42.mp3", []byte("audio"), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/mixes", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("total storage failure returns the double-failure envelope", func(t *testing.T) {
		ingestor := &mockIngestor{err: &services.StorageUnavailableError{
			CorrelationID: "corr-3",
			RemoteCode:    storage.ErrCodeAuth,
			RemoteErr:     errors.New("SignatureDoesNotMatch"),
			LocalCode:     storage.ErrCodeLocalWrite,
			LocalErr:      errors.New("disk full"),
		}}
		router := newTestRouter(ingestor, &mockTrackService{})

		body, contentType := multipartBody(t, "mix42.mp3", []byte("audio"), map[string]string{"title": "Mix 42"})
		req := httptest.NewRequest(http.MethodPost, "/api/mixes", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp ErrorEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "storage_unavailable", resp.ErrorCode)
		assert.Contains(t, resp.Detail, "auth_error")
		assert.Contains(t, resp.Detail, "local_write_error")
		assert.NotEmpty(t, resp.Hints)
	})

	t.Run("record failure after storage success", func(t *testing.T) {
		ingestor := &mockIngestor{result: &services.UploadResult{
			StorageUsed: models.StorageBackendB2,
			Location:    "https://example.com/x",
		}}
		tracks := &mockTrackService{createErr: errors.New("database down")}
		router := newTestRouter(ingestor, tracks)

		body, contentType := multipartBody(t, "mix42.mp3", []byte("audio"), map[string]string{"title": "Mix 42"})
		req := httptest.NewRequest(http.MethodPost, "/api/mixes", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestMixHandler_List(t *testing.T) {
	t.Run("returns summaries", func(t *testing.T) {
		tracks := &mockTrackService{summaries: []models.TrackSummary{
			{ID: 9, Title: "Second"},
			{ID: 7, Title: "First"},
		}}
		router := newTestRouter(&mockIngestor{}, tracks)

		req := httptest.NewRequest(http.MethodGet, "/api/mixes?skip=0&limit=20", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp []models.TrackSummary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp, 2)
		assert.Equal(t, int64(9), resp[0].ID)
	})

	t.Run("empty list is a JSON array", func(t *testing.T) {
		router := newTestRouter(&mockIngestor{}, &mockTrackService{})

		req := httptest.NewRequest(http.MethodGet, "/api/mixes", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}

func TestMixHandler_Stream(t *testing.T) {
	t.Run("remote track redirects", func(t *testing.T) {
		tracks := &mockTrackService{source: &services.StreamSource{
			RedirectURL: "https://s3.us-west-002.backblazeb2.com/mixwave-audio/audio/2024/mix42.mp3",
		}}
		router := newTestRouter(&mockIngestor{}, tracks)

		req := httptest.NewRequest(http.MethodGet, "/api/mixes/7", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
		assert.Equal(t, tracks.source.RedirectURL, rec.Header().Get("Location"))
	})

	t.Run("local track serves content with range support", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "mix.mp3")
		require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))
		file, err := os.Open(path)
		require.NoError(t, err)

		tracks := &mockTrackService{source: &services.StreamSource{
			File:        file,
			ContentType: "audio/mpeg",
		}}
		router := newTestRouter(&mockIngestor{}, tracks)

		req := httptest.NewRequest(http.MethodGet, "/api/mixes/7", nil)
		req.Header.Set("Range", "bytes=0-3")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusPartialContent, rec.Code)
		assert.Equal(t, "0123", rec.Body.String())
		assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	})

	t.Run("unknown track", func(t *testing.T) {
		tracks := &mockTrackService{streamErr: services.ErrTrackNotFound}
		router := newTestRouter(&mockIngestor{}, tracks)

		req := httptest.NewRequest(http.MethodGet, "/api/mixes/99", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		router := newTestRouter(&mockIngestor{}, &mockTrackService{})

		req := httptest.NewRequest(http.MethodGet, "/api/mixes/not-a-number", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMixHandler_GetMeta(t *testing.T) {
	tracks := &mockTrackService{track: &models.Track{
		ID:       7,
		Title:    "Mix 42",
		Storage:  models.StorageBackendLocal,
		Location: "uploads/abc-mix42.mp3",
	}}
	router := newTestRouter(&mockIngestor{}, tracks)

	req := httptest.NewRequest(http.MethodGet, "/api/mixes/7/meta", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.Track
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, "Mix 42", resp.Title)
}

func TestMixHandler_Delete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		router := newTestRouter(&mockIngestor{}, &mockTrackService{})

		req := httptest.NewRequest(http.MethodDelete, "/api/mixes/7", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("unknown track", func(t *testing.T) {
		tracks := &mockTrackService{deleteErr: services.ErrTrackNotFound}
		router := newTestRouter(&mockIngestor{}, tracks)

		req := httptest.NewRequest(http.MethodDelete, "/api/mixes/99", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMixHandler_StorageHealth(t *testing.T) {
	tests := []struct {
		name           string
		health         services.StorageHealth
		expectedStatus string
	}{
		{"disabled", services.StorageHealth{Configured: false}, "disabled"},
		{"ok", services.StorageHealth{Configured: true, OK: true}, "ok"},
		{"degraded", services.StorageHealth{Configured: true, OK: false, Code: storage.ErrCodeTimeout}, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockIngestor{health: tt.health}, &mockTrackService{})

			req := httptest.NewRequest(http.MethodGet, "/api/storage/health", nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedStatus, resp["status"])
		})
	}
}
