package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// BaseHandler provides common handler functionality
type BaseHandler struct {
	Logger *zap.Logger
}

// ErrorEnvelope is the JSON body for failed requests. Hints give the
// operator actionable next steps on terminal storage failures.
type ErrorEnvelope struct {
	ErrorCode string   `json:"error_code"`
	Error     string   `json:"error"`
	Detail    string   `json:"detail,omitempty"`
	Hints     []string `json:"hints,omitempty"`
}

// RespondJSON sends a JSON response
func (h *BaseHandler) RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// RespondError sends a simple error JSON response
func (h *BaseHandler) RespondError(w http.ResponseWriter, status int, message string) {
	h.RespondJSON(w, status, map[string]string{"error": message})
}

// RespondErrorEnvelope sends the structured error envelope
func (h *BaseHandler) RespondErrorEnvelope(w http.ResponseWriter, status int, env ErrorEnvelope) {
	h.RespondJSON(w, status, env)
}
