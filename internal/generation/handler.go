package generation

import (
	"encoding/json"
	"net/http"

	"github.com/nicscott/assessment-reports/pkg/logging"
)

// Handler wires HTTP requests to the generation service.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a generation handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("generation: service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Generate handles POST /ai-generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RequestGeneration(r.Context(), entryHashParam(r))
	if err != nil {
		h.logger.Error("failed to request generation", "error", err)
		http.Error(w, "Failed to request generation", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, statusForResult(result), result)
}

// Status handles GET /ai-status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Status(r.Context(), entryHashParam(r))
	if err != nil {
		h.logger.Error("failed to fetch generation status", "error", err)
		http.Error(w, "Failed to fetch status", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, statusForResult(result), result)
}

// entryHashParam reads the entry hash from the query string, falling
// back to a JSON body for POST clients.
func entryHashParam(r *http.Request) string {
	if hash := r.URL.Query().Get("entry_hash"); hash != "" {
		return hash
	}
	var body struct {
		EntryHash string `json:"entry_hash"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	return body.EntryHash
}

func statusForResult(result StatusResult) int {
	switch result.Error {
	case ErrCodeInvalidEntry:
		return http.StatusBadRequest
	case ErrCodeReportNotFound:
		return http.StatusNotFound
	default:
		return http.StatusOK
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
