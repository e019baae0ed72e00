package submission

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nicscott/assessment-reports/internal/forms"
	"github.com/nicscott/assessment-reports/pkg/logging"
)

// Handler wires HTTP requests to the submission pipeline.
type Handler struct {
	orchestrator *Orchestrator
	logger       *logging.Logger
}

// NewHandler creates a submission handler.
func NewHandler(orchestrator *Orchestrator, logger *logging.Logger) *Handler {
	if orchestrator == nil {
		panic("submission: orchestrator cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{orchestrator: orchestrator, logger: logger}
}

type webhookPayload struct {
	EntryID     int64          `json:"entry_id"`
	FormID      int64          `json:"form_id"`
	Fields      map[string]any `json:"fields"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// Webhook handles POST /webhooks/forms/submission.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.logger.Error("failed to decode submission webhook", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.EntryID == 0 || payload.FormID == 0 {
		http.Error(w, "entry_id and form_id are required", http.StatusBadRequest)
		return
	}

	sub := &forms.Submission{
		EntryID:     payload.EntryID,
		FormID:      payload.FormID,
		Fields:      payload.Fields,
		SubmittedAt: payload.SubmittedAt,
	}
	if err := h.orchestrator.HandleSubmission(r.Context(), sub); err != nil {
		h.logger.Error("failed to handle submission", "entry_id", payload.EntryID, "error", err)
		http.Error(w, "Failed to process submission", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true, "entry_id": payload.EntryID})
}

// Reprocess handles POST /admin/entries/{entryID}/reprocess.
func (h *Handler) Reprocess(w http.ResponseWriter, r *http.Request) {
	entryID, err := strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
	if err != nil || entryID <= 0 {
		http.Error(w, "Invalid entry id", http.StatusBadRequest)
		return
	}

	if err := h.orchestrator.Reprocess(r.Context(), entryID); err != nil {
		h.logger.Error("failed to reprocess entry", "entry_id", entryID, "error", err)
		http.Error(w, "Failed to reprocess entry", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true, "entry_id": entryID})
}

type simulatePayload struct {
	FormID int64          `json:"form_id"`
	Fields map[string]any `json:"fields"`
}

// Simulate handles POST /admin/entries/simulate.
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var payload simulatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if payload.FormID == 0 {
		http.Error(w, "form_id is required", http.StatusBadRequest)
		return
	}

	entryID, err := h.orchestrator.Simulate(r.Context(), payload.FormID, payload.Fields)
	if err != nil {
		h.logger.Error("failed to simulate submission", "form_id", payload.FormID, "error", err)
		http.Error(w, "Failed to simulate submission", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true, "entry_id": entryID})
}

// FireCompleted handles POST /admin/entries/{entryID}/fire-completed.
func (h *Handler) FireCompleted(w http.ResponseWriter, r *http.Request) {
	entryID, err := strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
	if err != nil || entryID <= 0 {
		http.Error(w, "Invalid entry id", http.StatusBadRequest)
		return
	}

	if err := h.orchestrator.FireCompleted(r.Context(), entryID); err != nil {
		if errors.Is(err, ErrMetaNotFound) {
			http.Error(w, "Entry not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to fire completed event", "entry_id", entryID, "error", err)
		http.Error(w, "Failed to fire completed event", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"fired": true, "entry_id": entryID})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
