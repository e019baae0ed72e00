package render

import (
	"encoding/json"
	"net/http"

	"github.com/nicscott/assessment-reports/pkg/logging"
)

// Handler serves rendered report views.
type Handler struct {
	builder *ViewBuilder
	logger  *logging.Logger
}

// NewHandler creates a render handler.
func NewHandler(builder *ViewBuilder, logger *logging.Logger) *Handler {
	if builder == nil {
		panic("render: view builder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{builder: builder, logger: logger}
}

// View handles GET /reports/view. The external entry_hash parameter
// wins over the short entry form when both are present.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	hash := r.URL.Query().Get("entry_hash")
	if hash == "" {
		hash = r.URL.Query().Get("entry")
	}

	view, err := h.builder.Build(r.Context(), hash)
	if err != nil {
		h.logger.Error("failed to build report view", "error", err)
		http.Error(w, "Failed to build report view", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
