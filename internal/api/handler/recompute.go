package handler

import (
	"encoding/json"
	"net/http"

	"github.com/alpinerisk/alpinerisk/internal/api/models"
	"github.com/alpinerisk/alpinerisk/internal/api/response"
)

// RecomputeHandler serves the operator-only recompute trigger. It is
// expected to sit behind network-level access control — the core
// implements no authentication (spec Non-goal).
type RecomputeHandler struct {
	query QueryService
}

// NewRecomputeHandler creates a RecomputeHandler.
func NewRecomputeHandler(query QueryService) *RecomputeHandler {
	return &RecomputeHandler{query: query}
}

// Recompute handles POST /v1/recompute with a body of {date}.
func (h *RecomputeHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	var req models.RecomputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		response.BadRequest(w, r, "date must be formatted YYYY-MM-DD", nil)
		return
	}

	if err := h.query.Recompute(r.Context(), date); err != nil {
		response.InternalError(w, r, "failed to publish recompute request")
		return
	}

	response.JSON(w, r, http.StatusAccepted, models.RecomputeResponse{
		Date:      date.Format("2006-01-02"),
		Requested: true,
	})
}
