package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alpinerisk/alpinerisk/internal/api/models"
	"github.com/alpinerisk/alpinerisk/internal/api/response"
	"github.com/alpinerisk/alpinerisk/internal/resultcache"
	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
	"github.com/alpinerisk/alpinerisk/internal/spatialstore"
)

// QueryService is the subset of internal/query.Service the handlers
// depend on.
type QueryService interface {
	PredictOne(ctx context.Context, routeID string, date time.Time) (riskmodel.RiskPrediction, error)
	MapBulk(ctx context.Context, keys []resultcache.RouteDate) (map[resultcache.RouteDate]riskmodel.RiskPrediction, error)
	Recompute(ctx context.Context, date time.Time) error
}

// PredictHandler serves the predict_one and map_bulk façade operations.
type PredictHandler struct {
	query QueryService
}

// NewPredictHandler creates a PredictHandler.
func NewPredictHandler(query QueryService) *PredictHandler {
	return &PredictHandler{query: query}
}

// PredictOne handles GET /v1/predict/{routeId}?date=YYYY-MM-DD.
func (h *PredictHandler) PredictOne(w http.ResponseWriter, r *http.Request) {
	routeID := chi.URLParam(r, "routeId")
	if routeID == "" {
		response.BadRequest(w, r, "routeId is required", nil)
		return
	}

	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		response.BadRequest(w, r, "date must be formatted YYYY-MM-DD", nil)
		return
	}

	pred, err := h.query.PredictOne(r.Context(), routeID, date)
	if err != nil {
		if errors.Is(err, spatialstore.ErrRouteNotFound) {
			response.NotFound(w, r, "route not found")
			return
		}
		response.InternalError(w, r, "failed to compute prediction")
		return
	}

	response.JSON(w, r, http.StatusOK, models.FromRiskPrediction(pred))
}

// MapBulk handles POST /v1/map with a body of {routeIds, date}.
func (h *PredictHandler) MapBulk(w http.ResponseWriter, r *http.Request) {
	var req models.MapBulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if len(req.RouteIDs) == 0 {
		response.BadRequest(w, r, "routeIds must not be empty", nil)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		response.BadRequest(w, r, "date must be formatted YYYY-MM-DD", nil)
		return
	}

	keys := make([]resultcache.RouteDate, len(req.RouteIDs))
	for i, id := range req.RouteIDs {
		keys[i] = resultcache.RouteDate{RouteID: id, Date: date}
	}

	preds, err := h.query.MapBulk(r.Context(), keys)
	if err != nil {
		response.InternalError(w, r, "failed to read cached predictions")
		return
	}

	out := models.MapBulkResponse{Predictions: make([]models.Prediction, 0, len(preds))}
	for _, k := range keys {
		if pred, ok := preds[k]; ok {
			out.Predictions = append(out.Predictions, models.FromRiskPrediction(pred))
		}
	}

	response.JSON(w, r, http.StatusOK, out)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	return time.Parse("2006-01-02", s)
}
