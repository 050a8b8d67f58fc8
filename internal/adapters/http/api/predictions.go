package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/bolao/internal/adapters/auth"
	service "github.com/okian/bolao/internal/app"
	"github.com/okian/bolao/internal/domain/model"
	"github.com/okian/bolao/internal/domain/types"
)

const maxPredictionBody = 1 << 16

// PredictionDependencies defines the interface for prediction operations.
type PredictionDependencies interface {
	SubmitPrediction(ctx context.Context, userID model.UserID, req service.PredictionRequest) (types.Prediction, error)
	Predictions(ctx context.Context, userID model.UserID) ([]types.Prediction, error)
}

// predictionRequest mirrors the OpenAPI schema for POST /api/predictions.
// Scores are pointers so an omitted score is told apart from zero.
type predictionRequest struct {
	MatchID   int64 `json:"matchId"`
	HomeScore *int  `json:"homeScore"`
	AwayScore *int  `json:"awayScore"`
}

// PredictionsHandler handles the caller's predictions.
type PredictionsHandler struct {
	deps PredictionDependencies
}

// NewPredictionsHandler creates a new predictions handler.
func NewPredictionsHandler(deps PredictionDependencies) *PredictionsHandler {
	return &PredictionsHandler{deps: deps}
}

// HandlePredictions dispatches GET and POST /api/predictions. The caller
// must already be authenticated.
func (h *PredictionsHandler) HandlePredictions(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", auth.ErrUnauthorized)
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.list(w, r, userID)
	case http.MethodPost:
		h.submit(w, r, userID)
	default:
		http.NotFound(w, r)
	}
}

func (h *PredictionsHandler) list(w http.ResponseWriter, r *http.Request, userID model.UserID) {
	const op = "api.get_predictions"
	ps, err := h.deps.Predictions(r.Context(), userID)
	if err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *PredictionsHandler) submit(w http.ResponseWriter, r *http.Request, userID model.UserID) {
	const op = "api.post_prediction"
	var req predictionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPredictionBody)).Decode(&req); err != nil {
		writeFailure(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.deps.SubmitPrediction(r.Context(), userID, service.PredictionRequest{
		MatchID:   model.MatchID(req.MatchID),
		HomeScore: req.HomeScore,
		AwayScore: req.AwayScore,
	})
	if err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}
