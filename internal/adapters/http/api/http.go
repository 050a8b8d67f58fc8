// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/bolao/internal/adapters/auth"
	"github.com/okian/bolao/internal/adapters/repository"
	service "github.com/okian/bolao/internal/app"
	"github.com/okian/bolao/internal/domain/ledger"
	"github.com/okian/bolao/internal/domain/model"
	"github.com/okian/bolao/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	MatchDependencies
	PredictionDependencies
	RankingDependencies
}

// Authenticator resolves the caller of a request.
type Authenticator interface {
	FromRequest(r *http.Request) (model.UserID, error)
}

const defaultMaxLimit = 100

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	matchesHandler     *MatchesHandler
	predictionsHandler *PredictionsHandler
	rankingHandler     *RankingHandler
	authn              Authenticator
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	maxLimit int
}

// WithMaxLeaderboardLimit caps the ranking limit parameter.
func WithMaxLeaderboardLimit(n int) Option {
	return func(o *serverOptions) {
		if n > 0 {
			o.maxLimit = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, authn Authenticator, opts ...Option) *Server {
	o := serverOptions{maxLimit: defaultMaxLimit}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		matchesHandler:     NewMatchesHandler(deps),
		predictionsHandler: NewPredictionsHandler(deps),
		rankingHandler:     NewRankingHandler(deps, o.maxLimit),
		authn:              authn,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/matches", MetricsMiddleware(s.matchesHandler.HandleGetMatches, "matches"))
	mux.HandleFunc("/api/predictions", MetricsMiddleware(
		AuthMiddleware(s.authn, s.predictionsHandler.HandlePredictions), "predictions"))
	mux.HandleFunc("/api/ranking", MetricsMiddleware(s.rankingHandler.HandleGetRanking, "ranking"))
	mux.HandleFunc("/api/ranking/", MetricsMiddleware(s.rankingHandler.HandleGetUserRank, "ranking_user"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps an upstream error onto a status and stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidRound):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrPredictionLocked):
		return http.StatusConflict, "prediction_locked"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeFailure writes err using its classified status. Internal errors are
// logged and not echoed to the client.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		logger.Get().Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}

