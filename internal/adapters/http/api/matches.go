package api

import (
	"context"
	"net/http"

	"github.com/okian/bolao/internal/domain/types"
)

// MatchDependencies defines the interface for fixture reads.
type MatchDependencies interface {
	Matches(ctx context.Context) ([]types.Match, error)
}

// MatchesHandler handles fixture requests.
type MatchesHandler struct {
	deps MatchDependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps MatchDependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// HandleGetMatches handles GET /api/matches requests.
func (h *MatchesHandler) HandleGetMatches(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_matches"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	matches, err := h.deps.Matches(r.Context())
	if err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, matches)
}
