package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/bolao/internal/domain/model"
	"github.com/okian/bolao/internal/domain/types"
)

// RankingDependencies defines the interface for leaderboard reads.
type RankingDependencies interface {
	Leaderboard(ctx context.Context, limit int) ([]types.Entry, error)
	RoundLeaderboard(ctx context.Context, round, limit int) ([]types.Entry, error)
	Rank(ctx context.Context, userID model.UserID) (types.Entry, error)
}

// RankingHandler handles leaderboard requests.
type RankingHandler struct {
	deps     RankingDependencies
	maxLimit int
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps RankingDependencies, maxLimit int) *RankingHandler {
	return &RankingHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetRanking handles GET /api/ranking?limit=N&round=R requests. Without
// a limit the whole ranking is returned; with a round only that round's
// matches count.
func (h *RankingHandler) HandleGetRanking(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ranking"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	var (
		entries []types.Entry
		err     error
	)
	if raw := r.URL.Query().Get("round"); raw != "" {
		round, perr := strconv.Atoi(raw)
		if perr != nil || round < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		entries, err = h.deps.RoundLeaderboard(r.Context(), round, limit)
	} else {
		entries, err = h.deps.Leaderboard(r.Context(), limit)
	}
	if err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGetUserRank handles GET /api/ranking/{userId} requests.
func (h *RankingHandler) HandleGetUserRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_user_rank"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/ranking/")
	if path == "" || strings.Contains(path, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	userID, err := model.ParseUserID(path)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	entry, err := h.deps.Rank(r.Context(), userID)
	if err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
