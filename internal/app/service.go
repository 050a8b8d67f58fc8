// Package service wires the prediction ledger, the leaderboard builder and
// a store into the operations the HTTP API and the CLI expose.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/bolao/internal/adapters/repository"
	"github.com/okian/bolao/internal/domain/leaderboard"
	"github.com/okian/bolao/internal/domain/ledger"
	"github.com/okian/bolao/internal/domain/model"
	"github.com/okian/bolao/internal/domain/scoring"
	"github.com/okian/bolao/internal/domain/types"
	"github.com/okian/bolao/pkg/logger"
	"github.com/okian/bolao/pkg/metrics"
)

// Rejection reasons recorded on the predictions_rejected metric.
const (
	reasonValidation = "validation"
	reasonNotFound   = "not_found"
	reasonLocked     = "locked"
	reasonStore      = "store"
)

// PredictionRequest is a submission as received from a client. Nil scores
// are rejected by validation.
type PredictionRequest struct {
	MatchID   model.MatchID
	HomeScore *int
	AwayScore *int
}

// Service implements the API dependencies for the prediction game.
type Service struct {
	mu sync.RWMutex

	store    repository.Store
	storeCfg repository.Config
	ledger   *ledger.Ledger

	now             func() time.Time
	lockWindow      time.Duration
	enforceDeadline bool
	maxGoals        int

	started bool
	logger  logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeCfg:        repository.Config{Driver: repository.DriverMemory},
		now:             time.Now,
		enforceDeadline: true,
		maxGoals:        ledger.DefaultMaxGoals,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store unless one was injected.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.logger.Info(ctx, "starting prediction service...")

	if s.store == nil {
		store, err := repository.Open(ctx, s.storeCfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
	}
	s.ledger = ledger.New(s.store, ledger.WithMaxGoals(s.maxGoals))

	s.started = true
	s.logger.Info(ctx, "prediction service started",
		logger.String("store", s.store.Driver()),
		logger.Duration("lockWindow", s.lockWindow),
		logger.Any("enforceDeadline", s.enforceDeadline),
		logger.Int("maxGoals", s.maxGoals),
	)
	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping prediction service...")
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "closing store failed", logger.Error(err))
	}
	s.store = nil
	s.ledger = nil
	s.started = false
	s.logger.Info(ctx, "prediction service stopped")
}

// deps returns the running store and ledger.
func (s *Service) deps() (repository.Store, *ledger.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.ledger, nil
}

// locked reports whether m no longer accepts predictions at now.
func (s *Service) locked(m model.Match, now time.Time) bool {
	if m.Finalized() {
		return true
	}
	if !s.enforceDeadline {
		return false
	}
	return !now.Before(m.ScheduledAt.Add(-s.lockWindow))
}

// SubmitPrediction records userID's prediction for req.MatchID, replacing any
// earlier one. Submissions for unknown users or matches fail with ErrNotFound
// and those for matches past their lock fail with ErrPredictionLocked.
func (s *Service) SubmitPrediction(ctx context.Context, userID model.UserID, req PredictionRequest) (types.Prediction, error) {
	store, l, err := s.deps()
	if err != nil {
		return types.Prediction{}, err
	}

	reject := func(reason string, err error) (types.Prediction, error) {
		metrics.RecordPredictionRejected(reason)
		s.logger.Warn(ctx, "prediction rejected",
			logger.Int64("userId", int64(userID)),
			logger.Int64("matchId", int64(req.MatchID)),
			logger.String("reason", reason),
			logger.Error(err),
		)
		return types.Prediction{}, err
	}

	if err := l.Validate(userID, req.MatchID, req.HomeScore, req.AwayScore); err != nil {
		return reject(reasonValidation, err)
	}
	if _, err := store.User(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return reject(reasonNotFound, fmt.Errorf("user %d: %w", userID, ErrNotFound))
		}
		return reject(reasonStore, fmt.Errorf("load user: %w", err))
	}
	m, err := store.Match(ctx, req.MatchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return reject(reasonNotFound, fmt.Errorf("match %d: %w", req.MatchID, ErrNotFound))
		}
		return reject(reasonStore, fmt.Errorf("load match: %w", err))
	}
	if s.locked(m, s.now()) {
		return reject(reasonLocked, fmt.Errorf("match %d: %w", m.ID, ErrPredictionLocked))
	}

	p, err := l.Upsert(ctx, userID, req.MatchID, req.HomeScore, req.AwayScore)
	if err != nil {
		return reject(reasonStore, err)
	}

	metrics.RecordPredictionSubmitted()
	s.logger.Debug(ctx, "prediction stored",
		logger.Int64("userId", int64(userID)),
		logger.Int64("matchId", int64(p.MatchID)),
		logger.Int("home", p.HomeScore),
		logger.Int("away", p.AwayScore),
	)
	return predictionView(m, p), nil
}

func predictionView(m model.Match, p model.Prediction) types.Prediction {
	v := types.Prediction{MatchID: int64(p.MatchID), HomeScore: p.HomeScore, AwayScore: p.AwayScore}
	if m.Finalized() {
		v.Points = model.Score(scoring.PointsFor(m, &p))
	}
	return v
}

// Predictions returns userID's predictions ordered by match id, each scored
// once its match is finalized.
func (s *Service) Predictions(ctx context.Context, userID model.UserID) ([]types.Prediction, error) {
	store, l, err := s.deps()
	if err != nil {
		return nil, err
	}
	ps, err := l.AllFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	matches, err := store.Matches(ctx)
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}
	byID := make(map[model.MatchID]model.Match, len(matches))
	for _, m := range matches {
		byID[m.ID] = m
	}

	out := make([]types.Prediction, 0, len(ps))
	for _, p := range ps {
		out = append(out, predictionView(byID[p.MatchID], p))
	}
	return out, nil
}

// Matches returns every fixture in kickoff order.
func (s *Service) Matches(ctx context.Context) ([]types.Match, error) {
	store, _, err := s.deps()
	if err != nil {
		return nil, err
	}
	ms, err := store.Matches(ctx)
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}
	return types.FromMatches(ms), nil
}

// Match returns one fixture.
func (s *Service) Match(ctx context.Context, id model.MatchID) (types.Match, error) {
	store, _, err := s.deps()
	if err != nil {
		return types.Match{}, err
	}
	m, err := store.Match(ctx, id)
	if err != nil {
		return types.Match{}, fmt.Errorf("match %d: %w", id, err)
	}
	return types.FromMatch(m), nil
}

// ranking reads a consistent-enough snapshot and builds the leaderboard,
// over every round when round is 0.
func (s *Service) ranking(ctx context.Context, round int) ([]model.LeaderboardEntry, error) {
	store, _, err := s.deps()
	if err != nil {
		return nil, err
	}
	start := time.Now()

	users, err := store.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	matches, err := store.Matches(ctx)
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}
	predictions, err := store.Predictions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load predictions: %w", err)
	}

	var entries []model.LeaderboardEntry
	if round > 0 {
		entries = leaderboard.BuildRound(users, matches, predictions, round)
	} else {
		entries = leaderboard.Build(users, matches, predictions)
	}
	metrics.RecordLeaderboardBuild(float64(time.Since(start).Microseconds())/1000, len(entries))
	return entries, nil
}

// Leaderboard returns the ranking, truncated to limit when limit > 0.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]types.Entry, error) {
	entries, err := s.ranking(ctx, 0)
	if err != nil {
		return nil, err
	}
	return truncate(entries, limit), nil
}

// RoundLeaderboard ranks users on one round's matches only.
func (s *Service) RoundLeaderboard(ctx context.Context, round, limit int) ([]types.Entry, error) {
	if round < 1 {
		return nil, fmt.Errorf("round %d: %w", round, ErrInvalidRound)
	}
	entries, err := s.ranking(ctx, round)
	if err != nil {
		return nil, err
	}
	return truncate(entries, limit), nil
}

func truncate(entries []model.LeaderboardEntry, limit int) []types.Entry {
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return types.FromEntries(entries)
}

// Rank returns userID's row of the ranking.
func (s *Service) Rank(ctx context.Context, userID model.UserID) (types.Entry, error) {
	entries, err := s.ranking(ctx, 0)
	if err != nil {
		return types.Entry{}, err
	}
	e, ok := leaderboard.Find(entries, userID)
	if !ok {
		return types.Entry{}, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return types.FromEntry(e), nil
}

// RegisterUser creates or renames a participant.
func (s *Service) RegisterUser(ctx context.Context, u model.User) error {
	store, _, err := s.deps()
	if err != nil {
		return err
	}
	if err := store.PutUser(ctx, u); err != nil {
		return fmt.Errorf("register user %d: %w", u.ID, err)
	}
	s.logger.Debug(ctx, "user registered", logger.Int64("userId", int64(u.ID)), logger.String("name", u.Name))
	return nil
}

// ScheduleMatch creates or replaces a fixture.
func (s *Service) ScheduleMatch(ctx context.Context, m model.Match) error {
	store, _, err := s.deps()
	if err != nil {
		return err
	}
	if err := store.PutMatch(ctx, m); err != nil {
		return fmt.Errorf("schedule match %d: %w", m.ID, err)
	}
	s.logger.Debug(ctx, "match scheduled",
		logger.Int64("matchId", int64(m.ID)),
		logger.Any("scheduledAt", m.ScheduledAt),
	)
	return nil
}

// RecordResult finalizes a match with its official score.
func (s *Service) RecordResult(ctx context.Context, id model.MatchID, home, away int) error {
	store, _, err := s.deps()
	if err != nil {
		return err
	}
	if err := store.SetResult(ctx, id, home, away); err != nil {
		return fmt.Errorf("record result for match %d: %w", id, err)
	}
	s.logger.Info(ctx, "result recorded",
		logger.Int64("matchId", int64(id)),
		logger.Int("home", home),
		logger.Int("away", away),
	)
	return nil
}

// GetStats returns service statistics for monitoring and refreshes the
// data-set gauges.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started, store := s.started, s.store
	stats := map[string]interface{}{
		"started":         s.started,
		"lockWindow":      s.lockWindow.String(),
		"enforceDeadline": s.enforceDeadline,
		"maxGoals":        s.maxGoals,
	}
	s.mu.RUnlock()

	if !started {
		return stats
	}

	ctx := context.Background()
	stats["store"] = store.Driver()

	users, errU := store.Users(ctx)
	matches, errM := store.Matches(ctx)
	predictions, errP := store.CountPredictions(ctx)
	if err := errors.Join(errU, errM, errP); err != nil {
		s.logger.Warn(ctx, "collecting stats failed", logger.Error(err))
		stats["error"] = err.Error()
		return stats
	}

	finalized := 0
	for _, m := range matches {
		if m.Finalized() {
			finalized++
		}
	}
	stats["users"] = len(users)
	stats["matches"] = len(matches)
	stats["finalizedMatches"] = finalized
	stats["predictions"] = predictions

	metrics.UpdateDataSetSize(len(users), len(matches), finalized, predictions)
	return stats
}
