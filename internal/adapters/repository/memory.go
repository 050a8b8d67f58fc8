package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/bolao/internal/domain/model"
)

// MemoryStore is an in-process Store. Each instance owns its state; nothing
// is shared between instances.
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[model.UserID]model.User
	matches     map[model.MatchID]model.Match
	predictions map[model.PredictionKey]model.Prediction
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[model.UserID]model.User),
		matches:     make(map[model.MatchID]model.Match),
		predictions: make(map[model.PredictionKey]model.Prediction),
	}
}

// Driver implements Store.
func (s *MemoryStore) Driver() string { return DriverMemory }

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// Truncate implements Store.
func (s *MemoryStore) Truncate(_ context.Context) (err error) {
	defer func(start time.Time) { observeWrite(DriverMemory, "truncate", start, err) }(time.Now())
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.users)
	clear(s.matches)
	clear(s.predictions)
	return nil
}

// UpsertPrediction implements PredictionStore. The map is keyed by the
// composite identity, so a second write replaces the first.
func (s *MemoryStore) UpsertPrediction(_ context.Context, p model.Prediction) (err error) {
	defer func(start time.Time) { observeWrite(DriverMemory, "upsert_prediction", start, err) }(time.Now())
	if !validPrediction(p) {
		return fmt.Errorf("prediction %v: %w", p.Key(), ErrInvalidRecord)
	}
	s.mu.Lock()
	s.predictions[p.Key()] = p
	s.mu.Unlock()
	return nil
}

// GetPrediction implements PredictionStore.
func (s *MemoryStore) GetPrediction(_ context.Context, userID model.UserID, matchID model.MatchID) (p model.Prediction, err error) {
	defer func(start time.Time) { observeRead(DriverMemory, "get_prediction", start, err) }(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.predictions[model.PredictionKey{UserID: userID, MatchID: matchID}]
	if !ok {
		return model.Prediction{}, ErrNotFound
	}
	return p, nil
}

// PredictionsByUser implements PredictionStore.
func (s *MemoryStore) PredictionsByUser(_ context.Context, userID model.UserID) ([]model.Prediction, error) {
	defer func(start time.Time) { observeRead(DriverMemory, "predictions_by_user", start, nil) }(time.Now())
	s.mu.RLock()
	out := make([]model.Prediction, 0)
	for k, p := range s.predictions {
		if k.UserID == userID {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()
	sortPredictions(out)
	return out, nil
}

// Predictions implements PredictionStore.
func (s *MemoryStore) Predictions(_ context.Context) ([]model.Prediction, error) {
	defer func(start time.Time) { observeRead(DriverMemory, "predictions", start, nil) }(time.Now())
	s.mu.RLock()
	out := make([]model.Prediction, 0, len(s.predictions))
	for _, p := range s.predictions {
		out = append(out, p)
	}
	s.mu.RUnlock()
	sortPredictions(out)
	return out, nil
}

// CountPredictions implements PredictionStore.
func (s *MemoryStore) CountPredictions(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.predictions), nil
}

// PutMatch implements MatchStore.
func (s *MemoryStore) PutMatch(_ context.Context, m model.Match) (err error) {
	defer func(start time.Time) { observeWrite(DriverMemory, "put_match", start, err) }(time.Now())
	if !validMatch(m) {
		return fmt.Errorf("match %d: %w", m.ID, ErrInvalidRecord)
	}
	s.mu.Lock()
	s.matches[m.ID] = cloneMatch(m)
	s.mu.Unlock()
	return nil
}

// Match implements MatchStore.
func (s *MemoryStore) Match(_ context.Context, id model.MatchID) (m model.Match, err error) {
	defer func(start time.Time) { observeRead(DriverMemory, "match", start, err) }(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return model.Match{}, ErrNotFound
	}
	return cloneMatch(m), nil
}

// Matches implements MatchStore.
func (s *MemoryStore) Matches(_ context.Context) ([]model.Match, error) {
	defer func(start time.Time) { observeRead(DriverMemory, "matches", start, nil) }(time.Now())
	s.mu.RLock()
	out := make([]model.Match, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, cloneMatch(m))
	}
	s.mu.RUnlock()
	sortMatches(out)
	return out, nil
}

// SetResult implements MatchStore.
func (s *MemoryStore) SetResult(_ context.Context, id model.MatchID, home, away int) (err error) {
	defer func(start time.Time) { observeWrite(DriverMemory, "set_result", start, err) }(time.Now())
	if !validScore(home, away) {
		return ErrInvalidScore
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return ErrNotFound
	}
	m.HomeScore, m.AwayScore = model.Score(home), model.Score(away)
	s.matches[id] = m
	return nil
}

// PutUser implements UserStore.
func (s *MemoryStore) PutUser(_ context.Context, u model.User) (err error) {
	defer func(start time.Time) { observeWrite(DriverMemory, "put_user", start, err) }(time.Now())
	if !u.ID.Valid() {
		return fmt.Errorf("user %d: %w", u.ID, ErrInvalidRecord)
	}
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
	return nil
}

// User implements UserStore.
func (s *MemoryStore) User(_ context.Context, id model.UserID) (u model.User, err error) {
	defer func(start time.Time) { observeRead(DriverMemory, "user", start, err) }(time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

// Users implements UserStore.
func (s *MemoryStore) Users(_ context.Context) ([]model.User, error) {
	defer func(start time.Time) { observeRead(DriverMemory, "users", start, nil) }(time.Now())
	s.mu.RLock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
