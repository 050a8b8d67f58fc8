// Package ledger validates and records user predictions, one per
// (user, match).
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/okian/bolao/internal/domain/model"
)

// Store is the persistence the ledger needs.
type Store interface {
	// UpsertPrediction inserts or replaces the prediction for p.Key() atomically.
	UpsertPrediction(ctx context.Context, p model.Prediction) error
	// GetPrediction returns model.ErrNotFound when nothing is stored for the key.
	GetPrediction(ctx context.Context, userID model.UserID, matchID model.MatchID) (model.Prediction, error)
	// PredictionsByUser returns the user's predictions ordered by match id.
	PredictionsByUser(ctx context.Context, userID model.UserID) ([]model.Prediction, error)
}

// Ledger is the only write path for predictions.
type Ledger struct {
	store    Store
	maxGoals int
}

// New returns a Ledger writing to store.
func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{store: store, maxGoals: DefaultMaxGoals}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxGoals reports the configured score ceiling.
func (l *Ledger) MaxGoals() int { return l.maxGoals }

// Validate checks a submission without touching the store.
func (l *Ledger) Validate(userID model.UserID, matchID model.MatchID, home, away *int) error {
	if !userID.Valid() {
		return invalid("userId", "must be a positive integer")
	}
	if !matchID.Valid() {
		return invalid("matchId", "must be a positive integer")
	}
	if err := l.validScore("homeScore", home); err != nil {
		return err
	}
	return l.validScore("awayScore", away)
}

func (l *Ledger) validScore(field string, v *int) error {
	switch {
	case v == nil:
		return invalid(field, "is required")
	case *v < 0:
		return invalid(field, "must not be negative")
	case *v > l.maxGoals:
		return invalid(field, "must not exceed "+strconv.Itoa(l.maxGoals))
	}
	return nil
}

// Upsert creates the prediction for (userID, matchID) or replaces its
// scores. Repeating the same call leaves the ledger unchanged.
func (l *Ledger) Upsert(ctx context.Context, userID model.UserID, matchID model.MatchID, home, away *int) (model.Prediction, error) {
	if err := l.Validate(userID, matchID, home, away); err != nil {
		return model.Prediction{}, err
	}
	p := model.Prediction{UserID: userID, MatchID: matchID, HomeScore: *home, AwayScore: *away}
	if err := l.store.UpsertPrediction(ctx, p); err != nil {
		return model.Prediction{}, fmt.Errorf("store prediction: %w", err)
	}
	return p, nil
}

// Get returns the stored prediction and whether it exists.
func (l *Ledger) Get(ctx context.Context, userID model.UserID, matchID model.MatchID) (model.Prediction, bool, error) {
	p, err := l.store.GetPrediction(ctx, userID, matchID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Prediction{}, false, nil
	}
	if err != nil {
		return model.Prediction{}, false, fmt.Errorf("load prediction: %w", err)
	}
	return p, true, nil
}

// AllFor returns the user's predictions ordered by match id.
func (l *Ledger) AllFor(ctx context.Context, userID model.UserID) ([]model.Prediction, error) {
	ps, err := l.store.PredictionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load predictions: %w", err)
	}
	return ps, nil
}
