// Package repository defines the persistence contract for users, matches and
// predictions, with in-memory, Postgres and Redis implementations.
package repository

import (
	"context"

	"github.com/okian/bolao/internal/domain/model"
)

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// PredictionStore persists at most one prediction per (user, match).
type PredictionStore interface {
	// UpsertPrediction inserts or replaces the prediction for p.Key() in a
	// single atomic write. Concurrent upserts of the same key leave exactly
	// one of the submitted values.
	UpsertPrediction(ctx context.Context, p model.Prediction) error

	// GetPrediction returns ErrNotFound when no prediction exists for the key.
	GetPrediction(ctx context.Context, userID model.UserID, matchID model.MatchID) (model.Prediction, error)

	// PredictionsByUser returns the user's predictions ordered by match id.
	PredictionsByUser(ctx context.Context, userID model.UserID) ([]model.Prediction, error)

	// Predictions returns every stored prediction ordered by (user, match).
	Predictions(ctx context.Context) ([]model.Prediction, error)

	// CountPredictions returns the number of stored predictions.
	CountPredictions(ctx context.Context) (int, error)
}

// MatchStore provides read access to fixtures plus the two writes the
// schedule owner performs.
type MatchStore interface {
	// PutMatch creates or replaces a fixture, scores included.
	PutMatch(ctx context.Context, m model.Match) error
	// Match returns ErrNotFound for unknown ids.
	Match(ctx context.Context, id model.MatchID) (model.Match, error)
	// Matches returns all fixtures ordered by (ScheduledAt, ID).
	Matches(ctx context.Context) ([]model.Match, error)
	// SetResult records both official scores together.
	SetResult(ctx context.Context, id model.MatchID, home, away int) error
}

// UserStore provides the identity data the ranking displays.
type UserStore interface {
	PutUser(ctx context.Context, u model.User) error
	// User returns ErrNotFound for unknown ids.
	User(ctx context.Context, id model.UserID) (model.User, error)
	// Users returns all users ordered by id.
	Users(ctx context.Context) ([]model.User, error)
}

// Store bundles every persistence contract the service needs.
type Store interface {
	PredictionStore
	MatchStore
	UserStore

	// Truncate removes every user, match and prediction.
	Truncate(ctx context.Context) error

	// Driver names the backing engine for logs and metrics.
	Driver() string
	Close() error
}
