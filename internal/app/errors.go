package service

import (
	"errors"

	"github.com/okian/bolao/internal/adapters/repository"
)

var (
	// ErrPredictionLocked is returned when a match no longer accepts predictions.
	ErrPredictionLocked = errors.New("prediction locked")
	// ErrNotFound is the repository's not-found kind, re-exported for callers
	// that only import the service.
	ErrNotFound = repository.ErrNotFound
	// ErrInvalidRound is returned for round numbers below 1.
	ErrInvalidRound = errors.New("invalid round")
	// ErrNotStarted is returned by operations invoked before Start.
	ErrNotStarted = errors.New("service not started")
)
