// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidID is returned when an identifier cannot be parsed into a positive integer.
	ErrInvalidID = errors.New("invalid identifier")

	// ErrNotFound is returned by stores when a user, match or prediction does not exist.
	ErrNotFound = errors.New("not found")
)

// UserID identifies a user. It is the only representation used past the adapters.
type UserID int64

// MatchID identifies a match.
type MatchID int64

// String renders the id in decimal.
func (id UserID) String() string { return strconv.FormatInt(int64(id), 10) }

// String renders the id in decimal.
func (id MatchID) String() string { return strconv.FormatInt(int64(id), 10) }

// Valid reports whether the id is positive.
func (id UserID) Valid() bool { return id > 0 }

// Valid reports whether the id is positive.
func (id MatchID) Valid() bool { return id > 0 }

// ParseUserID parses a decimal user id. Non-positive values are rejected.
func ParseUserID(s string) (UserID, error) {
	n, err := parsePositive(s)
	return UserID(n), err
}

// ParseMatchID parses a decimal match id. Non-positive values are rejected.
func ParseMatchID(s string) (MatchID, error) {
	n, err := parsePositive(s)
	return MatchID(n), err
}

func parsePositive(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidID
	}
	return n, nil
}

// Match is a scheduled fixture. Scores are both set or both nil.
type Match struct {
	ID          MatchID
	Round       int
	HomeTeam    string
	AwayTeam    string
	ScheduledAt time.Time
	HomeScore   *int // nil until the match is finalized
	AwayScore   *int
}

// Finalized reports whether both official scores are recorded.
func (m Match) Finalized() bool {
	return m.HomeScore != nil && m.AwayScore != nil
}

// PredictionKey is the composite identity of a prediction.
type PredictionKey struct {
	UserID  UserID
	MatchID MatchID
}

// Prediction is a user's guess for one match. At most one exists per key.
type Prediction struct {
	UserID    UserID
	MatchID   MatchID
	HomeScore int
	AwayScore int
}

// Key returns the prediction's composite identity.
func (p Prediction) Key() PredictionKey {
	return PredictionKey{UserID: p.UserID, MatchID: p.MatchID}
}

// User is the subset of an account the ranking needs.
type User struct {
	ID   UserID
	Name string
}

// LeaderboardEntry is a derived ranking row. It is never persisted.
type LeaderboardEntry struct {
	UserID    UserID
	Name      string
	Points    int
	Exact     int // predictions that hit the exact score
	RoundsWon int // completed rounds topped, ties included
	Position  int // 1-based, contiguous
}

// Score returns a pointer to v; handy when building finalized matches.
func Score(v int) *int { return &v }
