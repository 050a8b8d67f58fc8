// Package types contains the JSON read shapes shared by the API and the CLI.
package types

import (
	"time"

	"github.com/okian/bolao/internal/domain/model"
)

// Entry represents a leaderboard entry.
type Entry struct {
	Position  int    `json:"position"`
	UserID    int64  `json:"userId"`
	Name      string `json:"name"`
	Points    int    `json:"points"`
	Exact     int    `json:"exactPredictions"`
	RoundsWon int    `json:"roundsWon"`
}

// Match is the public view of a fixture. Scores are omitted until finalized.
type Match struct {
	ID          int64     `json:"id"`
	Round       int       `json:"round"`
	HomeTeam    string    `json:"homeTeam"`
	AwayTeam    string    `json:"awayTeam"`
	ScheduledAt time.Time `json:"scheduledAt"`
	HomeScore   *int      `json:"homeScore,omitempty"`
	AwayScore   *int      `json:"awayScore,omitempty"`
	Finalized   bool      `json:"finalized"`
}

// Prediction is a user's stored prediction. Points is set once the match is finalized.
type Prediction struct {
	MatchID   int64 `json:"matchId"`
	HomeScore int   `json:"homeScore"`
	AwayScore int   `json:"awayScore"`
	Points    *int  `json:"points,omitempty"`
}

// FromEntry converts a domain leaderboard row.
func FromEntry(e model.LeaderboardEntry) Entry {
	return Entry{
		Position:  e.Position,
		UserID:    int64(e.UserID),
		Name:      e.Name,
		Points:    e.Points,
		Exact:     e.Exact,
		RoundsWon: e.RoundsWon,
	}
}

// FromEntries converts a ranking, preserving order.
func FromEntries(entries []model.LeaderboardEntry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = FromEntry(e)
	}
	return out
}

// FromMatch converts a domain match.
func FromMatch(m model.Match) Match {
	v := Match{
		ID:          int64(m.ID),
		Round:       m.Round,
		HomeTeam:    m.HomeTeam,
		AwayTeam:    m.AwayTeam,
		ScheduledAt: m.ScheduledAt.UTC(),
		Finalized:   m.Finalized(),
	}
	if v.Finalized {
		v.HomeScore = model.Score(*m.HomeScore)
		v.AwayScore = model.Score(*m.AwayScore)
	}
	return v
}

// FromMatches converts a fixture list, preserving order.
func FromMatches(ms []model.Match) []Match {
	out := make([]Match, len(ms))
	for i, m := range ms {
		out[i] = FromMatch(m)
	}
	return out
}
