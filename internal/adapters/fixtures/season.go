// Package fixtures loads a season (users, matches and optional predictions)
// from YAML and applies it to a store.
package fixtures

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/bolao/internal/adapters/repository"
	"github.com/okian/bolao/internal/domain/ledger"
	"github.com/okian/bolao/internal/domain/model"
)

// Season is the on-disk shape of a fixture file.
type Season struct {
	Users       []User       `yaml:"users"`
	Matches     []Match      `yaml:"matches"`
	Predictions []Prediction `yaml:"predictions"`
}

// User is one participant.
type User struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

// Match is one fixture; scores are present only once it has been played.
type Match struct {
	ID        int64     `yaml:"id"`
	Round     int       `yaml:"round"`
	Home      string    `yaml:"home"`
	Away      string    `yaml:"away"`
	At        time.Time `yaml:"at"`
	HomeScore *int      `yaml:"home_score"`
	AwayScore *int      `yaml:"away_score"`
}

// Prediction is a pre-recorded guess.
type Prediction struct {
	User  int64 `yaml:"user"`
	Match int64 `yaml:"match"`
	Home  *int  `yaml:"home"`
	Away  *int  `yaml:"away"`
}

// Load reads and validates the season file at path.
func Load(path string) (*Season, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read season: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a season document.
func Parse(raw []byte) (*Season, error) {
	var s Season
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeason, err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Season) validate() error {
	users := make(map[int64]bool, len(s.Users))
	for _, u := range s.Users {
		if u.ID <= 0 {
			return fmt.Errorf("%w: user id %d must be positive", ErrInvalidSeason, u.ID)
		}
		if users[u.ID] {
			return fmt.Errorf("%w: duplicate user %d", ErrInvalidSeason, u.ID)
		}
		users[u.ID] = true
	}

	matches := make(map[int64]bool, len(s.Matches))
	for _, m := range s.Matches {
		switch {
		case m.ID <= 0:
			return fmt.Errorf("%w: match id %d must be positive", ErrInvalidSeason, m.ID)
		case matches[m.ID]:
			return fmt.Errorf("%w: duplicate match %d", ErrInvalidSeason, m.ID)
		case m.Round <= 0:
			return fmt.Errorf("%w: match %d round must be positive", ErrInvalidSeason, m.ID)
		case (m.HomeScore == nil) != (m.AwayScore == nil):
			return fmt.Errorf("%w: match %d needs both scores or neither", ErrInvalidSeason, m.ID)
		case m.HomeScore != nil && (*m.HomeScore < 0 || *m.AwayScore < 0):
			return fmt.Errorf("%w: match %d has a negative score", ErrInvalidSeason, m.ID)
		}
		matches[m.ID] = true
	}

	for _, p := range s.Predictions {
		if !users[p.User] {
			return fmt.Errorf("%w: prediction for unknown user %d", ErrInvalidSeason, p.User)
		}
		if !matches[p.Match] {
			return fmt.Errorf("%w: prediction for unknown match %d", ErrInvalidSeason, p.Match)
		}
	}
	return nil
}

// Model converts the file record into a domain match.
func (m Match) Model() model.Match {
	return model.Match{
		ID:          model.MatchID(m.ID),
		Round:       m.Round,
		HomeTeam:    m.Home,
		AwayTeam:    m.Away,
		ScheduledAt: m.At.UTC(),
		HomeScore:   m.HomeScore,
		AwayScore:   m.AwayScore,
	}
}

// Apply writes the season into store. Predictions go through the ledger and
// are validated like any other submission; kickoff locks do not apply.
func Apply(ctx context.Context, s *Season, store repository.Store, opts ...ledger.Option) error {
	for _, u := range s.Users {
		if err := store.PutUser(ctx, model.User{ID: model.UserID(u.ID), Name: u.Name}); err != nil {
			return fmt.Errorf("user %d: %w", u.ID, err)
		}
	}
	for _, m := range s.Matches {
		if err := store.PutMatch(ctx, m.Model()); err != nil {
			return fmt.Errorf("match %d: %w", m.ID, err)
		}
	}
	l := ledger.New(store, opts...)
	for _, p := range s.Predictions {
		if _, err := l.Upsert(ctx, model.UserID(p.User), model.MatchID(p.Match), p.Home, p.Away); err != nil {
			return fmt.Errorf("prediction %d/%d: %w", p.User, p.Match, err)
		}
	}
	return nil
}
