package repository

import (
	"errors"
	"sort"
	"time"

	"github.com/okian/bolao/internal/domain/model"
	"github.com/okian/bolao/pkg/metrics"
)

func sinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// observeRead records latency for a read and counts unexpected failures.
func observeRead(driver, op string, start time.Time, err error) {
	metrics.RecordRepositoryQueryLatency(driver, op, sinceMs(start))
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordRepositoryError(driver, op)
	}
}

// observeWrite records latency for a write and counts failures.
func observeWrite(driver, op string, start time.Time, err error) {
	metrics.RecordRepositoryUpdateLatency(driver, op, sinceMs(start))
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordRepositoryError(driver, op)
	}
}

func validScore(home, away int) bool {
	return home >= 0 && away >= 0
}

func validMatch(m model.Match) bool {
	if !m.ID.Valid() || m.Round <= 0 {
		return false
	}
	if (m.HomeScore == nil) != (m.AwayScore == nil) {
		return false
	}
	if m.Finalized() && !validScore(*m.HomeScore, *m.AwayScore) {
		return false
	}
	return true
}

func validPrediction(p model.Prediction) bool {
	return p.UserID.Valid() && p.MatchID.Valid() && validScore(p.HomeScore, p.AwayScore)
}

// cloneMatch copies the score pointers so callers never alias store state.
func cloneMatch(m model.Match) model.Match {
	if m.HomeScore != nil {
		m.HomeScore = model.Score(*m.HomeScore)
	}
	if m.AwayScore != nil {
		m.AwayScore = model.Score(*m.AwayScore)
	}
	return m
}

func sortMatches(ms []model.Match) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].ScheduledAt.Equal(ms[j].ScheduledAt) {
			return ms[i].ScheduledAt.Before(ms[j].ScheduledAt)
		}
		return ms[i].ID < ms[j].ID
	})
}

func sortPredictions(ps []model.Prediction) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].UserID != ps[j].UserID {
			return ps[i].UserID < ps[j].UserID
		}
		return ps[i].MatchID < ps[j].MatchID
	})
}
