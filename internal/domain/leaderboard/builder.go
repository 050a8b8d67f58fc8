// Package leaderboard derives the ranking from users, matches and
// predictions. It holds no state; every call recomputes from its inputs.
package leaderboard

import (
	"sort"

	"github.com/okian/bolao/internal/domain/model"
	"github.com/okian/bolao/internal/domain/scoring"
)

// Build returns one entry per user, ordered by points descending. Users with
// equal points keep their input order, and positions are 1..n with no gaps.
// Predictions whose user or match is not in the inputs are ignored.
//
// RoundsWon counts the rounds, among those whose matches are all finalized,
// in which the user scored the most points. Users sharing a round's top score
// are all credited, and a round where nobody scored has no winner. It never
// affects ordering.
func Build(users []model.User, matches []model.Match, predictions []model.Prediction) []model.LeaderboardEntry {
	byKey := make(map[model.PredictionKey]model.Prediction, len(predictions))
	for _, p := range predictions {
		byKey[p.Key()] = p
	}

	rounds := make(map[int][]model.Match)
	for _, m := range latest(matches) {
		rounds[m.Round] = append(rounds[m.Round], m)
	}

	users = unique(users)
	entries := make([]model.LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = model.LeaderboardEntry{UserID: u.ID, Name: u.Name}
	}

	roundPoints := make([]int, len(users))
	for _, ms := range rounds {
		clear(roundPoints)
		complete := true
		for _, m := range ms {
			if !m.Finalized() {
				complete = false
				continue
			}
			for i, u := range users {
				p, ok := byKey[model.PredictionKey{UserID: u.ID, MatchID: m.ID}]
				if !ok {
					continue
				}
				pts := scoring.PointsFor(m, &p)
				entries[i].Points += pts
				roundPoints[i] += pts
				if pts == scoring.ExactPoints {
					entries[i].Exact++
				}
			}
		}
		if complete {
			creditWinners(entries, roundPoints)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}

// BuildRound ranks users on the matches of one round only.
func BuildRound(users []model.User, matches []model.Match, predictions []model.Prediction, round int) []model.LeaderboardEntry {
	in := make([]model.Match, 0)
	for _, m := range latest(matches) {
		if m.Round == round {
			in = append(in, m)
		}
	}
	return Build(users, in, predictions)
}

func creditWinners(entries []model.LeaderboardEntry, points []int) {
	best := 0
	for _, p := range points {
		best = max(best, p)
	}
	if best == 0 {
		return
	}
	for i, p := range points {
		if p == best {
			entries[i].RoundsWon++
		}
	}
}

// latest keeps the last record of every match id.
func latest(matches []model.Match) map[model.MatchID]model.Match {
	out := make(map[model.MatchID]model.Match, len(matches))
	for _, m := range matches {
		out[m.ID] = m
	}
	return out
}

// unique drops repeated user ids, keeping the first occurrence.
func unique(users []model.User) []model.User {
	seen := make(map[model.UserID]bool, len(users))
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		out = append(out, u)
	}
	return out
}

// Find returns the entry for userID.
func Find(entries []model.LeaderboardEntry, userID model.UserID) (model.LeaderboardEntry, bool) {
	for _, e := range entries {
		if e.UserID == userID {
			return e, true
		}
	}
	return model.LeaderboardEntry{}, false
}
