// Package scoring resolves match outcomes and awards points to predictions.
package scoring

import "github.com/okian/bolao/internal/domain/model"

// Point awards.
const (
	ExactPoints   = 3
	OutcomePoints = 1
	MissPoints    = 0
)

// PointsFor scores one prediction against a match. A nil prediction means the
// user did not predict; it and a pending match both score zero. Inputs are
// assumed validated upstream.
func PointsFor(m model.Match, p *model.Prediction) int {
	actual := OutcomeOf(m)
	if actual == Pending || p == nil {
		return MissPoints
	}
	if p.HomeScore == *m.HomeScore && p.AwayScore == *m.AwayScore {
		return ExactPoints
	}
	if OutcomeOfScores(p.HomeScore, p.AwayScore) == actual {
		return OutcomePoints
	}
	return MissPoints
}

// IsExact reports whether p hit the official score of a finalized match.
func IsExact(m model.Match, p *model.Prediction) bool {
	return PointsFor(m, p) == ExactPoints
}
