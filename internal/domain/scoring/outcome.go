package scoring

import "github.com/okian/bolao/internal/domain/model"

// Outcome classifies a score pair.
type Outcome int

// Outcome classes. Pending means the match has no official result.
const (
	Pending Outcome = iota
	HomeWin
	Draw
	AwayWin
)

// String returns the lower-case name used in logs and JSON.
func (o Outcome) String() string {
	switch o {
	case HomeWin:
		return "home_win"
	case Draw:
		return "draw"
	case AwayWin:
		return "away_win"
	default:
		return "pending"
	}
}

// OutcomeOfScores applies the sign rule to a score pair.
func OutcomeOfScores(home, away int) Outcome {
	switch d := home - away; {
	case d > 0:
		return HomeWin
	case d < 0:
		return AwayWin
	default:
		return Draw
	}
}

// OutcomeOf resolves a match. A match missing either score is Pending.
func OutcomeOf(m model.Match) Outcome {
	if !m.Finalized() {
		return Pending
	}
	return OutcomeOfScores(*m.HomeScore, *m.AwayScore)
}
