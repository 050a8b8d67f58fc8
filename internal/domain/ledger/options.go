package ledger

// DefaultMaxGoals is the sanity ceiling for a predicted score.
const DefaultMaxGoals = 99

// Option configures a Ledger.
type Option func(*Ledger)

// WithMaxGoals sets the largest score a prediction may carry.
func WithMaxGoals(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxGoals = n
		}
	}
}
