package fixtures

import "errors"

// ErrInvalidSeason wraps every structural problem found in a season file.
var ErrInvalidSeason = errors.New("invalid season")
