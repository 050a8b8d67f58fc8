package auth

import "errors"

var (
	// ErrUnauthorized covers missing, malformed, expired or forged credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrEmptySecret is returned when signing or verifying without a key.
	ErrEmptySecret = errors.New("empty signing secret")
)
