package repository

import (
	"errors"

	"github.com/okian/bolao/internal/domain/model"
)

// Sentinel kinds for repository errors.
var (
	// ErrNotFound is model.ErrNotFound so domain code can test for it
	// without importing this package.
	ErrNotFound      = model.ErrNotFound
	ErrInvalidScore  = errors.New("invalid score")
	ErrInvalidRecord = errors.New("invalid record")
	ErrUnknownDriver = errors.New("unknown store driver")
)
