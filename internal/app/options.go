package service

import (
	"time"

	"github.com/okian/bolao/internal/adapters/repository"
	"github.com/okian/bolao/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore uses an already opened store instead of opening one in Start.
// The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithStoreConfig selects the store Start opens.
func WithStoreConfig(cfg repository.Config) Option {
	return func(s *Service) {
		s.storeCfg = cfg
	}
}

// WithClock replaces time.Now for deadline checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLockWindow closes a match to predictions d before kickoff.
func WithLockWindow(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.lockWindow = d
		}
	}
}

// WithDeadlineEnforcement toggles the kickoff lock. Finalized matches stay
// locked either way.
func WithDeadlineEnforcement(enabled bool) Option {
	return func(s *Service) {
		s.enforceDeadline = enabled
	}
}

// WithMaxGoals sets the largest accepted predicted score.
func WithMaxGoals(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxGoals = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
