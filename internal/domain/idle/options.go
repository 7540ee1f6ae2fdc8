package idle

import "time"

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the service time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperClock overrides the sweeper time source for tests.
func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(w *Sweeper) {
		w.now = now
	}
}
