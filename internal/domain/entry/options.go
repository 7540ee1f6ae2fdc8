package entry

import "time"

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, used by tests to drive transitions
// through known wall-clock deltas.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}
