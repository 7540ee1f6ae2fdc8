package idle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clockout/clockout/internal/repository"
)

// Service is the idle tracker: it records heartbeats and classifies users
// as idle or active against their company's policy.
type Service struct {
	store  repository.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new idle tracker service.
func NewService(store repository.Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Heartbeat upserts the user's activity row. Idle is force-set only on an
// explicit negative hint; any heartbeat at all otherwise clears it. A
// persistent write failure is a logged-and-dropped heartbeat miss, never a
// caller-visible error.
func (s *Service) Heartbeat(ctx context.Context, companyID, userID string, isActiveHint *bool) error {
	if companyID == "" || userID == "" {
		return ErrInvalidInput
	}
	ua := &UserActivity{
		CompanyID:     companyID,
		UserID:        userID,
		LastHeartbeat: s.now().UTC(),
		IsIdle:        isActiveHint != nil && !*isActiveHint,
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return upsertActivity(ctx, tx.UserActivity(), ua)
	})
	if err != nil {
		s.logger.Warn("heartbeat dropped", "user_id", userID, "error", err)
	}
	return nil
}

// upsertActivity is the race-safe creation chain: update the existing row,
// fall back to insert when it doesn't exist, and fall back to one more
// update if a concurrent first heartbeat wins the insert.
func upsertActivity(ctx context.Context, repo repository.UserActivityRepository, ua *UserActivity) error {
	err := repo.Update(ctx, ua)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("updating activity: %w", err)
	}
	err = repo.Insert(ctx, ua)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrUniqueViolation) {
		return fmt.Errorf("inserting activity: %w", err)
	}
	if err := repo.Update(ctx, ua); err != nil {
		return fmt.Errorf("updating activity after insert race: %w", err)
	}
	return nil
}

// IsUserIdle classifies the user against the company policy: idle iff
// detection is enabled and the last heartbeat is older than the threshold.
// A user with no heartbeat row is idle, failing safe toward pausing rather
// than unbounded running time.
func (s *Service) IsUserIdle(ctx context.Context, companyID, userID string) (bool, error) {
	var idle bool
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		classified, err := classifyWithinTx(ctx, tx, companyID, userID, s.now().UTC())
		if err != nil {
			return err
		}
		idle = classified
		return nil
	})
	if err != nil {
		return false, err
	}
	return idle, nil
}

// ActivityStatus returns the committed idle state for a user. IsIdle here is
// the stored flag, which turns true only after an auto-pause has succeeded.
func (s *Service) ActivityStatus(ctx context.Context, companyID, userID string) (*ActivityStatus, error) {
	status := &ActivityStatus{UserID: userID}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		ua, err := tx.UserActivity().Get(ctx, companyID, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("loading activity: %w", err)
		}
		hb := ua.LastHeartbeat
		status.LastHeartbeat = &hb
		status.IsIdle = ua.IsIdle
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// GetPolicy returns the company's idle policy, defaulting when unset.
func (s *Service) GetPolicy(ctx context.Context, companyID string) (*Policy, error) {
	var pol Policy
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		p, err := policyOrDefault(ctx, tx, companyID)
		if err != nil {
			return err
		}
		pol = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &pol, nil
}

// SetPolicy stores the company's idle policy. A non-positive threshold
// falls back to the default.
func (s *Service) SetPolicy(ctx context.Context, companyID string, enabled bool, thresholdSeconds int64) (*Policy, error) {
	if companyID == "" {
		return nil, ErrInvalidInput
	}
	if thresholdSeconds <= 0 {
		thresholdSeconds = DefaultThresholdSeconds
	}
	pol := &Policy{
		CompanyID:        companyID,
		DetectionEnabled: enabled,
		ThresholdSeconds: thresholdSeconds,
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.Policies().Upsert(ctx, pol); err != nil {
			return fmt.Errorf("storing policy: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pol, nil
}

// Classify applies the idle rule to an in-memory policy and activity row.
// A nil activity row means no heartbeat was ever seen and classifies idle.
// Negative heartbeat age from clock skew clamps to zero.
func Classify(pol Policy, ua *UserActivity, now time.Time) bool {
	if !pol.DetectionEnabled {
		return false
	}
	if ua == nil {
		return true
	}
	age := now.Unix() - ua.LastHeartbeat.Unix()
	if age < 0 {
		age = 0
	}
	return age > pol.ThresholdSeconds
}

func classifyWithinTx(ctx context.Context, tx repository.Tx, companyID, userID string, now time.Time) (bool, error) {
	pol, err := policyOrDefault(ctx, tx, companyID)
	if err != nil {
		return false, err
	}
	ua, err := tx.UserActivity().Get(ctx, companyID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Classify(pol, nil, now), nil
		}
		return false, fmt.Errorf("loading activity: %w", err)
	}
	return Classify(pol, ua, now), nil
}

func policyOrDefault(ctx context.Context, tx repository.Tx, companyID string) (Policy, error) {
	pol, err := tx.Policies().Get(ctx, companyID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return DefaultPolicy(companyID), nil
		}
		return Policy{}, fmt.Errorf("loading policy: %w", err)
	}
	return *pol, nil
}
