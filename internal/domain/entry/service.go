package entry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clockout/clockout/internal/domain/audit"
	"github.com/clockout/clockout/internal/repository"
	"github.com/google/uuid"
)

const (
	// MaxFutureStart bounds how far in the future a start time may lie.
	MaxFutureStart = time.Hour
	// MaxDurationSeconds bounds stored durations.
	MaxDurationSeconds = int64(1<<31 - 1)
)

// Service is the time entry lifecycle engine. Every operation runs its
// read-validate-write sequence inside one store transaction; notification,
// broadcast and cache side effects fire after commit and are never allowed
// to fail a transition.
type Service struct {
	store       repository.Store
	notifier    Notifier
	broadcaster Broadcaster
	stats       StatsCache
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a new entry service.
func NewService(store repository.Store, notifier Notifier, broadcaster Broadcaster, stats StatsCache, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:       store,
		notifier:    notifier,
		broadcaster: broadcaster,
		stats:       stats,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest describes a start-tracking request.
type CreateRequest struct {
	UserID      string // defaults to the actor; others require a privileged role
	ProjectID   *string
	Description *string
	StartTime   *time.Time // defaults to now
}

// Create starts a new RUNNING entry for the user.
func (s *Service) Create(ctx context.Context, actor Actor, req CreateRequest) (*TimeEntry, error) {
	userID := req.UserID
	if userID == "" {
		userID = actor.UserID
	}
	if userID != actor.UserID && !actor.Role.Privileged() {
		return nil, ErrForbidden
	}

	now := s.now().UTC()
	start := now
	if req.StartTime != nil {
		start = req.StartTime.UTC()
	}
	if start.After(now.Add(MaxFutureStart)) {
		return nil, fmt.Errorf("%w: start time more than %s in the future", ErrInvalidInput, MaxFutureStart)
	}

	var created *TimeEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		info, err := s.lookupActiveUser(ctx, tx, actor.CompanyID, userID)
		if err != nil {
			return err
		}
		projectID, err := s.resolveProject(ctx, tx, actor.CompanyID, info.Role, req.ProjectID)
		if err != nil {
			return err
		}

		if blocking, err := activeOverlap(ctx, tx, actor.CompanyID, userID, ""); err != nil {
			return err
		} else if blocking != nil {
			return &OverlapError{ActiveEntryID: blocking.ID}
		}

		e := &TimeEntry{
			ID:          uuid.NewString(),
			CompanyID:   actor.CompanyID,
			UserID:      userID,
			ProjectID:   projectID,
			Description: req.Description,
			StartTime:   start,
			Status:      StatusRunning,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Entries().Create(ctx, e); err != nil {
			return s.translateInsertConflict(ctx, tx, e, err)
		}
		if err := s.record(ctx, tx, e, audit.TypeStart); err != nil {
			return err
		}
		created = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, created)
	return created, nil
}

// Stop finalizes an entry and moves it into the approval queue. Re-stopping
// an already stopped entry is a caller error, not a silent no-op.
func (s *Service) Stop(ctx context.Context, actor Actor, entryID string) (*TimeEntry, error) {
	now := s.now().UTC()
	var stopped *TimeEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		e, err := s.getOwned(ctx, tx, actor, entryID)
		if err != nil {
			return err
		}
		if err := e.ApplyStop(now); err != nil {
			return err
		}
		if err := tx.Entries().Update(ctx, e); err != nil {
			return fmt.Errorf("updating entry: %w", err)
		}
		if err := s.record(ctx, tx, e, audit.TypeStop); err != nil {
			return err
		}
		stopped = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, stopped)
	s.notifyReviewers(ctx, stopped)
	return stopped, nil
}

// Pause folds the current running interval into the stored duration.
func (s *Service) Pause(ctx context.Context, actor Actor, entryID string) (*TimeEntry, error) {
	now := s.now().UTC()
	var paused *TimeEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		e, err := s.getOwned(ctx, tx, actor, entryID)
		if err != nil {
			return err
		}
		if err := e.ApplyPause(now); err != nil {
			return err
		}
		if err := tx.Entries().Update(ctx, e); err != nil {
			return fmt.Errorf("updating entry: %w", err)
		}
		if err := s.record(ctx, tx, e, audit.TypePause); err != nil {
			return err
		}
		paused = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, paused)
	return paused, nil
}

// Resume restarts a paused entry and clears the user's idle flag.
func (s *Service) Resume(ctx context.Context, actor Actor, entryID string) (*TimeEntry, error) {
	now := s.now().UTC()
	var resumed *TimeEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		e, err := s.getOwned(ctx, tx, actor, entryID)
		if err != nil {
			return err
		}
		if blocking, err := activeOverlap(ctx, tx, actor.CompanyID, e.UserID, e.ID); err != nil {
			return err
		} else if blocking != nil {
			return &OverlapError{ActiveEntryID: blocking.ID}
		}
		if err := e.ApplyResume(now); err != nil {
			return err
		}
		if err := tx.Entries().Update(ctx, e); err != nil {
			return fmt.Errorf("updating entry: %w", err)
		}
		if err := s.record(ctx, tx, e, audit.TypeResume); err != nil {
			return err
		}
		if err := tx.UserActivity().SetIdle(ctx, actor.CompanyID, e.UserID, false); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("clearing idle flag: %w", err)
		}
		resumed = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, resumed)
	return resumed, nil
}

// Get returns an entry visible to the actor.
func (s *Service) Get(ctx context.Context, actor Actor, entryID string) (*TimeEntry, error) {
	var found *TimeEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		e, err := tx.Entries().Get(ctx, actor.CompanyID, entryID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEntryNotFound
			}
			return fmt.Errorf("loading entry: %w", err)
		}
		if e.UserID != actor.UserID && !actor.Role.Privileged() {
			return ErrForbidden
		}
		found = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Remove deletes an entry. Privileged roles may delete anything; owners may
// delete only entries still pending review.
func (s *Service) Remove(ctx context.Context, actor Actor, entryID string) error {
	var removed *TimeEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		e, err := tx.Entries().Get(ctx, actor.CompanyID, entryID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEntryNotFound
			}
			return fmt.Errorf("loading entry: %w", err)
		}
		if !actor.Role.Privileged() {
			if e.UserID != actor.UserID {
				return ErrForbidden
			}
			if e.Locked() {
				return ErrEntryLocked
			}
			if e.ApprovalStatus != ApprovalPending {
				return ErrForbidden
			}
		}
		if err := tx.Entries().Delete(ctx, actor.CompanyID, e.ID); err != nil {
			return fmt.Errorf("deleting entry: %w", err)
		}
		if err := s.record(ctx, tx, e, audit.TypeDelete); err != nil {
			return err
		}
		removed = e
		return nil
	})
	if err != nil {
		return err
	}

	s.broadcast(ctx, removed)
	return nil
}

// AutoPause pauses the user's RUNNING entry on behalf of the idle sweep,
// re-confirming idleness inside the same transaction as the pause write.
// The caller flips the committed idle flag only after this returns nil.
func (s *Service) AutoPause(ctx context.Context, companyID, userID string, confirmIdle func(ctx context.Context, tx repository.Tx) (bool, error)) (*TimeEntry, error) {
	now := s.now().UTC()
	var paused *TimeEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if confirmIdle != nil {
			idle, err := confirmIdle(ctx, tx)
			if err != nil {
				return err
			}
			if !idle {
				return ErrNotRunning
			}
		}
		e, err := tx.Entries().FindRunning(ctx, companyID, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotRunning
			}
			return fmt.Errorf("loading running entry: %w", err)
		}
		if err := e.ApplyPause(now); err != nil {
			return err
		}
		if err := tx.Entries().Update(ctx, e); err != nil {
			return fmt.Errorf("updating entry: %w", err)
		}
		if err := s.record(ctx, tx, e, audit.TypeAutoPause); err != nil {
			return err
		}
		paused = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, paused)
	return paused, nil
}

func (s *Service) getOwned(ctx context.Context, tx repository.Tx, actor Actor, entryID string) (*TimeEntry, error) {
	e, err := tx.Entries().Get(ctx, actor.CompanyID, entryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("loading entry: %w", err)
	}
	if e.UserID != actor.UserID && !actor.Role.Privileged() {
		return nil, ErrForbidden
	}
	return e, nil
}

func (s *Service) lookupActiveUser(ctx context.Context, tx repository.Tx, companyID, userID string) (*UserInfo, error) {
	info, err := tx.Directory().User(ctx, companyID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	if !info.Active {
		return nil, ErrUserInactive
	}
	return info, nil
}

// resolveProject validates the project requirement for the owner's role
// class: non-privileged users must always carry a project.
func (s *Service) resolveProject(ctx context.Context, tx repository.Tx, companyID string, ownerRole Role, projectID *string) (*string, error) {
	if projectID == nil || *projectID == "" {
		if !ownerRole.Privileged() {
			return nil, ErrProjectRequired
		}
		return nil, nil
	}
	info, err := tx.Directory().Project(ctx, companyID, *projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("looking up project: %w", err)
	}
	if info.Archived {
		return nil, ErrProjectArchived
	}
	return projectID, nil
}

// translateInsertConflict maps a uniqueness violation raised by the store at
// write time into the same conflict the overlap guard would have produced.
// This covers the race where two creates for the same user pass the guard
// concurrently and the partial unique index catches the loser.
func (s *Service) translateInsertConflict(ctx context.Context, tx repository.Tx, e *TimeEntry, err error) error {
	if !errors.Is(err, repository.ErrUniqueViolation) {
		return fmt.Errorf("inserting entry: %w", err)
	}
	if blocking, guardErr := activeOverlap(ctx, tx, e.CompanyID, e.UserID, e.ID); guardErr == nil && blocking != nil {
		return &OverlapError{ActiveEntryID: blocking.ID}
	}
	return ErrOverlap
}

func (s *Service) record(ctx context.Context, tx repository.Tx, e *TimeEntry, typ audit.Type) error {
	rec := &audit.Record{
		CompanyID: e.CompanyID,
		UserID:    e.UserID,
		ProjectID: e.ProjectID,
		EntryID:   &e.ID,
		Type:      typ,
		CreatedAt: s.now().UTC(),
	}
	if err := tx.Audit().Append(ctx, rec); err != nil {
		return fmt.Errorf("recording activity: %w", err)
	}
	return nil
}

// broadcast fans out post-commit side effects. Failures are logged, never
// surfaced.
func (s *Service) broadcast(ctx context.Context, e *TimeEntry) {
	if e == nil {
		return
	}
	if s.broadcaster != nil {
		if err := s.broadcaster.BroadcastEntryChange(ctx, e, e.CompanyID); err != nil {
			s.logger.Warn("broadcast entry change failed", "entry_id", e.ID, "error", err)
		}
		if err := s.broadcaster.BroadcastStatsInvalidate(ctx, e.CompanyID); err != nil {
			s.logger.Warn("broadcast stats invalidate failed", "company_id", e.CompanyID, "error", err)
		}
	}
	if s.stats != nil {
		if err := s.stats.InvalidateStats(ctx, e.CompanyID); err != nil {
			s.logger.Warn("stats invalidation failed", "company_id", e.CompanyID, "error", err)
		}
	}
}

func (s *Service) notifyReviewers(ctx context.Context, e *TimeEntry) {
	if e == nil || s.notifier == nil {
		return
	}
	var reviewers []string
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		ids, err := tx.Directory().ReviewerIDs(ctx, e.CompanyID)
		if err != nil {
			return err
		}
		reviewers = ids
		return nil
	})
	if err != nil {
		s.logger.Warn("loading reviewers failed", "company_id", e.CompanyID, "error", err)
		return
	}
	if len(reviewers) == 0 {
		return
	}
	err = s.notifier.NotifyUsers(ctx, reviewers, "entry.pending_approval",
		"Time entry awaiting review",
		fmt.Sprintf("A time entry from user %s is ready for review", e.UserID),
		map[string]any{"entry_id": e.ID, "user_id": e.UserID})
	if err != nil {
		s.logger.Warn("notifying reviewers failed", "entry_id", e.ID, "error", err)
	}
}

func (s *Service) notifyOwner(ctx context.Context, e *TimeEntry, eventType string) {
	if e == nil || s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyUser(ctx, e.UserID, eventType, map[string]any{"entry_id": e.ID}); err != nil {
		s.logger.Warn("notifying owner failed", "entry_id", e.ID, "error", err)
	}
}
