package entry

import (
	"context"
	"fmt"
	"time"

	"github.com/clockout/clockout/internal/domain/audit"
	"github.com/clockout/clockout/internal/repository"
)

// UpdatePatch describes a general-purpose edit. Nil fields are left alone.
// A ProjectID pointing at an empty string clears the project, which only
// privileged role classes may do.
type UpdatePatch struct {
	ProjectID   *string
	Description *string
	StartTime   *time.Time
	EndTime     *time.Time
	Status      *Status
}

func (p UpdatePatch) empty() bool {
	return p.ProjectID == nil && p.Description == nil && p.StartTime == nil && p.EndTime == nil && p.Status == nil
}

// Update applies a patch to an entry. Driving status to STOPPED computes the
// duration the same way Stop does; moving to RUNNING re-runs the overlap
// guard. Reviewed entries are immutable.
func (s *Service) Update(ctx context.Context, actor Actor, entryID string, patch UpdatePatch) (*TimeEntry, error) {
	if patch.empty() {
		return nil, fmt.Errorf("%w: empty patch", ErrInvalidInput)
	}
	if patch.Status != nil {
		switch *patch.Status {
		case StatusRunning, StatusPaused, StatusStopped:
		default:
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *patch.Status)
		}
	}

	now := s.now().UTC()
	var updated *TimeEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		e, err := s.getOwned(ctx, tx, actor, entryID)
		if err != nil {
			return err
		}
		if e.Locked() {
			return ErrEntryLocked
		}

		ownerInfo, err := s.lookupActiveUser(ctx, tx, actor.CompanyID, e.UserID)
		if err != nil {
			return err
		}

		timingChanged := patch.StartTime != nil || patch.EndTime != nil

		if patch.Description != nil {
			e.Description = patch.Description
		}
		if patch.ProjectID != nil {
			projectID, err := s.resolveProject(ctx, tx, actor.CompanyID, ownerInfo.Role, patch.ProjectID)
			if err != nil {
				return err
			}
			e.ProjectID = projectID
		}
		if patch.StartTime != nil {
			start := patch.StartTime.UTC()
			e.StartTime = start
		}
		if patch.EndTime != nil {
			end := patch.EndTime.UTC()
			e.EndTime = &end
		}

		if patch.Status != nil && *patch.Status != e.Status {
			if err := s.applyStatusChange(ctx, tx, e, *patch.Status, patch.EndTime, now); err != nil {
				return err
			}
		} else if e.Status == StatusStopped && timingChanged {
			// Timing edits on a stopped (still pending) entry recompute the
			// frozen duration from the edited range.
			if e.EndTime == nil {
				return fmt.Errorf("%w: stopped entry requires an end time", ErrInvalidInput)
			}
			raw := e.EndTime.Unix() - e.StartTime.Unix()
			if raw < 0 {
				return fmt.Errorf("%w: negative duration", ErrInvalidInput)
			}
			e.Duration = raw
		}

		if e.EndTime != nil && !e.EndTime.After(e.StartTime) {
			return fmt.Errorf("%w: end time must be after start time", ErrInvalidInput)
		}
		if e.Duration < 0 || e.Duration > MaxDurationSeconds {
			return fmt.Errorf("%w: duration out of range", ErrInvalidInput)
		}

		e.UpdatedAt = now
		if err := tx.Entries().Update(ctx, e); err != nil {
			return fmt.Errorf("updating entry: %w", err)
		}
		if err := s.record(ctx, tx, e, audit.TypeUpdate); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, updated)
	return updated, nil
}

func (s *Service) applyStatusChange(ctx context.Context, tx repository.Tx, e *TimeEntry, target Status, explicitEnd *time.Time, now time.Time) error {
	switch target {
	case StatusStopped:
		end := now
		if explicitEnd != nil {
			end = explicitEnd.UTC()
		}
		if e.Status == StatusRunning {
			// Caller-supplied end times never get the skew clamp: a negative
			// interval here is a data-integrity bug, not clock drift.
			raw := end.Unix() - e.StartTime.Unix()
			if raw < 0 {
				return fmt.Errorf("%w: end time before start of running interval", ErrInvalidInput)
			}
			e.Duration += raw
		}
		e.Status = StatusStopped
		e.EndTime = &end
		e.ApprovalStatus = ApprovalPending

	case StatusPaused:
		if err := e.ApplyPause(now); err != nil {
			return err
		}

	case StatusRunning:
		if blocking, err := activeOverlap(ctx, tx, e.CompanyID, e.UserID, e.ID); err != nil {
			return err
		} else if blocking != nil {
			return &OverlapError{ActiveEntryID: blocking.ID}
		}
		e.Status = StatusRunning
		e.StartTime = now
		e.EndTime = nil
		e.ApprovalStatus = ""
	}
	return nil
}
