package entry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clockout/clockout/internal/domain/audit"
	"github.com/clockout/clockout/internal/repository"
)

// FindPending lists the company's entries awaiting review.
func (s *Service) FindPending(ctx context.Context, actor Actor) ([]TimeEntry, error) {
	if !actor.Role.Privileged() {
		return nil, ErrForbidden
	}
	var pending []TimeEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		list, err := tx.Entries().ListPending(ctx, actor.CompanyID)
		if err != nil {
			return fmt.Errorf("listing pending entries: %w", err)
		}
		pending = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pending, nil
}

// Approve resolves a pending entry as approved. Self-approval is forbidden.
func (s *Service) Approve(ctx context.Context, actor Actor, entryID string) (*TimeEntry, error) {
	return s.resolve(ctx, actor, entryID, ApprovalApproved, "")
}

// Reject resolves a pending entry as rejected, storing the reviewer comment.
func (s *Service) Reject(ctx context.Context, actor Actor, entryID, comment string) (*TimeEntry, error) {
	return s.resolve(ctx, actor, entryID, ApprovalRejected, comment)
}

func (s *Service) resolve(ctx context.Context, actor Actor, entryID string, decision ApprovalStatus, comment string) (*TimeEntry, error) {
	if !actor.Role.Privileged() {
		return nil, ErrForbidden
	}
	now := s.now().UTC()
	var resolved *TimeEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		e, err := tx.Entries().Get(ctx, actor.CompanyID, entryID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEntryNotFound
			}
			return fmt.Errorf("loading entry: %w", err)
		}
		if err := applyDecision(e, actor, decision, comment, now); err != nil {
			return err
		}
		if err := tx.Entries().Update(ctx, e); err != nil {
			return fmt.Errorf("updating entry: %w", err)
		}
		if err := s.record(ctx, tx, e, decisionAuditType(decision)); err != nil {
			return err
		}
		resolved = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, resolved)
	s.notifyOwner(ctx, resolved, decisionEvent(decision))
	return resolved, nil
}

// BulkApprove resolves a set of pending entries as approved. If any target
// belongs to the approver the whole call fails with zero rows mutated.
func (s *Service) BulkApprove(ctx context.Context, actor Actor, entryIDs []string) ([]TimeEntry, error) {
	return s.bulkResolve(ctx, actor, entryIDs, ApprovalApproved, "")
}

// BulkReject resolves a set of pending entries as rejected, fail-closed the
// same way as BulkApprove.
func (s *Service) BulkReject(ctx context.Context, actor Actor, entryIDs []string, comment string) ([]TimeEntry, error) {
	return s.bulkResolve(ctx, actor, entryIDs, ApprovalRejected, comment)
}

func (s *Service) bulkResolve(ctx context.Context, actor Actor, entryIDs []string, decision ApprovalStatus, comment string) ([]TimeEntry, error) {
	if !actor.Role.Privileged() {
		return nil, ErrForbidden
	}
	if len(entryIDs) == 0 {
		return nil, fmt.Errorf("%w: no entry ids", ErrInvalidInput)
	}
	now := s.now().UTC()
	var resolved []TimeEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		entries, err := tx.Entries().ListByIDs(ctx, actor.CompanyID, entryIDs)
		if err != nil {
			return fmt.Errorf("loading entries: %w", err)
		}
		if len(entries) != len(entryIDs) {
			return ErrEntryNotFound
		}
		// Fail closed before mutating anything: one self-owned target
		// rejects the whole set.
		for i := range entries {
			if entries[i].UserID == actor.UserID {
				return ErrSelfApproval
			}
		}
		for i := range entries {
			e := &entries[i]
			if err := applyDecision(e, actor, decision, comment, now); err != nil {
				return err
			}
			if err := tx.Entries().Update(ctx, e); err != nil {
				return fmt.Errorf("updating entry %s: %w", e.ID, err)
			}
			if err := s.record(ctx, tx, e, decisionAuditType(decision)); err != nil {
				return err
			}
		}
		resolved = entries
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range resolved {
		s.broadcast(ctx, &resolved[i])
		s.notifyOwner(ctx, &resolved[i], decisionEvent(decision))
	}
	return resolved, nil
}

func applyDecision(e *TimeEntry, actor Actor, decision ApprovalStatus, comment string, now time.Time) error {
	if e.UserID == actor.UserID {
		return ErrSelfApproval
	}
	if e.Status != StatusStopped || e.ApprovalStatus != ApprovalPending {
		return ErrNotPending
	}
	e.ApprovalStatus = decision
	approvedBy := actor.UserID
	e.ApprovedBy = &approvedBy
	approvedAt := now
	e.ApprovedAt = &approvedAt
	if decision == ApprovalRejected {
		if comment != "" {
			c := comment
			e.RejectionComment = &c
		}
	} else {
		// Approval clears any comment left by a prior rejection cycle.
		e.RejectionComment = nil
	}
	e.UpdatedAt = now
	return nil
}

func decisionAuditType(decision ApprovalStatus) audit.Type {
	if decision == ApprovalRejected {
		return audit.TypeReject
	}
	return audit.TypeApprove
}

func decisionEvent(decision ApprovalStatus) string {
	if decision == ApprovalRejected {
		return "entry.rejected"
	}
	return "entry.approved"
}
