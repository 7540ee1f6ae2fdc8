package entry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clockout/clockout/internal/domain/audit"
	"github.com/clockout/clockout/internal/repository"
	"github.com/google/uuid"
)

// MaxSyncBatch bounds the number of items per sync call.
const MaxSyncBatch = 100

// SyncOutcome classifies what happened to one sync item.
type SyncOutcome string

const (
	OutcomeCreated SyncOutcome = "created"
	OutcomeSkipped SyncOutcome = "skipped"
)

// SyncItem is one offline-recorded entry replayed by a client.
type SyncItem struct {
	IdempotencyKey string     `json:"idempotency_key"`
	UserID         string     `json:"user_id,omitempty"` // defaults to the actor
	ProjectID      *string    `json:"project_id,omitempty"`
	Description    *string    `json:"description,omitempty"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	Duration       int64      `json:"duration_seconds"`
	Status         Status     `json:"status,omitempty"` // defaults to STOPPED
}

// SyncItemResult reports the per-item outcome.
type SyncItemResult struct {
	IdempotencyKey string      `json:"idempotency_key"`
	EntryID        string      `json:"entry_id"`
	Outcome        SyncOutcome `json:"outcome"`
}

// SyncResult aggregates the outcomes of a processed batch.
type SyncResult struct {
	Results []SyncItemResult `json:"results"`
}

// Sync ingests a batch of offline-recorded entries. Items are processed in
// order, each inside its own transaction, so a later item's overlap check
// observes an earlier item's auto-stop. A replayed key with an identical
// payload is skipped; a mismatched payload aborts the batch with a conflict
// identifying the key and the existing entry. Items committed before the
// failure stay committed.
func (s *Service) Sync(ctx context.Context, actor Actor, items []SyncItem) (*SyncResult, error) {
	if len(items) == 0 {
		return &SyncResult{}, nil
	}
	if len(items) > MaxSyncBatch {
		return nil, fmt.Errorf("%w: batch exceeds %d items", ErrInvalidInput, MaxSyncBatch)
	}

	result := &SyncResult{Results: make([]SyncItemResult, 0, len(items))}
	for i, item := range items {
		itemResult, created, err := s.syncItem(ctx, actor, item)
		if err != nil {
			return nil, fmt.Errorf("sync item %d: %w", i, err)
		}
		result.Results = append(result.Results, itemResult)
		s.broadcast(ctx, created)
	}
	return result, nil
}

func (s *Service) syncItem(ctx context.Context, actor Actor, item SyncItem) (SyncItemResult, *TimeEntry, error) {
	if item.IdempotencyKey == "" {
		return SyncItemResult{}, nil, fmt.Errorf("%w: missing idempotency key", ErrInvalidInput)
	}
	userID := item.UserID
	if userID == "" {
		userID = actor.UserID
	}
	if userID != actor.UserID && !actor.Role.Privileged() {
		return SyncItemResult{}, nil, ErrForbidden
	}
	status := item.Status
	if status == "" {
		status = StatusStopped
	}
	switch status {
	case StatusRunning, StatusPaused, StatusStopped:
	default:
		return SyncItemResult{}, nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, item.Status)
	}
	if item.Duration < 0 || item.Duration > MaxDurationSeconds {
		return SyncItemResult{}, nil, fmt.Errorf("%w: duration out of range", ErrInvalidInput)
	}
	if item.StartTime.IsZero() {
		return SyncItemResult{}, nil, fmt.Errorf("%w: missing start time", ErrInvalidInput)
	}

	now := s.now().UTC()
	var itemResult SyncItemResult
	var created *TimeEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		existing, err := tx.Entries().GetByIdempotencyKey(ctx, actor.CompanyID, item.IdempotencyKey)
		if err == nil {
			if !replayMatches(existing, item) {
				return &IdempotencyConflictError{Key: item.IdempotencyKey, ExistingID: existing.ID}
			}
			itemResult = SyncItemResult{
				IdempotencyKey: item.IdempotencyKey,
				EntryID:        existing.ID,
				Outcome:        OutcomeSkipped,
			}
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("looking up idempotency key: %w", err)
		}

		info, err := s.lookupActiveUser(ctx, tx, actor.CompanyID, userID)
		if err != nil {
			return err
		}
		projectID, err := s.resolveProject(ctx, tx, actor.CompanyID, info.Role, item.ProjectID)
		if err != nil {
			return err
		}

		e, err := s.buildSyncEntry(actor.CompanyID, userID, projectID, item, status, now)
		if err != nil {
			return err
		}

		// Sync reconciles offline state: a requested active status force-stops
		// any stale active entry instead of rejecting, unlike direct actions.
		if e.Active() {
			if err := s.forceStopActive(ctx, tx, actor.CompanyID, userID, now); err != nil {
				return err
			}
		}

		if err := tx.Entries().Create(ctx, e); err != nil {
			return s.translateInsertConflict(ctx, tx, e, err)
		}
		if err := s.record(ctx, tx, e, audit.TypeStart); err != nil {
			return err
		}
		itemResult = SyncItemResult{
			IdempotencyKey: item.IdempotencyKey,
			EntryID:        e.ID,
			Outcome:        OutcomeCreated,
		}
		created = e
		return nil
	})
	if err != nil {
		return SyncItemResult{}, nil, err
	}
	return itemResult, created, nil
}

func (s *Service) buildSyncEntry(companyID, userID string, projectID *string, item SyncItem, status Status, now time.Time) (*TimeEntry, error) {
	key := item.IdempotencyKey
	e := &TimeEntry{
		ID:             uuid.NewString(),
		CompanyID:      companyID,
		UserID:         userID,
		ProjectID:      projectID,
		Description:    item.Description,
		IdempotencyKey: &key,
		StartTime:      item.StartTime.UTC(),
		Duration:       item.Duration,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if status == StatusStopped {
		end := item.StartTime.UTC().Add(time.Duration(item.Duration) * time.Second)
		if item.EndTime != nil {
			end = item.EndTime.UTC()
		}
		if end.Before(e.StartTime) || (item.Duration > 0 && !end.After(e.StartTime)) {
			return nil, fmt.Errorf("%w: end time must be after start time", ErrInvalidInput)
		}
		e.EndTime = &end
		e.ApprovalStatus = ApprovalPending
	}
	return e, nil
}

func (s *Service) forceStopActive(ctx context.Context, tx repository.Tx, companyID, userID string, now time.Time) error {
	stale, err := activeOverlap(ctx, tx, companyID, userID, "")
	if err != nil {
		return err
	}
	if stale == nil {
		return nil
	}
	if err := stale.ApplyStop(now); err != nil {
		return fmt.Errorf("force-stopping stale entry %s: %w", stale.ID, err)
	}
	if err := tx.Entries().Update(ctx, stale); err != nil {
		return fmt.Errorf("force-stopping stale entry %s: %w", stale.ID, err)
	}
	return s.record(ctx, tx, stale, audit.TypeForceStop)
}

// replayMatches compares the fields a safe replay must reproduce exactly.
func replayMatches(existing *TimeEntry, item SyncItem) bool {
	if existing.StartTime.Unix() != item.StartTime.UTC().Unix() {
		return false
	}
	if existing.Duration != item.Duration {
		return false
	}
	return sameProject(existing.ProjectID, item.ProjectID)
}

func sameProject(a, b *string) bool {
	av, bv := "", ""
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}
