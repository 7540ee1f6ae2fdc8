package entry

import (
	"errors"
	"fmt"
)

var (
	// ErrEntryNotFound indicates the entry doesn't exist within the caller's company.
	ErrEntryNotFound = errors.New("time entry not found")
	// ErrUserNotFound indicates the user doesn't exist within the company.
	ErrUserNotFound = errors.New("user not found")
	// ErrProjectNotFound indicates the project doesn't exist within the company.
	ErrProjectNotFound = errors.New("project not found")
	// ErrUserInactive indicates the acting user is deactivated.
	ErrUserInactive = errors.New("user is not active")
	// ErrProjectArchived indicates the target project is archived.
	ErrProjectArchived = errors.New("project is archived")
	// ErrProjectRequired indicates a non-privileged role omitted the project.
	ErrProjectRequired = errors.New("project is required")
	// ErrOverlap indicates the user already has an active entry.
	ErrOverlap = errors.New("user already has an active time entry")
	// ErrIdempotencyConflict indicates a replayed key with a different payload.
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
	// ErrNotRunning indicates a transition valid only from RUNNING.
	ErrNotRunning = errors.New("time entry is not running")
	// ErrNotPaused indicates a transition valid only from PAUSED.
	ErrNotPaused = errors.New("time entry is not paused")
	// ErrAlreadyStopped indicates a stop on an already stopped entry.
	ErrAlreadyStopped = errors.New("time entry is already stopped")
	// ErrEntryLocked indicates the entry has been reviewed and is immutable.
	ErrEntryLocked = errors.New("time entry is locked by review")
	// ErrNotPending indicates an approval action on a non-pending entry.
	ErrNotPending = errors.New("time entry is not pending approval")
	// ErrSelfApproval indicates an approver targeting their own entry.
	ErrSelfApproval = errors.New("cannot approve or reject own time entry")
	// ErrForbidden indicates a role or ownership violation.
	ErrForbidden = errors.New("operation not permitted")
	// ErrInvalidInput indicates malformed operation input.
	ErrInvalidInput = errors.New("invalid time entry input")
)

// OverlapError carries the id of the entry that blocks the transition so the
// caller can act on it.
type OverlapError struct {
	ActiveEntryID string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("user already has an active time entry %s", e.ActiveEntryID)
}

// Is makes errors.Is(err, ErrOverlap) match.
func (e *OverlapError) Is(target error) bool {
	return target == ErrOverlap
}

// IdempotencyConflictError reports a replayed sync item whose payload differs
// from the row already stored under the same key.
type IdempotencyConflictError struct {
	Key        string
	ExistingID string
}

func (e *IdempotencyConflictError) Error() string {
	return fmt.Sprintf("idempotency key %s already used by entry %s with a different payload", e.Key, e.ExistingID)
}

// Is makes errors.Is(err, ErrIdempotencyConflict) match.
func (e *IdempotencyConflictError) Is(target error) bool {
	return target == ErrIdempotencyConflict
}
