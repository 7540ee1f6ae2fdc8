package entry

import "time"

// Status represents the lifecycle status of a time entry
type Status string

const (
	StatusRunning Status = "RUNNING"
	StatusPaused  Status = "PAUSED"
	StatusStopped Status = "STOPPED"
)

// ApprovalStatus represents the review state of a stopped time entry.
// It is empty until the entry is stopped.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// Role classifies what an actor may do to entries they do not own
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// Privileged reports whether the role may act on other users' entries.
func (r Role) Privileged() bool {
	return r == RoleManager || r == RoleAdmin
}

// Actor identifies the authenticated caller of an operation. Identity
// issuance happens outside this service; the transport layer fills this in.
type Actor struct {
	UserID    string
	CompanyID string
	Role      Role
}

// TimeEntry represents one work session
type TimeEntry struct {
	ID               string          `json:"id"`
	CompanyID        string          `json:"company_id"`
	UserID           string          `json:"user_id"`
	ProjectID        *string         `json:"project_id,omitempty"`
	Description      *string         `json:"description,omitempty"`
	IdempotencyKey   *string         `json:"idempotency_key,omitempty"`
	StartTime        time.Time       `json:"start_time"`
	EndTime          *time.Time      `json:"end_time,omitempty"`
	Duration         int64           `json:"duration_seconds"`
	Status           Status          `json:"status"`
	ApprovalStatus   ApprovalStatus  `json:"approval_status,omitempty"`
	ApprovedBy       *string         `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time      `json:"approved_at,omitempty"`
	RejectionComment *string         `json:"rejection_comment,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Active reports whether the entry counts toward the one-active-entry-per-user
// invariant.
func (e *TimeEntry) Active() bool {
	return e.Status == StatusRunning || e.Status == StatusPaused
}

// Locked reports whether the entry has been through review and its timing
// fields are frozen.
func (e *TimeEntry) Locked() bool {
	return e.ApprovalStatus == ApprovalApproved || e.ApprovalStatus == ApprovalRejected
}

// ApplyPause folds the elapsed running interval into the stored duration and
// moves the entry to PAUSED. EndTime is left untouched.
func (e *TimeEntry) ApplyPause(now time.Time) error {
	if e.Status != StatusRunning {
		return ErrNotRunning
	}
	e.Duration += ElapsedSince(e.StartTime, now)
	e.Status = StatusPaused
	e.UpdatedAt = now
	return nil
}

// ApplyResume restarts the clock on a paused entry. StartTime is reset so the
// next pause or stop measures only the new running interval.
func (e *TimeEntry) ApplyResume(now time.Time) error {
	if e.Status != StatusPaused {
		return ErrNotPaused
	}
	e.StartTime = now
	e.Status = StatusRunning
	e.UpdatedAt = now
	return nil
}

// ApplyStop finalizes the entry: duration is frozen, EndTime set and the
// entry enters the approval workflow as PENDING.
func (e *TimeEntry) ApplyStop(now time.Time) error {
	if e.Status == StatusStopped {
		return ErrAlreadyStopped
	}
	e.Duration = EffectiveDuration(e, now)
	e.Status = StatusStopped
	end := now
	e.EndTime = &end
	e.ApprovalStatus = ApprovalPending
	e.UpdatedAt = now
	return nil
}
