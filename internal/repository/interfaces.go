package repository

import (
	"context"

	"github.com/clockout/clockout/internal/domain/audit"
	"github.com/clockout/clockout/internal/domain/entry"
	"github.com/clockout/clockout/internal/domain/idle"
)

// Store opens transactional units of work. Every state transition runs its
// read-validate-write sequence against one Tx so that concurrent requests
// for the same user serialize through the database, never through process
// memory.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx exposes transaction-scoped repositories. All repositories obtained from
// the same Tx observe and produce the same uncommitted state.
type Tx interface {
	Entries() EntryRepository
	Audit() AuditRepository
	UserActivity() UserActivityRepository
	Policies() PolicyRepository
	Directory() DirectoryRepository
}

// EntryRepository manages time entry persistence
type EntryRepository interface {
	Create(ctx context.Context, e *entry.TimeEntry) error
	Get(ctx context.Context, companyID, id string) (*entry.TimeEntry, error)
	GetByIdempotencyKey(ctx context.Context, companyID, key string) (*entry.TimeEntry, error)
	Update(ctx context.Context, e *entry.TimeEntry) error
	Delete(ctx context.Context, companyID, id string) error
	// FindActive returns the user's entry with status RUNNING or PAUSED,
	// excluding excludeID when non-empty. ErrNotFound when there is none.
	FindActive(ctx context.Context, companyID, userID, excludeID string) (*entry.TimeEntry, error)
	// FindRunning returns the user's RUNNING entry, ErrNotFound when none.
	FindRunning(ctx context.Context, companyID, userID string) (*entry.TimeEntry, error)
	ListPending(ctx context.Context, companyID string) ([]entry.TimeEntry, error)
	ListByIDs(ctx context.Context, companyID string, ids []string) ([]entry.TimeEntry, error)
	// ListRunningUserIDs returns the distinct users with a RUNNING entry.
	ListRunningUserIDs(ctx context.Context, companyID string) ([]string, error)
}

// AuditRepository appends to the activity log
type AuditRepository interface {
	Append(ctx context.Context, rec *audit.Record) error
}

// UserActivityRepository manages per-user heartbeat rows
type UserActivityRepository interface {
	Get(ctx context.Context, companyID, userID string) (*idle.UserActivity, error)
	Insert(ctx context.Context, ua *idle.UserActivity) error
	Update(ctx context.Context, ua *idle.UserActivity) error
	SetIdle(ctx context.Context, companyID, userID string, isIdle bool) error
}

// PolicyRepository manages per-company idle detection settings
type PolicyRepository interface {
	Get(ctx context.Context, companyID string) (*idle.Policy, error)
	Upsert(ctx context.Context, p *idle.Policy) error
	ListEnabled(ctx context.Context) ([]idle.Policy, error)
}

// DirectoryRepository looks up users and projects. Identity issuance is
// external; this only answers existence, activation and role questions.
type DirectoryRepository interface {
	User(ctx context.Context, companyID, userID string) (*entry.UserInfo, error)
	Project(ctx context.Context, companyID, projectID string) (*entry.ProjectInfo, error)
	// ReviewerIDs returns the active privileged users of a company, used to
	// notify reviewers when an entry enters the approval queue.
	ReviewerIDs(ctx context.Context, companyID string) ([]string, error)
}
