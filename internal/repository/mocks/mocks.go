package mocks

import (
	"context"

	"github.com/clockout/clockout/internal/domain/audit"
	"github.com/clockout/clockout/internal/domain/entry"
	"github.com/clockout/clockout/internal/domain/idle"
	"github.com/clockout/clockout/internal/repository"
	"github.com/stretchr/testify/mock"
)

// Store is a repository.Store double that runs every callback against one
// fixed transaction of mock repositories. Service tests assert on the repo
// mocks; the transaction boundary itself is exercised by the sqlite tests.
type Store struct {
	Tx  *Tx
	Err error // returned without invoking the callback when set
}

// NewStore creates a Store with fresh repository mocks.
func NewStore() *Store {
	return &Store{Tx: &Tx{
		EntriesRepo:      &EntryRepository{},
		AuditRepo:        &AuditRepository{},
		UserActivityRepo: &UserActivityRepository{},
		PoliciesRepo:     &PolicyRepository{},
		DirectoryRepo:    &DirectoryRepository{},
	}}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if s.Err != nil {
		return s.Err
	}
	return fn(ctx, s.Tx)
}

// Tx implements repository.Tx over the mock repositories.
type Tx struct {
	EntriesRepo      *EntryRepository
	AuditRepo        *AuditRepository
	UserActivityRepo *UserActivityRepository
	PoliciesRepo     *PolicyRepository
	DirectoryRepo    *DirectoryRepository
}

func (t *Tx) Entries() repository.EntryRepository             { return t.EntriesRepo }
func (t *Tx) Audit() repository.AuditRepository               { return t.AuditRepo }
func (t *Tx) UserActivity() repository.UserActivityRepository { return t.UserActivityRepo }
func (t *Tx) Policies() repository.PolicyRepository           { return t.PoliciesRepo }
func (t *Tx) Directory() repository.DirectoryRepository       { return t.DirectoryRepo }

// EntryRepository is a mock for repository.EntryRepository.
type EntryRepository struct {
	mock.Mock
}

func (m *EntryRepository) Create(ctx context.Context, e *entry.TimeEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *EntryRepository) Get(ctx context.Context, companyID, id string) (*entry.TimeEntry, error) {
	args := m.Called(ctx, companyID, id)
	if e, ok := args.Get(0).(*entry.TimeEntry); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EntryRepository) GetByIdempotencyKey(ctx context.Context, companyID, key string) (*entry.TimeEntry, error) {
	args := m.Called(ctx, companyID, key)
	if e, ok := args.Get(0).(*entry.TimeEntry); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EntryRepository) Update(ctx context.Context, e *entry.TimeEntry) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *EntryRepository) Delete(ctx context.Context, companyID, id string) error {
	args := m.Called(ctx, companyID, id)
	return args.Error(0)
}

func (m *EntryRepository) FindActive(ctx context.Context, companyID, userID, excludeID string) (*entry.TimeEntry, error) {
	args := m.Called(ctx, companyID, userID, excludeID)
	if e, ok := args.Get(0).(*entry.TimeEntry); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EntryRepository) FindRunning(ctx context.Context, companyID, userID string) (*entry.TimeEntry, error) {
	args := m.Called(ctx, companyID, userID)
	if e, ok := args.Get(0).(*entry.TimeEntry); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EntryRepository) ListPending(ctx context.Context, companyID string) ([]entry.TimeEntry, error) {
	args := m.Called(ctx, companyID)
	if list, ok := args.Get(0).([]entry.TimeEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EntryRepository) ListByIDs(ctx context.Context, companyID string, ids []string) ([]entry.TimeEntry, error) {
	args := m.Called(ctx, companyID, ids)
	if list, ok := args.Get(0).([]entry.TimeEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EntryRepository) ListRunningUserIDs(ctx context.Context, companyID string) ([]string, error) {
	args := m.Called(ctx, companyID)
	if list, ok := args.Get(0).([]string); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// AuditRepository is a mock for repository.AuditRepository.
type AuditRepository struct {
	mock.Mock
}

func (m *AuditRepository) Append(ctx context.Context, rec *audit.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// UserActivityRepository is a mock for repository.UserActivityRepository.
type UserActivityRepository struct {
	mock.Mock
}

func (m *UserActivityRepository) Get(ctx context.Context, companyID, userID string) (*idle.UserActivity, error) {
	args := m.Called(ctx, companyID, userID)
	if ua, ok := args.Get(0).(*idle.UserActivity); ok {
		return ua, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserActivityRepository) Insert(ctx context.Context, ua *idle.UserActivity) error {
	args := m.Called(ctx, ua)
	return args.Error(0)
}

func (m *UserActivityRepository) Update(ctx context.Context, ua *idle.UserActivity) error {
	args := m.Called(ctx, ua)
	return args.Error(0)
}

func (m *UserActivityRepository) SetIdle(ctx context.Context, companyID, userID string, isIdle bool) error {
	args := m.Called(ctx, companyID, userID, isIdle)
	return args.Error(0)
}

// PolicyRepository is a mock for repository.PolicyRepository.
type PolicyRepository struct {
	mock.Mock
}

func (m *PolicyRepository) Get(ctx context.Context, companyID string) (*idle.Policy, error) {
	args := m.Called(ctx, companyID)
	if pol, ok := args.Get(0).(*idle.Policy); ok {
		return pol, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *PolicyRepository) Upsert(ctx context.Context, p *idle.Policy) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *PolicyRepository) ListEnabled(ctx context.Context) ([]idle.Policy, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]idle.Policy); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// DirectoryRepository is a mock for repository.DirectoryRepository.
type DirectoryRepository struct {
	mock.Mock
}

func (m *DirectoryRepository) User(ctx context.Context, companyID, userID string) (*entry.UserInfo, error) {
	args := m.Called(ctx, companyID, userID)
	if info, ok := args.Get(0).(*entry.UserInfo); ok {
		return info, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DirectoryRepository) Project(ctx context.Context, companyID, projectID string) (*entry.ProjectInfo, error) {
	args := m.Called(ctx, companyID, projectID)
	if info, ok := args.Get(0).(*entry.ProjectInfo); ok {
		return info, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *DirectoryRepository) ReviewerIDs(ctx context.Context, companyID string) ([]string, error) {
	args := m.Called(ctx, companyID)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}
