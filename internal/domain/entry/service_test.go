package entry_test

import (
	"context"
	"testing"
	"time"

	"github.com/clockout/clockout/internal/domain/audit"
	"github.com/clockout/clockout/internal/domain/entry"
	"github.com/clockout/clockout/internal/repository"
	"github.com/clockout/clockout/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestService(store *mocks.Store) *entry.Service {
	return entry.NewService(store, nil, nil, nil, nil, entry.WithClock(func() time.Time { return testNow }))
}

func strPtr(s string) *string { return &s }

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	actor := entry.Actor{UserID: "u1", CompanyID: "c1", Role: entry.RoleEmployee}

	t.Run("starts a running entry", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.DirectoryRepo.On("User", ctx, "c1", "u1").
			Return(&entry.UserInfo{Active: true, Role: entry.RoleEmployee}, nil)
		store.Tx.DirectoryRepo.On("Project", ctx, "c1", "p1").
			Return(&entry.ProjectInfo{}, nil)
		store.Tx.EntriesRepo.On("FindActive", ctx, "c1", "u1", "").
			Return(nil, repository.ErrNotFound)
		store.Tx.EntriesRepo.On("Create", ctx, mock.AnythingOfType("*entry.TimeEntry")).
			Return(nil)
		store.Tx.AuditRepo.On("Append", ctx, mock.AnythingOfType("*audit.Record")).
			Return(nil)

		svc := newTestService(store)
		e, err := svc.Create(ctx, actor, entry.CreateRequest{ProjectID: strPtr("p1")})
		require.NoError(t, err)
		require.Equal(t, entry.StatusRunning, e.Status)
		require.Equal(t, "u1", e.UserID)
		require.Equal(t, "c1", e.CompanyID)
		require.Equal(t, testNow, e.StartTime)
		require.Empty(t, e.ApprovalStatus)
		require.NotEmpty(t, e.ID)

		rec := store.Tx.AuditRepo.Calls[0].Arguments.Get(1).(*audit.Record)
		require.Equal(t, audit.TypeStart, rec.Type)
	})

	t.Run("rejects overlap with the blocking entry id", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.DirectoryRepo.On("User", ctx, "c1", "u1").
			Return(&entry.UserInfo{Active: true, Role: entry.RoleEmployee}, nil)
		store.Tx.DirectoryRepo.On("Project", ctx, "c1", "p1").
			Return(&entry.ProjectInfo{}, nil)
		store.Tx.EntriesRepo.On("FindActive", ctx, "c1", "u1", "").
			Return(&entry.TimeEntry{ID: "blocking", Status: entry.StatusPaused}, nil)

		svc := newTestService(store)
		_, err := svc.Create(ctx, actor, entry.CreateRequest{ProjectID: strPtr("p1")})
		require.ErrorIs(t, err, entry.ErrOverlap)

		var overlap *entry.OverlapError
		require.ErrorAs(t, err, &overlap)
		require.Equal(t, "blocking", overlap.ActiveEntryID)
		store.Tx.EntriesRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("translates an insert race into overlap", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.DirectoryRepo.On("User", ctx, "c1", "u1").
			Return(&entry.UserInfo{Active: true, Role: entry.RoleEmployee}, nil)
		store.Tx.DirectoryRepo.On("Project", ctx, "c1", "p1").
			Return(&entry.ProjectInfo{}, nil)
		store.Tx.EntriesRepo.On("FindActive", ctx, "c1", "u1", "").
			Return(nil, repository.ErrNotFound).Once()
		store.Tx.EntriesRepo.On("Create", ctx, mock.AnythingOfType("*entry.TimeEntry")).
			Return(repository.ErrUniqueViolation)
		store.Tx.EntriesRepo.On("FindActive", ctx, "c1", "u1", mock.Anything).
			Return(&entry.TimeEntry{ID: "winner", Status: entry.StatusRunning}, nil)

		svc := newTestService(store)
		_, err := svc.Create(ctx, actor, entry.CreateRequest{ProjectID: strPtr("p1")})
		require.ErrorIs(t, err, entry.ErrOverlap)

		var overlap *entry.OverlapError
		require.ErrorAs(t, err, &overlap)
		require.Equal(t, "winner", overlap.ActiveEntryID)
	})

	t.Run("employee cannot start for another user", func(t *testing.T) {
		store := mocks.NewStore()
		svc := newTestService(store)
		_, err := svc.Create(ctx, actor, entry.CreateRequest{UserID: "other"})
		require.ErrorIs(t, err, entry.ErrForbidden)
	})

	t.Run("rejects a start too far in the future", func(t *testing.T) {
		store := mocks.NewStore()
		svc := newTestService(store)
		future := testNow.Add(2 * time.Hour)
		_, err := svc.Create(ctx, actor, entry.CreateRequest{ProjectID: strPtr("p1"), StartTime: &future})
		require.ErrorIs(t, err, entry.ErrInvalidInput)
	})

	t.Run("employee must supply a project", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.DirectoryRepo.On("User", ctx, "c1", "u1").
			Return(&entry.UserInfo{Active: true, Role: entry.RoleEmployee}, nil)

		svc := newTestService(store)
		_, err := svc.Create(ctx, actor, entry.CreateRequest{})
		require.ErrorIs(t, err, entry.ErrProjectRequired)
	})

	t.Run("manager may start without a project", func(t *testing.T) {
		store := mocks.NewStore()
		manager := entry.Actor{UserID: "m1", CompanyID: "c1", Role: entry.RoleManager}
		store.Tx.DirectoryRepo.On("User", ctx, "c1", "m1").
			Return(&entry.UserInfo{Active: true, Role: entry.RoleManager}, nil)
		store.Tx.EntriesRepo.On("FindActive", ctx, "c1", "m1", "").
			Return(nil, repository.ErrNotFound)
		store.Tx.EntriesRepo.On("Create", ctx, mock.AnythingOfType("*entry.TimeEntry")).
			Return(nil)
		store.Tx.AuditRepo.On("Append", ctx, mock.AnythingOfType("*audit.Record")).
			Return(nil)

		svc := newTestService(store)
		e, err := svc.Create(ctx, manager, entry.CreateRequest{})
		require.NoError(t, err)
		require.Nil(t, e.ProjectID)
	})

	t.Run("rejects inactive user", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.DirectoryRepo.On("User", ctx, "c1", "u1").
			Return(&entry.UserInfo{Active: false, Role: entry.RoleEmployee}, nil)

		svc := newTestService(store)
		_, err := svc.Create(ctx, actor, entry.CreateRequest{ProjectID: strPtr("p1")})
		require.ErrorIs(t, err, entry.ErrUserInactive)
	})

	t.Run("rejects archived project", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.DirectoryRepo.On("User", ctx, "c1", "u1").
			Return(&entry.UserInfo{Active: true, Role: entry.RoleEmployee}, nil)
		store.Tx.DirectoryRepo.On("Project", ctx, "c1", "p1").
			Return(&entry.ProjectInfo{Archived: true}, nil)

		svc := newTestService(store)
		_, err := svc.Create(ctx, actor, entry.CreateRequest{ProjectID: strPtr("p1")})
		require.ErrorIs(t, err, entry.ErrProjectArchived)
	})
}

func TestService_Stop(t *testing.T) {
	ctx := context.Background()
	actor := entry.Actor{UserID: "u1", CompanyID: "c1", Role: entry.RoleEmployee}

	t.Run("finalizes and enters approval", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.EntriesRepo.On("Get", ctx, "c1", "e1").
			Return(&entry.TimeEntry{
				ID: "e1", CompanyID: "c1", UserID: "u1",
				Status: entry.StatusRunning, StartTime: testNow.Add(-10 * time.Minute),
			}, nil)
		store.Tx.EntriesRepo.On("Update", ctx, mock.AnythingOfType("*entry.TimeEntry")).
			Return(nil)
		store.Tx.AuditRepo.On("Append", ctx, mock.AnythingOfType("*audit.Record")).
			Return(nil)
		store.Tx.DirectoryRepo.On("ReviewerIDs", ctx, "c1").
			Return([]string{}, nil)

		svc := newTestService(store)
		e, err := svc.Stop(ctx, actor, "e1")
		require.NoError(t, err)
		require.Equal(t, entry.StatusStopped, e.Status)
		require.Equal(t, int64(600), e.Duration)
		require.Equal(t, entry.ApprovalPending, e.ApprovalStatus)
	})

	t.Run("stopping twice is a conflict", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.EntriesRepo.On("Get", ctx, "c1", "e1").
			Return(&entry.TimeEntry{
				ID: "e1", CompanyID: "c1", UserID: "u1",
				Status: entry.StatusStopped,
			}, nil)

		svc := newTestService(store)
		_, err := svc.Stop(ctx, actor, "e1")
		require.ErrorIs(t, err, entry.ErrAlreadyStopped)
	})

	t.Run("missing entry", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.EntriesRepo.On("Get", ctx, "c1", "nope").
			Return(nil, repository.ErrNotFound)

		svc := newTestService(store)
		_, err := svc.Stop(ctx, actor, "nope")
		require.ErrorIs(t, err, entry.ErrEntryNotFound)
	})

	t.Run("employee cannot stop another user's entry", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.EntriesRepo.On("Get", ctx, "c1", "e1").
			Return(&entry.TimeEntry{
				ID: "e1", CompanyID: "c1", UserID: "other",
				Status: entry.StatusRunning, StartTime: testNow,
			}, nil)

		svc := newTestService(store)
		_, err := svc.Stop(ctx, actor, "e1")
		require.ErrorIs(t, err, entry.ErrForbidden)
	})
}

func TestService_Resume(t *testing.T) {
	ctx := context.Background()
	actor := entry.Actor{UserID: "u1", CompanyID: "c1", Role: entry.RoleEmployee}

	t.Run("restarts the clock and clears the idle flag", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.EntriesRepo.On("Get", ctx, "c1", "e1").
			Return(&entry.TimeEntry{
				ID: "e1", CompanyID: "c1", UserID: "u1",
				Status: entry.StatusPaused, StartTime: testNow.Add(-time.Hour), Duration: 300,
			}, nil)
		store.Tx.EntriesRepo.On("FindActive", ctx, "c1", "u1", "e1").
			Return(nil, repository.ErrNotFound)
		store.Tx.EntriesRepo.On("Update", ctx, mock.AnythingOfType("*entry.TimeEntry")).
			Return(nil)
		store.Tx.AuditRepo.On("Append", ctx, mock.AnythingOfType("*audit.Record")).
			Return(nil)
		store.Tx.UserActivityRepo.On("SetIdle", ctx, "c1", "u1", false).
			Return(nil)

		svc := newTestService(store)
		e, err := svc.Resume(ctx, actor, "e1")
		require.NoError(t, err)
		require.Equal(t, entry.StatusRunning, e.Status)
		require.Equal(t, testNow, e.StartTime)
		require.Equal(t, int64(300), e.Duration)
		store.Tx.UserActivityRepo.AssertCalled(t, "SetIdle", ctx, "c1", "u1", false)
	})

	t.Run("tolerates a missing activity row", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.EntriesRepo.On("Get", ctx, "c1", "e1").
			Return(&entry.TimeEntry{
				ID: "e1", CompanyID: "c1", UserID: "u1",
				Status: entry.StatusPaused, StartTime: testNow.Add(-time.Hour),
			}, nil)
		store.Tx.EntriesRepo.On("FindActive", ctx, "c1", "u1", "e1").
			Return(nil, repository.ErrNotFound)
		store.Tx.EntriesRepo.On("Update", ctx, mock.AnythingOfType("*entry.TimeEntry")).
			Return(nil)
		store.Tx.AuditRepo.On("Append", ctx, mock.AnythingOfType("*audit.Record")).
			Return(nil)
		store.Tx.UserActivityRepo.On("SetIdle", ctx, "c1", "u1", false).
			Return(repository.ErrNotFound)

		svc := newTestService(store)
		_, err := svc.Resume(ctx, actor, "e1")
		require.NoError(t, err)
	})

	t.Run("resuming a running entry fails", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.EntriesRepo.On("Get", ctx, "c1", "e1").
			Return(&entry.TimeEntry{
				ID: "e1", CompanyID: "c1", UserID: "u1",
				Status: entry.StatusRunning, StartTime: testNow,
			}, nil)
		store.Tx.EntriesRepo.On("FindActive", ctx, "c1", "u1", "e1").
			Return(nil, repository.ErrNotFound)

		svc := newTestService(store)
		_, err := svc.Resume(ctx, actor, "e1")
		require.ErrorIs(t, err, entry.ErrNotPaused)
	})
}

func TestService_Remove(t *testing.T) {
	ctx := context.Background()
	owner := entry.Actor{UserID: "u1", CompanyID: "c1", Role: entry.RoleEmployee}
	admin := entry.Actor{UserID: "a1", CompanyID: "c1", Role: entry.RoleAdmin}

	t.Run("owner may delete a pending entry", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.EntriesRepo.On("Get", ctx, "c1", "e1").
			Return(&entry.TimeEntry{
				ID: "e1", CompanyID: "c1", UserID: "u1",
				Status: entry.StatusStopped, ApprovalStatus: entry.ApprovalPending,
			}, nil)
		store.Tx.EntriesRepo.On("Delete", ctx, "c1", "e1").Return(nil)
		store.Tx.AuditRepo.On("Append", ctx, mock.AnythingOfType("*audit.Record")).
			Return(nil)

		svc := newTestService(store)
		require.NoError(t, svc.Remove(ctx, owner, "e1"))
	})

	t.Run("owner cannot delete a reviewed entry", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.EntriesRepo.On("Get", ctx, "c1", "e1").
			Return(&entry.TimeEntry{
				ID: "e1", CompanyID: "c1", UserID: "u1",
				Status: entry.StatusStopped, ApprovalStatus: entry.ApprovalApproved,
			}, nil)

		svc := newTestService(store)
		require.ErrorIs(t, svc.Remove(ctx, owner, "e1"), entry.ErrEntryLocked)
	})

	t.Run("admin may delete a reviewed entry", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.EntriesRepo.On("Get", ctx, "c1", "e1").
			Return(&entry.TimeEntry{
				ID: "e1", CompanyID: "c1", UserID: "u1",
				Status: entry.StatusStopped, ApprovalStatus: entry.ApprovalApproved,
			}, nil)
		store.Tx.EntriesRepo.On("Delete", ctx, "c1", "e1").Return(nil)
		store.Tx.AuditRepo.On("Append", ctx, mock.AnythingOfType("*audit.Record")).
			Return(nil)

		svc := newTestService(store)
		require.NoError(t, svc.Remove(ctx, admin, "e1"))
	})

	t.Run("owner cannot delete another user's entry", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.EntriesRepo.On("Get", ctx, "c1", "e1").
			Return(&entry.TimeEntry{
				ID: "e1", CompanyID: "c1", UserID: "other",
				Status: entry.StatusStopped, ApprovalStatus: entry.ApprovalPending,
			}, nil)

		svc := newTestService(store)
		require.ErrorIs(t, svc.Remove(ctx, owner, "e1"), entry.ErrForbidden)
	})
}

func TestService_AutoPause(t *testing.T) {
	ctx := context.Background()

	t.Run("pauses the running entry when idleness is confirmed", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.EntriesRepo.On("FindRunning", ctx, "c1", "u1").
			Return(&entry.TimeEntry{
				ID: "e1", CompanyID: "c1", UserID: "u1",
				Status: entry.StatusRunning, StartTime: testNow.Add(-10 * time.Minute),
			}, nil)
		store.Tx.EntriesRepo.On("Update", ctx, mock.AnythingOfType("*entry.TimeEntry")).
			Return(nil)
		store.Tx.AuditRepo.On("Append", ctx, mock.AnythingOfType("*audit.Record")).
			Return(nil)

		svc := newTestService(store)
		confirm := func(ctx context.Context, tx repository.Tx) (bool, error) { return true, nil }
		e, err := svc.AutoPause(ctx, "c1", "u1", confirm)
		require.NoError(t, err)
		require.Equal(t, entry.StatusPaused, e.Status)
		require.Equal(t, int64(600), e.Duration)

		rec := store.Tx.AuditRepo.Calls[0].Arguments.Get(1).(*audit.Record)
		require.Equal(t, audit.TypeAutoPause, rec.Type)
	})

	t.Run("backs off when the user turned active again", func(t *testing.T) {
		store := mocks.NewStore()
		svc := newTestService(store)
		confirm := func(ctx context.Context, tx repository.Tx) (bool, error) { return false, nil }
		_, err := svc.AutoPause(ctx, "c1", "u1", confirm)
		require.ErrorIs(t, err, entry.ErrNotRunning)
		store.Tx.EntriesRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("no running entry", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.EntriesRepo.On("FindRunning", ctx, "c1", "u1").
			Return(nil, repository.ErrNotFound)

		svc := newTestService(store)
		_, err := svc.AutoPause(ctx, "c1", "u1", nil)
		require.ErrorIs(t, err, entry.ErrNotRunning)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	actor := entry.Actor{UserID: "u1", CompanyID: "c1", Role: entry.RoleEmployee}

	t.Run("empty patch is invalid", func(t *testing.T) {
		store := mocks.NewStore()
		svc := newTestService(store)
		_, err := svc.Update(ctx, actor, "e1", entry.UpdatePatch{})
		require.ErrorIs(t, err, entry.ErrInvalidInput)
	})

	t.Run("reviewed entries are immutable", func(t *testing.T) {
		store := mocks.NewStore()
		store.Tx.EntriesRepo.On("Get", ctx, "c1", "e1").
			Return(&entry.TimeEntry{
				ID: "e1", CompanyID: "c1", UserID: "u1",
				Status: entry.StatusStopped, ApprovalStatus: entry.ApprovalRejected,
			}, nil)

		svc := newTestService(store)
		_, err := svc.Update(ctx, actor, "e1", entry.UpdatePatch{Description: strPtr("late edit")})
		require.ErrorIs(t, err, entry.ErrEntryLocked)
	})

	t.Run("timing edit on a stopped entry recomputes duration", func(t *testing.T) {
		start := testNow.Add(-2 * time.Hour)
		end := testNow.Add(-time.Hour)
		store := mocks.NewStore()
		store.Tx.EntriesRepo.On("Get", ctx, "c1", "e1").
			Return(&entry.TimeEntry{
				ID: "e1", CompanyID: "c1", UserID: "u1",
				Status: entry.StatusStopped, ApprovalStatus: entry.ApprovalPending,
				StartTime: start.Add(-time.Hour), EndTime: &end, Duration: 7200,
			}, nil)
		store.Tx.DirectoryRepo.On("User", ctx, "c1", "u1").
			Return(&entry.UserInfo{Active: true, Role: entry.RoleEmployee}, nil)
		store.Tx.EntriesRepo.On("Update", ctx, mock.AnythingOfType("*entry.TimeEntry")).
			Return(nil)
		store.Tx.AuditRepo.On("Append", ctx, mock.AnythingOfType("*audit.Record")).
			Return(nil)

		svc := newTestService(store)
		e, err := svc.Update(ctx, actor, "e1", entry.UpdatePatch{StartTime: &start})
		require.NoError(t, err)
		require.Equal(t, int64(3600), e.Duration)
	})

	t.Run("negative running interval is rejected, not clamped", func(t *testing.T) {
		end := testNow.Add(-2 * time.Hour)
		stopped := entry.StatusStopped
		store := mocks.NewStore()
		store.Tx.EntriesRepo.On("Get", ctx, "c1", "e1").
			Return(&entry.TimeEntry{
				ID: "e1", CompanyID: "c1", UserID: "u1",
				Status: entry.StatusRunning, StartTime: testNow.Add(-time.Hour),
			}, nil)
		store.Tx.DirectoryRepo.On("User", ctx, "c1", "u1").
			Return(&entry.UserInfo{Active: true, Role: entry.RoleEmployee}, nil)

		svc := newTestService(store)
		_, err := svc.Update(ctx, actor, "e1", entry.UpdatePatch{Status: &stopped, EndTime: &end})
		require.ErrorIs(t, err, entry.ErrInvalidInput)
	})

	t.Run("moving back to running re-runs the overlap guard", func(t *testing.T) {
		running := entry.StatusRunning
		store := mocks.NewStore()
		store.Tx.EntriesRepo.On("Get", ctx, "c1", "e1").
			Return(&entry.TimeEntry{
				ID: "e1", CompanyID: "c1", UserID: "u1",
				Status: entry.StatusStopped, ApprovalStatus: entry.ApprovalPending,
				StartTime: testNow.Add(-time.Hour), Duration: 100,
			}, nil)
		store.Tx.DirectoryRepo.On("User", ctx, "c1", "u1").
			Return(&entry.UserInfo{Active: true, Role: entry.RoleEmployee}, nil)
		store.Tx.EntriesRepo.On("FindActive", ctx, "c1", "u1", "e1").
			Return(&entry.TimeEntry{ID: "blocking", Status: entry.StatusRunning}, nil)

		svc := newTestService(store)
		_, err := svc.Update(ctx, actor, "e1", entry.UpdatePatch{Status: &running})
		require.ErrorIs(t, err, entry.ErrOverlap)
	})
}
