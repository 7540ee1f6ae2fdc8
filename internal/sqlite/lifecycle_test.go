package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/clockout/clockout/internal/domain/entry"
	"github.com/clockout/clockout/internal/domain/idle"
	"github.com/stretchr/testify/require"
)

// testClock is a manually advanced time source shared by services under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newLifecycleFixture(t *testing.T) (*entry.Service, *idle.Service, *Store, *testClock) {
	t.Helper()
	store, db := NewTestStore(t)
	SeedUser(t, db, "c1", "u1", "employee", true)
	SeedUser(t, db, "c1", "m1", "manager", true)
	SeedProject(t, db, "c1", "p1", false)

	clock := newTestClock()
	entries := entry.NewService(store, nil, nil, nil, nil, entry.WithClock(clock.Now))
	idleSvc := idle.NewService(store, nil, idle.WithClock(clock.Now))
	return entries, idleSvc, store, clock
}

func TestLifecycle_DurationConservation(t *testing.T) {
	ctx := context.Background()
	entries, _, _, clock := newLifecycleFixture(t)
	employee := entry.Actor{UserID: "u1", CompanyID: "c1", Role: entry.RoleEmployee}
	projectID := "p1"

	e, err := entries.Create(ctx, employee, entry.CreateRequest{ProjectID: &projectID})
	require.NoError(t, err)

	// Run 5 minutes, pause for 5, run 5 more, stop. Only running time counts.
	clock.Advance(5 * time.Minute)
	paused, err := entries.Pause(ctx, employee, e.ID)
	require.NoError(t, err)
	require.Equal(t, int64(300), paused.Duration)

	clock.Advance(5 * time.Minute)
	resumed, err := entries.Resume(ctx, employee, e.ID)
	require.NoError(t, err)
	require.Equal(t, int64(300), resumed.Duration)

	clock.Advance(5 * time.Minute)
	stopped, err := entries.Stop(ctx, employee, e.ID)
	require.NoError(t, err)
	require.Equal(t, int64(600), stopped.Duration)
	require.Equal(t, entry.StatusStopped, stopped.Status)
	require.Equal(t, entry.ApprovalPending, stopped.ApprovalStatus)
	require.NotNil(t, stopped.EndTime)
	require.True(t, stopped.EndTime.Equal(clock.Now()))
}

func TestLifecycle_OverlapGuard(t *testing.T) {
	ctx := context.Background()
	entries, _, _, _ := newLifecycleFixture(t)
	employee := entry.Actor{UserID: "u1", CompanyID: "c1", Role: entry.RoleEmployee}
	projectID := "p1"

	first, err := entries.Create(ctx, employee, entry.CreateRequest{ProjectID: &projectID})
	require.NoError(t, err)

	_, err = entries.Create(ctx, employee, entry.CreateRequest{ProjectID: &projectID})
	require.ErrorIs(t, err, entry.ErrOverlap)

	var overlap *entry.OverlapError
	require.ErrorAs(t, err, &overlap)
	require.Equal(t, first.ID, overlap.ActiveEntryID)

	// A paused entry still blocks a new start.
	_, err = entries.Pause(ctx, employee, first.ID)
	require.NoError(t, err)
	_, err = entries.Create(ctx, employee, entry.CreateRequest{ProjectID: &projectID})
	require.ErrorIs(t, err, entry.ErrOverlap)

	// Stopping releases the slot.
	_, err = entries.Stop(ctx, employee, first.ID)
	require.NoError(t, err)
	_, err = entries.Create(ctx, employee, entry.CreateRequest{ProjectID: &projectID})
	require.NoError(t, err)
}

func TestLifecycle_ConcurrentCreateSingleWinner(t *testing.T) {
	ctx := context.Background()
	entries, _, _, _ := newLifecycleFixture(t)
	employee := entry.Actor{UserID: "u1", CompanyID: "c1", Role: entry.RoleEmployee}
	projectID := "p1"

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = entries.Create(ctx, employee, entry.CreateRequest{ProjectID: &projectID})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			require.ErrorIs(t, err, entry.ErrOverlap)
		}
	}
	require.Equal(t, 1, winners)
}

func TestLifecycle_SyncReplay(t *testing.T) {
	ctx := context.Background()
	entries, _, _, clock := newLifecycleFixture(t)
	employee := entry.Actor{UserID: "u1", CompanyID: "c1", Role: entry.RoleEmployee}
	projectID := "p1"
	start := clock.Now().Add(-2 * time.Hour)

	item := entry.SyncItem{
		IdempotencyKey: "offline-1",
		ProjectID:      &projectID,
		StartTime:      start,
		Duration:       1800,
	}

	first, err := entries.Sync(ctx, employee, []entry.SyncItem{item})
	require.NoError(t, err)
	require.Equal(t, entry.OutcomeCreated, first.Results[0].Outcome)

	// Replaying the identical batch changes nothing.
	second, err := entries.Sync(ctx, employee, []entry.SyncItem{item})
	require.NoError(t, err)
	require.Equal(t, entry.OutcomeSkipped, second.Results[0].Outcome)
	require.Equal(t, first.Results[0].EntryID, second.Results[0].EntryID)

	// Same key, different payload: conflict, and the stored row is untouched.
	mutated := item
	mutated.Duration = 60
	_, err = entries.Sync(ctx, employee, []entry.SyncItem{mutated})
	require.ErrorIs(t, err, entry.ErrIdempotencyConflict)

	stored, err := entries.Get(ctx, employee, first.Results[0].EntryID)
	require.NoError(t, err)
	require.Equal(t, int64(1800), stored.Duration)
}

func TestLifecycle_SyncForceStopsActiveEntry(t *testing.T) {
	ctx := context.Background()
	entries, _, _, clock := newLifecycleFixture(t)
	employee := entry.Actor{UserID: "u1", CompanyID: "c1", Role: entry.RoleEmployee}
	projectID := "p1"

	live, err := entries.Create(ctx, employee, entry.CreateRequest{ProjectID: &projectID})
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	result, err := entries.Sync(ctx, employee, []entry.SyncItem{{
		IdempotencyKey: "offline-running",
		ProjectID:      &projectID,
		StartTime:      clock.Now().Add(-time.Minute),
		Status:         entry.StatusRunning,
	}})
	require.NoError(t, err)
	require.Equal(t, entry.OutcomeCreated, result.Results[0].Outcome)

	old, err := entries.Get(ctx, employee, live.ID)
	require.NoError(t, err)
	require.Equal(t, entry.StatusStopped, old.Status)
	require.Equal(t, int64(600), old.Duration)
}

func TestLifecycle_ApprovalFlow(t *testing.T) {
	ctx := context.Background()
	entries, _, _, clock := newLifecycleFixture(t)
	employee := entry.Actor{UserID: "u1", CompanyID: "c1", Role: entry.RoleEmployee}
	manager := entry.Actor{UserID: "m1", CompanyID: "c1", Role: entry.RoleManager}
	projectID := "p1"

	e, err := entries.Create(ctx, employee, entry.CreateRequest{ProjectID: &projectID})
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = entries.Stop(ctx, employee, e.ID)
	require.NoError(t, err)

	pending, err := entries.FindPending(ctx, manager)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	approved, err := entries.Approve(ctx, manager, e.ID)
	require.NoError(t, err)
	require.Equal(t, entry.ApprovalApproved, approved.ApprovalStatus)

	// Approved entries are frozen for the owner.
	desc := "edited after review"
	_, err = entries.Update(ctx, employee, e.ID, entry.UpdatePatch{Description: &desc})
	require.ErrorIs(t, err, entry.ErrEntryLocked)
	require.ErrorIs(t, entries.Remove(ctx, employee, e.ID), entry.ErrEntryLocked)

	// And a second decision is rejected.
	_, err = entries.Reject(ctx, manager, e.ID, "changed my mind")
	require.ErrorIs(t, err, entry.ErrNotPending)
}

func TestLifecycle_IdleSweepPausesAndFlags(t *testing.T) {
	ctx := context.Background()
	entries, idleSvc, store, clock := newLifecycleFixture(t)
	employee := entry.Actor{UserID: "u1", CompanyID: "c1", Role: entry.RoleEmployee}
	projectID := "p1"

	_, err := idleSvc.SetPolicy(ctx, "c1", true, 60)
	require.NoError(t, err)

	e, err := entries.Create(ctx, employee, entry.CreateRequest{ProjectID: &projectID})
	require.NoError(t, err)
	require.NoError(t, idleSvc.Heartbeat(ctx, "c1", "u1", nil))

	sweeper := idle.NewSweeper(store, entries, time.Minute, 4, nil,
		idle.WithSweeperClock(clock.Now))

	// Within the threshold nothing happens.
	clock.Advance(30 * time.Second)
	require.NoError(t, sweeper.SweepOnce(ctx))
	got, err := entries.Get(ctx, employee, e.ID)
	require.NoError(t, err)
	require.Equal(t, entry.StatusRunning, got.Status)

	// Past the threshold the entry is paused and the flag committed.
	clock.Advance(5 * time.Minute)
	require.NoError(t, sweeper.SweepOnce(ctx))

	got, err = entries.Get(ctx, employee, e.ID)
	require.NoError(t, err)
	require.Equal(t, entry.StatusPaused, got.Status)
	require.Equal(t, int64(330), got.Duration)

	status, err := idleSvc.ActivityStatus(ctx, "c1", "u1")
	require.NoError(t, err)
	require.True(t, status.IsIdle)

	// Resuming clears the committed idle flag.
	_, err = entries.Resume(ctx, employee, e.ID)
	require.NoError(t, err)
	status, err = idleSvc.ActivityStatus(ctx, "c1", "u1")
	require.NoError(t, err)
	require.False(t, status.IsIdle)
}

func TestLifecycle_SweepSkipsAfterLateHeartbeat(t *testing.T) {
	ctx := context.Background()
	entries, idleSvc, store, clock := newLifecycleFixture(t)
	employee := entry.Actor{UserID: "u1", CompanyID: "c1", Role: entry.RoleEmployee}
	projectID := "p1"

	_, err := idleSvc.SetPolicy(ctx, "c1", true, 60)
	require.NoError(t, err)
	e, err := entries.Create(ctx, employee, entry.CreateRequest{ProjectID: &projectID})
	require.NoError(t, err)
	require.NoError(t, idleSvc.Heartbeat(ctx, "c1", "u1", nil))

	sweeper := idle.NewSweeper(store, entries, time.Minute, 4, nil,
		idle.WithSweeperClock(clock.Now))

	// The user goes quiet, then heartbeats right before the sweep fires.
	clock.Advance(5 * time.Minute)
	require.NoError(t, idleSvc.Heartbeat(ctx, "c1", "u1", nil))
	require.NoError(t, sweeper.SweepOnce(ctx))

	got, err := entries.Get(ctx, employee, e.ID)
	require.NoError(t, err)
	require.Equal(t, entry.StatusRunning, got.Status)
}
