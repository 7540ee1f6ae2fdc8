package idle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/clockout/clockout/internal/domain/entry"
	"github.com/clockout/clockout/internal/repository"
)

const (
	// DefaultSweepInterval is how often the sweep runs when unconfigured.
	DefaultSweepInterval = time.Minute
	// DefaultSweepBatchSize bounds concurrent per-user pause transactions.
	DefaultSweepBatchSize = 10
)

// AutoPauser is the lifecycle engine's pause path as the sweeper needs it:
// the idle re-check runs inside the same transaction as the pause write.
type AutoPauser interface {
	AutoPause(ctx context.Context, companyID, userID string, confirmIdle func(ctx context.Context, tx repository.Tx) (bool, error)) (*entry.TimeEntry, error)
}

// Sweeper periodically pauses running entries of users that stopped sending
// heartbeats. One user's failure never aborts the sweep for the rest; the
// committed idle flag flips only after the pause transaction succeeds.
type Sweeper struct {
	store     repository.Store
	entries   AutoPauser
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

// NewSweeper creates a sweeper. Zero interval or batch size fall back to
// the defaults.
func NewSweeper(store repository.Store, entries AutoPauser, interval time.Duration, batchSize int, logger *slog.Logger, opts ...SweeperOption) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Sweeper{
		store:     store,
		entries:   entries,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run executes sweeps on a fixed period until the context is canceled.
// A failing cycle is logged and the next tick proceeds normally.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("idle sweeper started", "interval", w.interval, "batch_size", w.batchSize)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("idle sweeper stopped")
			return
		case <-ticker.C:
			if err := w.SweepOnce(ctx); err != nil {
				w.logger.Error("idle sweep cycle failed", "error", err)
			}
		}
	}
}

// SweepOnce runs a single sweep cycle across all companies with idle
// detection enabled.
func (w *Sweeper) SweepOnce(ctx context.Context) error {
	var policies []Policy
	err := w.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		list, err := tx.Policies().ListEnabled(ctx)
		if err != nil {
			return fmt.Errorf("listing enabled policies: %w", err)
		}
		policies = list
		return nil
	})
	if err != nil {
		return err
	}

	for _, pol := range policies {
		if err := w.sweepCompany(ctx, pol); err != nil {
			w.logger.Warn("sweep failed for company", "company_id", pol.CompanyID, "error", err)
		}
	}
	return nil
}

func (w *Sweeper) sweepCompany(ctx context.Context, pol Policy) error {
	now := w.now().UTC()

	// Enumerate candidates in one read transaction. The classification here
	// is only a pre-filter; it is re-checked inside each pause transaction
	// because a heartbeat may land between enumeration and processing.
	var candidates []string
	err := w.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		userIDs, err := tx.Entries().ListRunningUserIDs(ctx, pol.CompanyID)
		if err != nil {
			return fmt.Errorf("listing running users: %w", err)
		}
		for _, userID := range userIDs {
			idle, err := classifyWithinTx(ctx, tx, pol.CompanyID, userID, now)
			if err != nil {
				w.logger.Warn("classifying user failed", "company_id", pol.CompanyID, "user_id", userID, "error", err)
				continue
			}
			if idle {
				candidates = append(candidates, userID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for chunk := range slices.Chunk(candidates, w.batchSize) {
		var wg sync.WaitGroup
		for _, userID := range chunk {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				w.sweepUser(ctx, pol.CompanyID, userID)
			}(userID)
		}
		wg.Wait()
	}
	return nil
}

// sweepUser pauses one idle user's running entry. All failure modes (entry
// already paused, heartbeat arrived meanwhile, row vanished) are logged and
// contained here.
func (w *Sweeper) sweepUser(ctx context.Context, companyID, userID string) {
	paused, err := w.entries.AutoPause(ctx, companyID, userID, func(ctx context.Context, tx repository.Tx) (bool, error) {
		return classifyWithinTx(ctx, tx, companyID, userID, w.now().UTC())
	})
	if err != nil {
		if errors.Is(err, entry.ErrNotRunning) {
			w.logger.Debug("skipping user, no longer idle and running", "company_id", companyID, "user_id", userID)
		} else {
			w.logger.Warn("auto-pause failed", "company_id", companyID, "user_id", userID, "error", err)
		}
		return
	}

	// The pause is committed; only now may the idle flag go true. The
	// reverse order could report idle while the timer still advances.
	err = w.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.UserActivity().SetIdle(ctx, companyID, userID, true); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return upsertActivity(ctx, tx.UserActivity(), &UserActivity{
					CompanyID:     companyID,
					UserID:        userID,
					LastHeartbeat: w.now().UTC(),
					IsIdle:        true,
				})
			}
			return err
		}
		return nil
	})
	if err != nil {
		w.logger.Warn("setting idle flag failed", "company_id", companyID, "user_id", userID, "error", err)
	}

	w.logger.Info("auto-paused idle user", "company_id", companyID, "user_id", userID, "entry_id", paused.ID)
}
