package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/clockout/clockout/internal/domain/entry"
	"github.com/clockout/clockout/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestStore_WithinTx_Commit(t *testing.T) {
	ctx := context.Background()
	store, db := NewTestStore(t)

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Entries().Create(ctx, testEntry("e1", "c1", "u1", entry.StatusRunning))
	})
	require.NoError(t, err)

	got, err := NewEntryRepository(db).Get(ctx, "c1", "e1")
	require.NoError(t, err)
	require.Equal(t, "e1", got.ID)
}

func TestStore_WithinTx_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	store, db := NewTestStore(t)

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.Entries().Create(ctx, testEntry("e1", "c1", "u1", entry.StatusRunning)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = NewEntryRepository(db).Get(ctx, "c1", "e1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStore_WithinTx_RollbackOnPanic(t *testing.T) {
	ctx := context.Background()
	store, db := NewTestStore(t)

	require.Panics(t, func() {
		_ = store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if err := tx.Entries().Create(ctx, testEntry("e1", "c1", "u1", entry.StatusRunning)); err != nil {
				return err
			}
			panic("mid-transaction panic")
		})
	})

	_, err := NewEntryRepository(db).Get(ctx, "c1", "e1")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
