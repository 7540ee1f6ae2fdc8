package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clockout/clockout/internal/repository"
)

// Store implements repository.Store over a SQLite database. Each WithinTx
// call wraps the callback in one database transaction; the Tx handed to the
// callback builds transaction-scoped repositories.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, &storeTx{db: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

type storeTx struct {
	db DBTX
}

func (t *storeTx) Entries() repository.EntryRepository           { return NewEntryRepository(t.db) }
func (t *storeTx) Audit() repository.AuditRepository             { return NewAuditRepository(t.db) }
func (t *storeTx) UserActivity() repository.UserActivityRepository {
	return NewUserActivityRepository(t.db)
}
func (t *storeTx) Policies() repository.PolicyRepository     { return NewPolicyRepository(t.db) }
func (t *storeTx) Directory() repository.DirectoryRepository { return NewDirectoryRepository(t.db) }
