package sqlite

import (
	"context"
	"fmt"

	"github.com/clockout/clockout/internal/domain/audit"
)

// AuditRepository implements repository.AuditRepository for SQLite
type AuditRepository struct {
	db DBTX
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, rec *audit.Record) error {
	query := `
		INSERT INTO activity_log (company_id, user_id, project_id, entry_id, activity_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		rec.CompanyID,
		rec.UserID,
		rec.ProjectID,
		rec.EntryID,
		rec.Type,
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("appending activity record: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		rec.ID = id
	}
	return nil
}
