package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clockout/clockout/internal/domain/entry"
	"github.com/clockout/clockout/internal/repository"
)

// DirectoryRepository implements repository.DirectoryRepository over the
// local users and projects tables. These tables are maintained by the
// identity system; this service only reads them.
type DirectoryRepository struct {
	db DBTX
}

// NewDirectoryRepository creates a new DirectoryRepository
func NewDirectoryRepository(db DBTX) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) User(ctx context.Context, companyID, userID string) (*entry.UserInfo, error) {
	var info entry.UserInfo
	err := r.db.QueryRowContext(ctx,
		`SELECT active, role FROM users WHERE company_id = ? AND id = ?`,
		companyID, userID).Scan(&info.Active, &info.Role)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return &info, nil
}

func (r *DirectoryRepository) Project(ctx context.Context, companyID, projectID string) (*entry.ProjectInfo, error) {
	var info entry.ProjectInfo
	err := r.db.QueryRowContext(ctx,
		`SELECT archived FROM projects WHERE company_id = ? AND id = ?`,
		companyID, projectID).Scan(&info.Archived)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	return &info, nil
}

func (r *DirectoryRepository) ReviewerIDs(ctx context.Context, companyID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM users WHERE company_id = ? AND active = 1 AND role IN ('manager', 'admin') ORDER BY id`,
		companyID)
	if err != nil {
		return nil, fmt.Errorf("listing reviewers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning reviewer id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reviewers: %w", err)
	}
	return ids, nil
}
