package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clockout/clockout/internal/domain/idle"
	"github.com/clockout/clockout/internal/repository"
)

// UserActivityRepository implements repository.UserActivityRepository for SQLite
type UserActivityRepository struct {
	db DBTX
}

// NewUserActivityRepository creates a new UserActivityRepository
func NewUserActivityRepository(db DBTX) *UserActivityRepository {
	return &UserActivityRepository{db: db}
}

func (r *UserActivityRepository) Get(ctx context.Context, companyID, userID string) (*idle.UserActivity, error) {
	query := `
		SELECT company_id, user_id, last_heartbeat, is_idle
		FROM user_activity
		WHERE company_id = ? AND user_id = ?
	`
	var ua idle.UserActivity
	var lastHeartbeat string
	err := r.db.QueryRowContext(ctx, query, companyID, userID).Scan(
		&ua.CompanyID,
		&ua.UserID,
		&lastHeartbeat,
		&ua.IsIdle,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading user activity: %w", err)
	}
	if ua.LastHeartbeat, err = parseTime(lastHeartbeat); err != nil {
		return nil, err
	}
	return &ua, nil
}

func (r *UserActivityRepository) Insert(ctx context.Context, ua *idle.UserActivity) error {
	query := `
		INSERT INTO user_activity (company_id, user_id, last_heartbeat, is_idle)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		ua.CompanyID, ua.UserID, formatTime(ua.LastHeartbeat), ua.IsIdle)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrUniqueViolation
		}
		return fmt.Errorf("inserting user activity: %w", err)
	}
	return nil
}

func (r *UserActivityRepository) Update(ctx context.Context, ua *idle.UserActivity) error {
	query := `
		UPDATE user_activity
		SET last_heartbeat = ?, is_idle = ?
		WHERE company_id = ? AND user_id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		formatTime(ua.LastHeartbeat), ua.IsIdle, ua.CompanyID, ua.UserID)
	if err != nil {
		return fmt.Errorf("updating user activity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserActivityRepository) SetIdle(ctx context.Context, companyID, userID string, isIdle bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE user_activity SET is_idle = ? WHERE company_id = ? AND user_id = ?`,
		isIdle, companyID, userID)
	if err != nil {
		return fmt.Errorf("setting idle flag: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
