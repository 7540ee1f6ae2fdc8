package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/clockout/clockout/internal/domain/entry"
	"github.com/clockout/clockout/internal/repository"
)

const entryColumns = `
	id, company_id, user_id, project_id, description, idempotency_key,
	start_time, end_time, duration_seconds, status, approval_status,
	approved_by, approved_at, rejection_comment, created_at, updated_at`

// EntryRepository implements repository.EntryRepository for SQLite
type EntryRepository struct {
	db DBTX
}

// NewEntryRepository creates a new EntryRepository
func NewEntryRepository(db DBTX) *EntryRepository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) Create(ctx context.Context, e *entry.TimeEntry) error {
	query := `
		INSERT INTO time_entries (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.CompanyID,
		e.UserID,
		e.ProjectID,
		e.Description,
		e.IdempotencyKey,
		formatTime(e.StartTime),
		formatTimePtr(e.EndTime),
		e.Duration,
		e.Status,
		approvalValue(e.ApprovalStatus),
		e.ApprovedBy,
		formatTimePtr(e.ApprovedAt),
		e.RejectionComment,
		formatTime(e.CreatedAt),
		formatTime(e.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrUniqueViolation
		}
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("inserting time entry: %w", err)
	}
	return nil
}

func (r *EntryRepository) Get(ctx context.Context, companyID, id string) (*entry.TimeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM time_entries WHERE id = ? AND company_id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, companyID))
}

func (r *EntryRepository) GetByIdempotencyKey(ctx context.Context, companyID, key string) (*entry.TimeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM time_entries WHERE company_id = ? AND idempotency_key = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, companyID, key))
}

func (r *EntryRepository) Update(ctx context.Context, e *entry.TimeEntry) error {
	query := `
		UPDATE time_entries
		SET project_id = ?, description = ?, start_time = ?, end_time = ?,
		    duration_seconds = ?, status = ?, approval_status = ?,
		    approved_by = ?, approved_at = ?, rejection_comment = ?, updated_at = ?
		WHERE id = ? AND company_id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		e.ProjectID,
		e.Description,
		formatTime(e.StartTime),
		formatTimePtr(e.EndTime),
		e.Duration,
		e.Status,
		approvalValue(e.ApprovalStatus),
		e.ApprovedBy,
		formatTimePtr(e.ApprovedAt),
		e.RejectionComment,
		formatTime(e.UpdatedAt),
		e.ID,
		e.CompanyID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrUniqueViolation
		}
		return fmt.Errorf("updating time entry: %w", err)
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

func (r *EntryRepository) Delete(ctx context.Context, companyID, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM time_entries WHERE id = ? AND company_id = ?`, id, companyID)
	if err != nil {
		return fmt.Errorf("deleting time entry: %w", err)
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

func (r *EntryRepository) FindActive(ctx context.Context, companyID, userID, excludeID string) (*entry.TimeEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM time_entries
		WHERE company_id = ? AND user_id = ? AND status IN ('RUNNING', 'PAUSED') AND id != ?
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, companyID, userID, excludeID))
}

func (r *EntryRepository) FindRunning(ctx context.Context, companyID, userID string) (*entry.TimeEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM time_entries
		WHERE company_id = ? AND user_id = ? AND status = 'RUNNING'
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, companyID, userID))
}

func (r *EntryRepository) ListPending(ctx context.Context, companyID string) ([]entry.TimeEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM time_entries
		WHERE company_id = ? AND status = 'STOPPED' AND approval_status = 'PENDING'
		ORDER BY end_time ASC
	`
	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing pending entries: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

func (r *EntryRepository) ListByIDs(ctx context.Context, companyID string, ids []string) ([]entry.TimeEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := `SELECT ` + entryColumns + ` FROM time_entries WHERE company_id = ? AND id IN (` + placeholders + `)`
	args := make([]any, 0, len(ids)+1)
	args = append(args, companyID)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries by ids: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

func (r *EntryRepository) ListRunningUserIDs(ctx context.Context, companyID string) ([]string, error) {
	query := `
		SELECT DISTINCT user_id
		FROM time_entries
		WHERE company_id = ? AND status = 'RUNNING'
		ORDER BY user_id
	`
	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing running users: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scanning user id: %w", err)
		}
		userIDs = append(userIDs, userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating running users: %w", err)
	}
	return userIDs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *EntryRepository) scanOne(row *sql.Row) (*entry.TimeEntry, error) {
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *EntryRepository) scanMany(rows *sql.Rows) ([]entry.TimeEntry, error) {
	var entries []entry.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}
	return entries, nil
}

func scanEntry(row rowScanner) (*entry.TimeEntry, error) {
	var e entry.TimeEntry
	var projectID, description, idempotencyKey, approvalStatus, approvedBy, rejectionComment sql.NullString
	var startTime, createdAt, updatedAt string
	var endTime, approvedAt sql.NullString

	err := row.Scan(
		&e.ID,
		&e.CompanyID,
		&e.UserID,
		&projectID,
		&description,
		&idempotencyKey,
		&startTime,
		&endTime,
		&e.Duration,
		&e.Status,
		&approvalStatus,
		&approvedBy,
		&approvedAt,
		&rejectionComment,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.ProjectID = stringPtr(projectID)
	e.Description = stringPtr(description)
	e.IdempotencyKey = stringPtr(idempotencyKey)
	e.ApprovedBy = stringPtr(approvedBy)
	e.RejectionComment = stringPtr(rejectionComment)
	if approvalStatus.Valid {
		e.ApprovalStatus = entry.ApprovalStatus(approvalStatus.String)
	}

	if e.StartTime, err = parseTime(startTime); err != nil {
		return nil, err
	}
	if e.EndTime, err = parseTimePtr(endTime); err != nil {
		return nil, err
	}
	if e.ApprovedAt, err = parseTimePtr(approvedAt); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// approvalValue maps the zero ApprovalStatus to NULL so the table's CHECK
// constraint only sees the three real states.
func approvalValue(s entry.ApprovalStatus) any {
	if s == "" {
		return nil
	}
	return string(s)
}
