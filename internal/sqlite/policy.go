package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clockout/clockout/internal/domain/idle"
	"github.com/clockout/clockout/internal/repository"
)

// PolicyRepository implements repository.PolicyRepository for SQLite
type PolicyRepository struct {
	db DBTX
}

// NewPolicyRepository creates a new PolicyRepository
func NewPolicyRepository(db DBTX) *PolicyRepository {
	return &PolicyRepository{db: db}
}

func (r *PolicyRepository) Get(ctx context.Context, companyID string) (*idle.Policy, error) {
	query := `
		SELECT company_id, idle_detection_enabled, idle_threshold_seconds
		FROM idle_policies
		WHERE company_id = ?
	`
	var pol idle.Policy
	err := r.db.QueryRowContext(ctx, query, companyID).Scan(
		&pol.CompanyID,
		&pol.DetectionEnabled,
		&pol.ThresholdSeconds,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading idle policy: %w", err)
	}
	return &pol, nil
}

func (r *PolicyRepository) Upsert(ctx context.Context, p *idle.Policy) error {
	query := `
		INSERT INTO idle_policies (company_id, idle_detection_enabled, idle_threshold_seconds)
		VALUES (?, ?, ?)
		ON CONFLICT(company_id) DO UPDATE SET
			idle_detection_enabled = excluded.idle_detection_enabled,
			idle_threshold_seconds = excluded.idle_threshold_seconds
	`
	if _, err := r.db.ExecContext(ctx, query, p.CompanyID, p.DetectionEnabled, p.ThresholdSeconds); err != nil {
		return fmt.Errorf("upserting idle policy: %w", err)
	}
	return nil
}

func (r *PolicyRepository) ListEnabled(ctx context.Context) ([]idle.Policy, error) {
	query := `
		SELECT company_id, idle_detection_enabled, idle_threshold_seconds
		FROM idle_policies
		WHERE idle_detection_enabled = 1
		ORDER BY company_id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing enabled policies: %w", err)
	}
	defer rows.Close()

	var policies []idle.Policy
	for rows.Next() {
		var pol idle.Policy
		if err := rows.Scan(&pol.CompanyID, &pol.DetectionEnabled, &pol.ThresholdSeconds); err != nil {
			return nil, fmt.Errorf("scanning idle policy: %w", err)
		}
		policies = append(policies, pol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating idle policies: %w", err)
	}
	return policies, nil
}
