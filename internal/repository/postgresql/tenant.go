package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/staffdesk/payroll-engine-go/internal/domain/tenant"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/database"
)

type tenantRepository struct {
	db *database.DB
}

// GetByID implements tenant.Repository.
func (r *tenantRepository) GetByID(ctx context.Context, id string) (tenant.Tenant, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, name, username, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`

	var t tenant.Tenant
	err := q.QueryRow(ctx, query, id).Scan(&t.ID, &t.Name, &t.Username, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tenant.Tenant{}, tenant.ErrTenantNotFound
		}
		return tenant.Tenant{}, fmt.Errorf("failed to get tenant: %w", err)
	}

	return t, nil
}

// GetSettings implements tenant.Repository. NULL columns fall back to the
// defaults here, once, so callers never re-default fields ad hoc.
func (r *tenantRepository) GetSettings(ctx context.Context, tenantID string) (tenant.Settings, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT timezone, average_days_per_month, break_time_hours,
		       weekly_penalty_enabled, weekly_absent_threshold
		FROM tenants
		WHERE id = $1
	`

	defaults := tenant.DefaultSettings(tenantID)

	var (
		timezone        *string
		avgDays         *decimal.Decimal
		breakHours      *decimal.Decimal
		penaltyEnabled  *bool
		absentThreshold *int
	)
	err := q.QueryRow(ctx, query, tenantID).Scan(&timezone, &avgDays, &breakHours, &penaltyEnabled, &absentThreshold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tenant.Settings{}, tenant.ErrTenantNotFound
		}
		return tenant.Settings{}, fmt.Errorf("failed to get tenant settings: %w", err)
	}

	settings := defaults
	if timezone != nil && *timezone != "" {
		settings.Timezone = *timezone
	}
	if avgDays != nil {
		settings.AverageDaysPerMonth = *avgDays
	}
	if breakHours != nil {
		settings.BreakTimeHours = *breakHours
	}
	if penaltyEnabled != nil {
		settings.WeeklyPenaltyEnabled = *penaltyEnabled
	}
	if absentThreshold != nil {
		settings.WeeklyAbsentThreshold = *absentThreshold
	}

	if err := settings.Validate(); err != nil {
		return tenant.Settings{}, fmt.Errorf("tenant %s: %w", tenantID, err)
	}

	return settings, nil
}

func NewTenantRepository(db *database.DB) tenant.Repository {
	return &tenantRepository{db: db}
}
