package summary

import (
	"context"
	"time"
)

type Repository interface {
	// UpsertBulk writes one row per employee for the month in a single
	// bulk reconciliation statement. Existing rows are updated in place,
	// new employees inserted; rows for employees absent from this batch
	// are left untouched. Returns created and updated counts.
	UpsertBulk(ctx context.Context, rows []MonthlySummary) (created int, updated int, err error)

	GetByEmployeeMonth(ctx context.Context, employeeID string, year int, month time.Month, tenantID string) (MonthlySummary, error)

	ListByTenantMonth(ctx context.Context, tenantID string, year int, month time.Month) ([]MonthlySummary, error)

	// UpdateAbsentDays is used by invariant repair only.
	UpdateAbsentDays(ctx context.Context, id string, tenantID string, absentDays int) error
}
