package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/staffdesk/payroll-engine-go/internal/domain/summary"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/database"
)

type summaryRepository struct {
	db *database.DB
}

const summaryColumns = `
	id, tenant_id, employee_id, year, month,
	calendar_days, total_working_days, present_days, absent_days,
	off_days_marked, paid_leave_days, unmarked_days,
	ot_hours, late_minutes, weekly_penalty_days, records_count,
	created_at, updated_at
`

func scanSummary(row pgx.Row) (summary.MonthlySummary, error) {
	var s summary.MonthlySummary
	var month int
	err := row.Scan(
		&s.ID, &s.TenantID, &s.EmployeeID, &s.Year, &month,
		&s.CalendarDays, &s.TotalWorkingDays, &s.PresentDays, &s.AbsentDays,
		&s.OffDaysMarked, &s.PaidLeaveDays, &s.UnmarkedDays,
		&s.OTHours, &s.LateMinutes, &s.WeeklyPenaltyDays, &s.RecordsCount,
		&s.CreatedAt, &s.UpdatedAt,
	)
	s.Month = time.Month(month)
	return s, err
}

// UpsertBulk implements summary.Repository. One statement per batch keyed on
// (tenant_id, employee_id, year, month); xmax = 0 distinguishes inserts from
// updates so the aggregator can report both counts.
func (r *summaryRepository) UpsertBulk(ctx context.Context, rows []summary.MonthlySummary) (int, int, error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}

	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO monthly_summaries (
			id, tenant_id, employee_id, year, month,
			calendar_days, total_working_days, present_days, absent_days,
			off_days_marked, paid_leave_days, unmarked_days,
			ot_hours, late_minutes, weekly_penalty_days, records_count,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
		ON CONFLICT (tenant_id, employee_id, year, month) DO UPDATE SET
			calendar_days = EXCLUDED.calendar_days,
			total_working_days = EXCLUDED.total_working_days,
			present_days = EXCLUDED.present_days,
			absent_days = EXCLUDED.absent_days,
			off_days_marked = EXCLUDED.off_days_marked,
			paid_leave_days = EXCLUDED.paid_leave_days,
			unmarked_days = EXCLUDED.unmarked_days,
			ot_hours = EXCLUDED.ot_hours,
			late_minutes = EXCLUDED.late_minutes,
			weekly_penalty_days = EXCLUDED.weekly_penalty_days,
			records_count = EXCLUDED.records_count,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0) AS inserted
	`

	created, updated := 0, 0
	now := time.Now().UTC()

	for _, s := range rows {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		var inserted bool
		err := q.QueryRow(ctx, query,
			s.ID, s.TenantID, s.EmployeeID, s.Year, int(s.Month),
			s.CalendarDays, s.TotalWorkingDays, s.PresentDays, s.AbsentDays,
			s.OffDaysMarked, s.PaidLeaveDays, s.UnmarkedDays,
			s.OTHours, s.LateMinutes, s.WeeklyPenaltyDays, s.RecordsCount,
			now,
		).Scan(&inserted)
		if err != nil {
			return created, updated, fmt.Errorf("failed to upsert monthly summary for employee %s: %w", s.EmployeeID, err)
		}
		if inserted {
			created++
		} else {
			updated++
		}
	}

	return created, updated, nil
}

// GetByEmployeeMonth implements summary.Repository.
func (r *summaryRepository) GetByEmployeeMonth(ctx context.Context, employeeID string, year int, month time.Month, tenantID string) (summary.MonthlySummary, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + summaryColumns + `
		FROM monthly_summaries
		WHERE employee_id = $1 AND year = $2 AND month = $3 AND tenant_id = $4`

	s, err := scanSummary(q.QueryRow(ctx, query, employeeID, year, int(month), tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return summary.MonthlySummary{}, summary.ErrSummaryNotFound
		}
		return summary.MonthlySummary{}, fmt.Errorf("failed to get monthly summary: %w", err)
	}

	return s, nil
}

// ListByTenantMonth implements summary.Repository.
func (r *summaryRepository) ListByTenantMonth(ctx context.Context, tenantID string, year int, month time.Month) ([]summary.MonthlySummary, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + summaryColumns + `
		FROM monthly_summaries
		WHERE tenant_id = $1 AND year = $2 AND month = $3
		ORDER BY employee_id`

	rows, err := q.Query(ctx, query, tenantID, year, int(month))
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly summaries: %w", err)
	}
	defer rows.Close()

	var summaries []summary.MonthlySummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan monthly summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// UpdateAbsentDays implements summary.Repository.
func (r *summaryRepository) UpdateAbsentDays(ctx context.Context, id string, tenantID string, absentDays int) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE monthly_summaries
		SET absent_days = $1, updated_at = $2
		WHERE id = $3 AND tenant_id = $4
	`

	tag, err := q.Exec(ctx, query, absentDays, time.Now().UTC(), id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to update absent days: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return summary.ErrSummaryNotFound
	}

	return nil
}

func NewSummaryRepository(db *database.DB) summary.Repository {
	return &summaryRepository{db: db}
}
