package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/staffdesk/payroll-engine-go/internal/domain/payroll"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/database"
)

type payrollRepository struct {
	db *database.DB
}

const periodColumns = `
	id, tenant_id, year, month, source, status, working_days, tds_percent,
	created_at, updated_at
`

func scanPeriod(row pgx.Row) (payroll.Period, error) {
	var p payroll.Period
	var month int
	err := row.Scan(
		&p.ID, &p.TenantID, &p.Year, &month, &p.Source, &p.Status, &p.WorkingDays, &p.TDSPercent,
		&p.CreatedAt, &p.UpdatedAt,
	)
	p.Month = time.Month(month)
	return p, err
}

// GetOrCreatePeriod implements payroll.Repository.
func (r *payrollRepository) GetOrCreatePeriod(ctx context.Context, tenantID string, year int, month time.Month, defaultTDS decimal.Decimal) (payroll.Period, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_periods (id, tenant_id, year, month, source, status, tds_percent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id, year, month) DO UPDATE SET updated_at = payroll_periods.updated_at
		RETURNING ` + periodColumns

	p, err := scanPeriod(q.QueryRow(ctx, query,
		uuid.NewString(), tenantID, year, int(month),
		payroll.SourceFrontend, payroll.PeriodUncalculated, defaultTDS,
	))
	if err != nil {
		return payroll.Period{}, fmt.Errorf("failed to get or create payroll period: %w", err)
	}

	return p, nil
}

// GetPeriod implements payroll.Repository.
func (r *payrollRepository) GetPeriod(ctx context.Context, tenantID string, year int, month time.Month) (payroll.Period, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + periodColumns + `
		FROM payroll_periods
		WHERE tenant_id = $1 AND year = $2 AND month = $3`

	p, err := scanPeriod(q.QueryRow(ctx, query, tenantID, year, int(month)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Period{}, payroll.ErrPeriodNotFound
		}
		return payroll.Period{}, fmt.Errorf("failed to get payroll period: %w", err)
	}

	return p, nil
}

// UpdatePeriodStatus implements payroll.Repository.
func (r *payrollRepository) UpdatePeriodStatus(ctx context.Context, id string, tenantID string, status payroll.PeriodStatus) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_periods
		SET status = $1, updated_at = $2
		WHERE id = $3 AND tenant_id = $4
	`

	tag, err := q.Exec(ctx, query, status, time.Now().UTC(), id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to update period status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPeriodNotFound
	}

	return nil
}

// SetUploadedWorkingDays implements payroll.Repository.
func (r *payrollRepository) SetUploadedWorkingDays(ctx context.Context, id string, tenantID string, workingDays int) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_periods
		SET working_days = $1, source = $2, updated_at = $3
		WHERE id = $4 AND tenant_id = $5 AND status <> $6
	`

	tag, err := q.Exec(ctx, query, workingDays, payroll.SourceUploaded, time.Now().UTC(), id, tenantID, payroll.PeriodLocked)
	if err != nil {
		return fmt.Errorf("failed to set uploaded working days: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPeriodLocked
	}

	return nil
}

// SetPeriodTDS implements payroll.Repository.
func (r *payrollRepository) SetPeriodTDS(ctx context.Context, id string, tenantID string, percent decimal.Decimal) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE payroll_periods
		SET tds_percent = $1, updated_at = $2
		WHERE id = $3 AND tenant_id = $4 AND status <> $5
	`

	tag, err := q.Exec(ctx, query, percent, time.Now().UTC(), id, tenantID, payroll.PeriodLocked)
	if err != nil {
		return fmt.Errorf("failed to set period tds percent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrPeriodLocked
	}

	return nil
}

// ReplaceSalaries implements payroll.Repository. Bulk reconciliation upsert
// keyed on (period_id, employee_id); payment-status columns are preserved on
// conflict because they are mutated by a separate flow.
func (r *payrollRepository) ReplaceSalaries(ctx context.Context, periodID string, rows []payroll.CalculatedSalary) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO calculated_salaries (
			id, tenant_id, period_id, employee_id,
			basic_salary, hourly_rate,
			present_days, absent_days, holiday_days, extra_paid_days,
			weekly_penalty_days, paid_days,
			ot_hours, ot_charges, late_minutes, late_deduction,
			gross_salary, tds_amount, salary_after_tds,
			total_advance, advance_deducted, remaining_advance,
			net_payable, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		)
		ON CONFLICT (period_id, employee_id) DO UPDATE SET
			basic_salary = EXCLUDED.basic_salary,
			hourly_rate = EXCLUDED.hourly_rate,
			present_days = EXCLUDED.present_days,
			absent_days = EXCLUDED.absent_days,
			holiday_days = EXCLUDED.holiday_days,
			extra_paid_days = EXCLUDED.extra_paid_days,
			weekly_penalty_days = EXCLUDED.weekly_penalty_days,
			paid_days = EXCLUDED.paid_days,
			ot_hours = EXCLUDED.ot_hours,
			ot_charges = EXCLUDED.ot_charges,
			late_minutes = EXCLUDED.late_minutes,
			late_deduction = EXCLUDED.late_deduction,
			gross_salary = EXCLUDED.gross_salary,
			tds_amount = EXCLUDED.tds_amount,
			salary_after_tds = EXCLUDED.salary_after_tds,
			total_advance = EXCLUDED.total_advance,
			advance_deducted = EXCLUDED.advance_deducted,
			remaining_advance = EXCLUDED.remaining_advance,
			net_payable = EXCLUDED.net_payable,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now().UTC()
	for _, s := range rows {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		_, err := q.Exec(ctx, query,
			s.ID, s.TenantID, periodID, s.EmployeeID,
			s.BasicSalary, s.HourlyRate,
			s.PresentDays, s.AbsentDays, s.HolidayDays, s.ExtraPaidDays,
			s.WeeklyPenaltyDays, s.PaidDays,
			s.OTHours, s.OTCharges, s.LateMinutes, s.LateDeduction,
			s.GrossSalary, s.TDSAmount, s.SalaryAfterTDS,
			s.TotalAdvance, s.AdvanceDeducted, s.RemainingAdvance,
			s.NetPayable, now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert calculated salary for employee %s: %w", s.EmployeeID, err)
		}
	}

	return nil
}

const salaryColumns = `
	id, tenant_id, period_id, employee_id,
	basic_salary, hourly_rate,
	present_days, absent_days, holiday_days, extra_paid_days,
	weekly_penalty_days, paid_days,
	ot_hours, ot_charges, late_minutes, late_deduction,
	gross_salary, tds_amount, salary_after_tds,
	total_advance, advance_deducted, remaining_advance,
	net_payable, is_paid, payment_date,
	created_at, updated_at
`

func scanSalary(row pgx.Row) (payroll.CalculatedSalary, error) {
	var s payroll.CalculatedSalary
	err := row.Scan(
		&s.ID, &s.TenantID, &s.PeriodID, &s.EmployeeID,
		&s.BasicSalary, &s.HourlyRate,
		&s.PresentDays, &s.AbsentDays, &s.HolidayDays, &s.ExtraPaidDays,
		&s.WeeklyPenaltyDays, &s.PaidDays,
		&s.OTHours, &s.OTCharges, &s.LateMinutes, &s.LateDeduction,
		&s.GrossSalary, &s.TDSAmount, &s.SalaryAfterTDS,
		&s.TotalAdvance, &s.AdvanceDeducted, &s.RemainingAdvance,
		&s.NetPayable, &s.IsPaid, &s.PaymentDate,
		&s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// ListSalariesByPeriod implements payroll.Repository.
func (r *payrollRepository) ListSalariesByPeriod(ctx context.Context, periodID string, tenantID string) ([]payroll.CalculatedSalary, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + salaryColumns + `
		FROM calculated_salaries
		WHERE period_id = $1 AND tenant_id = $2
		ORDER BY employee_id`

	rows, err := q.Query(ctx, query, periodID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query calculated salaries: %w", err)
	}
	defer rows.Close()

	var salaries []payroll.CalculatedSalary
	for rows.Next() {
		s, err := scanSalary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan calculated salary: %w", err)
		}
		salaries = append(salaries, s)
	}

	return salaries, rows.Err()
}

// MarkSalariesPaid implements payroll.Repository.
func (r *payrollRepository) MarkSalariesPaid(ctx context.Context, periodID string, tenantID string, employeeIDs []string, paymentDate time.Time) (map[string]decimal.Decimal, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE calculated_salaries
		SET is_paid = TRUE, payment_date = $1, updated_at = $2
		WHERE period_id = $3 AND tenant_id = $4 AND employee_id = ANY($5) AND NOT is_paid
		RETURNING employee_id, advance_deducted
	`

	rows, err := q.Query(ctx, query, paymentDate, time.Now().UTC(), periodID, tenantID, employeeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to mark salaries paid: %w", err)
	}
	defer rows.Close()

	deductions := make(map[string]decimal.Decimal)
	for rows.Next() {
		var employeeID string
		var deducted decimal.Decimal
		if err := rows.Scan(&employeeID, &deducted); err != nil {
			return nil, fmt.Errorf("failed to scan paid salary: %w", err)
		}
		if deducted.IsPositive() {
			deductions[employeeID] = deducted
		}
	}

	return deductions, rows.Err()
}

// MarkSalariesUnpaid implements payroll.Repository.
func (r *payrollRepository) MarkSalariesUnpaid(ctx context.Context, periodID string, tenantID string, employeeIDs []string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE calculated_salaries
		SET is_paid = FALSE, payment_date = NULL, updated_at = $1
		WHERE period_id = $2 AND tenant_id = $3 AND employee_id = ANY($4)
	`

	if _, err := q.Exec(ctx, query, time.Now().UTC(), periodID, tenantID, employeeIDs); err != nil {
		return fmt.Errorf("failed to mark salaries unpaid: %w", err)
	}

	return nil
}

func NewPayrollRepository(db *database.DB) payroll.Repository {
	return &payrollRepository{db: db}
}
