package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/staffdesk/payroll-engine-go/internal/domain/employee"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/database"
)

type employeeRepository struct {
	db *database.DB
}

const employeeColumns = `
	id, tenant_id, employee_code, full_name, department, designation,
	shift_start, shift_end,
	off_sunday, off_monday, off_tuesday, off_wednesday, off_thursday, off_friday, off_saturday,
	base_salary, tds_percent, overtime_rate_override,
	date_of_joining, weekly_rules_enabled, is_active,
	created_at, updated_at, deleted_at
`

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var e employee.Employee
	err := row.Scan(
		&e.ID, &e.TenantID, &e.EmployeeCode, &e.FullName, &e.Department, &e.Designation,
		&e.ShiftStart, &e.ShiftEnd,
		&e.OffDays[0], &e.OffDays[1], &e.OffDays[2], &e.OffDays[3], &e.OffDays[4], &e.OffDays[5], &e.OffDays[6],
		&e.BaseSalary, &e.TDSPercent, &e.OvertimeRateOverride,
		&e.DateOfJoining, &e.WeeklyRulesEnabled, &e.IsActive,
		&e.CreatedAt, &e.UpdatedAt, &e.DeletedAt,
	)
	return e, err
}

// GetByID implements employee.Repository.
func (r *employeeRepository) GetByID(ctx context.Context, id string, tenantID string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + employeeColumns + `
		FROM employees
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL`

	e, err := scanEmployee(q.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee by ID: %w", err)
	}

	return e, nil
}

// GetByCode implements employee.Repository.
func (r *employeeRepository) GetByCode(ctx context.Context, code string, tenantID string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + employeeColumns + `
		FROM employees
		WHERE employee_code = $1 AND tenant_id = $2 AND deleted_at IS NULL`

	e, err := scanEmployee(q.QueryRow(ctx, query, code, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee by code: %w", err)
	}

	return e, nil
}

// GetActiveByTenantID implements employee.Repository.
func (r *employeeRepository) GetActiveByTenantID(ctx context.Context, tenantID string) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + employeeColumns + `
		FROM employees
		WHERE tenant_id = $1 AND is_active AND deleted_at IS NULL
		ORDER BY employee_code`

	rows, err := q.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query active employees: %w", err)
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}

	return employees, rows.Err()
}

func NewEmployeeRepository(db *database.DB) employee.Repository {
	return &employeeRepository{db: db}
}
