package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/staffdesk/payroll-engine-go/internal/domain/attendance"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/database"
)

type attendanceRepository struct {
	db *database.DB
}

const dayRecordColumns = `
	id, tenant_id, employee_id, date, status, check_in, check_out,
	late_minutes, ot_hours, penalty_ignored,
	employee_name, department, designation,
	created_at, updated_at
`

func scanDayRecord(row pgx.Row) (attendance.DayRecord, error) {
	var rec attendance.DayRecord
	err := row.Scan(
		&rec.ID, &rec.TenantID, &rec.EmployeeID, &rec.Date, &rec.Status, &rec.CheckIn, &rec.CheckOut,
		&rec.LateMinutes, &rec.OTHours, &rec.PenaltyIgnored,
		&rec.EmployeeName, &rec.Department, &rec.Designation,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	return rec, err
}

// Create implements attendance.Repository. The unique index on
// (tenant_id, employee_id, date) enforces the one-record-per-day invariant.
func (r *attendanceRepository) Create(ctx context.Context, rec attendance.DayRecord) (attendance.DayRecord, error) {
	q := GetQuerier(ctx, r.db)

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	query := `
		INSERT INTO attendance_days (
			id, tenant_id, employee_id, date, status, check_in, check_out,
			late_minutes, ot_hours, penalty_ignored,
			employee_name, department, designation
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		rec.ID, rec.TenantID, rec.EmployeeID, rec.Date, rec.Status, rec.CheckIn, rec.CheckOut,
		rec.LateMinutes, rec.OTHours, rec.PenaltyIgnored,
		rec.EmployeeName, rec.Department, rec.Designation,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return attendance.DayRecord{}, fmt.Errorf("failed to create attendance record: %w", err)
	}

	return rec, nil
}

// GetByID implements attendance.Repository.
func (r *attendanceRepository) GetByID(ctx context.Context, id string, tenantID string) (attendance.DayRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + dayRecordColumns + `
		FROM attendance_days
		WHERE id = $1 AND tenant_id = $2`

	rec, err := scanDayRecord(q.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.DayRecord{}, attendance.ErrRecordNotFound
		}
		return attendance.DayRecord{}, fmt.Errorf("failed to get attendance record: %w", err)
	}

	return rec, nil
}

// GetByEmployeeAndDate implements attendance.Repository.
func (r *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time, tenantID string) (*attendance.DayRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + dayRecordColumns + `
		FROM attendance_days
		WHERE employee_id = $1 AND date = $2 AND tenant_id = $3
		LIMIT 1`

	rec, err := scanDayRecord(q.QueryRow(ctx, query, employeeID, date, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // no record for the day yet
		}
		return nil, fmt.Errorf("failed to get attendance by employee and date: %w", err)
	}

	return &rec, nil
}

// Update implements attendance.Repository. The full derived state is written
// back; set-once semantics for clock times live in the service layer.
func (r *attendanceRepository) Update(ctx context.Context, rec attendance.DayRecord) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance_days
		SET status = $1, check_in = $2, check_out = $3,
		    late_minutes = $4, ot_hours = $5, penalty_ignored = $6,
		    updated_at = $7
		WHERE id = $8 AND tenant_id = $9
		RETURNING id
	`

	var updatedID string
	err := q.QueryRow(ctx, query,
		rec.Status, rec.CheckIn, rec.CheckOut,
		rec.LateMinutes, rec.OTHours, rec.PenaltyIgnored,
		time.Now().UTC(), rec.ID, rec.TenantID,
	).Scan(&updatedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.ErrRecordNotFound
		}
		return fmt.Errorf("failed to update attendance record: %w", err)
	}

	return nil
}

// ListByTenantMonth implements attendance.Repository.
func (r *attendanceRepository) ListByTenantMonth(ctx context.Context, tenantID string, year int, month time.Month) ([]attendance.DayRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + dayRecordColumns + `
		FROM attendance_days
		WHERE tenant_id = $1
		  AND date >= $2 AND date < $3
		ORDER BY employee_id, date`

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	rows, err := q.Query(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance records: %w", err)
	}
	defer rows.Close()

	var records []attendance.DayRecord
	for rows.Next() {
		rec, err := scanDayRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// ListByEmployeeRange implements attendance.Repository.
func (r *attendanceRepository) ListByEmployeeRange(ctx context.Context, employeeID string, from, to time.Time, tenantID string) ([]attendance.DayRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + dayRecordColumns + `
		FROM attendance_days
		WHERE employee_id = $1 AND tenant_id = $2
		  AND date >= $3 AND date <= $4
		ORDER BY date`

	rows, err := q.Query(ctx, query, employeeID, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance range: %w", err)
	}
	defer rows.Close()

	var records []attendance.DayRecord
	for rows.Next() {
		rec, err := scanDayRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// SetPenaltyIgnored implements attendance.Repository.
func (r *attendanceRepository) SetPenaltyIgnored(ctx context.Context, id string, tenantID string, ignored bool) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance_days
		SET penalty_ignored = $1, updated_at = $2
		WHERE id = $3 AND tenant_id = $4
	`

	tag, err := q.Exec(ctx, query, ignored, time.Now().UTC(), id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to set penalty-ignored flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrRecordNotFound
	}

	return nil
}

func NewAttendanceRepository(db *database.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}
