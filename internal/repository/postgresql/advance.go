package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/staffdesk/payroll-engine-go/internal/domain/advance"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/database"
)

type advanceRepository struct {
	db *database.DB
}

const advanceColumns = `
	id, tenant_id, employee_id, amount, remaining_balance, status,
	target_month, issued_date, created_at, updated_at
`

func scanAdvance(row pgx.Row) (advance.Advance, error) {
	var a advance.Advance
	err := row.Scan(
		&a.ID, &a.TenantID, &a.EmployeeID, &a.Amount, &a.RemainingBalance, &a.Status,
		&a.TargetMonth, &a.IssuedDate, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

// ListOutstandingByEmployee implements advance.Repository. Ordered
// oldest-issued-first; this is the FIFO repayment order.
func (r *advanceRepository) ListOutstandingByEmployee(ctx context.Context, employeeID string, tenantID string) ([]advance.Advance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + advanceColumns + `
		FROM advance_ledger
		WHERE employee_id = $1 AND tenant_id = $2
		  AND status IN ($3, $4) AND remaining_balance > 0
		ORDER BY issued_date ASC, created_at ASC`

	rows, err := q.Query(ctx, query, employeeID, tenantID, advance.StatusPending, advance.StatusPartiallyPaid)
	if err != nil {
		return nil, fmt.Errorf("failed to query outstanding advances: %w", err)
	}
	defer rows.Close()

	var advances []advance.Advance
	for rows.Next() {
		a, err := scanAdvance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan advance: %w", err)
		}
		advances = append(advances, a)
	}

	return advances, rows.Err()
}

// OutstandingTotal implements advance.Repository.
func (r *advanceRepository) OutstandingTotal(ctx context.Context, employeeID string, tenantID string) (decimal.Decimal, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COALESCE(SUM(remaining_balance), 0)
		FROM advance_ledger
		WHERE employee_id = $1 AND tenant_id = $2
		  AND status IN ($3, $4)
	`

	var total decimal.Decimal
	err := q.QueryRow(ctx, query, employeeID, tenantID, advance.StatusPending, advance.StatusPartiallyPaid).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum outstanding advances: %w", err)
	}

	return total, nil
}

// UpdateBalance implements advance.Repository.
func (r *advanceRepository) UpdateBalance(ctx context.Context, id string, tenantID string, remaining decimal.Decimal, status advance.Status) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE advance_ledger
		SET remaining_balance = $1, status = $2, updated_at = $3
		WHERE id = $4 AND tenant_id = $5
	`

	tag, err := q.Exec(ctx, query, remaining, status, time.Now().UTC(), id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to update advance balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return advance.ErrAdvanceNotFound
	}

	return nil
}

func NewAdvanceRepository(db *database.DB) advance.Repository {
	return &advanceRepository{db: db}
}
