package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/staffdesk/payroll-engine-go/internal/domain/holiday"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/database"
)

type holidayRepository struct {
	db *database.DB
}

// ListByTenantMonth implements holiday.Repository.
func (r *holidayRepository) ListByTenantMonth(ctx context.Context, tenantID string, year int, month time.Month) ([]holiday.Holiday, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, tenant_id, date, name, applies_to_all, departments, created_at, updated_at
		FROM holidays
		WHERE tenant_id = $1 AND date >= $2 AND date < $3
		ORDER BY date
	`

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	rows, err := q.Query(ctx, query, tenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []holiday.Holiday
	for rows.Next() {
		var h holiday.Holiday
		err := rows.Scan(&h.ID, &h.TenantID, &h.Date, &h.Name, &h.AppliesToAll, &h.Departments, &h.CreatedAt, &h.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holiday: %w", err)
		}
		holidays = append(holidays, h)
	}

	return holidays, rows.Err()
}

func NewHolidayRepository(db *database.DB) holiday.Repository {
	return &holidayRepository{db: db}
}
