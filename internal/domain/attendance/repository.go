package attendance

import (
	"context"
	"time"
)

// Repository defines data access for daily attendance records. All methods
// include tenantID to prevent cross-tenant access.
type Repository interface {
	Create(ctx context.Context, record DayRecord) (DayRecord, error)

	GetByID(ctx context.Context, id string, tenantID string) (DayRecord, error)

	// GetByEmployeeAndDate returns nil when no record exists for the day.
	GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time, tenantID string) (*DayRecord, error)

	Update(ctx context.Context, record DayRecord) error

	// ListByTenantMonth returns every record for the tenant month, ordered
	// by employee then date.
	ListByTenantMonth(ctx context.Context, tenantID string, year int, month time.Month) ([]DayRecord, error)

	// ListByEmployeeRange returns the employee's records in [from, to].
	ListByEmployeeRange(ctx context.Context, employeeID string, from, to time.Time, tenantID string) ([]DayRecord, error)

	SetPenaltyIgnored(ctx context.Context, id string, tenantID string, ignored bool) error
}

// Service is the ingest surface consumed by the retry-queue worker and the
// bulk upload flows.
type Service interface {
	MarkEvent(ctx context.Context, tenantID string, employeeID string, mode ClockMode, eventTime time.Time) error
	BulkMark(ctx context.Context, tenantID string, marks []DayMark) (BulkMarkResult, error)
}
