package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Repository interface {
	// GetOrCreatePeriod returns the period row, creating an UNCALCULATED
	// one with the tenant default TDS rate when absent.
	GetOrCreatePeriod(ctx context.Context, tenantID string, year int, month time.Month, defaultTDS decimal.Decimal) (Period, error)

	GetPeriod(ctx context.Context, tenantID string, year int, month time.Month) (Period, error)

	UpdatePeriodStatus(ctx context.Context, id string, tenantID string, status PeriodStatus) error

	// SetUploadedWorkingDays stores the spreadsheet-provided working-day
	// count and flips the period source to UPLOADED.
	SetUploadedWorkingDays(ctx context.Context, id string, tenantID string, workingDays int) error

	// SetPeriodTDS stores the period-level default TDS rate, applied to
	// employees without a positive rate of their own.
	SetPeriodTDS(ctx context.Context, id string, tenantID string, percent decimal.Decimal) error

	// ReplaceSalaries bulk-upserts the calculated rows for a period in one
	// reconciliation statement keyed on (period, employee).
	ReplaceSalaries(ctx context.Context, periodID string, rows []CalculatedSalary) error

	ListSalariesByPeriod(ctx context.Context, periodID string, tenantID string) ([]CalculatedSalary, error)

	// MarkSalariesPaid flips the payment flag and returns the advance
	// deductions that were applied per employee, for the ledger reconciler.
	MarkSalariesPaid(ctx context.Context, periodID string, tenantID string, employeeIDs []string, paymentDate time.Time) (map[string]decimal.Decimal, error)

	MarkSalariesUnpaid(ctx context.Context, periodID string, tenantID string, employeeIDs []string) error
}
