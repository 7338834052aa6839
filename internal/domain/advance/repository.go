package advance

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	// ListOutstandingByEmployee returns PENDING and PARTIALLY_PAID
	// advances ordered oldest-issued-first, the repayment order.
	ListOutstandingByEmployee(ctx context.Context, employeeID string, tenantID string) ([]Advance, error)

	// OutstandingTotal sums remaining balances across outstanding advances.
	OutstandingTotal(ctx context.Context, employeeID string, tenantID string) (decimal.Decimal, error)

	UpdateBalance(ctx context.Context, id string, tenantID string, remaining decimal.Decimal, status Status) error
}
