package advance

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status of an advance within a payroll cycle. Transitions only move
// forward: PENDING -> PARTIALLY_PAID -> REPAID. Reversal on unmark-as-paid
// is a separate manual flow, not performed by the reconciler.
type Status string

const (
	StatusPending       Status = "PENDING"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusRepaid        Status = "REPAID"
)

// Advance is one disbursement to an employee. RemainingBalance only ever
// decreases.
type Advance struct {
	ID         string
	TenantID   string
	EmployeeID string

	Amount           decimal.Decimal
	RemainingBalance decimal.Decimal
	Status           Status

	// TargetMonth is the payroll month the advance was issued against.
	TargetMonth time.Time
	IssuedDate  time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Outstanding reports whether the advance still holds balance to recover.
func (a Advance) Outstanding() bool {
	return a.Status != StatusRepaid && a.RemainingBalance.IsPositive()
}
