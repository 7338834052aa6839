package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodSource tags where the period's working-day figure came from.
type PeriodSource string

const (
	SourceFrontend PeriodSource = "FRONTEND"
	SourceUploaded PeriodSource = "UPLOADED"
)

// PeriodStatus is the payroll period state machine:
// UNCALCULATED -> CALCULATED -> LOCKED. A locked period rejects every write,
// including forced recalculation.
type PeriodStatus string

const (
	PeriodUncalculated PeriodStatus = "UNCALCULATED"
	PeriodCalculated   PeriodStatus = "CALCULATED"
	PeriodLocked       PeriodStatus = "LOCKED"
)

// Period is one payroll period per (tenant, year, month).
type Period struct {
	ID       string
	TenantID string
	Year     int
	Month    time.Month

	Source PeriodSource
	Status PeriodStatus

	// WorkingDays, when set, is the uploaded working-day count and takes
	// precedence over the off-day/DOJ derivation.
	WorkingDays *int

	TDSPercent decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Period) IsLocked() bool {
	return p.Status == PeriodLocked
}

// CalculatedSalary is one computed payroll row per (tenant, period, employee).
type CalculatedSalary struct {
	ID         string
	TenantID   string
	PeriodID   string
	EmployeeID string

	BasicSalary decimal.Decimal
	// HourlyRate is the derived overtime rate per hour.
	HourlyRate decimal.Decimal

	PresentDays       float64
	AbsentDays        int
	HolidayDays       int
	ExtraPaidDays     float64
	WeeklyPenaltyDays int
	PaidDays          float64

	OTHours   float64
	OTCharges decimal.Decimal

	LateMinutes   int
	LateDeduction decimal.Decimal

	GrossSalary    decimal.Decimal
	TDSAmount      decimal.Decimal
	SalaryAfterTDS decimal.Decimal

	TotalAdvance     decimal.Decimal
	AdvanceDeducted  decimal.Decimal
	RemainingAdvance decimal.Decimal

	NetPayable decimal.Decimal

	IsPaid      bool
	PaymentDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CalcOptions controls a period calculation run.
type CalcOptions struct {
	// Force recomputes a CALCULATED period. It never overrides a lock.
	Force bool
	// Tentative computes without persisting anything.
	Tentative bool
}

// EmployeeError is a collected per-employee calculation failure.
type EmployeeError struct {
	EmployeeID string
	Err        string
}

// PeriodResult is the partial-success outcome of a period calculation.
type PeriodResult struct {
	Period   Period
	Salaries []CalculatedSalary
	Skipped  int
	Errors   []EmployeeError
}
