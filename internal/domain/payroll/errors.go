package payroll

import "errors"

var (
	// ErrPeriodLocked is returned whenever a write touches a LOCKED
	// period. Distinct from generic failures so callers can surface it
	// as a clear, expected rejection.
	ErrPeriodLocked = errors.New("payroll period is locked")

	ErrPeriodNotFound = errors.New("payroll period not found")
	ErrSalaryNotFound = errors.New("calculated salary not found")
	ErrAlreadyLocked  = errors.New("payroll period is already locked")
	ErrNotCalculated  = errors.New("payroll period has not been calculated")
)
