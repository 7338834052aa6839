package attendance

import "errors"

var (
	// ErrOffDaySkipped signals that a clock event landed on the
	// employee's configured off-day and was deliberately not recorded.
	ErrOffDaySkipped = errors.New("event date is the employee's off-day, skipped")

	ErrRecordNotFound = errors.New("attendance record not found")
	ErrInvalidMode    = errors.New("unknown clock mode")
)
