package employee

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/validator"
)

type Employee struct {
	ID           string
	TenantID     string
	EmployeeCode string
	FullName     string
	Department   string
	Designation  string

	// Shift times as wall-clock strings ("09:00"). ShiftEnd at or before
	// ShiftStart means the shift crosses midnight.
	ShiftStart string
	ShiftEnd   string

	// OffDays is indexed by time.Weekday (Sunday = 0).
	OffDays [7]bool

	BaseSalary decimal.Decimal
	TDSPercent decimal.Decimal
	// OvertimeRateOverride replaces the derived per-hour overtime rate
	// when set.
	OvertimeRateOverride *decimal.Decimal

	DateOfJoining      time.Time
	WeeklyRulesEnabled bool
	IsActive           bool

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// IsOffDay reports whether the weekday is one of the employee's configured
// off-days.
func (e Employee) IsOffDay(day time.Weekday) bool {
	return e.OffDays[int(day)]
}

// ShiftMinutes parses the shift window into minutes from midnight. The
// returned span accounts for overnight shifts.
func (e Employee) ShiftMinutes() (start, end int, err error) {
	start, ok := validator.ParseClock(e.ShiftStart)
	if !ok {
		return 0, 0, ErrInvalidShift
	}
	end, ok = validator.ParseClock(e.ShiftEnd)
	if !ok {
		return 0, 0, ErrInvalidShift
	}
	if end <= start {
		// Overnight shift: the end belongs to the next day.
		end += 24 * 60
	}
	return start, end, nil
}

// ShiftHours is the shift span in hours, before break-time deduction.
func (e Employee) ShiftHours() (float64, error) {
	start, end, err := e.ShiftMinutes()
	if err != nil {
		return 0, err
	}
	return float64(end-start) / 60.0, nil
}
