package attendance

import "time"

// Status is the per-day attendance status.
type Status string

const (
	StatusPresent   Status = "PRESENT"
	StatusAbsent    Status = "ABSENT"
	StatusHalfDay   Status = "HALF_DAY"
	StatusOff       Status = "OFF"
	StatusPaidLeave Status = "PAID_LEAVE"
	StatusUnmarked  Status = "UNMARKED"
)

// PresentValue is the contribution of a status to present-day counting.
func (s Status) PresentValue() float64 {
	switch s {
	case StatusPresent, StatusPaidLeave:
		return 1.0
	case StatusHalfDay:
		return 0.5
	default:
		return 0
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusHalfDay, StatusOff, StatusPaidLeave, StatusUnmarked:
		return true
	}
	return false
}

// ClockMode distinguishes the two clock event kinds.
type ClockMode string

const (
	ClockIn  ClockMode = "clock_in"
	ClockOut ClockMode = "clock_out"
)

func (m ClockMode) Valid() bool {
	return m == ClockIn || m == ClockOut
}

// DayRecord is the single attendance fact per (tenant, employee, date).
// CheckIn and CheckOut are set-once by clock events; only an admin edit may
// overwrite them.
type DayRecord struct {
	ID         string
	TenantID   string
	EmployeeID string
	// Date is the working day (midnight UTC), resolved from the event
	// timestamp in the tenant timezone.
	Date time.Time

	Status   Status
	CheckIn  *time.Time
	CheckOut *time.Time

	LateMinutes int
	OTHours     float64

	// PenaltyIgnored excludes this day from weekly absence-penalty
	// counting. Toggled by administrators, fully reversible.
	PenaltyIgnored bool

	// Snapshot of the employee at record-creation time.
	EmployeeName string
	Department   string
	Designation  string

	CreatedAt time.Time
	UpdatedAt time.Time
}
