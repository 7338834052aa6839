package summary

import "time"

// MonthlySummary is the aggregated attendance row per (tenant, employee,
// year, month). Fully rebuilt by the aggregator; never hand-edited.
type MonthlySummary struct {
	ID         string
	TenantID   string
	EmployeeID string
	Year       int
	Month      time.Month

	CalendarDays     int
	TotalWorkingDays int

	// PresentDays counts PRESENT and PAID_LEAVE as 1.0, HALF_DAY as 0.5.
	PresentDays float64
	// AbsentDays must equal the exact count of explicit ABSENT records for
	// the month. Unmarked days never feed this field.
	AbsentDays    int
	OffDaysMarked int
	PaidLeaveDays int
	// UnmarkedDays are working days with no record at all, excluding
	// legitimate off-days. Floored at zero.
	UnmarkedDays int

	OTHours     float64
	LateMinutes int

	WeeklyPenaltyDays int

	// RecordsCount is the raw number of day records aggregated.
	RecordsCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Equal compares the derived fields of two summaries, ignoring identity and
// timestamps. Re-running the aggregator over unchanged data must produce
// rows equal under this comparison.
func (s MonthlySummary) Equal(o MonthlySummary) bool {
	return s.TenantID == o.TenantID &&
		s.EmployeeID == o.EmployeeID &&
		s.Year == o.Year &&
		s.Month == o.Month &&
		s.CalendarDays == o.CalendarDays &&
		s.TotalWorkingDays == o.TotalWorkingDays &&
		s.PresentDays == o.PresentDays &&
		s.AbsentDays == o.AbsentDays &&
		s.OffDaysMarked == o.OffDaysMarked &&
		s.PaidLeaveDays == o.PaidLeaveDays &&
		s.UnmarkedDays == o.UnmarkedDays &&
		s.OTHours == o.OTHours &&
		s.LateMinutes == o.LateMinutes &&
		s.WeeklyPenaltyDays == o.WeeklyPenaltyDays &&
		s.RecordsCount == o.RecordsCount
}
