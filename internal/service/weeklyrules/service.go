package weeklyrules

import (
	"context"
	"fmt"
	"time"

	"github.com/staffdesk/payroll-engine-go/internal/domain/attendance"
	"github.com/staffdesk/payroll-engine-go/internal/domain/employee"
	"github.com/staffdesk/payroll-engine-go/internal/domain/tenant"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/dateutil"
)

// Enabled reports whether weekly rules apply for this employee at all. Both
// the tenant toggle and the per-employee flag must be on.
func Enabled(settings tenant.Settings, emp employee.Employee) bool {
	return settings.WeeklyPenaltyEnabled && emp.WeeklyRulesEnabled
}

// ComputePenaltyDays counts the month's offending weeks. Weeks run Monday to
// Sunday; a week whose absent count (penalty-ignored rows excluded) reaches
// the tenant threshold contributes exactly one penalty day, regardless of how
// far past the threshold it went.
func ComputePenaltyDays(settings tenant.Settings, emp employee.Employee, records []attendance.DayRecord, year int, month time.Month) int {
	if !Enabled(settings, emp) {
		return 0
	}

	penalty := 0
	for _, week := range dateutil.WeeksOfMonth(year, month) {
		absents := 0
		for _, rec := range records {
			if rec.PenaltyIgnored || rec.Status != attendance.StatusAbsent {
				continue
			}
			if week.Contains(rec.Date) {
				absents++
			}
		}
		if absents >= settings.WeeklyAbsentThreshold {
			penalty++
		}
	}
	return penalty
}

// sundayBonusDates returns the month's Sundays whose preceding Monday to
// Saturday stretch has enough present days to earn the bonus.
func sundayBonusDates(settings tenant.Settings, emp employee.Employee, records []attendance.DayRecord, year int, month time.Month) []time.Time {
	if !Enabled(settings, emp) {
		return nil
	}

	need := settings.SundayBonusPresentThreshold()
	var qualifying []time.Time

	for _, sunday := range dateutil.SundaysOfMonth(year, month) {
		if sunday.Before(dateutil.DateOnly(emp.DateOfJoining, time.UTC)) {
			continue
		}
		monday := dateutil.MondayOf(sunday)
		present := 0.0
		for _, rec := range records {
			if rec.Date.Before(monday) || !rec.Date.Before(sunday) {
				continue
			}
			present += rec.Status.PresentValue()
		}
		if present >= float64(need) {
			qualifying = append(qualifying, sunday)
		}
	}
	return qualifying
}

type Service struct {
	attendanceRepo attendance.Repository
}

func NewService(attendanceRepo attendance.Repository) *Service {
	return &Service{attendanceRepo: attendanceRepo}
}

// ApplySundayBonus marks qualifying Sundays as PRESENT so the bonus flows
// through ordinary present-day counting. Sundays already counting as present
// are left alone, which keeps repeated application idempotent. Returns how
// many records were created or promoted.
func (s *Service) ApplySundayBonus(ctx context.Context, tenantID string, settings tenant.Settings, emp employee.Employee, year int, month time.Month) (int, error) {
	from := dateutil.MonthStart(year, month)
	to := dateutil.MonthEnd(year, month)

	records, err := s.attendanceRepo.ListByEmployeeRange(ctx, emp.ID, from, to, tenantID)
	if err != nil {
		return 0, fmt.Errorf("failed to list attendance for sunday bonus: %w", err)
	}

	applied := 0
	for _, sunday := range sundayBonusDates(settings, emp, records, year, month) {
		rec, err := s.attendanceRepo.GetByEmployeeAndDate(ctx, emp.ID, sunday, tenantID)
		if err != nil {
			return applied, err
		}

		if rec == nil {
			_, err := s.attendanceRepo.Create(ctx, attendance.DayRecord{
				TenantID:     tenantID,
				EmployeeID:   emp.ID,
				Date:         sunday,
				Status:       attendance.StatusPresent,
				EmployeeName: emp.FullName,
				Department:   emp.Department,
				Designation:  emp.Designation,
			})
			if err != nil {
				return applied, err
			}
			applied++
			continue
		}

		if rec.Status.PresentValue() > 0 {
			continue
		}
		rec.Status = attendance.StatusPresent
		if err := s.attendanceRepo.Update(ctx, *rec); err != nil {
			return applied, err
		}
		applied++
	}

	return applied, nil
}
