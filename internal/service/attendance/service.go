package attendance

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/staffdesk/payroll-engine-go/internal/domain/attendance"
	"github.com/staffdesk/payroll-engine-go/internal/domain/employee"
	"github.com/staffdesk/payroll-engine-go/internal/domain/tenant"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/cache"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/database"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/dateutil"
)

// Cache prefixes invalidated when attendance facts change.
const (
	CachePrefixAttendance = "attendance"
	CachePrefixDashboard  = "dashboard"
	CachePrefixCharts     = "charts"
)

type AttendanceServiceImpl struct {
	db             *database.DB
	tenantRepo     tenant.Repository
	employeeRepo   employee.Repository
	attendanceRepo attendance.Repository
	invalidator    cache.Invalidator
}

func NewAttendanceService(
	db *database.DB,
	tenantRepo tenant.Repository,
	employeeRepo employee.Repository,
	attendanceRepo attendance.Repository,
	invalidator cache.Invalidator,
) *AttendanceServiceImpl {
	return &AttendanceServiceImpl{
		db:             db,
		tenantRepo:     tenantRepo,
		employeeRepo:   employeeRepo,
		attendanceRepo: attendanceRepo,
		invalidator:    invalidator,
	}
}

// MarkEvent applies one clock event. Repeated clock-ins (or clock-outs) for
// the same day never overwrite the first value; derived late/OT figures are
// recomputed on every accepted event. Any storage failure propagates so the
// caller can enqueue the event for retry.
func (s *AttendanceServiceImpl) MarkEvent(ctx context.Context, tenantID string, employeeID string, mode attendance.ClockMode, eventTime time.Time) error {
	if !mode.Valid() {
		return attendance.ErrInvalidMode
	}

	settings, err := s.tenantRepo.GetSettings(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to load tenant settings: %w", err)
	}

	emp, err := s.employeeRepo.GetByID(ctx, employeeID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to load employee: %w", err)
	}

	loc := settings.Location()
	date := dateutil.DateOnly(eventTime, loc)

	if emp.IsOffDay(date.Weekday()) {
		return attendance.ErrOffDaySkipped
	}

	eventUTC := eventTime.UTC()

	rec, err := s.attendanceRepo.GetByEmployeeAndDate(ctx, employeeID, date, tenantID)
	if err != nil {
		return fmt.Errorf("failed to look up attendance record: %w", err)
	}

	if rec == nil {
		newRec := attendance.DayRecord{
			TenantID:     tenantID,
			EmployeeID:   employeeID,
			Date:         date,
			Status:       attendance.StatusPresent,
			EmployeeName: emp.FullName,
			Department:   emp.Department,
			Designation:  emp.Designation,
		}
		if mode == attendance.ClockIn {
			newRec.CheckIn = &eventUTC
		} else {
			newRec.CheckOut = &eventUTC
		}

		newRec.LateMinutes, newRec.OTHours, err = ClockTotals(emp, date, loc, newRec.CheckIn, newRec.CheckOut)
		if err != nil {
			return err
		}

		if _, err := s.attendanceRepo.Create(ctx, newRec); err != nil {
			return err
		}
		return s.invalidate(ctx, tenantID)
	}

	// First writer wins per clock kind for the day.
	changed := false
	if mode == attendance.ClockIn && rec.CheckIn == nil {
		rec.CheckIn = &eventUTC
		changed = true
	}
	if mode == attendance.ClockOut && rec.CheckOut == nil {
		rec.CheckOut = &eventUTC
		changed = true
	}
	if !changed {
		return nil
	}

	rec.LateMinutes, rec.OTHours, err = ClockTotals(emp, rec.Date, loc, rec.CheckIn, rec.CheckOut)
	if err != nil {
		return err
	}

	if err := s.attendanceRepo.Update(ctx, *rec); err != nil {
		return err
	}
	return s.invalidate(ctx, tenantID)
}

// BulkMark applies manual/bulk marks with per-item error isolation.
// Existing records keep their clock times; only the status changes.
func (s *AttendanceServiceImpl) BulkMark(ctx context.Context, tenantID string, marks []attendance.DayMark) (attendance.BulkMarkResult, error) {
	var result attendance.BulkMarkResult

	for _, mark := range marks {
		if err := mark.Validate(); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %v", mark.EmployeeCode, mark.Date.Format("2006-01-02"), err))
			continue
		}

		emp, err := s.employeeRepo.GetByCode(ctx, mark.EmployeeCode, tenantID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", mark.EmployeeCode, err))
			continue
		}

		rec, err := s.attendanceRepo.GetByEmployeeAndDate(ctx, emp.ID, mark.Date, tenantID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %v", mark.EmployeeCode, mark.Date.Format("2006-01-02"), err))
			continue
		}

		if rec == nil {
			newRec := attendance.DayRecord{
				TenantID:     tenantID,
				EmployeeID:   emp.ID,
				Date:         mark.Date,
				Status:       mark.Status,
				EmployeeName: emp.FullName,
				Department:   emp.Department,
				Designation:  emp.Designation,
			}
			if _, err := s.attendanceRepo.Create(ctx, newRec); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %v", mark.EmployeeCode, mark.Date.Format("2006-01-02"), err))
				continue
			}
			result.Created++
			continue
		}

		if rec.Status == mark.Status {
			result.Skipped++
			continue
		}
		rec.Status = mark.Status
		if err := s.attendanceRepo.Update(ctx, *rec); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s %s: %v", mark.EmployeeCode, mark.Date.Format("2006-01-02"), err))
			continue
		}
		result.Updated++
	}

	if result.Created > 0 || result.Updated > 0 {
		if err := s.invalidate(ctx, tenantID); err != nil {
			return result, err
		}
	}

	return result, nil
}

// AdminEdit lets an administrator overwrite clock times or status on an
// existing record. This is the only path allowed to replace an already-set
// check-in or check-out; derived figures are recomputed afterwards.
func (s *AttendanceServiceImpl) AdminEdit(ctx context.Context, tenantID string, req attendance.AdminEditRequest) (attendance.DayRecord, error) {
	if err := req.Validate(); err != nil {
		return attendance.DayRecord{}, err
	}

	settings, err := s.tenantRepo.GetSettings(ctx, tenantID)
	if err != nil {
		return attendance.DayRecord{}, fmt.Errorf("failed to load tenant settings: %w", err)
	}

	rec, err := s.attendanceRepo.GetByID(ctx, req.RecordID, tenantID)
	if err != nil {
		return attendance.DayRecord{}, err
	}

	emp, err := s.employeeRepo.GetByID(ctx, rec.EmployeeID, tenantID)
	if err != nil {
		return attendance.DayRecord{}, fmt.Errorf("failed to load employee: %w", err)
	}

	if req.CheckIn != nil {
		utc := req.CheckIn.UTC()
		rec.CheckIn = &utc
	}
	if req.CheckOut != nil {
		utc := req.CheckOut.UTC()
		rec.CheckOut = &utc
	}
	if req.Status != nil {
		rec.Status = *req.Status
	}

	rec.LateMinutes, rec.OTHours, err = ClockTotals(emp, rec.Date, settings.Location(), rec.CheckIn, rec.CheckOut)
	if err != nil {
		return attendance.DayRecord{}, err
	}

	if err := s.attendanceRepo.Update(ctx, rec); err != nil {
		return attendance.DayRecord{}, err
	}
	if err := s.invalidate(ctx, tenantID); err != nil {
		return attendance.DayRecord{}, err
	}

	return rec, nil
}

// SetPenaltyIgnored toggles the weekly-penalty exclusion flag on a record.
// Fully reversible; the weekly rules engine recounts on its next run.
func (s *AttendanceServiceImpl) SetPenaltyIgnored(ctx context.Context, tenantID string, recordID string, ignored bool) error {
	if err := s.attendanceRepo.SetPenaltyIgnored(ctx, recordID, tenantID, ignored); err != nil {
		return err
	}
	return s.invalidate(ctx, tenantID)
}

func (s *AttendanceServiceImpl) invalidate(ctx context.Context, tenantID string) error {
	if err := s.invalidator.InvalidatePrefixes(ctx, tenantID, CachePrefixAttendance, CachePrefixDashboard, CachePrefixCharts); err != nil {
		return fmt.Errorf("failed to invalidate caches: %w", err)
	}
	return nil
}

// ClockTotals derives late minutes and overtime hours for a day record from
// the employee's shift window. Lateness is both arriving late and leaving
// early; overtime is both arriving early and leaving late. Overnight shifts
// (end at or before start) extend past midnight.
func ClockTotals(emp employee.Employee, date time.Time, loc *time.Location, checkIn, checkOut *time.Time) (int, float64, error) {
	shiftStart, shiftEnd, err := emp.ShiftMinutes()
	if err != nil {
		return 0, 0, err
	}

	lateMinutes := 0
	otMinutes := 0.0

	if checkIn != nil {
		in := minutesIntoDay(*checkIn, date, loc)
		if in > shiftStart {
			lateMinutes += in - shiftStart
		} else {
			otMinutes += float64(shiftStart - in)
		}
	}
	if checkOut != nil {
		out := minutesIntoDay(*checkOut, date, loc)
		if out < shiftEnd {
			lateMinutes += shiftEnd - out
		} else {
			otMinutes += float64(out - shiftEnd)
		}
	}

	otHours := math.Round(otMinutes/60*10) / 10
	return lateMinutes, otHours, nil
}

// minutesIntoDay converts an absolute timestamp into minutes elapsed since
// the record date's local midnight. Clock-outs past midnight yield values
// beyond 1440, matching overnight shift windows.
func minutesIntoDay(t time.Time, date time.Time, loc *time.Location) int {
	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	return int(t.In(loc).Sub(midnight).Minutes())
}

var _ attendance.Service = (*AttendanceServiceImpl)(nil)
