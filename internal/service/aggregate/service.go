package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/staffdesk/payroll-engine-go/internal/domain/attendance"
	"github.com/staffdesk/payroll-engine-go/internal/domain/employee"
	"github.com/staffdesk/payroll-engine-go/internal/domain/summary"
	"github.com/staffdesk/payroll-engine-go/internal/domain/tenant"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/cache"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/database"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/dateutil"
	"github.com/staffdesk/payroll-engine-go/internal/repository/postgresql"
	attendancesvc "github.com/staffdesk/payroll-engine-go/internal/service/attendance"
	"github.com/staffdesk/payroll-engine-go/internal/service/weeklyrules"
)

// Result summarizes one aggregation run. Errors holds per-employee failure
// messages; a failure skips that employee only.
type Result struct {
	Created int
	Updated int
	Skipped int
	Errors  []string
}

type Service struct {
	db             *database.DB
	tenantRepo     tenant.Repository
	employeeRepo   employee.Repository
	attendanceRepo attendance.Repository
	summaryRepo    summary.Repository
	weekly         *weeklyrules.Service
	invalidator    cache.Invalidator
	logger         *slog.Logger
}

func NewService(
	db *database.DB,
	tenantRepo tenant.Repository,
	employeeRepo employee.Repository,
	attendanceRepo attendance.Repository,
	summaryRepo summary.Repository,
	weekly *weeklyrules.Service,
	invalidator cache.Invalidator,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:             db,
		tenantRepo:     tenantRepo,
		employeeRepo:   employeeRepo,
		attendanceRepo: attendanceRepo,
		summaryRepo:    summaryRepo,
		weekly:         weekly,
		invalidator:    invalidator,
		logger:         logger,
	}
}

// AggregateMonth rebuilds every monthly summary for the tenant month from
// the daily records. The whole run holds an advisory lock on (tenant, year,
// month) so concurrent triggers for the same period serialize instead of
// interleaving partial writes. Re-running over unchanged data produces
// identical rows.
func (s *Service) AggregateMonth(ctx context.Context, tenantID string, year int, month time.Month) (Result, error) {
	var result Result

	settings, err := s.tenantRepo.GetSettings(ctx, tenantID)
	if err != nil {
		return result, fmt.Errorf("failed to load tenant settings: %w", err)
	}

	err = postgresql.WithTransaction(ctx, s.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := postgresql.AcquirePeriodLock(ctx, tx, tenantID, year, int(month)); err != nil {
			return err
		}

		employees, err := s.employeeRepo.GetActiveByTenantID(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("failed to list active employees: %w", err)
		}

		records, err := s.attendanceRepo.ListByTenantMonth(ctx, tenantID, year, month)
		if err != nil {
			return fmt.Errorf("failed to list attendance records: %w", err)
		}
		byEmployee := make(map[string][]attendance.DayRecord)
		for _, rec := range records {
			byEmployee[rec.EmployeeID] = append(byEmployee[rec.EmployeeID], rec)
		}

		monthEnd := dateutil.MonthEnd(year, month)
		var rows []summary.MonthlySummary

		for _, emp := range employees {
			if dateutil.DateOnly(emp.DateOfJoining, time.UTC).After(monthEnd) {
				result.Skipped++
				continue
			}

			row, err := s.buildSummary(ctx, settings, emp, byEmployee[emp.ID], year, month)
			if err != nil {
				s.logger.Error("failed to aggregate employee month",
					slog.String("tenant_id", tenantID),
					slog.String("employee_id", emp.ID),
					slog.Any("error", err))
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", emp.EmployeeCode, err))
				result.Skipped++
				continue
			}
			rows = append(rows, row)
		}

		created, updated, err := s.summaryRepo.UpsertBulk(ctx, rows)
		result.Created, result.Updated = created, updated
		return err
	})
	if err != nil {
		return result, err
	}

	if err := s.invalidator.InvalidatePrefixes(ctx, tenantID,
		attendancesvc.CachePrefixAttendance,
		attendancesvc.CachePrefixDashboard,
		attendancesvc.CachePrefixCharts,
	); err != nil {
		return result, fmt.Errorf("failed to invalidate caches: %w", err)
	}

	return result, nil
}

// buildSummary applies the Sunday bonus, then folds the employee's daily
// records into one summary row.
func (s *Service) buildSummary(ctx context.Context, settings tenant.Settings, emp employee.Employee, records []attendance.DayRecord, year int, month time.Month) (summary.MonthlySummary, error) {
	applied, err := s.weekly.ApplySundayBonus(ctx, emp.TenantID, settings, emp, year, month)
	if err != nil {
		return summary.MonthlySummary{}, fmt.Errorf("sunday bonus: %w", err)
	}
	if applied > 0 {
		// Bonus promotions changed the record set; reread it.
		records, err = s.attendanceRepo.ListByEmployeeRange(ctx, emp.ID,
			dateutil.MonthStart(year, month), dateutil.MonthEnd(year, month), emp.TenantID)
		if err != nil {
			return summary.MonthlySummary{}, fmt.Errorf("failed to reread attendance: %w", err)
		}
	}

	row := summary.MonthlySummary{
		TenantID:     emp.TenantID,
		EmployeeID:   emp.ID,
		Year:         year,
		Month:        month,
		CalendarDays: dateutil.DaysInMonth(year, month),
		RecordsCount: len(records),
	}

	row.TotalWorkingDays = dateutil.WorkingDays(year, month, emp.OffDays, emp.DateOfJoining)

	for _, rec := range records {
		row.PresentDays += rec.Status.PresentValue()
		switch rec.Status {
		case attendance.StatusAbsent:
			row.AbsentDays++
		case attendance.StatusOff:
			row.OffDaysMarked++
		case attendance.StatusPaidLeave:
			row.PaidLeaveDays++
		}
		row.OTHours += rec.OTHours
		row.LateMinutes += rec.LateMinutes
	}

	offDaysCount := row.CalendarDays - row.TotalWorkingDays
	if unmarked := row.CalendarDays - row.RecordsCount - offDaysCount; unmarked > 0 {
		row.UnmarkedDays = unmarked
	}

	row.WeeklyPenaltyDays = weeklyrules.ComputePenaltyDays(settings, emp, records, year, month)

	return row, nil
}

// RepairAbsentDays recounts explicit ABSENT records and fixes any summary
// row whose absent_days drifted from that count. Returns the number of rows
// repaired.
func (s *Service) RepairAbsentDays(ctx context.Context, tenantID string, year int, month time.Month) (int, error) {
	summaries, err := s.summaryRepo.ListByTenantMonth(ctx, tenantID, year, month)
	if err != nil {
		return 0, fmt.Errorf("failed to list monthly summaries: %w", err)
	}

	records, err := s.attendanceRepo.ListByTenantMonth(ctx, tenantID, year, month)
	if err != nil {
		return 0, fmt.Errorf("failed to list attendance records: %w", err)
	}
	absents := make(map[string]int)
	for _, rec := range records {
		if rec.Status == attendance.StatusAbsent {
			absents[rec.EmployeeID]++
		}
	}

	repaired := 0
	for _, sum := range summaries {
		actual := absents[sum.EmployeeID]
		if sum.AbsentDays == actual {
			continue
		}
		if err := s.summaryRepo.UpdateAbsentDays(ctx, sum.ID, tenantID, actual); err != nil {
			return repaired, err
		}
		s.logger.Warn("repaired absent day count",
			slog.String("tenant_id", tenantID),
			slog.String("employee_id", sum.EmployeeID),
			slog.Int("was", sum.AbsentDays),
			slog.Int("now", actual))
		repaired++
	}

	return repaired, nil
}
