package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/staffdesk/payroll-engine-go/internal/domain/attendance"
	"github.com/staffdesk/payroll-engine-go/internal/domain/employee"
	"github.com/staffdesk/payroll-engine-go/internal/domain/holiday"
	"github.com/staffdesk/payroll-engine-go/internal/domain/payroll"
	"github.com/staffdesk/payroll-engine-go/internal/domain/summary"
	"github.com/staffdesk/payroll-engine-go/internal/domain/tenant"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/cache"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/database"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/dateutil"
	"github.com/staffdesk/payroll-engine-go/internal/repository/postgresql"
)

// CachePrefixPayroll covers cached payroll listings and dashboards.
const CachePrefixPayroll = "payroll"

// AdvanceReconciler settles salary deductions against the advance ledger
// and reports outstanding balances for the deduction step.
type AdvanceReconciler interface {
	ApplyPayment(ctx context.Context, tenantID string, deductions map[string]decimal.Decimal) error
	Outstanding(ctx context.Context, tenantID string, employeeID string) (decimal.Decimal, error)
}

type Service struct {
	db             *database.DB
	tenantRepo     tenant.Repository
	employeeRepo   employee.Repository
	attendanceRepo attendance.Repository
	summaryRepo    summary.Repository
	payrollRepo    payroll.Repository
	holidayRepo    holiday.Repository
	advances       AdvanceReconciler
	invalidator    cache.Invalidator
	logger         *slog.Logger
}

func NewService(
	db *database.DB,
	tenantRepo tenant.Repository,
	employeeRepo employee.Repository,
	attendanceRepo attendance.Repository,
	summaryRepo summary.Repository,
	payrollRepo payroll.Repository,
	holidayRepo holiday.Repository,
	advances AdvanceReconciler,
	invalidator cache.Invalidator,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:             db,
		tenantRepo:     tenantRepo,
		employeeRepo:   employeeRepo,
		attendanceRepo: attendanceRepo,
		summaryRepo:    summaryRepo,
		payrollRepo:    payrollRepo,
		holidayRepo:    holidayRepo,
		advances:       advances,
		invalidator:    invalidator,
		logger:         logger,
	}
}

// CalculateSalaryForPeriod computes one salary row per active employee for
// the tenant month. A LOCKED period rejects the run outright, Force
// included. Tentative runs compute and return rows without persisting or
// advancing the period state. Per-employee failures are collected and the
// employee excluded; they never abort the period.
func (s *Service) CalculateSalaryForPeriod(ctx context.Context, tenantID string, year int, month time.Month, opts payroll.CalcOptions) (payroll.PeriodResult, error) {
	var result payroll.PeriodResult

	settings, err := s.tenantRepo.GetSettings(ctx, tenantID)
	if err != nil {
		return result, fmt.Errorf("failed to load tenant settings: %w", err)
	}

	period, err := s.payrollRepo.GetOrCreatePeriod(ctx, tenantID, year, month, decimal.Zero)
	if err != nil {
		return result, err
	}
	result.Period = period

	if period.IsLocked() {
		return result, payroll.ErrPeriodLocked
	}

	if period.Status == payroll.PeriodCalculated && !opts.Force && !opts.Tentative {
		result.Salaries, err = s.payrollRepo.ListSalariesByPeriod(ctx, period.ID, tenantID)
		return result, err
	}

	employees, err := s.employeeRepo.GetActiveByTenantID(ctx, tenantID)
	if err != nil {
		return result, fmt.Errorf("failed to list active employees: %w", err)
	}

	summaries, err := s.summaryRepo.ListByTenantMonth(ctx, tenantID, year, month)
	if err != nil {
		return result, fmt.Errorf("failed to list monthly summaries: %w", err)
	}
	summaryByEmployee := make(map[string]summary.MonthlySummary, len(summaries))
	for _, sum := range summaries {
		summaryByEmployee[sum.EmployeeID] = sum
	}

	holidays, err := s.holidayRepo.ListByTenantMonth(ctx, tenantID, year, month)
	if err != nil {
		return result, fmt.Errorf("failed to list holidays: %w", err)
	}

	records, err := s.attendanceRepo.ListByTenantMonth(ctx, tenantID, year, month)
	if err != nil {
		return result, fmt.Errorf("failed to list attendance records: %w", err)
	}
	recordsByEmployee := make(map[string][]attendance.DayRecord)
	for _, rec := range records {
		recordsByEmployee[rec.EmployeeID] = append(recordsByEmployee[rec.EmployeeID], rec)
	}

	monthEnd := dateutil.MonthEnd(year, month)

	for _, emp := range employees {
		if dateutil.DateOnly(emp.DateOfJoining, time.UTC).After(monthEnd) {
			result.Skipped++
			continue
		}
		sum, ok := summaryByEmployee[emp.ID]
		if !ok {
			result.Skipped++
			continue
		}

		row, err := s.computeEmployee(ctx, settings, period, emp, sum, holidays, recordsByEmployee[emp.ID])
		if err != nil {
			s.logger.Error("failed to calculate salary",
				slog.String("tenant_id", tenantID),
				slog.String("employee_id", emp.ID),
				slog.Any("error", err))
			result.Errors = append(result.Errors, payroll.EmployeeError{EmployeeID: emp.ID, Err: err.Error()})
			continue
		}
		result.Salaries = append(result.Salaries, row)
	}

	if opts.Tentative {
		return result, nil
	}

	err = postgresql.WithTransaction(ctx, s.db, func(ctx context.Context, tx pgx.Tx) error {
		if err := postgresql.AcquirePeriodLock(ctx, tx, tenantID, year, int(month)); err != nil {
			return err
		}
		// Recheck under the lock; a concurrent LockPeriod may have won.
		current, err := s.payrollRepo.GetPeriod(ctx, tenantID, year, month)
		if err != nil {
			return err
		}
		if current.IsLocked() {
			return payroll.ErrPeriodLocked
		}
		if err := s.payrollRepo.ReplaceSalaries(ctx, period.ID, result.Salaries); err != nil {
			return err
		}
		return s.payrollRepo.UpdatePeriodStatus(ctx, period.ID, tenantID, payroll.PeriodCalculated)
	})
	if err != nil {
		return result, err
	}
	result.Period.Status = payroll.PeriodCalculated

	if err := s.invalidator.InvalidatePrefixes(ctx, tenantID, CachePrefixPayroll); err != nil {
		return result, fmt.Errorf("failed to invalidate caches: %w", err)
	}

	return result, nil
}

func (s *Service) computeEmployee(ctx context.Context, settings tenant.Settings, period payroll.Period, emp employee.Employee, sum summary.MonthlySummary, holidays []holiday.Holiday, records []attendance.DayRecord) (payroll.CalculatedSalary, error) {
	workingDays := sum.TotalWorkingDays
	if period.WorkingDays != nil && period.Source == payroll.SourceUploaded {
		workingDays = *period.WorkingDays
	}

	doj := dateutil.DateOnly(emp.DateOfJoining, time.UTC)
	holidayDays := 0
	for _, h := range holidays {
		if !h.AppliesTo(emp.Department) || h.Date.Before(doj) {
			continue
		}
		// A holiday on the employee's own off-day would double-credit.
		if emp.IsOffDay(h.Date.Weekday()) {
			continue
		}
		holidayDays++
	}

	rawPresent := sum.PresentDays - float64(holidayDays)

	extraPaid := 0.0
	for _, rec := range records {
		if !emp.IsOffDay(rec.Date.Weekday()) {
			continue
		}
		// Only full paid statuses count; a HALF_DAY on an off-day does not.
		if rec.Status == attendance.StatusPresent || rec.Status == attendance.StatusPaidLeave {
			extraPaid++
		}
	}
	if limit := rawPresent - float64(workingDays-holidayDays); extraPaid > limit {
		extraPaid = limit
	}
	if extraPaid < 0 {
		extraPaid = 0
	}

	offDaysCount := float64(sum.CalendarDays - workingDays)
	offDaysNotWorked := offDaysCount - extraPaid
	if offDaysNotWorked < 0 {
		offDaysNotWorked = 0
	}

	paidDays := rawPresent + float64(holidayDays) + offDaysNotWorked - float64(sum.WeeklyPenaltyDays)
	if paidDays < 0 {
		paidDays = 0
	}

	dailyRate := emp.BaseSalary.Div(settings.AverageDaysPerMonth)
	salaryForPresentDays := dailyRate.Mul(decimal.NewFromFloat(paidDays))

	// Unparsable shift config degrades to a zero OT rate instead of failing
	// the employee; recorded OT hours then carry no charge.
	otRate := decimal.Zero
	shiftHours, err := emp.ShiftHours()
	if err != nil {
		s.logger.Warn("employee shift config unparsable, overtime rate zeroed",
			slog.String("employee_id", emp.ID),
			slog.String("shift_start", emp.ShiftStart),
			slog.String("shift_end", emp.ShiftEnd))
	} else {
		effectiveHours := decimal.NewFromFloat(shiftHours).Sub(settings.BreakTimeHours)
		if effectiveHours.IsPositive() {
			otRate = emp.BaseSalary.Div(effectiveHours.Mul(settings.AverageDaysPerMonth))
		}
	}
	if emp.OvertimeRateOverride != nil {
		otRate = *emp.OvertimeRateOverride
	}

	otCharges := decimal.NewFromFloat(sum.OTHours).Mul(otRate)
	lateDeduction := decimal.NewFromInt(int64(sum.LateMinutes)).Mul(otRate.Div(decimal.NewFromInt(60)))

	gross := salaryForPresentDays.Add(otCharges).Sub(lateDeduction)

	tdsPercent := emp.TDSPercent
	if !tdsPercent.IsPositive() {
		tdsPercent = period.TDSPercent
	}
	tdsAmount := gross.Mul(tdsPercent).Div(decimal.NewFromInt(100))
	afterTDS := gross.Sub(tdsAmount)

	totalAdvance, err := s.advances.Outstanding(ctx, emp.TenantID, emp.ID)
	if err != nil {
		return payroll.CalculatedSalary{}, fmt.Errorf("failed to read outstanding advances: %w", err)
	}
	deductible := decimal.Max(decimal.Zero, afterTDS)
	advanceDeducted := decimal.Min(totalAdvance, deductible)

	return payroll.CalculatedSalary{
		TenantID:          emp.TenantID,
		PeriodID:          period.ID,
		EmployeeID:        emp.ID,
		BasicSalary:       emp.BaseSalary,
		HourlyRate:        otRate,
		PresentDays:       rawPresent,
		AbsentDays:        sum.AbsentDays,
		HolidayDays:       holidayDays,
		ExtraPaidDays:     extraPaid,
		WeeklyPenaltyDays: sum.WeeklyPenaltyDays,
		PaidDays:          paidDays,
		OTHours:           sum.OTHours,
		OTCharges:         otCharges,
		LateMinutes:       sum.LateMinutes,
		LateDeduction:     lateDeduction,
		GrossSalary:       gross,
		TDSAmount:         tdsAmount,
		SalaryAfterTDS:    afterTDS,
		TotalAdvance:      totalAdvance,
		AdvanceDeducted:   advanceDeducted,
		RemainingAdvance:  totalAdvance.Sub(advanceDeducted),
		NetPayable:        afterTDS.Sub(advanceDeducted),
	}, nil
}

// SetPeriodTDS records the period-level default TDS rate. Employees without
// a positive rate of their own fall back to it during calculation.
func (s *Service) SetPeriodTDS(ctx context.Context, tenantID string, year int, month time.Month, percent decimal.Decimal) error {
	period, err := s.payrollRepo.GetOrCreatePeriod(ctx, tenantID, year, month, percent)
	if err != nil {
		return err
	}
	if err := s.payrollRepo.SetPeriodTDS(ctx, period.ID, tenantID, percent); err != nil {
		return err
	}
	return s.invalidator.InvalidatePrefixes(ctx, tenantID, CachePrefixPayroll)
}

// LockPeriod finalizes a CALCULATED period. Locking is one-way.
func (s *Service) LockPeriod(ctx context.Context, tenantID string, year int, month time.Month) error {
	period, err := s.payrollRepo.GetPeriod(ctx, tenantID, year, month)
	if err != nil {
		return err
	}
	switch period.Status {
	case payroll.PeriodLocked:
		return payroll.ErrAlreadyLocked
	case payroll.PeriodUncalculated:
		return payroll.ErrNotCalculated
	}
	return s.payrollRepo.UpdatePeriodStatus(ctx, period.ID, tenantID, payroll.PeriodLocked)
}

// MarkPaid flips the payment flag on the given salary rows and settles the
// applied advance deductions against the ledger. Rows already paid are
// ignored, so double-marking cannot deduct an advance twice.
func (s *Service) MarkPaid(ctx context.Context, tenantID string, periodID string, employeeIDs []string, paymentDate time.Time) error {
	deductions, err := s.payrollRepo.MarkSalariesPaid(ctx, periodID, tenantID, employeeIDs, paymentDate)
	if err != nil {
		return err
	}

	if len(deductions) > 0 {
		if err := s.advances.ApplyPayment(ctx, tenantID, deductions); err != nil {
			return err
		}
	}

	return s.invalidator.InvalidatePrefixes(ctx, tenantID, CachePrefixPayroll)
}

// MarkUnpaid clears the payment flag only. Advance ledger state already
// settled by MarkPaid stays as is; reversing it is a manual correction.
func (s *Service) MarkUnpaid(ctx context.Context, tenantID string, periodID string, employeeIDs []string) error {
	if err := s.payrollRepo.MarkSalariesUnpaid(ctx, periodID, tenantID, employeeIDs); err != nil {
		return err
	}

	s.logger.Warn("salaries marked unpaid; advance ledger not reversed",
		slog.String("tenant_id", tenantID),
		slog.String("period_id", periodID),
		slog.Int("employees", len(employeeIDs)))

	return s.invalidator.InvalidatePrefixes(ctx, tenantID, CachePrefixPayroll)
}
