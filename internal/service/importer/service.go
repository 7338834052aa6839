package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/staffdesk/payroll-engine-go/internal/domain/attendance"
	"github.com/staffdesk/payroll-engine-go/internal/domain/payroll"
	"github.com/staffdesk/payroll-engine-go/internal/service/aggregate"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names recognized by the importer.
const (
	SheetAttendance  = "Attendance"
	SheetWorkingDays = "Working Days"
)

const dateLayout = "2006-01-02"

// Result is the partial-success outcome of one workbook import.
type Result struct {
	Marks          attendance.BulkMarkResult
	WorkingDaysSet int
	Aggregated     []string
	Errors         []string
}

// Aggregator triggers the monthly re-aggregation for imported months.
type Aggregator interface {
	AggregateMonth(ctx context.Context, tenantID string, year int, month time.Month) (aggregate.Result, error)
}

type Service struct {
	attendanceSvc attendance.Service
	payrollRepo   payroll.Repository
	aggregator    Aggregator
	logger        *slog.Logger
}

func NewService(attendanceSvc attendance.Service, payrollRepo payroll.Repository, aggregator Aggregator, logger *slog.Logger) *Service {
	return &Service{
		attendanceSvc: attendanceSvc,
		payrollRepo:   payrollRepo,
		aggregator:    aggregator,
		logger:        logger,
	}
}

// ImportWorkbook reads an attendance workbook and applies it: daily marks
// from the attendance sheet, uploaded working-day counts from the
// working-days sheet, then a re-aggregation of every touched month. Row
// errors are collected; the import never aborts on bad cells.
func (s *Service) ImportWorkbook(ctx context.Context, tenantID string, r io.Reader) (Result, error) {
	var result Result

	f, err := excelize.OpenReader(r)
	if err != nil {
		return result, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	marks, months, parseErrs := s.parseAttendanceSheet(f)
	result.Errors = append(result.Errors, parseErrs...)

	if len(marks) > 0 {
		result.Marks, err = s.attendanceSvc.BulkMark(ctx, tenantID, marks)
		if err != nil {
			return result, fmt.Errorf("failed to apply attendance marks: %w", err)
		}
	}

	wdErrs, set := s.applyWorkingDays(ctx, tenantID, f)
	result.Errors = append(result.Errors, wdErrs...)
	result.WorkingDaysSet = set

	for ym := range months {
		res, err := s.aggregator.AggregateMonth(ctx, tenantID, ym.year, ym.month)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("aggregate %d-%02d: %v", ym.year, ym.month, err))
			continue
		}
		result.Aggregated = append(result.Aggregated, fmt.Sprintf("%d-%02d", ym.year, ym.month))
		result.Errors = append(result.Errors, res.Errors...)
	}

	s.logger.Info("workbook import finished",
		slog.String("tenant_id", tenantID),
		slog.Int("marks_created", result.Marks.Created),
		slog.Int("marks_updated", result.Marks.Updated),
		slog.Int("working_days_set", result.WorkingDaysSet),
		slog.Int("errors", len(result.Errors)))

	return result, nil
}

type yearMonth struct {
	year  int
	month time.Month
}

// parseAttendanceSheet expects a header row of "Employee Code" followed by
// ISO dates, one row per employee, cells holding status letters
// (P/A/H/O/L). Blank cells mean no mark for that day.
func (s *Service) parseAttendanceSheet(f *excelize.File) ([]attendance.DayMark, map[yearMonth]struct{}, []string) {
	var errs []string
	months := make(map[yearMonth]struct{})

	rows, err := f.GetRows(SheetAttendance)
	if err != nil || len(rows) < 2 {
		if err != nil {
			errs = append(errs, fmt.Sprintf("attendance sheet: %v", err))
		}
		return nil, months, errs
	}

	header := rows[0]
	dates := make([]time.Time, len(header))
	for col := 1; col < len(header); col++ {
		d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(header[col]), time.UTC)
		if err != nil {
			errs = append(errs, fmt.Sprintf("attendance header column %d: bad date %q", col+1, header[col]))
			continue
		}
		dates[col] = d
	}

	var marks []attendance.DayMark
	for i, row := range rows[1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		code := strings.ToUpper(strings.TrimSpace(row[0]))

		for col := 1; col < len(row) && col < len(dates); col++ {
			cell := strings.TrimSpace(row[col])
			if cell == "" || dates[col].IsZero() {
				continue
			}
			status, ok := statusFromLetter(cell)
			if !ok {
				errs = append(errs, fmt.Sprintf("attendance row %d column %d: unknown status %q", i+2, col+1, cell))
				continue
			}
			marks = append(marks, attendance.DayMark{
				EmployeeCode: code,
				Date:         dates[col],
				Status:       status,
			})
			months[yearMonth{dates[col].Year(), dates[col].Month()}] = struct{}{}
		}
	}

	return marks, months, errs
}

// applyWorkingDays reads rows of (year, month, working days) and stores them
// on the matching payroll periods as uploaded values.
func (s *Service) applyWorkingDays(ctx context.Context, tenantID string, f *excelize.File) ([]string, int) {
	var errs []string

	idx, err := f.GetSheetIndex(SheetWorkingDays)
	if err != nil || idx < 0 {
		return errs, 0
	}

	rows, err := f.GetRows(SheetWorkingDays)
	if err != nil {
		return append(errs, fmt.Sprintf("working-days sheet: %v", err)), 0
	}

	set := 0
	for i, row := range rows {
		if i == 0 || len(row) < 3 {
			continue
		}
		year, err1 := strconv.Atoi(strings.TrimSpace(row[0]))
		monthNum, err2 := strconv.Atoi(strings.TrimSpace(row[1]))
		days, err3 := strconv.Atoi(strings.TrimSpace(row[2]))
		if err1 != nil || err2 != nil || err3 != nil || monthNum < 1 || monthNum > 12 || days < 0 {
			errs = append(errs, fmt.Sprintf("working-days row %d: bad values %v", i+1, row))
			continue
		}

		period, err := s.payrollRepo.GetOrCreatePeriod(ctx, tenantID, year, time.Month(monthNum), decimal.Zero)
		if err != nil {
			errs = append(errs, fmt.Sprintf("working-days row %d: %v", i+1, err))
			continue
		}
		if err := s.payrollRepo.SetUploadedWorkingDays(ctx, period.ID, tenantID, days); err != nil {
			errs = append(errs, fmt.Sprintf("working-days row %d: %v", i+1, err))
			continue
		}
		set++
	}

	return errs, set
}

func statusFromLetter(cell string) (attendance.Status, bool) {
	switch strings.ToUpper(cell) {
	case "P":
		return attendance.StatusPresent, true
	case "A":
		return attendance.StatusAbsent, true
	case "H":
		return attendance.StatusHalfDay, true
	case "O":
		return attendance.StatusOff, true
	case "L":
		return attendance.StatusPaidLeave, true
	}
	return "", false
}
