package importer

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/staffdesk/payroll-engine-go/internal/domain/attendance"
	"github.com/staffdesk/payroll-engine-go/internal/mocks"
	"github.com/staffdesk/payroll-engine-go/internal/service/aggregate"
)

type fakeMarker struct {
	marks []attendance.DayMark
}

func (f *fakeMarker) MarkEvent(context.Context, string, string, attendance.ClockMode, time.Time) error {
	return nil
}

func (f *fakeMarker) BulkMark(_ context.Context, _ string, marks []attendance.DayMark) (attendance.BulkMarkResult, error) {
	f.marks = append(f.marks, marks...)
	return attendance.BulkMarkResult{Created: len(marks)}, nil
}

type fakeAggregator struct {
	months []string
}

func (f *fakeAggregator) AggregateMonth(_ context.Context, _ string, year int, month time.Month) (aggregate.Result, error) {
	f.months = append(f.months, time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"))
	return aggregate.Result{}, nil
}

func buildWorkbook(t *testing.T, attendanceRows [][]any, workingDayRows [][]any) *bytes.Reader {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet(SheetAttendance)
	require.NoError(t, err)
	for i, row := range attendanceRows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(SheetAttendance, cell, &row))
	}

	if workingDayRows != nil {
		_, err := f.NewSheet(SheetWorkingDays)
		require.NoError(t, err)
		for i, row := range workingDayRows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(SheetWorkingDays, cell, &row))
		}
	}

	require.NoError(t, f.DeleteSheet("Sheet1"))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestImportWorkbook(t *testing.T) {
	marker := &fakeMarker{}
	agg := &fakeAggregator{}
	payrollRepo := mocks.NewPayrollRepo()
	svc := NewService(marker, payrollRepo, agg, slog.Default())

	wb := buildWorkbook(t,
		[][]any{
			{"Employee Code", "2025-06-02", "2025-06-03", "2025-06-04"},
			{"EMP01", "P", "A", "H"},
			{"emp02", "L", "", "O"},
		},
		[][]any{
			{"Year", "Month", "Working Days"},
			{2025, 6, 25},
		},
	)

	result, err := svc.ImportWorkbook(context.Background(), "t1", wb)
	require.NoError(t, err)

	require.Len(t, marker.marks, 5)
	assert.Equal(t, attendance.DayMark{
		EmployeeCode: "EMP01",
		Date:         time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC),
		Status:       attendance.StatusPresent,
	}, marker.marks[0])
	// Codes are upper-cased on the way in.
	assert.Equal(t, "EMP02", marker.marks[3].EmployeeCode)

	assert.Equal(t, 1, result.WorkingDaysSet)
	period, err := payrollRepo.GetPeriod(context.Background(), "t1", 2025, time.June)
	require.NoError(t, err)
	require.NotNil(t, period.WorkingDays)
	assert.Equal(t, 25, *period.WorkingDays)

	assert.Equal(t, []string{"2025-06"}, agg.months)
	assert.Empty(t, result.Errors)
}

func TestImportWorkbookCollectsCellErrors(t *testing.T) {
	marker := &fakeMarker{}
	agg := &fakeAggregator{}
	svc := NewService(marker, mocks.NewPayrollRepo(), agg, slog.Default())

	wb := buildWorkbook(t,
		[][]any{
			{"Employee Code", "2025-06-02", "not-a-date"},
			{"EMP01", "P", "P"},
			{"EMP03", "X", "P"},
		},
		nil,
	)

	result, err := svc.ImportWorkbook(context.Background(), "t1", wb)
	require.NoError(t, err)

	// Bad header column and unknown status letter are reported; the good
	// cell still lands. Cells under the broken header are skipped.
	assert.Len(t, result.Errors, 2)
	assert.Len(t, marker.marks, 1)
}

func TestImportWorkbookBadWorkingDayRows(t *testing.T) {
	marker := &fakeMarker{}
	svc := NewService(marker, mocks.NewPayrollRepo(), &fakeAggregator{}, slog.Default())

	wb := buildWorkbook(t,
		[][]any{{"Employee Code", "2025-06-02"}},
		[][]any{
			{"Year", "Month", "Working Days"},
			{2025, 13, 25},
			{"twenty", 6, 25},
		},
	)

	result, err := svc.ImportWorkbook(context.Background(), "t1", wb)
	require.NoError(t, err)
	assert.Equal(t, 0, result.WorkingDaysSet)
	assert.Len(t, result.Errors, 2)
}
