package aggregate

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffdesk/payroll-engine-go/internal/domain/attendance"
	"github.com/staffdesk/payroll-engine-go/internal/domain/employee"
	"github.com/staffdesk/payroll-engine-go/internal/domain/summary"
	"github.com/staffdesk/payroll-engine-go/internal/domain/tenant"
	"github.com/staffdesk/payroll-engine-go/internal/mocks"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/cache"
	"github.com/staffdesk/payroll-engine-go/internal/service/weeklyrules"
)

func testEmployee() employee.Employee {
	var offDays [7]bool
	offDays[time.Sunday] = true
	return employee.Employee{
		ID:            "emp-1",
		TenantID:      "t1",
		EmployeeCode:  "EMP01",
		ShiftStart:    "09:00",
		ShiftEnd:      "18:00",
		OffDays:       offDays,
		DateOfJoining: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}
}

func day(d int) time.Time {
	return time.Date(2025, time.June, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(attendanceRepo *mocks.AttendanceRepo, summaryRepo *mocks.SummaryRepo, emp employee.Employee, settings tenant.Settings) *Service {
	return NewService(
		nil,
		&mocks.TenantRepo{Settings: settings},
		&mocks.EmployeeRepo{Employees: []employee.Employee{emp}},
		attendanceRepo,
		summaryRepo,
		weeklyrules.NewService(attendanceRepo),
		cache.Nop{},
		slog.Default(),
	)
}

func seedRecords(t *testing.T, repo *mocks.AttendanceRepo, marks map[int]attendance.Status) {
	t.Helper()
	for d, status := range marks {
		_, err := repo.Create(context.Background(), attendance.DayRecord{
			TenantID:   "t1",
			EmployeeID: "emp-1",
			Date:       day(d),
			Status:     status,
			OTHours:    0.5,
		})
		require.NoError(t, err)
	}
}

func TestBuildSummaryCounts(t *testing.T) {
	attendanceRepo := mocks.NewAttendanceRepo()
	settings := tenant.DefaultSettings("t1")
	emp := testEmployee()
	svc := newTestService(attendanceRepo, mocks.NewSummaryRepo(), emp, settings)

	seedRecords(t, attendanceRepo, map[int]attendance.Status{
		2: attendance.StatusPresent,
		3: attendance.StatusPresent,
		4: attendance.StatusHalfDay,
		5: attendance.StatusAbsent,
		6: attendance.StatusPaidLeave,
		9: attendance.StatusOff,
	})

	records, err := attendanceRepo.ListByEmployeeRange(context.Background(), "emp-1", day(1), day(30), "t1")
	require.NoError(t, err)

	row, err := svc.buildSummary(context.Background(), settings, emp, records, 2025, time.June)
	require.NoError(t, err)

	assert.Equal(t, 30, row.CalendarDays)
	assert.Equal(t, 25, row.TotalWorkingDays)
	assert.InDelta(t, 3.5, row.PresentDays, 0.001) // 2 present + 0.5 half + 1 paid leave
	assert.Equal(t, 1, row.AbsentDays)
	assert.Equal(t, 1, row.OffDaysMarked)
	assert.Equal(t, 1, row.PaidLeaveDays)
	assert.Equal(t, 6, row.RecordsCount)
	assert.InDelta(t, 3.0, row.OTHours, 0.001)
	// 30 calendar - 6 records - 5 off days.
	assert.Equal(t, 19, row.UnmarkedDays)
}

func TestBuildSummaryAbsentDaysMatchExplicitRecords(t *testing.T) {
	attendanceRepo := mocks.NewAttendanceRepo()
	settings := tenant.DefaultSettings("t1")
	emp := testEmployee()
	svc := newTestService(attendanceRepo, mocks.NewSummaryRepo(), emp, settings)

	// Sparse month: many unmarked days, three explicit absences.
	seedRecords(t, attendanceRepo, map[int]attendance.Status{
		2:  attendance.StatusAbsent,
		10: attendance.StatusAbsent,
		18: attendance.StatusAbsent,
		20: attendance.StatusPresent,
	})

	records, err := attendanceRepo.ListByEmployeeRange(context.Background(), "emp-1", day(1), day(30), "t1")
	require.NoError(t, err)

	row, err := svc.buildSummary(context.Background(), settings, emp, records, 2025, time.June)
	require.NoError(t, err)

	// Only explicit ABSENT records count; unmarked days never leak in.
	assert.Equal(t, 3, row.AbsentDays)
	assert.Greater(t, row.UnmarkedDays, 0)
}

func TestBuildSummaryIdempotent(t *testing.T) {
	attendanceRepo := mocks.NewAttendanceRepo()
	settings := tenant.DefaultSettings("t1")
	settings.WeeklyPenaltyEnabled = true
	emp := testEmployee()
	emp.WeeklyRulesEnabled = true
	svc := newTestService(attendanceRepo, mocks.NewSummaryRepo(), emp, settings)

	// Enough presence for a Sunday bonus and enough absence for a penalty.
	seedRecords(t, attendanceRepo, map[int]attendance.Status{
		2:  attendance.StatusPresent,
		3:  attendance.StatusPresent,
		4:  attendance.StatusPresent,
		5:  attendance.StatusPresent,
		9:  attendance.StatusAbsent,
		10: attendance.StatusAbsent,
		11: attendance.StatusAbsent,
		12: attendance.StatusAbsent,
	})

	run := func() summary.MonthlySummary {
		records, err := attendanceRepo.ListByEmployeeRange(context.Background(), "emp-1", day(1), day(30), "t1")
		require.NoError(t, err)
		row, err := svc.buildSummary(context.Background(), settings, emp, records, 2025, time.June)
		require.NoError(t, err)
		return row
	}

	first := run()
	second := run()
	third := run()

	assert.Equal(t, 1, first.WeeklyPenaltyDays)
	assert.True(t, first.Equal(second), "second run drifted: %+v vs %+v", first, second)
	assert.True(t, second.Equal(third), "third run drifted")
}

func TestAggregateSkipsEmployeeJoinedAfterMonth(t *testing.T) {
	attendanceRepo := mocks.NewAttendanceRepo()
	settings := tenant.DefaultSettings("t1")
	emp := testEmployee()
	emp.DateOfJoining = time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(attendanceRepo, mocks.NewSummaryRepo(), emp, settings)

	records, err := attendanceRepo.ListByEmployeeRange(context.Background(), "emp-1", day(1), day(30), "t1")
	require.NoError(t, err)

	row, err := svc.buildSummary(context.Background(), settings, emp, records, 2025, time.June)
	require.NoError(t, err)
	assert.Equal(t, 0, row.TotalWorkingDays)
}

func TestRepairAbsentDays(t *testing.T) {
	attendanceRepo := mocks.NewAttendanceRepo()
	summaryRepo := mocks.NewSummaryRepo()
	settings := tenant.DefaultSettings("t1")
	svc := newTestService(attendanceRepo, summaryRepo, testEmployee(), settings)
	ctx := context.Background()

	seedRecords(t, attendanceRepo, map[int]attendance.Status{
		2: attendance.StatusAbsent,
		3: attendance.StatusAbsent,
	})

	_, _, err := summaryRepo.UpsertBulk(ctx, []summary.MonthlySummary{{
		TenantID:   "t1",
		EmployeeID: "emp-1",
		Year:       2025,
		Month:      time.June,
		// Drifted: claims 7 absences, records show 2.
		AbsentDays: 7,
	}})
	require.NoError(t, err)

	repaired, err := svc.RepairAbsentDays(ctx, "t1", 2025, time.June)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	fixed, err := summaryRepo.GetByEmployeeMonth(ctx, "emp-1", 2025, time.June, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, fixed.AbsentDays)

	// Second pass finds nothing to fix.
	repaired, err = svc.RepairAbsentDays(ctx, "t1", 2025, time.June)
	require.NoError(t, err)
	assert.Equal(t, 0, repaired)
}
