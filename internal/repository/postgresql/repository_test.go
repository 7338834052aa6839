package postgresql

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffdesk/payroll-engine-go/internal/domain/attendance"
	"github.com/staffdesk/payroll-engine-go/internal/domain/pending"
	"github.com/staffdesk/payroll-engine-go/internal/domain/summary"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/database"
)

// testDB connects to the database named by TEST_DATABASE_URL and provisions
// the tables these tests touch. Skipped when the variable is unset so the
// suite stays runnable without infrastructure.
func testDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, dsn, 4, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS attendance_pending_updates (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			employee_id TEXT,
			employee_code TEXT,
			mode TEXT NOT NULL,
			event_time TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			attempt_count INT NOT NULL DEFAULT 0,
			next_retry_at TIMESTAMPTZ NOT NULL,
			processing_started_at TIMESTAMPTZ,
			last_error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS monthly_summaries (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			employee_id TEXT NOT NULL,
			year INT NOT NULL,
			month INT NOT NULL,
			calendar_days INT NOT NULL DEFAULT 0,
			total_working_days INT NOT NULL DEFAULT 0,
			present_days DOUBLE PRECISION NOT NULL DEFAULT 0,
			absent_days INT NOT NULL DEFAULT 0,
			off_days_marked INT NOT NULL DEFAULT 0,
			paid_leave_days INT NOT NULL DEFAULT 0,
			unmarked_days INT NOT NULL DEFAULT 0,
			ot_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
			late_minutes INT NOT NULL DEFAULT 0,
			weekly_penalty_days INT NOT NULL DEFAULT 0,
			records_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (tenant_id, employee_id, year, month)
		)`,
	}
	for _, stmt := range ddl {
		_, err := db.Pool.Exec(ctx, stmt)
		require.NoError(t, err)
	}

	_, err = db.Pool.Exec(ctx, `TRUNCATE attendance_pending_updates, monthly_summaries`)
	require.NoError(t, err)

	return db
}

func TestPendingClaimBatch(t *testing.T) {
	db := testDB(t)
	repo := NewPendingRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	employeeID := "emp-1"
	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, pending.Update{
			TenantID:    "t1",
			EmployeeID:  &employeeID,
			Mode:        attendance.ClockIn,
			EventTime:   now,
			NextRetryAt: now.Add(-time.Minute),
		})
		require.NoError(t, err)
	}
	// Not yet due.
	_, err := repo.Create(ctx, pending.Update{
		TenantID:    "t1",
		EmployeeID:  &employeeID,
		Mode:        attendance.ClockIn,
		EventTime:   now,
		NextRetryAt: now.Add(time.Hour),
	})
	require.NoError(t, err)

	claimed, err := repo.ClaimBatch(ctx, 2, now)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	for _, upd := range claimed {
		assert.Equal(t, pending.StatusProcessing, upd.Status)
		assert.Equal(t, 1, upd.AttemptCount)
		assert.NotNil(t, upd.ProcessingStartedAt)
	}

	// The remaining due row is claimable, the future one is not.
	claimed, err = repo.ClaimBatch(ctx, 10, now)
	require.NoError(t, err)
	assert.Len(t, claimed, 1)

	claimed, err = repo.ClaimBatch(ctx, 10, now)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestPendingRequeueAndReclaim(t *testing.T) {
	db := testDB(t)
	repo := NewPendingRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	employeeID := "emp-1"
	created, err := repo.Create(ctx, pending.Update{
		TenantID:    "t1",
		EmployeeID:  &employeeID,
		Mode:        attendance.ClockOut,
		EventTime:   now,
		NextRetryAt: now.Add(-time.Minute),
	})
	require.NoError(t, err)

	claimed, err := repo.ClaimBatch(ctx, 1, now)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	require.NoError(t, repo.Requeue(ctx, created.ID, now.Add(30*time.Second), "transient"))

	// Requeued but not due yet.
	claimed, err = repo.ClaimBatch(ctx, 1, now)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	// Claim once it is due again, then reclaim it as stale.
	claimed, err = repo.ClaimBatch(ctx, 1, now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, 2, claimed[0].AttemptCount)

	n, err := repo.ReclaimStale(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// The reclaimed row kept its pre-crash attempt count.
	claimed, err = repo.ClaimBatch(ctx, 1, now.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, 2, claimed[0].AttemptCount)
}

func TestSummaryUpsertBulkCounts(t *testing.T) {
	db := testDB(t)
	repo := NewSummaryRepository(db)
	ctx := context.Background()

	rows := []summary.MonthlySummary{
		{TenantID: "t1", EmployeeID: "emp-1", Year: 2025, Month: time.June, PresentDays: 20, AbsentDays: 2},
		{TenantID: "t1", EmployeeID: "emp-2", Year: 2025, Month: time.June, PresentDays: 25},
	}

	created, updated, err := repo.UpsertBulk(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 0, updated)

	rows[0].PresentDays = 21
	created, updated, err = repo.UpsertBulk(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, 2, updated)

	got, err := repo.GetByEmployeeMonth(ctx, "emp-1", 2025, time.June, "t1")
	require.NoError(t, err)
	assert.InDelta(t, 21, got.PresentDays, 0.001)
	assert.Equal(t, 2, got.AbsentDays)
}
