package retryqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffdesk/payroll-engine-go/internal/domain/attendance"
	"github.com/staffdesk/payroll-engine-go/internal/domain/employee"
	"github.com/staffdesk/payroll-engine-go/internal/domain/pending"
	"github.com/staffdesk/payroll-engine-go/internal/mocks"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 30 * time.Second},
		{2, 60 * time.Second},
		{3, 120 * time.Second},
		{4, 240 * time.Second},
		{5, 480 * time.Second},
		{10, time.Hour},
		{100, time.Hour},
		{0, 30 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

// markFunc adapts a function to the ingest interface consumed by the drain.
type markFunc func(ctx context.Context, tenantID, employeeID string, mode attendance.ClockMode, eventTime time.Time) error

func (f markFunc) MarkEvent(ctx context.Context, tenantID, employeeID string, mode attendance.ClockMode, eventTime time.Time) error {
	return f(ctx, tenantID, employeeID, mode, eventTime)
}

func (markFunc) BulkMark(context.Context, string, []attendance.DayMark) (attendance.BulkMarkResult, error) {
	return attendance.BulkMarkResult{}, nil
}

func newTestService(repo *mocks.PendingRepo, fn markFunc, maxAttempts int) *Service {
	employees := &mocks.EmployeeRepo{Employees: []employee.Employee{
		{ID: "emp-1", TenantID: "t1", EmployeeCode: "EMP01", IsActive: true},
	}}
	return NewService(repo, employees, fn, maxAttempts, slog.Default())
}

func enqueue(t *testing.T, svc *Service, n int) {
	t.Helper()
	id := "emp-1"
	for i := 0; i < n; i++ {
		err := svc.Enqueue(context.Background(), "t1", pending.EmployeeRef{EmployeeID: &id},
			attendance.ClockIn, time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC),
			errors.New("initial failure"))
		require.NoError(t, err)
	}
}

func TestDrainBatchCompletesOnSuccess(t *testing.T) {
	repo := mocks.NewPendingRepo()
	svc := newTestService(repo, func(context.Context, string, string, attendance.ClockMode, time.Time) error {
		return nil
	}, 5)

	enqueue(t, svc, 3)

	result, err := svc.DrainBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Claimed)
	assert.Equal(t, 3, result.Completed)
	assert.Equal(t, 3, repo.CountByStatus(pending.StatusCompleted))
}

func TestDrainBatchRequeuesOnFailure(t *testing.T) {
	repo := mocks.NewPendingRepo()
	svc := newTestService(repo, func(context.Context, string, string, attendance.ClockMode, time.Time) error {
		return errors.New("database unavailable")
	}, 5)

	enqueue(t, svc, 1)

	result, err := svc.DrainBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Claimed)
	assert.Equal(t, 1, result.Retried)
	assert.Equal(t, 1, repo.CountByStatus(pending.StatusPending))

	for _, upd := range repo.Updates {
		assert.Equal(t, 1, upd.AttemptCount)
		require.NotNil(t, upd.LastError)
		assert.Contains(t, *upd.LastError, "database unavailable")
		// First retry backs off 30 seconds.
		assert.WithinDuration(t, time.Now().UTC().Add(30*time.Second), upd.NextRetryAt, 5*time.Second)
	}
}

func TestDrainBatchFailsAfterMaxAttempts(t *testing.T) {
	repo := mocks.NewPendingRepo()
	svc := newTestService(repo, func(context.Context, string, string, attendance.ClockMode, time.Time) error {
		return errors.New("still broken")
	}, 2)

	enqueue(t, svc, 1)

	// First drain consumes attempt 1 and requeues with a future retry
	// time; rewind it so the second drain can claim immediately.
	_, err := svc.DrainBatch(context.Background(), 10)
	require.NoError(t, err)
	for _, upd := range repo.Updates {
		upd.NextRetryAt = time.Now().UTC().Add(-time.Second)
	}

	result, err := svc.DrainBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, repo.CountByStatus(pending.StatusFailed))
}

func TestDrainBatchOffDaySkipCountsAsCompleted(t *testing.T) {
	repo := mocks.NewPendingRepo()
	svc := newTestService(repo, func(context.Context, string, string, attendance.ClockMode, time.Time) error {
		return attendance.ErrOffDaySkipped
	}, 5)

	enqueue(t, svc, 1)

	result, err := svc.DrainBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, 0, result.Retried)
	assert.Equal(t, 1, repo.CountByStatus(pending.StatusCompleted))
}

func TestDrainBatchResolvesEmployeeCode(t *testing.T) {
	repo := mocks.NewPendingRepo()

	var gotEmployeeID string
	svc := newTestService(repo, func(_ context.Context, _ string, employeeID string, _ attendance.ClockMode, _ time.Time) error {
		gotEmployeeID = employeeID
		return nil
	}, 5)

	code := "EMP01"
	err := svc.Enqueue(context.Background(), "t1", pending.EmployeeRef{EmployeeCode: &code},
		attendance.ClockOut, time.Date(2025, time.June, 2, 18, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)

	result, err := svc.DrainBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Completed)
	assert.Equal(t, "emp-1", gotEmployeeID)
}

func TestDrainBatchUnknownCodeRetries(t *testing.T) {
	repo := mocks.NewPendingRepo()
	svc := newTestService(repo, func(context.Context, string, string, attendance.ClockMode, time.Time) error {
		return nil
	}, 5)

	code := "GHOST9"
	err := svc.Enqueue(context.Background(), "t1", pending.EmployeeRef{EmployeeCode: &code},
		attendance.ClockIn, time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)

	result, err := svc.DrainBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Retried)
}

func TestEnqueueRequiresRef(t *testing.T) {
	svc := newTestService(mocks.NewPendingRepo(), func(context.Context, string, string, attendance.ClockMode, time.Time) error {
		return nil
	}, 5)

	err := svc.Enqueue(context.Background(), "t1", pending.EmployeeRef{},
		attendance.ClockIn, time.Now(), nil)
	assert.ErrorIs(t, err, pending.ErrEmptyRef)
}

func TestConcurrentDrainClaimsEachRowOnce(t *testing.T) {
	repo := mocks.NewPendingRepo()

	var mu sync.Mutex
	applied := make(map[string]int)

	svc := newTestService(repo, func(_ context.Context, _ string, _ string, _ attendance.ClockMode, eventTime time.Time) error {
		mu.Lock()
		applied[eventTime.Format(time.RFC3339Nano)]++
		mu.Unlock()
		return nil
	}, 5)

	// 50 rows, each with a unique event time as its identity.
	id := "emp-1"
	base := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		err := svc.Enqueue(context.Background(), "t1", pending.EmployeeRef{EmployeeID: &id},
			attendance.ClockIn, base.Add(time.Duration(i)*time.Second), nil)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				result, err := svc.DrainBatch(context.Background(), 10)
				if err != nil || result.Claimed == 0 {
					return
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, repo.CountByStatus(pending.StatusCompleted))
	assert.Len(t, applied, 50)
	for key, count := range applied {
		assert.Equal(t, 1, count, fmt.Sprintf("row %s applied more than once", key))
	}
}

func TestReclaimStale(t *testing.T) {
	repo := mocks.NewPendingRepo()
	svc := newTestService(repo, func(context.Context, string, string, attendance.ClockMode, time.Time) error {
		return nil
	}, 5)

	enqueue(t, svc, 2)

	// Claim both, then simulate a crashed worker by backdating the claims.
	claimed, err := repo.ClaimBatch(context.Background(), 10, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	for _, upd := range repo.Updates {
		stale := time.Now().UTC().Add(-time.Hour)
		upd.ProcessingStartedAt = &stale
	}

	n, err := svc.ReclaimStale(context.Background(), 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 2, repo.CountByStatus(pending.StatusPending))

	// The interrupted attempt is not charged.
	for _, upd := range repo.Updates {
		assert.Equal(t, 0, upd.AttemptCount)
	}
}
