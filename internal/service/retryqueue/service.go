package retryqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/staffdesk/payroll-engine-go/internal/domain/attendance"
	"github.com/staffdesk/payroll-engine-go/internal/domain/employee"
	"github.com/staffdesk/payroll-engine-go/internal/domain/pending"
)

// Backoff returns the delay before retry attempt n (1-based). Doubles from
// 30 seconds and saturates at one hour.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := 30 * time.Second
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= time.Hour {
			return time.Hour
		}
	}
	if delay > time.Hour {
		return time.Hour
	}
	return delay
}

type Service struct {
	pendingRepo   pending.Repository
	employeeRepo  employee.Repository
	attendanceSvc attendance.Service
	maxAttempts   int
	logger        *slog.Logger
}

func NewService(pendingRepo pending.Repository, employeeRepo employee.Repository, attendanceSvc attendance.Service, maxAttempts int, logger *slog.Logger) *Service {
	return &Service{
		pendingRepo:   pendingRepo,
		employeeRepo:  employeeRepo,
		attendanceSvc: attendanceSvc,
		maxAttempts:   maxAttempts,
		logger:        logger,
	}
}

// Enqueue records a clock event that could not be applied synchronously. The
// first retry is due immediately.
func (s *Service) Enqueue(ctx context.Context, tenantID string, ref pending.EmployeeRef, mode attendance.ClockMode, eventTime time.Time, cause error) error {
	if ref.EmployeeID == nil && ref.EmployeeCode == nil {
		return pending.ErrEmptyRef
	}
	if !mode.Valid() {
		return attendance.ErrInvalidMode
	}

	var lastError *string
	if cause != nil {
		msg := cause.Error()
		lastError = &msg
	}

	_, err := s.pendingRepo.Create(ctx, pending.Update{
		TenantID:     tenantID,
		EmployeeID:   ref.EmployeeID,
		EmployeeCode: ref.EmployeeCode,
		Mode:         mode,
		EventTime:    eventTime,
		Status:       pending.StatusPending,
		NextRetryAt:  time.Now().UTC(),
		LastError:    lastError,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue pending update: %w", err)
	}
	return nil
}

// DrainBatch claims one batch of due rows and applies each through the
// attendance ingest. The claim happens in its own short transaction; the
// per-row application runs outside it so a slow row never extends row locks.
func (s *Service) DrainBatch(ctx context.Context, batchSize int) (pending.DrainResult, error) {
	var result pending.DrainResult

	claimed, err := s.pendingRepo.ClaimBatch(ctx, batchSize, time.Now().UTC())
	if err != nil {
		return result, fmt.Errorf("failed to claim pending batch: %w", err)
	}
	result.Claimed = len(claimed)

	for _, upd := range claimed {
		if err := s.apply(ctx, upd); err != nil {
			s.settleFailure(ctx, upd, err, &result)
			continue
		}
		if err := s.pendingRepo.MarkCompleted(ctx, upd.ID); err != nil {
			s.logger.Error("failed to mark pending update completed",
				slog.String("update_id", upd.ID), slog.Any("error", err))
			continue
		}
		result.Completed++
	}

	return result, nil
}

// apply resolves the employee and replays the clock event. Off-day skips are
// treated as success: the event is consumed, there is nothing to retry.
func (s *Service) apply(ctx context.Context, upd pending.Update) error {
	employeeID, err := s.resolveEmployee(ctx, upd)
	if err != nil {
		return err
	}

	err = s.attendanceSvc.MarkEvent(ctx, upd.TenantID, employeeID, upd.Mode, upd.EventTime)
	if err != nil && !errors.Is(err, attendance.ErrOffDaySkipped) {
		return err
	}
	return nil
}

func (s *Service) resolveEmployee(ctx context.Context, upd pending.Update) (string, error) {
	if upd.EmployeeID != nil {
		return *upd.EmployeeID, nil
	}
	if upd.EmployeeCode == nil {
		return "", pending.ErrEmptyRef
	}
	emp, err := s.employeeRepo.GetByCode(ctx, *upd.EmployeeCode, upd.TenantID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve employee code %s: %w", *upd.EmployeeCode, err)
	}
	return emp.ID, nil
}

func (s *Service) settleFailure(ctx context.Context, upd pending.Update, cause error, result *pending.DrainResult) {
	// AttemptCount already includes the claim we just consumed.
	if upd.AttemptCount >= s.maxAttempts {
		if err := s.pendingRepo.MarkFailed(ctx, upd.ID, cause.Error()); err != nil {
			s.logger.Error("failed to mark pending update failed",
				slog.String("update_id", upd.ID), slog.Any("error", err))
			return
		}
		s.logger.Warn("pending update exhausted its attempts",
			slog.String("update_id", upd.ID),
			slog.Int("attempts", upd.AttemptCount),
			slog.String("last_error", cause.Error()))
		result.Failed++
		return
	}

	nextRetryAt := time.Now().UTC().Add(Backoff(upd.AttemptCount))
	if err := s.pendingRepo.Requeue(ctx, upd.ID, nextRetryAt, cause.Error()); err != nil {
		s.logger.Error("failed to requeue pending update",
			slog.String("update_id", upd.ID), slog.Any("error", err))
		return
	}
	result.Retried++
}

// ReclaimStale returns rows stuck in processing past the lease back to
// pending. Their interrupted attempt is not counted against the budget.
func (s *Service) ReclaimStale(ctx context.Context, lease time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-lease)
	n, err := s.pendingRepo.ReclaimStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stale pending updates: %w", err)
	}
	if n > 0 {
		s.logger.Warn("reclaimed stale pending updates", slog.Int64("count", n))
	}
	return n, nil
}
