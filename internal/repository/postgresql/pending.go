package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/staffdesk/payroll-engine-go/internal/domain/pending"
	"github.com/staffdesk/payroll-engine-go/internal/pkg/database"
)

type pendingRepository struct {
	db *database.DB
}

const pendingColumns = `
	id, tenant_id, employee_id, employee_code, mode, event_time,
	status, attempt_count, next_retry_at, processing_started_at, last_error,
	created_at, updated_at
`

func scanPending(row pgx.Row) (pending.Update, error) {
	var u pending.Update
	err := row.Scan(
		&u.ID, &u.TenantID, &u.EmployeeID, &u.EmployeeCode, &u.Mode, &u.EventTime,
		&u.Status, &u.AttemptCount, &u.NextRetryAt, &u.ProcessingStartedAt, &u.LastError,
		&u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// Create implements pending.Repository.
func (r *pendingRepository) Create(ctx context.Context, update pending.Update) (pending.Update, error) {
	q := GetQuerier(ctx, r.db)

	if update.EmployeeID == nil && update.EmployeeCode == nil {
		return pending.Update{}, pending.ErrEmptyRef
	}
	if update.ID == "" {
		update.ID = uuid.NewString()
	}

	query := `
		INSERT INTO attendance_pending_updates (
			id, tenant_id, employee_id, employee_code, mode, event_time,
			status, attempt_count, next_retry_at, last_error
		) VALUES (
			$1, $2, $3, $4, $5, $6, 'pending', 0, $7, $8
		) RETURNING created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		update.ID, update.TenantID, update.EmployeeID, update.EmployeeCode,
		update.Mode, update.EventTime, update.NextRetryAt, update.LastError,
	).Scan(&update.CreatedAt, &update.UpdatedAt)
	if err != nil {
		return pending.Update{}, fmt.Errorf("failed to enqueue pending update: %w", err)
	}

	update.Status = pending.StatusPending
	update.AttemptCount = 0
	return update, nil
}

// ClaimBatch implements pending.Repository. The CTE locks due pending rows
// with SKIP LOCKED so concurrent workers never claim the same row, then
// flips them to processing in the same statement.
func (r *pendingRepository) ClaimBatch(ctx context.Context, batchSize int, now time.Time) ([]pending.Update, error) {
	var claimed []pending.Update

	err := WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		query := `
			WITH due AS (
				SELECT id
				FROM attendance_pending_updates
				WHERE status = 'pending' AND next_retry_at <= $1
				ORDER BY next_retry_at ASC
				LIMIT $2
				FOR UPDATE SKIP LOCKED
			)
			UPDATE attendance_pending_updates p
			SET status = 'processing',
			    attempt_count = p.attempt_count + 1,
			    processing_started_at = $1,
			    last_error = NULL,
			    updated_at = $1
			FROM due
			WHERE p.id = due.id
			RETURNING ` + pendingQualifiedColumns

		rows, err := tx.Query(ctx, query, now.UTC(), batchSize)
		if err != nil {
			return fmt.Errorf("failed to claim pending batch: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanPending(rows)
			if err != nil {
				return fmt.Errorf("failed to scan pending update: %w", err)
			}
			claimed = append(claimed, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

const pendingQualifiedColumns = `
	p.id, p.tenant_id, p.employee_id, p.employee_code, p.mode, p.event_time,
	p.status, p.attempt_count, p.next_retry_at, p.processing_started_at, p.last_error,
	p.created_at, p.updated_at
`

// MarkCompleted implements pending.Repository.
func (r *pendingRepository) MarkCompleted(ctx context.Context, id string) error {
	return r.setTerminal(ctx, id, pending.StatusCompleted, nil)
}

// MarkFailed implements pending.Repository.
func (r *pendingRepository) MarkFailed(ctx context.Context, id string, lastError string) error {
	return r.setTerminal(ctx, id, pending.StatusFailed, &lastError)
}

func (r *pendingRepository) setTerminal(ctx context.Context, id string, status pending.Status, lastError *string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance_pending_updates
		SET status = $1, last_error = $2, processing_started_at = NULL, updated_at = $3
		WHERE id = $4
	`

	tag, err := q.Exec(ctx, query, status, lastError, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark pending update %s: %w", status, err)
	}
	if tag.RowsAffected() == 0 {
		return pending.ErrUpdateNotFound
	}

	return nil
}

// Requeue implements pending.Repository.
func (r *pendingRepository) Requeue(ctx context.Context, id string, nextRetryAt time.Time, lastError string) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance_pending_updates
		SET status = 'pending', next_retry_at = $1, last_error = $2,
		    processing_started_at = NULL, updated_at = $3
		WHERE id = $4
	`

	tag, err := q.Exec(ctx, query, nextRetryAt.UTC(), lastError, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to requeue pending update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pending.ErrUpdateNotFound
	}

	return nil
}

// ReclaimStale implements pending.Repository. The claim's attempt increment
// is rolled back so a crashed worker does not burn the row's retry budget.
func (r *pendingRepository) ReclaimStale(ctx context.Context, olderThan time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE attendance_pending_updates
		SET status = 'pending', attempt_count = attempt_count - 1,
		    processing_started_at = NULL, updated_at = $1
		WHERE status = 'processing' AND processing_started_at < $2
	`

	tag, err := q.Exec(ctx, query, time.Now().UTC(), olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to reclaim stale pending updates: %w", err)
	}

	return tag.RowsAffected(), nil
}

func NewPendingRepository(db *database.DB) pending.Repository {
	return &pendingRepository{db: db}
}
