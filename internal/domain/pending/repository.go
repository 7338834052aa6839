package pending

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, update Update) (Update, error)

	// ClaimBatch atomically selects up to batchSize pending rows due at or
	// before now, marks them processing, increments their attempt count and
	// stamps processing_started_at, all in one short transaction using
	// row locks that skip rows claimed by concurrent workers.
	ClaimBatch(ctx context.Context, batchSize int, now time.Time) ([]Update, error)

	MarkCompleted(ctx context.Context, id string) error

	// Requeue sends a claimed row back to pending with the next retry time
	// and the error that caused the failure.
	Requeue(ctx context.Context, id string, nextRetryAt time.Time, lastError string) error

	// MarkFailed is terminal: the row exceeded its attempt budget.
	MarkFailed(ctx context.Context, id string, lastError string) error

	// ReclaimStale resets processing rows whose claim is older than the
	// cutoff back to pending without consuming an attempt. Returns the
	// number of reclaimed rows.
	ReclaimStale(ctx context.Context, olderThan time.Time) (int64, error)
}
