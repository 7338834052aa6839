package pending

import (
	"time"

	"github.com/staffdesk/payroll-engine-go/internal/domain/attendance"
)

// Status of a queued clock event.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// EmployeeRef identifies the employee either directly or by the
// tenant-scoped external code. Resolution happens at drain time so a lookup
// failure is retried like any other transient error.
type EmployeeRef struct {
	EmployeeID   *string
	EmployeeCode *string
}

// Update is one queued clock event awaiting (re-)application.
type Update struct {
	ID           string
	TenantID     string
	EmployeeID   *string
	EmployeeCode *string
	Mode         attendance.ClockMode
	EventTime    time.Time

	Status       Status
	AttemptCount int
	NextRetryAt  time.Time
	// ProcessingStartedAt is the claim timestamp; rows whose lease expired
	// are reclaimed back to pending.
	ProcessingStartedAt *time.Time
	LastError           *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DrainResult summarizes one DrainBatch pass.
type DrainResult struct {
	Claimed   int
	Completed int
	Retried   int
	Failed    int
}
