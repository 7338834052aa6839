package attendance

import (
	"time"

	"github.com/staffdesk/payroll-engine-go/internal/pkg/validator"
)

// DayMark is one manual/bulk attendance mark.
type DayMark struct {
	EmployeeCode string
	Date         time.Time
	Status       Status
}

func (m DayMark) Validate() error {
	var errs validator.ValidationErrors
	if !validator.IsValidEmployeeCode(m.EmployeeCode) {
		errs = append(errs, validator.ValidationError{Field: "employee_code", Message: "invalid employee code"})
	}
	if m.Date.IsZero() {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "date is required"})
	}
	if !m.Status.Valid() {
		errs = append(errs, validator.ValidationError{Field: "status", Message: "unknown attendance status"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// BulkMarkResult is the partial-success summary of a bulk mark.
type BulkMarkResult struct {
	Created int
	Updated int
	Skipped int
	Errors  []string
}

// AdminEditRequest overrides clock times on an existing record. Unlike clock
// events it may overwrite values that are already set.
type AdminEditRequest struct {
	RecordID string
	CheckIn  *time.Time
	CheckOut *time.Time
	Status   *Status
}

func (r AdminEditRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.RecordID) {
		errs = append(errs, validator.ValidationError{Field: "record_id", Message: "record id is required"})
	}
	if r.Status != nil && !r.Status.Valid() {
		errs = append(errs, validator.ValidationError{Field: "status", Message: "unknown attendance status"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
