package tenant

import "errors"

var (
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrInvalidSettings = errors.New("tenant payroll settings are invalid")
)
