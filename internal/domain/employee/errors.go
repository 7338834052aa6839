package employee

import "errors"

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrInvalidShift     = errors.New("employee shift configuration is invalid")
)
