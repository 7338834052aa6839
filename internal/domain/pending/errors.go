package pending

import "errors"

var (
	ErrUpdateNotFound = errors.New("pending attendance update not found")
	ErrEmptyRef       = errors.New("either employee id or employee code is required")
)
