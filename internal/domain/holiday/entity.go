package holiday

import "time"

// Holiday is a tenant-scoped paid day. Scope is either every department or
// an explicit list.
type Holiday struct {
	ID       string
	TenantID string
	Date     time.Time
	Name     string

	AppliesToAll bool
	Departments  []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppliesTo reports whether the holiday covers the given department.
func (h Holiday) AppliesTo(department string) bool {
	if h.AppliesToAll {
		return true
	}
	for _, d := range h.Departments {
		if d == department {
			return true
		}
	}
	return false
}
