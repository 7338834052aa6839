package tenant

import "context"

type Repository interface {
	GetByID(ctx context.Context, id string) (Tenant, error)

	// GetSettings returns the tenant's payroll settings with defaults
	// applied for any unset column, validated before return.
	GetSettings(ctx context.Context, tenantID string) (Settings, error)
}
