package employee

import "context"

// Repository defines data access for employees. Every method carries
// tenantID to keep tenants isolated at the query level.
type Repository interface {
	GetByID(ctx context.Context, id string, tenantID string) (Employee, error)

	// GetByCode resolves a tenant-scoped external employee code.
	GetByCode(ctx context.Context, code string, tenantID string) (Employee, error)

	GetActiveByTenantID(ctx context.Context, tenantID string) ([]Employee, error)
}
