package holiday

import (
	"context"
	"time"
)

type Repository interface {
	ListByTenantMonth(ctx context.Context, tenantID string, year int, month time.Month) ([]Holiday, error)
}
