package sale

import (
	"context"
	"time"

	"fluxo/internal/core/id"
)

type ListFilter struct {
	TenantID      string
	CashSessionID *id.ID
	TaxPending    *bool
	From          *time.Time
	To            *time.Time
	Limit         uint64
	Offset        uint64
}

type Repository interface {
	// Create persists the header and all lines. Callers run it inside
	// the booking transaction.
	Create(ctx context.Context, sale *Sale) error
	GetByID(ctx context.Context, tenantID string, saleID id.ID) (*Sale, error)
	List(ctx context.Context, filter ListFilter) ([]Sale, error)
}
