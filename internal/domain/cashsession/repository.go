package cashsession

import (
	"context"

	"fluxo/internal/core/id"
)

type ListFilter struct {
	TenantID string
	PointID  *id.ID
	Status   *Status
	Limit    uint64
	Offset   uint64
}

type Repository interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, tenantID string, sessionID id.ID) (*Session, error)
	// GetByIDForUpdate locks the row for the duration of the surrounding
	// transaction. Close relies on it to serialize against concurrent closes.
	GetByIDForUpdate(ctx context.Context, tenantID string, sessionID id.ID) (*Session, error)
	Update(ctx context.Context, session *Session) error
	List(ctx context.Context, filter ListFilter) ([]Session, error)
}
