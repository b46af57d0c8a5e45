package sale

import (
	"context"

	"fluxo/internal/core/id"
	"fluxo/internal/core/session"
)

// Service exposes sale reads. Writes go through the Booker only.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	return s.repo.GetByID(ctx, session.TenantID(ctx), saleID)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Sale, error) {
	filter.TenantID = session.TenantID(ctx)
	return s.repo.List(ctx, filter)
}
