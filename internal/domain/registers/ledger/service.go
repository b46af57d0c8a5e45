package ledger

import (
	"context"
	"fmt"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/id"
	"fluxo/pkg/logger"
)

// Service guards the movement register invariants. Transactions are
// managed by the caller (the booking engine).
type Service struct {
	repo Repository
}

// NewService creates a new ledger register service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record validates and appends movements.
// Validation failures leave the register untouched.
func (s *Service) Record(ctx context.Context, movements []Movement) error {
	if len(movements) == 0 {
		return nil
	}

	for i, m := range movements {
		if err := ValidateMovement(m); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return appErr.WithDetail("index", i)
			}
			return err
		}
	}

	if err := s.repo.Append(ctx, movements); err != nil {
		return fmt.Errorf("append movements: %w", err)
	}

	logger.Info(ctx, "recorded movements",
		"count", len(movements),
		"origin_id", movements[0].OriginID,
	)

	return nil
}

// Query returns movements in replay order.
func (s *Service) Query(ctx context.Context, filter Filter) ([]Movement, error) {
	if filter.TenantID == "" {
		return nil, apperror.NewValidation("tenant is required").
			WithDetail("field", "tenantId")
	}
	return s.repo.Query(ctx, filter)
}

// ByOrigin returns the ledger footprint of one booking.
func (s *Service) ByOrigin(ctx context.Context, tenantID, originType string, originID id.ID) ([]Movement, error) {
	if tenantID == "" {
		return nil, apperror.NewValidation("tenant is required").
			WithDetail("field", "tenantId")
	}
	return s.repo.GetByOrigin(ctx, tenantID, originType, originID)
}

// Settle marks open title movements settled and appends the settlement
// movement in the same call. The caller supplies the transaction scope.
func (s *Service) Settle(ctx context.Context, settlement Movement, titleLineIDs []id.ID) error {
	if settlement.Kind != KindSettlement {
		return apperror.NewValidation("settlement movement required").
			WithDetail("kind", string(settlement.Kind))
	}
	if len(titleLineIDs) == 0 {
		return apperror.NewValidation("at least one title is required")
	}
	if err := ValidateMovement(settlement); err != nil {
		return err
	}

	if err := s.repo.Append(ctx, []Movement{settlement}); err != nil {
		return fmt.Errorf("append settlement: %w", err)
	}
	if err := s.repo.MarkSettled(ctx, settlement.TenantID, titleLineIDs, settlement.LineID); err != nil {
		return fmt.Errorf("mark settled: %w", err)
	}

	logger.Info(ctx, "settled titles",
		"settlement_id", settlement.LineID,
		"titles", len(titleLineIDs),
	)

	return nil
}

// ValidateMovement checks the register invariants for a single movement.
func ValidateMovement(m Movement) error {
	if m.TenantID == "" {
		return apperror.NewValidation("tenant is required").
			WithDetail("field", "tenantId")
	}
	if id.IsNil(m.SubjectID) {
		return apperror.NewValidation("subject is required").
			WithDetail("field", "subjectId")
	}
	if !knownKind(m.Kind) {
		return apperror.NewValidation("unknown movement kind").
			WithDetail("kind", string(m.Kind))
	}
	if m.OccurredAt.IsZero() {
		return apperror.NewConstraint("occurred_at is required")
	}
	if !m.Magnitude.IsPositive() {
		return apperror.NewConstraint("magnitude must be strictly positive").
			WithDetail("magnitude", m.Magnitude.String())
	}
	if m.Kind == KindTransfer {
		if m.LocationID == nil || m.CounterLocationID == nil {
			return apperror.NewValidation("transfer requires source and destination locations")
		}
		if *m.LocationID == *m.CounterLocationID {
			return apperror.NewValidation("transfer locations must differ")
		}
	}
	return nil
}

func knownKind(k Kind) bool {
	switch k {
	case KindEntry, KindExit, KindTransfer, KindAdjustmentIn, KindAdjustmentOut,
		KindReceivable, KindPayable, KindSettlement:
		return true
	}
	return false
}
