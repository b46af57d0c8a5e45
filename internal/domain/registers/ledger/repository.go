package ledger

import (
	"context"
	"time"

	"fluxo/internal/core/id"
	"fluxo/internal/core/types"
)

// Repository defines operations for the movement register.
// Appends are durable and ordered; no balance is computed here.
type Repository interface {
	// Append batch inserts movements. The store assigns Seq and
	// RecordedAt. Called during booking within a transaction.
	Append(ctx context.Context, movements []Movement) error

	// Query retrieves movements matching the filter, ordered by
	// (occurred_at, seq) ascending. Callers cap unbounded histories
	// via the date range.
	Query(ctx context.Context, filter Filter) ([]Movement, error)

	// SignedSumBefore computes the signed fold of all movements
	// matching the filter with occurred_at strictly before asOf,
	// pushed down to SQL. The kind-to-sign mapping mirrors
	// StockSign/CashSign and must stay in lockstep with them.
	SignedSumBefore(ctx context.Context, filter Filter, asOf time.Time) (types.Quantity, error)

	// GetByOrigin retrieves all movements produced by one booking.
	GetByOrigin(ctx context.Context, tenantID string, originType string, originID id.ID) ([]Movement, error)

	// MarkSettled transitions open title movements to settled, recording
	// the settlement movement that closed them.
	MarkSettled(ctx context.Context, tenantID string, lineIDs []id.ID, settlementID id.ID) error
}

// Filter narrows movement queries. Zero-value fields are ignored.
type Filter struct {
	TenantID  string
	SubjectID *id.ID

	// Location matches movements touching the location: source,
	// destination, or plain location dimension.
	Location *id.ID

	Kinds  []Kind
	Status *Status

	// Business date window: From inclusive, To exclusive.
	From *time.Time
	To   *time.Time

	OriginType string
	OriginID   *id.ID

	Limit  int
	Offset int
}
