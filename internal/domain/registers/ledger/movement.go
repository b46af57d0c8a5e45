// Package ledger provides the movement register: an append-only log of
// dated, typed events (stock and cash) and the pure folding logic that
// reconstructs balances from it.
package ledger

import (
	"time"

	"fluxo/internal/core/id"
	"fluxo/internal/core/types"
)

// Type discriminates the two ledgers sharing the movement log.
type Type string

const (
	TypeStock Type = "stock"
	TypeCash  Type = "cash"
)

// Kind is the closed set of movement kinds. The stored magnitude is
// always unsigned; direction comes from the kind.
type Kind string

const (
	// Stock kinds
	KindEntry         Kind = "entry"
	KindExit          Kind = "exit"
	KindTransfer      Kind = "transfer"
	KindAdjustmentIn  Kind = "adjustment_in"
	KindAdjustmentOut Kind = "adjustment_out"

	// Cash / title kinds
	KindReceivable Kind = "receivable"
	KindPayable    Kind = "payable"
	KindSettlement Kind = "settlement"
)

// Ledger returns which ledger a kind belongs to.
func (k Kind) Ledger() Type {
	switch k {
	case KindReceivable, KindPayable, KindSettlement:
		return TypeCash
	default:
		return TypeStock
	}
}

// IsTitle reports whether movements of this kind carry an open/settled
// lifecycle (financial titles).
func (k Kind) IsTitle() bool {
	return k == KindReceivable || k == KindPayable
}

// StockKinds lists every kind belonging to the stock ledger.
func StockKinds() []Kind {
	return []Kind{KindEntry, KindExit, KindTransfer, KindAdjustmentIn, KindAdjustmentOut}
}

// CashKinds lists every kind belonging to the cash ledger.
func CashKinds() []Kind {
	return []Kind{KindReceivable, KindPayable, KindSettlement}
}

// Status is the settlement lifecycle of title-style movements.
// Stock movements carry no status.
type Status string

const (
	StatusOpen    Status = "open"
	StatusSettled Status = "settled"
)

// Movement is an immutable ledger event. Once committed it is never
// updated or deleted; corrections are new offsetting movements.
//
// Movements for a given (tenant, subject) lineage replay deterministically
// in (OccurredAt, Seq) order.
type Movement struct {
	// LineID is the unique identifier for this movement line (UUIDv7)
	LineID id.ID `db:"line_id" json:"lineId"`

	// TenantID is the owning company; every query is scoped by it.
	TenantID string `db:"tenant_id" json:"tenantId"`

	// SubjectID is the tracked dimension: a product for stock movements,
	// an account or title subject for cash movements.
	SubjectID id.ID `db:"subject_id" json:"subjectId"`

	// LocationID is the optional secondary dimension (stock location).
	// For transfers it is the source location.
	LocationID *id.ID `db:"location_id" json:"locationId,omitempty"`

	// CounterLocationID is the destination location of a transfer.
	CounterLocationID *id.ID `db:"counter_location_id" json:"counterLocationId,omitempty"`

	Kind Kind `db:"kind" json:"kind"`

	// Magnitude is the unsigned quantity or amount. Strictly positive;
	// the effective sign is derived from Kind by the fold.
	Magnitude types.Quantity `db:"magnitude" json:"magnitude"`

	// OccurredAt is the business date used for ordering and bucketing.
	OccurredAt time.Time `db:"occurred_at" json:"occurredAt"`

	// Seq is the insertion sequence assigned by the store. It breaks
	// ties between movements sharing the same OccurredAt.
	Seq int64 `db:"seq" json:"seq"`

	// RecordedAt is the system timestamp of persistence, used to detect
	// late-arriving movements.
	RecordedAt time.Time `db:"recorded_at" json:"recordedAt"`

	// OriginType and OriginID record which booking produced this
	// movement, for traceability.
	OriginType string `db:"origin_type" json:"originType,omitempty"`
	OriginID   id.ID  `db:"origin_id" json:"originId,omitempty"`

	// Status applies to title-style movements only.
	Status Status `db:"status" json:"status,omitempty"`

	// DueDate applies to title-style movements only.
	DueDate *time.Time `db:"due_date" json:"dueDate,omitempty"`

	// Optional cost resources for cost-bearing stock movements.
	UnitCost  *types.MinorUnits `db:"unit_cost" json:"unitCost,omitempty"`
	TotalCost *types.MinorUnits `db:"total_cost" json:"totalCost,omitempty"`
}

// NewMovement creates a movement with a generated line ID.
// Seq and RecordedAt are assigned by the store on append.
func NewMovement(tenantID string, subjectID id.ID, kind Kind, magnitude types.Quantity, occurredAt time.Time) Movement {
	m := Movement{
		LineID:     id.New(),
		TenantID:   tenantID,
		SubjectID:  subjectID,
		Kind:       kind,
		Magnitude:  magnitude,
		OccurredAt: occurredAt,
	}
	if kind.IsTitle() {
		m.Status = StatusOpen
	}
	return m
}

// WithLocation sets the location dimension.
func (m Movement) WithLocation(locationID id.ID) Movement {
	m.LocationID = &locationID
	return m
}

// WithTransfer sets source and destination locations for a transfer.
func (m Movement) WithTransfer(from, to id.ID) Movement {
	m.LocationID = &from
	m.CounterLocationID = &to
	return m
}

// WithOrigin records the booking that produced this movement.
func (m Movement) WithOrigin(originType string, originID id.ID) Movement {
	m.OriginType = originType
	m.OriginID = originID
	return m
}

// WithDueDate sets the due date of a title movement.
func (m Movement) WithDueDate(due time.Time) Movement {
	m.DueDate = &due
	return m
}

// WithCost sets the cost resources.
func (m Movement) WithCost(unitCost, totalCost types.MinorUnits) Movement {
	m.UnitCost = &unitCost
	m.TotalCost = &totalCost
	return m
}
