// Package reports builds read-only views over the ledger. All balance
// math goes through the ledger fold; reports never re-derive sign rules.
package reports

import (
	"time"

	"fluxo/internal/core/id"
	"fluxo/internal/core/types"
	"fluxo/internal/domain/registers/ledger"
)

// DayBucket is one business day of cash flow. ClosingBalance threads the
// running balance from the window opening through each day.
type DayBucket struct {
	Date           time.Time        `json:"date"`
	Inflow         types.MinorUnits `json:"inflow"`
	Outflow        types.MinorUnits `json:"outflow"`
	Net            types.MinorUnits `json:"net"`
	ClosingBalance types.MinorUnits `json:"closingBalance"`
}

type DailyCashFlowReport struct {
	From           time.Time        `json:"from"`
	To             time.Time        `json:"to"`
	OpeningBalance types.MinorUnits `json:"openingBalance"`
	Days           []DayBucket      `json:"days"`
}

// CashFlowFilter scopes a daily cash flow window. Expr is an optional
// inclusion filter over movement attributes.
type CashFlowFilter struct {
	From time.Time
	To   time.Time
	Expr string
}

type KardexFilter struct {
	ProductID  id.ID
	LocationID *id.ID
	From       time.Time
	To         time.Time
	Expr       string
}

// KardexEntry is one stock movement with the balance after applying it.
type KardexEntry struct {
	Movement ledger.Movement `json:"movement"`
	Delta    types.Quantity  `json:"delta"`
	Balance  types.Quantity  `json:"balance"`
}

type KardexReport struct {
	ProductID      id.ID          `json:"productId"`
	LocationID     *id.ID         `json:"locationId,omitempty"`
	OpeningBalance types.Quantity `json:"openingBalance"`
	ClosingBalance types.Quantity `json:"closingBalance"`
	Entries        []KardexEntry  `json:"entries"`
}

// OpenTitleRow is one still-open title joined with its parent document.
type OpenTitleRow struct {
	LineID         id.ID            `json:"lineId"`
	SubjectID      id.ID            `json:"subjectId"`
	Kind           ledger.Kind      `json:"kind"`
	Amount         types.MinorUnits `json:"amount"`
	OccurredAt     time.Time        `json:"occurredAt"`
	DueDate        *time.Time       `json:"dueDate,omitempty"`
	OriginType     string           `json:"originType"`
	OriginID       id.ID            `json:"originId"`
	DocumentNumber string           `json:"documentNumber,omitempty"`
}

// OpenTitleGroup collects a parent document's open titles.
type OpenTitleGroup struct {
	OriginType     string           `json:"originType"`
	OriginID       id.ID            `json:"originId"`
	DocumentNumber string           `json:"documentNumber,omitempty"`
	Items          []OpenTitleRow   `json:"items"`
	TotalOpen      types.MinorUnits `json:"totalOpen"`
}

type OpenTitlesReport struct {
	Kind   ledger.Kind      `json:"kind"`
	AsOf   time.Time        `json:"asOf"`
	Groups []OpenTitleGroup `json:"groups"`
}
