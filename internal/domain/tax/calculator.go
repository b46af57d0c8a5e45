// Package tax defines the tax calculation capability consumed during booking.
// Implementations live in infrastructure; the booker only sees this contract.
package tax

import (
	"context"

	"fluxo/internal/core/types"
)

// RequestLine is one priced line submitted for tax breakdown.
// Lines are positional: the calculator must answer with the same count
// in the same order.
type RequestLine struct {
	Code         string         `json:"code"`
	Name         string         `json:"name"`
	Unit         string         `json:"unit"`
	Quantity     types.Quantity `json:"quantity"`
	UnitPrice    types.MinorUnits `json:"unitPrice"`
	LineDiscount types.MinorUnits `json:"lineDiscount"`
}

type Request struct {
	OriginRegion      string        `json:"originRegion"`
	DestinationRegion string        `json:"destinationRegion"`
	OperationNatureID string        `json:"operationNatureId"`
	Lines             []RequestLine `json:"lines"`
}

// LineTax is the per-line breakdown keyed by tax type.
type LineTax struct {
	ByType map[string]types.MinorUnits `json:"taxFieldsByType"`
	Total  types.MinorUnits            `json:"total"`
}

type Result struct {
	Lines     []LineTax        `json:"lines"`
	TotalTax  types.MinorUnits `json:"totalTax"`
	TaxApprox types.MinorUnits `json:"taxApprox"`
}

// Calculator computes per-line tax for an ordered set of priced lines.
// A failed call returns an upstream error; callers decide whether that
// is fatal.
type Calculator interface {
	Calculate(ctx context.Context, req Request) (*Result, error)
}

// Noop answers every request with zero tax. Used when no external
// calculator is configured.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (n *Noop) Calculate(_ context.Context, req Request) (*Result, error) {
	return &Result{Lines: make([]LineTax, len(req.Lines))}, nil
}
