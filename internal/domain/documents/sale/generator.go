package sale

import (
	"context"

	"fluxo/internal/core/id"
	"fluxo/internal/domain/registers/ledger"
)

// StockExitGenerator emits one stock exit per product line, at a fixed
// fulfillment location. Lines without a product reference (services,
// ad-hoc items) produce no stock effect.
type StockExitGenerator struct {
	LocationID id.ID
}

func NewStockExitGenerator(locationID id.ID) StockExitGenerator {
	return StockExitGenerator{LocationID: locationID}
}

func (g StockExitGenerator) Generate(_ context.Context, s *Sale) ([]ledger.Movement, error) {
	var out []ledger.Movement
	for _, line := range s.Lines {
		if line.ProductID == nil {
			continue
		}
		m := ledger.NewMovement(s.TenantID, *line.ProductID, ledger.KindExit, line.Quantity, s.Date).
			WithLocation(g.LocationID).
			WithOrigin(OriginType, s.ID).
			WithCost(line.UnitPrice, line.Gross)
		out = append(out, m)
	}
	return out, nil
}
