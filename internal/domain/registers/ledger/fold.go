package ledger

import (
	"time"

	"fluxo/internal/core/id"
	"fluxo/internal/core/types"
)

// SignRule maps a movement to its signed contribution: +magnitude,
// -magnitude, or zero. Sign policy is pluggable; the fold itself never
// inspects kinds.
type SignRule func(m Movement) types.Quantity

// StockSign returns the sign rule for the stock ledger, optionally
// relative to a single filtered location.
//
// Transfers are location-relative: incoming to the filtered location is
// positive, outgoing is negative, movements not touching it contribute
// zero. With no location filter a transfer nets to zero system-wide:
// it redistributes stock without changing the total on hand.
func StockSign(location *id.ID) SignRule {
	return func(m Movement) types.Quantity {
		switch m.Kind {
		case KindEntry, KindAdjustmentIn:
			if location != nil && !sameLocation(m.LocationID, location) {
				return 0
			}
			return m.Magnitude
		case KindExit, KindAdjustmentOut:
			if location != nil && !sameLocation(m.LocationID, location) {
				return 0
			}
			return m.Magnitude.Neg()
		case KindTransfer:
			if location == nil {
				return 0
			}
			if sameLocation(m.CounterLocationID, location) {
				return m.Magnitude
			}
			if sameLocation(m.LocationID, location) {
				return m.Magnitude.Neg()
			}
			return 0
		default:
			return 0
		}
	}
}

// CashSign returns the sign rule for the cash ledger: receivables flow
// in, payables flow out. Settlements flip title status without adding
// net flow, so they contribute zero here.
func CashSign() SignRule {
	return func(m Movement) types.Quantity {
		switch m.Kind {
		case KindReceivable:
			return m.Magnitude
		case KindPayable:
			return m.Magnitude.Neg()
		default:
			return 0
		}
	}
}

func sameLocation(a, b *id.ID) bool {
	return a != nil && b != nil && *a == *b
}

// RunningBalance pairs a movement with the cumulative balance after it.
type RunningBalance struct {
	Movement Movement       `json:"movement"`
	Delta    types.Quantity `json:"delta"`
	Balance  types.Quantity `json:"balance"`
}

// RunningBalances folds an ordered movement sequence into per-movement
// running balances, starting from opening. Single linear pass; the input
// must already be in (OccurredAt, Seq) order per the store contract,
// the fold does not re-sort.
func RunningBalances(movements []Movement, rule SignRule, opening types.Quantity) []RunningBalance {
	out := make([]RunningBalance, 0, len(movements))
	balance := opening
	for _, m := range movements {
		delta := rule(m)
		balance += delta
		out = append(out, RunningBalance{Movement: m, Delta: delta, Balance: balance})
	}
	return out
}

// PointInTimeBalance folds all movements with OccurredAt <= asOf.
// Typically used to compute an opening balance before a reporting
// window, so the window itself can be folded without re-scanning
// from epoch.
func PointInTimeBalance(movements []Movement, asOf time.Time, rule SignRule) types.Quantity {
	var balance types.Quantity
	for _, m := range movements {
		if m.OccurredAt.After(asOf) {
			continue
		}
		balance += rule(m)
	}
	return balance
}
