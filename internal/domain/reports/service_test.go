package reports

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fluxo/internal/core/id"
	"fluxo/internal/core/session"
	"fluxo/internal/core/types"
	"fluxo/internal/domain/registers/ledger"
	"fluxo/pkg/logger"
)

var (
	productX = id.MustParse("01912345-0000-7000-8000-000000000001")
	walletW  = id.MustParse("01912345-0000-7000-8000-000000000002")
	locA     = id.MustParse("01912345-0000-7000-8000-000000000003")
)

func day(n int) time.Time {
	return time.Date(2026, 8, n, 0, 0, 0, 0, time.UTC)
}

func qty(f float64) types.Quantity {
	return types.NewQuantityFromFloat64(f)
}

// ledgerFake replays movements in occurred-then-insertion order and folds
// opening sums with the same sign rules the store would use.
type ledgerFake struct {
	movements []ledger.Movement
	seq       int64
}

func (r *ledgerFake) add(m ledger.Movement) {
	r.seq++
	m.Seq = r.seq
	r.movements = append(r.movements, m)
}

func (r *ledgerFake) Append(_ context.Context, ms []ledger.Movement) error {
	for _, m := range ms {
		r.add(m)
	}
	return nil
}

func (r *ledgerFake) matches(m ledger.Movement, f ledger.Filter) bool {
	if m.TenantID != f.TenantID {
		return false
	}
	if f.SubjectID != nil && m.SubjectID != *f.SubjectID {
		return false
	}
	if len(f.Kinds) > 0 {
		found := false
		for _, k := range f.Kinds {
			if m.Kind == k {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r *ledgerFake) Query(_ context.Context, f ledger.Filter) ([]ledger.Movement, error) {
	var out []ledger.Movement
	for _, m := range r.movements {
		if !r.matches(m, f) {
			continue
		}
		if f.From != nil && m.OccurredAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !m.OccurredAt.Before(*f.To) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

func (r *ledgerFake) SignedSumBefore(_ context.Context, f ledger.Filter, asOf time.Time) (types.Quantity, error) {
	rule := ledger.CashSign()
	if len(f.Kinds) > 0 && f.Kinds[0].Ledger() == ledger.TypeStock {
		rule = ledger.StockSign(f.Location)
	}
	var sum types.Quantity
	for _, m := range r.movements {
		if r.matches(m, f) && m.OccurredAt.Before(asOf) {
			sum += rule(m)
		}
	}
	return sum, nil
}

func (r *ledgerFake) GetByOrigin(context.Context, string, string, id.ID) ([]ledger.Movement, error) {
	return nil, nil
}

func (r *ledgerFake) MarkSettled(context.Context, string, []id.ID, id.ID) error { return nil }

type titleFake struct {
	rows []OpenTitleRow
}

func (t *titleFake) OpenTitles(context.Context, string, ledger.Kind, time.Time) ([]OpenTitleRow, error) {
	return t.rows, nil
}

func reportCtx() context.Context {
	return session.WithSession(context.Background(), &session.Session{TenantID: "acme"})
}

func newFixture() (*Service, *ledgerFake, *titleFake) {
	repo := &ledgerFake{}
	titles := &titleFake{}
	return NewService(repo, titles, logger.Default()), repo, titles
}

func TestDailyCashFlow(t *testing.T) {
	svc, repo, _ := newFixture()

	// Before the window: 100.00 in.
	repo.add(ledger.NewMovement("acme", walletW, ledger.KindReceivable, types.NewQuantityFromMinorUnits(10000), day(1)))
	// Day 3: 26.50 in, 4.00 out.
	repo.add(ledger.NewMovement("acme", walletW, ledger.KindReceivable, types.NewQuantityFromMinorUnits(2650), day(3)))
	repo.add(ledger.NewMovement("acme", walletW, ledger.KindPayable, types.NewQuantityFromMinorUnits(400), day(3)))
	// Day 4: a settlement, which moves no cash.
	repo.add(ledger.NewMovement("acme", walletW, ledger.KindSettlement, types.NewQuantityFromMinorUnits(2650), day(4)))
	// Day 5: 10.00 in.
	repo.add(ledger.NewMovement("acme", walletW, ledger.KindReceivable, types.NewQuantityFromMinorUnits(1000), day(5)))

	got, err := svc.DailyCashFlow(reportCtx(), CashFlowFilter{From: day(2), To: day(6)})
	require.NoError(t, err)

	require.Equal(t, types.MinorUnits(10000), got.OpeningBalance)
	require.Len(t, got.Days, 3)

	require.Equal(t, day(3), got.Days[0].Date)
	require.Equal(t, types.MinorUnits(2650), got.Days[0].Inflow)
	require.Equal(t, types.MinorUnits(400), got.Days[0].Outflow)
	require.Equal(t, types.MinorUnits(2250), got.Days[0].Net)
	require.Equal(t, types.MinorUnits(12250), got.Days[0].ClosingBalance)

	// Settlement day: zero flow, balance unchanged.
	require.Equal(t, day(4), got.Days[1].Date)
	require.Equal(t, types.MinorUnits(0), got.Days[1].Net)
	require.Equal(t, types.MinorUnits(12250), got.Days[1].ClosingBalance)

	require.Equal(t, day(5), got.Days[2].Date)
	require.Equal(t, types.MinorUnits(13250), got.Days[2].ClosingBalance)
}

func TestDailyCashFlow_EmptyWindow(t *testing.T) {
	svc, _, _ := newFixture()

	got, err := svc.DailyCashFlow(reportCtx(), CashFlowFilter{From: day(1), To: day(2)})
	require.NoError(t, err)
	require.Empty(t, got.Days)
	require.Equal(t, types.MinorUnits(0), got.OpeningBalance)
}

func TestDailyCashFlow_ExprFilter(t *testing.T) {
	svc, repo, _ := newFixture()
	repo.add(ledger.NewMovement("acme", walletW, ledger.KindReceivable, types.NewQuantityFromMinorUnits(1000), day(3)))
	repo.add(ledger.NewMovement("acme", walletW, ledger.KindPayable, types.NewQuantityFromMinorUnits(300), day(3)))

	got, err := svc.DailyCashFlow(reportCtx(), CashFlowFilter{
		From: day(1),
		To:   day(6),
		Expr: `kind == "receivable"`,
	})
	require.NoError(t, err)
	require.Len(t, got.Days, 1)
	require.Equal(t, types.MinorUnits(0), got.Days[0].Outflow)
	require.Equal(t, types.MinorUnits(1000), got.Days[0].Inflow)
}

func TestDailyCashFlow_InvalidRange(t *testing.T) {
	svc, _, _ := newFixture()

	_, err := svc.DailyCashFlow(reportCtx(), CashFlowFilter{From: day(5), To: day(5)})
	require.Error(t, err)
}

func TestKardex(t *testing.T) {
	svc, repo, _ := newFixture()

	repo.add(ledger.NewMovement("acme", productX, ledger.KindEntry, qty(10), day(1)).WithLocation(locA))
	repo.add(ledger.NewMovement("acme", productX, ledger.KindExit, qty(3), day(3)).WithLocation(locA))
	repo.add(ledger.NewMovement("acme", productX, ledger.KindAdjustmentIn, qty(1), day(4)).WithLocation(locA))

	got, err := svc.Kardex(reportCtx(), KardexFilter{
		ProductID:  productX,
		LocationID: &locA,
		From:       day(2),
		To:         day(6),
	})
	require.NoError(t, err)

	require.Equal(t, qty(10), got.OpeningBalance)
	require.Len(t, got.Entries, 2)
	require.Equal(t, qty(-3), got.Entries[0].Delta)
	require.Equal(t, qty(7), got.Entries[0].Balance)
	require.Equal(t, qty(8), got.Entries[1].Balance)
	require.Equal(t, qty(8), got.ClosingBalance)
}

func TestKardex_EmptyWindow(t *testing.T) {
	svc, _, _ := newFixture()

	got, err := svc.Kardex(reportCtx(), KardexFilter{ProductID: productX, From: day(1), To: day(2)})
	require.NoError(t, err)
	require.Empty(t, got.Entries)
	require.Equal(t, got.OpeningBalance, got.ClosingBalance)
}

func TestOpenTitles_GroupingAndOrder(t *testing.T) {
	svc, _, titles := newFixture()

	saleA, saleB := id.New(), id.New()
	due10, due20 := day(10), day(20)
	titles.rows = []OpenTitleRow{
		{LineID: id.New(), Kind: ledger.KindReceivable, Amount: 500, OccurredAt: day(1), DueDate: &due20, OriginType: "sale", OriginID: saleA, DocumentNumber: "SAL-2026-00001"},
		{LineID: id.New(), Kind: ledger.KindReceivable, Amount: 700, OccurredAt: day(2), DueDate: &due10, OriginType: "sale", OriginID: saleB, DocumentNumber: "SAL-2026-00002"},
		{LineID: id.New(), Kind: ledger.KindReceivable, Amount: 300, OccurredAt: day(3), OriginType: "sale", OriginID: saleB, DocumentNumber: "SAL-2026-00002"},
	}

	got, err := svc.OpenTitles(reportCtx(), ledger.KindReceivable, day(30))
	require.NoError(t, err)
	require.Len(t, got.Groups, 2)

	// saleB's earliest item (occurred day 3, no due date) precedes saleA's due day 20.
	require.Equal(t, saleB, got.Groups[0].OriginID)
	require.Equal(t, types.MinorUnits(1000), got.Groups[0].TotalOpen)
	require.Len(t, got.Groups[0].Items, 2)
	require.Equal(t, types.MinorUnits(300), got.Groups[0].Items[0].Amount)

	require.Equal(t, saleA, got.Groups[1].OriginID)
	require.Equal(t, types.MinorUnits(500), got.Groups[1].TotalOpen)
}

func TestOpenTitles_RejectsNonTitleKind(t *testing.T) {
	svc, _, _ := newFixture()

	_, err := svc.OpenTitles(reportCtx(), ledger.KindEntry, day(1))
	require.Error(t, err)
}

func TestOpenTitles_Empty(t *testing.T) {
	svc, _, _ := newFixture()

	got, err := svc.OpenTitles(reportCtx(), ledger.KindPayable, day(1))
	require.NoError(t, err)
	require.Empty(t, got.Groups)
}

func TestResolvePeriod(t *testing.T) {
	now := time.Date(2026, 8, 15, 13, 45, 0, 0, time.UTC)

	from, to, err := ResolvePeriod("today", now)
	require.NoError(t, err)
	require.Equal(t, day(15), from)
	require.Equal(t, day(16), to)

	from, to, err = ResolvePeriod("last-7-days", now)
	require.NoError(t, err)
	require.Equal(t, day(8), from)
	require.Equal(t, day(16), to)

	from, to, err = ResolvePeriod("month-to-date", now)
	require.NoError(t, err)
	require.Equal(t, day(1), from)
	require.Equal(t, day(16), to)

	_, _, err = ResolvePeriod("fortnight", now)
	require.Error(t, err)
}
