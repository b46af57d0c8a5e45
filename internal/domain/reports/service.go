package reports

import (
	"context"
	"sort"
	"time"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/session"
	"fluxo/internal/core/types"
	"fluxo/internal/domain/registers/ledger"
	"fluxo/pkg/logger"
)

// TitleReader fetches still-open titles joined with their parent document.
// The postgres implementation does the grouping join in SQL.
type TitleReader interface {
	OpenTitles(ctx context.Context, tenantID string, kind ledger.Kind, asOf time.Time) ([]OpenTitleRow, error)
}

type Service struct {
	movements ledger.Repository
	titles    TitleReader
	logger    *logger.Logger
}

func NewService(movements ledger.Repository, titles TitleReader, log *logger.Logger) *Service {
	return &Service{
		movements: movements,
		titles:    titles,
		logger:    log.WithComponent("reports"),
	}
}

// DailyCashFlow buckets the cash ledger by business day. The opening
// balance is computed once for the window start; each bucket's closing
// balance threads from it. Days without movements produce no bucket.
// A filter expression narrows the window movements only: the opening
// balance always reflects full prior history, so closing stays opening
// plus the filtered net.
func (s *Service) DailyCashFlow(ctx context.Context, filter CashFlowFilter) (*DailyCashFlowReport, error) {
	tenantID := session.TenantID(ctx)
	if tenantID == "" {
		return nil, apperror.NewUnauthorized("tenant is required")
	}
	if !filter.From.Before(filter.To) {
		return nil, apperror.NewValidation("period start must precede period end")
	}

	exprFilter, err := compileExpr(filter.Expr)
	if err != nil {
		return nil, err
	}

	base := ledger.Filter{
		TenantID: tenantID,
		Kinds:    ledger.CashKinds(),
	}

	opening, err := s.movements.SignedSumBefore(ctx, base, filter.From)
	if err != nil {
		return nil, err
	}

	windowed := base
	windowed.From = &filter.From
	windowed.To = &filter.To
	movements, err := s.movements.Query(ctx, windowed)
	if err != nil {
		return nil, err
	}
	movements, err = exprFilter.Apply(movements)
	if err != nil {
		return nil, err
	}

	report := &DailyCashFlowReport{
		From:           filter.From,
		To:             filter.To,
		OpeningBalance: opening.ToMinorUnits(),
		Days:           []DayBucket{},
	}

	rule := ledger.CashSign()
	balance := opening
	var current *DayBucket
	for _, m := range movements {
		day := m.OccurredAt.UTC().Truncate(24 * time.Hour)
		if current == nil || !current.Date.Equal(day) {
			report.Days = append(report.Days, DayBucket{Date: day})
			current = &report.Days[len(report.Days)-1]
		}

		delta := rule(m)
		balance += delta
		amount := delta.ToMinorUnits()
		switch {
		case amount > 0:
			current.Inflow += amount
		case amount < 0:
			current.Outflow += -amount
		}
		current.Net = current.Inflow - current.Outflow
		current.ClosingBalance = balance.ToMinorUnits()
	}
	return report, nil
}

// Kardex is the stock movement history for one product, with a running
// balance. Location-relative signs apply when a location is given.
// As in DailyCashFlow, a filter expression narrows the window rows
// only; the opening balance reflects full prior history.
func (s *Service) Kardex(ctx context.Context, filter KardexFilter) (*KardexReport, error) {
	tenantID := session.TenantID(ctx)
	if tenantID == "" {
		return nil, apperror.NewUnauthorized("tenant is required")
	}
	if !filter.From.Before(filter.To) {
		return nil, apperror.NewValidation("period start must precede period end")
	}

	exprFilter, err := compileExpr(filter.Expr)
	if err != nil {
		return nil, err
	}

	base := ledger.Filter{
		TenantID:  tenantID,
		SubjectID: &filter.ProductID,
		Location:  filter.LocationID,
		Kinds:     ledger.StockKinds(),
	}

	opening, err := s.movements.SignedSumBefore(ctx, base, filter.From)
	if err != nil {
		return nil, err
	}

	windowed := base
	windowed.From = &filter.From
	windowed.To = &filter.To
	movements, err := s.movements.Query(ctx, windowed)
	if err != nil {
		return nil, err
	}
	movements, err = exprFilter.Apply(movements)
	if err != nil {
		return nil, err
	}

	rule := ledger.StockSign(filter.LocationID)
	running := ledger.RunningBalances(movements, rule, opening)

	report := &KardexReport{
		ProductID:      filter.ProductID,
		LocationID:     filter.LocationID,
		OpeningBalance: opening,
		ClosingBalance: opening,
		Entries:        make([]KardexEntry, 0, len(running)),
	}
	for _, rb := range running {
		report.Entries = append(report.Entries, KardexEntry{
			Movement: rb.Movement,
			Delta:    rb.Delta,
			Balance:  rb.Balance,
		})
	}
	if len(running) > 0 {
		report.ClosingBalance = running[len(running)-1].Balance
	}
	return report, nil
}

// OpenTitles groups open receivables or payables by their parent document,
// ordered by due date ascending. Titles without a due date sort by their
// occurrence date.
func (s *Service) OpenTitles(ctx context.Context, kind ledger.Kind, asOf time.Time) (*OpenTitlesReport, error) {
	tenantID := session.TenantID(ctx)
	if tenantID == "" {
		return nil, apperror.NewUnauthorized("tenant is required")
	}
	if !kind.IsTitle() {
		return nil, apperror.NewValidation("kind must be receivable or payable").
			WithDetail("kind", kind)
	}

	rows, err := s.titles.OpenTitles(ctx, tenantID, kind, asOf)
	if err != nil {
		return nil, err
	}

	report := &OpenTitlesReport{Kind: kind, AsOf: asOf, Groups: []OpenTitleGroup{}}

	index := make(map[string]int)
	for _, row := range rows {
		key := row.OriginType + ":" + row.OriginID.String()
		i, ok := index[key]
		if !ok {
			i = len(report.Groups)
			index[key] = i
			report.Groups = append(report.Groups, OpenTitleGroup{
				OriginType:     row.OriginType,
				OriginID:       row.OriginID,
				DocumentNumber: row.DocumentNumber,
			})
		}
		report.Groups[i].Items = append(report.Groups[i].Items, row)
		report.Groups[i].TotalOpen += row.Amount
	}

	for i := range report.Groups {
		items := report.Groups[i].Items
		sort.SliceStable(items, func(a, b int) bool {
			return effectiveDue(items[a]).Before(effectiveDue(items[b]))
		})
	}
	sort.SliceStable(report.Groups, func(a, b int) bool {
		return effectiveDue(report.Groups[a].Items[0]).Before(effectiveDue(report.Groups[b].Items[0]))
	})
	return report, nil
}

func effectiveDue(row OpenTitleRow) time.Time {
	if row.DueDate != nil {
		return *row.DueDate
	}
	return row.OccurredAt
}

func compileExpr(expr string) (*ledger.ExprFilter, error) {
	if expr == "" {
		return nil, nil
	}
	return ledger.CompileFilter(expr)
}

// StockBalance is the point-in-time balance of one product, optionally
// location-scoped.
func (s *Service) StockBalance(ctx context.Context, filter KardexFilter, asOf time.Time) (types.Quantity, error) {
	tenantID := session.TenantID(ctx)
	if tenantID == "" {
		return 0, apperror.NewUnauthorized("tenant is required")
	}
	return s.movements.SignedSumBefore(ctx, ledger.Filter{
		TenantID:  tenantID,
		SubjectID: &filter.ProductID,
		Location:  filter.LocationID,
		Kinds:     ledger.StockKinds(),
	}, asOf)
}
