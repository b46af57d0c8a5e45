package dto

import (
	"time"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/id"
	"fluxo/internal/domain/reports"
)

// CashFlowReportRequest selects the window either by explicit bounds or
// a named period shortcut ("today", "month-to-date", "last-30-days").
type CashFlowReportRequest struct {
	Period string     `form:"period"`
	From   *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To     *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Expr   string     `form:"expr"`
}

// ToFilter resolves the window and builds the domain filter.
func (r CashFlowReportRequest) ToFilter(now time.Time) (reports.CashFlowFilter, error) {
	from, to, err := resolveWindow(r.Period, r.From, r.To, now)
	if err != nil {
		return reports.CashFlowFilter{}, err
	}
	return reports.CashFlowFilter{From: from, To: to, Expr: r.Expr}, nil
}

// KardexReportRequest selects a product movement history window.
type KardexReportRequest struct {
	ProductID  string     `form:"productId" binding:"required"`
	LocationID string     `form:"locationId"`
	Period     string     `form:"period"`
	From       *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Expr       string     `form:"expr"`
}

// ToFilter resolves the window and builds the domain filter.
func (r KardexReportRequest) ToFilter(now time.Time) (reports.KardexFilter, error) {
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return reports.KardexFilter{}, apperror.NewValidation("invalid productId").WithDetail("value", r.ProductID)
	}
	from, to, err := resolveWindow(r.Period, r.From, r.To, now)
	if err != nil {
		return reports.KardexFilter{}, err
	}
	filter := reports.KardexFilter{
		ProductID: productID,
		From:      from,
		To:        to,
		Expr:      r.Expr,
	}
	if r.LocationID != "" {
		locID, err := id.Parse(r.LocationID)
		if err != nil {
			return reports.KardexFilter{}, apperror.NewValidation("invalid locationId").WithDetail("value", r.LocationID)
		}
		filter.LocationID = &locID
	}
	return filter, nil
}

// StockBalanceRequest asks for a point-in-time product balance.
type StockBalanceRequest struct {
	ProductID  string     `form:"productId" binding:"required"`
	LocationID string     `form:"locationId"`
	AsOf       *time.Time `form:"asOf" time_format:"2006-01-02T15:04:05Z07:00"`
}

// ToFilter builds the domain filter. The window bounds stay zero; the
// balance is cut at AsOf.
func (r StockBalanceRequest) ToFilter() (reports.KardexFilter, error) {
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return reports.KardexFilter{}, apperror.NewValidation("invalid productId").WithDetail("value", r.ProductID)
	}
	filter := reports.KardexFilter{ProductID: productID}
	if r.LocationID != "" {
		locID, err := id.Parse(r.LocationID)
		if err != nil {
			return reports.KardexFilter{}, apperror.NewValidation("invalid locationId").WithDetail("value", r.LocationID)
		}
		filter.LocationID = &locID
	}
	return filter, nil
}

// OpenTitlesReportRequest lists open receivables or payables as of a date.
type OpenTitlesReportRequest struct {
	Kind string     `form:"kind" binding:"required"`
	AsOf *time.Time `form:"asOf" time_format:"2006-01-02T15:04:05Z07:00"`
}

func resolveWindow(period string, from, to *time.Time, now time.Time) (time.Time, time.Time, error) {
	if period != "" {
		return reports.ResolvePeriod(period, now)
	}
	if from == nil || to == nil {
		return time.Time{}, time.Time{}, apperror.NewValidation("either period or both from and to are required")
	}
	return *from, *to, nil
}
