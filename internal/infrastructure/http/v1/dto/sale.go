package dto

import (
	"time"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/id"
	"fluxo/internal/domain/documents/sale"
)

// SaleListRequest filters the sale journal.
type SaleListRequest struct {
	CashSessionID string     `form:"cashSessionId"`
	TaxPending    *bool      `form:"taxPending"`
	From          *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To            *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit         int        `form:"limit"`
	Offset        int        `form:"offset"`
}

// ToFilter converts the list request to a repository filter.
func (r SaleListRequest) ToFilter(tenantID string) (sale.ListFilter, error) {
	filter := sale.ListFilter{
		TenantID:   tenantID,
		TaxPending: r.TaxPending,
		From:       r.From,
		To:         r.To,
		Limit:      pageValue(r.Limit),
		Offset:     pageValue(r.Offset),
	}
	if r.CashSessionID != "" {
		sessionID, err := id.Parse(r.CashSessionID)
		if err != nil {
			return sale.ListFilter{}, apperror.NewValidation("invalid cashSessionId").WithDetail("value", r.CashSessionID)
		}
		filter.CashSessionID = &sessionID
	}
	return filter, nil
}
