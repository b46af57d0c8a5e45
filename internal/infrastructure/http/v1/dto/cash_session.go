package dto

import (
	"fluxo/internal/core/apperror"
	"fluxo/internal/core/id"
	"fluxo/internal/core/types"
	"fluxo/internal/domain/cashsession"
)

// OpenCashSessionRequest opens a drawer session at a point of sale.
type OpenCashSessionRequest struct {
	PointID      string `json:"pointId" binding:"required"`
	OpeningFloat int64  `json:"openingFloat"`
}

// ToInput converts the request to a domain open input.
func (r OpenCashSessionRequest) ToInput() (cashsession.OpenInput, error) {
	pointID, err := id.Parse(r.PointID)
	if err != nil {
		return cashsession.OpenInput{}, apperror.NewValidation("invalid pointId").WithDetail("value", r.PointID)
	}
	return cashsession.OpenInput{
		PointID:      pointID,
		OpeningFloat: types.MinorUnits(r.OpeningFloat),
	}, nil
}

// CloseCashSessionRequest closes a session against a counted drawer amount.
type CloseCashSessionRequest struct {
	DeclaredAmount int64 `json:"declaredAmount"`
}

// CashSessionListRequest filters session listings.
type CashSessionListRequest struct {
	PointID string `form:"pointId"`
	Status  string `form:"status"`
	Limit   int    `form:"limit"`
	Offset  int    `form:"offset"`
}

// ToFilter converts the list request to a repository filter.
func (r CashSessionListRequest) ToFilter(tenantID string) (cashsession.ListFilter, error) {
	filter := cashsession.ListFilter{
		TenantID: tenantID,
		Limit:    pageValue(r.Limit),
		Offset:   pageValue(r.Offset),
	}
	if r.PointID != "" {
		pointID, err := id.Parse(r.PointID)
		if err != nil {
			return cashsession.ListFilter{}, apperror.NewValidation("invalid pointId").WithDetail("value", r.PointID)
		}
		filter.PointID = &pointID
	}
	if r.Status != "" {
		status := cashsession.Status(r.Status)
		filter.Status = &status
	}
	return filter, nil
}
