package dto

import (
	"time"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/id"
	"fluxo/internal/core/types"
	"fluxo/internal/domain/registers/ledger"
)

// MovementInput is one movement line in a record request.
type MovementInput struct {
	SubjectID         string         `json:"subjectId" binding:"required"`
	Kind              string         `json:"kind" binding:"required"`
	Magnitude         types.Quantity `json:"magnitude"`
	OccurredAt        time.Time      `json:"occurredAt" binding:"required"`
	LocationID        *string        `json:"locationId"`
	CounterLocationID *string        `json:"counterLocationId"`
	OriginType        string         `json:"originType"`
	OriginID          *string        `json:"originId"`
	DueDate           *time.Time     `json:"dueDate"`
	UnitCost          *int64         `json:"unitCost"`
	TotalCost         *int64         `json:"totalCost"`
}

// RecordMovementsRequest appends a batch of movements atomically.
type RecordMovementsRequest struct {
	Movements []MovementInput `json:"movements" binding:"required,min=1"`
}

// ToMovement converts the input to a domain movement for the tenant.
func (in MovementInput) ToMovement(tenantID string) (ledger.Movement, error) {
	subjectID, err := id.Parse(in.SubjectID)
	if err != nil {
		return ledger.Movement{}, apperror.NewValidation("invalid subjectId").WithDetail("value", in.SubjectID)
	}

	m := ledger.NewMovement(tenantID, subjectID, ledger.Kind(in.Kind), in.Magnitude, in.OccurredAt)

	if in.LocationID != nil {
		locID, err := id.Parse(*in.LocationID)
		if err != nil {
			return ledger.Movement{}, apperror.NewValidation("invalid locationId").WithDetail("value", *in.LocationID)
		}
		m.LocationID = &locID
	}
	if in.CounterLocationID != nil {
		counterID, err := id.Parse(*in.CounterLocationID)
		if err != nil {
			return ledger.Movement{}, apperror.NewValidation("invalid counterLocationId").WithDetail("value", *in.CounterLocationID)
		}
		m.CounterLocationID = &counterID
	}
	if in.OriginType != "" && in.OriginID != nil {
		originID, err := id.Parse(*in.OriginID)
		if err != nil {
			return ledger.Movement{}, apperror.NewValidation("invalid originId").WithDetail("value", *in.OriginID)
		}
		m = m.WithOrigin(in.OriginType, originID)
	}
	if in.DueDate != nil {
		m = m.WithDueDate(*in.DueDate)
	}
	if in.UnitCost != nil && in.TotalCost != nil {
		m = m.WithCost(types.MinorUnits(*in.UnitCost), types.MinorUnits(*in.TotalCost))
	}

	return m, nil
}

// QueryMovementsRequest filters the movement log.
type QueryMovementsRequest struct {
	SubjectID  string     `form:"subjectId"`
	LocationID string     `form:"locationId"`
	Kinds      []string   `form:"kinds"`
	Status     string     `form:"status"`
	From       *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	OriginType string     `form:"originType"`
	OriginID   string     `form:"originId"`
	Limit      int        `form:"limit"`
	Offset     int        `form:"offset"`
}

// ToFilter converts the query request to a domain filter.
func (r QueryMovementsRequest) ToFilter(tenantID string) (ledger.Filter, error) {
	filter := ledger.Filter{
		TenantID:   tenantID,
		OriginType: r.OriginType,
		Limit:      r.Limit,
		Offset:     r.Offset,
	}

	if r.SubjectID != "" {
		subjectID, err := id.Parse(r.SubjectID)
		if err != nil {
			return ledger.Filter{}, apperror.NewValidation("invalid subjectId").WithDetail("value", r.SubjectID)
		}
		filter.SubjectID = &subjectID
	}
	if r.LocationID != "" {
		locID, err := id.Parse(r.LocationID)
		if err != nil {
			return ledger.Filter{}, apperror.NewValidation("invalid locationId").WithDetail("value", r.LocationID)
		}
		filter.Location = &locID
	}
	for _, k := range r.Kinds {
		filter.Kinds = append(filter.Kinds, ledger.Kind(k))
	}
	if r.Status != "" {
		status := ledger.Status(r.Status)
		filter.Status = &status
	}
	if r.OriginID != "" {
		originID, err := id.Parse(r.OriginID)
		if err != nil {
			return ledger.Filter{}, apperror.NewValidation("invalid originId").WithDetail("value", r.OriginID)
		}
		filter.OriginID = &originID
	}
	filter.From = r.From
	filter.To = r.To

	return filter, nil
}

// SettleRequest books a settlement against open title lines.
type SettleRequest struct {
	Settlement   MovementInput `json:"settlement" binding:"required"`
	TitleLineIDs []string      `json:"titleLineIds" binding:"required,min=1"`
}
