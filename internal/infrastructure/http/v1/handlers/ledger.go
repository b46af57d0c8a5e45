package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/id"
	"fluxo/internal/core/tx"
	"fluxo/internal/domain/registers/ledger"
	"fluxo/internal/infrastructure/http/v1/dto"
)

// LedgerHandler handles HTTP requests for the movement register.
type LedgerHandler struct {
	*BaseHandler
	service   *ledger.Service
	txManager tx.Manager
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service, txManager tx.Manager) *LedgerHandler {
	return &LedgerHandler{
		BaseHandler: base,
		service:     service,
		txManager:   txManager,
	}
}

// Record handles POST /registers/ledger/movements
// The whole batch is validated and appended atomically.
func (h *LedgerHandler) Record(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RecordMovementsRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tenantID := h.GetTenantID(c)
	movements := make([]ledger.Movement, 0, len(req.Movements))
	for _, in := range req.Movements {
		m, err := in.ToMovement(tenantID)
		if err != nil {
			h.Error(c, err)
			return
		}
		movements = append(movements, m)
	}

	if err := h.service.Record(ctx, movements); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"recorded": len(movements)})
}

// Query handles GET /registers/ledger/movements
func (h *LedgerHandler) Query(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.QueryMovementsRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter, err := req.ToFilter(h.GetTenantID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	movements, err := h.service.Query(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:  movements,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
}

// Settle handles POST /registers/ledger/settlements
// Books a settlement movement and flips the referenced title lines.
func (h *LedgerHandler) Settle(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SettleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	settlement, err := req.Settlement.ToMovement(h.GetTenantID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	titleLineIDs := make([]id.ID, 0, len(req.TitleLineIDs))
	for _, raw := range req.TitleLineIDs {
		lineID, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid title line id").WithDetail("value", raw))
			return
		}
		titleLineIDs = append(titleLineIDs, lineID)
	}

	// Settlement append and title flip commit together.
	err = h.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return h.service.Settle(ctx, settlement, titleLineIDs)
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"settled": len(titleLineIDs), "settlementLineId": settlement.LineID.String()})
}
