package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/tx"
	"fluxo/internal/core/types"
	"fluxo/internal/domain/registers/ledger"
	"fluxo/internal/domain/reports"
	"fluxo/internal/infrastructure/http/v1/dto"
)

// ReportsHandler handles HTTP requests for reports. Each report runs in
// a read-only transaction so multi-query reports see one snapshot.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
	db      tx.ReadOnlyManager
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service, db tx.ReadOnlyManager) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
		db:          db,
	}
}

// GetDailyCashFlow handles GET /reports/daily-cash-flow
func (h *ReportsHandler) GetDailyCashFlow(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CashFlowReportRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter, err := req.ToFilter(time.Now().UTC())
	if err != nil {
		h.Error(c, err)
		return
	}

	var report *reports.DailyCashFlowReport
	err = h.db.ReadOnly(ctx, func(ctx context.Context) error {
		report, err = h.service.DailyCashFlow(ctx, filter)
		return err
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

// GetKardex handles GET /reports/kardex
func (h *ReportsHandler) GetKardex(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.KardexReportRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter, err := req.ToFilter(time.Now().UTC())
	if err != nil {
		h.Error(c, err)
		return
	}

	// The kardex needs the opening balance and the movement page to
	// agree, so both queries share the snapshot.
	var report *reports.KardexReport
	err = h.db.ReadOnly(ctx, func(ctx context.Context) error {
		report, err = h.service.Kardex(ctx, filter)
		return err
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}

// GetStockBalance handles GET /reports/stock-balance
// Returns the signed stock quantity of one product as of a cutoff.
func (h *ReportsHandler) GetStockBalance(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.StockBalanceRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter, err := req.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	asOf := time.Now().UTC()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	var balance types.Quantity
	err = h.db.ReadOnly(ctx, func(ctx context.Context) error {
		balance, err = h.service.StockBalance(ctx, filter, asOf)
		return err
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{
		"productId": filter.ProductID,
		"asOf":      asOf,
		"balance":   balance,
	})
}

// GetOpenTitles handles GET /reports/open-titles
func (h *ReportsHandler) GetOpenTitles(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.OpenTitlesReportRequest
	if !h.BindQuery(c, &req) {
		return
	}

	kind := ledger.Kind(req.Kind)
	if !kind.IsTitle() {
		h.Error(c, apperror.NewValidation("kind must be receivable or payable").WithDetail("value", req.Kind))
		return
	}

	asOf := time.Now().UTC()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	var report *reports.OpenTitlesReport
	err := h.db.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		report, err = h.service.OpenTitles(ctx, kind, asOf)
		return err
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, report)
}
