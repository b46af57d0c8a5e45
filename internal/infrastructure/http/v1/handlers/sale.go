package handlers

import (
	"github.com/gin-gonic/gin"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/id"
	"fluxo/internal/domain/documents/sale"
	"fluxo/internal/domain/registers/ledger"
	"fluxo/internal/infrastructure/http/v1/dto"
	"fluxo/internal/infrastructure/http/v1/middleware"
	"fluxo/internal/infrastructure/storage/postgres"
)

// SaleHandler handles HTTP requests for sale bookings.
type SaleHandler struct {
	*BaseHandler
	booker  *sale.Booker
	service *sale.Service
	ledger  *ledger.Service
	audit   *postgres.AuditLog
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, booker *sale.Booker, service *sale.Service, ledgerService *ledger.Service, audit *postgres.AuditLog) *SaleHandler {
	return &SaleHandler{
		BaseHandler: base,
		booker:      booker,
		service:     service,
		ledger:      ledgerService,
		audit:       audit,
	}
}

// Book handles POST /documents/sales
// Runs the full booking protocol and returns the committed sale.
func (h *SaleHandler) Book(c *gin.Context) {
	ctx := c.Request.Context()

	var in sale.BookInput
	if !h.BindJSON(c, &in) {
		return
	}

	// The idempotency header is stored on the document for traceability.
	if in.IdempotencyKey == "" {
		in.IdempotencyKey = c.GetHeader(middleware.HeaderIdempotencyKey)
	}

	booked, err := h.booker.Book(ctx, in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, booked)
}

// Get handles GET /documents/sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	saleID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid sale id").WithDetail("value", c.Param("id")))
		return
	}

	found, err := h.service.GetByID(ctx, saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, found)
}

// Movements handles GET /documents/sales/:id/movements
// Returns the ledger movements the booking produced, in replay order.
func (h *SaleHandler) Movements(c *gin.Context) {
	ctx := c.Request.Context()

	saleID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid sale id").WithDetail("value", c.Param("id")))
		return
	}

	movements, err := h.ledger.ByOrigin(ctx, h.GetTenantID(c), sale.OriginType, saleID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{Items: movements})
}

// AuditTrail handles GET /documents/sales/:id/audit
// Returns the booking audit entries for one sale, newest first.
func (h *SaleHandler) AuditTrail(c *gin.Context) {
	ctx := c.Request.Context()

	saleID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid sale id").WithDetail("value", c.Param("id")))
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	entries, err := h.audit.History(ctx, h.GetTenantID(c), sale.OriginType, saleID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items: entries,
		Limit: limit,
	})
}

// List handles GET /documents/sales
func (h *SaleHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SaleListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter, err := req.ToFilter(h.GetTenantID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	sales, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:  sales,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
}
