package handlers

import (
	"github.com/gin-gonic/gin"

	"fluxo/internal/core/apperror"
	"fluxo/internal/core/id"
	"fluxo/internal/core/types"
	"fluxo/internal/domain/cashsession"
	"fluxo/internal/infrastructure/http/v1/dto"
)

// CashSessionHandler handles HTTP requests for drawer sessions.
type CashSessionHandler struct {
	*BaseHandler
	service *cashsession.Service
}

// NewCashSessionHandler creates a new cash session handler.
func NewCashSessionHandler(base *BaseHandler, service *cashsession.Service) *CashSessionHandler {
	return &CashSessionHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Open handles POST /cash-sessions
func (h *CashSessionHandler) Open(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.OpenCashSessionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	sess, err := h.service.Open(ctx, in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, sess)
}

// Close handles POST /cash-sessions/:id/close
func (h *CashSessionHandler) Close(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid session id").WithDetail("value", c.Param("id")))
		return
	}

	var req dto.CloseCashSessionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	sess, err := h.service.Close(ctx, cashsession.CloseInput{
		SessionID:      sessionID,
		DeclaredAmount: types.MinorUnits(req.DeclaredAmount),
	})
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, sess)
}

// Get handles GET /cash-sessions/:id
func (h *CashSessionHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	sessionID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid session id").WithDetail("value", c.Param("id")))
		return
	}

	sess, err := h.service.GetByID(ctx, sessionID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, sess)
}

// List handles GET /cash-sessions
func (h *CashSessionHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CashSessionListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	filter, err := req.ToFilter(h.GetTenantID(c))
	if err != nil {
		h.Error(c, err)
		return
	}

	sessions, err := h.service.List(ctx, filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:  sessions,
		Limit:  req.Limit,
		Offset: req.Offset,
	})
}
