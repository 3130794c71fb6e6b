package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/riskgate/internal/middleware"
	"github.com/riskgate/internal/service"
	"github.com/riskgate/pkg/response"
)

// CheckHandler exposes the pre-trade and exit evaluation engines.
// Evaluations are read-only with respect to positions but always audited.
type CheckHandler struct {
	pretradeService *service.PretradeService
	exitService     *service.ExitService
}

// NewCheckHandler creates a new CheckHandler
func NewCheckHandler(pretradeService *service.PretradeService, exitService *service.ExitService) *CheckHandler {
	return &CheckHandler{
		pretradeService: pretradeService,
		exitService:     exitService,
	}
}

// Pretrade runs the full pre-trade battery for a proposed trade
// POST /api/v1/checks/pretrade/:exchange
func (h *CheckHandler) Pretrade(c *gin.Context) {
	exchange, ok := pathExchange(c)
	if !ok {
		return
	}

	var req service.PretradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.pretradeService.Evaluate(middleware.GetUser(c), exchange, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// Exit runs the exit battery for an open position snapshot
// POST /api/v1/checks/exit/:exchange
func (h *CheckHandler) Exit(c *gin.Context) {
	exchange, ok := pathExchange(c)
	if !ok {
		return
	}

	var req service.ExitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.exitService.Evaluate(middleware.GetUser(c), exchange, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// RegisterRoutes registers check routes
func (h *CheckHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	checks := rg.Group("/checks", authMW)
	{
		checks.POST("/pretrade/:exchange", h.Pretrade)
		checks.POST("/exit/:exchange", h.Exit)
	}
}
