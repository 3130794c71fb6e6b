package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/riskgate/internal/middleware"
	"github.com/riskgate/internal/service"
	"github.com/riskgate/pkg/response"
)

const contentTypeJSON = "application/json; charset=utf-8"

// PositionHandler handles the position open/close gate API
type PositionHandler struct {
	positionService *service.PositionService
}

// NewPositionHandler creates a new PositionHandler
func NewPositionHandler(positionService *service.PositionService) *PositionHandler {
	return &PositionHandler{
		positionService: positionService,
	}
}

// Open opens a position from an EXECUTING signal. The stored envelope is
// written out verbatim so idempotent retries get byte-identical bodies.
// POST /api/v1/positions/open
func (h *PositionHandler) Open(c *gin.Context) {
	var req service.OpenPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.positionService.Open(middleware.GetUser(c), &req, c.GetHeader("Idempotency-Key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(result.StatusCode, contentTypeJSON, result.Body)
}

// Close closes an open position at a fill price
// POST /api/v1/positions/:id/close
func (h *PositionHandler) Close(c *gin.Context) {
	var req service.ClosePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.positionService.Close(middleware.GetUser(c), c.Param("id"), &req, c.GetHeader("Idempotency-Key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(result.StatusCode, contentTypeJSON, result.Body)
}

// List returns the caller's positions, newest first
// GET /api/v1/positions?limit=50
func (h *PositionHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	positions, err := h.positionService.List(middleware.GetUserID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, positions)
}

// RegisterRoutes registers position routes
func (h *PositionHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	positions := rg.Group("/positions", authMW)
	{
		positions.POST("/open", middleware.GateLoggerMiddleware(), h.Open)
		positions.POST("/:id/close", middleware.GateLoggerMiddleware(), h.Close)
		positions.GET("", h.List)
	}
}
