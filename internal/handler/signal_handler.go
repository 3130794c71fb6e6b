package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/riskgate/internal/middleware"
	"github.com/riskgate/internal/service"
	"github.com/riskgate/pkg/response"
)

// SignalHandler handles signal pipeline API requests
type SignalHandler struct {
	signalService *service.SignalService
}

// NewSignalHandler creates a new SignalHandler
func NewSignalHandler(signalService *service.SignalService) *SignalHandler {
	return &SignalHandler{
		signalService: signalService,
	}
}

// Create registers a new trade signal for the caller
// POST /api/v1/signals
func (h *SignalHandler) Create(c *gin.Context) {
	var req service.CreateSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	signal, err := h.signalService.Create(middleware.GetUser(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, signal)
}

// List returns the caller's signals, newest first
// GET /api/v1/signals?limit=50
func (h *SignalHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	signals, err := h.signalService.List(middleware.GetUserID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, signals)
}

// Claim moves the caller's CREATED signals to EXECUTING
// POST /api/v1/signals/claim?limit=10
func (h *SignalHandler) Claim(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	claimed, err := h.signalService.Claim(middleware.GetUser(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{
		"claimed": len(claimed),
		"signals": claimed,
	})
}

// RegisterRoutes registers signal routes
func (h *SignalHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	signals := rg.Group("/signals", authMW)
	{
		signals.POST("", h.Create)
		signals.GET("", h.List)
		signals.POST("/claim", h.Claim)
	}
}
