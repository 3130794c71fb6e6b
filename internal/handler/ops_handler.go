package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/riskgate/internal/middleware"
	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/service"
	"github.com/riskgate/pkg/response"
)

// OpsHandler handles operator API requests: the kill-switch, strategy
// assignments, execution dry-runs, maintenance jobs and the audit feed.
type OpsHandler struct {
	controlsService  *service.ControlsService
	strategyService  *service.StrategyService
	executionService *service.ExecutionService
	secretService    *service.SecretService
	idemService      *service.IdempotencyService
	auditService     *service.AuditService
	reportService    *service.ReportService
	auditHub         *service.AuditHub
	idemMaxAge       time.Duration
}

// NewOpsHandler creates a new OpsHandler
func NewOpsHandler(
	controlsService *service.ControlsService,
	strategyService *service.StrategyService,
	executionService *service.ExecutionService,
	secretService *service.SecretService,
	idemService *service.IdempotencyService,
	auditService *service.AuditService,
	reportService *service.ReportService,
	auditHub *service.AuditHub,
	idemMaxAge time.Duration,
) *OpsHandler {
	return &OpsHandler{
		controlsService:  controlsService,
		strategyService:  strategyService,
		executionService: executionService,
		secretService:    secretService,
		idemService:      idemService,
		auditService:     auditService,
		reportService:    reportService,
		auditHub:         auditHub,
		idemMaxAge:       idemMaxAge,
	}
}

// GetTradingEnabled reads the global kill-switch
// GET /api/v1/ops/trading-enabled
func (h *OpsHandler) GetTradingEnabled(c *gin.Context) {
	enabled, err := h.controlsService.TradingEnabled()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"enabled": enabled})
}

// SetTradingEnabledRequest flips the kill-switch
type SetTradingEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetTradingEnabled flips the global kill-switch
// PUT /api/v1/ops/trading-enabled
func (h *OpsHandler) SetTradingEnabled(c *gin.Context) {
	var req SetTradingEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.controlsService.SetTradingEnabled(middleware.GetUser(c), *req.Enabled); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"enabled": *req.Enabled})
}

// AssignStrategy upserts a per-user-per-exchange strategy assignment
// POST /api/v1/ops/strategy/assign
func (h *OpsHandler) AssignStrategy(c *gin.Context) {
	var req service.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	view, err := h.strategyService.Assign(middleware.GetUser(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, view)
}

// ListAssignments returns every strategy assignment with owner emails
// GET /api/v1/ops/strategy/assignments
func (h *OpsHandler) ListAssignments(c *gin.Context) {
	views, err := h.strategyService.ListAssignments()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, views)
}

// PrepareExecution builds a signature preview without sending anything
// POST /api/v1/ops/execution/prepare
func (h *OpsHandler) PrepareExecution(c *gin.Context) {
	var req service.PrepareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.executionService.Prepare(middleware.GetUser(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// BinanceTestOrder sends a signed test order to the Binance testnet
// POST /api/v1/ops/execution/binance/test-order
func (h *OpsHandler) BinanceTestOrder(c *gin.Context) {
	var req service.TestOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.executionService.BinanceTestOrder(c.Request.Context(), middleware.GetUser(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// IBKRTestOrder sends a paper test order through the IBKR adapter
// POST /api/v1/ops/execution/ibkr/test-order
func (h *OpsHandler) IBKRTestOrder(c *gin.Context) {
	var req service.TestOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.executionService.IBKRTestOrder(c.Request.Context(), middleware.GetUser(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// Cleanup evicts idempotency records past the retention window
// POST /api/v1/ops/maintenance/cleanup
func (h *OpsHandler) Cleanup(c *gin.Context) {
	removed, err := h.idemService.DeleteOlderThan(h.idemMaxAge)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{
		"idempotency_keys_removed": removed,
		"max_age_hours":            int(h.idemMaxAge.Hours()),
	})
}

// ReencryptRequest rotates the credential encryption key
type ReencryptRequest struct {
	OldKey string `json:"old_key" binding:"required"`
	NewKey string `json:"new_key" binding:"required"`
	DryRun bool   `json:"dry_run"`
}

// ReencryptSecrets re-wraps stored exchange credentials under a new key
// POST /api/v1/ops/security/reencrypt-exchange-secrets
func (h *OpsHandler) ReencryptSecrets(c *gin.Context) {
	var req ReencryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	result, err := h.secretService.Reencrypt(middleware.GetUser(c), req.OldKey, req.NewKey, req.DryRun)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// MyAudit returns the caller's audit entries, newest first
// GET /api/v1/ops/audit/me?page=1&page_size=50
func (h *OpsHandler) MyAudit(c *gin.Context) {
	page, pageSize := pagination(c)
	entries, total, err := h.auditService.GetByUser(middleware.GetUserID(c), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessPaginated(c, entries, total, page, pageSize)
}

// AllAudit returns audit entries across users, optionally filtered by
// an action prefix
// GET /api/v1/ops/audit/all?action_prefix=position.&page=1&page_size=50
func (h *OpsHandler) AllAudit(c *gin.Context) {
	page, pageSize := pagination(c)
	entries, total, err := h.auditService.GetAll(c.Query("action_prefix"), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessPaginated(c, entries, total, page, pageSize)
}

// StreamAudit upgrades to a websocket tailing the live audit feed
// GET /api/v1/ops/audit/stream
func (h *OpsHandler) StreamAudit(c *gin.Context) {
	if err := h.auditHub.ServeWS(c.Writer, c.Request); err != nil {
		middleware.LogError("audit stream upgrade: %v", err)
	}
}

// DailyCompare builds the admin risk overview for the current day
// GET /api/v1/ops/risk/daily-compare?real_only=true
func (h *OpsHandler) DailyCompare(c *gin.Context) {
	realOnly := c.DefaultQuery("real_only", "true") != "false"
	report, err := h.reportService.DailyCompare(middleware.GetUser(c), realOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, report)
}

func pagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	return page, pageSize
}

// RegisterRoutes registers ops routes
func (h *OpsHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	adminMW := middleware.RequireRole(models.RoleAdmin)

	ops := rg.Group("/ops", authMW)
	{
		ops.GET("/trading-enabled", h.GetTradingEnabled)
		ops.PUT("/trading-enabled", adminMW, middleware.GateLoggerMiddleware(), h.SetTradingEnabled)

		ops.POST("/strategy/assign", adminMW, h.AssignStrategy)
		ops.GET("/strategy/assignments", adminMW, h.ListAssignments)

		ops.POST("/execution/prepare", h.PrepareExecution)
		ops.POST("/execution/binance/test-order", h.BinanceTestOrder)
		ops.POST("/execution/ibkr/test-order", h.IBKRTestOrder)

		ops.POST("/maintenance/cleanup", adminMW, h.Cleanup)
		ops.POST("/security/reencrypt-exchange-secrets", adminMW, middleware.GateLoggerMiddleware(), h.ReencryptSecrets)

		ops.GET("/audit/me", h.MyAudit)
		ops.GET("/audit/all", adminMW, h.AllAudit)
		ops.GET("/audit/stream", adminMW, h.StreamAudit)

		ops.GET("/risk/daily-compare", adminMW, h.DailyCompare)
	}
}
