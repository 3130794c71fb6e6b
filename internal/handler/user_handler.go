package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/riskgate/internal/middleware"
	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/service"
	"github.com/riskgate/pkg/response"
)

// UserHandler handles account-level API requests: exchange credentials,
// risk profile inspection and the admin profile override.
type UserHandler struct {
	authService     *service.AuthService
	secretService   *service.SecretService
	profileService  *service.ProfileService
	strategyService *service.StrategyService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(
	authService *service.AuthService,
	secretService *service.SecretService,
	profileService *service.ProfileService,
	strategyService *service.StrategyService,
) *UserHandler {
	return &UserHandler{
		authService:     authService,
		secretService:   secretService,
		profileService:  profileService,
		strategyService: strategyService,
	}
}

// SaveSecretRequest carries plaintext credentials to be encrypted at rest
type SaveSecretRequest struct {
	APIKey    string `json:"api_key" binding:"required,min=8"`
	APISecret string `json:"api_secret" binding:"required,min=8"`
}

// SaveSecret upserts the caller's credentials for one exchange
// PUT /api/v1/users/me/exchange-secrets/:exchange
func (h *UserHandler) SaveSecret(c *gin.Context) {
	exchange, ok := pathExchange(c)
	if !ok {
		return
	}

	var req SaveSecretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.secretService.Save(middleware.GetUser(c), exchange, req.APIKey, req.APISecret); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"exchange": exchange, "saved": true})
}

// ListSecrets returns which exchanges the caller has credentials for.
// Ciphertext and plaintext never appear in the response.
// GET /api/v1/users/me/exchange-secrets
func (h *UserHandler) ListSecrets(c *gin.Context) {
	views, err := h.secretService.List(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, views)
}

// DeleteSecret removes the caller's credentials for one exchange
// DELETE /api/v1/users/me/exchange-secrets/:exchange
func (h *UserHandler) DeleteSecret(c *gin.Context) {
	exchange, ok := pathExchange(c)
	if !ok {
		return
	}
	if err := h.secretService.Delete(middleware.GetUser(c), exchange); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"exchange": exchange, "deleted": true})
}

// MyRiskProfile returns the profile currently governing the caller
// GET /api/v1/users/me/risk-profile
func (h *UserHandler) MyRiskProfile(c *gin.Context) {
	profile, err := h.profileService.Resolve(middleware.GetUserID(c), middleware.GetEmail(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, profile)
}

// MyStrategies returns the caller's strategy resolution per exchange
// GET /api/v1/users/me/strategies
func (h *UserHandler) MyStrategies(c *gin.Context) {
	resolutions, err := h.strategyService.ResolveAll(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resolutions)
}

// RiskProfileCatalog lists every profile the platform ships with
// GET /api/v1/users/risk-profiles
func (h *UserHandler) RiskProfileCatalog(c *gin.Context) {
	response.Success(c, h.profileService.Catalog())
}

// OverrideRequest pins a user to a named profile; empty clears
type OverrideRequest struct {
	ProfileName string `json:"profile_name"`
}

// SetRiskProfileOverride pins or clears a per-user profile override
// PUT /api/v1/users/:id/risk-profile
func (h *UserHandler) SetRiskProfileOverride(c *gin.Context) {
	targetID := c.Param("id")
	if _, err := h.authService.GetUserByID(targetID); err != nil {
		respondError(c, err)
		return
	}

	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	action, err := h.profileService.SetOverride(middleware.GetUser(c), targetID, req.ProfileName)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{
		"user_id":      targetID,
		"profile_name": req.ProfileName,
		"action":       action,
	})
}

// ListUsers returns every registered user
// GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.authService.ListUsers()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, users)
}

// RegisterRoutes registers user routes
func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	adminMW := middleware.RequireRole(models.RoleAdmin)

	users := rg.Group("/users", authMW)
	{
		users.PUT("/me/exchange-secrets/:exchange", middleware.GateLoggerMiddleware(), h.SaveSecret)
		users.GET("/me/exchange-secrets", h.ListSecrets)
		users.DELETE("/me/exchange-secrets/:exchange", h.DeleteSecret)
		users.GET("/me/risk-profile", h.MyRiskProfile)
		users.GET("/me/strategies", h.MyStrategies)

		users.GET("/risk-profiles", h.RiskProfileCatalog)
		users.GET("", adminMW, h.ListUsers)
		users.PUT("/:id/risk-profile", adminMW, h.SetRiskProfileOverride)
	}
}
