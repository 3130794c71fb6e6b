package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/riskgate/internal/middleware"
	"github.com/riskgate/internal/service"
	"github.com/riskgate/pkg/response"
)

// AuthHandler handles authentication API requests
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register handles user registration
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.authService.Register(&req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			response.BadRequest(c, "email already registered")
			return
		}
		response.InternalError(c, "failed to register user")
		return
	}

	response.Created(c, gin.H{
		"id":    user.ID,
		"email": user.Email,
		"role":  user.Role,
	})
}

// Login handles user login
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	token, err := h.authService.Login(&req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "invalid email or password")
			return
		}
		response.InternalError(c, "failed to login")
		return
	}

	response.Success(c, token)
}

// Logout revokes the current session token
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Unauthorized(c, "missing session")
		return
	}
	if err := h.authService.Logout(c.Request.Context(), claims); err != nil {
		response.InternalError(c, "failed to logout")
		return
	}
	response.Success(c, gin.H{"revoked": true})
}

// LogoutAll revokes every session of the current user
// POST /api/v1/auth/logout-all
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	if err := h.authService.LogoutAll(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		response.InternalError(c, "failed to logout")
		return
	}
	response.Success(c, gin.H{"revoked_all": true})
}

// Me returns the authenticated user
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	response.Success(c, middleware.GetUser(c))
}

// RegisterRoutes registers auth routes
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", authMW, h.Logout)
		auth.POST("/logout-all", authMW, h.LogoutAll)
		auth.GET("/me", authMW, h.Me)
	}
}
