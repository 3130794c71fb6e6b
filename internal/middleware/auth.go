package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/service"
	"github.com/riskgate/pkg/response"
)

const (
	// ContextKeyUser is the key for the loaded user in gin context
	ContextKeyUser = "user"
	// ContextKeyUserID is the key for user ID in gin context
	ContextKeyUserID = "user_id"
	// ContextKeyEmail is the key for email in gin context
	ContextKeyEmail = "email"
	// ContextKeyRole is the key for the role in gin context
	ContextKeyRole = "role"
	// ContextKeyClaims is the key for the raw JWT claims in gin context
	ContextKeyClaims = "claims"
)

// AuthMiddleware creates a JWT authentication middleware. The user row
// is loaded on every request so a role change or account disable takes
// effect immediately, not at token expiry.
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		revoked, err := authService.IsRevoked(c.Request.Context(), claims)
		if err != nil {
			response.InternalError(c, "session check failed")
			c.Abort()
			return
		}
		if revoked {
			response.Unauthorized(c, "token revoked")
			c.Abort()
			return
		}

		user, err := authService.GetUserByID(claims.UserID)
		if err != nil {
			response.Unauthorized(c, "user not found")
			c.Abort()
			return
		}
		if user.Role == models.RoleDisabled {
			response.Forbidden(c, "account disabled")
			c.Abort()
			return
		}

		c.Set(ContextKeyUser, user)
		c.Set(ContextKeyUserID, user.ID)
		c.Set(ContextKeyEmail, user.Email)
		c.Set(ContextKeyRole, user.Role)
		c.Set(ContextKeyClaims, claims)

		c.Next()
	}
}

// RequireRole rejects requests whose authenticated user lacks the role
func RequireRole(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != role {
			response.Forbidden(c, "insufficient privileges")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUser gets the authenticated user from the gin context
func GetUser(c *gin.Context) *models.User {
	user, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil
	}
	return user.(*models.User)
}

// GetUserID gets the user ID from the gin context
func GetUserID(c *gin.Context) string {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return ""
	}
	return userID.(string)
}

// GetEmail gets the email from the gin context
func GetEmail(c *gin.Context) string {
	email, exists := c.Get(ContextKeyEmail)
	if !exists {
		return ""
	}
	return email.(string)
}

// GetRole gets the role from the gin context
func GetRole(c *gin.Context) models.UserRole {
	role, exists := c.Get(ContextKeyRole)
	if !exists {
		return ""
	}
	return role.(models.UserRole)
}

// GetClaims gets the JWT claims from the gin context
func GetClaims(c *gin.Context) *service.JWTClaims {
	claims, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	return claims.(*service.JWTClaims)
}
