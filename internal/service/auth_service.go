package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/riskgate/internal/config"
	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/repository"
	"github.com/riskgate/pkg/crypto"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenRevoked       = errors.New("token revoked")
)

const (
	revokedTokenPrefix = "auth:revoked:"
	revokedUserPrefix  = "auth:revoked_all:"
)

// AuthService handles authentication operations. Tokens carry a jti so
// single sessions can be revoked through redis before expiry.
type AuthService struct {
	userRepo  *repository.UserRepository
	rdb       *redis.Client
	jwtConfig config.JWTConfig
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo *repository.UserRepository, rdb *redis.Client, jwtConfig config.JWTConfig) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		rdb:       rdb,
		jwtConfig: jwtConfig,
	}
}

// RegisterRequest represents the registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=100"`
}

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse represents the JWT token response
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// JWTClaims represents the JWT claims
type JWTClaims struct {
	UserID string          `json:"user_id"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Register registers a new trader account
func (s *AuthService) Register(req *RegisterRequest) (*models.User, error) {
	exists, err := s.userRepo.ExistsByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	passwordHash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         models.RoleTrader,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *AuthService) Login(req *LoginRequest) (*TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !crypto.CheckPassword(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.generateToken(user)
}

// ValidateToken validates a JWT token and returns the claims. Revocation
// is checked separately so middleware can tell the two failures apart.
func (s *AuthService) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtConfig.Secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

// IsRevoked reports whether the session behind the claims was logged
// out, either individually or by a logout-all mark newer than the token
func (s *AuthService) IsRevoked(ctx context.Context, claims *JWTClaims) (bool, error) {
	if claims.ID != "" {
		n, err := s.rdb.Exists(ctx, revokedTokenPrefix+claims.ID).Result()
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}

	markRaw, err := s.rdb.Get(ctx, revokedUserPrefix+claims.UserID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	mark, err := time.Parse(time.RFC3339, markRaw)
	if err != nil {
		// Unparseable mark: fail open rather than lock everyone out
		return false, nil
	}
	if claims.IssuedAt == nil {
		return true, nil
	}
	return !claims.IssuedAt.Time.After(mark), nil
}

// Logout revokes the single session behind the claims
func (s *AuthService) Logout(ctx context.Context, claims *JWTClaims) error {
	if claims.ID == "" {
		return nil
	}
	ttl := time.Duration(s.jwtConfig.ExpireHours) * time.Hour
	if claims.ExpiresAt != nil {
		if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
			ttl = remaining
		}
	}
	return s.rdb.Set(ctx, revokedTokenPrefix+claims.ID, "1", ttl).Err()
}

// LogoutAll revokes every session of the user issued up to now
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	ttl := time.Duration(s.jwtConfig.ExpireHours) * time.Hour
	return s.rdb.Set(ctx, revokedUserPrefix+userID, time.Now().UTC().Format(time.RFC3339), ttl).Err()
}

// generateToken generates a JWT token for a user
func (s *AuthService) generateToken(user *models.User) (*TokenResponse, error) {
	expiresIn := time.Duration(s.jwtConfig.ExpireHours) * time.Hour

	claims := &JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "riskgate",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: tokenString,
		TokenType:   "Bearer",
		ExpiresIn:   s.jwtConfig.ExpireHours * 3600,
	}, nil
}

// GetUserByID retrieves a user by ID
func (s *AuthService) GetUserByID(id string) (*models.User, error) {
	return s.userRepo.GetByID(id)
}

// GetUserByEmail retrieves a user by email
func (s *AuthService) GetUserByEmail(email string) (*models.User, error) {
	return s.userRepo.GetByEmail(email)
}

// ListUsers retrieves all users ordered by email
func (s *AuthService) ListUsers() ([]models.User, error) {
	return s.userRepo.List()
}
