package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/riskgate/internal/config"
	"github.com/riskgate/internal/handler"
	"github.com/riskgate/internal/middleware"
	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/repository"
	"github.com/riskgate/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubAuth injects a fixed user, standing in for the JWT middleware
func stubAuth(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUser, user)
		c.Set(middleware.ContextKeyUserID, user.ID)
		c.Set(middleware.ContextKeyEmail, user.Email)
		c.Set(middleware.ContextKeyRole, user.Role)
		c.Next()
	}
}

func newCheckRouter(t *testing.T) (*gin.Engine, *models.User, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Position{},
		&models.DailyRiskState{},
		&models.ExchangeSecret{},
		&models.AuditLog{},
		&models.RuntimeSetting{},
		&models.RiskProfileOverride{},
		&models.StrategyAssignment{},
	))

	user := &models.User{Email: "router@firm.com", PasswordHash: "x", Role: models.RoleTrader}
	require.NoError(t, repository.NewUserRepository(db).Create(user))

	audit := service.NewAuditService(repository.NewAuditRepository(db), nil, nil)
	secretRepo := repository.NewExchangeSecretRepository(db)
	secrets := service.NewSecretService(secretRepo, audit, "test-key")
	require.NoError(t, secrets.Save(user, models.ExchangeBinance, "api-key-12345", "api-secret-12345"))

	strategy := service.NewStrategyService(repository.NewStrategyAssignmentRepository(db), repository.NewUserRepository(db), audit)
	profiles := service.NewProfileService(repository.NewRiskOverrideRepository(db), audit, config.RiskConfig{DefaultProfile: "conservative_v2"})
	dailyRisk := service.NewDailyRiskService(repository.NewDailyRiskRepository(db), "UTC")
	controls := service.NewControlsService(repository.NewRuntimeSettingRepository(db), audit, config.TradingConfig{EnabledDefault: true})
	pretrade := service.NewPretradeService(strategy, profiles, dailyRisk, controls, secretRepo, repository.NewPositionRepository(db), audit)
	exits := service.NewExitService(strategy, audit)

	router := gin.New()
	v1 := router.Group("/api/v1")
	handler.NewCheckHandler(pretrade, exits).RegisterRoutes(v1, stubAuth(user))
	return router, user, db
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPretradeEndpointPasses(t *testing.T) {
	router, _, _ := newCheckRouter(t)

	w := postJSON(t, router, "/api/v1/checks/pretrade/binance", gin.H{
		"symbol":          "BTCUSDT",
		"side":            "BUY",
		"qty":             0.5,
		"rr_estimate":     1.6,
		"trend_tf":        "4H",
		"signal_tf":       "1H",
		"timing_tf":       "15M",
		"volume_24h_usdt": 100000000,
		"spread_bps":      5,
		"slippage_bps":    8,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Code int `json:"code"`
		Data struct {
			Passed     bool `json:"passed"`
			StrategyID string `json:"strategy_id"`
			Checks     []struct {
				Name   string `json:"name"`
				Passed bool   `json:"passed"`
			} `json:"checks"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 0, envelope.Code)
	assert.True(t, envelope.Data.Passed)
	assert.Equal(t, "SWING_V1", envelope.Data.StrategyID)
	assert.Len(t, envelope.Data.Checks, 13)
}

func TestPretradeEndpointRejectsUnknownExchange(t *testing.T) {
	router, _, _ := newCheckRouter(t)

	w := postJSON(t, router, "/api/v1/checks/pretrade/kraken", gin.H{
		"symbol": "BTCUSDT",
		"side":   "BUY",
		"qty":    1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPretradeEndpointValidatesBody(t *testing.T) {
	router, _, _ := newCheckRouter(t)

	// Side outside BUY/SELL fails binding before any evaluation.
	w := postJSON(t, router, "/api/v1/checks/pretrade/binance", gin.H{
		"symbol": "BTCUSDT",
		"side":   "HOLD",
		"qty":    1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPretradeEndpointConflictsOnKillSwitch(t *testing.T) {
	router, user, db := newCheckRouter(t)

	audit := service.NewAuditService(repository.NewAuditRepository(db), nil, nil)
	controls := service.NewControlsService(repository.NewRuntimeSettingRepository(db), audit, config.TradingConfig{EnabledDefault: true})
	require.NoError(t, controls.SetTradingEnabled(user, false))

	w := postJSON(t, router, "/api/v1/checks/pretrade/binance", gin.H{
		"symbol": "BTCUSDT",
		"side":   "BUY",
		"qty":    1,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestExitEndpointTriggers(t *testing.T) {
	router, _, _ := newCheckRouter(t)

	w := postJSON(t, router, "/api/v1/checks/exit/binance", gin.H{
		"side":           "BUY",
		"entry_price":    100,
		"current_price":  94,
		"stop_loss":      95,
		"take_profit":    110,
		"opened_minutes": 30,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data struct {
			ShouldExit bool     `json:"should_exit"`
			Reasons    []string `json:"reasons"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.ShouldExit)
	assert.Equal(t, []string{"stop_loss_hit"}, envelope.Data.Reasons)
}
