package service_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/riskgate/internal/config"
	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/repository"
	"github.com/riskgate/internal/service"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database per test. TranslateError
// is on so unique-index violations surface as gorm.ErrDuplicatedKey, same
// as the postgres setup in production.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the shared-cache memory DB alive and
	// sidesteps sqlite table-lock errors under concurrent tests.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Signal{},
		&models.Position{},
		&models.DailyRiskState{},
		&models.ExchangeSecret{},
		&models.AuditLog{},
		&models.IdempotencyKey{},
		&models.RuntimeSetting{},
		&models.RiskProfileOverride{},
		&models.StrategyAssignment{},
	))
	return db
}

// testEnv wires the full service graph over one test database
type testEnv struct {
	db *gorm.DB

	userRepo     *repository.UserRepository
	signalRepo   *repository.SignalRepository
	positionRepo *repository.PositionRepository
	dailyRepo    *repository.DailyRiskRepository
	secretRepo   *repository.ExchangeSecretRepository
	auditRepo    *repository.AuditRepository
	settingRepo  *repository.RuntimeSettingRepository

	audit     *service.AuditService
	profiles  *service.ProfileService
	dailyRisk *service.DailyRiskService
	strategy  *service.StrategyService
	controls  *service.ControlsService
	idem      *service.IdempotencyService
	secrets   *service.SecretService
	signals   *service.SignalService
	positions *service.PositionService
	pretrade  *service.PretradeService
	exits     *service.ExitService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)

	env := &testEnv{
		db:           db,
		userRepo:     repository.NewUserRepository(db),
		signalRepo:   repository.NewSignalRepository(db),
		positionRepo: repository.NewPositionRepository(db),
		dailyRepo:    repository.NewDailyRiskRepository(db),
		secretRepo:   repository.NewExchangeSecretRepository(db),
		auditRepo:    repository.NewAuditRepository(db),
		settingRepo:  repository.NewRuntimeSettingRepository(db),
	}

	tradingCfg := config.TradingConfig{
		EnabledDefault: true,
		Timezone:       "UTC",
		MaxQtyPerSymbol: map[string]float64{
			"BTCUSDT": 5,
		},
		MaxNotionalPerExchange: map[string]float64{
			"BINANCE": 250000,
		},
		IdempotencyMaxAgeHours: 48,
	}
	riskCfg := config.RiskConfig{
		DefaultProfile: "conservative_v2",
		ProfileByEmail: map[string]string{
			"vip@firm.com": "relaxed_v1",
		},
	}

	env.audit = service.NewAuditService(env.auditRepo, nil, nil)
	env.profiles = service.NewProfileService(repository.NewRiskOverrideRepository(db), env.audit, riskCfg)
	env.dailyRisk = service.NewDailyRiskService(env.dailyRepo, tradingCfg.Timezone)
	env.strategy = service.NewStrategyService(repository.NewStrategyAssignmentRepository(db), env.userRepo, env.audit)
	env.controls = service.NewControlsService(env.settingRepo, env.audit, tradingCfg)
	env.idem = service.NewIdempotencyService(repository.NewIdempotencyRepository(db))
	env.secrets = service.NewSecretService(env.secretRepo, env.audit, "test-aes-key")
	env.signals = service.NewSignalService(env.signalRepo, env.audit)
	env.positions = service.NewPositionService(
		db,
		env.positionRepo,
		env.signalRepo,
		env.profiles,
		env.dailyRisk,
		env.controls,
		env.idem,
		env.audit,
	)
	env.pretrade = service.NewPretradeService(
		env.strategy,
		env.profiles,
		env.dailyRisk,
		env.controls,
		env.secretRepo,
		env.positionRepo,
		env.audit,
	)
	env.exits = service.NewExitService(env.strategy, env.audit)

	return env
}

func (e *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "x",
		Role:         models.RoleTrader,
	}
	require.NoError(t, e.userRepo.Create(user))
	return user
}

func (e *testEnv) createExecutingSignal(t *testing.T, userID, symbol string, entry float64) *models.Signal {
	t.Helper()
	stop := entry * 0.98
	take := entry * 1.04
	signal := &models.Signal{
		UserID:     userID,
		Symbol:     symbol,
		Side:       models.SignalSideBuy,
		Status:     models.SignalStatusExecuting,
		Module:     "swing",
		EntryPrice: &entry,
		StopLoss:   &stop,
		TakeProfit: &take,
	}
	require.NoError(t, e.signalRepo.Create(signal))
	return signal
}

// backdatePositionTimes pushes every position timestamp of a user far
// enough into the past that cooldown checks pass
func (e *testEnv) backdatePositionTimes(t *testing.T, userID string) {
	t.Helper()
	past := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, e.db.Model(&models.Position{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{"opened_at": past, "closed_at": nil}).Error)
}

func (e *testEnv) auditActions(t *testing.T, userID string) []string {
	t.Helper()
	var entries []models.AuditLog
	require.NoError(t, e.db.Where("user_id = ?", userID).Order("created_at asc, id asc").Find(&entries).Error)
	actions := make([]string, 0, len(entries))
	for _, entry := range entries {
		actions = append(actions, entry.Action)
	}
	return actions
}
