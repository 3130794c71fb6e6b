package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/riskgate/internal/config"
	"github.com/riskgate/internal/execution"
	"github.com/riskgate/internal/handler"
	"github.com/riskgate/internal/middleware"
	"github.com/riskgate/internal/models"
	"github.com/riskgate/internal/notify"
	"github.com/riskgate/internal/repository"
	"github.com/riskgate/internal/service"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Build info (injected at build time via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	if err := middleware.InitLogger("logs"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// Initialize database
	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis
	rdb := initRedis(cfg)

	// Auto migrate database
	if err := autoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	signalRepo := repository.NewSignalRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	dailyRiskRepo := repository.NewDailyRiskRepository(db)
	secretRepo := repository.NewExchangeSecretRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	idemRepo := repository.NewIdempotencyRepository(db)
	settingRepo := repository.NewRuntimeSettingRepository(db)
	overrideRepo := repository.NewRiskOverrideRepository(db)
	assignmentRepo := repository.NewStrategyAssignmentRepository(db)

	// Initialize services
	auditHub := service.NewAuditHub()
	notifier := notify.NewTelegramNotifier(cfg.Telegram)
	var auditNotifier service.Notifier
	if notifier != nil {
		auditNotifier = notifier
	}
	auditService := service.NewAuditService(auditRepo, auditHub, auditNotifier)

	authService := service.NewAuthService(userRepo, rdb, cfg.JWT)
	profileService := service.NewProfileService(overrideRepo, auditService, cfg.Risk)
	dailyRiskService := service.NewDailyRiskService(dailyRiskRepo, cfg.Trading.Timezone)
	strategyService := service.NewStrategyService(assignmentRepo, userRepo, auditService)
	controlsService := service.NewControlsService(settingRepo, auditService, cfg.Trading)
	idemService := service.NewIdempotencyService(idemRepo)
	secretService := service.NewSecretService(secretRepo, auditService, cfg.Encryption.AESKey)
	signalService := service.NewSignalService(signalRepo, auditService)

	pretradeService := service.NewPretradeService(
		strategyService,
		profileService,
		dailyRiskService,
		controlsService,
		secretRepo,
		positionRepo,
		auditService,
	)
	exitService := service.NewExitService(strategyService, auditService)
	positionService := service.NewPositionService(
		db,
		positionRepo,
		signalRepo,
		profileService,
		dailyRiskService,
		controlsService,
		idemService,
		auditService,
	)
	executionService := service.NewExecutionService(
		strategyService,
		controlsService,
		secretService,
		auditService,
		execution.NewBinanceClient(cfg.Trading.BinanceBaseURL),
		execution.NewIBKRClient(cfg.Trading.IBKRBridgeURL),
	)
	reportService := service.NewReportService(userRepo, positionRepo, auditRepo, profileService, dailyRiskService)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	signalHandler := handler.NewSignalHandler(signalService)
	positionHandler := handler.NewPositionHandler(positionService)
	checkHandler := handler.NewCheckHandler(pretradeService, exitService)
	userHandler := handler.NewUserHandler(authService, secretService, profileService, strategyService)
	opsHandler := handler.NewOpsHandler(
		controlsService,
		strategyService,
		executionService,
		secretService,
		idemService,
		auditService,
		reportService,
		auditHub,
		time.Duration(cfg.Trading.IdempotencyMaxAgeHours)*time.Hour,
	)

	// Create Gin router
	router := gin.Default()

	// Add request logging middleware (logs all requests with error details)
	router.Use(middleware.RequestLoggerMiddleware())

	// Add CORS middleware
	router.Use(corsMiddleware())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
			"time":       time.Now().Unix(),
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		authMiddleware := middleware.AuthMiddleware(authService)

		authHandler.RegisterRoutes(v1, authMiddleware)
		signalHandler.RegisterRoutes(v1, authMiddleware)
		positionHandler.RegisterRoutes(v1, authMiddleware)
		checkHandler.RegisterRoutes(v1, authMiddleware)
		userHandler.RegisterRoutes(v1, authMiddleware)
		opsHandler.RegisterRoutes(v1, authMiddleware)
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 10 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Close Redis connection
	if err := rdb.Close(); err != nil {
		log.Printf("Error closing Redis connection: %v", err)
	}

	log.Println("Server exited properly")
}

func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.Server.Mode == "release" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	// TranslateError lets callers match gorm.ErrDuplicatedKey on the
	// unique-index races the gate relies on.
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
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
	)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, Idempotency-Key")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
