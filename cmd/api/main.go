package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/ardiansr/mediqueue/config"
	"github.com/ardiansr/mediqueue/internal/adapter/inference"
	"github.com/ardiansr/mediqueue/internal/cache"
	"github.com/ardiansr/mediqueue/internal/domain"
	apihandler "github.com/ardiansr/mediqueue/internal/handler/api"
	"github.com/ardiansr/mediqueue/internal/queue"
	"github.com/ardiansr/mediqueue/internal/repository/postgres"
	redisrepo "github.com/ardiansr/mediqueue/internal/repository/redis"
	"github.com/ardiansr/mediqueue/internal/storage"
	"github.com/ardiansr/mediqueue/internal/usecase"
	"github.com/ardiansr/mediqueue/internal/worker"
	"github.com/ardiansr/mediqueue/pkg/auth"
	"github.com/ardiansr/mediqueue/pkg/logger"
	"github.com/ardiansr/mediqueue/pkg/observability"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	// Initialize logger
	logger.Init(cfg.App.Environment)
	defer logger.Close()

	// Print configuration in development mode
	if cfg.App.IsDevelopment() {
		cfg.Print()
	}

	// Initialize database connection
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.Close()

	db.SetMaxIdleConns(cfg.Database.MaxIdle)
	db.SetMaxOpenConns(cfg.Database.MaxOpen)
	db.SetConnMaxLifetime(cfg.Database.MaxLife)

	// Initialize the receipt list cache: Redis when enabled, otherwise
	// a process-local cache.
	var receiptCache domain.ReceiptCache
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})

		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
		}
		defer rdb.Close()

		receiptCache = redisrepo.NewCacheRepository(rdb)
		logger.Info("Database and Redis connections established")
	} else {
		receiptCache = cache.NewMemoryCache()
		logger.Info("Database connection established, using in-memory cache")
	}

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	hospitalRepo := postgres.NewHospitalRepository(db)
	receiptRepo := postgres.NewReceiptRepository(db)

	// Initialize artifact store
	var artifactStore domain.ArtifactStore
	if cfg.Storage.BaseURL != "" {
		artifactStore = storage.NewObjectStorage(cfg.Storage)
	} else {
		artifactStore = storage.NewMemoryStorage()
		logger.Warn("No object storage configured, artifacts held in memory")
	}

	// Initialize severity classification
	boundaries := domain.TierBoundaries{
		LowMax:    cfg.Triage.LowMax,
		MediumMax: cfg.Triage.MediumMax,
	}
	var remoteClassifier domain.SeverityClassifier
	if cfg.Classifier.BaseURL != "" {
		remoteClassifier = inference.NewAdapter(cfg.Classifier, boundaries, nil)
	}
	severityUC := usecase.NewSeverityUsecase(remoteClassifier, boundaries)

	// Initialize the queue assigner and warm it from the store
	assigner := queue.NewAssigner(cfg.Queue.LockWait)

	// Initialize use cases
	receiptUC := usecase.NewReceiptUsecase(
		receiptRepo,
		hospitalRepo,
		severityUC,
		artifactStore,
		receiptCache,
		assigner,
		cfg,
	)

	// Initialize handlers
	authService := auth.NewJWTAuthService(cfg.Auth)
	receiptHandler := apihandler.NewReceiptHandler(receiptUC, cfg)
	hospitalHandler := apihandler.NewHospitalHandler(hospitalRepo)
	authHandler := apihandler.NewAuthHandler(userRepo, authService)

	// Warm partitions, then keep them reconciled in the background
	reconcileWorker := worker.NewReconcileWorker(receiptRepo, assigner, worker.ReconcileWorkerConfig{})
	reconcileWorker.ReconcileAll(context.Background())

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go reconcileWorker.Start(workerCtx)

	// Set Gin mode
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize metrics handler
	metricsHandler := observability.NewMetricsHandler()

	// Create Gin router
	router := gin.New()

	// Add middleware
	router.Use(observability.ObservabilityMiddleware())
	router.Use(corsMiddleware())

	// Setup metrics and health endpoints
	router.GET("/metrics", metricsHandler.MetricsEndpoint())
	router.GET("/health", metricsHandler.HealthEndpoint())
	router.GET("/ready", metricsHandler.ReadinessEndpoint(db.Ping))
	router.GET("/live", metricsHandler.LivenessEndpoint())

	// Setup API routes
	apihandler.SetupRoutes(router, receiptHandler, hospitalHandler, authHandler, authService)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.API.TimeoutSeconds) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server",
			logger.String("port", cfg.App.Port),
			logger.String("environment", cfg.App.Environment),
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	workerCancel()

	logger.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server exited")
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
