package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vcscsvcscs/healthlayer/internal/audit"
	"github.com/vcscsvcscs/healthlayer/internal/azure"
	"github.com/vcscsvcscs/healthlayer/internal/bridge"
	"github.com/vcscsvcscs/healthlayer/internal/config"
	"github.com/vcscsvcscs/healthlayer/internal/handler"
	"github.com/vcscsvcscs/healthlayer/internal/healthlayer"
	"github.com/vcscsvcscs/healthlayer/internal/middleware"
	"github.com/vcscsvcscs/healthlayer/internal/pdf"
	"github.com/vcscsvcscs/healthlayer/internal/security"
	"github.com/vcscsvcscs/healthlayer/internal/service"
	"github.com/vcscsvcscs/healthlayer/pkg/api"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("Invalid time zone", zap.Error(err))
	}

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("platform", cfg.Health.Platform),
		zap.String("timezone", loc.String()),
		zap.String("bridge_url", cfg.Bridge.URL),
	)

	ctx := context.Background()

	// Device bridge clients
	bridgeOpts := bridge.Options{BaseURL: cfg.Bridge.URL, Timeout: cfg.Bridge.Timeout}
	healthConnect, err := bridge.NewHealthConnectClient(bridgeOpts, logger.Named("bridge"))
	if err != nil {
		logger.Fatal("Failed to initialize Health Connect bridge client", zap.Error(err))
	}
	healthKit, err := bridge.NewHealthKitClient(bridgeOpts, logger.Named("bridge"))
	if err != nil {
		logger.Fatal("Failed to initialize HealthKit bridge client", zap.Error(err))
	}

	layer := healthlayer.New(
		healthlayer.Runtime{OS: cfg.Health.Platform},
		healthlayer.Backends{HealthConnect: healthConnect, HealthKit: healthKit, Location: loc},
		logger,
	)

	// Audit trail, optional
	var (
		recorder audit.Recorder = audit.NopRecorder{}
		pool     *pgxpool.Pool
	)
	if cfg.Database.URL != "" {
		pool, err = newPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		auditLogger := audit.NewLogger(pool, logger)
		if err := auditLogger.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to prepare audit schema", zap.Error(err))
		}
		recorder = auditLogger
		logger.Info("Successfully connected to database")
	} else {
		logger.Warn("DATABASE_URL not set, health access audit disabled")
	}

	// Report storage
	var storage azure.ReportStorage
	if cfg.Azure.Storage.Enabled() {
		blobClient, err := azure.NewBlobStorageClient(azure.BlobOptions{
			ConnectionString: cfg.Azure.Storage.ConnectionString,
			AccountName:      cfg.Azure.Storage.AccountName,
			AccountKey:       cfg.Azure.Storage.AccountKey,
			Endpoint:         cfg.Azure.Storage.BlobEndpoint,
			Container:        cfg.Azure.Storage.ReportContainer,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Azure Blob Storage client", zap.Error(err))
		}
		if err := blobClient.EnsureContainer(ctx); err != nil {
			logger.Fatal("Failed to prepare report container", zap.Error(err))
		}
		storage = blobClient
	} else {
		logger.Warn("Azure storage not configured, reports are kept in memory")
		storage = azure.NewMockBlobStorageClient(logger)
	}

	if cfg.Security.ReportKey != "" {
		key, err := security.ParseKey(cfg.Security.ReportKey)
		if err != nil {
			logger.Fatal("Invalid report encryption key", zap.Error(err))
		}
		encryptor, err := security.NewEncryptor(key)
		if err != nil {
			logger.Fatal("Failed to initialize report encryption", zap.Error(err))
		}
		storage = security.NewSealedStorage(storage, encryptor, logger)
		logger.Info("Report encryption at rest enabled")
	}

	// Services
	healthDataService := service.NewHealthDataService(layer, recorder, logger)
	reportService := service.NewReportService(layer, storage, pdf.NewPDFGenerator(logger), recorder, layer.Platform(), logger)

	// Handlers
	var db handler.Pinger
	if pool != nil {
		db = pool
	}
	apiHandler := handler.NewAPIHandler(
		handler.NewHealthHandler(healthDataService, loc, logger),
		handler.NewReportHandler(reportService, loc, logger),
		layer.Platform(),
		db,
		logger,
	)

	doc, err := api.GetSwagger()
	if err != nil {
		logger.Fatal("Failed to load OpenAPI document", zap.Error(err))
	}
	validator, err := middleware.OpenAPIValidator(doc, logger)
	if err != nil {
		logger.Fatal("Failed to initialize request validator", zap.Error(err))
	}

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Recovery must be first
	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", middleware.ActorHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ActorMiddleware())
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.ErrorLoggingMiddleware(logger))
	r.Use(validator)

	api.RegisterHandlersWithOptions(r, apiHandler, api.GinServerOptions{
		ErrorHandler: handler.ParameterErrorHandler,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newLogger builds the production logger in production and the development
// logger elsewhere, then applies the configured level and encoding
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.Server.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Encoding = cfg.Logging.Format

	return zapCfg.Build()
}

func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
