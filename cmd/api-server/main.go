package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/nutricare-ph/nutricare-api/api/swagger"
	"github.com/nutricare-ph/nutricare-api/internal/handler"
	"github.com/nutricare-ph/nutricare-api/internal/middleware"
	"github.com/nutricare-ph/nutricare-api/internal/models"
	"github.com/nutricare-ph/nutricare-api/internal/repository"
	"github.com/nutricare-ph/nutricare-api/internal/service"
	"github.com/nutricare-ph/nutricare-api/pkg/cache"
	"github.com/nutricare-ph/nutricare-api/pkg/config"
	"github.com/nutricare-ph/nutricare-api/pkg/database"
	"github.com/nutricare-ph/nutricare-api/pkg/jobs"
	"github.com/nutricare-ph/nutricare-api/pkg/logger"
	corsmiddleware "github.com/nutricare-ph/nutricare-api/pkg/middleware/cors"
	reqidmiddleware "github.com/nutricare-ph/nutricare-api/pkg/middleware/requestid"
	"github.com/nutricare-ph/nutricare-api/pkg/storage"
)

// @title NutriCare Analytics API
// @version 1.0.0
// @description Risk and progress analytics for the child nutrition monitoring program
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Nutrition.CacheEnabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, report cache disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	patientRepo := repository.NewPatientRepository(db)
	barangayRepo := repository.NewBarangayRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Nutrition.CacheTTL, logr,
		cfg.Nutrition.CacheEnabled && redisClient != nil)

	classifier := service.NewClassifier(models.SeverityThresholds{
		Severe:       cfg.Nutrition.SevereBMI,
		Underweight:  cfg.Nutrition.UnderweightBMI,
		Malnourished: cfg.Nutrition.MalnourishedBMI,
	})
	detector := service.NewTrendDetector(classifier)

	distributionSvc := service.NewDistributionService(patientRepo, barangayRepo, classifier, cacheSvc, logr,
		service.DistributionServiceConfig{CacheTTL: cfg.Nutrition.CacheTTL})
	progressSvc := service.NewProgressService(patientRepo, patientRepo, detector, cacheSvc, logr,
		service.ProgressServiceConfig{WindowMonths: cfg.Nutrition.WindowMonths, CacheTTL: cfg.Nutrition.CacheTTL})

	patientSvc := service.NewPatientService(patientRepo, validate, cacheSvc, auditRepo, logr)
	inventorySvc := service.NewInventoryService(inventoryRepo, models.StockThresholds{
		Low:      cfg.Inventory.LowStockThreshold,
		Critical: cfg.Inventory.CriticalThreshold,
	}, validate, auditRepo, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     "nutricare-api",
	})

	bulkSvc := service.NewBulkService(cfg.Bulk.WorkerConcurrency, auditRepo, metricsSvc, logr)
	patientMutator := service.NewPatientMutator(patientRepo)
	userMutator := service.NewUserMutator(userRepo)

	var reportSvc *service.ReportService
	if cfg.Reports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportSvc := service.NewExportService(service.ExportServiceParams{
			Distribution: distributionSvc,
			Progress:     progressSvc,
			Patients:     patientSvc,
			Inventory:    inventorySvc,
			Storage:      store,
			Signer:       signer,
			Logger:       logr,
			Config: service.ExportConfig{
				APIPrefix: cfg.APIPrefix,
				ResultTTL: cfg.Reports.SignedURLTTL,
			},
		})
		worker := service.NewReportWorker(reportRepo, exportSvc, metricsSvc, cfg.Reports.WorkerRetries, logr)
		queue := jobs.NewQueue("report-exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()

		reportSvc = service.NewReportService(reportRepo, queue, exportSvc, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: time.Hour,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	patientHandler := handler.NewPatientHandler(patientSvc, bulkSvc, patientMutator)
	analyticsHandler := handler.NewAnalyticsHandler(distributionSvc, progressSvc)
	inventoryHandler := handler.NewInventoryHandler(inventorySvc)
	userHandler := handler.NewUserHandler(userSvc, bulkSvc, userMutator)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", middleware.Audit(auditRepo, "USER_LOGIN", "auth"), authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.POST("/auth/change-password", authHandler.ChangePassword)

	staff := authed.Group("")
	staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleNutritionist))
	{
		staff.GET("/patients", patientHandler.List)
		staff.POST("/patients", patientHandler.Create)
		staff.GET("/patients/:id", patientHandler.Get)
		staff.PUT("/patients/:id", patientHandler.Update)
		staff.POST("/patients/:id/archive", patientHandler.Archive)
		staff.POST("/patients/:id/unarchive", patientHandler.Unarchive)
		staff.POST("/patients/bulk", patientHandler.BulkAction)

		staff.GET("/analytics/distribution", analyticsHandler.Distribution)
		staff.GET("/analytics/progress", analyticsHandler.Progress)
		staff.GET("/analytics/map", analyticsHandler.MapData)
		staff.GET("/analytics/patients/:id/trend", analyticsHandler.PatientTrend)

		staff.GET("/inventory", inventoryHandler.List)
		staff.POST("/inventory", inventoryHandler.Create)
		staff.GET("/inventory/alerts", inventoryHandler.Alerts)
		staff.GET("/inventory/:id", inventoryHandler.Get)
		staff.PUT("/inventory/:id", inventoryHandler.Update)
		staff.DELETE("/inventory/:id", inventoryHandler.Delete)
	}

	admin := authed.Group("")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/users", userHandler.List)
		admin.POST("/users", userHandler.Create)
		admin.GET("/users/:id", userHandler.Get)
		admin.PUT("/users/:id", userHandler.Update)
		admin.POST("/users/bulk", userHandler.BulkAction)

		admin.GET("/metrics/summary", metricsHandler.Snapshot)
	}

	if reportSvc != nil {
		reportHandler := handler.NewReportHandler(reportSvc)
		// Download is authenticated by the signed token itself.
		api.GET("/reports/export/:token", reportHandler.Download)
		staff.POST("/reports/export", reportHandler.Create)
		staff.GET("/reports/:id/status", reportHandler.Status)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("graceful shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}
