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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/parkops/parkops-api/api/swagger"
	"github.com/parkops/parkops-api/internal/handler"
	"github.com/parkops/parkops-api/internal/middleware"
	"github.com/parkops/parkops-api/internal/repository"
	"github.com/parkops/parkops-api/internal/service"
	"github.com/parkops/parkops-api/pkg/cache"
	"github.com/parkops/parkops-api/pkg/config"
	"github.com/parkops/parkops-api/pkg/database"
	"github.com/parkops/parkops-api/pkg/export"
	"github.com/parkops/parkops-api/pkg/logger"
	corsmiddleware "github.com/parkops/parkops-api/pkg/middleware/cors"
	reqidmiddleware "github.com/parkops/parkops-api/pkg/middleware/requestid"
)

// @title ParkOps Approvals API
// @version 1.0.0
// @description Approval and restock workflows for park operations staff
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	runner := database.NewRunner(db, cfg.Database.TxTimeout, metrics)

	inventoryRepo := repository.NewInventoryRequestRepository(db, runner)
	stockRepo := repository.NewStockRepository(db)
	maintenanceRepo := repository.NewMaintenanceRepository(db, runner)
	auditRepo := repository.NewAuditRepository(db)

	var baselines service.BaselineStore
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	switch {
	case err != nil:
		logr.Warn("redis unavailable, keeping notification baselines in memory", zap.Error(err))
		baselines = repository.NewMemoryBaselineRepository(cfg.Session.TTL)
	case redisClient == nil:
		baselines = repository.NewMemoryBaselineRepository(cfg.Session.TTL)
	default:
		redisBaselines := repository.NewBaselineRepository(redisClient, cfg.Session.TTL)
		defer redisBaselines.Close() //nolint:errcheck
		baselines = redisBaselines
	}

	audit := service.NewAuditDispatcher(auditRepo, cfg.Audit.Workers, cfg.Audit.Retries, logr)
	audit.Start(ctx)

	authSvc := service.NewAuthService(service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	inventorySvc := service.NewInventoryRequestService(inventoryRepo, stockRepo, audit, metrics, nil, logr)
	maintenanceSvc := service.NewMaintenanceService(maintenanceRepo, audit, metrics, nil, logr)
	notificationSvc := service.NewNotificationService(inventoryRepo, maintenanceRepo, baselines, metrics, logr)
	approvalSvc := service.NewApprovalService(inventoryRepo, maintenanceRepo, notificationSvc, export.New(), logr)

	links := handler.NewLinks(cfg.APIPrefix)
	metricsHandler := handler.NewMetricsHandler(metrics, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, actorID))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Docs.Enabled && cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Routes{
		Auth:          handler.NewAuthHandler(),
		Approvals:     handler.NewApprovalHandler(approvalSvc, cfg.Exports.Enabled),
		Inventory:     handler.NewInventoryHandler(inventorySvc, links),
		Maintenance:   handler.NewMaintenanceHandler(maintenanceSvc, links),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Tokens:        authSvc,
		Badge:         notificationSvc,
		RateLimiter:   middleware.NewActorRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst),
	}.Register(r.Group(cfg.APIPrefix))

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
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	audit.Stop(shutdownCtx)
}

func actorID(c *gin.Context) string {
	if actor := middleware.Actor(c); actor != nil {
		return actor.UserID
	}
	return ""
}
