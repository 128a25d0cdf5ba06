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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/examdesk/colloquium-api/api/swagger"
	"github.com/examdesk/colloquium-api/internal/handler"
	"github.com/examdesk/colloquium-api/internal/middleware"
	"github.com/examdesk/colloquium-api/internal/repository"
	"github.com/examdesk/colloquium-api/internal/service"
	"github.com/examdesk/colloquium-api/pkg/cache"
	"github.com/examdesk/colloquium-api/pkg/config"
	"github.com/examdesk/colloquium-api/pkg/database"
	"github.com/examdesk/colloquium-api/pkg/logger"
	corsmiddleware "github.com/examdesk/colloquium-api/pkg/middleware/cors"
	reqidmiddleware "github.com/examdesk/colloquium-api/pkg/middleware/requestid"
)

// @title Colloquium Planning API
// @version 1.0.0
// @description Oral exam scheduling for bachelor and master colloquia
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	users := repository.NewUserRepository(db)
	exams := repository.NewExamRepository(db)
	staff := repository.NewStaffRepository(db)
	settings := repository.NewSettingsRepository(db)
	events := repository.NewEventRepository(db)
	versions := repository.NewVersionRepository(db)
	planCache := repository.NewCacheRepository(redisClient)

	validate := validator.New()
	metrics := service.NewMetricsService()

	schedulerOpts := service.SchedulerOptions{
		CacheTTL:            cfg.Scheduler.PlanCacheTTL,
		BreakMinutes:        cfg.Scheduler.BreakMinutes,
		GapToleranceMinutes: cfg.Scheduler.GapToleranceMin,
		MaxConsecutive:      cfg.Scheduler.MaxConsecutive,
		ScanStepMinutes:     cfg.Scheduler.ScanStepMinutes,
		MergeStepMinutes:    cfg.Scheduler.MergeStepMinutes,
		MaxAlternatives:     cfg.Scheduler.MaxAlternativeSlots,
	}

	authService := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "colloquium-api",
	})
	examService := service.NewExamService(exams, staff, validate, logr)
	staffService := service.NewStaffService(staff, settings, validate, logr, schedulerOpts)
	settingsService := service.NewSettingsService(settings, validate, logr, schedulerOpts)
	planService := service.NewPlanService(exams, staff, settings, events, versions, planCache, metrics, validate, logr, schedulerOpts)
	mergeService := service.NewMergeService(exams, staff, settings, events, planCache, validate, logr, schedulerOpts)
	exportService := service.NewExportService(versions, events, exams, staff, service.ExportConfig{PDFTitle: cfg.Exports.PDFTitle}, logr, nil, nil, nil)
	importService := service.NewImportService(staff, exams, logr)

	handlers := handler.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Exams:    handler.NewExamHandler(examService),
		Staff:    handler.NewStaffHandler(staffService),
		Settings: handler.NewSettingsHandler(settingsService),
		Plans:    handler.NewPlanHandler(planService),
		Merges:   handler.NewMergeHandler(mergeService),
		Exports:  handler.NewExportHandler(exportService),
		Imports:  handler.NewImportHandler(importService),
		Metrics:  handler.NewMetricsHandler(metrics),
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", handlers.Metrics.Health)
	r.GET("/ready", handlers.Metrics.Health)
	r.GET("/metrics", handlers.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, authService)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
