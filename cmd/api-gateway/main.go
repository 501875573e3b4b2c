package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable/api/swagger"
	"github.com/noah-isme/sma-timetable/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable/internal/middleware"
	"github.com/noah-isme/sma-timetable/internal/repository"
	"github.com/noah-isme/sma-timetable/internal/service"
	"github.com/noah-isme/sma-timetable/pkg/cache"
	"github.com/noah-isme/sma-timetable/pkg/config"
	"github.com/noah-isme/sma-timetable/pkg/database"
	"github.com/noah-isme/sma-timetable/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable/pkg/middleware/requestid"
	"github.com/noah-isme/sma-timetable/pkg/storage"
)

// @title SMA Timetable API
// @version 1.0.0
// @description Greedy weekly timetable generation, versioned storage and exports.
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	validate := validator.New()

	cacheRepo := repository.NewCacheRepository(nil, logr)
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, logr)
		}
	}
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	inputRepo := repository.NewTimetableInputRepository(db)
	runRepo := repository.NewTimetableRunRepository(db)
	assignmentRepo := repository.NewTimetableAssignmentRepository(db)

	timetableSvc := service.NewTimetableService(inputRepo, runRepo, assignmentRepo, db, cacheSvc, metrics, validate, logr, service.TimetableConfig{
		ProposalTTL:   cfg.Timetable.ProposalTTL,
		SolveTimeout:  cfg.Timetable.SolveTimeout,
		MaxClasses:    cfg.Timetable.MaxClasses,
		CacheTTL:      cfg.Cache.TTL,
		DefaultTermID: cfg.Timetable.ActiveTermID,
	})

	jobSvc, queue := service.NewTimetableJobService(timetableSvc, metrics, validate, logr, service.TimetableJobConfig{
		Workers:       cfg.Timetable.Workers,
		MaxRetries:    cfg.Timetable.JobRetries,
		RetryDelay:    5 * time.Second,
		DefaultTermID: cfg.Timetable.ActiveTermID,
	})

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to init export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewTimetableExportService(timetableSvc, inputRepo, exportStore, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr, nil, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)
	go runMaintenance(ctx, logr, timetableSvc, exportSvc, cfg.Exports.CleanupInterval)

	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
		"postgres": pingDB(db),
		"redis":    cacheRepo.Ping,
	})
	timetableHandler := handler.NewTimetableHandler(timetableSvc, jobSvc, exportSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Snapshot)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	timetables := api.Group("/timetables")
	{
		timetables.POST("/generate", timetableHandler.Generate)
		timetables.POST("/save", timetableHandler.Save)
		timetables.POST("/jobs", timetableHandler.EnqueueJob)
		timetables.GET("/jobs/:id", timetableHandler.JobStatus)
		timetables.GET("/runs", timetableHandler.ListRuns)
		timetables.GET("/runs/:id", timetableHandler.GetRun)
		timetables.GET("/runs/:id/assignments", timetableHandler.Assignments)
		timetables.POST("/runs/:id/publish", timetableHandler.Publish)
		timetables.DELETE("/runs/:id", timetableHandler.Delete)
		timetables.POST("/runs/:id/export", timetableHandler.Export)
		timetables.GET("/exports/:token", timetableHandler.Download)
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
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	queue.Stop()
}

func pingDB(db *sqlx.DB) handler.ReadinessCheck {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}

// runMaintenance drops expired proposals and removes exports past their link lifetime.
func runMaintenance(ctx context.Context, logr *zap.Logger, timetables *service.TimetableService, exports *service.TimetableExportService, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := timetables.SweepProposals(); n > 0 {
				logr.Debug("expired proposals swept", zap.Int("count", n))
			}
			if _, err := exports.Cleanup(); err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
			}
		}
	}
}
