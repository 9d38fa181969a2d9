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
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/stms-api/api/swagger"
	"github.com/noah-isme/stms-api/internal/handler"
	"github.com/noah-isme/stms-api/internal/models"
	"github.com/noah-isme/stms-api/internal/reporting"
	"github.com/noah-isme/stms-api/internal/repository"
	"github.com/noah-isme/stms-api/internal/service"
	"github.com/noah-isme/stms-api/pkg/cache"
	"github.com/noah-isme/stms-api/pkg/config"
	"github.com/noah-isme/stms-api/pkg/database"
	"github.com/noah-isme/stms-api/pkg/export"
	"github.com/noah-isme/stms-api/pkg/jobs"
	"github.com/noah-isme/stms-api/pkg/logger"
	"github.com/noah-isme/stms-api/pkg/storage"
)

// @title STMS Reporting API
// @version 1.0.0
// @description Progress reports, activity feed and gradebook exports for the student task portal
// @BasePath /api/v1
// @schemes http

type snapshotRepository interface {
	Load(ctx context.Context) (*models.RawSnapshot, error)
	Ping(ctx context.Context) error
}

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

	loc, err := cfg.Reports.Location()
	if err != nil {
		logr.Fatal("invalid reports timezone", zap.Error(err))
	}

	source, closeSource, err := openSnapshotSource(ctx, cfg)
	if err != nil {
		logr.Fatal("failed to open snapshot source", zap.String("source", cfg.SnapshotSource), zap.Error(err))
	}
	defer closeSource()

	var redisClient *redis.Client
	if cfg.Reports.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, report cache disabled", zap.Error(err))
			redisClient = nil
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(service.CacheServiceParams{
		Repo:    cacheRepo,
		Metrics: metricsSvc,
		TTL:     cfg.Reports.CacheTTL,
		Timeout: cfg.Redis.OpTimeout,
		Logger:  logr.Named("cache"),
		Enabled: cfg.Reports.CacheEnabled && redisClient != nil,
	})
	validate := validator.New()

	var reportSvc *service.ReportService
	warmQueue := jobs.NewQueue(service.SnapshotWarmJob, func(jobCtx context.Context, _ jobs.Job) error {
		return reportSvc.Warm(jobCtx)
	}, jobs.QueueConfig{MaxRetries: 3, RetryDelay: 2 * time.Second, Logger: logr.Named("jobs")})

	reportSvc = service.NewReportService(service.ReportServiceParams{
		Source:    source,
		Cache:     cacheSvc,
		Metrics:   metricsSvc,
		Warmer:    warmQueue,
		Validator: validate,
		Logger:    logr.Named("reports"),
		Config: service.ReportServiceConfig{
			SourceName:  cfg.SnapshotSource,
			CacheTTL:    cfg.Reports.CacheTTL,
			LoadTimeout: cfg.Reports.LoadTimeout,
			Location:    loc,
			Feed: reporting.FeedOptions{
				Limit:          cfg.Feed.Limit,
				RecentWindow:   cfg.Feed.RecentWindow,
				ReminderWindow: cfg.Feed.ReminderWindow,
			},
		},
	})

	warmQueue.Start(ctx)
	defer warmQueue.Stop()
	reportSvc.ScheduleWarm()

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	csvOpts := []export.CSVOption{export.WithFormulaGuard()}
	if cfg.Exports.CSVByteOrderMark {
		csvOpts = append(csvOpts, export.WithByteOrderMark())
	}
	exportSvc := service.NewExportService(service.ExportServiceParams{
		Reports:   reportSvc,
		Storage:   exportStore,
		CSV:       export.NewCSVExporter(csvOpts...),
		Signer:    storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		Metrics:   metricsSvc,
		Validator: validate,
		Logger:    logr.Named("exports"),
		Config:    service.ExportConfig{APIPrefix: cfg.APIPrefix},
	})
	go runExportCleanup(ctx, exportSvc, cfg.Exports.CleanupInterval, logr)

	router := newRouter(routeDeps{
		cfg:      cfg,
		verifier: service.NewTokenVerifier(cfg.JWT.Secret),
		metrics:  metricsSvc,
		reports:  handler.NewReportHandler(reportSvc),
		exports:  handler.NewExportHandler(exportSvc),
		observer: handler.NewMetricsHandler(metricsSvc, map[string]handler.Pinger{
			"snapshot": source,
			"cache":    cacheRepo,
		}),
	}, logr)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "snapshot_source", cfg.SnapshotSource)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func openSnapshotSource(ctx context.Context, cfg *config.Config) (snapshotRepository, func(), error) {
	switch cfg.SnapshotSource {
	case config.SnapshotSourceMongo:
		client, db, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}
		return repository.NewMongoSnapshotRepository(db), closeFn, nil
	default:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresSnapshotRepository(db), func() { _ = db.Close() }, nil
	}
}

func runExportCleanup(ctx context.Context, exports *service.ExportService, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := exports.Cleanup(); err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
			}
		}
	}
}
