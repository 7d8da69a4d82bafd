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

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-bulletin-core/api/swagger"
	"github.com/noah-isme/sma-bulletin-core/internal/period"
	"github.com/noah-isme/sma-bulletin-core/internal/repository"
	"github.com/noah-isme/sma-bulletin-core/internal/service"
	"github.com/noah-isme/sma-bulletin-core/pkg/cache"
	"github.com/noah-isme/sma-bulletin-core/pkg/config"
	"github.com/noah-isme/sma-bulletin-core/pkg/database"
	"github.com/noah-isme/sma-bulletin-core/pkg/firestore"
	"github.com/noah-isme/sma-bulletin-core/pkg/logger"
)

// @title SMA Bulletin Core
// @version 1.0.0
// @description Period resolution, statistics, bulletin validation and dashboards over the school read models.
// @BasePath /api/v1
// @schemes http https
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	fsClient, err := firestore.NewClient(ctx, cfg.Firebase)
	if err != nil {
		return err
	}
	if fsClient != nil {
		defer fsClient.Close() //nolint:errcheck
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, shared cache disabled", zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Warn("audit database unavailable, validation audit disabled", zap.Error(err))
	}
	if db != nil {
		defer db.Close() //nolint:errcheck
	}

	metrics := service.NewMetricsService()
	validate := validator.New()
	resolver := period.NewResolver(cfg.Periods.TieBreak)

	var (
		source       service.RecordSource
		comments     = service.CommentWriter(repository.OfflineWriter{})
		periodWriter = service.PeriodWriter(repository.OfflineWriter{})
		gradeWriter  = service.GradeWriter(repository.OfflineGradeWriter{})
	)
	if cfg.BackendConfigured() && fsClient != nil {
		source = repository.NewFirestoreSource(fsClient, logr)
		comments = repository.NewFirestoreCommentWriter(fsClient)
		periodWriter = repository.NewFirestorePeriodWriter(fsClient)
		gradeWriter = repository.NewFirestoreGradeWriter(fsClient)
	} else {
		static, err := repository.NewStaticSource(cfg.Firebase.OfflineSeedFile, logr)
		if err != nil {
			return err
		}
		source = static
		logr.Warn("no document store configured, serving the offline dataset with no-op writes",
			zap.String("seed_file", cfg.Firebase.OfflineSeedFile))
	}

	var audit service.AuditRecorder
	if db != nil {
		auditRepo := repository.NewValidationAuditRepository(db)
		if err := auditRepo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure audit schema: %w", err)
		}
		audit = auditRepo
	}

	cacheRepo := repository.NewCacheRepository(redisClient, "bulletin", logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(service.CacheServiceParams{
		Repo:       cacheRepo,
		Metrics:    metrics,
		Logger:     logr,
		Namespace:  cfg.Env,
		DefaultTTL: cfg.Dashboard.CacheTTL,
		Enabled:    cacheRepo.Enabled(),
	})

	registry := service.NewWorkspaceRegistry(ctx, source, resolver, metrics, service.WorkspaceRegistryConfig{
		IdleTTL: cfg.Workspaces.IdleTTL,
		Sync: service.SyncServiceConfig{
			Workers:    cfg.Sync.Workers,
			Retries:    cfg.Sync.Retries,
			RetryDelay: cfg.Sync.RetryDelay,
		},
	}, logr)
	defer registry.Close()

	app := &application{
		cfg:      cfg,
		logger:   logr,
		metrics:  metrics,
		tokens:   service.NewTokenService(cfg.JWT.Secret),
		registry: registry,
		periods:  service.NewPeriodService(resolver, periodWriter, logr),
		grades:   service.NewGradeService(gradeWriter, validate, logr),
		bulletins: service.NewBulletinService(service.BulletinServiceParams{
			Comments:  comments,
			Audit:     audit,
			Metrics:   metrics,
			Validator: validate,
			Logger:    logr,
			Config:    service.BulletinServiceConfig{UpdateConcurrency: cfg.Bulletins.UpdateConcurrency},
		}),
		dashboards: service.NewDashboardService(service.DashboardServiceParams{
			Cache:   cacheSvc,
			Metrics: metrics,
			Logger:  logr,
			Config:  service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
		}),
		exports: service.NewExportService(logr),
		probes:  readinessProbes(redisClient, db),
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Workspaces.SweepSchedule, func() {
		if n := registry.Sweep(); n > 0 {
			logr.Info("idle workspaces evicted", zap.Int("count", n))
		}
	}); err != nil {
		return fmt.Errorf("schedule workspace sweep: %w", err)
	}
	if _, err := scheduler.AddFunc(cfg.Periods.RefreshSchedule, registry.Refresh); err != nil {
		return fmt.Errorf("schedule period refresh: %w", err)
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env),
			zap.Bool("backend", cfg.BackendConfigured()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
