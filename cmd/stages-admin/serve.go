package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/stages-admin/internal/backend"
	"github.com/noah-isme/stages-admin/internal/form"
	"github.com/noah-isme/stages-admin/internal/handler"
	"github.com/noah-isme/stages-admin/internal/repository"
	"github.com/noah-isme/stages-admin/internal/service"
	"github.com/noah-isme/stages-admin/internal/session"
	"github.com/noah-isme/stages-admin/pkg/cache"
	"github.com/noah-isme/stages-admin/pkg/config"
	"github.com/noah-isme/stages-admin/pkg/database"
	"github.com/noah-isme/stages-admin/pkg/storage"
	"github.com/noah-isme/stages-admin/web"
)

const (
	shutdownTimeout = 15 * time.Second
	cacheKeyPrefix  = "stages-admin"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, logr := a.cfg, a.logger

	metrics := service.NewMetricsService()
	client, err := backend.NewClient(cfg.Backend, logr, metrics)
	if err != nil {
		return fmt.Errorf("backend client: %w", err)
	}

	checks := map[string]handler.Pinger{}

	var redisClient *redis.Client
	if cfg.Session.Store == config.SessionStoreRedis || cfg.Dashboard.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	var (
		store  session.Store
		drafts session.DraftStore
		mem    *session.MemoryStore
	)
	if cfg.Session.Store == config.SessionStoreRedis {
		repo := repository.NewSessionRepository(redisClient, cfg.Session.TTL)
		store, drafts = repo, repo
	} else {
		mem = session.NewMemoryStore(cfg.Session.TTL)
		store, drafts = mem, mem
	}

	var cacheRepo service.CacheRepository
	if cfg.Dashboard.CacheEnabled {
		cacheRepo = repository.NewCacheRepository(redisClient, cacheKeyPrefix, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)

	auditCfg := service.AuditConfig{Workers: cfg.Audit.Workers, Retries: cfg.Audit.Retries}
	audit := service.NewAuditService(nil, auditCfg, metrics, logr)
	if cfg.Audit.Enabled {
		db, err := openAuditDB(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		checks["postgres"] = handler.PingFunc(db.PingContext)
		audit = service.NewAuditService(repository.NewAuditRepository(db), auditCfg, metrics, logr)
	}

	fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return fmt.Errorf("export storage: %w", err)
	}
	exports := service.NewExportService(fileStore,
		storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		service.ExportConfig{BasePath: cfg.BasePath, ResultTTL: cfg.Exports.SignedURLTTL, CleanupInterval: cfg.Exports.CleanupInterval},
		audit, metrics, logr)

	sessions := session.NewManager(store, drafts,
		session.NewTokenSigner(cfg.Session.Secret, cfg.Session.TTL), client,
		session.Config{TTL: cfg.Session.TTL, RevalidateAfter: cfg.Session.RevalidateAfter}, logr)

	validate := form.NewValidator(nil)
	gateways := service.ClientGateways(client)
	pageSize := cfg.Table.PageSize

	renderer, err := handler.NewRenderer(web.Templates)
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	router := handler.NewRouter(handler.Dependencies{
		Logger:         logr,
		Renderer:       renderer,
		Sessions:       sessions,
		CookieName:     cfg.Session.CookieName,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Metrics:        metrics,
		Audit:          audit,

		Auth:      handler.NewAuthHandler(sessions, cfg.Session, logr),
		Dashboard: handler.NewDashboardHandler(service.NewDashboardService(client, cacheSvc, cfg.Dashboard.CacheTTL, logr)),
		Stages: handler.NewStageHandler(
			service.NewStageService(client, gateways, validate, audit, cacheSvc, logr),
			exports, drafts,
			handler.StageConfig{
				PageSize:       pageSize,
				Validator:      validate,
				AttachmentRule: form.StageAttachmentRule(cfg.Uploads.Stage),
				Attestation:    cfg.Attestation,
			}, logr),
		Stagiaires: handler.NewStagiaireHandler(service.NewStagiaireService(client, gateways, validate, audit, cacheSvc, logr), exports, pageSize),
		Encadrants: handler.NewEncadrantHandler(service.NewEncadrantService(client, gateways, validate, audit, cacheSvc, logr), exports, pageSize),
		Rapports: handler.NewRapportHandler(
			service.NewRapportService(client, gateways, validate, form.ReportFileRule(cfg.Uploads.Report), audit, cacheSvc, logr),
			exports, pageSize, logr),
		Options:  handler.NewOptionsHandler(),
		AuditLog: handler.NewAuditHandler(audit),
		Exports:  handler.NewExportHandler(exports, logr),
		Probes:   handler.NewMetricsHandler(metrics, checks),
	})

	workers, cancelWorkers := context.WithCancel(context.Background())
	audit.Start(workers)
	exports.StartCleanup(workers)
	if mem != nil {
		mem.StartSweep(workers, cfg.Session.SweepInterval, logr)
	}
	defer func() {
		cancelWorkers()
		if mem != nil {
			mem.StopSweep()
		}
		exports.StopCleanup()
		audit.Stop()
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("backend", cfg.Backend.BaseURL))
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

	logr.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func openAuditDB(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := database.NewPostgres(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("audit database: %w", err)
	}
	if err := repository.NewAuditRepository(db).EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit schema: %w", err)
	}
	return db, nil
}
