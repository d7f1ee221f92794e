package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/gymguard-dashboard/internal/accounts"
	"github.com/wolfman30/gymguard-dashboard/internal/activity"
	"github.com/wolfman30/gymguard-dashboard/internal/admin"
	"github.com/wolfman30/gymguard-dashboard/internal/api/router"
	"github.com/wolfman30/gymguard-dashboard/internal/app/bootstrap"
	"github.com/wolfman30/gymguard-dashboard/internal/campaigns"
	appconfig "github.com/wolfman30/gymguard-dashboard/internal/config"
	httpmiddleware "github.com/wolfman30/gymguard-dashboard/internal/http/middleware"
	"github.com/wolfman30/gymguard-dashboard/internal/members"
	"github.com/wolfman30/gymguard-dashboard/internal/observability/metrics"
	"github.com/wolfman30/gymguard-dashboard/internal/outreach"
	"github.com/wolfman30/gymguard-dashboard/internal/watchlist"
	"github.com/wolfman30/gymguard-dashboard/pkg/logging"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting gymguard dashboard",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("dashboard exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	pool, err := bootstrap.ConnectPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	sqlDB := bootstrap.OpenSQL(pool)
	defer func() { _ = sqlDB.Close() }()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	handler, err := newHandler(ctx, cfg, logger, appDeps{
		DB:       pool,
		SQL:      sqlDB,
		Redis:    redisClient,
		Checks:   bootstrap.HealthChecks(pool, redisClient),
		Registry: prometheus.NewRegistry(),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: it would cut the progress websocket. Watchlist
		// routes carry their own timeout middleware.
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// pgDB is satisfied by *pgxpool.Pool and by pgxmock pools in tests.
type pgDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type appDeps struct {
	DB       pgDB
	SQL      *sql.DB
	Redis    *redis.Client
	Checks   map[string]router.Check
	Registry *prometheus.Registry
}

// newHandler wires stores, clients and handlers into the router. Background
// work started here stops when ctx is done.
func newHandler(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, deps appDeps) (http.Handler, error) {
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	dashMetrics := metrics.NewDashboardMetrics(reg)

	profiles := accounts.NewStore(deps.DB)
	memberStore := members.NewStore(deps.DB)
	campaignStore := campaigns.NewStore(deps.DB)

	outreachClient := outreach.New(outreach.Config{
		BaseURL: cfg.OutreachAPIURL,
		Timeout: cfg.OutreachTimeout,
		Logger:  logger.WithComponent("outreach"),
	})

	views, err := watchlist.NewRegistry(cfg.SessionCacheSize, watchlist.Deps{
		Members:  memberStore,
		Profiles: profiles,
		Outreach: outreachClient,
		Guard:    bootstrap.BuildGuard(deps.Redis, cfg),
		Metrics:  dashMetrics,
		Logger:   logger.WithComponent("watchlist"),
		Cooldown: cfg.ContactCooldown,
	})
	if err != nil {
		return nil, fmt.Errorf("watchlist registry: %w", err)
	}

	poller := campaigns.NewPoller(campaignStore, cfg.ProgressPollInterval, dashMetrics, logger.WithComponent("campaigns"))

	routerCfg := &router.Config{
		Logger:             logger,
		Watchlist:          watchlist.NewHandler(views, logger.WithComponent("watchlist")),
		Members:            members.NewHandler(memberStore, profiles, logger.WithComponent("members")),
		Campaigns:          campaigns.NewHandler(campaignStore, poller, profiles, logger.WithComponent("campaigns")),
		Admin:              admin.NewHandler(profiles, memberStore, logger.WithComponent("admin")),
		Health:             router.NewHealthHandler(deps.Checks),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		SessionSecret:      cfg.SessionJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ActionLimiter:      httpmiddleware.NewActionLimiter(ctx, cfg.ActionRateLimit, cfg.ActionRateBurst),
	}
	if deps.SQL != nil {
		routerCfg.Activity = activity.NewHandler(activity.NewStore(deps.SQL), profiles, cfg.ContactCooldown, logger.WithComponent("activity"))
	}
	return router.New(routerCfg), nil
}

func validateConfig(cfg *appconfig.Config) error {
	var missing []string
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if strings.TrimSpace(cfg.SessionJWTSecret) == "" {
		missing = append(missing, "SESSION_JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if cfg.IsProduction() && strings.HasPrefix(cfg.OutreachAPIURL, "http://localhost") {
		return fmt.Errorf("OUTREACH_API_URL must be set in production")
	}
	return nil
}
