// Package app assembles the storefront from configuration and owns its
// lifecycle: startup order, the HTTP server, the session janitor and
// teardown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/repository/file"
	"github.com/utafrali/storefront/internal/repository/memory"
	"github.com/utafrali/storefront/internal/repository/postgres"
	redisrepo "github.com/utafrali/storefront/internal/repository/redis"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/tracing"
)

// ServiceName labels logs, metrics and spans.
const ServiceName = "storefront"

const (
	startupTimeout  = 30 * time.Second
	releaseTimeout  = 5 * time.Second
	readinessBudget = 5 * time.Second
)

// resource is something opened during startup that must be released on
// the way out.
type resource struct {
	name    string
	release func(context.Context) error
}

// resources releases in reverse order of acquisition.
type resources []resource

func (rs *resources) add(name string, release func(context.Context) error) {
	*rs = append(*rs, resource{name: name, release: release})
}

func (rs resources) releaseAll(ctx context.Context, logger *slog.Logger) error {
	var errs []error
	for i := len(rs) - 1; i >= 0; i-- {
		if err := rs[i].release(ctx); err != nil {
			logger.Error("release failed", slog.String("resource", rs[i].name), slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", rs[i].name, err))
		}
	}
	return errors.Join(errs...)
}

// App is a fully wired storefront ready to Run.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	server    *http.Server
	carts     *service.CartService
	resources resources
}

// NewApp connects every backend named in cfg and builds the HTTP handler.
// Anything already opened is released when a later step fails.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.resources.releaseAll(context.Background(), logger)
		}
	}()

	flushSpans, err := tracing.InitTracer(ctx, cfg.Tracing(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.resources.add("tracer", flushSpans)

	probes := health.NewHandler(ServiceName, health.WithTimeout(readinessBudget))

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	a.resources.add("postgres", func(context.Context) error { pool.Close(); return nil })
	database.RegisterPoolMetrics(pool, ServiceName)
	probes.RegisterCritical("postgres", pool.Ping)
	logger.Info("postgres ready", slog.String("host", pgCfg.Host), slog.String("db", pgCfg.DBName))

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	if ms := cfg.SlowQueryThresholdMs; ms > 0 {
		database.SetSlowQueryLogging(time.Duration(ms)*time.Millisecond, logger)
	}

	var rdb *redis.Client
	if cfg.CartSnapshotBackend == config.SnapshotBackendRedis {
		if rdb, err = database.NewRedisClient(ctx, cfg.Redis(), logger); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.resources.add("redis", func(context.Context) error { return rdb.Close() })
		probes.RegisterCritical("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	snapshots, err := newSnapshotRepository(cfg, rdb)
	if err != nil {
		return nil, err
	}
	logger.Info("cart snapshots ready", slog.String("backend", cfg.CartSnapshotBackend))

	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	a.resources.add("kafka", func(context.Context) error { return producer.Close() })
	probes.RegisterNonCritical("kafka", producer.Ping)
	events := event.NewProducer(producer, logger)

	products := postgres.NewProductRepository(pool)
	orders := postgres.NewOrderRepository(pool)
	a.carts = service.NewCartService(snapshots, newProductLookup(cfg, products, logger), events, logger, cfg.SessionIdleTimeout())

	router := handler.NewRouter(handler.Services{
		Cart:     a.carts,
		Checkout: service.NewCheckoutService(a.carts, orders, events, logger),
		Orders:   service.NewOrderService(orders),
		Products: service.NewProductService(products),
	}, probes, logger, handler.Options{
		PprofCIDRs:      cfg.PprofAllowedCIDRs,
		CORS:            cfg.CORS(),
		ProductCacheTTL: time.Duration(cfg.ProductCacheMaxAgeSecs) * time.Second,
		RateLimitRPS:    cfg.RateLimitRPS,
		RateLimitBurst:  cfg.RateLimitBurst,
	})

	a.server = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Above the router's 30s request timeout so handlers can still answer.
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  time.Minute,
	}
	return a, nil
}

// newSnapshotRepository picks the cart snapshot backend named in cfg. rdb is
// only used by the redis backend.
func newSnapshotRepository(cfg *config.Config, rdb *redis.Client) (repository.SnapshotRepository, error) {
	switch cfg.CartSnapshotBackend {
	case config.SnapshotBackendRedis:
		if rdb == nil {
			return nil, errors.New("redis snapshot backend needs a redis client")
		}
		return redisrepo.NewSnapshotRepository(rdb, cfg.CartTTL()), nil
	case config.SnapshotBackendFile:
		repo, err := file.NewSnapshotRepository(cfg.CartSnapshotDir)
		if err != nil {
			return nil, fmt.Errorf("open snapshot dir: %w", err)
		}
		return repo, nil
	case config.SnapshotBackendMemory:
		return memory.NewSnapshotRepository(), nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.CartSnapshotBackend)
	}
}

// newProductLookup returns the remote catalog when one is configured and the
// local product table otherwise.
func newProductLookup(cfg *config.Config, local service.ProductLookup, logger *slog.Logger) service.ProductLookup {
	if cfg.CatalogServiceURL == "" {
		return local
	}

	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = time.Duration(cfg.CatalogRequestTimeoutSec) * time.Second
	cb := cfg.CatalogBreaker()
	logger.Info("remote catalog enabled",
		slog.String("url", cfg.CatalogServiceURL),
		slog.String("breaker", cb.Name),
		slog.Duration("open_for", cb.Timeout),
		slog.Float64("failure_ratio", cb.FailureRatio),
	)
	return catalog.NewClient(cfg.CatalogServiceURL, httpclient.New(clientCfg),
		httpclient.NewBreaker[*domain.Product](cb, logger))
}

// Run serves HTTP and sweeps idle sessions until ctx is canceled or the
// listener fails, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	go a.carts.RunJanitor(ctx, a.cfg.JanitorInterval())

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown requested")
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}
	stop()
	return errors.Join(runErr, a.Shutdown())
}

// Shutdown drains in-flight requests, then releases backends in reverse
// order of startup so spans from the drain are still exported.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down")

	drainCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.ShutdownTimeoutSecs)*time.Second)
	defer cancel()
	var drainErr error
	if err := a.server.Shutdown(drainCtx); err != nil {
		a.logger.Error("http drain incomplete", slog.String("error", err.Error()))
		drainErr = fmt.Errorf("http server: %w", err)
	}

	releaseCtx, cancelRelease := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancelRelease()
	err := errors.Join(drainErr, a.resources.releaseAll(releaseCtx, a.logger))

	a.logger.Info("shutdown complete")
	return err
}
