package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cassiomorais/offlinepay/internal/cache"
	"github.com/cassiomorais/offlinepay/internal/config"
	"github.com/cassiomorais/offlinepay/internal/connectivity"
	"github.com/cassiomorais/offlinepay/internal/observability"
	"github.com/cassiomorais/offlinepay/internal/processor"
	"github.com/cassiomorais/offlinepay/internal/providers"
	"github.com/cassiomorais/offlinepay/internal/queue"
	"github.com/cassiomorais/offlinepay/internal/storage"
)

// App holds the wired dependency graph shared by the binaries. The
// connectivity platform is injected by the caller because each binary
// sources its network signal differently.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Metrics   *observability.Metrics
	Store     storage.Store
	Queue     *queue.Queue
	Cache     *cache.Cache
	Monitor   *connectivity.Monitor
	Processor *processor.Processor
	Factory   *providers.Factory

	pool  *pgxpool.Pool
	redis *redis.Client
}

func New(ctx context.Context, serviceName string, platform connectivity.Platform) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.InitLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info().Str("service", serviceName).Str("instance", cfg.InstanceID).Msg("Starting")

	if cfg.Observability.EnableTracing {
		tp, err := observability.InitTracer(serviceName, cfg.Observability.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			go func() {
				<-ctx.Done()
				_ = observability.Shutdown(context.Background(), tp)
			}()
			logger.Info().Msg("Tracing enabled")
		}
	}

	var metrics *observability.Metrics
	if cfg.Observability.EnableMetrics {
		metrics = observability.NewMetrics("offlinepay", nil)
		logger.Info().Msg("Metrics initialized")
	}

	app := &App{Config: cfg, Logger: logger, Metrics: metrics}

	if app.Store, err = app.buildStore(ctx); err != nil {
		return nil, err
	}
	logger.Info().Str("backend", cfg.Storage.Backend).Msg("Store ready")

	app.Queue = queue.New(app.Store, logger,
		queue.WithMetrics(metrics),
		queue.WithDefaultMaxRetries(cfg.Queue.DefaultMaxRetries),
	)
	app.Cache = cache.New(app.Store, logger, cache.WithMetrics(metrics))

	app.Factory = providers.NewFactory(nil, providers.WithMetrics(metrics))

	app.Monitor = connectivity.NewMonitor(platform, logger, connectivity.WithMetrics(metrics))
	app.Processor = processor.New(app.Queue, app.Factory.Dispatch(), app.Monitor.IsOnline, logger,
		processor.WithMetrics(metrics),
	)

	// Reconnects drain in the background; request contexts must not cancel
	// a replay already in flight.
	app.Monitor.OnReconnect(func() {
		if err := app.Processor.ProcessQueue(context.Background()); err != nil {
			logger.Error().Err(err).Msg("reconnect drain failed")
		}
	})

	if err := app.Monitor.Initialize(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("initialize connectivity monitor: %w", err)
	}

	return app, nil
}

func (a *App) buildStore(ctx context.Context) (storage.Store, error) {
	switch a.Config.Storage.Backend {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "file":
		return storage.NewFileStore(a.Config.Storage.File.Dir)
	case "redis":
		client, err := storage.NewRedisClient(ctx, &a.Config.Storage.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		return storage.NewRedisStore(client), nil
	case "postgres":
		pool, err := storage.NewPostgresPool(ctx, &a.Config.Storage.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.pool = pool
		return storage.NewPostgresStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", a.Config.Storage.Backend)
	}
}

func (a *App) Close() {
	if a.Monitor != nil {
		a.Monitor.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
