// Package app wires the session layer together and runs the local facade.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avelane/storefront-session/internal/api"
	"github.com/avelane/storefront-session/internal/cart"
	"github.com/avelane/storefront-session/internal/catalog"
	"github.com/avelane/storefront-session/internal/config"
	"github.com/avelane/storefront-session/internal/event"
	handler "github.com/avelane/storefront-session/internal/handler/http"
	"github.com/avelane/storefront-session/internal/notify"
	"github.com/avelane/storefront-session/internal/pending"
	"github.com/avelane/storefront-session/internal/session"
	"github.com/avelane/storefront-session/internal/store"
	memorystore "github.com/avelane/storefront-session/internal/store/memory"
	redisstore "github.com/avelane/storefront-session/internal/store/redis"
	"github.com/avelane/storefront-session/internal/wishlist"
	"github.com/avelane/storefront-session/pkg/database"
	"github.com/avelane/storefront-session/pkg/health"
	"github.com/avelane/storefront-session/pkg/httpclient"
	pkgkafka "github.com/avelane/storefront-session/pkg/kafka"
	"github.com/avelane/storefront-session/pkg/logger"
)

// App wires together all dependencies and runs the session daemon.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	rdb        *redis.Client
	producer   *pkgkafka.Producer
	sessions   *session.Manager
	carts      *cart.Synchronizer
	wishlists  *wishlist.Synchronizer
	mirror     *catalog.Mirror
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, log *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Local store: Redis by default, in-process memory when configured.
	var (
		localStore store.Store
		rdb        *redis.Client
	)
	if cfg.UseMemoryStore {
		localStore = memorystore.New()
		log.Info("using in-memory local store")
	} else {
		client, err := database.NewRedisClient(ctx, database.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		rdb = client
		localStore = redisstore.New(rdb, cfg.StorePrefix, time.Duration(cfg.StoreTTL)*time.Hour)
		log.Info("connected to Redis",
			slog.String("host", cfg.RedisHost),
			slog.Int("db", cfg.RedisDB),
		)
	}

	// Optional Kafka producer for activity events.
	var producer *pkgkafka.Producer
	var publisher *event.Publisher
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaBrokers[0] != "" {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), log)
		publisher = event.NewPublisher(producer, log)
		log.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Backend HTTP client behind a circuit breaker.
	httpClient := httpclient.New(httpclient.DefaultConfig())
	cbCfg := httpclient.DefaultCircuitBreakerConfig("commerce-backend")
	cbCfg.Timeout = time.Duration(cfg.CBTimeoutSeconds) * time.Second
	cbCfg.FailureRatio = cfg.CBFailureRatio
	cbCfg.MinRequests = cfg.CBMinRequests
	breaker := httpclient.NewCircuitBreakerClient(httpClient, cbCfg, log)

	// Notifications go to the log and to the facade's feed.
	feed := notify.NewRing(50)
	notifier := notify.Multi{notify.NewLogNotifier(log), feed}

	// Build the dependency graph. The backend client reads its token from
	// the session manager, which is created right after it.
	var sessions *session.Manager
	backend := api.New(cfg.APIBaseURL, breaker, api.TokenFunc(func() string {
		if sessions == nil {
			return ""
		}
		return sessions.Token()
	}), log)

	sessions = session.NewManager(backend, localStore, notifier, log)
	mirror := catalog.NewMirror(backend, cfg.CatalogPageSize, log)
	queue := pending.NewQueue(localStore)

	carts := cart.NewSynchronizer(cart.Config{
		Session:  sessions,
		Expirer:  sessions,
		Catalog:  mirror,
		Remote:   cart.NewRemoteBackend(backend),
		Guest:    cart.NewGuestBackend(localStore),
		Orders:   backend,
		Notifier: notifier,
		Events:   publisher,
		Logger:   log,
	})

	wishlists := wishlist.NewSynchronizer(wishlist.Config{
		Session:  sessions,
		Expirer:  sessions,
		Catalog:  mirror,
		API:      backend,
		Store:    localStore,
		Queue:    queue,
		Notifier: notifier,
		Events:   publisher,
		Logger:   log,
	})

	// Session transitions drive the synchronizers.
	sessions.OnLogin(func(ctx context.Context) {
		if err := carts.Load(ctx); err == nil {
			log.Debug("cart loaded after login")
		}
		if err := wishlists.LoadFromServer(ctx); err == nil {
			log.Debug("wishlist loaded after login")
		}
		wishlists.ReplayPending(ctx)
		publisher.LoginSucceeded(ctx, sessions.UserID())
	})
	sessions.OnLogout(func(ctx context.Context) {
		carts.Reset(ctx)
		wishlists.Reset(ctx)
	})

	// Health checks.
	healthHandler := health.NewHandler()
	if rdb != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}
	healthHandler.Register("catalog", func(context.Context) error {
		if mirror.LastRefresh().IsZero() {
			return fmt.Errorf("catalog mirror has never refreshed")
		}
		return nil
	})

	h := handler.NewHandler(sessions, carts, wishlists, mirror, feed, log)
	router := handler.NewRouter(h, healthHandler, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		rdb:        rdb,
		producer:   producer,
		sessions:   sessions,
		carts:      carts,
		wishlists:  wishlists,
		mirror:     mirror,
		httpServer: httpServer,
	}, nil
}

// Run starts the background work and the HTTP server, blocking until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	// Startup sequence: restore the deferred action and the session, show
	// the guest cart immediately, then let the mirror warm in the
	// background. The facade serves requests while this is in flight.
	go func() {
		startCtx := logger.NewContext(ctx, a.logger)
		a.wishlists.RestorePending(startCtx)
		a.carts.RestoreGuest(startCtx)
		a.sessions.Bootstrap(startCtx)
	}()
	go a.mirror.Run(ctx, time.Duration(a.cfg.CatalogRefreshMinutes)*time.Minute)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	a.logger.Info("application shutdown complete")
	return nil
}
