package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/TourGo/internal/auth"
	"github.com/utafrali/TourGo/internal/catalog"
	"github.com/utafrali/TourGo/internal/config"
	"github.com/utafrali/TourGo/internal/event"
	handler "github.com/utafrali/TourGo/internal/handler/http"
	"github.com/utafrali/TourGo/internal/handler/ws"
	"github.com/utafrali/TourGo/internal/repository"
	"github.com/utafrali/TourGo/internal/repository/postgres"
	"github.com/utafrali/TourGo/internal/repository/postgres/migrations"
	redisrepo "github.com/utafrali/TourGo/internal/repository/redis"
	"github.com/utafrali/TourGo/internal/service"
	"github.com/utafrali/TourGo/internal/sink"
	"github.com/utafrali/TourGo/pkg/database"
	"github.com/utafrali/TourGo/pkg/health"
	"github.com/utafrali/TourGo/pkg/httpclient"
	pkgkafka "github.com/utafrali/TourGo/pkg/kafka"
	"github.com/utafrali/TourGo/pkg/middleware"
	"github.com/utafrali/TourGo/pkg/tracing"
)

const (
	// maxSinkInFlight bounds the reviews being persisted at once.
	maxSinkInFlight    = 64
	slowQueryThreshold = 200 * time.Millisecond
)

// App wires together all dependencies and runs the tour service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	pool           *pgxpool.Pool
	producer       *pkgkafka.Producer
	dispatcher     *sink.Dispatcher
	hub            *ws.Hub
	stopReload     func()
	shutdownTracer func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	healthHandler := health.NewHandler()

	// Tracing.
	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.shutdownTracer = shutdownTracer

	// Tour source.
	tours, store, err := a.initTourSource(ctx, healthHandler)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	// Initialize Redis client.
	redisCfg := database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	}
	a.rdb, err = database.NewRedisClient(ctx, redisCfg, logger)
	if err != nil {
		a.closeAll()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("addr", redisCfg.Addr()),
		slog.Int("db", cfg.RedisDB),
	)
	sessions := redisrepo.NewSessionRepository(a.rdb, cfg.SessionTTL)
	healthHandler.RegisterCritical("redis", sessions.Ping)

	// Identity.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTokenTTL)
	var validator middleware.TokenValidator
	if jwtManager.Enabled() {
		validator = jwtManager.Validator()
	} else {
		logger.Warn("JWT_SECRET not set, bearer tokens are not accepted and all visitors are guests")
	}

	// Review persistence sinks.
	sinks := a.initSinks(jwtManager, healthHandler)
	a.dispatcher = sink.NewDispatcher(sink.Combine(sinks...), cfg.SinkTimeout, maxSinkInFlight, logger)

	// Build the dependency graph.
	a.hub = ws.NewHub(corsOrigins(cfg), logger)
	tourService := service.NewTourService(tours, sessions, store, a.dispatcher, a.hub, logger, cfg.SessionTTL)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = corsOrigins(cfg)

	// HTTP router.
	router := handler.NewRouter(tourService, a.hub, healthHandler, handler.RouterConfig{
		ServiceName:       cfg.ServiceName,
		CORS:              corsCfg,
		PprofAllowedCIDRs: cfg.PprofCIDRs,
		SubmitRateLimit: middleware.RateLimitConfig{
			RPS:   cfg.SubmitRateLimit,
			Burst: cfg.SubmitBurst,
		},
		TokenValidator: validator,
	}, logger)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
}

// initTourSource opens the configured tour source. The postgres source also
// serves as the review store behind the persistence endpoint.
func (a *App) initTourSource(ctx context.Context, hh *health.Handler) (repository.TourRepository, repository.ReviewStore, error) {
	cfg := a.cfg

	if !cfg.UsesPostgres() {
		cat, err := catalog.Load(cfg.CatalogPath, a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("load tour catalog: %w", err)
		}
		if cfg.CatalogReloadCron != "" {
			stop, err := cat.ScheduleReload(cfg.CatalogReloadCron)
			if err != nil {
				return nil, nil, err
			}
			a.stopReload = stop
			a.logger.Info("tour catalog reload scheduled", slog.String("schedule", cfg.CatalogReloadCron))
		}
		hh.RegisterCritical("catalog", func(context.Context) error {
			if cat.Len() == 0 {
				return errors.New("tour catalog is empty")
			}
			return nil
		})
		return cat, nil, nil
	}

	dbCfg := database.DefaultPostgresConfig()
	dbCfg.Host = cfg.DBHost
	dbCfg.Port = cfg.DBPort
	dbCfg.User = cfg.DBUser
	dbCfg.Password = cfg.DBPassword
	dbCfg.DBName = cfg.DBName
	dbCfg.SSLMode = cfg.DBSSLMode
	dbCfg.SlowQueryThreshold = slowQueryThreshold

	pool, err := database.NewPostgresPoolWithLogger(ctx, &dbCfg, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.DBHost),
		slog.String("database", cfg.DBName),
	)

	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := database.RegisterPoolMetrics(pool, cfg.ServiceName); err != nil {
		a.logger.Warn("pool metrics unavailable", slog.String("error", err.Error()))
	}
	hh.RegisterCritical("postgres", pool.Ping)

	repo := postgres.NewTourRepository(pool)
	return repo, repo, nil
}

// initSinks builds the configured persistence sinks. None configured leaves
// reviews local to their session.
func (a *App) initSinks(jwtManager *auth.JWTManager, hh *health.Handler) []sink.Sink {
	cfg := a.cfg
	var sinks []sink.Sink

	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), a.logger)
		sinks = append(sinks, sink.NewKafka(event.NewProducer(a.producer, a.logger)))
		hh.RegisterNonCritical("kafka", a.producer.Ping)
		a.logger.Info("kafka review sink enabled", slog.Any("brokers", cfg.KafkaBrokers))
	}

	if cfg.ReviewEndpointURL != "" {
		clientCfg := httpclient.DefaultConfig()
		clientCfg.Timeout = cfg.SinkTimeout
		client := httpclient.NewCircuitBreakerClient(
			httpclient.New(clientCfg),
			httpclient.DefaultCircuitBreakerConfig("review-endpoint"),
			a.logger,
		)

		var token sink.TokenSource
		if jwtManager.Enabled() {
			token = func() (string, error) {
				return jwtManager.GenerateToken(cfg.ServiceName, auth.RoleService)
			}
		}
		sinks = append(sinks, sink.NewHTTP(client, cfg.ReviewEndpointURL, token))
		hh.RegisterNonCritical("review-endpoint", func(context.Context) error {
			if client.State() == gobreaker.StateOpen {
				return errors.New("review endpoint circuit breaker is open")
			}
			return nil
		})
		a.logger.Info("http review sink enabled", slog.String("url", cfg.ReviewEndpointURL))
	}

	return sinks
}

// corsOrigins falls back to any origin in development.
func corsOrigins(cfg *config.Config) []string {
	if len(cfg.CORSOrigins) > 0 {
		return cfg.CORSOrigins
	}
	if cfg.Environment == "development" {
		return []string{"*"}
	}
	return []string{"http://localhost:" + strconv.Itoa(cfg.HTTPPort)}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		}
	}
	if a.hub != nil {
		a.hub.Close()
	}

	// Let in-flight reviews reach their sinks before closing the producer.
	if a.dispatcher != nil {
		if err := a.dispatcher.Close(shutdownCtx); err != nil {
			a.logger.Warn("review sinks did not drain", slog.String("error", err.Error()))
		}
	}

	a.closeAll()

	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}

// closeAll releases the connections and schedules opened so far.
func (a *App) closeAll() {
	if a.stopReload != nil {
		a.stopReload()
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
	if a.pool != nil {
		a.pool.Close()
	}
}
