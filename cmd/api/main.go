// Package main is the entry point for the comparison API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/goreulmanhae/compare-api/internal/account"
	"github.com/goreulmanhae/compare-api/internal/api"
	"github.com/goreulmanhae/compare-api/internal/auth"
	"github.com/goreulmanhae/compare-api/internal/catalog"
	"github.com/goreulmanhae/compare-api/internal/compare"
	"github.com/goreulmanhae/compare-api/internal/config"
	"github.com/goreulmanhae/compare-api/internal/db"
	"github.com/goreulmanhae/compare-api/internal/health"
	"github.com/goreulmanhae/compare-api/internal/history"
	"github.com/goreulmanhae/compare-api/internal/jobs"
	"github.com/goreulmanhae/compare-api/internal/middleware"
	"github.com/goreulmanhae/compare-api/internal/tracing"
)

const serviceName = "compare-api"

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to a YAML config file")
	seedPath := flag.String("seed", "", "catalog snapshot loaded into the in-memory store (no DATABASE_URL only)")
	flag.Parse()

	if *help {
		fmt.Println("Compare API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	if err := run(cfg, *seedPath, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// stores groups the repositories backing the API.
type stores struct {
	catalog  catalog.Store
	history  history.Repository
	accounts account.Repository
	checkers map[string]health.Checker
	close    func() error
}

// openStores connects the configured backend. jobMetrics may be nil.
func openStores(ctx context.Context, cfg *config.Config, seedPath string, jobMetrics *jobs.Metrics, logger *slog.Logger) (*stores, error) {
	if cfg.UsesInMemoryStores() {
		mem := catalog.NewInMemoryStore(catalog.Snapshot{})
		if seedPath != "" {
			start := time.Now()
			snap, err := catalog.LoadSnapshotFile(seedPath)
			if jobMetrics != nil {
				status := jobs.StatusSuccess
				if err != nil {
					status = jobs.StatusFailure
				}
				jobMetrics.IncJobsTotal(jobs.JobTypeCatalogSeed, status)
				jobMetrics.ObserveJobDuration(jobs.JobTypeCatalogSeed, time.Since(start).Seconds())
			}
			if err != nil {
				return nil, err
			}
			mem.Load(snap)
			logger.Info("loaded catalog snapshot", "path", seedPath,
				"categories", len(snap.Categories), "variants", len(snap.Variants))
		}
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		return &stores{
			catalog:  mem,
			history:  history.NewInMemoryRepository(),
			accounts: account.NewInMemoryRepository(),
			checkers: map[string]health.Checker{},
			close:    func() error { return nil },
		}, nil
	}

	if seedPath != "" {
		return nil, errors.New("-seed only applies to in-memory stores; use comparectl seed")
	}
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx); err != nil {
		_ = database.Close()
		return nil, err
	}
	logger.Info("database ready", "dialect", database.Dialect)

	return &stores{
		catalog:  catalog.NewSQLStore(database, logger),
		history:  history.NewSQLRepository(database, logger),
		accounts: account.NewSQLRepository(database, logger),
		checkers: map[string]health.Checker{"database": health.NewDBChecker(database)},
		close:    database.Close,
	}, nil
}

func run(cfg *config.Config, seedPath string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for k, v := range cfg.LogSummary() {
		logger.Debug("config", "key", k, "value", v)
	}

	tracerProvider, err := tracing.NewProvider(ctx, tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.OTelExporter,
		OTLPEndpoint: cfg.OTelEndpoint,
		SamplingRate: cfg.OTelSamplingRate,
		InsecureMode: !cfg.IsProduction(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := middleware.NewMetrics()
	jobMetrics := jobs.NewMetrics()
	compareMetrics := compare.NewMetrics()
	for _, register := range []func(prometheus.Registerer) error{
		httpMetrics.Register, jobMetrics.Register, compareMetrics.Register,
	} {
		if err := register(reg); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	st, err := openStores(ctx, cfg, seedPath, jobMetrics, logger)
	if err != nil {
		return err
	}

	// Rate limiting
	var limitStore middleware.RateLimitStore
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		limitStore = middleware.NewRedisRateLimitStore(redisClient).WithMetrics(httpMetrics)
		st.checkers["redis"] = health.NewRedisChecker(redisClient)
		logger.Info("using redis rate limit store")
	} else {
		mem := middleware.NewInMemoryRateLimitStore()
		go mem.RunCleanup(ctx, 5*time.Minute)
		limitStore = mem
	}
	limit := middleware.PerMinute(cfg.RateLimitPerMinute)
	if err := limit.Validate(); err != nil {
		return err
	}
	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	// Domain services
	jwtService, err := auth.NewJWTService(auth.JWTConfig{
		Secret:         cfg.JWTSecret,
		PreviousSecret: cfg.JWTSecretPrevious,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize auth: %w", err)
	}
	recorder := history.NewRecorder(st.history, jwtService, history.RecorderConfig{
		Timeout:    cfg.HistoryWriteTimeout,
		Logger:     logger,
		JobMetrics: jobMetrics,
	})
	source := compare.NewCatalogSource(st.catalog)
	compareService := compare.NewService(source, source, compare.ServiceConfig{
		History: recorder,
		Metrics: compareMetrics,
		Logger:  logger,
	})

	mux := api.NewRouter(api.RouterConfig{
		Compare:  api.NewCompareHandlers(compareService),
		Catalog:  api.NewCatalogHandlers(st.catalog),
		History:  api.NewHistoryHandlers(st.history, compareService),
		Accounts: api.NewAccountHandlers(st.accounts),
		Health:   api.NewHealthHandlers(st.checkers),
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Identity: jwtService,
	})

	// RequestID -> Tracing -> Logging -> HTTPMetrics -> CORS -> OptionalAuth -> RateLimiter -> mux
	var handler http.Handler = mux
	handler = middleware.RateLimiter(limitStore, limit, proxies.UserOrIPKey, httpMetrics)(handler)
	handler = middleware.OptionalAuth(jwtService)(handler)
	handler = middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins))(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	if tracerProvider.IsEnabled() {
		handler = middleware.Tracing(serviceName)(handler)
	}
	handler = middleware.RequestID(handler)
	handler = middleware.Profiling(middleware.ProfilingConfig{
		Enabled:     cfg.ProfilingEnabled,
		Environment: cfg.Env,
	})(handler)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var shutdownErrs []error
	if err := server.Shutdown(shutdownCtx); err != nil {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("http server: %w", err))
	}
	if err := recorder.Close(shutdownCtx); err != nil {
		shutdownErrs = append(shutdownErrs, err)
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("tracer: %w", err))
	}
	if err := st.close(); err != nil {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("database: %w", err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			shutdownErrs = append(shutdownErrs, fmt.Errorf("redis: %w", err))
		}
	}

	if err := errors.Join(shutdownErrs...); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
