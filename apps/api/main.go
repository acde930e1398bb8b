package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	requestshandler "github.com/upkeephq/upkeep/domains/requests/be/handler"
	requestsrepo "github.com/upkeephq/upkeep/domains/requests/be/repo"
	requestsservice "github.com/upkeephq/upkeep/domains/requests/be/service"
	schedulinghandler "github.com/upkeephq/upkeep/domains/scheduling/be/handler"
	schedulingservice "github.com/upkeephq/upkeep/domains/scheduling/be/service"
	workershandler "github.com/upkeephq/upkeep/domains/workers/be/handler"
	workersrepo "github.com/upkeephq/upkeep/domains/workers/be/repo"
	workersservice "github.com/upkeephq/upkeep/domains/workers/be/service"
	"github.com/upkeephq/upkeep/platform/go/clock"
	platformlogging "github.com/upkeephq/upkeep/platform/go/logging"
	platformmiddleware "github.com/upkeephq/upkeep/platform/go/middleware"
	"github.com/upkeephq/upkeep/platform/go/persistence"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL"` // empty runs on in-memory repositories

	// Submission rate-limit policy; passed by value into the policy so tests
	// and environments can vary thresholds independently.
	MaxPendingRequests int `env:"MAX_PENDING_REQUESTS" envDefault:"5"`
	MinHoursBetween    int `env:"MIN_HOURS_BETWEEN_SUBMISSIONS" envDefault:"1"`
	MaxEmergencyPerMon int `env:"MAX_EMERGENCY_PER_WINDOW" envDefault:"3"`
	RateLimitLookback  int `env:"RATE_LIMIT_LOOKBACK_DAYS" envDefault:"30"`
}

func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	var (
		requestsRepo requestsservice.Repository
		workersRepo  workersservice.Repository
	)
	if cfg.DatabaseURL != "" {
		pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: cfg.DatabaseURL})
		if err != nil {
			logger.Fatal("init postgres pool", zap.Error(err))
		}
		defer persistence.ClosePool(pool)
		requestsRepo = requestsrepo.NewPostgresRepository(pool)
		workersRepo = workersrepo.NewPostgresRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory repositories")
		requestsRepo = requestsrepo.NewMemoryRepository()
		workersRepo = workersrepo.NewMemoryRepository()
	}

	clk := clock.System{}
	sink := requestsservice.LogSink{Logger: logger.Named("notifications")}

	rateLimit := requestsservice.RateLimitConfig{
		MaxPendingRequests:         cfg.MaxPendingRequests,
		MinHoursBetweenSubmissions: cfg.MinHoursBetween,
		MaxEmergencyPerWindow:      cfg.MaxEmergencyPerMon,
		LookbackDays:               cfg.RateLimitLookback,
	}

	workerService := workersservice.New(workersRepo)
	workerHTTPHandler := workershandler.New(workerService, logger)

	// Completion reports release the worker's booking alongside the request
	// transition.
	requestService := requestsservice.New(requestsRepo, sink, clk, rateLimit).
		WithAssignmentCloser(workerService)
	requestHTTPHandler := requestshandler.New(requestService, logger)

	metrics := schedulingservice.NewMetrics(prometheus.DefaultRegisterer)
	scheduler := schedulingservice.NewScheduler(requestsRepo, workersRepo, sink, clk, logger, metrics)
	schedulingHTTPHandler := schedulinghandler.New(scheduler, clk, logger)

	rootRouter := chi.NewRouter()

	rootRouter.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(cfg.RequestTimeout),
		platformmiddleware.DefaultCORS(),
	)

	rootRouter.Use(platformlogging.RequestLogger(logger))

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	rootRouter.Handle("/metrics", promhttp.Handler())

	apiRouter := chi.NewRouter()
	apiRouter.Group(requestHTTPHandler.Routes)
	apiRouter.Group(workerHTTPHandler.Routes)
	apiRouter.Group(schedulingHTTPHandler.Routes)

	rootRouter.Mount("/api/v1", apiRouter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      rootRouter,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
