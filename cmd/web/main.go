package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/server"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/ui/templates"
)

const (
	renderTimeout     = 10 * time.Second
	csvLoadTimeout    = 2 * time.Minute
	limiterSweepEvery = time.Minute
	cacheMaxAge       = "public, max-age=300"
)

// dashboardHandler renders the page with the filter options for ds.
func dashboardHandler(ds *services.Dataset) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		data := templates.NewDashboardData(ds.Periods(), ds.Len())

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(data).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func loadDataset(cfg config.DataConfig, logger *slog.Logger) (*services.Dataset, error) {
	ctx, cancel := context.WithTimeout(context.Background(), csvLoadTimeout)
	defer cancel()

	return services.LoadCSV(ctx, cfg.CSVFile, services.LoadOptions{
		Workers:      cfg.Workers,
		BatchSize:    cfg.BatchSize,
		ShowProgress: cfg.ShowProgress,
		Logger:       logger,
	})
}

func newHandler(cfg *config.Config, ds *services.Dataset, limiter *middleware.RateLimiter, logger *slog.Logger) http.Handler {
	srv := server.NewServer(ds, logger, &server.TemplateHandlers{
		Dashboard: dashboardHandler(ds),
	})

	chain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(limiter, logger),
	)

	return chain(srv)
}

func main() {
	// A missing .env is fine; the environment and defaults still apply.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"addr", cfg.Address(),
		"csv_file", cfg.Data.CSVFile,
	)

	ds, err := loadDataset(cfg.Data, logger)
	if err != nil {
		logger.Error("failed to load CSV data", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := middleware.NewRateLimiter(cfg.Security)
	go limiter.Run(ctx, limiterSweepEvery)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, ds, limiter, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg.Server)
	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("releasing dataset",
			"records", ds.Len(),
			"uptime", time.Since(ds.LoadedAt()),
			"rate_limited_clients", limiter.Len(),
		)
		return nil
	})

	if err := gracefulServer.ListenAndServe(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
