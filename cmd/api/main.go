// Package main is the entry point for the WeatherNow API server.
//
// It loads configuration, builds the Open-Meteo clients and lookup services,
// mounts the city and weather handlers on the core chassis (middleware,
// routing, health checks) and serves until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"golang.org/x/sync/errgroup"

	"weathernow/internal/api/handlers"
	"weathernow/internal/config"
	"weathernow/internal/core"
	"weathernow/internal/external"
	"weathernow/internal/forecasts"
	"weathernow/internal/geocoding"
	"weathernow/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("weathernow API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics, err := newMetrics(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}

	srv, err := buildServer(cfg, logger, external.NewClientRegistry(cfg, logger), metrics)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return serve(ctx, srv, cfg, logger)
}

// buildServer wires the lookup services into a mounted core.Server.
func buildServer(cfg *config.Config, logger *slog.Logger, reg *external.ClientRegistry, metrics core.MetricsCollector) (*core.Server, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, err
	}
	srv.Metrics = metrics
	if cfg.Server.ClientRateLimit > 0 {
		srv.RateLimitStore = core.NewMemoryRateLimitStore(cfg.Server.ClientRateLimit, cfg.Server.ClientRateBurst, types.RealClock{})
		srv.TrustProxyHeaders = cfg.Server.TrustProxyHeaders
	}

	for _, p := range reg.Probes() {
		srv.HealthProbes = append(srv.HealthProbes, p)
	}

	cities := geocoding.NewService(reg.Geocoding, cfg.Geocoding.ResultCount, cfg.Geocoding.Language, logger)
	weather := forecasts.NewService(reg.Forecast, types.RealClock{}, cfg.Forecast.WindowHours, logger)

	cityHandler := handlers.NewCityHandler(cities, srv.Validator, logger)
	weatherHandler := handlers.NewWeatherHandler(weather, srv.Validator, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		cityHandler.RegisterRoutes,
		weatherHandler.RegisterRoutes,
	)

	srv.MountRoutes()
	return srv, nil
}

// newMetrics selects the collector named by METRICS_BACKEND. The CloudWatch
// collector flushes on its own goroutine until ctx is cancelled; the final
// flush happens in core.Server.Shutdown.
func newMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (core.MetricsCollector, error) {
	switch cfg.Metrics.Backend {
	case "log":
		return core.NewLogMetrics(logger), nil
	case "cloudwatch":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Metrics.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		client := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.Metrics.EndpointURL != "" {
				o.BaseEndpoint = &cfg.Metrics.EndpointURL
			}
		})
		cw := core.NewCloudWatchMetrics(client, cfg.Metrics.Namespace, types.RealClock{}, logger)
		go func() {
			_ = cw.Run(ctx, cfg.Metrics.FlushInterval)
		}()
		return cw, nil
	default:
		return nil, nil
	}
}

// serve runs the HTTP server until ctx is cancelled or the listener fails,
// then shuts down within the configured deadline.
func serve(ctx context.Context, srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
			errs = append(errs, err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
