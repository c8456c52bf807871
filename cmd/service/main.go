package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-lookup/internal/client"
	"github.com/kjstillabower/weather-lookup/internal/config"
	"github.com/kjstillabower/weather-lookup/internal/display"
	httphandler "github.com/kjstillabower/weather-lookup/internal/http"
	"github.com/kjstillabower/weather-lookup/internal/lifecycle"
	"github.com/kjstillabower/weather-lookup/internal/models"
	"github.com/kjstillabower/weather-lookup/internal/observability"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	if err := observability.InitTracing(context.Background(), observability.TracingConfig{
		Endpoint:    cfg.TracingEndpoint,
		ServiceName: cfg.TracingServiceName,
	}); err != nil {
		logger.Fatal("tracing", zap.Error(err))
	}
	if cfg.TracingEndpoint != "" {
		logger.Info("trace export enabled", zap.String("endpoint", cfg.TracingEndpoint))
	}

	// Handlers route results through per-request observers; this one only sees
	// fetches issued on the base fetcher.
	fetcher, err := client.NewWeatherFetcher(cfg.WeatherAPIKey, cfg.WeatherAPIURL, client.ObserverFuncs{
		Success: func(s models.WeatherSnapshot) {
			logger.Debug("unrouted weather result", zap.String("city", s.City))
		},
		Failure: func(err error) {
			logger.Debug("unrouted weather failure", zap.Error(err))
		},
	})
	if err != nil {
		logger.Fatal("weather fetcher", zap.Error(err))
	}

	units, err := display.ParseUnits(cfg.DefaultUnits)
	if err != nil {
		logger.Fatal("display units", zap.Error(err))
	}

	observability.RegisterWindowGauges(cfg.OverloadWindow)
	if len(cfg.TrackedLocations) > 0 {
		observability.SetTrackedLocations(cfg.TrackedLocations)
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	handler := httphandler.NewHandler(fetcher, &httphandler.HealthConfig{
		OverloadWindow:       cfg.OverloadWindow,
		OverloadThresholdPct: cfg.OverloadThresholdPct,
		RateLimitRPS:         cfg.RateLimitRPS,
		RateLimitBurst:       cfg.RateLimitBurst,
		DegradedWindow:       cfg.DegradedWindow,
		DegradedErrorPct:     cfg.DegradedErrorPct,
	}, logger, limiter, units)

	srv := &http.Server{
		Addr: ":" + cfg.ServerPort,
		Handler: httphandler.NewRouter(handler, httphandler.RouterConfig{
			Logger:         logger,
			RateLimiter:    limiter,
			RequestTimeout: cfg.RequestTimeout,
			TestingMode:    cfg.TestingMode,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("units", units.String()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()
	lifecycle.MarkStarted(time.Now())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	if err := httphandler.WaitForInFlight(shutdownCtx, cfg.InFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}
	// Fetches outlive the requests that issued them once a handler stops waiting.
	if err := fetcher.Wait(shutdownCtx); err != nil {
		logger.Warn("weather fetches not completed", zap.Error(err))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
