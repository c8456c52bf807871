package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-lookup/internal/observability"
)

// RouterConfig selects the middleware and optional routes NewRouter installs.
type RouterConfig struct {
	Logger         *zap.Logger
	RateLimiter    *rate.Limiter // nil disables rate limiting
	RequestTimeout time.Duration // wait bound for /weather handlers
	TestingMode    bool          // exposes /test endpoints
}

// NewRouter wires h into a mux router and wraps it for server-side tracing.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler())

	weatherRouter := router.PathPrefix("/weather").Subrouter()
	weatherRouter.Use(RateLimitMiddleware(cfg.RateLimiter))
	if cfg.RequestTimeout > 0 {
		weatherRouter.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	weatherRouter.HandleFunc("/city/{city}", h.GetWeatherByCity).Methods(http.MethodGet)
	weatherRouter.HandleFunc("/city", h.GetWeatherByCity).Methods(http.MethodGet)
	weatherRouter.HandleFunc("/coordinates", h.GetWeatherByCoordinates).Methods(http.MethodGet)

	if cfg.TestingMode {
		logger.Warn("Testing mode enabled; /test endpoint exposed")
		router.HandleFunc("/test", h.GetTestStatus).Methods(http.MethodGet)
		router.HandleFunc("/test/{action}", h.PostTestAction).Methods(http.MethodPost)
	}

	return otelhttp.NewHandler(router, serviceName)
}
