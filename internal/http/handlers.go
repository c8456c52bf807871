package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-lookup/internal/client"
	"github.com/kjstillabower/weather-lookup/internal/display"
	"github.com/kjstillabower/weather-lookup/internal/lifecycle"
	"github.com/kjstillabower/weather-lookup/internal/models"
	"github.com/kjstillabower/weather-lookup/internal/observability"
	"github.com/kjstillabower/weather-lookup/internal/traffic"
	"github.com/kjstillabower/weather-lookup/internal/validation"
)

const serviceName = "weather-lookup"

// HealthConfig holds lifecycle thresholds for the health handler.
type HealthConfig struct {
	OverloadWindow       time.Duration
	OverloadThresholdPct int
	RateLimitRPS         int
	RateLimitBurst       int // 0 when rate limiter disabled
	DegradedWindow       time.Duration
	DegradedErrorPct     int
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	fetcher          *client.WeatherFetcher
	healthConfig     *HealthConfig
	logger           *zap.Logger
	rateLimiter      *rate.Limiter
	defaultUnits     display.Units
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. Each weather request routes its result back
// through a per-request observer derived from fetcher.
func NewHandler(
	fetcher *client.WeatherFetcher,
	healthConfig *HealthConfig,
	logger *zap.Logger,
	rateLimiter *rate.Limiter,
	defaultUnits display.Units,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		fetcher:      fetcher,
		healthConfig: healthConfig,
		logger:       logger,
		rateLimiter:  rateLimiter,
		defaultUnits: defaultUnits,
	}
}

type temperatures struct {
	Celsius    float64 `json:"celsius"`
	Fahrenheit float64 `json:"fahrenheit"`
	Kelvin     float64 `json:"kelvin"`
}

type weatherResponse struct {
	Snapshot    models.WeatherSnapshot `json:"snapshot"`
	Display     display.Report         `json:"display"`
	Units       string                 `json:"units"`
	Temperature temperatures           `json:"temperature"`
}

// GetWeatherByCity handles GET /weather/city/{city} and GET /weather/city?q=.
// The query form carries names that contain a slash, which the path form can't route.
func (h *Handler) GetWeatherByCity(w http.ResponseWriter, r *http.Request) {
	raw, ok := mux.Vars(r)["city"]
	if !ok {
		raw = r.URL.Query().Get("q")
	}
	city, err := validation.ValidateCity(raw, validation.MinCityLength, validation.MaxCityLength)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", err.Error())
		return
	}
	units, ok := h.requestUnits(w, r)
	if !ok {
		return
	}

	results := client.NewResultChan(1)
	h.fetcher.WithObserver(results).FetchByCity(r.Context(), city)
	h.awaitResult(w, r, results, units)
}

// GetWeatherByCoordinates handles GET /weather/coordinates?lat=&lon=.
func (h *Handler) GetWeatherByCoordinates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, lon, err := validation.ParseCoordinates(q.Get("lat"), q.Get("lon"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", err.Error())
		return
	}
	units, ok := h.requestUnits(w, r)
	if !ok {
		return
	}

	results := client.NewResultChan(1)
	h.fetcher.WithObserver(results).FetchByCoordinates(r.Context(), lat, lon)
	h.awaitResult(w, r, results, units)
}

// requestUnits resolves the units query parameter, writing 400 INVALID_UNITS on failure.
func (h *Handler) requestUnits(w http.ResponseWriter, r *http.Request) (display.Units, bool) {
	raw := r.URL.Query().Get("units")
	if raw == "" {
		return h.defaultUnits, true
	}
	units, err := display.ParseUnits(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_UNITS", err.Error())
		return 0, false
	}
	return units, true
}

// awaitResult blocks the handler goroutine until the fetch reports or the request
// context ends. The buffered channel lets a late fetch complete without a reader.
func (h *Handler) awaitResult(w http.ResponseWriter, r *http.Request, results client.ResultChan, units display.Units) {
	select {
	case res := <-results:
		if res.Err != nil {
			traffic.Record(traffic.Failed)
			writeFetchError(w, r, res.Err)
			return
		}
		traffic.Record(traffic.Delivered)
		s := res.Snapshot
		writeJSON(w, http.StatusOK, weatherResponse{
			Snapshot: s,
			Display:  display.Format(s, units),
			Units:    units.String(),
			Temperature: temperatures{
				Celsius:    s.TemperatureCelsius,
				Fahrenheit: s.TemperatureFahrenheit(),
				Kelvin:     s.TemperatureKelvin(),
			},
		})
	case <-r.Context().Done():
		err := r.Context().Err()
		if !errors.Is(err, context.DeadlineExceeded) {
			// The caller went away; nobody is left to answer and the provider is not at fault.
			loggerFrom(r, h.logger).Debug("weather wait abandoned by client", zap.Error(err))
			return
		}
		traffic.Record(traffic.Failed)
		loggerFrom(r, h.logger).Debug("weather wait timed out", zap.Error(err))
		writeError(w, r, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT", "Weather service did not respond in time")
	}
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	weatherAPI := "healthy"
	if result.status == "degraded" {
		weatherAPI = "unhealthy"
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"service":   serviceName,
		"version":   "dev",
		"checks":    map[string]string{"weatherApi": weatherAPI},
		"inFlight":  InFlightCount(),
		"uptime":    lifecycle.Uptime().Truncate(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates conditions in priority order:
// shutting-down > overloaded > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	if h.healthConfig.RateLimitRPS > 0 && h.healthConfig.OverloadWindow > 0 {
		if float64(traffic.RequestCount(h.healthConfig.OverloadWindow)) > h.overloadThreshold() {
			return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold"}
		}
	}
	if h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		failures, total := traffic.FailureRate(h.healthConfig.DegradedWindow)
		if total > 0 && float64(failures)*100/float64(total) >= float64(h.healthConfig.DegradedErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// overloadThreshold is the request count (served plus denied) over OverloadWindow
// that marks the service overloaded: OverloadThresholdPct of rate-limit capacity.
func (h *Handler) overloadThreshold() float64 {
	return float64(h.healthConfig.RateLimitRPS) * h.healthConfig.OverloadWindow.Seconds() *
		float64(h.healthConfig.OverloadThresholdPct) / 100
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeErrorDetail(w, r, status, code, message, nil)
}

func writeErrorDetail(w http.ResponseWriter, r *http.Request, status int, code, message string, extra map[string]string) {
	body := map[string]string{
		"code":      code,
		"message":   message,
		"requestId": correlationID(r.Context()),
	}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, map[string]interface{}{"error": body})
}

// writeFetchError writes 503 UPSTREAM_UNAVAILABLE carrying the user-facing notice,
// the failure kind (transport|parse) and its metric category.
func writeFetchError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorDetail(w, r, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", display.FailureNotice.Message, map[string]string{
		"title":    display.FailureNotice.Title,
		"kind":     client.KindOf(err).String(),
		"category": string(client.CategorizeError(err)),
	})
	loggerFrom(r, nil).Debug("upstream error", zap.Error(err))
}

func correlationID(ctx context.Context) string {
	if v, ok := ctx.Value("correlation_id").(string); ok {
		return v
	}
	return ""
}

// loggerFrom returns the request-scoped logger, falling back to fallback or a no-op.
func loggerFrom(r *http.Request, fallback *zap.Logger) *zap.Logger {
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return zap.NewNop()
}

// GetTestStatus handles GET /test. Returns current simulated state.
func (h *Handler) GetTestStatus(w http.ResponseWriter, r *http.Request) {
	window := h.degradedWindow()
	failures, total := traffic.FailureRate(window)

	cfg := make(map[string]interface{})
	if h.healthConfig != nil {
		overloadThreshold := 0
		if h.healthConfig.RateLimitRPS > 0 {
			overloadThreshold = int(h.overloadThreshold())
		}
		cfg["rate_limit_rps"] = h.healthConfig.RateLimitRPS
		cfg["rate_limit_burst"] = h.healthConfig.RateLimitBurst
		cfg["overload_threshold"] = overloadThreshold
		cfg["overload_window_seconds"] = h.healthConfig.OverloadWindow.Seconds()
		cfg["degraded_error_pct"] = h.healthConfig.DegradedErrorPct
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_requests_in_window":  traffic.RequestCount(window),
		"denied_requests_in_window": traffic.DenialCount(window),
		"fetches_in_window":         total,
		"failures_in_window":        failures,
		"window_length":             window.String(),
		"state":                     h.computeHealthStatus().status,
		"config":                    cfg,
	})
}

func (h *Handler) degradedWindow() time.Duration {
	if h.healthConfig != nil && h.healthConfig.DegradedWindow > 0 {
		return h.healthConfig.DegradedWindow
	}
	return 60 * time.Second
}

// PostTestAction handles POST /test/{action} for load, error, reset and shutdown.
func (h *Handler) PostTestAction(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	switch action {
	case "load":
		h.postTestLoad(w, r)
	case "error":
		h.postTestError(w, r)
	case "reset":
		h.postTestReset(w, r)
	case "shutdown":
		h.postTestShutdown(w, r)
	default:
		writeError(w, r, http.StatusNotFound, "UNKNOWN_ACTION", "unknown test action: "+action)
	}
}

// maxSimulatedCount caps one simulated batch so a single request can't pin the
// handler looping over the rate limiter.
const maxSimulatedCount = 10000

func decodeCount(r *http.Request, fallback int) int {
	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Count <= 0 {
		return fallback
	}
	if body.Count > maxSimulatedCount {
		return maxSimulatedCount
	}
	return body.Count
}

// postTestLoad records simulated deliveries, passing each through the rate limiter
// when one is configured so denials show up as they would for real traffic.
func (h *Handler) postTestLoad(w http.ResponseWriter, r *http.Request) {
	count := decodeCount(r, 10)
	var accepted, denied int
	if h.rateLimiter != nil {
		for i := 0; i < count; i++ {
			if h.rateLimiter.Allow() {
				accepted++
			} else {
				denied++
			}
		}
		observability.RateLimitDeniedTotal.Add(float64(denied))
	} else {
		accepted = count
	}
	traffic.RecordN(traffic.Delivered, accepted)
	traffic.RecordN(traffic.Denied, denied)

	msg := "Recorded " + strconv.Itoa(accepted) + " accepted"
	if denied > 0 {
		msg += ", " + strconv.Itoa(denied) + " denied"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":       true,
		"action":   "load",
		"message":  msg,
		"state":    h.computeHealthStatus().status,
		"accepted": accepted,
		"denied":   denied,
	})
}

// postTestError records simulated fetch failures and returns the resulting failure rate.
func (h *Handler) postTestError(w http.ResponseWriter, r *http.Request) {
	count := decodeCount(r, 1)
	traffic.RecordN(traffic.Failed, count)

	failures, total := traffic.FailureRate(h.degradedWindow())
	pct := 0
	if total > 0 {
		pct = failures * 100 / total
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":             true,
		"action":         "error",
		"message":        "Recorded " + strconv.Itoa(count) + " errors",
		"state":          h.computeHealthStatus().status,
		"error_rate_pct": pct,
	})
}

// postTestReset clears recorded traffic and the shutdown flag.
func (h *Handler) postTestReset(w http.ResponseWriter, r *http.Request) {
	traffic.Reset()
	lifecycle.SetShuttingDown(false)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"action":  "reset",
		"message": "All simulated state cleared",
	})
}

// postTestShutdown sets the shutdown flag; /health reports shutting-down until reset.
func (h *Handler) postTestShutdown(w http.ResponseWriter, r *http.Request) {
	lifecycle.SetShuttingDown(true)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"action":  "shutdown",
		"message": "Shutting-down flag set",
	})
}
