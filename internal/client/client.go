package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup/internal/models"
	"github.com/kjstillabower/weather-lookup/internal/observability"
)

// DefaultAPIURL is the OpenWeatherMap current-conditions endpoint.
const DefaultAPIURL = "https://api.openweathermap.org/data/2.5/weather"

const tracerName = "github.com/kjstillabower/weather-lookup/internal/client"

// WeatherFetcher issues single-attempt lookups against the weather provider and
// reports each outcome to its registered Observer. Fetch methods never block.
type WeatherFetcher struct {
	up *upstream

	mu       sync.RWMutex
	observer Observer
}

// upstream is shared between a fetcher and the fetchers derived via WithObserver.
type upstream struct {
	apiKey   string
	apiURL   *url.URL
	client   *http.Client
	inFlight sync.WaitGroup
}

// NewWeatherFetcher creates a fetcher using an OpenTelemetry-instrumented default transport.
// An empty apiURL selects DefaultAPIURL.
func NewWeatherFetcher(apiKey, apiURL string, observer Observer) (*WeatherFetcher, error) {
	return NewWeatherFetcherWithClient(apiKey, apiURL, nil, observer)
}

// NewWeatherFetcherWithClient is NewWeatherFetcher with a caller-supplied http.Client.
// The client's own settings (including any timeout) are used as-is.
func NewWeatherFetcherWithClient(apiKey, apiURL string, httpClient *http.Client, observer Observer) (*WeatherFetcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}
	if observer == nil {
		return nil, errors.New("observer is required")
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API URL: %q is not absolute", apiURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	return &WeatherFetcher{
		up: &upstream{
			apiKey: apiKey,
			apiURL: u,
			client: httpClient,
		},
		observer: observer,
	}, nil
}

// WithObserver returns a fetcher that shares credentials and transport with f but
// reports to o. Use it to route results per caller. A nil o keeps f's observer.
func (f *WeatherFetcher) WithObserver(o Observer) *WeatherFetcher {
	if o == nil {
		o = f.currentObserver()
	}
	return &WeatherFetcher{up: f.up, observer: o}
}

// SetObserver replaces the registered observer. Fetches already issued keep
// reporting to the observer that was registered when they started. A nil o is
// ignored so a fetcher always has somewhere to report.
func (f *WeatherFetcher) SetObserver(o Observer) {
	if o == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observer = o
}

func (f *WeatherFetcher) currentObserver() Observer {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.observer
}

// FetchByCity looks up current conditions for a city name. The name is
// percent-encoded into the q parameter.
func (f *WeatherFetcher) FetchByCity(ctx context.Context, name string) {
	f.start(ctx, cityQuery(name))
}

// FetchByCoordinates looks up current conditions for a latitude/longitude pair.
func (f *WeatherFetcher) FetchByCoordinates(ctx context.Context, latitude, longitude float64) {
	f.start(ctx, coordinatesQuery(latitude, longitude))
}

// Wait blocks until every fetch issued through f or its derived fetchers has
// reported, or ctx is done.
func (f *WeatherFetcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		f.up.inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// query is one encoded lookup. params excludes the API key.
type query struct {
	kind   string
	label  string
	params string
}

func cityQuery(name string) query {
	return query{
		kind:   "city",
		label:  name,
		params: "q=" + percentEncode(name),
	}
}

func coordinatesQuery(latitude, longitude float64) query {
	lat := strconv.FormatFloat(latitude, 'f', -1, 64)
	lon := strconv.FormatFloat(longitude, 'f', -1, 64)
	return query{
		kind:   "coordinates",
		label:  lat + "," + lon,
		params: "lat=" + lat + "&lon=" + lon,
	}
}

// percentEncode escapes s for a query value using %20 for spaces.
func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func (f *WeatherFetcher) start(ctx context.Context, q query) {
	observer := f.currentObserver()
	// Keep request-scoped values but never let the caller cancel an issued fetch.
	ctx = context.WithoutCancel(ctx)

	location := ""
	if q.kind == "city" {
		location = q.label
	}
	observability.RecordWeatherQuery(q.kind, location)

	f.up.inFlight.Add(1)
	observability.WeatherFetchesInFlight.Inc()
	go func() {
		defer f.up.inFlight.Done()
		defer observability.WeatherFetchesInFlight.Dec()

		start := time.Now()
		snapshot, err := f.fetch(ctx, q)
		logger := loggerFromContext(ctx)
		if err != nil {
			observability.WeatherFetchFailuresTotal.WithLabelValues(KindOf(err).String(), string(CategorizeError(err))).Inc()
			if logger != nil {
				logger.Warn("weather fetch failed",
					zap.String("query_type", q.kind),
					zap.String("query", q.label),
					zap.Error(err),
					zap.Duration("duration", time.Since(start)))
			}
			observer.OnFailure(err)
			return
		}
		if logger != nil {
			logger.Debug("weather fetched",
				zap.String("query_type", q.kind),
				zap.String("query", q.label),
				zap.String("city", snapshot.City),
				zap.Duration("duration", time.Since(start)))
		}
		observer.OnSuccess(snapshot)
	}()
}

func (f *WeatherFetcher) fetch(ctx context.Context, q query) (models.WeatherSnapshot, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "weather.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("weather.query_type", q.kind),
			attribute.String("weather.query", q.label),
		))
	defer span.End()

	snapshot, err := f.callAPI(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, KindOf(err).String()+" failure")
		return models.WeatherSnapshot{}, err
	}
	span.SetAttributes(attribute.String("weather.city", snapshot.City))
	span.SetStatus(codes.Ok, "")
	return snapshot, nil
}

func (f *WeatherFetcher) callAPI(ctx context.Context, q query) (models.WeatherSnapshot, error) {
	start := time.Now()

	req, err := f.buildRequest(ctx, q)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		return models.WeatherSnapshot{}, transportError(q, fmt.Errorf("build request: %w", err))
	}

	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := f.up.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		observability.WeatherAPIDuration.WithLabelValues("error").Observe(duration)
		return models.WeatherSnapshot{}, transportError(q, fmt.Errorf("http request failed: %w", err))
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(status).Observe(duration)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.WeatherSnapshot{}, transportError(q, fmt.Errorf("read response body: %w", err))
	}

	if err := statusError(resp.StatusCode, body); err != nil {
		return models.WeatherSnapshot{}, transportError(q, err)
	}

	snapshot, err := parseSnapshot(body)
	if err != nil {
		return models.WeatherSnapshot{}, parseError(q, err)
	}
	return snapshot, nil
}

func (f *WeatherFetcher) buildRequest(ctx context.Context, q query) (*http.Request, error) {
	u := *f.up.apiURL
	raw := "APPID=" + percentEncode(f.up.apiKey) + "&" + q.params
	if u.RawQuery != "" {
		raw = u.RawQuery + "&" + raw
	}
	u.RawQuery = raw

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// statusError maps non-2xx statuses to sentinel errors, carrying the provider's
// message when the body has one.
func statusError(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	detail := fmt.Sprintf("HTTP %d", statusCode)
	var eb owmErrorBody
	if json.Unmarshal(body, &eb) == nil && eb.Message != "" {
		detail += ": " + eb.Message
	}

	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrInvalidAPIKey, detail)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrLocationNotFound, detail)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, detail)
	default:
		return fmt.Errorf("%w: %s", ErrUpstreamFailure, detail)
	}
}

func extractCorrelationID(ctx context.Context) string {
	if corrIDVal := ctx.Value("correlation_id"); corrIDVal != nil {
		if corrID, ok := corrIDVal.(string); ok {
			return corrID
		}
	}
	return ""
}

// loggerFromContext returns the request-scoped logger, or nil when none is set.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
