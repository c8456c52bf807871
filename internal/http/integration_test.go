//go:build integration
// +build integration

package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-lookup/internal/display"
	"github.com/kjstillabower/weather-lookup/internal/observability"
	"github.com/kjstillabower/weather-lookup/internal/testhelpers"
	"github.com/kjstillabower/weather-lookup/internal/traffic"
)

var testLogger *zap.Logger

func init() {
	var err error
	testLogger, err = observability.NewLogger()
	if err != nil {
		panic(err)
	}
}

// setupIntegrationRouter builds the full router against the live provider.
func setupIntegrationRouter(t *testing.T, limiter *rate.Limiter) http.Handler {
	t.Helper()
	cfg := testhelpers.GetIntegrationConfig(t)
	fetcher, _ := testhelpers.SetupIntegrationFetcher(t, cfg)
	traffic.Reset()
	t.Cleanup(traffic.Reset)

	h := NewHandler(fetcher, nil, testLogger, limiter, display.Celsius)
	return NewRouter(h, RouterConfig{
		Logger:         testLogger,
		RateLimiter:    limiter,
		RequestTimeout: 15 * time.Second,
	})
}

func TestIntegration_GetWeatherByCity(t *testing.T) {
	router := setupIntegrationRouter(t, nil)

	w := serve(router, "GET", "/weather/city/London", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	got := decodeWeather(t, w)
	if got.Snapshot.City == "" || got.Display.City != got.Snapshot.City {
		t.Errorf("city snapshot=%q display=%q", got.Snapshot.City, got.Display.City)
	}
	if got.Temperature.Kelvin <= 0 {
		t.Errorf("temperature.kelvin = %v, want positive", got.Temperature.Kelvin)
	}
	if !strings.HasSuffix(got.Display.Temperature, "°") {
		t.Errorf("display.temperature = %q", got.Display.Temperature)
	}
}

func TestIntegration_GetWeatherByCity_MultiWord(t *testing.T) {
	router := setupIntegrationRouter(t, nil)

	w := serve(router, "GET", "/weather/city/New%20York?units=f", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	if got := decodeWeather(t, w); got.Units != "f" {
		t.Errorf("units = %q, want f", got.Units)
	}
}

func TestIntegration_GetWeatherByCoordinates(t *testing.T) {
	router := setupIntegrationRouter(t, nil)

	w := serve(router, "GET", "/weather/coordinates?lat=51.5074&lon=-0.1278", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	if got := decodeWeather(t, w); got.Snapshot.Country != "GB" {
		t.Errorf("snapshot.country = %q, want GB", got.Snapshot.Country)
	}
}

func TestIntegration_UnknownCity(t *testing.T) {
	router := setupIntegrationRouter(t, nil)

	w := serve(router, "GET", "/weather/city/Xyzzyville%20Nowhere%2012345", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	body := decodeError(t, w)
	if body.Error.Kind != "transport" || body.Error.Category != "location_not_found" {
		t.Errorf("kind/category = %q/%q, want transport/location_not_found", body.Error.Kind, body.Error.Category)
	}
}

func TestIntegration_GetHealth_FullStack(t *testing.T) {
	router := setupIntegrationRouter(t, nil)

	serve(router, "GET", "/weather/city/London", nil)
	w := serve(router, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
}

func TestIntegration_GetMetrics_Format(t *testing.T) {
	router := setupIntegrationRouter(t, nil)

	serve(router, "GET", "/weather/city/London", nil)
	w := serve(router, "GET", "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	text := w.Body.String()
	for _, name := range []string{"httpRequestsTotal", "weatherApiCallsTotal", "weatherQueriesTotal"} {
		if !strings.Contains(text, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestIntegration_RateLimiting_Concurrent(t *testing.T) {
	router := setupIntegrationRouter(t, rate.NewLimiter(rate.Every(time.Hour), 3))

	var wg sync.WaitGroup
	codes := make(chan int, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/weather/city/London", nil))
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	var okCount, limited int
	for code := range codes {
		switch code {
		case http.StatusOK:
			okCount++
		case http.StatusTooManyRequests:
			limited++
		}
	}
	if okCount != 3 || limited != 7 {
		t.Errorf("ok/limited = %d/%d, want 3/7", okCount, limited)
	}
}
