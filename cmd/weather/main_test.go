package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup/internal/config"
	"github.com/kjstillabower/weather-lookup/internal/display"
	"github.com/kjstillabower/weather-lookup/internal/validation"
)

func providerPayload(name string) map[string]interface{} {
	return map[string]interface{}{
		"weather": []map[string]interface{}{{"description": "clear sky"}},
		"main":    map[string]interface{}{"temp": 300.15, "humidity": 40},
		"wind":    map[string]interface{}{"speed": 3},
		"clouds":  map[string]interface{}{"all": 0},
		"name":    name,
	}
}

type harness struct {
	stdout, stderr bytes.Buffer
	cfg            *config.Config
	loadErr        error
	loads          int
}

func newHarness(apiURL string) *harness {
	return &harness{cfg: &config.Config{
		WeatherAPIKey:  "test-api-key-12345",
		WeatherAPIURL:  apiURL,
		RequestTimeout: 2 * time.Second,
		DefaultUnits:   "c",
	}}
}

func (h *harness) run(args ...string) int {
	return run(context.Background(), args, env{
		stdout: &h.stdout,
		stderr: &h.stderr,
		load: func() (*config.Config, error) {
			h.loads++
			return h.cfg, h.loadErr
		},
		logger: zap.NewNop(),
	})
}

func provider(t *testing.T, fn http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(fn)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestRun_City(t *testing.T) {
	url := provider(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "New York" {
			t.Errorf("q = %q, want New York", got)
		}
		_ = json.NewEncoder(w).Encode(providerPayload("New York"))
	})
	h := newHarness(url)

	if code := h.run("-city", "New York"); code != exitOK {
		t.Fatalf("exit = %d, stderr %q", code, h.stderr.String())
	}
	out := h.stdout.String()
	for _, want := range []string{"New York", "clear sky", "27°", "0%", "3.0 m/s", "None", "40%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_CoordinatesFahrenheit(t *testing.T) {
	url := provider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("lat") != "40.7" || q.Get("lon") != "-74" {
			t.Errorf("lat/lon = %q/%q", q.Get("lat"), q.Get("lon"))
		}
		_ = json.NewEncoder(w).Encode(providerPayload("New York"))
	})
	h := newHarness(url)

	if code := h.run("-lat", "40.7", "-lon", "-74.0", "-units", "f"); code != exitOK {
		t.Fatalf("exit = %d, stderr %q", code, h.stderr.String())
	}
	if !strings.Contains(h.stdout.String(), "81°") {
		t.Errorf("output missing 81°:\n%s", h.stdout.String())
	}
}

func TestRun_DefaultUnitsFromConfig(t *testing.T) {
	url := provider(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(providerPayload("Austin"))
	})
	h := newHarness(url)
	h.cfg.DefaultUnits = "f"

	if code := h.run("-city", "Austin"); code != exitOK {
		t.Fatalf("exit = %d", code)
	}
	if !strings.Contains(h.stdout.String(), "81°") {
		t.Errorf("output missing 81°:\n%s", h.stdout.String())
	}
}

func TestRun_FailurePrintsNotice(t *testing.T) {
	url := provider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := newHarness(url)

	if code := h.run("-city", "Atlantis"); code != exitFailure {
		t.Fatalf("exit = %d, want %d", code, exitFailure)
	}
	if got := strings.TrimSpace(h.stderr.String()); got != display.FailureNotice.String() {
		t.Errorf("stderr = %q, want the failure notice", got)
	}
	if h.stdout.Len() != 0 {
		t.Errorf("stdout = %q, want empty", h.stdout.String())
	}
}

func TestRun_TimeoutPrintsNotice(t *testing.T) {
	release := make(chan struct{})
	url := provider(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
	})
	t.Cleanup(func() { close(release) })
	h := newHarness(url)

	if code := h.run("-city", "Slowtown", "-timeout", "50ms"); code != exitFailure {
		t.Fatalf("exit = %d, want %d", code, exitFailure)
	}
	if !strings.Contains(h.stderr.String(), display.FailureNotice.Title) {
		t.Errorf("stderr = %q, want the failure notice", h.stderr.String())
	}
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"nothing", nil, errUsage.Error()},
		{"city and coordinates", []string{"-city", "Paris", "-lat", "1"}, errUsage.Error()},
		{"blank city", []string{"-city", "   "}, validation.ErrLocationEmpty.Error()},
		{"lat without lon", []string{"-lat", "10"}, validation.ErrCoordinatesRequired.Error()},
		{"lat out of range", []string{"-lat", "91", "-lon", "0"}, "latitude"},
		{"unknown flag", []string{"-zip", "98101"}, "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness("http://127.0.0.1:1")
			if code := h.run(tt.args...); code != exitUsage {
				t.Fatalf("exit = %d, want %d", code, exitUsage)
			}
			if !strings.Contains(h.stderr.String(), tt.wantErr) {
				t.Errorf("stderr = %q, want it to mention %q", h.stderr.String(), tt.wantErr)
			}
			if h.loads != 0 {
				t.Error("config loaded for invalid input")
			}
		})
	}
}

func TestRun_BadUnits(t *testing.T) {
	h := newHarness("http://127.0.0.1:1")
	if code := h.run("-city", "Paris", "-units", "k"); code != exitUsage {
		t.Fatalf("exit = %d, want %d", code, exitUsage)
	}
	if !strings.Contains(h.stderr.String(), "unknown units") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestRun_ConfigError(t *testing.T) {
	h := newHarness("http://127.0.0.1:1")
	h.loadErr = errors.New("WEATHER_API_KEY is required")

	if code := h.run("-city", "Paris"); code != exitFailure {
		t.Fatalf("exit = %d, want %d", code, exitFailure)
	}
	if !strings.Contains(h.stderr.String(), "WEATHER_API_KEY") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}
