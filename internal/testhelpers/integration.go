//go:build integration
// +build integration

package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/weather-lookup/internal/client"
	"github.com/kjstillabower/weather-lookup/internal/models"
)

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	APIKey string
	APIURL string
}

// GetIntegrationConfig loads integration test configuration from environment.
// Skips test if WEATHER_API_KEY is not set.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	apiKey := os.Getenv("WEATHER_API_KEY")
	if apiKey == "" {
		t.Skip("WEATHER_API_KEY not set, skipping integration test")
	}

	apiURL := os.Getenv("WEATHER_API_URL")
	if apiURL == "" {
		apiURL = client.DefaultAPIURL
	}
	return IntegrationTestConfig{APIKey: apiKey, APIURL: apiURL}
}

// SetupIntegrationFetcher creates a fetcher against the live provider. Results go
// to the returned channel unless the caller routes them elsewhere with WithObserver.
// Outstanding fetches are drained when the test ends.
func SetupIntegrationFetcher(t *testing.T, cfg IntegrationTestConfig) (*client.WeatherFetcher, client.ResultChan) {
	t.Helper()
	results := client.NewResultChan(8)
	f, err := client.NewWeatherFetcher(cfg.APIKey, cfg.APIURL, results)
	if err != nil {
		t.Fatalf("NewWeatherFetcher() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = f.Wait(ctx)
	})
	return f, results
}

// AwaitResult waits for one result from ch, failing the test after timeout.
func AwaitResult(t *testing.T, ch client.ResultChan, timeout time.Duration) (models.WeatherSnapshot, error) {
	t.Helper()
	select {
	case res := <-ch:
		return res.Snapshot, res.Err
	case <-time.After(timeout):
		t.Fatalf("no result within %v", timeout)
		return models.WeatherSnapshot{}, nil
	}
}
