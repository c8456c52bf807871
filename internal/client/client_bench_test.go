package client

import (
	"context"
	"testing"
)

const benchResponseJSON = `{
	"coord": {"lon": -122.33, "lat": 47.61},
	"weather": [{"id": 800, "main": "Clear", "description": "clear sky", "icon": "01d"}],
	"main": {"temp": 288.65, "pressure": 1015, "humidity": 65},
	"wind": {"speed": 10.2, "deg": 180},
	"clouds": {"all": 0},
	"sys": {"country": "US", "sunrise": 1465733000, "sunset": 1465790000},
	"dt": 1465760000,
	"name": "Seattle"
}`

// BenchmarkFetcher_BuildRequest benchmarks HTTP request construction.
func BenchmarkFetcher_BuildRequest(b *testing.B) {
	f, _ := NewWeatherFetcher("test-api-key-12345", DefaultAPIURL, NewResultChan(1))
	ctx := context.Background()
	q := cityQuery("seattle")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = f.buildRequest(ctx, q)
	}
}

// BenchmarkParseSnapshot benchmarks JSON decoding plus mapping to the domain model.
func BenchmarkParseSnapshot(b *testing.B) {
	body := []byte(benchResponseJSON)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = parseSnapshot(body)
	}
}

// BenchmarkMapResponse benchmarks response mapping to domain model.
func BenchmarkMapResponse(b *testing.B) {
	name, desc := "Seattle", "clear sky"
	temp, speed := 288.65, 10.2
	humidity, clouds := 65, 0
	apiResp := openWeatherResponse{
		Weather: []owmCondition{{ID: 800, Main: "Clear", Description: &desc, Icon: "01d"}},
		Main:    &owmMain{Temp: &temp, Humidity: &humidity},
		Wind:    &owmWind{Speed: &speed},
		Clouds:  &owmClouds{All: &clouds},
		Name:    &name,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = mapResponse(apiResp)
	}
}

// BenchmarkStatusError benchmarks non-2xx classification.
func BenchmarkStatusError(b *testing.B) {
	body := []byte(`{"cod":"404","message":"city not found"}`)
	codes := []int{200, 401, 404, 429, 503}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = statusError(codes[i%len(codes)], body)
	}
}

// BenchmarkPercentEncode benchmarks city name escaping.
func BenchmarkPercentEncode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = percentEncode("São Paulo, BR")
	}
}

// BenchmarkStatusLabel benchmarks HTTP status code to label conversion.
func BenchmarkStatusLabel(b *testing.B) {
	statusCodes := []int{200, 400, 429, 500, 503}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		code := statusCodes[i%len(statusCodes)]
		_ = statusLabel(code)
	}
}
