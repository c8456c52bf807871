// Command weather prints current conditions for a city or coordinate pair.
//
//	weather -city "New York"
//	weather -lat 40.7 -lon -74.0 -units f
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup/internal/client"
	"github.com/kjstillabower/weather-lookup/internal/config"
	"github.com/kjstillabower/weather-lookup/internal/display"
	"github.com/kjstillabower/weather-lookup/internal/observability"
	"github.com/kjstillabower/weather-lookup/internal/validation"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var errUsage = errors.New("give either -city or both -lat and -lon")

// env is what run needs from the process, swapped out in tests.
type env struct {
	stdout io.Writer
	stderr io.Writer
	load   func() (*config.Config, error)
	logger *zap.Logger
}

func main() {
	logger, err := observability.NewCLILogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(exitFailure)
	}
	code := run(context.Background(), os.Args[1:], env{
		stdout: os.Stdout,
		stderr: os.Stderr,
		load:   config.Load,
		logger: logger,
	})
	_ = logger.Sync()
	os.Exit(code)
}

// lookup is one validated request from the command line.
type lookup struct {
	city     string
	lat, lon float64
}

func (l lookup) issue(ctx context.Context, f *client.WeatherFetcher) {
	if l.city != "" {
		f.FetchByCity(ctx, l.city)
		return
	}
	f.FetchByCoordinates(ctx, l.lat, l.lon)
}

func parseLookup(city, lat, lon string) (lookup, error) {
	switch {
	case city != "" && (lat != "" || lon != ""):
		return lookup{}, errUsage
	case city != "":
		name, err := validation.ValidateCity(city, validation.MinCityLength, validation.MaxCityLength)
		if err != nil {
			return lookup{}, err
		}
		return lookup{city: name}, nil
	case lat != "" || lon != "":
		la, lo, err := validation.ParseCoordinates(lat, lon)
		if err != nil {
			return lookup{}, err
		}
		return lookup{lat: la, lon: lo}, nil
	default:
		return lookup{}, errUsage
	}
}

func run(ctx context.Context, args []string, e env) int {
	fs := flag.NewFlagSet("weather", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	city := fs.String("city", "", `city name, e.g. "New York" or "London,uk"`)
	lat := fs.String("lat", "", "latitude in decimal degrees")
	lon := fs.String("lon", "", "longitude in decimal degrees")
	unitsFlag := fs.String("units", "", "temperature units, c or f (default from config)")
	wait := fs.Duration("timeout", 0, "how long to wait for the weather service (default from config)")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	req, err := parseLookup(*city, *lat, *lon)
	if err != nil {
		fmt.Fprintf(e.stderr, "weather: %v\n", err)
		if errors.Is(err, errUsage) {
			fs.Usage()
		}
		return exitUsage
	}

	cfg, err := e.load()
	if err != nil {
		fmt.Fprintf(e.stderr, "weather: %v\n", err)
		return exitFailure
	}

	rawUnits := *unitsFlag
	if rawUnits == "" {
		rawUnits = cfg.DefaultUnits
	}
	units, err := display.ParseUnits(rawUnits)
	if err != nil {
		fmt.Fprintf(e.stderr, "weather: %v\n", err)
		return exitUsage
	}

	if err := observability.InitTracing(ctx, observability.TracingConfig{
		Endpoint:    cfg.TracingEndpoint,
		ServiceName: cfg.TracingServiceName,
	}); err != nil {
		e.logger.Warn("tracing disabled", zap.Error(err))
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := observability.FlushTelemetry(flushCtx, nil); err != nil {
			e.logger.Warn("telemetry flush", zap.Error(err))
		}
	}()

	results := client.NewResultChan(1)
	fetcher, err := client.NewWeatherFetcher(cfg.WeatherAPIKey, cfg.WeatherAPIURL, results)
	if err != nil {
		fmt.Fprintf(e.stderr, "weather: %v\n", err)
		return exitFailure
	}

	timeout := cfg.RequestTimeout
	if *wait > 0 {
		timeout = *wait
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req.issue(context.WithValue(ctx, "logger", e.logger), fetcher)
	select {
	case res := <-results:
		if res.Err != nil {
			e.logger.Debug("lookup failed", zap.Error(res.Err), zap.String("kind", client.KindOf(res.Err).String()))
			fmt.Fprintln(e.stderr, display.FailureNotice)
			return exitFailure
		}
		if _, err := display.Format(res.Snapshot, units).WriteTo(e.stdout); err != nil {
			fmt.Fprintf(e.stderr, "weather: %v\n", err)
			return exitFailure
		}
		return exitOK
	case <-waitCtx.Done():
		e.logger.Debug("lookup timed out", zap.Duration("timeout", timeout))
		fmt.Fprintln(e.stderr, display.FailureNotice)
		return exitFailure
	}
}
