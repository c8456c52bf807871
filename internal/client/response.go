package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kjstillabower/weather-lookup/internal/models"
)

// openWeatherResponse mirrors the current-conditions payload. Required fields are
// pointers so that absence can be told apart from a zero reading.
type openWeatherResponse struct {
	Coord   *owmCoord      `json:"coord"`
	Weather []owmCondition `json:"weather"`
	Main    *owmMain       `json:"main"`
	Wind    *owmWind       `json:"wind"`
	Clouds  *owmClouds     `json:"clouds"`
	Rain    *owmRain       `json:"rain"`
	Sys     owmSys         `json:"sys"`
	Dt      int64          `json:"dt"`
	Name    *string        `json:"name"`
}

type owmCoord struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

type owmCondition struct {
	ID          int     `json:"id"`
	Main        string  `json:"main"`
	Description *string `json:"description"`
	Icon        string  `json:"icon"`
}

type owmMain struct {
	Temp     *float64 `json:"temp"` // Kelvin
	Pressure float64  `json:"pressure"`
	Humidity *int     `json:"humidity"`
}

type owmWind struct {
	Speed *float64 `json:"speed"`
	Deg   float64  `json:"deg"`
}

type owmClouds struct {
	All *int `json:"all"`
}

type owmRain struct {
	ThreeHours *float64 `json:"3h"`
}

type owmSys struct {
	Country string `json:"country"`
	Sunrise int64  `json:"sunrise"`
	Sunset  int64  `json:"sunset"`
}

// owmErrorBody is what the provider sends alongside non-2xx statuses.
type owmErrorBody struct {
	Message string `json:"message"`
}

// parseSnapshot decodes body and maps it to a snapshot. Any decode or shape
// failure returns an error and no partial snapshot.
func parseSnapshot(body []byte) (models.WeatherSnapshot, error) {
	var apiResp openWeatherResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.WeatherSnapshot{}, fmt.Errorf("parse response: %w", err)
	}
	return mapResponse(apiResp)
}

func mapResponse(r openWeatherResponse) (models.WeatherSnapshot, error) {
	switch {
	case r.Name == nil:
		return models.WeatherSnapshot{}, missingField("name")
	case len(r.Weather) == 0 || r.Weather[0].Description == nil:
		return models.WeatherSnapshot{}, missingField("weather.description")
	case r.Main == nil || r.Main.Temp == nil:
		return models.WeatherSnapshot{}, missingField("main.temp")
	case r.Main.Humidity == nil:
		return models.WeatherSnapshot{}, missingField("main.humidity")
	case r.Clouds == nil || r.Clouds.All == nil:
		return models.WeatherSnapshot{}, missingField("clouds.all")
	case r.Wind == nil || r.Wind.Speed == nil:
		return models.WeatherSnapshot{}, missingField("wind.speed")
	}

	if *r.Main.Temp < 0 {
		return models.WeatherSnapshot{}, outOfRange("main.temp", *r.Main.Temp)
	}
	if !isPercent(*r.Main.Humidity) {
		return models.WeatherSnapshot{}, outOfRange("main.humidity", float64(*r.Main.Humidity))
	}
	if !isPercent(*r.Clouds.All) {
		return models.WeatherSnapshot{}, outOfRange("clouds.all", float64(*r.Clouds.All))
	}
	if *r.Wind.Speed < 0 {
		return models.WeatherSnapshot{}, outOfRange("wind.speed", *r.Wind.Speed)
	}

	condition := r.Weather[0]
	snapshot := models.WeatherSnapshot{
		City:                 *r.Name,
		WeatherDescription:   *condition.Description,
		TemperatureCelsius:   models.KelvinToCelsius(*r.Main.Temp),
		CloudCoverPercent:    *r.Clouds.All,
		WindSpeed:            *r.Wind.Speed,
		HumidityPercent:      *r.Main.Humidity,
		Country:              r.Sys.Country,
		WeatherID:            condition.ID,
		MainWeather:          condition.Main,
		WeatherIconID:        condition.Icon,
		PressureHPa:          r.Main.Pressure,
		WindDirectionDegrees: r.Wind.Deg,
		Sunrise:              unixTime(r.Sys.Sunrise),
		Sunset:               unixTime(r.Sys.Sunset),
		ObservedAt:           unixTime(r.Dt),
	}
	if r.Coord != nil {
		lat, lon := r.Coord.Lat, r.Coord.Lon
		snapshot.Latitude = &lat
		snapshot.Longitude = &lon
	}
	if r.Rain != nil && r.Rain.ThreeHours != nil {
		mm := *r.Rain.ThreeHours
		snapshot.RainfallLast3HoursMm = &mm
	}
	return snapshot, nil
}

func missingField(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, name)
}

func outOfRange(name string, v float64) error {
	return fmt.Errorf("%w: %s = %v", ErrFieldOutOfRange, name, v)
}

func isPercent(v int) bool {
	return v >= 0 && v <= 100
}

// unixTime converts provider epoch seconds, treating zero or negative as absent.
func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
