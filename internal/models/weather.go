package models

import "time"

// WeatherSnapshot is the parsed result of one successful weather query.
// Values are built once by the client and handed out by value; treat as read-only.
type WeatherSnapshot struct {
	City               string  `json:"city"`
	WeatherDescription string  `json:"weatherDescription"`
	TemperatureCelsius float64 `json:"temperatureCelsius"`
	CloudCoverPercent  int     `json:"cloudCoverPercent"`
	WindSpeed          float64 `json:"windSpeed"` // m/s
	HumidityPercent    int     `json:"humidityPercent"`
	// RainfallLast3HoursMm is nil when the provider reported no precipitation data.
	RainfallLast3HoursMm *float64 `json:"rainfallLast3HoursMm,omitempty"`

	Country string `json:"country,omitempty"`
	// Latitude and Longitude are nil when the provider omitted coord.
	Latitude             *float64 `json:"latitude,omitempty"`
	Longitude            *float64 `json:"longitude,omitempty"`
	WeatherID            int      `json:"weatherId,omitempty"`
	MainWeather          string   `json:"mainWeather,omitempty"`
	WeatherIconID        string   `json:"weatherIconId,omitempty"`
	PressureHPa          float64  `json:"pressureHPa,omitempty"`
	WindDirectionDegrees float64  `json:"windDirectionDegrees,omitempty"`
	// Timestamps are nil when the provider sent none.
	Sunrise    *time.Time `json:"sunrise,omitempty"`
	Sunset     *time.Time `json:"sunset,omitempty"`
	ObservedAt *time.Time `json:"observedAt,omitempty"`
}

// TemperatureFahrenheit returns the temperature converted to Fahrenheit.
func (s WeatherSnapshot) TemperatureFahrenheit() float64 {
	return CelsiusToFahrenheit(s.TemperatureCelsius)
}

// TemperatureKelvin returns the temperature converted back to Kelvin.
func (s WeatherSnapshot) TemperatureKelvin() float64 {
	return CelsiusToKelvin(s.TemperatureCelsius)
}

// Rainfall returns the 3-hour rainfall volume and whether the provider reported one.
func (s WeatherSnapshot) Rainfall() (float64, bool) {
	if s.RainfallLast3HoursMm == nil {
		return 0, false
	}
	return *s.RainfallLast3HoursMm, true
}

// Coordinates returns the reported position and whether the provider sent one.
func (s WeatherSnapshot) Coordinates() (lat, lon float64, ok bool) {
	if s.Latitude == nil || s.Longitude == nil {
		return 0, 0, false
	}
	return *s.Latitude, *s.Longitude, true
}
